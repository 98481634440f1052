package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrUserNotFound = errors.New("user not found")

type UserRepo struct {
	pool *pgxpool.Pool
}

// UserRecord is keyed by the Telegram user identifier directly; the bot has
// no identity of its own to assign.
type UserRecord struct {
	ID              int64
	Username        string
	PrivacyAccepted bool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func (r *UserRepo) Find(ctx context.Context, userID int64) (UserRecord, error) {
	if r.pool == nil {
		return UserRecord{}, fmt.Errorf("postgres pool is nil")
	}
	if userID <= 0 {
		return UserRecord{}, fmt.Errorf("invalid user id")
	}

	var user UserRecord
	err := r.pool.QueryRow(ctx, `
SELECT id, username, privacy_accepted
FROM users
WHERE id = $1
`, userID).Scan(&user.ID, &user.Username, &user.PrivacyAccepted)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return UserRecord{}, ErrUserNotFound
		}
		return UserRecord{}, fmt.Errorf("find user: %w", err)
	}

	return user, nil
}

func (r *UserRepo) GetOrCreate(ctx context.Context, userID int64, username string) (UserRecord, error) {
	if r.pool == nil {
		return UserRecord{}, fmt.Errorf("postgres pool is nil")
	}
	if userID <= 0 {
		return UserRecord{}, fmt.Errorf("invalid user id")
	}

	var user UserRecord
	err := r.pool.QueryRow(ctx, `
INSERT INTO users (id, username, privacy_accepted, created_at, updated_at)
VALUES ($1, $2, FALSE, NOW(), NOW())
ON CONFLICT (id) DO UPDATE SET
	username = CASE WHEN EXCLUDED.username <> '' THEN EXCLUDED.username ELSE users.username END,
	updated_at = NOW()
RETURNING id, username, privacy_accepted
`, userID, strings.TrimSpace(username)).Scan(&user.ID, &user.Username, &user.PrivacyAccepted)
	if err != nil {
		return UserRecord{}, fmt.Errorf("get or create user: %w", err)
	}

	return user, nil
}

func (r *UserRepo) SetPrivacyAccepted(ctx context.Context, userID int64) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if userID <= 0 {
		return fmt.Errorf("invalid user id")
	}

	if _, err := r.pool.Exec(ctx, `
UPDATE users
SET privacy_accepted = TRUE, updated_at = NOW()
WHERE id = $1
`, userID); err != nil {
		return fmt.Errorf("set privacy accepted: %w", err)
	}

	return nil
}
