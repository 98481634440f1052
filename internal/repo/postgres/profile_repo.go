package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrProfileNotFound = errors.New("profile not found")

type ProfileRepo struct {
	pool *pgxpool.Pool
}

type ProfileRecord struct {
	UserID       int64
	Age          int
	Gender       string
	Interests    []string
	PhotoKey     string
	LocationKind string
	City         string
	Lat          float64
	Lon          float64
	MatchKey     string
	Completed    bool
	UpdatedAt    time.Time
}

type SaveLocationParams struct {
	Kind     string
	City     string
	Lat      float64
	Lon      float64
	MatchKey string
}

type SaveProfileParams struct {
	Age       int
	Gender    string
	Interests []string
	PhotoKey  string
}

func NewProfileRepo(pool *pgxpool.Pool) *ProfileRepo {
	return &ProfileRepo{pool: pool}
}

func (r *ProfileRepo) Get(ctx context.Context, userID int64) (ProfileRecord, error) {
	if r.pool == nil {
		return ProfileRecord{}, fmt.Errorf("postgres pool is nil")
	}
	if userID <= 0 {
		return ProfileRecord{}, fmt.Errorf("invalid user id")
	}

	var rec ProfileRecord
	err := r.pool.QueryRow(ctx, `
SELECT
	user_id,
	age,
	COALESCE(gender, ''),
	COALESCE(interests, '{}'),
	COALESCE(photo_key, ''),
	COALESCE(location_kind, ''),
	COALESCE(city, ''),
	COALESCE(lat, 0),
	COALESCE(lon, 0),
	COALESCE(match_key, ''),
	completed,
	updated_at
FROM profiles
WHERE user_id = $1
`, userID).Scan(
		&rec.UserID,
		&rec.Age,
		&rec.Gender,
		&rec.Interests,
		&rec.PhotoKey,
		&rec.LocationKind,
		&rec.City,
		&rec.Lat,
		&rec.Lon,
		&rec.MatchKey,
		&rec.Completed,
		&rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ProfileRecord{}, ErrProfileNotFound
		}
		return ProfileRecord{}, fmt.Errorf("get profile: %w", err)
	}

	return rec, nil
}

// SaveLocation is a single-document field update; it never touches the
// profile answers and never flips completion.
func (r *ProfileRepo) SaveLocation(ctx context.Context, userID int64, p SaveLocationParams) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if userID <= 0 {
		return fmt.Errorf("invalid user id")
	}

	if _, err := r.pool.Exec(ctx, `
INSERT INTO profiles (
	user_id,
	age,
	location_kind,
	city,
	lat,
	lon,
	match_key,
	completed,
	updated_at
) VALUES ($1, 0, $2, $3, $4, $5, $6, FALSE, NOW())
ON CONFLICT (user_id) DO UPDATE SET
	location_kind = EXCLUDED.location_kind,
	city = EXCLUDED.city,
	lat = EXCLUDED.lat,
	lon = EXCLUDED.lon,
	match_key = EXCLUDED.match_key,
	updated_at = NOW()
`, userID, p.Kind, p.City, p.Lat, p.Lon, p.MatchKey); err != nil {
		return fmt.Errorf("save profile location: %w", err)
	}

	return nil
}

// SaveProfile commits the buffered onboarding answers wholesale in one
// statement; there is no partially populated state visible to readers.
func (r *ProfileRepo) SaveProfile(ctx context.Context, userID int64, p SaveProfileParams) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if userID <= 0 {
		return fmt.Errorf("invalid user id")
	}
	if p.Age <= 0 || p.Gender == "" || p.PhotoKey == "" {
		return fmt.Errorf("incomplete profile payload")
	}

	if _, err := r.pool.Exec(ctx, `
INSERT INTO profiles (
	user_id,
	age,
	gender,
	interests,
	photo_key,
	completed,
	updated_at
) VALUES ($1, $2, $3, $4, $5, TRUE, NOW())
ON CONFLICT (user_id) DO UPDATE SET
	age = EXCLUDED.age,
	gender = EXCLUDED.gender,
	interests = EXCLUDED.interests,
	photo_key = EXCLUDED.photo_key,
	completed = TRUE,
	updated_at = NOW()
`, userID, p.Age, p.Gender, p.Interests, p.PhotoKey); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}

	return nil
}
