package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNoCandidate = errors.New("no candidate")

type CandidateRepo struct {
	pool *pgxpool.Pool
}

type CandidateQuery struct {
	RequesterID int64
	// MatchKey filters candidates to the requester's location bucket; empty
	// means no location constraint.
	MatchKey   string
	ExcludeIDs []int64
}

type CandidateRecord struct {
	UserID    int64
	Username  string
	Age       int
	Gender    string
	Interests []string
	City      string
	PhotoKey  string
}

func NewCandidateRepo(pool *pgxpool.Pool) *CandidateRepo {
	return &CandidateRepo{pool: pool}
}

// First returns the lowest-id user satisfying the selection predicate, so
// repeated calls over identical store state stay deterministic.
func (r *CandidateRepo) First(ctx context.Context, q CandidateQuery) (CandidateRecord, error) {
	if r.pool == nil {
		return CandidateRecord{}, fmt.Errorf("postgres pool is nil")
	}
	if q.RequesterID <= 0 {
		return CandidateRecord{}, fmt.Errorf("invalid requester id")
	}

	exclude := q.ExcludeIDs
	if exclude == nil {
		exclude = []int64{}
	}

	var rec CandidateRecord
	err := r.pool.QueryRow(ctx, `
SELECT
	u.id,
	COALESCE(u.username, ''),
	p.age,
	p.gender,
	COALESCE(p.interests, '{}'),
	COALESCE(p.city, ''),
	p.photo_key
FROM users u
JOIN profiles p ON p.user_id = u.id
WHERE
	u.id <> $1
	AND p.completed = TRUE
	AND p.photo_key <> ''
	AND ($2 = '' OR p.match_key = $2)
	AND NOT (u.id = ANY($3))
ORDER BY u.id
LIMIT 1
`, q.RequesterID, q.MatchKey, exclude).Scan(
		&rec.UserID,
		&rec.Username,
		&rec.Age,
		&rec.Gender,
		&rec.Interests,
		&rec.City,
		&rec.PhotoKey,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return CandidateRecord{}, ErrNoCandidate
		}
		return CandidateRecord{}, fmt.Errorf("select candidate: %w", err)
	}

	return rec, nil
}
