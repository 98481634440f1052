package candidates

import (
	"context"
	"errors"
	"fmt"
	"sync"

	pgrepo "github.com/ivankudzin/pairbot/internal/repo/postgres"
)

var (
	ErrValidation        = errors.New("validation error")
	ErrProfileIncomplete = errors.New("profile incomplete")
	ErrNoCandidates      = errors.New("no candidates")
)

type Repository interface {
	GetProfile(ctx context.Context, userID int64) (pgrepo.ProfileRecord, error)
	FirstCandidate(ctx context.Context, q pgrepo.CandidateQuery) (pgrepo.CandidateRecord, error)
}

// Candidate is one profile card offered to the browsing user.
type Candidate struct {
	UserID    int64
	Username  string
	Age       int
	Gender    string
	Interests []string
	City      string
	PhotoKey  string
}

// Service walks a user through candidate profiles one at a time. The set of
// already shown candidates lives in process memory per browsing user; it
// resets when the feed is exhausted or when the user re-enters search.
type Service struct {
	repo Repository

	mu    sync.Mutex
	shown map[int64]map[int64]struct{}
}

func NewService(repo Repository) *Service {
	return &Service{
		repo:  repo,
		shown: make(map[int64]map[int64]struct{}),
	}
}

// Reset forgets which candidates a user has already seen.
func (s *Service) Reset(userID int64) {
	s.mu.Lock()
	delete(s.shown, userID)
	s.mu.Unlock()
}

// Next returns the next unseen matching candidate for userID. The requester's
// own profile must be completed before browsing.
func (s *Service) Next(ctx context.Context, userID int64) (Candidate, error) {
	if userID <= 0 {
		return Candidate{}, ErrValidation
	}

	profile, err := s.repo.GetProfile(ctx, userID)
	if errors.Is(err, pgrepo.ErrProfileNotFound) {
		return Candidate{}, ErrProfileIncomplete
	}
	if err != nil {
		return Candidate{}, fmt.Errorf("read profile: %w", err)
	}
	if !profile.Completed {
		return Candidate{}, ErrProfileIncomplete
	}

	query := pgrepo.CandidateQuery{
		RequesterID: userID,
		MatchKey:    profile.MatchKey,
		ExcludeIDs:  s.excluded(userID),
	}

	rec, err := s.repo.FirstCandidate(ctx, query)
	if errors.Is(err, pgrepo.ErrNoCandidate) {
		// Drop the shown set so the next search starts the rotation over.
		s.Reset(userID)
		return Candidate{}, ErrNoCandidates
	}
	if err != nil {
		return Candidate{}, fmt.Errorf("pick candidate: %w", err)
	}

	s.markShown(userID, rec.UserID)

	return Candidate{
		UserID:    rec.UserID,
		Username:  rec.Username,
		Age:       rec.Age,
		Gender:    rec.Gender,
		Interests: rec.Interests,
		City:      rec.City,
		PhotoKey:  rec.PhotoKey,
	}, nil
}

func (s *Service) excluded(userID int64) []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	set := s.shown[userID]
	if len(set) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	return ids
}

func (s *Service) markShown(userID, candidateID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set := s.shown[userID]
	if set == nil {
		set = make(map[int64]struct{})
		s.shown[userID] = set
	}
	set[candidateID] = struct{}{}
}
