package candidates

import (
	"context"
	"errors"
	"sort"
	"testing"

	pgrepo "github.com/ivankudzin/pairbot/internal/repo/postgres"
)

type repoStub struct {
	profiles   map[int64]pgrepo.ProfileRecord
	candidates []pgrepo.CandidateRecord

	lastQuery pgrepo.CandidateQuery
}

func (r *repoStub) GetProfile(_ context.Context, userID int64) (pgrepo.ProfileRecord, error) {
	p, ok := r.profiles[userID]
	if !ok {
		return pgrepo.ProfileRecord{}, pgrepo.ErrProfileNotFound
	}
	return p, nil
}

func (r *repoStub) FirstCandidate(_ context.Context, q pgrepo.CandidateQuery) (pgrepo.CandidateRecord, error) {
	r.lastQuery = q

	excluded := make(map[int64]bool, len(q.ExcludeIDs))
	for _, id := range q.ExcludeIDs {
		excluded[id] = true
	}
	for _, c := range r.candidates {
		if c.UserID == q.RequesterID || excluded[c.UserID] {
			continue
		}
		return c, nil
	}
	return pgrepo.CandidateRecord{}, pgrepo.ErrNoCandidate
}

func completedProfile(userID int64, matchKey string) pgrepo.ProfileRecord {
	return pgrepo.ProfileRecord{
		UserID:    userID,
		Age:       25,
		Gender:    "male",
		PhotoKey:  "k",
		MatchKey:  matchKey,
		Completed: true,
	}
}

func TestNextRequiresCompletedProfile(t *testing.T) {
	repo := &repoStub{profiles: map[int64]pgrepo.ProfileRecord{
		2: {UserID: 2, Completed: false},
	}}
	svc := NewService(repo)

	if _, err := svc.Next(context.Background(), 1); !errors.Is(err, ErrProfileIncomplete) {
		t.Fatalf("missing profile: expected ErrProfileIncomplete, got %v", err)
	}
	if _, err := svc.Next(context.Background(), 2); !errors.Is(err, ErrProfileIncomplete) {
		t.Fatalf("incomplete profile: expected ErrProfileIncomplete, got %v", err)
	}
}

func TestNextFiltersByMatchKeyAndExcludesShown(t *testing.T) {
	repo := &repoStub{
		profiles: map[int64]pgrepo.ProfileRecord{1: completedProfile(1, "city:minsk")},
		candidates: []pgrepo.CandidateRecord{
			{UserID: 2, Username: "ann", Age: 24, City: "Minsk", PhotoKey: "p2"},
			{UserID: 3, Username: "kate", Age: 27, City: "Minsk", PhotoKey: "p3"},
		},
	}
	svc := NewService(repo)
	ctx := context.Background()

	first, err := svc.Next(ctx, 1)
	if err != nil {
		t.Fatalf("first next: %v", err)
	}
	if repo.lastQuery.MatchKey != "city:minsk" {
		t.Fatalf("query must carry the requester's match key, got %q", repo.lastQuery.MatchKey)
	}
	if first.UserID != 2 {
		t.Fatalf("unexpected first candidate: %d", first.UserID)
	}

	second, err := svc.Next(ctx, 1)
	if err != nil {
		t.Fatalf("second next: %v", err)
	}
	if second.UserID != 3 {
		t.Fatalf("already shown candidate repeated: %d", second.UserID)
	}

	want := []int64{2}
	got := append([]int64(nil), repo.lastQuery.ExcludeIDs...)
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	if len(got) != len(want) || got[0] != want[0] {
		t.Fatalf("unexpected exclusions: %v want %v", got, want)
	}
}

func TestNextResetsShownSetWhenExhausted(t *testing.T) {
	repo := &repoStub{
		profiles: map[int64]pgrepo.ProfileRecord{1: completedProfile(1, "")},
		candidates: []pgrepo.CandidateRecord{
			{UserID: 2, Username: "ann", PhotoKey: "p2"},
		},
	}
	svc := NewService(repo)
	ctx := context.Background()

	if _, err := svc.Next(ctx, 1); err != nil {
		t.Fatalf("first next: %v", err)
	}
	if _, err := svc.Next(ctx, 1); !errors.Is(err, ErrNoCandidates) {
		t.Fatalf("expected ErrNoCandidates, got %v", err)
	}

	// The rotation starts over after exhaustion.
	again, err := svc.Next(ctx, 1)
	if err != nil {
		t.Fatalf("next after reset: %v", err)
	}
	if again.UserID != 2 {
		t.Fatalf("unexpected candidate after reset: %d", again.UserID)
	}
}

func TestResetForgetsShownCandidates(t *testing.T) {
	repo := &repoStub{
		profiles: map[int64]pgrepo.ProfileRecord{1: completedProfile(1, "")},
		candidates: []pgrepo.CandidateRecord{
			{UserID: 2, PhotoKey: "p2"},
			{UserID: 3, PhotoKey: "p3"},
		},
	}
	svc := NewService(repo)
	ctx := context.Background()

	if _, err := svc.Next(ctx, 1); err != nil {
		t.Fatalf("next: %v", err)
	}
	svc.Reset(1)

	c, err := svc.Next(ctx, 1)
	if err != nil {
		t.Fatalf("next after reset: %v", err)
	}
	if c.UserID != 2 {
		t.Fatalf("reset must restart the rotation, got %d", c.UserID)
	}
}

func TestShownSetsAreIndependentPerUser(t *testing.T) {
	repo := &repoStub{
		profiles: map[int64]pgrepo.ProfileRecord{
			1: completedProfile(1, ""),
			5: completedProfile(5, ""),
		},
		candidates: []pgrepo.CandidateRecord{
			{UserID: 2, PhotoKey: "p2"},
			{UserID: 3, PhotoKey: "p3"},
		},
	}
	svc := NewService(repo)
	ctx := context.Background()

	if _, err := svc.Next(ctx, 1); err != nil {
		t.Fatalf("user 1 next: %v", err)
	}

	c, err := svc.Next(ctx, 5)
	if err != nil {
		t.Fatalf("user 5 next: %v", err)
	}
	if c.UserID != 2 {
		t.Fatalf("user 5 must start from the top, got %d", c.UserID)
	}
}
