package likes

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	pgrepo "github.com/ivankudzin/pairbot/internal/repo/postgres"
)

var (
	ErrValidation     = errors.New("validation error")
	ErrTargetNotFound = errors.New("target user not found")
)

// TooFastError reports that the liker hit a rate window.
type TooFastError struct {
	RetryAfterSec int64
}

func (e *TooFastError) Error() string {
	return fmt.Sprintf("too many likes, retry after %ds", e.RetryAfterSec)
}

type TxRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error
}

type LikeStore interface {
	Upsert(ctx context.Context, tx pgx.Tx, fromID, toID int64) error
}

type MatchStore interface {
	CreateIfMutualLike(ctx context.Context, tx pgx.Tx, fromID, toID int64) (bool, error)
}

type UserStore interface {
	Find(ctx context.Context, userID int64) (pgrepo.UserRecord, error)
}

type Notifier interface {
	Notify(ctx context.Context, userID int64, text string) error
}

type RateLimiter interface {
	AllowLike(ctx context.Context, userID int64) (int64, bool, error)
}

type Dependencies struct {
	Tx       TxRunner
	Likes    LikeStore
	Matches  MatchStore
	Users    UserStore
	Notifier Notifier
	Limiter  RateLimiter
	Logger   *zap.Logger
}

// Outcome reports what a like produced. Counterpart is filled only when the
// like closed a mutual pair.
type Outcome struct {
	Matched     bool
	Counterpart pgrepo.UserRecord
}

// Service records like edges and detects mutual matches. For every unordered
// user pair at most one match is ever created: the reciprocity check and the
// match insert run inside one transaction, serialized in-process by a
// per-pair latch.
type Service struct {
	tx       TxRunner
	likes    LikeStore
	matches  MatchStore
	users    UserStore
	notifier Notifier
	limiter  RateLimiter
	logger   *zap.Logger

	mu      sync.Mutex
	latches map[[2]int64]*pairLatch
}

type pairLatch struct {
	mu   sync.Mutex
	refs int
}

func NewService(deps Dependencies) *Service {
	return &Service{
		tx:       deps.Tx,
		likes:    deps.Likes,
		matches:  deps.Matches,
		users:    deps.Users,
		notifier: deps.Notifier,
		limiter:  deps.Limiter,
		logger:   deps.Logger,
		latches:  make(map[[2]int64]*pairLatch),
	}
}

// Like records fromID liking toID. Repeating a like is a no-op and can never
// produce a second match for the same pair.
func (s *Service) Like(ctx context.Context, fromID, toID int64) (Outcome, error) {
	if fromID <= 0 || toID <= 0 || fromID == toID {
		return Outcome{}, ErrValidation
	}

	if s.limiter != nil {
		retryAfter, allowed, err := s.limiter.AllowLike(ctx, fromID)
		if err != nil {
			return Outcome{}, fmt.Errorf("rate check: %w", err)
		}
		if !allowed {
			return Outcome{}, &TooFastError{RetryAfterSec: retryAfter}
		}
	}

	target, err := s.users.Find(ctx, toID)
	if errors.Is(err, pgrepo.ErrUserNotFound) {
		return Outcome{}, ErrTargetNotFound
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("find target: %w", err)
	}

	latch := s.acquire(fromID, toID)
	defer s.release(fromID, toID, latch)

	var matched bool
	err = s.tx.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := s.likes.Upsert(ctx, tx, fromID, toID); err != nil {
			return fmt.Errorf("save like: %w", err)
		}
		created, err := s.matches.CreateIfMutualLike(ctx, tx, fromID, toID)
		if err != nil {
			return fmt.Errorf("check mutual: %w", err)
		}
		matched = created
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}

	if matched {
		s.notifyBoth(ctx, fromID, toID, target.Username)
	}

	return Outcome{Matched: matched, Counterpart: target}, nil
}

// notifyBoth delivers match notifications best-effort; a delivery failure
// never undoes the recorded match.
func (s *Service) notifyBoth(ctx context.Context, fromID, toID int64, targetName string) {
	liker, err := s.users.Find(ctx, fromID)
	likerName := ""
	if err == nil {
		likerName = liker.Username
	}

	for _, n := range []struct {
		userID int64
		text   string
	}{
		{userID: fromID, text: matchText(targetName)},
		{userID: toID, text: matchText(likerName)},
	} {
		if err := s.notifier.Notify(ctx, n.userID, n.text); err != nil {
			s.logger.Warn("match notification failed",
				zap.Int64("user_id", n.userID),
				zap.Error(err))
		}
	}
}

func matchText(username string) string {
	if username == "" {
		return "У вас новая пара! Загляните в раздел \"Мои пары\"."
	}
	return fmt.Sprintf("У вас новая пара: @%s. Напишите первым!", username)
}

func pairKey(a, b int64) [2]int64 {
	if a > b {
		a, b = b, a
	}
	return [2]int64{a, b}
}

func (s *Service) acquire(a, b int64) *pairLatch {
	key := pairKey(a, b)

	s.mu.Lock()
	latch := s.latches[key]
	if latch == nil {
		latch = &pairLatch{}
		s.latches[key] = latch
	}
	latch.refs++
	s.mu.Unlock()

	latch.mu.Lock()
	return latch
}

func (s *Service) release(a, b int64, latch *pairLatch) {
	latch.mu.Unlock()

	key := pairKey(a, b)
	s.mu.Lock()
	latch.refs--
	if latch.refs == 0 {
		delete(s.latches, key)
	}
	s.mu.Unlock()
}
