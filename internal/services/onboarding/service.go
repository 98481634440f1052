package onboarding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ivankudzin/pairbot/internal/domain/enums"
	"github.com/ivankudzin/pairbot/internal/domain/model"
	"github.com/ivankudzin/pairbot/internal/domain/rules"
	pgrepo "github.com/ivankudzin/pairbot/internal/repo/postgres"
	geosvc "github.com/ivankudzin/pairbot/internal/services/geo"
)

var (
	ErrValidation = errors.New("validation error")
	ErrNoSession  = errors.New("no onboarding session")
)

type ProfileStore interface {
	Get(ctx context.Context, userID int64) (pgrepo.ProfileRecord, error)
	SaveLocation(ctx context.Context, userID int64, p pgrepo.SaveLocationParams) error
	SaveProfile(ctx context.Context, userID int64, p pgrepo.SaveProfileParams) error
}

type LocationIndex interface {
	MatchKey(loc model.Location) string
	ResolveNearestCity(lat, lon float64) (geosvc.City, error)
	ValidateCoordinates(lat, lon float64) error
}

// Input is the typed payload extracted by the transport adapter; the service
// never sees platform message formats.
type Input struct {
	Kind     enums.InputKind
	Text     string
	Lat      float64
	Lon      float64
	PhotoKey string
}

// Keyboard hints which answer buttons the adapter should attach to a prompt.
type Keyboard string

const (
	KeyboardNone           Keyboard = ""
	KeyboardLocationMethod Keyboard = "location_method"
	KeyboardShareLocation  Keyboard = "share_location"
	KeyboardGender         Keyboard = "gender"
	KeyboardMainMenu       Keyboard = "main_menu"
)

type Reply struct {
	Prompt   string
	Keyboard Keyboard
	Terminal bool
}

// session buffers answers for one user until the final commit. Answers never
// reach the store before the photo step succeeds.
type session struct {
	mu           sync.Mutex
	step         enums.OnboardingStep
	locationOnly bool
	age          int
	gender       enums.Gender
	interests    []string
}

// Service drives the profile onboarding conversation. Sessions live in
// process memory only: a restart drops them and the user starts over.
type Service struct {
	store ProfileStore
	index LocationIndex

	mu       sync.Mutex
	sessions map[int64]*session
}

func NewService(store ProfileStore, index LocationIndex) *Service {
	return &Service{
		store:    store,
		index:    index,
		sessions: make(map[int64]*session),
	}
}

// Start opens (or restarts) the onboarding conversation. Users with a stored
// location skip straight to the profile questions.
func (s *Service) Start(ctx context.Context, userID int64) (Reply, error) {
	if userID <= 0 {
		return Reply{}, ErrValidation
	}

	hasLocation := false
	profile, err := s.store.Get(ctx, userID)
	switch {
	case err == nil:
		hasLocation = profile.LocationKind != ""
	case errors.Is(err, pgrepo.ErrProfileNotFound):
	default:
		return Reply{}, fmt.Errorf("read profile: %w", err)
	}

	sess := s.obtain(userID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.locationOnly = false
	sess.age = 0
	sess.gender = ""
	sess.interests = nil

	if hasLocation {
		sess.step = enums.StepAge
		return Reply{Prompt: promptAgeOnly}, nil
	}

	sess.step = enums.StepLocationMethod
	return Reply{Prompt: promptLocationMethod, Keyboard: KeyboardLocationMethod}, nil
}

// StartLocationUpdate opens a session that ends right after the location is
// saved, for the standalone "update location" action.
func (s *Service) StartLocationUpdate(userID int64) (Reply, error) {
	if userID <= 0 {
		return Reply{}, ErrValidation
	}

	sess := s.obtain(userID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.step = enums.StepLocationMethod
	sess.locationOnly = true
	sess.age = 0
	sess.gender = ""
	sess.interests = nil

	return Reply{Prompt: promptLocationMethod, Keyboard: KeyboardLocationMethod}, nil
}

func (s *Service) Active(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[userID]
	return ok
}

// Cancel discards the session. It takes the session lock so a cancel that
// wins the race against an in-flight turn leaves that turn facing StepNone,
// preventing a commit after the cancel took effect.
func (s *Service) Cancel(userID int64) {
	s.mu.Lock()
	sess := s.sessions[userID]
	s.mu.Unlock()
	if sess == nil {
		return
	}

	sess.mu.Lock()
	sess.step = enums.StepNone
	sess.mu.Unlock()

	s.remove(userID, sess)
}

// Advance feeds one answer into the conversation. Validation failures
// re-emit the same step's prompt without advancing; store failures keep the
// step so the user can retry.
func (s *Service) Advance(ctx context.Context, userID int64, in Input) (Reply, error) {
	if userID <= 0 {
		return Reply{}, ErrValidation
	}

	s.mu.Lock()
	sess := s.sessions[userID]
	s.mu.Unlock()
	if sess == nil {
		return Reply{}, ErrNoSession
	}

	sess.mu.Lock()
	reply, err := s.advanceLocked(ctx, userID, sess, in)
	terminal := err == nil && reply.Terminal
	sess.mu.Unlock()

	if terminal {
		s.remove(userID, sess)
	}

	return reply, err
}

func (s *Service) advanceLocked(ctx context.Context, userID int64, sess *session, in Input) (Reply, error) {
	switch sess.step {
	case enums.StepLocationMethod:
		return s.handleLocationMethod(ctx, userID, sess, in)
	case enums.StepCity:
		return s.handleCity(ctx, userID, sess, in)
	case enums.StepGeo:
		return s.handleGeo(ctx, userID, sess, in)
	case enums.StepAge:
		return s.handleAge(sess, in)
	case enums.StepGender:
		return s.handleGender(sess, in)
	case enums.StepInterests:
		return s.handleInterests(sess, in)
	case enums.StepPhoto:
		return s.handlePhoto(ctx, userID, sess, in)
	default:
		return Reply{}, ErrNoSession
	}
}

func (s *Service) handleLocationMethod(ctx context.Context, userID int64, sess *session, in Input) (Reply, error) {
	// A shared location answers the method question and the geo step at once.
	if in.Kind == enums.InputKindLocation {
		sess.step = enums.StepGeo
		return s.handleGeo(ctx, userID, sess, in)
	}

	switch strings.TrimSpace(in.Text) {
	case ChoiceCity:
		sess.step = enums.StepCity
		return Reply{Prompt: promptCity}, nil
	case ChoiceGeo:
		sess.step = enums.StepGeo
		return Reply{Prompt: promptShareGeo, Keyboard: KeyboardShareLocation}, nil
	default:
		return Reply{Prompt: promptLocationMethod, Keyboard: KeyboardLocationMethod}, nil
	}
}

func (s *Service) handleCity(ctx context.Context, userID int64, sess *session, in Input) (Reply, error) {
	city := strings.TrimSpace(in.Text)
	if in.Kind != enums.InputKindText || city == "" {
		return Reply{Prompt: promptCity}, nil
	}

	loc := model.Location{Kind: enums.LocationKindCity, City: city}
	return s.commitLocation(ctx, userID, sess, loc)
}

func (s *Service) handleGeo(ctx context.Context, userID int64, sess *session, in Input) (Reply, error) {
	if in.Kind != enums.InputKindLocation {
		return Reply{Prompt: promptShareGeo, Keyboard: KeyboardShareLocation}, nil
	}
	if err := s.index.ValidateCoordinates(in.Lat, in.Lon); err != nil {
		return Reply{Prompt: promptShareGeo, Keyboard: KeyboardShareLocation}, nil
	}

	loc := model.Location{Kind: enums.LocationKindGeo, Lat: in.Lat, Lon: in.Lon}
	if nearest, err := s.index.ResolveNearestCity(in.Lat, in.Lon); err == nil {
		loc.City = nearest.Name
	}

	return s.commitLocation(ctx, userID, sess, loc)
}

func (s *Service) commitLocation(ctx context.Context, userID int64, sess *session, loc model.Location) (Reply, error) {
	params := pgrepo.SaveLocationParams{
		Kind:     string(loc.Kind),
		City:     loc.City,
		Lat:      loc.Lat,
		Lon:      loc.Lon,
		MatchKey: s.index.MatchKey(loc),
	}
	if err := s.store.SaveLocation(ctx, userID, params); err != nil {
		return Reply{}, fmt.Errorf("save location: %w", err)
	}

	if sess.locationOnly {
		return Reply{Prompt: promptLocationSaved, Keyboard: KeyboardMainMenu, Terminal: true}, nil
	}

	sess.step = enums.StepAge
	return Reply{Prompt: promptAskAge}, nil
}

func (s *Service) handleAge(sess *session, in Input) (Reply, error) {
	age, err := rules.ParseAge(in.Text)
	if in.Kind != enums.InputKindText || err != nil {
		return Reply{Prompt: promptAgeInvalid}, nil
	}

	sess.age = age
	sess.step = enums.StepGender
	return Reply{Prompt: promptGender, Keyboard: KeyboardGender}, nil
}

func (s *Service) handleGender(sess *session, in Input) (Reply, error) {
	gender, ok := rules.ParseGender(in.Text)
	if in.Kind != enums.InputKindText || !ok {
		return Reply{Prompt: promptGenderInvalid, Keyboard: KeyboardGender}, nil
	}

	sess.gender = gender
	sess.step = enums.StepInterests
	return Reply{Prompt: promptInterests}, nil
}

func (s *Service) handleInterests(sess *session, in Input) (Reply, error) {
	if in.Kind != enums.InputKindText || strings.TrimSpace(in.Text) == "" {
		return Reply{Prompt: promptInterests}, nil
	}

	sess.interests = rules.SplitInterests(in.Text)
	sess.step = enums.StepPhoto
	return Reply{Prompt: promptPhoto}, nil
}

func (s *Service) handlePhoto(ctx context.Context, userID int64, sess *session, in Input) (Reply, error) {
	if in.Kind != enums.InputKindPhoto || strings.TrimSpace(in.PhotoKey) == "" {
		return Reply{Prompt: promptPhotoInvalid}, nil
	}

	params := pgrepo.SaveProfileParams{
		Age:       sess.age,
		Gender:    string(sess.gender),
		Interests: sess.interests,
		PhotoKey:  strings.TrimSpace(in.PhotoKey),
	}
	// On failure the step stays at the photo question; the buffered answers
	// survive and the commit can be retried.
	if err := s.store.SaveProfile(ctx, userID, params); err != nil {
		return Reply{}, fmt.Errorf("commit profile: %w", err)
	}

	return Reply{Prompt: promptDone, Keyboard: KeyboardMainMenu, Terminal: true}, nil
}

func (s *Service) obtain(userID int64) *session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.sessions[userID]
	if sess == nil {
		sess = &session{}
		s.sessions[userID] = sess
	}
	return sess
}

func (s *Service) remove(userID int64, sess *session) {
	s.mu.Lock()
	if s.sessions[userID] == sess {
		delete(s.sessions, userID)
	}
	s.mu.Unlock()
}
