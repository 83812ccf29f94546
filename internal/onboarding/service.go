// Package onboarding coordinates signup sessions: it owns the session
// store, rebuilds a sequencer around each request, and fans out lifecycle
// events. Handlers call this service; the sequencer itself never touches
// persistence.
package onboarding

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/verihire/onboard/internal/domain"
	"github.com/verihire/onboard/internal/events"
	"github.com/verihire/onboard/internal/flow"
	"github.com/verihire/onboard/internal/registration"
	"github.com/verihire/onboard/internal/sequencer"
	"github.com/verihire/onboard/internal/session"
	"github.com/verihire/onboard/internal/telemetry"
)

// Completer receives the final form state when a session's terminal step
// succeeds. Satisfied by the postgres vault.
type Completer interface {
	StoreCompleted(ctx context.Context, sessionID uuid.UUID, form domain.FormState) error
}

// Config assembles the service's collaborators. Publisher, Completer, and
// Metrics are optional.
type Config struct {
	Store        session.Store
	Registration registration.Client
	Publisher    events.Publisher
	Completer    Completer
	Metrics      *telemetry.Funnel
	Logger       *slog.Logger
}

// Service manages the lifecycle of signup sessions.
type Service struct {
	store     session.Store
	client    registration.Client
	publisher events.Publisher
	completer Completer
	metrics   *telemetry.Funnel
	logger    *slog.Logger

	// locks serializes mutations per session. The sequencer's busy guard
	// only covers a single rebuilt instance, so without this two
	// concurrent requests could each fire the registration call.
	locksMu sync.Mutex
	locks   map[uuid.UUID]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// NewService creates the onboarding service.
func NewService(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = events.NopPublisher{}
	}

	return &Service{
		store:     cfg.Store,
		client:    cfg.Registration,
		publisher: publisher,
		completer: cfg.Completer,
		metrics:   cfg.Metrics,
		logger:    logger.With("service", "onboarding"),
		locks:     make(map[uuid.UUID]*sessionLock),
	}
}

// lockSession takes the per-session mutex and returns the release func.
// Entries are refcounted so the map does not grow with dead sessions.
func (s *Service) lockSession(id uuid.UUID) func() {
	s.locksMu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sessionLock{}
		s.locks[id] = l
	}
	l.refs++
	s.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, id)
		}
		s.locksMu.Unlock()
	}
}

// Start creates a new signup session for the role and country.
func (s *Service) Start(ctx context.Context, role domain.Role, country domain.Country) (*session.Record, error) {
	if _, err := flow.Build(role, country); err != nil {
		return nil, err
	}

	rec := session.NewRecord(role, country)
	if err := s.store.Put(ctx, rec); err != nil {
		return nil, domain.Internal(err, "onboarding.start", "could not create signup session")
	}

	s.metrics.SessionStarted(string(role), string(country))
	if err := s.publisher.SignupStarted(ctx, events.Envelope{
		SessionID: rec.ID,
		Role:      role,
		Country:   country,
	}); err != nil {
		// Continue - not critical for the signup itself
		s.logger.Warn("failed to publish signup.started", "session_id", rec.ID, "error", err)
	}

	s.logger.Info("signup session started",
		"session_id", rec.ID,
		"role", role,
		"country", country)
	return rec, nil
}

// Get loads a session.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*session.Record, error) {
	return s.store.Get(ctx, id)
}

// Steps returns the step descriptors for a session's flow.
func (s *Service) Steps(rec *session.Record) ([]domain.StepDescriptor, error) {
	f, err := flow.Build(rec.Role, rec.Country)
	if err != nil {
		return nil, err
	}
	return f.Steps, nil
}

// UpdateForm applies a field patch to a session.
func (s *Service) UpdateForm(ctx context.Context, id uuid.UUID, patch domain.Patch) (*session.Record, error) {
	defer s.lockSession(id)()

	rec, seq, err := s.rehydrate(ctx, id)
	if err != nil {
		return nil, err
	}

	seq.UpdateForm(patch)
	return s.persist(ctx, rec, seq)
}

// SetExperience stores one work-experience entry.
func (s *Service) SetExperience(ctx context.Context, id uuid.UUID, index int, exp domain.Experience) (*session.Record, error) {
	defer s.lockSession(id)()

	rec, seq, err := s.rehydrate(ctx, id)
	if err != nil {
		return nil, err
	}

	if _, err := seq.SetExperience(index, exp); err != nil {
		return nil, err
	}
	return s.persist(ctx, rec, seq)
}

// RemoveExperience deletes one work-experience entry.
func (s *Service) RemoveExperience(ctx context.Context, id uuid.UUID, index int) (*session.Record, error) {
	defer s.lockSession(id)()

	rec, seq, err := s.rehydrate(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := seq.RemoveExperience(index); err != nil {
		return nil, err
	}
	return s.persist(ctx, rec, seq)
}

// SetEducation stores one education entry.
func (s *Service) SetEducation(ctx context.Context, id uuid.UUID, index int, edu domain.Education) (*session.Record, error) {
	defer s.lockSession(id)()

	rec, seq, err := s.rehydrate(ctx, id)
	if err != nil {
		return nil, err
	}

	if _, err := seq.SetEducation(index, edu); err != nil {
		return nil, err
	}
	return s.persist(ctx, rec, seq)
}

// RemoveEducation deletes one education entry.
func (s *Service) RemoveEducation(ctx context.Context, id uuid.UUID, index int) (*session.Record, error) {
	defer s.lockSession(id)()

	rec, seq, err := s.rehydrate(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := seq.RemoveEducation(index); err != nil {
		return nil, err
	}
	return s.persist(ctx, rec, seq)
}

// SetOrganization stores the company/school details.
func (s *Service) SetOrganization(ctx context.Context, id uuid.UUID, org domain.Organization) (*session.Record, error) {
	defer s.lockSession(id)()

	rec, seq, err := s.rehydrate(ctx, id)
	if err != nil {
		return nil, err
	}

	seq.SetOrganization(org)
	return s.persist(ctx, rec, seq)
}

// Advance runs the forward transition for a session. When the transition is
// blocked by validation, the updated record is returned alongside the
// validation error so callers can render the field messages.
func (s *Service) Advance(ctx context.Context, id uuid.UUID) (*session.Record, error) {
	defer s.lockSession(id)()

	rec, seq, err := s.rehydrate(ctx, id)
	if err != nil {
		return nil, err
	}

	hadToken := rec.Form.HasToken()
	advErr := seq.Advance(ctx)

	rec, persistErr := s.persist(ctx, rec, seq)
	if persistErr != nil {
		return nil, persistErr
	}

	if !hadToken && rec.Form.HasToken() {
		if err := s.publisher.SignupRegistered(ctx, events.Envelope{
			SessionID: rec.ID,
			Role:      rec.Role,
			Country:   rec.Country,
			UserID:    rec.Form.UserID,
			Email:     rec.Form.Email,
		}); err != nil {
			// Continue - not critical
			s.logger.Warn("failed to publish signup.registered", "session_id", rec.ID, "error", err)
		}
	}

	return rec, advErr
}

// Retreat moves a session one step back. Retreating from the first step
// cancels the signup: the session is deleted and a nil record is returned.
func (s *Service) Retreat(ctx context.Context, id uuid.UUID) (*session.Record, error) {
	defer s.lockSession(id)()

	rec, seq, err := s.rehydrate(ctx, id)
	if err != nil {
		return nil, err
	}

	cancelled := rec.Nav.ActiveStepIndex == 0

	if err := seq.Retreat(); err != nil {
		return nil, err
	}

	if cancelled {
		if err := s.store.Delete(ctx, id); err != nil {
			return nil, domain.Internal(err, "onboarding.retreat", "could not cancel signup session")
		}
		s.logger.Info("signup session cancelled", "session_id", id)
		return nil, nil
	}

	return s.persist(ctx, rec, seq)
}

// JumpTo navigates a session directly to the named step.
func (s *Service) JumpTo(ctx context.Context, id uuid.UUID, stepID string) (*session.Record, error) {
	defer s.lockSession(id)()

	rec, seq, err := s.rehydrate(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := seq.JumpTo(stepID); err != nil {
		return nil, err
	}
	return s.persist(ctx, rec, seq)
}

// rehydrate loads a session and rebuilds a sequencer around it.
func (s *Service) rehydrate(ctx context.Context, id uuid.UUID) (*session.Record, *sequencer.Sequencer, error) {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	f, err := flow.Build(rec.Role, rec.Country)
	if err != nil {
		return nil, nil, err
	}

	seq := sequencer.New(sequencer.Config{
		Flow:         f,
		Registration: s.client,
		Logger:       s.logger,
		Metrics:      s.metrics,
		OnComplete:   s.completionFunc(rec.ID),
	})
	seq.Restore(rec.Form, rec.Nav)
	return rec, seq, nil
}

// persist writes the sequencer's state back onto the record and stores it.
func (s *Service) persist(ctx context.Context, rec *session.Record, seq *sequencer.Sequencer) (*session.Record, error) {
	rec.Form, rec.Nav = seq.Snapshot()
	if err := s.store.Put(ctx, rec); err != nil {
		return nil, domain.Internal(err, "onboarding.persist", "could not store signup session")
	}
	return rec, nil
}

// completionFunc builds the terminal side effect for one session: write the
// vault record, then emit the completion event.
func (s *Service) completionFunc(sessionID uuid.UUID) sequencer.CompletionFunc {
	return func(ctx context.Context, form domain.FormState) error {
		if s.completer != nil {
			if err := s.completer.StoreCompleted(ctx, sessionID, form); err != nil {
				return err
			}
		}

		if err := s.publisher.SignupCompleted(ctx, events.Envelope{
			SessionID: sessionID,
			Role:      form.Role,
			Country:   form.Country,
			UserID:    form.UserID,
			Email:     form.Email,
		}); err != nil {
			// Continue - the signup record is already stored
			s.logger.Warn("failed to publish signup.completed", "session_id", sessionID, "error", err)
		}
		return nil
	}
}
