// Package sequencer drives one signup session through its flow: it owns the
// active step index and the accumulated form state, gates forward
// transitions on per-step validation, fires the registration side effects
// at the gate step, and keeps the loading/completed flags honest.
package sequencer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/verihire/onboard/internal/domain"
	"github.com/verihire/onboard/internal/normalize"
	"github.com/verihire/onboard/internal/registration"
	"github.com/verihire/onboard/internal/telemetry"
)

// Sequencer-level errors.
var (
	// ErrBusy is returned when a transition is requested while a
	// side-effecting call is in flight. Recoverable: retry once the
	// current operation resolves.
	ErrBusy = &domain.Error{Code: domain.EBUSY, Op: "sequencer", Message: "An operation is already in progress"}

	// ErrCompleted is returned for transitions requested after the
	// terminal step has succeeded.
	ErrCompleted = &domain.Error{Code: domain.EINVALID, Op: "sequencer", Message: "Signup is already complete"}
)

// CompletionFunc is the terminal side effect invoked when the last step
// advances: typically the token-vault write plus the completion event.
type CompletionFunc func(ctx context.Context, form domain.FormState) error

// CancelFunc is invoked when the user retreats from the first step.
type CancelFunc func()

// Config assembles a sequencer's collaborators.
type Config struct {
	Flow         domain.Flow
	Registration registration.Client
	Logger       *slog.Logger
	Metrics      *telemetry.Funnel

	// OnComplete runs as the terminal step's side effect. Optional.
	OnComplete CompletionFunc

	// OnCancel runs when Retreat is called at the first step. Optional.
	OnCancel CancelFunc
}

// Sequencer is the orchestrator for one signup session. All exported
// methods are safe for concurrent use; side-effecting transitions are
// serialized by the loading flag (a second Advance returns ErrBusy rather
// than queueing).
type Sequencer struct {
	mu sync.Mutex

	flow       domain.Flow
	client     registration.Client
	logger     *slog.Logger
	metrics    *telemetry.Funnel
	onComplete CompletionFunc
	onCancel   CancelFunc

	form domain.FormState
	nav  domain.NavigationState

	// attempt tags the in-flight side effect. A jump or retreat issued
	// while a call is airborne replaces the tag, so the late result is
	// recognized as stale and discarded instead of committed.
	attempt uuid.UUID
}

// New creates a sequencer positioned at the first step with the role and
// country pre-seeded into the form state.
func New(cfg Config) *Sequencer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Sequencer{
		flow:       cfg.Flow,
		client:     cfg.Registration,
		logger:     logger.With("service", "sequencer"),
		metrics:    cfg.Metrics,
		onComplete: cfg.OnComplete,
		onCancel:   cfg.OnCancel,
		form: domain.FormState{
			Role:    cfg.Flow.Role,
			Country: cfg.Flow.Country,
		},
	}
}

// Restore replaces the form and navigation state, rehydrating a sequencer
// from a persisted session. The loading flag never survives persistence:
// in-flight operations belong to the process that started them.
func (s *Sequencer) Restore(form domain.FormState, nav domain.NavigationState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	nav.Loading = false
	if nav.ActiveStepIndex < 0 || nav.ActiveStepIndex >= s.flow.Len() {
		nav.ActiveStepIndex = 0
	}
	s.form = form.Clone()
	s.nav = nav
	s.attempt = uuid.Nil
}

// Snapshot returns copies of the current form and navigation state for the
// rendering layer.
func (s *Sequencer) Snapshot() (domain.FormState, domain.NavigationState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	nav := s.nav
	nav.Errors = s.nav.Errors.Clone()
	return s.form.Clone(), nav
}

// Flow returns the session's step list.
func (s *Sequencer) Flow() domain.Flow { return s.flow }

// UpdateForm shallow-merges a patch into the form state and clears any
// error entries whose keys appear in the patch.
func (s *Sequencer) UpdateForm(patch domain.Patch) {
	if len(patch) == 0 {
		return
	}

	keys := make([]string, 0, len(patch))
	for k := range patch {
		keys = append(keys, k)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.form = s.form.Apply(patch)
	s.nav = s.nav.ClearFieldErrors(keys)
}

// SetExperience replaces the work-experience entry at index i, or appends
// when i equals the current length. Returns the entry's index.
func (s *Sequencer) SetExperience(i int, exp domain.Experience) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case i >= 0 && i < len(s.form.Experience):
		s.form.Experience[i] = exp
		return i, nil
	case i == len(s.form.Experience):
		s.form.Experience = append(s.form.Experience, exp)
		return i, nil
	}
	return 0, domain.Invalid("sequencer.experience", "entry index out of range")
}

// RemoveExperience deletes the entry at index i.
func (s *Sequencer) RemoveExperience(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.form.Experience) {
		return domain.Invalid("sequencer.experience", "entry index out of range")
	}
	s.form.Experience = append(s.form.Experience[:i], s.form.Experience[i+1:]...)
	return nil
}

// SetEducation replaces the education entry at index i, or appends when i
// equals the current length. Returns the entry's index.
func (s *Sequencer) SetEducation(i int, edu domain.Education) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case i >= 0 && i < len(s.form.Education):
		s.form.Education[i] = edu
		return i, nil
	case i == len(s.form.Education):
		s.form.Education = append(s.form.Education, edu)
		return i, nil
	}
	return 0, domain.Invalid("sequencer.education", "entry index out of range")
}

// RemoveEducation deletes the entry at index i.
func (s *Sequencer) RemoveEducation(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.form.Education) {
		return domain.Invalid("sequencer.education", "entry index out of range")
	}
	s.form.Education = append(s.form.Education[:i], s.form.Education[i+1:]...)
	return nil
}

// SetOrganization stores the company/school details.
func (s *Sequencer) SetOrganization(org domain.Organization) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.form.Organization = org
}

// Advance attempts the forward transition out of the active step.
//
// Behavior by strategy: validating strategies run the step validator and
// block with field errors before anything else happens; the gate step then
// fires register/exchange (skipped when a token is already present); the
// last step fires the terminal completion effect and sets completed instead
// of incrementing. Side-effect failures land under the reserved "submit"
// error key with the index unchanged, so calling Advance again retries.
func (s *Sequencer) Advance(ctx context.Context) error {
	s.mu.Lock()
	if s.nav.Completed {
		s.mu.Unlock()
		return ErrCompleted
	}
	if s.nav.Loading {
		s.mu.Unlock()
		return ErrBusy
	}

	idx := s.nav.ActiveStepIndex
	step := s.flow.Step(idx)
	form := s.form.Clone()

	if step.Strategy != domain.StrategyTrustChildSave && step.Validate != nil {
		if errs := step.Validate(form); len(errs) > 0 {
			s.nav.Errors = errs
			s.mu.Unlock()
			s.metrics.StepBlocked(step.ID)
			return &domain.ValidationError{Op: "sequencer.advance", Fields: errs}
		}
	}

	atLast := idx == s.flow.Len()-1
	needsRegister := step.Strategy == domain.StrategyValidateAndRegister && !form.HasToken()

	if !needsRegister && !atLast {
		s.nav.ActiveStepIndex = idx + 1
		s.nav.Errors = nil
		s.mu.Unlock()
		s.metrics.StepAdvanced(step.ID)
		return nil
	}

	// Side-effecting path. The attempt tag identifies this operation; any
	// navigation issued while the calls are airborne replaces it, and the
	// late result is then discarded.
	attempt := uuid.New()
	s.attempt = attempt
	s.nav.Loading = true
	s.mu.Unlock()

	var (
		auth  *authOutcome
		opErr error
	)
	if needsRegister {
		auth, opErr = s.register(ctx, form)
	}
	if opErr == nil && atLast && s.onComplete != nil {
		completed := form
		if auth != nil {
			auth.applyTo(&completed)
		}
		start := time.Now()
		opErr = s.onComplete(ctx, completed)
		s.metrics.ObserveSideEffect("complete", start)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.attempt != attempt {
		s.logger.Debug("discarding stale side-effect result",
			"step", step.ID,
			"attempt", attempt)
		return nil
	}
	s.attempt = uuid.Nil
	s.nav.Loading = false

	if opErr != nil {
		s.nav.Errors = domain.FieldErrors{domain.SubmitErrorKey: domain.ErrorMessage(opErr)}
		return opErr
	}

	// Auth fields are merged onto the live form rather than replacing it,
	// so edits made while the calls were in flight survive.
	if auth != nil {
		auth.applyTo(&s.form)
	}
	s.nav.Errors = nil
	if atLast {
		s.nav.Completed = true
		s.metrics.Completed(string(s.form.Role), string(s.form.Country))
	} else {
		s.nav.ActiveStepIndex = idx + 1
		s.metrics.StepAdvanced(step.ID)
	}
	return nil
}

// Retreat moves one step back and clears errors. At the first step it
// invokes the cancellation callback instead of decrementing.
func (s *Sequencer) Retreat() error {
	s.mu.Lock()
	if s.nav.Loading {
		s.mu.Unlock()
		return ErrBusy
	}

	idx := s.nav.ActiveStepIndex
	if idx == 0 {
		s.nav.Errors = nil
		cancel := s.onCancel
		s.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		return nil
	}

	step := s.flow.Step(idx)
	s.nav.ActiveStepIndex = idx - 1
	s.nav.Errors = nil
	s.mu.Unlock()
	s.metrics.StepRetreated(step.ID)
	return nil
}

// JumpTo navigates directly to the named step without validation. Callers
// own the safety of the jump (it exists for "edit this step" links). A jump
// issued while a side effect is in flight supersedes it: the late result is
// discarded.
func (s *Sequencer) JumpTo(stepID string) error {
	idx := s.flow.IndexOf(stepID)
	if idx < 0 {
		return domain.Invalid("sequencer.jump", "unknown step id: "+stepID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.nav.Loading {
		s.logger.Debug("jump superseding in-flight operation", "step", stepID)
	}
	s.attempt = uuid.Nil
	s.nav.Loading = false
	s.nav.ActiveStepIndex = idx
	s.nav.Errors = nil
	return nil
}

// authOutcome carries the fields a successful gate step writes back into
// the form state.
type authOutcome struct {
	userID      string
	accessToken string
	authError   string
}

func (a *authOutcome) applyTo(form *domain.FormState) {
	if a.userID != "" {
		form.UserID = a.userID
	}
	if a.accessToken != "" {
		form.AccessToken = a.accessToken
	}
	form.AuthError = a.authError
}

// register runs the gate-step side effects: Register, then - only on
// success - ExchangeCredentials. The exchange's outcome never blocks the
// transition; its failure is recorded on the form for later diagnosis.
func (s *Sequencer) register(ctx context.Context, form domain.FormState) (*authOutcome, error) {
	params := s.buildRegisterParams(form)

	start := time.Now()
	res, err := s.client.Register(ctx, params)
	s.metrics.ObserveSideEffect("register", start)
	if err != nil {
		mapped := registerDomainError(err)
		s.metrics.RegisterFailed(domain.ErrorCode(mapped))
		s.logger.Error("registration failed", "error", err)
		return nil, mapped
	}
	s.metrics.Registered()

	out := &authOutcome{userID: res.UserID, accessToken: res.AccessToken}

	start = time.Now()
	exchange, err := s.client.ExchangeCredentials(ctx, form.Email, form.Password)
	s.metrics.ObserveSideEffect("exchange", start)
	if err != nil {
		// The account exists; the user can authenticate later.
		s.metrics.ExchangeFailure()
		s.logger.Warn("credential exchange failed after registration", "error", err)
		out.authError = err.Error()
		return out, nil
	}

	if exchange.HasToken() {
		out.accessToken = exchange.AccessToken
	}
	if out.userID == "" {
		out.userID = exchange.UserID
	}

	return out, nil
}

// registerDomainError translates registration sentinels into domain errors
// with user-facing messages.
func registerDomainError(err error) error {
	switch {
	case errors.Is(err, registration.ErrEmailTaken):
		return domain.WrapError(err, domain.ECONFLICT, "sequencer.register", "An account with this email already exists.")
	case errors.Is(err, registration.ErrUnavailable):
		return domain.WrapError(err, domain.EUNAVAILABLE, "sequencer.register", "Registration is temporarily unavailable. Please try again.")
	default:
		return domain.WrapError(err, domain.EINVALID, "sequencer.register", "Registration was rejected. Please review your details.")
	}
}

// buildRegisterParams normalizes the accumulated form into the
// registration wire payload: canonical date, extracted government id,
// alpha-3 country.
func (s *Sequencer) buildRegisterParams(form domain.FormState) registration.RegisterParams {
	dob := normalize.Date(form.DOB, form.Country)
	if dob == "" && form.DOB != "" {
		s.logger.Warn("date of birth did not normalize", "raw", form.DOB)
	}

	govID := normalize.GovID(form)
	if govID == "" {
		// Recoverable data-quality issue; some locales have no gated
		// document at all.
		s.logger.Warn("no government id extracted", "country", form.Country)
	}

	return registration.RegisterParams{
		Email:             form.Email,
		FirstName:         form.FirstName,
		LastName:          form.LastName,
		DOB:               dob,
		Password:          form.Password,
		ConfirmPassword:   form.ConfirmPassword,
		Role:              string(form.Role),
		GovID:             govID,
		Country:           normalize.CountryAlpha3(form.Country),
		Address:           form.Address,
		WorkAuthorization: form.WorkAuthorization,
	}
}
