package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/verihire/onboard/internal/domain"
	"github.com/verihire/onboard/internal/onboarding"
	"github.com/verihire/onboard/internal/postgres"
	"github.com/verihire/onboard/internal/router"
	"github.com/verihire/onboard/internal/session"
)

// maxRequestBody bounds signup request bodies. Form patches are small.
const maxRequestBody = 256 << 10

// RecordStore reads back completed signups. Implemented by the postgres
// vault; a nil store leaves the record endpoint answering 502.
type RecordStore interface {
	GetBySession(ctx context.Context, sessionID uuid.UUID) (*postgres.SignupRecord, error)
}

// SignupHandler serves the signup session API.
type SignupHandler struct {
	service *onboarding.Service
	records RecordStore
	logger  *slog.Logger
}

// NewSignupHandler creates the handler. records may be nil.
func NewSignupHandler(service *onboarding.Service, records RecordStore, logger *slog.Logger) *SignupHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SignupHandler{
		service: service,
		records: records,
		logger:  logger.With("handler", "signup"),
	}
}

// Register mounts the signup routes. advanceMiddleware wraps only the
// advance route, which is the one that can reach the registration backend.
func (h *SignupHandler) Register(r *router.Router, advanceMiddleware ...router.Middleware) {
	r.Post("/signup/sessions", h.Start)
	r.Get("/signup/sessions/{id}", h.Get)
	r.Patch("/signup/sessions/{id}/form", h.UpdateForm)
	r.Post("/signup/sessions/{id}/advance", h.Advance, advanceMiddleware...)
	r.Post("/signup/sessions/{id}/retreat", h.Retreat)
	r.Post("/signup/sessions/{id}/jump", h.Jump)
	r.Put("/signup/sessions/{id}/experience/{index}", h.SetExperience)
	r.Delete("/signup/sessions/{id}/experience/{index}", h.RemoveExperience)
	r.Put("/signup/sessions/{id}/education/{index}", h.SetEducation)
	r.Delete("/signup/sessions/{id}/education/{index}", h.RemoveEducation)
	r.Put("/signup/sessions/{id}/organization", h.SetOrganization)
	r.Get("/signup/sessions/{id}/record", h.GetRecord)
}

// sessionResponse is the wire shape of one signup session. The form's
// credential fields never leave the server.
type sessionResponse struct {
	ID      uuid.UUID      `json:"id"`
	Role    domain.Role    `json:"role"`
	Country domain.Country `json:"country"`

	Steps []stepResponse         `json:"steps"`
	Form  domain.FormState       `json:"form"`
	Nav   domain.NavigationState `json:"nav"`
}

type stepResponse struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

func (h *SignupHandler) respondSession(w http.ResponseWriter, r *http.Request, rec *session.Record, status int) {
	steps, err := h.service.Steps(rec)
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}

	resp := sessionResponse{
		ID:      rec.ID,
		Role:    rec.Role,
		Country: rec.Country,
		Form:    sanitizeForm(rec.Form),
		Nav:     rec.Nav,
	}
	for _, s := range steps {
		resp.Steps = append(resp.Steps, stepResponse{ID: s.ID, Label: s.Label})
	}

	writeJSON(w, status, resp)
}

// sanitizeForm strips secrets before the form goes on the wire.
func sanitizeForm(form domain.FormState) domain.FormState {
	out := form.Clone()
	out.Password = ""
	out.ConfirmPassword = ""
	out.AccessToken = ""
	return out
}

// Start handles POST /signup/sessions.
func (h *SignupHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Role    string `json:"role"`
		Country string `json:"country"`
	}
	if err := decodeBody(r, &req); err != nil {
		ErrorResponse(w, r, err)
		return
	}

	role, err := domain.ParseRole(req.Role)
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}

	rec, err := h.service.Start(r.Context(), role, domain.NormalizeCountry(req.Country))
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}

	h.respondSession(w, r, rec, http.StatusCreated)
}

// Get handles GET /signup/sessions/{id}.
func (h *SignupHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}

	rec, err := h.service.Get(r.Context(), id)
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}

	h.respondSession(w, r, rec, http.StatusOK)
}

// UpdateForm handles PATCH /signup/sessions/{id}/form.
func (h *SignupHandler) UpdateForm(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}

	var patch domain.Patch
	if err := decodeBody(r, &patch); err != nil {
		ErrorResponse(w, r, err)
		return
	}

	rec, err := h.service.UpdateForm(r.Context(), id, patch)
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}

	h.respondSession(w, r, rec, http.StatusOK)
}

// Advance handles POST /signup/sessions/{id}/advance. A transition blocked
// by validation returns 422 with the field errors; the session state is
// still updated.
func (h *SignupHandler) Advance(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}

	rec, err := h.service.Advance(r.Context(), id)
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}

	h.respondSession(w, r, rec, http.StatusOK)
}

// Retreat handles POST /signup/sessions/{id}/retreat. Retreating from the
// first step cancels the session and returns 204.
func (h *SignupHandler) Retreat(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}

	rec, err := h.service.Retreat(r.Context(), id)
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}
	if rec == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	h.respondSession(w, r, rec, http.StatusOK)
}

// Jump handles POST /signup/sessions/{id}/jump.
func (h *SignupHandler) Jump(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}

	var req struct {
		Step string `json:"step"`
	}
	if err := decodeBody(r, &req); err != nil {
		ErrorResponse(w, r, err)
		return
	}

	rec, err := h.service.JumpTo(r.Context(), id, req.Step)
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}

	h.respondSession(w, r, rec, http.StatusOK)
}

// SetExperience handles PUT /signup/sessions/{id}/experience/{index}.
func (h *SignupHandler) SetExperience(w http.ResponseWriter, r *http.Request) {
	id, index, err := sessionIDAndIndex(r)
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}

	var exp domain.Experience
	if err := decodeBody(r, &exp); err != nil {
		ErrorResponse(w, r, err)
		return
	}

	rec, err := h.service.Get(r.Context(), id)
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}

	if errs := validateExperience(rec, exp); len(errs) > 0 {
		ValidationErrorResponse(w, r, errs)
		return
	}

	rec, err = h.service.SetExperience(r.Context(), id, index, exp)
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}

	h.respondSession(w, r, rec, http.StatusOK)
}

// RemoveExperience handles DELETE /signup/sessions/{id}/experience/{index}.
func (h *SignupHandler) RemoveExperience(w http.ResponseWriter, r *http.Request) {
	id, index, err := sessionIDAndIndex(r)
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}

	rec, err := h.service.RemoveExperience(r.Context(), id, index)
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}

	h.respondSession(w, r, rec, http.StatusOK)
}

// SetEducation handles PUT /signup/sessions/{id}/education/{index}.
func (h *SignupHandler) SetEducation(w http.ResponseWriter, r *http.Request) {
	id, index, err := sessionIDAndIndex(r)
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}

	var edu domain.Education
	if err := decodeBody(r, &edu); err != nil {
		ErrorResponse(w, r, err)
		return
	}

	if errs := validateEducation(edu); len(errs) > 0 {
		ValidationErrorResponse(w, r, errs)
		return
	}

	rec, err := h.service.SetEducation(r.Context(), id, index, edu)
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}

	h.respondSession(w, r, rec, http.StatusOK)
}

// RemoveEducation handles DELETE /signup/sessions/{id}/education/{index}.
func (h *SignupHandler) RemoveEducation(w http.ResponseWriter, r *http.Request) {
	id, index, err := sessionIDAndIndex(r)
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}

	rec, err := h.service.RemoveEducation(r.Context(), id, index)
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}

	h.respondSession(w, r, rec, http.StatusOK)
}

// SetOrganization handles PUT /signup/sessions/{id}/organization.
func (h *SignupHandler) SetOrganization(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}

	var org domain.Organization
	if err := decodeBody(r, &org); err != nil {
		ErrorResponse(w, r, err)
		return
	}

	if errs := validateOrganization(org); len(errs) > 0 {
		ValidationErrorResponse(w, r, errs)
		return
	}

	rec, err := h.service.SetOrganization(r.Context(), id, org)
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}

	h.respondSession(w, r, rec, http.StatusOK)
}

// recordResponse is the wire shape of a completed signup. The token
// digest stays server-side.
type recordResponse struct {
	SessionID   uuid.UUID       `json:"session_id"`
	UserID      string          `json:"user_id"`
	Email       string          `json:"email"`
	Role        domain.Role     `json:"role"`
	Country     domain.Country  `json:"country"`
	Profile     json.RawMessage `json:"profile"`
	CompletedAt time.Time       `json:"completed_at"`
}

// GetRecord handles GET /signup/sessions/{id}/record: the completed
// signup as stored in the vault, for page loads after the session itself
// has expired.
func (h *SignupHandler) GetRecord(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}

	if h.records == nil {
		ErrorResponse(w, r, domain.Errorf(domain.EUNAVAILABLE, "handler.record", "Signup records are not available"))
		return
	}

	rec, err := h.records.GetBySession(r.Context(), id)
	if err != nil {
		// An open session has no vault record yet. Tell the client the
		// signup is still in progress instead of a bare not-found.
		if domain.IsCode(err, domain.ENOTFOUND) {
			if _, liveErr := h.service.Get(r.Context(), id); liveErr == nil {
				ErrorResponse(w, r, domain.Conflict("handler.record", "signup is not completed yet"))
				return
			}
		}
		ErrorResponse(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, recordResponse{
		SessionID:   rec.SessionID,
		UserID:      rec.UserID,
		Email:       rec.Email,
		Role:        rec.Role,
		Country:     rec.Country,
		Profile:     rec.Profile,
		CompletedAt: rec.CompletedAt,
	})
}

func sessionID(r *http.Request) (uuid.UUID, error) {
	raw := r.PathValue("id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, domain.Invalid("handler.session_id", "invalid session id")
	}
	return id, nil
}

func sessionIDAndIndex(r *http.Request) (uuid.UUID, int, error) {
	id, err := sessionID(r)
	if err != nil {
		return uuid.Nil, 0, err
	}
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil || index < 0 {
		return uuid.Nil, 0, domain.Invalid("handler.entry_index", "invalid entry index")
	}
	return id, index, nil
}

func decodeBody(r *http.Request, v any) error {
	defer io.Copy(io.Discard, r.Body)

	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.Invalid("handler.decode", "request body is required")
		}
		return domain.Invalid("handler.decode", "request body is not valid JSON")
	}
	return nil
}
