// Package events publishes signup lifecycle events to NATS JetStream.
// Downstream consumers (CRM sync, analytics) subscribe to the signup.>
// subjects; this service only produces.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/verihire/onboard/internal/domain"
)

// Subjects for signup lifecycle events.
const (
	SubjectStarted    = "signup.started"
	SubjectRegistered = "signup.registered"
	SubjectCompleted  = "signup.completed"
)

// StreamName is the JetStream stream holding signup events.
const StreamName = "SIGNUP"

// Envelope is the wire format shared by all signup events.
type Envelope struct {
	SessionID  uuid.UUID      `json:"session_id"`
	Role       domain.Role    `json:"role"`
	Country    domain.Country `json:"country"`
	UserID     string         `json:"user_id,omitempty"`
	Email      string         `json:"email,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Publisher emits signup lifecycle events. Implementations must be safe
// for concurrent use.
type Publisher interface {
	SignupStarted(ctx context.Context, env Envelope) error
	SignupRegistered(ctx context.Context, env Envelope) error
	SignupCompleted(ctx context.Context, env Envelope) error
	Close()
}

// NopPublisher discards all events. Used when the event bus is not
// configured.
type NopPublisher struct{}

func (NopPublisher) SignupStarted(context.Context, Envelope) error    { return nil }
func (NopPublisher) SignupRegistered(context.Context, Envelope) error { return nil }
func (NopPublisher) SignupCompleted(context.Context, Envelope) error  { return nil }
func (NopPublisher) Close()                                           {}
