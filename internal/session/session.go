// Package session persists signup sessions between requests. A Record is
// the serializable projection of one sequencer: its form state, its
// navigation state, and timestamps. Stores hold records for the signup TTL;
// abandoned sessions expire without ceremony.
package session

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/verihire/onboard/internal/domain"
)

// DefaultTTL is how long an idle signup session survives. Every write
// refreshes it.
const DefaultTTL = 24 * time.Hour

// Record is one signup session at rest.
type Record struct {
	ID      uuid.UUID `json:"id"`
	Role    domain.Role    `json:"role"`
	Country domain.Country `json:"country"`

	Form domain.FormState       `json:"form"`
	Nav  domain.NavigationState `json:"nav"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewRecord creates a fresh record for a role/country pair.
func NewRecord(role domain.Role, country domain.Country) *Record {
	now := time.Now().UTC()
	return &Record{
		ID:      uuid.New(),
		Role:    role,
		Country: country,
		Form: domain.FormState{
			Role:    role,
			Country: country,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Store persists signup sessions. Implementations must be safe for
// concurrent use. Get returns a domain ENOTFOUND error for unknown or
// expired ids.
type Store interface {
	// Put stores or replaces the record and refreshes its TTL.
	Put(ctx context.Context, rec *Record) error

	// Get returns a copy of the record.
	Get(ctx context.Context, id uuid.UUID) (*Record, error)

	// Delete removes the record. Deleting an absent id is not an error.
	Delete(ctx context.Context, id uuid.UUID) error
}

func notFound(id uuid.UUID) error {
	return domain.NotFound("session.get", "signup session", id.String())
}
