// Package postgres persists completed signups. The vault is write-mostly:
// a record lands when a session's terminal step succeeds and is read back
// through the record endpoint once the live session is gone. Access tokens
// are never stored in the clear; a bcrypt digest is kept so support can
// confirm a token a user presents without the vault being a token source.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/verihire/onboard/internal/domain"
)

// tokenDigestCost is deliberately below the interactive-login cost. The
// digest is an audit artifact, not an authentication credential.
const tokenDigestCost = 8

// SignupRecord is one completed signup at rest.
type SignupRecord struct {
	ID          uuid.UUID
	SessionID   uuid.UUID
	UserID      string
	Email       string
	Role        domain.Role
	Country     domain.Country
	TokenDigest string
	Profile     []byte
	CompletedAt time.Time
}

// Vault stores completed signups in PostgreSQL.
type Vault struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewVault wraps an existing pool. The pool lifecycle is managed by the
// caller.
func NewVault(pool *pgxpool.Pool, logger *slog.Logger) *Vault {
	if logger == nil {
		logger = slog.Default()
	}
	return &Vault{
		pool:   pool,
		logger: logger.With("service", "vault"),
	}
}

// StoreCompleted writes the signup record for a finished session. The
// profile is the full form state minus credentials; the access token is
// reduced to its bcrypt digest before anything touches the database.
func (v *Vault) StoreCompleted(ctx context.Context, sessionID uuid.UUID, form domain.FormState) error {
	digest := ""
	if form.HasToken() {
		b, err := bcrypt.GenerateFromPassword([]byte(form.AccessToken), tokenDigestCost)
		if err != nil {
			return domain.Internal(err, "vault.store", "could not digest access token")
		}
		digest = string(b)
	}

	profile := form
	profile.Password = ""
	profile.ConfirmPassword = ""
	profile.AccessToken = ""
	data, err := json.Marshal(profile)
	if err != nil {
		return domain.Internal(err, "vault.store", "could not encode signup profile")
	}

	const q = `
		INSERT INTO completed_signups
			(id, session_id, user_id, email, role, country, token_digest, profile, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (session_id) DO NOTHING`

	tag, err := v.pool.Exec(ctx, q,
		uuid.New(),
		sessionID,
		form.UserID,
		form.Email,
		string(form.Role),
		string(form.Country),
		digest,
		data,
		time.Now().UTC(),
	)
	if err != nil {
		return domain.Internal(err, "vault.store", "could not store signup record")
	}
	if tag.RowsAffected() == 0 {
		// Retried terminal step; the first write won.
		v.logger.Info("signup record already stored", "session_id", sessionID)
	}
	return nil
}

// GetBySession returns the record for a session id.
func (v *Vault) GetBySession(ctx context.Context, sessionID uuid.UUID) (*SignupRecord, error) {
	const q = `
		SELECT id, session_id, user_id, email, role, country, token_digest, profile, completed_at
		FROM completed_signups
		WHERE session_id = $1`

	var rec SignupRecord
	err := v.pool.QueryRow(ctx, q, sessionID).Scan(
		&rec.ID,
		&rec.SessionID,
		&rec.UserID,
		&rec.Email,
		&rec.Role,
		&rec.Country,
		&rec.TokenDigest,
		&rec.Profile,
		&rec.CompletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NotFound("vault.get", "signup record", sessionID.String())
	}
	if err != nil {
		return nil, domain.Internal(err, "vault.get", "could not load signup record")
	}
	return &rec, nil
}
