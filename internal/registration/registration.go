// Package registration wraps the two network operations the signup
// sequencer depends on: creating the account and exchanging the same
// credentials for an access token. The backend's response shapes vary
// by deployment; this package normalizes them into one AuthResult at the
// boundary so nothing downstream probes raw JSON.
package registration

import (
	"context"
	"encoding/json"
	"time"
)

// Client is the registration backend boundary. Implementations are
// single-shot per invocation (no internal retry) and must not be called
// concurrently with themselves; the sequencer serializes calls behind its
// loading flag.
type Client interface {
	// Register creates the account. Called at most once per session while
	// no access token is present in the form state.
	Register(ctx context.Context, params RegisterParams) (*AuthResult, error)

	// ExchangeCredentials trades the registered email/password for an
	// access token. Runs only after a successful Register; its failure is
	// non-fatal to the signup flow.
	ExchangeCredentials(ctx context.Context, email, password string) (*AuthResult, error)
}

// RegisterParams is the registration wire payload. Dates are canonical
// YYYY-MM-DD and the country is the alpha-3 form; the sequencer runs the
// normalizers before building this.
type RegisterParams struct {
	Email             string `json:"email"`
	FirstName         string `json:"first_name"`
	LastName          string `json:"last_name"`
	DOB               string `json:"dob"`
	Password          string `json:"password"`
	ConfirmPassword   string `json:"confirm_password"`
	Role              string `json:"role"`
	GovID             string `json:"gov_id,omitempty"`
	Country           string `json:"country"`
	Address           string `json:"address,omitempty"`
	WorkAuthorization string `json:"work_authorization,omitempty"`
}

// AuthResult is the canonical outcome of either operation. The HTTP
// implementation folds every known token spelling (access, access_token,
// token, nested data / user_data) into AccessToken here.
type AuthResult struct {
	UserID      string
	AccessToken string
	TokenExpiry time.Time
	Raw         json.RawMessage
}

// HasToken reports whether the backend returned a usable access token.
func (r *AuthResult) HasToken() bool {
	return r != nil && r.AccessToken != ""
}
