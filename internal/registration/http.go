package registration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const defaultTimeout = 15 * time.Second

// HTTPClient talks to the registration backend over JSON HTTP.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTPClient creates a client for the given base URL.
func NewHTTPClient(baseURL string, logger *slog.Logger) *HTTPClient {
	if logger == nil {
		logger = slog.Default()
	}

	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logger.With("client", "registration"),
	}
}

// Register creates the account via POST /register.
func (c *HTTPClient) Register(ctx context.Context, params RegisterParams) (*AuthResult, error) {
	body, status, err := c.post(ctx, "/register", params)
	if err != nil {
		return nil, &ClientError{Op: "register", Message: err.Error(), Err: ErrUnavailable}
	}

	if status >= 400 {
		return nil, registerError(status, body)
	}

	result := parseAuthResponse(body)
	c.logger.Info("registration succeeded",
		"user_id", result.UserID,
		"token_present", result.HasToken())

	return result, nil
}

// ExchangeCredentials trades email/password for an access token via
// POST /login.
func (c *HTTPClient) ExchangeCredentials(ctx context.Context, email, password string) (*AuthResult, error) {
	payload := map[string]string{"email": email, "password": password}

	body, status, err := c.post(ctx, "/login", payload)
	if err != nil {
		return nil, &ClientError{Op: "exchange", Message: err.Error(), Err: ErrUnavailable}
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return nil, &ClientError{Op: "exchange", StatusCode: status, Message: backendMessage(body), Err: ErrUnauthorized}
	case status >= 500:
		return nil, &ClientError{Op: "exchange", StatusCode: status, Message: backendMessage(body), Err: ErrUnavailable}
	case status >= 400:
		return nil, &ClientError{Op: "exchange", StatusCode: status, Message: backendMessage(body), Err: ErrRejected}
	}

	result := parseAuthResponse(body)
	if !result.HasToken() {
		c.logger.Warn("login response carried no recognizable token")
	}

	return result, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, payload any) ([]byte, int, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, 0, fmt.Errorf("read response: %w", err)
	}

	return body, resp.StatusCode, nil
}

func registerError(status int, body []byte) error {
	msg := backendMessage(body)
	switch {
	case status == http.StatusConflict:
		return &ClientError{Op: "register", StatusCode: status, Message: msg, Err: ErrEmailTaken}
	case status >= 500:
		return &ClientError{Op: "register", StatusCode: status, Message: msg, Err: ErrUnavailable}
	default:
		// Some deployments signal duplicate email as a 400 with a message
		// instead of a 409.
		if strings.Contains(strings.ToLower(msg), "already") {
			return &ClientError{Op: "register", StatusCode: status, Message: msg, Err: ErrEmailTaken}
		}
		return &ClientError{Op: "register", StatusCode: status, Message: msg, Err: ErrRejected}
	}
}

// backendMessage pulls a human-readable message out of an error body.
func backendMessage(body []byte) string {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return strings.TrimSpace(string(body))
	}
	for _, key := range []string{"message", "error", "detail"} {
		if s, ok := payload[key].(string); ok && s != "" {
			return s
		}
	}
	return strings.TrimSpace(string(body))
}

// Token and user-id spellings seen across backend versions, probed in
// order at the top level and then one level down under the nested keys.
var (
	tokenKeys  = []string{"access", "access_token", "token"}
	userIDKeys = []string{"userId", "user_id", "id"}
	nestedKeys = []string{"data", "user_data", "user"}
)

// parseAuthResponse folds a raw success body into the canonical AuthResult.
// Missing fields stay zero; the caller decides what is fatal.
func parseAuthResponse(body []byte) *AuthResult {
	result := &AuthResult{Raw: json.RawMessage(body)}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return result
	}

	result.AccessToken = firstString(payload, tokenKeys)
	result.UserID = firstString(payload, userIDKeys)

	for _, nk := range nestedKeys {
		if result.AccessToken != "" && result.UserID != "" {
			break
		}
		nested, ok := payload[nk].(map[string]any)
		if !ok {
			continue
		}
		if result.AccessToken == "" {
			result.AccessToken = firstString(nested, tokenKeys)
		}
		if result.UserID == "" {
			result.UserID = firstString(nested, userIDKeys)
		}
	}

	// The token itself is the last source of truth for identity and
	// expiry. Signature verification belongs to the backend; this is a
	// claims read, not an authentication decision.
	if result.AccessToken != "" {
		if claims := parseClaims(result.AccessToken); claims != nil {
			if result.UserID == "" {
				if sub, err := claims.GetSubject(); err == nil {
					result.UserID = sub
				}
			}
			if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
				result.TokenExpiry = exp.Time
			}
		}
	}

	return result
}

func firstString(m map[string]any, keys []string) string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			// Numeric ids arrive as JSON numbers.
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

func parseClaims(token string) jwt.MapClaims {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil
	}
	return claims
}
