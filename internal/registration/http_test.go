package registration

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(handler http.HandlerFunc) (*HTTPClient, *httptest.Server) {
	srv := httptest.NewServer(handler)
	return NewHTTPClient(srv.URL, nil), srv
}

func TestRegister_Success(t *testing.T) {
	var gotBody map[string]any
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/register" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"userId":       "u-123",
			"access_token": "tok-abc",
		})
	})
	defer srv.Close()

	result, err := client.Register(context.Background(), RegisterParams{
		Email:     "jane@example.com",
		FirstName: "Jane",
		LastName:  "Doe",
		DOB:       "2020-02-13",
		Role:      "techie",
		GovID:     "6789",
		Country:   "USA",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if result.UserID != "u-123" {
		t.Errorf("UserID = %q, want u-123", result.UserID)
	}
	if result.AccessToken != "tok-abc" {
		t.Errorf("AccessToken = %q, want tok-abc", result.AccessToken)
	}
	if gotBody["gov_id"] != "6789" || gotBody["country"] != "USA" {
		t.Errorf("wire payload missing normalized fields: %v", gotBody)
	}
}

func TestRegister_EmailTaken(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{"message": "email already registered"})
	})
	defer srv.Close()

	_, err := client.Register(context.Background(), RegisterParams{Email: "dup@example.com"})
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	var ce *ClientError
	if !errors.As(err, &ce) || ce.StatusCode != http.StatusConflict {
		t.Errorf("expected ClientError with 409, got %v", err)
	}
}

func TestRegister_DuplicateAs400(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "account already exists"})
	})
	defer srv.Close()

	_, err := client.Register(context.Background(), RegisterParams{})
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken for 400 duplicate message, got %v", err)
	}
}

func TestRegister_ServerError(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	defer srv.Close()

	_, err := client.Register(context.Background(), RegisterParams{})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestRegister_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	client := NewHTTPClient(srv.URL, nil)
	_, err := client.Register(context.Background(), RegisterParams{})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestExchangeCredentials_BadPassword(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"message": "invalid credentials"})
	})
	defer srv.Close()

	_, err := client.ExchangeCredentials(context.Background(), "jane@example.com", "wrong")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestParseAuthResponse_TokenSpellings(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"top-level access", `{"access":"t1"}`, "t1"},
		{"top-level access_token", `{"access_token":"t2"}`, "t2"},
		{"top-level token", `{"token":"t3"}`, "t3"},
		{"nested data", `{"data":{"access_token":"t4"}}`, "t4"},
		{"nested user_data", `{"user_data":{"token":"t5"}}`, "t5"},
		{"no token", `{"status":"ok"}`, ""},
		{"not json", `gateway timeout`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseAuthResponse([]byte(tt.body))
			if result.AccessToken != tt.want {
				t.Errorf("AccessToken = %q, want %q", result.AccessToken, tt.want)
			}
		})
	}
}

func TestParseAuthResponse_UserIDSpellings(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"camel", `{"userId":"u1"}`, "u1"},
		{"snake", `{"user_id":"u2"}`, "u2"},
		{"plain id", `{"id":"u3"}`, "u3"},
		{"numeric id", `{"id":42}`, "42"},
		{"nested user", `{"user":{"user_id":"u4"}}`, "u4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseAuthResponse([]byte(tt.body))
			if result.UserID != tt.want {
				t.Errorf("UserID = %q, want %q", result.UserID, tt.want)
			}
		})
	}
}

func TestParseAuthResponse_JWTClaims(t *testing.T) {
	// Unsigned JWT with sub and exp claims; header {"alg":"none","typ":"JWT"},
	// payload {"sub":"u-77","exp":4102444800}.
	token := "eyJhbGciOiJub25lIiwidHlwIjoiSldUIn0." +
		"eyJzdWIiOiJ1LTc3IiwiZXhwIjo0MTAyNDQ0ODAwfQ."

	body, _ := json.Marshal(map[string]string{"access_token": token})
	result := parseAuthResponse(body)

	if result.UserID != "u-77" {
		t.Errorf("UserID from claims = %q, want u-77", result.UserID)
	}
	if result.TokenExpiry.IsZero() {
		t.Error("expected TokenExpiry from exp claim")
	}
}
