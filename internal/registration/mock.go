package registration

import (
	"context"
	"sync"
)

// Mock is an in-memory Client for tests and local development. It records
// every call and returns the configured results.
type Mock struct {
	mu sync.Mutex

	RegisterResult *AuthResult
	RegisterErr    error
	ExchangeResult *AuthResult
	ExchangeErr    error

	RegisterCalls []RegisterParams
	ExchangeCalls []ExchangeCall
}

// ExchangeCall records one ExchangeCredentials invocation.
type ExchangeCall struct {
	Email    string
	Password string
}

// NewMock creates a mock that succeeds with the given user id and token.
func NewMock(userID, token string) *Mock {
	return &Mock{
		RegisterResult: &AuthResult{UserID: userID, AccessToken: token},
		ExchangeResult: &AuthResult{UserID: userID, AccessToken: token},
	}
}

func (m *Mock) Register(ctx context.Context, params RegisterParams) (*AuthResult, error) {
	m.mu.Lock()
	m.RegisterCalls = append(m.RegisterCalls, params)
	m.mu.Unlock()

	if m.RegisterErr != nil {
		return nil, m.RegisterErr
	}
	return m.RegisterResult, nil
}

func (m *Mock) ExchangeCredentials(ctx context.Context, email, password string) (*AuthResult, error) {
	m.mu.Lock()
	m.ExchangeCalls = append(m.ExchangeCalls, ExchangeCall{Email: email, Password: password})
	m.mu.Unlock()

	if m.ExchangeErr != nil {
		return nil, m.ExchangeErr
	}
	return m.ExchangeResult, nil
}

// RegisterCount returns how many times Register was invoked.
func (m *Mock) RegisterCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.RegisterCalls)
}

// ExchangeCount returns how many times ExchangeCredentials was invoked.
func (m *Mock) ExchangeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ExchangeCalls)
}
