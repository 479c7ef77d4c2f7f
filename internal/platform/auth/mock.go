package auth

import "context"

// MockVerifier resolves bearer tokens from a fixed table. Handler tests use one
// token per user so two partners can act in the same test.
type MockVerifier struct {
	Users map[string]*User
	Error error
}

// NewMockVerifier maps each user to the token "token-<UID>".
func NewMockVerifier(users ...*User) *MockVerifier {
	m := &MockVerifier{Users: make(map[string]*User, len(users))}
	for _, u := range users {
		m.Users[TokenFor(u.UID)] = u
	}
	return m
}

// TokenFor returns the bearer token NewMockVerifier assigns to uid.
func TokenFor(uid string) string {
	return "token-" + uid
}

// Verify returns the user registered for token.
func (m *MockVerifier) Verify(_ context.Context, token string) (*User, error) {
	if m.Error != nil {
		return nil, m.Error
	}
	u, ok := m.Users[token]
	if !ok {
		return nil, ErrInvalidToken
	}
	return u, nil
}

var _ Verifier = (*MockVerifier)(nil)
