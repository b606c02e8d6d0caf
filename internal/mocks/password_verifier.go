package mocks

import (
	"sync"

	"github.com/phrazzld/taskflow-api/internal/service/auth"
)

// MockPasswordVerifier implements auth.PasswordVerifier for testing. Without
// CompareFn it accepts exactly the passwords in Valid, keyed by hash.
type MockPasswordVerifier struct {
	CompareFn func(hashedPassword, password string) error
	Valid     map[string]string

	mu    sync.Mutex
	calls int
}

var _ auth.PasswordVerifier = (*MockPasswordVerifier)(nil)

// Compare implements auth.PasswordVerifier.
func (m *MockPasswordVerifier) Compare(hashedPassword, password string) error {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.CompareFn != nil {
		return m.CompareFn(hashedPassword, password)
	}
	if hashedPassword != "" && m.Valid[hashedPassword] == password {
		return nil
	}
	return auth.ErrPasswordMismatch
}

// Calls reports how many comparisons were made, including those for
// unknown users.
func (m *MockPasswordVerifier) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
