// Package password implements credential hashing and strength validation.
package password

import (
	"fmt"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

// Manager hashes and verifies passwords and enforces the configured
// length bounds.
type Manager struct {
	minLength int
	maxLength int
}

// NewManager creates a password manager with the given length bounds.
func NewManager(minLength, maxLength int) *Manager {
	return &Manager{minLength: minLength, maxLength: maxLength}
}

// Hash returns a salted bcrypt hash of password. Two calls with the same
// password produce different hashes; both verify.
func (m *Manager) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// Verify reports whether password matches hash. A malformed hash is a
// mismatch, never an error.
func (m *Manager) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ValidateStrength checks password against the configured bounds and
// returns the first violated constraint's message. Bounds count
// characters, not bytes.
func (m *Manager) ValidateStrength(password string) (bool, string) {
	if n := utf8.RuneCountInString(password); n < m.minLength {
		return false, fmt.Sprintf("password must be at least %d characters", m.minLength)
	} else if n > m.maxLength {
		return false, fmt.Sprintf("password must not exceed %d characters", m.maxLength)
	}

	// Character-class rules (digits, symbols) would slot in here.

	return true, ""
}
