// Package token implements the in-memory session table behind
// model.SessionStore. Tokens are opaque 256-bit hex strings; sessions
// expire a fixed number of hours after creation and are evicted lazily
// on lookup and opportunistically on creation.
package token

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/parakeep/parakeep-server/internal/logger"
	"github.com/parakeep/parakeep-server/internal/model"
)

const tokenBytes = 32 // 256-bit tokens

var _ model.SessionStore = (*Manager)(nil)

type session struct {
	username  string
	createdAt time.Time
	lastUsed  time.Time
}

// Manager owns the token table. Sessions live only in process memory;
// a restart logs every user out.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]session
	expiry   time.Duration
	logger   *logger.Logger
	now      func() time.Time
}

// NewManager creates a session manager whose tokens expire expireHours
// after creation.
func NewManager(expireHours int, logger *logger.Logger) *Manager {
	return &Manager{
		sessions: make(map[string]session),
		expiry:   time.Duration(expireHours) * time.Hour,
		logger:   logger,
		now:      time.Now,
	}
}

// Expiry returns the configured session lifetime.
func (m *Manager) Expiry() time.Duration {
	return m.expiry
}

// Create issues a new token for username. Expired sessions are swept on
// every creation so the table cannot grow without bound on a write-only
// workload.
func (m *Manager) Create(ctx context.Context, username string) (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	token := hex.EncodeToString(buf)

	now := m.now()

	m.mu.Lock()
	m.sessions[token] = session{username: username, createdAt: now, lastUsed: now}
	swept := m.sweepLocked(now)
	m.mu.Unlock()

	if swept > 0 {
		m.logger.Info("swept expired sessions", "count", swept)
	}
	m.logger.Info("created session token", "username", username)

	return token, nil
}

// Validate resolves token to its username. An expired session is
// evicted and reported as invalid. On success the session's last-used
// timestamp is advanced.
func (m *Manager) Validate(ctx context.Context, token string) (string, bool) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[token]
	if !ok {
		return "", false
	}

	if m.expired(s, now) {
		delete(m.sessions, token)
		return "", false
	}

	s.lastUsed = now
	m.sessions[token] = s

	return s.username, true
}

// Revoke removes a single token, reporting whether it existed.
func (m *Manager) Revoke(ctx context.Context, token string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[token]
	if !ok {
		return false
	}
	delete(m.sessions, token)
	m.logger.Info("revoked session token", "username", s.username)

	return true
}

// RevokeAllForUser removes every token issued for username and returns
// the number removed.
func (m *Manager) RevokeAllForUser(ctx context.Context, username string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for token, s := range m.sessions {
		if s.username == username {
			delete(m.sessions, token)
			count++
		}
	}

	if count > 0 {
		m.logger.Info("revoked all sessions for user", "username", username, "count", count)
	}

	return count
}

// SweepExpired removes every expired token and returns the number removed.
func (m *Manager) SweepExpired(ctx context.Context) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.sweepLocked(m.now())
}

// ActiveSessionCount counts non-expired tokens. Diagnostic only.
func (m *Manager) ActiveSessionCount(ctx context.Context) int {
	now := m.now()

	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, s := range m.sessions {
		if !m.expired(s, now) {
			count++
		}
	}

	return count
}

// expired reports whether s has outlived the configured expiry. A
// session without a creation timestamp is always expired.
func (m *Manager) expired(s session, now time.Time) bool {
	if s.createdAt.IsZero() {
		return true
	}
	return now.Sub(s.createdAt) > m.expiry
}

func (m *Manager) sweepLocked(now time.Time) int {
	count := 0
	for token, s := range m.sessions {
		if m.expired(s, now) {
			delete(m.sessions, token)
			count++
		}
	}

	return count
}
