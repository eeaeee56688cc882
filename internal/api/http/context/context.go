// Package context moves the authenticated username in and out of
// request contexts.
package context

import (
	"context"

	"github.com/parakeep/parakeep-server/internal/model"
)

type contextKey string

const usernameKey contextKey = "username"

// Manager implements the context manager over a private typed key, so
// no other package can collide with or spoof the stored username.
type Manager struct{}

var _ model.ContextManager = (*Manager)(nil)

// NewManager creates a new context manager instance.
func NewManager() *Manager {
	return &Manager{}
}

// SetUsernameToContext returns a child context carrying username.
func (m *Manager) SetUsernameToContext(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, usernameKey, username)
}

// GetUsernameFromContext retrieves the username stored by
// SetUsernameToContext. The boolean is false when no username is set.
func (m *Manager) GetUsernameFromContext(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(usernameKey).(string)
	if !ok || username == "" {
		return "", false
	}
	return username, true
}
