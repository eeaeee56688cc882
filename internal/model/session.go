package model

import "context"

// SessionStore manages opaque bearer tokens. The default implementation
// keeps sessions in process memory; the interface exists so a shared store
// can replace it without touching callers.
type SessionStore interface {
	// Create issues a new token for username.
	Create(ctx context.Context, username string) (string, error)
	// Validate resolves a token to its username, evicting it if expired.
	// A successful validation refreshes the session's last-used timestamp.
	Validate(ctx context.Context, token string) (string, bool)
	// Revoke removes a single token, reporting whether it existed.
	Revoke(ctx context.Context, token string) bool
	// RevokeAllForUser removes every token issued for username and
	// returns the number removed.
	RevokeAllForUser(ctx context.Context, username string) int
	// SweepExpired removes every expired token and returns the number removed.
	SweepExpired(ctx context.Context) int
	// ActiveSessionCount counts non-expired tokens.
	ActiveSessionCount(ctx context.Context) int
}
