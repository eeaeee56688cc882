package model

import "context"

// ContextManager moves the authenticated username in and out of a
// request context.
type ContextManager interface {
	SetUsernameToContext(ctx context.Context, username string) context.Context
	GetUsernameFromContext(ctx context.Context) (string, bool)
}
