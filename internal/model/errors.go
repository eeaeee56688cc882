package model

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a row does not exist for the
	// requesting owner. Rows owned by someone else report the same error.
	ErrNotFound = errors.New("not found")

	// ErrUsernameTaken is returned when registration hits an existing username.
	ErrUsernameTaken = errors.New("username already exists")

	// ErrInvalidCredentials is returned on any login failure. It is
	// deliberately the same whether the user is missing or the password
	// is wrong.
	ErrInvalidCredentials = errors.New("incorrect username or password")

	// ErrInvalidToken is returned for a missing, unknown or expired
	// bearer token.
	ErrInvalidToken = errors.New("invalid or expired authentication token")
)

// ValidationError reports malformed input. The message is safe to surface
// to the caller verbatim.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError builds a ValidationError from a format string.
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
