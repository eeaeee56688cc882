package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/parakeep/parakeep-server/internal/logger"
	"github.com/parakeep/parakeep-server/internal/model"
	"github.com/parakeep/parakeep-server/internal/password"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Auth handles registration, login and session management.
type Auth struct {
	userStore         model.UserStore
	sessions          model.SessionStore
	passwords         *password.Manager
	minUsernameLength int
	maxUsernameLength int
	tokenTTL          time.Duration
	logger            *logger.Logger
}

func NewAuth(
	userStore model.UserStore,
	sessions model.SessionStore,
	passwords *password.Manager,
	minUsernameLength int,
	maxUsernameLength int,
	tokenExpireHours int,
	logger *logger.Logger,
) *Auth {
	return &Auth{
		userStore:         userStore,
		sessions:          sessions,
		passwords:         passwords,
		minUsernameLength: minUsernameLength,
		maxUsernameLength: maxUsernameLength,
		tokenTTL:          time.Duration(tokenExpireHours) * time.Hour,
		logger:            logger,
	}
}

// TokenTTL returns the configured session lifetime.
func (a *Auth) TokenTTL() time.Duration {
	return a.tokenTTL
}

// Register creates a new user account.
func (a *Auth) Register(ctx context.Context, username, plainPassword string) (model.User, error) {
	username = strings.TrimSpace(username)

	if n := utf8.RuneCountInString(username); n < a.minUsernameLength || n > a.maxUsernameLength {
		return model.User{}, model.NewValidationError(
			"username must be between %d and %d characters", a.minUsernameLength, a.maxUsernameLength)
	}
	if !usernamePattern.MatchString(username) {
		return model.User{}, model.NewValidationError(
			"username must contain only letters, numbers, underscores, and hyphens")
	}

	if ok, reason := a.passwords.ValidateStrength(plainPassword); !ok {
		return model.User{}, model.NewValidationError("%s", reason)
	}

	hash, err := a.passwords.Hash(plainPassword)
	if err != nil {
		a.logger.Error("Auth service: password hashing failed",
			"username", username,
			"error", err.Error())
		return model.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := a.userStore.Create(ctx, model.User{
		Username:     username,
		PasswordHash: hash,
	})
	if errors.Is(err, model.ErrUsernameTaken) {
		a.logger.Info("Auth service: username already exists",
			"username", username)
		return model.User{}, model.ErrUsernameTaken
	}
	if err != nil {
		a.logger.Error("Auth service: failed to create user",
			"username", username,
			"error", err.Error())
		return model.User{}, fmt.Errorf("failed to create user: %w", err)
	}

	a.logger.Info("Auth service: user registered",
		"username", username)

	return user, nil
}

// Login verifies credentials and issues a session token. Any failure is
// reported as ErrInvalidCredentials so callers cannot probe for
// existing usernames.
func (a *Auth) Login(ctx context.Context, username, plainPassword string) (string, error) {
	user, err := a.userStore.GetByUsername(ctx, username)
	if errors.Is(err, model.ErrNotFound) {
		a.logger.Info("Auth service: login failed, user not found",
			"username", username)
		return "", model.ErrInvalidCredentials
	}
	if err != nil {
		a.logger.Error("Auth service: failed to get user",
			"username", username,
			"error", err.Error())
		return "", fmt.Errorf("failed to get user: %w", err)
	}

	if !a.passwords.Verify(plainPassword, user.PasswordHash) {
		a.logger.Info("Auth service: login failed, invalid password",
			"username", username)
		return "", model.ErrInvalidCredentials
	}

	token, err := a.sessions.Create(ctx, user.Username)
	if err != nil {
		a.logger.Error("Auth service: failed to create session",
			"username", username,
			"error", err.Error())
		return "", fmt.Errorf("failed to create session: %w", err)
	}

	a.logger.Info("Auth service: login succeeded",
		"username", username)

	return token, nil
}

// Logout revokes every session of username and returns the number of
// sessions terminated.
func (a *Auth) Logout(ctx context.Context, username string) int {
	count := a.sessions.RevokeAllForUser(ctx, username)

	a.logger.Info("Auth service: user logged out",
		"username", username,
		"sessions_revoked", count)

	return count
}

// GetUsername resolves a bearer token to its username.
func (a *Auth) GetUsername(ctx context.Context, token string) (string, error) {
	username, ok := a.sessions.Validate(ctx, token)
	if !ok {
		return "", model.ErrInvalidToken
	}
	return username, nil
}

// GetUser returns the stored account for username.
func (a *Auth) GetUser(ctx context.Context, username string) (model.User, error) {
	user, err := a.userStore.GetByUsername(ctx, username)
	if errors.Is(err, model.ErrNotFound) {
		return model.User{}, model.ErrNotFound
	}
	if err != nil {
		a.logger.Error("Auth service: failed to get user",
			"username", username,
			"error", err.Error())
		return model.User{}, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}
