package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/parakeep/parakeep-server/internal/model"
	"github.com/parakeep/parakeep-server/internal/password"
	"github.com/parakeep/parakeep-server/internal/testutil"
)

// MockUserStore mocks the UserStore interface
type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) Create(ctx context.Context, user model.User) (model.User, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockUserStore) GetByUsername(ctx context.Context, username string) (model.User, error) {
	args := m.Called(ctx, username)
	return args.Get(0).(model.User), args.Error(1)
}

// MockSessionStore mocks the SessionStore interface
type MockSessionStore struct {
	mock.Mock
}

func (m *MockSessionStore) Create(ctx context.Context, username string) (string, error) {
	args := m.Called(ctx, username)
	return args.String(0), args.Error(1)
}

func (m *MockSessionStore) Validate(ctx context.Context, token string) (string, bool) {
	args := m.Called(ctx, token)
	return args.String(0), args.Bool(1)
}

func (m *MockSessionStore) Revoke(ctx context.Context, token string) bool {
	args := m.Called(ctx, token)
	return args.Bool(0)
}

func (m *MockSessionStore) RevokeAllForUser(ctx context.Context, username string) int {
	args := m.Called(ctx, username)
	return args.Int(0)
}

func (m *MockSessionStore) SweepExpired(ctx context.Context) int {
	args := m.Called(ctx)
	return args.Int(0)
}

func (m *MockSessionStore) ActiveSessionCount(ctx context.Context) int {
	args := m.Called(ctx)
	return args.Int(0)
}

func newAuthService(users *MockUserStore, sessions *MockSessionStore) *Auth {
	return NewAuth(
		users,
		sessions,
		password.NewManager(6, 100),
		3, 50,
		24,
		testutil.MakeNoopLogger(),
	)
}

func TestAuthService_TokenTTL(t *testing.T) {
	svc := newAuthService(&MockUserStore{}, &MockSessionStore{})
	assert.Equal(t, 24*time.Hour, svc.TokenTTL())
}

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		users := &MockUserStore{}
		svc := newAuthService(users, &MockSessionStore{})

		users.On("Create", ctx, mock.MatchedBy(func(u model.User) bool {
			return u.Username == "alice" && u.PasswordHash != "" && u.PasswordHash != "secret1"
		})).Return(model.User{Username: "alice", PasswordHash: "hash"}, nil)

		user, err := svc.Register(ctx, "alice", "secret1")
		require.NoError(t, err)
		assert.Equal(t, "alice", user.Username)
		users.AssertExpectations(t)
	})

	t.Run("username is trimmed before validation", func(t *testing.T) {
		users := &MockUserStore{}
		svc := newAuthService(users, &MockSessionStore{})

		users.On("Create", ctx, mock.MatchedBy(func(u model.User) bool {
			return u.Username == "alice"
		})).Return(model.User{Username: "alice"}, nil)

		_, err := svc.Register(ctx, "  alice  ", "secret1")
		require.NoError(t, err)
		users.AssertExpectations(t)
	})

	t.Run("validation failures never reach the store", func(t *testing.T) {
		tests := []struct {
			name     string
			username string
			password string
			wantMsg  string
		}{
			{
				name:     "username too short",
				username: "ab",
				password: "secret1",
				wantMsg:  "username must be between 3 and 50 characters",
			},
			{
				name:     "username too long",
				username: strings.Repeat("a", 51),
				password: "secret1",
				wantMsg:  "username must be between 3 and 50 characters",
			},
			{
				name:     "username with invalid characters",
				username: "alice smith",
				password: "secret1",
				wantMsg:  "username must contain only letters, numbers, underscores, and hyphens",
			},
			{
				// 50 characters in 150 bytes: passes the length bound and
				// reaches the charset check.
				name:     "multibyte username length counts characters",
				username: strings.Repeat("日", 50),
				password: "secret1",
				wantMsg:  "username must contain only letters, numbers, underscores, and hyphens",
			},
			{
				name:     "multibyte username over maximum",
				username: strings.Repeat("日", 51),
				password: "secret1",
				wantMsg:  "username must be between 3 and 50 characters",
			},
			{
				name:     "password too short",
				username: "alice",
				password: "short",
				wantMsg:  "password must be at least 6 characters",
			},
			{
				name:     "password too long",
				username: "alice",
				password: strings.Repeat("x", 101),
				wantMsg:  "password must not exceed 100 characters",
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				users := &MockUserStore{}
				svc := newAuthService(users, &MockSessionStore{})

				_, err := svc.Register(ctx, tt.username, tt.password)
				require.Error(t, err)
				assert.True(t, model.IsValidation(err))
				assert.Equal(t, tt.wantMsg, err.Error())
				users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
			})
		}
	})

	t.Run("duplicate username", func(t *testing.T) {
		users := &MockUserStore{}
		svc := newAuthService(users, &MockSessionStore{})

		users.On("Create", ctx, mock.Anything).Return(model.User{}, model.ErrUsernameTaken)

		_, err := svc.Register(ctx, "alice", "secret1")
		assert.ErrorIs(t, err, model.ErrUsernameTaken)
	})

	t.Run("store error is wrapped", func(t *testing.T) {
		users := &MockUserStore{}
		svc := newAuthService(users, &MockSessionStore{})

		users.On("Create", ctx, mock.Anything).Return(model.User{}, errors.New("connection reset"))

		_, err := svc.Register(ctx, "alice", "secret1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create user")
	})
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()

	hash := func(t *testing.T, plain string) string {
		t.Helper()
		h, err := password.NewManager(6, 100).Hash(plain)
		require.NoError(t, err)
		return h
	}

	t.Run("success issues a token", func(t *testing.T) {
		users := &MockUserStore{}
		sessions := &MockSessionStore{}
		svc := newAuthService(users, sessions)

		users.On("GetByUsername", ctx, "alice").
			Return(model.User{Username: "alice", PasswordHash: hash(t, "secret1")}, nil)
		sessions.On("Create", ctx, "alice").Return("tok-123", nil)

		token, err := svc.Login(ctx, "alice", "secret1")
		require.NoError(t, err)
		assert.Equal(t, "tok-123", token)
	})

	t.Run("unknown user and wrong password are indistinguishable", func(t *testing.T) {
		users := &MockUserStore{}
		sessions := &MockSessionStore{}
		svc := newAuthService(users, sessions)

		users.On("GetByUsername", ctx, "ghost").Return(model.User{}, model.ErrNotFound)
		users.On("GetByUsername", ctx, "alice").
			Return(model.User{Username: "alice", PasswordHash: hash(t, "secret1")}, nil)

		_, errUnknown := svc.Login(ctx, "ghost", "whatever")
		_, errWrongPass := svc.Login(ctx, "alice", "wrong-password")

		assert.ErrorIs(t, errUnknown, model.ErrInvalidCredentials)
		assert.ErrorIs(t, errWrongPass, model.ErrInvalidCredentials)
		assert.Equal(t, errUnknown.Error(), errWrongPass.Error())
		sessions.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("store error is wrapped, not a credential failure", func(t *testing.T) {
		users := &MockUserStore{}
		svc := newAuthService(users, &MockSessionStore{})

		users.On("GetByUsername", ctx, "alice").Return(model.User{}, errors.New("connection reset"))

		_, err := svc.Login(ctx, "alice", "secret1")
		require.Error(t, err)
		assert.NotErrorIs(t, err, model.ErrInvalidCredentials)
	})
}

func TestAuthService_Logout(t *testing.T) {
	ctx := context.Background()
	sessions := &MockSessionStore{}
	svc := newAuthService(&MockUserStore{}, sessions)

	sessions.On("RevokeAllForUser", ctx, "alice").Return(2)

	assert.Equal(t, 2, svc.Logout(ctx, "alice"))
}

func TestAuthService_GetUsername(t *testing.T) {
	ctx := context.Background()

	t.Run("valid token", func(t *testing.T) {
		sessions := &MockSessionStore{}
		svc := newAuthService(&MockUserStore{}, sessions)

		sessions.On("Validate", ctx, "tok-123").Return("alice", true)

		username, err := svc.GetUsername(ctx, "tok-123")
		require.NoError(t, err)
		assert.Equal(t, "alice", username)
	})

	t.Run("invalid token", func(t *testing.T) {
		sessions := &MockSessionStore{}
		svc := newAuthService(&MockUserStore{}, sessions)

		sessions.On("Validate", ctx, "bogus").Return("", false)

		_, err := svc.GetUsername(ctx, "bogus")
		assert.ErrorIs(t, err, model.ErrInvalidToken)
	})
}

func TestAuthService_GetUser(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		users := &MockUserStore{}
		svc := newAuthService(users, &MockSessionStore{})

		want := model.User{Username: "alice", PasswordHash: "hash"}
		users.On("GetByUsername", ctx, "alice").Return(want, nil)

		got, err := svc.GetUser(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("not found", func(t *testing.T) {
		users := &MockUserStore{}
		svc := newAuthService(users, &MockSessionStore{})

		users.On("GetByUsername", ctx, "ghost").Return(model.User{}, model.ErrNotFound)

		_, err := svc.GetUser(ctx, "ghost")
		assert.ErrorIs(t, err, model.ErrNotFound)
	})
}
