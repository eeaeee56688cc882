package token

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parakeep/parakeep-server/internal/testutil"
)

func newTestManager(t *testing.T, expireHours int) *Manager {
	t.Helper()
	return NewManager(expireHours, testutil.MakeNoopLogger())
}

func TestManager_CreateAndValidate(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, 24)

	token, err := m.Create(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, token, 64) // 256-bit hex

	username, ok := m.Validate(ctx, token)
	require.True(t, ok)
	assert.Equal(t, "alice", username)
}

func TestManager_Create_UniqueTokens(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, 24)

	first, err := m.Create(ctx, "alice")
	require.NoError(t, err)
	second, err := m.Create(ctx, "alice")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)

	// Both sessions stay valid concurrently.
	_, ok := m.Validate(ctx, first)
	assert.True(t, ok)
	_, ok = m.Validate(ctx, second)
	assert.True(t, ok)
}

func TestManager_Validate_UnknownToken(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, 24)

	username, ok := m.Validate(ctx, "deadbeef")
	assert.False(t, ok)
	assert.Empty(t, username)
}

func TestManager_Validate_ExpiredTokenEvicted(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, 1)

	token, err := m.Create(ctx, "alice")
	require.NoError(t, err)

	// Move the clock past the expiry.
	m.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	_, ok := m.Validate(ctx, token)
	assert.False(t, ok)

	// Evicted, not just rejected: still invalid after the clock resets.
	m.now = time.Now
	_, ok = m.Validate(ctx, token)
	assert.False(t, ok)
}

func TestManager_Validate_BumpsLastUsed(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, 24)

	token, err := m.Create(ctx, "alice")
	require.NoError(t, err)

	later := time.Now().Add(time.Minute)
	m.now = func() time.Time { return later }

	_, ok := m.Validate(ctx, token)
	require.True(t, ok)

	m.mu.RLock()
	s := m.sessions[token]
	m.mu.RUnlock()
	assert.Equal(t, later, s.lastUsed)
	assert.True(t, s.createdAt.Before(s.lastUsed))
}

func TestManager_Revoke(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, 24)

	token, err := m.Create(ctx, "alice")
	require.NoError(t, err)

	assert.True(t, m.Revoke(ctx, token))
	assert.False(t, m.Revoke(ctx, token))

	_, ok := m.Validate(ctx, token)
	assert.False(t, ok)
}

func TestManager_RevokeAllForUser(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, 24)

	aliceFirst, err := m.Create(ctx, "alice")
	require.NoError(t, err)
	aliceSecond, err := m.Create(ctx, "alice")
	require.NoError(t, err)
	bob, err := m.Create(ctx, "bob")
	require.NoError(t, err)

	count := m.RevokeAllForUser(ctx, "alice")
	assert.Equal(t, 2, count)

	_, ok := m.Validate(ctx, aliceFirst)
	assert.False(t, ok)
	_, ok = m.Validate(ctx, aliceSecond)
	assert.False(t, ok)

	// Bob's session is untouched.
	username, ok := m.Validate(ctx, bob)
	require.True(t, ok)
	assert.Equal(t, "bob", username)

	assert.Equal(t, 0, m.RevokeAllForUser(ctx, "alice"))
}

func TestManager_SweepExpired(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, 1)

	_, err := m.Create(ctx, "alice")
	require.NoError(t, err)
	_, err = m.Create(ctx, "bob")
	require.NoError(t, err)

	assert.Equal(t, 0, m.SweepExpired(ctx))

	m.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	assert.Equal(t, 2, m.SweepExpired(ctx))
	assert.Equal(t, 0, m.SweepExpired(ctx))
}

func TestManager_Create_SweepsExpired(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, 1)

	stale, err := m.Create(ctx, "alice")
	require.NoError(t, err)

	m.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	// Creating a fresh token sweeps the stale one away.
	fresh, err := m.Create(ctx, "bob")
	require.NoError(t, err)

	m.mu.RLock()
	_, staleExists := m.sessions[stale]
	_, freshExists := m.sessions[fresh]
	m.mu.RUnlock()
	assert.False(t, staleExists)
	assert.True(t, freshExists)
}

func TestManager_ActiveSessionCount(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, 1)

	assert.Equal(t, 0, m.ActiveSessionCount(ctx))

	_, err := m.Create(ctx, "alice")
	require.NoError(t, err)
	_, err = m.Create(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, 2, m.ActiveSessionCount(ctx))

	m.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	assert.Equal(t, 0, m.ActiveSessionCount(ctx))
}

func TestManager_MissingCreationTimestampIsExpired(t *testing.T) {
	m := newTestManager(t, 24)
	assert.True(t, m.expired(session{username: "alice"}, time.Now()))
}

func TestManager_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, 24)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token, err := m.Create(ctx, "alice")
			assert.NoError(t, err)
			_, ok := m.Validate(ctx, token)
			assert.True(t, ok)
			assert.True(t, m.Revoke(ctx, token))
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, m.ActiveSessionCount(ctx))
}
