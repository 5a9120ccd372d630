package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/fileverse/omnifs/pkg/store"
	"github.com/fileverse/omnifs/pkg/store/memory"
)

func newTestManager(t *testing.T, idleTimeout time.Duration) *Manager {
	t.Helper()
	s, err := memory.New(memory.Config{
		BcryptCost:    bcrypt.MinCost,
		AdminUsername: "admin",
		AdminPassword: "admin-secret",
	})
	require.NoError(t, err)
	require.NoError(t, s.CreateUser(context.Background(), "alice", "alice-pass", store.RoleNormal))
	return NewManager(s, idleTimeout)
}

func TestManager_LoginAndValidate(t *testing.T) {
	m := newTestManager(t, 0)

	sess, err := m.Login(context.Background(), "alice", "alice-pass")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, "alice", sess.Username)
	assert.Equal(t, store.RoleNormal, sess.Role)

	got, ok := m.Validate(sess.ID)
	require.True(t, ok)
	assert.Equal(t, sess.ID, got.ID)
}

func TestManager_LoginInvalidCredentials(t *testing.T) {
	m := newTestManager(t, 0)

	_, err := m.Login(context.Background(), "alice", "wrong")
	require.Error(t, err)
	se, ok := store.AsError(err)
	require.True(t, ok)
	assert.Equal(t, store.ErrInvalidCredentials, se.Code)
	assert.Equal(t, 0, m.Count())
}

func TestManager_ConcurrentLoginsDistinctSessions(t *testing.T) {
	m := newTestManager(t, 0)
	ctx := context.Background()

	first, err := m.Login(ctx, "alice", "alice-pass")
	require.NoError(t, err)
	second, err := m.Login(ctx, "alice", "alice-pass")
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 2, m.Count())

	// Ending one session leaves the other valid.
	m.Logout(first.ID)
	_, ok := m.Validate(first.ID)
	assert.False(t, ok)
	_, ok = m.Validate(second.ID)
	assert.True(t, ok)
}

func TestManager_ValidateUnknownToken(t *testing.T) {
	m := newTestManager(t, 0)

	_, ok := m.Validate("no-such-token")
	assert.False(t, ok)
	_, ok = m.Validate("")
	assert.False(t, ok)
}

func TestManager_LogoutIdempotent(t *testing.T) {
	m := newTestManager(t, 0)

	sess, err := m.Login(context.Background(), "alice", "alice-pass")
	require.NoError(t, err)

	m.Logout(sess.ID)
	m.Logout(sess.ID)
	m.Logout("never-existed")

	_, ok := m.Validate(sess.ID)
	assert.False(t, ok)
}

func TestManager_IdleExpiry(t *testing.T) {
	m := newTestManager(t, 10*time.Millisecond)

	sess, err := m.Login(context.Background(), "alice", "alice-pass")
	require.NoError(t, err)

	_, ok := m.Validate(sess.ID)
	require.True(t, ok)

	time.Sleep(25 * time.Millisecond)

	_, ok = m.Validate(sess.ID)
	assert.False(t, ok, "session should expire after the idle timeout")
}

func TestManager_ActivityExtendsSession(t *testing.T) {
	m := newTestManager(t, 50*time.Millisecond)

	sess, err := m.Login(context.Background(), "alice", "alice-pass")
	require.NoError(t, err)

	// Keep touching the session more often than the timeout.
	for i := 0; i < 5; i++ {
		time.Sleep(20 * time.Millisecond)
		_, ok := m.Validate(sess.ID)
		require.True(t, ok, "active session must not expire")
	}
}

func TestManager_Close(t *testing.T) {
	m := newTestManager(t, 0)

	first, err := m.Login(context.Background(), "alice", "alice-pass")
	require.NoError(t, err)
	second, err := m.Login(context.Background(), "admin", "admin-secret")
	require.NoError(t, err)

	m.Close()
	assert.Equal(t, 0, m.Count())
	_, ok := m.Validate(first.ID)
	assert.False(t, ok)
	_, ok = m.Validate(second.ID)
	assert.False(t, ok)
}
