// Package session tracks authenticated sessions. Tokens are opaque random
// UUIDs; all session state lives server-side, so revocation is immediate and
// a leaked token carries no information.
package session

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v4"

	"github.com/fileverse/omnifs/internal/logger"
	"github.com/fileverse/omnifs/pkg/store"
)

// Session is the server-side record behind one token.
type Session struct {
	ID        string
	Username  string
	Role      store.Role
	LoginTime time.Time

	// lastActive is unix nanoseconds, updated on every validated request.
	// Atomic so Validate never needs a write lock on the map.
	lastActive atomic.Int64
}

// LastActive returns the time of the most recent validated request.
func (s *Session) LastActive() time.Time {
	return time.Unix(0, s.lastActive.Load())
}

// Manager owns the session table. Sessions are independent: one user may
// hold several concurrently, and each expires on its own idle clock.
type Manager struct {
	store    store.Store
	sessions *xsync.Map[string, *Session]

	// idleTimeout evicts sessions with no validated request for this
	// duration. Zero disables expiry.
	idleTimeout time.Duration
}

// NewManager creates a session manager backed by the given store's user
// table. idleTimeout of zero means sessions never expire.
func NewManager(s store.Store, idleTimeout time.Duration) *Manager {
	return &Manager{
		store:       s,
		sessions:    xsync.NewMap[string, *Session](),
		idleTimeout: idleTimeout,
	}
}

// Login authenticates credentials and creates a fresh session. Each call
// yields a distinct token even for the same user.
func (m *Manager) Login(ctx context.Context, username, password string) (*Session, error) {
	user, err := m.store.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	sess := &Session{
		ID:        uuid.NewString(),
		Username:  user.Username,
		Role:      user.Role,
		LoginTime: now,
	}
	sess.lastActive.Store(now.UnixNano())
	m.sessions.Store(sess.ID, sess)

	logger.Info("session created for user %s", user.Username)
	return sess, nil
}

// Validate resolves a token to its session, enforcing idle expiry and
// bumping the activity clock.
func (m *Manager) Validate(token string) (*Session, bool) {
	if token == "" {
		return nil, false
	}
	sess, ok := m.sessions.Load(token)
	if !ok {
		return nil, false
	}

	now := time.Now()
	if m.idleTimeout > 0 && now.Sub(sess.LastActive()) > m.idleTimeout {
		m.sessions.Delete(token)
		logger.Debug("session for user %s expired after idle timeout", sess.Username)
		return nil, false
	}

	sess.lastActive.Store(now.UnixNano())
	return sess, true
}

// Logout removes a session. Unknown tokens are a no-op, which makes logout
// idempotent: retrying after a lost response cannot fail.
func (m *Manager) Logout(token string) {
	if sess, ok := m.sessions.Load(token); ok {
		logger.Info("session closed for user %s", sess.Username)
	}
	m.sessions.Delete(token)
}

// Count returns the number of live sessions. Expired-but-unvalidated
// sessions are counted until their next Validate evicts them.
func (m *Manager) Count() int {
	return m.sessions.Size()
}

// Close drops every session. Used on server shutdown.
func (m *Manager) Close() {
	m.sessions.Range(func(token string, _ *Session) bool {
		m.sessions.Delete(token)
		return true
	})
}
