package memory

import (
	"context"
	"sort"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/fileverse/omnifs/pkg/store"
)

// Authenticate verifies credentials against the user table.
func (s *MemoryStore) Authenticate(ctx context.Context, username, password string) (*store.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	user, ok := s.users[username]
	s.mu.RUnlock()

	if !ok {
		// Burn a comparison so unknown users cost the same as wrong
		// passwords.
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, store.NewError(store.ErrInvalidCredentials, "invalid username or password", username)
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return nil, store.NewError(store.ErrInvalidCredentials, "invalid username or password", username)
	}
	if !user.IsActive {
		return nil, store.NewError(store.ErrAccountInactive, "account is inactive", username)
	}

	copied := *user
	return &copied, nil
}

// CreateUser adds an account with a bcrypt-hashed password.
func (s *MemoryStore) CreateUser(ctx context.Context, username, password string, role store.Role) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if username == "" {
		return store.NewError(store.ErrInvalidArgument, "username must not be empty", "")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		return store.NewError(store.ErrInternal, "hash password: "+err.Error(), username)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[username]; exists {
		return store.NewError(store.ErrAlreadyExists, "user already exists", username)
	}
	s.users[username] = &store.User{
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
		CreatedAt:    time.Now(),
	}
	return nil
}

// DeleteUser removes an account.
func (s *MemoryStore) DeleteUser(ctx context.Context, username string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[username]; !exists {
		return store.NewError(store.ErrNotFound, "user not found", username)
	}
	delete(s.users, username)
	return nil
}

// ListUsers returns all accounts sorted by username.
func (s *MemoryStore) ListUsers(ctx context.Context) ([]store.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]store.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, *u)
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].Username < users[j].Username
	})
	return users, nil
}

// dummyHash is a valid bcrypt hash of an unguessable value, used to
// equalize timing for unknown usernames.
var dummyHash = func() []byte {
	h, _ := bcrypt.GenerateFromPassword([]byte("omnifs-no-such-user"), bcrypt.MinCost)
	return h
}()
