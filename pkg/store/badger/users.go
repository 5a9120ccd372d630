package badger

import (
	"context"
	"encoding/json"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/fileverse/omnifs/pkg/store"
)

// Authenticate verifies credentials against the user table.
func (s *BadgerStore) Authenticate(ctx context.Context, username, password string) (*store.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	rec, err := s.getUser(username)
	s.mu.RUnlock()

	if err != nil {
		if se, ok := store.AsError(err); ok && se.Code == store.ErrNotFound {
			// Burn a comparison so unknown users cost the same as
			// wrong passwords.
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			return nil, store.NewError(store.ErrInvalidCredentials, "invalid username or password", username)
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword(rec.PasswordHash, []byte(password)); err != nil {
		return nil, store.NewError(store.ErrInvalidCredentials, "invalid username or password", username)
	}
	if !rec.IsActive {
		return nil, store.NewError(store.ErrAccountInactive, "account is inactive", username)
	}
	return rec.toUser(), nil
}

// CreateUser adds an account with a bcrypt-hashed password.
func (s *BadgerStore) CreateUser(ctx context.Context, username, password string, role store.Role) error {
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

	return s.update(func(txn *badger.Txn) error {
		if _, err := txn.Get(userKey(username)); err == nil {
			return store.NewError(store.ErrAlreadyExists, "user already exists", username)
		} else if err != badger.ErrKeyNotFound {
			return err
		}
		rec := userRecord{
			Username:     username,
			PasswordHash: hash,
			Role:         int(role),
			IsActive:     true,
			CreatedAt:    time.Now(),
		}
		return setJSON(txn, userKey(username), &rec)
	})
}

// DeleteUser removes an account.
func (s *BadgerStore) DeleteUser(ctx context.Context, username string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.update(func(txn *badger.Txn) error {
		if _, err := txn.Get(userKey(username)); err == badger.ErrKeyNotFound {
			return store.NewError(store.ErrNotFound, "user not found", username)
		} else if err != nil {
			return err
		}
		return txn.Delete(userKey(username))
	})
}

// ListUsers returns all accounts sorted by username. Keys iterate in order,
// so no explicit sort is needed.
func (s *BadgerStore) ListUsers(ctx context.Context) ([]store.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var users []store.User
	err := s.view(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(userPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var rec userRecord
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return err
			}
			users = append(users, *rec.toUser())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []store.User{}
	}
	return users, nil
}

// getUser fetches a user record. Caller holds at least the read lock.
func (s *BadgerStore) getUser(username string) (*userRecord, error) {
	var rec userRecord
	err := s.view(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(username))
		if err == badger.ErrKeyNotFound {
			return store.NewError(store.ErrNotFound, "user not found", username)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *userRecord) toUser() *store.User {
	return &store.User{
		Username:     r.Username,
		PasswordHash: r.PasswordHash,
		Role:         store.Role(r.Role),
		IsActive:     r.IsActive,
		CreatedAt:    r.CreatedAt,
	}
}

// dummyHash is a valid bcrypt hash of an unguessable value, used to
// equalize timing for unknown usernames.
var dummyHash = func() []byte {
	h, _ := bcrypt.GenerateFromPassword([]byte("omnifs-no-such-user"), bcrypt.MinCost)
	return h
}()
