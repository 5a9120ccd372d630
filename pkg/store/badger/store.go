// Package badger implements store.Store on BadgerDB for deployments that
// need metadata and content to survive restarts.
//
// Thread safety: Badger transactions give per-key atomicity, but operations
// here span several keys (entry, content, children index), so a single
// read-write mutex serializes mutations, the same coarse-grained discipline
// as the memory store. Reads take the read lock and run in read-only
// transactions.
package badger

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/fileverse/omnifs/pkg/store"
)

// Config holds badger store settings.
type Config struct {
	// Dir is the database directory. Ignored when InMemory is set.
	Dir string `mapstructure:"dir"`

	// InMemory runs Badger without disk persistence. Used by tests.
	InMemory bool `mapstructure:"in_memory"`

	// SyncWrites makes every commit fsync. Slower, safer.
	SyncWrites bool `mapstructure:"sync_writes"`

	// TotalSize is the capacity in bytes reported by Stats and enforced
	// on writes. 0 means the memory store's default.
	TotalSize uint64 `mapstructure:"total_size"`

	// BcryptCost is the password hashing cost. 0 means bcrypt.DefaultCost.
	BcryptCost int `mapstructure:"bcrypt_cost"`

	// AdminUsername and AdminPassword seed the initial administrator on
	// first open (or after Format). Empty AdminUsername skips seeding.
	AdminUsername string `mapstructure:"admin_username"`
	AdminPassword string `mapstructure:"admin_password"`
}

// entryRecord is the persisted form of a store.Entry.
type entryRecord struct {
	Name        string    `json:"name"`
	Type        int       `json:"type"`
	Size        uint64    `json:"size"`
	Owner       string    `json:"owner"`
	Permissions uint32    `json:"permissions"`
	CreatedAt   time.Time `json:"created_at"`
	ModifiedAt  time.Time `json:"modified_at"`
}

// userRecord is the persisted form of a store.User.
type userRecord struct {
	Username     string    `json:"username"`
	PasswordHash []byte    `json:"password_hash"`
	Role         int       `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// BadgerStore is the persistent store.Store implementation.
type BadgerStore struct {
	mu  sync.RWMutex
	db  *badger.DB
	cfg Config

	// used is the sum of file sizes, loaded by a scan at open and
	// maintained incrementally afterwards.
	used uint64
}

// Open opens (or creates) the database, seeds the root directory and admin
// account if absent, and loads the usage counter.
func Open(cfg Config) (*BadgerStore, error) {
	if cfg.TotalSize == 0 {
		cfg.TotalSize = 64 << 20
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}

	opts := badger.DefaultOptions(cfg.Dir).
		WithInMemory(cfg.InMemory).
		WithSyncWrites(cfg.SyncWrites).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, store.NewError(store.ErrIOError, "open badger database: "+err.Error(), cfg.Dir)
	}

	s := &BadgerStore{db: db, cfg: cfg}
	if err := s.seed(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.loadUsage(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// seed writes the root entry and the configured admin account if missing.
func (s *BadgerStore) seed() error {
	return s.update(func(txn *badger.Txn) error {
		if _, err := txn.Get(entryKey("/")); err == badger.ErrKeyNotFound {
			now := time.Now()
			root := entryRecord{
				Name:        "/",
				Type:        int(store.TypeDirectory),
				Owner:       s.cfg.AdminUsername,
				Permissions: store.DefaultDirectoryPermissions,
				CreatedAt:   now,
				ModifiedAt:  now,
			}
			if err := setJSON(txn, entryKey("/"), &root); err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		if s.cfg.AdminUsername == "" {
			return nil
		}
		if _, err := txn.Get(userKey(s.cfg.AdminUsername)); err == nil {
			return nil
		} else if err != badger.ErrKeyNotFound {
			return err
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(s.cfg.AdminPassword), s.cfg.BcryptCost)
		if err != nil {
			return err
		}
		admin := userRecord{
			Username:     s.cfg.AdminUsername,
			PasswordHash: hash,
			Role:         int(store.RoleAdmin),
			IsActive:     true,
			CreatedAt:    time.Now(),
		}
		return setJSON(txn, userKey(s.cfg.AdminUsername), &admin)
	})
}

// loadUsage scans entries once to initialize the usage counter.
func (s *BadgerStore) loadUsage() error {
	var used uint64
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(entryPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var rec entryRecord
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return err
			}
			if rec.Type == int(store.TypeFile) {
				used += rec.Size
			}
		}
		return nil
	})
	if err != nil {
		return store.NewError(store.ErrIOError, "scan usage: "+err.Error(), "")
	}
	s.used = used
	return nil
}

// Stats returns the aggregate counters.
func (s *BadgerStore) Stats(ctx context.Context) (*store.Stats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var files, dirs uint64
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()
		prefix := []byte(entryPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var rec entryRecord
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return err
			}
			if rec.Type == int(store.TypeFile) {
				files++
			} else {
				dirs++
			}
		}
		return nil
	})
	if err != nil {
		return nil, store.NewError(store.ErrIOError, "scan entries: "+err.Error(), "")
	}

	free := uint64(0)
	if s.cfg.TotalSize > s.used {
		free = s.cfg.TotalSize - s.used
	}
	return &store.Stats{
		TotalSize:        s.cfg.TotalSize,
		UsedSpace:        s.used,
		FreeSpace:        free,
		TotalFiles:       files,
		TotalDirectories: dirs,
	}, nil
}

// Format drops every key and re-seeds the pristine state.
func (s *BadgerStore) Format(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.DropAll(); err != nil {
		return store.NewError(store.ErrIOError, "drop database: "+err.Error(), "")
	}
	s.used = 0
	return s.seed()
}

// Close closes the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// update wraps db.Update, mapping unexpected failures to IO errors while
// letting *store.Error pass through untouched.
func (s *BadgerStore) update(fn func(txn *badger.Txn) error) error {
	err := s.db.Update(fn)
	if err == nil {
		return nil
	}
	if _, ok := store.AsError(err); ok {
		return err
	}
	return store.NewError(store.ErrIOError, err.Error(), "")
}

// view wraps db.View with the same error mapping as update.
func (s *BadgerStore) view(fn func(txn *badger.Txn) error) error {
	err := s.db.View(fn)
	if err == nil {
		return nil
	}
	if _, ok := store.AsError(err); ok {
		return err
	}
	return store.NewError(store.ErrIOError, err.Error(), "")
}

func setJSON(txn *badger.Txn, key []byte, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return txn.Set(key, raw)
}

// getEntry fetches an entry record, translating ErrKeyNotFound to the
// domain NotFound error.
func getEntry(txn *badger.Txn, path string) (*entryRecord, error) {
	item, err := txn.Get(entryKey(path))
	if err == badger.ErrKeyNotFound {
		return nil, store.NewError(store.ErrNotFound, "path not found", path)
	}
	if err != nil {
		return nil, err
	}
	var rec entryRecord
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rec)
	}); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *entryRecord) toEntry() store.Entry {
	return store.Entry{
		Name:        r.Name,
		Type:        store.EntryType(r.Type),
		Size:        r.Size,
		Owner:       r.Owner,
		Permissions: r.Permissions,
		CreatedAt:   r.CreatedAt,
		ModifiedAt:  r.ModifiedAt,
	}
}
