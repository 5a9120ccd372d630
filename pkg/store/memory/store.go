// Package memory implements store.Store with in-memory data structures.
//
// The store keeps the directory tree as linked nodes plus a path index for
// O(1) resolution. It is the default backend: suitable for testing,
// development and ephemeral deployments where persistence is not required.
//
// Thread safety: all operations are protected by a single read-write mutex.
// This coarse-grained locking is simple and correct; every operation is
// atomic from the caller's perspective.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/fileverse/omnifs/pkg/store"
)

// Config holds memory store settings.
type Config struct {
	// TotalSize is the capacity in bytes reported by Stats and enforced
	// on writes. 0 means the default.
	TotalSize uint64 `mapstructure:"total_size"`

	// BcryptCost is the cost factor for password hashing. 0 means
	// bcrypt.DefaultCost.
	BcryptCost int `mapstructure:"bcrypt_cost"`

	// AdminUsername and AdminPassword seed the initial administrator
	// account. Empty AdminUsername skips seeding.
	AdminUsername string `mapstructure:"admin_username"`
	AdminPassword string `mapstructure:"admin_password"`
}

// DefaultTotalSize is the capacity used when none is configured.
const DefaultTotalSize = 64 << 20

type node struct {
	entry    store.Entry
	data     []byte
	children map[string]*node
	parent   *node
}

// MemoryStore is the in-memory store.Store implementation.
type MemoryStore struct {
	mu sync.RWMutex

	cfg Config

	// nodes indexes every live node by normalized absolute path.
	nodes map[string]*node

	root *node

	// users maps username to account.
	users map[string]*store.User

	// used is the sum of all file content sizes, maintained
	// incrementally so Stats never scans.
	used uint64
}

// New creates an empty store with a root directory and, when configured, a
// seeded admin account.
func New(cfg Config) (*MemoryStore, error) {
	if cfg.TotalSize == 0 {
		cfg.TotalSize = DefaultTotalSize
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}

	s := &MemoryStore{cfg: cfg}
	if err := s.reset(); err != nil {
		return nil, err
	}
	return s, nil
}

// reset rebuilds the pristine state. Caller must hold mu or be the only
// reference holder.
func (s *MemoryStore) reset() error {
	now := time.Now()
	root := &node{
		entry: store.Entry{
			Name:        "/",
			Type:        store.TypeDirectory,
			Permissions: store.DefaultDirectoryPermissions,
			Owner:       s.cfg.AdminUsername,
			CreatedAt:   now,
			ModifiedAt:  now,
		},
		children: make(map[string]*node),
	}

	s.root = root
	s.nodes = map[string]*node{"/": root}
	s.users = make(map[string]*store.User)
	s.used = 0

	if s.cfg.AdminUsername != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(s.cfg.AdminPassword), s.cfg.BcryptCost)
		if err != nil {
			return store.NewError(store.ErrInternal, "hash admin password: "+err.Error(), "")
		}
		s.users[s.cfg.AdminUsername] = &store.User{
			Username:     s.cfg.AdminUsername,
			PasswordHash: hash,
			Role:         store.RoleAdmin,
			IsActive:     true,
			CreatedAt:    now,
		}
	}
	return nil
}

// Format resets the store to a pristine root plus the seeded admin.
func (s *MemoryStore) Format(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reset()
}

// Stats returns the aggregate counters.
func (s *MemoryStore) Stats(ctx context.Context) (*store.Stats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var files, dirs uint64
	for _, n := range s.nodes {
		if n.entry.Type == store.TypeFile {
			files++
		} else {
			dirs++
		}
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

// Close is a no-op for the memory store.
func (s *MemoryStore) Close() error {
	return nil
}

// resolve returns the node at a normalized path.
func (s *MemoryStore) resolve(path string) (*node, bool) {
	n, ok := s.nodes[path]
	return n, ok
}

// sortedEntries copies and name-sorts the children of a directory node.
func sortedEntries(dir *node) []store.Entry {
	entries := make([]store.Entry, 0, len(dir.children))
	for _, child := range dir.children {
		entries = append(entries, child.entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})
	return entries
}
