package memory

import (
	"context"
	"strings"
	"time"

	"github.com/fileverse/omnifs/pkg/store"
)

// ListDirectory returns the name-sorted children of a directory.
func (s *MemoryStore) ListDirectory(ctx context.Context, path string) ([]store.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := store.NormalizePath(path)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	dir, ok := s.resolve(path)
	if !ok {
		return nil, store.NewError(store.ErrNotFound, "directory not found", path)
	}
	if dir.entry.Type != store.TypeDirectory {
		return nil, store.NewError(store.ErrNotDirectory, "not a directory", path)
	}
	return sortedEntries(dir), nil
}

// CreateFile creates a file under an existing parent directory.
func (s *MemoryStore) CreateFile(ctx context.Context, path string, data []byte, owner string) error {
	return s.create(ctx, path, owner, store.TypeFile, data)
}

// CreateDirectory creates an empty directory under an existing parent.
func (s *MemoryStore) CreateDirectory(ctx context.Context, path string, owner string) error {
	return s.create(ctx, path, owner, store.TypeDirectory, nil)
}

func (s *MemoryStore) create(ctx context.Context, path, owner string, typ store.EntryType, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := store.NormalizePath(path)
	if err != nil {
		return err
	}
	if path == "/" {
		return store.NewError(store.ErrAlreadyExists, "root already exists", path)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.resolve(path); exists {
		return store.NewError(store.ErrAlreadyExists, "path already exists", path)
	}

	parentPath, name := store.SplitPath(path)
	parent, ok := s.resolve(parentPath)
	if !ok {
		return store.NewError(store.ErrNotFound, "parent directory not found", parentPath)
	}
	if parent.entry.Type != store.TypeDirectory {
		return store.NewError(store.ErrNotDirectory, "parent is not a directory", parentPath)
	}

	if typ == store.TypeFile {
		if err := s.chargeLocked(uint64(len(data))); err != nil {
			return err
		}
	}

	now := time.Now()
	permissions := store.DefaultDirectoryPermissions
	var size uint64
	if typ == store.TypeFile {
		permissions = store.DefaultFilePermissions
		size = uint64(len(data))
	}

	n := &node{
		entry: store.Entry{
			Name:        name,
			Type:        typ,
			Size:        size,
			Owner:       owner,
			Permissions: permissions,
			CreatedAt:   now,
			ModifiedAt:  now,
		},
		parent: parent,
	}
	if typ == store.TypeDirectory {
		n.children = make(map[string]*node)
	} else {
		n.data = append([]byte(nil), data...)
	}

	parent.children[name] = n
	parent.entry.ModifiedAt = now
	s.nodes[path] = n
	return nil
}

// ReadFile returns a copy of a file's content.
func (s *MemoryStore) ReadFile(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := store.NormalizePath(path)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.resolve(path)
	if !ok {
		return nil, store.NewError(store.ErrNotFound, "file not found", path)
	}
	if n.entry.Type == store.TypeDirectory {
		return nil, store.NewError(store.ErrIsDirectory, "path is a directory", path)
	}
	return append([]byte(nil), n.data...), nil
}

// EditFile writes data at a byte offset, extending the file as needed.
func (s *MemoryStore) EditFile(ctx context.Context, path string, data []byte, offset uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := store.NormalizePath(path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.resolve(path)
	if !ok {
		return store.NewError(store.ErrNotFound, "file not found", path)
	}
	if n.entry.Type == store.TypeDirectory {
		return store.NewError(store.ErrIsDirectory, "path is a directory", path)
	}
	if offset > n.entry.Size {
		return store.NewError(store.ErrInvalidArgument, "offset beyond end of file", path)
	}

	newSize := n.entry.Size
	if end := offset + uint64(len(data)); end > newSize {
		newSize = end
	}
	if newSize > n.entry.Size {
		if err := s.chargeLocked(newSize - n.entry.Size); err != nil {
			return err
		}
	}

	if uint64(len(n.data)) < newSize {
		grown := make([]byte, newSize)
		copy(grown, n.data)
		n.data = grown
	}
	copy(n.data[offset:], data)
	n.entry.Size = newSize
	n.entry.ModifiedAt = time.Now()
	return nil
}

// TruncateFile discards a file's content.
func (s *MemoryStore) TruncateFile(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := store.NormalizePath(path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.resolve(path)
	if !ok {
		return store.NewError(store.ErrNotFound, "file not found", path)
	}
	if n.entry.Type == store.TypeDirectory {
		return store.NewError(store.ErrIsDirectory, "path is a directory", path)
	}

	s.used -= n.entry.Size
	n.data = nil
	n.entry.Size = 0
	n.entry.ModifiedAt = time.Now()
	return nil
}

// DeleteFile removes a file.
func (s *MemoryStore) DeleteFile(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := store.NormalizePath(path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.resolve(path)
	if !ok {
		return store.NewError(store.ErrNotFound, "file not found", path)
	}
	if n.entry.Type == store.TypeDirectory {
		return store.NewError(store.ErrIsDirectory, "path is a directory", path)
	}

	s.used -= n.entry.Size
	s.detachLocked(path, n)
	return nil
}

// DeleteDirectory removes an empty directory. Non-recursive: a populated
// directory is refused.
func (s *MemoryStore) DeleteDirectory(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := store.NormalizePath(path)
	if err != nil {
		return err
	}
	if path == "/" {
		return store.NewError(store.ErrInvalidArgument, "cannot delete root directory", path)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.resolve(path)
	if !ok {
		return store.NewError(store.ErrNotFound, "directory not found", path)
	}
	if n.entry.Type != store.TypeDirectory {
		return store.NewError(store.ErrNotDirectory, "not a directory", path)
	}
	if len(n.children) > 0 {
		return store.NewError(store.ErrNotEmpty, "directory not empty", path)
	}

	s.detachLocked(path, n)
	return nil
}

// Rename moves a file or directory. Directory renames re-key the whole
// subtree in the path index.
func (s *MemoryStore) Rename(ctx context.Context, oldPath, newPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	oldPath, err := store.NormalizePath(oldPath)
	if err != nil {
		return err
	}
	newPath, err = store.NormalizePath(newPath)
	if err != nil {
		return err
	}
	if oldPath == "/" || newPath == "/" {
		return store.NewError(store.ErrInvalidArgument, "cannot rename root directory", oldPath)
	}
	if oldPath == newPath {
		return nil
	}
	if strings.HasPrefix(newPath, oldPath+"/") {
		return store.NewError(store.ErrInvalidArgument, "cannot move a directory into itself", newPath)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.resolve(oldPath)
	if !ok {
		return store.NewError(store.ErrNotFound, "path not found", oldPath)
	}
	if _, exists := s.resolve(newPath); exists {
		return store.NewError(store.ErrAlreadyExists, "destination already exists", newPath)
	}

	newParentPath, newName := store.SplitPath(newPath)
	newParent, ok := s.resolve(newParentPath)
	if !ok {
		return store.NewError(store.ErrNotFound, "parent directory not found", newParentPath)
	}
	if newParent.entry.Type != store.TypeDirectory {
		return store.NewError(store.ErrNotDirectory, "parent is not a directory", newParentPath)
	}

	now := time.Now()
	delete(n.parent.children, n.entry.Name)
	n.parent.entry.ModifiedAt = now
	delete(s.nodes, oldPath)

	n.parent = newParent
	n.entry.Name = newName
	n.entry.ModifiedAt = now
	newParent.children[newName] = n
	newParent.entry.ModifiedAt = now
	s.nodes[newPath] = n

	if n.entry.Type == store.TypeDirectory {
		s.rekeySubtreeLocked(oldPath, newPath)
	}
	return nil
}

// GetMetadata returns the entry at a path.
func (s *MemoryStore) GetMetadata(ctx context.Context, path string) (*store.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := store.NormalizePath(path)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.resolve(path)
	if !ok {
		return nil, store.NewError(store.ErrNotFound, "path not found", path)
	}
	entry := n.entry
	return &entry, nil
}

// SetPermissions replaces an entry's permission bitmask.
func (s *MemoryStore) SetPermissions(ctx context.Context, path string, permissions uint32) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := store.NormalizePath(path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.resolve(path)
	if !ok {
		return store.NewError(store.ErrNotFound, "path not found", path)
	}
	n.entry.Permissions = permissions
	n.entry.ModifiedAt = time.Now()
	return nil
}

// chargeLocked reserves bytes against the configured capacity.
func (s *MemoryStore) chargeLocked(bytes uint64) error {
	if s.used+bytes > s.cfg.TotalSize {
		return store.NewError(store.ErrNoSpace, "no space left", "")
	}
	s.used += bytes
	return nil
}

// detachLocked unlinks a node from its parent and the path index.
func (s *MemoryStore) detachLocked(path string, n *node) {
	delete(n.parent.children, n.entry.Name)
	n.parent.entry.ModifiedAt = time.Now()
	delete(s.nodes, path)
}

// rekeySubtreeLocked moves every descendant's path index entry from under
// oldPrefix to under newPrefix after a directory rename.
func (s *MemoryStore) rekeySubtreeLocked(oldPrefix, newPrefix string) {
	moved := make(map[string]*node)
	for p, n := range s.nodes {
		if strings.HasPrefix(p, oldPrefix+"/") {
			moved[newPrefix+p[len(oldPrefix):]] = n
			delete(s.nodes, p)
		}
	}
	for p, n := range moved {
		s.nodes[p] = n
	}
}
