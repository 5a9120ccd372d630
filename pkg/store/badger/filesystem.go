package badger

import (
	"context"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/fileverse/omnifs/pkg/store"
)

// ListDirectory returns the name-sorted children of a directory. The
// children index keys are ordered by name, so the range scan yields sorted
// output for free.
func (s *BadgerStore) ListDirectory(ctx context.Context, path string) ([]store.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := store.NormalizePath(path)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var entries []store.Entry
	err = s.view(func(txn *badger.Txn) error {
		dir, err := getEntry(txn, path)
		if err != nil {
			return err
		}
		if dir.Type != int(store.TypeDirectory) {
			return store.NewError(store.ErrNotDirectory, "not a directory", path)
		}

		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := childScanPrefix(path)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			name := string(it.Item().Key()[len(prefix):])
			child, err := getEntry(txn, joinChild(path, name))
			if err != nil {
				return err
			}
			entries = append(entries, child.toEntry())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []store.Entry{}
	}
	return entries, nil
}

// CreateFile creates a file under an existing parent directory.
func (s *BadgerStore) CreateFile(ctx context.Context, path string, data []byte, owner string) error {
	return s.create(ctx, path, owner, store.TypeFile, data)
}

// CreateDirectory creates an empty directory under an existing parent.
func (s *BadgerStore) CreateDirectory(ctx context.Context, path string, owner string) error {
	return s.create(ctx, path, owner, store.TypeDirectory, nil)
}

func (s *BadgerStore) create(ctx context.Context, path, owner string, typ store.EntryType, data []byte) error {
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

	err = s.update(func(txn *badger.Txn) error {
		if _, err := txn.Get(entryKey(path)); err == nil {
			return store.NewError(store.ErrAlreadyExists, "path already exists", path)
		} else if err != badger.ErrKeyNotFound {
			return err
		}

		parentPath, name := store.SplitPath(path)
		parent, err := getEntry(txn, parentPath)
		if err != nil {
			if se, ok := store.AsError(err); ok && se.Code == store.ErrNotFound {
				return store.NewError(store.ErrNotFound, "parent directory not found", parentPath)
			}
			return err
		}
		if parent.Type != int(store.TypeDirectory) {
			return store.NewError(store.ErrNotDirectory, "parent is not a directory", parentPath)
		}

		if typ == store.TypeFile {
			if err := s.chargeLocked(uint64(len(data))); err != nil {
				return err
			}
		}

		now := time.Now()
		permissions := uint32(store.DefaultDirectoryPermissions)
		var size uint64
		if typ == store.TypeFile {
			permissions = store.DefaultFilePermissions
			size = uint64(len(data))
		}

		rec := entryRecord{
			Name:        name,
			Type:        int(typ),
			Size:        size,
			Owner:       owner,
			Permissions: permissions,
			CreatedAt:   now,
			ModifiedAt:  now,
		}
		if err := setJSON(txn, entryKey(path), &rec); err != nil {
			return err
		}
		if typ == store.TypeFile {
			if err := txn.Set(contentKey(path), append([]byte(nil), data...)); err != nil {
				return err
			}
		}
		if err := txn.Set(childKey(parentPath, name), nil); err != nil {
			return err
		}
		return touch(txn, parentPath, parent, now)
	})
	if err != nil && typ == store.TypeFile {
		// A failed commit after chargeLocked must give the bytes back,
		// unless the charge itself was what failed.
		if se, ok := store.AsError(err); !ok || se.Code != store.ErrNoSpace {
			s.refundLocked(uint64(len(data)))
		}
	}
	return err
}

// ReadFile returns a file's content.
func (s *BadgerStore) ReadFile(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := store.NormalizePath(path)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var data []byte
	err = s.view(func(txn *badger.Txn) error {
		rec, err := getEntry(txn, path)
		if err != nil {
			return err
		}
		if rec.Type == int(store.TypeDirectory) {
			return store.NewError(store.ErrIsDirectory, "path is a directory", path)
		}
		item, err := txn.Get(contentKey(path))
		if err == badger.ErrKeyNotFound {
			data = []byte{}
			return nil
		}
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// EditFile writes data at a byte offset, extending the file as needed.
func (s *BadgerStore) EditFile(ctx context.Context, path string, data []byte, offset uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := store.NormalizePath(path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var charged uint64
	err = s.update(func(txn *badger.Txn) error {
		rec, err := getEntry(txn, path)
		if err != nil {
			return err
		}
		if rec.Type == int(store.TypeDirectory) {
			return store.NewError(store.ErrIsDirectory, "path is a directory", path)
		}
		if offset > rec.Size {
			return store.NewError(store.ErrInvalidArgument, "offset beyond end of file", path)
		}

		newSize := rec.Size
		if end := offset + uint64(len(data)); end > newSize {
			newSize = end
		}
		if newSize > rec.Size {
			charged = newSize - rec.Size
			if err := s.chargeLocked(charged); err != nil {
				charged = 0
				return err
			}
		}

		var content []byte
		if item, err := txn.Get(contentKey(path)); err == nil {
			if content, err = item.ValueCopy(nil); err != nil {
				return err
			}
		} else if err != badger.ErrKeyNotFound {
			return err
		}
		if uint64(len(content)) < newSize {
			grown := make([]byte, newSize)
			copy(grown, content)
			content = grown
		}
		copy(content[offset:], data)

		if err := txn.Set(contentKey(path), content); err != nil {
			return err
		}
		rec.Size = newSize
		rec.ModifiedAt = time.Now()
		return setJSON(txn, entryKey(path), rec)
	})
	if err != nil && charged > 0 {
		s.refundLocked(charged)
	}
	return err
}

// TruncateFile discards a file's content.
func (s *BadgerStore) TruncateFile(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := store.NormalizePath(path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var freed uint64
	err = s.update(func(txn *badger.Txn) error {
		rec, err := getEntry(txn, path)
		if err != nil {
			return err
		}
		if rec.Type == int(store.TypeDirectory) {
			return store.NewError(store.ErrIsDirectory, "path is a directory", path)
		}
		freed = rec.Size
		if err := txn.Delete(contentKey(path)); err != nil {
			return err
		}
		rec.Size = 0
		rec.ModifiedAt = time.Now()
		return setJSON(txn, entryKey(path), rec)
	})
	if err == nil {
		s.refundLocked(freed)
	}
	return err
}

// DeleteFile removes a file.
func (s *BadgerStore) DeleteFile(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := store.NormalizePath(path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var freed uint64
	err = s.update(func(txn *badger.Txn) error {
		rec, err := getEntry(txn, path)
		if err != nil {
			return err
		}
		if rec.Type == int(store.TypeDirectory) {
			return store.NewError(store.ErrIsDirectory, "path is a directory", path)
		}
		freed = rec.Size
		return s.detach(txn, path)
	})
	if err == nil {
		s.refundLocked(freed)
	}
	return err
}

// DeleteDirectory removes an empty directory. Non-recursive: a populated
// directory is refused.
func (s *BadgerStore) DeleteDirectory(ctx context.Context, path string) error {
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

	return s.update(func(txn *badger.Txn) error {
		rec, err := getEntry(txn, path)
		if err != nil {
			return err
		}
		if rec.Type != int(store.TypeDirectory) {
			return store.NewError(store.ErrNotDirectory, "not a directory", path)
		}
		empty, err := isEmpty(txn, path)
		if err != nil {
			return err
		}
		if !empty {
			return store.NewError(store.ErrNotEmpty, "directory not empty", path)
		}
		return s.detach(txn, path)
	})
}

// Rename moves a file or directory. Directory renames rewrite every
// descendant key.
func (s *BadgerStore) Rename(ctx context.Context, oldPath, newPath string) error {
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

	return s.update(func(txn *badger.Txn) error {
		rec, err := getEntry(txn, oldPath)
		if err != nil {
			return err
		}
		if _, err := txn.Get(entryKey(newPath)); err == nil {
			return store.NewError(store.ErrAlreadyExists, "destination already exists", newPath)
		} else if err != badger.ErrKeyNotFound {
			return err
		}

		newParentPath, newName := store.SplitPath(newPath)
		newParent, err := getEntry(txn, newParentPath)
		if err != nil {
			if se, ok := store.AsError(err); ok && se.Code == store.ErrNotFound {
				return store.NewError(store.ErrNotFound, "parent directory not found", newParentPath)
			}
			return err
		}
		if newParent.Type != int(store.TypeDirectory) {
			return store.NewError(store.ErrNotDirectory, "parent is not a directory", newParentPath)
		}

		now := time.Now()
		oldParentPath, oldName := store.SplitPath(oldPath)

		if err := txn.Delete(entryKey(oldPath)); err != nil {
			return err
		}
		if err := txn.Delete(childKey(oldParentPath, oldName)); err != nil {
			return err
		}

		rec.Name = newName
		rec.ModifiedAt = now
		if err := setJSON(txn, entryKey(newPath), rec); err != nil {
			return err
		}
		if err := txn.Set(childKey(newParentPath, newName), nil); err != nil {
			return err
		}

		if rec.Type == int(store.TypeFile) {
			if err := moveKey(txn, contentKey(oldPath), contentKey(newPath)); err != nil {
				return err
			}
		} else {
			if err := s.rekeySubtree(txn, oldPath, newPath); err != nil {
				return err
			}
		}

		oldParent, err := getEntry(txn, oldParentPath)
		if err != nil {
			return err
		}
		if err := touch(txn, oldParentPath, oldParent, now); err != nil {
			return err
		}
		if oldParentPath == newParentPath {
			return nil
		}
		newParent, err = getEntry(txn, newParentPath)
		if err != nil {
			return err
		}
		return touch(txn, newParentPath, newParent, now)
	})
}

// GetMetadata returns the entry at a path.
func (s *BadgerStore) GetMetadata(ctx context.Context, path string) (*store.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := store.NormalizePath(path)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var entry store.Entry
	err = s.view(func(txn *badger.Txn) error {
		rec, err := getEntry(txn, path)
		if err != nil {
			return err
		}
		entry = rec.toEntry()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// SetPermissions replaces an entry's permission bitmask.
func (s *BadgerStore) SetPermissions(ctx context.Context, path string, permissions uint32) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := store.NormalizePath(path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.update(func(txn *badger.Txn) error {
		rec, err := getEntry(txn, path)
		if err != nil {
			return err
		}
		rec.Permissions = permissions
		rec.ModifiedAt = time.Now()
		return setJSON(txn, entryKey(path), rec)
	})
}

// detach deletes an entry's keys and removes it from its parent's children
// index, touching the parent's modification time.
func (s *BadgerStore) detach(txn *badger.Txn, path string) error {
	parentPath, name := store.SplitPath(path)
	if err := txn.Delete(entryKey(path)); err != nil {
		return err
	}
	if err := txn.Delete(contentKey(path)); err != nil {
		return err
	}
	if err := txn.Delete(childKey(parentPath, name)); err != nil {
		return err
	}
	parent, err := getEntry(txn, parentPath)
	if err != nil {
		return err
	}
	return touch(txn, parentPath, parent, time.Now())
}

// rekeySubtree rewrites every descendant's entry, content and children keys
// after a directory rename.
func (s *BadgerStore) rekeySubtree(txn *badger.Txn, oldPrefix, newPrefix string) error {
	type descendant struct {
		oldPath string
		entry   []byte
	}

	var descendants []descendant
	opts := badger.DefaultIteratorOptions
	it := txn.NewIterator(opts)
	prefix := []byte(entryPrefix + oldPrefix + "/")
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		raw, err := item.ValueCopy(nil)
		if err != nil {
			it.Close()
			return err
		}
		descendants = append(descendants, descendant{
			oldPath: string(item.Key()[len(entryPrefix):]),
			entry:   raw,
		})
	}
	it.Close()

	for _, d := range descendants {
		newPath := newPrefix + d.oldPath[len(oldPrefix):]

		if err := txn.Delete(entryKey(d.oldPath)); err != nil {
			return err
		}
		if err := txn.Set(entryKey(newPath), d.entry); err != nil {
			return err
		}
		if err := moveKey(txn, contentKey(d.oldPath), contentKey(newPath)); err != nil {
			return err
		}

		oldParent, name := store.SplitPath(d.oldPath)
		newParent, _ := store.SplitPath(newPath)
		if err := txn.Delete(childKey(oldParent, name)); err != nil {
			return err
		}
		if err := txn.Set(childKey(newParent, name), nil); err != nil {
			return err
		}
	}
	return nil
}

// moveKey copies a key's value to a new key and deletes the old one. Missing
// source keys are ignored.
func moveKey(txn *badger.Txn, from, to []byte) error {
	item, err := txn.Get(from)
	if err == badger.ErrKeyNotFound {
		return nil
	}
	if err != nil {
		return err
	}
	raw, err := item.ValueCopy(nil)
	if err != nil {
		return err
	}
	if err := txn.Set(to, raw); err != nil {
		return err
	}
	return txn.Delete(from)
}

// isEmpty reports whether a directory has any children.
func isEmpty(txn *badger.Txn, path string) (bool, error) {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()
	prefix := childScanPrefix(path)
	it.Seek(prefix)
	return !it.ValidForPrefix(prefix), nil
}

// touch persists a new modification time for an entry.
func touch(txn *badger.Txn, path string, rec *entryRecord, now time.Time) error {
	rec.ModifiedAt = now
	return setJSON(txn, entryKey(path), rec)
}

// joinChild builds a child's absolute path.
func joinChild(parent, name string) string {
	if parent == "/" {
		return "/" + name
	}
	return parent + "/" + name
}

// chargeLocked reserves bytes against the configured capacity. Caller holds
// the write lock.
func (s *BadgerStore) chargeLocked(bytes uint64) error {
	if s.used+bytes > s.cfg.TotalSize {
		return store.NewError(store.ErrNoSpace, "no space left", "")
	}
	s.used += bytes
	return nil
}

// refundLocked returns bytes to the pool. Caller holds the write lock.
func (s *BadgerStore) refundLocked(bytes uint64) {
	if bytes > s.used {
		s.used = 0
		return
	}
	s.used -= bytes
}
