package store

import "context"

// Store is the facade the dispatcher calls. Every method is atomic and
// durable from the caller's perspective: partial writes are never
// observable. All paths are normalized with NormalizePath before methods
// see them; implementations may assume canonical input but must tolerate
// re-normalizing.
//
// Methods return *Error for domain failures. Any other error is treated as
// internal by the dispatcher.
type Store interface {
	// ListDirectory returns the children of a directory, sorted by name.
	ListDirectory(ctx context.Context, path string) ([]Entry, error)

	// CreateFile creates a file with the given content. Fails with
	// ErrAlreadyExists if the path exists (file or directory) and
	// ErrNotFound if the parent directory is absent.
	CreateFile(ctx context.Context, path string, data []byte, owner string) error

	// CreateDirectory creates an empty directory under an existing
	// parent, with the same existence rules as CreateFile.
	CreateDirectory(ctx context.Context, path string, owner string) error

	// ReadFile returns a file's full content. Fails with ErrIsDirectory
	// if the path names a directory.
	ReadFile(ctx context.Context, path string) ([]byte, error)

	// EditFile writes data at the given byte offset, extending the file
	// if the write runs past the current end. An offset greater than the
	// current size is ErrInvalidArgument; an offset equal to it appends.
	EditFile(ctx context.Context, path string, data []byte, offset uint64) error

	// TruncateFile discards a file's content, leaving it empty.
	TruncateFile(ctx context.Context, path string) error

	// DeleteFile removes a file. Deleting a directory through this
	// method is ErrIsDirectory.
	DeleteFile(ctx context.Context, path string) error

	// DeleteDirectory removes an empty directory. A populated directory
	// is ErrNotEmpty; the root is ErrInvalidArgument.
	DeleteDirectory(ctx context.Context, path string) error

	// Rename moves a file or directory to a new path. The destination
	// must not exist and its parent must.
	Rename(ctx context.Context, oldPath, newPath string) error

	// GetMetadata returns the entry at a path, file or directory.
	GetMetadata(ctx context.Context, path string) (*Entry, error)

	// SetPermissions replaces the permission bitmask of an entry.
	SetPermissions(ctx context.Context, path string, permissions uint32) error

	// Authenticate verifies credentials and returns the account.
	// ErrInvalidCredentials covers both unknown usernames and wrong
	// passwords; ErrAccountInactive is reported for disabled accounts
	// with a correct password.
	Authenticate(ctx context.Context, username, password string) (*User, error)

	// CreateUser adds an account with a freshly hashed password.
	CreateUser(ctx context.Context, username, password string, role Role) error

	// DeleteUser removes an account. Existing sessions for the user are
	// the session manager's concern, not the store's.
	DeleteUser(ctx context.Context, username string) error

	// ListUsers returns all accounts sorted by username.
	ListUsers(ctx context.Context) ([]User, error)

	// Stats returns the aggregate filesystem counters.
	Stats(ctx context.Context) (*Stats, error)

	// Format resets the store to a pristine root directory plus the
	// seeded admin account.
	Format(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}
