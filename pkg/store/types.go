// Package store defines the logical file and user store the dispatcher
// operates against: the entry model, the account model, the error taxonomy
// and the Store interface. Implementations live in the memory and badger
// subpackages; both present atomic per-operation semantics and are safe for
// concurrent use.
package store

import "time"

// EntryType distinguishes files from directories. The numeric values are
// part of the wire contract (list_directory serializes them as-is).
type EntryType int

const (
	TypeFile      EntryType = 0
	TypeDirectory EntryType = 1
)

// Role is a user's authorization level. The numeric values are part of the
// wire contract.
type Role int

const (
	RoleNormal Role = 0
	RoleAdmin  Role = 1
)

// Default permission bitmasks applied at creation time.
const (
	DefaultFilePermissions      uint32 = 0o644
	DefaultDirectoryPermissions uint32 = 0o755
)

// Entry describes one file or directory node.
type Entry struct {
	// Name is the final path component ("/" for the root).
	Name string

	Type EntryType

	// Size is the content length in bytes. Always 0 for directories.
	Size uint64

	// Owner is the username of the creating session's user.
	Owner string

	// Permissions is a POSIX-style bitmask. Mutable only via
	// SetPermissions.
	Permissions uint32

	CreatedAt  time.Time
	ModifiedAt time.Time
}

// User is one account. PasswordHash is a bcrypt hash and must never be
// serialized into a response.
type User struct {
	Username     string
	PasswordHash []byte
	Role         Role
	IsActive     bool
	CreatedAt    time.Time
}

// Stats are the aggregate counters returned by system_info.
type Stats struct {
	// TotalSize is the configured capacity in bytes.
	TotalSize uint64

	// UsedSpace is the sum of all file content sizes.
	UsedSpace uint64

	// FreeSpace is TotalSize - UsedSpace.
	FreeSpace uint64

	TotalFiles       uint64
	TotalDirectories uint64
}
