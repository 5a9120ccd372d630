package store

import "errors"

// Error is a domain error from store operations: business failures such as a
// missing path or a username collision, as opposed to infrastructure faults.
//
// The dispatcher translates Error codes into wire-level protocol error
// codes; stores never see the wire format.
type Error struct {
	// Code is the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Path is the filesystem path or username the error relates to, when
	// applicable.
	Path string
}

func (e *Error) Error() string {
	if e.Path != "" {
		return e.Message + ": " + e.Path
	}
	return e.Message
}

// ErrorCode is the category of a store error.
type ErrorCode int

const (
	// ErrNotFound indicates the requested file, directory or user does
	// not exist.
	ErrNotFound ErrorCode = iota

	// ErrAlreadyExists indicates a path or username collision.
	ErrAlreadyExists

	// ErrIsDirectory indicates the operation expected a file but got a
	// directory.
	ErrIsDirectory

	// ErrNotDirectory indicates the operation expected a directory but
	// got a file.
	ErrNotDirectory

	// ErrNotEmpty indicates a directory cannot be removed because it has
	// children.
	ErrNotEmpty

	// ErrInvalidArgument indicates invalid parameters: a malformed path,
	// an out-of-range offset, deleting the root.
	ErrInvalidArgument

	// ErrNoSpace indicates the configured capacity is exhausted.
	ErrNoSpace

	// ErrIOError indicates the backing storage failed to read or write.
	ErrIOError

	// ErrInvalidCredentials indicates authentication failed. Unknown
	// usernames and wrong passwords report the same code.
	ErrInvalidCredentials

	// ErrAccountInactive indicates the account exists but is disabled.
	ErrAccountInactive

	// ErrInternal indicates an unexpected implementation failure.
	ErrInternal
)

// NewError builds an Error with an explicit message.
func NewError(code ErrorCode, message, path string) *Error {
	return &Error{Code: code, Message: message, Path: path}
}

// AsError unwraps err into a *Error if it is one.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
