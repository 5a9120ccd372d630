// Package protocol defines the OmniFS wire contract: the request/response
// document shapes, the operation catalog, the stable error code taxonomy and
// the framing codec used on the byte stream.
//
// Every exchange is a single JSON document in each direction. Requests carry
// an operation name, a session token, a flat parameter map and a
// caller-unique request id. Responses carry exactly one of a data payload
// (status "success") or an error code plus human-readable message
// (status "error").
package protocol

import "fmt"

// Operation names recognized by the dispatcher.
const (
	OpLogin           = "login"
	OpLogout          = "logout"
	OpListDirectory   = "list_directory"
	OpCreateFile      = "create_file"
	OpCreateDirectory = "create_directory"
	OpReadFile        = "read_file"
	OpEditFile        = "edit_file"
	OpDeleteFile      = "delete_file"
	OpDeleteDirectory = "delete_directory"
	OpRenameFile      = "rename_file"
	OpTruncateFile    = "truncate_file"
	OpExistsFile      = "exists_file"
	OpExistsDirectory = "exists_directory"
	OpGetMetadata     = "get_metadata"
	OpSetPermissions  = "set_permissions"
	OpCreateUser      = "create_user"
	OpDeleteUser      = "delete_user"
	OpListUsers       = "list_users"
	OpSystemInfo      = "system_info"
	OpGetStats        = "get_stats"
	OpGetSessionInfo  = "get_session_info"
	OpShutdownSystem  = "shutdown_system"
	OpFormatSystem    = "format_system"
)

// Response status values. Exactly one of Data or ErrorMessage is populated
// depending on the status.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Entry type values as they appear on the wire.
const (
	EntryTypeFile      = 0
	EntryTypeDirectory = 1
)

// Request is the single document a client sends per call.
type Request struct {
	// Operation is one of the Op* constants.
	Operation string `json:"operation"`

	// SessionID is the opaque token from a prior login. It may be empty
	// only for the login operation itself.
	SessionID string `json:"session_id"`

	// Parameters holds the operation's arguments. Values are strings or
	// numbers; the dispatcher validates presence and types per operation.
	Parameters map[string]any `json:"parameters,omitempty"`

	// RequestID is caller-generated and unique per attempt. It is echoed
	// back in the response for tracing and is the natural idempotency key
	// for callers that need one.
	RequestID string `json:"request_id"`
}

// Response is the single document the server sends per call.
type Response struct {
	Status    string `json:"status"`
	Operation string `json:"operation,omitempty"`
	RequestID string `json:"request_id,omitempty"`

	// SessionID is set on successful login responses only.
	SessionID string `json:"session_id,omitempty"`

	// Data is present iff Status is "success".
	Data map[string]any `json:"data,omitempty"`

	// ErrorCode and ErrorMessage are present iff Status is "error".
	// ErrorCode is stable and machine-readable; ErrorMessage is for humans.
	ErrorCode    ErrorCode `json:"error_code,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

// IsSuccess reports whether the response carries a success status.
func (r *Response) IsSuccess() bool {
	return r.Status == StatusSuccess
}

// Err returns a Go error describing the response failure, or nil on success.
func (r *Response) Err() error {
	if r.IsSuccess() {
		return nil
	}
	return fmt.Errorf("%s (code %d)", r.ErrorMessage, r.ErrorCode)
}

// DirEntry is one child of a directory as returned by list_directory.
type DirEntry struct {
	Name        string `json:"name"`
	Type        int    `json:"type"`
	Size        uint64 `json:"size"`
	Owner       string `json:"owner"`
	Permissions uint32 `json:"permissions"`
}

// UserRecord is one account as returned by list_users. Passwords are never
// serialized.
type UserRecord struct {
	Username string `json:"username"`
	Role     int    `json:"role"`
	IsActive bool   `json:"is_active"`
}

// StringParam extracts a required string parameter from the request.
func (r *Request) StringParam(key string) (string, bool) {
	v, ok := r.Parameters[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// IntParam extracts a required integer parameter. JSON numbers arrive as
// float64; strings holding digits are accepted for compatibility with the
// original clients, which sent numeric fields both ways.
func (r *Request) IntParam(key string) (int64, bool) {
	v, ok := r.Parameters[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int:
		return int64(n), true
	case int64:
		return n, true
	case string:
		var parsed int64
		if _, err := fmt.Sscanf(n, "%d", &parsed); err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}
