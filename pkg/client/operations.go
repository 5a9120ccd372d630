package client

import (
	"context"
	"fmt"

	"github.com/fileverse/omnifs/pkg/protocol"
)

// Error is a failed call's outcome: the wire error code plus the
// human-readable message from the response.
type Error struct {
	Code    protocol.ErrorCode
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (code %d)", e.Message, e.Code)
}

// AsError extracts an *Error if err is one.
func AsError(err error) (*Error, bool) {
	ce, ok := err.(*Error)
	return ce, ok
}

// Session is a connector bound to a login token. Methods wrap the wire
// operations with typed parameters and results.
type Session struct {
	conn *Connector
	id   string
}

// ID returns the session token.
func (s *Session) ID() string {
	return s.id
}

// Login authenticates and returns a bound session.
func Login(ctx context.Context, conn *Connector, username, password string) (*Session, error) {
	resp, err := conn.Call(ctx, &protocol.Request{
		Operation: protocol.OpLogin,
		Parameters: map[string]any{
			"username": username,
			"password": password,
		},
	})
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, &Error{Code: resp.ErrorCode, Message: resp.ErrorMessage}
	}
	return &Session{conn: conn, id: resp.SessionID}, nil
}

// Resume binds an existing session token, for callers that obtained one out
// of band. The token is not checked until the first call.
func Resume(conn *Connector, sessionID string) *Session {
	return &Session{conn: conn, id: sessionID}
}

// call performs one session-scoped exchange and converts error responses.
func (s *Session) call(ctx context.Context, operation string, params map[string]any) (*protocol.Response, error) {
	resp, err := s.conn.Call(ctx, &protocol.Request{
		Operation:  operation,
		SessionID:  s.id,
		Parameters: params,
	})
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, &Error{Code: resp.ErrorCode, Message: resp.ErrorMessage}
	}
	return resp, nil
}

// Logout ends the session.
func (s *Session) Logout(ctx context.Context) error {
	_, err := s.call(ctx, protocol.OpLogout, nil)
	return err
}

// ListDirectory returns a directory's children.
func (s *Session) ListDirectory(ctx context.Context, path string) ([]protocol.DirEntry, error) {
	resp, err := s.call(ctx, protocol.OpListDirectory, map[string]any{"path": path})
	if err != nil {
		return nil, err
	}

	raw, _ := resp.Data["entries"].([]any)
	entries := make([]protocol.DirEntry, 0, len(raw))
	for _, item := range raw {
		doc, ok := item.(map[string]any)
		if !ok {
			continue
		}
		entries = append(entries, protocol.DirEntry{
			Name:        asString(doc["name"]),
			Type:        int(asFloat(doc["type"])),
			Size:        uint64(asFloat(doc["size"])),
			Owner:       asString(doc["owner"]),
			Permissions: uint32(asFloat(doc["permissions"])),
		})
	}
	return entries, nil
}

// CreateFile creates a file with the given content.
func (s *Session) CreateFile(ctx context.Context, path, data string) error {
	_, err := s.call(ctx, protocol.OpCreateFile, map[string]any{"path": path, "data": data})
	return err
}

// CreateDirectory creates an empty directory.
func (s *Session) CreateDirectory(ctx context.Context, path string) error {
	_, err := s.call(ctx, protocol.OpCreateDirectory, map[string]any{"path": path})
	return err
}

// ReadFile returns a file's content.
func (s *Session) ReadFile(ctx context.Context, path string) (string, error) {
	resp, err := s.call(ctx, protocol.OpReadFile, map[string]any{"path": path})
	if err != nil {
		return "", err
	}
	return asString(resp.Data["result_data"]), nil
}

// EditFile writes data at a byte offset.
func (s *Session) EditFile(ctx context.Context, path, data string, index int64) error {
	_, err := s.call(ctx, protocol.OpEditFile, map[string]any{
		"path":  path,
		"data":  data,
		"index": index,
	})
	return err
}

// DeleteFile removes a file.
func (s *Session) DeleteFile(ctx context.Context, path string) error {
	_, err := s.call(ctx, protocol.OpDeleteFile, map[string]any{"path": path})
	return err
}

// DeleteDirectory removes an empty directory.
func (s *Session) DeleteDirectory(ctx context.Context, path string) error {
	_, err := s.call(ctx, protocol.OpDeleteDirectory, map[string]any{"path": path})
	return err
}

// Rename moves a file or directory.
func (s *Session) Rename(ctx context.Context, path, newPath string) error {
	_, err := s.call(ctx, protocol.OpRenameFile, map[string]any{"path": path, "new": newPath})
	return err
}

// TruncateFile discards a file's content.
func (s *Session) TruncateFile(ctx context.Context, path string) error {
	_, err := s.call(ctx, protocol.OpTruncateFile, map[string]any{"path": path})
	return err
}

// ExistsFile reports whether a file exists at path.
func (s *Session) ExistsFile(ctx context.Context, path string) (bool, error) {
	return s.exists(ctx, protocol.OpExistsFile, path)
}

// ExistsDirectory reports whether a directory exists at path.
func (s *Session) ExistsDirectory(ctx context.Context, path string) (bool, error) {
	return s.exists(ctx, protocol.OpExistsDirectory, path)
}

func (s *Session) exists(ctx context.Context, operation, path string) (bool, error) {
	_, err := s.call(ctx, operation, map[string]any{"path": path})
	if err == nil {
		return true, nil
	}
	if ce, ok := AsError(err); ok && ce.Code == protocol.CodeNotFound {
		return false, nil
	}
	return false, err
}

// Metadata describes one filesystem entry.
type Metadata struct {
	Path        string
	Type        int
	Size        uint64
	Owner       string
	Permissions uint32
	CreatedAt   int64
	ModifiedAt  int64
}

// GetMetadata returns an entry's metadata.
func (s *Session) GetMetadata(ctx context.Context, path string) (*Metadata, error) {
	resp, err := s.call(ctx, protocol.OpGetMetadata, map[string]any{"path": path})
	if err != nil {
		return nil, err
	}
	return &Metadata{
		Path:        asString(resp.Data["path"]),
		Type:        int(asFloat(resp.Data["type"])),
		Size:        uint64(asFloat(resp.Data["size"])),
		Owner:       asString(resp.Data["owner"]),
		Permissions: uint32(asFloat(resp.Data["permissions"])),
		CreatedAt:   int64(asFloat(resp.Data["created_at"])),
		ModifiedAt:  int64(asFloat(resp.Data["modified_at"])),
	}, nil
}

// SetPermissions replaces an entry's permission bitmask.
func (s *Session) SetPermissions(ctx context.Context, path string, permissions uint32) error {
	_, err := s.call(ctx, protocol.OpSetPermissions, map[string]any{
		"path":        path,
		"permissions": permissions,
	})
	return err
}

// CreateUser adds an account. Admin only.
func (s *Session) CreateUser(ctx context.Context, username, password string, role int) error {
	_, err := s.call(ctx, protocol.OpCreateUser, map[string]any{
		"username": username,
		"password": password,
		"role":     role,
	})
	return err
}

// DeleteUser removes an account. Admin only.
func (s *Session) DeleteUser(ctx context.Context, username string) error {
	_, err := s.call(ctx, protocol.OpDeleteUser, map[string]any{"username": username})
	return err
}

// ListUsers returns all accounts. Admin only.
func (s *Session) ListUsers(ctx context.Context) ([]protocol.UserRecord, error) {
	resp, err := s.call(ctx, protocol.OpListUsers, nil)
	if err != nil {
		return nil, err
	}

	raw, _ := resp.Data["users"].([]any)
	users := make([]protocol.UserRecord, 0, len(raw))
	for _, item := range raw {
		doc, ok := item.(map[string]any)
		if !ok {
			continue
		}
		users = append(users, protocol.UserRecord{
			Username: asString(doc["username"]),
			Role:     int(asFloat(doc["role"])),
			IsActive: asBool(doc["is_active"]),
		})
	}
	return users, nil
}

// SystemInfo holds the server's aggregate counters.
type SystemInfo struct {
	TotalSize        uint64
	UsedSpace        uint64
	FreeSpace        uint64
	TotalFiles       uint64
	TotalDirectories uint64
}

// GetSystemInfo returns capacity and entry counts.
func (s *Session) GetSystemInfo(ctx context.Context) (*SystemInfo, error) {
	resp, err := s.call(ctx, protocol.OpSystemInfo, nil)
	if err != nil {
		return nil, err
	}
	return &SystemInfo{
		TotalSize:        uint64(asFloat(resp.Data["total_size"])),
		UsedSpace:        uint64(asFloat(resp.Data["used_space"])),
		FreeSpace:        uint64(asFloat(resp.Data["free_space"])),
		TotalFiles:       uint64(asFloat(resp.Data["total_files"])),
		TotalDirectories: uint64(asFloat(resp.Data["total_directories"])),
	}, nil
}

// SessionInfo describes the authenticated session.
type SessionInfo struct {
	Username  string
	Role      int
	LoginTime int64
}

// GetSessionInfo returns the session's identity.
func (s *Session) GetSessionInfo(ctx context.Context) (*SessionInfo, error) {
	resp, err := s.call(ctx, protocol.OpGetSessionInfo, nil)
	if err != nil {
		return nil, err
	}
	return &SessionInfo{
		Username:  asString(resp.Data["username"]),
		Role:      int(asFloat(resp.Data["role"])),
		LoginTime: int64(asFloat(resp.Data["login_time"])),
	}, nil
}

// Shutdown asks the server to stop. Admin only.
func (s *Session) Shutdown(ctx context.Context) error {
	_, err := s.call(ctx, protocol.OpShutdownSystem, nil)
	return err
}

// Format wipes the filesystem and user table. Admin only. All sessions,
// including this one, are invalidated.
func (s *Session) Format(ctx context.Context) error {
	_, err := s.call(ctx, protocol.OpFormatSystem, nil)
	return err
}

// JSON numbers decode as float64; these helpers absorb the type wobble.

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asFloat(v any) float64 {
	f, _ := v.(float64)
	return f
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}
