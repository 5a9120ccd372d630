package server

import (
	"context"

	"github.com/fileverse/omnifs/internal/logger"
	"github.com/fileverse/omnifs/internal/session"
	"github.com/fileverse/omnifs/pkg/protocol"
	"github.com/fileverse/omnifs/pkg/store"
)

// dispatcher routes one decoded request to its handler. Checks run in a
// fixed order: session validity, then role, then parameter validation. An
// unauthenticated caller always sees invalid_session, never a hint about
// which parameters an operation takes.
type dispatcher struct {
	store           store.Store
	sessions        *session.Manager
	requestShutdown func()
}

func newDispatcher(st store.Store, sessions *session.Manager, requestShutdown func()) *dispatcher {
	return &dispatcher{
		store:           st,
		sessions:        sessions,
		requestShutdown: requestShutdown,
	}
}

// adminOnly lists the operations reserved for administrator sessions.
var adminOnly = map[string]bool{
	protocol.OpCreateUser:     true,
	protocol.OpDeleteUser:     true,
	protocol.OpListUsers:      true,
	protocol.OpShutdownSystem: true,
	protocol.OpFormatSystem:   true,
}

// Handle executes one request and always produces a response.
func (d *dispatcher) Handle(ctx context.Context, req *protocol.Request) *protocol.Response {
	if req.Operation == "" {
		return protocol.ErrorResponse(req.Operation, req.RequestID, protocol.CodeMalformedRequest, "missing operation")
	}

	if req.Operation == protocol.OpLogin {
		return d.handleLogin(ctx, req)
	}

	sess, ok := d.sessions.Validate(req.SessionID)
	if !ok {
		return protocol.ErrorResponse(req.Operation, req.RequestID, protocol.CodeInvalidSession, "")
	}
	if adminOnly[req.Operation] && sess.Role != store.RoleAdmin {
		return protocol.ErrorResponse(req.Operation, req.RequestID, protocol.CodeForbidden, "")
	}

	var (
		data map[string]any
		err  error
	)
	switch req.Operation {
	case protocol.OpLogout:
		d.sessions.Logout(req.SessionID)
	case protocol.OpListDirectory:
		data, err = d.handleListDirectory(ctx, req)
	case protocol.OpCreateFile:
		err = d.handleCreateFile(ctx, sess, req)
	case protocol.OpCreateDirectory:
		err = d.handleCreateDirectory(ctx, sess, req)
	case protocol.OpReadFile:
		data, err = d.handleReadFile(ctx, req)
	case protocol.OpEditFile:
		err = d.handleEditFile(ctx, req)
	case protocol.OpDeleteFile:
		err = d.withPath(ctx, req, d.store.DeleteFile)
	case protocol.OpDeleteDirectory:
		err = d.withPath(ctx, req, d.store.DeleteDirectory)
	case protocol.OpRenameFile:
		err = d.handleRename(ctx, req)
	case protocol.OpTruncateFile:
		err = d.withPath(ctx, req, d.store.TruncateFile)
	case protocol.OpExistsFile:
		err = d.handleExists(ctx, req, store.TypeFile)
	case protocol.OpExistsDirectory:
		err = d.handleExists(ctx, req, store.TypeDirectory)
	case protocol.OpGetMetadata:
		data, err = d.handleGetMetadata(ctx, req)
	case protocol.OpSetPermissions:
		err = d.handleSetPermissions(ctx, req)
	case protocol.OpCreateUser:
		err = d.handleCreateUser(ctx, req)
	case protocol.OpDeleteUser:
		err = d.handleDeleteUser(ctx, req)
	case protocol.OpListUsers:
		data, err = d.handleListUsers(ctx)
	case protocol.OpSystemInfo, protocol.OpGetStats:
		data, err = d.handleStats(ctx)
	case protocol.OpGetSessionInfo:
		data = map[string]any{
			"username":   sess.Username,
			"role":       int(sess.Role),
			"login_time": sess.LoginTime.Unix(),
		}
	case protocol.OpShutdownSystem:
		logger.Warn("shutdown requested by %s", sess.Username)
		d.requestShutdown()
	case protocol.OpFormatSystem:
		logger.Warn("format requested by %s", sess.Username)
		err = d.store.Format(ctx)
		if err == nil {
			d.sessions.Close()
		}
	default:
		return protocol.ErrorResponse(req.Operation, req.RequestID, protocol.CodeInvalidOperation, "")
	}

	if err != nil {
		return errorResponse(req, err)
	}
	return protocol.SuccessResponse(req.Operation, req.RequestID, data)
}

func (d *dispatcher) handleLogin(ctx context.Context, req *protocol.Request) *protocol.Response {
	username, okU := req.StringParam("username")
	password, okP := req.StringParam("password")
	if !okU || !okP {
		return protocol.ErrorResponse(req.Operation, req.RequestID, protocol.CodeMalformedRequest, "login requires username and password")
	}

	sess, err := d.sessions.Login(ctx, username, password)
	if err != nil {
		return errorResponse(req, err)
	}

	resp := protocol.SuccessResponse(req.Operation, req.RequestID, map[string]any{
		"result_data": sess.ID,
	})
	resp.SessionID = sess.ID
	return resp
}

func (d *dispatcher) handleListDirectory(ctx context.Context, req *protocol.Request) (map[string]any, error) {
	path, ok := req.StringParam("path")
	if !ok {
		return nil, badParams("list_directory requires path")
	}
	entries, err := d.store.ListDirectory(ctx, path)
	if err != nil {
		return nil, err
	}

	wire := make([]protocol.DirEntry, 0, len(entries))
	for _, e := range entries {
		wire = append(wire, protocol.DirEntry{
			Name:        e.Name,
			Type:        int(e.Type),
			Size:        e.Size,
			Owner:       e.Owner,
			Permissions: e.Permissions,
		})
	}
	return map[string]any{"entries": wire}, nil
}

func (d *dispatcher) handleCreateFile(ctx context.Context, sess *session.Session, req *protocol.Request) error {
	path, okP := req.StringParam("path")
	data, okD := req.StringParam("data")
	if !okP || !okD {
		return badParams("create_file requires path and data")
	}
	return d.store.CreateFile(ctx, path, []byte(data), sess.Username)
}

func (d *dispatcher) handleCreateDirectory(ctx context.Context, sess *session.Session, req *protocol.Request) error {
	path, ok := req.StringParam("path")
	if !ok {
		return badParams("create_directory requires path")
	}
	return d.store.CreateDirectory(ctx, path, sess.Username)
}

func (d *dispatcher) handleReadFile(ctx context.Context, req *protocol.Request) (map[string]any, error) {
	path, ok := req.StringParam("path")
	if !ok {
		return nil, badParams("read_file requires path")
	}
	content, err := d.store.ReadFile(ctx, path)
	if err != nil {
		return nil, err
	}
	return map[string]any{"result_data": string(content)}, nil
}

func (d *dispatcher) handleEditFile(ctx context.Context, req *protocol.Request) error {
	path, okP := req.StringParam("path")
	data, okD := req.StringParam("data")
	index, okI := req.IntParam("index")
	if !okP || !okD || !okI {
		return badParams("edit_file requires path, data and index")
	}
	if index < 0 {
		return store.NewError(store.ErrInvalidArgument, "index must not be negative", path)
	}
	return d.store.EditFile(ctx, path, []byte(data), uint64(index))
}

func (d *dispatcher) handleRename(ctx context.Context, req *protocol.Request) error {
	oldPath, okO := req.StringParam("path")
	newPath, okN := req.StringParam("new")
	if !okO || !okN {
		return badParams("rename_file requires path and new")
	}
	return d.store.Rename(ctx, oldPath, newPath)
}

// handleExists reports existence through the status alone: success when the
// path exists with the wanted type, an error response otherwise.
func (d *dispatcher) handleExists(ctx context.Context, req *protocol.Request, want store.EntryType) error {
	path, ok := req.StringParam("path")
	if !ok {
		return badParams("exists check requires path")
	}
	entry, err := d.store.GetMetadata(ctx, path)
	if err != nil {
		return err
	}
	if entry.Type != want {
		if want == store.TypeFile {
			return store.NewError(store.ErrIsDirectory, "path is a directory", path)
		}
		return store.NewError(store.ErrNotDirectory, "path is not a directory", path)
	}
	return nil
}

func (d *dispatcher) handleGetMetadata(ctx context.Context, req *protocol.Request) (map[string]any, error) {
	path, ok := req.StringParam("path")
	if !ok {
		return nil, badParams("get_metadata requires path")
	}
	entry, err := d.store.GetMetadata(ctx, path)
	if err != nil {
		return nil, err
	}
	normalized, err := store.NormalizePath(path)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"path":        normalized,
		"type":        int(entry.Type),
		"size":        entry.Size,
		"owner":       entry.Owner,
		"permissions": entry.Permissions,
		"created_at":  entry.CreatedAt.Unix(),
		"modified_at": entry.ModifiedAt.Unix(),
	}, nil
}

func (d *dispatcher) handleSetPermissions(ctx context.Context, req *protocol.Request) error {
	path, okP := req.StringParam("path")
	permissions, okM := req.IntParam("permissions")
	if !okP || !okM {
		return badParams("set_permissions requires path and permissions")
	}
	if permissions < 0 || permissions > 0o777 {
		return store.NewError(store.ErrInvalidArgument, "permissions out of range", path)
	}
	return d.store.SetPermissions(ctx, path, uint32(permissions))
}

func (d *dispatcher) handleCreateUser(ctx context.Context, req *protocol.Request) error {
	username, okU := req.StringParam("username")
	password, okP := req.StringParam("password")
	role, okR := req.IntParam("role")
	if !okU || !okP || !okR {
		return badParams("create_user requires username, password and role")
	}
	if role != int64(store.RoleNormal) && role != int64(store.RoleAdmin) {
		return store.NewError(store.ErrInvalidArgument, "unknown role", username)
	}
	return d.store.CreateUser(ctx, username, password, store.Role(role))
}

func (d *dispatcher) handleDeleteUser(ctx context.Context, req *protocol.Request) error {
	username, ok := req.StringParam("username")
	if !ok {
		return badParams("delete_user requires username")
	}
	return d.store.DeleteUser(ctx, username)
}

func (d *dispatcher) handleListUsers(ctx context.Context) (map[string]any, error) {
	users, err := d.store.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	wire := make([]protocol.UserRecord, 0, len(users))
	for _, u := range users {
		wire = append(wire, protocol.UserRecord{
			Username: u.Username,
			Role:     int(u.Role),
			IsActive: u.IsActive,
		})
	}
	return map[string]any{"users": wire}, nil
}

func (d *dispatcher) handleStats(ctx context.Context) (map[string]any, error) {
	stats, err := d.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"total_size":        stats.TotalSize,
		"used_space":        stats.UsedSpace,
		"free_space":        stats.FreeSpace,
		"total_files":       stats.TotalFiles,
		"total_directories": stats.TotalDirectories,
	}, nil
}

// withPath runs a single-path store operation.
func (d *dispatcher) withPath(ctx context.Context, req *protocol.Request, op func(context.Context, string) error) error {
	path, ok := req.StringParam("path")
	if !ok {
		return badParams(req.Operation + " requires path")
	}
	return op(ctx, path)
}

// paramError marks a missing or type-invalid request parameter. It maps to
// the malformed_request wire code, distinct from invalid_argument which
// covers semantically bad values the store rejects.
type paramError string

func (e paramError) Error() string { return string(e) }

func badParams(msg string) error {
	return paramError(msg)
}

// errorResponse translates a handler failure into the wire taxonomy. Unknown
// error types map to internal, with the detail logged rather than leaked.
func errorResponse(req *protocol.Request, err error) *protocol.Response {
	if pe, ok := err.(paramError); ok {
		return protocol.ErrorResponse(req.Operation, req.RequestID, protocol.CodeMalformedRequest, pe.Error())
	}
	se, ok := store.AsError(err)
	if !ok {
		logger.Error("operation %s failed: %v", req.Operation, err)
		return protocol.ErrorResponse(req.Operation, req.RequestID, protocol.CodeInternal, "")
	}
	return protocol.ErrorResponse(req.Operation, req.RequestID, translateCode(se.Code), se.Message)
}

func translateCode(code store.ErrorCode) protocol.ErrorCode {
	switch code {
	case store.ErrNotFound:
		return protocol.CodeNotFound
	case store.ErrAlreadyExists:
		return protocol.CodeAlreadyExists
	case store.ErrIsDirectory:
		return protocol.CodeIsADirectory
	case store.ErrNotDirectory:
		return protocol.CodeNotADirectory
	case store.ErrNotEmpty:
		return protocol.CodeDirectoryNotEmpty
	case store.ErrInvalidArgument:
		return protocol.CodeInvalidArgument
	case store.ErrNoSpace:
		return protocol.CodeNoSpace
	case store.ErrIOError:
		return protocol.CodeIOError
	case store.ErrInvalidCredentials:
		return protocol.CodeInvalidCredentials
	case store.ErrAccountInactive:
		return protocol.CodeAccountInactive
	default:
		return protocol.CodeInternal
	}
}
