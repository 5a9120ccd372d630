package server

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/fileverse/omnifs/internal/session"
	"github.com/fileverse/omnifs/pkg/protocol"
	"github.com/fileverse/omnifs/pkg/store"
	"github.com/fileverse/omnifs/pkg/store/memory"
)

type dispatchFixture struct {
	dispatcher *dispatcher
	sessions   *session.Manager
	store      store.Store
	shutdowns  int
}

func newDispatchFixture(t *testing.T) *dispatchFixture {
	t.Helper()
	st, err := memory.New(memory.Config{
		BcryptCost:    bcrypt.MinCost,
		AdminUsername: "admin",
		AdminPassword: "admin-secret",
	})
	require.NoError(t, err)
	require.NoError(t, st.CreateUser(context.Background(), "alice", "alice-pass", store.RoleNormal))

	f := &dispatchFixture{store: st}
	f.sessions = session.NewManager(st, 0)
	f.dispatcher = newDispatcher(st, f.sessions, func() { f.shutdowns++ })
	return f
}

func (f *dispatchFixture) call(op, sessionID string, params map[string]any) *protocol.Response {
	return f.dispatcher.Handle(context.Background(), &protocol.Request{
		Operation:  op,
		SessionID:  sessionID,
		Parameters: params,
		RequestID:  "test-req",
	})
}

func (f *dispatchFixture) login(t *testing.T, username, password string) string {
	t.Helper()
	resp := f.call(protocol.OpLogin, "", map[string]any{
		"username": username,
		"password": password,
	})
	require.True(t, resp.IsSuccess(), "login failed: %s", resp.ErrorMessage)
	require.NotEmpty(t, resp.SessionID)
	return resp.SessionID
}

func TestDispatch_LoginSuccess(t *testing.T) {
	f := newDispatchFixture(t)

	resp := f.call(protocol.OpLogin, "", map[string]any{
		"username": "alice",
		"password": "alice-pass",
	})
	require.True(t, resp.IsSuccess())
	assert.NotEmpty(t, resp.SessionID)
	assert.Equal(t, resp.SessionID, resp.Data["result_data"])
	assert.Equal(t, "test-req", resp.RequestID)
}

func TestDispatch_LoginBadCredentials(t *testing.T) {
	f := newDispatchFixture(t)

	resp := f.call(protocol.OpLogin, "", map[string]any{
		"username": "alice",
		"password": "nope",
	})
	require.False(t, resp.IsSuccess())
	assert.Equal(t, protocol.CodeInvalidCredentials, resp.ErrorCode)

	// Unknown user yields the identical code.
	resp = f.call(protocol.OpLogin, "", map[string]any{
		"username": "ghost",
		"password": "nope",
	})
	assert.Equal(t, protocol.CodeInvalidCredentials, resp.ErrorCode)
}

func TestDispatch_LoginMissingParams(t *testing.T) {
	f := newDispatchFixture(t)

	resp := f.call(protocol.OpLogin, "", map[string]any{"username": "alice"})
	assert.Equal(t, protocol.CodeMalformedRequest, resp.ErrorCode)
}

func TestDispatch_SessionCheckedBeforeParams(t *testing.T) {
	f := newDispatchFixture(t)

	// Missing parameters AND missing session: the session failure wins,
	// so unauthenticated probes learn nothing about parameter shapes.
	resp := f.call(protocol.OpCreateFile, "", nil)
	assert.Equal(t, protocol.CodeInvalidSession, resp.ErrorCode)

	resp = f.call(protocol.OpCreateFile, "bogus-token", nil)
	assert.Equal(t, protocol.CodeInvalidSession, resp.ErrorCode)

	// Unknown operations too.
	resp = f.call("drop_all_tables", "", nil)
	assert.Equal(t, protocol.CodeInvalidSession, resp.ErrorCode)
}

func TestDispatch_UnknownOperation(t *testing.T) {
	f := newDispatchFixture(t)
	sid := f.login(t, "alice", "alice-pass")

	resp := f.call("no_such_op", sid, nil)
	assert.Equal(t, protocol.CodeInvalidOperation, resp.ErrorCode)
}

func TestDispatch_RoleCheckedBeforeParams(t *testing.T) {
	f := newDispatchFixture(t)
	sid := f.login(t, "alice", "alice-pass")

	// Normal user calling an admin op with garbage params sees forbidden,
	// not malformed_request.
	resp := f.call(protocol.OpCreateUser, sid, nil)
	assert.Equal(t, protocol.CodeForbidden, resp.ErrorCode)

	resp = f.call(protocol.OpListUsers, sid, nil)
	assert.Equal(t, protocol.CodeForbidden, resp.ErrorCode)

	resp = f.call(protocol.OpShutdownSystem, sid, nil)
	assert.Equal(t, protocol.CodeForbidden, resp.ErrorCode)
	assert.Equal(t, 0, f.shutdowns)
}

func TestDispatch_LogoutInvalidatesSession(t *testing.T) {
	f := newDispatchFixture(t)
	sid := f.login(t, "alice", "alice-pass")

	resp := f.call(protocol.OpLogout, sid, nil)
	require.True(t, resp.IsSuccess())

	resp = f.call(protocol.OpSystemInfo, sid, nil)
	assert.Equal(t, protocol.CodeInvalidSession, resp.ErrorCode)

	// Repeated logout of a dead session is still invalid_session, since
	// the check precedes the idempotent removal.
	resp = f.call(protocol.OpLogout, sid, nil)
	assert.Equal(t, protocol.CodeInvalidSession, resp.ErrorCode)
}

func TestDispatch_TwoLoginsDistinctSessions(t *testing.T) {
	f := newDispatchFixture(t)

	first := f.login(t, "alice", "alice-pass")
	second := f.login(t, "alice", "alice-pass")
	assert.NotEqual(t, first, second)

	f.call(protocol.OpLogout, first, nil)

	resp := f.call(protocol.OpSystemInfo, second, nil)
	assert.True(t, resp.IsSuccess(), "second session must survive first logout")
}

func TestDispatch_FileRoundTrip(t *testing.T) {
	f := newDispatchFixture(t)
	sid := f.login(t, "alice", "alice-pass")

	content := "line1\nline2\t\"quoted\" \x01 end"
	resp := f.call(protocol.OpCreateFile, sid, map[string]any{
		"path": "/notes.txt",
		"data": content,
	})
	require.True(t, resp.IsSuccess(), resp.ErrorMessage)

	resp = f.call(protocol.OpReadFile, sid, map[string]any{"path": "/notes.txt"})
	require.True(t, resp.IsSuccess())
	assert.Equal(t, content, resp.Data["result_data"])
}

func TestDispatch_EditFile(t *testing.T) {
	f := newDispatchFixture(t)
	sid := f.login(t, "alice", "alice-pass")

	f.call(protocol.OpCreateFile, sid, map[string]any{"path": "/log.txt", "data": "hello"})

	resp := f.call(protocol.OpEditFile, sid, map[string]any{
		"path":  "/log.txt",
		"data":  " world",
		"index": 5.0,
	})
	require.True(t, resp.IsSuccess(), resp.ErrorMessage)

	resp = f.call(protocol.OpReadFile, sid, map[string]any{"path": "/log.txt"})
	assert.Equal(t, "hello world", resp.Data["result_data"])

	// Offset beyond the end is rejected.
	resp = f.call(protocol.OpEditFile, sid, map[string]any{
		"path":  "/log.txt",
		"data":  "x",
		"index": 100.0,
	})
	assert.Equal(t, protocol.CodeInvalidArgument, resp.ErrorCode)

	// Negative offsets too.
	resp = f.call(protocol.OpEditFile, sid, map[string]any{
		"path":  "/log.txt",
		"data":  "x",
		"index": -1.0,
	})
	assert.Equal(t, protocol.CodeInvalidArgument, resp.ErrorCode)
}

func TestDispatch_DeleteIsNotIdempotent(t *testing.T) {
	f := newDispatchFixture(t)
	sid := f.login(t, "alice", "alice-pass")

	f.call(protocol.OpCreateFile, sid, map[string]any{"path": "/a.txt", "data": ""})

	resp := f.call(protocol.OpDeleteFile, sid, map[string]any{"path": "/a.txt"})
	require.True(t, resp.IsSuccess())

	resp = f.call(protocol.OpDeleteFile, sid, map[string]any{"path": "/a.txt"})
	assert.Equal(t, protocol.CodeNotFound, resp.ErrorCode)
}

func TestDispatch_ListDirectory(t *testing.T) {
	f := newDispatchFixture(t)
	sid := f.login(t, "alice", "alice-pass")

	f.call(protocol.OpCreateDirectory, sid, map[string]any{"path": "/docs"})
	f.call(protocol.OpCreateFile, sid, map[string]any{"path": "/docs/b.txt", "data": "bb"})
	f.call(protocol.OpCreateDirectory, sid, map[string]any{"path": "/docs/a"})

	// Path normalization folds duplicate slashes.
	resp := f.call(protocol.OpListDirectory, sid, map[string]any{"path": "//docs/"})
	require.True(t, resp.IsSuccess(), resp.ErrorMessage)

	entries, ok := resp.Data["entries"].([]protocol.DirEntry)
	require.True(t, ok)
	require.Len(t, entries, 2)
	assert.Equal(t, "a", entries[0].Name)
	assert.Equal(t, protocol.EntryTypeDirectory, entries[0].Type)
	assert.Equal(t, "b.txt", entries[1].Name)
	assert.Equal(t, protocol.EntryTypeFile, entries[1].Type)
	assert.Equal(t, uint64(2), entries[1].Size)
	assert.Equal(t, "alice", entries[1].Owner)
}

func TestDispatch_DeleteDirectoryNotEmpty(t *testing.T) {
	f := newDispatchFixture(t)
	sid := f.login(t, "alice", "alice-pass")

	f.call(protocol.OpCreateDirectory, sid, map[string]any{"path": "/docs"})
	f.call(protocol.OpCreateFile, sid, map[string]any{"path": "/docs/a.txt", "data": ""})

	resp := f.call(protocol.OpDeleteDirectory, sid, map[string]any{"path": "/docs"})
	assert.Equal(t, protocol.CodeDirectoryNotEmpty, resp.ErrorCode)
}

func TestDispatch_RenameFile(t *testing.T) {
	f := newDispatchFixture(t)
	sid := f.login(t, "alice", "alice-pass")

	f.call(protocol.OpCreateFile, sid, map[string]any{"path": "/old.txt", "data": "x"})

	resp := f.call(protocol.OpRenameFile, sid, map[string]any{
		"path": "/old.txt",
		"new":  "/new.txt",
	})
	require.True(t, resp.IsSuccess(), resp.ErrorMessage)

	resp = f.call(protocol.OpExistsFile, sid, map[string]any{"path": "/new.txt"})
	assert.True(t, resp.IsSuccess())
	resp = f.call(protocol.OpExistsFile, sid, map[string]any{"path": "/old.txt"})
	assert.Equal(t, protocol.CodeNotFound, resp.ErrorCode)
}

func TestDispatch_ExistsChecksType(t *testing.T) {
	f := newDispatchFixture(t)
	sid := f.login(t, "alice", "alice-pass")

	f.call(protocol.OpCreateDirectory, sid, map[string]any{"path": "/docs"})
	f.call(protocol.OpCreateFile, sid, map[string]any{"path": "/a.txt", "data": ""})

	resp := f.call(protocol.OpExistsDirectory, sid, map[string]any{"path": "/docs"})
	assert.True(t, resp.IsSuccess())

	resp = f.call(protocol.OpExistsFile, sid, map[string]any{"path": "/docs"})
	assert.Equal(t, protocol.CodeIsADirectory, resp.ErrorCode)

	resp = f.call(protocol.OpExistsDirectory, sid, map[string]any{"path": "/a.txt"})
	assert.Equal(t, protocol.CodeNotADirectory, resp.ErrorCode)
}

func TestDispatch_GetMetadata(t *testing.T) {
	f := newDispatchFixture(t)
	sid := f.login(t, "alice", "alice-pass")

	f.call(protocol.OpCreateFile, sid, map[string]any{"path": "/a.txt", "data": "12345"})

	resp := f.call(protocol.OpGetMetadata, sid, map[string]any{"path": "/a.txt"})
	require.True(t, resp.IsSuccess())
	assert.Equal(t, "/a.txt", resp.Data["path"])
	assert.Equal(t, uint64(5), resp.Data["size"])
	assert.Equal(t, "alice", resp.Data["owner"])
	assert.Equal(t, protocol.EntryTypeFile, resp.Data["type"])
}

func TestDispatch_SetPermissions(t *testing.T) {
	f := newDispatchFixture(t)
	sid := f.login(t, "alice", "alice-pass")

	f.call(protocol.OpCreateFile, sid, map[string]any{"path": "/a.txt", "data": ""})

	resp := f.call(protocol.OpSetPermissions, sid, map[string]any{
		"path":        "/a.txt",
		"permissions": float64(0o600),
	})
	require.True(t, resp.IsSuccess(), resp.ErrorMessage)

	resp = f.call(protocol.OpGetMetadata, sid, map[string]any{"path": "/a.txt"})
	assert.Equal(t, uint32(0o600), resp.Data["permissions"])

	resp = f.call(protocol.OpSetPermissions, sid, map[string]any{
		"path":        "/a.txt",
		"permissions": 4096.0,
	})
	assert.Equal(t, protocol.CodeInvalidArgument, resp.ErrorCode)
}

func TestDispatch_UserManagement(t *testing.T) {
	f := newDispatchFixture(t)
	admin := f.login(t, "admin", "admin-secret")

	// Role arrives as a digit string, the way the original clients sent it.
	resp := f.call(protocol.OpCreateUser, admin, map[string]any{
		"username": "bob",
		"password": "bob-pass",
		"role":     "0",
	})
	require.True(t, resp.IsSuccess(), resp.ErrorMessage)

	resp = f.call(protocol.OpListUsers, admin, nil)
	require.True(t, resp.IsSuccess())
	users, ok := resp.Data["users"].([]protocol.UserRecord)
	require.True(t, ok)
	require.Len(t, users, 3)

	f.login(t, "bob", "bob-pass")

	resp = f.call(protocol.OpDeleteUser, admin, map[string]any{"username": "bob"})
	require.True(t, resp.IsSuccess())

	resp = f.call(protocol.OpCreateUser, admin, map[string]any{
		"username": "carol",
		"password": "x",
		"role":     7.0,
	})
	assert.Equal(t, protocol.CodeInvalidArgument, resp.ErrorCode)
}

func TestDispatch_SystemInfo(t *testing.T) {
	f := newDispatchFixture(t)
	sid := f.login(t, "alice", "alice-pass")

	f.call(protocol.OpCreateFile, sid, map[string]any{"path": "/a.txt", "data": "abc"})

	for _, op := range []string{protocol.OpSystemInfo, protocol.OpGetStats} {
		resp := f.call(op, sid, nil)
		require.True(t, resp.IsSuccess(), op)
		assert.Equal(t, uint64(3), resp.Data["used_space"], op)
		assert.Equal(t, uint64(1), resp.Data["total_files"], op)
	}
}

func TestDispatch_GetSessionInfo(t *testing.T) {
	f := newDispatchFixture(t)
	sid := f.login(t, "alice", "alice-pass")

	resp := f.call(protocol.OpGetSessionInfo, sid, nil)
	require.True(t, resp.IsSuccess())
	assert.Equal(t, "alice", resp.Data["username"])
	assert.Equal(t, int(store.RoleNormal), resp.Data["role"])
	assert.NotZero(t, resp.Data["login_time"])
}

func TestDispatch_ShutdownSystem(t *testing.T) {
	f := newDispatchFixture(t)
	admin := f.login(t, "admin", "admin-secret")

	resp := f.call(protocol.OpShutdownSystem, admin, nil)
	require.True(t, resp.IsSuccess())
	assert.Equal(t, 1, f.shutdowns)
}

func TestDispatch_FormatSystem(t *testing.T) {
	f := newDispatchFixture(t)
	admin := f.login(t, "admin", "admin-secret")
	alice := f.login(t, "alice", "alice-pass")

	f.call(protocol.OpCreateFile, admin, map[string]any{"path": "/a.txt", "data": "x"})

	resp := f.call(protocol.OpFormatSystem, admin, nil)
	require.True(t, resp.IsSuccess(), resp.ErrorMessage)

	// Format wipes all sessions along with the data.
	resp = f.call(protocol.OpSystemInfo, alice, nil)
	assert.Equal(t, protocol.CodeInvalidSession, resp.ErrorCode)
	resp = f.call(protocol.OpSystemInfo, admin, nil)
	assert.Equal(t, protocol.CodeInvalidSession, resp.ErrorCode)

	// The filesystem is empty and the alice account is gone with it.
	admin = f.login(t, "admin", "admin-secret")
	resp = f.call(protocol.OpListDirectory, admin, map[string]any{"path": "/"})
	require.True(t, resp.IsSuccess())
	assert.Empty(t, resp.Data["entries"])
}

func TestDispatch_MissingOperation(t *testing.T) {
	f := newDispatchFixture(t)

	resp := f.call("", "", nil)
	assert.Equal(t, protocol.CodeMalformedRequest, resp.ErrorCode)
}
