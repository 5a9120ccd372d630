package server

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/fileverse/omnifs/internal/session"
	"github.com/fileverse/omnifs/pkg/protocol"
	"github.com/fileverse/omnifs/pkg/store"
	"github.com/fileverse/omnifs/pkg/store/memory"
)

// startTestServer runs a server on a random loopback port and returns its
// address. The server is stopped when the test ends.
func startTestServer(t *testing.T, framing protocol.FramingMode) string {
	t.Helper()

	st, err := memory.New(memory.Config{
		BcryptCost:    bcrypt.MinCost,
		AdminUsername: "admin",
		AdminPassword: "admin-secret",
	})
	require.NoError(t, err)
	require.NoError(t, st.CreateUser(context.Background(), "alice", "alice-pass", store.RoleNormal))

	srv := New(Config{
		Host:    "127.0.0.1",
		Port:    0,
		Framing: framing,
	}, st, session.NewManager(st, 0))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("server did not stop")
		}
	})

	deadline := time.Now().Add(2 * time.Second)
	for srv.Addr() == nil {
		if time.Now().After(deadline) {
			t.Fatal("server did not start listening")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return srv.Addr().String()
}

func call(t *testing.T, conn net.Conn, framing protocol.FramingMode, req *protocol.Request) *protocol.Response {
	t.Helper()
	require.NoError(t, protocol.WriteMessage(conn, req, framing))
	resp, err := protocol.ReadResponse(conn, framing, 0)
	require.NoError(t, err)
	return resp
}

func TestServer_EndToEnd(t *testing.T) {
	addr := startTestServer(t, protocol.FramingLength)

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	login := call(t, conn, protocol.FramingLength, &protocol.Request{
		Operation:  protocol.OpLogin,
		Parameters: map[string]any{"username": "alice", "password": "alice-pass"},
		RequestID:  "r1",
	})
	require.True(t, login.IsSuccess(), login.ErrorMessage)
	sid := login.SessionID
	require.NotEmpty(t, sid)
	assert.Equal(t, "r1", login.RequestID)
	assert.Equal(t, protocol.OpLogin, login.Operation)

	create := call(t, conn, protocol.FramingLength, &protocol.Request{
		Operation:  protocol.OpCreateFile,
		SessionID:  sid,
		Parameters: map[string]any{"path": "/hello.txt", "data": "hi there\n"},
		RequestID:  "r2",
	})
	require.True(t, create.IsSuccess(), create.ErrorMessage)

	read := call(t, conn, protocol.FramingLength, &protocol.Request{
		Operation:  protocol.OpReadFile,
		SessionID:  sid,
		Parameters: map[string]any{"path": "/hello.txt"},
		RequestID:  "r3",
	})
	require.True(t, read.IsSuccess())
	assert.Equal(t, "hi there\n", read.Data["result_data"])

	list := call(t, conn, protocol.FramingLength, &protocol.Request{
		Operation:  protocol.OpListDirectory,
		SessionID:  sid,
		Parameters: map[string]any{"path": "/"},
		RequestID:  "r4",
	})
	require.True(t, list.IsSuccess())
	entries, ok := list.Data["entries"].([]any)
	require.True(t, ok)
	require.Len(t, entries, 1)
	entry, ok := entries[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "hello.txt", entry["name"])
	assert.Equal(t, float64(protocol.EntryTypeFile), entry["type"])
	assert.Equal(t, "alice", entry["owner"])

	logout := call(t, conn, protocol.FramingLength, &protocol.Request{
		Operation: protocol.OpLogout,
		SessionID: sid,
		RequestID: "r5",
	})
	require.True(t, logout.IsSuccess())

	stale := call(t, conn, protocol.FramingLength, &protocol.Request{
		Operation: protocol.OpSystemInfo,
		SessionID: sid,
		RequestID: "r6",
	})
	assert.Equal(t, protocol.CodeInvalidSession, stale.ErrorCode)
}

func TestServer_ScanFramingCompat(t *testing.T) {
	addr := startTestServer(t, protocol.FramingScan)

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	login := call(t, conn, protocol.FramingScan, &protocol.Request{
		Operation:  protocol.OpLogin,
		Parameters: map[string]any{"username": "admin", "password": "admin-secret"},
		RequestID:  "r1",
	})
	require.True(t, login.IsSuccess(), login.ErrorMessage)

	info := call(t, conn, protocol.FramingScan, &protocol.Request{
		Operation: protocol.OpSystemInfo,
		SessionID: login.SessionID,
		RequestID: "r2",
	})
	require.True(t, info.IsSuccess())
	assert.NotNil(t, info.Data["total_size"])
}

func TestServer_MalformedRequestGetsResponse(t *testing.T) {
	addr := startTestServer(t, protocol.FramingLength)

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	// A correctly framed payload that is not JSON must yield an error
	// response, not a silent hang or drop.
	payload := []byte("this is not json")
	header := []byte{0, 0, 0, byte(len(payload))}
	_, err = conn.Write(append(header, payload...))
	require.NoError(t, err)

	resp, err := protocol.ReadResponse(conn, protocol.FramingLength, 0)
	require.NoError(t, err)
	assert.Equal(t, protocol.CodeMalformedRequest, resp.ErrorCode)
}

func TestServer_ConcurrentConnections(t *testing.T) {
	addr := startTestServer(t, protocol.FramingLength)

	sessions := make([]string, 2)
	conns := make([]net.Conn, 2)
	for i := range conns {
		conn, err := net.Dial("tcp", addr)
		require.NoError(t, err)
		defer conn.Close()
		conns[i] = conn

		login := call(t, conn, protocol.FramingLength, &protocol.Request{
			Operation:  protocol.OpLogin,
			Parameters: map[string]any{"username": "alice", "password": "alice-pass"},
			RequestID:  "r",
		})
		require.True(t, login.IsSuccess())
		sessions[i] = login.SessionID
	}

	assert.NotEqual(t, sessions[0], sessions[1], "each login creates a distinct session")

	// Sessions are not bound to connections: the second connection can use
	// the first session's token.
	resp := call(t, conns[1], protocol.FramingLength, &protocol.Request{
		Operation: protocol.OpGetSessionInfo,
		SessionID: sessions[0],
		RequestID: "r",
	})
	require.True(t, resp.IsSuccess())
	assert.Equal(t, "alice", resp.Data["username"])
}

func TestServer_RequestThrottle(t *testing.T) {
	st, err := memory.New(memory.Config{
		BcryptCost:    bcrypt.MinCost,
		AdminUsername: "admin",
		AdminPassword: "admin-secret",
	})
	require.NoError(t, err)

	srv := New(Config{
		Host:         "127.0.0.1",
		Port:         0,
		RequestRate:  10,
		RequestBurst: 1,
	}, st, session.NewManager(st, 0))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	deadline := time.Now().Add(2 * time.Second)
	for srv.Addr() == nil {
		if time.Now().After(deadline) {
			t.Fatal("server did not start listening")
		}
		time.Sleep(5 * time.Millisecond)
	}

	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	login := call(t, conn, protocol.FramingLength, &protocol.Request{
		Operation:  protocol.OpLogin,
		Parameters: map[string]any{"username": "admin", "password": "admin-secret"},
		RequestID:  "r1",
	})
	require.True(t, login.IsSuccess())

	// Burst of 1 at 10 req/s: three more requests need at least two refill
	// intervals (~200ms). Requests are delayed, never rejected.
	start := time.Now()
	for i := 0; i < 3; i++ {
		resp := call(t, conn, protocol.FramingLength, &protocol.Request{
			Operation: protocol.OpSystemInfo,
			SessionID: login.SessionID,
			RequestID: "r",
		})
		require.True(t, resp.IsSuccess())
	}
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
}

func TestServer_ShutdownOperationStopsServer(t *testing.T) {
	st, err := memory.New(memory.Config{
		BcryptCost:    bcrypt.MinCost,
		AdminUsername: "admin",
		AdminPassword: "admin-secret",
	})
	require.NoError(t, err)

	srv := New(Config{Host: "127.0.0.1", Port: 0}, st, session.NewManager(st, 0))

	done := make(chan error, 1)
	go func() { done <- srv.Serve(context.Background()) }()

	deadline := time.Now().Add(2 * time.Second)
	for srv.Addr() == nil {
		if time.Now().After(deadline) {
			t.Fatal("server did not start listening")
		}
		time.Sleep(5 * time.Millisecond)
	}

	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	login := call(t, conn, protocol.FramingLength, &protocol.Request{
		Operation:  protocol.OpLogin,
		Parameters: map[string]any{"username": "admin", "password": "admin-secret"},
		RequestID:  "r1",
	})
	require.True(t, login.IsSuccess())

	// The shutdown response is written before the server exits.
	resp := call(t, conn, protocol.FramingLength, &protocol.Request{
		Operation: protocol.OpShutdownSystem,
		SessionID: login.SessionID,
		RequestID: "r2",
	})
	require.True(t, resp.IsSuccess())

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down after shutdown_system")
	}
}
