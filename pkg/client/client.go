// Package client implements the OmniFS transport connector. Every call
// opens a fresh connection, sends one request document and reads one
// response, so calls never share connection state and a broken server
// cannot wedge later calls.
//
// Transport faults never surface as raw Go errors from Call: they are
// folded into a synthetic error Response carrying one of the client-local
// error codes, so callers handle every outcome through the same shape.
package client

import (
	"context"
	"errors"
	"net"
	"os"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/fileverse/omnifs/pkg/protocol"
)

// DefaultTimeout bounds one complete call: dial, send and receive.
const DefaultTimeout = 10 * time.Second

// Config holds connector settings.
type Config struct {
	// Address is the server's host:port.
	Address string

	// Timeout bounds one complete call. 0 means DefaultTimeout.
	Timeout time.Duration

	// Framing must match the server's configured mode.
	Framing protocol.FramingMode

	// MaxMessageSize bounds one response document. 0 means the protocol
	// default.
	MaxMessageSize int
}

// Connector performs request/response exchanges against one server.
// It is stateless apart from configuration and safe for concurrent use.
type Connector struct {
	cfg Config
}

// New creates a connector for the given server address.
func New(cfg Config) *Connector {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Connector{cfg: cfg}
}

// Call sends one request and returns the response. The request id is
// filled in when empty. The returned error is non-nil only for a misuse of
// the API (nil request); every transport outcome is expressed as a
// response.
//
// A timeout response means the outcome is unknown: the server may or may
// not have applied the operation. Callers that retry non-idempotent
// operations after a timeout must expect already_exists or not_found.
func (c *Connector) Call(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", c.cfg.Address)
	if err != nil {
		return c.faultResponse(req, err), nil
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return c.faultResponse(req, err), nil
		}
	}

	if err := protocol.WriteMessage(conn, req, c.cfg.Framing); err != nil {
		return c.faultResponse(req, err), nil
	}

	// Half-close the write side in scan mode so the server's parse loop
	// sees the document boundary even if the payload is a JSON prefix of
	// itself. Length mode does not need it.
	if c.cfg.Framing == protocol.FramingScan {
		if tcp, ok := conn.(*net.TCPConn); ok {
			_ = tcp.CloseWrite()
		}
	}

	resp, err := protocol.ReadResponse(conn, c.cfg.Framing, c.cfg.MaxMessageSize)
	if err != nil {
		return c.faultResponse(req, err), nil
	}
	return resp, nil
}

// faultResponse classifies a transport failure into the client-local codes.
func (c *Connector) faultResponse(req *protocol.Request, err error) *protocol.Response {
	code := protocol.CodeTransport
	switch {
	case isTimeout(err):
		code = protocol.CodeTimeout
	case errors.Is(err, syscall.ECONNREFUSED):
		code = protocol.CodeUnreachable
	}
	return protocol.ErrorResponse(req.Operation, req.RequestID, code, err.Error())
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
