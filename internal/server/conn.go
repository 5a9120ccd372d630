package server

import (
	"context"
	"errors"
	"io"
	"net"
	"time"

	"github.com/fileverse/omnifs/internal/logger"
	"github.com/fileverse/omnifs/pkg/protocol"
)

type conn struct {
	server *Server
	conn   net.Conn
}

// serve reads framed requests until the client disconnects, the context is
// cancelled or shutdown is requested. Responses are written back on the same
// connection in request order.
func (c *conn) serve(ctx context.Context) {
	defer c.conn.Close()
	logger.Debug("new connection from %s", c.conn.RemoteAddr())

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.server.shutdown:
			return
		default:
			if err := c.handleRequest(ctx); err != nil {
				if err != io.EOF {
					logger.Debug("connection %s: %v", c.conn.RemoteAddr(), err)
				}
				return
			}
		}
	}
}

// handleRequest reads one request, dispatches it and writes the response.
// A malformed document still gets an error response so clients are never
// left waiting; the connection is then closed because framing cannot be
// trusted afterwards.
func (c *conn) handleRequest(ctx context.Context) error {
	if t := c.server.cfg.IdleTimeout; t > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(t)); err != nil {
			return err
		}
	}

	req, err := protocol.ReadRequest(c.conn, c.server.cfg.Framing, c.server.cfg.MaxMessageSize)
	if err != nil {
		if err == io.EOF {
			return io.EOF
		}
		if errors.Is(err, protocol.ErrMalformedMessage) || errors.Is(err, protocol.ErrMessageTooLarge) {
			resp := protocol.ErrorResponse("", "", protocol.CodeMalformedRequest, err.Error())
			_ = c.writeResponse(resp)
		}
		return err
	}

	// Throttle before dispatch so a flooding client slows down instead of
	// being disconnected.
	if err := c.server.limiter.Wait(ctx); err != nil {
		return err
	}

	start := time.Now()
	resp := c.server.dispatch.Handle(ctx, req)
	c.server.metrics.RecordRequest(req.Operation, resp.Status, time.Since(start))
	c.server.metrics.SetActiveSessions(c.server.sessions.Count())

	return c.writeResponse(resp)
}

func (c *conn) writeResponse(resp *protocol.Response) error {
	if t := c.server.cfg.IdleTimeout; t > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(t)); err != nil {
			return err
		}
	}
	return protocol.WriteMessage(c.conn, resp, c.server.cfg.Framing)
}
