package protocol

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// FramingMode selects how message boundaries are determined on the stream.
type FramingMode int

const (
	// FramingLength prefixes every message with a 4-byte big-endian byte
	// count. This is the default and the only safe mode: the reader knows
	// exactly how many bytes to consume.
	FramingLength FramingMode = iota

	// FramingScan is the legacy compatibility mode: raw JSON with no
	// prefix. The reader accumulates bytes and retries the parse after
	// every chunk until the buffer forms a complete document or the peer
	// half-closes. A payload whose prefix happens to parse as complete
	// JSON is decoded prematurely; only enable this for old clients.
	FramingScan
)

// DefaultMaxMessageSize bounds a single request or response document.
const DefaultMaxMessageSize = 8 << 20

// scanChunkSize matches the receive buffer the legacy clients used.
const scanChunkSize = 4096

// ErrMalformedMessage reports bytes that do not decode as the expected
// document.
var ErrMalformedMessage = errors.New("malformed message")

// ErrMessageTooLarge reports a frame exceeding the configured limit.
var ErrMessageTooLarge = errors.New("message exceeds size limit")

// ParseFramingMode converts a configuration string to a FramingMode.
func ParseFramingMode(s string) (FramingMode, error) {
	switch s {
	case "", "length":
		return FramingLength, nil
	case "scan":
		return FramingScan, nil
	default:
		return FramingLength, fmt.Errorf("unknown framing mode %q", s)
	}
}

// WriteMessage encodes v as JSON and writes it as one framed message.
func WriteMessage(w io.Writer, v any, mode FramingMode) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	if mode == FramingLength {
		var header [4]byte
		binary.BigEndian.PutUint32(header[:], uint32(len(payload)))
		if _, err := w.Write(header[:]); err != nil {
			return fmt.Errorf("write frame header: %w", err)
		}
	}

	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}

// ReadDocument reads one framed message and returns its raw bytes. maxSize
// of 0 means DefaultMaxMessageSize. Returns io.EOF if the stream ends before
// any bytes arrive.
func ReadDocument(r io.Reader, mode FramingMode, maxSize int) ([]byte, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxMessageSize
	}
	if mode == FramingLength {
		return readLengthPrefixed(r, maxSize)
	}
	return readUntilValid(r, maxSize)
}

// ReadRequest reads and decodes one Request from the stream.
func ReadRequest(r io.Reader, mode FramingMode, maxSize int) (*Request, error) {
	raw, err := ReadDocument(r, mode, maxSize)
	if err != nil {
		return nil, err
	}
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	return &req, nil
}

// ReadResponse reads and decodes one Response from the stream.
func ReadResponse(r io.Reader, mode FramingMode, maxSize int) (*Response, error) {
	raw, err := ReadDocument(r, mode, maxSize)
	if err != nil {
		return nil, err
	}
	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	return &resp, nil
}

func readLengthPrefixed(r io.Reader, maxSize int) ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read frame header: %w", err)
	}

	length := binary.BigEndian.Uint32(header[:])
	if length == 0 {
		return nil, fmt.Errorf("%w: zero-length frame", ErrMalformedMessage)
	}
	if int(length) > maxSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrMessageTooLarge, length)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("read frame payload: %w", err)
	}
	return payload, nil
}

// readUntilValid accumulates chunks until the buffer is a complete JSON
// document or the peer closes. This reproduces the legacy clients' receive
// loop, false-positive hazard included.
func readUntilValid(r io.Reader, maxSize int) ([]byte, error) {
	var buf []byte
	chunk := make([]byte, scanChunkSize)

	for {
		n, err := r.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			if len(buf) > maxSize {
				return nil, fmt.Errorf("%w: %d bytes", ErrMessageTooLarge, len(buf))
			}
			if json.Valid(buf) {
				return buf, nil
			}
		}
		if err != nil {
			if err == io.EOF {
				if len(buf) == 0 {
					return nil, io.EOF
				}
				if json.Valid(buf) {
					return buf, nil
				}
				return nil, fmt.Errorf("%w: stream closed mid-document", ErrMalformedMessage)
			}
			return nil, fmt.Errorf("read message: %w", err)
		}
	}
}
