package protocol

// ErrorCode is the stable, machine-readable error category carried in error
// responses. Codes never change meaning once assigned; new codes may be
// appended.
//
// Codes below 100 originate on the server. Codes 100 and above are
// synthesized client-side for transport faults and never appear in a
// response actually sent by a server.
type ErrorCode int

const (
	// CodeNone is the zero value and never appears in an error response.
	CodeNone ErrorCode = 0

	// CodeNotFound indicates the file, directory or user does not exist.
	CodeNotFound ErrorCode = 1

	// CodeAlreadyExists indicates a path or username collision.
	CodeAlreadyExists ErrorCode = 2

	// CodeIsADirectory indicates a file operation targeted a directory.
	CodeIsADirectory ErrorCode = 3

	// CodeNotADirectory indicates a directory operation targeted a file.
	CodeNotADirectory ErrorCode = 4

	// CodeDirectoryNotEmpty indicates a non-recursive delete of a
	// populated directory.
	CodeDirectoryNotEmpty ErrorCode = 5

	// CodeInvalidArgument indicates a parameter was present but invalid
	// (bad offset, malformed path, deleting the root, ...).
	CodeInvalidArgument ErrorCode = 6

	// CodeNoSpace indicates the store's configured capacity is exhausted.
	CodeNoSpace ErrorCode = 7

	// CodeIOError indicates the store failed to read or write data.
	CodeIOError ErrorCode = 8

	// CodeInvalidCredentials indicates login failed. Unknown usernames and
	// wrong passwords are deliberately indistinguishable.
	CodeInvalidCredentials ErrorCode = 9

	// CodeAccountInactive indicates the account exists but is disabled.
	CodeAccountInactive ErrorCode = 10

	// CodeInvalidSession indicates an absent, expired or unknown session
	// token. Reported before any parameter validation.
	CodeInvalidSession ErrorCode = 11

	// CodeForbidden indicates the session's role does not permit the
	// operation.
	CodeForbidden ErrorCode = 12

	// CodeMalformedRequest indicates missing or type-invalid parameters.
	CodeMalformedRequest ErrorCode = 13

	// CodeInvalidOperation indicates an unrecognized operation name.
	CodeInvalidOperation ErrorCode = 14

	// CodeInternal indicates an unexpected server-side failure.
	CodeInternal ErrorCode = 15

	// CodeTimeout is client-local: no response arrived within the call
	// deadline. The outcome of the operation is unknown, not failed.
	CodeTimeout ErrorCode = 100

	// CodeUnreachable is client-local: the connection was refused.
	CodeUnreachable ErrorCode = 101

	// CodeTransport is client-local: any other transport fault, including
	// an undecodable response.
	CodeTransport ErrorCode = 102
)

// Message returns the canonical human-readable text for a code. Handlers may
// attach more specific messages; this is the fallback.
func (c ErrorCode) Message() string {
	switch c {
	case CodeNotFound:
		return "file, directory or user not found"
	case CodeAlreadyExists:
		return "file, directory or user already exists"
	case CodeIsADirectory:
		return "path is a directory"
	case CodeNotADirectory:
		return "path is not a directory"
	case CodeDirectoryNotEmpty:
		return "directory not empty"
	case CodeInvalidArgument:
		return "invalid argument"
	case CodeNoSpace:
		return "no space left"
	case CodeIOError:
		return "I/O error"
	case CodeInvalidCredentials:
		return "invalid username or password"
	case CodeAccountInactive:
		return "account is inactive"
	case CodeInvalidSession:
		return "invalid session"
	case CodeForbidden:
		return "permission denied"
	case CodeMalformedRequest:
		return "malformed request"
	case CodeInvalidOperation:
		return "invalid operation"
	case CodeInternal:
		return "internal error"
	case CodeTimeout:
		return "connection timeout"
	case CodeUnreachable:
		return "cannot connect to server"
	case CodeTransport:
		return "transport error"
	default:
		return "unknown error"
	}
}

// ErrorResponse builds an error response for a request, using the canonical
// message when msg is empty.
func ErrorResponse(operation, requestID string, code ErrorCode, msg string) *Response {
	if msg == "" {
		msg = code.Message()
	}
	return &Response{
		Status:       StatusError,
		Operation:    operation,
		RequestID:    requestID,
		ErrorCode:    code,
		ErrorMessage: msg,
	}
}

// SuccessResponse builds a success response for a request. A nil data map is
// allowed for operations with no payload.
func SuccessResponse(operation, requestID string, data map[string]any) *Response {
	return &Response{
		Status:    StatusSuccess,
		Operation: operation,
		RequestID: requestID,
		Data:      data,
	}
}
