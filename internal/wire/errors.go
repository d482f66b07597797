package wire

import (
	"errors"
	"fmt"
)

// Standard errors returned by the wire client.
var (
	// ErrShutdown indicates the client has been shut down.
	ErrShutdown = errors.New("wire client shut down")

	// ErrNotConnected indicates no connection to a debug server.
	ErrNotConnected = errors.New("not connected to a debug server")

	// ErrInvalidResponse indicates a malformed response from the server.
	ErrInvalidResponse = errors.New("invalid response from server")

	// ErrNoThread indicates the server could not resolve an owning thread.
	ErrNoThread = errors.New("owning thread not resolved")
)

// RPCError represents a JSON-RPC error from the server.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Error implements the error interface.
func (e *RPCError) Error() string {
	if e.Data != nil {
		return fmt.Sprintf("rpc error %d: %s (data: %v)", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Standard JSON-RPC error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// DialError represents a failure to reach the debug server.
type DialError struct {
	Addr string
	Err  error
}

// Error implements the error interface.
func (e *DialError) Error() string {
	return fmt.Sprintf("dial %s: %v", e.Addr, e.Err)
}

// Unwrap returns the underlying error.
func (e *DialError) Unwrap() error {
	return e.Err
}
