package transport

import (
	"errors"
	"fmt"
)

// Common errors for connection stacking and socket streams
var (
	// ErrAlreadyLayered indicates the connection already carries a layer
	ErrAlreadyLayered = errors.New("connection already layered")

	// ErrLayerMismatch indicates a layer was not stacked on the current top
	ErrLayerMismatch = errors.New("layer not stacked on current stream")

	// ErrNotTopLayer indicates a detach was requested for a layer that is not on top
	ErrNotTopLayer = errors.New("layer is not the top of the stack")

	// ErrNilStream indicates a nil stream or layer was supplied
	ErrNilStream = errors.New("nil stream")

	// ErrAlreadyOpen indicates Open was called on an open socket
	ErrAlreadyOpen = errors.New("socket already open")

	// ErrNotOpen indicates I/O was attempted on a socket that is not open
	ErrNotOpen = errors.New("socket not open")
)

// OpError represents a stream error with additional context
type OpError struct {
	Op   string // operation that caused the error
	Addr string // address if relevant
	Err  error  // underlying error
}

func (e *OpError) Error() string {
	if e.Addr != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// newOpError creates a new OpError
func newOpError(op, addr string, err error) *OpError {
	return &OpError{
		Op:   op,
		Addr: addr,
		Err:  err,
	}
}
