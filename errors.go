package sasl

import (
	"errors"
	"fmt"
)

var (
	// ErrSetup indicates the negotiated properties could not be obtained
	ErrSetup = errors.New("security layer setup failed")
	// ErrDecode indicates the security context rejected incoming data
	ErrDecode = errors.New("security layer decode failed")
	// ErrEncode indicates the security context failed to protect outgoing data
	ErrEncode = errors.New("security layer encode failed")
	// ErrShortWrite indicates the transport accepted only part of an encoded chunk
	ErrShortWrite = errors.New("short write of encoded chunk")
	// ErrLayerClosed indicates an operation on a torn down layer
	ErrLayerClosed = errors.New("security layer closed")
	// ErrNilContext indicates Install was called without a security context
	ErrNilContext = errors.New("nil security context")
	// ErrAlreadyInitialized indicates the library init function can no longer be replaced
	ErrAlreadyInitialized = errors.New("sasl library already initialized")
	// ErrAccountType indicates the connection's account has no SASL service name
	ErrAccountType = errors.New("account type unset")
	// ErrFrameTooLarge indicates a peer announced a frame beyond the negotiated limit
	ErrFrameTooLarge = errors.New("security layer frame too large")
)

// LayerError carries the failing layer operation. Err wraps one of the
// sentinel errors above and, where there is one, the provider or transport
// error that caused it.
type LayerError struct {
	Op  string
	Err error
}

func (e *LayerError) Error() string {
	return fmt.Sprintf("sasl %s: %v", e.Op, e.Err)
}

func (e *LayerError) Unwrap() error {
	return e.Err
}

// newLayerError wraps cause under kind so that errors.Is matches both.
func newLayerError(op string, kind, cause error) *LayerError {
	if cause == nil {
		return &LayerError{Op: op, Err: kind}
	}
	return &LayerError{Op: op, Err: fmt.Errorf("%w: %w", kind, cause)}
}
