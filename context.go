package sasl

import "fmt"

// PropertyID names a negotiated property of a security context.
type PropertyID int

const (
	// PropSSF is the security strength factor of the negotiated layer.
	// Zero means authentication succeeded without a protection layer.
	PropSSF PropertyID = iota + 1
	// PropMaxOutBuf is the largest plaintext chunk one Encode call accepts.
	PropMaxOutBuf
)

// String returns the property name used in logs and errors.
func (p PropertyID) String() string {
	switch p {
	case PropSSF:
		return "ssf"
	case PropMaxOutBuf:
		return "maxoutbuf"
	default:
		return fmt.Sprintf("property(%d)", int(p))
	}
}

// SecurityContext is a completed authentication negotiation, used after the
// handshake purely to protect application data. Implementations come from
// the mechanism provider; this package never performs the transforms itself.
//
// Slices returned by Encode and Decode belong to the caller. Decode is
// stream oriented: it may hold back a partial frame and return an empty
// slice until the rest arrives.
type SecurityContext interface {
	// Property returns a negotiated property.
	Property(id PropertyID) (int, error)

	// Encode protects one plaintext chunk of at most PropMaxOutBuf bytes.
	Encode(p []byte) ([]byte, error)

	// Decode consumes bytes read from the network and returns whatever
	// plaintext became available.
	Decode(p []byte) ([]byte, error)

	// Dispose releases the context's resources.
	Dispose() error
}
