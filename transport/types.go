package transport

import "net"

// Stream is the capability set every connection implementation exposes.
// Read and Write follow io.Reader and io.Writer semantics: a Read may return
// fewer bytes than requested, and n <= 0 together with an error (or io.EOF)
// is the end-of-stream signal of the transport beneath.
type Stream interface {
	// Open establishes the underlying connection.
	Open() error

	// Close releases the underlying connection.
	Close() error

	// Read reads up to len(p) bytes into p.
	Read(p []byte) (int, error)

	// Write writes len(p) bytes from p.
	Write(p []byte) (int, error)
}

// Layer is a Stream stacked on top of another Stream. A layer reaches the
// real socket only through the stream it was stacked on.
type Layer interface {
	Stream

	// Lower returns the stream this layer was stacked on.
	Lower() Stream
}

// Addresser is implemented by streams that know their socket endpoints.
type Addresser interface {
	LocalAddr() net.Addr
	RemoteAddr() net.Addr
}
