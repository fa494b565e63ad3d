package transport

import (
	"fmt"
	"net"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Connection is the caller-owned handle for one network session. Reads and
// writes dispatch to the top of a stream stack: the base socket stream, or
// a single protection layer stacked on it. Callers above the connection
// never see which one is active.
//
// One goroutine may Read while another Writes, as on a net.Conn. Attach,
// Detach and Close must not overlap any other call.
type Connection struct {
	id      uuid.UUID
	account *Account
	base    Stream
	top     Stream
	ssf     int
}

// ConnectionOption configures a Connection at construction.
type ConnectionOption func(*Connection)

// WithAccount associates the connection with the account it logs into.
func WithAccount(acct *Account) ConnectionOption {
	return func(c *Connection) {
		c.account = acct
	}
}

// WithSSF seeds the cumulative strength factor with the transport's own
// protection, for example the cipher strength of a TLS session.
func WithSSF(ssf int) ConnectionOption {
	return func(c *Connection) {
		c.ssf = ssf
	}
}

// NewConnection creates a connection whose stack consists of base alone.
func NewConnection(base Stream, opts ...ConnectionOption) *Connection {
	c := &Connection{
		id:   uuid.New(),
		base: base,
		top:  base,
	}
	for _, opt := range opts {
		opt(c)
	}

	logrus.WithFields(logrus.Fields{
		"function":  "NewConnection",
		"conn_id":   c.id.String(),
		"base_type": fmt.Sprintf("%T", base),
		"ssf":       c.ssf,
	}).Debug("Connection created")

	return c
}

// ID returns the identifier used to correlate log entries for this connection.
func (c *Connection) ID() uuid.UUID {
	return c.id
}

// Account returns the account the connection belongs to, or nil.
func (c *Connection) Account() *Account {
	return c.account
}

// Base returns the bottom of the stream stack.
func (c *Connection) Base() Stream {
	return c.base
}

// Stream returns the current top of the stream stack.
func (c *Connection) Stream() Stream {
	return c.top
}

// Layered reports whether a layer is stacked on the base stream.
func (c *Connection) Layered() bool {
	return c.top != c.base
}

// Attach stacks l on the connection. Only one layer may be active at a time
// and l must have been built on top of the current stream.
func (c *Connection) Attach(l Layer) error {
	if l == nil {
		return newOpError("attach", "", ErrNilStream)
	}
	if c.Layered() {
		return newOpError("attach", "", ErrAlreadyLayered)
	}
	if l.Lower() != c.top {
		return newOpError("attach", "", ErrLayerMismatch)
	}

	c.top = l

	logrus.WithFields(logrus.Fields{
		"function":   "Attach",
		"conn_id":    c.id.String(),
		"layer_type": fmt.Sprintf("%T", l),
	}).Debug("Layer attached")

	return nil
}

// Detach removes l from the top of the stack and restores the stream l was
// stacked on. After Detach the connection dispatches exactly as it did
// before Attach.
func (c *Connection) Detach(l Layer) error {
	if l == nil {
		return newOpError("detach", "", ErrNilStream)
	}
	if c.top != Stream(l) {
		return newOpError("detach", "", ErrNotTopLayer)
	}

	c.top = l.Lower()

	logrus.WithFields(logrus.Fields{
		"function":   "Detach",
		"conn_id":    c.id.String(),
		"layer_type": fmt.Sprintf("%T", l),
	}).Debug("Layer detached")

	return nil
}

// SSF returns the cumulative security strength factor of the connection.
func (c *Connection) SSF() int {
	return c.ssf
}

// AddSSF folds the strength of a newly stacked layer into the total.
func (c *Connection) AddSSF(n int) {
	c.ssf += n
}

// SubSSF removes the strength of a layer that has been torn down.
func (c *Connection) SubSSF(n int) {
	c.ssf -= n
}

// LocalAddr returns the local socket address if the base stream knows it.
func (c *Connection) LocalAddr() net.Addr {
	if a, ok := c.base.(Addresser); ok {
		return a.LocalAddr()
	}
	return nil
}

// RemoteAddr returns the remote socket address if the base stream knows it.
func (c *Connection) RemoteAddr() net.Addr {
	if a, ok := c.base.(Addresser); ok {
		return a.RemoteAddr()
	}
	return nil
}

// Open opens the connection through the current stack.
func (c *Connection) Open() error {
	return c.top.Open()
}

// Close closes the connection through the current stack.
func (c *Connection) Close() error {
	return c.top.Close()
}

// Read reads through the current stack.
func (c *Connection) Read(p []byte) (int, error) {
	return c.top.Read(p)
}

// Write writes through the current stack.
func (c *Connection) Write(p []byte) (int, error) {
	return c.top.Write(p)
}
