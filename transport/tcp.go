package transport

import (
	"net"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// SocketConfig holds the timeouts applied by a SocketStream. Zero values
// disable the corresponding deadline.
type SocketConfig struct {
	Network        string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	// Proxy, when set, routes Open through a SOCKS5 or HTTP CONNECT proxy.
	Proxy *ProxyConfig
}

// DefaultSocketConfig returns a TCP configuration with the write timeout
// used for packet delivery elsewhere in this project.
func DefaultSocketConfig() SocketConfig {
	return SocketConfig{
		Network:        "tcp",
		ConnectTimeout: 30 * time.Second,
		WriteTimeout:   5 * time.Second,
	}
}

// SocketStream is the base Stream over a net.Conn. Any timeout behavior of
// a connection lives here, beneath whatever layer is stacked on top.
type SocketStream struct {
	addr   string
	config SocketConfig
	conn   net.Conn
	dial   func(network, addr string, timeout time.Duration) (net.Conn, error)
	// shut is set once the current conn has been closed by Shutdown or Close.
	shut atomic.Bool
}

// NewSocketStream creates a stream that dials addr when opened.
func NewSocketStream(addr string, config SocketConfig) *SocketStream {
	if config.Network == "" {
		config.Network = "tcp"
	}
	s := &SocketStream{
		addr:   addr,
		config: config,
		dial:   net.DialTimeout,
	}
	if config.Proxy != nil {
		s.dial = proxyDial(config.Proxy)
	}
	return s
}

// WrapConn adopts an already established connection. The stream is open.
func WrapConn(conn net.Conn, config SocketConfig) *SocketStream {
	s := NewSocketStream(conn.RemoteAddr().String(), config)
	s.conn = conn
	return s
}

// Open dials the configured address.
func (s *SocketStream) Open() error {
	if s.conn != nil {
		return newOpError("open", s.addr, ErrAlreadyOpen)
	}

	conn, err := s.dial(s.config.Network, s.addr, s.config.ConnectTimeout)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "SocketStream.Open",
			"address":  s.addr,
			"network":  s.config.Network,
			"error":    err.Error(),
		}).Warn("Failed to connect")
		return newOpError("open", s.addr, err)
	}
	s.conn = conn
	s.shut.Store(false)

	logrus.WithFields(logrus.Fields{
		"function":    "SocketStream.Open",
		"address":     s.addr,
		"local_addr":  conn.LocalAddr().String(),
		"remote_addr": conn.RemoteAddr().String(),
	}).Debug("Socket connected")

	return nil
}

// Close closes the socket. Closing a stream that is not open is a no-op.
func (s *SocketStream) Close() error {
	if s.conn == nil {
		return nil
	}
	conn := s.conn
	s.conn = nil
	if !s.shut.CompareAndSwap(false, true) {
		return nil
	}
	if err := conn.Close(); err != nil {
		return newOpError("close", s.addr, err)
	}
	return nil
}

// Shutdown closes the underlying socket while leaving the stream in place,
// so a Read or Write blocked on another goroutine returns with an error.
// Close must still be called once those calls have returned.
func (s *SocketStream) Shutdown() error {
	conn := s.conn
	if conn == nil || !s.shut.CompareAndSwap(false, true) {
		return nil
	}
	if err := conn.Close(); err != nil {
		return newOpError("shutdown", s.addr, err)
	}
	return nil
}

// Read reads from the socket, honoring the configured read timeout.
func (s *SocketStream) Read(p []byte) (int, error) {
	if s.conn == nil {
		return 0, newOpError("read", s.addr, ErrNotOpen)
	}
	if s.config.ReadTimeout > 0 {
		if err := s.conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout)); err != nil {
			return 0, err
		}
	}
	return s.conn.Read(p)
}

// Write writes to the socket, honoring the configured write timeout.
func (s *SocketStream) Write(p []byte) (int, error) {
	if s.conn == nil {
		return 0, newOpError("write", s.addr, ErrNotOpen)
	}
	if s.config.WriteTimeout > 0 {
		if err := s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout)); err != nil {
			return 0, err
		}
	}
	return s.conn.Write(p)
}

// LocalAddr returns the local socket address, or nil when closed.
func (s *SocketStream) LocalAddr() net.Addr {
	if s.conn == nil {
		return nil
	}
	return s.conn.LocalAddr()
}

// RemoteAddr returns the remote socket address, or nil when closed.
func (s *SocketStream) RemoteAddr() net.Addr {
	if s.conn == nil {
		return nil
	}
	return s.conn.RemoteAddr()
}
