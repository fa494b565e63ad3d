// Package transport provides the connection a SASL security layer is
// stacked on.
//
// # Architecture
//
// A Connection owns a stack of Streams. The bottom of the stack is the base
// stream, normally a SocketStream over a TCP socket; the top is whatever
// every Open, Close, Read and Write of the connection dispatches to:
//
//	type Stream interface {
//	    Open() error
//	    Close() error
//	    Read(p []byte) (int, error)
//	    Write(p []byte) (int, error)
//	}
//
// A Layer is a Stream that knows the stream beneath it. Attach pushes a
// layer whose Lower is the current top; Detach pops it again and restores
// exactly the stream that was on top before. Only one layer may be attached
// at a time.
//
// # Sockets
//
//	base := transport.NewSocketStream("imap.example.com:143", transport.DefaultSocketConfig())
//	conn := transport.NewConnection(base, transport.WithAccount(&transport.Account{
//	    Type: transport.AccountIMAP,
//	    Host: "imap.example.com",
//	    Port: 143,
//	    User: "alice",
//	}))
//	if err := conn.Open(); err != nil {
//	    return err
//	}
//
// SocketStream applies the configured read and write timeouts as socket
// deadlines, below any layer. WrapConn adopts a net.Conn that is already
// connected, such as one returned by a listener.
//
// # Proxies
//
// Setting SocketConfig.Proxy routes Open through a SOCKS5 proxy (via
// golang.org/x/net/proxy) or an HTTP CONNECT proxy.
//
// # Strength Factor
//
// A connection tracks the total security strength factor of its stack.
// TLS accounts start with the strength of the TLS session (WithSSF); a
// security layer adds its own while installed and subtracts it on removal.
//
// # Errors
//
// Socket failures are reported as *OpError values naming the operation and
// address. End of stream is io.EOF, unwrapped.
package transport
