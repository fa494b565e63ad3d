// Package sasl stacks a SASL security layer on an established connection.
//
// Once an authentication library has negotiated a protection layer, the
// application keeps reading and writing through the same
// transport.Connection; Install makes every byte pass through the security
// context's Encode and Decode on its way to and from the socket.
//
// # Getting Started
//
//	base := transport.NewSocketStream("mail.example.com:143", transport.DefaultSocketConfig())
//	conn := transport.NewConnection(base, transport.WithAccount(acct))
//	if err := conn.Open(); err != nil {
//	    log.Fatal(err)
//	}
//
//	params, err := sasl.NewClientParams(conn, sasl.DefaultSecurityProperties(), prompter)
//	// ... run the mechanism exchange with params, obtaining ctx ...
//
//	if err := sasl.Install(conn, ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer conn.Close() // tears the layer down, then closes the socket
//
// # Layer Semantics
//
// A Layer is stacked on whatever stream was on top of the connection when
// Install ran, and calls through to it for every socket operation:
//
//   - Read hands out decoded bytes left over from a previous network read
//     before touching the socket, and may return fewer bytes than asked for.
//     A network read that decodes to nothing is retried transparently.
//   - Write splits its input into chunks of at most the negotiated maximum
//     buffer size and writes each encoded chunk with one call. A short write
//     of an encoded chunk is fatal.
//   - With a negotiated strength factor of zero both calls pass straight
//     through without buffering.
//   - Close restores the connection to its pre-install stream, disposes the
//     security context, and then closes the restored stream.
//
// # Errors
//
// Setup, decode, encode and short-write failures are returned as
// *LayerError values wrapping ErrSetup, ErrDecode, ErrEncode and
// ErrShortWrite. After a decode or encode failure the two peers are out of
// step; close the connection instead of retrying. End of stream and
// transport errors from below are returned unchanged.
//
// # Thread Safety
//
// A connection and its layer serve one session. Nothing on the read or
// write path is locked. As with net.Conn, one goroutine may read while
// another writes, provided the security context keeps its encode and decode
// state apart, which both bundled providers do. Install and Close must not
// overlap any other call.
//
// # Providers
//
// The crypto package provides a NaCl secretbox security context and the
// noise package one over Noise cipher states. Both use the 4 byte
// length-prefixed framing of FrameBuffer.
package sasl
