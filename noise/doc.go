// Package noise negotiates a SASL security layer with the Noise Protocol
// Framework.
//
// Handshakes use Curve25519, ChaCha20-Poly1305 and SHA256 from the
// flynn/noise library. Two patterns are offered:
//
//	Pattern │ When to Use                              │ Round trips
//	────────┼──────────────────────────────────────────┼────────────
//	IK      │ Client already knows the server's key    │ 1
//	XX      │ Neither side knows the other's key       │ 1.5
//
// # Negotiation
//
// Negotiate drives a handshake over the bare connection, each message in a
// 4 byte length-prefixed frame. The completed handshake then yields a
// SecurityContext to install:
//
//	hs, err := noise.NegotiateXX(conn, staticKey, noise.Initiator)
//	if err != nil {
//	    return err
//	}
//	sc, err := noise.NewSecurityContext(hs, 0)
//	if err != nil {
//	    return err
//	}
//	if err := sasl.Install(conn, sc); err != nil {
//	    return err
//	}
//	peer, _ := hs.RemoteStaticKey() // authenticate the peer here
//
// # Message Flow
//
// IK sends the initiator's static key encrypted to the responder's known
// key in the first message:
//
//	-> e, es, s, ss
//	<- e, ee, se
//
// XX exchanges both static keys under encryption:
//
//	-> e
//	<- e, ee, s, es
//	-> s, se
//
// # Security Context
//
// SecurityContext reports a strength factor of 256 and never accepts a
// chunk larger than MaxBufSize, the plaintext capacity of one Noise
// transport message. Transport messages carry an implicit counter nonce,
// so frames must be decoded in the order they were encoded.
package noise
