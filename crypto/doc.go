// Package crypto provides the key handling and the NaCl secretbox security
// context used to protect a SASL connection.
//
// # Keys
//
// Peers agree on a Curve25519 shared secret and expand it into one key per
// direction:
//
//	kp, _ := crypto.GenerateKeyPair()
//	secret, _ := crypto.DeriveSharedSecret(peerPublic, kp.Private)
//	keys, _ := crypto.DeriveSessionKeys(secret[:], transcriptHash, initiator)
//	defer keys.Wipe()
//
// # Security Context
//
// SecretboxContext implements sasl.SecurityContext. Every chunk handed to
// Encode is sealed with XSalsa20-Poly1305 under the send key and a nonce
// holding the chunk's sequence number, then wrapped in a length-prefixed
// frame. Decode reassembles frames from arbitrary reads and opens them in
// order, so reordered, replayed or tampered frames fail authentication.
//
//	sc, err := crypto.NewSecretboxContextFromKeys(keys, crypto.SecretboxOptions{})
//	if err != nil {
//	    return err
//	}
//	return sasl.Install(conn, sc)
//
// # Memory Hygiene
//
// SecureWipe, ZeroBytes and WipeKeyPair overwrite key material. Dispose on
// a security context wipes its session keys.
package crypto
