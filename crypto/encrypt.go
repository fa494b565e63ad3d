package crypto

import (
	"encoding/binary"
	"errors"

	"golang.org/x/crypto/nacl/secretbox"
)

// Nonce is a 24-byte value used for encryption.
type Nonce [24]byte

// Maximum message size (1MB to prevent excessive memory usage)
const MaxMessageSize = 1024 * 1024

// SequenceNonce returns the nonce for the seq-th message under one key.
// Each key encrypts a single direction, so a counter never repeats.
func SequenceNonce(seq uint64) Nonce {
	var n Nonce
	binary.BigEndian.PutUint64(n[16:], seq)
	return n
}

// EncryptSymmetric encrypts a message using a symmetric key.
func EncryptSymmetric(message []byte, nonce Nonce, key [32]byte) ([]byte, error) {
	if len(message) == 0 {
		return nil, errors.New("empty message")
	}

	if len(message) > MaxMessageSize {
		return nil, errors.New("message too large")
	}

	return secretbox.Seal(nil, message, (*[24]byte)(&nonce), &key), nil
}
