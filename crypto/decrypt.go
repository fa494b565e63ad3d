package crypto

import (
	"errors"

	"golang.org/x/crypto/nacl/secretbox"
)

// DecryptSymmetric decrypts a message using a symmetric key.
func DecryptSymmetric(ciphertext []byte, nonce Nonce, key [32]byte) ([]byte, error) {
	if len(ciphertext) == 0 {
		return nil, errors.New("empty ciphertext")
	}

	out, ok := secretbox.Open(nil, ciphertext, (*[24]byte)(&nonce), &key)
	if !ok {
		return nil, errors.New("decryption failed: message authentication failed")
	}

	return out, nil
}
