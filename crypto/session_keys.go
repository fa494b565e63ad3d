package crypto

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// sessionKeyInfo separates security layer keys from any other use of the
// same shared secret.
const sessionKeyInfo = "sasl security layer v1"

// SessionKeys are the two directional keys of one security layer session.
type SessionKeys struct {
	Send [32]byte
	Recv [32]byte
}

// DeriveSessionKeys expands a shared secret into directional keys. Both
// peers derive the same pair; the initiator sends with the first key and
// the responder with the second, so each side's Send is the other's Recv.
func DeriveSessionKeys(secret, salt []byte, initiator bool) (*SessionKeys, error) {
	if len(secret) == 0 {
		return nil, errors.New("empty shared secret")
	}

	r := hkdf.New(sha256.New, secret, salt, []byte(sessionKeyInfo))
	var first, second [32]byte
	if _, err := io.ReadFull(r, first[:]); err != nil {
		return nil, fmt.Errorf("expand session key: %w", err)
	}
	if _, err := io.ReadFull(r, second[:]); err != nil {
		return nil, fmt.Errorf("expand session key: %w", err)
	}

	if initiator {
		return &SessionKeys{Send: first, Recv: second}, nil
	}
	return &SessionKeys{Send: second, Recv: first}, nil
}

// Wipe erases both keys.
func (k *SessionKeys) Wipe() {
	ZeroBytes(k.Send[:])
	ZeroBytes(k.Recv[:])
}
