package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// PBKDF2Iterations is the number of iterations for key derivation (NIST recommendation)
	PBKDF2Iterations = 100000
	// KeyFileVersion is the current sealed key file format version
	KeyFileVersion = 1
	// SaltSize is the size of the salt for PBKDF2
	SaltSize = 32

	gcmNonceSize = 12
	gcmTagSize   = 16
	keyFileHdr   = 2 + SaltSize + gcmNonceSize
)

// ErrKeyFileAuth is returned when a sealed key file cannot be opened with
// the given passphrase.
var ErrKeyFileAuth = errors.New("wrong passphrase or corrupted key file")

// SealKeyFile writes a static private key to path encrypted under a
// passphrase.
// Format: [version:2][salt:32][nonce:12][ciphertext+tag:48]
func SealKeyFile(path string, priv [32]byte, passphrase []byte) error {
	if len(passphrase) == 0 {
		return errors.New("passphrase cannot be empty")
	}

	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}
	gcm, err := keyFileCipher(passphrase, salt)
	if err != nil {
		return err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}

	output := make([]byte, keyFileHdr, keyFileHdr+len(priv)+gcmTagSize)
	binary.BigEndian.PutUint16(output[0:2], KeyFileVersion)
	copy(output[2:], salt)
	copy(output[2+SaltSize:], nonce)
	ad := append([]byte(nil), output[:2]...)
	output = gcm.Seal(output, nonce, priv[:], ad)

	// Atomic write using temporary file + rename
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, output, 0o600); err != nil {
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to rename file: %w", err)
	}
	return nil
}

// OpenKeyFile reads a key file written by SealKeyFile.
func OpenKeyFile(path string, passphrase []byte) ([32]byte, error) {
	var priv [32]byte

	data, err := os.ReadFile(path)
	if err != nil {
		return priv, fmt.Errorf("failed to read key file: %w", err)
	}
	if len(data) != keyFileHdr+len(priv)+gcmTagSize {
		return priv, fmt.Errorf("key file has %d bytes, want %d", len(data), keyFileHdr+len(priv)+gcmTagSize)
	}
	if version := binary.BigEndian.Uint16(data[0:2]); version != KeyFileVersion {
		return priv, fmt.Errorf("unsupported key file version: %d (expected %d)", version, KeyFileVersion)
	}

	gcm, err := keyFileCipher(passphrase, data[2:2+SaltSize])
	if err != nil {
		return priv, err
	}
	nonce := data[2+SaltSize : keyFileHdr]
	plain, err := gcm.Open(nil, nonce, data[keyFileHdr:], data[:2])
	if err != nil {
		return priv, ErrKeyFileAuth
	}

	copy(priv[:], plain)
	ZeroBytes(plain)
	return priv, nil
}

// IsSealedKeyFile reports whether data looks like a sealed key file rather
// than a hex encoded key.
func IsSealedKeyFile(data []byte) bool {
	return len(data) == keyFileHdr+32+gcmTagSize &&
		binary.BigEndian.Uint16(data[0:2]) == KeyFileVersion
}

func keyFileCipher(passphrase, salt []byte) (cipher.AEAD, error) {
	derivedKey := pbkdf2.Key(passphrase, salt, PBKDF2Iterations, 32, sha256.New)
	defer ZeroBytes(derivedKey)

	block, err := aes.NewCipher(derivedKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}
