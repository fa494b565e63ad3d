package crypto

import (
	"errors"
	"fmt"

	"github.com/opd-ai/sasl"
	"golang.org/x/crypto/nacl/secretbox"
)

// SecretboxSSF is the strength reported by a secretbox security context:
// the bit length of its XSalsa20-Poly1305 keys.
const SecretboxSSF = 256

// ErrContextDisposed is returned by a security context used after Dispose.
var ErrContextDisposed = errors.New("security context disposed")

// SecretboxOptions tune a SecretboxContext.
type SecretboxOptions struct {
	// MaxBufSize is the largest plaintext chunk the peer accepts. Zero
	// selects sasl.DefaultMaxBufSize; values above MaxMessageSize are capped.
	MaxBufSize int
	// MaxFrameSize bounds incoming frames. Zero admits any sealed
	// MaxMessageSize chunk, whatever MaxBufSize the peer was given.
	MaxFrameSize int
}

// SecretboxContext is a sasl.SecurityContext that seals every chunk with
// NaCl secretbox under a per-direction key and a message counter nonce.
// Sealed chunks travel in length-prefixed frames.
type SecretboxContext struct {
	sendKey  [32]byte
	recvKey  [32]byte
	sendSeq  uint64
	recvSeq  uint64
	maxBuf   int
	frames   *sasl.FrameBuffer
	disposed bool
}

// NewSecretboxContext creates a context that seals with sendKey and opens
// with recvKey. The peer must use the same keys swapped.
func NewSecretboxContext(sendKey, recvKey [32]byte, opts SecretboxOptions) (*SecretboxContext, error) {
	if isZeroKey(sendKey) || isZeroKey(recvKey) {
		return nil, errors.New("invalid session key: all zeros")
	}

	maxBuf := opts.MaxBufSize
	switch {
	case maxBuf < 0:
		return nil, fmt.Errorf("invalid max buffer size %d", maxBuf)
	case maxBuf == 0:
		maxBuf = sasl.DefaultMaxBufSize
	case maxBuf > MaxMessageSize:
		maxBuf = MaxMessageSize
	}

	frameLimit := opts.MaxFrameSize
	if frameLimit <= 0 {
		frameLimit = MaxMessageSize + secretbox.Overhead
	}

	NewLogger("NewSecretboxContext").
		WithField("max_buf", maxBuf).
		WithField("frame_limit", frameLimit).
		Debug("Secretbox security context created")

	return &SecretboxContext{
		sendKey: sendKey,
		recvKey: recvKey,
		maxBuf:  maxBuf,
		frames:  sasl.NewFrameBuffer(frameLimit),
	}, nil
}

// NewSecretboxContextFromKeys creates a context from derived session keys.
func NewSecretboxContextFromKeys(keys *SessionKeys, opts SecretboxOptions) (*SecretboxContext, error) {
	if keys == nil {
		return nil, errors.New("nil session keys")
	}
	return NewSecretboxContext(keys.Send, keys.Recv, opts)
}

// Property reports the strength factor and the maximum plaintext chunk.
func (c *SecretboxContext) Property(id sasl.PropertyID) (int, error) {
	if c.disposed {
		return 0, ErrContextDisposed
	}
	switch id {
	case sasl.PropSSF:
		return SecretboxSSF, nil
	case sasl.PropMaxOutBuf:
		return c.maxBuf, nil
	default:
		return 0, fmt.Errorf("unsupported property %s", id)
	}
}

// Encode seals p and returns it as one frame.
func (c *SecretboxContext) Encode(p []byte) ([]byte, error) {
	if c.disposed {
		return nil, ErrContextDisposed
	}
	if len(p) > c.maxBuf {
		return nil, fmt.Errorf("chunk of %d bytes exceeds max buffer %d", len(p), c.maxBuf)
	}

	sealed, err := EncryptSymmetric(p, SequenceNonce(c.sendSeq), c.sendKey)
	if err != nil {
		NewLogger("SecretboxContext.Encode").
			WithError(err, "seal").
			WithField("seq", c.sendSeq).
			Error("Failed to seal chunk")
		return nil, err
	}
	c.sendSeq++

	return sasl.AppendFrame(make([]byte, 0, sasl.FrameHeaderSize+len(sealed)), sealed), nil
}

// Decode consumes network bytes and returns the plaintext of every frame
// they complete. Bytes of an unfinished frame are kept for the next call,
// in which case the result may be empty.
func (c *SecretboxContext) Decode(p []byte) ([]byte, error) {
	if c.disposed {
		return nil, ErrContextDisposed
	}

	frames, err := c.frames.Feed(p)
	if err != nil {
		return nil, err
	}

	var out []byte
	for _, frame := range frames {
		plain, err := DecryptSymmetric(frame, SequenceNonce(c.recvSeq), c.recvKey)
		if err != nil {
			NewLogger("SecretboxContext.Decode").
				WithError(err, "open").
				WithField("seq", c.recvSeq).
				WithFields(SecureFieldHash(frame, "frame")).
				Warn("Failed to open frame")
			return nil, err
		}
		c.recvSeq++
		out = append(out, plain...)
	}
	return out, nil
}

// Dispose wipes both keys. The context is unusable afterwards.
func (c *SecretboxContext) Dispose() error {
	if c.disposed {
		return ErrContextDisposed
	}
	ZeroBytes(c.sendKey[:])
	ZeroBytes(c.recvKey[:])
	c.frames.Reset()
	c.disposed = true
	return nil
}
