package noise

import (
	"errors"
	"fmt"

	"github.com/flynn/noise"
	"github.com/opd-ai/sasl"
	"github.com/sirupsen/logrus"
)

// SSF is the strength reported by a Noise security context: the key length
// of ChaCha20-Poly1305.
const SSF = 256

// tagSize is the Poly1305 tag appended to each sealed chunk.
const tagSize = 16

// MaxBufSize is the largest plaintext chunk that fits a Noise transport
// message.
const MaxBufSize = noise.MaxMsgLen - tagSize

// ErrContextDisposed is returned by a security context used after Dispose.
var ErrContextDisposed = errors.New("security context disposed")

// SecurityContext is a sasl.SecurityContext over the cipher states of a
// completed handshake. Each chunk is one Noise transport message wrapped
// in a length-prefixed frame.
type SecurityContext struct {
	send     *noise.CipherState
	recv     *noise.CipherState
	maxBuf   int
	frames   *sasl.FrameBuffer
	disposed bool
}

// NewSecurityContext creates a context from a completed handshake. A
// maxBuf of zero, or one above MaxBufSize, selects MaxBufSize. It bounds
// outgoing chunks only; any transport message the peer sends is accepted.
func NewSecurityContext(hs Handshake, maxBuf int) (*SecurityContext, error) {
	send, recv, err := hs.CipherStates()
	if err != nil {
		return nil, err
	}
	if maxBuf < 0 {
		return nil, fmt.Errorf("invalid max buffer size %d", maxBuf)
	}
	if maxBuf == 0 || maxBuf > MaxBufSize {
		maxBuf = MaxBufSize
	}

	logrus.WithFields(logrus.Fields{
		"function": "NewSecurityContext",
		"role":     hs.Role().String(),
		"max_buf":  maxBuf,
	}).Debug("Noise security context created")

	return &SecurityContext{
		send:   send,
		recv:   recv,
		maxBuf: maxBuf,
		frames: sasl.NewFrameBuffer(noise.MaxMsgLen),
	}, nil
}

// Property reports the strength factor and the maximum plaintext chunk.
func (c *SecurityContext) Property(id sasl.PropertyID) (int, error) {
	if c.disposed {
		return 0, ErrContextDisposed
	}
	switch id {
	case sasl.PropSSF:
		return SSF, nil
	case sasl.PropMaxOutBuf:
		return c.maxBuf, nil
	default:
		return 0, fmt.Errorf("unsupported property %s", id)
	}
}

// Encode encrypts p as one transport message.
func (c *SecurityContext) Encode(p []byte) ([]byte, error) {
	if c.disposed {
		return nil, ErrContextDisposed
	}
	if len(p) > c.maxBuf {
		return nil, fmt.Errorf("chunk of %d bytes exceeds max buffer %d", len(p), c.maxBuf)
	}

	ct, err := c.send.Encrypt(nil, nil, p)
	if err != nil {
		return nil, fmt.Errorf("encrypt: %w", err)
	}
	return sasl.AppendFrame(make([]byte, 0, sasl.FrameHeaderSize+len(ct)), ct), nil
}

// Decode consumes network bytes and decrypts every transport message they
// complete. The result is empty while a message is still incomplete.
func (c *SecurityContext) Decode(p []byte) ([]byte, error) {
	if c.disposed {
		return nil, ErrContextDisposed
	}

	frames, err := c.frames.Feed(p)
	if err != nil {
		return nil, err
	}

	var out []byte
	for _, frame := range frames {
		plain, err := c.recv.Decrypt(nil, nil, frame)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "SecurityContext.Decode",
				"frame":    len(frame),
				"error":    err.Error(),
			}).Warn("Failed to decrypt transport message")
			return nil, fmt.Errorf("decrypt: %w", err)
		}
		out = append(out, plain...)
	}
	return out, nil
}

// Dispose releases the cipher states.
func (c *SecurityContext) Dispose() error {
	if c.disposed {
		return ErrContextDisposed
	}
	c.send = nil
	c.recv = nil
	c.frames.Reset()
	c.disposed = true
	return nil
}
