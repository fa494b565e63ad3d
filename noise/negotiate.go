package noise

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/flynn/noise"
	"github.com/opd-ai/sasl"
	"github.com/sirupsen/logrus"
)

// Negotiate runs hs to completion over rw. Handshake messages travel in
// the same length-prefixed frames as protected data, so rw must be the
// bare connection, before any security layer is installed.
func Negotiate(rw io.ReadWriter, hs Handshake) error {
	for !hs.IsComplete() {
		msg, _, err := hs.WriteMessage(nil)
		switch err {
		case nil:
			if _, err := rw.Write(sasl.AppendFrame(nil, msg)); err != nil {
				return fmt.Errorf("send handshake message: %w", err)
			}
			continue
		case ErrOutOfTurn:
		default:
			return err
		}

		msg, err = readHandshakeFrame(rw)
		if err != nil {
			return fmt.Errorf("receive handshake message: %w", err)
		}
		if _, _, err := hs.ReadMessage(msg); err != nil {
			return err
		}
	}

	logrus.WithFields(logrus.Fields{
		"function": "Negotiate",
		"role":     hs.Role().String(),
	}).Debug("Noise handshake complete")

	return nil
}

// NegotiateXX performs an XX handshake with staticPrivKey over rw.
func NegotiateXX(rw io.ReadWriter, staticPrivKey []byte, role HandshakeRole) (*XXHandshake, error) {
	hs, err := NewXXHandshake(staticPrivKey, role)
	if err != nil {
		return nil, err
	}
	if err := Negotiate(rw, hs); err != nil {
		return nil, err
	}
	return hs, nil
}

// NegotiateIK performs an IK handshake over rw. peerPubKey is required of
// the initiator and ignored for the responder.
func NegotiateIK(rw io.ReadWriter, staticPrivKey, peerPubKey []byte, role HandshakeRole) (*IKHandshake, error) {
	hs, err := NewIKHandshake(staticPrivKey, peerPubKey, role)
	if err != nil {
		return nil, err
	}
	if err := Negotiate(rw, hs); err != nil {
		return nil, err
	}
	return hs, nil
}

func readHandshakeFrame(r io.Reader) ([]byte, error) {
	var hdr [sasl.FrameHeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	size := binary.BigEndian.Uint32(hdr[:])
	if size > noise.MaxMsgLen {
		return nil, fmt.Errorf("%w: %d > %d", sasl.ErrFrameTooLarge, size, noise.MaxMsgLen)
	}
	msg := make([]byte, size)
	if _, err := io.ReadFull(r, msg); err != nil {
		return nil, err
	}
	return msg, nil
}
