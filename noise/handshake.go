package noise

import (
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/flynn/noise"
	"github.com/opd-ai/sasl/crypto"
)

var (
	// ErrHandshakeNotComplete indicates handshake is still in progress
	ErrHandshakeNotComplete = errors.New("handshake not complete")
	// ErrHandshakeComplete indicates handshake is already complete
	ErrHandshakeComplete = errors.New("handshake already complete")
	// ErrOutOfTurn indicates a message was written or read when the pattern
	// expects the opposite direction.
	ErrOutOfTurn = errors.New("handshake message out of turn")
)

// HandshakeRole defines whether we're initiating or responding to handshake
type HandshakeRole uint8

const (
	// Initiator sends the first handshake message. On a SASL connection
	// this is the client.
	Initiator HandshakeRole = iota
	// Responder answers the initiator.
	Responder
)

// String returns the role name.
func (r HandshakeRole) String() string {
	if r == Initiator {
		return "initiator"
	}
	return "responder"
}

// Handshake is a Noise handshake driven one message at a time. Negotiate
// runs any Handshake to completion over a stream.
type Handshake interface {
	Role() HandshakeRole
	// WriteMessage produces the next message to send, carrying payload.
	WriteMessage(payload []byte) ([]byte, bool, error)
	// ReadMessage consumes the next message from the peer and returns its
	// payload.
	ReadMessage(message []byte) ([]byte, bool, error)
	IsComplete() bool
	// CipherStates returns the send and receive cipher states.
	CipherStates() (*noise.CipherState, *noise.CipherState, error)
	RemoteStaticKey() ([]byte, error)
	LocalStaticKey() []byte
}

// cipherSuite is shared by every pattern.
var cipherSuite = noise.NewCipherSuite(noise.DH25519, noise.CipherChaChaPoly, noise.HashSHA256)

// handshake holds the state common to all patterns. Messages alternate
// between the peers, the initiator writing the first.
type handshake struct {
	role        HandshakeRole
	state       *noise.HandshakeState
	sendCipher  *noise.CipherState
	recvCipher  *noise.CipherState
	complete    bool
	step        int
	localPubKey []byte
}

func newHandshake(pattern noise.HandshakePattern, staticPrivKey, peerPubKey []byte, role HandshakeRole) (*handshake, error) {
	if len(staticPrivKey) != 32 {
		return nil, fmt.Errorf("static private key must be 32 bytes, got %d", len(staticPrivKey))
	}

	var privateKeyArray [32]byte
	copy(privateKeyArray[:], staticPrivKey)
	defer crypto.ZeroBytes(privateKeyArray[:])

	keyPair, err := crypto.FromSecretKey(privateKeyArray)
	if err != nil {
		return nil, fmt.Errorf("failed to derive keypair: %w", err)
	}
	defer crypto.ZeroBytes(keyPair.Private[:])

	staticKey := noise.DHKey{
		Private: make([]byte, 32),
		Public:  make([]byte, 32),
	}
	copy(staticKey.Private, keyPair.Private[:])
	copy(staticKey.Public, keyPair.Public[:])

	config := noise.Config{
		CipherSuite:   cipherSuite,
		Random:        rand.Reader,
		Pattern:       pattern,
		Initiator:     role == Initiator,
		StaticKeypair: staticKey,
	}
	if peerPubKey != nil {
		config.PeerStatic = make([]byte, 32)
		copy(config.PeerStatic, peerPubKey)
	}

	state, err := noise.NewHandshakeState(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s handshake state: %w", pattern.Name, err)
	}

	return &handshake{
		role:        role,
		state:       state,
		localPubKey: append([]byte(nil), keyPair.Public[:]...),
	}, nil
}

// ourTurn reports whether the next message is ours to write.
func (h *handshake) ourTurn() bool {
	return (h.step%2 == 0) == (h.role == Initiator)
}

// finish assigns the split cipher states. The first always encrypts
// initiator to responder traffic.
func (h *handshake) finish(cs1, cs2 *noise.CipherState) {
	if cs1 == nil || cs2 == nil {
		return
	}
	if h.role == Initiator {
		h.sendCipher, h.recvCipher = cs1, cs2
	} else {
		h.sendCipher, h.recvCipher = cs2, cs1
	}
	h.complete = true
}

func (h *handshake) Role() HandshakeRole {
	return h.role
}

func (h *handshake) WriteMessage(payload []byte) ([]byte, bool, error) {
	if h.complete {
		return nil, false, ErrHandshakeComplete
	}
	if !h.ourTurn() {
		return nil, false, ErrOutOfTurn
	}

	message, cs1, cs2, err := h.state.WriteMessage(nil, payload)
	if err != nil {
		return nil, false, fmt.Errorf("%s write failed: %w", h.role, err)
	}
	h.step++
	h.finish(cs1, cs2)
	return message, h.complete, nil
}

func (h *handshake) ReadMessage(message []byte) ([]byte, bool, error) {
	if h.complete {
		return nil, false, ErrHandshakeComplete
	}
	if h.ourTurn() {
		return nil, false, ErrOutOfTurn
	}

	payload, cs1, cs2, err := h.state.ReadMessage(nil, message)
	if err != nil {
		return nil, false, fmt.Errorf("%s read failed: %w", h.role, err)
	}
	h.step++
	h.finish(cs1, cs2)
	return payload, h.complete, nil
}

func (h *handshake) IsComplete() bool {
	return h.complete
}

func (h *handshake) CipherStates() (*noise.CipherState, *noise.CipherState, error) {
	if !h.complete {
		return nil, nil, ErrHandshakeNotComplete
	}
	return h.sendCipher, h.recvCipher, nil
}

// RemoteStaticKey returns a copy of the peer's authenticated static key.
func (h *handshake) RemoteStaticKey() ([]byte, error) {
	if !h.complete {
		return nil, ErrHandshakeNotComplete
	}
	remoteKey := h.state.PeerStatic()
	if len(remoteKey) == 0 {
		return nil, fmt.Errorf("remote static key not available")
	}
	return append([]byte(nil), remoteKey...), nil
}

// LocalStaticKey returns a copy of our static public key.
func (h *handshake) LocalStaticKey() []byte {
	return append([]byte(nil), h.localPubKey...)
}

// IKHandshake implements the Noise IK pattern. The initiator must know the
// responder's static public key, as a client configured with its server's
// key does. It completes in one round trip.
type IKHandshake struct {
	*handshake
}

// NewIKHandshake creates a new IK pattern handshake.
// staticPrivKey is our long-term private key (32 bytes).
// peerPubKey is peer's long-term public key (32 bytes, nil for responder).
func NewIKHandshake(staticPrivKey, peerPubKey []byte, role HandshakeRole) (*IKHandshake, error) {
	if role == Initiator && len(peerPubKey) != 32 {
		return nil, fmt.Errorf("initiator requires peer public key (32 bytes), got %d", len(peerPubKey))
	}
	if role == Responder {
		peerPubKey = nil
	}

	h, err := newHandshake(noise.HandshakeIK, staticPrivKey, peerPubKey, role)
	if err != nil {
		return nil, err
	}
	return &IKHandshake{h}, nil
}

// XXHandshake implements the Noise XX pattern for mutual authentication
// without prior key knowledge. Static keys are exchanged encrypted over
// three messages.
type XXHandshake struct {
	*handshake
}

// NewXXHandshake creates a new XX pattern handshake.
func NewXXHandshake(staticPrivKey []byte, role HandshakeRole) (*XXHandshake, error) {
	h, err := newHandshake(noise.HandshakeXX, staticPrivKey, nil, role)
	if err != nil {
		return nil, err
	}
	return &XXHandshake{h}, nil
}
