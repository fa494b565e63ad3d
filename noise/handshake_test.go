package noise

import (
	"crypto/rand"
	"testing"

	"github.com/opd-ai/sasl/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomKey(t testing.TB) []byte {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return key
}

func publicKey(t testing.TB, priv []byte) []byte {
	t.Helper()
	var sk [32]byte
	copy(sk[:], priv)
	kp, err := crypto.FromSecretKey(sk)
	require.NoError(t, err)
	return kp.Public[:]
}

// runHandshake passes messages between two handshakes until both finish.
func runHandshake(t *testing.T, initiator, responder Handshake) {
	t.Helper()
	writer, reader := initiator, responder
	for i := 0; i < 4 && !(initiator.IsComplete() && responder.IsComplete()); i++ {
		msg, _, err := writer.WriteMessage(nil)
		require.NoError(t, err)
		_, _, err = reader.ReadMessage(msg)
		require.NoError(t, err)
		writer, reader = reader, writer
	}
	require.True(t, initiator.IsComplete())
	require.True(t, responder.IsComplete())
}

// assertCipherStatesPaired checks that each side decrypts what the other
// encrypts, in both directions.
func assertCipherStatesPaired(t *testing.T, initiator, responder Handshake) {
	t.Helper()
	iSend, iRecv, err := initiator.CipherStates()
	require.NoError(t, err)
	rSend, rRecv, err := responder.CipherStates()
	require.NoError(t, err)

	ct, err := iSend.Encrypt(nil, nil, []byte("to responder"))
	require.NoError(t, err)
	pt, err := rRecv.Decrypt(nil, nil, ct)
	require.NoError(t, err)
	assert.Equal(t, "to responder", string(pt))

	ct, err = rSend.Encrypt(nil, nil, []byte("to initiator"))
	require.NoError(t, err)
	pt, err = iRecv.Decrypt(nil, nil, ct)
	require.NoError(t, err)
	assert.Equal(t, "to initiator", string(pt))
}

func TestNewIKHandshakeValidation(t *testing.T) {
	valid := randomKey(t)

	tests := []struct {
		name    string
		priv    []byte
		peer    []byte
		role    HandshakeRole
		wantErr bool
	}{
		{name: "initiator", priv: valid, peer: randomKey(t), role: Initiator},
		{name: "responder without peer key", priv: valid, role: Responder},
		{name: "short static key", priv: make([]byte, 16), peer: valid, role: Initiator, wantErr: true},
		{name: "zero static key", priv: make([]byte, 32), peer: valid, role: Initiator, wantErr: true},
		{name: "initiator without peer key", priv: valid, role: Initiator, wantErr: true},
		{name: "short peer key", priv: valid, peer: make([]byte, 16), role: Initiator, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hs, err := NewIKHandshake(tt.priv, tt.peer, tt.role)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.role, hs.Role())
			assert.False(t, hs.IsComplete())
		})
	}
}

func TestIKHandshakeFlow(t *testing.T) {
	iPriv, rPriv := randomKey(t), randomKey(t)
	rPub := publicKey(t, rPriv)

	initiator, err := NewIKHandshake(iPriv, rPub, Initiator)
	require.NoError(t, err)
	responder, err := NewIKHandshake(rPriv, nil, Responder)
	require.NoError(t, err)

	msg1, done, err := initiator.WriteMessage([]byte("hello"))
	require.NoError(t, err)
	assert.False(t, done)

	payload, done, err := responder.ReadMessage(msg1)
	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, "hello", string(payload))

	msg2, done, err := responder.WriteMessage(nil)
	require.NoError(t, err)
	assert.True(t, done)

	_, done, err = initiator.ReadMessage(msg2)
	require.NoError(t, err)
	assert.True(t, done)

	assertCipherStatesPaired(t, initiator, responder)

	remote, err := responder.RemoteStaticKey()
	require.NoError(t, err)
	assert.Equal(t, publicKey(t, iPriv), remote)
	remote, err = initiator.RemoteStaticKey()
	require.NoError(t, err)
	assert.Equal(t, rPub, remote)
}

func TestIKHandshakeWrongResponderKey(t *testing.T) {
	initiator, err := NewIKHandshake(randomKey(t), publicKey(t, randomKey(t)), Initiator)
	require.NoError(t, err)
	responder, err := NewIKHandshake(randomKey(t), nil, Responder)
	require.NoError(t, err)

	msg1, _, err := initiator.WriteMessage(nil)
	require.NoError(t, err)
	_, _, err = responder.ReadMessage(msg1)
	assert.Error(t, err)
}

func TestXXHandshakeFlow(t *testing.T) {
	iPriv, rPriv := randomKey(t), randomKey(t)

	initiator, err := NewXXHandshake(iPriv, Initiator)
	require.NoError(t, err)
	responder, err := NewXXHandshake(rPriv, Responder)
	require.NoError(t, err)

	runHandshake(t, initiator, responder)
	assertCipherStatesPaired(t, initiator, responder)

	remote, err := initiator.RemoteStaticKey()
	require.NoError(t, err)
	assert.Equal(t, publicKey(t, rPriv), remote)
	remote, err = responder.RemoteStaticKey()
	require.NoError(t, err)
	assert.Equal(t, publicKey(t, iPriv), remote)
}

func TestNewXXHandshakeValidation(t *testing.T) {
	_, err := NewXXHandshake(make([]byte, 31), Initiator)
	assert.Error(t, err)
	_, err = NewXXHandshake(make([]byte, 32), Responder)
	assert.Error(t, err)
}

func TestHandshakeTurnOrder(t *testing.T) {
	initiator, err := NewXXHandshake(randomKey(t), Initiator)
	require.NoError(t, err)
	responder, err := NewXXHandshake(randomKey(t), Responder)
	require.NoError(t, err)

	_, _, err = initiator.ReadMessage([]byte("early"))
	assert.ErrorIs(t, err, ErrOutOfTurn)
	_, _, err = responder.WriteMessage(nil)
	assert.ErrorIs(t, err, ErrOutOfTurn)
}

func TestHandshakeIncompleteAndCompleteErrors(t *testing.T) {
	initiator, err := NewXXHandshake(randomKey(t), Initiator)
	require.NoError(t, err)
	responder, err := NewXXHandshake(randomKey(t), Responder)
	require.NoError(t, err)

	_, _, err = initiator.CipherStates()
	assert.ErrorIs(t, err, ErrHandshakeNotComplete)
	_, err = initiator.RemoteStaticKey()
	assert.ErrorIs(t, err, ErrHandshakeNotComplete)

	runHandshake(t, initiator, responder)

	_, _, err = initiator.WriteMessage(nil)
	assert.ErrorIs(t, err, ErrHandshakeComplete)
	_, _, err = responder.ReadMessage(nil)
	assert.ErrorIs(t, err, ErrHandshakeComplete)
}

func TestLocalStaticKeyIsCopy(t *testing.T) {
	priv := randomKey(t)
	hs, err := NewXXHandshake(priv, Initiator)
	require.NoError(t, err)

	key := hs.LocalStaticKey()
	assert.Equal(t, publicKey(t, priv), key)
	key[0] ^= 0xff
	assert.Equal(t, publicKey(t, priv), hs.LocalStaticKey())
}

func TestHandshakeRoleString(t *testing.T) {
	assert.Equal(t, "initiator", Initiator.String())
	assert.Equal(t, "responder", Responder.String())
}

func BenchmarkXXHandshake(b *testing.B) {
	iPriv, rPriv := randomKey(b), randomKey(b)
	for i := 0; i < b.N; i++ {
		initiator, _ := NewXXHandshake(iPriv, Initiator)
		responder, _ := NewXXHandshake(rPriv, Responder)
		m1, _, _ := initiator.WriteMessage(nil)
		_, _, _ = responder.ReadMessage(m1)
		m2, _, _ := responder.WriteMessage(nil)
		_, _, _ = initiator.ReadMessage(m2)
		m3, _, _ := initiator.WriteMessage(nil)
		_, _, _ = responder.ReadMessage(m3)
	}
}
