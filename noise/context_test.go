package noise

import (
	"bytes"
	"io"
	"net"
	"testing"

	"github.com/opd-ai/sasl"
	"github.com/opd-ai/sasl/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completedXX(t *testing.T) (Handshake, Handshake) {
	t.Helper()
	initiator, err := NewXXHandshake(randomKey(t), Initiator)
	require.NoError(t, err)
	responder, err := NewXXHandshake(randomKey(t), Responder)
	require.NoError(t, err)
	runHandshake(t, initiator, responder)
	return initiator, responder
}

func TestNewSecurityContext(t *testing.T) {
	initiator, _ := completedXX(t)

	tests := []struct {
		name    string
		maxBuf  int
		want    int
		wantErr bool
	}{
		{name: "default", maxBuf: 0, want: MaxBufSize},
		{name: "explicit", maxBuf: 1024, want: 1024},
		{name: "capped", maxBuf: 1 << 20, want: MaxBufSize},
		{name: "negative", maxBuf: -1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc, err := NewSecurityContext(initiator, tt.maxBuf)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			ssf, err := sc.Property(sasl.PropSSF)
			require.NoError(t, err)
			assert.Equal(t, SSF, ssf)

			maxBuf, err := sc.Property(sasl.PropMaxOutBuf)
			require.NoError(t, err)
			assert.Equal(t, tt.want, maxBuf)
		})
	}
}

func TestNewSecurityContextIncompleteHandshake(t *testing.T) {
	hs, err := NewXXHandshake(randomKey(t), Initiator)
	require.NoError(t, err)

	_, err = NewSecurityContext(hs, 0)
	assert.ErrorIs(t, err, ErrHandshakeNotComplete)
}

func TestSecurityContextEncodeDecode(t *testing.T) {
	initiator, responder := completedXX(t)
	client, err := NewSecurityContext(initiator, 64)
	require.NoError(t, err)
	server, err := NewSecurityContext(responder, 64)
	require.NoError(t, err)

	enc, err := client.Encode([]byte("ping"))
	require.NoError(t, err)

	out, err := server.Decode(enc[:5])
	require.NoError(t, err)
	assert.Empty(t, out, "an incomplete message decodes to nothing")

	out, err = server.Decode(enc[5:])
	require.NoError(t, err)
	assert.Equal(t, "ping", string(out))

	enc, err = server.Encode([]byte("pong"))
	require.NoError(t, err)
	out, err = client.Decode(enc)
	require.NoError(t, err)
	assert.Equal(t, "pong", string(out))
}

func TestSecurityContextEmptyMessageDecodesToNothing(t *testing.T) {
	initiator, responder := completedXX(t)
	client, err := NewSecurityContext(initiator, 0)
	require.NoError(t, err)
	server, err := NewSecurityContext(responder, 0)
	require.NoError(t, err)

	enc, err := client.Encode(nil)
	require.NoError(t, err)

	out, err := server.Decode(enc)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestSecurityContextRejectsTampering(t *testing.T) {
	initiator, responder := completedXX(t)
	client, err := NewSecurityContext(initiator, 0)
	require.NoError(t, err)
	server, err := NewSecurityContext(responder, 0)
	require.NoError(t, err)

	enc, err := client.Encode([]byte("data"))
	require.NoError(t, err)
	enc[sasl.FrameHeaderSize] ^= 0x01

	_, err = server.Decode(enc)
	assert.Error(t, err)
}

func TestSecurityContextLimits(t *testing.T) {
	initiator, _ := completedXX(t)
	sc, err := NewSecurityContext(initiator, 8)
	require.NoError(t, err)

	_, err = sc.Encode(make([]byte, 9))
	assert.Error(t, err)

	_, err = sc.Decode(sasl.AppendFrame(nil, make([]byte, MaxBufSize+tagSize+1)))
	assert.ErrorIs(t, err, sasl.ErrFrameTooLarge)
}

func TestSecurityContextMismatchedMaxBuf(t *testing.T) {
	initiator, responder := completedXX(t)
	client, err := NewSecurityContext(initiator, 0)
	require.NoError(t, err)
	server, err := NewSecurityContext(responder, 1024)
	require.NoError(t, err)

	msg := bytes.Repeat([]byte{0x5a}, 2000)
	enc, err := client.Encode(msg)
	require.NoError(t, err)

	out, err := server.Decode(enc)
	require.NoError(t, err, "the receive limit does not depend on the local send bound")
	assert.Equal(t, msg, out)

	enc, err = server.Encode(make([]byte, 1025))
	assert.Error(t, err)
	assert.Nil(t, enc)
}

func TestSecurityContextDispose(t *testing.T) {
	initiator, _ := completedXX(t)
	sc, err := NewSecurityContext(initiator, 0)
	require.NoError(t, err)

	require.NoError(t, sc.Dispose())
	_, err = sc.Encode([]byte("x"))
	assert.ErrorIs(t, err, ErrContextDisposed)
	_, err = sc.Decode([]byte("x"))
	assert.ErrorIs(t, err, ErrContextDisposed)
	_, err = sc.Property(sasl.PropSSF)
	assert.ErrorIs(t, err, ErrContextDisposed)
	assert.ErrorIs(t, sc.Dispose(), ErrContextDisposed)
}

// pipeConnections returns two bare connections joined by an in-memory pipe.
func pipeConnections(t *testing.T) (*transport.Connection, *transport.Connection) {
	t.Helper()
	c1, c2 := net.Pipe()
	t.Cleanup(func() {
		c1.Close()
		c2.Close()
	})
	return transport.NewConnection(transport.WrapConn(c1, transport.SocketConfig{})),
		transport.NewConnection(transport.WrapConn(c2, transport.SocketConfig{}))
}

func TestNegotiateXXAndInstall(t *testing.T) {
	client, server := pipeConnections(t)
	cPriv, sPriv := randomKey(t), randomKey(t)

	type result struct {
		hs  *XXHandshake
		err error
	}
	done := make(chan result, 1)
	go func() {
		hs, err := NegotiateXX(server, sPriv, Responder)
		done <- result{hs, err}
	}()

	chs, err := NegotiateXX(client, cPriv, Initiator)
	require.NoError(t, err)
	res := <-done
	require.NoError(t, res.err)

	peer, err := chs.RemoteStaticKey()
	require.NoError(t, err)
	assert.Equal(t, publicKey(t, sPriv), peer)

	csc, err := NewSecurityContext(chs, 32)
	require.NoError(t, err)
	ssc, err := NewSecurityContext(res.hs, 32)
	require.NoError(t, err)
	require.NoError(t, sasl.Install(client, csc))
	require.NoError(t, sasl.Install(server, ssc))
	assert.Equal(t, SSF, client.SSF())

	msg := bytes.Repeat([]byte("abcdefgh"), 20)
	errc := make(chan error, 1)
	go func() {
		_, err := client.Write(msg)
		errc <- err
	}()

	got := make([]byte, len(msg))
	_, err = io.ReadFull(server, got)
	require.NoError(t, err)
	require.NoError(t, <-errc)
	assert.Equal(t, msg, got)

	go func() {
		_, err := server.Write([]byte("ack"))
		errc <- err
	}()
	reply := make([]byte, 3)
	_, err = io.ReadFull(client, reply)
	require.NoError(t, err)
	require.NoError(t, <-errc)
	assert.Equal(t, "ack", string(reply))

	require.NoError(t, client.Close())
	assert.False(t, client.Layered())
}

func TestNegotiateIK(t *testing.T) {
	client, server := pipeConnections(t)
	cPriv, sPriv := randomKey(t), randomKey(t)

	errc := make(chan error, 1)
	go func() {
		_, err := NegotiateIK(server, sPriv, nil, Responder)
		errc <- err
	}()

	hs, err := NegotiateIK(client, cPriv, publicKey(t, sPriv), Initiator)
	require.NoError(t, err)
	require.NoError(t, <-errc)
	assert.True(t, hs.IsComplete())
}

func TestNegotiateFailsOnClosedPeer(t *testing.T) {
	client, server := pipeConnections(t)

	go func() {
		hdr := make([]byte, 64)
		_, _ = server.Read(hdr)
		_ = server.Close()
	}()

	_, err := NegotiateXX(client, randomKey(t), Initiator)
	assert.Error(t, err)
}

func TestReadHandshakeFrameRejectsOversize(t *testing.T) {
	hdr := []byte{0x00, 0x01, 0x00, 0x00}
	_, err := readHandshakeFrame(bytes.NewReader(hdr))
	assert.ErrorIs(t, err, sasl.ErrFrameTooLarge)
}
