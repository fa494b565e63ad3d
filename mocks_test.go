package sasl

import (
	"bytes"
	"errors"
	"io"
)

// readResult is one scripted answer of mockStream.Read.
type readResult struct {
	data []byte
	err  error
}

// mockStream is a scripted transport.Stream standing in for the socket.
type mockStream struct {
	reads      []readResult
	readCalls  int
	writes     [][]byte
	writeLimit func(call int, p []byte) (int, error)
	opened     int
	closed     int
	closeErr   error
}

func (m *mockStream) Open() error {
	m.opened++
	return nil
}

func (m *mockStream) Close() error {
	m.closed++
	return m.closeErr
}

func (m *mockStream) Read(p []byte) (int, error) {
	m.readCalls++
	if len(m.reads) == 0 {
		return 0, io.EOF
	}
	r := m.reads[0]
	n := copy(p, r.data)
	if n < len(r.data) {
		m.reads[0].data = r.data[n:]
		return n, nil
	}
	m.reads = m.reads[1:]
	return n, r.err
}

func (m *mockStream) Write(p []byte) (int, error) {
	call := len(m.writes)
	m.writes = append(m.writes, append([]byte(nil), p...))
	if m.writeLimit != nil {
		return m.writeLimit(call, p)
	}
	return len(p), nil
}

// written returns everything the layer sent to the socket.
func (m *mockStream) written() []byte {
	return bytes.Join(m.writes, nil)
}

// mockContext is a SecurityContext whose transforms are supplied by tests.
// By default Encode frames its input and Decode unframes it.
type mockContext struct {
	ssf       int
	maxBuf    int
	ssfErr    error
	maxBufErr error

	encode func(p []byte) ([]byte, error)
	decode func(p []byte) ([]byte, error)

	encodeInputs [][]byte
	decodeCalls  int
	disposed     int
	disposeErr   error

	frames *FrameBuffer
}

func newMockContext(ssf, maxBuf int) *mockContext {
	return &mockContext{ssf: ssf, maxBuf: maxBuf, frames: NewFrameBuffer(0)}
}

func (c *mockContext) Property(id PropertyID) (int, error) {
	switch id {
	case PropSSF:
		return c.ssf, c.ssfErr
	case PropMaxOutBuf:
		return c.maxBuf, c.maxBufErr
	default:
		return 0, errors.New("unknown property")
	}
}

func (c *mockContext) Encode(p []byte) ([]byte, error) {
	c.encodeInputs = append(c.encodeInputs, append([]byte(nil), p...))
	if c.encode != nil {
		return c.encode(p)
	}
	return AppendFrame(nil, p), nil
}

func (c *mockContext) Decode(p []byte) ([]byte, error) {
	c.decodeCalls++
	if c.decode != nil {
		return c.decode(p)
	}
	frames, err := c.frames.Feed(p)
	if err != nil {
		return nil, err
	}
	return bytes.Join(frames, nil), nil
}

func (c *mockContext) Dispose() error {
	c.disposed++
	return c.disposeErr
}

// recordingObserver counts the events a layer reports.
type recordingObserver struct {
	installed  []int
	closed     []int
	plainOut   int
	encodedOut int
	encodedIn  int
	plainIn    int
	failures   []string
}

func (o *recordingObserver) LayerInstalled(ssf int) { o.installed = append(o.installed, ssf) }
func (o *recordingObserver) LayerClosed(ssf int)    { o.closed = append(o.closed, ssf) }
func (o *recordingObserver) Encoded(plain, encoded int) {
	o.plainOut += plain
	o.encodedOut += encoded
}
func (o *recordingObserver) Decoded(encoded, plain int) {
	o.encodedIn += encoded
	o.plainIn += plain
}
func (o *recordingObserver) Failed(op string) { o.failures = append(o.failures, op) }
