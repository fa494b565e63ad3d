package sasl

import (
	"fmt"

	"github.com/opd-ai/sasl/transport"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

// Layer is the protection layer stacked on a connection by Install. It holds
// the stream it was stacked on, the security context, the negotiated
// properties read once at install time, and decoded bytes that a previous
// Read could not hand out.
//
// A Layer follows the concurrency rules of its Connection: at most one
// reader and one writer at a time.
type Layer struct {
	conn     *transport.Connection
	lower    transport.Stream
	ctx      SecurityContext
	ssf      int
	maxBuf   int
	observer Observer

	// pending holds decoded bytes not yet delivered; pos <= len(pending).
	pending []byte
	pos     int

	closed bool
}

var _ transport.Layer = (*Layer)(nil)

// Install stacks a protection layer driven by sc on conn. It must be called
// after authentication produced sc and before any protected traffic flows.
//
// The strength factor and maximum buffer size are read once; if either
// cannot be obtained, nothing is attached and a setup error is returned,
// since a silent pass-through would defeat the negotiated protection.
func Install(conn *transport.Connection, sc SecurityContext, opts ...Option) error {
	if sc == nil {
		return newLayerError("install", ErrSetup, ErrNilContext)
	}
	if conn.Layered() {
		return newLayerError("install", ErrSetup, transport.ErrAlreadyLayered)
	}

	ssf, maxBuf, err := negotiatedProperties(sc)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Install",
			"conn_id":  conn.ID().String(),
			"error":    err.Error(),
		}).Error("Failed to read negotiated security properties")
		return newLayerError("install", ErrSetup, err)
	}

	l := &Layer{
		conn:     conn,
		lower:    conn.Stream(),
		ctx:      sc,
		ssf:      ssf,
		maxBuf:   maxBuf,
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(l)
	}

	if err := conn.Attach(l); err != nil {
		return newLayerError("install", ErrSetup, err)
	}
	conn.AddSSF(ssf)
	l.observer.LayerInstalled(ssf)

	logrus.WithFields(logrus.Fields{
		"function":     "Install",
		"conn_id":      conn.ID().String(),
		"layer_ssf":    ssf,
		"max_buf_size": maxBuf,
		"total_ssf":    conn.SSF(),
	}).Debug("Security layer installed")

	return nil
}

// negotiatedProperties reads and validates the strength factor and the
// maximum output buffer size.
func negotiatedProperties(sc SecurityContext) (int, int, error) {
	ssf, err := sc.Property(PropSSF)
	if err != nil {
		return 0, 0, fmt.Errorf("get %s: %w", PropSSF, err)
	}
	if ssf < 0 {
		return 0, 0, fmt.Errorf("invalid %s %d", PropSSF, ssf)
	}

	maxBuf, err := sc.Property(PropMaxOutBuf)
	if err != nil {
		return 0, 0, fmt.Errorf("get %s: %w", PropMaxOutBuf, err)
	}
	if ssf > 0 && maxBuf <= 0 {
		return 0, 0, fmt.Errorf("invalid %s %d", PropMaxOutBuf, maxBuf)
	}

	return ssf, maxBuf, nil
}

// Lower returns the stream the layer was stacked on.
func (l *Layer) Lower() transport.Stream {
	return l.lower
}

// SSF returns the layer's negotiated strength factor.
func (l *Layer) SSF() int {
	return l.ssf
}

// MaxBufSize returns the largest plaintext chunk passed to one Encode call.
func (l *Layer) MaxBufSize() int {
	return l.maxBuf
}

// Buffered returns the number of decoded bytes waiting to be read.
func (l *Layer) Buffered() int {
	return len(l.pending) - l.pos
}

// Open delegates to the stream beneath the layer.
func (l *Layer) Open() error {
	if l.closed {
		return newLayerError("open", ErrLayerClosed, nil)
	}
	return l.lower.Open()
}

// Close tears the layer down unconditionally: the connection is restored to
// its pre-install stream before the security context is disposed, and only
// then is the restored stream closed. The result of that close is returned,
// joined with any dispose error.
func (l *Layer) Close() error {
	if l.closed {
		return newLayerError("close", ErrLayerClosed, nil)
	}

	var errs error
	if err := l.conn.Detach(l); err != nil {
		errs = multierr.Append(errs, err)
	}
	l.conn.SubSSF(l.ssf)

	if err := l.ctx.Dispose(); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Layer.Close",
			"conn_id":  l.conn.ID().String(),
			"error":    err.Error(),
		}).Warn("Failed to dispose security context")
		errs = multierr.Append(errs, fmt.Errorf("dispose: %w", err))
	}

	l.pending = nil
	l.pos = 0
	l.ctx = nil
	l.closed = true
	l.observer.LayerClosed(l.ssf)

	logrus.WithFields(logrus.Fields{
		"function":  "Layer.Close",
		"conn_id":   l.conn.ID().String(),
		"total_ssf": l.conn.SSF(),
	}).Debug("Security layer removed")

	return multierr.Append(l.conn.Close(), errs)
}

// Read returns decoded application bytes. Buffered bytes are handed out
// first without touching the socket; a Read may return fewer bytes than
// requested, exactly as a stream socket would.
func (l *Layer) Read(p []byte) (int, error) {
	if l.closed {
		return 0, newLayerError("read", ErrLayerClosed, nil)
	}

	if l.pos < len(l.pending) {
		n := copy(p, l.pending[l.pos:])
		l.pos += n
		return n, nil
	}

	l.pending = nil
	l.pos = 0

	if l.ssf == 0 {
		return l.lower.Read(p)
	}

	// One network read can decode to nothing (a partial frame, or a frame
	// without application data), so keep reading until plaintext appears.
	// Any n <= 0 from below is returned as is, even mid-loop.
	for {
		n, err := l.lower.Read(p)
		if n <= 0 {
			return n, err
		}

		out, derr := l.ctx.Decode(p[:n])
		if derr != nil {
			l.observer.Failed("decode")
			logrus.WithFields(logrus.Fields{
				"function": "Layer.Read",
				"conn_id":  l.conn.ID().String(),
				"input":    n,
				"error":    derr.Error(),
			}).Error("SASL decode failed")
			return 0, newLayerError("read", ErrDecode, derr)
		}
		l.observer.Decoded(n, len(out))

		if len(out) > 0 {
			l.pending = out
			l.pos = copy(p, out)
			return l.pos, err
		}
		if err != nil {
			return 0, err
		}
	}
}

// Write encodes p in chunks of at most MaxBufSize bytes, writing each
// encoded chunk with a single call to the stream beneath. An encoded chunk
// cannot be resumed part way, so a short write is fatal for the whole call;
// the returned count then covers only fully written chunks.
func (l *Layer) Write(p []byte) (int, error) {
	if l.closed {
		return 0, newLayerError("write", ErrLayerClosed, nil)
	}

	if l.ssf == 0 {
		return l.lower.Write(p)
	}

	written := 0
	for written < len(p) {
		chunk := len(p) - written
		if chunk > l.maxBuf {
			chunk = l.maxBuf
		}

		enc, err := l.ctx.Encode(p[written : written+chunk])
		if err != nil {
			l.observer.Failed("encode")
			logrus.WithFields(logrus.Fields{
				"function": "Layer.Write",
				"conn_id":  l.conn.ID().String(),
				"chunk":    chunk,
				"error":    err.Error(),
			}).Error("SASL encoding failed")
			return written, newLayerError("write", ErrEncode, err)
		}
		l.observer.Encoded(chunk, len(enc))

		n, err := l.lower.Write(enc)
		if n != len(enc) {
			l.observer.Failed("write")
			logrus.WithFields(logrus.Fields{
				"function": "Layer.Write",
				"conn_id":  l.conn.ID().String(),
				"encoded":  len(enc),
				"written":  n,
			}).Error("Short write of encoded chunk")
			return written, newLayerError("write", ErrShortWrite, err)
		}

		written += chunk
	}

	return written, nil
}
