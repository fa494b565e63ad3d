package sasl

import (
	"encoding/binary"
	"fmt"
)

// FrameHeaderSize is the length prefix of every security layer frame.
const FrameHeaderSize = 4

// DefaultMaxFrameSize is the largest frame a peer may announce: the 24 bit
// limit on negotiated buffer sizes.
const DefaultMaxFrameSize = 0xFFFFFF

// AppendFrame appends payload to dst with a 4 byte big-endian length prefix.
func AppendFrame(dst, payload []byte) []byte {
	var hdr [FrameHeaderSize]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(payload)))
	dst = append(dst, hdr[:]...)
	return append(dst, payload...)
}

// FrameBuffer reassembles length-prefixed frames from arbitrary network
// reads. Providers feed it every Decode input and process the complete
// frames it hands back.
type FrameBuffer struct {
	buf   []byte
	limit int
}

// NewFrameBuffer creates a buffer that rejects frames larger than limit
// bytes. A non-positive limit selects DefaultMaxFrameSize.
func NewFrameBuffer(limit int) *FrameBuffer {
	if limit <= 0 {
		limit = DefaultMaxFrameSize
	}
	return &FrameBuffer{limit: limit}
}

// Feed appends p and returns every frame payload completed by it. Partial
// input is kept for the next call. Returned payloads do not alias p.
func (f *FrameBuffer) Feed(p []byte) ([][]byte, error) {
	f.buf = append(f.buf, p...)

	var frames [][]byte
	for len(f.buf) >= FrameHeaderSize {
		size := binary.BigEndian.Uint32(f.buf[:FrameHeaderSize])
		if uint64(size) > uint64(f.limit) {
			return frames, fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, size, f.limit)
		}
		end := FrameHeaderSize + int(size)
		if len(f.buf) < end {
			break
		}
		frame := make([]byte, size)
		copy(frame, f.buf[FrameHeaderSize:end])
		frames = append(frames, frame)
		f.buf = f.buf[end:]
	}

	if len(f.buf) == 0 {
		f.buf = nil
	}
	return frames, nil
}

// Pending returns the number of bytes held for an incomplete frame.
func (f *FrameBuffer) Pending() int {
	return len(f.buf)
}

// Reset drops any partial frame.
func (f *FrameBuffer) Reset() {
	f.buf = nil
}
