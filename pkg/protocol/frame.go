package protocol

import (
	"errors"
	"fmt"
	"io"

	"google.golang.org/protobuf/encoding/protowire"
)

// MaxFrameSize bounds a length-prefixed frame payload.
const MaxFrameSize = 4096

// ErrFrameTooLarge is returned when a frame exceeds the framer's size limit.
var ErrFrameTooLarge = errors.New("frame exceeds maximum size")

// Framer splits a byte stream into frame payloads.
type Framer interface {
	// AppendFrame appends payload to dst as one frame.
	AppendFrame(dst, payload []byte) ([]byte, error)

	// NextFrame extracts the first complete frame from buf and reports how
	// many bytes it consumed. n == 0 means buf does not hold a complete frame yet.
	NextFrame(buf []byte) (payload []byte, n int, err error)
}

// LengthPrefixFramer writes uvarint(len) || payload.
type LengthPrefixFramer struct {
	MaxSize int
}

func (f LengthPrefixFramer) limit() int {
	if f.MaxSize <= 0 {
		return MaxFrameSize
	}
	return f.MaxSize
}

// AppendFrame implements Framer.
func (f LengthPrefixFramer) AppendFrame(dst, payload []byte) ([]byte, error) {
	if len(payload) > f.limit() {
		return dst, fmt.Errorf("failed to frame %d bytes: %w", len(payload), ErrFrameTooLarge)
	}
	return protowire.AppendBytes(dst, payload), nil
}

// NextFrame implements Framer.
func (f LengthPrefixFramer) NextFrame(buf []byte) ([]byte, int, error) {
	size, n := protowire.ConsumeVarint(buf)
	if n < 0 {
		err := protowire.ParseError(n)
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("failed to read frame header: %w", err)
	}
	if size > uint64(f.limit()) {
		return nil, 0, fmt.Errorf("failed to read frame of %d bytes: %w", size, ErrFrameTooLarge)
	}
	end := n + int(size)
	if len(buf) < end {
		return nil, 0, nil
	}
	return buf[n:end], end, nil
}

// RawFramer treats whatever bytes are available, up to MaxTextSize, as one
// frame. Messages written back to back may arrive split or coalesced.
type RawFramer struct{}

// AppendFrame implements Framer.
func (RawFramer) AppendFrame(dst, payload []byte) ([]byte, error) {
	if len(payload) > MaxTextSize {
		return dst, fmt.Errorf("failed to frame %d bytes: %w", len(payload), ErrFrameTooLarge)
	}
	return append(dst, payload...), nil
}

// NextFrame implements Framer.
func (RawFramer) NextFrame(buf []byte) ([]byte, int, error) {
	n := min(len(buf), MaxTextSize)
	if n == 0 {
		return nil, 0, nil
	}
	return buf[:n], n, nil
}
