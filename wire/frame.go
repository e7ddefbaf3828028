// Package wire implements the transport framing: every frame is a
// 4-byte big-endian length followed by a UTF-8 JSON payload. Length
// delimiting is what keeps one logical message from being merged with
// or split across transport reads.
package wire

import (
	"chat-relay/errors"
	"encoding/binary"
	"fmt"
	"io"
)

const headerSize = 4

// DefaultMaxFrameSize bounds a single payload. A peer announcing a
// larger frame is treated as a protocol error, not an allocation order.
const DefaultMaxFrameSize = 1 << 20

// WriteFrame writes one length-delimited frame. Header and payload are
// emitted through a single Write so the caller's mutual exclusion on the
// writer is enough to keep frame boundaries intact.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > DefaultMaxFrameSize {
		return errors.ErrFrameTooLarge
	}
	buf := make([]byte, headerSize+len(payload))
	binary.BigEndian.PutUint32(buf[:headerSize], uint32(len(payload)))
	copy(buf[headerSize:], payload)
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("writing frame: %w", err)
	}
	return nil
}

// ReadFrame reads exactly one frame payload. It returns io.EOF untouched
// when the transport closes cleanly between frames, so the read loop can
// distinguish a disconnect from a broken frame.
func ReadFrame(r io.Reader, maxSize uint32) ([]byte, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("reading frame header: %w", err)
	}
	length := binary.BigEndian.Uint32(header[:])
	if length > maxSize {
		return nil, fmt.Errorf("%w: announced %d bytes, maximum %d", errors.ErrFrameTooLarge, length, maxSize)
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("reading frame payload: %w", err)
	}
	return payload, nil
}
