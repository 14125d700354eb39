package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	// HeaderLen is the size of the length prefix.
	HeaderLen = 4

	// MaxFrameSize is the default upper bound on a frame, header included.
	MaxFrameSize = 16 * 1024 * 1024
)

var (
	ErrFrameTooShort = errors.New("Frame is malformed, its length is smaller than the header")
	ErrFrameTooLarge = errors.New("Frame exceeds the maximum frame size")
)

// ShortReadError is returned when the peer closed the stream part way
// through a frame.
type ShortReadError struct {
	// Expected is the number of bytes the frame (or its header) announced.
	Expected int

	// Received is how many of them arrived.
	Received int
}

func (e *ShortReadError) Error() string {
	return fmt.Sprintf("short read: expected %d bytes, received %d", e.Expected, e.Received)
}

func (e *ShortReadError) Unwrap() error {
	return io.ErrUnexpectedEOF
}

// ReadFrame reads a single frame from r and returns its payload. It is
// ReadFrameLimit with MaxFrameSize.
func ReadFrame(r io.Reader) ([]byte, error) {
	return ReadFrameLimit(r, MaxFrameSize)
}

// ReadFrameLimit reads a single frame from r, rejecting frames whose total
// length exceeds limit.
//
// It returns io.EOF if the stream ended cleanly before the frame started,
// and a *ShortReadError if it ended part way through.
func ReadFrameLimit(r io.Reader, limit int) ([]byte, error) {
	var header [HeaderLen]byte

	n, err := io.ReadFull(r, header[:])
	switch {
	case errors.Is(err, io.ErrUnexpectedEOF):
		return nil, &ShortReadError{Expected: HeaderLen, Received: n}
	case err != nil:
		return nil, err
	}

	length := int64(binary.BigEndian.Uint32(header[:]))
	if length < HeaderLen {
		return nil, fmt.Errorf("Frame announced %d bytes: %w", length, ErrFrameTooShort)
	}
	if limit > 0 && length > int64(limit) {
		return nil, fmt.Errorf("Frame announced %d bytes, limit is %d: %w", length, limit, ErrFrameTooLarge)
	}

	payload := make([]byte, length-HeaderLen)

	n, err = io.ReadFull(r, payload)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, &ShortReadError{Expected: int(length), Received: HeaderLen + n}
		}
		return nil, err
	}

	return payload, nil
}
