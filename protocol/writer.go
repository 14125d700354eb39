package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// AppendFrame appends the frame holding payload to dst.
func AppendFrame(dst, payload []byte) []byte {
	var header [HeaderLen]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(payload)+HeaderLen))

	dst = append(dst, header[:]...)
	return append(dst, payload...)
}

// EncodeFrame returns payload prefixed with its frame header.
func EncodeFrame(payload []byte) ([]byte, error) {
	if err := checkSize(payload); err != nil {
		return nil, err
	}
	return AppendFrame(make([]byte, 0, len(payload)+HeaderLen), payload), nil
}

// WriteFrame writes payload to w as a single frame.
func WriteFrame(w io.Writer, payload []byte) error {
	b, err := EncodeFrame(payload)
	if err != nil {
		return err
	}

	_, err = w.Write(b)
	return err
}

// WriteFrames writes every payload as back to back frames in one write. It
// returns the number of frames that were completely written, which is less
// than len(payloads) only when err is not nil.
func WriteFrames(w io.Writer, payloads ...[]byte) (int, error) {
	if len(payloads) == 0 {
		return 0, nil
	}

	size := 0
	for _, p := range payloads {
		if err := checkSize(p); err != nil {
			return 0, err
		}
		size += len(p) + HeaderLen
	}

	buf := make([]byte, 0, size)
	for _, p := range payloads {
		buf = AppendFrame(buf, p)
	}

	n, err := w.Write(buf)
	if err != nil {
		return CompleteFrames(n, payloads), err
	}

	return len(payloads), nil
}

// CompleteFrames reports how many of the frames holding payloads fit
// entirely within the first written bytes of their concatenation.
func CompleteFrames(written int, payloads [][]byte) int {
	count := 0
	for _, p := range payloads {
		written -= len(p) + HeaderLen
		if written < 0 {
			break
		}
		count++
	}
	return count
}

func checkSize(payload []byte) error {
	if int64(len(payload))+HeaderLen > math.MaxUint32 {
		return fmt.Errorf("Payload of %d bytes: %w", len(payload), ErrFrameTooLarge)
	}
	return nil
}
