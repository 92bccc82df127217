package transport

import (
	"encoding/binary"
	"errors"
	"fmt"
	"github.com/sugawarayuuta/sonnet"
	"io"
)

const (
	frameHeaderSize = 4
	// DefaultMaxFrameSize is the largest frame accepted unless changed with [MaxFrameSize].
	DefaultMaxFrameSize = 1 << 20
)

var (
	ErrFrameTooLarge = errors.New("frame too large")
)

// WriteFrame writes msg to w as a 4 byte big endian length, followed by the encoded [Message].
// The frame is written with a single call to Write.
func WriteFrame(w io.Writer, msg Message, maxSize uint32) error {
	body, err := sonnet.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}
	if uint64(len(body)) > uint64(maxSize) {
		return fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrFrameTooLarge, len(body), maxSize)
	}
	frame := make([]byte, frameHeaderSize, frameHeaderSize+len(body))
	binary.BigEndian.PutUint32(frame, uint32(len(body)))
	frame = append(frame, body...)
	_, err = w.Write(frame)
	return err
}

// ReadFrame reads a single frame written by [WriteFrame].
// [io.EOF] is returned only if r ends cleanly between frames.
func ReadFrame(r io.Reader, maxSize uint32) (Message, error) {
	var header [frameHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return Message{}, err
	}
	size := binary.BigEndian.Uint32(header[:])
	if size > maxSize {
		return Message{}, fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrFrameTooLarge, size, maxSize)
	}
	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return Message{}, err
	}
	var msg Message
	if err := sonnet.Unmarshal(body, &msg); err != nil {
		return Message{}, fmt.Errorf("failed to decode message: %w", err)
	}
	return msg, nil
}
