package wire

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// DefaultMaxFrameBytes bounds a single inbound message
const DefaultMaxFrameBytes = 8 << 20

// ErrFrameTooLarge is returned when a frame exceeds the codec's limit
var ErrFrameTooLarge = errors.New("frame too large")

// Codec splits a byte stream into discrete messages
type Codec interface {
	Name() string
	ReadFrame(r *bufio.Reader) ([]byte, error)
	WriteFrame(w io.Writer, payload []byte) error
}

// LineCodec frames one message per newline-terminated line
type LineCodec struct {
	MaxBytes int
}

// LengthPrefixCodec frames each message behind a 4-byte little-endian length
type LengthPrefixCodec struct {
	MaxBytes int
}

// ByName returns the codec registered under name ("line" or "length")
func ByName(name string, maxBytes int) (Codec, error) {
	switch name {
	case "", "line":
		return LineCodec{MaxBytes: maxBytes}, nil
	case "length":
		return LengthPrefixCodec{MaxBytes: maxBytes}, nil
	default:
		return nil, fmt.Errorf("unknown framing %q (valid: line, length)", name)
	}
}

func limit(max int) int {
	if max <= 0 {
		return DefaultMaxFrameBytes
	}
	return max
}

func (LineCodec) Name() string { return "line" }

// ReadFrame returns the next non-empty line without its terminator
func (c LineCodec) ReadFrame(r *bufio.Reader) ([]byte, error) {
	max := limit(c.MaxBytes)
	for {
		var buf []byte
		for {
			chunk, err := r.ReadSlice('\n')
			buf = append(buf, chunk...)
			if len(buf) > max+1 {
				return nil, fmt.Errorf("%w: more than %d bytes", ErrFrameTooLarge, max)
			}
			if err == bufio.ErrBufferFull {
				continue
			}
			if err != nil {
				if err == io.EOF && len(bytes.TrimSpace(buf)) > 0 {
					return bytes.TrimSpace(buf), nil
				}
				return nil, err
			}
			break
		}
		line := bytes.TrimSpace(buf)
		if len(line) > 0 {
			return line, nil
		}
	}
}

// WriteFrame writes payload followed by a newline
func (c LineCodec) WriteFrame(w io.Writer, payload []byte) error {
	if bytes.IndexByte(payload, '\n') >= 0 {
		return fmt.Errorf("line frame contains newline")
	}
	buf := make([]byte, 0, len(payload)+1)
	buf = append(buf, payload...)
	buf = append(buf, '\n')
	_, err := w.Write(buf)
	return err
}

func (LengthPrefixCodec) Name() string { return "length" }

// ReadFrame reads one length-prefixed payload
func (c LengthPrefixCodec) ReadFrame(r *bufio.Reader) ([]byte, error) {
	var length uint32
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return nil, err
	}
	if int64(length) > int64(limit(c.MaxBytes)) {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, length)
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// WriteFrame writes payload with a 4-byte little-endian length prefix
func (c LengthPrefixCodec) WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > limit(c.MaxBytes) {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(payload))
	}
	buf := make([]byte, 4+len(payload))
	binary.LittleEndian.PutUint32(buf, uint32(len(payload)))
	copy(buf[4:], payload)
	_, err := w.Write(buf)
	return err
}
