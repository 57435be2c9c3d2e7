package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/yourusername/pairchat/internal/wire"
)

// Stream frames messages over a reader/writer pair
type Stream struct {
	reader *bufio.Reader
	writer io.Writer
	closer io.Closer
	conn   net.Conn
	codec  wire.Codec

	writeTimeout time.Duration

	wmu       sync.Mutex
	closed    chan struct{}
	closeOnce sync.Once
}

// NewStream creates a stream transport. closer may be nil.
func NewStream(r io.Reader, w io.Writer, closer io.Closer, codec wire.Codec) *Stream {
	if codec == nil {
		codec = wire.LineCodec{}
	}
	return &Stream{
		reader: bufio.NewReader(r),
		writer: w,
		closer: closer,
		codec:  codec,
		closed: make(chan struct{}),
	}
}

// Stdio talks to a host that launched this process, over stdin/stdout
func Stdio(codec wire.Codec) *Stream {
	return NewStream(os.Stdin, os.Stdout, nil, codec)
}

// DialUnix connects to a host listening on a unix domain socket
func DialUnix(ctx context.Context, socketPath string, codec wire.Codec, writeTimeout time.Duration) (*Stream, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to socket %s: %w", socketPath, err)
	}
	s := NewStream(conn, conn, conn, codec)
	s.conn = conn
	s.writeTimeout = writeTimeout
	return s, nil
}

// Send writes one framed message
func (s *Stream) Send(data []byte) error {
	select {
	case <-s.closed:
		return ErrClosed
	default:
	}

	s.wmu.Lock()
	defer s.wmu.Unlock()

	if s.conn != nil && s.writeTimeout > 0 {
		if err := s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout)); err != nil {
			return fmt.Errorf("failed to set write deadline: %w", err)
		}
	}
	if err := s.codec.WriteFrame(s.writer, data); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}

// Receive reads frames until EOF, Close, or ctx cancellation
func (s *Stream) Receive(ctx context.Context, deliver func([]byte)) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-stop:
		}
	}()

	for {
		frame, err := s.codec.ReadFrame(s.reader)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if s.isClosed() || errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("failed to read frame: %w", err)
		}
		deliver(frame)
	}
}

// Close closes the underlying connection, if any
func (s *Stream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closed)
		if s.closer != nil {
			err = s.closer.Close()
		}
	})
	return err
}

func (s *Stream) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}
