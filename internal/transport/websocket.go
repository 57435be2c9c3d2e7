package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/yourusername/pairchat/internal/wire"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// WebSocket carries one envelope per text frame
type WebSocket struct {
	conn     *websocket.Conn
	maxBytes int64

	wmu       sync.Mutex
	closed    chan struct{}
	closeOnce sync.Once
}

// DialWebSocket connects to a host serving the channel over websocket
func DialWebSocket(ctx context.Context, url string, header http.Header, maxBytes int) (*WebSocket, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", url, err)
	}
	return NewWebSocket(conn, maxBytes), nil
}

// NewWebSocket wraps an established connection (either side)
func NewWebSocket(conn *websocket.Conn, maxBytes int) *WebSocket {
	if maxBytes <= 0 {
		maxBytes = wire.DefaultMaxFrameBytes
	}
	return &WebSocket{
		conn:     conn,
		maxBytes: int64(maxBytes),
		closed:   make(chan struct{}),
	}
}

// Send writes a text frame
func (w *WebSocket) Send(data []byte) error {
	select {
	case <-w.closed:
		return ErrClosed
	default:
	}

	w.wmu.Lock()
	defer w.wmu.Unlock()

	w.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := w.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

// Receive reads frames and keeps the connection alive with pings
func (w *WebSocket) Receive(ctx context.Context, deliver func([]byte)) error {
	w.conn.SetReadLimit(w.maxBytes)
	w.conn.SetReadDeadline(time.Now().Add(pongWait))
	w.conn.SetPongHandler(func(string) error {
		w.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	stop := make(chan struct{})
	defer close(stop)
	go w.keepalive(ctx, stop)

	for {
		msgType, data, err := w.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if w.isClosed() || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				return fmt.Errorf("connection closed: %w", err)
			}
			return fmt.Errorf("failed to read message: %w", err)
		}
		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}
		deliver(data)
	}
}

func (w *WebSocket) keepalive(ctx context.Context, stop <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.Close()
			return
		case <-stop:
			return
		case <-ticker.C:
			w.wmu.Lock()
			w.conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := w.conn.WriteMessage(websocket.PingMessage, nil)
			w.wmu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// Close sends a close frame and closes the connection
func (w *WebSocket) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.closed)
		w.wmu.Lock()
		w.conn.SetWriteDeadline(time.Now().Add(writeWait))
		w.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		w.wmu.Unlock()
		err = w.conn.Close()
	})
	return err
}

func (w *WebSocket) isClosed() bool {
	select {
	case <-w.closed:
		return true
	default:
		return false
	}
}
