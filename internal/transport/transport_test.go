package transport

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/yourusername/pairchat/internal/wire"
)

// collect runs Receive in the background and returns a channel of messages
func collect(t *testing.T, ctx context.Context, tr Transport) (<-chan string, <-chan error) {
	t.Helper()
	msgs := make(chan string, 64)
	done := make(chan error, 1)
	go func() {
		done <- tr.Receive(ctx, func(b []byte) { msgs <- string(b) })
	}()
	return msgs, done
}

func expect(t *testing.T, msgs <-chan string, want string) {
	t.Helper()
	select {
	case got := <-msgs:
		if got != want {
			t.Errorf("received %q, want %q", got, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %q", want)
	}
}

func TestPipeOrdered(t *testing.T) {
	a, b := Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgs, _ := collect(t, ctx, b)
	for _, m := range []string{"one", "two", "three"} {
		if err := a.Send([]byte(m)); err != nil {
			t.Fatalf("Send(%s) error: %v", m, err)
		}
	}
	expect(t, msgs, "one")
	expect(t, msgs, "two")
	expect(t, msgs, "three")
}

func TestPipeSendCopiesData(t *testing.T) {
	a, b := Pipe()
	buf := []byte("original")
	a.Send(buf)
	copy(buf, "mutated!")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	msgs, _ := collect(t, ctx, b)
	expect(t, msgs, "original")
}

func TestPipeClose(t *testing.T) {
	a, b := Pipe()
	a.Send([]byte("before close"))
	ctx := context.Background()
	msgs, done := collect(t, ctx, b)

	expect(t, msgs, "before close")
	a.Close()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Receive() after Close = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Receive() did not return after Close")
	}
	if err := b.Send([]byte("x")); !errors.Is(err, ErrClosed) {
		t.Errorf("Send() after Close = %v, want ErrClosed", err)
	}
}

func TestPipeContextCancel(t *testing.T) {
	_, b := Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	_, done := collect(t, ctx, b)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Receive() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Receive() did not return after cancel")
	}
}

func TestStreamOverNetPipe(t *testing.T) {
	for _, codec := range []wire.Codec{wire.LineCodec{}, wire.LengthPrefixCodec{}} {
		t.Run(codec.Name(), func(t *testing.T) {
			c1, c2 := net.Pipe()
			left := NewStream(c1, c1, c1, codec)
			right := NewStream(c2, c2, c2, codec)
			defer left.Close()
			defer right.Close()

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			msgs, _ := collect(t, ctx, right)

			go func() {
				left.Send([]byte(`{"id":"1","command":"ready"}`))
				left.Send([]byte(`{"id":"2","command":"initialized"}`))
			}()
			expect(t, msgs, `{"id":"1","command":"ready"}`)
			expect(t, msgs, `{"id":"2","command":"initialized"}`)
		})
	}
}

func TestStreamEOF(t *testing.T) {
	s := NewStream(strings.NewReader("{\"a\":1}\n"), nil, nil, wire.LineCodec{})
	var got []string
	err := s.Receive(context.Background(), func(b []byte) { got = append(got, string(b)) })
	if err != nil {
		t.Errorf("Receive() at EOF = %v, want nil", err)
	}
	if len(got) != 1 || got[0] != `{"a":1}` {
		t.Errorf("received %v, want [{\"a\":1}]", got)
	}
}

func TestDialUnix(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "host.sock")
	ln, err := net.Listen("unix", socketPath)
	if err != nil {
		t.Skipf("unix sockets unavailable: %v", err)
	}
	defer ln.Close()

	// echo host
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		host := NewStream(conn, conn, conn, wire.LineCodec{})
		host.Receive(context.Background(), func(b []byte) { host.Send(b) })
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s, err := DialUnix(ctx, socketPath, wire.LineCodec{}, time.Second)
	if err != nil {
		t.Fatalf("DialUnix() error: %v", err)
	}
	defer s.Close()

	msgs, _ := collect(t, ctx, s)
	if err := s.Send([]byte(`{"ping":true}`)); err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	expect(t, msgs, `{"ping":true}`)
}

func TestDialUnixMissingSocket(t *testing.T) {
	_, err := DialUnix(context.Background(), filepath.Join(t.TempDir(), "missing.sock"), nil, 0)
	if err == nil {
		t.Error("DialUnix() to missing socket expected error, got nil")
	}
}

func newEchoServer(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		host := NewWebSocket(conn, 0)
		host.Receive(context.Background(), func(b []byte) { host.Send(b) })
	}))
}

func wsURL(httpURL string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http")
}

func TestWebSocketEcho(t *testing.T) {
	ts := newEchoServer(t)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ws, err := DialWebSocket(ctx, wsURL(ts.URL), nil, 0)
	if err != nil {
		t.Fatalf("DialWebSocket() error: %v", err)
	}
	defer ws.Close()

	msgs, _ := collect(t, ctx, ws)
	for _, m := range []string{`{"n":1}`, `{"n":2}`} {
		if err := ws.Send([]byte(m)); err != nil {
			t.Fatalf("Send() error: %v", err)
		}
	}
	expect(t, msgs, `{"n":1}`)
	expect(t, msgs, `{"n":2}`)
}

func TestWebSocketConcurrentSends(t *testing.T) {
	ts := newEchoServer(t)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ws, err := DialWebSocket(ctx, wsURL(ts.URL), nil, 0)
	if err != nil {
		t.Fatalf("DialWebSocket() error: %v", err)
	}
	defer ws.Close()

	msgs, _ := collect(t, ctx, ws)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ws.Send([]byte("x"))
		}()
	}
	wg.Wait()

	for i := 0; i < 20; i++ {
		expect(t, msgs, "x")
	}
}

func TestWebSocketSendAfterClose(t *testing.T) {
	ts := newEchoServer(t)
	defer ts.Close()

	ws, err := DialWebSocket(context.Background(), wsURL(ts.URL), nil, 0)
	if err != nil {
		t.Fatalf("DialWebSocket() error: %v", err)
	}
	ws.Close()
	if err := ws.Send([]byte("late")); !errors.Is(err, ErrClosed) {
		t.Errorf("Send() after Close = %v, want ErrClosed", err)
	}
}

func TestOpenUnknownKind(t *testing.T) {
	if _, err := Open(context.Background(), Options{Kind: "carrier-pigeon"}); err == nil {
		t.Error("Open() with unknown kind expected error, got nil")
	}
}
