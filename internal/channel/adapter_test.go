package channel

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/yourusername/pairchat/internal/models"
	"github.com/yourusername/pairchat/internal/transport"
)

// recorder is a transport that records sends and can block the first one
type recorder struct {
	mu      sync.Mutex
	sent    []string
	onFirst func()
	calls   int
}

func (r *recorder) Send(data []byte) error {
	r.mu.Lock()
	r.calls++
	first := r.calls == 1
	hook := r.onFirst
	r.mu.Unlock()

	if first && hook != nil {
		hook()
	}

	env, err := models.Decode(data)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.sent = append(r.sent, env.Command.String())
	r.mu.Unlock()
	return nil
}

func (r *recorder) Receive(ctx context.Context, deliver func([]byte)) error {
	<-ctx.Done()
	return ctx.Err()
}

func (r *recorder) Close() error { return nil }

func (r *recorder) commands() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.sent))
	copy(out, r.sent)
	return out
}

func request(t *testing.T, cmd models.Command) models.Envelope {
	t.Helper()
	env, err := models.NewRequest(cmd, nil)
	if err != nil {
		t.Fatalf("NewRequest(%s) error: %v", cmd, err)
	}
	return env
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSendQueuesUntilAttach(t *testing.T) {
	a := NewAdapter()
	a.Send(request(t, models.CmdReady))
	a.Send(request(t, models.CmdFetchFiles))

	if a.Ready() {
		t.Error("Ready() before Attach = true, want false")
	}
	if a.Queued() != 2 {
		t.Errorf("Queued() = %d, want 2", a.Queued())
	}

	rec := &recorder{}
	if err := a.Attach(rec); err != nil {
		t.Fatalf("Attach() error: %v", err)
	}
	a.Send(request(t, models.CmdGetUserInfo))

	want := []string{"ready", "fetch_files", "get_user_info"}
	if got := rec.commands(); !equal(got, want) {
		t.Errorf("sent = %v, want %v", got, want)
	}
	if !a.Ready() {
		t.Error("Ready() after Attach = false, want true")
	}
	if a.Queued() != 0 {
		t.Errorf("Queued() after Attach = %d, want 0", a.Queued())
	}
}

func TestSendDuringFlushIsOrderedAfterQueue(t *testing.T) {
	a := NewAdapter()
	a.Send(request(t, models.CmdReady))
	a.Send(request(t, models.CmdInitialized))

	rec := &recorder{}
	rec.onFirst = func() {
		// sent while the flush is writing the first queued envelope
		a.Send(request(t, models.CmdLogout))
	}
	if err := a.Attach(rec); err != nil {
		t.Fatalf("Attach() error: %v", err)
	}

	want := []string{"ready", "initialized", "logout"}
	if got := rec.commands(); !equal(got, want) {
		t.Errorf("sent = %v, want %v", got, want)
	}
}

func TestAttachTwice(t *testing.T) {
	a := NewAdapter()
	if err := a.Attach(&recorder{}); err != nil {
		t.Fatalf("Attach() error: %v", err)
	}
	if err := a.Attach(&recorder{}); !errors.Is(err, ErrAlreadyAttached) {
		t.Errorf("second Attach() = %v, want ErrAlreadyAttached", err)
	}
}

func TestListenersInRegistrationOrder(t *testing.T) {
	a := NewAdapter()
	var order []int
	for i := 1; i <= 3; i++ {
		n := i
		a.OnReceive(func(models.Envelope) { order = append(order, n) })
	}

	a.DeliverEnvelope(models.Envelope{ID: "x", Command: models.CmdShowChatView})

	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Errorf("listener order = %v, want [1 2 3]", order)
	}
}

func TestUnsubscribeIdempotent(t *testing.T) {
	a := NewAdapter()
	calls := 0
	unsubscribe := a.OnReceive(func(models.Envelope) { calls++ })
	keep := 0
	a.OnReceive(func(models.Envelope) { keep++ })

	unsubscribe()
	unsubscribe()

	a.DeliverEnvelope(models.Envelope{ID: "x", Command: models.CmdFocusChatInput})
	if calls != 0 {
		t.Errorf("unsubscribed listener called %d times, want 0", calls)
	}
	if keep != 1 {
		t.Errorf("remaining listener called %d times, want 1", keep)
	}
	if a.Listeners() != 1 {
		t.Errorf("Listeners() = %d, want 1", a.Listeners())
	}
}

func TestUnsubscribeDuringDispatch(t *testing.T) {
	a := NewAdapter()
	var second func()
	secondCalls := 0

	a.OnReceive(func(models.Envelope) { second() })
	second = a.OnReceive(func(models.Envelope) { secondCalls++ })

	a.DeliverEnvelope(models.Envelope{ID: "x", Command: models.CmdShowLoginView})
	if secondCalls != 0 {
		t.Errorf("listener removed mid-dispatch called %d times, want 0", secondCalls)
	}
}

func TestDeliverDropsBadInput(t *testing.T) {
	a := NewAdapter()
	calls := 0
	a.OnReceive(func(models.Envelope) { calls++ })

	a.Deliver([]byte(`not json`))
	a.Deliver([]byte(`{"id":"1","command":"self_destruct"}`))
	a.Deliver([]byte(`{"id":"2","command":"show_chat_view"}`))

	if calls != 1 {
		t.Errorf("listener called %d times, want 1", calls)
	}
}

func TestRunOverPipe(t *testing.T) {
	ui, host := transport.Pipe()
	a := NewAdapter()

	received := make(chan models.Envelope, 1)
	a.OnReceive(func(env models.Envelope) { received <- env })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.Run(ctx, ui)

	push, err := models.NewBroadcast(models.CmdFocusChatInput, nil)
	if err != nil {
		t.Fatalf("NewBroadcast() error: %v", err)
	}
	data, _ := push.Encode()
	host.Send(data)

	select {
	case env := <-received:
		if env.ID != push.ID || env.Command != models.CmdFocusChatInput {
			t.Errorf("received %+v, want %+v", env, push)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for inbound envelope")
	}
}
