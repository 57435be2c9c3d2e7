// Package channel wraps the host transport in an envelope-level API: queued
// fire-and-forget sends and fan-out of inbound envelopes to raw listeners.
package channel

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/yourusername/pairchat/internal/logging"
	"github.com/yourusername/pairchat/internal/models"
	"github.com/yourusername/pairchat/internal/transport"
)

// ErrAlreadyAttached is returned when Attach is called twice
var ErrAlreadyAttached = errors.New("transport already attached")

// Handler receives every inbound envelope
type Handler func(env models.Envelope)

// Sender is the outbound half of the adapter
type Sender interface {
	Send(env models.Envelope)
}

// Receiver is the inbound half of the adapter
type Receiver interface {
	OnReceive(h Handler) (unsubscribe func())
}

// Channel is both halves, as consumed by the registry and the bus
type Channel interface {
	Sender
	Receiver
}

type listener struct {
	fn     Handler
	active atomic.Bool
}

// Adapter is the single gateway between the UI and the host
type Adapter struct {
	mu        sync.Mutex
	transport transport.Transport
	flushing  bool
	queue     [][]byte
	listeners []*listener

	log zerolog.Logger
}

// NewAdapter creates an adapter with no transport. Sends are queued until
// Attach is called.
func NewAdapter() *Adapter {
	return &Adapter{log: logging.For("channel")}
}

// Send posts env to the host. It never blocks on the host and never fails:
// encode and write errors are logged.
func (a *Adapter) Send(env models.Envelope) {
	data, err := env.Encode()
	if err != nil {
		a.log.Error().Err(err).Str("command", env.Command.String()).Msg("failed to encode envelope")
		return
	}

	a.mu.Lock()
	if a.transport == nil || a.flushing {
		a.queue = append(a.queue, data)
		a.mu.Unlock()
		a.log.Debug().Str("command", env.Command.String()).Str("id", env.ID).Msg("queued until host is ready")
		return
	}
	t := a.transport
	a.mu.Unlock()

	a.write(t, data)
}

func (a *Adapter) write(t transport.Transport, data []byte) {
	if err := t.Send(data); err != nil {
		a.log.Warn().Err(err).Msg("failed to send envelope")
	}
}

// Attach binds the host transport and flushes queued sends in order.
// Sends made during the flush are delivered after everything queued before.
func (a *Adapter) Attach(t transport.Transport) error {
	a.mu.Lock()
	if a.transport != nil {
		a.mu.Unlock()
		return ErrAlreadyAttached
	}
	a.transport = t
	a.flushing = true
	a.mu.Unlock()

	flushed := 0
	for {
		a.mu.Lock()
		batch := a.queue
		a.queue = nil
		if len(batch) == 0 {
			a.flushing = false
			a.mu.Unlock()
			break
		}
		a.mu.Unlock()

		for _, data := range batch {
			a.write(t, data)
		}
		flushed += len(batch)
	}

	a.log.Debug().Int("flushed", flushed).Msg("transport attached")
	return nil
}

// Ready returns true once a transport is attached and the queue is flushed
func (a *Adapter) Ready() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.transport != nil && !a.flushing
}

// Queued returns the number of sends waiting for a transport
func (a *Adapter) Queued() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.queue)
}

// OnReceive registers a raw inbound listener. The returned function removes
// it; calling it more than once is a no-op. After it returns no new call to
// h starts, but a call already in progress on the receive goroutine is not
// waited for, so it is safe to call from inside h.
func (a *Adapter) OnReceive(h Handler) func() {
	l := &listener{fn: h}
	l.active.Store(true)

	a.mu.Lock()
	a.listeners = append(a.listeners, l)
	a.mu.Unlock()

	return func() {
		if !l.active.Swap(false) {
			return
		}
		a.mu.Lock()
		defer a.mu.Unlock()
		for i, existing := range a.listeners {
			if existing == l {
				a.listeners = append(a.listeners[:i:i], a.listeners[i+1:]...)
				break
			}
		}
	}
}

// Listeners returns the number of registered raw listeners
func (a *Adapter) Listeners() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.listeners)
}

// Deliver decodes one inbound message and dispatches it. Malformed messages
// and unknown commands are dropped.
func (a *Adapter) Deliver(raw []byte) {
	env, err := models.Decode(raw)
	if err != nil {
		if errors.Is(err, models.ErrUnknownCommand) {
			a.log.Debug().Str("command", env.Command.String()).Msg("ignoring unknown command")
			return
		}
		a.log.Warn().Err(err).Msg("dropping malformed message")
		return
	}
	a.DeliverEnvelope(env)
}

// DeliverEnvelope hands env to every listener registered at the time of the
// call, in registration order. Listeners removed mid-dispatch are skipped.
func (a *Adapter) DeliverEnvelope(env models.Envelope) {
	a.mu.Lock()
	snapshot := make([]*listener, len(a.listeners))
	copy(snapshot, a.listeners)
	a.mu.Unlock()

	if len(snapshot) == 0 {
		a.log.Debug().Str("command", env.Command.String()).Str("id", env.ID).Msg("no listener for envelope")
		return
	}
	for _, l := range snapshot {
		if l.active.Load() {
			l.fn(env)
		}
	}
}

// Run attaches t and pumps inbound messages until ctx ends or t closes
func (a *Adapter) Run(ctx context.Context, t transport.Transport) error {
	if err := a.Attach(t); err != nil {
		return err
	}
	return t.Receive(ctx, a.Deliver)
}
