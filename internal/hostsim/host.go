// Package hostsim is a scripted in-memory editor host for tests and demos.
package hostsim

import (
	"context"
	"sync"
	"time"

	"github.com/yourusername/pairchat/internal/models"
	"github.com/yourusername/pairchat/internal/transport"
)

// HandlerFunc answers one request. Returning a non-nil error info sends a
// failed response. Returning Silence sends nothing.
type HandlerFunc func(req models.Envelope, h *Host) (interface{}, *models.ErrorInfo)

type silence struct{}

// Silence is returned by a handler that never answers
var Silence interface{} = silence{}

// Host plays the editor side of the channel
type Host struct {
	ui   *transport.PipeEnd
	side *transport.PipeEnd

	mu       sync.Mutex
	handlers map[models.Command]HandlerFunc
	received []models.Envelope
	held     bool
	backlog  []models.Envelope
	arrived  chan struct{}

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a host. UI returns the transport the client should use.
func New() *Host {
	ui, side := transport.Pipe()
	return &Host{
		ui:       ui,
		side:     side,
		handlers: make(map[models.Command]HandlerFunc),
		arrived:  make(chan struct{}, 1),
	}
}

// UI returns the client end of the channel
func (h *Host) UI() transport.Transport {
	return h.ui
}

// Handle registers fn for requests with the given command
func (h *Host) Handle(cmd models.Command, fn HandlerFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers[cmd] = fn
}

// Respond answers cmd with a fixed payload
func (h *Host) Respond(cmd models.Command, payload interface{}) {
	h.Handle(cmd, func(models.Envelope, *Host) (interface{}, *models.ErrorInfo) {
		return payload, nil
	})
}

// Fail answers cmd with a fixed error
func (h *Host) Fail(cmd models.Command, info models.ErrorInfo) {
	h.Handle(cmd, func(models.Envelope, *Host) (interface{}, *models.ErrorInfo) {
		return nil, &info
	})
}

// Hold records requests without answering them until Release
func (h *Host) Hold() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.held = true
}

// Release answers every held request in arrival order and resumes normal
// handling
func (h *Host) Release() {
	h.mu.Lock()
	backlog := h.backlog
	h.backlog = nil
	h.held = false
	h.mu.Unlock()

	for _, req := range backlog {
		h.answer(req)
	}
}

// Start pumps requests until ctx ends or Close is called
func (h *Host) Start(ctx context.Context) {
	ctx, h.cancel = context.WithCancel(ctx)
	h.done = make(chan struct{})
	go func() {
		defer close(h.done)
		h.side.Receive(ctx, h.deliver)
	}()
}

// Close stops the host and closes both ends
func (h *Host) Close() {
	if h.cancel != nil {
		h.cancel()
		<-h.done
	}
	h.side.Close()
}

// Push sends an unsolicited envelope to the UI
func (h *Host) Push(cmd models.Command, payload interface{}) error {
	env, err := models.NewBroadcast(cmd, payload)
	if err != nil {
		return err
	}
	return h.send(env)
}

// Reply answers a specific request, e.g. a late or duplicate response
func (h *Host) Reply(req models.Envelope, cmd models.Command, payload interface{}) error {
	env, err := models.NewResponse(req.ID, cmd, payload)
	if err != nil {
		return err
	}
	return h.send(env)
}

// ReplyError answers a specific request with a failure
func (h *Host) ReplyError(req models.Envelope, info models.ErrorInfo) error {
	return h.send(models.NewErrorResponse(req.ID, req.Command, info))
}

// Received returns every envelope the host got, in order
func (h *Host) Received() []models.Envelope {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]models.Envelope, len(h.received))
	copy(out, h.received)
	return out
}

// WaitFor returns the first received envelope with cmd, waiting up to
// timeout for it to arrive
func (h *Host) WaitFor(cmd models.Command, timeout time.Duration) (models.Envelope, bool) {
	return h.WaitForNth(cmd, 1, timeout)
}

// WaitForNth returns the nth received envelope with cmd
func (h *Host) WaitForNth(cmd models.Command, n int, timeout time.Duration) (models.Envelope, bool) {
	deadline := time.After(timeout)
	for {
		seen := 0
		for _, env := range h.Received() {
			if env.Command == cmd {
				seen++
				if seen == n {
					return env, true
				}
			}
		}
		select {
		case <-h.arrived:
		case <-deadline:
			return models.Envelope{}, false
		}
	}
}

func (h *Host) deliver(raw []byte) {
	env, err := models.Decode(raw)
	if err != nil {
		return
	}

	h.mu.Lock()
	h.received = append(h.received, env)
	held := h.held
	if held {
		h.backlog = append(h.backlog, env)
	}
	h.mu.Unlock()

	select {
	case h.arrived <- struct{}{}:
	default:
	}

	if !held {
		h.answer(env)
	}
}

func (h *Host) answer(req models.Envelope) {
	h.mu.Lock()
	fn, ok := h.handlers[req.Command]
	h.mu.Unlock()
	if !ok {
		return
	}

	payload, errInfo := fn(req, h)
	if errInfo != nil {
		h.ReplyError(req, *errInfo)
		return
	}
	if payload == Silence {
		return
	}
	h.Reply(req, req.Command, payload)
}

func (h *Host) send(env models.Envelope) error {
	data, err := env.Encode()
	if err != nil {
		return err
	}
	return h.side.Send(data)
}
