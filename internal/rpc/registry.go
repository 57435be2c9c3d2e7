// Package rpc correlates request envelopes with their responses by id.
package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/yourusername/pairchat/internal/channel"
	"github.com/yourusername/pairchat/internal/logging"
	"github.com/yourusername/pairchat/internal/models"
)

// DefaultTimeout applies when neither the registry nor the call sets one
const DefaultTimeout = 5000 * time.Millisecond

// Option tunes a single request
type Option func(*callOptions)

type callOptions struct {
	timeout    time.Duration
	expect     models.Command
	registered func(id string)
}

// WithTimeout overrides the registry's default timeout for one request
func WithTimeout(d time.Duration) Option {
	return func(o *callOptions) { o.timeout = d }
}

// ExpectCommand sets the response command to match. By default the
// response carries the request's own command.
func ExpectCommand(cmd models.Command) Option {
	return func(o *callOptions) { o.expect = cmd }
}

// OnRegistered calls fn with the request id once the request is pending and
// before it is sent, so fn runs before any response can arrive
func OnRegistered(fn func(id string)) Option {
	return func(o *callOptions) { o.registered = fn }
}

// Call is an in-flight request. Done is closed once Result or Err is set.
type Call struct {
	ID      string
	Command models.Command
	Result  json.RawMessage
	Err     error
	Done    chan struct{}

	started time.Time
}

// Wait blocks until the call settles
func (c *Call) Wait() (json.RawMessage, error) {
	<-c.Done
	return c.Result, c.Err
}

type entry struct {
	call        *Call
	timer       *time.Timer
	unsubscribe func()
}

// Registry tracks pending requests. Each one is settled exactly once: by
// its response, its timeout, local cancellation, or Close.
type Registry struct {
	ch      channel.Channel
	timeout time.Duration

	mu      sync.Mutex
	pending map[string]*entry
	closed  bool

	log zerolog.Logger
}

// NewRegistry creates a registry sending through ch. A zero timeout means
// DefaultTimeout.
func NewRegistry(ch channel.Channel, timeout time.Duration) *Registry {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Registry{
		ch:      ch,
		timeout: timeout,
		pending: make(map[string]*entry),
		log:     logging.For("rpc"),
	}
}

// Go sends a request and returns immediately
func (r *Registry) Go(command models.Command, payload interface{}, opts ...Option) *Call {
	o := callOptions{timeout: r.timeout, expect: command}
	for _, opt := range opts {
		opt(&o)
	}
	if o.timeout <= 0 {
		o.timeout = r.timeout
	}

	call := &Call{Command: command, Done: make(chan struct{}), started: time.Now()}

	env, err := models.NewRequest(command, payload)
	if err != nil {
		call.Err = err
		close(call.Done)
		return call
	}
	call.ID = env.ID
	id := env.ID

	e := &entry{call: call}
	e.unsubscribe = r.ch.OnReceive(func(resp models.Envelope) {
		if resp.ID != id || resp.Command != o.expect {
			return
		}
		if resp.Failed() {
			r.settle(id, nil, &HostError{Command: command, ID: id, Info: *resp.Error})
			return
		}
		r.settle(id, resp.Payload, nil)
	})

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		e.unsubscribe()
		call.Err = ErrClosed
		close(call.Done)
		return call
	}
	r.pending[id] = e
	e.timer = time.AfterFunc(o.timeout, func() {
		r.settle(id, nil, &TimeoutError{Command: command, ID: id, After: o.timeout})
	})
	r.mu.Unlock()

	if o.registered != nil {
		o.registered(id)
	}
	r.log.Debug().Str("command", command.String()).Str("id", id).Dur("timeout", o.timeout).Msg("request sent")
	r.ch.Send(env)
	return call
}

// Request sends a request and blocks until it settles or ctx ends.
// Cancellation is local: the host is not told and a late answer is dropped.
func (r *Registry) Request(ctx context.Context, command models.Command, payload interface{}, opts ...Option) (json.RawMessage, error) {
	call := r.Go(command, payload, opts...)
	select {
	case <-call.Done:
	case <-ctx.Done():
		r.settle(call.ID, nil, fmt.Errorf("%s request cancelled: %w", command, ctx.Err()))
		<-call.Done
	}
	return call.Result, call.Err
}

// Notify sends a request that expects no response
func (r *Registry) Notify(command models.Command, payload interface{}) error {
	env, err := models.NewRequest(command, payload)
	if err != nil {
		return err
	}
	r.log.Debug().Str("command", command.String()).Str("id", env.ID).Msg("notification sent")
	r.ch.Send(env)
	return nil
}

// Invoke sends a request and decodes the response payload into T
func Invoke[T any](ctx context.Context, r *Registry, command models.Command, payload interface{}, opts ...Option) (T, error) {
	var out T
	raw, err := r.Request(ctx, command, payload, opts...)
	if err != nil {
		return out, err
	}
	return models.DecodePayload[T](models.Envelope{Command: command, Payload: raw})
}

// Pending returns the number of unsettled requests
func (r *Registry) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// Close rejects every pending request with ErrClosed. Later requests fail
// immediately.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	ids := make([]string, 0, len(r.pending))
	for id := range r.pending {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	for _, id := range ids {
		r.settle(id, nil, ErrClosed)
	}
}

// settle resolves or rejects the entry for id. Only the first caller wins.
func (r *Registry) settle(id string, result json.RawMessage, err error) bool {
	r.mu.Lock()
	e, ok := r.pending[id]
	if ok {
		delete(r.pending, id)
	}
	r.mu.Unlock()
	if !ok {
		return false
	}

	if e.timer != nil {
		e.timer.Stop()
	}
	e.unsubscribe()

	e.call.Result = result
	e.call.Err = err
	close(e.call.Done)

	event := r.log.Debug()
	if IsTimeout(err) {
		event = r.log.Warn()
	}
	event.Str("command", e.call.Command.String()).
		Str("id", id).
		Dur("elapsed", time.Since(e.call.started)).
		AnErr("error", err).
		Msg("request settled")
	return true
}
