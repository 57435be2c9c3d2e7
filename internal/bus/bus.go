// Package bus fans inbound envelopes out to per-command subscribers.
package bus

import (
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/yourusername/pairchat/internal/channel"
	"github.com/yourusername/pairchat/internal/logging"
	"github.com/yourusername/pairchat/internal/models"
)

// Handler receives the full envelope, error included
type Handler func(env models.Envelope)

// Unsubscribe stops delivery. Safe to call any number of times, including
// from inside a handler. Once it returns, no new delivery to the handler
// starts; a call already running on the receive goroutine is not waited for.
type Unsubscribe func()

type subscription struct {
	commands map[models.Command]bool
	handler  Handler
	active   atomic.Bool
}

// Bus is a single raw listener on the channel that dispatches by command
type Bus struct {
	mu     sync.Mutex
	subs   []*subscription
	detach func()
	once   sync.Once
	log    zerolog.Logger
}

// New attaches a bus to the channel
func New(ch channel.Receiver) *Bus {
	b := &Bus{log: logging.For("bus")}
	b.detach = ch.OnReceive(b.dispatch)
	return b
}

// Subscribe registers handler for every command in commands
func (b *Bus) Subscribe(commands []models.Command, handler Handler) Unsubscribe {
	s := &subscription{commands: make(map[models.Command]bool, len(commands)), handler: handler}
	for _, cmd := range commands {
		s.commands[cmd] = true
	}
	s.active.Store(true)

	b.mu.Lock()
	b.subs = append(b.subs, s)
	b.mu.Unlock()

	return func() {
		if !s.active.Swap(false) {
			return
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, existing := range b.subs {
			if existing == s {
				b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
				break
			}
		}
	}
}

// On registers handler for a single command
func (b *Bus) On(command models.Command, handler Handler) Unsubscribe {
	return b.Subscribe([]models.Command{command}, handler)
}

// Subscribers returns the number of live subscriptions
func (b *Bus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close detaches the bus from the channel
func (b *Bus) Close() {
	b.once.Do(func() {
		if b.detach != nil {
			b.detach()
		}
	})
}

func (b *Bus) dispatch(env models.Envelope) {
	b.mu.Lock()
	var matched []*subscription
	for _, s := range b.subs {
		if s.commands[env.Command] {
			matched = append(matched, s)
		}
	}
	b.mu.Unlock()

	for _, s := range matched {
		if s.active.Load() {
			s.handler(env)
		}
	}
	if len(matched) == 0 && env.Command.IsResponse() && !env.Command.IsRequest() {
		b.log.Debug().Str("command", env.Command.String()).Msg("push without subscribers")
	}
}
