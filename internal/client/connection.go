package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/yourusername/pairchat/internal/bus"
	"github.com/yourusername/pairchat/internal/channel"
	"github.com/yourusername/pairchat/internal/config"
	"github.com/yourusername/pairchat/internal/logging"
	"github.com/yourusername/pairchat/internal/rpc"
	"github.com/yourusername/pairchat/internal/transport"
)

const closeWait = time.Second

// Connection owns the channel to the editor host. It is built once at
// startup and handed to everything that talks to the host.
type Connection struct {
	Transport transport.Transport
	Adapter   *channel.Adapter
	Registry  *rpc.Registry
	Bus       *bus.Bus

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	runErr  error
	started bool
	closed  bool
}

// NewConnection wires the adapter, registry and bus around t. Nothing is
// sent until Start.
func NewConnection(t transport.Transport, timeout time.Duration) *Connection {
	adapter := channel.NewAdapter()
	return &Connection{
		Transport: t,
		Adapter:   adapter,
		Registry:  rpc.NewRegistry(adapter, timeout),
		Bus:       bus.New(adapter),
		done:      make(chan struct{}),
	}
}

// Dial opens the configured transport and starts the receive pump
func Dial(ctx context.Context, cfg *config.Config) (*Connection, error) {
	t, err := transport.Open(ctx, TransportOptions(cfg))
	if err != nil {
		return nil, err
	}
	conn := NewConnection(t, cfg.RequestTimeout())
	if err := conn.Start(context.Background()); err != nil {
		t.Close()
		return nil, err
	}
	return conn, nil
}

// TransportOptions maps configuration onto transport options
func TransportOptions(cfg *config.Config) transport.Options {
	return transport.Options{
		Kind:          cfg.Transport.Kind,
		SocketPath:    cfg.Transport.SocketPath,
		URL:           cfg.Transport.URL,
		Framing:       cfg.Transport.Framing,
		MaxFrameBytes: cfg.Transport.MaxFrameBytes,
		WriteTimeout:  cfg.WriteTimeout(),
	}
}

// Start attaches the transport, flushing queued sends, and pumps inbound
// messages in the background until ctx ends or Close is called
func (c *Connection) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return fmt.Errorf("connection already started")
	}
	c.started = true
	ctx, c.cancel = context.WithCancel(ctx)
	c.mu.Unlock()

	if err := c.Adapter.Attach(c.Transport); err != nil {
		return err
	}

	log := logging.For("client")
	go func() {
		defer close(c.done)
		err := c.Transport.Receive(ctx, c.Adapter.Deliver)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Warn().Err(err).Msg("receive loop ended")
		}
		c.mu.Lock()
		c.runErr = err
		c.mu.Unlock()
	}()
	return nil
}

// Done is closed when the receive loop ends
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// Err returns why the receive loop ended, if it has
func (c *Connection) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runErr
}

// Close rejects pending requests, detaches the bus and closes the transport
func (c *Connection) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	started := c.started
	cancel := c.cancel
	c.mu.Unlock()

	c.Registry.Close()
	c.Bus.Close()
	if cancel != nil {
		cancel()
	}
	err := c.Transport.Close()
	if started {
		// a stdio read cannot be interrupted, so don't wait on it forever
		select {
		case <-c.done:
		case <-time.After(closeWait):
		}
	}
	return err
}
