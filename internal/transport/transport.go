// Package transport provides the host side of the message channel: a
// bidirectional carrier of discrete, ordered messages with no delivery
// confirmation.
package transport

import (
	"context"
	"errors"
)

// ErrClosed is returned by Send after the transport has been closed
var ErrClosed = errors.New("transport closed")

// Transport carries encoded envelopes to and from the host
type Transport interface {
	// Send posts one message. It does not wait for the peer.
	Send(data []byte) error
	// Receive calls deliver once per inbound message, never concurrently,
	// until ctx ends, the peer closes, or the transport fails. A clean
	// close returns nil.
	Receive(ctx context.Context, deliver func([]byte)) error
	Close() error
}
