package transport

import (
	"context"
	"sync"
)

// PipeEnd is one side of an in-memory transport pair
type PipeEnd struct {
	mu     sync.Mutex
	queue  [][]byte
	notify chan struct{}
	peer   *PipeEnd
	shared *pipeState
}

type pipeState struct {
	done chan struct{}
	once sync.Once
}

// Pipe returns two connected ends. Messages sent on one arrive, in order,
// on the other. Closing either end closes both.
func Pipe() (*PipeEnd, *PipeEnd) {
	shared := &pipeState{done: make(chan struct{})}
	a := &PipeEnd{notify: make(chan struct{}, 1), shared: shared}
	b := &PipeEnd{notify: make(chan struct{}, 1), shared: shared}
	a.peer, b.peer = b, a
	return a, b
}

// Send queues a copy of data on the peer
func (p *PipeEnd) Send(data []byte) error {
	select {
	case <-p.shared.done:
		return ErrClosed
	default:
	}
	msg := make([]byte, len(data))
	copy(msg, data)
	p.peer.push(msg)
	return nil
}

func (p *PipeEnd) push(msg []byte) {
	p.mu.Lock()
	p.queue = append(p.queue, msg)
	p.mu.Unlock()
	select {
	case p.notify <- struct{}{}:
	default:
	}
}

func (p *PipeEnd) drain() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	msgs := p.queue
	p.queue = nil
	return msgs
}

// Receive delivers queued messages until ctx ends or the pipe closes.
// Messages queued before Close are still delivered.
func (p *PipeEnd) Receive(ctx context.Context, deliver func([]byte)) error {
	for {
		for _, msg := range p.drain() {
			deliver(msg)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.shared.done:
			for _, msg := range p.drain() {
				deliver(msg)
			}
			return nil
		case <-p.notify:
		}
	}
}

// Close closes both ends
func (p *PipeEnd) Close() error {
	p.shared.once.Do(func() { close(p.shared.done) })
	return nil
}
