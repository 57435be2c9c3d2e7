package state

import "sync"

// Reader is the read side of a container
type Reader[T any] interface {
	Get() T
	Watch(fn func(T)) (unwatch func())
}

// Updater is the write side of a container
type Updater[T any] interface {
	Set(v T)
	Update(fn func(T) T) T
}

type watcher[T any] struct {
	fn func(T)
}

// Container holds one canonical value and notifies watchers on change.
// Values are replaced wholesale, so slices or maps inside T must not be
// mutated in place.
type Container[T any] struct {
	mu       sync.RWMutex
	value    T
	watchers []*watcher[T]
}

// NewContainer creates a container holding initial
func NewContainer[T any](initial T) *Container[T] {
	return &Container[T]{value: initial}
}

// Get returns the current value
func (c *Container[T]) Get() T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value
}

// Set replaces the value and notifies watchers
func (c *Container[T]) Set(v T) {
	c.mu.Lock()
	c.value = v
	watchers := c.snapshot()
	c.mu.Unlock()

	for _, w := range watchers {
		w.fn(v)
	}
}

// Update applies fn to the current value atomically and returns the result
func (c *Container[T]) Update(fn func(T) T) T {
	c.mu.Lock()
	v := fn(c.value)
	c.value = v
	watchers := c.snapshot()
	c.mu.Unlock()

	for _, w := range watchers {
		w.fn(v)
	}
	return v
}

// Watch calls fn with every new value until unwatch is called
func (c *Container[T]) Watch(fn func(T)) func() {
	w := &watcher[T]{fn: fn}
	c.mu.Lock()
	c.watchers = append(c.watchers, w)
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			for i, existing := range c.watchers {
				if existing == w {
					c.watchers = append(c.watchers[:i:i], c.watchers[i+1:]...)
					break
				}
			}
		})
	}
}

func (c *Container[T]) snapshot() []*watcher[T] {
	out := make([]*watcher[T], len(c.watchers))
	copy(out, c.watchers)
	return out
}
