package state

import (
	"sync"
	"testing"
)

func TestContainerGetSet(t *testing.T) {
	c := NewContainer(1)
	if c.Get() != 1 {
		t.Errorf("Get() = %d, want 1", c.Get())
	}
	c.Set(5)
	if c.Get() != 5 {
		t.Errorf("Get() after Set = %d, want 5", c.Get())
	}
	got := c.Update(func(v int) int { return v * 2 })
	if got != 10 || c.Get() != 10 {
		t.Errorf("Update() = %d, Get() = %d, want 10", got, c.Get())
	}
}

func TestContainerWatch(t *testing.T) {
	c := NewContainer("")
	var seen []string
	unwatch := c.Watch(func(v string) { seen = append(seen, v) })

	c.Set("a")
	c.Update(func(v string) string { return v + "b" })
	unwatch()
	unwatch()
	c.Set("ignored")

	if len(seen) != 2 || seen[0] != "a" || seen[1] != "ab" {
		t.Errorf("watched values = %v, want [a ab]", seen)
	}
}

func TestContainerWatcherMayReadContainer(t *testing.T) {
	c := NewContainer(0)
	var inside int
	c.Watch(func(int) { inside = c.Get() })
	c.Set(7)
	if inside != 7 {
		t.Errorf("Get() inside watcher = %d, want 7", inside)
	}
}

func TestContainerConcurrentUpdate(t *testing.T) {
	c := NewContainer(0)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Update(func(v int) int { return v + 1 })
		}()
	}
	wg.Wait()
	if c.Get() != 50 {
		t.Errorf("Get() = %d, want 50", c.Get())
	}
}

// Reader and Updater are satisfied by *Container
var (
	_ Reader[int]  = (*Container[int])(nil)
	_ Updater[int] = (*Container[int])(nil)
)
