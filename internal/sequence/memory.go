package sequence

import (
	"context"
	"sync"
)

// MemoryCounter keeps counters in process memory.
type MemoryCounter struct {
	mu     sync.Mutex
	values map[string]int64
}

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{values: make(map[string]int64)}
}

func (c *MemoryCounter) Increment(_ context.Context, prefix string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[prefix]++
	return c.values[prefix], nil
}

func (c *MemoryCounter) Peek(_ context.Context, prefix string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.values[prefix], nil
}

func (c *MemoryCounter) Observe(_ context.Context, prefix string, n int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n > c.values[prefix] {
		c.values[prefix] = n
	}
	return nil
}
