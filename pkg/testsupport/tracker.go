package testsupport

import (
	"context"
	"sync"

	"github.com/bool64/stats"
)

// CountingTracker is a stats.Tracker that sums values per metric name,
// ignoring labels.
type CountingTracker struct {
	mu     sync.Mutex
	values map[string]float64
}

var _ stats.Tracker = (*CountingTracker)(nil)

// NewCountingTracker returns an empty tracker.
func NewCountingTracker() *CountingTracker {
	return &CountingTracker{values: make(map[string]float64)}
}

func (c *CountingTracker) Add(_ context.Context, name string, increment float64, _ ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[name] += increment
}

func (c *CountingTracker) Set(_ context.Context, name string, absolute float64, _ ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[name] = absolute
}

// Int returns the current value of name.
func (c *CountingTracker) Int(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return int(c.values[name])
}
