package worker

import "sync"

// Status is a point-in-time snapshot of pool progress.
type Status struct {
	Processed int
	Failed    int
	Total     int
}

// Done returns the number of items that reached a terminal state.
func (s Status) Done() int {
	return s.Processed + s.Failed
}

// Counter tracks pool progress. It is owned by the dispatch loop and
// mutated under its lock from any worker; both the increments and the
// snapshot read hold the lock so status lines never tear.
type Counter struct {
	mu        sync.Mutex
	processed int
	failed    int
	total     int
}

// NewCounter creates a counter for total items.
func NewCounter(total int) *Counter {
	return &Counter{total: total}
}

// IncrementProcessed records one successful item.
func (c *Counter) IncrementProcessed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.processed++
}

// IncrementFailed records one failed item.
func (c *Counter) IncrementFailed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failed++
}

// Status returns a consistent snapshot.
func (c *Counter) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{Processed: c.processed, Failed: c.failed, Total: c.total}
}
