package durationz

import (
	"sync"
)

// Collector buffers finished intervals in memory, for plotting in the same
// process that captured them. Safe for concurrent use by multiple goroutines.
type Collector struct {
	intervals []ActiveInterval
	mu        sync.Mutex
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{
		intervals: make([]ActiveInterval, 0, 8), // Start with small capacity.
	}
}

// Record implements Sink. It never fails.
func (c *Collector) Record(iv ActiveInterval) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.intervals) >= cap(c.intervals) {
		currentCap := cap(c.intervals)
		var newCap int
		if currentCap < 1024 {
			// Double capacity for small buffers.
			newCap = currentCap * 2
		} else {
			// Grow by 50% for large buffers to avoid excessive memory usage.
			newCap = currentCap + currentCap/2
		}
		if newCap < 32 {
			newCap = 32
		}
		grown := make([]ActiveInterval, len(c.intervals), newCap)
		copy(grown, c.intervals)
		c.intervals = grown
	}
	c.intervals = append(c.intervals, iv)
	return nil
}

// Snapshot returns a copy of the buffered intervals in recording order.
func (c *Collector) Snapshot() []ActiveInterval {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.intervals) == 0 {
		return nil
	}
	out := make([]ActiveInterval, len(c.intervals))
	copy(out, c.intervals)
	return out
}

// Export returns the buffered intervals and clears the buffer.
func (c *Collector) Export() []ActiveInterval {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.intervals) == 0 {
		return nil
	}
	out := c.intervals
	// Shrink oversized buffers, otherwise start over at the same capacity.
	newCap := cap(out)
	if newCap > 256 && len(out) < newCap/8 {
		newCap /= 4
	}
	c.intervals = make([]ActiveInterval, 0, newCap)
	return out
}

// Count returns the number of buffered intervals.
func (c *Collector) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.intervals)
}

// Reset drops all buffered intervals.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.intervals = c.intervals[:0]
}
