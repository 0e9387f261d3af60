package durationz

import "sync/atomic"

// slot is a task identity. It keeps its own span counter, so allocating a
// span id never touches state shared with other tasks. The counter is atomic
// only so that a task handed between goroutines stays consistent.
type slot struct {
	number uint64
	issued atomic.Uint64
}

// slotPool recycles released task slots. A recycled slot keeps counting
// from where its previous owner stopped.
type slotPool struct {
	factory func() *slot
	free    chan *slot
}

// newSlotPool creates a pool that retains up to capacity released slots.
func newSlotPool(capacity int, factory func() *slot) *slotPool {
	return &slotPool{
		factory: factory,
		free:    make(chan *slot, capacity),
	}
}

// Get retrieves a released slot or creates a new one if none is free.
func (p *slotPool) Get() *slot {
	select {
	case s := <-p.free:
		return s
	default:
		// Nothing released yet, mint a fresh slot.
		return p.factory()
	}
}

// Put hands a slot back. When the pool is full the slot is forgotten.
func (p *slotPool) Put(s *slot) {
	if s == nil {
		return
	}
	select {
	case p.free <- s:
	default:
	}
}

// Len returns the number of slots waiting for reuse.
func (p *slotPool) Len() int {
	return len(p.free)
}
