package durationz

// Task is a logical execution context: a goroutine, or a cooperative task
// multiplexed onto one. Every task has its own nesting stack in the registry.
//
// Entering spans on one task from several goroutines at once is safe but
// nests them under each other arbitrarily; give each goroutine its own task.
// Spans entered on a task may be resumed, suspended and closed from anywhere.
type Task struct {
	registry   *Registry
	slot       *slot
	parentPath []SpanID
	parent     SpanID
	kind       ThreadKind
	released   bool
}

// ID returns the task's context identifier. Identifiers of released tasks
// are handed out again.
func (t *Task) ID() uint64 {
	return t.slot.number
}

// Kind returns the kind of thread the task runs on.
func (t *Task) Kind() ThreadKind {
	return t.kind
}

// Parent returns the span that spans entered on an empty stack nest under.
func (t *Task) Parent() SpanID {
	return t.parent
}

// Release returns the task's identity to the registry for reuse.
// Spans still open on the task remain valid. Safe to call multiple times.
func (t *Task) Release() {
	if t.released {
		return
	}
	t.released = true
	t.registry.releaseTask(t)
}

// nextID allocates a span id from the task's slot. The low counterBits hold
// the slot counter, the high bits the slot number. Every time the counter
// wraps, the generation grows by one so reused ids stay distinguishable.
func (t *Task) nextID(counterBits uint) (SpanID, uint64) {
	perGeneration := uint64(1)<<counterBits - 1
	n := t.slot.issued.Add(1) - 1
	counter := n%perGeneration + 1
	return SpanID(t.slot.number<<counterBits | counter), n / perGeneration
}
