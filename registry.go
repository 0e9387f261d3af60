package durationz

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zoobzio/clockz"
	"go.uber.org/zap"
)

// defaultCounterBits is the width of the per-task span counter inside a
// SpanID. The remaining high bits carry the task slot number.
const (
	defaultCounterBits = 40
	// At least 16 bits are left for slot numbers.
	maxCounterBits = 48
)

// ErrNoTask is returned by Apply for an entered event without a task.
var ErrNoTask = errors.New("entered event without a task")

// instance is one open span. Its fields never change after Enter; the
// activity state is guarded by mu.
//
//nolint:govet // Field order optimized for readability
type instance struct {
	id          SpanID
	generation  uint64
	name        string
	fields      Fields
	parents     []SpanID
	task        uint64
	mu          sync.Mutex
	active      bool
	closed      bool
	activeKind  ThreadKind
	activeStart time.Duration
}

// finish closes the pending active interval. Caller holds mu.
func (in *instance) finish(end time.Duration) ActiveInterval {
	in.active = false
	return ActiveInterval{
		SpanID:     in.id,
		Generation: in.generation,
		Name:       in.name,
		Start:      in.activeStart,
		End:        end,
		WorkerPool: in.activeKind == WorkerPool,
		Parents:    in.parents,
		Fields:     in.fields,
	}
}

// Registry tracks open spans, their nesting per task and their activity.
// Safe for concurrent use by multiple goroutines.
//
//nolint:govet // Field order optimized for functionality over memory
type Registry struct {
	clock       clockz.Clock
	epoch       time.Time
	sink        Sink
	metrics     *Metrics
	logger      *zap.Logger
	slots       *slotPool
	counterBits uint
	nextSlot    atomic.Uint64
	stacksMu    sync.Mutex
	stacks      map[uint64][]*instance
	spansMu     sync.RWMutex
	spans       map[SpanID]*instance
}

// NewRegistry creates a registry handing finished intervals to sink.
// A nil sink discards them. The registry's epoch, time zero of every
// interval it produces, is the moment of creation.
func NewRegistry(sink Sink, opts ...Option) *Registry {
	cfg := newConfig(opts)
	r := &Registry{
		clock:       cfg.clock,
		sink:        sink,
		metrics:     cfg.metrics,
		logger:      cfg.logger,
		counterBits: cfg.counterBits,
		stacks:      make(map[uint64][]*instance),
		spans:       make(map[SpanID]*instance),
	}
	r.epoch = r.clock.Now()
	r.slots = newSlotPool(runtime.NumCPU()*16, func() *slot {
		return &slot{number: r.nextSlot.Add(1) - 1}
	})
	return r
}

// Epoch returns the registry's time zero.
func (r *Registry) Epoch() time.Time {
	return r.epoch
}

// Now returns the current offset from the epoch.
func (r *Registry) Now() time.Duration {
	return r.clock.Now().Sub(r.epoch)
}

// AcquireTask creates a task running on kind. Spans entered while the task's
// stack is empty become children of parent; pass 0 for root spans.
func (r *Registry) AcquireTask(kind ThreadKind, parent SpanID) *Task {
	t := &Task{
		registry: r,
		slot:     r.slots.Get(),
		kind:     kind,
		parent:   parent,
	}
	if parent != 0 {
		if p := r.lookup(parent); p != nil {
			t.parentPath = p.parents
		}
	}
	return t
}

func (r *Registry) releaseTask(t *Task) {
	r.stacksMu.Lock()
	delete(r.stacks, t.slot.number)
	r.stacksMu.Unlock()
	r.slots.Put(t.slot)
}

// Enter opens a span named name on task and makes it the top of the task's
// stack. Its parent is the previous top, or the task's parent.
func (r *Registry) Enter(task *Task, name string, fields ...Field) SpanID {
	id, generation := task.nextID(r.counterBits)
	in := &instance{
		id:         id,
		generation: generation,
		name:       name,
		fields:     normalizeFields(fields),
		task:       task.slot.number,
	}

	r.stacksMu.Lock()
	stack := r.stacks[in.task]
	if n := len(stack); n > 0 {
		top := stack[n-1]
		in.parents = append(make([]SpanID, 0, len(top.parents)+1), top.id)
		in.parents = append(in.parents, top.parents...)
	} else if task.parent != 0 {
		in.parents = append(make([]SpanID, 0, len(task.parentPath)+1), task.parent)
		in.parents = append(in.parents, task.parentPath...)
	}
	r.stacks[in.task] = append(stack, in)
	r.stacksMu.Unlock()

	r.spansMu.Lock()
	r.spans[id] = in
	r.spansMu.Unlock()

	r.metrics.spanOpened()
	return id
}

// ActiveBegin marks the span as executing on kind and starts a pending
// active interval. Unknown, closed or already active spans are ignored.
func (r *Registry) ActiveBegin(id SpanID, kind ThreadKind) {
	in := r.lookup(id)
	if in == nil {
		return
	}
	now := r.Now()

	in.mu.Lock()
	defer in.mu.Unlock()
	if in.closed || in.active {
		return
	}
	in.active = true
	in.activeKind = kind
	in.activeStart = now
}

// ActiveEnd closes the span's pending active interval and records it.
// Without a pending interval this is a no-op: instrumentation occasionally
// fires exit twice. Only sink failures are returned.
func (r *Registry) ActiveEnd(id SpanID) error {
	in := r.lookup(id)
	if in == nil {
		r.duplicateEnd(id)
		return nil
	}
	now := r.Now()

	in.mu.Lock()
	if !in.active {
		in.mu.Unlock()
		r.duplicateEnd(id)
		return nil
	}
	iv := in.finish(now)
	in.mu.Unlock()

	return r.emit(iv)
}

// Close closes the span and removes it from its task's stack. A pending
// active interval is closed at the close timestamp. Unknown ids are ignored.
func (r *Registry) Close(id SpanID) error {
	in := r.lookup(id)
	if in == nil {
		return nil
	}
	now := r.Now()

	in.mu.Lock()
	if in.closed {
		in.mu.Unlock()
		return nil
	}
	in.closed = true
	var (
		iv      ActiveInterval
		pending bool
	)
	if in.active {
		iv = in.finish(now)
		pending = true
	}
	in.mu.Unlock()

	r.stacksMu.Lock()
	stack := r.stacks[in.task]
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == in {
			stack = append(stack[:i], stack[i+1:]...)
			break
		}
	}
	if len(stack) == 0 {
		delete(r.stacks, in.task)
	} else {
		r.stacks[in.task] = stack
	}
	r.stacksMu.Unlock()

	r.spansMu.Lock()
	if r.spans[id] == in {
		delete(r.spans, id)
	}
	r.spansMu.Unlock()
	r.metrics.spanClosed()

	if pending {
		return r.emit(iv)
	}
	return nil
}

// Open returns the number of spans currently open.
func (r *Registry) Open() int {
	r.spansMu.RLock()
	defer r.spansMu.RUnlock()
	return len(r.spans)
}

// Depth returns the number of spans on task's stack.
func (r *Registry) Depth(task *Task) int {
	r.stacksMu.Lock()
	defer r.stacksMu.Unlock()
	return len(r.stacks[task.slot.number])
}

// Parents returns the ancestors of an open span, nearest first.
func (r *Registry) Parents(id SpanID) []SpanID {
	in := r.lookup(id)
	if in == nil {
		return nil
	}
	out := make([]SpanID, len(in.parents))
	copy(out, in.parents)
	return out
}

func (r *Registry) lookup(id SpanID) *instance {
	r.spansMu.RLock()
	defer r.spansMu.RUnlock()
	return r.spans[id]
}

func (r *Registry) emit(iv ActiveInterval) error {
	if r.sink == nil {
		return nil
	}
	if err := r.sink.Record(iv); err != nil {
		return fmt.Errorf("record interval of %q: %w", iv.Name, err)
	}
	r.metrics.intervalRecorded()
	return nil
}

func (r *Registry) duplicateEnd(id SpanID) {
	r.metrics.duplicateEnd()
	r.logger.Debug("ignoring active end without pending interval", zap.Uint64("span_id", uint64(id)))
}

// normalizeFields stringifies field values. Later duplicates of a key win.
func normalizeFields(fields []Field) Fields {
	if len(fields) == 0 {
		return nil
	}
	out := make(Fields, len(fields))
	for _, f := range fields {
		out[f.Key] = stringify(f.Value)
	}
	return out
}

func stringify(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case error:
		return v.Error()
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
