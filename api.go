// Package durationz records which spans of work are active in parallel.
//
// durationz captures span lifecycle events (entered, became active, became
// idle, closed) and turns them into active intervals: the stretches of time
// during which a span was actually executing rather than merely open. The
// intervals are written as newline-delimited JSON and can be rendered into an
// SVG timeline with the plot package or the durationz-plot command.
//
// Core Components:
//   - Registry: tracks open spans and their nesting per task.
//   - Task: a logical execution context (goroutine or cooperative task).
//   - Recorder: writes finished intervals to an ndjson log.
//   - Collector: buffers finished intervals in memory.
//   - Session: convenience layer over all of the above using context.Context.
//   - Load: reads a log back into a Trace.
//
// Basic Usage:
//
//	session, err := durationz.New(durationz.WithDurationsFile("traces.ndjson"))
//	if err != nil {
//		return err
//	}
//	defer session.Close()
//
//	ctx, span := session.Start(ctx, "fetch", durationz.F("url", url))
//	defer span.End()
//
//	// Yielding to I/O: the span stays open but stops being active.
//	span.Suspend()
//	<-ready
//	span.Resume(ctx)
//
// Thread Safety:
//
// Registry, Recorder, Collector and Session are safe for concurrent use.
// A Task belongs to a single goroutine at a time; hand it over, don't share it.
//
// Log Format:
//
// Each line is one active interval:
//
//	{"id":5,"name":"read_cache","start":{"secs":0,"nanos":122457871},"end":{"secs":0,"nanos":122463135},"parents":[3],"fields":{"id":"2"},"is_main_thread":true}
//
// A span that suspends and resumes produces several lines with the same id.
// Times are offsets from the registry's creation, not wall-clock time.
package durationz

import (
	"errors"
	"fmt"
	"time"
)

// SpanID identifies an open span instance. IDs are unique among spans open at
// the same time and may be reused once a span closes. Zero means no span.
type SpanID uint64

// ThreadKind tells whether work ran on the main context or was offloaded.
type ThreadKind uint8

const (
	// MainThread is the context that entered the work.
	MainThread ThreadKind = iota
	// WorkerPool is a background execution pool the work was handed to.
	WorkerPool
)

// String returns the kind's name.
func (k ThreadKind) String() string {
	switch k {
	case MainThread:
		return "main"
	case WorkerPool:
		return "worker-pool"
	default:
		return fmt.Sprintf("ThreadKind(%d)", uint8(k))
	}
}

// Fields holds the normalized key/value metadata of a span.
type Fields map[string]string

// Field is a single key/value pair passed when entering a span.
type Field struct {
	Value any
	Key   string
}

// F builds a Field.
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// ActiveInterval is one contiguous stretch during which a span was executing.
//
//nolint:govet // Field order follows the log line layout
type ActiveInterval struct {
	SpanID     SpanID
	Generation uint64
	Name       string
	Start      time.Duration
	End        time.Duration
	WorkerPool bool
	Parents    []SpanID
	Fields     Fields
}

// Duration returns End - Start.
func (iv ActiveInterval) Duration() time.Duration {
	return iv.End - iv.Start
}

// Key returns the instance key of the span the interval belongs to.
func (iv ActiveInterval) Key() InstanceKey {
	return InstanceKey{ID: iv.SpanID, Generation: iv.Generation}
}

// Sink receives finished active intervals.
type Sink interface {
	Record(iv ActiveInterval) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(iv ActiveInterval) error

// Record calls f(iv).
func (f SinkFunc) Record(iv ActiveInterval) error {
	return f(iv)
}

// MultiSink records to every sink in order and stops at the first error.
type MultiSink []Sink

// Record implements Sink.
func (m MultiSink) Record(iv ActiveInterval) error {
	for _, s := range m {
		if err := s.Record(iv); err != nil {
			return err
		}
	}
	return nil
}

var (
	// ErrPoolClosed is returned when offloading to a stopped worker pool.
	ErrPoolClosed = errors.New("worker pool closed")
	// ErrWorkerPoolEnabled is returned when enabling the worker pool twice.
	ErrWorkerPoolEnabled = errors.New("worker pool already enabled")
	// ErrRecorderClosed is returned when recording after Close.
	ErrRecorderClosed = errors.New("recorder closed")
)
