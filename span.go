package durationz

import (
	"context"
	"sync"
)

// bundleKeyType is a private type for context keys to avoid collisions.
type bundleKeyType string

const (
	bundleKey bundleKeyType = "durationz"
)

// contextBundle carries the session, the current task and the current span
// in a single context value.
type contextBundle struct {
	session *Session
	task    *Task
	span    *Span
}

func bundleFrom(ctx context.Context) *contextBundle {
	if ctx == nil {
		return nil
	}
	bundle, _ := ctx.Value(bundleKey).(*contextBundle)
	return bundle
}

// Span is a handle on an open span started through a Session.
// Safe for concurrent use by multiple goroutines.
type Span struct {
	session *Session
	task    *Task
	id      SpanID
	mu      sync.Mutex
	ended   bool
}

// ID returns the span's registry id.
func (s *Span) ID() SpanID {
	return s.id
}

// Suspend ends the span's current active stretch; the span stays open.
// No-op if the span is not active or already ended.
func (s *Span) Suspend() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}
	s.session.check(s.session.registry.ActiveEnd(s.id))
}

// Resume starts a new active stretch. The thread kind is taken from the
// task carried by ctx, falling back to the task that started the span.
func (s *Span) Resume(ctx context.Context) {
	kind := s.task.Kind()
	if bundle := bundleFrom(ctx); bundle != nil && bundle.session == s.session && bundle.task != nil {
		kind = bundle.task.Kind()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}
	s.session.registry.ActiveBegin(s.id, kind)
}

// End closes the span. Safe to call multiple times - subsequent calls are no-ops.
func (s *Span) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}
	s.ended = true
	s.session.check(s.session.registry.Close(s.id))
}

// Context returns a copy of parent carrying this span and its task.
func (s *Span) Context(parent context.Context) context.Context {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithValue(parent, bundleKey, &contextBundle{
		session: s.session,
		task:    s.task,
		span:    s,
	})
}

// SpanFromContext returns the span carried by ctx, or nil.
func SpanFromContext(ctx context.Context) *Span {
	if bundle := bundleFrom(ctx); bundle != nil {
		return bundle.span
	}
	return nil
}
