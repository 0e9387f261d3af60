package durationz

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Session is one capture: a registry plus the sinks it writes to, driven
// through context.Context.
// Safe for concurrent use by multiple goroutines.
//
//nolint:govet // Field order optimized for functionality over memory
type Session struct {
	registry  *Registry
	recorder  *Recorder
	collector *Collector
	main      *Task
	logger    *zap.Logger
	metrics   *Metrics
	workers   *workerPool
	workersMu sync.Mutex
	errMu     sync.Mutex
	err       error
	onClose   []func(*Trace) error
}

// New starts a capture session. The calling goroutine becomes the session's
// main task: spans started without a task in their context run on it.
func New(opts ...Option) (*Session, error) {
	cfg := newConfig(opts)
	s := &Session{
		logger:  cfg.logger,
		metrics: cfg.metrics,
		onClose: cfg.onClose,
	}

	var sinks MultiSink
	switch {
	case cfg.durationsFile != "":
		recorder, err := CreateRecorder(cfg.durationsFile, cfg.recorderOpts...)
		if err != nil {
			return nil, err
		}
		s.recorder = recorder
		sinks = append(sinks, recorder)
	case cfg.writer != nil:
		s.recorder = NewRecorder(cfg.writer, cfg.recorderOpts...)
		sinks = append(sinks, s.recorder)
	}
	if cfg.collect {
		s.collector = NewCollector()
		sinks = append(sinks, s.collector)
	}

	var sink Sink
	if len(sinks) > 0 {
		sink = sinks
	}
	s.registry = NewRegistry(sink, opts...)
	s.main = s.registry.AcquireTask(MainThread, 0)
	return s, nil
}

// Registry returns the session's registry, for instrumentation that drives
// lifecycle events directly.
func (s *Session) Registry() *Registry {
	return s.registry
}

// Start enters a span on the task carried by ctx and makes it active.
// If ctx carries a span of this session the new span nests under it.
func (s *Session) Start(ctx context.Context, name string, fields ...Field) (context.Context, *Span) {
	// Handle nil context by creating a new one.
	if ctx == nil {
		ctx = context.Background()
	}

	task := s.main
	if bundle := bundleFrom(ctx); bundle != nil && bundle.session == s && bundle.task != nil {
		task = bundle.task
	}

	id := s.registry.Enter(task, name, fields...)
	s.registry.ActiveBegin(id, task.Kind())

	span := &Span{session: s, task: task, id: id}
	return span.Context(ctx), span
}

// Fork gives the caller its own task for spans started from the returned
// context, nested under the span in ctx. Call release when the goroutine is
// done with it.
func (s *Session) Fork(ctx context.Context) (context.Context, func()) {
	if ctx == nil {
		ctx = context.Background()
	}
	bundle := &contextBundle{session: s}
	kind := MainThread
	if parent := bundleFrom(ctx); parent != nil && parent.session == s {
		bundle.span = parent.span
		if parent.task != nil {
			kind = parent.task.Kind()
		}
	}
	var parentID SpanID
	if bundle.span != nil {
		parentID = bundle.span.id
	}
	bundle.task = s.registry.AcquireTask(kind, parentID)
	return context.WithValue(ctx, bundleKey, bundle), bundle.task.Release
}

// EnableWorkerPool creates a bounded worker pool for Offload.
func (s *Session) EnableWorkerPool(workers, queueSize int) error {
	if workers <= 0 {
		return errors.New("workers must be > 0")
	}
	if queueSize <= 0 {
		return errors.New("queueSize must be > 0")
	}

	s.workersMu.Lock()
	defer s.workersMu.Unlock()
	if s.workers != nil {
		return ErrWorkerPoolEnabled
	}
	s.workers = newWorkerPool(workers, queueSize)
	return nil
}

// Offload runs fn off the calling task, on the worker pool when one is
// enabled and on a fresh goroutine otherwise, and waits for it or for ctx to
// be cancelled. Spans started from fn's context are worker-pool spans nested
// under the span in ctx.
func (s *Session) Offload(ctx context.Context, fn func(context.Context) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	var parent *Span
	if bundle := bundleFrom(ctx); bundle != nil && bundle.session == s {
		parent = bundle.span
	}

	result := make(chan error, 1)
	run := func() {
		var parentID SpanID
		if parent != nil {
			parentID = parent.id
		}
		task := s.registry.AcquireTask(WorkerPool, parentID)
		defer task.Release()
		result <- fn(context.WithValue(ctx, bundleKey, &contextBundle{
			session: s,
			task:    task,
			span:    parent,
		}))
	}

	s.workersMu.Lock()
	pool := s.workers
	s.workersMu.Unlock()

	if pool == nil {
		go run()
		select {
		case err := <-result:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if err := pool.submit(ctx, run); err != nil {
		s.metrics.offloadDropped()
		return fmt.Errorf("offload: %w", err)
	}
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-pool.done:
		select {
		case err := <-result:
			return err
		default:
			return fmt.Errorf("offload: %w", ErrPoolClosed)
		}
	}
}

// Intervals returns a copy of everything recorded so far when the session
// was created WithCollector, nil otherwise.
func (s *Session) Intervals() []ActiveInterval {
	if s.collector == nil {
		return nil
	}
	return s.collector.Snapshot()
}

// Trace builds a trace from the collected intervals.
func (s *Session) Trace() *Trace {
	return NewTrace(s.Intervals())
}

// Err returns the first error met while recording, if any.
func (s *Session) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *Session) check(err error) {
	if err == nil {
		return
	}
	s.logger.Error("recording interval failed", zap.Error(err))
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

// Close stops the worker pool, then flushes and closes the recorder and
// runs the WithOnClose hooks. It returns the first recording error together
// with any flush or hook error.
func (s *Session) Close() error {
	s.workersMu.Lock()
	pool := s.workers
	s.workersMu.Unlock()
	if pool != nil {
		pool.shutdown()
	}
	s.main.Release()

	if open := s.registry.Open(); open > 0 {
		s.logger.Warn("closing session with open spans", zap.Int("open", open))
	}

	var closeErr error
	if s.recorder != nil {
		closeErr = s.recorder.Close()
	}

	var hookErrs []error
	if len(s.onClose) > 0 {
		trace := s.Trace()
		for _, fn := range s.onClose {
			if err := fn(trace); err != nil {
				s.logger.Error("close hook failed", zap.Error(err))
				hookErrs = append(hookErrs, err)
			}
		}
		s.onClose = nil
	}
	return errors.Join(s.Err(), closeErr, errors.Join(hookErrs...))
}
