package durationz

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

func TestWorkerPoolDrainsQueueOnShutdown(t *testing.T) {
	pool := newWorkerPool(1, 8)
	block := make(chan struct{})
	var ran atomic.Int32

	if err := pool.submit(context.Background(), func() { <-block }); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		if err := pool.submit(context.Background(), func() { ran.Add(1) }); err != nil {
			t.Fatal(err)
		}
	}
	close(block)
	pool.shutdown()
	pool.shutdown()

	if ran.Load() != 5 {
		t.Errorf("Expected 5 queued tasks to run, got %d", ran.Load())
	}
	if err := pool.submit(context.Background(), func() {}); !errors.Is(err, ErrPoolClosed) {
		t.Errorf("Expected ErrPoolClosed, got %v", err)
	}
}

func TestWorkerPoolSubmitHonorsContext(t *testing.T) {
	pool := newWorkerPool(1, 1)
	block := make(chan struct{})
	defer func() {
		close(block)
		pool.shutdown()
	}()

	started := make(chan struct{})
	_ = pool.submit(context.Background(), func() {
		close(started)
		<-block
	})
	<-started
	_ = pool.submit(context.Background(), func() {})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := pool.submit(ctx, func() {}); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
