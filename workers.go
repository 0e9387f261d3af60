package durationz

import (
	"context"
	"sync"
)

// workerPool runs offloaded functions on a fixed number of goroutines.
//
//nolint:govet // Field order optimized for functionality over memory
type workerPool struct {
	tasks    chan func()
	stop     chan struct{}
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

func newWorkerPool(workers, queueSize int) *workerPool {
	w := &workerPool{
		tasks: make(chan func(), queueSize),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	w.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go w.run()
	}
	return w
}

func (w *workerPool) run() {
	defer w.wg.Done()
	for {
		select {
		case task := <-w.tasks:
			task()
		case <-w.stop:
			// Finish what was queued before the stop.
			for {
				select {
				case task := <-w.tasks:
					task()
				default:
					return
				}
			}
		}
	}
}

// submit queues task, waiting for room until ctx is done or the pool stops.
func (w *workerPool) submit(ctx context.Context, task func()) error {
	select {
	case <-w.stop:
		return ErrPoolClosed
	default:
	}
	select {
	case w.tasks <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-w.stop:
		return ErrPoolClosed
	}
}

func (w *workerPool) shutdown() {
	w.stopOnce.Do(func() {
		close(w.stop)
		w.wg.Wait()
		close(w.done)
	})
}
