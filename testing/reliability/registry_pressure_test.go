package reliability

import (
	"bytes"
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/zoobzio/durationz"
)

// Registry pressure tests - verify capture stays consistent under sustained
// concurrent span churn.
// Environment: DURATIONZ_RELIABILITY_LEVEL controls test intensity
//   basic: CI-safe validation
//   stress: long running churn with many goroutines

func TestRegistryPressure(t *testing.T) {
	config := skipUnlessEnabled(t)

	switch config.Level {
	case "basic":
		t.Run("task_churn", func(t *testing.T) { testTaskChurn(t, 20, 50) })
		t.Run("out_of_order_close", testOutOfOrderClose)
		t.Run("recorder_under_load", func(t *testing.T) { testRecorderUnderLoad(t, 10, 100) })
	case "stress":
		t.Run("task_churn", func(t *testing.T) { testTaskChurn(t, config.MaxGoroutines, config.SpansPerTask) })
		t.Run("out_of_order_close", testOutOfOrderClose)
		t.Run("recorder_under_load", func(t *testing.T) {
			testRecorderUnderLoad(t, config.MaxGoroutines, config.SpansPerTask)
		})
		t.Run("sustained", func(t *testing.T) { testSustained(t, config) })
	default:
		t.Skipf("unknown DURATIONZ_RELIABILITY_LEVEL %q", config.Level)
	}
}

// testTaskChurn acquires and releases tasks constantly so slots are recycled
// while spans on other tasks are still open.
func testTaskChurn(t *testing.T, goroutines, spans int) {
	metrics := durationz.NewMetrics(prometheus.NewRegistry())
	collector := durationz.NewCollector()
	registry := durationz.NewRegistry(collector, durationz.WithMetrics(metrics))

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < spans; i++ {
				task := registry.AcquireTask(durationz.MainThread, 0)
				outer := registry.Enter(task, "outer")
				registry.ActiveBegin(outer, durationz.MainThread)
				inner := registry.Enter(task, "inner")
				registry.ActiveBegin(inner, durationz.MainThread)
				if err := registry.ActiveEnd(inner); err != nil {
					t.Errorf("ActiveEnd: %v", err)
				}
				if err := registry.Close(inner); err != nil {
					t.Errorf("Close: %v", err)
				}
				if err := registry.Close(outer); err != nil {
					t.Errorf("Close: %v", err)
				}
				task.Release()
			}
		}()
	}
	wg.Wait()

	if registry.Open() != 0 {
		t.Errorf("Expected no open spans, got %d", registry.Open())
	}
	if got, want := collector.Count(), goroutines*spans*2; got != want {
		t.Errorf("Expected %d intervals, got %d", want, got)
	}
	if got := testutil.ToFloat64(metrics.OpenSpans); got != 0 {
		t.Errorf("Expected open span gauge at 0, got %v", got)
	}

	trace := durationz.NewTrace(collector.Export())
	if len(trace.Instances) != goroutines*spans*2 {
		t.Errorf("Expected every span to be its own instance, got %d", len(trace.Instances))
	}
}

// testOutOfOrderClose closes spans in the reverse of the usual order and
// checks the stacks still shrink back to empty.
func testOutOfOrderClose(t *testing.T) {
	registry := durationz.NewRegistry(nil)
	task := registry.AcquireTask(durationz.MainThread, 0)
	defer task.Release()

	ids := make([]durationz.SpanID, 100)
	for i := range ids {
		ids[i] = registry.Enter(task, "nested")
	}
	for _, id := range ids {
		if err := registry.Close(id); err != nil {
			t.Fatal(err)
		}
	}
	if registry.Depth(task) != 0 {
		t.Errorf("Expected empty stack, got depth %d", registry.Depth(task))
	}
	// Double close and unknown ids are ignored.
	for _, id := range ids {
		if err := registry.Close(id); err != nil {
			t.Fatal(err)
		}
		registry.ActiveBegin(id, durationz.MainThread)
	}
	if registry.Open() != 0 {
		t.Errorf("Expected no open spans, got %d", registry.Open())
	}
}

// testRecorderUnderLoad records from many goroutines and loads the result.
func testRecorderUnderLoad(t *testing.T, goroutines, spans int) {
	var buf bytes.Buffer
	session, err := durationz.New(durationz.WithWriter(&buf))
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, release := session.Fork(context.Background())
			defer release()
			for i := 0; i < spans; i++ {
				_, span := session.Start(ctx, "load", durationz.F("i", i))
				span.End()
			}
		}()
	}
	wg.Wait()
	if err := session.Close(); err != nil {
		t.Fatal(err)
	}

	trace, err := durationz.Load(&buf)
	if err != nil {
		t.Fatalf("Expected a loadable log, got %v", err)
	}
	if trace.Len() != goroutines*spans {
		t.Errorf("Expected %d intervals, got %d", goroutines*spans, trace.Len())
	}
}

// testSustained churns spans for the configured duration and checks memory
// does not keep growing with the number of closed spans.
func testSustained(t *testing.T, config ReliabilityConfig) {
	registry := durationz.NewRegistry(durationz.SinkFunc(func(durationz.ActiveInterval) error { return nil }))

	var (
		stop    atomic.Bool
		entered atomic.Int64
		wg      sync.WaitGroup
	)
	for g := 0; g < runtime.NumCPU(); g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			task := registry.AcquireTask(durationz.MainThread, 0)
			defer task.Release()
			for !stop.Load() {
				id := registry.Enter(task, "sustained")
				registry.ActiveBegin(id, durationz.MainThread)
				_ = registry.Close(id)
				entered.Add(1)
			}
		}()
	}

	var before runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)
	time.Sleep(config.Duration)
	stop.Store(true)
	wg.Wait()

	var after runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&after)

	if registry.Open() != 0 {
		t.Errorf("Expected no open spans, got %d", registry.Open())
	}
	grown := int64(after.HeapAlloc) - int64(before.HeapAlloc)
	t.Logf("entered %d spans, heap grew by %d bytes", entered.Load(), grown)
	if grown > 64<<20 {
		t.Errorf("Heap grew by %d bytes, closed spans are being retained", grown)
	}
}
