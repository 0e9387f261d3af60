package durationz

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func TestNewTraceInstances(t *testing.T) {
	trace := NewTrace([]ActiveInterval{
		{SpanID: 1, Name: "fetch", Start: ms(100), End: ms(103)},
		{SpanID: 2, Name: "parse", Start: ms(101), End: ms(102), WorkerPool: true, Parents: []SpanID{1}},
		{SpanID: 1, Name: "fetch", Start: ms(108), End: ms(110)},
	})

	if len(trace.Instances) != 2 {
		t.Fatalf("Expected 2 instances, got %d", len(trace.Instances))
	}
	fetch := trace.Instances[0]
	if fetch.Open != 0 || fetch.Close != ms(10) {
		t.Errorf("Expected fetch open [0, 10ms], got [%v, %v]", fetch.Open, fetch.Close)
	}
	if fetch.WorkerPool {
		t.Error("Expected fetch on the main thread")
	}
	parse := trace.Instances[1]
	if !parse.WorkerPool {
		t.Error("Expected parse on the worker pool")
	}
	if diff := cmp.Diff([]SpanID{1}, parse.Parents); diff != "" {
		t.Errorf("parents mismatch (-want +got):\n%s", diff)
	}
	if trace.End != ms(10) {
		t.Errorf("Expected end 10ms, got %v", trace.End)
	}
}

func TestTraceDoesNotAliasInput(t *testing.T) {
	input := []ActiveInterval{{SpanID: 1, Name: "a", Start: ms(5), End: ms(6)}}
	NewTrace(input)
	if input[0].Start != ms(5) {
		t.Errorf("Expected input untouched, got start %v", input[0].Start)
	}
}

func TestTraceFilterKeepsAxis(t *testing.T) {
	trace := NewTrace([]ActiveInterval{
		{SpanID: 1, Name: "keep", Start: ms(2), End: ms(4)},
		{SpanID: 2, Name: "drop", Start: 0, End: ms(9)},
	})

	filtered := trace.Filter(func(in *Instance) bool { return in.Name == "keep" })
	if filtered.Len() != 1 {
		t.Fatalf("Expected 1 interval, got %d", filtered.Len())
	}
	if filtered.Intervals[0].Start != ms(2) {
		t.Errorf("Expected start to stay at 2ms, got %v", filtered.Intervals[0].Start)
	}
	if filtered.End != ms(9) {
		t.Errorf("Expected end to stay at 9ms, got %v", filtered.End)
	}
	if _, ok := filtered.Instance(InstanceKey{ID: 2}); ok {
		t.Error("Expected dropped instance to be gone")
	}
}

func TestTraceNames(t *testing.T) {
	trace := NewTrace([]ActiveInterval{
		{SpanID: 3, Name: "zeta", Start: ms(1), End: ms(2)},
		{SpanID: 1, Name: "beta", Start: ms(5), End: ms(6)},
		{SpanID: 2, Name: "alpha", Start: ms(1), End: ms(3)},
		{SpanID: 4, Name: "beta", Start: 0, End: ms(1)},
	})
	if diff := cmp.Diff([]string{"beta", "alpha", "zeta"}, trace.Names()); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
}
