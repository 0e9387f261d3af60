package plot

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/zoobzio/durationz"
)

func TestArrangeOverlappingInstancesSplitRows(t *testing.T) {
	arr := Arrange(overlapping(), DefaultConfig(), DefaultLayout())

	if len(arr.Lanes) != 1 {
		t.Fatalf("Expected 1 lane, got %d", len(arr.Lanes))
	}
	lane := arr.Lanes[0]
	if lane.Label != "request" {
		t.Errorf("Expected label request, got %q", lane.Label)
	}
	if len(lane.Rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(lane.Rows))
	}
	if diff := cmp.Diff([]int{0}, lane.Rows[0].Instances); diff != "" {
		t.Errorf("first row mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{1}, lane.Rows[1].Instances); diff != "" {
		t.Errorf("second row mismatch (-want +got):\n%s", diff)
	}
}

func TestArrangeReusesFreedRows(t *testing.T) {
	trace := durationz.NewTrace([]durationz.ActiveInterval{
		{SpanID: 1, Name: "job", Start: 0, End: ms(4)},
		{SpanID: 2, Name: "job", Start: ms(1), End: ms(6)},
		{SpanID: 3, Name: "job", Start: ms(4), End: ms(5)},
		{SpanID: 4, Name: "job", Start: ms(2), End: ms(3)},
	})
	arr := Arrange(trace, DefaultConfig(), DefaultLayout())

	rows := arr.Lanes[0].Rows
	if len(rows) != 3 {
		t.Fatalf("Expected 3 rows, got %d", len(rows))
	}
	// Instance 3 opens exactly when instance 1 closes and shares its row.
	if diff := cmp.Diff([]int{0, 2}, rows[0].Instances); diff != "" {
		t.Errorf("first row mismatch (-want +got):\n%s", diff)
	}
	assertRowsDisjoint(t, trace, arr)
}

func TestArrangePacksWholeLifetimes(t *testing.T) {
	// Span 1 is suspended from 2ms to 8ms and span 2 runs inside that gap.
	trace := durationz.NewTrace([]durationz.ActiveInterval{
		{SpanID: 1, Name: "job", Start: 0, End: ms(2)},
		{SpanID: 2, Name: "job", Start: ms(3), End: ms(5)},
		{SpanID: 1, Name: "job", Start: ms(8), End: ms(10)},
	})
	arr := Arrange(trace, DefaultConfig(), DefaultLayout())

	rows := arr.Lanes[0].Rows
	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows for overlapping lifetimes, got %d", len(rows))
	}
	if diff := cmp.Diff([]int{0, 2}, rows[0].Intervals); diff != "" {
		t.Errorf("first row intervals mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{1}, rows[1].Intervals); diff != "" {
		t.Errorf("second row intervals mismatch (-want +got):\n%s", diff)
	}
}

func TestArrangeRowsNeverOverlap(t *testing.T) {
	var intervals []durationz.ActiveInterval
	for i := 0; i < 60; i++ {
		start := ms((i * 7) % 50)
		intervals = append(intervals, durationz.ActiveInterval{
			SpanID: durationz.SpanID(i + 1),
			Name:   []string{"a", "b", "c"}[i%3],
			Start:  start,
			End:    start + ms(1+(i*13)%11),
		})
	}
	trace := durationz.NewTrace(intervals)
	arr := Arrange(trace, DefaultConfig(), DefaultLayout())

	if len(arr.Lanes) != 3 {
		t.Fatalf("Expected 3 lanes, got %d", len(arr.Lanes))
	}
	placed := 0
	for _, lane := range arr.Lanes {
		for _, row := range lane.Rows {
			placed += len(row.Instances)
		}
	}
	if placed != len(trace.Instances) {
		t.Errorf("Expected every instance placed once, placed %d of %d", placed, len(trace.Instances))
	}
	assertRowsDisjoint(t, trace, arr)
}

func assertRowsDisjoint(t *testing.T, trace *durationz.Trace, arr Arrangement) {
	t.Helper()
	for _, lane := range arr.Lanes {
		for r, row := range lane.Rows {
			for i := 1; i < len(row.Instances); i++ {
				prev := trace.Instances[row.Instances[i-1]]
				cur := trace.Instances[row.Instances[i]]
				if prev.Close > cur.Open {
					t.Errorf("lane %s row %d: %v overlaps %v", lane.Name, r, prev.Key, cur.Key)
				}
			}
			for i := 1; i < len(row.Intervals); i++ {
				prev := trace.Intervals[row.Intervals[i-1]]
				cur := trace.Intervals[row.Intervals[i]]
				if prev.End > cur.Start {
					t.Errorf("lane %s row %d: intervals %d and %d overlap", lane.Name, r, row.Intervals[i-1], row.Intervals[i])
				}
			}
		}
	}
}

func TestArrangeLaneOrder(t *testing.T) {
	trace := durationz.NewTrace([]durationz.ActiveInterval{
		{SpanID: 1, Name: "late", Start: ms(5), End: ms(6)},
		{SpanID: 2, Name: "early", Start: 0, End: ms(1)},
		{SpanID: 3, Name: "also-early", Start: 0, End: ms(2)},
	})
	arr := Arrange(trace, DefaultConfig(), DefaultLayout())

	var labels []string
	for _, lane := range arr.Lanes {
		labels = append(labels, lane.Label)
	}
	if diff := cmp.Diff([]string{"also-early", "early", "late"}, labels); diff != "" {
		t.Errorf("lane order mismatch (-want +got):\n%s", diff)
	}
}

func TestArrangeMultiLane(t *testing.T) {
	trace := durationz.NewTrace([]durationz.ActiveInterval{
		{SpanID: 1, Name: "request", Start: 0, End: ms(10)},
		{SpanID: 2, Name: "request", Start: ms(5), End: ms(15)},
		{SpanID: 2, Generation: 3, Name: "request", Start: ms(20), End: ms(21)},
		{SpanID: 1, Name: "request", Start: ms(12), End: ms(14)},
	})
	cfg := DefaultConfig()
	cfg.MultiLane = true
	arr := Arrange(trace, cfg, DefaultLayout())

	var labels []string
	for _, lane := range arr.Lanes {
		labels = append(labels, lane.Label)
		if len(lane.Rows) != 1 {
			t.Errorf("Expected 1 row in lane %s, got %d", lane.Label, len(lane.Rows))
		}
	}
	if diff := cmp.Diff([]string{"request #1", "request #2", "request #2.3"}, labels); diff != "" {
		t.Errorf("labels mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{0, 3}, arr.Lanes[0].Rows[0].Intervals); diff != "" {
		t.Errorf("intervals of #1 mismatch (-want +got):\n%s", diff)
	}
}

func TestScale(t *testing.T) {
	scale := Scale{Start: 0, End: ms(10), X0: 100, Width: 500}
	if got := scale.X(ms(5)); got != 350 {
		t.Errorf("Expected 350, got %v", got)
	}
	if got := scale.Span(ms(2)); got != 100 {
		t.Errorf("Expected 100, got %v", got)
	}

	flat := Scale{X0: 100, Width: 500}
	if flat.X(ms(1)) != 100 || flat.Span(ms(1)) != 0 {
		t.Error("Expected a zero-length scale to collapse onto X0")
	}
}
