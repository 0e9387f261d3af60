package durationz

import (
	"sync"
	"testing"
)

func TestCollectorRecordAndSnapshot(t *testing.T) {
	collector := NewCollector()
	if collector.Snapshot() != nil {
		t.Error("Expected nil snapshot from empty collector")
	}

	for i := 1; i <= 3; i++ {
		if err := collector.Record(ActiveInterval{SpanID: SpanID(i), Name: "op"}); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}
	snapshot := collector.Snapshot()
	if len(snapshot) != 3 {
		t.Fatalf("Expected 3 intervals, got %d", len(snapshot))
	}
	for i, iv := range snapshot {
		if iv.SpanID != SpanID(i+1) {
			t.Errorf("Expected recording order, got id %d at %d", iv.SpanID, i)
		}
	}

	snapshot[0].Name = "changed"
	if collector.Snapshot()[0].Name != "op" {
		t.Error("Expected snapshot to be a copy")
	}
}

func TestCollectorExport(t *testing.T) {
	collector := NewCollector()
	for i := 0; i < 10; i++ {
		_ = collector.Record(ActiveInterval{SpanID: SpanID(i + 1)})
	}

	exported := collector.Export()
	if len(exported) != 10 {
		t.Errorf("Expected 10 exported intervals, got %d", len(exported))
	}
	if collector.Count() != 0 {
		t.Errorf("Expected empty collector after export, got %d", collector.Count())
	}
	if collector.Export() != nil {
		t.Error("Expected nil from second export")
	}

	_ = collector.Record(ActiveInterval{SpanID: 99})
	if exported[0].SpanID != 1 {
		t.Error("Expected exported slice to be detached from the buffer")
	}
}

func TestCollectorExportShrinksOversizedBuffer(t *testing.T) {
	collector := NewCollector()
	for i := 0; i < 2000; i++ {
		_ = collector.Record(ActiveInterval{})
	}
	collector.Export()
	large := cap(collector.intervals)

	_ = collector.Record(ActiveInterval{})
	collector.Export()
	if got := cap(collector.intervals); got >= large {
		t.Errorf("Expected capacity below %d after a small export, got %d", large, got)
	}
}

func TestCollectorReset(t *testing.T) {
	collector := NewCollector()
	_ = collector.Record(ActiveInterval{SpanID: 1})
	collector.Reset()
	if collector.Count() != 0 {
		t.Errorf("Expected 0 after reset, got %d", collector.Count())
	}
}

func TestCollectorConcurrentRecord(t *testing.T) {
	collector := NewCollector()
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				_ = collector.Record(ActiveInterval{Name: "c"})
			}
		}()
	}
	wg.Wait()
	if collector.Count() != 4000 {
		t.Errorf("Expected 4000 intervals, got %d", collector.Count())
	}
}
