package durationz

import (
	"sort"
	"time"
)

// InstanceKey identifies one span instance across a whole trace. Raw ids may
// be reused after a span closes; the generation tells the owners apart.
type InstanceKey struct {
	ID         SpanID
	Generation uint64
}

// Instance is a span instance reconstructed from its active intervals.
//
//nolint:govet // Field order optimized for readability
type Instance struct {
	Key        InstanceKey
	Name       string
	Fields     Fields
	Parents    []SpanID
	Open       time.Duration
	Close      time.Duration
	WorkerPool bool
	Intervals  []int
}

// Lifetime returns the time between the first activation and the last
// deactivation.
func (in *Instance) Lifetime() time.Duration {
	return in.Close - in.Open
}

// Trace is the ordered record of one capture. It is not modified after
// construction.
type Trace struct {
	// Intervals in emission order, shifted so the earliest start is zero.
	Intervals []ActiveInterval
	// Instances in order of first appearance in Intervals.
	Instances []Instance
	// End is the latest end of any interval.
	End   time.Duration
	index map[InstanceKey]int
}

// NewTrace builds a trace from intervals. The intervals are copied and
// shifted so that the earliest start becomes time zero.
func NewTrace(intervals []ActiveInterval) *Trace {
	var zero time.Duration
	for i, iv := range intervals {
		if i == 0 || iv.Start < zero {
			zero = iv.Start
		}
	}
	return buildTrace(intervals, zero)
}

func buildTrace(intervals []ActiveInterval, zero time.Duration) *Trace {
	t := &Trace{
		Intervals: make([]ActiveInterval, len(intervals)),
		index:     make(map[InstanceKey]int),
	}
	copy(t.Intervals, intervals)

	for i := range t.Intervals {
		iv := &t.Intervals[i]
		iv.Start -= zero
		iv.End -= zero
		if iv.End > t.End {
			t.End = iv.End
		}

		key := iv.Key()
		idx, ok := t.index[key]
		if !ok {
			idx = len(t.Instances)
			t.index[key] = idx
			t.Instances = append(t.Instances, Instance{
				Key:     key,
				Name:    iv.Name,
				Fields:  iv.Fields,
				Parents: iv.Parents,
				Open:    iv.Start,
				Close:   iv.End,
			})
		}
		in := &t.Instances[idx]
		if iv.Start < in.Open {
			in.Open = iv.Start
		}
		if iv.End > in.Close {
			in.Close = iv.End
		}
		if iv.WorkerPool {
			in.WorkerPool = true
		}
		in.Intervals = append(in.Intervals, i)
	}
	return t
}

// Filter returns a trace holding only the instances keep accepts. Times are
// not shifted again and End is preserved, so the time axis stays the same.
func (t *Trace) Filter(keep func(in *Instance) bool) *Trace {
	kept := make([]ActiveInterval, 0, len(t.Intervals))
	for _, iv := range t.Intervals {
		in, _ := t.Instance(iv.Key())
		if keep(in) {
			kept = append(kept, iv)
		}
	}
	filtered := buildTrace(kept, 0)
	filtered.End = t.End
	return filtered
}

// Len returns the number of intervals.
func (t *Trace) Len() int {
	return len(t.Intervals)
}

// Instance returns the instance with key.
func (t *Trace) Instance(key InstanceKey) (*Instance, bool) {
	idx, ok := t.index[key]
	if !ok {
		return nil, false
	}
	return &t.Instances[idx], true
}

// Names returns the distinct span names ordered by their first start, ties
// broken by name.
func (t *Trace) Names() []string {
	first := make(map[string]time.Duration)
	for _, iv := range t.Intervals {
		if at, ok := first[iv.Name]; !ok || iv.Start < at {
			first[iv.Name] = iv.Start
		}
	}
	names := make([]string, 0, len(first))
	for name := range first {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if first[names[i]] != first[names[j]] {
			return first[names[i]] < first[names[j]]
		}
		return names[i] < names[j]
	})
	return names
}
