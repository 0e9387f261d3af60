package plot

import (
	"sort"
	"time"

	"github.com/zoobzio/durationz"
)

// minIntensity is the intensity of a span running alone.
const minIntensity = 0.4

// OverlapSample is the number of active intervals of one name covering a
// moment, split by where they ran.
type OverlapSample struct {
	Name   string
	At     time.Duration
	Main   int
	Worker int
}

// Total returns Main + Worker.
func (s OverlapSample) Total() int {
	return s.Main + s.Worker
}

// step is a point where the concurrency of a name changes. The counts hold
// from at until the next step.
type step struct {
	at     time.Duration
	main   int
	worker int
}

type edge struct {
	at     time.Duration
	delta  int
	worker bool
}

// Analysis is the concurrency of every span name over time.
type Analysis struct {
	trace  *durationz.Trace
	steps  map[string][]step
	counts []int
}

// Analyze sweeps the trace once per name. Intervals that end when another
// begins are not counted as overlapping.
func Analyze(trace *durationz.Trace) *Analysis {
	edges := make(map[string][]edge)
	for _, iv := range trace.Intervals {
		edges[iv.Name] = append(edges[iv.Name],
			edge{at: iv.Start, delta: 1, worker: iv.WorkerPool},
			edge{at: iv.End, delta: -1, worker: iv.WorkerPool},
		)
	}

	a := &Analysis{
		trace: trace,
		steps: make(map[string][]step, len(edges)),
	}
	for name, es := range edges {
		a.steps[name] = sweep(es)
	}

	a.counts = make([]int, len(trace.Intervals))
	for i, iv := range trace.Intervals {
		mid := iv.Start + (iv.End-iv.Start)/2
		count := a.At(iv.Name, mid).Total()
		if count < 1 {
			// Zero-width intervals close before they are sampled.
			count = 1
		}
		a.counts[i] = count
	}
	return a
}

func sweep(es []edge) []step {
	// Closing edges sort before opening edges at the same instant.
	sort.SliceStable(es, func(i, j int) bool {
		if es[i].at != es[j].at {
			return es[i].at < es[j].at
		}
		return es[i].delta < es[j].delta
	})

	steps := make([]step, 0, len(es))
	var cur step
	for i, e := range es {
		if e.worker {
			cur.worker += e.delta
		} else {
			cur.main += e.delta
		}
		// Only the state after the last edge of an instant is observable.
		if i+1 < len(es) && es[i+1].at == e.at {
			continue
		}
		cur.at = e.at
		steps = append(steps, cur)
	}
	return steps
}

// At returns the concurrency of name at t.
func (a *Analysis) At(name string, t time.Duration) OverlapSample {
	sample := OverlapSample{Name: name, At: t}
	steps := a.steps[name]
	idx := sort.Search(len(steps), func(i int) bool {
		return steps[i].at > t
	}) - 1
	if idx < 0 {
		return sample
	}
	sample.Main = steps[idx].main
	sample.Worker = steps[idx].worker
	return sample
}

// Count returns the concurrency in effect for trace interval i, sampled at
// its midpoint. It is at least 1.
func (a *Analysis) Count(i int) int {
	return a.counts[i]
}

// Max returns the highest concurrency name ever reaches.
func (a *Analysis) Max(name string) int {
	highest := 0
	for _, s := range a.steps[name] {
		if total := s.main + s.worker; total > highest {
			highest = total
		}
	}
	return highest
}

// Intensity maps a concurrency count to a color intensity in
// [minIntensity, 1]. It grows with count and stops at saturation.
func Intensity(count, saturation int) float64 {
	if saturation <= 1 {
		return 1
	}
	if count < 1 {
		count = 1
	}
	if count > saturation {
		count = saturation
	}
	return minIntensity + (1-minIntensity)*float64(count-1)/float64(saturation-1)
}
