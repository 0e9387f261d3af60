package plot

import (
	"fmt"
	"sort"
	"time"

	"github.com/zoobzio/durationz"
)

// Row is one visual row of a lane. Neither its instances' lifetimes nor its
// intervals overlap in time.
type Row struct {
	// Instances are indices into Trace.Instances, by open time.
	Instances []int
	// Intervals are indices into Trace.Intervals, by start time.
	Intervals []int
}

// Lane is the block of rows drawn under one label.
type Lane struct {
	Label string
	Name  string
	Rows  []Row
}

// Scale maps trace time to horizontal pixels. It is shared by the whole image.
type Scale struct {
	Start time.Duration
	End   time.Duration
	X0    float64
	Width float64
}

// X returns the horizontal position of t.
func (s Scale) X(t time.Duration) float64 {
	if s.End <= s.Start {
		return s.X0
	}
	return s.X0 + s.Width*float64(t-s.Start)/float64(s.End-s.Start)
}

// Span returns the width of a duration.
func (s Scale) Span(d time.Duration) float64 {
	if s.End <= s.Start {
		return 0
	}
	return s.Width * float64(d) / float64(s.End-s.Start)
}

// Arrangement is the lanes of a trace and its time scale.
type Arrangement struct {
	Lanes []Lane
	Scale Scale
}

// Arrange assigns the trace's instances to lanes. By default there is one
// lane per name, with instances packed greedily into as few rows as keep
// them from overlapping. With cfg.MultiLane every instance gets a lane.
func Arrange(trace *durationz.Trace, cfg Config, layout Layout) Arrangement {
	arr := Arrangement{
		Scale: Scale{
			Start: 0,
			End:   trace.End,
			X0:    float64(layout.PaddingLeft + layout.TextColWidth),
			Width: float64(layout.ContentColWidth),
		},
	}

	order := make([]int, len(trace.Instances))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return instanceLess(&trace.Instances[order[i]], &trace.Instances[order[j]])
	})

	if cfg.MultiLane {
		for _, idx := range order {
			in := &trace.Instances[idx]
			arr.Lanes = append(arr.Lanes, Lane{
				Label: instanceLabel(in),
				Name:  in.Name,
				Rows:  []Row{rowOf(trace, []int{idx})},
			})
		}
		return arr
	}

	byName := make(map[string][]int)
	for _, idx := range order {
		name := trace.Instances[idx].Name
		byName[name] = append(byName[name], idx)
	}
	for _, name := range trace.Names() {
		arr.Lanes = append(arr.Lanes, Lane{
			Label: name,
			Name:  name,
			Rows:  packRows(trace, byName[name]),
		})
	}
	return arr
}

// packRows puts each instance, in open order, into the lowest row whose last
// instance closed no later than it opens. Rows are packed by whole lifetimes
// so every lifetime rectangle stays in one row. This can take more rows than
// packing active intervals alone: an instance active only inside another's
// suspended gap still gets a row of its own.
func packRows(trace *durationz.Trace, instances []int) []Row {
	var (
		members [][]int
		ends    []time.Duration
	)
	for _, idx := range instances {
		in := &trace.Instances[idx]
		row := -1
		for r, end := range ends {
			if end <= in.Open {
				row = r
				break
			}
		}
		if row < 0 {
			row = len(ends)
			members = append(members, nil)
			ends = append(ends, 0)
		}
		members[row] = append(members[row], idx)
		ends[row] = in.Close
	}

	rows := make([]Row, len(members))
	for r, m := range members {
		rows[r] = rowOf(trace, m)
	}
	return rows
}

func rowOf(trace *durationz.Trace, instances []int) Row {
	row := Row{Instances: instances}
	for _, idx := range instances {
		row.Intervals = append(row.Intervals, trace.Instances[idx].Intervals...)
	}
	sort.SliceStable(row.Intervals, func(i, j int) bool {
		a, b := trace.Intervals[row.Intervals[i]], trace.Intervals[row.Intervals[j]]
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		return row.Intervals[i] < row.Intervals[j]
	})
	return row
}

func instanceLess(a, b *durationz.Instance) bool {
	if a.Open != b.Open {
		return a.Open < b.Open
	}
	if a.Close != b.Close {
		return a.Close < b.Close
	}
	if a.Key.ID != b.Key.ID {
		return a.Key.ID < b.Key.ID
	}
	return a.Key.Generation < b.Key.Generation
}

func instanceLabel(in *durationz.Instance) string {
	if in.Key.Generation > 0 {
		return fmt.Sprintf("%s #%d.%d", in.Name, in.Key.ID, in.Key.Generation)
	}
	return fmt.Sprintf("%s #%d", in.Name, in.Key.ID)
}
