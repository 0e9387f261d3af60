package durationz

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Timestamp is an offset from the capture epoch split like the log format:
// whole seconds plus the nanosecond remainder.
type Timestamp struct {
	Secs  uint64 `json:"secs"`
	Nanos uint32 `json:"nanos"`
}

// TimestampOf splits d. Negative offsets are clamped to zero.
func TimestampOf(d time.Duration) Timestamp {
	if d < 0 {
		d = 0
	}
	return Timestamp{
		Secs:  uint64(d / time.Second),
		Nanos: uint32(d % time.Second),
	}
}

// Duration joins the timestamp back into a time.Duration.
func (ts Timestamp) Duration() (time.Duration, error) {
	if ts.Nanos >= uint32(time.Second) {
		return 0, fmt.Errorf("nanos %d out of range", ts.Nanos)
	}
	if ts.Secs > uint64(math.MaxInt64/int64(time.Second))-1 {
		return 0, fmt.Errorf("secs %d out of range", ts.Secs)
	}
	return time.Duration(ts.Secs)*time.Second + time.Duration(ts.Nanos), nil
}

// logLine is the encoded form of an ActiveInterval.
//
//nolint:govet // Field order is the order keys appear in a line
type logLine struct {
	ID           uint64             `json:"id"`
	Name         string             `json:"name"`
	Start        Timestamp          `json:"start"`
	End          Timestamp          `json:"end"`
	Parents      *[]uint64          `json:"parents,omitempty"`
	Fields       *map[string]string `json:"fields,omitempty"`
	IsMainThread bool               `json:"is_main_thread"`
	Generation   uint64             `json:"generation,omitempty"`
}

// rawLine is the decoded form of a line. Pointers tell missing keys apart
// from zero values.
type rawLine struct {
	ID           *uint64           `json:"id"`
	Name         *string           `json:"name"`
	Start        *Timestamp        `json:"start"`
	End          *Timestamp        `json:"end"`
	Parents      []uint64          `json:"parents"`
	Fields       map[string]string `json:"fields"`
	IsMainThread *bool             `json:"is_main_thread"`
	Generation   uint64            `json:"generation"`
}

func encodeLine(iv ActiveInterval, withParents, withFields bool) logLine {
	line := logLine{
		ID:           uint64(iv.SpanID),
		Name:         iv.Name,
		Start:        TimestampOf(iv.Start),
		End:          TimestampOf(iv.End),
		IsMainThread: !iv.WorkerPool,
		Generation:   iv.Generation,
	}
	if withParents {
		parents := make([]uint64, len(iv.Parents))
		for i, p := range iv.Parents {
			parents[i] = uint64(p)
		}
		line.Parents = &parents
	}
	if withFields {
		fields := make(map[string]string, len(iv.Fields))
		for k, v := range iv.Fields {
			fields[k] = v
		}
		line.Fields = &fields
	}
	return line
}

func (raw *rawLine) interval() (ActiveInterval, error) {
	switch {
	case raw.ID == nil:
		return ActiveInterval{}, errors.New(`missing "id"`)
	case raw.Name == nil:
		return ActiveInterval{}, errors.New(`missing "name"`)
	case raw.Start == nil:
		return ActiveInterval{}, errors.New(`missing "start"`)
	case raw.End == nil:
		return ActiveInterval{}, errors.New(`missing "end"`)
	}
	start, err := raw.Start.Duration()
	if err != nil {
		return ActiveInterval{}, fmt.Errorf("start: %w", err)
	}
	end, err := raw.End.Duration()
	if err != nil {
		return ActiveInterval{}, fmt.Errorf("end: %w", err)
	}
	if end < start {
		return ActiveInterval{}, fmt.Errorf("end %v before start %v", end, start)
	}

	iv := ActiveInterval{
		SpanID:     SpanID(*raw.ID),
		Generation: raw.Generation,
		Name:       *raw.Name,
		Start:      start,
		End:        end,
		WorkerPool: raw.IsMainThread != nil && !*raw.IsMainThread,
	}
	if len(raw.Parents) > 0 {
		iv.Parents = make([]SpanID, len(raw.Parents))
		for i, p := range raw.Parents {
			iv.Parents[i] = SpanID(p)
		}
	}
	if len(raw.Fields) > 0 {
		iv.Fields = Fields(raw.Fields)
	}
	return iv, nil
}
