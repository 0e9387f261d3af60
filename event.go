package durationz

import "fmt"

// EventKind is the kind of a lifecycle notification.
type EventKind uint8

const (
	// EventEntered opens a span on a task.
	EventEntered EventKind = iota
	// EventActive reports that a span started executing.
	EventActive
	// EventIdle reports that a span stopped executing but is still open.
	EventIdle
	// EventClosed reports that a span will never execute again.
	EventClosed
)

// String returns the event kind's name.
func (k EventKind) String() string {
	switch k {
	case EventEntered:
		return "entered"
	case EventActive:
		return "active"
	case EventIdle:
		return "idle"
	case EventClosed:
		return "closed"
	default:
		return fmt.Sprintf("EventKind(%d)", uint8(k))
	}
}

// Event is one lifecycle notification from an instrumentation framework.
//
//nolint:govet // Field order optimized for readability
type Event struct {
	Kind   EventKind
	Task   *Task
	Span   SpanID
	Name   string
	Fields []Field
	Thread ThreadKind
}

// Apply feeds a lifecycle notification into the registry. For EventEntered
// it returns the id of the new span, otherwise ev.Span.
func (r *Registry) Apply(ev Event) (SpanID, error) {
	switch ev.Kind {
	case EventEntered:
		if ev.Task == nil {
			return 0, ErrNoTask
		}
		return r.Enter(ev.Task, ev.Name, ev.Fields...), nil
	case EventActive:
		r.ActiveBegin(ev.Span, ev.Thread)
		return ev.Span, nil
	case EventIdle:
		return ev.Span, r.ActiveEnd(ev.Span)
	case EventClosed:
		return ev.Span, r.Close(ev.Span)
	default:
		return ev.Span, fmt.Errorf("unknown event kind %d", uint8(ev.Kind))
	}
}
