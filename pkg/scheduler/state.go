package scheduler

import "sync/atomic"

// State is the scheduler's position in its loop.
type State int32

const (
	StateIdle State = iota
	StateAwaitingEvent
	StateGenerating
	StateCancelling
	StateApplying
	StateStopped
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateAwaitingEvent:
		return "AwaitingEvent"
	case StateGenerating:
		return "Generating"
	case StateCancelling:
		return "Cancelling"
	case StateApplying:
		return "Applying"
	case StateStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

type stateBox struct {
	v atomic.Int32
}

func (b *stateBox) load() State {
	return State(b.v.Load())
}

func (b *stateBox) store(s State) {
	b.v.Store(int32(s))
}

func (b *stateBox) transition(from, to State) bool {
	return b.v.CompareAndSwap(int32(from), int32(to))
}
