package pilot

import "sync/atomic"

// State is the control loop lifecycle stage. States only move forward.
type State int32

const (
	Initializing State = iota
	Streaming
	ShuttingDown
	Terminated
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Initializing:
		return "initializing"
	case Streaming:
		return "streaming"
	case ShuttingDown:
		return "shutting_down"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// stateMachine holds the current state. Reads are safe from any goroutine;
// transitions are made only by the loop goroutine.
type stateMachine struct {
	cur      atomic.Int32
	onChange func(from, to State)
}

func (m *stateMachine) get() State {
	return State(m.cur.Load())
}

// advance moves to next if it is later than the current state.
// It reports whether a transition happened.
func (m *stateMachine) advance(next State) bool {
	for {
		from := m.get()
		if next <= from {
			return false
		}
		if m.cur.CompareAndSwap(int32(from), int32(next)) {
			if m.onChange != nil {
				m.onChange(from, next)
			}
			return true
		}
	}
}
