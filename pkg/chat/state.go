package chat

// State is where a sent message is in its lifecycle:
//
//	Idle -> Sending -> (StreamingText)* -> Completed | Failed
//
// Completed and Failed are terminal.
type State int

const (
	StateIdle State = iota
	StateSending
	StateStreamingText
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateStreamingText:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is allowed.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// CanTransition reports whether s may move to next.
func (s State) CanTransition(next State) bool {
	switch s {
	case StateIdle:
		return next == StateSending
	case StateSending, StateStreamingText:
		return next == StateStreamingText || next == StateCompleted || next == StateFailed
	default:
		return false
	}
}
