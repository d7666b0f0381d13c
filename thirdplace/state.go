package thirdplace

// RunState describes whether the client's trigger loop is active.
type RunState int

const (
	// StateIdle means Run has not been called. Triggers poll synchronously.
	StateIdle RunState = iota

	// StateRunning means Run is active and triggers are queued for its consumer.
	StateRunning

	// StateStopped means Run has returned.
	StateStopped
)

// String returns the string representation of a RunState.
func (s RunState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Trigger identifies what asked for a poll.
type Trigger int

const (
	TriggerManual Trigger = iota
	TriggerStorage
	TriggerRequest
	TriggerTimer
)

// String returns the string representation of a Trigger.
func (t Trigger) String() string {
	switch t {
	case TriggerManual:
		return "manual"
	case TriggerStorage:
		return "storage"
	case TriggerRequest:
		return "request"
	case TriggerTimer:
		return "timer"
	default:
		return "unknown"
	}
}
