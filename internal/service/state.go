package service

// State is the collection lifecycle: Stopped, Starting, Active, Stopping
// and back to Stopped.
type State int32

const (
	StateStopped State = iota
	StateStarting
	StateActive
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateActive:
		return "active"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}
