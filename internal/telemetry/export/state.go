package export

// State is the lifecycle phase of an Exporter.
type State int

const (
	StateIdle State = iota
	StateAccumulating
	StateFlushing
	StateDraining
	StateClosed
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAccumulating:
		return "accumulating"
	case StateFlushing:
		return "flushing"
	case StateDraining:
		return "draining"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// DropReason says why a record was discarded before export.
type DropReason string

const (
	DropQueueFull DropReason = "queue_full"
	DropClosed    DropReason = "closed"
)
