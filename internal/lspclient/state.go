package lspclient

// State is the lifecycle state of a [Connection].
type State int

const (
	// StateUnstarted means the connection was constructed but never started.
	StateUnstarted State = iota

	// StateStarting means the server spawn and handshake are in progress.
	StateStarting

	// StateRunning means the transport handshake completed and protocol
	// operations are available.
	StateRunning

	// StateStopping means a graceful shutdown is in progress.
	StateStopping

	// StateStopped means the server process exited or the transport closed.
	// A stopped connection can be started again with the same configuration.
	StateStopped
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateUnstarted:
		return "unstarted"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
