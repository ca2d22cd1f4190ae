package types

// Status is the lifecycle state of the broker connection.
type Status int

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusConnected
)

func (s Status) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// StatusEvent describes one lifecycle transition.
type StatusEvent struct {
	Old      Status
	New      Status
	Identity string
	HandleID string
	Err      error // set when a transport failure caused the transition
}
