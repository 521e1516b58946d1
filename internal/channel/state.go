package channel

// State is the lifecycle state of one logical connection.
type State int

const (
	// StateClosed: not connected and not retrying. Also reported for
	// handles the manager no longer knows.
	StateClosed State = iota
	// StateConnecting: dialing, or waiting to redial after a transport error.
	StateConnecting
	// StateOpen: handshake sent, reading messages.
	StateOpen
	// StateClosing: the owner asked to close and the close frame is in flight.
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	default:
		return "closed"
	}
}

// Live reports whether the connection is open or on its way there.
func (s State) Live() bool {
	return s == StateConnecting || s == StateOpen
}
