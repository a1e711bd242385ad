package sntp

// State defines the client state.
type State int

// Client states.
const (
	StateIdle State = iota
	StateSending
	StateAwaitingResponse
	StateDecoded
	StateTimedOut
	StateTransportError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateSending:
		return "Sending"
	case StateAwaitingResponse:
		return "AwaitingResponse"
	case StateDecoded:
		return "Decoded"
	case StateTimedOut:
		return "TimedOut"
	case StateTransportError:
		return "TransportError"
	default:
		return "Unknown"
	}
}
