package feed

import "fmt"

// ConnState is the lifecycle state of one feed connection.
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
)

var stateNames = map[ConnState]string{
	StateDisconnected: "disconnected",
	StateConnecting:   "connecting",
	StateConnected:    "connected",
}

// transitions lists every permitted state change. Connecting to connecting
// and connected to connecting happen when an attempt is superseded.
var transitions = map[ConnState][]ConnState{
	StateDisconnected: {StateConnecting},
	StateConnecting:   {StateConnecting, StateConnected, StateDisconnected},
	StateConnected:    {StateConnecting, StateDisconnected},
}

func (s ConnState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("ConnState(%d)", int(s))
}

// MarshalText encodes the state by name.
func (s ConnState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// CanTransition reports whether moving from s to next is allowed.
func (s ConnState) CanTransition(next ConnState) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
