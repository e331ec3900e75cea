package client

import "time"

// Phase is where a viewer session is in its lifecycle.
type Phase int

const (
	PhaseWatching Phase = iota // Normal marquee display
	PhaseInactive              // Warned about inactivity
	PhaseShutdown              // Server is shutting down
)

// State holds per-session state. Each Client has its own instance.
type State struct {
	Phase         Phase
	Running       bool
	LastInput     time.Time
	ShutdownTimer time.Duration // Countdown before auto-disconnect on shutdown
}

// NewState creates the state of a session that just attached.
func NewState(now time.Time) *State {
	return &State{
		Phase:     PhaseWatching,
		Running:   true,
		LastInput: now,
	}
}
