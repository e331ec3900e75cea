package client

import (
	"fmt"
	"time"
)

// notice returns the text shown over the marquee for the current phase.
func (c *Client) notice(now time.Time) []string {
	switch c.state.Phase {
	case PhaseShutdown:
		return []string{
			"SERVER SHUTTING DOWN",
			"",
			fmt.Sprintf("Disconnecting in %2d seconds", int(c.state.ShutdownTimer.Seconds()+0.999)),
		}
	case PhaseInactive:
		left := c.disconnectAfter - now.Sub(c.state.LastInput)
		return []string{
			"INACTIVITY WARNING",
			"",
			fmt.Sprintf("You will be disconnected in %3d seconds.", max(int(left.Seconds()), 0)),
			"Press any key to keep watching",
		}
	default:
		return nil
	}
}
