package physics

import "time"

// Accumulate adds a frame delta to the carried accumulator and splits the
// total into whole fixed steps plus the remainder for the next frame.
// The remainder is always in [0, step).
func Accumulate(acc, delta, step time.Duration) (steps int, rest time.Duration) {
	total := acc + delta
	if total < 0 {
		total = 0
	}
	if step <= 0 {
		return 0, total
	}
	steps = int(total / step)
	rest = total - time.Duration(steps)*step
	return steps, rest
}

// ClampDelta bounds a frame delta to [0, limit].
func ClampDelta(delta, limit time.Duration) time.Duration {
	if delta < 0 {
		return 0
	}
	if delta > limit {
		return limit
	}
	return delta
}
