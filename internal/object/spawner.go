package object

import (
	"math"
	"math/bits"
	"time"

	"golang.org/x/time/rate"
)

// tokenEpsilon absorbs float error in the limiter's token sums. Budgets are
// multiples of 1e-9 tokens, so anything smaller is rounding noise.
const tokenEpsilon = 1e-10

// Throttler is a per-side spawn budget. It is a token bucket refilled by
// simulated time instead of wall time, so a paused or hidden marquee does
// not bank tokens while frames are not being produced.
//
// The limiter runs on a virtual clock where one step lasts one second and
// refills perStep tokens per second. Whole steps then convert to whole
// tokens exactly.
type Throttler struct {
	limiter *rate.Limiter
	step    time.Duration
	elapsed time.Duration // Simulated time replenished so far
	epoch   time.Time
}

// NewThrottler creates an empty budget that refills perStep tokens every
// step and holds at most burst tokens.
func NewThrottler(perStep int, step time.Duration, burst int) *Throttler {
	if perStep < 1 {
		perStep = 1
	}
	if step <= 0 {
		step = time.Second
	}
	if burst < perStep {
		burst = perStep
	}

	epoch := time.Unix(0, 0)
	limiter := rate.NewLimiter(rate.Limit(perStep), burst)
	limiter.AllowN(epoch, burst)

	return &Throttler{limiter: limiter, step: step, epoch: epoch}
}

// Replenish advances the budget's clock by delta.
func (t *Throttler) Replenish(delta time.Duration) {
	if delta > 0 {
		t.elapsed += delta
	}
}

// now maps elapsed simulated time onto the virtual clock, rounding down so
// the budget never runs ahead of perStep per step.
func (t *Throttler) now() time.Time {
	hi, lo := bits.Mul64(uint64(t.elapsed), uint64(time.Second))
	virtual, _ := bits.Div64(hi, lo, uint64(t.step))
	return t.epoch.Add(time.Duration(virtual))
}

// Budget returns the fractional token count.
func (t *Throttler) Budget() float64 {
	return max(t.limiter.TokensAt(t.now()), 0)
}

// Available returns how many whole spawns the budget currently allows.
func (t *Throttler) Available() int {
	return int(math.Floor(t.Budget() + tokenEpsilon))
}

// Take consumes up to n tokens and returns how many were taken.
func (t *Throttler) Take(n int) int {
	n = min(n, t.Available())
	if n <= 0 {
		return 0
	}
	now := t.now()
	if !t.limiter.AllowN(now, n) {
		// Budget was short by less than tokenEpsilon
		t.limiter.AllowN(now, n-1)
		return n - 1
	}
	return n
}

// Admit takes as many tokens as there are queued characters and the budget
// allows. It is Take with the queue depth as the request.
func (t *Throttler) Admit(queued int) int {
	return t.Take(queued)
}
