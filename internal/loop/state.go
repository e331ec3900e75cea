package loop

import (
	"math/rand/v2"
	"time"

	"github.com/tomz197/marquee/internal/feed"
	"github.com/tomz197/marquee/internal/loop/config"
	"github.com/tomz197/marquee/internal/metrics"
	"github.com/tomz197/marquee/internal/object"
	"github.com/tomz197/marquee/internal/physics"
)

// Options configures a simulation. Zero fields take the defaults from
// loop/config.
type Options struct {
	View       object.Screen
	Radius     float64
	MaxBodies  int
	PerStep    int // Spawns admitted per side per Step
	Step       time.Duration
	MaxDelta   time.Duration
	Gravity    float64
	Material   physics.Material
	Colors     int   // Palette size bodies pick their color from
	Seed       int64 // 0 picks a random seed
	Queues     [len(object.Sides)]*feed.Queue
	Iterations int
}

func (o *Options) defaults() {
	if o.View.Width <= 0 || o.View.Height <= 0 {
		o.View = object.NewScreen(config.ViewWidth, config.ViewHeight)
	}
	if o.Radius <= 0 {
		o.Radius = config.BodyRadius
	}
	if o.MaxBodies <= 0 {
		o.MaxBodies = config.MaxBodies
	}
	if o.PerStep <= 0 {
		o.PerStep = config.MaxPerStep
	}
	if o.Step <= 0 {
		o.Step = config.FixedStep
	}
	if o.MaxDelta <= 0 {
		o.MaxDelta = config.MaxFrameDelta
	}
	if o.Gravity == 0 {
		o.Gravity = config.Gravity
	}
	if o.Material == (physics.Material{}) {
		o.Material = physics.Material{
			Restitution: config.Restitution,
			Friction:    config.Friction,
			AirDrag:     config.AirDrag,
			Density:     config.Density,
		}
	}
	if o.Colors <= 0 {
		o.Colors = len(config.Palette)
	}
	if o.Iterations <= 0 {
		o.Iterations = 2
	}
	for i := range o.Queues {
		if o.Queues[i] == nil {
			o.Queues[i] = feed.NewQueue()
		}
	}
}

// FrameResult summarizes what one frame did.
type FrameResult struct {
	Delta   time.Duration // Clamped frame delta
	Steps   int
	Culled  int
	Spawned [len(object.Sides)]int
	Evicted int
}

// State is the simulation context: the physics world, the body lifecycle,
// the intake queues and their spawn budgets. It is owned by a single frame
// loop and must not be shared.
type State struct {
	opts Options

	world      *physics.World
	lifecycle  *object.Lifecycle
	throttlers [len(object.Sides)]*object.Throttler
	rng        *rand.Rand

	acc     time.Duration
	last    time.Time
	running bool // False until the first frame
}

// NewState creates an idle simulation with no bodies.
func NewState(opts Options) *State {
	opts.defaults()

	seed := uint64(opts.Seed)
	if opts.Seed == 0 {
		seed = rand.Uint64()
	}

	world := physics.NewWorld(physics.WorldOptions{
		Width:      opts.View.Width,
		Height:     opts.View.Height,
		Gravity:    opts.Gravity,
		Material:   opts.Material,
		Iterations: opts.Iterations,
		MaxRadius:  opts.Radius,
	})

	s := &State{
		opts:      opts,
		world:     world,
		lifecycle: object.NewLifecycle(world, opts.View, opts.Radius, opts.MaxBodies),
		rng:       rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
	for i := range s.throttlers {
		s.throttlers[i] = object.NewThrottler(opts.PerStep, opts.Step, config.SpawnBurstMult*opts.PerStep)
	}
	return s
}

// Frame runs one frame at wall time now. The first frame advances by one
// fixed step since there is no previous frame to measure against.
func (s *State) Frame(now time.Time) FrameResult {
	delta := s.opts.Step
	if s.running {
		delta = now.Sub(s.last)
	}
	s.running = true
	s.last = now
	return s.Advance(delta)
}

// Advance runs one frame of the given length: physics steps, culling, then
// spawning from each side's queue within its budget.
func (s *State) Advance(delta time.Duration) FrameResult {
	delta = physics.ClampDelta(delta, s.opts.MaxDelta)
	res := FrameResult{Delta: delta}

	steps, acc := physics.Accumulate(s.acc, delta, s.opts.Step)
	s.acc = acc
	for range steps {
		s.world.Step(s.opts.Step)
	}
	res.Steps = steps
	metrics.PhysicsSteps.Add(float64(steps))

	res.Culled = s.lifecycle.Cull()
	metrics.BodiesCulled.Add(float64(res.Culled))

	for _, side := range object.Sides {
		spawned, evicted := s.spawn(side, delta)
		res.Spawned[side] = spawned
		res.Evicted += evicted
	}

	metrics.BodiesLive.Set(float64(s.lifecycle.Len()))
	return res
}

func (s *State) spawn(side object.Side, delta time.Duration) (spawned, evicted int) {
	queue := s.opts.Queues[side]
	budget := s.throttlers[side]
	budget.Replenish(delta)

	chars := queue.PopN(budget.Available())
	budget.Take(len(chars))

	for _, ch := range chars {
		x, y, vx, vy := object.Launch(side, s.opts.View, s.opts.Radius, s.rng)
		glyph := object.Glyph{Char: ch, Color: object.PickColor(s.opts.Colors, s.rng)}
		if _, reason := s.lifecycle.Insert(x, y, vx, vy, glyph); reason != object.EvictNone {
			metrics.BodiesEvicted.WithLabelValues(reason.String()).Inc()
			evicted++
		}
	}

	if len(chars) > 0 {
		metrics.BodiesSpawned.WithLabelValues(side.String()).Add(float64(len(chars)))
	}
	metrics.IntakeQueueDepth.WithLabelValues(side.String()).Set(float64(queue.Len()))
	return len(chars), evicted
}

// Queue returns the intake queue for side.
func (s *State) Queue(side object.Side) *feed.Queue {
	return s.opts.Queues[side]
}

// Budget returns the spawn budget for side.
func (s *State) Budget(side object.Side) *object.Throttler {
	return s.throttlers[side]
}

// Len returns the number of live bodies.
func (s *State) Len() int {
	return s.lifecycle.Len()
}

// Accumulator returns simulated time not yet consumed by a fixed step.
func (s *State) Accumulator() time.Duration {
	return s.acc
}

// View returns the visible region.
func (s *State) View() object.Screen {
	return s.opts.View
}

// Radius returns the radius of every body.
func (s *State) Radius() float64 {
	return s.opts.Radius
}

// Snapshot copies the live bodies into an immutable Snapshot.
func (s *State) Snapshot() *Snapshot {
	snap := &Snapshot{
		View:    s.opts.View,
		Radius:  s.opts.Radius,
		Sprites: make([]Sprite, 0, s.lifecycle.Len()),
		Steps:   s.world.Steps(),
	}
	s.lifecycle.Each(func(b *physics.Body, g object.Glyph) {
		snap.Sprites = append(snap.Sprites, Sprite{
			X:     b.X,
			Y:     b.Y,
			Angle: b.Angle,
			Char:  g.Char,
			Color: g.Color,
		})
	})
	return snap
}
