package physics

import (
	"math"
	"time"
)

// referenceHz is the step rate AirDrag is expressed against.
const referenceHz = 60.0

// Positional correction for resolving overlap without jitter.
const (
	correctionSlop    = 0.01
	correctionPercent = 0.8
)

// BodyID identifies a body for its whole lifetime. IDs are never reused.
type BodyID uint64

// Material holds the physical parameters shared by every body in a world.
type Material struct {
	Restitution float64 // Bounciness of collisions (0 = inelastic, 1 = elastic)
	Friction    float64 // Coulomb friction coefficient at contacts
	AirDrag     float64 // Fraction of velocity lost per 60 Hz step
	Density     float64 // Mass per unit area
}

// Body is a simulated disc.
type Body struct {
	ID     BodyID
	X, Y   float64 // Position (center)
	VX, VY float64 // Velocity (units/s)
	Angle  float64 // Orientation (radians)
	Spin   float64 // Angular velocity (radians/s)
	Radius float64

	invMass    float64
	invInertia float64
}

// WorldOptions configures a World.
type WorldOptions struct {
	Width, Height float64 // Visible region; the broad phase covers it plus a margin
	Gravity       float64 // Downward acceleration (units/s^2)
	Material      Material
	Iterations    int     // Collision solver passes per step
	MaxRadius     float64 // Largest body radius that will be inserted
}

// World owns all live bodies and advances them in fixed steps.
type World struct {
	gravity    float64
	material   Material
	iterations int

	bodies []*Body
	index  map[BodyID]int
	nextID BodyID
	steps  uint64

	// Reused each step to avoid allocations
	grid  *SpatialGrid
	pairs [][2]int
}

// NewWorld creates an empty world.
func NewWorld(opts WorldOptions) *World {
	iterations := opts.Iterations
	if iterations < 1 {
		iterations = 1
	}
	radius := opts.MaxRadius
	if radius <= 0 {
		radius = 1
	}
	margin := 4 * radius
	return &World{
		gravity:    opts.Gravity,
		material:   opts.Material,
		iterations: iterations,
		index:      make(map[BodyID]int),
		nextID:     1,
		grid:       NewSpatialGrid(-margin, -margin, opts.Width+margin, opts.Height+margin, 2*radius),
	}
}

// Insert adds a disc to the world and returns it. The world owns the body
// until Remove is called with its ID.
func (w *World) Insert(x, y, vx, vy, radius float64) *Body {
	mass := w.material.Density * math.Pi * radius * radius
	b := &Body{
		ID:     w.nextID,
		X:      x,
		Y:      y,
		VX:     vx,
		VY:     vy,
		Radius: radius,
	}
	if mass > 0 {
		b.invMass = 1 / mass
		b.invInertia = 1 / (0.5 * mass * radius * radius)
	}
	w.nextID++
	w.index[b.ID] = len(w.bodies)
	w.bodies = append(w.bodies, b)
	return b
}

// Remove releases a body. Returns false if the ID is not live.
func (w *World) Remove(id BodyID) bool {
	i, ok := w.index[id]
	if !ok {
		return false
	}
	last := len(w.bodies) - 1
	if i != last {
		moved := w.bodies[last]
		w.bodies[i] = moved
		w.index[moved.ID] = i
	}
	w.bodies[last] = nil
	w.bodies = w.bodies[:last]
	delete(w.index, id)
	return true
}

// Body returns the live body with the given ID.
func (w *World) Body(id BodyID) (*Body, bool) {
	i, ok := w.index[id]
	if !ok {
		return nil, false
	}
	return w.bodies[i], true
}

// Len returns the number of live bodies.
func (w *World) Len() int {
	return len(w.bodies)
}

// Steps returns how many fixed steps have been run.
func (w *World) Steps() uint64 {
	return w.steps
}

// Step advances every body by exactly dt: gravity, air drag, integration,
// then collision response.
func (w *World) Step(dt time.Duration) {
	s := dt.Seconds()
	drag := math.Pow(1-w.material.AirDrag, s*referenceHz)

	for _, b := range w.bodies {
		b.VY += w.gravity * s
		b.VX *= drag
		b.VY *= drag
		b.Spin *= drag

		b.X += b.VX * s
		b.Y += b.VY * s
		b.Angle += b.Spin * s
	}

	w.collectPairs()
	for range w.iterations {
		for _, p := range w.pairs {
			w.resolve(w.bodies[p[0]], w.bodies[p[1]])
		}
	}

	w.steps++
}

// collectPairs gathers potentially colliding body pairs via the grid.
func (w *World) collectPairs() {
	w.grid.Clear()
	for i, b := range w.bodies {
		w.grid.Insert(b.X, b.Y, i)
	}

	w.pairs = w.pairs[:0]
	for i, a := range w.bodies {
		w.grid.QueryAround(a.X, a.Y, func(j int) bool {
			if j <= i {
				return false
			}
			b := w.bodies[j]
			reach := a.Radius + b.Radius
			if DistanceSquared(a.X, a.Y, b.X, b.Y) < reach*reach {
				w.pairs = append(w.pairs, [2]int{i, j})
			}
			return false
		})
	}
}

// resolve separates two overlapping discs and applies the normal
// (restitution) and tangential (friction) impulses at the contact.
func (w *World) resolve(a, b *Body) {
	dx := b.X - a.X
	dy := b.Y - a.Y
	minDist := a.Radius + b.Radius
	d2 := dx*dx + dy*dy
	if d2 >= minDist*minDist {
		return
	}

	invSum := a.invMass + b.invMass
	if invSum == 0 {
		return
	}

	dist := math.Sqrt(d2)
	nx, ny := 1.0, 0.0
	if dist > 0 {
		nx = dx / dist
		ny = dy / dist
	}

	// Push apart proportionally to inverse mass
	overlap := minDist - dist
	corr := math.Max(overlap-correctionSlop, 0) / invSum * correctionPercent
	a.X -= nx * corr * a.invMass
	a.Y -= ny * corr * a.invMass
	b.X += nx * corr * b.invMass
	b.Y += ny * corr * b.invMass

	// Contact offsets from each center
	rax, ray := nx*a.Radius, ny*a.Radius
	rbx, rby := -nx*b.Radius, -ny*b.Radius

	// Relative velocity at the contact point (v + w x r)
	rvx := (b.VX - b.Spin*rby) - (a.VX - a.Spin*ray)
	rvy := (b.VY + b.Spin*rbx) - (a.VY + a.Spin*rax)

	vn := rvx*nx + rvy*ny
	if vn > 0 {
		return // Separating
	}

	j := -(1 + w.material.Restitution) * vn / invSum
	a.VX -= j * nx * a.invMass
	a.VY -= j * ny * a.invMass
	b.VX += j * nx * b.invMass
	b.VY += j * ny * b.invMass

	tx := rvx - vn*nx
	ty := rvy - vn*ny
	tl := math.Hypot(tx, ty)
	if tl < 1e-9 {
		return
	}
	tx /= tl
	ty /= tl

	raCt := rax*ty - ray*tx
	rbCt := rbx*ty - rby*tx
	denom := invSum + raCt*raCt*a.invInertia + rbCt*rbCt*b.invInertia

	jt := -tl / denom
	maxF := w.material.Friction * j
	if jt < -maxF {
		jt = -maxF
	} else if jt > maxF {
		jt = maxF
	}

	a.VX -= jt * tx * a.invMass
	a.VY -= jt * ty * a.invMass
	b.VX += jt * tx * b.invMass
	b.VY += jt * ty * b.invMass
	a.Spin -= raCt * jt * a.invInertia
	b.Spin += rbCt * jt * b.invInertia
}
