package object

import "github.com/tomz197/marquee/internal/physics"

// EvictReason says why a body was dropped to make room.
type EvictReason int

const (
	EvictNone      EvictReason = iota
	EvictOffscreen             // An already invisible body was dropped
	EvictOldest                // Nothing was off-screen; the oldest body was dropped
)

func (r EvictReason) String() string {
	switch r {
	case EvictOffscreen:
		return "offscreen"
	case EvictOldest:
		return "oldest"
	default:
		return "none"
	}
}

// Lifecycle enforces the live-body cap and removes bodies that left the view.
// The physics world owns the bodies; Lifecycle only keeps their IDs in
// insertion order plus the glyph table used for drawing.
type Lifecycle struct {
	world     *physics.World
	view      Screen
	radius    float64
	maxBodies int

	order  []physics.BodyID // Oldest first
	glyphs map[physics.BodyID]Glyph
}

// NewLifecycle creates a lifecycle manager for bodies of the given radius.
func NewLifecycle(world *physics.World, view Screen, radius float64, maxBodies int) *Lifecycle {
	if maxBodies < 1 {
		maxBodies = 1
	}
	return &Lifecycle{
		world:     world,
		view:      view,
		radius:    radius,
		maxBodies: maxBodies,
		order:     make([]physics.BodyID, 0, maxBodies),
		glyphs:    make(map[physics.BodyID]Glyph, maxBodies),
	}
}

// Insert adds a body to the world, evicting one first when at capacity.
func (l *Lifecycle) Insert(x, y, vx, vy float64, g Glyph) (physics.BodyID, EvictReason) {
	reason := EvictNone
	if len(l.order) >= l.maxBodies {
		reason = l.Evict()
	}

	b := l.world.Insert(x, y, vx, vy, l.radius)
	l.order = append(l.order, b.ID)
	l.glyphs[b.ID] = g
	return b.ID, reason
}

// Evict removes one body: the oldest off-screen body if any, else the oldest.
func (l *Lifecycle) Evict() EvictReason {
	if len(l.order) == 0 {
		return EvictNone
	}

	for i, id := range l.order {
		b, ok := l.world.Body(id)
		if ok && l.view.Outside(b.X, b.Y, l.radius) {
			l.removeAt(i)
			return EvictOffscreen
		}
	}

	l.removeAt(0)
	return EvictOldest
}

// Cull removes every body below the bottom edge or past the left/right
// edges by more than two radii. Returns how many were removed.
func (l *Lifecycle) Cull() int {
	margin := 2 * l.radius
	kept := l.order[:0]
	removed := 0
	for _, id := range l.order {
		b, ok := l.world.Body(id)
		if ok && b.Y <= l.view.Height+margin && b.X <= l.view.Width+margin && b.X >= -margin {
			kept = append(kept, id)
			continue
		}
		l.world.Remove(id)
		delete(l.glyphs, id)
		removed++
	}
	clear(l.order[len(kept):])
	l.order = kept
	return removed
}

// Len returns the number of live bodies.
func (l *Lifecycle) Len() int {
	return len(l.order)
}

// Glyph returns the presentation attributes of a live body.
func (l *Lifecycle) Glyph(id physics.BodyID) (Glyph, bool) {
	g, ok := l.glyphs[id]
	return g, ok
}

// IDs returns the live body IDs oldest first. The slice is only valid until
// the next mutation.
func (l *Lifecycle) IDs() []physics.BodyID {
	return l.order
}

// Each calls fn for every live body in insertion order.
func (l *Lifecycle) Each(fn func(b *physics.Body, g Glyph)) {
	for _, id := range l.order {
		if b, ok := l.world.Body(id); ok {
			fn(b, l.glyphs[id])
		}
	}
}

func (l *Lifecycle) removeAt(i int) {
	id := l.order[i]
	l.world.Remove(id)
	delete(l.glyphs, id)
	l.order = append(l.order[:i], l.order[i+1:]...)
}
