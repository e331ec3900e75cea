package object

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomz197/marquee/internal/physics"
)

const testRadius = 3.0

func newTestLifecycle(maxBodies int) (*physics.World, *Lifecycle) {
	world := physics.NewWorld(physics.WorldOptions{
		Width:      160,
		Height:     90,
		Material:   physics.Material{Restitution: 0.5, Friction: 0.3, Density: 0.003},
		Iterations: 2,
		MaxRadius:  testRadius,
	})
	return world, NewLifecycle(world, NewScreen(160, 90), testRadius, maxBodies)
}

func TestLifecycle_InsertKeepsGlyph(t *testing.T) {
	world, l := newTestLifecycle(10)

	id, reason := l.Insert(10, 10, 0, 0, Glyph{Char: '7', Color: 4})
	assert.Equal(t, EvictNone, reason)
	assert.Equal(t, 1, l.Len())
	assert.Equal(t, 1, world.Len())

	g, ok := l.Glyph(id)
	require.True(t, ok)
	assert.Equal(t, Glyph{Char: '7', Color: 4}, g)
}

func TestLifecycle_NeverExceedsMax(t *testing.T) {
	world, l := newTestLifecycle(5)

	for i := range 50 {
		l.Insert(float64(10+i), 40, 0, 0, Glyph{Char: 'a'})
		require.LessOrEqual(t, l.Len(), 5)
		require.Equal(t, l.Len(), world.Len())
	}
	assert.Equal(t, 5, l.Len())
}

func TestLifecycle_EvictPrefersOffscreen(t *testing.T) {
	_, l := newTestLifecycle(3)

	oldest, _ := l.Insert(10, 10, 0, 0, Glyph{Char: 'a'})
	hidden, _ := l.Insert(-50, 10, 0, 0, Glyph{Char: 'b'})
	visible, _ := l.Insert(100, 10, 0, 0, Glyph{Char: 'c'})

	_, reason := l.Insert(50, 50, 0, 0, Glyph{Char: 'd'})
	assert.Equal(t, EvictOffscreen, reason)

	_, ok := l.Glyph(hidden)
	assert.False(t, ok, "off-screen body is evicted")
	_, ok = l.Glyph(oldest)
	assert.True(t, ok, "oldest visible body survives")
	_, ok = l.Glyph(visible)
	assert.True(t, ok)
}

func TestLifecycle_EvictFallsBackToOldest(t *testing.T) {
	_, l := newTestLifecycle(2)

	first, _ := l.Insert(10, 10, 0, 0, Glyph{Char: 'a'})
	second, _ := l.Insert(20, 10, 0, 0, Glyph{Char: 'b'})

	third, reason := l.Insert(30, 10, 0, 0, Glyph{Char: 'c'})
	assert.Equal(t, EvictOldest, reason)

	assert.Equal(t, []physics.BodyID{second, third}, l.IDs())
	_, ok := l.Glyph(first)
	assert.False(t, ok)
}

func TestLifecycle_BodyJustPastEdgeIsVisible(t *testing.T) {
	_, l := newTestLifecycle(2)

	// Partially visible: center within one radius of the edge
	first, _ := l.Insert(-testRadius+0.5, 10, 0, 0, Glyph{Char: 'a'})
	l.Insert(20, 10, 0, 0, Glyph{Char: 'b'})

	_, reason := l.Insert(30, 10, 0, 0, Glyph{Char: 'c'})
	assert.Equal(t, EvictOldest, reason)
	_, ok := l.Glyph(first)
	assert.False(t, ok)
}

func TestLifecycle_EvictEmpty(t *testing.T) {
	_, l := newTestLifecycle(2)
	assert.Equal(t, EvictNone, l.Evict())
}

func TestLifecycle_Cull(t *testing.T) {
	tests := []struct {
		name   string
		x, y   float64
		culled bool
	}{
		{"inside", 80, 45, false},
		{"launch position left", -testRadius, 36, false},
		{"launch position right", 160 + testRadius, 36, false},
		{"above the top", 80, -200, false},
		{"bottom within margin", 80, 90 + 2*testRadius, false},
		{"below the bottom", 80, 90 + 2*testRadius + 0.01, true},
		{"past the left", -2*testRadius - 0.01, 45, true},
		{"past the right", 160 + 2*testRadius + 0.01, 45, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			world, l := newTestLifecycle(10)
			keep, _ := l.Insert(80, 45, 0, 0, Glyph{Char: 'k'})
			id, _ := l.Insert(tt.x, tt.y, 0, 0, Glyph{Char: 'x'})

			removed := l.Cull()

			_, alive := l.Glyph(id)
			assert.Equal(t, !tt.culled, alive)
			_, inWorld := world.Body(id)
			assert.Equal(t, !tt.culled, inWorld)
			if tt.culled {
				assert.Equal(t, 1, removed)
			} else {
				assert.Zero(t, removed)
			}

			_, ok := l.Glyph(keep)
			assert.True(t, ok)
		})
	}
}

func TestLifecycle_CullPreservesOrder(t *testing.T) {
	_, l := newTestLifecycle(10)

	a, _ := l.Insert(10, 10, 0, 0, Glyph{})
	l.Insert(10, 500, 0, 0, Glyph{})
	c, _ := l.Insert(20, 10, 0, 0, Glyph{})
	l.Insert(-100, 10, 0, 0, Glyph{})
	e, _ := l.Insert(30, 10, 0, 0, Glyph{})

	assert.Equal(t, 2, l.Cull())
	assert.Equal(t, []physics.BodyID{a, c, e}, l.IDs())

	var seen []physics.BodyID
	l.Each(func(b *physics.Body, _ Glyph) {
		seen = append(seen, b.ID)
	})
	assert.Equal(t, l.IDs(), seen)
}
