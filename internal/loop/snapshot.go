package loop

import (
	"github.com/tomz197/marquee/internal/feed"
	"github.com/tomz197/marquee/internal/object"
)

// Sprite is one body as it should be drawn.
type Sprite struct {
	X, Y  float64
	Angle float64
	Char  rune
	Color int // Palette index
}

// Snapshot is an immutable copy of the simulation for rendering. It is safe
// to share between goroutines once published.
type Snapshot struct {
	View    object.Screen
	Radius  float64
	Sprites []Sprite
	Steps   uint64        // Physics steps taken so far
	Feeds   []feed.Status // Connection status per side, in spawn order
}

// EmptySnapshot returns a snapshot with no bodies covering view.
func EmptySnapshot(view object.Screen, radius float64) *Snapshot {
	return &Snapshot{View: view, Radius: radius}
}
