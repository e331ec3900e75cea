// Package object manages the marquee's character bodies: their launch,
// their presentation attributes, admission throttling and removal.
package object

import "fmt"

// Screen represents the visible region in logical units.
type Screen struct {
	Width   float64
	Height  float64
	CenterX float64
	CenterY float64
}

// NewScreen creates a Screen of the given size.
func NewScreen(width, height float64) Screen {
	return Screen{Width: width, Height: height, CenterX: width / 2, CenterY: height / 2}
}

// Outside reports whether a point lies beyond any edge by more than margin.
func (s Screen) Outside(x, y, margin float64) bool {
	return x < -margin || x > s.Width+margin || y < -margin || y > s.Height+margin
}

// Side identifies the edge a feed's bodies are launched from.
type Side int

const (
	SideLeft Side = iota
	SideRight
)

// Sides lists every side in spawn order.
var Sides = [...]Side{SideLeft, SideRight}

func (s Side) String() string {
	switch s {
	case SideLeft:
		return "left"
	case SideRight:
		return "right"
	default:
		return fmt.Sprintf("Side(%d)", int(s))
	}
}

// Glyph is the presentation of a body: what it shows and in which color.
// Color indexes the palette and is fixed for the body's lifetime.
type Glyph struct {
	Char  rune
	Color int
}
