package draw

import (
	"fmt"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/muesli/termenv"
)

// Ink indexes a Palette color. Body colors start after the two theme inks,
// each followed by a darker marker shade.
type Ink uint8

const (
	InkBackground Ink = iota
	InkForeground
	inkBodyBase
)

// markerBlend is how far a marker shade is pulled toward the background.
const markerBlend = 0.45

// Palette maps inks to the escape sequences of one terminal color profile.
type Palette struct {
	profile termenv.Profile
	colors  []colorful.Color
	fg      []string // SGR parameters by Ink
	bg      []string
	bodies  int
}

// NewPalette builds a palette for profile from the theme and body colors.
func NewPalette(profile termenv.Profile, theme Theme, bodies []colorful.Color) *Palette {
	bodies = bodies[:min(len(bodies), 100)]
	p := &Palette{
		profile: profile,
		colors:  make([]colorful.Color, 0, int(inkBodyBase)+2*len(bodies)),
		bodies:  len(bodies),
	}

	p.colors = append(p.colors, theme.Background, theme.Foreground)
	for _, c := range bodies {
		p.colors = append(p.colors, c, c.BlendLab(theme.Background, markerBlend).Clamped())
	}

	p.fg = make([]string, len(p.colors))
	p.bg = make([]string, len(p.colors))
	for i, c := range p.colors {
		tc := profile.FromColor(c)
		p.fg[i] = tc.Sequence(false)
		p.bg[i] = tc.Sequence(true)
	}
	return p
}

// ParseColors parses "#rrggbb" strings.
func ParseColors(hexes []string) ([]colorful.Color, error) {
	out := make([]colorful.Color, 0, len(hexes))
	for _, h := range hexes {
		c, err := colorful.Hex(h)
		if err != nil {
			return nil, fmt.Errorf("invalid color %q: %w", h, err)
		}
		out = append(out, c)
	}
	return out, nil
}

// Profile returns the color profile the palette was built for.
func (p *Palette) Profile() termenv.Profile {
	return p.profile
}

// Colored reports whether the profile can show color at all.
func (p *Palette) Colored() bool {
	return p.profile != termenv.Ascii
}

// Bodies returns the number of body colors.
func (p *Palette) Bodies() int {
	return p.bodies
}

// BodyInk returns the ink of body color i.
func (p *Palette) BodyInk(i int) Ink {
	if p.bodies == 0 {
		return InkForeground
	}
	return inkBodyBase + Ink(2*(i%p.bodies))
}

// MarkerInk returns the darker shade of body color i.
func (p *Palette) MarkerInk(i int) Ink {
	if p.bodies == 0 {
		return InkForeground
	}
	return p.BodyInk(i) + 1
}

// Color returns the color of an ink.
func (p *Palette) Color(ink Ink) colorful.Color {
	if int(ink) >= len(p.colors) {
		return p.colors[InkForeground]
	}
	return p.colors[ink]
}

// writeSGR appends the sequence selecting fg on bg. Nothing is written for
// colorless profiles.
func (p *Palette) writeSGR(b *strings.Builder, fg, bg Ink) {
	if !p.Colored() {
		return
	}
	b.WriteString("\033[")
	b.WriteString(p.fg[p.clamp(fg)])
	b.WriteByte(';')
	b.WriteString(p.bg[p.clamp(bg)])
	b.WriteByte('m')
}

func (p *Palette) clamp(ink Ink) Ink {
	if int(ink) >= len(p.colors) {
		return InkForeground
	}
	return ink
}
