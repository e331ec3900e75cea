package loop

import (
	"fmt"
	"io"
	"math"
	"slices"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/termenv"

	"github.com/tomz197/marquee/internal/draw"
	"github.com/tomz197/marquee/internal/feed"
	"github.com/tomz197/marquee/internal/loop/config"
	"github.com/tomz197/marquee/internal/object"
)

// RendererOptions configures a Renderer.
type RendererOptions struct {
	Profile  termenv.Profile
	Theme    draw.Theme
	Colors   []string // Body palette as "#rrggbb"; defaults to config.Palette
	View     object.Screen
	TermSize draw.TermSizeFunc
}

// Renderer draws snapshots onto one terminal: the bodies on a scaled canvas,
// a border when the terminal is larger than the render area, and a status
// line on the bottom row.
type Renderer struct {
	w        io.Writer
	out      *draw.ChunkWriter
	canvas   *draw.Canvas
	status   *draw.StatusLine
	profile  termenv.Profile
	theme    draw.Theme
	bodies   []colorful.Color
	termSize draw.TermSizeFunc

	termWidth  int
	termHeight int
	lastStatus string
	notice     []string
}

// NewRenderer sizes a canvas for the current terminal.
func NewRenderer(w io.Writer, opts RendererOptions) (*Renderer, error) {
	hexes := opts.Colors
	if len(hexes) == 0 {
		hexes = config.Palette
	}
	bodies, err := draw.ParseColors(hexes)
	if err != nil {
		return nil, fmt.Errorf("parse palette: %w", err)
	}
	if opts.View.Width <= 0 || opts.View.Height <= 0 {
		opts.View = object.NewScreen(config.ViewWidth, config.ViewHeight)
	}
	if opts.TermSize == nil {
		opts.TermSize = draw.DefaultTermSizeFunc
	}

	termWidth, termHeight, err := draw.TerminalSizeRawWith(opts.TermSize)
	if err != nil {
		return nil, fmt.Errorf("get terminal size: %w", err)
	}
	renderWidth, renderHeight, offsetCol, offsetRow := fitTerm(termWidth, termHeight)

	palette := draw.NewPalette(opts.Profile, opts.Theme, bodies)
	canvas := draw.NewScaledCanvas(renderWidth, renderHeight, opts.View.Width, opts.View.Height, palette)
	canvas.SetOffset(offsetCol, offsetRow)

	return &Renderer{
		w:          w,
		out:        draw.NewChunkWriter(w, offsetCol, offsetRow),
		canvas:     canvas,
		status:     draw.NewStatusLine(w, opts.Profile, opts.Theme),
		profile:    opts.Profile,
		theme:      opts.Theme,
		bodies:     bodies,
		termSize:   opts.TermSize,
		termWidth:  termWidth,
		termHeight: termHeight,
	}, nil
}

// fitTerm keeps the bottom row for the status line, clamps the rest to the
// max render resolution and centers it.
func fitTerm(termWidth, termHeight int) (renderWidth, renderHeight, offsetCol, offsetRow int) {
	rows := max(termHeight-1, 1)
	renderWidth = min(max(termWidth, 1), config.MaxTermWidth)
	renderHeight = min(rows, config.MaxTermHeight)
	offsetCol = (termWidth - renderWidth) / 2
	offsetRow = (rows - renderHeight) / 2
	return
}

// Canvas exposes the underlying canvas.
func (r *Renderer) Canvas() *draw.Canvas {
	return r.canvas
}

// Theme returns the theme currently drawn with.
func (r *Renderer) Theme() draw.Theme {
	return r.theme
}

// SetTheme rebuilds the palette and status styles and repaints everything.
func (r *Renderer) SetTheme(theme draw.Theme) {
	if theme == r.theme {
		return
	}
	r.theme = theme
	r.canvas.SetPalette(draw.NewPalette(r.profile, theme, r.bodies))
	r.status = draw.NewStatusLine(r.w, r.profile, theme)
	r.Invalidate()
}

// SetNotice shows lines of text centered over the canvas; nil removes them.
// Lines that keep their width update in place.
func (r *Renderer) SetNotice(lines ...string) {
	if slices.Equal(lines, r.notice) {
		return
	}
	repaint := len(lines) != len(r.notice)
	r.notice = lines
	if repaint {
		r.Invalidate()
	}
}

// Invalidate clears the terminal on the next Draw and repaints every cell.
func (r *Renderer) Invalidate() {
	draw.ClearScreen(r.out)
	r.canvas.ForceRedraw()
	r.lastStatus = ""
}

// Resize polls the terminal size and adapts the canvas. It reports whether
// the layout changed.
func (r *Renderer) Resize() bool {
	termWidth, termHeight, err := draw.TerminalSizeRawWith(r.termSize)
	if err != nil || (termWidth == r.termWidth && termHeight == r.termHeight) {
		return false
	}
	r.termWidth, r.termHeight = termWidth, termHeight

	renderWidth, renderHeight, offsetCol, offsetRow := fitTerm(termWidth, termHeight)
	r.canvas.Resize(renderWidth, renderHeight)
	r.canvas.SetOffset(offsetCol, offsetRow)
	r.out.SetOffset(offsetCol, offsetRow)
	r.Invalidate()
	return true
}

// Draw renders snap and flushes the changed cells to the terminal.
func (r *Renderer) Draw(snap *Snapshot) error {
	c := r.canvas
	palette := c.Palette()
	c.Clear()

	for _, s := range snap.Sprites {
		c.FillCircle(s.X, s.Y, snap.Radius, palette.BodyInk(s.Color))

		// Spin marker from the center to the rim
		rim := draw.Point{
			X: s.X + math.Cos(s.Angle)*(snap.Radius-0.5),
			Y: s.Y + math.Sin(s.Angle)*(snap.Radius-0.5),
		}
		c.DrawLine(draw.Point{X: s.X, Y: s.Y}, rim, palette.MarkerInk(s.Color))
	}
	for _, s := range snap.Sprites {
		c.PutGlyph(s.X, s.Y, s.Char, draw.InkForeground)
	}

	if err := c.Render(r.out); err != nil {
		return err
	}
	c.RenderBorder(r.out)
	r.drawNotice()
	r.drawStatus(snap.Feeds)

	return r.out.Flush()
}

func (r *Renderer) drawNotice() {
	if len(r.notice) == 0 {
		return
	}
	centerX := r.canvas.TerminalWidth() / 2
	centerY := r.canvas.TerminalHeight()/2 - len(r.notice)/2
	for i, line := range r.notice {
		r.out.WriteAt(centerX-runewidth.StringWidth(line)/2+1, centerY+i+1, line)
	}
}

// drawStatus writes the status line on the terminal's last row, only when
// its text changed.
func (r *Renderer) drawStatus(feeds []feed.Status) {
	if r.termHeight < 2 || len(feeds) == 0 {
		return
	}

	indicators := make([]draw.FeedIndicator, len(feeds))
	for i, f := range feeds {
		indicators[i] = draw.FeedIndicator{Name: f.Feed, Label: f.Label, Connected: f.Connected()}
	}
	line := r.status.Render(r.canvas.TerminalWidth(), indicators)
	if line == r.lastStatus {
		return
	}
	r.lastStatus = line

	r.out.WriteAt(1, r.termHeight-r.canvas.OffsetRow(), line)
	draw.ResetStyle(r.out)
}

// Close restores the terminal's colors and clears it.
func (r *Renderer) Close() error {
	draw.ResetStyle(r.out)
	draw.ClearScreen(r.out)
	return r.out.Flush()
}
