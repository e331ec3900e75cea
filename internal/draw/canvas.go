package draw

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
)

// Canvas is a drawing buffer with 2x vertical resolution using half-block
// characters. Every sub-pixel holds an Ink. Scales from logical coordinates to
// actual terminal pixels, and only re-emits cells that changed since the last
// Render.
type Canvas struct {
	termWidth      int   // Actual terminal columns
	termHeight     int   // Actual terminal rows
	subPixelHeight int   // termHeight * 2
	pixels         []Ink // Flat slice: [y * termWidth + x]

	// Text drawn over the pixels, one rune per cell; 0 means none
	glyphs   []rune
	glyphInk []Ink

	// Scaling from logical to pixel coordinates
	logicalWidth  float64 // Target/logical width
	logicalHeight float64 // Target/logical height (in sub-pixels)
	scaleX        float64 // termWidth / logicalWidth
	scaleY        float64 // (termHeight*2) / logicalHeight

	// Offset for centering the render area when terminal is larger than max resolution.
	// These are 0-based terminal offsets (columns/rows to skip).
	offsetCol int
	offsetRow int

	palette *Palette
	shown   []cell // What the terminal currently displays
	redraw  bool

	renderBuf strings.Builder // Buffer for batching render output
	numBuf    [20]byte
}

// cell is one terminal character with its colors.
type cell struct {
	ch     rune
	fg, bg Ink
}

// NewCanvas creates a canvas for the given terminal dimensions.
// The canvas has 2x vertical resolution (height*2 sub-pixels).
// No scaling is applied (1:1 mapping).
func NewCanvas(width, height int, palette *Palette) *Canvas {
	return NewScaledCanvas(width, height, float64(width), float64(height*2), palette)
}

// NewScaledCanvas creates a canvas that scales from logical coordinates to terminal pixels.
// logicalWidth/Height define the coordinate space used by the simulation.
// termWidth/Height are the actual terminal dimensions.
func NewScaledCanvas(termWidth, termHeight int, logicalWidth, logicalHeight float64, palette *Palette) *Canvas {
	c := &Canvas{
		logicalWidth:  logicalWidth,
		logicalHeight: logicalHeight,
		palette:       palette,
	}
	c.allocate(termWidth, termHeight)
	return c
}

func (c *Canvas) allocate(termWidth, termHeight int) {
	termWidth = max(termWidth, 0)
	termHeight = max(termHeight, 0)
	c.termWidth = termWidth
	c.termHeight = termHeight
	c.subPixelHeight = termHeight * 2
	c.pixels = make([]Ink, c.subPixelHeight*termWidth)
	c.glyphs = make([]rune, termHeight*termWidth)
	c.glyphInk = make([]Ink, termHeight*termWidth)
	c.shown = make([]cell, termHeight*termWidth)
	c.scaleX = float64(termWidth) / c.logicalWidth
	c.scaleY = float64(c.subPixelHeight) / c.logicalHeight
	c.redraw = true
}

// Resize updates the canvas for new terminal dimensions while keeping logical size.
func (c *Canvas) Resize(termWidth, termHeight int) {
	if termWidth != c.termWidth || termHeight != c.termHeight {
		c.allocate(termWidth, termHeight)
	}
}

// SetPalette switches palettes, e.g. after a theme change. The next Render
// repaints every cell.
func (c *Canvas) SetPalette(p *Palette) {
	c.palette = p
	c.redraw = true
}

// Palette returns the palette inks are resolved against.
func (c *Canvas) Palette() *Palette {
	return c.palette
}

// ForceRedraw makes the next Render emit every cell, not just changed ones.
// Call it after anything else has written over the canvas area.
func (c *Canvas) ForceRedraw() {
	c.redraw = true
}

// SetOffset sets the column and row offset for centering the canvas.
// Offsets are 0-based terminal positions: the canvas starts at (offsetCol+1, offsetRow+1).
func (c *Canvas) SetOffset(col, row int) {
	if col != c.offsetCol || row != c.offsetRow {
		c.redraw = true
	}
	c.offsetCol = col
	c.offsetRow = row
}

// OffsetRow returns the row offset used for centering.
func (c *Canvas) OffsetRow() int {
	return c.offsetRow
}

// Clear resets all pixels and text to the background.
func (c *Canvas) Clear() {
	clear(c.pixels)
	clear(c.glyphs)
}

// setPixel sets a pixel at actual terminal coordinates (no scaling).
func (c *Canvas) setPixel(x, y int, ink Ink) {
	if x >= 0 && x < c.termWidth && y >= 0 && y < c.subPixelHeight {
		c.pixels[y*c.termWidth+x] = ink
	}
}

// Pixel returns the ink at actual sub-pixel coordinates.
func (c *Canvas) Pixel(x, y int) Ink {
	if x >= 0 && x < c.termWidth && y >= 0 && y < c.subPixelHeight {
		return c.pixels[y*c.termWidth+x]
	}
	return InkBackground
}

// SetFloat sets a pixel using float logical coordinates (applies scaling).
func (c *Canvas) SetFloat(x, y float64, ink Ink) {
	px := int(math.Floor(x * c.scaleX))
	py := int(math.Floor(y * c.scaleY))
	c.setPixel(px, py, ink)
}

// FillCircle fills a disc given in logical coordinates. A pixel is inked when
// its center lies inside the disc, so tiny discs still cover one pixel.
func (c *Canvas) FillCircle(x, y, r float64, ink Ink) {
	if r <= 0 || c.termWidth == 0 || c.subPixelHeight == 0 {
		return
	}

	yStart := max(int(math.Floor((y-r)*c.scaleY)), 0)
	yEnd := min(int(math.Ceil((y+r)*c.scaleY)), c.subPixelHeight-1)

	filled := false
	for py := yStart; py <= yEnd; py++ {
		ly := (float64(py) + 0.5) / c.scaleY
		dy := ly - y
		if math.Abs(dy) > r {
			continue
		}
		half := math.Sqrt(r*r - dy*dy)
		xStart := int(math.Ceil((x-half)*c.scaleX - 0.5))
		xEnd := int(math.Floor((x+half)*c.scaleX - 0.5))
		for px := xStart; px <= xEnd; px++ {
			c.setPixel(px, py, ink)
			filled = true
		}
	}

	if !filled {
		c.SetFloat(x, y, ink)
	}
}

// DrawLine draws a line on the canvas using Bresenham's algorithm.
// Coordinates are in logical space and get scaled to pixels.
func (c *Canvas) DrawLine(p1, p2 Point, ink Ink) {
	x1 := int(math.Floor(p1.X * c.scaleX))
	y1 := int(math.Floor(p1.Y * c.scaleY))
	x2 := int(math.Floor(p2.X * c.scaleX))
	y2 := int(math.Floor(p2.Y * c.scaleY))

	dx := abs(x2 - x1)
	dy := abs(y2 - y1)

	sx := 1
	if x1 > x2 {
		sx = -1
	}
	sy := 1
	if y1 > y2 {
		sy = -1
	}

	err := dx - dy

	for {
		c.setPixel(x1, y1, ink)

		if x1 == x2 && y1 == y2 {
			break
		}

		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x1 += sx
		}
		if e2 < dx {
			err += dx
			y1 += sy
		}
	}
}

// PutGlyph places a character in the cell covering logical point (x, y).
// The cell keeps the pixel color underneath as its background.
func (c *Canvas) PutGlyph(x, y float64, ch rune, ink Ink) {
	col := int(math.Floor(x * c.scaleX))
	row := int(math.Floor(y*c.scaleY)) / 2
	if col < 0 || col >= c.termWidth || row < 0 || row >= c.termHeight || y < 0 {
		return
	}
	if ch == 0 || !printable(ch) {
		ch = '?'
	}
	i := row*c.termWidth + col
	c.glyphs[i] = ch
	c.glyphInk[i] = ink
}

// printable reports whether ch occupies exactly one terminal column.
func printable(ch rune) bool {
	return runewidth.RuneWidth(ch) == 1
}

// cellAt computes what the terminal should show at (col, row).
func (c *Canvas) cellAt(col, row int) cell {
	top := c.pixels[row*2*c.termWidth+col]
	bottom := c.pixels[(row*2+1)*c.termWidth+col]

	if ch := c.glyphs[row*c.termWidth+col]; ch != 0 {
		bg := top
		if bg == InkBackground {
			bg = bottom
		}
		return cell{ch: ch, fg: c.glyphInk[row*c.termWidth+col], bg: bg}
	}

	if !c.palette.Colored() {
		switch {
		case top != InkBackground && bottom != InkBackground:
			return cell{ch: BlockFull}
		case top != InkBackground:
			return cell{ch: BlockUpperHalf}
		case bottom != InkBackground:
			return cell{ch: BlockLowerHalf}
		default:
			return cell{ch: BlockEmpty}
		}
	}

	if top == InkBackground && bottom == InkBackground {
		return cell{ch: BlockEmpty, fg: InkForeground, bg: InkBackground}
	}
	return cell{ch: BlockUpperHalf, fg: top, bg: bottom}
}

// Render writes every cell that differs from what was last rendered. The
// terminal is left with its default colors.
func (c *Canvas) Render(w io.Writer) error {
	c.renderBuf.Reset()

	redraw := c.redraw
	c.redraw = false

	nextCol, nextRow := -1, -1
	var sgr cell
	sgrSet := false

	for row := 0; row < c.termHeight; row++ {
		for col := 0; col < c.termWidth; col++ {
			i := row*c.termWidth + col
			want := c.cellAt(col, row)
			if !redraw && c.shown[i] == want {
				continue
			}
			c.shown[i] = want

			if col != nextCol || row != nextRow {
				c.moveCursor(col+1+c.offsetCol, row+1+c.offsetRow)
			}
			if !sgrSet || sgr.fg != want.fg || sgr.bg != want.bg {
				c.palette.writeSGR(&c.renderBuf, want.fg, want.bg)
				sgr = want
				sgrSet = true
			}
			c.renderBuf.WriteRune(want.ch)
			nextCol, nextRow = col+1, row
		}
	}

	if c.renderBuf.Len() == 0 {
		return nil
	}
	if c.palette.Colored() {
		c.renderBuf.WriteString("\033[0m")
	}

	_, err := io.WriteString(w, c.renderBuf.String())
	return err
}

func (c *Canvas) moveCursor(col, row int) {
	c.renderBuf.WriteString("\033[")
	c.renderBuf.Write(strconv.AppendInt(c.numBuf[:0], int64(row), 10))
	c.renderBuf.WriteByte(';')
	c.renderBuf.Write(strconv.AppendInt(c.numBuf[:0], int64(col), 10))
	c.renderBuf.WriteByte('H')
}

// RenderBorder draws a box border around the canvas area when the terminal
// exceeds the max render resolution on either axis.
// Draws horizontal borders when there is vertical offset, vertical borders
// when there is horizontal offset, and corners when both are present.
func (c *Canvas) RenderBorder(w io.Writer) {
	hasH := c.offsetCol >= 1 // Room for left/right vertical bars
	hasV := c.offsetRow >= 1 // Room for top/bottom horizontal bars

	// Border positions (1-based terminal coordinates)
	left := c.offsetCol
	right := c.offsetCol + c.termWidth + 1
	top := c.offsetRow
	bottom := c.offsetRow + c.termHeight + 1

	var buf strings.Builder
	buf.Grow((c.termWidth+2)*2 + c.termHeight*2*12)

	if hasV {
		if hasH {
			fmt.Fprintf(&buf, "\033[%d;%dH┌%s┐", top, left, strings.Repeat("─", c.termWidth))
			fmt.Fprintf(&buf, "\033[%d;%dH└%s┘", bottom, left, strings.Repeat("─", c.termWidth))
		} else {
			fmt.Fprintf(&buf, "\033[%d;%dH%s", top, c.offsetCol+1, strings.Repeat("─", c.termWidth))
			fmt.Fprintf(&buf, "\033[%d;%dH%s", bottom, c.offsetCol+1, strings.Repeat("─", c.termWidth))
		}
	}

	if hasH {
		startRow := top + 1
		endRow := bottom
		if !hasV {
			// No horizontal borders, side bars span full canvas height
			startRow = c.offsetRow + 1
			endRow = c.offsetRow + c.termHeight + 1
		}
		for row := startRow; row < endRow; row++ {
			fmt.Fprintf(&buf, "\033[%d;%dH│\033[%d;%dH│", row, left, row, right)
		}
	}

	io.WriteString(w, buf.String())
}

// TerminalWidth returns the actual terminal column count.
func (c *Canvas) TerminalWidth() int {
	return c.termWidth
}

// TerminalHeight returns the actual terminal row count.
func (c *Canvas) TerminalHeight() int {
	return c.termHeight
}

// LogicalToTerminal converts logical coordinates to 1-based terminal position (col, row).
func (c *Canvas) LogicalToTerminal(x, y float64) (col, row int) {
	px := int(math.Floor(x * c.scaleX))
	py := int(math.Floor(y * c.scaleY))
	return px + 1, py/2 + 1
}
