package draw

import (
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/termenv"
)

// Indicator dot colors.
const (
	statusUpColor   = "#2ecc71"
	statusDownColor = "#e74c3c"
)

// statusGap is the number of blank cells between indicators.
const statusGap = 3

// FeedIndicator is what the status line shows for one feed.
type FeedIndicator struct {
	Name      string
	Label     string
	Connected bool
}

// StatusLine renders one row of feed indicators, each a colored dot with
// the feed's label.
type StatusLine struct {
	renderer *lipgloss.Renderer
	base     lipgloss.Style
	up       lipgloss.Style
	down     lipgloss.Style
	name     lipgloss.Style
}

// NewStatusLine creates a status line styled for the given writer profile.
func NewStatusLine(w io.Writer, profile termenv.Profile, theme Theme) *StatusLine {
	r := lipgloss.NewRenderer(w, termenv.WithProfile(profile))
	r.SetHasDarkBackground(theme.Name != "light")

	base := r.NewStyle().
		Foreground(lipgloss.Color(theme.Foreground.Hex())).
		Background(lipgloss.Color(theme.Background.Hex()))

	return &StatusLine{
		renderer: r,
		base:     base,
		up:       base.Foreground(lipgloss.Color(statusUpColor)),
		down:     base.Foreground(lipgloss.Color(statusDownColor)),
		name:     base.Bold(true),
	}
}

// Render lays the indicators out on a single line exactly width cells wide.
// Each indicator gets an equal share of the row; labels that do not fit are
// cut with an ellipsis so every feed keeps its dot.
func (s *StatusLine) Render(width int, feeds []FeedIndicator) string {
	if width <= 0 {
		return ""
	}

	parts := make([]string, 0, len(feeds))
	if n := len(feeds); n > 0 {
		cell := (width - statusGap*(n-1)) / n
		for _, f := range feeds {
			parts = append(parts, s.indicator(f, cell))
		}
	}

	line := strings.Join(parts, s.base.Render(strings.Repeat(" ", statusGap)))
	return s.base.Width(width).MaxWidth(width).MaxHeight(1).Render(line)
}

// indicator renders "● name label" in at most cell cells.
func (s *StatusLine) indicator(f FeedIndicator, cell int) string {
	dot := s.down.Render("●")
	if f.Connected {
		dot = s.up.Render("●")
	}

	name := runewidth.Truncate(f.Name, max(cell-2, 0), "…")
	out := dot + s.base.Render(" ") + s.name.Render(name)

	room := cell - 2 - runewidth.StringWidth(name) - 1
	if room > 0 && f.Label != "" {
		out += s.base.Render(" " + runewidth.Truncate(f.Label, room, "…"))
	}
	return out
}
