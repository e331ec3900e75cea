package draw

import (
	"sync"
	"sync/atomic"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/tomz197/marquee/internal/loop/config"
)

// Theme is the pair of colors everything else is drawn against.
type Theme struct {
	Name       string
	Background colorful.Color
	Foreground colorful.Color
}

// DarkTheme returns the theme for dark terminals.
func DarkTheme() Theme {
	return Theme{
		Name:       "dark",
		Background: mustHex(config.DarkBackground),
		Foreground: mustHex(config.DarkForeground),
	}
}

// LightTheme returns the theme for light terminals.
func LightTheme() Theme {
	return Theme{
		Name:       "light",
		Background: mustHex(config.LightBackground),
		Foreground: mustHex(config.LightForeground),
	}
}

func mustHex(s string) colorful.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		panic(err)
	}
	return c
}

// ThemeProvider holds the current theme. In "auto" mode the theme follows
// the terminal background, re-detected on Refresh.
type ThemeProvider struct {
	mode   string
	isDark func() bool

	mu      sync.Mutex
	current Theme
	version atomic.Uint64
}

// NewThemeProvider creates a provider for mode "auto", "dark" or "light".
// isDark reports the terminal background and is only used in auto mode; nil
// means dark.
func NewThemeProvider(mode string, isDark func() bool) *ThemeProvider {
	if isDark == nil {
		isDark = func() bool { return true }
	}
	p := &ThemeProvider{mode: mode, isDark: isDark}
	p.current = p.detect()
	return p
}

// Theme returns the current theme.
func (p *ThemeProvider) Theme() Theme {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Version changes every time the theme does.
func (p *ThemeProvider) Version() uint64 {
	return p.version.Load()
}

// Refresh re-detects the theme and reports whether it changed.
func (p *ThemeProvider) Refresh() bool {
	next := p.detect()

	p.mu.Lock()
	defer p.mu.Unlock()
	if next == p.current {
		return false
	}
	p.current = next
	p.version.Add(1)
	return true
}

func (p *ThemeProvider) detect() Theme {
	switch p.mode {
	case "light":
		return LightTheme()
	case "dark":
		return DarkTheme()
	}
	if p.isDark() {
		return DarkTheme()
	}
	return LightTheme()
}
