package feed

import "sync/atomic"

// Visibility reports whether anyone is watching. Messages arriving while
// nothing is visible are discarded.
type Visibility interface {
	Visible() bool
}

// VisibilityFunc adapts a function to Visibility.
type VisibilityFunc func() bool

func (f VisibilityFunc) Visible() bool { return f() }

// AlwaysVisible never gates ingestion.
var AlwaysVisible Visibility = VisibilityFunc(func() bool { return true })

// Toggle is a settable visibility flag, safe for concurrent use.
type Toggle struct {
	visible atomic.Bool
}

// NewToggle creates a Toggle with the given initial value.
func NewToggle(visible bool) *Toggle {
	t := &Toggle{}
	t.visible.Store(visible)
	return t
}

// Set updates the flag.
func (t *Toggle) Set(visible bool) {
	t.visible.Store(visible)
}

func (t *Toggle) Visible() bool {
	return t.visible.Load()
}
