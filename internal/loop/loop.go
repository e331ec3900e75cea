// Package loop drives the marquee: it owns the simulation state, runs the
// per-frame orchestration and renders snapshots to a terminal.
package loop

import (
	"bufio"
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"

	"github.com/tomz197/marquee/internal/draw"
	"github.com/tomz197/marquee/internal/feed"
	"github.com/tomz197/marquee/internal/input"
	"github.com/tomz197/marquee/internal/loop/config"
	"github.com/tomz197/marquee/internal/metrics"
)

// RunOptions configures the local terminal marquee.
type RunOptions struct {
	Sim      Options
	Feeds    FeedOptions
	FPS      int
	Profile  termenv.Profile
	Themes   *draw.ThemeProvider // Re-read every frame; Refresh it to switch themes
	TermSize draw.TermSizeFunc
	Logger   *log.Logger
}

// Run shows the marquee on a local terminal until ctx is done or a quit key
// is pressed. Feed messages are only ingested while the terminal has focus.
func Run(ctx context.Context, r *bufio.Reader, w io.Writer, opts RunOptions) error {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Themes == nil {
		opts.Themes = draw.NewThemeProvider("dark", nil)
	}
	frameTime := config.ClientTargetFrameTime
	if opts.FPS > 0 {
		frameTime = time.Second / time.Duration(opts.FPS)
	}

	focused := feed.NewToggle(true)
	opts.Feeds.Visibility = focused
	feeds := NewFeeds(opts.Feeds)
	opts.Sim.Queues = feeds.Queues()
	state := NewState(opts.Sim)

	themeVersion := opts.Themes.Version()
	renderer, err := NewRenderer(w, RendererOptions{
		Profile:  opts.Profile,
		Theme:    opts.Themes.Theme(),
		View:     state.View(),
		TermSize: opts.TermSize,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	feedsDone := make(chan struct{})
	go func() {
		defer close(feedsDone)
		feeds.Run(ctx)
	}()
	defer func() { <-feedsDone }()
	defer cancel()

	stream := input.StartStream(r)

	draw.HideCursor(w)
	defer draw.ShowCursor(w)
	draw.EnableFocusReporting(w)
	defer draw.DisableFocusReporting(w)
	defer renderer.Close()

	opts.Logger.Info("Marquee started", "fps", int(time.Second/frameTime), "profile", opts.Profile)

	ticker := time.NewTicker(frameTime)
	defer ticker.Stop()

	for {
		frameStart := time.Now()

		in := input.ReadInput(stream)
		if in.Quit || stream.Closed() {
			opts.Logger.Info("Quit requested")
			return nil
		}
		switch in.Focus {
		case input.FocusGained:
			focused.Set(true)
			opts.Logger.Debug("Terminal focused, ingesting feeds")
		case input.FocusLost:
			focused.Set(false)
			opts.Logger.Debug("Terminal unfocused, dropping feed messages")
		}

		if v := opts.Themes.Version(); v != themeVersion {
			themeVersion = v
			renderer.SetTheme(opts.Themes.Theme())
			opts.Logger.Info("Theme changed", "theme", opts.Themes.Theme().Name)
		}
		renderer.Resize()

		state.Frame(frameStart)
		snap := state.Snapshot()
		snap.Feeds = feeds.Statuses()
		if err := renderer.Draw(snap); err != nil {
			return err
		}
		metrics.FrameDuration.Observe(time.Since(frameStart).Seconds())

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
