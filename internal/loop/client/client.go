// Package client renders the shared marquee for one SSH session.
package client

import (
	"bufio"
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jonboulle/clockwork"
	"github.com/muesli/termenv"

	"github.com/tomz197/marquee/internal/draw"
	"github.com/tomz197/marquee/internal/input"
	"github.com/tomz197/marquee/internal/loop"
	"github.com/tomz197/marquee/internal/loop/config"
	"github.com/tomz197/marquee/internal/loop/server"
)

// Options configures the client.
type Options struct {
	TermSize draw.TermSizeFunc
	Name     string
	Profile  termenv.Profile
	Theme    draw.Theme
	FPS      int
	Clock    clockwork.Clock
	Logger   *log.Logger

	InactivityWarn       time.Duration
	InactivityDisconnect time.Duration
}

// Client handles rendering and input for a single connection.
type Client struct {
	server   server.SnapshotServer
	viewer   *server.Viewer
	state    *State
	renderer *loop.Renderer
	writer   io.Writer
	stream   *input.Stream
	clock    clockwork.Clock
	logger   *log.Logger

	frameTime       time.Duration
	warnAfter       time.Duration
	disconnectAfter time.Duration
}

// New creates a client and registers it as a viewer of srv.
func New(srv server.SnapshotServer, r *bufio.Reader, w io.Writer, opts Options) (*Client, error) {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.InactivityWarn <= 0 {
		opts.InactivityWarn = config.InactivityWarnUser * time.Second
	}
	if opts.InactivityDisconnect <= 0 {
		opts.InactivityDisconnect = config.InactivityDisconnectUser * time.Second
	}
	frameTime := config.ClientTargetFrameTime
	if opts.FPS > 0 {
		frameTime = time.Second / time.Duration(opts.FPS)
	}

	renderer, err := loop.NewRenderer(w, loop.RendererOptions{
		Profile:  opts.Profile,
		Theme:    opts.Theme,
		View:     srv.Snapshot().View,
		TermSize: opts.TermSize,
	})
	if err != nil {
		return nil, err
	}

	viewer := srv.AddViewer(opts.Name)
	return &Client{
		server:          srv,
		viewer:          viewer,
		state:           NewState(opts.Clock.Now()),
		renderer:        renderer,
		writer:          w,
		stream:          input.StartStream(r),
		clock:           opts.Clock,
		logger:          opts.Logger.With("viewer", viewer.ID),
		frameTime:       frameTime,
		warnAfter:       opts.InactivityWarn,
		disconnectAfter: opts.InactivityDisconnect,
	}, nil
}

// Run renders frames until the viewer quits, goes idle for too long, the
// server shuts down or ctx is done. The viewer is always unregistered.
func (c *Client) Run(ctx context.Context) error {
	defer c.server.RemoveViewer(c.viewer.ID)

	draw.HideCursor(c.writer)
	defer draw.ShowCursor(c.writer)
	defer c.renderer.Close()

	ticker := c.clock.NewTicker(c.frameTime)
	defer ticker.Stop()

	last := c.clock.Now()
	for c.state.Running {
		now := c.clock.Now()
		delta := now.Sub(last)
		last = now

		c.processInput(now)
		c.processServerEvents()
		c.update(now, delta)
		if !c.state.Running {
			break
		}

		c.renderer.Resize()
		c.renderer.SetNotice(c.notice(now)...)
		if err := c.renderer.Draw(c.server.Snapshot()); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
		}
	}
	return nil
}

// processInput reads pending keys. Any key counts as activity.
func (c *Client) processInput(now time.Time) {
	in := input.ReadInput(c.stream)

	if len(in.Pressed) > 0 {
		c.state.LastInput = now
	}
	if in.Quit {
		c.logger.Debug("Viewer quit")
		c.state.Running = false
	}
	if c.stream.Closed() {
		c.state.Running = false
	}
}

// processServerEvents handles events from the server.
func (c *Client) processServerEvents() {
	for {
		select {
		case ev, ok := <-c.viewer.Events:
			if !ok {
				c.state.Running = false
				return
			}
			if ev == server.EventServerShutdown && c.state.Phase != PhaseShutdown {
				c.state.Phase = PhaseShutdown
				c.state.ShutdownTimer = time.Duration(config.ShutdownDisplaySeconds * float64(time.Second))
			}
		default:
			return
		}
	}
}

// update advances timers and the inactivity phase.
func (c *Client) update(now time.Time, delta time.Duration) {
	if c.state.Phase == PhaseShutdown {
		c.state.ShutdownTimer -= delta
		if c.state.ShutdownTimer <= 0 {
			c.state.Running = false
		}
		return
	}

	idle := now.Sub(c.state.LastInput)
	switch {
	case idle > c.disconnectAfter:
		c.logger.Info("Disconnecting inactive viewer", "idle", idle.Round(time.Second))
		c.state.Running = false
	case idle > c.warnAfter:
		c.state.Phase = PhaseInactive
	default:
		c.state.Phase = PhaseWatching
	}
}
