// Package server runs one shared marquee simulation for every SSH viewer.
// The simulation ticks on its own goroutine and publishes immutable
// snapshots; viewers only read them.
package server

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/tomz197/marquee/internal/feed"
	"github.com/tomz197/marquee/internal/loop"
	"github.com/tomz197/marquee/internal/loop/config"
	"github.com/tomz197/marquee/internal/metrics"
	"github.com/tomz197/marquee/internal/object"
)

// SnapshotServer is what a viewer session needs from the server. It decouples
// the client from the concrete Server for testing.
type SnapshotServer interface {
	AddViewer(name string) *Viewer
	RemoveViewer(id uuid.UUID)
	Snapshot() *loop.Snapshot
}

// Options configures a Server.
type Options struct {
	Sim      loop.Options
	Feeds    loop.FeedOptions
	TickRate int // Simulation frames per second
	Clock    clockwork.Clock
	Logger   *log.Logger
}

// Server owns the simulation and the viewer registry. Feed messages are only
// ingested while at least one viewer is attached.
type Server struct {
	state    *loop.State
	feeds    *loop.Feeds
	snapshot atomic.Pointer[loop.Snapshot]
	tick     time.Duration
	clock    clockwork.Clock
	logger   *log.Logger

	mu      sync.RWMutex
	viewers map[uuid.UUID]*Viewer
	count   atomic.Int32
}

// Compile-time check that Server implements SnapshotServer.
var _ SnapshotServer = (*Server)(nil)

// Viewer is one attached session.
type Viewer struct {
	ID     uuid.UUID
	Name   string
	Joined time.Time
	Events chan Event // Closed when the viewer is removed
}

// Event is sent from the server to a viewer.
type Event int

const (
	EventServerShutdown Event = iota
)

// New creates a server with an empty simulation. Nothing runs until Run.
func New(opts Options) *Server {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	tick := config.ServerTickTime
	if opts.TickRate > 0 {
		tick = time.Second / time.Duration(opts.TickRate)
	}

	s := &Server{
		tick:    tick,
		clock:   opts.Clock,
		logger:  opts.Logger,
		viewers: make(map[uuid.UUID]*Viewer),
	}

	opts.Feeds.Visibility = s
	if opts.Feeds.Logger == nil {
		opts.Feeds.Logger = opts.Logger
	}
	s.feeds = loop.NewFeeds(opts.Feeds)
	opts.Sim.Queues = s.feeds.Queues()
	s.state = loop.NewState(opts.Sim)

	snap := loop.EmptySnapshot(s.state.View(), s.state.Radius())
	snap.Feeds = s.feeds.Statuses()
	s.snapshot.Store(snap)
	return s
}

// Run connects the feeds and ticks the simulation until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	feedsDone := make(chan struct{})
	go func() {
		defer close(feedsDone)
		s.feeds.Run(ctx)
	}()

	ticker := s.clock.NewTicker(s.tick)
	defer ticker.Stop()

	s.logger.Info("Simulation started", "tick", s.tick)
	for {
		select {
		case <-ctx.Done():
			<-feedsDone
			s.logger.Info("Simulation stopped")
			return nil
		case <-ticker.Chan():
			s.frame()
		}
	}
}

func (s *Server) frame() {
	start := time.Now()

	s.state.Frame(s.clock.Now())
	snap := s.state.Snapshot()
	snap.Feeds = s.feeds.Statuses()
	s.snapshot.Store(snap)

	metrics.FrameDuration.Observe(time.Since(start).Seconds())
}

// Snapshot returns the latest published snapshot. It is never nil.
func (s *Server) Snapshot() *loop.Snapshot {
	return s.snapshot.Load()
}

// Statuses returns the current status of every feed.
func (s *Server) Statuses() []feed.Status {
	return s.feeds.Statuses()
}

// Queue returns the intake queue for side.
func (s *Server) Queue(side object.Side) *feed.Queue {
	return s.feeds.Manager(side).Queue()
}

// AddViewer registers a session.
func (s *Server) AddViewer(name string) *Viewer {
	v := &Viewer{
		ID:     uuid.New(),
		Name:   name,
		Joined: s.clock.Now(),
		Events: make(chan Event, 4),
	}

	s.mu.Lock()
	s.viewers[v.ID] = v
	n := len(s.viewers)
	s.count.Store(int32(n))
	s.mu.Unlock()

	metrics.Viewers.Set(float64(n))
	s.logger.Info("Viewer joined", "viewer", v.ID, "name", name, "viewers", n)
	return v
}

// RemoveViewer unregisters a session and closes its event channel. Unknown
// IDs are ignored.
func (s *Server) RemoveViewer(id uuid.UUID) {
	s.mu.Lock()
	v, ok := s.viewers[id]
	if ok {
		delete(s.viewers, id)
		close(v.Events)
	}
	n := len(s.viewers)
	s.count.Store(int32(n))
	s.mu.Unlock()

	if !ok {
		return
	}
	metrics.Viewers.Set(float64(n))
	s.logger.Info("Viewer left", "viewer", id, "viewers", n)
}

// Viewers returns the number of attached sessions.
func (s *Server) Viewers() int {
	return int(s.count.Load())
}

// Visible reports whether anyone is watching. It gates feed ingestion.
func (s *Server) Visible() bool {
	return s.count.Load() > 0
}

// Shutdown notifies every viewer and waits until they have all left or the
// timeout passes. The caller cancels Run's context afterwards.
func (s *Server) Shutdown(timeout time.Duration) {
	s.mu.RLock()
	for _, v := range s.viewers {
		select {
		case v.Events <- EventServerShutdown:
		default:
		}
	}
	s.mu.RUnlock()

	deadline := s.clock.After(timeout)
	ticker := s.clock.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if s.Viewers() == 0 {
			return
		}
		select {
		case <-deadline:
			s.logger.Warn("Shutdown timed out with viewers attached", "viewers", s.Viewers())
			return
		case <-ticker.Chan():
		}
	}
}
