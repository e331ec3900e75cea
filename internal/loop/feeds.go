package loop

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/tomz197/marquee/internal/feed"
	"github.com/tomz197/marquee/internal/loop/config"
	"github.com/tomz197/marquee/internal/object"
)

// FeedOptions configures the pair of feed connections.
type FeedOptions struct {
	URLs       [len(object.Sides)]string // Empty entries use the default endpoints
	Dialer     feed.Dialer
	Visibility feed.Visibility
	Logger     *log.Logger

	ReconnectDelay   time.Duration
	LivenessInterval time.Duration
	StaleThreshold   time.Duration
}

// Feeds owns one connection Manager per side, each filling that side's
// intake queue.
type Feeds struct {
	managers [len(object.Sides)]*feed.Manager
}

// NewFeeds creates the managers. Nothing is dialed until Run.
func NewFeeds(opts FeedOptions) *Feeds {
	defaults := [len(object.Sides)]string{config.LeftFeedURL, config.RightFeedURL}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	f := &Feeds{}
	for _, side := range object.Sides {
		url := opts.URLs[side]
		if url == "" {
			url = defaults[side]
		}
		f.managers[side] = feed.NewManager(feed.Options{
			Name:             side.String(),
			URL:              url,
			Dialer:           opts.Dialer,
			Visibility:       opts.Visibility,
			Logger:           opts.Logger,
			ReconnectDelay:   opts.ReconnectDelay,
			LivenessInterval: opts.LivenessInterval,
			StaleThreshold:   opts.StaleThreshold,
			DialTimeout:      config.DialTimeout,
		})
	}
	return f
}

// Queues returns the intake queue of each side.
func (f *Feeds) Queues() [len(object.Sides)]*feed.Queue {
	var qs [len(object.Sides)]*feed.Queue
	for i, m := range f.managers {
		qs[i] = m.Queue()
	}
	return qs
}

// Manager returns the connection manager for side.
func (f *Feeds) Manager(side object.Side) *feed.Manager {
	return f.managers[side]
}

// Statuses returns the status of every feed in spawn order.
func (f *Feeds) Statuses() []feed.Status {
	out := make([]feed.Status, len(f.managers))
	for i, m := range f.managers {
		out[i] = m.Status()
	}
	return out
}

// Run runs every manager until ctx is done.
func (f *Feeds) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, m := range f.managers {
		wg.Go(func() {
			_ = m.Run(ctx)
		})
	}
	wg.Wait()
}
