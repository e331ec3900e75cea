// Package metrics defines the Prometheus collectors exported by the marquee.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Simulation Metrics
var (
	// BodiesLive tracks the number of bodies currently simulated
	BodiesLive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "marquee_bodies_live",
			Help: "Number of bodies currently in the simulation",
		},
	)

	// BodiesSpawned counts bodies admitted from the intake queues
	BodiesSpawned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marquee_bodies_spawned_total",
			Help: "Total bodies spawned by launch side",
		},
		[]string{"side"},
	)

	// BodiesEvicted counts bodies removed to respect the live-body cap
	BodiesEvicted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marquee_bodies_evicted_total",
			Help: "Total bodies evicted at capacity by reason (offscreen/oldest)",
		},
		[]string{"reason"},
	)

	// BodiesCulled counts bodies removed after leaving the view
	BodiesCulled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "marquee_bodies_culled_total",
			Help: "Total bodies removed after leaving the visible region",
		},
	)

	// PhysicsSteps counts fixed physics steps
	PhysicsSteps = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "marquee_physics_steps_total",
			Help: "Total fixed-size physics steps executed",
		},
	)

	// FrameDuration tracks how long one frame of simulation and rendering takes
	FrameDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "marquee_frame_duration_seconds",
			Help:    "Frame processing duration in seconds",
			Buckets: []float64{.0005, .001, .002, .004, .008, .016, .033, .066},
		},
	)

	// IntakeQueueDepth tracks characters waiting to be spawned
	IntakeQueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "marquee_intake_queue_depth",
			Help: "Characters waiting to be spawned by side",
		},
		[]string{"side"},
	)
)

// Feed Metrics
var (
	// FeedMessages counts inbound messages by result (queued/dropped)
	FeedMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marquee_feed_messages_total",
			Help: "Total feed messages received by feed and result",
		},
		[]string{"feed", "result"},
	)

	// FeedCharacters counts characters appended to intake queues
	FeedCharacters = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marquee_feed_characters_total",
			Help: "Total characters enqueued by feed",
		},
		[]string{"feed"},
	)

	// FeedReconnects counts reconnection attempts by reason (closed/stale)
	FeedReconnects = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marquee_feed_reconnects_total",
			Help: "Total feed reconnection attempts by feed and reason",
		},
		[]string{"feed", "reason"},
	)

	// FeedState tracks the connection state (0=disconnected, 1=connecting, 2=connected)
	FeedState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "marquee_feed_state",
			Help: "Current feed connection state (0=disconnected, 1=connecting, 2=connected)",
		},
		[]string{"feed"},
	)
)

// Viewer Metrics
var (
	// Viewers tracks connected SSH sessions watching the marquee
	Viewers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "marquee_viewers",
			Help: "Number of connected viewers",
		},
	)
)
