// Package config centralizes all tunable marquee parameters.
package config

import "time"

// View resolution - the visible area in logical units.
// Actual rendering scales to fit terminal size.
const (
	ViewWidth  = 160 // Logical viewport width
	ViewHeight = 90  // Logical viewport height (in sub-pixels, so 45 terminal rows at 1:1)
)

// Max render resolution; larger terminals get a centered, bordered render area.
const (
	MaxTermWidth  = 240
	MaxTermHeight = 70
)

// Bodies
const (
	MaxBodies  = 200
	BodyRadius = 3.0

	Restitution = 0.5
	Friction    = 0.3
	AirDrag     = 0.008 // Fraction of velocity lost per 60 Hz step
	Density     = 0.003

	Gravity = 120.0 // Logical units / s^2, pointing down
)

// Launch kinematics
const (
	LaunchHeight    = 0.4   // Fraction of view height
	LaunchJitter    = 6.0   // Total vertical spread around LaunchHeight
	LaunchSpeedMin  = 125.0 // Logical units / s
	LaunchSpeedSpan = 70.0
	LaunchSpread    = 0.9  // Total angular spread in radians
	LaunchLift      = 14.0 // Extra upward velocity
)

// Simulation timing
const (
	PhysicsHz     = 60
	FixedStep     = time.Second / PhysicsHz
	MaxFrameDelta = 100 * time.Millisecond
)

// Spawning
const (
	MaxPerStep     = 3 // Bodies admitted per side per FixedStep
	SpawnBurstMult = 8 // Burst cap = SpawnBurstMult * MaxPerStep
)

// Feeds
const (
	ReconnectDelay   = 2 * time.Second
	LivenessInterval = 2 * time.Second
	StaleThreshold   = 5 * time.Second
	DialTimeout      = 10 * time.Second
)

// Default feed endpoints.
const (
	LeftFeedURL  = "wss://rand.haha.computer"
	RightFeedURL = "wss://entropy.haha.computer"
)

// Palette is the set of body colors; one is chosen at spawn.
var Palette = []string{
	"#e74c3c", "#e55b8c", "#f39c12", "#f1c40f",
	"#2ecc71", "#1abc9c", "#3498db", "#5b6be7",
	"#9b59b6", "#e67e22", "#1dd1a1", "#ff6b6b",
	"#48dbfb", "#feca57", "#ff9ff3", "#54a0ff",
}

// Theme colors (background, digit).
const (
	DarkBackground  = "#111318"
	DarkForeground  = "#f5f6fa"
	LightBackground = "#fafafa"
	LightForeground = "#1e272e"
)

// Client rendering
const (
	ClientTargetFPS       = 60
	ClientTargetFrameTime = time.Second / ClientTargetFPS
)

// Server tick rate
const (
	ServerTickRate = 60
	ServerTickTime = time.Second / ServerTickRate
)

// Inactivity
const (
	InactivityWarnUser       = 90  // Seconds
	InactivityDisconnectUser = 600 // Seconds
)

// Shutdown
const (
	ShutdownDisplaySeconds = 3.0 // Seconds to show shutdown message before auto-disconnect
)
