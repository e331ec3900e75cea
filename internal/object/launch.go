package object

import (
	"math"
	"math/rand/v2"

	"github.com/tomz197/marquee/internal/loop/config"
)

// Launch returns the entry position and velocity of a body arriving from
// side. Bodies start just beyond their edge at a jittered height and head
// toward the opposite edge on a slightly randomized upward arc.
func Launch(side Side, view Screen, radius float64, rng *rand.Rand) (x, y, vx, vy float64) {
	y = view.Height*config.LaunchHeight + (rng.Float64()-0.5)*config.LaunchJitter

	speed := config.LaunchSpeedMin + rng.Float64()*config.LaunchSpeedSpan
	angle := (rng.Float64() - 0.5) * config.LaunchSpread

	vx = speed * math.Cos(angle)
	vy = speed*math.Sin(angle) - config.LaunchLift

	switch side {
	case SideRight:
		x = view.Width + radius
		vx = -vx
	default:
		x = -radius
	}
	return x, y, vx, vy
}

// PickColor chooses a palette index for a new body.
func PickColor(paletteSize int, rng *rand.Rand) int {
	if paletteSize <= 0 {
		return 0
	}
	return rng.IntN(paletteSize)
}
