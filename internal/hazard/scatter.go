package hazard

import (
	"math"
	"math/rand"

	"blackout-sim/internal/config"
	"blackout-sim/internal/facility"
)

// maxDownward is the sine of the steepest allowed angle below the horizon.
var maxDownward = math.Sin(math.Pi / 4)

// ScatterVelocity returns the launch velocity of a dropped item. Heavier
// items fly slower; the speed is capped at MaxItemSpeed.
func ScatterVelocity(rng *rand.Rand, weight float64, cfg config.HazardConfig) facility.Vec3 {
	lo, hi := cfg.ItemForceMin, cfg.ItemForceMax
	if lo > hi {
		lo = hi
	}
	force := lo + rng.Float64()*(hi-lo)

	w := math.Max(weight, cfg.MinItemWeight)
	speed := cfg.MaxItemSpeed
	if denom := math.Log1p(w); denom > 0 {
		speed = math.Min(force/denom, cfg.MaxItemSpeed)
	}
	return unitVector(rng).Scale(speed)
}

// unitVector is uniform on the sphere, reflected upward when it points
// more than 45 degrees below the horizon. Y is up.
func unitVector(rng *rand.Rand) facility.Vec3 {
	y := 2*rng.Float64() - 1
	phi := 2 * math.Pi * rng.Float64()
	r := math.Sqrt(1 - y*y)
	if y < -maxDownward {
		y = -y
	}
	return facility.Vec3{X: r * math.Cos(phi), Y: y, Z: r * math.Sin(phi)}
}
