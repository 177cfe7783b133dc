package hazard

import (
	"errors"
	"fmt"
	"math"

	"blackout-sim/internal/facility"
)

var (
	ErrNoTarget          = errors.New("no damage target")
	ErrNonPositiveDamage = errors.New("non-positive damage")
	ErrMalformedHitbox   = errors.New("malformed hitbox multiplier")
)

// Mitigator reduces damage by an armor efficacy (0-100) given the
// attack's penetration as a whole percentage.
type Mitigator func(efficacy int, damage float64, penetrationPercent int) float64

// DefaultMitigation lets penetration scale down the armor's share.
func DefaultMitigation(efficacy int, damage float64, penetrationPercent int) float64 {
	eff := float64(efficacy) / 100
	pen := float64(penetrationPercent) / 100
	return damage * (1 - eff*(1-pen))
}

// Result breaks down one damage computation.
type Result struct {
	Raw       float64
	Scaled    float64
	Absorbed  float64
	Mitigated float64
	Final     float64
	Outcome   facility.Outcome
}

// hitboxScale applies the region multiplier. Regions without an entry count
// as malformed, like negative multipliers.
func hitboxScale(multipliers map[string]float64, raw float64, region string) (float64, error) {
	m, ok := multipliers[region]
	if !ok || m < 0 || math.IsNaN(m) {
		return 0, fmt.Errorf("%w: region %q", ErrMalformedHitbox, region)
	}
	return raw * m, nil
}

// armor splits damage between the hume shield, which absorbs first and is
// not mitigated, and body armor for the remainder.
func armor(target facility.Player, damage float64, region string, penetration float64, mitigate Mitigator) (absorbed, mitigated float64) {
	absorbed = math.Min(math.Max(target.HumeShield(), 0), damage)
	rest := damage - absorbed
	eff, ok := target.ArmorEfficacy(region)
	if !ok {
		return absorbed, rest
	}
	pen := int(math.Round(penetration * 100))
	mitigated = mitigate(eff, rest, pen)
	mitigated = math.Min(math.Max(mitigated, 0), rest)
	return absorbed, mitigated
}
