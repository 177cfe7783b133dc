package blackout

import (
	"log/slog"
	"math/rand"
	"sort"
	"time"

	"github.com/zyedidia/generic/mapset"

	"blackout-sim/internal/config"
	"blackout-sim/internal/facility"
)

// Outcome describes which parts of the facility went dark. Only Triggered
// drives the scheduler; the rest is informational.
type Outcome struct {
	Triggered    bool
	FacilityWide bool
	Zones        mapset.Set[string]
	Rooms        []string
}

// ZoneList returns the affected zones sorted by name.
func (o *Outcome) ZoneList() []string {
	var zones []string
	o.Zones.Each(func(z string) { zones = append(zones, z) })
	sort.Strings(zones)
	return zones
}

// Resolver rolls per-zone or per-room chances and applies the resulting
// darkness to the facility.
type Resolver struct {
	cfg config.BlackoutConfig
	fac facility.Facility
	rng *rand.Rand
	log *slog.Logger
}

// NewResolver returns a resolver over fac.
func NewResolver(cfg config.BlackoutConfig, fac facility.Facility, rng *rand.Rand, log *slog.Logger) *Resolver {
	return &Resolver{cfg: cfg, fac: fac, rng: rng, log: log}
}

// ZoneTrial draws once from [0,100) and reports whether it fell under chance.
func (r *Resolver) ZoneTrial(chance float64) bool {
	return r.rng.Float64()*100 < chance
}

// Resolve decides the affected area for a blackout lasting duration.
// stackDepth is the number of blackouts already running; the facility-wide
// fallback only applies when none are.
func (r *Resolver) Resolve(duration time.Duration, stackDepth int) Outcome {
	out := Outcome{Zones: mapset.New[string]()}
	if r.cfg.UsePerRoomChances {
		r.resolveRooms(&out, duration)
	} else {
		r.resolveZones(&out, duration)
	}

	if !out.Triggered && r.cfg.FacilityWideFallback && stackDepth == 0 {
		r.log.Info("no zone triggered, falling back to facility-wide blackout")
		out.FacilityWide = true
		for _, room := range r.fac.Rooms() {
			r.darken(&out, room, duration, true)
		}
		out.Triggered = len(out.Rooms) > 0
	}

	if out.Triggered && r.cfg.DisableNuke {
		r.haltWarhead()
	}
	return out
}

func (r *Resolver) resolveZones(out *Outcome, duration time.Duration) {
	hit := mapset.New[string]()
	for _, z := range r.cfg.Zones {
		if r.ZoneTrial(z.Chance) {
			hit.Put(z.Zone)
		}
	}
	if hit.Size() == 0 {
		return
	}
	for _, room := range r.fac.Rooms() {
		if hit.Has(room.Zone()) {
			r.darken(out, room, duration, false)
		}
	}
	// zones with no rooms still count as triggered
	hit.Each(func(z string) { out.Zones.Put(z) })
	out.Triggered = true
}

func (r *Resolver) resolveRooms(out *Outcome, duration time.Duration) {
	for _, room := range r.fac.Rooms() {
		if r.ZoneTrial(r.cfg.ChanceFor(room.Zone())) {
			r.darken(out, room, duration, false)
			out.Triggered = true
		}
	}
}

// darken turns room's lights off and applies the configured fixture rules.
// facilityWide forces tesla gates into cooldown regardless of DisableTeslas.
func (r *Resolver) darken(out *Outcome, room facility.Room, duration time.Duration, facilityWide bool) {
	room.TurnOffLights(duration)
	out.Rooms = append(out.Rooms, room.ID())
	out.Zones.Put(room.Zone())

	if tesla := room.Tesla(); tesla != nil && (r.cfg.DisableTeslas || facilityWide) {
		tesla.ForceTrigger()
		tesla.SetCooldown(duration + r.cfg.TeslaBuffer.Duration())
	}
	if elevator := room.Elevator(); elevator != nil && r.cfg.DisableElevators {
		elevator.Lock()
	}
}

func (r *Resolver) haltWarhead() {
	w := r.fac.Warhead()
	if w == nil || !w.InProgress() || w.Locked() {
		return
	}
	w.Stop()
	r.log.Info("warhead detonation halted by blackout")
}
