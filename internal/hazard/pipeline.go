// Package hazard damages players caught in darkness without a light source
// while a blackout is active.
package hazard

import (
	"fmt"
	"log/slog"
	"math/rand"

	"blackout-sim/internal/blackout"
	"blackout-sim/internal/config"
	"blackout-sim/internal/coro"
	"blackout-sim/internal/effect"
	"blackout-sim/internal/facility"
	"blackout-sim/internal/i18n"
	"blackout-sim/internal/telemetry"
)

// DepthSource exposes the blackout stack depth. The scheduler implements it.
type DepthSource interface {
	StackDepth() int
}

// Pipeline runs the per-blackout damage loop and resolves single hits
// through hitbox and armor scaling.
type Pipeline struct {
	cfg       config.HazardConfig
	rt        *coro.Runtime
	group     *coro.Group
	fac       facility.Facility
	hinter    facility.Hinter
	depth     DepthSource
	flicker   *Flicker
	rng       *rand.Rand
	sink      telemetry.Sink
	log       *slog.Logger
	sessionID string
	mitigate  Mitigator
	loops     map[string]*coro.Co
}

// Deps are the collaborators of a Pipeline.
type Deps struct {
	Runtime   *coro.Runtime
	Facility  facility.Facility
	Hinter    facility.Hinter
	Depth     DepthSource
	Flicker   *Flicker
	Rand      *rand.Rand
	Sink      telemetry.Sink
	Logger    *slog.Logger
	SessionID string
}

// NewPipeline returns a pipeline using DefaultMitigation.
func NewPipeline(cfg config.HazardConfig, d Deps) *Pipeline {
	if d.Sink == nil {
		d.Sink = telemetry.Discard{}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return &Pipeline{
		cfg:       cfg,
		rt:        d.Runtime,
		group:     coro.NewGroup(d.Runtime),
		fac:       d.Facility,
		hinter:    d.Hinter,
		depth:     d.Depth,
		flicker:   d.Flicker,
		rng:       d.Rand,
		sink:      d.Sink,
		log:       d.Logger.With("component", "hazard"),
		sessionID: d.SessionID,
		mitigate:  DefaultMitigation,
		loops:     make(map[string]*coro.Co),
	}
}

// SetMitigator replaces the armor mitigation function.
func (p *Pipeline) SetMitigator(m Mitigator) { p.mitigate = m }

// BlackoutStarted starts a damage loop ticking every action delay for as
// many whole delays as fit in the blackout.
func (p *Pipeline) BlackoutStarted(inst blackout.Instance) {
	if !p.cfg.Enabled {
		return
	}
	delay := p.cfg.ActionDelay.Duration()
	if delay <= 0 {
		p.log.Warn("hazard action delay must be positive", "action_delay", delay)
		return
	}
	iterations := int(inst.Duration / delay)
	co := p.group.Go("hazard:"+inst.ID, func(co *coro.Co) {
		defer delete(p.loops, inst.ID)
		for i := 0; i < iterations; i++ {
			if !co.Wait(delay) {
				return
			}
			p.Tick()
		}
	})
	if !co.Done() {
		p.loops[inst.ID] = co
	}
}

// BlackoutEnded stops the loop of an instance that ended early, e.g. on
// Disable. A loop whose blackout ran its full length finishes on its own.
func (p *Pipeline) BlackoutEnded(inst blackout.Instance) {
	co, ok := p.loops[inst.ID]
	if !ok {
		return
	}
	if p.rt.Now() < inst.StartedAt+inst.Duration {
		delete(p.loops, inst.ID)
		co.Cancel()
	}
}

// Stop cancels every running loop.
func (p *Pipeline) Stop() {
	p.group.CancelAll()
	clear(p.loops)
}

// Running reports how many damage loops are active.
func (p *Pipeline) Running() int { return p.group.Len() }

// Tick damages every exposed player by base damage times the stack depth.
func (p *Pipeline) Tick() {
	depth := p.depth.StackDepth()
	if depth <= 0 {
		return
	}
	raw := p.cfg.BaseDamage * float64(depth)
	for _, pl := range p.fac.Players() {
		if !Exposed(pl) {
			continue
		}
		p.strike(pl, raw, depth)
	}
}

// Exposed reports whether pl is alive, human, standing in a dark room and
// carrying no light.
func Exposed(pl facility.Player) bool {
	if !pl.Alive() || !pl.Human() || pl.EmittingLight() {
		return false
	}
	room := pl.Room()
	return room != nil && room.LightsOff()
}

func (p *Pipeline) strike(pl facility.Player, raw float64, depth int) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("hazard strike failed", "player_id", pl.ID(), "panic", r)
		}
	}()
	res, err := p.deliver(pl, raw, p.cfg.StrikeRegion, "darkness", depth)
	if err != nil {
		p.log.Warn("hazard strike skipped", "player_id", pl.ID(), "err", err)
		return
	}
	if err := effect.ApplyAll(pl, p.cfg.OnStrikeEffects); err != nil {
		p.log.Error("on-strike effect failed", "player_id", pl.ID(), "err", err)
	}
	if p.hinter != nil && p.cfg.Hint != "" && !res.Outcome.Killed {
		p.hinter.Hint(pl, i18n.T(p.cfg.Hint), p.cfg.HintDuration.Duration())
	}
	if p.cfg.FlickerNearby && p.flicker != nil {
		p.flickerNeighbours(pl)
	}
}

func (p *Pipeline) flickerNeighbours(victim facility.Player) {
	room := victim.Room()
	if room == nil {
		return
	}
	for _, other := range p.fac.Players() {
		if other.ID() == victim.ID() || !other.EmittingLight() {
			continue
		}
		if r := other.Room(); r != nil && r.ID() == room.ID() {
			p.flicker.Start(other)
		}
	}
}

// Compute resolves raw damage against target without delivering it.
func (p *Pipeline) Compute(target facility.Player, raw float64, region string) (Result, error) {
	if target == nil {
		return Result{}, ErrNoTarget
	}
	if raw <= 0 {
		return Result{}, fmt.Errorf("%w: %v", ErrNonPositiveDamage, raw)
	}
	scaled, err := hitboxScale(p.cfg.HitboxMultipliers, raw, region)
	if err != nil {
		return Result{}, err
	}
	absorbed, mitigated := armor(target, scaled, region, p.cfg.Penetration, p.mitigate)
	return Result{
		Raw:       raw,
		Scaled:    scaled,
		Absorbed:  absorbed,
		Mitigated: mitigated,
		Final:     absorbed + mitigated,
	}, nil
}

// Deliver computes and applies damage to target, scattering its items if
// it dies. source labels the telemetry row.
func (p *Pipeline) Deliver(target facility.Player, raw float64, region, source string) (Result, error) {
	return p.deliver(target, raw, region, source, p.depth.StackDepth())
}

func (p *Pipeline) deliver(target facility.Player, raw float64, region, source string, depth int) (Result, error) {
	res, err := p.Compute(target, raw, region)
	if err != nil {
		return res, err
	}
	res.Outcome = target.Damage(res.Final, region)
	if res.Outcome.Killed {
		p.scatter(target)
	}
	row := telemetry.DamageRow{
		SessionID:  p.sessionID,
		PlayerID:   target.ID(),
		Region:     region,
		Raw:        res.Raw,
		Final:      res.Final,
		Absorbed:   res.Absorbed,
		StackDepth: depth,
		Killed:     res.Outcome.Killed,
		Source:     source,
		ElapsedS:   telemetry.Elapsed(p.rt.Now()),
	}
	if room := target.Room(); room != nil {
		row.Room = room.ID()
	}
	p.sink.WriteDamage(row)
	return res, nil
}

func (p *Pipeline) scatter(target facility.Player) {
	items := target.DropItems()
	for _, it := range items {
		it.SetVelocity(ScatterVelocity(p.rng, it.Weight(), p.cfg))
	}
	if len(items) > 0 {
		p.log.Info("player killed in darkness, items scattered", "player_id", target.ID(), "items", len(items))
	}
}
