// Package sanity tracks a per-player sanity value that drains in the dark
// and during blackouts, and applies stage penalties as it falls.
package sanity

import (
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"time"

	"blackout-sim/internal/config"
	"blackout-sim/internal/coro"
	"blackout-sim/internal/effect"
	"blackout-sim/internal/facility"
	"blackout-sim/internal/hazard"
	"blackout-sim/internal/i18n"
	"blackout-sim/internal/telemetry"
)

const (
	minValue = 0
	maxValue = 100

	decayStep = time.Second
)

// BlackoutState reports whether any blackout is active.
type BlackoutState interface {
	IsBlackoutActive() bool
}

// Damager delivers stage strike damage. *hazard.Pipeline implements it.
type Damager interface {
	Deliver(target facility.Player, raw float64, region, source string) (hazard.Result, error)
}

type record struct {
	value      float64
	hinted     bool
	lastHint   time.Duration
	lastStrike time.Duration
}

// Entry is one row of a Snapshot.
type Entry struct {
	PlayerID    string  `json:"player_id"`
	Value       float64 `json:"value"`
	Stage       string  `json:"stage"`
	LastStrikeS float64 `json:"last_strike_s,omitempty"`
}

// Deps are the collaborators of a System.
type Deps struct {
	Runtime   *coro.Runtime
	Facility  facility.Facility
	Hinter    facility.Hinter
	Blackout  BlackoutState
	Damager   Damager
	Rand      *rand.Rand
	Sink      telemetry.Sink
	Logger    *slog.Logger
	SessionID string
}

// System owns every sanity record of a round.
type System struct {
	cfg       config.SanityConfig
	rt        *coro.Runtime
	group     *coro.Group
	fac       facility.Facility
	hinter    facility.Hinter
	blackout  BlackoutState
	damager   Damager
	rng       *rand.Rand
	sink      telemetry.Sink
	log       *slog.Logger
	sessionID string

	stages  Stages
	items   map[string]config.RecoveryItem
	records map[string]*record
}

// NewSystem builds a System. Loops start with Start.
func NewSystem(cfg config.SanityConfig, d Deps) *System {
	if d.Sink == nil {
		d.Sink = telemetry.Discard{}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	items := make(map[string]config.RecoveryItem, len(cfg.RecoveryItems))
	for _, it := range cfg.RecoveryItems {
		items[it.Item] = it
	}
	return &System{
		cfg:       cfg,
		rt:        d.Runtime,
		group:     coro.NewGroup(d.Runtime),
		fac:       d.Facility,
		hinter:    d.Hinter,
		blackout:  d.Blackout,
		damager:   d.Damager,
		rng:       d.Rand,
		sink:      d.Sink,
		log:       d.Logger.With("component", "sanity"),
		sessionID: d.SessionID,
		stages:    NewStages(cfg.Stages),
		items:     items,
		records:   make(map[string]*record),
	}
}

// Start launches the decay, strike and cleanup loops. It does nothing when
// the system is disabled.
func (s *System) Start() {
	if !s.cfg.Enabled {
		return
	}
	s.group.Go("sanity-decay", func(co *coro.Co) {
		for co.Wait(decayStep) {
			s.DecayTick()
		}
	})
	if d := s.cfg.StrikeInterval.Duration(); d > 0 {
		s.group.Go("sanity-strikes", func(co *coro.Co) {
			for co.Wait(d) {
				s.StrikeTick()
			}
		})
	}
	if d := s.cfg.CleanupInterval.Duration(); d > 0 {
		s.group.Go("sanity-cleanup", func(co *coro.Co) {
			for co.Wait(d) {
				if n := s.Sweep(); n > 0 {
					s.log.Debug("sanity records swept", "count", n)
				}
			}
		})
	}
}

// Stop cancels the loops. Records are kept.
func (s *System) Stop() { s.group.CancelAll() }

// Register creates a record at the starting value unless one exists.
func (s *System) Register(p facility.Player) {
	if p == nil {
		return
	}
	s.ensure(p.ID())
}

func (s *System) ensure(id string) *record {
	rec, ok := s.records[id]
	if !ok {
		rec = &record{value: clamp(s.cfg.StartingValue)}
		s.records[id] = rec
	}
	return rec
}

// Forget drops the record of id.
func (s *System) Forget(id string) { delete(s.records, id) }

// Get returns the sanity of id.
func (s *System) Get(id string) (float64, bool) {
	rec, ok := s.records[id]
	if !ok {
		return 0, false
	}
	return rec.value, true
}

// Stage returns the stage id currently sits in.
func (s *System) Stage(id string) (Stage, bool) {
	rec, ok := s.records[id]
	if !ok {
		return Stage{}, false
	}
	return s.stages.Lookup(rec.value)
}

// Set overwrites the sanity of id, clamped to [0,100].
func (s *System) Set(id string, v float64) bool {
	rec, ok := s.records[id]
	if !ok {
		return false
	}
	rec.value = clamp(v)
	return true
}

// Change adds delta to the sanity of id and returns the clamped result.
func (s *System) Change(id string, delta float64) (float64, bool) {
	rec, ok := s.records[id]
	if !ok {
		return 0, false
	}
	rec.value = clamp(rec.value + delta)
	return rec.value, true
}

// Snapshot lists every record ordered by player ID.
func (s *System) Snapshot() []Entry {
	out := make([]Entry, 0, len(s.records))
	for id, rec := range s.records {
		e := Entry{PlayerID: id, Value: rec.value, LastStrikeS: telemetry.Elapsed(rec.lastStrike)}
		if st, ok := s.stages.Lookup(rec.value); ok {
			e.Stage = st.Name
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlayerID < out[j].PlayerID })
	return out
}

// DecayTick drains one second of sanity from every alive human.
func (s *System) DecayTick() {
	blackout := s.blackout != nil && s.blackout.IsBlackoutActive()
	now := s.rt.Now()
	var rows []telemetry.SanityRow
	for _, p := range s.fac.Players() {
		if !p.Alive() || !p.Human() {
			continue
		}
		rec := s.ensure(p.ID())
		rate := s.cfg.DecayRateBase
		if blackout {
			rate *= s.cfg.MultiplierBlackout
		}
		room := p.Room()
		dark := room != nil && room.LightsOff()
		if dark {
			rate *= s.cfg.MultiplierDarkness
		}
		before := rec.value
		rec.value = clamp(rec.value - rate*decayStep.Seconds())

		if rec.value < before {
			s.hintDecrease(p, rec, now)
		}
		row := telemetry.SanityRow{
			SessionID: s.sessionID,
			PlayerID:  p.ID(),
			Value:     rec.value,
			Rate:      rate,
			Dark:      dark,
			ElapsedS:  telemetry.Elapsed(now),
		}
		if st, ok := s.stages.Lookup(rec.value); ok {
			row.Stage = st.Name
		}
		rows = append(rows, row)
	}
	if len(rows) > 0 {
		s.sink.WriteSanity(rows)
	}
}

func (s *System) hintDecrease(p facility.Player, rec *record, now time.Duration) {
	if !s.cfg.HintsEnabled || s.hinter == nil || s.cfg.DecreaseHint == "" {
		return
	}
	if rec.hinted && now-rec.lastHint < s.cfg.HintCooldown.Duration() {
		return
	}
	rec.hinted = true
	rec.lastHint = now
	s.hinter.Hint(p, i18n.T(s.cfg.DecreaseHint, rec.value), s.cfg.HintDuration.Duration())
}

// OnItemUsed restores sanity when item is a configured recovery item and
// returns the amount restored.
func (s *System) OnItemUsed(p facility.Player, item string) (float64, bool) {
	if p == nil {
		return 0, false
	}
	it, ok := s.items[item]
	if !ok {
		return 0, false
	}
	lo, hi := it.Min, it.Max
	if lo > hi {
		lo = hi
	}
	amount := lo
	if hi > lo && s.rng != nil {
		amount = lo + s.rng.Float64()*(hi-lo)
	}
	rec := s.ensure(p.ID())
	rec.value = clamp(rec.value + amount)
	if it.Notify && it.Hint != "" && s.hinter != nil {
		s.hinter.Hint(p, i18n.T(it.Hint), s.cfg.HintDuration.Duration())
	}
	s.log.Debug("sanity restored", "player_id", p.ID(), "item", item, "amount", amount, "value", rec.value)
	return amount, true
}

// StrikeTick applies the current stage of every alive human. Failures are
// logged per player.
func (s *System) StrikeTick() {
	for _, p := range s.fac.Players() {
		if !p.Alive() || !p.Human() {
			continue
		}
		if err := s.safeStrike(p); err != nil {
			s.log.Error("sanity strike failed", "player_id", p.ID(), "err", err)
		}
	}
}

func (s *System) safeStrike(p facility.Player) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return s.Strike(p)
}

// Strike applies the effects and damage of the stage p is in. An unknown
// effect kind fails with effect.ErrUnknownEffect.
func (s *System) Strike(p facility.Player) error {
	rec := s.ensure(p.ID())
	st, ok := s.stages.Lookup(rec.value)
	if !ok {
		return fmt.Errorf("no stage for sanity %v", rec.value)
	}
	rec.lastStrike = s.rt.Now()
	if err := effect.ApplyAll(p, st.Effects); err != nil {
		return fmt.Errorf("stage %q: %w", st.Name, err)
	}
	if st.DamageOnStrike > 0 && s.damager != nil {
		if _, err := s.damager.Deliver(p, st.DamageOnStrike, s.cfg.StrikeRegion, "sanity"); err != nil {
			return fmt.Errorf("stage %q damage: %w", st.Name, err)
		}
	}
	return nil
}

// Sweep drops records of players no longer in the facility and returns how
// many went.
func (s *System) Sweep() int {
	n := 0
	for id := range s.records {
		if _, ok := s.fac.Player(id); !ok {
			delete(s.records, id)
			n++
		}
	}
	return n
}

func clamp(v float64) float64 {
	if v < minValue {
		return minValue
	}
	if v > maxValue {
		return maxValue
	}
	return v
}
