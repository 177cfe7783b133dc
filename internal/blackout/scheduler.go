// Package blackout schedules recurring blackout events and resolves which
// parts of the facility they affect.
package blackout

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/zyedidia/generic/mapset"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"blackout-sim/internal/config"
	"blackout-sim/internal/coro"
	"blackout-sim/internal/facility"
	"blackout-sim/internal/i18n"
	"blackout-sim/internal/telemetry"
)

// State is the scheduler lifecycle position.
type State int

const (
	Idle State = iota
	InitialWait
	Polling
	Triggering
	Active
	Ending
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case InitialWait:
		return "initial_wait"
	case Polling:
		return "polling"
	case Triggering:
		return "triggering"
	case Active:
		return "active"
	case Ending:
		return "ending"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Instance is one running blackout.
type Instance struct {
	ID        string
	Duration  time.Duration
	StartedAt time.Duration
	Outcome   Outcome
}

// Listener is notified when blackout instances begin and end.
type Listener interface {
	BlackoutStarted(inst Instance)
	BlackoutEnded(inst Instance)
}

// Deps are the collaborators of a Scheduler.
type Deps struct {
	Runtime   *coro.Runtime
	Facility  facility.Facility
	Announcer facility.Announcer
	Resolver  *Resolver
	Rand      *rand.Rand
	Sink      telemetry.Sink
	Logger    *slog.Logger
	SessionID string
}

// Scheduler owns the blackout stack counter and the polling loop.
type Scheduler struct {
	cfg       config.BlackoutConfig
	rt        *coro.Runtime
	group     *coro.Group
	fac       facility.Facility
	announcer facility.Announcer
	resolver  *Resolver
	rng       *rand.Rand
	sink      telemetry.Sink
	log       *slog.Logger
	tracer    trace.Tracer
	sessionID string

	listeners   []Listener
	stackDepth  int
	roundActive bool
	state       State
	active      map[string]Instance
}

// NewScheduler wires a scheduler. Nil Sink and Logger are replaced by
// no-op implementations.
func NewScheduler(cfg config.BlackoutConfig, d Deps) *Scheduler {
	if d.Sink == nil {
		d.Sink = telemetry.Discard{}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return &Scheduler{
		cfg:       cfg,
		rt:        d.Runtime,
		group:     coro.NewGroup(d.Runtime),
		fac:       d.Facility,
		announcer: d.Announcer,
		resolver:  d.Resolver,
		rng:       d.Rand,
		sink:      d.Sink,
		log:       d.Logger.With("component", "blackout"),
		tracer:    otel.Tracer("blackout-sim/blackout"),
		sessionID: d.SessionID,
		active:    make(map[string]Instance),
	}
}

// AddListener registers l for start and end notifications.
func (s *Scheduler) AddListener(l Listener) { s.listeners = append(s.listeners, l) }

func (s *Scheduler) IsBlackoutActive() bool { return s.stackDepth > 0 }
func (s *Scheduler) StackDepth() int        { return s.stackDepth }
func (s *Scheduler) IsRoundActive() bool    { return s.roundActive }
func (s *Scheduler) State() State           { return s.state }

// Active returns the running instances.
func (s *Scheduler) Active() []Instance {
	out := make([]Instance, 0, len(s.active))
	for _, inst := range s.active {
		out = append(out, inst)
	}
	return out
}

// OnRoundStarted marks the round active and starts polling.
func (s *Scheduler) OnRoundStarted() {
	if s.roundActive {
		return
	}
	s.roundActive = true
	if !s.cfg.Enabled {
		s.log.Info("blackouts disabled in config")
		return
	}
	s.state = InitialWait
	s.group.Go("blackout-poll", s.poll)
}

// OnRoundEnded stops everything and marks the round inactive.
func (s *Scheduler) OnRoundEnded() {
	s.Disable()
	s.roundActive = false
}

// Disable cancels every pending continuation, ends running instances and
// releases facility fixtures. It is idempotent.
func (s *Scheduler) Disable() {
	s.group.CancelAll()
	ended := s.Active()
	s.active = make(map[string]Instance)
	s.stackDepth = 0
	s.state = Idle
	for _, inst := range ended {
		for _, id := range inst.Outcome.Rooms {
			if room, ok := s.fac.Room(id); ok {
				room.TurnOnLights()
			}
		}
		s.notify(func(l Listener) { l.BlackoutEnded(inst) })
	}
	s.releaseFixtures()
}

// TriggerNow runs one blackout event immediately, skipping the polling
// interval. It reports false when no round is active.
func (s *Scheduler) TriggerNow() bool {
	if !s.roundActive {
		s.log.Warn("trigger requested outside an active round")
		return false
	}
	s.group.Go("blackout-trigger", func(co *coro.Co) { s.safeExecute(co) })
	return true
}

func (s *Scheduler) poll(co *coro.Co) {
	if !co.Wait(s.cfg.InitialDelay.Duration()) {
		return
	}
	for {
		s.settle()
		if !co.Wait(s.nextInterval()) {
			return
		}
		s.safeExecute(co)
		if co.Cancelled() {
			return
		}
	}
}

func (s *Scheduler) safeExecute(co *coro.Co) (triggered bool) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("blackout event failed", "panic", r, "stack_depth", s.stackDepth)
			triggered = false
			s.settle()
		}
	}()
	return s.ExecuteBlackoutEvent(co)
}

// ExecuteBlackoutEvent announces, waits the warning lead, resolves the
// affected area and, if anything went dark, pushes an instance onto the
// stack with a finalize continuation. It must run inside a coroutine.
func (s *Scheduler) ExecuteBlackoutEvent(co *coro.Co) bool {
	_, span := s.tracer.Start(context.Background(), "blackout.execute")
	defer span.End()

	s.state = Triggering
	lead := s.cfg.WarningLead.Duration()
	if s.stackDepth == 0 {
		s.announce(s.cfg.Announcements.Warning, int(lead.Seconds()))
		if s.cfg.FlickerLights {
			for _, room := range s.fac.Rooms() {
				room.TurnOffLights(s.cfg.FlickerDuration.Duration())
			}
		}
	}
	if lead > 0 && !co.Wait(lead) {
		return false
	}

	duration := s.nextDuration()
	outcome := s.resolve(duration)
	span.SetAttributes(
		attribute.Bool("blackout.triggered", outcome.Triggered),
		attribute.Bool("blackout.facility_wide", outcome.FacilityWide),
		attribute.Int("blackout.rooms", len(outcome.Rooms)),
		attribute.Float64("blackout.duration_s", duration.Seconds()),
	)

	if !outcome.Triggered {
		s.log.Info("blackout averted", "stack_depth", s.stackDepth)
		s.announce(s.cfg.Announcements.FalseAlarm)
		s.sink.WriteBlackout(s.row(telemetry.BlackoutFalseAlarm, Instance{Outcome: outcome}))
		s.settle()
		return false
	}

	s.stackDepth++
	inst := Instance{
		ID:        uuid.NewString(),
		Duration:  duration,
		StartedAt: s.rt.Now(),
		Outcome:   outcome,
	}
	s.active[inst.ID] = inst
	s.state = Active
	if outcome.FacilityWide {
		s.announce(s.cfg.Announcements.FacilityWide)
	}
	s.log.Info("blackout started",
		"instance_id", inst.ID,
		"zones", outcome.ZoneList(),
		"rooms", len(outcome.Rooms),
		"duration", duration,
		"stack_depth", s.stackDepth)
	s.notify(func(l Listener) { l.BlackoutStarted(inst) })
	s.sink.WriteBlackout(s.row(telemetry.BlackoutStarted, inst))

	s.group.After("blackout-finalize", duration, func() { s.finalize(inst) })
	return true
}

func (s *Scheduler) resolve(duration time.Duration) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("resolver failed, treating as not triggered", "panic", r)
			out = Outcome{Zones: mapset.New[string]()}
		}
	}()
	return s.resolver.Resolve(duration, s.stackDepth)
}

func (s *Scheduler) finalize(inst Instance) {
	if _, ok := s.active[inst.ID]; !ok {
		return
	}
	s.state = Ending
	delete(s.active, inst.ID)
	if s.stackDepth > 0 {
		s.stackDepth--
	}
	s.log.Info("blackout ended", "instance_id", inst.ID, "stack_depth", s.stackDepth)
	s.notify(func(l Listener) { l.BlackoutEnded(inst) })
	s.sink.WriteBlackout(s.row(telemetry.BlackoutEnded, inst))
	if s.stackDepth == 0 {
		s.announce(s.cfg.Announcements.End)
		s.releaseFixtures()
	}
	s.settle()
}

// settle moves out of the transient states once an operation completes.
func (s *Scheduler) settle() {
	switch {
	case s.stackDepth > 0:
		s.state = Active
	case s.roundActive && s.cfg.Enabled:
		s.state = Polling
	default:
		s.state = Idle
	}
}

func (s *Scheduler) releaseFixtures() {
	for _, room := range s.fac.Rooms() {
		if tesla := room.Tesla(); tesla != nil {
			tesla.ResetCooldown()
		}
		if elevator := room.Elevator(); elevator != nil && s.cfg.DisableElevators {
			elevator.Unlock()
		}
	}
}

func (s *Scheduler) notify(fn func(Listener)) {
	for _, l := range s.listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					s.log.Error("blackout listener failed", "listener", fmt.Sprintf("%T", l), "panic", r)
				}
			}()
			fn(l)
		}()
	}
}

func (s *Scheduler) announce(key string, vars ...any) {
	if key == "" || s.announcer == nil {
		return
	}
	s.announcer.Announce(i18n.T(key, vars...), s.cfg.Announcements.Glitchy)
}

func (s *Scheduler) row(event string, inst Instance) telemetry.BlackoutRow {
	return telemetry.BlackoutRow{
		SessionID:    s.sessionID,
		InstanceID:   inst.ID,
		Event:        event,
		Zones:        inst.Outcome.ZoneList(),
		Rooms:        inst.Outcome.Rooms,
		FacilityWide: inst.Outcome.FacilityWide,
		DurationS:    inst.Duration.Seconds(),
		StackDepth:   s.stackDepth,
		ElapsedS:     telemetry.Elapsed(s.rt.Now()),
	}
}

func (s *Scheduler) nextInterval() time.Duration {
	return uniform(s.rng, s.cfg.RandomEvents, s.cfg.DelayMin.Duration(), s.cfg.DelayMax.Duration())
}

func (s *Scheduler) nextDuration() time.Duration {
	return uniform(s.rng, s.cfg.RandomEvents, s.cfg.DurationMin.Duration(), s.cfg.DurationMax.Duration())
}

// uniform draws from [lo, hi] when random is set and returns hi otherwise.
// lo > hi is clamped to lo = hi.
func uniform(rng *rand.Rand, random bool, lo, hi time.Duration) time.Duration {
	if lo > hi {
		lo = hi
	}
	if !random || lo == hi {
		return hi
	}
	return lo + time.Duration(rng.Int63n(int64(hi-lo)+1))
}
