// Package session owns the per-round object graph: one Session per round,
// built when the round starts and torn down when it ends.
package session

import (
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"blackout-sim/internal/blackout"
	"blackout-sim/internal/config"
	"blackout-sim/internal/coro"
	"blackout-sim/internal/facility"
	"blackout-sim/internal/hazard"
	"blackout-sim/internal/sanity"
	"blackout-sim/internal/telemetry"
)

const stateInterval = time.Second

// Host is everything a session needs from the game server.
type Host interface {
	facility.Facility
	facility.Announcer
	facility.Hinter
}

// Deps are shared by every session a Manager builds.
type Deps struct {
	Runtime *coro.Runtime
	Host    Host
	Rand    *rand.Rand
	Sink    telemetry.Sink
	Logger  *slog.Logger
	// SessionID pins the ID of every session. Empty means a fresh uuid per round.
	SessionID string
}

// Session holds the components of one round. The components reference the
// host and runtime but never the session.
type Session struct {
	ID        string
	StartedAt time.Duration

	Resolver  *blackout.Resolver
	Scheduler *blackout.Scheduler
	Pipeline  *hazard.Pipeline
	Flicker   *hazard.Flicker
	Sanity    *sanity.System

	rt    *coro.Runtime
	group *coro.Group
	host  Host
	sink  telemetry.Sink
	log   *slog.Logger
	ended bool
}

// New wires a session. Call Start to begin the round.
func New(cfg *config.Config, d Deps) *Session {
	if d.Sink == nil {
		d.Sink = telemetry.Discard{}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Rand == nil {
		d.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	id := d.SessionID
	if id == "" {
		id = uuid.NewString()
	}
	log := d.Logger.With("session_id", id)

	s := &Session{
		ID:        id,
		StartedAt: d.Runtime.Now(),
		rt:        d.Runtime,
		group:     coro.NewGroup(d.Runtime),
		host:      d.Host,
		sink:      d.Sink,
		log:       log,
	}
	s.Resolver = blackout.NewResolver(cfg.Blackout, d.Host, d.Rand, log)
	s.Scheduler = blackout.NewScheduler(cfg.Blackout, blackout.Deps{
		Runtime:   d.Runtime,
		Facility:  d.Host,
		Announcer: d.Host,
		Resolver:  s.Resolver,
		Rand:      d.Rand,
		Sink:      d.Sink,
		Logger:    log,
		SessionID: id,
	})
	s.Flicker = hazard.NewFlicker(d.Runtime, cfg.Hazard.FlickerToggles, cfg.Hazard.FlickerInterval.Duration(), log)
	s.Pipeline = hazard.NewPipeline(cfg.Hazard, hazard.Deps{
		Runtime:   d.Runtime,
		Facility:  d.Host,
		Hinter:    d.Host,
		Depth:     s.Scheduler,
		Flicker:   s.Flicker,
		Rand:      d.Rand,
		Sink:      d.Sink,
		Logger:    log,
		SessionID: id,
	})
	s.Sanity = sanity.NewSystem(cfg.Sanity, sanity.Deps{
		Runtime:   d.Runtime,
		Facility:  d.Host,
		Hinter:    d.Host,
		Blackout:  s.Scheduler,
		Damager:   s.Pipeline,
		Rand:      d.Rand,
		Sink:      d.Sink,
		Logger:    log,
		SessionID: id,
	})
	s.Scheduler.AddListener(s.Pipeline)
	return s
}

// Start registers the present players and launches every loop.
func (s *Session) Start() {
	for _, p := range s.host.Players() {
		if p.Alive() && p.Human() {
			s.Sanity.Register(p)
		}
	}
	s.Scheduler.OnRoundStarted()
	s.Sanity.Start()
	s.group.Go("session-state", func(co *coro.Co) {
		for co.Wait(stateInterval) {
			s.sink.WriteState(s.State())
		}
	})
	s.log.Info("session started")
}

// Teardown stops every component. Afterwards the stack depth is zero and
// no continuation of this session remains scheduled.
func (s *Session) Teardown() {
	if s.ended {
		return
	}
	s.ended = true
	s.Scheduler.OnRoundEnded()
	s.Pipeline.Stop()
	s.Flicker.CancelAll()
	s.Sanity.Stop()
	s.group.CancelAll()
	s.sink.WriteState(s.State())
	s.log.Info("session ended", "elapsed", s.rt.Now()-s.StartedAt)
}

// Ended reports whether Teardown ran.
func (s *Session) Ended() bool { return s.ended }

// State is the current round summary.
func (s *Session) State() telemetry.SessionStateRow {
	row := telemetry.SessionStateRow{
		SessionID:      s.ID,
		RoundActive:    s.Scheduler.IsRoundActive(),
		BlackoutActive: s.Scheduler.IsBlackoutActive(),
		StackDepth:     s.Scheduler.StackDepth(),
		ElapsedS:       telemetry.Elapsed(s.rt.Now() - s.StartedAt),
	}
	for _, p := range s.host.Players() {
		if p.Alive() {
			row.PlayersAlive++
		}
	}
	for _, r := range s.host.Rooms() {
		if r.LightsOff() {
			row.DarkRooms++
		}
	}
	return row
}

// PlayerLeft drops per-player state.
func (s *Session) PlayerLeft(id string) {
	s.Flicker.Cancel(id)
	s.Sanity.Forget(id)
}
