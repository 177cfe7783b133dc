// Package sim drives the blackout core in real time and fans its rows out
// to writers.
package sim

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"sort"
	"sync"
	"time"

	"blackout-sim/internal/blackout"
	"blackout-sim/internal/config"
	"blackout-sim/internal/coro"
	"blackout-sim/internal/crowd"
	"blackout-sim/internal/facility"
	"blackout-sim/internal/sanity"
	"blackout-sim/internal/scenario"
	"blackout-sim/internal/session"
	"blackout-sim/internal/telemetry"
)

// ErrStopped is returned by queries made after Run has returned.
var ErrStopped = errors.New("simulator stopped")

// ErrNoRound is returned by commands that need a live round.
var ErrNoRound = errors.New("no active round")

const defaultCrowdInterval = 5 * time.Second

// Options tune a Simulator beyond the YAML config.
type Options struct {
	TickInterval time.Duration
	// SessionID pins every round's ID. Empty means a uuid per round.
	SessionID string
	// Seed for every random draw. Zero seeds from the clock.
	Seed   int64
	Script *scenario.Script
	// Origin is the wall time of simulated time zero. Zero means now.
	Origin time.Time
	Logger *slog.Logger
}

// ActiveBlackout describes one running instance.
type ActiveBlackout struct {
	ID           string   `json:"id"`
	Zones        []string `json:"zones,omitempty"`
	Rooms        int      `json:"rooms"`
	FacilityWide bool     `json:"facility_wide"`
	RemainingS   float64  `json:"remaining_s"`
}

// Status is a point-in-time view of the simulation.
type Status struct {
	SessionID      string                  `json:"session_id"`
	RoundActive    bool                    `json:"round_active"`
	BlackoutActive bool                    `json:"blackout_active"`
	StackDepth     int                     `json:"stack_depth"`
	State          string                  `json:"state"`
	Active         []ActiveBlackout        `json:"active"`
	DarkRooms      []string                `json:"dark_rooms"`
	PlayersAlive   int                     `json:"players_alive"`
	Phase          string                  `json:"phase,omitempty"`
	ElapsedS       float64                 `json:"elapsed_s"`
	Rows           Counts                  `json:"rows"`
	Recent         []telemetry.BlackoutRow `json:"recent"`
}

// Simulator owns the runtime, the in-memory facility, the session manager
// and the crowd engine. Everything but Run and the ctx-taking methods must
// be called from the simulation goroutine.
type Simulator struct {
	cfg      *config.Config
	rt       *coro.Runtime
	host     *facility.Memory
	manager  *session.Manager
	crowd    *crowd.Engine
	runner   *scenario.Runner
	recorder *Recorder
	writer   RowWriter
	group    *coro.Group
	tick     time.Duration
	log      *slog.Logger

	started  bool
	alive    map[string]bool
	stopped  chan struct{}
	stopOnce sync.Once
}

// NewSimulator builds a simulator over cfg. A nil writer drops rows.
func NewSimulator(cfg *config.Config, writer RowWriter, opts Options) *Simulator {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = 100 * time.Millisecond
	}
	if opts.Origin.IsZero() {
		opts.Origin = time.Now()
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	log := opts.Logger.With("component", "sim")

	rt := coro.New(opts.Logger)
	host := facility.NewMemory(cfg.Facility, rt.Now)
	rec := NewRecorder(writer, opts.Origin, opts.Logger)
	s := &Simulator{
		cfg:      cfg,
		rt:       rt,
		host:     host,
		crowd:    crowd.NewEngine(cfg.Crowd, host, rand.New(rand.NewSource(rng.Int63()))),
		recorder: rec,
		writer:   writer,
		group:    coro.NewGroup(rt),
		tick:     opts.TickInterval,
		log:      log,
		alive:    make(map[string]bool),
		stopped:  make(chan struct{}),
	}
	s.manager = session.NewManager(cfg, session.Deps{
		Runtime:   rt,
		Host:      host,
		Rand:      rng,
		Sink:      rec,
		Logger:    opts.Logger,
		SessionID: opts.SessionID,
	})
	if opts.Script != nil {
		s.runner = scenario.NewRunner(opts.Script, actor{s}, opts.Logger)
		s.manager.OnSessionStarted(func(sess *session.Session) {
			sess.Scheduler.AddListener(scenarioListener{s})
		})
	}
	return s
}

// Config returns the configuration the simulator was built from.
func (s *Simulator) Config() *config.Config { return s.cfg }

// Host exposes the in-memory facility.
func (s *Simulator) Host() *facility.Memory { return s.host }

// Runtime exposes the coroutine runtime.
func (s *Simulator) Runtime() *coro.Runtime { return s.rt }

// Manager exposes the session manager.
func (s *Simulator) Manager() *session.Manager { return s.manager }

// Runner returns the scenario runner, or nil without a script.
func (s *Simulator) Runner() *scenario.Runner { return s.runner }

// Recorder returns the sink the core writes to.
func (s *Simulator) Recorder() *Recorder { return s.recorder }

// SetAdminStatus forwards the admin server state to the writer.
func (s *Simulator) SetAdminStatus(listening bool) {
	if aw, ok := s.writer.(AdminStatusWriter); ok {
		aw.SetAdminStatus(listening)
	}
}

// Run starts a round on the first tick and advances the runtime once per
// tick interval until ctx is cancelled, then ends the round.
func (s *Simulator) Run(ctx context.Context) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()
	s.log.Info("simulation running", "tick", s.tick)
	for {
		select {
		case <-ctx.Done():
			s.Stop()
			return
		case <-ticker.C:
			s.Step(s.tick)
		}
	}
}

// Stop ends the round and closes the runtime. Pending and later queries
// fail with ErrStopped.
func (s *Simulator) Stop() {
	s.stopOnce.Do(func() {
		s.manager.RoundEnded()
		s.group.CancelAll()
		s.rt.Close()
		close(s.stopped)
		s.log.Info("simulation stopped", "elapsed", s.rt.Now())
	})
}

// call runs fn on the simulation goroutine and waits for it.
func (s *Simulator) call(ctx context.Context, fn func()) error {
	select {
	case <-s.stopped:
		return ErrStopped
	default:
	}
	done := make(chan struct{})
	s.rt.Post(func() {
		defer close(done)
		fn()
	})
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.stopped:
		return ErrStopped
	}
}

// TriggerBlackout runs a blackout event now, skipping the polling wait.
func (s *Simulator) TriggerBlackout(ctx context.Context) error {
	var err error
	if cerr := s.call(ctx, func() { err = s.triggerNow() }); cerr != nil {
		return cerr
	}
	return err
}

func (s *Simulator) triggerNow() error {
	sess := s.manager.Current()
	if sess == nil || !sess.Scheduler.TriggerNow() {
		return ErrNoRound
	}
	return nil
}

// Disable cancels the running blackouts and stops scheduling new ones for
// the rest of the round.
func (s *Simulator) Disable(ctx context.Context) error {
	var err error
	cerr := s.call(ctx, func() {
		sess := s.manager.Current()
		if sess == nil {
			err = ErrNoRound
			return
		}
		sess.Scheduler.Disable()
		s.log.Info("blackouts disabled for the round", "session_id", sess.ID)
	})
	if cerr != nil {
		return cerr
	}
	return err
}

// UseItem reports an item use by player to the live round.
func (s *Simulator) UseItem(ctx context.Context, player, item string) (float64, error) {
	var (
		amount float64
		err    error
	)
	if cerr := s.call(ctx, func() { amount, err = s.useItem(player, item) }); cerr != nil {
		return 0, cerr
	}
	return amount, err
}

// Status returns the current state.
func (s *Simulator) Status(ctx context.Context) (Status, error) {
	var st Status
	if err := s.call(ctx, func() { st = s.status() }); err != nil {
		return Status{}, err
	}
	return st, nil
}

// Sanity returns every tracked player's sanity, sorted by player ID.
func (s *Simulator) Sanity(ctx context.Context) ([]sanity.Entry, error) {
	var out []sanity.Entry
	err := s.call(ctx, func() {
		if sess := s.manager.Current(); sess != nil {
			out = sess.Sanity.Snapshot()
		}
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []sanity.Entry{}
	}
	return out, nil
}

func (s *Simulator) status() Status {
	st := Status{
		DarkRooms: s.host.DarkRooms(),
		ElapsedS:  telemetry.Elapsed(s.rt.Now()),
		Rows:      s.recorder.Counts(),
		Recent:    s.recorder.Recent(),
		Active:    []ActiveBlackout{},
		State:     blackout.Idle.String(),
	}
	if st.DarkRooms == nil {
		st.DarkRooms = []string{}
	}
	for _, p := range s.host.Players() {
		if p.Alive() {
			st.PlayersAlive++
		}
	}
	if s.runner != nil {
		st.Phase = s.runner.Phase()
	}
	sess := s.manager.Current()
	if sess == nil {
		return st
	}
	sched := sess.Scheduler
	st.SessionID = sess.ID
	st.RoundActive = sched.IsRoundActive()
	st.BlackoutActive = sched.IsBlackoutActive()
	st.StackDepth = sched.StackDepth()
	st.State = sched.State().String()
	now := s.rt.Now()
	for _, inst := range sched.Active() {
		remaining := inst.StartedAt + inst.Duration - now
		if remaining < 0 {
			remaining = 0
		}
		st.Active = append(st.Active, ActiveBlackout{
			ID:           inst.ID,
			Zones:        inst.Outcome.ZoneList(),
			Rooms:        len(inst.Outcome.Rooms),
			FacilityWide: inst.Outcome.FacilityWide,
			RemainingS:   remaining.Seconds(),
		})
	}
	sort.Slice(st.Active, func(i, j int) bool { return st.Active[i].ID < st.Active[j].ID })
	return st
}
