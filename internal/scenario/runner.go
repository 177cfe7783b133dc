package scenario

import (
	"log/slog"
	"time"
)

// Actor carries out scripted actions against the running simulation.
type Actor interface {
	TriggerBlackout() bool
	UseItem(player, item string) error
	ToggleLight(player string) error
	Move(player, room string) error
	Spawn(player, role, room string) error
	Leave(player string) error
}

// Runner walks a Script: it runs each phase's actions on entry and feeds
// events to the triggers.
type Runner struct {
	script  *Script
	actor   Actor
	log     *slog.Logger
	phase   string
	entered time.Duration
	counts  map[string]int
	history []string

	// events raised by a phase's own actions wait until the actions finish
	busy    bool
	pending []pendingEvent
}

type pendingEvent struct {
	ev  Event
	now time.Duration
}

// NewRunner returns a runner positioned before the first phase.
func NewRunner(s *Script, actor Actor, log *slog.Logger) *Runner {
	if log == nil {
		log = slog.Default()
	}
	return &Runner{script: s, actor: actor, log: log.With("component", "scenario", "scenario", s.Name)}
}

// Start enters the first phase.
func (r *Runner) Start(now time.Duration) {
	if len(r.script.Phases) == 0 {
		return
	}
	r.enter(r.script.Phases[0].Name, now)
}

// Phase returns the current phase name.
func (r *Runner) Phase() string { return r.phase }

// History lists the phases entered so far, in order.
func (r *Runner) History() []string { return append([]string(nil), r.history...) }

// Tick feeds the time spent in the current phase to its triggers.
func (r *Runner) Tick(now time.Duration) {
	if r.phase == "" {
		return
	}
	elapsed := int((now - r.entered) / time.Second)
	r.advance(Event{Type: EventTimeElapsed, Value: elapsed}, now)
}

// Observe counts ev within the current phase and advances on a match.
func (r *Runner) Observe(ev Event, now time.Duration) {
	if r.phase == "" {
		return
	}
	if r.busy {
		r.pending = append(r.pending, pendingEvent{ev, now})
		return
	}
	r.observe(ev, now)
}

func (r *Runner) observe(ev Event, now time.Duration) {
	key := ev.Type
	if ev.Player != "" {
		key += ":" + ev.Player
	}
	r.counts[ev.Type]++
	if ev.Player != "" {
		r.counts[key]++
	}
	ev.Value = r.counts[key]
	if next, ok := r.script.NextPhase(r.phase, ev); ok {
		r.enter(next, now)
		return
	}
	// a player-agnostic trigger counts every kill
	if ev.Player != "" {
		r.advance(Event{Type: ev.Type, Value: r.counts[ev.Type]}, now)
	}
}

func (r *Runner) advance(ev Event, now time.Duration) {
	if next, ok := r.script.NextPhase(r.phase, ev); ok {
		r.enter(next, now)
	}
}

func (r *Runner) enter(name string, now time.Duration) {
	phase, ok := r.script.Phase(name)
	if !ok {
		r.log.Warn("unknown phase", "phase", name)
		return
	}
	r.phase = name
	r.entered = now
	r.counts = make(map[string]int)
	r.history = append(r.history, name)
	r.log.Info("scenario phase", "phase", name)
	r.busy = true
	for _, a := range phase.Actions {
		if err := r.run(a); err != nil {
			r.log.Warn("scenario action failed", "action", a.Type, "player_id", a.Player, "err", err)
		}
	}
	r.busy = false
	for len(r.pending) > 0 {
		p := r.pending[0]
		r.pending = r.pending[1:]
		r.observe(p.ev, p.now)
	}
}

func (r *Runner) run(a Action) error {
	switch a.Type {
	case ActionTriggerBlackout:
		if !r.actor.TriggerBlackout() {
			r.log.Warn("scripted blackout refused")
		}
		return nil
	case ActionUseItem:
		return r.actor.UseItem(a.Player, a.Item)
	case ActionToggleLight:
		return r.actor.ToggleLight(a.Player)
	case ActionMove:
		return r.actor.Move(a.Player, a.Room)
	case ActionSpawn:
		return r.actor.Spawn(a.Player, a.Role, a.Room)
	case ActionLeave:
		return r.actor.Leave(a.Player)
	}
	return nil
}
