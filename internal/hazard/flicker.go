package hazard

import (
	"log/slog"
	"time"

	"blackout-sim/internal/coro"
	"blackout-sim/internal/facility"
)

// Flicker runs at most one light-flicker task per player. Starting a new
// one for the same player cancels the old task first.
type Flicker struct {
	rt       *coro.Runtime
	toggles  int
	interval time.Duration
	tasks    map[string]*coro.Co
	log      *slog.Logger
}

// NewFlicker returns a flicker manager toggling lights toggles times,
// interval apart.
func NewFlicker(rt *coro.Runtime, toggles int, interval time.Duration, log *slog.Logger) *Flicker {
	return &Flicker{
		rt:       rt,
		toggles:  toggles,
		interval: interval,
		tasks:    make(map[string]*coro.Co),
		log:      log,
	}
}

// Start flickers p's light, replacing any running flicker for p. The light
// ends up on.
func (f *Flicker) Start(p facility.Player) {
	id := p.ID()
	if f.Active(id) {
		f.log.Debug("replacing flicker", "player_id", id)
		f.Cancel(id)
	}
	co := f.rt.Go("flicker:"+id, func(co *coro.Co) {
		defer func() {
			p.SetLightEnabled(true)
			if f.tasks[id] == co {
				delete(f.tasks, id)
			}
		}()
		on := true
		for i := 0; i < f.toggles; i++ {
			if !co.Wait(f.interval) {
				return
			}
			on = !on
			p.SetLightEnabled(on)
		}
	})
	if !co.Done() {
		f.tasks[id] = co
	}
}

// Cancel stops the flicker for player id, if any.
func (f *Flicker) Cancel(id string) {
	if co, ok := f.tasks[id]; ok {
		delete(f.tasks, id)
		co.Cancel()
	}
}

// CancelAll stops every flicker.
func (f *Flicker) CancelAll() {
	for id := range f.tasks {
		f.Cancel(id)
	}
}

// Active reports whether player id is flickering.
func (f *Flicker) Active(id string) bool {
	_, ok := f.tasks[id]
	return ok
}

func (f *Flicker) Len() int { return len(f.tasks) }
