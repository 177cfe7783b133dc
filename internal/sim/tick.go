package sim

import (
	"fmt"
	"time"

	"blackout-sim/internal/blackout"
	"blackout-sim/internal/config"
	"blackout-sim/internal/coro"
	"blackout-sim/internal/scenario"
)

// Step advances the simulation by dt. The first call starts a round.
func (s *Simulator) Step(dt time.Duration) {
	if !s.started {
		s.startRound()
	}
	s.rt.Tick(dt)
	s.detectDeaths()
	if s.runner != nil {
		s.runner.Tick(s.rt.Now())
	}
}

func (s *Simulator) startRound() {
	s.started = true
	for _, p := range s.host.Players() {
		s.alive[p.ID()] = p.Alive()
	}
	s.manager.RoundStarted()
	interval := s.cfg.Crowd.Interval.Duration()
	if interval <= 0 {
		interval = defaultCrowdInterval
	}
	s.group.Go("crowd", func(co *coro.Co) {
		for co.Wait(interval) {
			res := s.crowd.Step()
			for _, m := range res.Moves {
				s.log.Debug("player moved", "player_id", m.PlayerID, "from", m.From, "to", m.To)
			}
		}
	})
	if s.runner != nil {
		s.runner.Start(s.rt.Now())
	}
}

// detectDeaths reports alive-to-dead transitions to the scenario runner.
func (s *Simulator) detectDeaths() {
	for _, p := range s.host.Players() {
		was, seen := s.alive[p.ID()]
		now := p.Alive()
		s.alive[p.ID()] = now
		if seen && was && !now {
			s.log.Info("player killed", "player_id", p.ID())
			if s.runner != nil {
				s.runner.Observe(scenario.Event{Type: scenario.EventPlayerKilled, Player: p.ID()}, s.rt.Now())
			}
		}
	}
}

func (s *Simulator) useItem(player, item string) (float64, error) {
	p, ok := s.host.Player(player)
	if !ok {
		return 0, fmt.Errorf("use %s: unknown player %q", item, player)
	}
	if s.manager.Current() == nil {
		return 0, ErrNoRound
	}
	amount, ok := s.manager.ItemUsed(p, item)
	if !ok {
		return 0, fmt.Errorf("use %s: not a recovery item", item)
	}
	return amount, nil
}

// actor carries out scenario actions on the simulation goroutine.
type actor struct{ s *Simulator }

func (a actor) TriggerBlackout() bool { return a.s.triggerNow() == nil }

func (a actor) UseItem(player, item string) error {
	_, err := a.s.useItem(player, item)
	return err
}

func (a actor) ToggleLight(player string) error {
	p, ok := a.s.host.MemPlayer(player)
	if !ok {
		return fmt.Errorf("toggle light: unknown player %q", player)
	}
	p.SetLightEnabled(!p.LightEnabled())
	return nil
}

func (a actor) Move(player, room string) error {
	p, ok := a.s.host.MemPlayer(player)
	if !ok {
		return fmt.Errorf("move: unknown player %q", player)
	}
	if _, ok := a.s.host.Room(room); !ok {
		return fmt.Errorf("move %s: unknown room %q", player, room)
	}
	p.MoveTo(room)
	return nil
}

// Spawn adds a player mid-round and hands it to the live session.
func (a actor) Spawn(player, role, room string) error {
	if player == "" {
		return fmt.Errorf("spawn: player id required")
	}
	if _, ok := a.s.host.Player(player); ok {
		return fmt.Errorf("spawn: player %q already present", player)
	}
	if _, ok := a.s.host.Room(room); !ok {
		return fmt.Errorf("spawn %s: unknown room %q", player, room)
	}
	p := a.s.host.AddPlayer(config.PlayerConfig{ID: player, Role: role, Room: room})
	a.s.alive[player] = p.Alive()
	a.s.manager.PlayerSpawned(p)
	a.s.log.Info("player spawned", "player_id", player, "room", room)
	return nil
}

// Leave disconnects a player: it is removed from the facility and its
// per-player session state is dropped.
func (a actor) Leave(player string) error {
	if !a.s.host.RemovePlayer(player) {
		return fmt.Errorf("leave: unknown player %q", player)
	}
	delete(a.s.alive, player)
	a.s.manager.PlayerLeft(player)
	a.s.log.Info("player left", "player_id", player)
	return nil
}

// scenarioListener feeds blackout transitions to the scenario runner.
type scenarioListener struct{ s *Simulator }

func (l scenarioListener) BlackoutStarted(blackout.Instance) {
	l.s.runner.Observe(scenario.Event{Type: scenario.EventBlackoutStarted}, l.s.rt.Now())
}

func (l scenarioListener) BlackoutEnded(blackout.Instance) {
	l.s.runner.Observe(scenario.Event{Type: scenario.EventBlackoutEnded}, l.s.rt.Now())
}
