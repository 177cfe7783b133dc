package sim

import (
	"context"
	"errors"
	"testing"
	"time"

	"blackout-sim/internal/config"
	"blackout-sim/internal/logging"
	"blackout-sim/internal/scenario"
)

func simConfig() *config.Config {
	cfg := config.Default()
	cfg.Blackout.InitialDelay = 1
	cfg.Blackout.RandomEvents = false
	cfg.Blackout.DelayMin, cfg.Blackout.DelayMax = 1, 1
	cfg.Blackout.DurationMin, cfg.Blackout.DurationMax = 100, 100
	cfg.Blackout.WarningLead = 0
	cfg.Blackout.Zones = []config.ZoneChance{{Zone: "Heavy", Chance: 100}}
	cfg.Blackout.OtherChance = 0
	cfg.Blackout.FacilityWideFallback = false
	cfg.Hazard.ActionDelay = 1
	cfg.Hazard.BaseDamage = 1000
	cfg.Sanity.StrikeInterval = 0
	cfg.Crowd = config.CrowdConfig{}
	cfg.Facility = config.FacilityConfig{
		Rooms: []config.RoomConfig{
			{ID: "hcz", Zone: "Heavy"},
			{ID: "lcz", Zone: "Light"},
		},
		Players: []config.PlayerConfig{
			{ID: "alice", Role: "human", Room: "hcz", Health: 50},
			{ID: "bob", Role: "human", Room: "lcz", Health: 100},
		},
	}
	return cfg
}

func TestSimulatorStepKillsExposedPlayer(t *testing.T) {
	script := &scenario.Script{Phases: []scenario.Phase{
		{Name: "wait", Triggers: []scenario.Trigger{{Event: scenario.EventPlayerKilled, Value: 1, Player: "alice", Next: "done"}}},
		{Name: "done"},
	}}
	cw := &collectWriter{}
	s := NewSimulator(simConfig(), cw, Options{Seed: 1, SessionID: "test", Script: script, Origin: time.Unix(0, 0), Logger: logging.Discard()})
	defer s.Stop()

	alice, _ := s.Host().Player("alice")
	for i := 0; i < 20 && alice.Alive(); i++ {
		s.Step(time.Second)
	}
	if alice.Alive() {
		t.Fatal("alice survived twenty seconds in the dark")
	}
	bob, _ := s.Host().Player("bob")
	if !bob.Alive() {
		t.Fatal("bob was lit and should be alive")
	}
	if s.Runner().Phase() != "done" {
		t.Fatalf("phase = %s", s.Runner().Phase())
	}
	if len(cw.blackouts) == 0 || len(cw.damage) == 0 {
		t.Fatalf("blackouts=%d damage=%d", len(cw.blackouts), len(cw.damage))
	}
	if !cw.damage[len(cw.damage)-1].Killed {
		t.Fatal("last strike should be the kill")
	}
	first := cw.blackouts[0]
	if first.SessionID != "test" || first.Timestamp.IsZero() {
		t.Fatalf("unexpected row %+v", first)
	}
	if want := time.Unix(0, 0).Add(time.Duration(first.ElapsedS * float64(time.Second))); !first.Timestamp.Equal(want) {
		t.Fatalf("ts = %v, want %v", first.Timestamp, want)
	}

	st := s.status()
	if !st.RoundActive || !st.BlackoutActive || st.StackDepth == 0 {
		t.Fatalf("status = %+v", st)
	}
	if len(st.DarkRooms) != 1 || st.DarkRooms[0] != "hcz" {
		t.Fatalf("dark rooms = %v", st.DarkRooms)
	}
	if st.PlayersAlive != 1 || st.Phase != "done" {
		t.Fatalf("alive=%d phase=%s", st.PlayersAlive, st.Phase)
	}
}

func TestSimulatorUseItem(t *testing.T) {
	s := NewSimulator(simConfig(), nil, Options{Seed: 1, Logger: logging.Discard()})
	defer s.Stop()
	if _, err := s.useItem("alice", "scp500"); !errors.Is(err, ErrNoRound) {
		t.Fatalf("before the round: %v", err)
	}
	s.Step(time.Second)
	if _, err := s.useItem("nobody", "scp500"); err == nil {
		t.Fatal("unknown player accepted")
	}
	if _, err := s.useItem("bob", "coin"); err == nil {
		t.Fatal("coin is not a recovery item")
	}
	if _, err := s.useItem("bob", "scp500"); err != nil {
		t.Fatalf("scp500: %v", err)
	}
}

func TestSimulatorRun(t *testing.T) {
	s := NewSimulator(simConfig(), nil, Options{TickInterval: time.Millisecond, Seed: 1, Logger: logging.Discard()})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	qctx, qcancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer qcancel()
	st, err := s.Status(qctx)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !st.RoundActive || st.SessionID == "" {
		t.Fatalf("status = %+v", st)
	}
	if err := s.TriggerBlackout(qctx); err != nil {
		t.Fatalf("trigger: %v", err)
	}
	entries, err := s.Sanity(qctx)
	if err != nil || len(entries) != 2 {
		t.Fatalf("sanity entries=%d err=%v", len(entries), err)
	}
	if err := s.Disable(qctx); err != nil {
		t.Fatalf("disable: %v", err)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if _, err := s.Status(context.Background()); !errors.Is(err, ErrStopped) {
		t.Fatalf("status after stop: %v", err)
	}
}

func TestSimulatorSpawnAndLeave(t *testing.T) {
	cfg := simConfig()
	cfg.Hazard.BaseDamage = 1
	cfg.Facility.Players = append(cfg.Facility.Players,
		config.PlayerConfig{ID: "guard", Role: "human", Room: "hcz", Health: 100, Light: true})
	s := NewSimulator(cfg, nil, Options{Seed: 1, Logger: logging.Discard()})
	defer s.Stop()
	a := actor{s}

	// blackout starts at 2s, first strike at 3s makes the guard's light flicker
	s.Step(3 * time.Second)
	sess := s.Manager().Current()
	if !sess.Flicker.Active("guard") {
		t.Fatal("guard light should flicker after a strike next to it")
	}

	if err := a.Spawn("d-2", "", "lcz"); err != nil {
		t.Fatalf("spawn: %v", err)
	}
	if err := a.Spawn("d-2", "", "lcz"); err == nil {
		t.Fatal("duplicate spawn accepted")
	}
	if err := a.Spawn("d-3", "", "nowhere"); err == nil {
		t.Fatal("spawn into an unknown room accepted")
	}
	if v, ok := sess.Sanity.Get("d-2"); !ok || v != cfg.Sanity.StartingValue {
		t.Fatalf("spawned sanity = %v, %v", v, ok)
	}

	if err := a.Leave("guard"); err != nil {
		t.Fatalf("leave: %v", err)
	}
	if sess.Flicker.Active("guard") {
		t.Fatal("flicker survived the disconnect")
	}
	if _, ok := sess.Sanity.Get("guard"); ok {
		t.Fatal("sanity record survived the disconnect")
	}
	if err := a.Leave("guard"); err == nil {
		t.Fatal("second leave accepted")
	}
	s.Step(time.Second)
	if _, ok := s.Host().Player("guard"); ok {
		t.Fatal("guard still in the facility")
	}
}
