package hazard

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"blackout-sim/internal/blackout"
	"blackout-sim/internal/config"
	"blackout-sim/internal/coro"
	"blackout-sim/internal/effect"
	"blackout-sim/internal/facility"
	"blackout-sim/internal/logging"
	"blackout-sim/internal/telemetry"
)

type fixedDepth int

func (d fixedDepth) StackDepth() int { return int(d) }

func hazardConfig() config.HazardConfig {
	return config.HazardConfig{
		Enabled:           true,
		ActionDelay:       5,
		BaseDamage:        10,
		Penetration:       0.5,
		StrikeRegion:      "body",
		HitboxMultipliers: map[string]float64{"body": 1, "head": 2},
		OnStrikeEffects:   []effect.Descriptor{{Kind: effect.Bleeding, Intensity: 1, Duration: 3}},
		Hint:              "Something is in the dark",
		HintDuration:      2,
		FlickerNearby:     true,
		FlickerToggles:    4,
		FlickerInterval:   0.5,
		ItemForceMin:      2,
		ItemForceMax:      6,
		MinItemWeight:     0.1,
		MaxItemSpeed:      10,
	}
}

type env struct {
	rt   *coro.Runtime
	fac  *facility.Memory
	pipe *Pipeline
	sink *telemetry.Memory
}

func newEnv(t *testing.T, cfg config.HazardConfig, depth DepthSource, players ...config.PlayerConfig) *env {
	t.Helper()
	rt := coro.New(logging.Discard())
	t.Cleanup(rt.Close)
	fac := facility.NewMemory(config.FacilityConfig{
		Rooms: []config.RoomConfig{
			{ID: "dark", Zone: "Heavy"},
			{ID: "lit", Zone: "Light"},
		},
		Players: players,
	}, rt.Now)
	room, _ := fac.Room("dark")
	room.TurnOffLights(time.Hour)
	sink := &telemetry.Memory{}
	pipe := NewPipeline(cfg, Deps{
		Runtime:   rt,
		Facility:  fac,
		Hinter:    fac,
		Depth:     depth,
		Flicker:   NewFlicker(rt, cfg.FlickerToggles, cfg.FlickerInterval.Duration(), logging.Discard()),
		Rand:      rand.New(rand.NewSource(9)),
		Sink:      sink,
		Logger:    logging.Discard(),
		SessionID: "test",
	})
	return &env{rt: rt, fac: fac, pipe: pipe, sink: sink}
}

func (e *env) player(t *testing.T, id string) *facility.MemPlayer {
	t.Helper()
	p, ok := e.fac.MemPlayer(id)
	if !ok {
		t.Fatalf("player %s missing", id)
	}
	return p
}

func TestTickDamagesOnlyExposedHumans(t *testing.T) {
	e := newEnv(t, hazardConfig(), fixedDepth(1),
		config.PlayerConfig{ID: "victim", Role: "human", Room: "dark", Health: 100},
		config.PlayerConfig{ID: "torch", Role: "human", Room: "dark", Health: 100, Light: true},
		config.PlayerConfig{ID: "safe", Role: "human", Room: "lit", Health: 100},
		config.PlayerConfig{ID: "scp", Role: "scp", Room: "dark", Health: 100},
		config.PlayerConfig{ID: "ghost", Role: "spectator", Room: "dark"},
	)
	e.pipe.Tick()

	if got := e.player(t, "victim").Health(); got != 90 {
		t.Fatalf("victim health = %v", got)
	}
	for _, id := range []string{"torch", "safe", "scp"} {
		if got := e.player(t, id).Health(); got != 100 {
			t.Errorf("%s took damage, health = %v", id, got)
		}
	}
	victim := e.player(t, "victim")
	if eff := victim.Effects(); len(eff) != 1 || eff[0].Kind != effect.Bleeding {
		t.Fatalf("on-strike effects = %+v", eff)
	}
	if len(e.fac.Hints) != 1 || e.fac.Hints[0].PlayerID != "victim" {
		t.Fatalf("hints = %+v", e.fac.Hints)
	}
	if !e.pipe.flicker.Active("torch") {
		t.Fatal("light carrier next to the victim should flicker")
	}
	if len(e.sink.Damage) != 1 || e.sink.Damage[0].Room != "dark" || e.sink.Damage[0].Source != "darkness" {
		t.Fatalf("damage rows = %+v", e.sink.Damage)
	}
}

func TestTickScalesWithStackDepth(t *testing.T) {
	e := newEnv(t, hazardConfig(), fixedDepth(3),
		config.PlayerConfig{ID: "victim", Role: "human", Room: "dark", Health: 100})
	e.pipe.Tick()
	if got := e.player(t, "victim").Health(); got != 70 {
		t.Fatalf("health = %v, want 70", got)
	}

	idle := newEnv(t, hazardConfig(), fixedDepth(0),
		config.PlayerConfig{ID: "victim", Role: "human", Room: "dark", Health: 100})
	idle.pipe.Tick()
	if got := idle.player(t, "victim").Health(); got != 100 {
		t.Fatalf("damage dealt with no blackout: %v", got)
	}
}

func TestLoopRunsWholeActionDelays(t *testing.T) {
	e := newEnv(t, hazardConfig(), fixedDepth(1),
		config.PlayerConfig{ID: "victim", Role: "human", Room: "dark", Health: 100})
	e.pipe.BlackoutStarted(blackout.Instance{ID: "b1", Duration: 23 * time.Second})
	if e.pipe.Running() != 1 {
		t.Fatalf("running = %d", e.pipe.Running())
	}
	e.rt.Tick(time.Minute)
	// floor(23/5) = 4 strikes of 10
	if got := e.player(t, "victim").Health(); got != 60 {
		t.Fatalf("health = %v, want 60", got)
	}
	if e.pipe.Running() != 0 {
		t.Fatal("loop still running after its iterations")
	}
}

func TestEarlyEndCancelsLoop(t *testing.T) {
	e := newEnv(t, hazardConfig(), fixedDepth(1),
		config.PlayerConfig{ID: "victim", Role: "human", Room: "dark", Health: 100})
	inst := blackout.Instance{ID: "b1", Duration: time.Minute}
	e.pipe.BlackoutStarted(inst)
	e.rt.Tick(10 * time.Second)
	e.pipe.BlackoutEnded(inst)
	e.rt.Tick(time.Minute)
	if got := e.player(t, "victim").Health(); got != 80 {
		t.Fatalf("health = %v, want 80", got)
	}
}

func TestDisabledPipelineDoesNothing(t *testing.T) {
	cfg := hazardConfig()
	cfg.Enabled = false
	e := newEnv(t, cfg, fixedDepth(1))
	e.pipe.BlackoutStarted(blackout.Instance{ID: "b1", Duration: time.Minute})
	if e.pipe.Running() != 0 {
		t.Fatal("disabled pipeline started a loop")
	}
}

func TestMalformedInputsAreNoOps(t *testing.T) {
	cfg := hazardConfig()
	cfg.HitboxMultipliers["tail"] = -1
	e := newEnv(t, cfg, fixedDepth(1),
		config.PlayerConfig{ID: "victim", Role: "human", Room: "dark", Health: 100})
	victim := e.player(t, "victim")

	if _, err := e.pipe.Deliver(nil, 10, "body", "test"); !errors.Is(err, ErrNoTarget) {
		t.Fatalf("nil target: %v", err)
	}
	if _, err := e.pipe.Deliver(victim, 0, "body", "test"); !errors.Is(err, ErrNonPositiveDamage) {
		t.Fatalf("zero damage: %v", err)
	}
	if _, err := e.pipe.Deliver(victim, 10, "tail", "test"); !errors.Is(err, ErrMalformedHitbox) {
		t.Fatalf("negative multiplier: %v", err)
	}
	if _, err := e.pipe.Deliver(victim, 10, "wing", "test"); !errors.Is(err, ErrMalformedHitbox) {
		t.Fatalf("missing multiplier: %v", err)
	}

	cfg.StrikeRegion = "wing"
	bad := newEnv(t, cfg, fixedDepth(1),
		config.PlayerConfig{ID: "victim", Role: "human", Room: "dark", Health: 100})
	bad.pipe.Tick()
	if got := bad.player(t, "victim").Health(); got != 100 {
		t.Fatalf("malformed strike region dealt damage: %v", got)
	}
	if victim.Health() != 100 || len(e.sink.Damage) != 0 {
		t.Fatal("failed deliveries must not touch the target")
	}
}

func TestArmorBreakdown(t *testing.T) {
	cfg := hazardConfig()
	cfg.Penetration = 0.4
	e := newEnv(t, cfg, fixedDepth(1),
		config.PlayerConfig{ID: "guard", Role: "human", Room: "dark", Health: 100, HumeShield: 5, Armor: map[string]int{"body": 50}})
	res, err := e.pipe.Compute(e.player(t, "guard"), 20, "body")
	if err != nil {
		t.Fatal(err)
	}
	// shield takes 5 untouched, 15 * (1 - 0.5*(1-0.4)) = 10.5
	if res.Absorbed != 5 || math.Abs(res.Mitigated-10.5) > 1e-9 || math.Abs(res.Final-15.5) > 1e-9 {
		t.Fatalf("result = %+v", res)
	}

	e.pipe.SetMitigator(func(eff int, dmg float64, pen int) float64 { return dmg * 10 })
	res, _ = e.pipe.Compute(e.player(t, "guard"), 20, "body")
	if res.Final != 20 {
		t.Fatalf("mitigator output must be clamped to the remainder, final = %v", res.Final)
	}
}

func TestArmorFinalNeverExceedsRaw(t *testing.T) {
	rt := coro.New(logging.Discard())
	fac := facility.NewMemory(config.FacilityConfig{Rooms: []config.RoomConfig{{ID: "dark"}}}, rt.Now)
	for eff := 0; eff <= 100; eff += 10 {
		for _, shield := range []float64{0, 3, 50} {
			for _, pen := range []float64{0, 0.25, 0.5, 1} {
				cfg := hazardConfig()
				cfg.Penetration = pen
				p := NewPipeline(cfg, Deps{Runtime: rt, Facility: fac, Depth: fixedDepth(1), Logger: logging.Discard()})
				pl := fac.AddPlayer(config.PlayerConfig{ID: "p", Room: "dark", HumeShield: shield, Armor: map[string]int{"body": eff}})
				for _, raw := range []float64{0.5, 10, 99} {
					res, err := p.Compute(pl, raw, "body")
					if err != nil {
						t.Fatal(err)
					}
					if res.Final > raw+1e-9 || res.Final < 0 {
						t.Fatalf("eff=%d shield=%v pen=%v raw=%v: final %v", eff, shield, pen, raw, res.Final)
					}
				}
			}
		}
	}
}

func TestDeathScattersItems(t *testing.T) {
	e := newEnv(t, hazardConfig(), fixedDepth(1),
		config.PlayerConfig{ID: "victim", Role: "human", Room: "dark", Health: 5, Items: []config.ItemConfig{
			{Name: "keycard", Weight: 0.01},
			{Name: "rifle", Weight: 4},
		}})
	e.pipe.Tick()
	victim := e.player(t, "victim")
	if victim.Alive() || len(victim.Items()) != 0 || len(victim.Dropped()) != 2 {
		t.Fatalf("alive=%v items=%d dropped=%d", victim.Alive(), len(victim.Items()), len(victim.Dropped()))
	}
	for _, it := range victim.Dropped() {
		v := it.Velocity()
		if v.Len() == 0 || v.Len() > 10+1e-9 {
			t.Errorf("%s speed %v", it.Name(), v.Len())
		}
	}
	if !e.sink.Damage[0].Killed {
		t.Fatal("kill not recorded")
	}
	if len(e.fac.Hints) != 0 {
		t.Fatal("dead players get no hint")
	}
}
