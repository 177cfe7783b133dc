package sanity

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"blackout-sim/internal/config"
	"blackout-sim/internal/coro"
	"blackout-sim/internal/effect"
	"blackout-sim/internal/facility"
	"blackout-sim/internal/hazard"
	"blackout-sim/internal/logging"
	"blackout-sim/internal/telemetry"
)

type blackoutFlag bool

func (b blackoutFlag) IsBlackoutActive() bool { return bool(b) }

type damageCall struct {
	player string
	raw    float64
	region string
	source string
}

type recordingDamager struct {
	calls []damageCall
}

func (d *recordingDamager) Deliver(p facility.Player, raw float64, region, source string) (hazard.Result, error) {
	d.calls = append(d.calls, damageCall{p.ID(), raw, region, source})
	return hazard.Result{Raw: raw, Final: raw}, nil
}

func sanityConfig() config.SanityConfig {
	cfg := config.Default().Sanity
	cfg.StrikeInterval = 0
	cfg.CleanupInterval = 0
	return cfg
}

type env struct {
	rt     *coro.Runtime
	fac    *facility.Memory
	sys    *System
	sink   *telemetry.Memory
	damage *recordingDamager
}

func newEnv(t *testing.T, cfg config.SanityConfig, blackout bool) *env {
	t.Helper()
	rt := coro.New(logging.Discard())
	t.Cleanup(rt.Close)
	fac := facility.NewMemory(config.FacilityConfig{
		Rooms: []config.RoomConfig{{ID: "lit", Zone: "Light"}, {ID: "dark", Zone: "Heavy"}},
		Players: []config.PlayerConfig{
			{ID: "alice", Role: "human", Room: "lit"},
			{ID: "bob", Role: "human", Room: "dark"},
			{ID: "scp", Role: "scp", Room: "dark"},
		},
	}, rt.Now)
	room, _ := fac.Room("dark")
	room.TurnOffLights(time.Hour)
	sink := &telemetry.Memory{}
	dmg := &recordingDamager{}
	sys := NewSystem(cfg, Deps{
		Runtime:   rt,
		Facility:  fac,
		Hinter:    fac,
		Blackout:  blackoutFlag(blackout),
		Damager:   dmg,
		Rand:      rand.New(rand.NewSource(3)),
		Sink:      sink,
		Logger:    logging.Discard(),
		SessionID: "test",
	})
	return &env{rt: rt, fac: fac, sys: sys, sink: sink, damage: dmg}
}

func TestDecayDuringBlackout(t *testing.T) {
	e := newEnv(t, sanityConfig(), true)
	e.sys.Start()
	e.rt.Tick(10 * time.Second)

	// 0.2 * 1.5 per second for ten seconds in a lit room
	got, ok := e.sys.Get("alice")
	if !ok || math.Abs(got-97) > 1e-9 {
		t.Fatalf("alice = %v, want 97", got)
	}
	// the dark room doubles it again
	got, _ = e.sys.Get("bob")
	if math.Abs(got-94) > 1e-9 {
		t.Fatalf("bob = %v, want 94", got)
	}
	if _, ok := e.sys.Get("scp"); ok {
		t.Fatal("non-humans have no sanity")
	}
	if len(e.sink.Sanity) != 20 {
		t.Fatalf("sanity rows = %d, want two per second", len(e.sink.Sanity))
	}
}

func TestDecayWithoutBlackout(t *testing.T) {
	e := newEnv(t, sanityConfig(), false)
	for i := 0; i < 5; i++ {
		e.sys.DecayTick()
	}
	if got, _ := e.sys.Get("alice"); math.Abs(got-99) > 1e-9 {
		t.Fatalf("alice = %v, want 99", got)
	}
}

func TestHintCooldown(t *testing.T) {
	cfg := sanityConfig()
	cfg.HintCooldown = 5
	e := newEnv(t, cfg, false)
	e.sys.Start()
	e.rt.Tick(11 * time.Second)
	// both humans drain every second: hints at 1s, 6s and 11s each
	perPlayer := map[string]int{}
	for _, h := range e.fac.Hints {
		perPlayer[h.PlayerID]++
	}
	if perPlayer["alice"] != 3 || perPlayer["bob"] != 3 || len(perPlayer) != 2 {
		t.Fatalf("hints = %+v", e.fac.Hints)
	}
}

func TestHintInLitRoomDuringBlackout(t *testing.T) {
	e := newEnv(t, sanityConfig(), true)
	e.sys.Start()
	e.rt.Tick(3 * time.Second)
	got, _ := e.sys.Get("alice")
	if got >= 100 {
		t.Fatalf("alice = %v, expected decay", got)
	}
	found := false
	for _, h := range e.fac.Hints {
		if h.PlayerID == "alice" {
			found = true
		}
	}
	if !found {
		t.Fatalf("no decrease hint for alice: %+v", e.fac.Hints)
	}
}

func TestNoHintWithoutDecrease(t *testing.T) {
	cfg := sanityConfig()
	cfg.DecayRateBase = 0
	e := newEnv(t, cfg, true)
	e.sys.Start()
	e.rt.Tick(3 * time.Second)
	if len(e.fac.Hints) != 0 {
		t.Fatalf("hints = %+v", e.fac.Hints)
	}
}

func TestValueIsClamped(t *testing.T) {
	e := newEnv(t, sanityConfig(), true)
	e.sys.Register(e.mustPlayer(t, "alice"))
	if got, _ := e.sys.Change("alice", 50); got != 100 {
		t.Fatalf("over the top: %v", got)
	}
	if got, _ := e.sys.Change("alice", -500); got != 0 {
		t.Fatalf("below zero: %v", got)
	}
	e.sys.DecayTick()
	if got, _ := e.sys.Get("alice"); got != 0 {
		t.Fatalf("decay went negative: %v", got)
	}
	if !e.sys.Set("alice", 250) {
		t.Fatal("set failed")
	}
	if got, _ := e.sys.Get("alice"); got != 100 {
		t.Fatalf("set not clamped: %v", got)
	}
	if e.sys.Set("nobody", 10) {
		t.Fatal("set on a missing record must report false")
	}
}

func TestRecoveryItems(t *testing.T) {
	e := newEnv(t, sanityConfig(), false)
	alice := e.mustPlayer(t, "alice")
	e.sys.Register(alice)
	e.sys.Set("alice", 30)

	amount, ok := e.sys.OnItemUsed(alice, "painkillers")
	if !ok || amount < 10 || amount > 20 {
		t.Fatalf("painkillers restored %v", amount)
	}
	if got, _ := e.sys.Get("alice"); math.Abs(got-(30+amount)) > 1e-9 {
		t.Fatalf("value = %v", got)
	}
	if len(e.fac.Hints) != 1 {
		t.Fatalf("recovery hint missing: %+v", e.fac.Hints)
	}

	e.sys.OnItemUsed(alice, "scp500")
	if got, _ := e.sys.Get("alice"); got != 100 {
		t.Fatalf("scp500 should fully restore, got %v", got)
	}
	if _, ok := e.sys.OnItemUsed(alice, "keycard"); ok {
		t.Fatal("keycard is not a recovery item")
	}
}

func TestStrikeAppliesStage(t *testing.T) {
	e := newEnv(t, sanityConfig(), false)
	alice := e.mustPlayer(t, "alice")
	e.sys.Register(alice)
	e.sys.Set("alice", 10)

	if err := e.sys.Strike(alice); err != nil {
		t.Fatal(err)
	}
	effects := alice.Effects()
	if len(effects) != 2 || effects[0].Kind != effect.Blinded || effects[1].Kind != effect.Traumatized {
		t.Fatalf("effects = %+v", effects)
	}
	want := damageCall{"alice", 5, "body", "sanity"}
	if len(e.damage.calls) != 1 || e.damage.calls[0] != want {
		t.Fatalf("damage = %+v", e.damage.calls)
	}

	e.sys.Set("alice", 90)
	if err := e.sys.Strike(alice); err != nil {
		t.Fatal(err)
	}
	if len(alice.Effects()) != 2 || len(e.damage.calls) != 1 {
		t.Fatal("calm stage must not strike")
	}
}

func TestStrikeUnknownEffect(t *testing.T) {
	cfg := sanityConfig()
	cfg.Stages = []config.StageConfig{
		{Name: "only", Min: 0, Max: 100, Effects: []effect.Descriptor{{Kind: effect.Kind(200)}}},
	}
	e := newEnv(t, cfg, false)
	if err := e.sys.Strike(e.mustPlayer(t, "alice")); !errors.Is(err, effect.ErrUnknownEffect) {
		t.Fatalf("err = %v, want ErrUnknownEffect", err)
	}
	// the bulk loop logs and carries on
	e.sys.StrikeTick()
}

func TestSweepAndForget(t *testing.T) {
	e := newEnv(t, sanityConfig(), false)
	e.sys.DecayTick()
	e.fac.RemovePlayer("alice")
	if n := e.sys.Sweep(); n != 1 {
		t.Fatalf("swept %d", n)
	}
	if _, ok := e.sys.Get("alice"); ok {
		t.Fatal("record survived the sweep")
	}
	e.sys.Forget("bob")
	if len(e.sys.Snapshot()) != 0 {
		t.Fatalf("snapshot = %+v", e.sys.Snapshot())
	}
}

func TestSnapshotOrdered(t *testing.T) {
	e := newEnv(t, sanityConfig(), false)
	e.sys.DecayTick()
	snap := e.sys.Snapshot()
	if len(snap) != 2 || snap[0].PlayerID != "alice" || snap[1].PlayerID != "bob" {
		t.Fatalf("snapshot = %+v", snap)
	}
	if snap[0].Stage != "calm" {
		t.Fatalf("stage = %q", snap[0].Stage)
	}
}

func TestDisabledSystemStartsNothing(t *testing.T) {
	cfg := sanityConfig()
	cfg.Enabled = false
	e := newEnv(t, cfg, true)
	e.sys.Start()
	e.rt.Tick(time.Minute)
	if len(e.sink.Sanity) != 0 {
		t.Fatal("disabled system decayed")
	}
}

func (e *env) mustPlayer(t *testing.T, id string) *facility.MemPlayer {
	t.Helper()
	p, ok := e.fac.MemPlayer(id)
	if !ok {
		t.Fatalf("player %s missing", id)
	}
	return p
}
