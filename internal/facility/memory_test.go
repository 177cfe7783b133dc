package facility

import (
	"testing"
	"time"

	"blackout-sim/internal/config"
	"blackout-sim/internal/effect"
)

type fakeClock struct{ t time.Duration }

func (c *fakeClock) now() time.Duration { return c.t }

func newTestMemory(c *fakeClock) *Memory {
	return NewMemory(config.FacilityConfig{
		Rooms: []config.RoomConfig{
			{ID: "a", Zone: "Heavy", Tesla: true},
			{ID: "b", Zone: "Light", Elevator: true},
		},
		Players: []config.PlayerConfig{
			{ID: "p1", Role: "human", Room: "a", Health: 50, HumeShield: 10, Armor: map[string]int{"body": 40}},
			{ID: "scp", Role: "scp", Room: "b"},
		},
	}, c.now)
}

func TestRoomLightsFollowClock(t *testing.T) {
	c := &fakeClock{}
	m := newTestMemory(c)
	r, _ := m.Room("a")
	r.TurnOffLights(10 * time.Second)
	if !r.LightsOff() {
		t.Fatal("expected lights off")
	}
	r.TurnOffLights(time.Second)
	c.t = 5 * time.Second
	if !r.LightsOff() {
		t.Fatal("shorter request shortened the blackout")
	}
	c.t = 10 * time.Second
	if r.LightsOff() {
		t.Fatal("lights should be back at expiry")
	}
	r.TurnOffLights(time.Minute)
	r.TurnOnLights()
	if r.LightsOff() {
		t.Fatal("TurnOnLights did not restore")
	}
}

func TestOptionalFixturesAreNilInterfaces(t *testing.T) {
	m := newTestMemory(&fakeClock{})
	a, _ := m.Room("a")
	b, _ := m.Room("b")
	if a.Tesla() == nil || a.Elevator() != nil {
		t.Fatal("room a should have only a tesla gate")
	}
	if b.Tesla() != nil || b.Elevator() == nil {
		t.Fatal("room b should have only an elevator")
	}
	if _, ok := m.Room("missing"); ok {
		t.Fatal("unexpected room")
	}
}

func TestPlayerDamageDrainsShieldFirst(t *testing.T) {
	m := newTestMemory(&fakeClock{})
	p, _ := m.MemPlayer("p1")
	out := p.Damage(15, "body")
	if out.ShieldLost != 10 || out.HealthLost != 5 || out.Killed {
		t.Fatalf("unexpected outcome %+v", out)
	}
	out = p.Damage(100, "body")
	if !out.Killed || p.Health() != 0 || p.Alive() {
		t.Fatalf("expected kill, got %+v health=%v", out, p.Health())
	}
	if out := p.Damage(10, "body"); out != (Outcome{}) {
		t.Fatalf("dead player took damage: %+v", out)
	}
}

func TestPlayerAccessors(t *testing.T) {
	m := newTestMemory(&fakeClock{t: time.Second})
	p, _ := m.MemPlayer("p1")
	if eff, ok := p.ArmorEfficacy("body"); !ok || eff != 40 {
		t.Fatalf("armor = %d, %v", eff, ok)
	}
	if _, ok := p.ArmorEfficacy("head"); ok {
		t.Fatal("unexpected head armor")
	}
	if p.Room().ID() != "a" {
		t.Fatalf("room = %s", p.Room().ID())
	}
	p.MoveTo("nowhere")
	if p.Room() != nil {
		t.Fatal("expected nil room")
	}
	p.ApplyEffect(effect.Bleeding, 2, time.Second)
	if got := p.Effects(); len(got) != 1 || got[0].At != time.Second || got[0].Kind != effect.Bleeding {
		t.Fatalf("effects = %+v", got)
	}
	scp, _ := m.MemPlayer("scp")
	if scp.Human() || scp.Health() != 100 {
		t.Fatalf("scp defaults wrong: human=%v health=%v", scp.Human(), scp.Health())
	}
}

func TestRemoveAndRespawn(t *testing.T) {
	m := newTestMemory(&fakeClock{})
	if !m.RemovePlayer("p1") || m.RemovePlayer("p1") {
		t.Fatal("RemovePlayer result mismatch")
	}
	if _, ok := m.Player("p1"); ok {
		t.Fatal("player still present")
	}
	m.AddPlayer(config.PlayerConfig{ID: "scp", Role: "human", Room: "a"})
	if len(m.Players()) != 1 {
		t.Fatalf("respawn should replace, got %d players", len(m.Players()))
	}
}

func TestWarheadStop(t *testing.T) {
	m := NewMemory(config.FacilityConfig{Warhead: config.WarheadConfig{InProgress: true}}, (&fakeClock{}).now)
	w := m.MemWarhead()
	w.Stop()
	w.Stop()
	if w.InProgress() || w.Stops() != 1 {
		t.Fatalf("in progress=%v stops=%d", w.InProgress(), w.Stops())
	}
}
