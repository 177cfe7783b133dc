package blackout

import (
	"math"
	"math/rand"
	"reflect"
	"testing"
	"time"

	"blackout-sim/internal/config"
	"blackout-sim/internal/facility"
	"blackout-sim/internal/logging"
)

// constSource makes every Float64 draw return the same value.
type constSource int64

func (c constSource) Int63() int64 { return int64(c) }
func (constSource) Seed(int64)     {}

func fixedRand(f float64) *rand.Rand {
	return rand.New(constSource(int64(f * (1 << 63))))
}

var testRooms = []config.RoomConfig{
	{ID: "hcz-a", Zone: "Heavy", Tesla: true, Elevator: true},
	{ID: "hcz-b", Zone: "Heavy"},
	{ID: "lcz-a", Zone: "Light", Tesla: true},
	{ID: "ez-a", Zone: "Entrance"},
	{ID: "surface", Zone: "Surface", Elevator: true},
	{ID: "pocket", Zone: "Pocket"},
}

var scenarioZones = []config.ZoneChance{
	{Zone: "Heavy", Chance: 99},
	{Zone: "Light", Chance: 45},
	{Zone: "Entrance", Chance: 65},
	{Zone: "Surface", Chance: 25},
}

type clock struct{ t time.Duration }

func (c *clock) now() time.Duration { return c.t }

func newFacility(c *clock) *facility.Memory {
	return facility.NewMemory(config.FacilityConfig{Rooms: testRooms}, c.now)
}

func TestZoneTrialFrequency(t *testing.T) {
	r := NewResolver(config.BlackoutConfig{}, nil, rand.New(rand.NewSource(7)), logging.Discard())
	const n = 10000
	for _, chance := range []float64{10, 30, 65, 99} {
		hits := 0
		for i := 0; i < n; i++ {
			if r.ZoneTrial(chance) {
				hits++
			}
		}
		freq := float64(hits) / n * 100
		if math.Abs(freq-chance) > 3 {
			t.Errorf("chance %v: observed %.2f%%", chance, freq)
		}
	}
}

func TestZoneTrialBounds(t *testing.T) {
	r := NewResolver(config.BlackoutConfig{}, nil, rand.New(rand.NewSource(1)), logging.Discard())
	for i := 0; i < 1000; i++ {
		if r.ZoneTrial(0) {
			t.Fatal("chance 0 triggered")
		}
		if !r.ZoneTrial(100) {
			t.Fatal("chance 100 did not trigger")
		}
	}
}

func TestResolveZoneMode(t *testing.T) {
	c := &clock{}
	fac := newFacility(c)
	cfg := config.BlackoutConfig{
		Zones:         []config.ZoneChance{{Zone: "Heavy", Chance: 99}, {Zone: "Light", Chance: 0}},
		DisableTeslas: true,
		TeslaBuffer:   0.5,
	}
	r := NewResolver(cfg, fac, fixedRand(0), logging.Discard())
	out := r.Resolve(30*time.Second, 0)
	if !out.Triggered || out.FacilityWide {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if got := out.ZoneList(); !reflect.DeepEqual(got, []string{"Heavy"}) {
		t.Fatalf("zones = %v", got)
	}
	if got := fac.DarkRooms(); !reflect.DeepEqual(got, []string{"hcz-a", "hcz-b"}) {
		t.Fatalf("dark rooms = %v", got)
	}
	hcz, _ := fac.MemRoom("hcz-a")
	if hcz.MemTesla().Triggers() != 1 || hcz.MemTesla().CooldownRemaining() != 30500*time.Millisecond {
		t.Fatalf("tesla not put in cooldown: triggers=%d remaining=%v", hcz.MemTesla().Triggers(), hcz.MemTesla().CooldownRemaining())
	}
	if hcz.MemElevator().Locked() {
		t.Fatal("elevator locked without disable_elevators")
	}
	lcz, _ := fac.MemRoom("lcz-a")
	if lcz.MemTesla().Triggers() != 0 {
		t.Fatal("unaffected tesla triggered")
	}
}

func TestResolveRoomMode(t *testing.T) {
	fac := newFacility(&clock{})
	cfg := config.BlackoutConfig{
		UsePerRoomChances: true,
		Zones:             scenarioZones,
		OtherChance:       60,
		DisableElevators:  true,
	}
	r := NewResolver(cfg, fac, fixedRand(0.5), logging.Discard())
	out := r.Resolve(10*time.Second, 0)
	want := []string{"hcz-a", "hcz-b", "ez-a", "pocket"}
	if !reflect.DeepEqual(out.Rooms, want) {
		t.Fatalf("rooms = %v, want %v", out.Rooms, want)
	}
	hcz, _ := fac.MemRoom("hcz-a")
	surface, _ := fac.MemRoom("surface")
	if !hcz.MemElevator().Locked() || surface.MemElevator().Locked() {
		t.Fatal("only affected elevators should lock")
	}
}

func TestFacilityWideFallback(t *testing.T) {
	fac := newFacility(&clock{})
	cfg := config.BlackoutConfig{
		Zones:                scenarioZones,
		FacilityWideFallback: true,
		TeslaBuffer:          0.5,
	}
	// 99.5 misses every zone, including Heavy at 99.
	r := NewResolver(cfg, fac, fixedRand(0.995), logging.Discard())
	out := r.Resolve(20*time.Second, 0)
	if !out.Triggered || !out.FacilityWide {
		t.Fatalf("expected facility-wide outcome, got %+v", out)
	}
	if len(fac.DarkRooms()) != len(testRooms) {
		t.Fatalf("dark rooms = %v", fac.DarkRooms())
	}
	for _, id := range []string{"hcz-a", "lcz-a"} {
		room, _ := fac.MemRoom(id)
		if !room.MemTesla().CoolingDown() {
			t.Errorf("tesla in %s not forced into cooldown", id)
		}
	}

	// with a blackout already running the fallback does not apply
	fac2 := newFacility(&clock{})
	r2 := NewResolver(cfg, fac2, fixedRand(0.995), logging.Discard())
	if out := r2.Resolve(20*time.Second, 1); out.Triggered {
		t.Fatalf("fallback applied with stack depth 1: %+v", out)
	}
	if len(fac2.DarkRooms()) != 0 {
		t.Fatal("rooms went dark without a trigger")
	}
}

func TestWarheadHalt(t *testing.T) {
	tests := []struct {
		name        string
		locked      bool
		disableNuke bool
		chance      float64
		wantStopped bool
	}{
		{"halted", false, true, 100, true},
		{"locked", true, true, 100, false},
		{"flag off", false, false, 100, false},
		{"no darkness", false, true, 0, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fac := facility.NewMemory(config.FacilityConfig{
				Rooms:   testRooms,
				Warhead: config.WarheadConfig{InProgress: true, Locked: tc.locked},
			}, (&clock{}).now)
			cfg := config.BlackoutConfig{
				Zones:       []config.ZoneChance{{Zone: "Heavy", Chance: tc.chance}},
				DisableNuke: tc.disableNuke,
			}
			NewResolver(cfg, fac, rand.New(rand.NewSource(3)), logging.Discard()).Resolve(time.Second, 0)
			if stopped := !fac.Warhead().InProgress(); stopped != tc.wantStopped {
				t.Fatalf("stopped = %v, want %v", stopped, tc.wantStopped)
			}
		})
	}
}
