// Package facility defines the host capabilities the blackout core relies
// on, plus an in-memory host used by the simulator and tests.
package facility

import (
	"math"
	"time"

	"blackout-sim/internal/effect"
)

// Facility is the shared map and its population.
type Facility interface {
	Rooms() []Room
	Room(id string) (Room, bool)
	Players() []Player
	Player(id string) (Player, bool)
	Warhead() Warhead
}

// Room is a lightable area belonging to a zone. Tesla and Elevator return
// nil when the room has none.
type Room interface {
	ID() string
	Zone() string
	LightsOff() bool
	TurnOffLights(d time.Duration)
	TurnOnLights()
	Tesla() TeslaGate
	Elevator() Elevator
}

type TeslaGate interface {
	ForceTrigger()
	SetCooldown(d time.Duration)
	ResetCooldown()
}

type Elevator interface {
	Lock()
	Unlock()
	Locked() bool
}

type Warhead interface {
	InProgress() bool
	Locked() bool
	Stop()
}

// Player is a participant. Room returns nil when the player is nowhere.
type Player interface {
	effect.Target
	ID() string
	Alive() bool
	Human() bool
	EmittingLight() bool
	SetLightEnabled(on bool)
	Room() Room
	HumeShield() float64
	// ArmorEfficacy reports the armor rating (0-100) protecting region.
	ArmorEfficacy(region string) (int, bool)
	// Damage delivers an already mitigated amount. Hume shield drains first.
	Damage(amount float64, region string) Outcome
	// DropItems detaches and returns everything the player holds.
	DropItems() []Pickup
}

// Pickup is an item lying in the world.
type Pickup interface {
	Name() string
	Weight() float64
	SetVelocity(v Vec3)
}

type Announcer interface {
	Announce(message string, glitchy bool)
}

type Hinter interface {
	Hint(player Player, text string, d time.Duration)
}

// Outcome is the result of a Damage call.
type Outcome struct {
	Delivered  float64
	ShieldLost float64
	HealthLost float64
	Killed     bool
}

// Vec3 is a world-space vector, Y up.
type Vec3 struct {
	X, Y, Z float64
}

func (v Vec3) Len() float64 { return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z) }

func (v Vec3) Scale(f float64) Vec3 { return Vec3{v.X * f, v.Y * f, v.Z * f} }
