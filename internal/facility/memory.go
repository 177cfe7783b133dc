package facility

import (
	"time"

	"blackout-sim/internal/config"
	"blackout-sim/internal/effect"
)

// Clock returns the current simulated time.
type Clock func() time.Duration

// Role of a player in the round.
type Role string

const (
	RoleHuman     Role = "human"
	RoleSCP       Role = "scp"
	RoleSpectator Role = "spectator"
)

// Announcement is a recorded broadcast.
type Announcement struct {
	At      time.Duration
	Message string
	Glitchy bool
}

// HintRecord is a recorded on-screen hint.
type HintRecord struct {
	At       time.Duration
	PlayerID string
	Text     string
	Duration time.Duration
}

// Memory is an in-memory Facility that also records announcements and
// hints. It is not safe for concurrent use; drive it from the runtime.
type Memory struct {
	now      Clock
	rooms    []*MemRoom
	roomByID map[string]*MemRoom
	players  []*MemPlayer
	warhead  *MemWarhead

	Announcements []Announcement
	Hints         []HintRecord
}

// NewMemory builds a facility from cfg. Players referencing unknown rooms
// start nowhere.
func NewMemory(cfg config.FacilityConfig, now Clock) *Memory {
	m := &Memory{
		now:      now,
		roomByID: make(map[string]*MemRoom),
		warhead:  &MemWarhead{inProgress: cfg.Warhead.InProgress, locked: cfg.Warhead.Locked},
	}
	for _, rc := range cfg.Rooms {
		m.AddRoom(rc)
	}
	for _, pc := range cfg.Players {
		m.AddPlayer(pc)
	}
	return m
}

// AddRoom adds a room built from rc.
func (m *Memory) AddRoom(rc config.RoomConfig) *MemRoom {
	r := &MemRoom{
		id:         rc.ID,
		zone:       rc.Zone,
		neighbours: append([]string(nil), rc.Neighbours...),
		now:        m.now,
	}
	if rc.Tesla {
		r.tesla = &MemTesla{now: m.now}
	}
	if rc.Elevator {
		r.elevator = &MemElevator{}
	}
	m.rooms = append(m.rooms, r)
	m.roomByID[r.id] = r
	return r
}

// AddPlayer spawns a player built from pc.
func (m *Memory) AddPlayer(pc config.PlayerConfig) *MemPlayer {
	p := &MemPlayer{
		fac:    m,
		id:     pc.ID,
		role:   Role(pc.Role),
		room:   pc.Room,
		health: pc.Health,
		shield: pc.HumeShield,
		armor:  make(map[string]int, len(pc.Armor)),
		light:  pc.Light,
	}
	if p.role == "" {
		p.role = RoleHuman
	}
	if p.health <= 0 && p.role != RoleSpectator {
		p.health = 100
	}
	for region, eff := range pc.Armor {
		p.armor[region] = eff
	}
	for _, it := range pc.Items {
		p.items = append(p.items, &MemPickup{name: it.Name, weight: it.Weight})
	}
	m.RemovePlayer(pc.ID)
	m.players = append(m.players, p)
	return p
}

// RemovePlayer removes the player with id. It reports whether one existed.
func (m *Memory) RemovePlayer(id string) bool {
	for i, p := range m.players {
		if p.id == id {
			m.players = append(m.players[:i], m.players[i+1:]...)
			return true
		}
	}
	return false
}

func (m *Memory) Rooms() []Room {
	out := make([]Room, len(m.rooms))
	for i, r := range m.rooms {
		out[i] = r
	}
	return out
}

func (m *Memory) Room(id string) (Room, bool) {
	r, ok := m.roomByID[id]
	if !ok {
		return nil, false
	}
	return r, true
}

// MemRoom returns the concrete room for id.
func (m *Memory) MemRoom(id string) (*MemRoom, bool) {
	r, ok := m.roomByID[id]
	return r, ok
}

func (m *Memory) Players() []Player {
	out := make([]Player, len(m.players))
	for i, p := range m.players {
		out[i] = p
	}
	return out
}

func (m *Memory) Player(id string) (Player, bool) {
	p, ok := m.MemPlayer(id)
	if !ok {
		return nil, false
	}
	return p, true
}

// MemPlayer returns the concrete player for id.
func (m *Memory) MemPlayer(id string) (*MemPlayer, bool) {
	for _, p := range m.players {
		if p.id == id {
			return p, true
		}
	}
	return nil, false
}

// MemPlayers returns the concrete players in spawn order.
func (m *Memory) MemPlayers() []*MemPlayer {
	return append([]*MemPlayer(nil), m.players...)
}

func (m *Memory) Warhead() Warhead { return m.warhead }

// MemWarhead returns the concrete warhead.
func (m *Memory) MemWarhead() *MemWarhead { return m.warhead }

func (m *Memory) Announce(message string, glitchy bool) {
	m.Announcements = append(m.Announcements, Announcement{At: m.now(), Message: message, Glitchy: glitchy})
}

func (m *Memory) Hint(p Player, text string, d time.Duration) {
	m.Hints = append(m.Hints, HintRecord{At: m.now(), PlayerID: p.ID(), Text: text, Duration: d})
}

// DarkRooms returns the IDs of rooms whose lights are currently off.
func (m *Memory) DarkRooms() []string {
	var ids []string
	for _, r := range m.rooms {
		if r.LightsOff() {
			ids = append(ids, r.id)
		}
	}
	return ids
}

// MemRoom is a room of the in-memory host.
type MemRoom struct {
	id         string
	zone       string
	neighbours []string
	now        Clock
	darkUntil  time.Duration
	tesla      *MemTesla
	elevator   *MemElevator
}

func (r *MemRoom) ID() string   { return r.id }
func (r *MemRoom) Zone() string { return r.zone }

// Neighbours lists rooms reachable from r.
func (r *MemRoom) Neighbours() []string { return r.neighbours }

func (r *MemRoom) LightsOff() bool { return r.now() < r.darkUntil }

// TurnOffLights keeps the lights off for at least d from now. A shorter
// request never shortens an ongoing blackout.
func (r *MemRoom) TurnOffLights(d time.Duration) {
	if until := r.now() + d; until > r.darkUntil {
		r.darkUntil = until
	}
}

func (r *MemRoom) TurnOnLights() { r.darkUntil = 0 }

func (r *MemRoom) Tesla() TeslaGate {
	if r.tesla == nil {
		return nil
	}
	return r.tesla
}

func (r *MemRoom) Elevator() Elevator {
	if r.elevator == nil {
		return nil
	}
	return r.elevator
}

// MemTesla returns the concrete tesla gate, or nil.
func (r *MemRoom) MemTesla() *MemTesla { return r.tesla }

// MemElevator returns the concrete elevator, or nil.
func (r *MemRoom) MemElevator() *MemElevator { return r.elevator }

type MemTesla struct {
	now           Clock
	triggers      int
	cooldownUntil time.Duration
}

func (t *MemTesla) ForceTrigger()               { t.triggers++ }
func (t *MemTesla) SetCooldown(d time.Duration) { t.cooldownUntil = t.now() + d }
func (t *MemTesla) ResetCooldown()              { t.cooldownUntil = 0 }

// CoolingDown reports whether the gate is inactive.
func (t *MemTesla) CoolingDown() bool { return t.now() < t.cooldownUntil }

// CooldownRemaining is the time left before the gate re-arms.
func (t *MemTesla) CooldownRemaining() time.Duration {
	if left := t.cooldownUntil - t.now(); left > 0 {
		return left
	}
	return 0
}

func (t *MemTesla) Triggers() int { return t.triggers }

type MemElevator struct{ locked bool }

func (e *MemElevator) Lock()        { e.locked = true }
func (e *MemElevator) Unlock()      { e.locked = false }
func (e *MemElevator) Locked() bool { return e.locked }

type MemWarhead struct {
	inProgress bool
	locked     bool
	stops      int
}

func (w *MemWarhead) InProgress() bool { return w.inProgress }
func (w *MemWarhead) Locked() bool     { return w.locked }

func (w *MemWarhead) Stop() {
	if w.inProgress {
		w.inProgress = false
		w.stops++
	}
}

// Start begins the detonation sequence.
func (w *MemWarhead) Start()           { w.inProgress = true }
func (w *MemWarhead) SetLocked(l bool) { w.locked = l }
func (w *MemWarhead) Stops() int       { return w.stops }

// AppliedEffect is a recorded status effect.
type AppliedEffect struct {
	At        time.Duration
	Kind      effect.Kind
	Intensity uint8
	Duration  time.Duration
}

// MemPlayer is a player of the in-memory host.
type MemPlayer struct {
	fac     *Memory
	id      string
	role    Role
	room    string
	health  float64
	shield  float64
	armor   map[string]int
	light   bool
	items   []*MemPickup
	dropped []*MemPickup
	effects []AppliedEffect
}

func (p *MemPlayer) ID() string          { return p.id }
func (p *MemPlayer) Alive() bool         { return p.role != RoleSpectator && p.health > 0 }
func (p *MemPlayer) Human() bool         { return p.role == RoleHuman }
func (p *MemPlayer) EmittingLight() bool { return p.light && p.Alive() }
func (p *MemPlayer) HumeShield() float64 { return p.shield }
func (p *MemPlayer) Health() float64     { return p.health }
func (p *MemPlayer) Role() Role          { return p.role }

func (p *MemPlayer) SetLightEnabled(on bool) { p.light = on }

// LightEnabled reports the raw light toggle, regardless of life state.
func (p *MemPlayer) LightEnabled() bool { return p.light }

func (p *MemPlayer) Room() Room {
	r, ok := p.fac.roomByID[p.room]
	if !ok {
		return nil
	}
	return r
}

// RoomID returns the ID of the player's room.
func (p *MemPlayer) RoomID() string { return p.room }

// MoveTo places the player in room id.
func (p *MemPlayer) MoveTo(id string) { p.room = id }

func (p *MemPlayer) ArmorEfficacy(region string) (int, bool) {
	eff, ok := p.armor[region]
	return eff, ok
}

func (p *MemPlayer) Damage(amount float64, region string) Outcome {
	if !p.Alive() || amount <= 0 {
		return Outcome{}
	}
	out := Outcome{Delivered: amount}
	out.ShieldLost = min(p.shield, amount)
	p.shield -= out.ShieldLost
	rest := amount - out.ShieldLost
	out.HealthLost = min(p.health, rest)
	p.health -= out.HealthLost
	if p.health <= 0 {
		p.health = 0
		out.Killed = true
	}
	return out
}

func (p *MemPlayer) DropItems() []Pickup {
	out := make([]Pickup, len(p.items))
	for i, it := range p.items {
		out[i] = it
	}
	p.dropped = append(p.dropped, p.items...)
	p.items = nil
	return out
}

// Items returns the held items.
func (p *MemPlayer) Items() []*MemPickup { return p.items }

// Dropped returns every item the player has dropped.
func (p *MemPlayer) Dropped() []*MemPickup { return p.dropped }

func (p *MemPlayer) ApplyEffect(kind effect.Kind, intensity uint8, d time.Duration) {
	p.effects = append(p.effects, AppliedEffect{At: p.fac.now(), Kind: kind, Intensity: intensity, Duration: d})
}

// Effects returns the effects applied so far.
func (p *MemPlayer) Effects() []AppliedEffect { return p.effects }

type MemPickup struct {
	name     string
	weight   float64
	velocity Vec3
}

func (i *MemPickup) Name() string       { return i.name }
func (i *MemPickup) Weight() float64    { return i.weight }
func (i *MemPickup) SetVelocity(v Vec3) { i.velocity = v }
func (i *MemPickup) Velocity() Vec3     { return i.velocity }
