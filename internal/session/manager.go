package session

import (
	"log/slog"

	"blackout-sim/internal/config"
	"blackout-sim/internal/facility"
)

// Manager turns host events into session lifecycle calls. At most one
// session is live at a time.
type Manager struct {
	cfg     *config.Config
	deps    Deps
	log     *slog.Logger
	current *Session
	onStart []func(*Session)
}

// NewManager returns a manager with no live session.
func NewManager(cfg *config.Config, d Deps) *Manager {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return &Manager{cfg: cfg, deps: d, log: d.Logger}
}

// OnSessionStarted registers fn to run after every RoundStarted, once the
// new session is running.
func (m *Manager) OnSessionStarted(fn func(*Session)) { m.onStart = append(m.onStart, fn) }

// Current returns the live session, or nil between rounds.
func (m *Manager) Current() *Session { return m.current }

// RoundStarted builds and starts a session, ending any previous one.
func (m *Manager) RoundStarted() *Session {
	if m.current != nil {
		m.log.Warn("round started while a session was live, ending it", "session_id", m.current.ID)
		m.current.Teardown()
	}
	s := New(m.cfg, m.deps)
	m.current = s
	s.Start()
	for _, fn := range m.onStart {
		fn(s)
	}
	return s
}

// RoundEnded tears the live session down.
func (m *Manager) RoundEnded() {
	if m.current == nil {
		return
	}
	m.current.Teardown()
	m.current = nil
}

// PlayerSpawned gives a new player a sanity record.
func (m *Manager) PlayerSpawned(p facility.Player) {
	if m.current == nil || p == nil {
		return
	}
	if p.Human() {
		m.current.Sanity.Register(p)
	}
}

// PlayerLeft cancels the player's flicker and forgets their sanity.
func (m *Manager) PlayerLeft(id string) {
	if m.current == nil {
		return
	}
	m.current.PlayerLeft(id)
}

// ItemUsed forwards item use to the sanity system and returns the amount
// restored.
func (m *Manager) ItemUsed(p facility.Player, item string) (float64, bool) {
	if m.current == nil {
		return 0, false
	}
	return m.current.Sanity.OnItemUsed(p, item)
}
