// Package crowd moves simulated players around the facility with a random
// walk so blackouts have someone to catch.
package crowd

import (
	"math/rand"

	"blackout-sim/internal/config"
	"blackout-sim/internal/facility"
)

// Move records one player changing rooms.
type Move struct {
	PlayerID string `json:"player_id"`
	From     string `json:"from"`
	To       string `json:"to"`
}

// StepResult lists what one Step changed.
type StepResult struct {
	Moves   []Move
	Toggled []string
}

// Engine is a random-walk driver over the in-memory host.
type Engine struct {
	MoveChance        float64
	LightToggleChance float64

	fac       *facility.Memory
	rand      *rand.Rand
	randFloat func() float64
}

// NewEngine returns an engine drawing from rng. A nil rng uses a fixed seed.
func NewEngine(cfg config.CrowdConfig, fac *facility.Memory, rng *rand.Rand) *Engine {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &Engine{
		MoveChance:        cfg.MoveChance,
		LightToggleChance: cfg.LightToggleChance,
		fac:               fac,
		rand:              rng,
		randFloat:         rng.Float64,
	}
}

// Step gives every living player one chance to walk to a neighbouring room
// and one chance to flip their light.
func (e *Engine) Step() StepResult {
	var res StepResult
	for _, p := range e.fac.MemPlayers() {
		if !p.Alive() {
			continue
		}
		if e.randFloat() < e.MoveChance {
			if to, ok := e.pickNeighbour(p.RoomID()); ok {
				res.Moves = append(res.Moves, Move{PlayerID: p.ID(), From: p.RoomID(), To: to})
				p.MoveTo(to)
			}
		}
		if p.Human() && e.randFloat() < e.LightToggleChance {
			p.SetLightEnabled(!p.LightEnabled())
			res.Toggled = append(res.Toggled, p.ID())
		}
	}
	return res
}

func (e *Engine) pickNeighbour(roomID string) (string, bool) {
	room, ok := e.fac.MemRoom(roomID)
	if !ok {
		return "", false
	}
	var open []string
	for _, id := range room.Neighbours() {
		if _, ok := e.fac.MemRoom(id); ok {
			open = append(open, id)
		}
	}
	if len(open) == 0 {
		return "", false
	}
	return open[e.rand.Intn(len(open))], true
}
