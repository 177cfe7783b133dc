// Row types emitted by the blackout core, with the JSON tags used by the
// file, stdout and websocket writers.
package telemetry

import "time"

const (
	BlackoutStarted    = "started"
	BlackoutEnded      = "ended"
	BlackoutFalseAlarm = "false_alarm"
)

// BlackoutRow records one scheduler decision.
type BlackoutRow struct {
	SessionID    string    `json:"session_id"`
	InstanceID   string    `json:"instance_id,omitempty"`
	Event        string    `json:"event"`
	Zones        []string  `json:"zones,omitempty"`
	Rooms        []string  `json:"rooms,omitempty"`
	FacilityWide bool      `json:"facility_wide"`
	DurationS    float64   `json:"duration_s"`
	StackDepth   int       `json:"stack_depth"`
	ElapsedS     float64   `json:"elapsed_s"`
	Timestamp    time.Time `json:"ts"`
}

// DamageRow records one hazard strike.
type DamageRow struct {
	SessionID  string    `json:"session_id"`
	PlayerID   string    `json:"player_id"`
	Room       string    `json:"room"`
	Region     string    `json:"region"`
	Raw        float64   `json:"raw"`
	Final      float64   `json:"final"`
	Absorbed   float64   `json:"absorbed"`
	StackDepth int       `json:"stack_depth"`
	Killed     bool      `json:"killed"`
	Source     string    `json:"source"`
	ElapsedS   float64   `json:"elapsed_s"`
	Timestamp  time.Time `json:"ts"`
}

// SanityRow is one player's sanity after a decay tick.
type SanityRow struct {
	SessionID string    `json:"session_id"`
	PlayerID  string    `json:"player_id"`
	Value     float64   `json:"value"`
	Stage     string    `json:"stage"`
	Rate      float64   `json:"rate"`
	Dark      bool      `json:"dark"`
	ElapsedS  float64   `json:"elapsed_s"`
	Timestamp time.Time `json:"ts"`
}

// SessionStateRow captures per-second round state.
type SessionStateRow struct {
	SessionID      string    `json:"session_id"`
	RoundActive    bool      `json:"round_active"`
	BlackoutActive bool      `json:"blackout_active"`
	StackDepth     int       `json:"stack_depth"`
	PlayersAlive   int       `json:"players_alive"`
	DarkRooms      int       `json:"dark_rooms"`
	ElapsedS       float64   `json:"elapsed_s"`
	Timestamp      time.Time `json:"ts"`
}

// Elapsed converts a simulated duration to the ElapsedS representation.
func Elapsed(d time.Duration) float64 { return d.Seconds() }
