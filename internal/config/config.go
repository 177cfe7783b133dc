// YAML config loader with CUE validation integration
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"blackout-sim/internal/effect"
)

// ErrInvalidStages reports a sanity stage table that does not partition [0,100].
var ErrInvalidStages = errors.New("invalid sanity stages")

// ErrInvalidChance reports a zone chance outside [0,100].
var ErrInvalidChance = errors.New("invalid chance")

// Seconds is a duration written as (fractional) seconds in YAML.
type Seconds float64

// Duration converts s to a time.Duration.
func (s Seconds) Duration() time.Duration {
	return time.Duration(float64(s) * float64(time.Second))
}

// ZoneChance is the blackout probability of one zone, as a percentage.
type ZoneChance struct {
	Zone   string  `yaml:"zone"`
	Chance float64 `yaml:"chance"`
}

// Announcements are the CASSIE-style broadcast texts. Each is a gotext key.
type Announcements struct {
	Warning      string `yaml:"warning"`
	End          string `yaml:"end"`
	FalseAlarm   string `yaml:"false_alarm"`
	FacilityWide string `yaml:"facility_wide"`
	Glitchy      bool   `yaml:"glitchy"`
}

// BlackoutConfig drives the scheduler and the resolver.
type BlackoutConfig struct {
	Enabled              bool          `yaml:"enabled"`
	InitialDelay         Seconds       `yaml:"initial_delay"`
	RandomEvents         bool          `yaml:"random_events"`
	DelayMin             Seconds       `yaml:"delay_min"`
	DelayMax             Seconds       `yaml:"delay_max"`
	DurationMin          Seconds       `yaml:"duration_min"`
	DurationMax          Seconds       `yaml:"duration_max"`
	WarningLead          Seconds       `yaml:"warning_lead"`
	FlickerLights        bool          `yaml:"flicker_lights"`
	FlickerDuration      Seconds       `yaml:"flicker_duration"`
	UsePerRoomChances    bool          `yaml:"use_per_room_chances"`
	Zones                []ZoneChance  `yaml:"zones"`
	OtherChance          float64       `yaml:"other_chance"`
	FacilityWideFallback bool          `yaml:"facility_wide_fallback"`
	DisableTeslas        bool          `yaml:"disable_teslas"`
	TeslaBuffer          Seconds       `yaml:"tesla_buffer"`
	DisableNuke          bool          `yaml:"disable_nuke"`
	DisableElevators     bool          `yaml:"disable_elevators"`
	Announcements        Announcements `yaml:"announcements"`
}

// ChanceFor returns the configured chance of zone, or OtherChance.
func (b BlackoutConfig) ChanceFor(zone string) float64 {
	for _, z := range b.Zones {
		if z.Zone == zone {
			return z.Chance
		}
	}
	return b.OtherChance
}

// HazardConfig drives the damage pipeline.
type HazardConfig struct {
	Enabled           bool                `yaml:"enabled"`
	ActionDelay       Seconds             `yaml:"action_delay"`
	BaseDamage        float64             `yaml:"base_damage"`
	Penetration       float64             `yaml:"penetration"`
	StrikeRegion      string              `yaml:"strike_region"`
	HitboxMultipliers map[string]float64  `yaml:"hitbox_multipliers"`
	OnStrikeEffects   []effect.Descriptor `yaml:"on_strike_effects"`
	Hint              string              `yaml:"hint"`
	HintDuration      Seconds             `yaml:"hint_duration"`
	FlickerNearby     bool                `yaml:"flicker_nearby"`
	FlickerToggles    int                 `yaml:"flicker_toggles"`
	FlickerInterval   Seconds             `yaml:"flicker_interval"`
	ItemForceMin      float64             `yaml:"item_force_min"`
	ItemForceMax      float64             `yaml:"item_force_max"`
	MinItemWeight     float64             `yaml:"min_item_weight"`
	MaxItemSpeed      float64             `yaml:"max_item_speed"`
}

// StageConfig is one sanity band, covering (Min, Max].
type StageConfig struct {
	Name           string              `yaml:"name"`
	Min            float64             `yaml:"min"`
	Max            float64             `yaml:"max"`
	DamageOnStrike float64             `yaml:"damage_on_strike"`
	Effects        []effect.Descriptor `yaml:"effects"`
}

// RecoveryItem restores a uniform [Min, Max] amount of sanity when used.
type RecoveryItem struct {
	Item   string  `yaml:"item"`
	Min    float64 `yaml:"min"`
	Max    float64 `yaml:"max"`
	Notify bool    `yaml:"notify"`
	Hint   string  `yaml:"hint"`
}

// SanityConfig drives the sanity system.
type SanityConfig struct {
	Enabled            bool           `yaml:"enabled"`
	StartingValue      float64        `yaml:"starting_value"`
	DecayRateBase      float64        `yaml:"decay_rate_base"`
	MultiplierBlackout float64        `yaml:"multiplier_blackout"`
	MultiplierDarkness float64        `yaml:"multiplier_darkness"`
	HintsEnabled       bool           `yaml:"hints_enabled"`
	HintCooldown       Seconds        `yaml:"hint_cooldown"`
	HintDuration       Seconds        `yaml:"hint_duration"`
	DecreaseHint       string         `yaml:"decrease_hint"`
	StrikeInterval     Seconds        `yaml:"strike_interval"`
	StrikeRegion       string         `yaml:"strike_region"`
	CleanupInterval    Seconds        `yaml:"cleanup_interval"`
	Stages             []StageConfig  `yaml:"stages"`
	RecoveryItems      []RecoveryItem `yaml:"recovery_items"`
}

// RoomConfig describes one room of the in-memory facility.
type RoomConfig struct {
	ID         string   `yaml:"id"`
	Zone       string   `yaml:"zone"`
	Tesla      bool     `yaml:"tesla"`
	Elevator   bool     `yaml:"elevator"`
	Neighbours []string `yaml:"neighbours"`
}

// ItemConfig is an item held by a player.
type ItemConfig struct {
	Name   string  `yaml:"name"`
	Weight float64 `yaml:"weight"`
}

// PlayerConfig describes one simulated player.
type PlayerConfig struct {
	ID         string         `yaml:"id"`
	Role       string         `yaml:"role"`
	Room       string         `yaml:"room"`
	Health     float64        `yaml:"health"`
	HumeShield float64        `yaml:"hume_shield"`
	Armor      map[string]int `yaml:"armor"`
	Light      bool           `yaml:"light"`
	Items      []ItemConfig   `yaml:"items"`
}

// WarheadConfig is the initial warhead state.
type WarheadConfig struct {
	InProgress bool `yaml:"in_progress"`
	Locked     bool `yaml:"locked"`
}

// FacilityConfig is the layout of the in-memory host.
type FacilityConfig struct {
	Rooms   []RoomConfig   `yaml:"rooms"`
	Players []PlayerConfig `yaml:"players"`
	Warhead WarheadConfig  `yaml:"warhead"`
}

// CrowdConfig drives the random-walk player engine.
type CrowdConfig struct {
	MoveChance        float64 `yaml:"move_chance"`
	LightToggleChance float64 `yaml:"light_toggle_chance"`
	Interval          Seconds `yaml:"interval"`
}

// Config is the root configuration.
type Config struct {
	Blackout BlackoutConfig `yaml:"blackout"`
	Hazard   HazardConfig   `yaml:"hazard"`
	Sanity   SanityConfig   `yaml:"sanity"`
	Facility FacilityConfig `yaml:"facility"`
	Crowd    CrowdConfig    `yaml:"crowd"`
}

// Load loads YAML config on top of Default and validates it. The CUE
// schema check is skipped when cueSchemaPath is empty.
func Load(configPath, cueSchemaPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if cueSchemaPath != "" {
		if err := validateYAML(configPath, data, cueSchemaPath); err != nil {
			return nil, err
		}
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", configPath, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", configPath, err)
	}
	return cfg, nil
}

// Validate checks the structural rules that clamping cannot repair.
func (c *Config) Validate() error {
	for _, z := range c.Blackout.Zones {
		if z.Chance < 0 || z.Chance > 100 {
			return fmt.Errorf("%w: zone %s has %v", ErrInvalidChance, z.Zone, z.Chance)
		}
	}
	if c.Blackout.OtherChance < 0 || c.Blackout.OtherChance > 100 {
		return fmt.Errorf("%w: other_chance %v", ErrInvalidChance, c.Blackout.OtherChance)
	}
	if err := effect.Validate(c.Hazard.OnStrikeEffects); err != nil {
		return fmt.Errorf("hazard on_strike_effects: %w", err)
	}
	return validateStages(c.Sanity.Stages)
}

func validateStages(stages []StageConfig) error {
	if len(stages) == 0 {
		return fmt.Errorf("%w: no stages", ErrInvalidStages)
	}
	sorted := append([]StageConfig(nil), stages...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Min < sorted[j].Min })
	if sorted[0].Min != 0 {
		return fmt.Errorf("%w: lowest stage starts at %v", ErrInvalidStages, sorted[0].Min)
	}
	for i, s := range sorted {
		if s.Min >= s.Max {
			return fmt.Errorf("%w: stage %q is empty", ErrInvalidStages, s.Name)
		}
		if i > 0 && s.Min != sorted[i-1].Max {
			return fmt.Errorf("%w: gap or overlap between %q and %q", ErrInvalidStages, sorted[i-1].Name, s.Name)
		}
		if err := effect.Validate(s.Effects); err != nil {
			return fmt.Errorf("stage %q: %w", s.Name, err)
		}
	}
	if last := sorted[len(sorted)-1]; last.Max != 100 {
		return fmt.Errorf("%w: highest stage ends at %v", ErrInvalidStages, last.Max)
	}
	return nil
}
