package scenario

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Trigger events.
const (
	EventTimeElapsed     = "time_elapsed"
	EventBlackoutStarted = "blackout_started"
	EventBlackoutEnded   = "blackout_ended"
	EventPlayerKilled    = "player_killed"
)

// Action types.
const (
	ActionTriggerBlackout = "trigger_blackout"
	ActionUseItem         = "use_item"
	ActionToggleLight     = "toggle_light"
	ActionMove            = "move"
	ActionSpawn           = "spawn"
	ActionLeave           = "leave"
)

// Script defines a round with ordered phases and an overall description.
type Script struct {
	Name        string  `yaml:"name,omitempty"`
	Description string  `yaml:"description,omitempty"`
	Phases      []Phase `yaml:"phases"`
}

// Phase is one stage of the round. Its actions run on entry; the first
// matching trigger moves the script on.
type Phase struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description,omitempty"`
	Actions     []Action  `yaml:"actions,omitempty"`
	Triggers    []Trigger `yaml:"triggers,omitempty"`
}

// Action is scripted host input.
type Action struct {
	Type   string `yaml:"type"`
	Player string `yaml:"player,omitempty"`
	Item   string `yaml:"item,omitempty"`
	Room   string `yaml:"room,omitempty"`
	// Role applies to spawn; empty means human.
	Role string `yaml:"role,omitempty"`
}

// Trigger moves the script to Next once Event reached Value. For
// time_elapsed the value is seconds spent in the phase, otherwise it is the
// number of matching events seen in the phase. Player narrows
// player_killed to one player.
type Trigger struct {
	Event  string `yaml:"event"`
	Value  int    `yaml:"value"`
	Player string `yaml:"player,omitempty"`
	Next   string `yaml:"next"`
}

// Event is a runtime occurrence that may advance the script.
type Event struct {
	Type   string
	Value  int
	Player string
}

// Load reads a YAML script from disk.
func Load(path string) (*Script, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var s Script
	if err := yaml.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return &s, nil
}

// Validate checks that phases exist, triggers point at known phases and
// every event and action type is known.
func (s *Script) Validate() error {
	if len(s.Phases) == 0 {
		return fmt.Errorf("no phases")
	}
	names := make(map[string]bool, len(s.Phases))
	for _, p := range s.Phases {
		names[p.Name] = true
	}
	for _, p := range s.Phases {
		for _, a := range p.Actions {
			switch a.Type {
			case ActionTriggerBlackout, ActionUseItem, ActionToggleLight, ActionMove, ActionSpawn, ActionLeave:
			default:
				return fmt.Errorf("phase %q: unknown action %q", p.Name, a.Type)
			}
		}
		for _, tr := range p.Triggers {
			switch tr.Event {
			case EventTimeElapsed, EventBlackoutStarted, EventBlackoutEnded, EventPlayerKilled:
			default:
				return fmt.Errorf("phase %q: unknown event %q", p.Name, tr.Event)
			}
			if !names[tr.Next] {
				return fmt.Errorf("phase %q: trigger points at unknown phase %q", p.Name, tr.Next)
			}
		}
	}
	return nil
}

// NextPhase returns the name of the next phase given the current phase and
// event. If no trigger matches, ok is false.
func (s *Script) NextPhase(current string, ev Event) (next string, ok bool) {
	for _, p := range s.Phases {
		if p.Name != current {
			continue
		}
		for _, tr := range p.Triggers {
			if tr.Event != ev.Type || ev.Value < tr.Value {
				continue
			}
			if tr.Player != "" && tr.Player != ev.Player {
				continue
			}
			return tr.Next, true
		}
	}
	return "", false
}

// Phase returns the named phase.
func (s *Script) Phase(name string) (Phase, bool) {
	for _, p := range s.Phases {
		if p.Name == name {
			return p, true
		}
	}
	return Phase{}, false
}
