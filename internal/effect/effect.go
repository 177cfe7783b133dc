// Package effect defines the closed set of status effects that stages and
// hazard strikes can apply, and the table that dispatches them.
package effect

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrUnknownEffect is returned for any kind outside the dispatch table.
var ErrUnknownEffect = errors.New("unknown effect type")

// Kind identifies a status effect.
type Kind uint8

const (
	Invalid Kind = iota
	Blinded
	Concussed
	Deafened
	Disabled
	Ensnared
	Exhausted
	Poisoned
	Bleeding
	Traumatized
	Sinkhole
)

var kindNames = map[Kind]string{
	Blinded:     "blinded",
	Concussed:   "concussed",
	Deafened:    "deafened",
	Disabled:    "disabled",
	Ensnared:    "ensnared",
	Exhausted:   "exhausted",
	Poisoned:    "poisoned",
	Bleeding:    "bleeding",
	Traumatized: "traumatized",
	Sinkhole:    "sinkhole",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind resolves a case-insensitive effect name.
func ParseKind(s string) (Kind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return Invalid, fmt.Errorf("%w: %q", ErrUnknownEffect, s)
}

// UnmarshalYAML rejects names outside the enumeration.
func (k *Kind) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseKind(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*k = parsed
	return nil
}

// MarshalYAML writes the kind by name.
func (k Kind) MarshalYAML() (any, error) { return k.String(), nil }

// MarshalText writes the kind by name, used for JSON rows.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Descriptor is one effect application.
type Descriptor struct {
	Kind      Kind    `yaml:"type" json:"type"`
	Intensity uint8   `yaml:"intensity,omitempty" json:"intensity"`
	Duration  float64 `yaml:"duration,omitempty" json:"duration_s"`
}

// Length returns Duration as a time.Duration.
func (d Descriptor) Length() time.Duration {
	return time.Duration(d.Duration * float64(time.Second))
}

// Target receives effects. Players in the host facility implement it.
type Target interface {
	ApplyEffect(kind Kind, intensity uint8, duration time.Duration)
}
