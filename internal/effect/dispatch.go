package effect

import (
	"fmt"
	"time"
)

// defaultDuration applies to timed effects configured without a duration.
const defaultDuration = 5 * time.Second

type applyFunc func(t Target, d Descriptor)

var dispatch = map[Kind]applyFunc{
	Blinded:     applyToggle,
	Deafened:    applyToggle,
	Disabled:    applyToggle,
	Ensnared:    applyToggle,
	Sinkhole:    applyToggle,
	Poisoned:    applyStacking,
	Bleeding:    applyStacking,
	Concussed:   applyTimed,
	Exhausted:   applyTimed,
	Traumatized: applyTimed,
}

// Apply dispatches d onto t.
func Apply(t Target, d Descriptor) error {
	fn, ok := dispatch[d.Kind]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEffect, d.Kind)
	}
	fn(t, d)
	return nil
}

// ApplyAll applies each descriptor in order and stops at the first failure.
func ApplyAll(t Target, ds []Descriptor) error {
	for _, d := range ds {
		if err := Apply(t, d); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks every descriptor against the table without applying it.
func Validate(ds []Descriptor) error {
	for _, d := range ds {
		if _, ok := dispatch[d.Kind]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownEffect, d.Kind)
		}
	}
	return nil
}

// On/off effects ignore intensity.
func applyToggle(t Target, d Descriptor) {
	t.ApplyEffect(d.Kind, 1, d.Length())
}

func applyStacking(t Target, d Descriptor) {
	intensity := d.Intensity
	if intensity == 0 {
		intensity = 1
	}
	t.ApplyEffect(d.Kind, intensity, d.Length())
}

func applyTimed(t Target, d Descriptor) {
	length := d.Length()
	if length <= 0 {
		length = defaultDuration
	}
	t.ApplyEffect(d.Kind, d.Intensity, length)
}
