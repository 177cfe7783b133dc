package sanity

import (
	"sort"

	"blackout-sim/internal/config"
	"blackout-sim/internal/effect"
)

// Stage is one sanity band. A value belongs to it when it lies in
// (Min, Max]; the lowest stage also owns Min itself.
type Stage struct {
	Name           string
	Min            float64
	Max            float64
	DamageOnStrike float64
	Effects        []effect.Descriptor
}

// Stages is a table ordered by Min.
type Stages []Stage

// NewStages copies cfg into a table sorted by Min.
func NewStages(cfg []config.StageConfig) Stages {
	out := make(Stages, 0, len(cfg))
	for _, c := range cfg {
		out = append(out, Stage{
			Name:           c.Name,
			Min:            c.Min,
			Max:            c.Max,
			DamageOnStrike: c.DamageOnStrike,
			Effects:        append([]effect.Descriptor(nil), c.Effects...),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Min < out[j].Min })
	return out
}

// Lookup returns the stage containing v.
func (s Stages) Lookup(v float64) (Stage, bool) {
	for i, st := range s {
		if v > st.Min && v <= st.Max {
			return st, true
		}
		if i == 0 && v == st.Min {
			return st, true
		}
	}
	return Stage{}, false
}
