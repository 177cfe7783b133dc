package sim

import "blackout-sim/internal/telemetry"

// BlackoutWriter handles scheduler decisions.
type BlackoutWriter interface {
	WriteBlackout(telemetry.BlackoutRow) error
}

// DamageWriter handles hazard strikes.
type DamageWriter interface {
	WriteDamage(telemetry.DamageRow) error
}

// SanityWriter handles per-player sanity samples.
type SanityWriter interface {
	WriteSanity(telemetry.SanityRow) error
}

// StateWriter handles per-second session state rows.
type StateWriter interface {
	WriteState(telemetry.SessionStateRow) error
}

// RowWriter accepts every row kind the simulation emits.
type RowWriter interface {
	BlackoutWriter
	DamageWriter
	SanityWriter
	StateWriter
}

// Optional: writers may support batch mode for sanity samples, which
// arrive one slice per decay tick.
type batchSanityWriter interface {
	WriteSanityBatch([]telemetry.SanityRow) error
}

// writeSanity uses the batch path when w has one.
func writeSanity(w SanityWriter, rows []telemetry.SanityRow) error {
	if bw, ok := w.(batchSanityWriter); ok {
		return bw.WriteSanityBatch(rows)
	}
	for _, r := range rows {
		if err := w.WriteSanity(r); err != nil {
			return err
		}
	}
	return nil
}

// AdminStatusWriter is implemented by writers that show whether the admin
// server is listening.
type AdminStatusWriter interface {
	SetAdminStatus(listening bool)
}
