package sim

import (
	"log/slog"
	"time"

	"blackout-sim/internal/telemetry"
)

const recentBlackouts = 20

// Counts is the number of rows recorded per kind.
type Counts struct {
	Blackouts int `json:"blackouts"`
	Damage    int `json:"damage"`
	Sanity    int `json:"sanity"`
	States    int `json:"states"`
	Errors    int `json:"errors"`
}

// Recorder adapts a RowWriter to telemetry.Sink. It stamps every row with
// origin plus the row's simulated elapsed time, so replays keep the
// simulated spacing. Write errors are logged and counted, never returned
// to the core.
type Recorder struct {
	w      RowWriter
	origin time.Time
	log    *slog.Logger
	counts Counts
	recent []telemetry.BlackoutRow
}

// NewRecorder wraps w. A nil w drops rows but still counts them.
func NewRecorder(w RowWriter, origin time.Time, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{w: w, origin: origin, log: logger.With("component", "recorder")}
}

func (r *Recorder) stamp(elapsed float64) time.Time {
	return r.origin.Add(time.Duration(elapsed * float64(time.Second)))
}

func (r *Recorder) fail(kind string, err error) {
	if err == nil {
		return
	}
	r.counts.Errors++
	r.log.Warn("write failed", "kind", kind, "err", err)
}

func (r *Recorder) WriteBlackout(row telemetry.BlackoutRow) {
	row.Timestamp = r.stamp(row.ElapsedS)
	r.counts.Blackouts++
	r.recent = append(r.recent, row)
	if len(r.recent) > recentBlackouts {
		r.recent = r.recent[len(r.recent)-recentBlackouts:]
	}
	if r.w != nil {
		r.fail("blackout", r.w.WriteBlackout(row))
	}
}

func (r *Recorder) WriteDamage(row telemetry.DamageRow) {
	row.Timestamp = r.stamp(row.ElapsedS)
	r.counts.Damage++
	if r.w != nil {
		r.fail("damage", r.w.WriteDamage(row))
	}
}

func (r *Recorder) WriteSanity(rows []telemetry.SanityRow) {
	if len(rows) == 0 {
		return
	}
	stamped := make([]telemetry.SanityRow, len(rows))
	for i, row := range rows {
		row.Timestamp = r.stamp(row.ElapsedS)
		stamped[i] = row
	}
	r.counts.Sanity += len(rows)
	if r.w != nil {
		r.fail("sanity", writeSanity(r.w, stamped))
	}
}

func (r *Recorder) WriteState(row telemetry.SessionStateRow) {
	row.Timestamp = r.stamp(row.ElapsedS)
	r.counts.States++
	if r.w != nil {
		r.fail("state", r.w.WriteState(row))
	}
}

// Counts returns the rows recorded so far.
func (r *Recorder) Counts() Counts { return r.counts }

// Recent returns the latest blackout rows, oldest first.
func (r *Recorder) Recent() []telemetry.BlackoutRow {
	return append([]telemetry.BlackoutRow(nil), r.recent...)
}
