package sim

import "blackout-sim/internal/telemetry"

// MultiWriter fans rows out to several writers. The first error stops the
// fan-out for that row and is returned.
type MultiWriter struct {
	writers []RowWriter
}

// NewMultiWriter creates a MultiWriter. Nil entries are skipped.
func NewMultiWriter(ws ...RowWriter) *MultiWriter {
	mw := &MultiWriter{}
	for _, w := range ws {
		if w != nil {
			mw.writers = append(mw.writers, w)
		}
	}
	return mw
}

// Writers returns the underlying writers.
func (mw *MultiWriter) Writers() []RowWriter { return mw.writers }

func (mw *MultiWriter) WriteBlackout(row telemetry.BlackoutRow) error {
	for _, w := range mw.writers {
		if err := w.WriteBlackout(row); err != nil {
			return err
		}
	}
	return nil
}

func (mw *MultiWriter) WriteDamage(row telemetry.DamageRow) error {
	for _, w := range mw.writers {
		if err := w.WriteDamage(row); err != nil {
			return err
		}
	}
	return nil
}

func (mw *MultiWriter) WriteSanity(row telemetry.SanityRow) error {
	for _, w := range mw.writers {
		if err := w.WriteSanity(row); err != nil {
			return err
		}
	}
	return nil
}

// WriteSanityBatch sends rows to every writer, using batch where supported.
func (mw *MultiWriter) WriteSanityBatch(rows []telemetry.SanityRow) error {
	for _, w := range mw.writers {
		if err := writeSanity(w, rows); err != nil {
			return err
		}
	}
	return nil
}

func (mw *MultiWriter) WriteState(row telemetry.SessionStateRow) error {
	for _, w := range mw.writers {
		if err := w.WriteState(row); err != nil {
			return err
		}
	}
	return nil
}

// SetAdminStatus forwards to every writer that shows admin status.
func (mw *MultiWriter) SetAdminStatus(listening bool) {
	for _, w := range mw.writers {
		if aw, ok := w.(AdminStatusWriter); ok {
			aw.SetAdminStatus(listening)
		}
	}
}

// Close closes every writer that holds resources and returns the first
// error.
func (mw *MultiWriter) Close() error {
	var first error
	for _, w := range mw.writers {
		c, ok := w.(interface{ Close() error })
		if !ok {
			continue
		}
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
