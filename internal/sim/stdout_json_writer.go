package sim

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"blackout-sim/internal/telemetry"
)

// JSONStdoutWriter prints every row as one JSON object per line.
type JSONStdoutWriter struct {
	out io.Writer
}

// NewJSONStdoutWriter creates a JSONStdoutWriter writing to os.Stdout.
func NewJSONStdoutWriter() *JSONStdoutWriter {
	return &JSONStdoutWriter{out: os.Stdout}
}

func (w *JSONStdoutWriter) emit(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w.out, string(data))
	return err
}

func (w *JSONStdoutWriter) WriteBlackout(row telemetry.BlackoutRow) error { return w.emit(row) }
func (w *JSONStdoutWriter) WriteDamage(row telemetry.DamageRow) error     { return w.emit(row) }
func (w *JSONStdoutWriter) WriteSanity(row telemetry.SanityRow) error     { return w.emit(row) }
func (w *JSONStdoutWriter) WriteState(row telemetry.SessionStateRow) error {
	return w.emit(row)
}
