package sim

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"blackout-sim/internal/telemetry"
)

func encodeRows(t *testing.T, rows []telemetry.BlackoutRow) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, r := range rows {
		if err := enc.Encode(r); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	return &buf
}

func TestReplayLog(t *testing.T) {
	rows := []telemetry.BlackoutRow{
		{SessionID: "s", InstanceID: "b1", Event: telemetry.BlackoutStarted, Timestamp: time.Unix(0, 0)},
		{SessionID: "s", InstanceID: "b1", Event: telemetry.BlackoutEnded, Timestamp: time.Unix(1, 0)},
	}
	cw := &collectWriter{}
	n, err := ReplayLog(context.Background(), encodeRows(t, rows), cw, 0)
	if err != nil {
		t.Fatalf("ReplayLog: %v", err)
	}
	if n != len(rows) || len(cw.blackouts) != len(rows) {
		t.Fatalf("expected %d rows, got n=%d written=%d", len(rows), n, len(cw.blackouts))
	}
	for i, r := range rows {
		if cw.blackouts[i].Event != r.Event {
			t.Fatalf("row %d mismatch: %+v vs %+v", i, cw.blackouts[i], r)
		}
	}
}

func TestReplayLogBadRow(t *testing.T) {
	in := strings.NewReader(`{"session_id":"s","event":"started"}` + "\n" + `{not json}` + "\n")
	n, err := ReplayLog(context.Background(), in, &collectWriter{}, 0)
	if err == nil || !strings.Contains(err.Error(), "decode row 2") {
		t.Fatalf("expected decode error on row 2, got %v", err)
	}
	if n != 1 {
		t.Fatalf("rows before the error = %d", n)
	}
}

func TestReplayLogCancelled(t *testing.T) {
	rows := []telemetry.BlackoutRow{
		{Event: telemetry.BlackoutStarted, Timestamp: time.Unix(0, 0)},
		{Event: telemetry.BlackoutEnded, Timestamp: time.Unix(3600, 0)},
	}
	ctx, cancel := context.WithCancel(context.Background())
	cw := &collectWriter{}
	done := make(chan error, 1)
	go func() {
		_, err := ReplayLog(ctx, encodeRows(t, rows), cw, 1)
		done <- err
	}()
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("replay ignored cancellation")
	}
}

func TestReplayLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	rows := []telemetry.BlackoutRow{{Event: telemetry.BlackoutFalseAlarm}}
	if err := os.WriteFile(path, encodeRows(t, rows).Bytes(), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cw := &collectWriter{}
	n, err := ReplayLogFile(context.Background(), path, cw, 0)
	if err != nil || n != 1 {
		t.Fatalf("n=%d err=%v", n, err)
	}
	if _, err := ReplayLogFile(context.Background(), filepath.Join(t.TempDir(), "missing"), cw, 0); err == nil {
		t.Fatal("missing file should fail")
	}
}
