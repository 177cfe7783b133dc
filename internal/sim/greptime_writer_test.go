package sim

import (
	"context"
	"testing"
	"time"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"

	"blackout-sim/internal/telemetry"
)

type mockGreptimeClient struct {
	tables []*table.Table
}

func (m *mockGreptimeClient) Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error) {
	m.tables = append(m.tables, tables...)
	return &gpb.GreptimeResponse{}, nil
}

func testTables() GreptimeTables {
	return GreptimeTables{Blackout: "blackout_events", Damage: "hazard_damage", Sanity: "player_sanity", State: "session_state"}
}

func TestGreptimeWriterBlackoutZonesJSON(t *testing.T) {
	m := &mockGreptimeClient{}
	w := &GreptimeDBWriter{client: m, tables: testTables()}
	row := telemetry.BlackoutRow{
		SessionID: "s1",
		Event:     telemetry.BlackoutStarted,
		Zones:     []string{"Heavy", "Light"},
		Timestamp: time.Unix(0, 0).UTC(),
	}
	if err := w.WriteBlackout(row); err != nil {
		t.Fatalf("WriteBlackout: %v", err)
	}
	if len(m.tables) != 1 {
		t.Fatalf("expected one table, got %d", len(m.tables))
	}
	rows := m.tables[0].GetRows()
	if rows.Schema[3].Datatype != gpb.ColumnDataType_JSON {
		t.Fatalf("zones column type = %v, want %v", rows.Schema[3].Datatype, gpb.ColumnDataType_JSON)
	}
	if got, want := rows.Rows[0].Values[3].GetStringValue(), `["Heavy","Light"]`; got != want {
		t.Fatalf("zones = %s, want %s", got, want)
	}
	if got := rows.Rows[0].Values[4].GetStringValue(); got != "[]" {
		t.Fatalf("empty rooms = %s, want []", got)
	}
	if got := rows.Rows[0].Values[0].GetStringValue(); got != "s1" {
		t.Fatalf("session_id = %s", got)
	}
}

func TestGreptimeWriterSanityBatch(t *testing.T) {
	m := &mockGreptimeClient{}
	w := &GreptimeDBWriter{client: m, tables: testTables()}
	rows := []telemetry.SanityRow{
		{SessionID: "s1", PlayerID: "a", Value: 90, Stage: "calm"},
		{SessionID: "s1", PlayerID: "b", Value: 10, Stage: "breaking", Dark: true},
	}
	if err := w.WriteSanityBatch(rows); err != nil {
		t.Fatalf("WriteSanityBatch: %v", err)
	}
	if len(m.tables) != 1 {
		t.Fatalf("batch should be one request, got %d", len(m.tables))
	}
	got := m.tables[0].GetRows().Rows
	if len(got) != 2 {
		t.Fatalf("rows = %d", len(got))
	}
	if got[1].Values[1].GetStringValue() != "b" || got[1].Values[3].GetStringValue() != "breaking" {
		t.Fatalf("second row = %v", got[1].Values)
	}
	if err := w.WriteSanityBatch(nil); err != nil || len(m.tables) != 1 {
		t.Fatalf("empty batch should not write: err=%v tables=%d", err, len(m.tables))
	}
}

func TestGreptimeWriterDamageAndState(t *testing.T) {
	m := &mockGreptimeClient{}
	w := &GreptimeDBWriter{client: m, tables: testTables()}
	if err := w.WriteDamage(telemetry.DamageRow{SessionID: "s1", PlayerID: "p", Raw: 10, Final: 5}); err != nil {
		t.Fatalf("WriteDamage: %v", err)
	}
	if err := w.WriteState(telemetry.SessionStateRow{SessionID: "s1", StackDepth: 2}); err != nil {
		t.Fatalf("WriteState: %v", err)
	}
	if len(m.tables) != 2 {
		t.Fatalf("tables = %d", len(m.tables))
	}
	if got := m.tables[1].GetRows().Rows[0].Values[3].GetI64Value(); got != 2 {
		t.Fatalf("stack_depth = %d", got)
	}
}

func TestSplitEndpoint(t *testing.T) {
	tests := []struct {
		in   string
		host string
		port int
		err  bool
	}{
		{"greptime:4001", "greptime", 4001, false},
		{"localhost", "localhost", defaultGreptimePort, false},
		{"db:abc", "", 0, true},
	}
	for _, tt := range tests {
		host, port, err := splitEndpoint(tt.in)
		if (err != nil) != tt.err || host != tt.host || port != tt.port {
			t.Errorf("splitEndpoint(%q) = %q,%d,%v", tt.in, host, port, err)
		}
	}
}
