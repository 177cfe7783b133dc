package sim

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"

	"blackout-sim/internal/telemetry"
)

const (
	defaultGreptimePort  = 4001
	greptimeWriteTimeout = 5 * time.Second
)

// greptimeClient is the subset of the ingester client the writer needs.
type greptimeClient interface {
	Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error)
}

// GreptimeTables names the destination table of each row kind.
type GreptimeTables struct {
	Blackout string
	Damage   string
	Sanity   string
	State    string
}

// GreptimeDBWriter writes rows to GreptimeDB through the gRPC ingester.
// Tables are created by GreptimeDB on first write.
type GreptimeDBWriter struct {
	client greptimeClient
	tables GreptimeTables
	log    *slog.Logger
}

// NewGreptimeDBWriter connects to endpoint ("host" or "host:port").
func NewGreptimeDBWriter(endpoint, database string, tables GreptimeTables, logger *slog.Logger) (*GreptimeDBWriter, error) {
	host, port, err := splitEndpoint(endpoint)
	if err != nil {
		return nil, err
	}
	cfg := greptime.NewConfig(host).WithPort(port).WithDatabase(database)
	client, err := greptime.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("greptime client: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GreptimeDBWriter{client: client, tables: tables, log: logger.With("component", "greptime")}, nil
}

func splitEndpoint(endpoint string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(endpoint)
	if err != nil {
		// No port given.
		return endpoint, defaultGreptimePort, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("greptime endpoint %q: bad port: %w", endpoint, err)
	}
	return host, port, nil
}

func (w *GreptimeDBWriter) write(tbl *table.Table, n int) error {
	ctx, cancel := context.WithTimeout(context.Background(), greptimeWriteTimeout)
	defer cancel()
	if _, err := w.client.Write(ctx, tbl); err != nil {
		return fmt.Errorf("greptime write: %w", err)
	}
	if w.log != nil {
		w.log.Debug("wrote rows", "rows", n)
	}
	return nil
}

// newTable builds a table with the given tag and field columns followed by
// the ts time index.
func newTable(name string, tags []string, fields []column) (*table.Table, error) {
	tbl, err := table.New(name)
	if err != nil {
		return nil, err
	}
	for _, t := range tags {
		if err := tbl.AddTagColumn(t, types.STRING); err != nil {
			return nil, err
		}
	}
	for _, f := range fields {
		if err := tbl.AddFieldColumn(f.name, f.typ); err != nil {
			return nil, err
		}
	}
	if err := tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND); err != nil {
		return nil, err
	}
	return tbl, nil
}

type column struct {
	name string
	typ  types.ColumnType
}

func jsonString(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

// WriteBlackout inserts a scheduler decision. Zones and rooms are stored
// as JSON arrays.
func (w *GreptimeDBWriter) WriteBlackout(r telemetry.BlackoutRow) error {
	tbl, err := newTable(w.tables.Blackout, []string{"session_id", "event"}, []column{
		{"instance_id", types.STRING},
		{"zones", types.JSON},
		{"rooms", types.JSON},
		{"facility_wide", types.BOOLEAN},
		{"duration_s", types.FLOAT64},
		{"stack_depth", types.INT64},
		{"elapsed_s", types.FLOAT64},
	})
	if err != nil {
		return err
	}
	zones := r.Zones
	if zones == nil {
		zones = []string{}
	}
	rooms := r.Rooms
	if rooms == nil {
		rooms = []string{}
	}
	if err := tbl.AddRow(r.SessionID, r.Event, r.InstanceID, jsonString(zones), jsonString(rooms),
		r.FacilityWide, r.DurationS, int64(r.StackDepth), r.ElapsedS, r.Timestamp); err != nil {
		return err
	}
	return w.write(tbl, 1)
}

// WriteDamage inserts a hazard strike.
func (w *GreptimeDBWriter) WriteDamage(r telemetry.DamageRow) error {
	tbl, err := newTable(w.tables.Damage, []string{"session_id", "player_id"}, []column{
		{"room", types.STRING},
		{"region", types.STRING},
		{"raw", types.FLOAT64},
		{"final", types.FLOAT64},
		{"absorbed", types.FLOAT64},
		{"stack_depth", types.INT64},
		{"killed", types.BOOLEAN},
		{"source", types.STRING},
		{"elapsed_s", types.FLOAT64},
	})
	if err != nil {
		return err
	}
	if err := tbl.AddRow(r.SessionID, r.PlayerID, r.Room, r.Region, r.Raw, r.Final, r.Absorbed,
		int64(r.StackDepth), r.Killed, r.Source, r.ElapsedS, r.Timestamp); err != nil {
		return err
	}
	return w.write(tbl, 1)
}

// WriteSanity inserts one sanity sample.
func (w *GreptimeDBWriter) WriteSanity(r telemetry.SanityRow) error {
	return w.WriteSanityBatch([]telemetry.SanityRow{r})
}

// WriteSanityBatch inserts a decay tick's samples in one request.
func (w *GreptimeDBWriter) WriteSanityBatch(rows []telemetry.SanityRow) error {
	if len(rows) == 0 {
		return nil
	}
	tbl, err := newTable(w.tables.Sanity, []string{"session_id", "player_id"}, []column{
		{"value", types.FLOAT64},
		{"stage", types.STRING},
		{"rate", types.FLOAT64},
		{"dark", types.BOOLEAN},
		{"elapsed_s", types.FLOAT64},
	})
	if err != nil {
		return err
	}
	for _, r := range rows {
		if err := tbl.AddRow(r.SessionID, r.PlayerID, r.Value, r.Stage, r.Rate, r.Dark, r.ElapsedS, r.Timestamp); err != nil {
			return err
		}
	}
	return w.write(tbl, len(rows))
}

// WriteState inserts a session state row.
func (w *GreptimeDBWriter) WriteState(r telemetry.SessionStateRow) error {
	tbl, err := newTable(w.tables.State, []string{"session_id"}, []column{
		{"round_active", types.BOOLEAN},
		{"blackout_active", types.BOOLEAN},
		{"stack_depth", types.INT64},
		{"players_alive", types.INT64},
		{"dark_rooms", types.INT64},
		{"elapsed_s", types.FLOAT64},
	})
	if err != nil {
		return err
	}
	if err := tbl.AddRow(r.SessionID, r.RoundActive, r.BlackoutActive, int64(r.StackDepth),
		int64(r.PlayersAlive), int64(r.DarkRooms), r.ElapsedS, r.Timestamp); err != nil {
		return err
	}
	return w.write(tbl, 1)
}
