package sim

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"blackout-sim/internal/telemetry"
)

//go:embed sqlite_schema.sql
var sqliteSchema string

const sqliteWriteTimeout = 2 * time.Second

// SQLiteWriter persists rows to a local SQLite file. Timestamps are stored
// as unix milliseconds.
type SQLiteWriter struct {
	db *sql.DB
}

// OpenSQLiteWriter opens (or creates) the database at path and applies the
// schema.
func OpenSQLiteWriter(path string) (*SQLiteWriter, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One writer; the simulation goroutine is the only caller.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}
	return &SQLiteWriter{db: db}, nil
}

// DB exposes the handle for queries.
func (w *SQLiteWriter) DB() *sql.DB { return w.db }

// Close closes the SQLite handle.
func (w *SQLiteWriter) Close() error {
	if w == nil || w.db == nil {
		return nil
	}
	return w.db.Close()
}

func toMillis(t time.Time) int64 { return t.UTC().UnixMilli() }

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (w *SQLiteWriter) exec(query string, args ...any) error {
	ctx, cancel := context.WithTimeout(context.Background(), sqliteWriteTimeout)
	defer cancel()
	if _, err := w.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("sqlite insert: %w", err)
	}
	return nil
}

func (w *SQLiteWriter) WriteBlackout(r telemetry.BlackoutRow) error {
	zones, rooms := r.Zones, r.Rooms
	if zones == nil {
		zones = []string{}
	}
	if rooms == nil {
		rooms = []string{}
	}
	return w.exec(`INSERT INTO blackout_events
		(session_id, instance_id, event, zones, rooms, facility_wide, duration_s, stack_depth, elapsed_s, ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.SessionID, r.InstanceID, r.Event, jsonString(zones), jsonString(rooms),
		boolInt(r.FacilityWide), r.DurationS, r.StackDepth, r.ElapsedS, toMillis(r.Timestamp))
}

func (w *SQLiteWriter) WriteDamage(r telemetry.DamageRow) error {
	return w.exec(`INSERT INTO hazard_damage
		(session_id, player_id, room, region, raw, final, absorbed, stack_depth, killed, source, elapsed_s, ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.SessionID, r.PlayerID, r.Room, r.Region, r.Raw, r.Final, r.Absorbed,
		r.StackDepth, boolInt(r.Killed), r.Source, r.ElapsedS, toMillis(r.Timestamp))
}

func (w *SQLiteWriter) WriteSanity(r telemetry.SanityRow) error {
	return w.WriteSanityBatch([]telemetry.SanityRow{r})
}

// WriteSanityBatch inserts a decay tick's samples in one transaction.
func (w *SQLiteWriter) WriteSanityBatch(rows []telemetry.SanityRow) error {
	if len(rows) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), sqliteWriteTimeout)
	defer cancel()
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite begin: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO player_sanity
		(session_id, player_id, value, stage, rate, dark, elapsed_s, ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("sqlite prepare: %w", err)
	}
	defer stmt.Close()
	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, r.SessionID, r.PlayerID, r.Value, r.Stage, r.Rate,
			boolInt(r.Dark), r.ElapsedS, toMillis(r.Timestamp)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("sqlite insert: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite commit: %w", err)
	}
	return nil
}

func (w *SQLiteWriter) WriteState(r telemetry.SessionStateRow) error {
	return w.exec(`INSERT INTO session_state
		(session_id, round_active, blackout_active, stack_depth, players_alive, dark_rooms, elapsed_s, ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.SessionID, boolInt(r.RoundActive), boolInt(r.BlackoutActive), r.StackDepth,
		r.PlayersAlive, r.DarkRooms, r.ElapsedS, toMillis(r.Timestamp))
}
