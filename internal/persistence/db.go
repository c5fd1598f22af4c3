// Package persistence archives finished runs in SQLite: run metadata, the
// metrics series, the battle log and recent events.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/deepfake-battle/internal/agents"
	"github.com/talgya/deepfake-battle/internal/engine"
)

// ErrRunNotFound is returned when a run ID is not in the archive.
var ErrRunNotFound = errors.New("run not found")

// DB wraps a SQLite connection for the run archive.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		model TEXT NOT NULL,
		seed INTEGER NOT NULL,
		params_json TEXT NOT NULL,
		columns_json TEXT NOT NULL,
		steps INTEGER NOT NULL,
		stop_reason TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS samples (
		run_id TEXT NOT NULL REFERENCES runs(id),
		step INTEGER NOT NULL,
		col INTEGER NOT NULL,
		name TEXT NOT NULL,
		value INTEGER NOT NULL,
		PRIMARY KEY (run_id, step, col)
	);

	CREATE TABLE IF NOT EXISTS battles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id),
		step INTEGER NOT NULL,
		detector_id INTEGER NOT NULL,
		generator_id INTEGER NOT NULL,
		outcome TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id),
		step INTEGER NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS archive_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
	CREATE INDEX IF NOT EXISTS idx_battles_run ON battles(run_id);
	CREATE INDEX IF NOT EXISTS idx_events_run ON events(run_id);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// Run is one archived simulation run.
type Run struct {
	ID         string          `db:"id" json:"id"`
	Model      string          `db:"model" json:"model"`
	Seed       int64           `db:"seed" json:"seed"`
	Steps      int             `db:"steps" json:"steps"`
	StopReason string          `db:"stop_reason" json:"stop_reason"`
	CreatedAt  int64           `db:"created_at" json:"created_at"` // Unix milliseconds
	Params     json.RawMessage `db:"-" json:"params"`
	Columns    []string        `db:"-" json:"columns"`

	ParamsJSON  string `db:"params_json" json:"-"`
	ColumnsJSON string `db:"columns_json" json:"-"`
}

// Created returns CreatedAt as a time.
func (r Run) Created() time.Time {
	return time.UnixMilli(r.CreatedAt)
}

func (r *Run) decode() error {
	r.Params = json.RawMessage(r.ParamsJSON)
	if err := json.Unmarshal([]byte(r.ColumnsJSON), &r.Columns); err != nil {
		return fmt.Errorf("decode columns of run %s: %w", r.ID, err)
	}
	return nil
}

// SaveRun archives m under a fresh run ID: its parameters, every series
// sample, its battle log when it keeps one, and its retained events.
func (db *DB) SaveRun(m engine.Model) (Run, error) {
	paramsJSON, err := json.Marshal(m.Config())
	if err != nil {
		return Run{}, fmt.Errorf("encode params: %w", err)
	}
	series := m.Series()
	columns := series.Names()
	columnsJSON, err := json.Marshal(columns)
	if err != nil {
		return Run{}, fmt.Errorf("encode columns: %w", err)
	}

	run := Run{
		ID:          uuid.NewString(),
		Model:       m.Name(),
		Seed:        m.Seed(),
		Steps:       m.StepCount(),
		StopReason:  m.StopReason(),
		CreatedAt:   time.Now().UnixMilli(),
		Params:      paramsJSON,
		Columns:     columns,
		ParamsJSON:  string(paramsJSON),
		ColumnsJSON: string(columnsJSON),
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return Run{}, err
	}
	defer tx.Rollback()

	_, err = tx.NamedExec(`INSERT INTO runs
		(id, model, seed, params_json, columns_json, steps, stop_reason, created_at)
		VALUES (:id, :model, :seed, :params_json, :columns_json, :steps, :stop_reason, :created_at)`, run)
	if err != nil {
		return Run{}, fmt.Errorf("insert run: %w", err)
	}

	if err := saveSamples(tx, run.ID, columns, series.Samples()); err != nil {
		return Run{}, fmt.Errorf("save samples: %w", err)
	}
	if bl, ok := m.(engine.BattleLog); ok {
		if err := saveBattles(tx, run.ID, bl.Battles()); err != nil {
			return Run{}, fmt.Errorf("save battles: %w", err)
		}
	}
	if err := saveEvents(tx, run.ID, m.Events()); err != nil {
		return Run{}, fmt.Errorf("save events: %w", err)
	}
	if _, err := tx.Exec("INSERT OR REPLACE INTO archive_meta (key, value) VALUES (?, ?)", metaLastRun, run.ID); err != nil {
		return Run{}, fmt.Errorf("save meta: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Run{}, err
	}
	slog.Info("run archived", "run", run.ID, "model", run.Model, "steps", run.Steps, "samples", series.Len())
	return run, nil
}

func saveSamples(tx *sqlx.Tx, runID string, columns []string, samples []engine.Sample) error {
	stmt, err := tx.Preparex(`INSERT INTO samples (run_id, step, col, name, value) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, s := range samples {
		for i, v := range s.Values {
			if _, err := stmt.Exec(runID, s.Step, i, columns[i], v); err != nil {
				return fmt.Errorf("insert sample %d/%s: %w", s.Step, columns[i], err)
			}
		}
	}
	return nil
}

func saveBattles(tx *sqlx.Tx, runID string, battles []engine.Battle) error {
	stmt, err := tx.Preparex(`INSERT INTO battles (run_id, step, detector_id, generator_id, outcome) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, b := range battles {
		if _, err := stmt.Exec(runID, b.Step, uint64(b.DetectorID), uint64(b.GeneratorID), string(b.Outcome)); err != nil {
			return err
		}
	}
	return nil
}

func saveEvents(tx *sqlx.Tx, runID string, events []engine.Event) error {
	for _, e := range events {
		_, err := tx.Exec(
			"INSERT INTO events (run_id, step, description, category) VALUES (?, ?, ?, ?)",
			runID, e.Step, e.Description, e.Category,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

const runColumns = `id, model, seed, params_json, columns_json, steps, stop_reason, created_at`

// ListRuns returns the most recent runs, newest first.
func (db *DB) ListRuns(limit int) ([]Run, error) {
	var runs []Run
	err := db.conn.Select(&runs,
		"SELECT "+runColumns+" FROM runs ORDER BY created_at DESC, id LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	for i := range runs {
		if err := runs[i].decode(); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

// GetRun returns one run's metadata.
func (db *DB) GetRun(id string) (Run, error) {
	var run Run
	err := db.conn.Get(&run, "SELECT "+runColumns+" FROM runs WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return Run{}, err
	}
	return run, run.decode()
}

// LoadSeries rebuilds the metrics series of a run.
func (db *DB) LoadSeries(id string) (*engine.Series, error) {
	run, err := db.GetRun(id)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		Step  int `db:"step"`
		Col   int `db:"col"`
		Value int `db:"value"`
	}
	err = db.conn.Select(&rows,
		"SELECT step, col, value FROM samples WHERE run_id = ? ORDER BY step, col", id)
	if err != nil {
		return nil, err
	}

	series := engine.NewSeries(run.Columns...)
	width := len(run.Columns)
	for i := 0; i+width <= len(rows); i += width {
		values := make([]int, width)
		for j := 0; j < width; j++ {
			values[rows[i+j].Col] = rows[i+j].Value
		}
		series.Append(rows[i].Step, values...)
	}
	return series, nil
}

// LoadBattles returns a run's battle log in recorded order.
func (db *DB) LoadBattles(id string) ([]engine.Battle, error) {
	var rows []struct {
		Step        int    `db:"step"`
		DetectorID  uint64 `db:"detector_id"`
		GeneratorID uint64 `db:"generator_id"`
		Outcome     string `db:"outcome"`
	}
	err := db.conn.Select(&rows,
		"SELECT step, detector_id, generator_id, outcome FROM battles WHERE run_id = ? ORDER BY id", id)
	if err != nil {
		return nil, err
	}
	battles := make([]engine.Battle, len(rows))
	for i, r := range rows {
		battles[i] = engine.Battle{
			Step:        r.Step,
			DetectorID:  agents.ID(r.DetectorID),
			GeneratorID: agents.ID(r.GeneratorID),
			Outcome:     agents.Outcome(r.Outcome),
		}
	}
	return battles, nil
}

// RecentEvents returns the most recent N events of a run, newest first.
func (db *DB) RecentEvents(id string, limit int) ([]engine.Event, error) {
	var events []engine.Event
	err := db.conn.Select(&events,
		"SELECT step, description, category FROM events WHERE run_id = ? ORDER BY id DESC LIMIT ?",
		id, limit,
	)
	return events, err
}

const metaLastRun = "last_run"

// LastRun returns the most recently archived run.
func (db *DB) LastRun() (Run, error) {
	id, err := db.GetMeta(metaLastRun)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrRunNotFound
	}
	if err != nil {
		return Run{}, err
	}
	return db.GetRun(id)
}

// SaveMeta stores a key-value pair in archive metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO archive_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM archive_meta WHERE key = ?", key)
	return value, err
}
