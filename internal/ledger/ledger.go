// Package ledger records deploy runs and the objects each run uploaded in
// a SQLite database. The ledger is informational: uploads never consult it.
package ledger

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/bloggen/internal/apperr"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	endpoint    TEXT NOT NULL DEFAULT '',
	started_at  DATETIME NOT NULL,
	finished_at DATETIME,
	objects     INTEGER NOT NULL DEFAULT 0,
	failures    INTEGER NOT NULL DEFAULT 0,
	status      TEXT NOT NULL DEFAULT 'running'
);

CREATE TABLE IF NOT EXISTS objects (
	run_id      TEXT NOT NULL REFERENCES runs(id),
	key         TEXT NOT NULL,
	checksum    TEXT NOT NULL DEFAULT '',
	size        INTEGER NOT NULL DEFAULT 0,
	uploaded_at DATETIME NOT NULL,
	UNIQUE(run_id, key)
);

CREATE INDEX IF NOT EXISTS idx_objects_run ON objects(run_id);
`

// Run statuses.
const (
	StatusRunning = "running"
	StatusOK      = "ok"
	StatusFailed  = "failed"
)

// DB wraps a sql.DB with ledger operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the ledger database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("ledger: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ledger: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ledger: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Run is one deploy run.
type Run struct {
	ID         string
	Endpoint   string
	StartedAt  time.Time
	FinishedAt time.Time
	Objects    int
	Failures   int
	Status     string
}

// Object is one uploaded file.
type Object struct {
	Key        string
	Checksum   string
	Size       int64
	UploadedAt time.Time
}

// BeginRun inserts a running deploy run.
func (db *DB) BeginRun(id, endpoint string, startedAt time.Time) error {
	_, err := db.conn.Exec(
		`INSERT INTO runs (id, endpoint, started_at, status) VALUES (?, ?, ?, ?)`,
		id, endpoint, startedAt.UTC(), StatusRunning)
	if err != nil {
		return fmt.Errorf("ledger: begin run: %w", err)
	}
	return nil
}

// RecordObject stores an uploaded object for a run. Recording the same key
// twice within a run keeps the latest entry.
func (db *DB) RecordObject(runID string, o Object) error {
	_, err := db.conn.Exec(`
		INSERT INTO objects (run_id, key, checksum, size, uploaded_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run_id, key) DO UPDATE SET
			checksum    = excluded.checksum,
			size        = excluded.size,
			uploaded_at = excluded.uploaded_at
	`, runID, o.Key, o.Checksum, o.Size, o.UploadedAt.UTC())
	if err != nil {
		return fmt.Errorf("ledger: record object: %w", err)
	}
	return nil
}

// FinishRun closes a run with its final counts.
func (db *DB) FinishRun(id string, finishedAt time.Time, failures int) error {
	status := StatusOK
	if failures > 0 {
		status = StatusFailed
	}
	res, err := db.conn.Exec(`
		UPDATE runs SET
			finished_at = ?,
			failures    = ?,
			status      = ?,
			objects     = (SELECT COUNT(*) FROM objects WHERE run_id = ?)
		WHERE id = ?
	`, finishedAt.UTC(), failures, status, id, id)
	if err != nil {
		return fmt.Errorf("ledger: finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("ledger: finish run %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

// Objects returns the objects recorded for a run, ordered by key.
func (db *DB) Objects(runID string) ([]Object, error) {
	rows, err := db.conn.Query(
		`SELECT key, checksum, size, uploaded_at FROM objects WHERE run_id = ? ORDER BY key`, runID)
	if err != nil {
		return nil, fmt.Errorf("ledger: objects: %w", err)
	}
	defer rows.Close()

	var out []Object
	for rows.Next() {
		var o Object
		if err := rows.Scan(&o.Key, &o.Checksum, &o.Size, &o.UploadedAt); err != nil {
			return nil, fmt.Errorf("ledger: scan object: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// LastRun returns the most recently started run.
func (db *DB) LastRun() (*Run, error) {
	var (
		r        Run
		finished sql.NullTime
	)
	err := db.conn.QueryRow(`
		SELECT id, endpoint, started_at, finished_at, objects, failures, status
		FROM runs ORDER BY started_at DESC, rowid DESC LIMIT 1
	`).Scan(&r.ID, &r.Endpoint, &r.StartedAt, &finished, &r.Objects, &r.Failures, &r.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("ledger: last run: %w", apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("ledger: last run: %w", err)
	}
	if finished.Valid {
		r.FinishedAt = finished.Time
	}
	return &r, nil
}
