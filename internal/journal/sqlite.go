package journal

import (
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteJournal persists pipeline events to a SQLite database.
type SQLiteJournal struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLite opens (or creates) the database and runs migrations.
func NewSQLite(dbPath string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so reads (dashboards, ad hoc queries) don't block the writer.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	j := &SQLiteJournal{db: db}
	if err := j.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite journal opened: %s", dbPath)
	return j, nil
}

func (j *SQLiteJournal) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS fetch_log (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp  INTEGER NOT NULL,
			symbol     TEXT,
			period     TEXT,
			interval   TEXT,
			forced     INTEGER,
			superseded INTEGER,
			fallback   INTEGER,
			bars       INTEGER,
			error      TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_fetch_ts ON fetch_log(timestamp)`,

		`CREATE TABLE IF NOT EXISTS reset_events (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp   INTEGER NOT NULL,
			symbol      TEXT,
			interval    TEXT,
			data_age_ms INTEGER,
			outcome     TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reset_ts ON reset_events(timestamp)`,

		`CREATE TABLE IF NOT EXISTS status_transitions (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			status    TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_status_ts ON status_transitions(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := j.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (j *SQLiteJournal) RecordFetch(evt *FetchEvent) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	_, err := j.db.Exec(`INSERT INTO fetch_log
		(timestamp, symbol, period, interval, forced, superseded, fallback, bars, error)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		time.Now().Unix(), evt.Symbol, evt.Period, evt.Interval,
		boolInt(evt.Forced), boolInt(evt.Superseded), boolInt(evt.Fallback),
		evt.Bars, evt.Err,
	)
	return err
}

func (j *SQLiteJournal) RecordReset(evt *ResetEvent) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	_, err := j.db.Exec(`INSERT INTO reset_events
		(timestamp, symbol, interval, data_age_ms, outcome)
		VALUES (?,?,?,?,?)`,
		time.Now().Unix(), evt.Symbol, evt.Interval,
		evt.DataAge.Milliseconds(), evt.Outcome,
	)
	return err
}

func (j *SQLiteJournal) RecordStatus(evt *StatusEvent) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	_, err := j.db.Exec(`INSERT INTO status_transitions (timestamp, status) VALUES (?,?)`,
		time.Now().Unix(), evt.Status,
	)
	return err
}

func (j *SQLiteJournal) Close() error {
	log.Println("[INFO] closing sqlite journal")
	return j.db.Close()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
