// Package journal persists broadcast events to SQLite for post-hoc
// inspection.
//
// The broadcaster's ring buffer is the only replay source for live
// subscribers; the journal is an optional append-only record queried
// offline (the `ab log` command). SQLite in WAL mode tolerates the
// server writing while a CLI process reads.
package journal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/daviddao/agentbridge/pkg/model"

	_ "modernc.org/sqlite"
)

// Journal is the SQLite-backed event record.
type Journal struct {
	db *sql.DB
}

// New opens (or creates) the journal database and initializes the
// schema.
func New(path string) (*Journal, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(60000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	db.SetMaxOpenConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	j := &Journal{db: db}
	if err := j.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate journal: %w", err)
	}
	return j, nil
}

// Close closes the database connection.
func (j *Journal) Close() error { return j.db.Close() }

func (j *Journal) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		event_id   TEXT NOT NULL UNIQUE,
		type       TEXT NOT NULL,
		created_at TEXT NOT NULL,
		data       TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_events_type ON events(type);
	`
	_, err := j.db.Exec(schema)
	return err
}

// Entry is one journaled event: the broadcast event plus its stable
// journal row ID, the cursor `ab log --since` pages by.
type Entry struct {
	RowID     int64           `json:"row_id"`
	EventID   string          `json:"event_id"`
	Type      string          `json:"type"`
	CreatedAt time.Time       `json:"created_at"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Append records an event. Returns the journal row ID. Duplicate event
// IDs are rejected by the schema; callers treat any error as a dropped
// journal write, never as a failed broadcast.
func (j *Journal) Append(ev model.Event) (int64, error) {
	var data []byte
	if ev.Data != nil {
		var err error
		if data, err = json.Marshal(ev.Data); err != nil {
			return 0, fmt.Errorf("encode event data: %w", err)
		}
	}

	var rowID int64
	err := retryOnContention(func() error {
		res, err := j.db.Exec(
			`INSERT INTO events (event_id, type, created_at, data) VALUES (?, ?, ?, ?)`,
			ev.ID, ev.Type, ev.Timestamp.Format(time.RFC3339Nano), string(data),
		)
		if err != nil {
			return err
		}
		rowID, err = res.LastInsertId()
		return err
	})
	return rowID, err
}

// ListSince returns entries with row ID > sinceID, oldest first.
func (j *Journal) ListSince(sinceID int64, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := j.db.Query(
		`SELECT id, event_id, type, created_at, COALESCE(data, '')
		 FROM events WHERE id > ?
		 ORDER BY id ASC LIMIT ?`,
		sinceID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

// ListByType returns entries of one event type, oldest first.
func (j *Journal) ListByType(eventType string, sinceID int64, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := j.db.Query(
		`SELECT id, event_id, type, created_at, COALESCE(data, '')
		 FROM events WHERE type = ? AND id > ?
		 ORDER BY id ASC LIMIT ?`,
		eventType, sinceID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

// Count returns the total number of journaled events.
func (j *Journal) Count() int64 {
	var count int64
	if err := j.db.QueryRow(`SELECT COUNT(*) FROM events`).Scan(&count); err != nil {
		return 0
	}
	return count
}

// MaxRowID returns the highest journal row ID, or 0 if empty.
func (j *Journal) MaxRowID() int64 {
	var id int64
	if err := j.db.QueryRow(`SELECT COALESCE(MAX(id), 0) FROM events`).Scan(&id); err != nil {
		return 0
	}
	return id
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var e Entry
		var createdStr, dataStr string
		if err := rows.Scan(&e.RowID, &e.EventID, &e.Type, &createdStr, &dataStr); err != nil {
			return nil, err
		}
		var parseErr error
		e.CreatedAt, parseErr = time.Parse(time.RFC3339Nano, createdStr)
		if parseErr != nil {
			return nil, fmt.Errorf("parse created_at for event %d: %w", e.RowID, parseErr)
		}
		if dataStr != "" {
			e.Data = json.RawMessage(dataStr)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
