// Package service implements the publish journal on embedded SQLite
package service

import (
	"context"
	"database/sql"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	perr "gitstr/internal/platform/errors"
	"gitstr/internal/platform/logger"
	dom "gitstr/internal/services/journal/domain"
)

// schemaDDL is executed on open; idempotent
const schemaDDL = `
CREATE TABLE IF NOT EXISTS published_events (
    id INTEGER PRIMARY KEY,
    kind INTEGER NOT NULL,
    identity TEXT NOT NULL,
    event_id TEXT NOT NULL,
    relays TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS published_events_created_at ON published_events(created_at);
`

const defaultRecentLimit = 50

// Journal is the SQLite-backed publish history
type Journal struct {
	db  *sql.DB
	log *logger.Logger
	now func() time.Time
}

// Open opens (or creates) the journal database at path. ":memory:" works
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeStorage, "open journal")
	}
	if _, err := db.Exec(schemaDDL); err != nil {
		db.Close()
		return nil, perr.Wrap(err, perr.ErrorCodeStorage, "init journal schema")
	}
	return &Journal{db: db, log: logger.Named("journal"), now: time.Now}, nil
}

// Close releases the database
func (j *Journal) Close() error { return j.db.Close() }

// Record appends one publish outcome. Callers treat failure as non-fatal;
// the journal never gates a publish
func (j *Journal) Record(ctx context.Context, e dom.Entry) error {
	at := e.CreatedAt
	if at.IsZero() {
		at = j.now().UTC()
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO published_events (kind, identity, event_id, relays, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		e.Kind, e.Identity, e.EventID, strings.Join(e.Relays, ","), at.Format(time.RFC3339Nano),
	)
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeStorage, "record publish")
	}
	return nil
}

// Recent returns the newest entries, most recent first
func (j *Journal) Recent(ctx context.Context, limit int) ([]dom.Entry, error) {
	if limit <= 0 || limit > defaultRecentLimit {
		limit = defaultRecentLimit
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, kind, identity, event_id, relays, created_at
		 FROM published_events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeStorage, "query journal")
	}
	defer rows.Close()

	var out []dom.Entry
	for rows.Next() {
		var (
			e      dom.Entry
			relays string
			at     string
		)
		if err := rows.Scan(&e.ID, &e.Kind, &e.Identity, &e.EventID, &relays, &at); err != nil {
			return nil, perr.Wrap(err, perr.ErrorCodeStorage, "scan journal row")
		}
		if relays != "" {
			e.Relays = strings.Split(relays, ",")
		}
		if ts, err := time.Parse(time.RFC3339Nano, at); err == nil {
			e.CreatedAt = ts
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeStorage, "iterate journal rows")
	}
	return out, nil
}
