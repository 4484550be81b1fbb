// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package eventlog implements the event log collaborator (spec.md §2/§6):
// an append-only journal of per-job events, persisted to SQLite through
// database/sql so the journal survives process restarts even though the
// allocation core's own in-memory state does not (spec.md §1's
// Non-goals apply to the core, not to this collaborator).
package eventlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/text/cases"

	"github.com/jontk/allocd/internal/core"
	"github.com/jontk/allocd/pkg/logging"
	"github.com/jontk/allocd/pkg/retry"
)

const schema = `
CREATE TABLE IF NOT EXISTS events (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	job_id     INTEGER NOT NULL,
	name       TEXT NOT NULL,
	payload    TEXT,
	note_fold  TEXT,
	committed  INTEGER NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_job_id ON events(job_id);
`

// Log is the SQLite-backed event log collaborator. It implements
// core.EventLog.
type Log struct {
	db     *sql.DB
	logger logging.Logger
}

// Open opens (creating if absent) the SQLite database at dsn and ensures
// the events table exists. The database and its first migration are the
// only genuinely transient step here (a concurrently-starting process can
// hold a SQLite lock briefly), so it is retried with backoff rather than
// failed on the first hiccup.
func Open(ctx context.Context, dsn string, logger logging.Logger) (*Log, error) {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}

	var db *sql.DB
	openErr := retry.Retry(ctx, retry.NewExponentialBackoff(), func() error {
		var err error
		db, err = sql.Open("sqlite3", dsn)
		if err != nil {
			return err
		}
		if _, err := db.Exec(schema); err != nil {
			db.Close()
			db = nil
			return err
		}
		return nil
	})
	if openErr != nil {
		return nil, fmt.Errorf("eventlog: open: %w", openErr)
	}

	l := &Log{db: db, logger: logger.With("component", "eventlog")}
	l.logger.Debug("event log opened", "dsn", dsn)
	return l, nil
}

// Close releases the underlying database handle.
func (l *Log) Close() error {
	return l.db.Close()
}

// Post appends a committed, job-scoped event (spec.md §6).
func (l *Log) Post(ctx context.Context, jobID uint64, name string, payload any) error {
	return l.insert(ctx, jobID, name, payload, true)
}

// PostNoCommit appends an event visible to readers but marked
// uncommitted — used for the annotations-clear event (spec.md §6/§9),
// which the original protocol treats as in-memory-visible but not
// journaled for replay.
func (l *Log) PostNoCommit(ctx context.Context, jobID uint64, name string, payload any) error {
	return l.insert(ctx, jobID, name, payload, false)
}

func (l *Log) insert(ctx context.Context, jobID uint64, name string, payload any, committed bool) error {
	body, err := encodePayload(payload)
	if err != nil {
		return fmt.Errorf("eventlog: encode %s: %w", name, err)
	}

	_, err = l.db.ExecContext(ctx,
		`INSERT INTO events (job_id, name, payload, note_fold, committed, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		jobID, name, body, foldedNoteOrReason(body), committed, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("eventlog: insert %s: %w", name, err)
	}
	return nil
}

// encodePayload marshals payload to JSON verbatim. spec.md §4.4 carries a
// scheduler's or administrator's note/reason text as-is; this layer never
// rewrites it.
func encodePayload(payload any) ([]byte, error) {
	if payload == nil {
		return nil, nil
	}
	return json.Marshal(payload)
}

var caseFold = cases.Fold()

// foldedNoteOrReason case-folds a payload's "note" or "reason" field (the
// exception event's free-text fields) into note_fold, a side column used
// only for locale-insensitive lookups. The payload column itself is left
// untouched, so the stored event always reflects exactly what was posted.
func foldedNoteOrReason(body []byte) *string {
	if body == nil {
		return nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil
	}
	for _, key := range []string{"note", "reason"} {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			continue
		}
		folded := caseFold.String(s)
		return &folded
	}
	return nil
}

var _ core.EventLog = (*Log)(nil)
