/*
Package sqlite provides the SQLite-backed audit log for regulation
updates.

PURPOSE:
  Every completed update or rollback is recorded with the prior and new
  version identifiers and the backup path, so the answer to "who replaced
  which rules when, and where is the version they replaced" survives
  process restarts. Rule content itself stays in the flat versioned
  documents; this log records events only.

APPEND-ONLY ENFORCEMENT:
  The log has no UPDATE or DELETE path. History is immutable.

WAL MODE:
  Opened with WAL so readers querying history never block a write.

USAGE:
  log, err := sqlite.Open("./data/audit.db")
  defer log.Close()
  store, _ := regstore.New(regstore.Options{DataDir: dir, Audit: log})
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/vaalgrid/regulation-engine/regstore"
)

// Log implements regstore.AuditLog on SQLite.
type Log struct {
	db *sql.DB
	mu sync.Mutex
}

// Open creates the audit log at the given path. Use ":memory:" in tests.
func Open(path string) (*Log, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}

	l := &Log{db: db}
	if err := l.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate audit database: %w", err)
	}
	return l, nil
}

// Close closes the database connection.
func (l *Log) Close() error {
	return l.db.Close()
}

func (l *Log) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS regulation_updates (
		id TEXT PRIMARY KEY,
		regulation_id TEXT NOT NULL,
		action TEXT NOT NULL,
		prior_version TEXT NOT NULL,
		new_version TEXT NOT NULL,
		actor TEXT,
		backup_path TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_regulation_updates_regulation
		ON regulation_updates(regulation_id, created_at);
	`
	_, err := l.db.Exec(schema)
	return err
}

// RecordUpdate appends one completed update event.
func (l *Log) RecordUpdate(ctx context.Context, entry regstore.AuditEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	at := entry.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO regulation_updates
			(id, regulation_id, action, prior_version, new_version, actor, backup_path, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(),
		entry.RegulationID,
		entry.Action,
		entry.PriorVersion,
		entry.NewVersion,
		entry.Actor,
		entry.BackupPath,
		at.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to record update: %w", err)
	}
	return nil
}

// History returns the recorded events for one regulation, oldest first.
// A limit of 0 returns everything.
func (l *Log) History(ctx context.Context, regulationID string, limit int) ([]regstore.AuditEntry, error) {
	query := `
		SELECT regulation_id, action, prior_version, new_version, actor, backup_path, created_at
		FROM regulation_updates
		WHERE regulation_id = ?
		ORDER BY created_at ASC`
	args := []any{regulationID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query update history: %w", err)
	}
	defer rows.Close()

	var entries []regstore.AuditEntry
	for rows.Next() {
		var e regstore.AuditEntry
		var createdAt string
		if err := rows.Scan(&e.RegulationID, &e.Action, &e.PriorVersion, &e.NewVersion, &e.Actor, &e.BackupPath, &createdAt); err != nil {
			return nil, err
		}
		e.At, _ = time.Parse(time.RFC3339Nano, createdAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
