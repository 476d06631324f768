// Package history persists build reports in a local SQLite database.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Record is one archived build.
type Record struct {
	ID         int64         `json:"id"`
	BuildID    string        `json:"build_id"`
	Outcome    string        `json:"outcome"`
	Hosted     bool          `json:"hosted"`
	DoxygenRan bool          `json:"doxygen_ran"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
	Detail     []byte        `json:"detail,omitempty"` // full report as JSON
}

// Store is a SQLite-backed archive of build records.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens (and initializes) the store at dbPath. Use ":memory:" for an
// in-memory database.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return store, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS builds (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		build_id TEXT NOT NULL,
		outcome TEXT NOT NULL,
		hosted INTEGER NOT NULL,
		doxygen_ran INTEGER NOT NULL,
		started_at INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		detail BLOB
	);
	CREATE INDEX IF NOT EXISTS idx_builds_build_id ON builds(build_id);
	CREATE INDEX IF NOT EXISTS idx_builds_started_at ON builds(started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Add appends a build record.
func (s *Store) Add(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO builds (build_id, outcome, hosted, doxygen_ran, started_at, duration_ms, detail) VALUES (?, ?, ?, ?, ?, ?, ?)",
		rec.BuildID, rec.Outcome, boolInt(rec.Hosted), boolInt(rec.DoxygenRan),
		rec.StartedAt.Unix(), rec.Duration.Milliseconds(), rec.Detail,
	)
	if err != nil {
		return fmt.Errorf("insert build record: %w", err)
	}
	return nil
}

// Recent returns the most recent build records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, build_id, outcome, hosted, doxygen_ran, started_at, duration_ms, detail FROM builds ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query build records: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// ByBuildID returns the record for a single build, or sql.ErrNoRows.
func (s *Store) ByBuildID(ctx context.Context, buildID string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, build_id, outcome, hosted, doxygen_ran, started_at, duration_ms, detail FROM builds WHERE build_id = ? ORDER BY id DESC LIMIT 1",
		buildID,
	)
	if err != nil {
		return Record{}, fmt.Errorf("query build record: %w", err)
	}
	defer rows.Close()

	recs, err := scanRecords(rows)
	if err != nil {
		return Record{}, err
	}
	if len(recs) == 0 {
		return Record{}, sql.ErrNoRows
	}
	return recs[0], nil
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var records []Record
	for rows.Next() {
		var rec Record
		var hosted, ran int
		var startedUnix, durationMS int64

		err := rows.Scan(&rec.ID, &rec.BuildID, &rec.Outcome, &hosted, &ran, &startedUnix, &durationMS, &rec.Detail)
		if err != nil {
			return nil, fmt.Errorf("scan build record: %w", err)
		}
		rec.Hosted = hosted != 0
		rec.DoxygenRan = ran != 0
		rec.StartedAt = time.Unix(startedUnix, 0)
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return records, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// DetailJSON marshals an arbitrary report payload for storage in Detail.
func DetailJSON(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
