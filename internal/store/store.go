// Package store provides SQLite-backed persistence for dedup state and
// scan-cycle history.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/yucheng-lin/twscan/pkg/logger"
)

// Store wraps a SQLite database for all persistence operations
type Store struct {
	db     *sql.DB
	logger *logger.Logger
}

// CycleRecord is one scan cycle's outcome, kept for the status surface
type CycleRecord struct {
	Timestamp    time.Time `json:"timestamp"`
	Profile      string    `json:"profile"`
	Outcome      string    `json:"outcome"`
	UniverseSize int       `json:"universe_size"`
	PickCount    int       `json:"pick_count"`
	Pages        int       `json:"pages"`
	Fallback     bool      `json:"fallback"`
	Truncated    int       `json:"truncated"`
}

// New opens or creates the SQLite database at dbPath
func New(dbPath string, log *logger.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // single writer; WAL allows concurrent readers
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	s := &Store{db: db, logger: log}
	if err := s.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS dedup_state (
			feed  TEXT PRIMARY KEY,
			day   TEXT NOT NULL,
			hash  TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS scan_history (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			ts            INTEGER NOT NULL,
			profile       TEXT NOT NULL,
			outcome       TEXT NOT NULL,
			universe_size INTEGER NOT NULL,
			pick_count    INTEGER NOT NULL,
			pages         INTEGER NOT NULL,
			fallback      INTEGER NOT NULL DEFAULT 0,
			truncated     INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scan_history_ts ON scan_history(ts DESC)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// GetDedup returns the stored (day, hash) for a feed, empty when unknown
func (s *Store) GetDedup(feed string) (day, hash string, err error) {
	row := s.db.QueryRow(`SELECT day, hash FROM dedup_state WHERE feed = ?`, feed)
	err = row.Scan(&day, &hash)
	if err == sql.ErrNoRows {
		return "", "", nil
	}
	if err != nil {
		return "", "", fmt.Errorf("query dedup state: %w", err)
	}
	return day, hash, nil
}

// SetDedup upserts the stored (day, hash) for a feed
func (s *Store) SetDedup(feed, day, hash string) error {
	_, err := s.db.Exec(`
		INSERT INTO dedup_state (feed, day, hash) VALUES (?, ?, ?)
		ON CONFLICT(feed) DO UPDATE SET day = excluded.day, hash = excluded.hash`,
		feed, day, hash)
	if err != nil {
		return fmt.Errorf("upsert dedup state: %w", err)
	}
	return nil
}

// RecordCycle appends one cycle record to the history
func (s *Store) RecordCycle(rec CycleRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO scan_history (ts, profile, outcome, universe_size, pick_count, pages, fallback, truncated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Timestamp.Unix(), rec.Profile, rec.Outcome, rec.UniverseSize,
		rec.PickCount, rec.Pages, boolToInt(rec.Fallback), rec.Truncated)
	if err != nil {
		return fmt.Errorf("insert scan history: %w", err)
	}
	return nil
}

// RecentCycles returns the newest cycle records, most recent first
func (s *Store) RecentCycles(limit int) ([]CycleRecord, error) {
	rows, err := s.db.Query(`
		SELECT ts, profile, outcome, universe_size, pick_count, pages, fallback, truncated
		FROM scan_history ORDER BY ts DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query scan history: %w", err)
	}
	defer rows.Close()

	var records []CycleRecord
	for rows.Next() {
		var rec CycleRecord
		var ts int64
		var fallback int
		if err := rows.Scan(&ts, &rec.Profile, &rec.Outcome, &rec.UniverseSize,
			&rec.PickCount, &rec.Pages, &fallback, &rec.Truncated); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		rec.Timestamp = time.Unix(ts, 0)
		rec.Fallback = fallback != 0
		records = append(records, rec)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate scan history: %w", rows.Err())
	}
	return records, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
