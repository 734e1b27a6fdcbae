// Package storage provides SQLite-backed persistence for scan watermarks.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Storage wraps a SQLite database holding one watermark row per source.
type Storage struct {
	db *sql.DB
}

// New opens or creates the SQLite database at dbPath.
// An empty dbPath defaults to $TMPDIR/steamdeals/data.db.
func New(dbPath string) (*Storage, error) {
	if dbPath == "" {
		dbPath = filepath.Join(os.TempDir(), "steamdeals", "data.db")
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer; WAL allows concurrent readers
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	s := &Storage{db: db}
	if err := s.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) createTables() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS watermarks (
		source     TEXT PRIMARY KEY,
		scanned_at INTEGER NOT NULL
	)`)
	return err
}

// LoadWatermark returns the stored watermark for source, or the zero time
// when none has been saved yet.
func (s *Storage) LoadWatermark(source string) (time.Time, error) {
	row := s.db.QueryRow(`SELECT scanned_at FROM watermarks WHERE source = ?`, source)
	var scannedAtNano int64
	err := row.Scan(&scannedAtNano)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to load watermark: %w", err)
	}
	return time.Unix(0, scannedAtNano), nil
}

// SaveWatermark upserts the watermark for source.
func (s *Storage) SaveWatermark(source string, scannedAt time.Time) error {
	_, err := s.db.Exec(`
		INSERT INTO watermarks (source, scanned_at) VALUES (?, ?)
		ON CONFLICT(source) DO UPDATE SET scanned_at = excluded.scanned_at`,
		source, scannedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to save watermark: %w", err)
	}
	return nil
}
