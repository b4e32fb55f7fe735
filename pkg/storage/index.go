// Package storage keeps the SQLite index of completed diary records.
package storage

import (
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// IndexEntry is one indexed diary record.
type IndexEntry struct {
	Date      time.Time
	UserID    string
	Rating    int
	Path      string
	CycleID   string
	CreatedAt time.Time
}

const dateLayout = "2006-01-02"

// Index manages the entry index database.
type Index struct {
	db *sql.DB
}

// OpenIndex opens (creating if needed) the index at dbPath.
func OpenIndex(dbPath string) (*Index, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create index directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}

	// SQLite supports one writer at a time; WAL keeps readers unblocked
	// while a finalize step writes.
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Index{db: db}, nil
}

// Close closes the underlying database.
func (i *Index) Close() error {
	return i.db.Close()
}

// Record upserts the index row for (date, user). Finalizing the same day
// twice overwrites the previous row; the record file it points at was
// overwritten too.
func (i *Index) Record(entry IndexEntry) error {
	query := `
		INSERT INTO entries (entry_date, user_id, rating, path, cycle_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (entry_date, user_id) DO UPDATE SET
			rating = excluded.rating,
			path = excluded.path,
			cycle_id = excluded.cycle_id,
			created_at = excluded.created_at
	`
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := i.db.Exec(query,
		entry.Date.Format(dateLayout),
		entry.UserID,
		entry.Rating,
		entry.Path,
		entry.CycleID,
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("recording entry: %w", err)
	}
	return nil
}

// List returns the user's indexed entries, newest first, capped at limit.
func (i *Index) List(userID string, limit int) ([]IndexEntry, error) {
	query := `
		SELECT entry_date, user_id, rating, path, cycle_id, created_at
		FROM entries
		WHERE user_id = ?
		ORDER BY entry_date DESC
		LIMIT ?
	`
	if limit <= 0 {
		limit = 10
	}

	rows, err := i.db.Query(query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}
	defer rows.Close()

	var entries []IndexEntry
	for rows.Next() {
		var e IndexEntry
		var dateStr string
		if err := rows.Scan(&dateStr, &e.UserID, &e.Rating, &e.Path, &e.CycleID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		if e.Date, err = time.Parse(dateLayout, dateStr); err != nil {
			return nil, fmt.Errorf("parsing entry date %q: %w", dateStr, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Get returns the indexed entry for (date, user), or nil when absent.
func (i *Index) Get(userID string, date time.Time) (*IndexEntry, error) {
	query := `
		SELECT entry_date, user_id, rating, path, cycle_id, created_at
		FROM entries
		WHERE user_id = ? AND entry_date = ?
	`
	var e IndexEntry
	var dateStr string
	err := i.db.QueryRow(query, userID, date.Format(dateLayout)).
		Scan(&dateStr, &e.UserID, &e.Rating, &e.Path, &e.CycleID, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting entry: %w", err)
	}
	if e.Date, err = time.Parse(dateLayout, dateStr); err != nil {
		return nil, fmt.Errorf("parsing entry date %q: %w", dateStr, err)
	}
	return &e, nil
}
