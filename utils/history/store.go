// Package history keeps generated PFMEA tables in a local SQLite database so
// they can be listed and re-exported without calling the model again.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kris-hansen/pfmea/utils/config"
	"github.com/kris-hansen/pfmea/utils/table"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by Get when no entry matches
var ErrNotFound = errors.New("history entry not found")

// ErrAmbiguous is returned by Get when an ID prefix matches several entries
var ErrAmbiguous = errors.New("history ID prefix is ambiguous")

const timeLayout = "2006-01-02 15:04:05.000"

const schema = `
CREATE TABLE IF NOT EXISTS generations (
	id TEXT PRIMARY KEY,
	created_at TEXT NOT NULL,
	source TEXT NOT NULL,
	process_name TEXT NOT NULL,
	equipment TEXT NOT NULL,
	notes TEXT NOT NULL DEFAULT '',
	model TEXT NOT NULL,
	headers TEXT NOT NULL,
	table_rows TEXT NOT NULL,
	row_count INTEGER NOT NULL,
	response TEXT NOT NULL DEFAULT '',
	elapsed_ms INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_generations_created_at ON generations (created_at);
`

// Entry is one stored generation
type Entry struct {
	ID          string        `json:"id"`
	CreatedAt   time.Time     `json:"created_at"`
	Source      string        `json:"source"` // "cli" or "server"
	ProcessName string        `json:"process_name"`
	Equipment   string        `json:"equipment"`
	Notes       string        `json:"notes,omitempty"`
	Model       string        `json:"model"`
	Table       *table.Table  `json:"table"`
	Response    string        `json:"response,omitempty"`
	Elapsed     time.Duration `json:"elapsed"`
}

// Store is a SQLite-backed history of generations
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database %s: %w", path, err)
	}
	// one writer at a time; the server records from many goroutines
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA busy_timeout = 5000;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure history database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create history schema: %w", err)
	}

	config.DebugLog("[History] Opened %s", path)
	return &Store{db: db}, nil
}

// Close releases the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores e. CreatedAt defaults to now.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.ID == "" {
		return fmt.Errorf("history entry has no ID")
	}
	if e.Table == nil {
		return fmt.Errorf("history entry %s has no table", e.ID)
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	headers, err := json.Marshal(e.Table.Headers)
	if err != nil {
		return fmt.Errorf("failed to encode headers: %w", err)
	}
	rows, err := json.Marshal(e.Table.Rows)
	if err != nil {
		return fmt.Errorf("failed to encode rows: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO generations
		 (id, created_at, source, process_name, equipment, notes, model, headers, table_rows, row_count, response, elapsed_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.CreatedAt.UTC().Format(timeLayout), e.Source, e.ProcessName, e.Equipment, e.Notes,
		e.Model, string(headers), string(rows), e.Table.Len(), e.Response, e.Elapsed.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to record generation %s: %w", e.ID, err)
	}
	config.DebugLog("[History] Recorded %s (%d rows)", e.ID, e.Table.Len())
	return nil
}

// List returns the newest entries first. limit <= 0 returns everything.
// The raw responses are left out.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT id, created_at, source, process_name, equipment, notes, model, headers, table_rows, elapsed_ms
		FROM generations ORDER BY created_at DESC, rowid DESC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows, false)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// Get returns the entry whose ID is id or starts with id
func (s *Store) Get(ctx context.Context, id string) (*Entry, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrNotFound
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, source, process_name, equipment, notes, model, headers, table_rows, elapsed_ms, response
		 FROM generations WHERE id = ? OR id LIKE ? ESCAPE '\' ORDER BY id = ? DESC LIMIT 2`,
		id, escapeLike(id)+"%", id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	defer rows.Close()

	var found []*Entry
	for rows.Next() {
		e, err := scanEntry(rows, true)
		if err != nil {
			return nil, err
		}
		found = append(found, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	switch {
	case len(found) == 0:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	case found[0].ID == id || len(found) == 1:
		return found[0], nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrAmbiguous, id)
	}
}

// Delete removes one entry by exact ID
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM generations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row scanner, withResponse bool) (*Entry, error) {
	var (
		e                 Entry
		createdAt         string
		headers, rowsJSON string
		elapsedMS         int64
	)
	dest := []interface{}{&e.ID, &createdAt, &e.Source, &e.ProcessName, &e.Equipment, &e.Notes, &e.Model, &headers, &rowsJSON, &elapsedMS}
	if withResponse {
		dest = append(dest, &e.Response)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, fmt.Errorf("failed to read history row: %w", err)
	}

	t := &table.Table{}
	if err := json.Unmarshal([]byte(headers), &t.Headers); err != nil {
		return nil, fmt.Errorf("corrupt headers in history entry %s: %w", e.ID, err)
	}
	if err := json.Unmarshal([]byte(rowsJSON), &t.Rows); err != nil {
		return nil, fmt.Errorf("corrupt rows in history entry %s: %w", e.ID, err)
	}
	e.Table = t
	e.Elapsed = time.Duration(elapsedMS) * time.Millisecond
	e.CreatedAt, _ = time.ParseInLocation(timeLayout, createdAt, time.UTC)
	return &e, nil
}

var likeEscaper = strings.NewReplacer(`%`, `\%`, `_`, `\_`, `\`, `\\`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
