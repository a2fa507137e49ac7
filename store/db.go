package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by Get when no entry has the requested ID.
var ErrNotFound = errors.New("history entry not found")

// Entry records one generated QR image.
type Entry struct {
	ID         string `json:"id"`
	Content    string `json:"content"`
	OutputPath string `json:"output_path"`
	Version    int    `json:"version"`
	BoxSize    int    `json:"box_size"`
	Border     int    `json:"border"`
	Pixels     int    `json:"pixels"`
	CreatedAt  int64  `json:"created_at"`
}

// HistoryStore manages SQLite storage for generated QR images.
type HistoryStore struct {
	db *sql.DB
}

const createHistoryTable = `
CREATE TABLE IF NOT EXISTS history (
    id TEXT PRIMARY KEY,
    content TEXT NOT NULL,
    output_path TEXT NOT NULL DEFAULT '',
    version INTEGER NOT NULL DEFAULT 0,
    box_size INTEGER NOT NULL DEFAULT 0,
    border INTEGER NOT NULL DEFAULT 0,
    pixels INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL
);
`

const createIndexes = `
CREATE INDEX IF NOT EXISTS idx_history_created_at ON history(created_at);
`

// NewHistoryStore opens (or creates) the SQLite database at dbPath,
// initialises the schema and returns a ready-to-use HistoryStore.
func NewHistoryStore(dbPath string) (*HistoryStore, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	for _, stmt := range []string{createHistoryTable, createIndexes} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec schema statement: %w", err)
		}
	}

	return &HistoryStore{db: db}, nil
}

// Save inserts e. A missing ID or timestamp is filled in before the insert.
func (s *HistoryStore) Save(e *Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt == 0 {
		e.CreatedAt = time.Now().Unix()
	}

	const query = `
		INSERT INTO history
			(id, content, output_path, version, box_size, border, pixels, created_at)
		VALUES
			(?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query,
		e.ID,
		e.Content,
		e.OutputPath,
		e.Version,
		e.BoxSize,
		e.Border,
		e.Pixels,
		e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save history entry: %w", err)
	}
	return nil
}

// Recent returns entries newest first. Use limit and offset for pagination.
func (s *HistoryStore) Recent(limit, offset int) ([]Entry, error) {
	const query = `
		SELECT id, content, output_path, version, box_size, border, pixels, created_at
		FROM history
		ORDER BY created_at DESC, rowid DESC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.Query(query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("recent history: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Search returns entries whose content contains query, newest first.
func (s *HistoryStore) Search(query string, limit int) ([]Entry, error) {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(query)

	const q = `
		SELECT id, content, output_path, version, box_size, border, pixels, created_at
		FROM history
		WHERE content LIKE ? ESCAPE '\'
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`

	rows, err := s.db.Query(q, "%"+escaped+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("search history: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Get returns the entry with the given ID.
func (s *HistoryStore) Get(id string) (*Entry, error) {
	const query = `
		SELECT id, content, output_path, version, box_size, border, pixels, created_at
		FROM history
		WHERE id = ?
	`

	var e Entry
	err := s.db.QueryRow(query, id).Scan(
		&e.ID, &e.Content, &e.OutputPath, &e.Version,
		&e.BoxSize, &e.Border, &e.Pixels, &e.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get history entry: %w", err)
	}
	return &e, nil
}

// Close closes the underlying database connection.
func (s *HistoryStore) Close() error {
	return s.db.Close()
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(
			&e.ID, &e.Content, &e.OutputPath, &e.Version,
			&e.BoxSize, &e.Border, &e.Pixels, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history rows: %w", err)
	}
	return entries, nil
}
