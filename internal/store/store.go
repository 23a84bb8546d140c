package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Row is one ledger record
type Row struct {
	Platform string
	Account  string
	Image    string
	PostedAt time.Time
}

// Store is the append-only posting ledger. It only ever inserts and reads rows.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// New opens (or creates) the SQLite ledger at dbPath
func New(dbPath string) (*Store, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	s, err := NewWithDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewWithDB wraps an already opened database and ensures the schema exists
func NewWithDB(db *sql.DB) (*Store, error) {
	s := &Store{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate ledger: %w", err)
	}
	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS posted (
		platform TEXT,
		account TEXT,
		image TEXT,
		ts INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_posted_platform_image ON posted(platform, image);
	`

	_, err := s.db.Exec(schema)
	return err
}

// AlreadyPosted reports whether any row exists for platform and image,
// whatever account posted it
func (s *Store) AlreadyPosted(platform, image string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(
		`SELECT EXISTS(SELECT 1 FROM posted WHERE platform = ? AND image = ?)`,
		platform, image,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to query ledger: %w", err)
	}
	return exists, nil
}

// MarkPosted appends a ledger row stamped with the current unix time
func (s *Store) MarkPosted(platform, account, image string) error {
	_, err := s.db.Exec(
		`INSERT INTO posted (platform, account, image, ts) VALUES (?, ?, ?, ?)`,
		platform, account, image, s.now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to record post: %w", err)
	}
	return nil
}

// History returns up to limit rows, newest first. A limit <= 0 returns all rows.
func (s *Store) History(limit int) ([]Row, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(`
		SELECT platform, account, image, ts
		FROM posted
		ORDER BY ts DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		var account sql.NullString
		var ts int64
		if err := rows.Scan(&r.Platform, &account, &r.Image, &ts); err != nil {
			return nil, err
		}
		r.Account = account.String
		r.PostedAt = time.Unix(ts, 0)
		out = append(out, r)
	}
	return out, rows.Err()
}
