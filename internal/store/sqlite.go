package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLite is the single-node Store.
type SQLite struct {
	db *sql.DB
}

// DefaultSQLitePath returns ~/.go_jobboard/visitors.db.
func DefaultSQLitePath() string {
	return filepath.Join(os.Getenv("HOME"), ".go_jobboard", "visitors.db")
}

// OpenSQLite opens (or creates) the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	if path == "" {
		path = DefaultSQLitePath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("store: mkdir %s: %w", filepath.Dir(path), err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite: single writer
	if err := initSQLiteSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: init schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func initSQLiteSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS visitors (
			visitor_id    TEXT PRIMARY KEY,
			subscribed    INTEGER NOT NULL DEFAULT 0,
			subscribed_at TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS recent_searches (
			visitor_id  TEXT NOT NULL,
			query_key   TEXT NOT NULL,
			query       TEXT NOT NULL,
			location    TEXT NOT NULL DEFAULT '',
			searched_at INTEGER NOT NULL,
			PRIMARY KEY (visitor_id, query_key)
		)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLite) Subscribed(ctx context.Context, visitorID string) (bool, error) {
	if visitorID == "" {
		return false, ErrNoVisitor
	}
	var v int
	err := s.db.QueryRowContext(ctx, `SELECT subscribed FROM visitors WHERE visitor_id = ?`, visitorID).Scan(&v)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("store: read subscribed: %w", err)
	}
	return v != 0, nil
}

func (s *SQLite) SetSubscribed(ctx context.Context, visitorID string, at time.Time) error {
	if visitorID == "" {
		return ErrNoVisitor
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO visitors (visitor_id, subscribed, subscribed_at) VALUES (?, 1, ?)
		 ON CONFLICT(visitor_id) DO UPDATE SET subscribed = 1, subscribed_at = excluded.subscribed_at`,
		visitorID, at.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("store: set subscribed: %w", err)
	}
	return nil
}

func (s *SQLite) ClearSubscribed(ctx context.Context, visitorID string) error {
	if visitorID == "" {
		return ErrNoVisitor
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE visitors SET subscribed = 0, subscribed_at = NULL WHERE visitor_id = ?`, visitorID)
	if err != nil {
		return fmt.Errorf("store: clear subscribed: %w", err)
	}
	return nil
}

func (s *SQLite) RecentSearches(ctx context.Context, visitorID string) ([]RecentSearch, error) {
	if visitorID == "" {
		return nil, ErrNoVisitor
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT query, location, searched_at FROM recent_searches
		 WHERE visitor_id = ? ORDER BY searched_at DESC LIMIT ?`, visitorID, MaxRecent)
	if err != nil {
		return nil, fmt.Errorf("store: list recent: %w", err)
	}
	defer rows.Close()

	out := make([]RecentSearch, 0, MaxRecent)
	for rows.Next() {
		var r RecentSearch
		var at int64
		if err := rows.Scan(&r.Query, &r.Location, &at); err != nil {
			return nil, fmt.Errorf("store: scan recent: %w", err)
		}
		r.At = time.Unix(0, at).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLite) PushRecentSearch(ctx context.Context, visitorID string, rs RecentSearch) error {
	if visitorID == "" {
		return ErrNoVisitor
	}
	rs, key, ok := normalize(rs)
	if !ok {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO recent_searches (visitor_id, query_key, query, location, searched_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(visitor_id, query_key) DO UPDATE SET
		   query = excluded.query, location = excluded.location, searched_at = excluded.searched_at`,
		visitorID, key, rs.Query, rs.Location, rs.At.UnixNano()); err != nil {
		return fmt.Errorf("store: push recent: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM recent_searches WHERE visitor_id = ? AND query_key NOT IN (
		   SELECT query_key FROM recent_searches WHERE visitor_id = ?
		   ORDER BY searched_at DESC LIMIT ?)`,
		visitorID, visitorID, MaxRecent); err != nil {
		return fmt.Errorf("store: trim recent: %w", err)
	}
	return tx.Commit()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
