// Package cache persists captured notes and comments to SQLite so dedup
// and the dashboard counts survive restarts.
package cache

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite capture history database.
type DB struct {
	db *sql.DB
}

// Open creates or opens the capture database and runs migrations.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

func migrate(db *sql.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS notes (
			note_id TEXT PRIMARY KEY,
			title TEXT NOT NULL DEFAULT '',
			ordinal INTEGER NOT NULL DEFAULT 0,
			total_count INTEGER NOT NULL DEFAULT 0,
			updated_at INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS comments (
			comment_id TEXT PRIMARY KEY,
			note_id TEXT NOT NULL,
			parent_comment_id TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL DEFAULT '',
			like_count TEXT NOT NULL DEFAULT '0',
			ip_location TEXT NOT NULL DEFAULT '',
			nickname TEXT NOT NULL DEFAULT '',
			is_sub_comment INTEGER NOT NULL DEFAULT 0,
			captured_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_comments_note ON comments(note_id)`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("executing migration: %w\nSQL: %s", err, m)
		}
	}
	return nil
}
