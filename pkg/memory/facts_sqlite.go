// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"context"
	"database/sql"
	"errors"

	_ "modernc.org/sqlite"

	"github.com/jllopis/kairos-news/pkg/plugin"
)

// SQLiteFacts persists facts in SQLite.
type SQLiteFacts struct {
	db *sql.DB
}

// OpenSQLiteFacts opens (or creates) the database file at path.
func OpenSQLiteFacts(path string) (*SQLiteFacts, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store, err := NewSQLiteFacts(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// NewSQLiteFacts creates a SQLite-backed fact store and ensures schema.
func NewSQLiteFacts(db *sql.DB) (*SQLiteFacts, error) {
	if db == nil {
		return nil, errors.New("db is nil")
	}
	if err := ensureFactsSchema(db); err != nil {
		return nil, err
	}
	return &SQLiteFacts{db: db}, nil
}

// SaveFacts stores facts in one transaction. Existing IDs are left untouched.
func (s *SQLiteFacts) SaveFacts(ctx context.Context, facts []plugin.Fact) error {
	if len(facts) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO news_facts (
			id, session_id, claim, type, in_bio, already_known, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, f := range facts {
		f = stampFact(f)
		if _, err := stmt.ExecContext(ctx,
			f.ID,
			f.SessionID,
			f.Claim,
			string(f.Type),
			f.InBio,
			f.AlreadyKnown,
			f.CreatedAt.UTC(),
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListFacts returns the last limit facts of a session, oldest first. A
// non-positive limit returns them all.
func (s *SQLiteFacts) ListFacts(ctx context.Context, sessionID string, limit int) ([]plugin.Fact, error) {
	query := `
		SELECT id, session_id, claim, type, in_bio, already_known, created_at
		FROM news_facts
		WHERE session_id = ?
		ORDER BY created_at DESC, rowid DESC
	`
	args := []any{sessionID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var facts []plugin.Fact
	for rows.Next() {
		var (
			f       plugin.Fact
			typ     string
			created sql.NullTime
		)
		if err := rows.Scan(&f.ID, &f.SessionID, &f.Claim, &typ, &f.InBio, &f.AlreadyKnown, &created); err != nil {
			return nil, err
		}
		f.Type = plugin.FactType(typ)
		if created.Valid {
			f.CreatedAt = created.Time
		}
		facts = append(facts, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(facts)-1; i < j; i, j = i+1, j-1 {
		facts[i], facts[j] = facts[j], facts[i]
	}
	return facts, nil
}

// Close closes the underlying database.
func (s *SQLiteFacts) Close() error {
	return s.db.Close()
}

func ensureFactsSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS news_facts (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			claim TEXT NOT NULL,
			type TEXT NOT NULL,
			in_bio BOOLEAN NOT NULL DEFAULT 0,
			already_known BOOLEAN NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_news_facts_session ON news_facts(session_id, created_at);
	`)
	return err
}

var _ plugin.FactStore = (*SQLiteFacts)(nil)
