package qa

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/IshaanNene/medfeed/internal/textmatch"
	"github.com/IshaanNene/medfeed/internal/types"
)

// Store persists question/answer pairs.
type Store interface {
	All(ctx context.Context) ([]textmatch.QAPair, error)
	Get(ctx context.Context, id int64) (*textmatch.QAPair, error)
	Upsert(ctx context.Context, question, answer string) (int64, error)
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int, error)
	Close() error
}

const schema = `
CREATE TABLE IF NOT EXISTS qa (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	question   TEXT    NOT NULL UNIQUE,
	answer     TEXT    NOT NULL,
	updated_at INTEGER NOT NULL
);`

// SQLiteStore is a Store backed by a single SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at dsn and applies the schema.
// ":memory:" gives a private in-memory store.
func OpenSQLite(ctx context.Context, dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, &types.StorageError{Backend: "sqlite", Err: err}
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		schema,
	} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, &types.StorageError{Backend: "sqlite", Err: fmt.Errorf("init: %w", err)}
		}
	}
	return &SQLiteStore{db: db}, nil
}

// All returns every pair in insertion order.
func (s *SQLiteStore) All(ctx context.Context) ([]textmatch.QAPair, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, question, answer FROM qa ORDER BY id`)
	if err != nil {
		return nil, &types.StorageError{Backend: "sqlite", Err: err}
	}
	defer rows.Close()

	var pairs []textmatch.QAPair
	for rows.Next() {
		var p textmatch.QAPair
		if err := rows.Scan(&p.ID, &p.Question, &p.Answer); err != nil {
			return nil, &types.StorageError{Backend: "sqlite", Err: err}
		}
		pairs = append(pairs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, &types.StorageError{Backend: "sqlite", Err: err}
	}
	return pairs, nil
}

// Get returns the pair with the given id, or ErrNotFound.
func (s *SQLiteStore) Get(ctx context.Context, id int64) (*textmatch.QAPair, error) {
	p := textmatch.QAPair{ID: id}
	err := s.db.QueryRowContext(ctx, `SELECT question, answer FROM qa WHERE id = ?`, id).
		Scan(&p.Question, &p.Answer)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &types.StorageError{Backend: "sqlite", Err: err}
	}
	return &p, nil
}

// Upsert stores answer under question, replacing the answer when the exact
// question already exists. It returns the row id.
func (s *SQLiteStore) Upsert(ctx context.Context, question, answer string) (int64, error) {
	question = strings.TrimSpace(question)
	answer = strings.TrimSpace(answer)
	if question == "" || answer == "" {
		return 0, ErrEmptyPair
	}

	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO qa (question, answer, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(question) DO UPDATE SET answer = excluded.answer, updated_at = excluded.updated_at
		RETURNING id`,
		question, answer, time.Now().Unix(),
	).Scan(&id)
	if err != nil {
		return 0, &types.StorageError{Backend: "sqlite", Err: err}
	}
	return id, nil
}

// Delete removes the pair with the given id, or returns ErrNotFound.
func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM qa WHERE id = ?`, id)
	if err != nil {
		return &types.StorageError{Backend: "sqlite", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &types.StorageError{Backend: "sqlite", Err: err}
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of stored pairs.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM qa`).Scan(&n); err != nil {
		return 0, &types.StorageError{Backend: "sqlite", Err: err}
	}
	return n, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
