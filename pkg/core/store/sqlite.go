package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "modernc.org/sqlite"

	"smme_finmodel/pkg/core/assumption"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS models (
	user_id    TEXT    NOT NULL,
	id         TEXT    NOT NULL,
	name       TEXT    NOT NULL,
	version    INTEGER NOT NULL,
	model      TEXT    NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (user_id, id)
);`

// SQLiteStore keeps documents in a single SQLite table.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at dsn, e.g. "models.db" or
// "file::memory:?cache=shared".
func NewSQLiteStore(ctx context.Context, dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, backendErr("open sqlite", err)
	}
	// One writer at a time keeps the read-check-write in Save atomic.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, backendErr("create schema", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Save(ctx context.Context, userID string, model *assumption.ModelState, expectedVersion int64) (Summary, error) {
	if err := checkUser(userID); err != nil {
		return Summary{}, err
	}
	id, err := modelID(model)
	if err != nil {
		return Summary{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Summary{}, backendErr("begin", err)
	}
	defer tx.Rollback()

	var version, created int64
	err = tx.QueryRowContext(ctx, `SELECT version, created_at FROM models WHERE user_id = ? AND id = ?`, userID, id).
		Scan(&version, &created)
	exists := err == nil
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return Summary{}, backendErr("read version", err)
	}
	if err := checkVersion(expectedVersion, version, exists); err != nil {
		return Summary{}, err
	}

	ts := now()
	sum := Summary{ID: id, Name: model.Name, Version: version + 1, CreatedAt: ts, UpdatedAt: ts}
	if exists {
		sum.CreatedAt = time.Unix(0, created).UTC()
	}
	body, err := encode(model, id, sum.Version)
	if err != nil {
		return Summary{}, err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO models (user_id, id, name, version, model, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, id) DO UPDATE SET
			name = excluded.name,
			version = excluded.version,
			model = excluded.model,
			updated_at = excluded.updated_at`,
		userID, id, sum.Name, sum.Version, string(body), sum.CreatedAt.UnixNano(), sum.UpdatedAt.UnixNano())
	if err != nil {
		return Summary{}, backendErr("save model", err)
	}
	if err := tx.Commit(); err != nil {
		return Summary{}, backendErr("commit", err)
	}
	return sum, nil
}

func (s *SQLiteStore) Load(ctx context.Context, userID, id string) (*assumption.ModelState, error) {
	if err := checkUser(userID); err != nil {
		return nil, err
	}
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT model FROM models WHERE user_id = ? AND id = ?`, userID, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, backendErr("load model", err)
	}
	return decode([]byte(body))
}

func (s *SQLiteStore) List(ctx context.Context, userID string) ([]Summary, error) {
	if err := checkUser(userID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, version, created_at, updated_at FROM models
		WHERE user_id = ? ORDER BY updated_at DESC, id`, userID)
	if err != nil {
		return nil, backendErr("list models", err)
	}
	defer rows.Close()

	out := []Summary{}
	for rows.Next() {
		var sum Summary
		var created, updated int64
		if err := rows.Scan(&sum.ID, &sum.Name, &sum.Version, &created, &updated); err != nil {
			return nil, backendErr("scan summary", err)
		}
		sum.CreatedAt = time.Unix(0, created).UTC()
		sum.UpdatedAt = time.Unix(0, updated).UTC()
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, backendErr("list models", err)
	}
	return out, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, userID, id string) error {
	if err := checkUser(userID); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM models WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return backendErr("delete model", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
