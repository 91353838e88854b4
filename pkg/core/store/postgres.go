package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"smme_finmodel/pkg/core/assumption"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS financial_models (
	user_id    TEXT        NOT NULL,
	id         UUID        NOT NULL,
	name       TEXT        NOT NULL,
	version    BIGINT      NOT NULL,
	model      JSONB       NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (user_id, id)
);`

// PostgresStore keeps documents as JSONB rows.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to dsn and creates the table if missing.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := OpenPool(ctx, dsn)
	if err != nil {
		return nil, backendErr("connect", err)
	}
	s := NewPostgresStoreFromPool(pool)
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresStoreFromPool wraps an existing pool. The store owns it from
// then on and closes it in Close.
func NewPostgresStoreFromPool(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the models table.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresSchema); err != nil {
		return backendErr("create schema", err)
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, userID string, model *assumption.ModelState, expectedVersion int64) (Summary, error) {
	if err := checkUser(userID); err != nil {
		return Summary{}, err
	}
	id, err := modelID(model)
	if err != nil {
		return Summary{}, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Summary{}, backendErr("begin", err)
	}
	defer tx.Rollback(ctx)

	var (
		version int64
		created time.Time
	)
	err = tx.QueryRow(ctx, `SELECT version, created_at FROM financial_models WHERE user_id = $1 AND id = $2 FOR UPDATE`, userID, id).
		Scan(&version, &created)
	exists := err == nil
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return Summary{}, backendErr("read version", err)
	}
	if err := checkVersion(expectedVersion, version, exists); err != nil {
		return Summary{}, err
	}

	ts := now()
	sum := Summary{ID: id, Name: model.Name, Version: version + 1, CreatedAt: ts, UpdatedAt: ts}
	if exists {
		sum.CreatedAt = created.UTC()
	}
	body, err := encode(model, id, sum.Version)
	if err != nil {
		return Summary{}, err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO financial_models (user_id, id, name, version, model, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, id) DO UPDATE SET
			name = EXCLUDED.name,
			version = EXCLUDED.version,
			model = EXCLUDED.model,
			updated_at = EXCLUDED.updated_at`,
		userID, id, sum.Name, sum.Version, body, sum.CreatedAt, sum.UpdatedAt)
	if err != nil {
		return Summary{}, backendErr("save model", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return Summary{}, backendErr("commit", err)
	}
	return sum, nil
}

func (s *PostgresStore) Load(ctx context.Context, userID, id string) (*assumption.ModelState, error) {
	if err := checkUser(userID); err != nil {
		return nil, err
	}
	if !validID(id) {
		return nil, ErrNotFound
	}
	var body []byte
	err := s.pool.QueryRow(ctx, `SELECT model FROM financial_models WHERE user_id = $1 AND id = $2`, userID, id).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, backendErr("load model", err)
	}
	return decode(body)
}

func (s *PostgresStore) List(ctx context.Context, userID string) ([]Summary, error) {
	if err := checkUser(userID); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id::text, name, version, created_at, updated_at FROM financial_models
		WHERE user_id = $1 ORDER BY updated_at DESC, id`, userID)
	if err != nil {
		return nil, backendErr("list models", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Summary, error) {
		var sum Summary
		err := row.Scan(&sum.ID, &sum.Name, &sum.Version, &sum.CreatedAt, &sum.UpdatedAt)
		sum.CreatedAt, sum.UpdatedAt = sum.CreatedAt.UTC(), sum.UpdatedAt.UTC()
		return sum, err
	})
	if err != nil {
		return nil, backendErr("list models", err)
	}
	if out == nil {
		out = []Summary{}
	}
	return out, nil
}

func (s *PostgresStore) Delete(ctx context.Context, userID, id string) error {
	if err := checkUser(userID); err != nil {
		return err
	}
	if !validID(id) {
		return ErrNotFound
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM financial_models WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return backendErr("delete model", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
