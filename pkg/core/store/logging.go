package store

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"smme_finmodel/pkg/core/assumption"
)

type loggedStore struct {
	next ModelStore
	log  *zap.Logger
}

// WithLogging wraps a store so every operation is logged with its duration.
// Not-found and version conflicts log at info; backend failures at error.
func WithLogging(s ModelStore, log *zap.Logger) ModelStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &loggedStore{next: s, log: log.Named("store")}
}

func (l *loggedStore) done(op, userID string, start time.Time, err error, fields ...zap.Field) {
	fields = append(fields, zap.String("op", op), zap.String("user", userID), zap.Duration("took", time.Since(start)))
	switch {
	case err == nil:
		l.log.Debug("model store", fields...)
	case errors.Is(err, ErrBackend):
		l.log.Error("model store failed", append(fields, zap.Error(err))...)
	default:
		l.log.Info("model store rejected", append(fields, zap.Error(err))...)
	}
}

func (l *loggedStore) Save(ctx context.Context, userID string, model *assumption.ModelState, expectedVersion int64) (Summary, error) {
	start := time.Now()
	sum, err := l.next.Save(ctx, userID, model, expectedVersion)
	l.done("save", userID, start, err, zap.String("model", sum.ID), zap.Int64("version", sum.Version))
	return sum, err
}

func (l *loggedStore) Load(ctx context.Context, userID, id string) (*assumption.ModelState, error) {
	start := time.Now()
	m, err := l.next.Load(ctx, userID, id)
	l.done("load", userID, start, err, zap.String("model", id))
	return m, err
}

func (l *loggedStore) List(ctx context.Context, userID string) ([]Summary, error) {
	start := time.Now()
	out, err := l.next.List(ctx, userID)
	l.done("list", userID, start, err, zap.Int("count", len(out)))
	return out, err
}

func (l *loggedStore) Delete(ctx context.Context, userID, id string) error {
	start := time.Now()
	err := l.next.Delete(ctx, userID, id)
	l.done("delete", userID, start, err, zap.String("model", id))
	return err
}

func (l *loggedStore) Close() error {
	return l.next.Close()
}
