// Package store persists model documents. Every backend writes whole
// documents keyed by owner and model id; there are no partial updates.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"smme_finmodel/pkg/core/assumption"
)

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrNotFound         = errors.New("model not found")
	// ErrVersionConflict is returned when a save names an expected version
	// that no longer matches the stored document.
	ErrVersionConflict = errors.New("model version conflict")
	ErrInvalidID       = errors.New("invalid model id")
	ErrBackend         = errors.New("storage backend failure")
)

// Summary is the list view of a saved model. It never carries statement data.
type Summary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Document is a stored model together with its ownership metadata.
type Document struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	Name      string          `json:"name"`
	Version   int64           `json:"version"`
	Model     json.RawMessage `json:"model"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

func (d Document) summary() Summary {
	return Summary{ID: d.ID, Name: d.Name, Version: d.Version, CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt}
}

// ModelStore is the persistence boundary.
//
// Save writes the whole snapshot. A model without an ID gets a new one.
// expectedVersion > 0 must match the stored version or the save fails with
// ErrVersionConflict; 0 means last writer wins.
type ModelStore interface {
	Save(ctx context.Context, userID string, model *assumption.ModelState, expectedVersion int64) (Summary, error)
	Load(ctx context.Context, userID, id string) (*assumption.ModelState, error)
	List(ctx context.Context, userID string) ([]Summary, error)
	Delete(ctx context.Context, userID, id string) error
	Close() error
}

// =============================================================================
// SHARED HELPERS
// =============================================================================

func checkUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrNotAuthenticated
	}
	return nil
}

// modelID returns the id to save under, minting one for new models.
func modelID(model *assumption.ModelState) (string, error) {
	if model == nil {
		return "", errors.New("save: nil model")
	}
	if model.ID == "" {
		return uuid.NewString(), nil
	}
	if _, err := uuid.Parse(model.ID); err != nil {
		return "", fmt.Errorf("%w: '%s' is not a UUID", ErrInvalidID, model.ID)
	}
	return model.ID, nil
}

// validID guards lookups; ids are always UUIDs.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func checkVersion(expected, current int64, exists bool) error {
	if expected <= 0 {
		return nil
	}
	if !exists || expected != current {
		return fmt.Errorf("%w: expected version %d, stored %d", ErrVersionConflict, expected, current)
	}
	return nil
}

// encode stamps id and version on a copy of the model and serialises it.
func encode(model *assumption.ModelState, id string, version int64) ([]byte, error) {
	c := model.Clone()
	c.ID = id
	c.Version = version
	data, err := c.ToJSON()
	if err != nil {
		return nil, fmt.Errorf("encode model: %w", err)
	}
	return data, nil
}

func decode(data []byte) (*assumption.ModelState, error) {
	m, err := assumption.FromJSON(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBackend, err)
	}
	return m, nil
}

func backendErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrBackend, op, err)
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
