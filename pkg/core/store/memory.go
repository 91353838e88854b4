package store

import (
	"context"
	"sort"
	"sync"

	"smme_finmodel/pkg/core/assumption"
)

// MemoryStore keeps documents in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]map[string]Document // user -> id -> doc
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]map[string]Document)}
}

func (s *MemoryStore) Save(ctx context.Context, userID string, model *assumption.ModelState, expectedVersion int64) (Summary, error) {
	if err := checkUser(userID); err != nil {
		return Summary{}, err
	}
	id, err := modelID(model)
	if err != nil {
		return Summary{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	owned := s.docs[userID]
	if owned == nil {
		owned = make(map[string]Document)
		s.docs[userID] = owned
	}
	prev, exists := owned[id]
	if err := checkVersion(expectedVersion, prev.Version, exists); err != nil {
		return Summary{}, err
	}

	doc := Document{ID: id, UserID: userID, Name: model.Name, Version: prev.Version + 1, UpdatedAt: now()}
	doc.CreatedAt = doc.UpdatedAt
	if exists {
		doc.CreatedAt = prev.CreatedAt
	}
	if doc.Model, err = encode(model, id, doc.Version); err != nil {
		return Summary{}, err
	}
	owned[id] = doc
	return doc.summary(), nil
}

func (s *MemoryStore) Load(ctx context.Context, userID, id string) (*assumption.ModelState, error) {
	if err := checkUser(userID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	doc, ok := s.docs[userID][id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return decode(doc.Model)
}

func (s *MemoryStore) List(ctx context.Context, userID string) ([]Summary, error) {
	if err := checkUser(userID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Summary, 0, len(s.docs[userID]))
	for _, d := range s.docs[userID] {
		out = append(out, d.summary())
	}
	sortSummaries(out)
	return out, nil
}

func (s *MemoryStore) Delete(ctx context.Context, userID, id string) error {
	if err := checkUser(userID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[userID][id]; !ok {
		return ErrNotFound
	}
	delete(s.docs[userID], id)
	return nil
}

func (s *MemoryStore) Close() error { return nil }

// sortSummaries orders newest update first, then by id for stability.
func sortSummaries(out []Summary) {
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
}
