package store

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"smme_finmodel/pkg/core/assumption"
)

// FileStore keeps one JSON document per model under dir/<user>/<id>.json,
// where <user> is the hex encoded user id.
// Writes go to a temp file in the same directory and are renamed into place.
type FileStore struct {
	mu  sync.Mutex
	dir string
}

// NewFileStore creates the root directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, backendErr("create store dir", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) userDir(userID string) string {
	return filepath.Join(s.dir, hex.EncodeToString([]byte(userID)))
}

func (s *FileStore) path(userID, id string) string {
	return filepath.Join(s.userDir(userID), id+".json")
}

func (s *FileStore) read(path string) (Document, error) {
	var doc Document
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return doc, ErrNotFound
	}
	if err != nil {
		return doc, backendErr("read model", err)
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, backendErr(fmt.Sprintf("parse %s", filepath.Base(path)), err)
	}
	return doc, nil
}

func (s *FileStore) write(path string, doc Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return backendErr("create user dir", err)
	}
	tmp, err := os.CreateTemp(dir, ".model-*.tmp")
	if err != nil {
		return backendErr("create temp file", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return backendErr("write temp file", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return backendErr("sync temp file", err)
	}
	if err := tmp.Close(); err != nil {
		return backendErr("close temp file", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return backendErr("rename model file", err)
	}
	return nil
}

func (s *FileStore) Save(ctx context.Context, userID string, model *assumption.ModelState, expectedVersion int64) (Summary, error) {
	if err := checkUser(userID); err != nil {
		return Summary{}, err
	}
	id, err := modelID(model)
	if err != nil {
		return Summary{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	path := s.path(userID, id)
	prev, err := s.read(path)
	exists := err == nil
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Summary{}, err
	}
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
	if err := s.write(path, doc); err != nil {
		return Summary{}, err
	}
	return doc.summary(), nil
}

func (s *FileStore) Load(ctx context.Context, userID, id string) (*assumption.ModelState, error) {
	if err := checkUser(userID); err != nil {
		return nil, err
	}
	if !validID(id) {
		return nil, ErrNotFound
	}
	doc, err := s.read(s.path(userID, id))
	if err != nil {
		return nil, err
	}
	return decode(doc.Model)
}

func (s *FileStore) List(ctx context.Context, userID string) ([]Summary, error) {
	if err := checkUser(userID); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.userDir(userID))
	if errors.Is(err, fs.ErrNotExist) {
		return []Summary{}, nil
	}
	if err != nil {
		return nil, backendErr("list models", err)
	}
	out := make([]Summary, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") || !validID(strings.TrimSuffix(name, ".json")) {
			continue
		}
		doc, err := s.read(filepath.Join(s.userDir(userID), name))
		if err != nil {
			return nil, err
		}
		out = append(out, doc.summary())
	}
	sortSummaries(out)
	return out, nil
}

func (s *FileStore) Delete(ctx context.Context, userID, id string) error {
	if err := checkUser(userID); err != nil {
		return err
	}
	if !validID(id) {
		return ErrNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	err := os.Remove(s.path(userID, id))
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	if err != nil {
		return backendErr("delete model", err)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }
