package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gallery-backend/application/ports"
	"gallery-backend/domain/template"
	"gallery-backend/infrastructure/persistence"

	"go.uber.org/zap"
)

// Store is a DocumentStore over a local JSON file, used in development and
// by galleryctl. The version token is the SHA-256 of the file bytes.
// Writes are serialised within the process and checked against the bytes
// on disk, so edits made by hand between read and write are detected.
type Store struct {
	path   string
	mu     sync.Mutex
	logger *zap.Logger
}

// NewStore creates a file-backed document store
func NewStore(path string, logger *zap.Logger) *Store {
	return &Store{path: path, logger: logger}
}

// Path returns the document path
func (s *Store) Path() string { return s.path }

// Read implements ports.DocumentStore
func (s *Store) Read(_ context.Context) (ports.Snapshot, error) {
	data, version, err := s.load()
	if err != nil {
		return ports.Snapshot{}, err
	}
	templates, err := persistence.DecodeDocument(data)
	if err != nil {
		return ports.Snapshot{}, err
	}
	return ports.Snapshot{Templates: templates, Version: version}, nil
}

func (s *Store) load() ([]byte, string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", s.path, err)
	}
	return data, persistence.ContentVersion(data), nil
}

// Write implements ports.DocumentStore. The file is replaced atomically.
func (s *Store) Write(_ context.Context, templates template.Collection, expectedVersion, message string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, current, err := s.load()
	if err != nil {
		return "", err
	}
	if current != expectedVersion {
		return "", ports.ErrVersionConflict
	}

	data, err := persistence.EncodeDocument(templates)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", filepath.Dir(s.path), err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".templates-*.json")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return "", fmt.Errorf("replace %s: %w", s.path, err)
	}

	version := persistence.ContentVersion(data)
	s.logger.Info("Templates document written",
		zap.String("path", s.path),
		zap.String("message", message),
		zap.String("version", version),
	)
	return version, nil
}

var _ ports.DocumentStore = (*Store)(nil)
