// Package file provides a file-based document store.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/dukex/flowrun/pkg/persistence"
)

// Store keeps each document as <root>/<collection>/<id>.json.
type Store struct {
	root string
	mu   sync.RWMutex
}

// NewStore creates a new Store with the specified root directory. A file://
// prefix is stripped.
func NewStore(root string) *Store {
	return &Store{root: strings.Replace(root, "file://", "", 1)}
}

// Root returns the directory documents are written under.
func (s *Store) Root() string {
	return s.root
}

func validateKey(collection, id string) error {
	for _, part := range []string{collection, id} {
		if part == "" || part == "." || part == ".." ||
			strings.ContainsAny(part, `/\`) || strings.Contains(part, "..") {
			return persistence.ErrInvalidID
		}
	}

	return nil
}

func (s *Store) path(collection, id string) string {
	return filepath.Join(s.root, collection, id+".json")
}

// Put writes the document, creating the collection directory when needed.
func (s *Store) Put(_ context.Context, collection, id string, doc []byte) error {
	if err := validateKey(collection, id); err != nil {
		return persistence.NewDocumentError("Put", collection, id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Join(s.root, collection), 0o750); err != nil {
		return persistence.NewDocumentError("Put", collection, id, err)
	}

	tmp := s.path(collection, id) + ".tmp"
	if err := os.WriteFile(tmp, doc, 0o600); err != nil {
		return persistence.NewDocumentError("Put", collection, id, err)
	}

	if err := os.Rename(tmp, s.path(collection, id)); err != nil {
		return persistence.NewDocumentError("Put", collection, id, err)
	}

	return nil
}

// Get reads a document.
func (s *Store) Get(_ context.Context, collection, id string) ([]byte, error) {
	if err := validateKey(collection, id); err != nil {
		return nil, persistence.NewDocumentError("Get", collection, id, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, err := os.ReadFile(s.path(collection, id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, persistence.NewDocumentError("Get", collection, id, persistence.ErrNotFound)
	}

	if err != nil {
		return nil, persistence.NewDocumentError("Get", collection, id, err)
	}

	return doc, nil
}

// Delete removes a document; missing documents are ignored.
func (s *Store) Delete(_ context.Context, collection, id string) error {
	if err := validateKey(collection, id); err != nil {
		return persistence.NewDocumentError("Delete", collection, id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path(collection, id))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return persistence.NewDocumentError("Delete", collection, id, err)
	}

	return nil
}

// List returns every document of a collection ordered by file name.
func (s *Store) List(_ context.Context, collection string) ([][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	files, err := fs.Glob(os.DirFS(filepath.Join(s.root, collection)), "*.json")
	if err != nil {
		return nil, persistence.NewDocumentError("List", collection, "", err)
	}

	sort.Strings(files)

	docs := make([][]byte, 0, len(files))

	for _, name := range files {
		doc, err := os.ReadFile(filepath.Join(s.root, collection, name))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}

		if err != nil {
			return nil, persistence.NewDocumentError("List", collection, name, err)
		}

		docs = append(docs, doc)
	}

	return docs, nil
}

// HealthCheck checks if the root directory exists.
func (s *Store) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(s.root); err != nil {
		return fmt.Errorf("file store root %s: %w", s.root, err)
	}

	return nil
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (s *Store) Close(_ context.Context) error {
	return nil
}
