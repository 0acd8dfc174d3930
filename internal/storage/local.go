package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage stores blobs under a directory on the local filesystem. It
// backs development setups where no Azure storage account is configured.
type LocalStorage struct {
	root string
}

var _ Interface = (*LocalStorage)(nil)

// NewLocalStorage creates a filesystem-backed store rooted at dir.
func NewLocalStorage(dir string) (*LocalStorage, error) {
	if dir == "" {
		return nil, fmt.Errorf("storage directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalStorage{root: dir}, nil
}

// Store writes data to a file under the root directory.
func (s *LocalStorage) Store(name string, data []byte) error {
	path := filepath.Join(s.root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", name, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

// Retrieve reads a stored file.
func (s *LocalStorage) Retrieve(name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(name)))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}

// List returns stored names with the given prefix.
func (s *LocalStorage) List(prefix string) ([]string, error) {
	var names []string
	err := filepath.Walk(s.root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list storage: %w", err)
	}
	return names, nil
}

// Delete removes a stored file.
func (s *LocalStorage) Delete(name string) error {
	if err := os.Remove(filepath.Join(s.root, filepath.FromSlash(name))); err != nil {
		return fmt.Errorf("failed to delete %s: %w", name, err)
	}
	return nil
}
