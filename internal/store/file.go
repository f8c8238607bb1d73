package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/adrg/xdg"

	"disqusctl/pkg/disqus"
	"disqusctl/pkg/logging"
)

const (
	subsystem = "Store"

	appDir = "disqusctl"
)

// DefaultDir returns $XDG_STATE_HOME/disqusctl.
func DefaultDir() string {
	return filepath.Join(xdg.StateHome, appDir)
}

// FileStore persists each key as <dir>/<key>.json. The directory is created
// with mode 0700 and files are written with mode 0600.
type FileStore struct {
	mu  sync.Mutex
	dir string
}

// NewFileStore creates the store, creating dir if needed. An empty dir
// selects DefaultDir.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		dir = DefaultDir()
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the directory the store writes to.
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", fmt.Errorf("invalid store key %q", key)
	}
	return filepath.Join(s.dir, key+".json"), nil
}

func (s *FileStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, disqus.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", p, err)
	}
	return data, nil
}

// Set replaces the file atomically through a temporary file and rename.
func (s *FileStore) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.path(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, "."+key+"-*.tmp")
	if err != nil {
		return s.auditFailure("store_set_failed", key, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return s.auditFailure("store_set_failed", key, err)
	}
	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		return s.auditFailure("store_set_failed", key, err)
	}
	if err := tmp.Close(); err != nil {
		return s.auditFailure("store_set_failed", key, err)
	}
	if err := os.Rename(tmpName, p); err != nil {
		return s.auditFailure("store_set_failed", key, err)
	}

	logging.Logger(subsystem).Info("SECURITY_AUDIT: credential file written",
		"event", "store_set",
		"kind", string(KindFile),
		"key", key,
	)
	return nil
}

func (s *FileStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.path(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return s.auditFailure("store_delete_failed", key, err)
	}

	logging.Logger(subsystem).Info("SECURITY_AUDIT: credential file deleted",
		"event", "store_delete",
		"kind", string(KindFile),
		"key", key,
	)
	return nil
}

func (s *FileStore) auditFailure(event, key string, err error) error {
	logging.Logger(subsystem).Warn("SECURITY_AUDIT: credential file operation failed",
		"event", event,
		"kind", string(KindFile),
		"key", key,
		"error", err.Error(),
	)
	return fmt.Errorf("failed to update %s: %w", key, err)
}

var _ disqus.Store = (*FileStore)(nil)
