package snapshot

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	dirPermissions  = 0750
	filePermissions = 0600
)

// FileStore keeps snapshots as JSON files in one directory.
type FileStore struct {
	dir      string
	defaults fs.FS
}

// NewFileStore returns a store rooted at dir. Templates missing from dir
// are taken from defaults, typically Defaults().
func NewFileStore(dir string, defaults fs.FS) *FileStore {
	return &FileStore{dir: dir, defaults: defaults}
}

// Dir returns the storage directory.
func (s *FileStore) Dir() string { return s.dir }

// Load implements Store.
func (s *FileStore) Load(ctx context.Context, kind string) ([]byte, error) {
	if err := validKind(kind); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.dir, currentName(kind)))
	if err == nil && len(data) > 0 {
		return data, nil
	}
	return s.LoadDefault(ctx, kind)
}

// LoadDefault implements Store.
func (s *FileStore) LoadDefault(_ context.Context, kind string) ([]byte, error) {
	if err := validKind(kind); err != nil {
		return nil, err
	}
	return readDefault(kind, os.DirFS(s.dir), s.defaults)
}

// Save implements Store.
func (s *FileStore) Save(_ context.Context, kind string, data []byte) error {
	if err := validKind(kind); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, dirPermissions); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, currentName(kind)), data, filePermissions); err != nil {
		return fmt.Errorf("writing %s snapshot: %w", kind, err)
	}
	return nil
}
