package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/nerrad567/bridgesim/internal/infrastructure/database"
)

// SQLiteStore keeps current snapshots in the snapshots table. Defaults are
// never stored in the database.
type SQLiteStore struct {
	db       *database.DB
	defaults fs.FS
}

// NewSQLiteStore returns a store backed by db. The snapshots migration must
// have been applied.
func NewSQLiteStore(db *database.DB, defaults fs.FS) *SQLiteStore {
	return &SQLiteStore{db: db, defaults: defaults}
}

// Load implements Store.
func (s *SQLiteStore) Load(ctx context.Context, kind string) ([]byte, error) {
	if err := validKind(kind); err != nil {
		return nil, err
	}

	var data string
	err := s.db.QueryRowContext(ctx, "SELECT data FROM snapshots WHERE kind = ?", kind).Scan(&data)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return s.LoadDefault(ctx, kind)
	case err != nil:
		return nil, fmt.Errorf("querying %s snapshot: %w", kind, err)
	}
	return []byte(data), nil
}

// LoadDefault implements Store.
func (s *SQLiteStore) LoadDefault(_ context.Context, kind string) ([]byte, error) {
	if err := validKind(kind); err != nil {
		return nil, err
	}
	return readDefault(kind, s.defaults)
}

// Save implements Store.
func (s *SQLiteStore) Save(ctx context.Context, kind string, data []byte) error {
	if err := validKind(kind); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshots (kind, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(kind) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`, kind, string(data), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("saving %s snapshot: %w", kind, err)
	}
	return nil
}
