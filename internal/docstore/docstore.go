// Package docstore is the Badger-backed event store, for deployments that
// prefer an embedded document database over SQLite.
package docstore

import (
	"fmt"
	"os"

	"github.com/timshannon/badgerhold/v4"

	"github.com/TobiSchelling/catalysts/internal/store"
)

var _ store.Store = (*DB)(nil)

// DB wraps a badgerhold store.
type DB struct {
	store *badgerhold.Store
	dir   string
}

// Open creates or opens a Badger database in dir.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = dir
	options.ValueDir = dir
	options.Logger = nil

	s, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("opening badger database: %w", err)
	}
	return &DB{store: s, dir: dir}, nil
}

// Close closes the database.
func (db *DB) Close() error {
	if db.store != nil {
		return db.store.Close()
	}
	return nil
}

// Path returns the database directory.
func (db *DB) Path() string {
	return db.dir
}
