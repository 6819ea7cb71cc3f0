// Package store provides a persistence layer that abstracts database operations,
// automatically handling lock versions, timestamps, and event logging.
package store

import (
	"database/sql"
	"fmt"

	"github.com/lherron/recmerge/internal/db"
	"github.com/lherron/recmerge/internal/events"
)

// Store is the root store that provides access to domain-specific stores.
type Store struct {
	db *db.DB

	Records *RecordStore
}

// New creates a new Store wrapping the given database connection.
func New(database *db.DB) *Store {
	s := &Store{db: database}
	s.Records = &RecordStore{store: s}
	return s
}

// DB returns the underlying database connection (for read-only queries).
func (s *Store) DB() *db.DB {
	return s.db
}

// Events returns a writer over the store's event log, for reading history.
func (s *Store) Events() *events.Writer {
	return events.NewWriter(s.db.DB)
}

// withTx executes fn within a transaction. If fn returns nil, the transaction
// is committed; otherwise it is rolled back.
func (s *Store) withTx(fn func(tx *sql.Tx, ew *events.Writer) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	ew := events.NewWriter(s.db.DB)
	if err := fn(tx, ew); err != nil {
		return err
	}

	return tx.Commit()
}
