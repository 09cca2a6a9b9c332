package statestore

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// BadgerStore persists bookmarks to a local BadgerDB, so a single
// extractor process can resume across restarts without the outer
// driver's state file (e.g. when running cmd/tap-mongodb standalone).
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore opens (creating if necessary) a BadgerDB at dbPath.
func NewBadgerStore(dbPath string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open bookmark store at %s: %w", dbPath, err)
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) GetBookmark(_ context.Context, streamID string) (string, error) {
	var value string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(streamID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			value = string(val)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read bookmark for %s: %w", streamID, err)
	}
	return value, nil
}

func (s *BadgerStore) SetBookmark(_ context.Context, streamID, value string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(streamID), []byte(value))
	})
	if err != nil {
		return fmt.Errorf("failed to write bookmark for %s: %w", streamID, err)
	}
	return nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}
