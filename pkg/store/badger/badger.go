// Package badger implements a backup store persisted in BadgerDB.
//
// Keys follow the schema "<clientID decimal>/<name>"; name validation
// forbids '/' inside names, so client prefixes never collide. A client
// is known exactly when at least one key carries its prefix, mirroring
// the non-empty-directory rule of the filesystem backend.
package badger

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/marmos91/packrat/internal/logger"
	"github.com/marmos91/packrat/pkg/store"
)

// BadgerStore persists client files in a BadgerDB database at a
// configured path. BadgerDB handles concurrent transactions internally;
// no additional locking is layered on top.
type BadgerStore struct {
	db *badger.DB
}

// New opens (or creates) the BadgerDB database at path.
func New(ctx context.Context, path string) (*BadgerStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opts := badger.DefaultOptions(path)
	opts.Logger = nil // badger's own logger is too chatty for our output

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	logger.Debug("Badger store opened at %s", path)
	return &BadgerStore{db: db}, nil
}

func clientPrefix(clientID uint32) []byte {
	return []byte(strconv.FormatUint(uint64(clientID), 10) + "/")
}

func fileKey(clientID uint32, name string) []byte {
	return append(clientPrefix(clientID), name...)
}

// clientKnown reports whether any key carries the client's prefix.
func clientKnown(txn *badger.Txn, clientID uint32) bool {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = clientPrefix(clientID)

	it := txn.NewIterator(opts)
	defer it.Close()

	it.Rewind()
	return it.Valid()
}

func (s *BadgerStore) Save(ctx context.Context, clientID uint32, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(fileKey(clientID, name), data)
	})
	if err != nil {
		return fmt.Errorf("badger save: %w", err)
	}
	return nil
}

func (s *BadgerStore) Restore(ctx context.Context, clientID uint32, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		if !clientKnown(txn, clientID) {
			return store.ErrNoClient
		}

		item, err := txn.Get(fileKey(clientID, name))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return store.ErrNoFile
			}
			return fmt.Errorf("badger get: %w", err)
		}

		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (s *BadgerStore) Delete(ctx context.Context, clientID uint32, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if !clientKnown(txn, clientID) {
			return store.ErrNoClient
		}

		key := fileKey(clientID, name)
		if _, err := txn.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return store.ErrNoFile
			}
			return fmt.Errorf("badger get: %w", err)
		}

		return txn.Delete(key)
	})
}

func (s *BadgerStore) List(ctx context.Context, clientID uint32) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var names []string
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := clientPrefix(clientID)

		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().Key()
			names = append(names, string(key[len(prefix):]))
		}

		if len(names) == 0 {
			return store.ErrNoClient
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}
