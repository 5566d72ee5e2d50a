// Package fs implements the canonical filesystem backend of the backup
// store.
//
// Layout: one directory per client under the configured root, named by
// the decimal client ID, one file per saved name. There is no index
// beside the filesystem itself; whether a client "exists" is decided
// solely by its directory being present and non-empty. Content on disk
// is byte-identical to the payload the client submitted.
package fs

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/marmos91/packrat/pkg/store"
)

// FSStore stores each client's files under root/<clientID>/.
//
// Concurrent writes to the same client and name race at the filesystem's
// native semantics (last writer wins); no cross-connection lock guards
// the tree.
type FSStore struct {
	root string
}

// New creates a filesystem store rooted at root, creating the root
// directory (including missing parents) if needed.
func New(ctx context.Context, root string) (*FSStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}

	return &FSStore{root: root}, nil
}

// Root returns the storage root directory.
func (s *FSStore) Root() string {
	return s.root
}

func (s *FSStore) clientDir(clientID uint32) string {
	return filepath.Join(s.root, strconv.FormatUint(uint64(clientID), 10))
}

// readClientDir enumerates the client directory, mapping a missing or
// empty directory to ErrNoClient.
func (s *FSStore) readClientDir(clientID uint32) ([]os.DirEntry, error) {
	entries, err := os.ReadDir(s.clientDir(clientID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, store.ErrNoClient
		}
		return nil, fmt.Errorf("read client directory: %w", err)
	}
	if len(entries) == 0 {
		return nil, store.ErrNoClient
	}
	return entries, nil
}

func (s *FSStore) Save(ctx context.Context, clientID uint32, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := s.clientDir(clientID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create client directory: %w", err)
	}

	// Name validation forbids path separators, so the join stays inside
	// the client directory.
	if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}

	return nil
}

func (s *FSStore) Restore(ctx context.Context, clientID uint32, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if _, err := s.readClientDir(clientID); err != nil {
		return nil, err
	}

	path := filepath.Join(s.clientDir(clientID), name)

	info, err := os.Stat(path)
	if err != nil {
		return nil, store.ErrNoFile
	}
	if info.Size() > math.MaxUint32 {
		// Cannot be carried by the wire format; treated as unreadable.
		return nil, fmt.Errorf("file size %d exceeds payload limit: %w", info.Size(), store.ErrNoFile)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		// A file that cannot be read reads as absent.
		return nil, fmt.Errorf("read file: %w: %w", err, store.ErrNoFile)
	}

	return data, nil
}

func (s *FSStore) Delete(ctx context.Context, clientID uint32, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := s.readClientDir(clientID); err != nil {
		return err
	}

	path := filepath.Join(s.clientDir(clientID), name)
	if _, err := os.Stat(path); err != nil {
		return store.ErrNoFile
	}

	if err := os.Remove(path); err != nil {
		return fmt.Errorf("remove file: %w", err)
	}

	return nil
}

func (s *FSStore) List(ctx context.Context, clientID uint32) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := s.readClientDir(clientID)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}

	return names, nil
}

func (s *FSStore) Close() error {
	return nil
}
