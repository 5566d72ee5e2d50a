// Package memory implements an in-memory backup store. It backs tests
// and throwaway deployments; nothing survives a restart.
package memory

import (
	"context"
	"sync"

	"github.com/marmos91/packrat/pkg/store"
)

// MemoryStore keeps every client's files in a map guarded by a single
// read-write mutex.
//
// Deleting a client's last file leaves the empty namespace behind, just
// as the filesystem backend leaves the empty directory: an empty
// namespace reads as an unknown client.
type MemoryStore struct {
	mu      sync.RWMutex
	clients map[uint32]map[string][]byte
}

// New creates an empty memory store.
func New() *MemoryStore {
	return &MemoryStore{
		clients: make(map[uint32]map[string][]byte),
	}
}

func (s *MemoryStore) Save(ctx context.Context, clientID uint32, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	files := s.clients[clientID]
	if files == nil {
		files = make(map[string][]byte)
		s.clients[clientID] = files
	}

	// Copy so later caller mutations cannot reach stored state.
	stored := make([]byte, len(data))
	copy(stored, data)
	files[name] = stored

	return nil
}

func (s *MemoryStore) Restore(ctx context.Context, clientID uint32, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	files := s.clients[clientID]
	if len(files) == 0 {
		return nil, store.ErrNoClient
	}

	data, ok := files[name]
	if !ok {
		return nil, store.ErrNoFile
	}

	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (s *MemoryStore) Delete(ctx context.Context, clientID uint32, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	files := s.clients[clientID]
	if len(files) == 0 {
		return store.ErrNoClient
	}

	if _, ok := files[name]; !ok {
		return store.ErrNoFile
	}

	delete(files, name)
	return nil
}

func (s *MemoryStore) List(ctx context.Context, clientID uint32) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	files := s.clients[clientID]
	if len(files) == 0 {
		return nil, store.ErrNoClient
	}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}

	return names, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
