// Package server orchestrates protocol adapters over a shared store.
package server

import (
	"context"
	"fmt"
	"sync"

	"github.com/marmos91/packrat/internal/logger"
	"github.com/marmos91/packrat/pkg/adapter"
	"github.com/marmos91/packrat/pkg/store"
)

// Server runs a set of protocol adapters against one shared store.
// Today the backup protocol is the only adapter, but the seam keeps the
// store wiring in one place and leaves room for other front-ends.
type Server struct {
	store    store.Store
	adapters []adapter.Adapter

	mu     sync.Mutex
	served bool
}

// New creates a Server over the given store.
//
// Panics if the store is nil (programmer error).
func New(st store.Store) *Server {
	if st == nil {
		panic("server store cannot be nil")
	}

	return &Server{store: st}
}

// AddAdapter registers an adapter and injects the shared store into it.
// Must be called before Serve.
func (s *Server) AddAdapter(a adapter.Adapter) error {
	if a == nil {
		return fmt.Errorf("adapter cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.served {
		return fmt.Errorf("cannot add adapter %q after Serve", a.Name())
	}

	a.SetStore(s.store)
	s.adapters = append(s.adapters, a)
	return nil
}

// Serve starts every registered adapter and blocks until all of them
// return. The context cancels them; the first adapter error is
// returned.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	if s.served {
		s.mu.Unlock()
		return fmt.Errorf("server already serving")
	}
	s.served = true
	adapters := make([]adapter.Adapter, len(s.adapters))
	copy(adapters, s.adapters)
	s.mu.Unlock()

	if len(adapters) == 0 {
		return fmt.Errorf("no adapters registered")
	}

	errs := make(chan error, len(adapters))
	var wg sync.WaitGroup

	for _, a := range adapters {
		wg.Add(1)
		go func(a adapter.Adapter) {
			defer wg.Done()
			logger.Info("Starting %s adapter", a.Name())
			if err := a.Serve(ctx); err != nil {
				errs <- fmt.Errorf("%s adapter: %w", a.Name(), err)
			}
		}(a)
	}

	wg.Wait()
	close(errs)

	return <-errs
}
