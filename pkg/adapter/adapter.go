// Package adapter defines the protocol adapter interface served by the
// packrat server.
package adapter

import (
	"context"

	"github.com/marmos91/packrat/pkg/store"
)

// Adapter is one protocol front-end over the shared store.
type Adapter interface {
	// Name identifies the adapter in logs and errors.
	Name() string

	// SetStore injects the shared store. Called exactly once before
	// Serve.
	SetStore(st store.Store)

	// Serve accepts and handles connections until the context is
	// cancelled, then shuts down gracefully.
	Serve(ctx context.Context) error

	// Stop forces the adapter to stop accepting connections.
	Stop() error
}
