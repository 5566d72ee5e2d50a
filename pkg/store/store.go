// Package store defines the storage engine interface shared by every
// backup backend and the sentinel errors that carry the protocol's two
// domain outcomes.
package store

import (
	"context"
	"errors"
)

// ErrNoClient reports that the client namespace does not exist or holds
// no files. The presence of a non-empty namespace is the only signal of a
// "known client"; clients are never pre-registered.
var ErrNoClient = errors.New("no such client")

// ErrNoFile reports that the client is known but the named file is not.
var ErrNoFile = errors.New("no such file")

// Store is a per-client file store. Implementations partition state by
// the 32-bit client identifier and treat file names as opaque single
// path components (wire validation guarantees they contain no
// separators).
//
// Semantics shared by all implementations:
//   - Save creates the client namespace lazily and truncates prior
//     content under the same name. It never returns ErrNoClient.
//   - Restore, Delete and List require a known client: a missing or
//     empty namespace yields ErrNoClient.
//   - Restore and Delete yield ErrNoFile when the client is known but
//     the name is not.
//   - List returns the stored names in backend enumeration order; the
//     order is unspecified.
//
// Any other error is an infrastructure failure and maps to a general
// error at the protocol layer.
type Store interface {
	Save(ctx context.Context, clientID uint32, name string, data []byte) error
	Restore(ctx context.Context, clientID uint32, name string) ([]byte, error)
	Delete(ctx context.Context, clientID uint32, name string) error
	List(ctx context.Context, clientID uint32) ([]string, error)

	// Close releases backend resources. The store must not be used
	// afterwards.
	Close() error
}
