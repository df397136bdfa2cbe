package docstore

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("document not found")

// Store is a durable key-document store with atomic single-document
// transactions.
type Store interface {
	// Get returns ErrNotFound for a missing document.
	Get(ctx context.Context, key string) (*Document, error)

	// SetMerge applies patch in a single-document transaction.
	SetMerge(ctx context.Context, key string, patch *Patch) error

	// RunTransaction loads the document (a fresh one when absent), calls fn
	// and commits the result atomically. An error from fn aborts without
	// writing. fn may be called more than once on contention.
	RunTransaction(ctx context.Context, key string, fn func(doc *Document) error) error
}

// Closer is implemented by stores that hold connections.
type Closer interface {
	Close() error
}
