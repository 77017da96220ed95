// Package store defines the keyed document port the engine persists
// through, plus a staging unit of work for multi-document operations.
// Documents are JSON values; implementations live in store/memory and
// store/sqlite.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get for keys that have never been written.
var ErrNotFound = errors.New("document not found")

// Store is a keyed JSON-document store. Get unmarshals the stored
// document into doc; Put marshals and overwrites whole documents.
// There is no compare-and-swap: callers serialize their own writers.
type Store interface {
	Get(ctx context.Context, key string, doc any) error
	Put(ctx context.Context, key string, doc any) error
	Delete(ctx context.Context, key string) error

	// Keys returns all stored keys with the given prefix, sorted.
	Keys(ctx context.Context, prefix string) ([]string, error)
}
