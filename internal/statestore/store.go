// Package statestore provides pluggable persistence for the per-stream
// bookmark the stream state machine (C7) reads and advances. It plays
// the role spec.md calls "the external state channel" — the outer
// driver owns the canonical persisted state file, but a Store gives the
// core (and, notably, a standalone run of cmd/tap-mongodb) a concrete
// place to read and write bookmarks from.
//
// The three implementations here are adapted from the teacher's
// cache.Cache[T] family (in-memory map, BadgerDB, Redis), repurposed
// from caching documents to persisting a single string value per
// stream.
package statestore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by GetBookmark when no value has ever been
// set for a stream. It is not itself a failure: callers fall back to
// the configured start_date / an empty resume token.
var ErrNotFound = errors.New("no bookmark recorded for stream")

// ErrClosed is returned when operating on a closed store.
var ErrClosed = errors.New("state store is closed")

// Store is the bookmark persistence contract used by
// replication.StreamStateMachine.
type Store interface {
	// GetBookmark returns the last-recorded replication_key_value for
	// streamID, or ErrNotFound if none has been recorded yet.
	GetBookmark(ctx context.Context, streamID string) (string, error)

	// SetBookmark records value as the current replication_key_value
	// for streamID, overwriting any previous value.
	SetBookmark(ctx context.Context, streamID, value string) error

	// Close releases any resources held by the store.
	Close() error
}
