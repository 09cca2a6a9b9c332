package replication

import (
	"context"
	"fmt"

	"github.com/jinzhu/copier"

	"github.com/MeltanoLabs/tap-mongodb/internal/model"
	"github.com/MeltanoLabs/tap-mongodb/internal/statestore"
)

// Bookmark is the persisted progress marker for one stream: an
// IncrementalId string for INCREMENTAL streams, a resume-token-derived
// string for LOG_BASED streams. The state machine treats it opaquely
// and only compares it lexicographically when IsSorted is true.
type Bookmark struct {
	StreamID string
	Value    string
}

// StreamStateMachine persists and advances a single stream's bookmark,
// enforcing the is_sorted invariant (spec.md §4.7: only INCREMENTAL
// streams without StatePartitioningKeys are required to observe
// strictly non-decreasing replication keys).
//
// Grounded on nodestorage/v2's cache.Cache[T] usage pattern (a small
// persisted-value store wrapped by domain logic) generalized from a
// document cache to a single string bookmark per stream, and on the
// original tap's MongoDBCollectionStream.is_sorted / _increment_stream_state.
type StreamStateMachine struct {
	store    statestore.Store
	entry    *model.CatalogEntry
	lastSeen string
	hasSeen  bool
}

// NewStreamStateMachine constructs a state machine for entry backed by
// store. It does not load the current bookmark; call Load explicitly.
func NewStreamStateMachine(store statestore.Store, entry *model.CatalogEntry) *StreamStateMachine {
	return &StreamStateMachine{store: store, entry: entry}
}

// IsSorted reports whether this stream must enforce strictly
// non-decreasing replication keys. LOG_BASED streams and any stream
// with StatePartitioningKeys configured are exempt.
func (s *StreamStateMachine) IsSorted() bool {
	return s.entry.ReplicationMethod == model.ReplicationIncremental && len(s.entry.StatePartitioningKeys) == 0
}

// Load reads the persisted bookmark, returning "" with no error if
// none has been written yet (a fresh stream).
func (s *StreamStateMachine) Load(ctx context.Context) (string, error) {
	value, err := s.store.GetBookmark(ctx, s.entry.StreamID)
	if err == statestore.ErrNotFound {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load bookmark for %s: %w", s.entry.StreamID, err)
	}
	return value, nil
}

// Advance validates and persists a new replication key for a record
// just emitted, rejecting it with ErrOutOfOrder if IsSorted is true and
// the key is strictly less than the last one advanced.
//
// A snapshot of the previous value is taken with copier.Copy before
// comparison, the same non-mutating-snapshot idiom the teacher uses in
// bsonpatch.go, so a caller retrying after ErrOutOfOrder observes the
// state machine's pre-failure bookmark unchanged.
func (s *StreamStateMachine) Advance(ctx context.Context, replicationKey string) error {
	var previous string
	if s.hasSeen {
		if err := copier.Copy(&previous, &s.lastSeen); err != nil {
			return fmt.Errorf("failed to snapshot bookmark: %w", err)
		}
	}

	if s.IsSorted() && s.hasSeen && replicationKey < previous {
		return fmt.Errorf("%w: stream %s saw %q after %q", ErrOutOfOrder, s.entry.StreamID, replicationKey, previous)
	}

	if err := s.store.SetBookmark(ctx, s.entry.StreamID, replicationKey); err != nil {
		return fmt.Errorf("failed to persist bookmark for %s: %w", s.entry.StreamID, err)
	}

	s.lastSeen = replicationKey
	s.hasSeen = true
	return nil
}

// PrimaryKeys returns the record fields that uniquely identify a
// document for this stream's replication method: ["replication_key"]
// for LOG_BASED (the resume token ordering supplies uniqueness),
// ["object_id"] otherwise, matching MongoDBCollectionStream.primary_keys.
func (s *StreamStateMachine) PrimaryKeys() []string {
	if s.entry.ReplicationMethod == model.ReplicationLogBased {
		return []string{"replication_key"}
	}
	return []string{"object_id"}
}
