package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/MeltanoLabs/tap-mongodb/internal/statestore"
)

// stateDocument is the persisted-state shape from spec.md §6:
// {bookmarks: {<stream_id>: {replication_key, replication_key_value}}}.
type stateDocument struct {
	Bookmarks map[string]streamBookmark `json:"bookmarks"`
}

type streamBookmark struct {
	ReplicationKey      string `json:"replication_key"`
	ReplicationKeyValue string `json:"replication_key_value"`
}

// loadStateIntoStore reads a state file (if path is non-empty) and
// seeds store with every stream's persisted bookmark value.
func loadStateIntoStore(ctx context.Context, path string, store statestore.Store) error {
	if path == "" {
		return nil
	}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read state file %s: %w", path, err)
	}

	var doc stateDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("failed to parse state file %s: %w", path, err)
	}

	for streamID, bookmark := range doc.Bookmarks {
		if err := store.SetBookmark(ctx, streamID, bookmark.ReplicationKeyValue); err != nil {
			return fmt.Errorf("failed to seed bookmark for %s: %w", streamID, err)
		}
	}
	return nil
}
