package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/MeltanoLabs/tap-mongodb/internal/model"
)

// catalogDocument is the on-disk shape of a discovered/selected
// catalog: one stream entry per collection, selected for replication.
type catalogDocument struct {
	Streams []catalogStreamEntry `json:"streams"`
}

type catalogStreamEntry struct {
	TapStreamID        string          `json:"tap_stream_id"`
	TableName          string          `json:"table_name"`
	Metadata           []streamMeta    `json:"metadata"`
	ReplicationMethod  string          `json:"replication_method"`
	ReplicationKey     string          `json:"replication_key"`
}

type streamMeta struct {
	Breadcrumb []string       `json:"breadcrumb"`
	Metadata   map[string]any `json:"metadata"`
}

func loadCatalog(path, database string) ([]*model.CatalogEntry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file %s: %w", path, err)
	}

	var doc catalogDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file %s: %w", path, err)
	}

	entries := make([]*model.CatalogEntry, 0, len(doc.Streams))
	for _, s := range doc.Streams {
		method := model.ReplicationIncremental
		if s.ReplicationMethod == string(model.ReplicationLogBased) {
			method = model.ReplicationLogBased
		}

		entries = append(entries, &model.CatalogEntry{
			StreamID:           s.TapStreamID,
			TableName:          s.TableName,
			Database:           database,
			ReplicationMethod:  method,
			ReplicationKeyName: model.ReplicationKeyName,
			SelectedProperties: selectedProperties(s.Metadata),
		})
	}
	return entries, nil
}

// selectedProperties extracts top-level property selection from the
// singer-style metadata array (one entry per breadcrumb), returning
// nil (select-all) when no property-level metadata is present.
func selectedProperties(entries []streamMeta) map[string]bool {
	var out map[string]bool
	for _, m := range entries {
		if len(m.Breadcrumb) != 2 || m.Breadcrumb[0] != "properties" {
			continue
		}
		selected, ok := m.Metadata["selected"].(bool)
		if !ok {
			continue
		}
		if out == nil {
			out = make(map[string]bool)
		}
		out[m.Breadcrumb[1]] = selected
	}
	return out
}
