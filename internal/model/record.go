package model

import "time"

// Namespace identifies a (database, collection) pair, used both for the
// namespace a change event originated from and, for rename events, the
// namespace it moved to.
type Namespace struct {
	Database   string `json:"database"`
	Collection string `json:"collection"`
}

// NormalizedRecord is the fixed output shape produced by the readers
// (C5/C6) and finalized by the emitter (C8). Every field the spec names
// is present; INCREMENTAL leaves the change-stream-only fields
// (operation_type, cluster_time, update_description, to) nil, while
// LOG_BASED fills them from the change event.
type NormalizedRecord struct {
	ReplicationKey    string         `json:"replication_key"`
	ObjectID          *string        `json:"object_id"`
	Document          map[string]any `json:"document"`
	UpdateDescription map[string]any `json:"update_description,omitempty"`
	OperationType     *string        `json:"operation_type"`
	ClusterTime       *string        `json:"cluster_time"`
	Namespace         *Namespace     `json:"namespace"`
	To                *Namespace     `json:"to,omitempty"`

	// SdcExtractedAt is set by the log-based reader (C6) when record
	// metadata is enabled; the emitter (C8) removes it from the JSON
	// payload and uses it as the record message's time_extracted.
	SdcExtractedAt *time.Time `json:"_sdc_extracted_at,omitempty"`
	SdcBatchedAt   *time.Time `json:"_sdc_batched_at,omitempty"`
	SdcDeletedAt   *time.Time `json:"_sdc_deleted_at,omitempty"`
}

// RecordMessage is the singer-style RECORD message wrapping a
// NormalizedRecord for the outer driver's sink (spec.md §6).
type RecordMessage struct {
	Type          string         `json:"type"`
	Stream        string         `json:"stream"`
	Record        map[string]any `json:"record"`
	TimeExtracted time.Time      `json:"time_extracted"`
}
