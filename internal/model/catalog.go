// Package model defines the data types shared by every replication
// component: the catalog entry consumed from discovery, the engine
// version pair, and the normalized record shape emitted to the sink.
package model

// ReplicationMethod selects which reader drives a stream.
type ReplicationMethod string

const (
	ReplicationIncremental ReplicationMethod = "INCREMENTAL"
	ReplicationLogBased    ReplicationMethod = "LOG_BASED"
)

// ReplicationKeyName is fixed for every stream the core handles; the
// underlying format (IncrementalId vs resume token) is determined by
// ReplicationMethod, not by this name.
const ReplicationKeyName = "replication_key"

// CatalogEntry is the input to the core, produced by catalog discovery
// (out of scope here) and otherwise read-only.
type CatalogEntry struct {
	StreamID           string
	TableName          string
	Database           string
	Schema             map[string]any
	ReplicationMethod  ReplicationMethod
	ReplicationKeyName string
	SelectedProperties map[string]bool
	// StatePartitioningKeys, when non-nil, marks the stream unsorted
	// regardless of replication method (spec.md §4.7).
	StatePartitioningKeys []string
}

// IsSelected reports whether a top-level property should be kept in the
// emitted record. Absence from SelectedProperties means "keep" (no
// catalog-driven masking configured), matching singer "select all by
// default" semantics.
func (c *CatalogEntry) IsSelected(property string) bool {
	if c.SelectedProperties == nil {
		return true
	}
	selected, known := c.SelectedProperties[property]
	return !known || selected
}

// EngineVersion is an ordered (major, minor) pair used by the resume
// strategy selector (C3) and gating fatal UnsupportedEngine errors.
type EngineVersion struct {
	Major int
	Minor int
}

// Less reports whether v is strictly below other.
func (v EngineVersion) Less(other EngineVersion) bool {
	if v.Major != other.Major {
		return v.Major < other.Major
	}
	return v.Minor < other.Minor
}

// AtLeast reports whether v >= other.
func (v EngineVersion) AtLeast(other EngineVersion) bool {
	return !v.Less(other)
}
