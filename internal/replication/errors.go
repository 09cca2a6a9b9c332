// Package replication implements the incremental and log-based
// readers (C5/C6), the stream state machine (C7), and the record
// emitter (C8): together the engine that turns a catalog entry and a
// bookmark into an ordered sequence of normalized records plus
// updated bookmarks.
package replication

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is returned when a CatalogEntry or reader
	// configuration is invalid (e.g. a reader built for a stream with a
	// different replication method, or an unparseable start_date).
	ErrInvalidConfig = errors.New("invalid stream configuration")

	// ErrInvalidFormat is returned by the log-based reader when a
	// persisted bookmark cannot be parsed as the operation time the
	// start_at_operation_time strategy needs. The incremental reader
	// does not return it: an unparseable IncrementalId bookmark falls
	// back to the configured start_date.
	ErrInvalidFormat = errors.New("invalid bookmark format")

	// ErrOutOfOrder is returned by the stream state machine when an
	// incremental-mode reader observes a replication key less than the
	// last advanced bookmark, violating the is_sorted invariant.
	ErrOutOfOrder = errors.New("replication key out of order")

	// ErrChangeStreamsDisabled corresponds to DocumentDB error code 136
	// ("modifyChangeStreams has not been run"): change streams are not
	// enabled on the target collection.
	ErrChangeStreamsDisabled = errors.New("change streams are not enabled on this collection")

	// ErrResumeTokenInvalidated corresponds to error code 286: the
	// persisted resume token has aged out of the oplog and the change
	// stream must be reopened without resume options.
	ErrResumeTokenInvalidated = errors.New("resume token is no longer valid")

	// ErrOperationFailureOther is the fatal catch-all for change-stream
	// failures that are neither code 136 nor code 286.
	ErrOperationFailureOther = errors.New("unrecoverable change stream operation failure")

	// ErrCannotEnableChangeStream is returned when the modifyChangeStreams
	// admin command itself fails after a code-136 open failure.
	ErrCannotEnableChangeStream = errors.New("failed to enable change streams")
)

// OperationFailureError wraps a MongoDB OperationFailure with its
// numeric error code so callers can branch on the exact failure
// category (136, 286, or anything else), matching spec.md §4.6's
// code-driven recovery table.
type OperationFailureError struct {
	Code    int
	Message string
}

func (e *OperationFailureError) Error() string {
	return fmt.Sprintf("operation failure (code %d): %s", e.Code, e.Message)
}

// Is allows errors.Is(err, ErrChangeStreamsDisabled) and
// errors.Is(err, ErrResumeTokenInvalidated) to match by code, without
// forcing callers to type-assert *OperationFailureError themselves.
func (e *OperationFailureError) Is(target error) bool {
	switch {
	case target == ErrChangeStreamsDisabled:
		return e.Code == 136
	case target == ErrResumeTokenInvalidated:
		return e.Code == 286
	default:
		return false
	}
}
