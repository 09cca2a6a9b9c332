package replication

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/MeltanoLabs/tap-mongodb/internal/connector"
	"github.com/MeltanoLabs/tap-mongodb/internal/corelog"
	"github.com/MeltanoLabs/tap-mongodb/internal/model"
	"github.com/MeltanoLabs/tap-mongodb/internal/resume"
	"github.com/MeltanoLabs/tap-mongodb/internal/sanitize"

	"go.uber.org/zap"
)

// DefaultOperationTypes is the allowlist a change event's operationType
// must belong to for the event to be emitted, matching the original
// tap's operation_types default.
var DefaultOperationTypes = []string{"create", "delete", "insert", "replace", "update"}

// LogBasedConfig carries the run-scoped settings the log-based reader
// needs beyond the catalog entry: resume preference, operation-type
// allowlist, and the DocumentDB auto-enable opt-in.
type LogBasedConfig struct {
	ResumePreference         resume.Preference
	AllowedOperationTypes    []string
	AllowModifyChangeStreams bool
	AddRecordMetadata        bool
	// DatetimeMode selects the datetime_conversion rendering the
	// sanitizer applies to every change event's document fields.
	DatetimeMode sanitize.Mode
}

func (c LogBasedConfig) allowedOps() map[string]bool {
	types := c.AllowedOperationTypes
	if len(types) == 0 {
		types = DefaultOperationTypes
	}
	out := make(map[string]bool, len(types))
	for _, t := range types {
		out[t] = true
	}
	return out
}

// LogBasedReader drives a MongoDB change stream for a single collection
// (C6), implementing the Opening/EnableCS/Polling/Terminating state
// machine from spec.md §4.6.
//
// Grounded on nodestorage/v2's StorageImpl.Watch/startWatching for the
// collection.Watch/stream.Next/stream.Decode shape, generalized from a
// goroutine-fed broadcast channel to a synchronous pull contract per
// spec.md §9's re-architecture note, and on the original tap's
// MongoDBCollectionStream LOG_BASED branch for the exact recovery table.
type LogBasedReader struct {
	conn       *connector.Connector
	collection *mongo.Collection
	entry      *model.CatalogEntry
	cfg        LogBasedConfig
	version    model.EngineVersion
}

// NewLogBasedReader builds a reader for entry against collection, using
// version (already probed by the connector) to pick the resume strategy.
func NewLogBasedReader(conn *connector.Connector, collection *mongo.Collection, entry *model.CatalogEntry, version model.EngineVersion, cfg LogBasedConfig) (*LogBasedReader, error) {
	if entry.ReplicationMethod != model.ReplicationLogBased {
		return nil, fmt.Errorf("%w: stream %s is not configured for log-based replication", ErrInvalidConfig, entry.StreamID)
	}
	return &LogBasedReader{conn: conn, collection: collection, entry: entry, cfg: cfg, version: version}, nil
}

// Run opens a change stream starting from bookmark (empty for a fresh
// stream) and invokes emit for each normalized record, including a
// single terminal dummy record in the MongoDB-idle-empty-stream case.
// Run returns when the stream has caught up (real record seen and no
// more pending) or when ctx is cancelled.
func (r *LogBasedReader) Run(ctx context.Context, bookmark string, emit func(ctx context.Context, rec *model.NormalizedRecord) error) error {
	stream, err := r.open(ctx, bookmark)
	if err != nil {
		return err
	}
	defer func() { stream.Close(ctx) }()

	allowed := r.cfg.allowedOps()
	hasSeenReal := false

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		ok := stream.TryNext(ctx)
		if !ok {
			if err := stream.Err(); err != nil && !errors.Is(err, context.Canceled) {
				recovered, reopenErr := r.recoverOrFatal(ctx, err)
				if reopenErr != nil {
					return reopenErr
				}
				stream.Close(ctx)
				stream = recovered
				continue
			}

			// Polling | null && !seen && token -> Terminating: emit dummy.
			if !hasSeenReal {
				if token := stream.ResumeToken(); token != nil {
					if err := r.emitDummy(ctx, token, emit); err != nil {
						return err
					}
					return nil
				}
				// DocumentDB: token is null until an event occurs; keep polling.
				continue
			}

			// Polling | null && seen -> Terminating: caught up.
			return nil
		}

		var event bson.M
		if err := stream.Decode(&event); err != nil {
			return fmt.Errorf("failed to decode change event for %s: %w", r.entry.StreamID, err)
		}

		rec, opType, ok := r.toRecord(event, stream.ResumeToken())
		if !ok || !allowed[opType] {
			continue
		}

		if err := emit(ctx, rec); err != nil {
			return err
		}
		hasSeenReal = true
	}
}

func (r *LogBasedReader) open(ctx context.Context, bookmark string) (*mongo.ChangeStream, error) {
	pipeline := mongo.Pipeline{}
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)

	if bookmark != "" && bookmark != DefaultStartDate {
		strategy, err := resume.Select(r.version, r.cfg.ResumePreference)
		if err != nil {
			return nil, err
		}
		switch strategy {
		case resume.StartAfter:
			opts.SetStartAfter(bson.D{{Key: "_data", Value: bookmark}})
		case resume.StartAtOperationTime:
			ts, err := operationTimeFromBookmark(bookmark)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
			}
			opts.SetStartAtOperationTime(ts)
		default:
			opts.SetResumeAfter(bson.D{{Key: "_data", Value: bookmark}})
		}
	}

	stream, err := r.collection.Watch(ctx, pipeline, opts)
	if err == nil {
		return stream, nil
	}

	if opFailure, code, ok := asOperationFailure(err); ok {
		switch code {
		case 136:
			if !r.cfg.AllowModifyChangeStreams {
				return nil, fmt.Errorf("%w: %s", ErrChangeStreamsDisabled, opFailure.Message)
			}
			if enableErr := r.enableChangeStreams(ctx); enableErr != nil {
				return nil, fmt.Errorf("%w for %s: %v", ErrCannotEnableChangeStream, r.entry.StreamID, enableErr)
			}
			// Retry the identical open: modifyChangeStreams only toggles
			// whether the stream can be opened at all, it does not
			// invalidate any resume token the bookmark selected above.
			return r.collection.Watch(ctx, pipeline, opts)
		case 286:
			// Unlike the 136 case above, the resume token itself is what's
			// invalid here, so the retry must drop it rather than reuse opts.
			corelog.Warn("resume token invalidated while opening change stream, reopening from current time",
				zap.String("stream", r.entry.StreamID))
			return r.collection.Watch(ctx, pipeline, options.ChangeStream().SetFullDocument(options.UpdateLookup))
		}
	}

	return nil, fmt.Errorf("failed to open change stream for %s: %w", r.entry.StreamID, err)
}

func (r *LogBasedReader) recoverOrFatal(ctx context.Context, err error) (*mongo.ChangeStream, error) {
	if _, code, ok := asOperationFailure(err); ok && code == 286 {
		corelog.Warn("resume token invalidated during polling, reopening from current time",
			zap.String("stream", r.entry.StreamID))
		opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)
		stream, openErr := r.collection.Watch(ctx, mongo.Pipeline{}, opts)
		if openErr != nil {
			return nil, fmt.Errorf("failed to reopen change stream for %s after token invalidation: %w", r.entry.StreamID, openErr)
		}
		return stream, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrOperationFailureOther, err)
}

func (r *LogBasedReader) enableChangeStreams(ctx context.Context) error {
	cmd := bson.D{
		{Key: "modifyChangeStreams", Value: 1},
		{Key: "database", Value: r.collection.Database().Name()},
		{Key: "collection", Value: r.collection.Name()},
		{Key: "enable", Value: true},
	}
	_, err := r.conn.AdminCommand(ctx, cmd)
	return err
}

func (r *LogBasedReader) emitDummy(ctx context.Context, token bson.Raw, emit func(ctx context.Context, rec *model.NormalizedRecord) error) error {
	data, err := resumeTokenData(token)
	if err != nil {
		return err
	}
	rec := &model.NormalizedRecord{ReplicationKey: data}
	return emit(ctx, rec)
}

func (r *LogBasedReader) toRecord(event bson.M, token bson.Raw) (*model.NormalizedRecord, string, bool) {
	opType, _ := event["operationType"].(string)

	data, err := resumeTokenData(token)
	if err != nil {
		corelog.Warn("change event missing usable resume token", zap.Error(err))
		return nil, opType, false
	}

	rec := &model.NormalizedRecord{
		ReplicationKey: data,
		OperationType:  strPtr(opType),
	}

	if ct, ok := event["clusterTime"].(primitive.Timestamp); ok {
		clusterTime := time.Unix(int64(ct.T), 0).UTC().Format(time.RFC3339)
		rec.ClusterTime = &clusterTime
		if opType == "delete" && r.cfg.AddRecordMetadata {
			deletedAt := time.Unix(int64(ct.T), 0).UTC()
			rec.SdcDeletedAt = &deletedAt
		}
		if r.cfg.AddRecordMetadata {
			extractedAt := time.Unix(int64(ct.T), 0).UTC()
			rec.SdcExtractedAt = &extractedAt
		}
	}

	var docSource bson.M
	if full, ok := event["fullDocument"].(bson.M); ok {
		docSource = full
	} else if key, ok := event["documentKey"].(bson.M); ok {
		docSource = key
	}
	if docSource != nil {
		rec.Document = sanitize.DocumentWithMode(docSource, r.cfg.DatetimeMode)
		if oid, ok := docSource["_id"].(primitive.ObjectID); ok {
			hex := oid.Hex()
			rec.ObjectID = &hex
		}
	}

	if upd, ok := event["updateDescription"].(bson.M); ok {
		rec.UpdateDescription = sanitize.DocumentWithMode(upd, r.cfg.DatetimeMode)
	}

	if ns, ok := event["ns"].(bson.M); ok {
		rec.Namespace = &model.Namespace{
			Database:   stringField(ns, "db"),
			Collection: stringField(ns, "coll"),
		}
	}
	if to, ok := event["to"].(bson.M); ok {
		rec.To = &model.Namespace{
			Database:   stringField(to, "db"),
			Collection: stringField(to, "coll"),
		}
	}

	return rec, opType, true
}

// operationTimeFromBookmark recovers a BSON Timestamp from a bookmark
// value for the start_at_operation_time strategy. The persisted
// bookmark for a log-based stream is ordinarily a resume-token _data
// string, which carries no directly recoverable wall-clock time; when
// the configured preference selects start_at_operation_time this
// reader instead expects the bookmark to be the RFC3339 cluster time
// of the last emitted record (see DESIGN.md's open-question decision
// for this strategy).
func operationTimeFromBookmark(bookmark string) (*primitive.Timestamp, error) {
	t, err := time.Parse(time.RFC3339, bookmark)
	if err != nil {
		return nil, fmt.Errorf("bookmark %q is not a valid operation time: %w", bookmark, err)
	}
	return &primitive.Timestamp{T: uint32(t.Unix())}, nil
}

func resumeTokenData(token bson.Raw) (string, error) {
	if token == nil {
		return "", fmt.Errorf("resume token unavailable")
	}
	val := token.Lookup("_data")
	data, ok := val.StringValueOK()
	if !ok {
		return "", fmt.Errorf("resume token missing _data field")
	}
	return data, nil
}

func stringField(m bson.M, key string) string {
	s, _ := m[key].(string)
	return s
}

func strPtr(s string) *string {
	return &s
}

// asOperationFailure extracts the numeric error code from a
// mongo.CommandError, if that's what err is.
func asOperationFailure(err error) (*OperationFailureError, int, bool) {
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		return &OperationFailureError{Code: int(cmdErr.Code), Message: cmdErr.Message}, int(cmdErr.Code), true
	}
	return nil, 0, false
}
