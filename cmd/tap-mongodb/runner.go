package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/MeltanoLabs/tap-mongodb/internal/connector"
	"github.com/MeltanoLabs/tap-mongodb/internal/corelog"
	"github.com/MeltanoLabs/tap-mongodb/internal/model"
	"github.com/MeltanoLabs/tap-mongodb/internal/replication"
	"github.com/MeltanoLabs/tap-mongodb/internal/statestore"
	"github.com/MeltanoLabs/tap-mongodb/internal/tapconfig"

	"go.uber.org/zap"
)

// runner holds everything RunStream needs across the lifetime of one
// invocation: a shared connector (cached version probe), a bookmark
// store, and the resolved config.
type runner struct {
	cfg   *tapconfig.Config
	conn  *connector.Connector
	store statestore.Store
}

func newRunner(ctx context.Context, cfg *tapconfig.Config) (*runner, error) {
	uri, err := cfg.ConnectionURI()
	if err != nil {
		return nil, err
	}

	conn, err := connector.Connect(ctx, uri, nil)
	if err != nil {
		return nil, err
	}

	store, err := newBookmarkStore(cfg)
	if err != nil {
		return nil, err
	}

	return &runner{cfg: cfg, conn: conn, store: store}, nil
}

func newBookmarkStore(cfg *tapconfig.Config) (statestore.Store, error) {
	switch cfg.BookmarkStoreKind {
	case "badger":
		return statestore.NewBadgerStore(cfg.BookmarkStorePath)
	case "redis":
		return statestore.NewRedisStore(cfg.BookmarkStorePath)
	default:
		return statestore.NewMemoryStore(), nil
	}
}

func (r *runner) Close(ctx context.Context) {
	if err := r.store.Close(); err != nil {
		corelog.Warn("failed to close bookmark store", zap.Error(err))
	}
	if err := r.conn.Close(ctx); err != nil {
		corelog.Warn("failed to close MongoDB connection", zap.Error(err))
	}
}

func (r *runner) Discover(ctx context.Context, out io.Writer) error {
	names, err := connector.DiscoverCollections(ctx, r.conn.Database(r.cfg.Database), r.cfg.FilterCollections)
	if err != nil {
		return err
	}
	doc := catalogDocument{Streams: make([]catalogStreamEntry, 0, len(names))}
	for _, name := range names {
		doc.Streams = append(doc.Streams, catalogStreamEntry{
			TapStreamID: connector.FullyQualifiedName(name, r.cfg.Prefix, "_"),
			TableName:   name,
		})
	}
	return json.NewEncoder(out).Encode(doc)
}

func (r *runner) LoadStreams(catalogPath string) ([]*model.CatalogEntry, error) {
	if catalogPath == "" {
		return nil, fmt.Errorf("%w: a catalog is required to run (use --discover to generate one)", replication.ErrInvalidConfig)
	}
	return loadCatalog(catalogPath, r.cfg.Database)
}

func (r *runner) LoadState(statePath string) error {
	return loadStateIntoStore(context.Background(), statePath, r.store)
}

// RunStream replicates a single stream end-to-end: resolve its
// bookmark, dispatch to the incremental or log-based reader, and write
// RECORD/STATE lines as each record is emitted.
func (r *runner) RunStream(ctx context.Context, entry *model.CatalogEntry, out io.Writer) error {
	sm := replication.NewStreamStateMachine(r.store, entry)
	bookmark, err := sm.Load(ctx)
	if err != nil {
		return err
	}

	emitter := replication.NewEmitter(entry)
	enc := json.NewEncoder(out)

	emit := func(ctx context.Context, rec *model.NormalizedRecord) error {
		msg, err := emitter.Emit(rec, time.Now().UTC())
		if err != nil {
			return err
		}
		if err := enc.Encode(msg); err != nil {
			return err
		}
		if err := sm.Advance(ctx, rec.ReplicationKey); err != nil {
			return err
		}
		return enc.Encode(r.stateMessage(entry.StreamID, rec.ReplicationKey))
	}

	switch entry.ReplicationMethod {
	case model.ReplicationIncremental:
		collection := r.conn.Collection(entry.Database, entry.TableName)
		reader, err := replication.NewIncrementalReader(collection, entry, r.cfg.StartDate, r.cfg.SanitizeMode())
		if err != nil {
			return err
		}
		return reader.Read(ctx, bookmark, emit)

	case model.ReplicationLogBased:
		version, err := r.conn.Version(ctx)
		if err != nil {
			return err
		}
		preference, err := r.cfg.ResumePreference()
		if err != nil {
			return err
		}
		collection := r.conn.Collection(entry.Database, entry.TableName)
		reader, err := replication.NewLogBasedReader(r.conn, collection, entry, version, replication.LogBasedConfig{
			ResumePreference:         preference,
			AllowedOperationTypes:    r.cfg.OperationTypes,
			AllowModifyChangeStreams: r.cfg.AllowModifyChangeStreams,
			AddRecordMetadata:        r.cfg.AddRecordMetadata,
			DatetimeMode:             r.cfg.SanitizeMode(),
		})
		if err != nil {
			return err
		}
		return reader.Run(ctx, bookmark, emit)

	default:
		return fmt.Errorf("%w: stream %s has unrecognized replication method %q", replication.ErrInvalidConfig, entry.StreamID, entry.ReplicationMethod)
	}
}

func (r *runner) stateMessage(streamID, bookmarkValue string) map[string]any {
	return map[string]any{
		"type": "STATE",
		"value": map[string]any{
			"bookmarks": map[string]any{
				streamID: map[string]string{
					"replication_key":       model.ReplicationKeyName,
					"replication_key_value": bookmarkValue,
				},
			},
		},
	}
}
