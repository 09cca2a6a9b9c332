// Package connector implements the engine connector (C4): it opens a
// connection to MongoDB (or a DocumentDB-compatible engine), probes and
// caches the server version, and exposes a handle to named collections
// and the admin command surface.
//
// The version probe mirrors the teacher's cached_property pattern
// (nodestorage/v2's NewStorage / the original tap's
// MongoDBConnector.mongo_client) using sync.Once instead of a lazily
// memoized property, since Go has no property decorators.
package connector

import (
	"context"
	"fmt"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/MeltanoLabs/tap-mongodb/internal/corelog"
	"github.com/MeltanoLabs/tap-mongodb/internal/model"
)

// Connector is a shared handle to a MongoDB/DocumentDB client, memoizing
// the server version after the first probe. It is constructed once per
// run and threaded into every reader (spec.md §9: "shared mutable
// client with cached version").
type Connector struct {
	client *mongo.Client

	versionOnce sync.Once
	version     model.EngineVersion
	versionErr  error
}

// Connect opens a client against uri, letting configure (when non-nil)
// adjust the client options first, and pings the server to verify the
// connection. The server version is not probed here; that happens
// lazily on first call to Version.
func Connect(ctx context.Context, uri string, configure func(*options.ClientOptions)) (*Connector, error) {
	clientOpts := options.Client().ApplyURI(uri)
	if configure != nil {
		configure(clientOpts)
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCannotConnect, err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("%w: ping failed: %v", ErrCannotConnect, err)
	}

	return &Connector{client: client}, nil
}

// Version returns the cached (major, minor) server version, probing the
// server with a buildInfo admin command on first use. A failed probe is
// fatal (CannotConnect) and is cached so repeated calls do not retry
// against a dead server.
func (c *Connector) Version(ctx context.Context) (model.EngineVersion, error) {
	c.versionOnce.Do(func() {
		var result bson.M
		err := c.client.Database("admin").RunCommand(ctx, bson.D{{Key: "buildInfo", Value: 1}}).Decode(&result)
		if err != nil {
			c.versionErr = fmt.Errorf("%w: failed to determine MongoDB server version: %v", ErrCannotConnect, err)
			return
		}
		c.version, c.versionErr = parseVersionArray(result["versionArray"])
	})
	return c.version, c.versionErr
}

func parseVersionArray(raw any) (model.EngineVersion, error) {
	arr, ok := raw.(bson.A)
	if !ok || len(arr) < 2 {
		return model.EngineVersion{}, fmt.Errorf("unexpected buildInfo.versionArray shape: %v", raw)
	}
	major, err := toInt(arr[0])
	if err != nil {
		return model.EngineVersion{}, err
	}
	minor, err := toInt(arr[1])
	if err != nil {
		return model.EngineVersion{}, err
	}
	return model.EngineVersion{Major: major, Minor: minor}, nil
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case int:
		return n, nil
	case float64:
		return int(n), nil
	default:
		return 0, fmt.Errorf("unexpected numeric type %T", v)
	}
}

// Database returns a handle to the named database.
func (c *Connector) Database(name string) *mongo.Database {
	return c.client.Database(name)
}

// Collection returns a handle to a named collection within database.
func (c *Connector) Collection(database, collection string) *mongo.Collection {
	return c.client.Database(database).Collection(collection)
}

// AdminCommand runs a command document against the admin database, used
// by the log-based reader to invoke modifyChangeStreams on DocumentDB.
func (c *Connector) AdminCommand(ctx context.Context, cmd bson.D) (bson.M, error) {
	var result bson.M
	err := c.client.Database("admin").RunCommand(ctx, cmd).Decode(&result)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Close disconnects the underlying client.
func (c *Connector) Close(ctx context.Context) error {
	corelog.Debug("closing MongoDB connection")
	return c.client.Disconnect(ctx)
}

// Client exposes the underlying *mongo.Client for cases the Connector
// interface does not cover (e.g. sessions for multi-document reads).
func (c *Connector) Client() *mongo.Client {
	return c.client
}
