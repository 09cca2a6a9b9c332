package connector

import (
	"context"
	"fmt"
	"path"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
)

// DiscoverCollections lists collections in database whose names match
// any of namePatterns (simple case-insensitive glob, e.g. "events_*"),
// skipping any collection that cannot be read (insufficient
// permissions, view definition errors) and continuing rather than
// failing discovery outright. Skipped collections are not logged.
//
// Grounded on the original tap's MongoDBConnector.discover_catalog_entries,
// which iterates list_collection_names() and probes find_one() per
// collection, catching PyMongoError per-collection.
func DiscoverCollections(ctx context.Context, db *mongo.Database, namePatterns []string) ([]string, error) {
	names, err := db.ListCollectionNames(ctx, struct{}{})
	if err != nil {
		return nil, fmt.Errorf("failed to list collections in %s: %w", db.Name(), err)
	}

	var discovered []string
	for _, name := range names {
		if !matchesAny(name, namePatterns) {
			continue
		}

		coll := db.Collection(name)
		if err := coll.FindOne(ctx, struct{}{}).Err(); err != nil && err != mongo.ErrNoDocuments {
			// Not fatal: a single unreadable or restricted collection
			// should not abort discovery of the rest.
			continue
		}

		discovered = append(discovered, name)
	}

	return discovered, nil
}

func matchesAny(name string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}
	lower := strings.ToLower(name)
	for _, p := range patterns {
		if ok, _ := path.Match(strings.ToLower(p), lower); ok {
			return true
		}
	}
	return false
}

// FullyQualifiedName mirrors MongoDBConnector.get_fully_qualified_name,
// joining a catalog table name to an optional stream-name prefix.
func FullyQualifiedName(collectionName, prefix, delimiter string) string {
	if prefix == "" {
		return collectionName
	}
	if delimiter == "" {
		delimiter = "_"
	}
	return prefix + delimiter + collectionName
}
