// Package sanitize implements the document sanitizer (C2): a recursive
// walk over a decoded BSON document that replaces BSON-only values with
// their JSON-safe equivalents, and non-finite doubles with null, since
// the JSON encoding used by the record protocol cannot represent either.
//
// The walk always produces a new map/slice tree — it never mutates a
// caller's document in place — so callers holding a reference to the
// original (e.g. a cached "last event") never observe it change under
// them, matching the no-shared-mutation guarantee spec.md §4.2 requires.
package sanitize

import (
	"encoding/base64"
	"math"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Document sanitizes a decoded BSON document into a plain
// map[string]any tree safe to marshal with encoding/json.
func Document(doc bson.M) map[string]any {
	if doc == nil {
		return nil
	}
	return sanitizeMap(doc)
}

// Value sanitizes a single decoded BSON value, recursing into
// maps/slices. It is exported so readers can sanitize sub-documents
// (e.g. updateDescription) independently of the top-level document.
func Value(v any) any {
	switch vv := v.(type) {
	case nil:
		return nil

	case primitive.ObjectID:
		return vv.Hex()
	case *primitive.ObjectID:
		if vv == nil {
			return nil
		}
		return vv.Hex()

	case uuid.UUID:
		return vv.String()
	case *uuid.UUID:
		if vv == nil {
			return nil
		}
		return vv.String()

	case primitive.DateTime:
		return vv.Time().UTC().Format(time.RFC3339Nano)
	case time.Time:
		return vv.UTC().Format(time.RFC3339Nano)
	case primitive.Binary:
		return base64.StdEncoding.EncodeToString(vv.Data)
	case []byte:
		return base64.StdEncoding.EncodeToString(vv)

	case float64:
		if isNonFinite(vv) {
			return nil
		}
		return vv
	case float32:
		if isNonFinite(float64(vv)) {
			return nil
		}
		return vv

	case bson.M:
		return sanitizeMap(vv)
	case primitive.D:
		return sanitizeD(vv)
	case bson.A:
		return sanitizeSlice(vv)
	case map[string]any:
		return sanitizeMap(vv)
	case []any:
		return sanitizeSlice(vv)

	default:
		return vv
	}
}

func sanitizeMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = Value(v)
	}
	return out
}

func sanitizeD(d primitive.D) map[string]any {
	out := make(map[string]any, len(d))
	for _, e := range d {
		out[e.Key] = Value(e.Value)
	}
	return out
}

func sanitizeSlice(s []any) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = Value(v)
	}
	return out
}

func isNonFinite(f float64) bool {
	return math.IsInf(f, 0) || math.IsNaN(f)
}
