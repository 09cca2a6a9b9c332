package sanitize

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Mode selects how primitive.DateTime values are rendered. The
// zero value is ModeISO8601, matching Document/Value's default
// behavior, so existing callers are unaffected.
type Mode int

const (
	// ModeISO8601 renders dates as RFC3339Nano strings, the default
	// used by Document and Value.
	ModeISO8601 Mode = iota
	// ModeEpochMillis renders dates as integer milliseconds since the
	// epoch, for destinations that prefer numeric timestamps (the
	// datetime_conversion config option).
	ModeEpochMillis
)

// DocumentWithMode is Document with an explicit datetime rendering
// mode, used when a stream's config overrides the default ISO-8601
// rendering.
func DocumentWithMode(doc bson.M, mode Mode) map[string]any {
	if mode == ModeISO8601 {
		return Document(doc)
	}
	if doc == nil {
		return nil
	}
	return sanitizeMapMode(doc, mode)
}

func valueWithMode(v any, mode Mode) any {
	if dt, ok := v.(primitive.DateTime); ok && mode == ModeEpochMillis {
		return int64(dt)
	}
	switch vv := v.(type) {
	case bson.M:
		return sanitizeMapMode(vv, mode)
	case primitive.D:
		out := make(map[string]any, len(vv))
		for _, e := range vv {
			out[e.Key] = valueWithMode(e.Value, mode)
		}
		return out
	case bson.A:
		out := make([]any, len(vv))
		for i, e := range vv {
			out[i] = valueWithMode(e, mode)
		}
		return out
	case map[string]any:
		return sanitizeMapMode(vv, mode)
	case []any:
		out := make([]any, len(vv))
		for i, e := range vv {
			out[i] = valueWithMode(e, mode)
		}
		return out
	default:
		return Value(v)
	}
}

func sanitizeMapMode(m map[string]any, mode Mode) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = valueWithMode(v, mode)
	}
	return out
}
