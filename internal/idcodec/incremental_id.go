// Package idcodec implements the fused replication-key encoding (C1):
// a lexicographically sortable string pairing a document's generation
// time with its ObjectId hex form.
//
// A pure datetime key is not unique within a second and breaks resume
// after a mid-second interruption; a pure id key is not obviously
// sortable as a string. The fused form keeps the string time-prefixed
// (so it sorts correctly) while uniquely identifying the last-emitted
// document.
package idcodec

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrInvalidFormat is returned by FromString when the input does not
// match the IncrementalId grammar.
var ErrInvalidFormat = errors.New("invalid IncrementalId format")

var pattern = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}(T\d{2}:\d{2}:\d{2}\+00:00)?)(\|([a-f0-9]{24}))?$`)

const (
	dateOnlyLayout = "2006-01-02"
	fullLayout     = "2006-01-02T15:04:05-07:00"
)

// IncrementalId is the pair (generation time, optional document id).
type IncrementalId struct {
	Time time.Time
	// ObjectIDHex is the 24-hex-char id, or "" if absent.
	ObjectIDHex string
}

// FromString parses the string form described in spec.md §3. The
// datetime component is always present; the document id half is
// optional and, when present, is authoritative over the datetime for
// identity purposes.
func FromString(s string) (IncrementalId, error) {
	m := pattern.FindStringSubmatch(s)
	if m == nil {
		return IncrementalId{}, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}

	dtPart, oidPart := m[1], m[4]

	layout := dateOnlyLayout
	if strings.Contains(dtPart, "T") {
		layout = fullLayout
	}

	t, err := time.Parse(layout, dtPart)
	if err != nil {
		return IncrementalId{}, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}

	return IncrementalId{Time: t.UTC(), ObjectIDHex: oidPart}, nil
}

// FromObjectID builds an IncrementalId from a BSON ObjectId, using its
// embedded generation time and hex form.
func FromObjectID(oid primitive.ObjectID) IncrementalId {
	return IncrementalId{
		Time:        oid.Timestamp().UTC(),
		ObjectIDHex: oid.Hex(),
	}
}

// String returns the canonical string form: an ISO-8601 UTC datetime,
// optionally followed by "|<hex>" when the id half is present.
func (id IncrementalId) String() string {
	dt := id.Time.UTC().Format(fullLayout)
	if id.ObjectIDHex == "" {
		return dt
	}
	return dt + "|" + id.ObjectIDHex
}

// ObjectID returns the id half as a BSON ObjectId. When the id half is
// absent (an older bookmark, or a start_date with no time component),
// an ObjectId is synthesized from the datetime alone: only its
// embedded timestamp is meaningful, the remaining bytes are zero. This
// is used only to derive query lower-bounds and must never be compared
// for equality against a real document id.
func (id IncrementalId) ObjectID() (primitive.ObjectID, error) {
	if id.ObjectIDHex == "" {
		return primitive.NewObjectIDFromTimestamp(id.Time), nil
	}
	return primitive.ObjectIDFromHex(id.ObjectIDHex)
}
