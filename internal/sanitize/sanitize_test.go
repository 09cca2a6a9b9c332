package sanitize

import (
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestDocumentConvertsObjectID(t *testing.T) {
	oid := primitive.NewObjectID()
	out := Document(bson.M{"_id": oid})
	assert.Equal(t, oid.Hex(), out["_id"])
}

func TestDocumentConvertsUUID(t *testing.T) {
	u := uuid.New()
	out := Document(bson.M{"id": u})
	assert.Equal(t, u.String(), out["id"])
}

func TestDocumentConvertsDateTime(t *testing.T) {
	now := primitive.NewDateTimeFromTime(time.Date(2021, 9, 22, 1, 2, 48, 0, time.UTC))
	out := Document(bson.M{"at": now})
	assert.Equal(t, now.Time().UTC().Format(time.RFC3339Nano), out["at"])
}

func TestDocumentConvertsPreExistingGoTime(t *testing.T) {
	at := time.Date(2021, 9, 22, 1, 2, 48, 0, time.UTC)
	out := Document(bson.M{"at": at})
	assert.Equal(t, at.Format(time.RFC3339Nano), out["at"])
}

func TestDocumentConvertsBinaryAndBytes(t *testing.T) {
	out := Document(bson.M{
		"bin":   primitive.Binary{Subtype: 0x00, Data: []byte("hello")},
		"bytes": []byte("world"),
	})
	assert.Equal(t, "aGVsbG8=", out["bin"])
	assert.Equal(t, "d29ybGQ=", out["bytes"])
}

func TestDocumentReplacesNonFiniteFloatsWithNull(t *testing.T) {
	out := Document(bson.M{
		"inf":    math.Inf(1),
		"negInf": math.Inf(-1),
		"nan":    math.NaN(),
		"ok":     1.5,
	})
	assert.Nil(t, out["inf"])
	assert.Nil(t, out["negInf"])
	assert.Nil(t, out["nan"])
	assert.Equal(t, 1.5, out["ok"])
}

func TestDocumentRecursesIntoNestedStructures(t *testing.T) {
	oid := primitive.NewObjectID()
	out := Document(bson.M{
		"list": bson.A{
			bson.M{"id": oid, "bad": math.NaN()},
			"plain",
		},
		"nested": bson.M{
			"deeper": bson.M{"id": oid},
		},
	})

	list := out["list"].([]any)
	first := list[0].(map[string]any)
	assert.Equal(t, oid.Hex(), first["id"])
	assert.Nil(t, first["bad"])
	assert.Equal(t, "plain", list[1])

	nested := out["nested"].(map[string]any)
	deeper := nested["deeper"].(map[string]any)
	assert.Equal(t, oid.Hex(), deeper["id"])
}

func TestDocumentDoesNotMutateInput(t *testing.T) {
	oid := primitive.NewObjectID()
	original := bson.M{"_id": oid}
	_ = Document(original)
	// the original map must still hold the BSON ObjectID, not a string
	_, stillObjectID := original["_id"].(primitive.ObjectID)
	assert.True(t, stillObjectID)
}

func TestDocumentIdempotent(t *testing.T) {
	oid := primitive.NewObjectID()
	doc := bson.M{"_id": oid, "nan": math.NaN()}
	once := Document(doc)
	twice := sanitizeMap(once)
	require.Equal(t, once, twice)
}
