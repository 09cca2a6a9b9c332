package sanitize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestDocumentWithModeEpochMillis(t *testing.T) {
	ts := primitive.NewDateTimeFromTime(time.Date(2021, 9, 22, 1, 2, 48, 0, time.UTC))
	out := DocumentWithMode(bson.M{"created_at": ts}, ModeEpochMillis)
	assert.Equal(t, int64(ts), out["created_at"])
}

func TestDocumentWithModeISO8601MatchesDocument(t *testing.T) {
	ts := primitive.NewDateTimeFromTime(time.Date(2021, 9, 22, 1, 2, 48, 0, time.UTC))
	doc := bson.M{"created_at": ts}
	assert.Equal(t, Document(doc), DocumentWithMode(doc, ModeISO8601))
}
