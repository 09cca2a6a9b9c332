package replication

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/MeltanoLabs/tap-mongodb/internal/model"
)

func TestLogBasedConfigDefaultsOperationTypes(t *testing.T) {
	cfg := LogBasedConfig{}
	allowed := cfg.allowedOps()
	for _, op := range DefaultOperationTypes {
		assert.True(t, allowed[op])
	}
	assert.False(t, allowed["drop"])
}

func TestLogBasedConfigHonorsCustomOperationTypes(t *testing.T) {
	cfg := LogBasedConfig{AllowedOperationTypes: []string{"insert", "drop"}}
	allowed := cfg.allowedOps()
	assert.True(t, allowed["insert"])
	assert.True(t, allowed["drop"])
	assert.False(t, allowed["update"])
}

func TestNewLogBasedReaderRejectsWrongReplicationMethod(t *testing.T) {
	entry := &model.CatalogEntry{StreamID: "widgets", ReplicationMethod: model.ReplicationIncremental}
	_, err := NewLogBasedReader(nil, nil, entry, model.EngineVersion{Major: 4, Minor: 2}, LogBasedConfig{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestResumeTokenDataRejectsNilToken(t *testing.T) {
	_, err := resumeTokenData(nil)
	assert.Error(t, err)
}

func TestOperationTimeFromBookmarkRejectsNonTimestamp(t *testing.T) {
	_, err := operationTimeFromBookmark("not-a-timestamp")
	assert.Error(t, err)
}

func TestOperationTimeFromBookmarkParsesRFC3339(t *testing.T) {
	ts, err := operationTimeFromBookmark("2021-09-22T01:02:48Z")
	assert.NoError(t, err)
	assert.NotZero(t, ts.T)
}

// TestEmitDummyEmitsReplicationKeyFromResumeToken covers spec.md §8
// scenario 5: a MongoDB-idle empty collection has a non-null resume
// token immediately, and the Polling state emits a single terminal
// dummy record carrying that token's _data as the replication key.
func TestEmitDummyEmitsReplicationKeyFromResumeToken(t *testing.T) {
	r := &LogBasedReader{entry: &model.CatalogEntry{StreamID: "widgets"}}

	raw, err := bson.Marshal(bson.D{{Key: "_data", Value: "idle-token-data"}})
	require.NoError(t, err)

	var emitted *model.NormalizedRecord
	err = r.emitDummy(context.Background(), bson.Raw(raw), func(_ context.Context, rec *model.NormalizedRecord) error {
		emitted = rec
		return nil
	})
	require.NoError(t, err)
	require.NotNil(t, emitted)
	assert.Equal(t, "idle-token-data", emitted.ReplicationKey)
	assert.Nil(t, emitted.ObjectID)
}

// TestToRecordDeleteEventUsesDocumentKeyAndSetsDeletedAt covers spec.md
// §8 scenario 6: a delete event carries no fullDocument, so the
// document must come from documentKey, and with add_record_metadata
// enabled the event's cluster time becomes _sdc_deleted_at.
func TestToRecordDeleteEventUsesDocumentKeyAndSetsDeletedAt(t *testing.T) {
	r := &LogBasedReader{
		entry: &model.CatalogEntry{StreamID: "widgets"},
		cfg:   LogBasedConfig{AddRecordMetadata: true},
	}

	oid := primitive.NewObjectID()
	clusterTime := primitive.Timestamp{T: uint32(time.Date(2021, 9, 22, 1, 2, 48, 0, time.UTC).Unix())}
	event := bson.M{
		"operationType": "delete",
		"documentKey":   bson.M{"_id": oid},
		"clusterTime":   clusterTime,
		"ns":            bson.M{"db": "inventory", "coll": "widgets"},
	}
	raw, err := bson.Marshal(bson.D{{Key: "_data", Value: "delete-token-data"}})
	require.NoError(t, err)

	rec, opType, ok := r.toRecord(event, bson.Raw(raw))
	require.True(t, ok)
	assert.Equal(t, "delete", opType)
	assert.Equal(t, "delete-token-data", rec.ReplicationKey)

	require.NotNil(t, rec.ObjectID)
	assert.Equal(t, oid.Hex(), *rec.ObjectID)

	require.NotNil(t, rec.SdcDeletedAt)
	assert.Equal(t, int64(clusterTime.T), rec.SdcDeletedAt.Unix())

	require.NotNil(t, rec.Namespace)
	assert.Equal(t, "widgets", rec.Namespace.Collection)
}
