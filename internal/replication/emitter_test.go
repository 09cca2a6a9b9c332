package replication

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeltanoLabs/tap-mongodb/internal/model"
)

func TestEmitterUsesRecordExtractedAtWhenPresent(t *testing.T) {
	extracted := time.Date(2021, 9, 22, 1, 2, 48, 0, time.UTC)
	rec := &model.NormalizedRecord{
		ReplicationKey: "tok-1",
		SdcExtractedAt: &extracted,
	}
	emitter := NewEmitter(&model.CatalogEntry{StreamID: "orders"})

	msg, err := emitter.Emit(rec, time.Now())
	require.NoError(t, err)
	assert.Equal(t, extracted, msg.TimeExtracted)
	assert.Equal(t, "RECORD", msg.Type)
	assert.Equal(t, "orders", msg.Stream)
	_, present := msg.Record["_sdc_extracted_at"]
	assert.False(t, present)
}

func TestEmitterFallsBackToNowWithoutExtractedAt(t *testing.T) {
	now := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	rec := &model.NormalizedRecord{ReplicationKey: "tok-1"}
	emitter := NewEmitter(&model.CatalogEntry{StreamID: "orders"})

	msg, err := emitter.Emit(rec, now)
	require.NoError(t, err)
	assert.Equal(t, now, msg.TimeExtracted)
}

func TestEmitterMasksDeselectedProperties(t *testing.T) {
	rec := &model.NormalizedRecord{
		ReplicationKey: "tok-1",
		Document:       map[string]any{"a": 1},
	}
	entry := &model.CatalogEntry{
		StreamID:           "orders",
		SelectedProperties: map[string]bool{"document": false},
	}
	emitter := NewEmitter(entry)

	msg, err := emitter.Emit(rec, time.Now())
	require.NoError(t, err)
	_, present := msg.Record["document"]
	assert.False(t, present)
	_, present = msg.Record["replication_key"]
	assert.True(t, present)
}
