package replication

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeltanoLabs/tap-mongodb/internal/model"
	"github.com/MeltanoLabs/tap-mongodb/internal/statestore"
)

func TestStreamStateMachineIsSortedForIncremental(t *testing.T) {
	entry := &model.CatalogEntry{StreamID: "orders", ReplicationMethod: model.ReplicationIncremental}
	sm := NewStreamStateMachine(statestore.NewMemoryStore(), entry)
	assert.True(t, sm.IsSorted())
}

func TestStreamStateMachineNotSortedForLogBased(t *testing.T) {
	entry := &model.CatalogEntry{StreamID: "orders", ReplicationMethod: model.ReplicationLogBased}
	sm := NewStreamStateMachine(statestore.NewMemoryStore(), entry)
	assert.False(t, sm.IsSorted())
}

func TestStreamStateMachineNotSortedWithPartitioningKeys(t *testing.T) {
	entry := &model.CatalogEntry{
		StreamID:              "orders",
		ReplicationMethod:     model.ReplicationIncremental,
		StatePartitioningKeys: []string{"tenant_id"},
	}
	sm := NewStreamStateMachine(statestore.NewMemoryStore(), entry)
	assert.False(t, sm.IsSorted())
}

func TestStreamStateMachineAdvancePersistsBookmark(t *testing.T) {
	ctx := context.Background()
	store := statestore.NewMemoryStore()
	entry := &model.CatalogEntry{StreamID: "orders", ReplicationMethod: model.ReplicationIncremental}
	sm := NewStreamStateMachine(store, entry)

	require.NoError(t, sm.Advance(ctx, "2021-09-22T01:02:48+00:00|614a80b81ad8c60001b7d5f3"))

	got, err := store.GetBookmark(ctx, "orders")
	require.NoError(t, err)
	assert.Equal(t, "2021-09-22T01:02:48+00:00|614a80b81ad8c60001b7d5f3", got)
}

func TestStreamStateMachineRejectsOutOfOrder(t *testing.T) {
	ctx := context.Background()
	store := statestore.NewMemoryStore()
	entry := &model.CatalogEntry{StreamID: "orders", ReplicationMethod: model.ReplicationIncremental}
	sm := NewStreamStateMachine(store, entry)

	require.NoError(t, sm.Advance(ctx, "2021-09-22T01:02:48+00:00|614a80b81ad8c60001b7d5f3"))
	err := sm.Advance(ctx, "2021-09-21T00:00:00+00:00|614a0000000000000000000a")
	assert.True(t, errors.Is(err, ErrOutOfOrder))
}

func TestStreamStateMachineTolerantWhenUnsorted(t *testing.T) {
	ctx := context.Background()
	store := statestore.NewMemoryStore()
	entry := &model.CatalogEntry{StreamID: "orders", ReplicationMethod: model.ReplicationLogBased}
	sm := NewStreamStateMachine(store, entry)

	require.NoError(t, sm.Advance(ctx, "token-b"))
	require.NoError(t, sm.Advance(ctx, "token-a"))
}

func TestStreamStateMachinePrimaryKeys(t *testing.T) {
	incr := NewStreamStateMachine(statestore.NewMemoryStore(), &model.CatalogEntry{ReplicationMethod: model.ReplicationIncremental})
	assert.Equal(t, []string{"object_id"}, incr.PrimaryKeys())

	logBased := NewStreamStateMachine(statestore.NewMemoryStore(), &model.CatalogEntry{ReplicationMethod: model.ReplicationLogBased})
	assert.Equal(t, []string{"replication_key"}, logBased.PrimaryKeys())
}
