package memory

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-zulfiqar/solana-zap-engine/internal/models"
	"github.com/aman-zulfiqar/solana-zap-engine/internal/storage"
)

func zapAt(id, caller, pool string, at time.Time) *models.ZapEvent {
	return &models.ZapEvent{
		ID:             id,
		Timestamp:      at,
		Caller:         caller,
		Pool:           pool,
		InputAmount:    big.NewInt(1000),
		LPSharesMinted: big.NewInt(65),
	}
}

func TestZapStore_InsertAndGet(t *testing.T) {
	store := NewZapStore()
	ctx := context.Background()

	zap := zapAt("z1", "alice", "pool-1", time.Now())
	require.NoError(t, store.Insert(ctx, zap))

	got, err := store.GetByID(ctx, "z1")
	require.NoError(t, err)
	assert.Equal(t, "65", got.LPSharesMinted.String())

	// Stored copies are independent of the caller's struct.
	zap.Caller = "mallory"
	got, err = store.GetByID(ctx, "z1")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Caller)

	assert.ErrorIs(t, store.Insert(ctx, zap), storage.ErrDuplicateKey)
	assert.ErrorIs(t, store.Insert(ctx, nil), storage.ErrInvalidInput)

	_, err = store.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestZapStore_ListNewestFirst(t *testing.T) {
	store := NewZapStore()
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.Insert(ctx, zapAt("a", "alice", "p1", base)))
	require.NoError(t, store.Insert(ctx, zapAt("b", "alice", "p2", base.Add(time.Second))))
	require.NoError(t, store.Insert(ctx, zapAt("c", "bob", "p1", base.Add(2*time.Second))))

	byAlice, err := store.ListByCaller(ctx, "alice", 0)
	require.NoError(t, err)
	require.Len(t, byAlice, 2)
	assert.Equal(t, "b", byAlice[0].ID)

	byPool, err := store.ListByPool(ctx, "p1", 1)
	require.NoError(t, err)
	require.Len(t, byPool, 1)
	assert.Equal(t, "c", byPool[0].ID)
}

func TestStorePublisher_IgnoresRedelivery(t *testing.T) {
	store := NewZapStore()
	pub := storage.StorePublisher{Store: store}
	ctx := context.Background()

	zap := zapAt("z1", "alice", "pool-1", time.Now())
	require.NoError(t, pub.PublishZap(ctx, zap))
	require.NoError(t, pub.PublishZap(ctx, zap))

	items, err := store.ListByCaller(ctx, "alice", 10)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	assert.ErrorIs(t, pub.PublishZap(ctx, &models.ZapEvent{}), storage.ErrInvalidInput)
}
