package postgres

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"launchpad-indexer/internal/domain"
	"launchpad-indexer/internal/storage"
)

// createTestCampaign inserts a test campaign and returns its address.
func createTestCampaign(t *testing.T, ctx context.Context, pool *Pool, address string) string {
	t.Helper()

	store := NewCampaignStore(pool)
	campaign := &domain.Campaign{
		Address:      address,
		TokenAddress: "0xtoken" + address,
		Creator:      "0xcreator",
		Name:         "Test Token",
		Symbol:       "TEST",
		DeployBlock:  100,
	}

	err := store.Insert(ctx, campaign)
	require.NoError(t, err)
	return address
}

func testTrade(campaign, txHash string, logIndex int, block int64) *domain.Trade {
	return &domain.Trade{
		CampaignAddress: campaign,
		TxHash:          txHash,
		LogIndex:        logIndex,
		BlockNumber:     block,
		Timestamp:       1700000000,
		Side:            domain.TradeSideBuy,
		Trader:          "0xtrader",
		TokenAmount:     big.NewInt(1000000),
		NativeAmount:    big.NewInt(500),
		Price:           0.0005,
	}
}

func TestTradeStore_InsertAndGetByCampaign(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	campaign := createTestCampaign(t, ctx, pool, "0xcampaign1")

	store := NewTradeStore(pool)

	trade := testTrade(campaign, "0xtx1", 0, 101)
	require.NoError(t, store.Insert(ctx, trade))

	trades, err := store.GetByCampaign(ctx, campaign)
	require.NoError(t, err)
	require.Len(t, trades, 1)

	got := trades[0]
	assert.Equal(t, campaign, got.CampaignAddress)
	assert.Equal(t, "0xtx1", got.TxHash)
	assert.Equal(t, 0, got.LogIndex)
	assert.Equal(t, int64(101), got.BlockNumber)
	assert.Equal(t, domain.TradeSideBuy, got.Side)
	assert.Equal(t, 0, got.TokenAmount.Cmp(big.NewInt(1000000)))
	assert.Equal(t, 0, got.NativeAmount.Cmp(big.NewInt(500)))
	assert.NotZero(t, got.ID)
	assert.NotZero(t, got.CreatedAt)
}

func TestTradeStore_InsertDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	campaign := createTestCampaign(t, ctx, pool, "0xcampaign1")

	store := NewTradeStore(pool)

	require.NoError(t, store.Insert(ctx, testTrade(campaign, "0xtx1", 0, 101)))

	err := store.Insert(ctx, testTrade(campaign, "0xtx1", 0, 101))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	// Same tx hash, different log index is a distinct trade.
	require.NoError(t, store.Insert(ctx, testTrade(campaign, "0xtx1", 1, 101)))
}

func TestTradeStore_InsertBulkSkipsDuplicates(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	campaign := createTestCampaign(t, ctx, pool, "0xcampaign1")

	store := NewTradeStore(pool)

	require.NoError(t, store.Insert(ctx, testTrade(campaign, "0xtx1", 0, 101)))

	inserted, err := store.InsertBulk(ctx, []*domain.Trade{
		testTrade(campaign, "0xtx1", 0, 101), // already present
		testTrade(campaign, "0xtx2", 0, 102),
		testTrade(campaign, "0xtx3", 0, 103),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)

	trades, err := store.GetByCampaign(ctx, campaign)
	require.NoError(t, err)
	assert.Len(t, trades, 3)
}

func TestTradeStore_GetByCampaignOrdering(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	campaign := createTestCampaign(t, ctx, pool, "0xcampaign1")

	store := NewTradeStore(pool)

	// Insert out of chain order.
	require.NoError(t, store.Insert(ctx, testTrade(campaign, "0xtx3", 2, 103)))
	require.NoError(t, store.Insert(ctx, testTrade(campaign, "0xtx1", 5, 101)))
	require.NoError(t, store.Insert(ctx, testTrade(campaign, "0xtx1", 1, 101)))

	trades, err := store.GetByCampaign(ctx, campaign)
	require.NoError(t, err)
	require.Len(t, trades, 3)

	assert.Equal(t, int64(101), trades[0].BlockNumber)
	assert.Equal(t, 1, trades[0].LogIndex)
	assert.Equal(t, 5, trades[1].LogIndex)
	assert.Equal(t, int64(103), trades[2].BlockNumber)
}

func TestTradeStore_GetByBlockRange(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	campaign := createTestCampaign(t, ctx, pool, "0xcampaign1")

	store := NewTradeStore(pool)

	require.NoError(t, store.Insert(ctx, testTrade(campaign, "0xtx1", 0, 100)))
	require.NoError(t, store.Insert(ctx, testTrade(campaign, "0xtx2", 0, 150)))
	require.NoError(t, store.Insert(ctx, testTrade(campaign, "0xtx3", 0, 200)))

	trades, err := store.GetByBlockRange(ctx, campaign, 100, 150)
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, "0xtx1", trades[0].TxHash)
	assert.Equal(t, "0xtx2", trades[1].TxHash)
}

func TestTradeStore_LargeAmountsRoundTrip(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	campaign := createTestCampaign(t, ctx, pool, "0xcampaign1")

	store := NewTradeStore(pool)

	// Max uint256 must survive the NUMERIC(78,0) round trip.
	maxUint256 := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

	trade := testTrade(campaign, "0xtx1", 0, 101)
	trade.TokenAmount = new(big.Int).Set(maxUint256)
	trade.NativeAmount = new(big.Int).Set(maxUint256)
	require.NoError(t, store.Insert(ctx, trade))

	trades, err := store.GetByCampaign(ctx, campaign)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, 0, trades[0].TokenAmount.Cmp(maxUint256))
	assert.Equal(t, 0, trades[0].NativeAmount.Cmp(maxUint256))
}

func TestTradeStore_InvalidInput(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTradeStore(pool)
	err := store.Insert(context.Background(), &domain.Trade{})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
