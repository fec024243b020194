package memory

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"launchpad-indexer/internal/domain"
	"launchpad-indexer/internal/storage"
)

func testTrade(campaign, txHash string, logIndex int, block int64) *domain.Trade {
	return &domain.Trade{
		CampaignAddress: campaign,
		TxHash:          txHash,
		LogIndex:        logIndex,
		BlockNumber:     block,
		Timestamp:       1700000000,
		Side:            domain.TradeSideBuy,
		Trader:          "0xtrader",
		TokenAmount:     big.NewInt(1000),
		NativeAmount:    big.NewInt(5),
		Price:           0.005,
	}
}

func TestTradeStore_InsertAndGet(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testTrade("0xcamp", "0xtx1", 0, 100)); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	trades, err := store.GetByCampaign(ctx, "0xcamp")
	if err != nil {
		t.Fatalf("GetByCampaign: %v", err)
	}
	if len(trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(trades))
	}
	if trades[0].TxHash != "0xtx1" || trades[0].ID == 0 {
		t.Errorf("got %+v", trades[0])
	}
}

func TestTradeStore_InsertDuplicate(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testTrade("0xcamp", "0xtx1", 0, 100)); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := store.Insert(ctx, testTrade("0xcamp", "0xtx1", 0, 100)); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
	// Different log index in the same tx is distinct.
	if err := store.Insert(ctx, testTrade("0xcamp", "0xtx1", 1, 100)); err != nil {
		t.Errorf("Insert distinct log index: %v", err)
	}
}

func TestTradeStore_InsertInvalid(t *testing.T) {
	store := NewTradeStore()
	if err := store.Insert(context.Background(), &domain.Trade{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestTradeStore_InsertBulkSkipsDuplicates(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testTrade("0xcamp", "0xtx1", 0, 100)); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	inserted, err := store.InsertBulk(ctx, []*domain.Trade{
		testTrade("0xcamp", "0xtx1", 0, 100),
		testTrade("0xcamp", "0xtx2", 0, 101),
	})
	if err != nil {
		t.Fatalf("InsertBulk: %v", err)
	}
	if inserted != 1 {
		t.Errorf("expected 1 inserted, got %d", inserted)
	}

	trades, _ := store.GetByCampaign(ctx, "0xcamp")
	if len(trades) != 2 {
		t.Errorf("expected 2 trades, got %d", len(trades))
	}
}

func TestTradeStore_GetByCampaignOrdering(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()

	store.Insert(ctx, testTrade("0xcamp", "0xtx3", 0, 300))
	store.Insert(ctx, testTrade("0xcamp", "0xtx1", 2, 100))
	store.Insert(ctx, testTrade("0xcamp", "0xtx1", 1, 100))
	store.Insert(ctx, testTrade("0xother", "0xtx9", 0, 50))

	trades, err := store.GetByCampaign(ctx, "0xcamp")
	if err != nil {
		t.Fatalf("GetByCampaign: %v", err)
	}
	if len(trades) != 3 {
		t.Fatalf("expected 3 trades, got %d", len(trades))
	}
	if trades[0].LogIndex != 1 || trades[1].LogIndex != 2 || trades[2].BlockNumber != 300 {
		t.Errorf("wrong order: %+v", trades)
	}
}

func TestTradeStore_GetByBlockRange(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()

	store.Insert(ctx, testTrade("0xcamp", "0xtx1", 0, 100))
	store.Insert(ctx, testTrade("0xcamp", "0xtx2", 0, 150))
	store.Insert(ctx, testTrade("0xcamp", "0xtx3", 0, 200))

	trades, err := store.GetByBlockRange(ctx, "0xcamp", 100, 150)
	if err != nil {
		t.Fatalf("GetByBlockRange: %v", err)
	}
	if len(trades) != 2 {
		t.Fatalf("expected 2 trades, got %d", len(trades))
	}
}

func TestTradeStore_ReturnsCopies(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()

	store.Insert(ctx, testTrade("0xcamp", "0xtx1", 0, 100))

	trades, _ := store.GetByCampaign(ctx, "0xcamp")
	trades[0].TokenAmount.SetInt64(999999)
	trades[0].Side = domain.TradeSideSell

	again, _ := store.GetByCampaign(ctx, "0xcamp")
	if again[0].TokenAmount.Cmp(big.NewInt(1000)) != 0 {
		t.Error("stored amount was mutated through a returned copy")
	}
	if again[0].Side != domain.TradeSideBuy {
		t.Error("stored trade was mutated through a returned copy")
	}
}
