package memory

import (
	"context"
	"errors"
	"testing"

	"launchpad-indexer/internal/domain"
	"launchpad-indexer/internal/storage"
)

func TestCampaignStore_InsertAndGet(t *testing.T) {
	store := NewCampaignStore()
	ctx := context.Background()

	campaign := &domain.Campaign{
		Address:      "0xcamp",
		TokenAddress: "0xtoken",
		Name:         "Meme Coin",
		Symbol:       "MEME",
		DeployBlock:  100,
	}
	if err := store.Insert(ctx, campaign); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	got, err := store.GetByAddress(ctx, "0xcamp")
	if err != nil {
		t.Fatalf("GetByAddress: %v", err)
	}
	if got.Symbol != "MEME" || got.CreatedAt == 0 {
		t.Errorf("got %+v", got)
	}
}

func TestCampaignStore_InsertDuplicate(t *testing.T) {
	store := NewCampaignStore()
	ctx := context.Background()

	campaign := &domain.Campaign{Address: "0xcamp", TokenAddress: "0xtoken", DeployBlock: 1}
	if err := store.Insert(ctx, campaign); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := store.Insert(ctx, campaign); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestCampaignStore_GetNotFound(t *testing.T) {
	store := NewCampaignStore()
	if _, err := store.GetByAddress(context.Background(), "0xmissing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCampaignStore_ListOrdered(t *testing.T) {
	store := NewCampaignStore()
	ctx := context.Background()

	store.Insert(ctx, &domain.Campaign{Address: "0xb", TokenAddress: "0xt2", DeployBlock: 200})
	store.Insert(ctx, &domain.Campaign{Address: "0xa", TokenAddress: "0xt1", DeployBlock: 100})

	campaigns, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(campaigns) != 2 {
		t.Fatalf("expected 2 campaigns, got %d", len(campaigns))
	}
	if campaigns[0].Address != "0xa" || campaigns[1].Address != "0xb" {
		t.Errorf("wrong order: %s, %s", campaigns[0].Address, campaigns[1].Address)
	}
}

func TestCampaignStore_MarkGraduated(t *testing.T) {
	store := NewCampaignStore()
	ctx := context.Background()

	store.Insert(ctx, &domain.Campaign{Address: "0xcamp", TokenAddress: "0xt", DeployBlock: 1})

	if err := store.MarkGraduated(ctx, "0xcamp", 500); err != nil {
		t.Fatalf("MarkGraduated: %v", err)
	}

	got, _ := store.GetByAddress(ctx, "0xcamp")
	if !got.Graduated || got.GraduationBlock == nil || *got.GraduationBlock != 500 {
		t.Errorf("got %+v", got)
	}

	// Idempotent: the original graduation block wins.
	if err := store.MarkGraduated(ctx, "0xcamp", 600); err != nil {
		t.Fatalf("MarkGraduated again: %v", err)
	}
	got, _ = store.GetByAddress(ctx, "0xcamp")
	if *got.GraduationBlock != 500 {
		t.Errorf("graduation block overwritten: %d", *got.GraduationBlock)
	}

	if err := store.MarkGraduated(ctx, "0xmissing", 1); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
