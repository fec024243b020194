package ingestion

import (
	"context"

	"launchpad-indexer/internal/domain"
)

// TradeSource provides trades for a campaign from an external source.
type TradeSource interface {
	// Fetch returns trades for the campaign within block range [from, to]
	// (inclusive), sorted by (block_number, log_index) ASC.
	Fetch(ctx context.Context, campaignAddress string, from, to int64) ([]*domain.Trade, error)
}
