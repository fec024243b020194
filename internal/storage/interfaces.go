package storage

import (
	"context"

	"launchpad-indexer/internal/domain"
)

// CampaignStore provides access to campaigns storage.
type CampaignStore interface {
	// Insert adds a new campaign. Returns ErrDuplicateKey if the address exists.
	Insert(ctx context.Context, c *domain.Campaign) error

	// GetByAddress retrieves a campaign by contract address. Returns ErrNotFound if not exists.
	GetByAddress(ctx context.Context, address string) (*domain.Campaign, error)

	// List retrieves all campaigns ordered by deploy block ASC.
	List(ctx context.Context) ([]*domain.Campaign, error)

	// MarkGraduated records that the campaign graduated to a DEX at the given block.
	// Idempotent: marking an already-graduated campaign is a no-op.
	MarkGraduated(ctx context.Context, address string, block int64) error
}

// TradeStore provides access to trades storage.
type TradeStore interface {
	// Insert adds a new trade. Returns ErrDuplicateKey if (campaign_address, tx_hash, log_index) exists.
	Insert(ctx context.Context, t *domain.Trade) error

	// InsertBulk adds multiple trades, skipping ones already present.
	// Returns the number of trades actually inserted.
	InsertBulk(ctx context.Context, trades []*domain.Trade) (int, error)

	// GetByCampaign retrieves all trades for a campaign, ordered by (block_number, log_index) ASC.
	GetByCampaign(ctx context.Context, campaignAddress string) ([]*domain.Trade, error)

	// GetByBlockRange retrieves trades for a campaign within blocks [from, to] (inclusive).
	GetByBlockRange(ctx context.Context, campaignAddress string, from, to int64) ([]*domain.Trade, error)
}

// CandleStore provides access to candles storage.
type CandleStore interface {
	// InsertBulk writes candles, replacing earlier versions of the same
	// (campaign_address, interval, bucket_start) as they are recomputed.
	InsertBulk(ctx context.Context, candles []*domain.Candle) error

	// GetByCampaign retrieves all candles for a campaign at one interval, ordered by bucket ASC.
	GetByCampaign(ctx context.Context, campaignAddress string, intervalSeconds int64) ([]*domain.Candle, error)

	// GetByTimeRange retrieves candles for a campaign within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, campaignAddress string, intervalSeconds, start, end int64) ([]*domain.Candle, error)
}
