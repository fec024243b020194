package ingestion

import (
	"context"
	"fmt"

	"launchpad-indexer/internal/domain"
	"launchpad-indexer/internal/feed"
)

// WSSource adapts the realtime trade feed to a trade channel the
// runner can select on.
type WSSource struct {
	feed feed.TradeFeed
}

// NewWSSource creates a source backed by the launchpad push channel.
func NewWSSource(f feed.TradeFeed) *WSSource {
	return &WSSource{feed: f}
}

// Subscribe starts streaming live trades for the campaign.
func (s *WSSource) Subscribe(ctx context.Context, campaignAddress string) (<-chan *domain.Trade, error) {
	ch, err := s.feed.Subscribe(ctx, campaignAddress)
	if err != nil {
		return nil, fmt.Errorf("subscribe trade feed: %w", err)
	}
	return ch, nil
}
