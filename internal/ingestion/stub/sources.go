package stub

import (
	"context"
	"sync"

	"launchpad-indexer/internal/domain"
)

// TradeSource returns fixed in-memory trades for testing.
// Trades can be intentionally unordered to test sorting.
// Implements ingestion.TradeSource.
type TradeSource struct {
	mu     sync.Mutex
	trades []*domain.Trade

	// Errs are consumed one per Fetch call; nil entries mean success.
	Errs []error

	// Fetches records every requested range.
	Fetches []BlockRange
}

// BlockRange is one recorded Fetch request.
type BlockRange struct {
	Campaign string
	From, To int64
}

// NewTradeSource creates a new stub trade source with the given trades.
func NewTradeSource(trades []*domain.Trade) *TradeSource {
	return &TradeSource{trades: trades}
}

// Add appends trades served by future Fetch calls.
func (s *TradeSource) Add(trades ...*domain.Trade) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trades = append(s.trades, trades...)
}

// Fetch returns copies of trades matching the campaign and block range.
func (s *TradeSource) Fetch(_ context.Context, campaignAddress string, from, to int64) ([]*domain.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Fetches = append(s.Fetches, BlockRange{Campaign: campaignAddress, From: from, To: to})

	if len(s.Errs) > 0 {
		err := s.Errs[0]
		s.Errs = s.Errs[1:]
		if err != nil {
			return nil, err
		}
	}

	var result []*domain.Trade
	for _, trade := range s.trades {
		if trade.CampaignAddress == campaignAddress && trade.BlockNumber >= from && trade.BlockNumber <= to {
			result = append(result, trade.Clone())
		}
	}
	return result, nil
}
