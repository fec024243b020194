package ingestion

import "launchpad-indexer/internal/domain"

// TradeSet is the in-memory merged view of all trades seen for one
// campaign, deduplicated by (tx_hash, log_index). The same trade can
// arrive from both the historical scan and the realtime feed; merging
// is idempotent, so overlap is harmless.
type TradeSet struct {
	byKey map[domain.TradeKey]*domain.Trade
}

// NewTradeSet creates an empty trade set.
func NewTradeSet() *TradeSet {
	return &TradeSet{
		byKey: make(map[domain.TradeKey]*domain.Trade),
	}
}

// Merge folds incoming trades into the set and reports how many of
// them were new. A trade whose key is already present replaces the
// stored copy (last write wins); the count covers new keys only.
func (s *TradeSet) Merge(trades []*domain.Trade) int {
	added := 0
	for _, trade := range trades {
		key := trade.Key()
		if _, exists := s.byKey[key]; !exists {
			added++
		}
		s.byKey[key] = trade
	}
	return added
}

// Len returns the number of distinct trades in the set.
func (s *TradeSet) Len() int {
	return len(s.byKey)
}

// Sorted returns all trades ordered by (block_number ASC, log_index ASC).
func (s *TradeSet) Sorted() []*domain.Trade {
	trades := make([]*domain.Trade, 0, len(s.byKey))
	for _, trade := range s.byKey {
		trades = append(trades, trade)
	}
	SortTrades(trades)
	return trades
}

// MergeTrades deduplicates and orders trades from several sources in
// one shot. Later slices win on key collisions.
func MergeTrades(batches ...[]*domain.Trade) []*domain.Trade {
	set := NewTradeSet()
	for _, batch := range batches {
		set.Merge(batch)
	}
	return set.Sorted()
}
