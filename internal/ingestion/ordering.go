package ingestion

import (
	"errors"
	"fmt"
	"sort"

	"launchpad-indexer/internal/domain"
)

// ErrInvalidOrdering is returned when a trade slice violates strict
// ascending chain order.
var ErrInvalidOrdering = errors.New("ingestion: trades not in chain order")

// SortTrades orders trades by (block_number ASC, log_index ASC).
// This is the deterministic blockchain order every consumer relies on.
func SortTrades(trades []*domain.Trade) {
	sort.Slice(trades, func(i, j int) bool {
		return compareTrades(trades[i], trades[j]) < 0
	})
}

// ValidateTradeOrdering checks that trades are in strictly ascending
// (block_number, log_index) order. Equal keys are a violation: after
// merging there must be no duplicates.
func ValidateTradeOrdering(trades []*domain.Trade) error {
	for i := 1; i < len(trades); i++ {
		if compareTrades(trades[i-1], trades[i]) >= 0 {
			return fmt.Errorf("%w: trade %d (%d:%d) not after trade %d (%d:%d)",
				ErrInvalidOrdering,
				i, trades[i].BlockNumber, trades[i].LogIndex,
				i-1, trades[i-1].BlockNumber, trades[i-1].LogIndex)
		}
	}
	return nil
}

// compareTrades returns:
//   - negative if a < b
//   - zero if a == b
//   - positive if a > b
//
// Order: (block_number ASC, log_index ASC)
func compareTrades(a, b *domain.Trade) int {
	if a.BlockNumber != b.BlockNumber {
		if a.BlockNumber < b.BlockNumber {
			return -1
		}
		return 1
	}
	if a.LogIndex != b.LogIndex {
		if a.LogIndex < b.LogIndex {
			return -1
		}
		return 1
	}
	return 0
}
