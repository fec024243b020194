package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"launchpad-indexer/internal/domain"
	"launchpad-indexer/internal/storage"
)

// TradeStore is an in-memory implementation of storage.TradeStore.
type TradeStore struct {
	mu     sync.RWMutex
	data   map[string]*domain.Trade // keyed by composite key
	nextID int64
}

// NewTradeStore creates a new in-memory trade store.
func NewTradeStore() *TradeStore {
	return &TradeStore{
		data:   make(map[string]*domain.Trade),
		nextID: 1,
	}
}

// tradeKey generates a unique key for a trade.
func tradeKey(campaignAddress, txHash string, logIndex int) string {
	return fmt.Sprintf("%s|%s|%d", campaignAddress, txHash, logIndex)
}

// Insert adds a new trade. Returns ErrDuplicateKey if exists.
func (s *TradeStore) Insert(_ context.Context, trade *domain.Trade) error {
	if trade == nil || trade.CampaignAddress == "" || trade.TxHash == "" {
		return storage.ErrInvalidInput
	}

	key := tradeKey(trade.CampaignAddress, trade.TxHash, trade.LogIndex)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}

	s.insertLocked(key, trade)
	return nil
}

// InsertBulk adds multiple trades, skipping ones already present.
// Returns the number of trades actually inserted.
func (s *TradeStore) InsertBulk(_ context.Context, trades []*domain.Trade) (int, error) {
	if len(trades) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	inserted := 0
	for _, trade := range trades {
		if trade == nil || trade.CampaignAddress == "" || trade.TxHash == "" {
			return 0, storage.ErrInvalidInput
		}
		key := tradeKey(trade.CampaignAddress, trade.TxHash, trade.LogIndex)
		if _, exists := s.data[key]; exists {
			continue
		}
		s.insertLocked(key, trade)
		inserted++
	}

	return inserted, nil
}

// insertLocked stores a copy of the trade. Caller holds the write lock.
func (s *TradeStore) insertLocked(key string, trade *domain.Trade) {
	stored := trade.Clone()
	stored.ID = s.nextID
	s.nextID++
	s.data[key] = stored
}

// GetByCampaign retrieves all trades for a campaign, ordered by (block_number, log_index) ASC.
func (s *TradeStore) GetByCampaign(_ context.Context, campaignAddress string) ([]*domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Trade
	for _, trade := range s.data {
		if trade.CampaignAddress == campaignAddress {
			result = append(result, trade.Clone())
		}
	}

	sortByChainOrder(result)
	return result, nil
}

// GetByBlockRange retrieves trades for a campaign within blocks [from, to] (inclusive).
func (s *TradeStore) GetByBlockRange(_ context.Context, campaignAddress string, from, to int64) ([]*domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Trade
	for _, trade := range s.data {
		if trade.CampaignAddress == campaignAddress && trade.BlockNumber >= from && trade.BlockNumber <= to {
			result = append(result, trade.Clone())
		}
	}

	sortByChainOrder(result)
	return result, nil
}

func sortByChainOrder(trades []*domain.Trade) {
	sort.Slice(trades, func(i, j int) bool {
		if trades[i].BlockNumber != trades[j].BlockNumber {
			return trades[i].BlockNumber < trades[j].BlockNumber
		}
		return trades[i].LogIndex < trades[j].LogIndex
	})
}

var _ storage.TradeStore = (*TradeStore)(nil)
