package memory

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"sync"

	"launchpad-indexer/internal/domain"
	"launchpad-indexer/internal/storage"
)

// CandleStore is an in-memory implementation of storage.CandleStore.
// Unlike the trade store it is not append-only: recomputed buckets
// replace earlier versions, matching the ClickHouse ReplacingMergeTree
// behavior.
type CandleStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Candle // keyed by (campaign, interval, bucket)
}

// NewCandleStore creates a new in-memory candle store.
func NewCandleStore() *CandleStore {
	return &CandleStore{
		data: make(map[string]*domain.Candle),
	}
}

func candleKey(campaignAddress string, intervalSeconds, bucketStart int64) string {
	return fmt.Sprintf("%s|%d|%d", campaignAddress, intervalSeconds, bucketStart)
}

// InsertBulk writes candles, replacing earlier versions of the same bucket.
func (s *CandleStore) InsertBulk(_ context.Context, candles []*domain.Candle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, candle := range candles {
		if candle == nil || candle.CampaignAddress == "" || candle.IntervalSeconds <= 0 {
			return storage.ErrInvalidInput
		}
		stored := *candle
		if candle.Volume != nil {
			stored.Volume = new(big.Int).Set(candle.Volume)
		}
		s.data[candleKey(candle.CampaignAddress, candle.IntervalSeconds, candle.BucketStart)] = &stored
	}
	return nil
}

// GetByCampaign retrieves all candles for a campaign at one interval, ordered by bucket ASC.
func (s *CandleStore) GetByCampaign(_ context.Context, campaignAddress string, intervalSeconds int64) ([]*domain.Candle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Candle
	for _, candle := range s.data {
		if candle.CampaignAddress == campaignAddress && candle.IntervalSeconds == intervalSeconds {
			c := *candle
			result = append(result, &c)
		}
	}

	sortByBucket(result)
	return result, nil
}

// GetByTimeRange retrieves candles for a campaign within [start, end] (inclusive).
func (s *CandleStore) GetByTimeRange(_ context.Context, campaignAddress string, intervalSeconds, start, end int64) ([]*domain.Candle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Candle
	for _, candle := range s.data {
		if candle.CampaignAddress == campaignAddress && candle.IntervalSeconds == intervalSeconds &&
			candle.BucketStart >= start && candle.BucketStart <= end {
			c := *candle
			result = append(result, &c)
		}
	}

	sortByBucket(result)
	return result, nil
}

func sortByBucket(candles []*domain.Candle) {
	sort.Slice(candles, func(i, j int) bool {
		return candles[i].BucketStart < candles[j].BucketStart
	})
}

var _ storage.CandleStore = (*CandleStore)(nil)
