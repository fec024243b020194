package scan

import (
	"context"
	"fmt"
	"time"

	"launchpad-indexer/internal/domain"
	"launchpad-indexer/internal/evm"
	"launchpad-indexer/internal/observability"
)

// TimestampSession resolves block numbers to Unix timestamps with a
// cache scoped to one fetch session. The cache is owned by the session
// object and discarded with it; nothing persists across sessions.
type TimestampSession struct {
	rpc     evm.RPCClient
	byBlock map[int64]int64
}

// NewTimestampSession creates a fresh session with an empty cache.
func NewTimestampSession(rpc evm.RPCClient) *TimestampSession {
	return &TimestampSession{
		rpc:     rpc,
		byBlock: make(map[int64]int64),
	}
}

// Resolve returns the Unix timestamp of a block. Repeated lookups for
// the same block are served from the cache without a network call.
func (s *TimestampSession) Resolve(ctx context.Context, blockNumber int64) (int64, error) {
	if ts, ok := s.byBlock[blockNumber]; ok {
		return ts, nil
	}

	start := time.Now()
	block, err := s.rpc.GetBlockByNumber(ctx, blockNumber)
	observability.RecordRPCLatency("eth_getBlockByNumber", time.Since(start).Seconds())
	if err != nil {
		return 0, fmt.Errorf("get block %d: %w", blockNumber, err)
	}
	if block == nil {
		return 0, fmt.Errorf("block %d not found", blockNumber)
	}

	s.byBlock[blockNumber] = block.Timestamp
	return block.Timestamp, nil
}

// FillTrades resolves and assigns the timestamp of every trade in place.
// Trades sharing a block cost one lookup.
func (s *TimestampSession) FillTrades(ctx context.Context, trades []*domain.Trade) error {
	for _, t := range trades {
		ts, err := s.Resolve(ctx, t.BlockNumber)
		if err != nil {
			return err
		}
		t.Timestamp = ts
	}
	return nil
}
