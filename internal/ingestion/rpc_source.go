package ingestion

import (
	"context"
	"fmt"
	"log"

	"launchpad-indexer/internal/curve"
	"launchpad-indexer/internal/domain"
	"launchpad-indexer/internal/evm"
	"launchpad-indexer/internal/observability"
	"launchpad-indexer/internal/scan"
)

// RPCSource fetches historical trades by scanning event logs over
// JSON-RPC and decoding them. Each Fetch resolves block timestamps
// through a fresh session cache, so repeated scans never serve stale
// data across calls.
type RPCSource struct {
	rpc     evm.RPCClient
	scanner *scan.Scanner
	logger  *log.Logger

	// onGraduation, when set, receives raw graduation logs seen while
	// scanning.
	onGraduation func(evm.Log)
}

// NewRPCSource creates a trade source backed by a log scanner.
func NewRPCSource(rpc evm.RPCClient, config scan.Config, logger *log.Logger) *RPCSource {
	if logger == nil {
		logger = log.Default()
	}
	return &RPCSource{
		rpc:     rpc,
		scanner: scan.NewScanner(rpc, config, logger),
		logger:  logger,
	}
}

var _ TradeSource = (*RPCSource)(nil)

// Fetch scans [from, to], decodes trade events and resolves their
// block timestamps. Undecodable logs are counted and skipped, never
// fatal. Graduation events are reported through the callback set with
// OnGraduation, if any.
func (s *RPCSource) Fetch(ctx context.Context, campaignAddress string, from, to int64) ([]*domain.Trade, error) {
	query := evm.FilterQuery{
		Address:   campaignAddress,
		Topics:    curve.ScanTopics,
		FromBlock: from,
		ToBlock:   to,
	}

	logs, err := s.scanner.FetchLogs(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("fetch logs [%d, %d]: %w", from, to, err)
	}

	var trades []*domain.Trade
	for _, entry := range logs {
		if curve.IsGraduation(entry) {
			if s.onGraduation != nil {
				s.onGraduation(entry)
			}
			continue
		}

		result := curve.DecodeTrade(entry)
		if result.Skipped() {
			observability.RecordDecodeSkip(result.SkipCode)
			s.logger.Printf("Skipping log %s:%d: %s", entry.TxHash, entry.LogIndex, result.SkipReason)
			continue
		}
		observability.RecordTradeDecoded()
		trades = append(trades, result.Trade)
	}

	session := scan.NewTimestampSession(s.rpc)
	if err := session.FillTrades(ctx, trades); err != nil {
		return nil, fmt.Errorf("resolve timestamps: %w", err)
	}

	SortTrades(trades)
	return trades, nil
}

// OnGraduation registers a callback invoked for every graduation event
// encountered during Fetch.
func (s *RPCSource) OnGraduation(fn func(evm.Log)) {
	s.onGraduation = fn
}
