// Package candles aggregates trades into fixed-width OHLCV candles.
package candles

import (
	"errors"
	"fmt"
	"math/big"

	"launchpad-indexer/internal/domain"
)

// ErrUnsorted is returned when the input trades violate the required
// (BlockNumber, LogIndex) ascending order.
var ErrUnsorted = errors.New("candles: trades not sorted")

// Aggregate builds OHLCV candles of the given interval from trades.
//
// Trades must be sorted ascending by (BlockNumber, LogIndex); the
// ordering is checked and ErrUnsorted is returned on violation rather
// than silently producing wrong open/close values. Bucket boundaries
// are floor-aligned: a trade at timestamp ts lands in the bucket
// starting at ts - ts%interval. Returned candles are ordered by
// BucketStart ascending.
func Aggregate(trades []*domain.Trade, intervalSeconds int64) ([]*domain.Candle, error) {
	if intervalSeconds <= 0 {
		return nil, fmt.Errorf("candles: invalid interval %d", intervalSeconds)
	}
	if len(trades) == 0 {
		return nil, nil
	}

	var candles []*domain.Candle
	var current *domain.Candle

	prev := trades[0]
	for i, trade := range trades {
		if i > 0 {
			if trade.BlockNumber < prev.BlockNumber ||
				(trade.BlockNumber == prev.BlockNumber && trade.LogIndex < prev.LogIndex) {
				return nil, fmt.Errorf("%w: trade %s:%d after %s:%d",
					ErrUnsorted, trade.TxHash, trade.LogIndex, prev.TxHash, prev.LogIndex)
			}
			prev = trade
		}

		bucket := trade.Timestamp - trade.Timestamp%intervalSeconds

		if current == nil || bucket != current.BucketStart {
			current = &domain.Candle{
				CampaignAddress: trade.CampaignAddress,
				BucketStart:     bucket,
				IntervalSeconds: intervalSeconds,
				Open:            trade.Price,
				High:            trade.Price,
				Low:             trade.Price,
				Close:           trade.Price,
				Volume:          new(big.Int),
			}
			candles = append(candles, current)
		}

		if trade.Price > current.High {
			current.High = trade.Price
		}
		if trade.Price < current.Low {
			current.Low = trade.Price
		}
		current.Close = trade.Price
		if trade.TokenAmount != nil {
			current.Volume.Add(current.Volume, trade.TokenAmount)
		}
		current.TradeCount++
	}

	return candles, nil
}

// AggregateAll builds candles for every supported interval, keyed by
// interval width in seconds.
func AggregateAll(trades []*domain.Trade) (map[int64][]*domain.Candle, error) {
	result := make(map[int64][]*domain.Candle, len(domain.CandleIntervals))
	for _, interval := range domain.CandleIntervals {
		candles, err := Aggregate(trades, interval)
		if err != nil {
			return nil, err
		}
		result[interval] = candles
	}
	return result, nil
}
