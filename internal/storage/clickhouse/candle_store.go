package clickhouse

import (
	"context"
	"fmt"
	"math/big"

	"launchpad-indexer/internal/domain"
	"launchpad-indexer/internal/storage"
)

// CandleStore implements storage.CandleStore using ClickHouse.
//
// The candles table is a ReplacingMergeTree keyed by
// (campaign_address, interval_seconds, bucket_start): recomputed
// buckets overwrite earlier versions after a merge, so reads collapse
// duplicates with FINAL.
type CandleStore struct {
	conn *Conn
}

// NewCandleStore creates a new CandleStore.
func NewCandleStore(conn *Conn) *CandleStore {
	return &CandleStore{conn: conn}
}

// Compile-time interface check.
var _ storage.CandleStore = (*CandleStore)(nil)

// InsertBulk writes candles, replacing earlier versions of the same bucket.
func (s *CandleStore) InsertBulk(ctx context.Context, candles []*domain.Candle) error {
	if len(candles) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO candles (
			campaign_address, interval_seconds, bucket_start, open, high, low, close, volume, trade_count
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, c := range candles {
		if c == nil || c.CampaignAddress == "" || c.IntervalSeconds <= 0 {
			return storage.ErrInvalidInput
		}
		volume := c.Volume
		if volume == nil {
			volume = new(big.Int)
		}
		err = batch.Append(
			c.CampaignAddress, c.IntervalSeconds, c.BucketStart,
			c.Open, c.High, c.Low, c.Close,
			volume, uint32(c.TradeCount),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByCampaign retrieves all candles for a campaign at one interval, ordered by bucket ASC.
func (s *CandleStore) GetByCampaign(ctx context.Context, campaignAddress string, intervalSeconds int64) ([]*domain.Candle, error) {
	query := `
		SELECT campaign_address, interval_seconds, bucket_start, open, high, low, close, volume, trade_count
		FROM candles FINAL
		WHERE campaign_address = ? AND interval_seconds = ?
		ORDER BY bucket_start ASC
	`

	rows, err := s.conn.Query(ctx, query, campaignAddress, intervalSeconds)
	if err != nil {
		return nil, fmt.Errorf("query candles by campaign: %w", err)
	}
	defer rows.Close()

	return scanCandles(rows)
}

// GetByTimeRange retrieves candles for a campaign within [start, end] (inclusive).
func (s *CandleStore) GetByTimeRange(ctx context.Context, campaignAddress string, intervalSeconds, start, end int64) ([]*domain.Candle, error) {
	query := `
		SELECT campaign_address, interval_seconds, bucket_start, open, high, low, close, volume, trade_count
		FROM candles FINAL
		WHERE campaign_address = ? AND interval_seconds = ? AND bucket_start >= ? AND bucket_start <= ?
		ORDER BY bucket_start ASC
	`

	rows, err := s.conn.Query(ctx, query, campaignAddress, intervalSeconds, start, end)
	if err != nil {
		return nil, fmt.Errorf("query candles by time range: %w", err)
	}
	defer rows.Close()

	return scanCandles(rows)
}

// chRows is the subset of driver.Rows used by scanners.
type chRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// scanCandles scans multiple rows into a slice of Candle.
func scanCandles(rows chRows) ([]*domain.Candle, error) {
	var candles []*domain.Candle

	for rows.Next() {
		var c domain.Candle
		var volume big.Int
		var tradeCount uint32

		err := rows.Scan(
			&c.CampaignAddress, &c.IntervalSeconds, &c.BucketStart,
			&c.Open, &c.High, &c.Low, &c.Close,
			&volume, &tradeCount,
		)
		if err != nil {
			return nil, fmt.Errorf("scan candle row: %w", err)
		}

		c.Volume = &volume
		c.TradeCount = int(tradeCount)
		candles = append(candles, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candle rows: %w", err)
	}

	return candles, nil
}
