package postgres

import (
	"context"
	"fmt"
	"math/big"

	"github.com/jackc/pgx/v5"

	"launchpad-indexer/internal/domain"
	"launchpad-indexer/internal/storage"
)

// TradeStore implements storage.TradeStore using PostgreSQL.
//
// Token and native amounts are uint256 values; they travel as decimal
// strings and live in NUMERIC(78,0) columns.
type TradeStore struct {
	pool *Pool
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(pool *Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

const insertTradeQuery = `
	INSERT INTO trades (
		campaign_address, tx_hash, log_index, block_number, ts, side, trader, token_amount, native_amount, price
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`

// Insert adds a new trade. Returns ErrDuplicateKey if (campaign_address, tx_hash, log_index) exists.
func (s *TradeStore) Insert(ctx context.Context, trade *domain.Trade) error {
	if trade == nil || trade.CampaignAddress == "" || trade.TxHash == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, insertTradeQuery,
		trade.CampaignAddress,
		trade.TxHash,
		trade.LogIndex,
		trade.BlockNumber,
		trade.Timestamp,
		trade.Side,
		trade.Trader,
		amountString(trade.TokenAmount),
		amountString(trade.NativeAmount),
		trade.Price,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}

// InsertBulk adds multiple trades, skipping ones already present.
// Returns the number of trades actually inserted. The scan and the
// realtime feed routinely overlap, so duplicates are expected here.
func (s *TradeStore) InsertBulk(ctx context.Context, trades []*domain.Trade) (int, error) {
	if len(trades) == 0 {
		return 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := insertTradeQuery + ` ON CONFLICT (campaign_address, tx_hash, log_index) DO NOTHING`

	inserted := 0
	for _, trade := range trades {
		if trade == nil || trade.CampaignAddress == "" || trade.TxHash == "" {
			return 0, storage.ErrInvalidInput
		}
		tag, err := tx.Exec(ctx, query,
			trade.CampaignAddress,
			trade.TxHash,
			trade.LogIndex,
			trade.BlockNumber,
			trade.Timestamp,
			trade.Side,
			trade.Trader,
			amountString(trade.TokenAmount),
			amountString(trade.NativeAmount),
			trade.Price,
		)
		if err != nil {
			return 0, fmt.Errorf("insert trade in bulk: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}

	return inserted, nil
}

// GetByCampaign retrieves all trades for a campaign, ordered by (block_number, log_index) ASC.
func (s *TradeStore) GetByCampaign(ctx context.Context, campaignAddress string) ([]*domain.Trade, error) {
	query := `
		SELECT id, campaign_address, tx_hash, log_index, block_number, ts, side, trader,
		       token_amount::text, native_amount::text, price, created_at
		FROM trades
		WHERE campaign_address = $1
		ORDER BY block_number ASC, log_index ASC
	`

	rows, err := s.pool.Query(ctx, query, campaignAddress)
	if err != nil {
		return nil, fmt.Errorf("get trades by campaign: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// GetByBlockRange retrieves trades for a campaign within blocks [from, to] (inclusive).
func (s *TradeStore) GetByBlockRange(ctx context.Context, campaignAddress string, from, to int64) ([]*domain.Trade, error) {
	query := `
		SELECT id, campaign_address, tx_hash, log_index, block_number, ts, side, trader,
		       token_amount::text, native_amount::text, price, created_at
		FROM trades
		WHERE campaign_address = $1 AND block_number >= $2 AND block_number <= $3
		ORDER BY block_number ASC, log_index ASC
	`

	rows, err := s.pool.Query(ctx, query, campaignAddress, from, to)
	if err != nil {
		return nil, fmt.Errorf("get trades by block range: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// scanTrades scans multiple rows into a slice of Trade.
func scanTrades(rows pgx.Rows) ([]*domain.Trade, error) {
	var trades []*domain.Trade

	for rows.Next() {
		var trade domain.Trade
		var tokenAmount, nativeAmount string

		err := rows.Scan(
			&trade.ID,
			&trade.CampaignAddress,
			&trade.TxHash,
			&trade.LogIndex,
			&trade.BlockNumber,
			&trade.Timestamp,
			&trade.Side,
			&trade.Trader,
			&tokenAmount,
			&nativeAmount,
			&trade.Price,
			&trade.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan trade row: %w", err)
		}

		trade.TokenAmount, err = parseAmount(tokenAmount)
		if err != nil {
			return nil, fmt.Errorf("parse token amount: %w", err)
		}
		trade.NativeAmount, err = parseAmount(nativeAmount)
		if err != nil {
			return nil, fmt.Errorf("parse native amount: %w", err)
		}

		trades = append(trades, &trade)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade rows: %w", err)
	}

	return trades, nil
}

// amountString renders an amount for a NUMERIC(78,0) parameter.
func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// parseAmount parses a NUMERIC(78,0) column back into a big.Int.
func parseAmount(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid numeric value %q", s)
	}
	return v, nil
}
