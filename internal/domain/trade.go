package domain

import "math/big"

// Trade represents one observed buy or sell against a bonding curve.
// Corresponds to the trades table in PostgreSQL.
type Trade struct {
	ID              int64    // BIGSERIAL primary key (0 until stored)
	CampaignAddress string   // bonding-curve campaign contract address
	TxHash          string   // transaction hash (dedup/display key)
	LogIndex        int      // log index within the block (ordering tie-breaker)
	BlockNumber     int64    // block number (monotonic ordering proxy)
	Timestamp       int64    // Unix timestamp in seconds (resolved from block)
	Side            string   // "buy" | "sell"
	Trader          string   // counterparty address
	TokenAmount     *big.Int // token amount, smallest units (18 decimals)
	NativeAmount    *big.Int // native currency paid/received, smallest units
	Price           float64  // native/token ratio, informational only
	CreatedAt       int64    // record creation timestamp (0 until stored)
}

// Trade side constants
const (
	TradeSideBuy  = "buy"
	TradeSideSell = "sell"
)

// Key returns the dedup key of the trade. The pair (tx_hash, log_index)
// uniquely identifies a trade on chain.
func (t *Trade) Key() TradeKey {
	return TradeKey{TxHash: t.TxHash, LogIndex: t.LogIndex}
}

// TradeKey uniquely identifies a trade within a campaign.
type TradeKey struct {
	TxHash   string
	LogIndex int
}

// Clone returns a deep copy of the trade. Amounts are copied so callers
// cannot mutate shared big.Int values through the original.
func (t *Trade) Clone() *Trade {
	c := *t
	if t.TokenAmount != nil {
		c.TokenAmount = new(big.Int).Set(t.TokenAmount)
	}
	if t.NativeAmount != nil {
		c.NativeAmount = new(big.Int).Set(t.NativeAmount)
	}
	return &c
}
