package domain

import "math/big"

// Candle is an OHLCV aggregate over one fixed-width time bucket.
// Corresponds to the candles table in ClickHouse.
type Candle struct {
	CampaignAddress string   // bonding-curve campaign contract address
	BucketStart     int64    // Unix seconds, aligned to interval width
	IntervalSeconds int64    // bucket width: 60, 300, 900, 3600
	Open            float64  // price of first trade in bucket
	High            float64  // max trade price in bucket
	Low             float64  // min trade price in bucket
	Close           float64  // price of last trade in bucket
	Volume          *big.Int // sum of token amounts, smallest units
	TradeCount      int      // number of trades aggregated
}

// Supported candle intervals (in seconds)
const (
	CandleInterval1Min  int64 = 60
	CandleInterval5Min  int64 = 300
	CandleInterval15Min int64 = 900
	CandleInterval1Hour int64 = 3600
)

// CandleIntervals lists all supported intervals in ascending order.
var CandleIntervals = []int64{
	CandleInterval1Min,
	CandleInterval5Min,
	CandleInterval15Min,
	CandleInterval1Hour,
}

// VolumeFloat returns the candle volume converted to a display float.
// The integer value stays authoritative; this is lossy by design of the
// display layer only.
func (c *Candle) VolumeFloat() float64 {
	if c.Volume == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(c.Volume).Float64()
	return f
}
