// Package reporting renders indexed data for export.
package reporting

import (
	"fmt"
	"math/big"
	"strings"

	"launchpad-indexer/internal/domain"
)

// RenderTradesCSV renders trades as a CSV string, one row per trade in
// the given order. Amounts are decimal strings in smallest units.
func RenderTradesCSV(trades []*domain.Trade) string {
	var sb strings.Builder

	sb.WriteString("campaign_address,tx_hash,log_index,block_number,timestamp,side,trader,token_amount,native_amount,price\n")

	for _, t := range trades {
		sb.WriteString(fmt.Sprintf("%s,%s,%d,%d,%d,%s,%s,%s,%s,%.12g\n",
			t.CampaignAddress,
			t.TxHash,
			t.LogIndex,
			t.BlockNumber,
			t.Timestamp,
			t.Side,
			t.Trader,
			amount(t.TokenAmount),
			amount(t.NativeAmount),
			t.Price,
		))
	}

	return sb.String()
}

// RenderCandlesCSV renders candles as a CSV string.
func RenderCandlesCSV(candles []*domain.Candle) string {
	var sb strings.Builder

	sb.WriteString("campaign_address,interval_seconds,bucket_start,open,high,low,close,volume,trade_count\n")

	for _, c := range candles {
		sb.WriteString(fmt.Sprintf("%s,%d,%d,%.12g,%.12g,%.12g,%.12g,%s,%d\n",
			c.CampaignAddress,
			c.IntervalSeconds,
			c.BucketStart,
			c.Open,
			c.High,
			c.Low,
			c.Close,
			amount(c.Volume),
			c.TradeCount,
		))
	}

	return sb.String()
}

func amount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
