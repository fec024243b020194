package reporting

import (
	"math/big"
	"strings"
	"testing"

	"launchpad-indexer/internal/domain"
)

func TestRenderTradesCSV(t *testing.T) {
	trades := []*domain.Trade{
		{
			CampaignAddress: "0xcamp",
			TxHash:          "0xtx1",
			LogIndex:        2,
			BlockNumber:     100,
			Timestamp:       1700000000,
			Side:            domain.TradeSideBuy,
			Trader:          "0xtrader",
			TokenAmount:     big.NewInt(1000000),
			NativeAmount:    big.NewInt(500),
			Price:           0.0005,
		},
	}

	out := RenderTradesCSV(trades)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header + 1 row, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "campaign_address,tx_hash,log_index") {
		t.Errorf("header: %s", lines[0])
	}
	if !strings.Contains(lines[1], "0xtx1,2,100,1700000000,buy,0xtrader,1000000,500") {
		t.Errorf("row: %s", lines[1])
	}
}

func TestRenderCandlesCSV(t *testing.T) {
	candles := []*domain.Candle{
		{
			CampaignAddress: "0xcamp",
			IntervalSeconds: 60,
			BucketStart:     1700000040,
			Open:            1.0,
			High:            1.5,
			Low:             0.9,
			Close:           1.2,
			Volume:          big.NewInt(12345),
			TradeCount:      7,
		},
	}

	out := RenderCandlesCSV(candles)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header + 1 row, got %d lines", len(lines))
	}
	if !strings.Contains(lines[1], "0xcamp,60,1700000040") {
		t.Errorf("row: %s", lines[1])
	}
	if !strings.Contains(lines[1], "12345,7") {
		t.Errorf("volume and count: %s", lines[1])
	}
}

func TestRenderCSV_NilAmounts(t *testing.T) {
	out := RenderTradesCSV([]*domain.Trade{{CampaignAddress: "0xcamp", TxHash: "0xtx", Side: "buy"}})
	if !strings.Contains(out, ",0,0,") {
		t.Errorf("nil amounts must render as 0: %s", out)
	}
}
