package curve

import (
	"fmt"
	"math/big"
	"strings"
	"testing"

	"launchpad-indexer/internal/domain"
	"launchpad-indexer/internal/evm"
)

// word encodes an integer as a 64-hex-char ABI word.
func word(n *big.Int) string {
	return fmt.Sprintf("%064x", n)
}

// addressTopic pads a 20-byte address into a 32-byte topic.
func addressTopic(addr string) string {
	return fmt.Sprintf("0x%024x%s", 0, addr)
}

func buyLog() evm.Log {
	tokens := new(big.Int).Mul(big.NewInt(500), big.NewInt(1e18))
	cost := big.NewInt(25e15) // 0.025 native
	return evm.Log{
		Address:     "0xCampaignAddr",
		Topics:      []string{TopicTokensPurchased, addressTopic("aabbccddeeff00112233445566778899aabbccdd")},
		Data:        "0x" + word(tokens) + word(cost),
		BlockNumber: 1200,
		TxHash:      "0xtx1",
		LogIndex:    3,
	}
}

func TestDecodeTrade_Buy(t *testing.T) {
	result := DecodeTrade(buyLog())
	if result.Skipped() {
		t.Fatalf("unexpected skip: %s", result.SkipReason)
	}

	trade := result.Trade
	if trade.Side != domain.TradeSideBuy {
		t.Errorf("expected buy, got %s", trade.Side)
	}
	if trade.Trader != "0xaabbccddeeff00112233445566778899aabbccdd" {
		t.Errorf("trader mismatch: %s", trade.Trader)
	}
	if trade.CampaignAddress != "0xcampaignaddr" {
		t.Errorf("campaign address should be lowercased: %s", trade.CampaignAddress)
	}

	wantTokens := new(big.Int).Mul(big.NewInt(500), big.NewInt(1e18))
	if trade.TokenAmount.Cmp(wantTokens) != 0 {
		t.Errorf("token amount mismatch: %s", trade.TokenAmount)
	}
	if trade.NativeAmount.Cmp(big.NewInt(25e15)) != 0 {
		t.Errorf("native amount mismatch: %s", trade.NativeAmount)
	}

	// 0.025 native for 500 tokens (both 18 decimals) = 5e-5 per token
	wantPrice := 5e-5
	if diff := trade.Price - wantPrice; diff > 1e-12 || diff < -1e-12 {
		t.Errorf("price mismatch: got %g, want %g", trade.Price, wantPrice)
	}

	if trade.BlockNumber != 1200 || trade.LogIndex != 3 || trade.TxHash != "0xtx1" {
		t.Errorf("ordering fields mismatch: %+v", trade)
	}
	if trade.Timestamp != 0 {
		t.Errorf("timestamp must be unresolved, got %d", trade.Timestamp)
	}
}

func TestDecodeTrade_Sell(t *testing.T) {
	tokens := big.NewInt(1e18)
	payout := big.NewInt(3e15)
	log := evm.Log{
		Address:     "0xcampaign",
		Topics:      []string{TopicTokensSold, addressTopic("00112233445566778899aabbccddeeff00112233")},
		Data:        "0x" + word(tokens) + word(payout),
		BlockNumber: 1300,
		TxHash:      "0xtx2",
		LogIndex:    0,
	}

	result := DecodeTrade(log)
	if result.Skipped() {
		t.Fatalf("unexpected skip: %s", result.SkipReason)
	}
	if result.Trade.Side != domain.TradeSideSell {
		t.Errorf("expected sell, got %s", result.Trade.Side)
	}
	if result.Trade.NativeAmount.Cmp(payout) != 0 {
		t.Errorf("payout mismatch: %s", result.Trade.NativeAmount)
	}
}

func TestDecodeTrade_Skips(t *testing.T) {
	valid := buyLog()

	cases := []struct {
		name   string
		code   string
		mutate func(*evm.Log)
	}{
		{"removed log", SkipRemoved, func(l *evm.Log) { l.Removed = true }},
		{"no topics", SkipNoTopics, func(l *evm.Log) { l.Topics = nil }},
		{"unknown signature", SkipUnknownSignature, func(l *evm.Log) { l.Topics[0] = "0xunknown" }},
		{"missing trader", SkipBadTraderTopic, func(l *evm.Log) { l.Topics = l.Topics[:1] }},
		{"bad trader hex", SkipBadTraderTopic, func(l *evm.Log) { l.Topics[1] = "0xzz" }},
		{"bad data hex", SkipBadData, func(l *evm.Log) { l.Data = "0xnothex" }},
		{"unaligned data", SkipBadData, func(l *evm.Log) { l.Data = "0xabcd" }},
		{"missing word", SkipBadData, func(l *evm.Log) { l.Data = "0x" + word(big.NewInt(1)) }},
		{"zero token amount", SkipZeroAmount, func(l *evm.Log) {
			l.Data = "0x" + word(big.NewInt(0)) + word(big.NewInt(5))
		}},
	}

	for _, tc := range cases {
		log := valid
		log.Topics = append([]string(nil), valid.Topics...)
		tc.mutate(&log)

		result := DecodeTrade(log)
		if !result.Skipped() {
			t.Errorf("%s: expected skip, decoded %+v", tc.name, result.Trade)
			continue
		}
		if result.SkipCode != tc.code {
			t.Errorf("%s: skip code %q, want %q", tc.name, result.SkipCode, tc.code)
		}
		if result.SkipReason == "" {
			t.Errorf("%s: skip must carry a reason", tc.name)
		}
		// The code is a metric label: fixed vocabulary, no per-entry detail.
		if strings.Contains(result.SkipCode, "0x") {
			t.Errorf("%s: skip code must not embed entry data: %q", tc.name, result.SkipCode)
		}
	}
}

func TestIsGraduation(t *testing.T) {
	log := evm.Log{Topics: []string{TopicGraduated}}
	if !IsGraduation(log) {
		t.Error("expected graduation log to be recognized")
	}

	log.Removed = true
	if IsGraduation(log) {
		t.Error("removed graduation log must not count")
	}

	if IsGraduation(evm.Log{Topics: []string{TopicTokensSold}}) {
		t.Error("sell log is not a graduation")
	}
}
