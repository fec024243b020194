package curve

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"launchpad-indexer/internal/domain"
	"launchpad-indexer/internal/evm"
)

// Skip codes classify why a log entry was not decoded. The set is
// fixed: codes feed a labeled metric, free-form detail stays in
// SkipReason for logging.
const (
	SkipRemoved          = "removed"
	SkipNoTopics         = "no_topics"
	SkipUnknownSignature = "unknown_signature"
	SkipBadTraderTopic   = "bad_trader_topic"
	SkipBadData          = "bad_data"
	SkipZeroAmount       = "zero_amount"
)

// Result is the outcome of decoding one log entry. Exactly one of Trade
// or SkipCode is set: a malformed entry is skipped with a classified
// code and a human-readable reason, it never fails the batch.
type Result struct {
	Trade      *domain.Trade
	SkipCode   string
	SkipReason string
}

// Skipped reports whether the log was skipped instead of decoded.
func (r Result) Skipped() bool {
	return r.Trade == nil
}

// skip builds a skipped Result with a code and a formatted reason.
func skip(code, format string, args ...interface{}) Result {
	return Result{SkipCode: code, SkipReason: fmt.Sprintf(format, args...)}
}

// wordSize is the byte width of one ABI-encoded value.
const wordSize = 32

// DecodeTrade decodes a raw campaign log into a trade record. The trade's
// Timestamp is left zero; block timestamps are resolved separately.
func DecodeTrade(log evm.Log) Result {
	if log.Removed {
		return skip(SkipRemoved, "removed by reorg")
	}
	if len(log.Topics) == 0 {
		return skip(SkipNoTopics, "no topics")
	}

	var side string
	switch log.Topics[0] {
	case TopicTokensPurchased:
		side = domain.TradeSideBuy
	case TopicTokensSold:
		side = domain.TradeSideSell
	default:
		return skip(SkipUnknownSignature, "unknown event signature %s", log.Topics[0])
	}

	if len(log.Topics) < 2 {
		return skip(SkipBadTraderTopic, "missing indexed trader topic")
	}
	trader, err := topicToAddress(log.Topics[1])
	if err != nil {
		return skip(SkipBadTraderTopic, "bad trader topic: %v", err)
	}

	words, err := dataWords(log.Data)
	if err != nil {
		return skip(SkipBadData, "bad data: %v", err)
	}
	if len(words) < 2 {
		return skip(SkipBadData, "expected 2 data words, got %d", len(words))
	}

	// Both events carry (token amount, native amount) in that order:
	// tokensOut/nativeIn for buys, tokensIn/nativeOut for sells.
	tokenAmount := words[0]
	nativeAmount := words[1]

	if tokenAmount.Sign() == 0 {
		return skip(SkipZeroAmount, "zero token amount")
	}

	return Result{Trade: &domain.Trade{
		CampaignAddress: strings.ToLower(log.Address),
		TxHash:          log.TxHash,
		LogIndex:        log.LogIndex,
		BlockNumber:     log.BlockNumber,
		Side:            side,
		Trader:          trader,
		TokenAmount:     tokenAmount,
		NativeAmount:    nativeAmount,
		Price:           priceOf(nativeAmount, tokenAmount),
	}}
}

// IsGraduation reports whether the log is a campaign graduation event.
func IsGraduation(log evm.Log) bool {
	return !log.Removed && len(log.Topics) > 0 && log.Topics[0] == TopicGraduated
}

// priceOf returns the informational native/token price ratio as a float.
// Amounts stay integral everywhere else; this value is for display and
// candle OHLC only.
func priceOf(native, token *big.Int) float64 {
	q := new(big.Float).Quo(new(big.Float).SetInt(native), new(big.Float).SetInt(token))
	f, _ := q.Float64()
	return f
}

// dataWords splits hex-encoded log data into 32-byte ABI words.
func dataWords(data string) ([]*big.Int, error) {
	trimmed := strings.TrimPrefix(data, "0x")
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("decode hex: %w", err)
	}
	if len(raw)%wordSize != 0 {
		return nil, fmt.Errorf("data length %d not word-aligned", len(raw))
	}

	words := make([]*big.Int, 0, len(raw)/wordSize)
	for i := 0; i < len(raw); i += wordSize {
		words = append(words, new(big.Int).SetBytes(raw[i:i+wordSize]))
	}
	return words, nil
}

// topicToAddress extracts the address from a 32-byte indexed topic:
// the low 20 bytes, lowercased 0x-prefixed hex.
func topicToAddress(topic string) (string, error) {
	trimmed := strings.TrimPrefix(topic, "0x")
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return "", fmt.Errorf("decode hex: %w", err)
	}
	if len(raw) != wordSize {
		return "", fmt.Errorf("topic length %d, want %d", len(raw), wordSize)
	}
	return "0x" + hex.EncodeToString(raw[wordSize-20:]), nil
}
