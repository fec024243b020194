// Package feed consumes the launchpad's realtime trade push channel.
package feed

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"launchpad-indexer/internal/domain"
)

// TradeFeed delivers live trades for a campaign as they are observed
// by the launchpad backend.
type TradeFeed interface {
	// Subscribe starts streaming trades for the campaign. The channel
	// is closed when the feed shuts down.
	Subscribe(ctx context.Context, campaignAddress string) (<-chan *domain.Trade, error)

	// Close tears down the connection and all subscriptions.
	Close() error
}

// TradeMessage is the wire shape of one pushed trade. Amounts are
// decimal strings because uint256 does not fit JSON numbers.
type TradeMessage struct {
	CampaignAddress string  `json:"campaign"`
	TxHash          string  `json:"txHash"`
	LogIndex        int     `json:"logIndex"`
	BlockNumber     int64   `json:"blockNumber"`
	Timestamp       int64   `json:"timestamp"`
	Side            string  `json:"side"`
	Trader          string  `json:"trader"`
	TokenAmount     string  `json:"tokenAmount"`
	NativeAmount    string  `json:"nativeAmount"`
	Price           float64 `json:"price"`
}

// ToTrade converts a wire message into a domain trade.
func (m *TradeMessage) ToTrade() (*domain.Trade, error) {
	if m.TxHash == "" {
		return nil, fmt.Errorf("trade message missing tx hash")
	}
	if m.Side != domain.TradeSideBuy && m.Side != domain.TradeSideSell {
		return nil, fmt.Errorf("trade message has unknown side %q", m.Side)
	}

	tokenAmount, err := parseAmount(m.TokenAmount)
	if err != nil {
		return nil, fmt.Errorf("token amount: %w", err)
	}
	nativeAmount, err := parseAmount(m.NativeAmount)
	if err != nil {
		return nil, fmt.Errorf("native amount: %w", err)
	}

	return &domain.Trade{
		CampaignAddress: strings.ToLower(m.CampaignAddress),
		TxHash:          m.TxHash,
		LogIndex:        m.LogIndex,
		BlockNumber:     m.BlockNumber,
		Timestamp:       m.Timestamp,
		Side:            m.Side,
		Trader:          strings.ToLower(m.Trader),
		TokenAmount:     tokenAmount,
		NativeAmount:    nativeAmount,
		Price:           m.Price,
	}, nil
}

func parseAmount(s string) (*big.Int, error) {
	if s == "" {
		return new(big.Int), nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	return v, nil
}
