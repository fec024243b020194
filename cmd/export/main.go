package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"launchpad-indexer/internal/candles"
	"launchpad-indexer/internal/domain"
	"launchpad-indexer/internal/reporting"
	"launchpad-indexer/internal/storage"
	"launchpad-indexer/internal/storage/clickhouse"
	pgstore "launchpad-indexer/internal/storage/postgres"
)

func main() {
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string (candles read from here when set)")
	campaignAddr := flag.String("campaign", "", "Campaign contract address")
	kind := flag.String("kind", "trades", "What to export: trades or candles")
	interval := flag.Int64("interval", domain.CandleInterval1Min, "Candle interval in seconds (candles export)")
	fromBlock := flag.Int64("from-block", 0, "Start block filter for trades (0 = no lower bound)")
	toBlock := flag.Int64("to-block", 0, "End block filter for trades (0 = no upper bound)")
	output := flag.String("output", "", "Output file path (default: stdout)")

	flag.Parse()

	logger := log.New(os.Stderr, "[export] ", log.LstdFlags)

	if *campaignAddr == "" {
		logger.Fatal("--campaign is required")
	}
	if *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	csv, err := export(ctx, logger, exportConfig{
		postgresDSN:   *postgresDSN,
		clickhouseDSN: *clickhouseDSN,
		campaign:      strings.ToLower(*campaignAddr),
		kind:          *kind,
		interval:      *interval,
		fromBlock:     *fromBlock,
		toBlock:       *toBlock,
	})
	if err != nil {
		logger.Fatalf("Error: %v", err)
	}

	if *output == "" {
		fmt.Print(csv)
		return
	}
	if err := os.WriteFile(*output, []byte(csv), 0o644); err != nil {
		logger.Fatalf("Write %s: %v", *output, err)
	}
	logger.Printf("Wrote %s", *output)
}

type exportConfig struct {
	postgresDSN   string
	clickhouseDSN string
	campaign      string
	kind          string
	interval      int64
	fromBlock     int64
	toBlock       int64
}

func export(ctx context.Context, logger *log.Logger, cfg exportConfig) (string, error) {
	pool, err := pgstore.NewPool(ctx, cfg.postgresDSN)
	if err != nil {
		return "", fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	tradeStore := pgstore.NewTradeStore(pool)

	switch cfg.kind {
	case "trades":
		trades, err := loadTrades(ctx, tradeStore, cfg)
		if err != nil {
			return "", err
		}
		logger.Printf("Exporting %d trades for %s", len(trades), cfg.campaign)
		return reporting.RenderTradesCSV(trades), nil

	case "candles":
		cs, err := loadCandles(ctx, tradeStore, cfg)
		if err != nil {
			return "", err
		}
		logger.Printf("Exporting %d candles for %s at %ds", len(cs), cfg.campaign, cfg.interval)
		return reporting.RenderCandlesCSV(cs), nil

	default:
		return "", fmt.Errorf("unknown export kind %q", cfg.kind)
	}
}

func loadTrades(ctx context.Context, store storage.TradeStore, cfg exportConfig) ([]*domain.Trade, error) {
	if cfg.fromBlock == 0 && cfg.toBlock == 0 {
		return store.GetByCampaign(ctx, cfg.campaign)
	}
	to := cfg.toBlock
	if to == 0 {
		to = int64(1) << 62
	}
	return store.GetByBlockRange(ctx, cfg.campaign, cfg.fromBlock, to)
}

// loadCandles prefers the ClickHouse store and falls back to
// aggregating stored trades on the fly.
func loadCandles(ctx context.Context, tradeStore storage.TradeStore, cfg exportConfig) ([]*domain.Candle, error) {
	if cfg.clickhouseDSN != "" {
		conn, err := clickhouse.NewConn(ctx, cfg.clickhouseDSN)
		if err != nil {
			return nil, fmt.Errorf("connect to clickhouse: %w", err)
		}
		defer conn.Close()
		return clickhouse.NewCandleStore(conn).GetByCampaign(ctx, cfg.campaign, cfg.interval)
	}

	trades, err := tradeStore.GetByCampaign(ctx, cfg.campaign)
	if err != nil {
		return nil, err
	}
	return candles.Aggregate(trades, cfg.interval)
}
