package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"launchpad-indexer/internal/candles"
	"launchpad-indexer/internal/domain"
	"launchpad-indexer/internal/evm"
	"launchpad-indexer/internal/feed"
	"launchpad-indexer/internal/ingestion"
	"launchpad-indexer/internal/observability"
	"launchpad-indexer/internal/scan"
	"launchpad-indexer/internal/storage"
	"launchpad-indexer/internal/storage/clickhouse"
	"launchpad-indexer/internal/storage/memory"
	"launchpad-indexer/internal/storage/migrations"
	pgstore "launchpad-indexer/internal/storage/postgres"
)

func main() {
	mode := flag.String("mode", "live", "Indexing mode: live or backfill")
	rpcEndpoint := flag.String("rpc-endpoint", "", "Ethereum RPC HTTP endpoint")
	feedEndpoint := flag.String("feed-endpoint", "", "Launchpad trade feed WebSocket endpoint (live mode, optional)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string for candles (optional)")
	campaignAddr := flag.String("campaign", "", "Campaign contract address to index")
	deployBlock := flag.Int64("deploy-block", 0, "Block the campaign contract was deployed at")
	fromBlock := flag.Int64("from-block", 0, "Start block for backfill (defaults to deploy block)")
	toBlock := flag.Int64("to-block", 0, "End block for backfill (defaults to chain head)")
	pollInterval := flag.Duration("poll-interval", 10*time.Second, "Live scan interval")
	chunkSize := flag.Int64("chunk-size", scan.DefaultChunkSize, "Blocks per eth_getLogs request")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address (empty to disable)")

	flag.Parse()

	logger := log.New(os.Stdout, "[indexer] ", log.LstdFlags|log.Lshortfile)

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Printf("Starting metrics server on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
	}

	if *campaignAddr == "" {
		logger.Fatal("--campaign is required")
	}

	ctx, cancel := context.WithCancel(context.Background())

	// Handle shutdown signals with graceful timeout
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan error, 1)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	var err error
	switch *mode {
	case "live":
		err = runLive(ctx, logger, runConfig{
			rpcEndpoint:   *rpcEndpoint,
			feedEndpoint:  *feedEndpoint,
			postgresDSN:   *postgresDSN,
			clickhouseDSN: *clickhouseDSN,
			campaign:      strings.ToLower(*campaignAddr),
			deployBlock:   *deployBlock,
			pollInterval:  *pollInterval,
			chunkSize:     *chunkSize,
			useMemory:     *useMemory,
		})
	case "backfill":
		err = runBackfill(ctx, logger, runConfig{
			rpcEndpoint:   *rpcEndpoint,
			postgresDSN:   *postgresDSN,
			clickhouseDSN: *clickhouseDSN,
			campaign:      strings.ToLower(*campaignAddr),
			deployBlock:   *deployBlock,
			fromBlock:     *fromBlock,
			toBlock:       *toBlock,
			chunkSize:     *chunkSize,
			useMemory:     *useMemory,
		})
	default:
		logger.Fatalf("Unknown mode: %s", *mode)
	}

	done <- err
	cancel()

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("Error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// runConfig collects the resolved flag values for one run.
type runConfig struct {
	rpcEndpoint   string
	feedEndpoint  string
	postgresDSN   string
	clickhouseDSN string
	campaign      string
	deployBlock   int64
	fromBlock     int64
	toBlock       int64
	pollInterval  time.Duration
	chunkSize     int64
	useMemory     bool
}

// stores bundles the storage backends for one run.
type stores struct {
	trades    storage.TradeStore
	campaigns storage.CampaignStore
	candles   storage.CandleStore
	close     func()
}

// openStores connects the configured backends, running migrations on
// the way, or falls back to memory when requested.
func openStores(ctx context.Context, logger *log.Logger, cfg runConfig) (*stores, error) {
	if cfg.useMemory {
		return &stores{
			trades:    memory.NewTradeStore(),
			campaigns: memory.NewCampaignStore(),
			candles:   memory.NewCandleStore(),
			close:     func() {},
		}, nil
	}

	if cfg.postgresDSN == "" {
		return nil, fmt.Errorf("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	pool, err := pgstore.NewPool(ctx, cfg.postgresDSN)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run postgres migrations: %w", err)
	}

	s := &stores{
		trades:    pgstore.NewTradeStore(pool),
		campaigns: pgstore.NewCampaignStore(pool),
		close:     pool.Close,
	}

	if cfg.clickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.clickhouseDSN)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("run clickhouse migrations: %w", err)
		}
		s.candles = clickhouse.NewCandleStore(conn)
		s.close = func() {
			conn.Close()
			pool.Close()
		}
	} else {
		logger.Println("No ClickHouse DSN, keeping candles in memory")
		s.candles = memory.NewCandleStore()
	}

	return s, nil
}

// ensureCampaign registers the campaign if this is the first run.
func ensureCampaign(ctx context.Context, store storage.CampaignStore, address string, deployBlock int64) (*domain.Campaign, error) {
	campaign, err := store.GetByAddress(ctx, address)
	if err == nil {
		return campaign, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	campaign = &domain.Campaign{
		Address:     address,
		DeployBlock: deployBlock,
	}
	if err := store.Insert(ctx, campaign); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		return nil, err
	}
	return campaign, nil
}

// runLive runs continuous indexing: periodic incremental scans merged
// with the realtime feed.
func runLive(ctx context.Context, logger *log.Logger, cfg runConfig) error {
	if cfg.rpcEndpoint == "" {
		return fmt.Errorf("--rpc-endpoint is required for live mode")
	}

	rpc := evm.NewHTTPClient(cfg.rpcEndpoint)

	st, err := openStores(ctx, logger, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	campaign, err := ensureCampaign(ctx, st.campaigns, cfg.campaign, cfg.deployBlock)
	if err != nil {
		return fmt.Errorf("ensure campaign: %w", err)
	}

	var liveTrades <-chan *domain.Trade
	if cfg.feedEndpoint != "" {
		client, err := feed.NewClient(ctx, cfg.feedEndpoint, nil, logger)
		if err != nil {
			return fmt.Errorf("connect trade feed: %w", err)
		}
		defer client.Close()

		liveTrades, err = ingestion.NewWSSource(client).Subscribe(ctx, campaign.Address)
		if err != nil {
			return fmt.Errorf("subscribe trade feed: %w", err)
		}
		logger.Printf("Subscribed to trade feed for %s", campaign.Address)
	}

	source := ingestion.NewRPCSource(rpc, scan.Config{ChunkSize: cfg.chunkSize}, logger)

	runner := ingestion.NewRunner(ingestion.RunnerOptions{
		Campaign:      campaign,
		RPC:           rpc,
		Source:        source,
		LiveTrades:    liveTrades,
		TradeStore:    st.trades,
		CampaignStore: st.campaigns,
		CandleStore:   st.candles,
		PollInterval:  cfg.pollInterval,
		Logger:        logger,
	})

	source.OnGraduation(func(entry evm.Log) {
		runner.MarkGraduated(ctx, entry.BlockNumber)
	})

	logger.Println("Starting live indexing...")
	return runner.Run(ctx)
}

// runBackfill scans a fixed historical range once and exits.
func runBackfill(ctx context.Context, logger *log.Logger, cfg runConfig) error {
	if cfg.rpcEndpoint == "" {
		return fmt.Errorf("--rpc-endpoint is required for backfill mode")
	}

	rpc := evm.NewHTTPClient(cfg.rpcEndpoint)

	st, err := openStores(ctx, logger, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	campaign, err := ensureCampaign(ctx, st.campaigns, cfg.campaign, cfg.deployBlock)
	if err != nil {
		return fmt.Errorf("ensure campaign: %w", err)
	}

	from := cfg.fromBlock
	if from == 0 {
		from = campaign.DeployBlock
	}
	to := cfg.toBlock
	if to == 0 {
		to, err = rpc.BlockNumber(ctx)
		if err != nil {
			return fmt.Errorf("resolve chain head: %w", err)
		}
	}

	source := ingestion.NewRPCSource(rpc, scan.Config{ChunkSize: cfg.chunkSize}, logger)
	source.OnGraduation(func(entry evm.Log) {
		if err := st.campaigns.MarkGraduated(ctx, campaign.Address, entry.BlockNumber); err != nil {
			logger.Printf("Mark graduated failed: %v", err)
		}
	})

	logger.Printf("Backfilling %s blocks [%d, %d]", campaign.Address, from, to)

	trades, err := source.Fetch(ctx, campaign.Address, from, to)
	if err != nil {
		return fmt.Errorf("backfill fetch: %w", err)
	}

	inserted, err := st.trades.InsertBulk(ctx, trades)
	if err != nil {
		return fmt.Errorf("store trades: %w", err)
	}
	observability.RecordTradesStored(inserted)
	logger.Printf("Backfill: %d trades fetched, %d new", len(trades), inserted)

	// Rebuild candles for everything stored, not just this range.
	all, err := st.trades.GetByCampaign(ctx, campaign.Address)
	if err != nil {
		return fmt.Errorf("load trades for candles: %w", err)
	}

	byInterval, err := candles.AggregateAll(all)
	if err != nil {
		return fmt.Errorf("aggregate candles: %w", err)
	}
	total := 0
	for _, cs := range byInterval {
		if len(cs) == 0 {
			continue
		}
		if err := st.candles.InsertBulk(ctx, cs); err != nil {
			return fmt.Errorf("store candles: %w", err)
		}
		total += len(cs)
	}
	logger.Printf("Backfill: %d candles written", total)

	return nil
}
