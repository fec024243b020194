package ingestion

import (
	"context"
	"errors"
	"log"
	"time"

	"launchpad-indexer/internal/candles"
	"launchpad-indexer/internal/domain"
	"launchpad-indexer/internal/evm"
	"launchpad-indexer/internal/observability"
	"launchpad-indexer/internal/scan"
	"launchpad-indexer/internal/storage"
)

// Runner orchestrates continuous ingestion for one campaign: periodic
// incremental log scans merged with the realtime push feed, persisted
// trades, and recomputed candles.
type Runner struct {
	campaign    *domain.Campaign
	rpc         evm.RPCClient
	source      TradeSource
	liveTrades  <-chan *domain.Trade
	coordinator *scan.Coordinator

	tradeStore    storage.TradeStore
	campaignStore storage.CampaignStore
	candleStore   storage.CandleStore

	pollInterval time.Duration
	confirmLag   int64 // blocks held back from the chain head
	logger       *log.Logger

	// set is the merged view of everything seen this run. Candles are
	// recomputed from it after every change.
	set         *TradeSet
	lastScanned int64
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	Campaign    *domain.Campaign
	RPC         evm.RPCClient
	Source      TradeSource
	LiveTrades  <-chan *domain.Trade // optional realtime feed channel
	Coordinator *scan.Coordinator    // optional; created when nil

	TradeStore    storage.TradeStore
	CampaignStore storage.CampaignStore
	CandleStore   storage.CandleStore // optional

	PollInterval time.Duration // default: 10s
	ConfirmLag   int64         // default: 2 blocks
	Logger       *log.Logger
}

// NewRunner creates a new ingestion runner.
func NewRunner(opts RunnerOptions) *Runner {
	pollInterval := opts.PollInterval
	if pollInterval == 0 {
		pollInterval = 10 * time.Second
	}

	confirmLag := opts.ConfirmLag
	if confirmLag == 0 {
		confirmLag = 2
	}

	coordinator := opts.Coordinator
	if coordinator == nil {
		coordinator = scan.NewCoordinator()
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Runner{
		campaign:      opts.Campaign,
		rpc:           opts.RPC,
		source:        opts.Source,
		liveTrades:    opts.LiveTrades,
		coordinator:   coordinator,
		tradeStore:    opts.TradeStore,
		campaignStore: opts.CampaignStore,
		candleStore:   opts.CandleStore,
		pollInterval:  pollInterval,
		confirmLag:    confirmLag,
		logger:        logger,
		set:           NewTradeSet(),
		lastScanned:   opts.Campaign.DeployBlock - 1,
	}
}

// Run starts continuous ingestion. It blocks until the context is
// cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Printf("Starting ingestion for campaign %s from block %d", r.campaign.Address, r.campaign.DeployBlock)

	// Initial catch-up scan before the ticker starts.
	r.scanOnce(ctx)

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Println("Ingestion runner stopping...")
			return ctx.Err()

		case trade, ok := <-r.liveTrades:
			if !ok {
				return errors.New("trade feed channel closed")
			}
			r.handleLiveTrade(ctx, trade)

		case <-ticker.C:
			r.scanOnce(ctx)
		}
	}
}

// scanOnce runs one incremental scan under the coordinator. A scan
// superseded by a newer request drops its results without publishing.
func (r *Runner) scanOnce(ctx context.Context) {
	started := time.Now()

	token, err := r.coordinator.Begin(ctx)
	if err != nil {
		return
	}
	defer token.Release()

	latest, err := r.rpc.BlockNumber(ctx)
	if err != nil {
		r.logger.Printf("Scan skipped, head lookup failed: %v", err)
		observability.RecordScan("error", time.Since(started).Seconds())
		return
	}

	to := latest - r.confirmLag
	from := r.lastScanned + 1
	if to < from {
		observability.RecordScan("noop", time.Since(started).Seconds())
		return
	}

	trades, err := r.source.Fetch(ctx, r.campaign.Address, from, to)
	if err != nil {
		// Keep last-known-good state; the next tick retries the range.
		r.logger.Printf("Scan [%d, %d] failed: %v", from, to, err)
		observability.RecordScan("error", time.Since(started).Seconds())
		return
	}

	if token.Superseded() {
		r.logger.Printf("Scan [%d, %d] superseded, dropping %d trades", from, to, len(trades))
		observability.RecordScan("superseded", time.Since(started).Seconds())
		return
	}

	added := r.set.Merge(trades)
	if err := r.publish(ctx, trades); err != nil {
		// The range is retried next tick; InsertBulk skips the rows
		// that did make it.
		r.logger.Printf("Publish after scan failed: %v", err)
		observability.RecordScan("error", time.Since(started).Seconds())
		return
	}

	r.lastScanned = to
	observability.UpdateHighestBlock(to)

	observability.RecordScan("ok", time.Since(started).Seconds())
	r.logger.Printf("Scan [%d, %d]: %d trades fetched, %d new", from, to, len(trades), added)
}

// handleLiveTrade folds one pushed trade into the merged set and
// persists it. Duplicates of already-scanned trades are expected.
func (r *Runner) handleLiveTrade(ctx context.Context, trade *domain.Trade) {
	added := r.set.Merge([]*domain.Trade{trade})
	if added == 0 {
		return
	}

	if err := r.publish(ctx, []*domain.Trade{trade}); err != nil {
		r.logger.Printf("Publish live trade %s:%d failed: %v", trade.TxHash, trade.LogIndex, err)
	}
}

// publish persists the batch and recomputes candles from the merged
// set. Trades already merged in an earlier, failed publish are retried
// here; the store skips the ones that did land.
func (r *Runner) publish(ctx context.Context, trades []*domain.Trade) error {
	observability.UpdateTradeSetSize(r.set.Len())

	if len(trades) == 0 {
		return nil
	}

	inserted, err := r.tradeStore.InsertBulk(ctx, trades)
	if err != nil {
		return err
	}
	observability.RecordTradesStored(inserted)

	return r.storeCandles(ctx)
}

// storeCandles rebuilds all intervals from the merged set.
func (r *Runner) storeCandles(ctx context.Context) error {
	if r.candleStore == nil {
		return nil
	}

	byInterval, err := candles.AggregateAll(r.set.Sorted())
	if err != nil {
		return err
	}

	total := 0
	for _, cs := range byInterval {
		if len(cs) == 0 {
			continue
		}
		if err := r.candleStore.InsertBulk(ctx, cs); err != nil {
			return err
		}
		total += len(cs)
	}
	observability.RecordCandlesStored(total)
	return nil
}

// MarkGraduated records a graduation event for the campaign.
func (r *Runner) MarkGraduated(ctx context.Context, block int64) {
	if err := r.campaignStore.MarkGraduated(ctx, r.campaign.Address, block); err != nil {
		r.logger.Printf("Mark graduated at block %d failed: %v", block, err)
		return
	}
	r.logger.Printf("Campaign %s graduated at block %d", r.campaign.Address, block)
}
