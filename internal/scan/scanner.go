// Package scan implements chunked, rate-limit-aware log range scanning.
package scan

import (
	"context"
	"fmt"
	"log"
	"time"

	"launchpad-indexer/internal/evm"
	"launchpad-indexer/internal/observability"
)

// Default configuration values. The chunk size is deliberately
// conservative to stay under common provider range limits.
const (
	DefaultChunkSize   = 500
	DefaultChunkDelay  = 200 * time.Millisecond
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
)

// Config tunes the scanner.
type Config struct {
	// ChunkSize is the maximum block width of one getLogs query.
	ChunkSize int64
	// ChunkDelay is the pacing delay inserted between chunk requests.
	ChunkDelay time.Duration
	// MaxRetries bounds retries of a rate-limited chunk; the chunk is
	// attempted MaxRetries+1 times in total.
	MaxRetries int
	// RetryDelay is the initial backoff delay.
	RetryDelay time.Duration
	// MaxDelay caps the backoff delay.
	MaxDelay time.Duration
	// BackoffMult multiplies the delay after each rate-limited attempt.
	BackoffMult float64
}

// DefaultConfig returns the default scanner configuration.
func DefaultConfig() Config {
	return Config{
		ChunkSize:   DefaultChunkSize,
		ChunkDelay:  DefaultChunkDelay,
		MaxRetries:  DefaultMaxRetries,
		RetryDelay:  DefaultRetryDelay,
		MaxDelay:    DefaultMaxDelay,
		BackoffMult: DefaultBackoffMult,
	}
}

// Scanner fetches event logs over large block ranges by splitting the
// range into sequential fixed-width chunks. Queries are never issued
// concurrently; reliability against rate-limited public endpoints is
// preferred over latency.
type Scanner struct {
	rpc    evm.RPCClient
	config Config
	logger *log.Logger

	// sleep is replaceable in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewScanner creates a scanner. Zero config fields fall back to defaults.
func NewScanner(rpc evm.RPCClient, config Config, logger *log.Logger) *Scanner {
	if config.ChunkSize <= 0 {
		config.ChunkSize = DefaultChunkSize
	}
	if config.ChunkDelay < 0 {
		config.ChunkDelay = DefaultChunkDelay
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = DefaultMaxRetries
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = DefaultRetryDelay
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = DefaultMaxDelay
	}
	if config.BackoffMult <= 1 {
		config.BackoffMult = DefaultBackoffMult
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Scanner{
		rpc:    rpc,
		config: config,
		logger: logger,
		sleep:  sleepCtx,
	}
}

// FetchLogs returns all logs matching the filter within [from, to],
// concatenated in range order. On failure partial results are discarded;
// there is no partial-success return.
func (s *Scanner) FetchLogs(ctx context.Context, q evm.FilterQuery) ([]evm.Log, error) {
	if q.FromBlock < 0 || q.ToBlock < 0 {
		return nil, fmt.Errorf("negative block in range [%d, %d]", q.FromBlock, q.ToBlock)
	}
	if q.FromBlock > q.ToBlock {
		return nil, fmt.Errorf("invalid range [%d, %d]", q.FromBlock, q.ToBlock)
	}

	var all []evm.Log
	for start := q.FromBlock; start <= q.ToBlock; start += s.config.ChunkSize {
		end := start + s.config.ChunkSize - 1
		if end > q.ToBlock {
			end = q.ToBlock
		}

		if start != q.FromBlock {
			if err := s.sleep(ctx, s.config.ChunkDelay); err != nil {
				return nil, err
			}
		}

		chunk := q
		chunk.FromBlock = start
		chunk.ToBlock = end

		logs, err := s.fetchChunk(ctx, chunk)
		if err != nil {
			return nil, fmt.Errorf("fetch logs [%d, %d]: %w", start, end, err)
		}
		all = append(all, logs...)
		observability.RecordLogsFetched(len(logs))
	}

	return all, nil
}

// fetchChunk queries one sub-range, retrying rate-limit-classified
// errors with exponential backoff. Any other error fails immediately.
func (s *Scanner) fetchChunk(ctx context.Context, q evm.FilterQuery) ([]evm.Log, error) {
	delay := s.config.RetryDelay
	var lastErr error

	for attempt := 0; attempt <= s.config.MaxRetries; attempt++ {
		if attempt > 0 {
			s.logger.Printf("rate limited on [%d, %d], retry %d/%d in %v",
				q.FromBlock, q.ToBlock, attempt, s.config.MaxRetries, delay)
			observability.RecordRateLimitRetry()
			if err := s.sleep(ctx, delay); err != nil {
				return nil, err
			}
			delay = time.Duration(float64(delay) * s.config.BackoffMult)
			if delay > s.config.MaxDelay {
				delay = s.config.MaxDelay
			}
		}

		start := time.Now()
		logs, err := s.rpc.GetLogs(ctx, q)
		observability.RecordRPCLatency("eth_getLogs", time.Since(start).Seconds())
		if err == nil {
			return logs, nil
		}
		if !evm.IsRateLimitError(err) {
			return nil, err
		}
		lastErr = err
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// sleepCtx sleeps for d unless the context is cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
