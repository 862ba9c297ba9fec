package ingestion

import (
	"context"
	"log"
	"sync"
	"time"

	"solana-risk-engine/internal/domain"
	"solana-risk-engine/internal/observability"
)

// Fetcher retry defaults, applied per wallet.
const (
	DefaultFetchRetries    = 2
	DefaultFetchRetryDelay = 500 * time.Millisecond
)

// HistoryFetcher fetches wallet histories over a bounded worker pool.
// A failed wallet is dropped from the result rather than failing the run;
// the funding analyzer treats a missing history as an unknown wallet.
type HistoryFetcher struct {
	source      TransferSource
	concurrency int
	maxRetries  int
	retryDelay  time.Duration
	logger      *log.Logger
}

// NewHistoryFetcher creates a fetcher running at most concurrency
// simultaneous upstream requests.
func NewHistoryFetcher(source TransferSource, concurrency int, logger *log.Logger) *HistoryFetcher {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[ingestion] ", log.LstdFlags)
	}
	return &HistoryFetcher{
		source:      source,
		concurrency: concurrency,
		maxRetries:  DefaultFetchRetries,
		retryDelay:  DefaultFetchRetryDelay,
		logger:      logger,
	}
}

// FetchAll retrieves histories for the given wallets. The returned map
// holds an entry per wallet that fetched successfully. Returns the
// context error if cancelled mid-flight.
func (f *HistoryFetcher) FetchAll(ctx context.Context, mint string, wallets []string) (map[string]*domain.WalletHistory, error) {
	jobs := make(chan string)
	results := make(map[string]*domain.WalletHistory, len(wallets))

	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < f.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for wallet := range jobs {
				history, err := f.fetchOne(ctx, mint, wallet)
				if err != nil {
					observability.RecordFetchError("transfer_history")
					f.logger.Printf("history fetch for %s failed: %v", wallet, err)
					continue
				}
				observability.DefaultMetrics.WalletsFetched.Inc()
				mu.Lock()
				results[wallet] = history
				mu.Unlock()
			}
		}()
	}

feed:
	for _, wallet := range wallets {
		select {
		case jobs <- wallet:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}

// fetchOne retries transient upstream failures with a flat delay.
func (f *HistoryFetcher) fetchOne(ctx context.Context, mint, wallet string) (*domain.WalletHistory, error) {
	var lastErr error
	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(f.retryDelay):
			}
		}

		history, err := f.source.Fetch(ctx, mint, wallet)
		if err == nil {
			return history, nil
		}
		lastErr = err
	}
	return nil, lastErr
}
