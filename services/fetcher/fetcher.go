package fetcher

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"go_scanner_project/models"
	"go_scanner_project/services/provider"
)

// DefaultMaxConcurrency bounds simultaneous outstanding provider requests.
// Kept deliberately conservative: higher values exhaust the vendor's
// connection and rate quota and degrade overall latency.
const DefaultMaxConcurrency = 6

// Result is the per-ticker outcome of a fetch. Either Series or Err is set;
// a failed ticker never aborts the batch it belongs to.
type Result struct {
	Ticker string
	Series *models.TickerSeries
	Err    error
}

// Coordinator drives bounded-concurrency bar fetching for one scan job.
// The admission gate is owned by the coordinator, not the batch, so batch
// boundaries never serialize below the configured bound.
type Coordinator struct {
	provider provider.MarketDataProvider
	sem      chan struct{}

	inFlight     int64
	inFlightPeak int64
}

// New creates a coordinator with the given concurrency ceiling.
func New(p provider.MarketDataProvider, maxConcurrency int) *Coordinator {
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultMaxConcurrency
	}
	return &Coordinator{
		provider: p,
		sem:      make(chan struct{}, maxConcurrency),
	}
}

// FetchBatch fetches bar series for the tickers concurrently, subject to the
// coordinator's admission gate. Results arrive in completion order; the
// channel closes once every ticker has reported.
func (c *Coordinator) FetchBatch(ctx context.Context, tickers []string, start, end time.Time) <-chan Result {
	results := make(chan Result, len(tickers))

	var wg sync.WaitGroup
	for _, ticker := range tickers {
		wg.Add(1)
		go func(ticker string) {
			defer wg.Done()
			results <- c.fetchOne(ctx, ticker, start, end)
		}(ticker)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

// InFlightPeak returns the highest number of simultaneously outstanding
// provider requests observed so far.
func (c *Coordinator) InFlightPeak() int {
	return int(atomic.LoadInt64(&c.inFlightPeak))
}

// fetchOne fetches a single ticker with a single automatic retry. The retry
// goes back through the same admission gate and is skipped once the job has
// been cancelled.
func (c *Coordinator) fetchOne(ctx context.Context, ticker string, start, end time.Time) Result {
	bars, err := c.fetchGated(ctx, ticker, start, end)
	if err != nil {
		if ctx.Err() != nil {
			return Result{Ticker: ticker, Err: ctx.Err()}
		}
		if provider.IsTransient(err) {
			log.Printf("Transient fetch error for %s, retrying once: %v", ticker, err)
		} else {
			log.Printf("Fetch error for %s, retrying once: %v", ticker, err)
		}
		bars, err = c.fetchGated(ctx, ticker, start, end)
		if err != nil {
			return Result{Ticker: ticker, Err: fmt.Errorf("fetch failed after retry: %w", err)}
		}
	}

	if len(bars) == 0 {
		return Result{Ticker: ticker, Err: fmt.Errorf("no bars returned for %s", ticker)}
	}

	return Result{
		Ticker: ticker,
		Series: &models.TickerSeries{Ticker: ticker, Bars: bars},
	}
}

// fetchGated performs one provider call while holding an admission slot.
// Only the network call holds the slot; downstream indicator work never does.
func (c *Coordinator) fetchGated(ctx context.Context, ticker string, start, end time.Time) ([]models.Bar, error) {
	select {
	case c.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() {
		atomic.AddInt64(&c.inFlight, -1)
		<-c.sem
	}()

	n := atomic.AddInt64(&c.inFlight, 1)
	for {
		peak := atomic.LoadInt64(&c.inFlightPeak)
		if n <= peak || atomic.CompareAndSwapInt64(&c.inFlightPeak, peak, n) {
			break
		}
	}

	// Cancellation gates admission only; a request already admitted is
	// allowed to drain rather than being torn down mid-flight.
	return c.provider.GetBars(context.WithoutCancel(ctx), ticker, start, end)
}
