package fetcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go_scanner_project/models"
	"go_scanner_project/services/provider"

	"github.com/shopspring/decimal"
)

// fakeProvider serves canned bars and scripted failures while tracking
// concurrency observed inside GetBars.
type fakeProvider struct {
	mu        sync.Mutex
	calls     map[string]int
	failures  map[string]int // fail the first N calls per ticker
	alwaysErr error
	delay     time.Duration

	active     int64
	activePeak int64
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		calls:    make(map[string]int),
		failures: make(map[string]int),
	}
}

func (p *fakeProvider) GetBars(ctx context.Context, ticker string, start, end time.Time) ([]models.Bar, error) {
	n := atomic.AddInt64(&p.active, 1)
	for {
		peak := atomic.LoadInt64(&p.activePeak)
		if n <= peak || atomic.CompareAndSwapInt64(&p.activePeak, peak, n) {
			break
		}
	}
	defer atomic.AddInt64(&p.active, -1)

	if p.delay > 0 {
		time.Sleep(p.delay)
	}

	p.mu.Lock()
	p.calls[ticker]++
	attempt := p.calls[ticker]
	pending := p.failures[ticker]
	p.mu.Unlock()

	if p.alwaysErr != nil {
		return nil, p.alwaysErr
	}
	if attempt <= pending {
		return nil, &provider.RequestError{StatusCode: 503, Body: "unavailable"}
	}

	return []models.Bar{{
		Date:   time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		Open:   decimal.NewFromInt(10),
		High:   decimal.NewFromInt(11),
		Low:    decimal.NewFromInt(9),
		Close:  decimal.NewFromInt(10),
		Volume: 1000,
	}}, nil
}

func (p *fakeProvider) GetUniverseVolume(ctx context.Context, start, end time.Time) (map[string]int64, error) {
	return nil, nil
}

func (p *fakeProvider) ListActiveTickers(ctx context.Context, start, end time.Time) ([]string, error) {
	return nil, nil
}

func (p *fakeProvider) callCount(ticker string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[ticker]
}

func tickerList(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("T%02d", i)
	}
	return out
}

func drain(results <-chan Result) []Result {
	var out []Result
	for r := range results {
		out = append(out, r)
	}
	return out
}

func TestFetchBatchRespectsConcurrencyBound(t *testing.T) {
	fake := newFakeProvider()
	fake.delay = 20 * time.Millisecond
	coord := New(fake, 3)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	results := drain(coord.FetchBatch(context.Background(), tickerList(12), start, start.AddDate(0, 1, 0)))

	if len(results) != 12 {
		t.Fatalf("got %d results, want 12", len(results))
	}
	for _, r := range results {
		if r.Err != nil {
			t.Errorf("unexpected error for %s: %v", r.Ticker, r.Err)
		}
	}
	if peak := atomic.LoadInt64(&fake.activePeak); peak > 3 {
		t.Errorf("provider observed %d concurrent requests, bound is 3", peak)
	}
	if peak := coord.InFlightPeak(); peak > 3 {
		t.Errorf("coordinator peak = %d, bound is 3", peak)
	}
}

func TestFetchOneRetriesOnceThenSucceeds(t *testing.T) {
	fake := newFakeProvider()
	fake.failures["AAA"] = 1
	coord := New(fake, 2)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	res := coord.fetchOne(context.Background(), "AAA", start, start.AddDate(0, 1, 0))

	if res.Err != nil {
		t.Fatalf("expected recovery after one retry, got %v", res.Err)
	}
	if res.Series == nil || len(res.Series.Bars) == 0 {
		t.Fatal("expected a populated series")
	}
	if got := fake.callCount("AAA"); got != 2 {
		t.Errorf("provider called %d times, want 2", got)
	}
}

func TestFetchOneFailsAfterSecondError(t *testing.T) {
	fake := newFakeProvider()
	fake.failures["BBB"] = 2
	coord := New(fake, 2)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	res := coord.fetchOne(context.Background(), "BBB", start, start.AddDate(0, 1, 0))

	if res.Err == nil {
		t.Fatal("expected a terminal error after the retry")
	}
	var reqErr *provider.RequestError
	if !errors.As(res.Err, &reqErr) {
		t.Errorf("error should wrap the provider failure, got %v", res.Err)
	}
	if got := fake.callCount("BBB"); got != 2 {
		t.Errorf("provider called %d times, want exactly 2 (one retry)", got)
	}
}

func TestFetchBatchReportsPartialFailures(t *testing.T) {
	fake := newFakeProvider()
	fake.failures["T01"] = 2
	fake.failures["T04"] = 2
	fake.failures["T07"] = 2
	coord := New(fake, 4)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	results := drain(coord.FetchBatch(context.Background(), tickerList(10), start, start.AddDate(0, 1, 0)))

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	if len(results) != 10 {
		t.Fatalf("got %d results, want 10", len(results))
	}
	if failed != 3 {
		t.Errorf("failed = %d, want 3; one bad ticker must not sink its batch", failed)
	}
}

func TestFetchOneSkipsRetryAfterCancel(t *testing.T) {
	fake := newFakeProvider()
	fake.alwaysErr = errors.New("boom")
	coord := New(fake, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	res := coord.fetchOne(ctx, "CCC", start, start.AddDate(0, 1, 0))

	if !errors.Is(res.Err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", res.Err)
	}
	// Admission may race the cancel, but the retry must never run.
	if got := fake.callCount("CCC"); got > 1 {
		t.Errorf("provider called %d times after cancel, want at most 1", got)
	}
}

func TestEmptySeriesIsAnError(t *testing.T) {
	coord := New(&emptyProvider{}, 1)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	res := coord.fetchOne(context.Background(), "DDD", start, start.AddDate(0, 1, 0))
	if res.Err == nil {
		t.Fatal("expected an error for an empty bar series")
	}
}

type emptyProvider struct{}

func (p *emptyProvider) GetBars(ctx context.Context, ticker string, start, end time.Time) ([]models.Bar, error) {
	return nil, nil
}

func (p *emptyProvider) GetUniverseVolume(ctx context.Context, start, end time.Time) (map[string]int64, error) {
	return nil, nil
}

func (p *emptyProvider) ListActiveTickers(ctx context.Context, start, end time.Time) ([]string, error) {
	return nil, nil
}
