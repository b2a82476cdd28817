package scanner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"go_scanner_project/models"
	"go_scanner_project/services/fetcher"
	"go_scanner_project/services/indicators"
	"go_scanner_project/services/patterns"
	"go_scanner_project/services/prefilter"
	"go_scanner_project/services/provider"

	"github.com/google/uuid"
)

const (
	// DefaultBatchSize is how many candidate tickers are submitted to the
	// fetch coordinator at a time.
	DefaultBatchSize = 5

	// FetchLookbackDays is extra calendar history fetched before the scan
	// start so warm-up windows (ATR, EMAs, rolling extremes) are populated
	// for the first in-range rows. Rows before the scan start are never
	// classified.
	FetchLookbackDays = 90
)

// Service owns the scan job table and drives the pipeline: pre-filter,
// batched fetch, indicator computation, classification, aggregation. It is
// the single writer for every job record; callers get snapshots.
type Service struct {
	provider       provider.MarketDataProvider
	prefilter      *prefilter.VolumeFilter
	maxConcurrency int
	batchSize      int

	mu   sync.RWMutex
	jobs map[string]*job
}

// NewService creates the scan orchestrator.
func NewService(p provider.MarketDataProvider, vf *prefilter.VolumeFilter, maxConcurrency, batchSize int) *Service {
	if maxConcurrency <= 0 {
		maxConcurrency = fetcher.DefaultMaxConcurrency
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Service{
		provider:       p,
		prefilter:      vf,
		maxConcurrency: maxConcurrency,
		batchSize:      batchSize,
		jobs:           make(map[string]*job),
	}
}

// Submit validates the request, registers a Pending job and starts its run
// goroutine. Validation failures reject synchronously; no job is created.
func (s *Service) Submit(req ScanRequest) (string, error) {
	start, end, err := req.Validate()
	if err != nil {
		return "", err
	}

	j := newJob(uuid.NewString(), req, start, end)

	s.mu.Lock()
	s.jobs[j.id] = j
	s.mu.Unlock()

	log.Printf("Scan %s accepted: %s to %s", j.id, req.StartDate, req.EndDate)
	go s.run(j)
	return j.id, nil
}

// Status returns a consistent snapshot of one job.
func (s *Service) Status(id string) (*ScanStatus, error) {
	j, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	return j.snapshot(), nil
}

// Results returns the final ordered match set. Completed and Cancelled jobs
// both serve results; Cancelled preserves whatever was found before the
// cancel.
func (s *Service) Results(id string) ([]models.ScanMatch, error) {
	j, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	switch j.currentState() {
	case models.ScanCompleted, models.ScanCancelled:
		return j.results(), nil
	case models.ScanFailed:
		status := j.snapshot()
		return nil, fmt.Errorf("scan failed: %s", status.Error)
	default:
		return nil, ErrNotFinished
	}
}

// ProgressEnabled reports whether the job opted into streamed progress.
func (s *Service) ProgressEnabled(id string) (bool, error) {
	j, err := s.lookup(id)
	if err != nil {
		return false, err
	}
	return j.request.EnableProgress, nil
}

// Cancel requests cooperative cancellation. Terminal jobs report an error.
func (s *Service) Cancel(id string) error {
	j, err := s.lookup(id)
	if err != nil {
		return err
	}
	if !j.requestCancel() {
		return ErrAlreadyTerminal
	}
	log.Printf("Scan %s cancelled", id)
	return nil
}

// List returns status snapshots for every known job, newest first.
func (s *Service) List() []*ScanStatus {
	s.mu.RLock()
	statuses := make([]*ScanStatus, 0, len(s.jobs))
	for _, j := range s.jobs {
		statuses = append(statuses, j.snapshot())
	}
	s.mu.RUnlock()

	sort.Slice(statuses, func(i, k int) bool {
		return statuses[i].StartedAt > statuses[k].StartedAt
	})
	return statuses
}

// EvictTerminal drops terminal jobs older than the retention window and
// returns how many were removed.
func (s *Service) EvictTerminal(retention time.Duration) int {
	cutoff := time.Now().Add(-retention)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, j := range s.jobs {
		j.mu.RLock()
		evict := j.state.Terminal() && !j.endedAt.IsZero() && j.endedAt.Before(cutoff)
		j.mu.RUnlock()
		if evict {
			delete(s.jobs, id)
			removed++
		}
	}
	return removed
}

func (s *Service) lookup(id string) (*job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return j, nil
}

// run drives one job start to finish on its own goroutine.
func (s *Service) run(j *job) {
	bounds := prefilter.VolumeBounds{
		MinVolume: j.request.Filters.MinVolume,
		MaxVolume: j.request.Filters.MaxVolume,
	}
	rng := prefilter.DateRange{Start: j.start, End: j.end}

	tickers, err := s.prefilter.Filter(j.ctx, bounds, rng, j.request.DisableCache)
	if err != nil {
		// The only orchestrator-fatal path: no candidate universe at all.
		log.Printf("Scan %s failed in pre-filter: %v", j.id, err)
		j.finish(models.ScanFailed, err.Error())
		return
	}

	j.setRunning(len(tickers))
	log.Printf("Scan %s running: %d candidate tickers", j.id, len(tickers))

	maxConcurrency := j.request.MaxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = s.maxConcurrency
	}
	coord := fetcher.New(s.provider, maxConcurrency)

	fetchStart := j.start.AddDate(0, 0, -FetchLookbackDays)
	maxResults := j.request.Filters.MaxResults

	for offset := 0; offset < len(tickers); offset += s.batchSize {
		if j.currentState() != models.ScanRunning {
			break
		}
		if maxResults > 0 && j.matchCount() >= maxResults {
			break
		}

		limit := offset + s.batchSize
		if limit > len(tickers) {
			limit = len(tickers)
		}
		batch := tickers[offset:limit]

		for res := range coord.FetchBatch(j.ctx, batch, fetchStart, j.end) {
			if res.Err != nil {
				if errors.Is(res.Err, context.Canceled) {
					continue
				}
				log.Printf("Scan %s: ticker %s skipped: %v", j.id, res.Ticker, res.Err)
				j.recordSkip(res.Ticker)
				continue
			}
			s.processSeries(j, res.Series)
			j.advance()
		}
	}

	if j.currentState() == models.ScanCancelled {
		status := j.snapshot()
		log.Printf("Scan %s stopped after cancel: %d/%d processed, %d matches kept",
			j.id, status.ProcessedCount, status.TotalCount, len(status.PartialResults))
		return
	}

	j.setResults(rankMatches(j.results(), maxResults))
	j.finish(models.ScanCompleted, "")

	status := j.snapshot()
	log.Printf("Scan %s completed: %d processed, %d skipped, %d matches",
		j.id, status.ProcessedCount, status.SkippedCount, len(status.PartialResults))
}

// processSeries runs indicators and classification for one fetched ticker.
// CPU work happens here, outside the fetch admission gate.
func (s *Service) processSeries(j *job, series *models.TickerSeries) {
	series.Rows = indicators.Compute(series.Bars)

	for i := range series.Rows {
		row := &series.Rows[i]
		if row.Date.Before(j.start) || row.Date.After(j.end) {
			continue
		}
		match := patterns.Classify(series.Ticker, row)
		if match == nil {
			continue
		}
		if !passesFilters(row, j.request.Filters) {
			continue
		}
		j.addMatch(*match)
		if max := j.request.Filters.MaxResults; max > 0 && j.matchCount() >= max {
			return
		}
	}
}

// passesFilters applies the user's row-level bounds to a classified row.
// A bound against an undefined field rejects the row.
func passesFilters(row *models.IndicatorRow, f ScanFilters) bool {
	if f.MinGap != nil || f.MaxGap != nil {
		gap, ok := models.Value(row.GapPct)
		if !ok {
			return false
		}
		if f.MinGap != nil && gap < *f.MinGap {
			return false
		}
		if f.MaxGap != nil && gap > *f.MaxGap {
			return false
		}
	}
	if f.MinPrice != nil && row.Close < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && row.Close > *f.MaxPrice {
		return false
	}
	return true
}

// rankMatches orders the final result set: score descending, then date,
// then ticker, truncated to maxResults when set. Ordering happens exactly
// once, after aggregation.
func rankMatches(matches []models.ScanMatch, maxResults int) []models.ScanMatch {
	sort.Slice(matches, func(i, k int) bool {
		if matches[i].Score != matches[k].Score {
			return matches[i].Score > matches[k].Score
		}
		if !matches[i].Date.Equal(matches[k].Date) {
			return matches[i].Date.Before(matches[k].Date)
		}
		return matches[i].Ticker < matches[k].Ticker
	})
	if maxResults > 0 && len(matches) > maxResults {
		matches = matches[:maxResults]
	}
	return matches
}
