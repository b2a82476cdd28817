package scanner

import (
	"errors"
	"fmt"
	"time"

	"go_scanner_project/models"
)

// Errors surfaced to the HTTP boundary.
var (
	// ErrValidation marks a request rejected before any job is created.
	ErrValidation = errors.New("invalid scan request")
	// ErrNotFound marks an unknown scan id.
	ErrNotFound = errors.New("scan not found")
	// ErrNotFinished marks a results request against a scan still in flight.
	ErrNotFinished = errors.New("scan not finished")
	// ErrAlreadyTerminal marks a cancel against a finished scan.
	ErrAlreadyTerminal = errors.New("scan already in a terminal state")
)

// ScanFilters holds the user-supplied numeric bounds. Nil means open-ended.
type ScanFilters struct {
	MinGap     *float64 `json:"min_gap"`    // gap vs prior close, percent
	MaxGap     *float64 `json:"max_gap"`
	MinVolume  *int64   `json:"min_volume"` // aggregate share volume over the range
	MaxVolume  *int64   `json:"max_volume"`
	MinPrice   *float64 `json:"min_price"`
	MaxPrice   *float64 `json:"max_price"`
	MaxResults int      `json:"max_results"` // 0 = unlimited
}

// ScanRequest is the immutable submission payload for one scan job.
type ScanRequest struct {
	StartDate      string      `json:"start_date" binding:"required"`
	EndDate        string      `json:"end_date" binding:"required"`
	Filters        ScanFilters `json:"filters"`
	MaxConcurrency int         `json:"max_concurrency"` // 0 = service default
	DisableCache   bool        `json:"disable_cache"`
	EnableProgress bool        `json:"enable_progress"`
}

// Validate checks the request synchronously at submission time and returns
// the parsed date range. Every failure wraps ErrValidation.
func (r *ScanRequest) Validate() (start, end time.Time, err error) {
	start, err = time.Parse("2006-01-02", r.StartDate)
	if err != nil {
		return start, end, fmt.Errorf("%w: bad start_date %q", ErrValidation, r.StartDate)
	}
	end, err = time.Parse("2006-01-02", r.EndDate)
	if err != nil {
		return start, end, fmt.Errorf("%w: bad end_date %q", ErrValidation, r.EndDate)
	}
	if end.Before(start) {
		return start, end, fmt.Errorf("%w: end_date before start_date", ErrValidation)
	}
	f := r.Filters
	if f.MinGap != nil && f.MaxGap != nil && *f.MinGap > *f.MaxGap {
		return start, end, fmt.Errorf("%w: min_gap above max_gap", ErrValidation)
	}
	if f.MinVolume != nil && f.MaxVolume != nil && *f.MinVolume > *f.MaxVolume {
		return start, end, fmt.Errorf("%w: min_volume above max_volume", ErrValidation)
	}
	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		return start, end, fmt.Errorf("%w: min_price above max_price", ErrValidation)
	}
	if f.MaxResults < 0 {
		return start, end, fmt.Errorf("%w: negative max_results", ErrValidation)
	}
	if r.MaxConcurrency < 0 {
		return start, end, fmt.Errorf("%w: negative max_concurrency", ErrValidation)
	}
	return start, end, nil
}

// ScanStatus is the read-only job snapshot served to pollers and the
// progress stream.
type ScanStatus struct {
	ID             string             `json:"scan_id"`
	State          models.ScanState   `json:"state"`
	Progress       float64            `json:"progress"` // 0.0 - 1.0
	ProcessedCount int                `json:"processed_count"`
	TotalCount     int                `json:"total_count"`
	SkippedCount   int                `json:"skipped_count"`
	SkippedTickers []string           `json:"skipped_tickers,omitempty"`
	PartialResults []models.ScanMatch `json:"partial_results"`
	Error          string             `json:"error,omitempty"`
	StartedAt      string             `json:"started_at"`
	ElapsedTime    string             `json:"elapsed_time,omitempty"`
	EstimatedTime  string             `json:"estimated_time,omitempty"`
}
