package models

import "time"

// ScanState is the lifecycle state of a scan job.
type ScanState string

const (
	ScanPending   ScanState = "pending"
	ScanRunning   ScanState = "running"
	ScanCompleted ScanState = "completed"
	ScanFailed    ScanState = "failed"
	ScanCancelled ScanState = "cancelled"
)

// Terminal reports whether the state admits no further transitions.
func (s ScanState) Terminal() bool {
	return s == ScanCompleted || s == ScanFailed || s == ScanCancelled
}

// ScanTier is the letter grade derived from the composite score.
type ScanTier string

const (
	TierAPlus ScanTier = "A+"
	TierA     ScanTier = "A"
	TierB     ScanTier = "B"
	TierC     ScanTier = "C"
	TierD     ScanTier = "D"
)

// ScanMatch is one classified hit: a (ticker, date) row that satisfied at
// least one pattern variant. Metrics carries the raw values behind the
// decision so results can be audited after the fact.
type ScanMatch struct {
	Ticker   string             `json:"ticker"`
	Date     time.Time          `json:"date"`
	Score    float64            `json:"score"`
	Tier     ScanTier           `json:"tier"`
	Patterns []string           `json:"patterns"`
	Metrics  map[string]float64 `json:"metrics"`
}
