package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bar represents one daily trading session for one ticker
type Bar struct {
	Date   time.Time       `json:"date"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume int64           `json:"volume"`
}

// TickerSeries owns the ordered bar history for one ticker plus the
// per-bar indicator rows derived from it. Bars are sorted by date
// ascending; Rows[i] is derived only from Bars[0..i].
type TickerSeries struct {
	Ticker string         `json:"ticker"`
	Bars   []Bar          `json:"bars"`
	Rows   []IndicatorRow `json:"rows,omitempty"`
}

// SortedByDate reports whether the bar sequence is strictly ascending by date.
func SortedByDate(bars []Bar) bool {
	for i := 1; i < len(bars); i++ {
		if !bars[i].Date.After(bars[i-1].Date) {
			return false
		}
	}
	return true
}
