package models

import "time"

// EMASpans lists the exponential moving average spans computed per bar.
var EMASpans = []int{9, 20, 50, 200}

// RollingWindows lists the rolling high/low window sizes computed per bar.
var RollingWindows = []int{5, 20, 30, 50, 100, 250}

const (
	// ATRPeriod is the true-range averaging window.
	ATRPeriod = 14
	// MaxLag is the deepest lagged copy kept for distance and rolling fields.
	MaxLag = 4
	// DollarVolumeLags is the deepest lagged copy kept for dollar volume.
	DollarVolumeLags = 5
)

// IndicatorRow holds the indicator set for one (ticker, date). Optional
// fields are nil until the warm-up window is satisfied or whenever a
// denominator is zero; nil fields exclude the row from classification
// instead of participating in arithmetic.
type IndicatorRow struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`

	TrueRange *float64 `json:"true_range,omitempty"`
	// ATR is the 14-bar mean of true range ending at the prior bar, so
	// today's normalizations never see today's range.
	ATR *float64 `json:"atr,omitempty"`

	EMA     map[int]*float64 `json:"ema,omitempty"`
	EMAPrev map[int]*float64 `json:"ema_prev,omitempty"`

	// DistATR maps EMA span to (high - ema)/atr at lag 0..MaxLag.
	DistATR map[int][]*float64 `json:"dist_atr,omitempty"`

	// RollHigh/RollLow map window size to the rolling extreme at lag 0..MaxLag.
	RollHigh map[int][]*float64 `json:"roll_high,omitempty"`
	RollLow  map[int][]*float64 `json:"roll_low,omitempty"`

	GapATR     *float64 `json:"gap_atr,omitempty"`
	GapATRPrev *float64 `json:"gap_atr_prev,omitempty"`
	GapPct     *float64 `json:"gap_pct,omitempty"`
	CloseRange *float64 `json:"close_range,omitempty"`

	// DollarVolume holds close*volume at lag 0..DollarVolumeLags.
	DollarVolume []*float64 `json:"dollar_volume,omitempty"`
}

// Value unwraps an optional field.
func Value(p *float64) (float64, bool) {
	if p == nil {
		return 0, false
	}
	return *p, true
}

// EMAAt returns the EMA for the given span.
func (r *IndicatorRow) EMAAt(span int) (float64, bool) {
	return Value(r.EMA[span])
}

// DistATRAt returns the ATR-normalized EMA distance for span at lag 0..MaxLag.
func (r *IndicatorRow) DistATRAt(span, lag int) (float64, bool) {
	vals := r.DistATR[span]
	if lag < 0 || lag >= len(vals) {
		return 0, false
	}
	return Value(vals[lag])
}

// RollHighAt returns the rolling high for the window at lag 0..MaxLag.
func (r *IndicatorRow) RollHighAt(window, lag int) (float64, bool) {
	vals := r.RollHigh[window]
	if lag < 0 || lag >= len(vals) {
		return 0, false
	}
	return Value(vals[lag])
}

// RollLowAt returns the rolling low for the window at lag 0..MaxLag.
func (r *IndicatorRow) RollLowAt(window, lag int) (float64, bool) {
	vals := r.RollLow[window]
	if lag < 0 || lag >= len(vals) {
		return 0, false
	}
	return Value(vals[lag])
}

// DollarVolumeAt returns close*volume at lag 0..DollarVolumeLags.
func (r *IndicatorRow) DollarVolumeAt(lag int) (float64, bool) {
	if lag < 0 || lag >= len(r.DollarVolume) {
		return 0, false
	}
	return Value(r.DollarVolume[lag])
}
