package patterns

import "go_scanner_project/models"

// Variant is one named pattern rule: a fixed conjunction of threshold
// comparisons over an indicator row. The library is static and never
// mutated at runtime. A nil required field fails the comparison it
// appears in; it is never coerced to a match.
type Variant struct {
	Name  string
	Match func(row *models.IndicatorRow) bool
}

// Library is the full set of recognized pattern variants. A row may match
// zero, one, or several.
var Library = []Variant{
	{
		// Third session of a front-side run: extended over the short
		// EMAs, gapping up into a fresh 5-day high with a strong close.
		Name: "front_side_d3_extended",
		Match: func(row *models.IndicatorRow) bool {
			dist9, ok := row.DistATRAt(9, 0)
			if !ok || dist9 < 2 {
				return false
			}
			ema9, ok9 := row.EMAAt(9)
			ema20, ok20 := row.EMAAt(20)
			if !ok9 || !ok20 || ema9 <= ema20 {
				return false
			}
			prevHigh, ok := row.RollHighAt(5, 1)
			if !ok || row.High < prevHigh {
				return false
			}
			gap, ok := models.Value(row.GapATR)
			if !ok || gap < 0.25 {
				return false
			}
			cr, ok := models.Value(row.CloseRange)
			if !ok || cr < 0.6 {
				return false
			}
			dv, ok := row.DollarVolumeAt(0)
			return ok && dv >= 1e7
		},
	},
	{
		// Large gap straight through the 20-day high.
		Name: "gap_up_breakout",
		Match: func(row *models.IndicatorRow) bool {
			gap, ok := models.Value(row.GapATR)
			if !ok || gap < 0.75 {
				return false
			}
			prevHigh, ok := row.RollHighAt(20, 1)
			if !ok || row.High < prevHigh {
				return false
			}
			cr, ok := models.Value(row.CloseRange)
			if !ok || cr < 0.5 {
				return false
			}
			dv, ok := row.DollarVolumeAt(0)
			return ok && dv >= 2e7
		},
	},
	{
		// Far above the 20EMA on an expanding range at 50-day highs.
		Name: "parabolic_extension",
		Match: func(row *models.IndicatorRow) bool {
			dist20, ok := row.DistATRAt(20, 0)
			if !ok || dist20 < 6 {
				return false
			}
			tr, trOK := models.Value(row.TrueRange)
			atr, atrOK := models.Value(row.ATR)
			if !trOK || !atrOK || atr == 0 || tr/atr < 1.5 {
				return false
			}
			prevHigh, ok := row.RollHighAt(50, 1)
			if !ok || row.High < prevHigh {
				return false
			}
			burst, ok := burstATR(row)
			if !ok || burst < 5 {
				return false
			}
			dv, ok := row.DollarVolumeAt(0)
			return ok && dv >= 2e7
		},
	},
	{
		// Second consecutive gap-up session holding its range.
		Name: "multi_day_run",
		Match: func(row *models.IndicatorRow) bool {
			gap, gapOK := models.Value(row.GapATR)
			prev, prevOK := models.Value(row.GapATRPrev)
			if !gapOK || !prevOK || gap < 0.15 || prev < 0.15 {
				return false
			}
			prevHigh, ok := row.RollHighAt(5, 1)
			if !ok || row.High < prevHigh {
				return false
			}
			dist9, ok := row.DistATRAt(9, 0)
			if !ok || dist9 < 1.5 {
				return false
			}
			cr, ok := models.Value(row.CloseRange)
			if !ok || cr < 0.5 {
				return false
			}
			dv, ok := row.DollarVolumeAt(0)
			return ok && dv >= 1e7
		},
	},
	{
		// First weak close after an extended run: supply signal on the
		// back side.
		Name: "first_red_day_fade",
		Match: func(row *models.IndicatorRow) bool {
			if row.Close >= row.Open {
				return false
			}
			distPrev, ok := row.DistATRAt(9, 1)
			if !ok || distPrev < 3 {
				return false
			}
			tr, trOK := models.Value(row.TrueRange)
			atr, atrOK := models.Value(row.ATR)
			if !trOK || !atrOK || atr == 0 || tr/atr < 1 {
				return false
			}
			cr, ok := models.Value(row.CloseRange)
			if !ok || cr > 0.3 {
				return false
			}
			dv, ok := row.DollarVolumeAt(0)
			return ok && dv >= 1e7
		},
	},
	{
		// Range expansion through the 30-day high with a top-tier close.
		Name: "range_break_momentum",
		Match: func(row *models.IndicatorRow) bool {
			tr, trOK := models.Value(row.TrueRange)
			atr, atrOK := models.Value(row.ATR)
			if !trOK || !atrOK || atr == 0 || tr/atr < 2.5 {
				return false
			}
			prevHigh, ok := row.RollHighAt(30, 1)
			if !ok || row.High < prevHigh {
				return false
			}
			cr, ok := models.Value(row.CloseRange)
			if !ok || cr < 0.7 {
				return false
			}
			dv, ok := row.DollarVolumeAt(0)
			return ok && dv >= 1e7
		},
	},
}
