package indicators

import (
	"math"

	"go_scanner_project/models"
)

// Compute derives the full indicator set from an ordered daily bar series.
// Pure function of its input: no I/O, no shared state, safe to run per
// ticker in parallel. Row i depends only on bars 0..i; any field whose
// warm-up window is unmet or whose denominator is zero is nil.
func Compute(bars []models.Bar) []models.IndicatorRow {
	n := len(bars)
	if n == 0 {
		return nil
	}

	open := make([]float64, n)
	high := make([]float64, n)
	low := make([]float64, n)
	closes := make([]float64, n)
	volume := make([]int64, n)
	for i, b := range bars {
		open[i], _ = b.Open.Float64()
		high[i], _ = b.High.Float64()
		low[i], _ = b.Low.Float64()
		closes[i], _ = b.Close.Float64()
		volume[i] = b.Volume
	}

	trueRange := computeTrueRange(high, low, closes)
	atr := computeATR(trueRange)

	emas := make(map[int][]*float64, len(models.EMASpans))
	for _, span := range models.EMASpans {
		emas[span] = computeEMA(closes, span)
	}

	dist := make(map[int][]*float64, len(models.EMASpans))
	for _, span := range models.EMASpans {
		dist[span] = computeDistATR(high, emas[span], atr)
	}

	rollHigh := make(map[int][]*float64, len(models.RollingWindows))
	rollLow := make(map[int][]*float64, len(models.RollingWindows))
	for _, w := range models.RollingWindows {
		rollHigh[w] = rollingExtreme(high, w, true)
		rollLow[w] = rollingExtreme(low, w, false)
	}

	gap := computeGapATR(open, closes, atr)
	gapPct := computeGapPct(open, closes)
	closeRange := computeCloseRange(high, low, closes)
	dollarVol := computeDollarVolume(closes, volume)

	rows := make([]models.IndicatorRow, n)
	for i := 0; i < n; i++ {
		row := models.IndicatorRow{
			Date:       bars[i].Date,
			Open:       open[i],
			High:       high[i],
			Low:        low[i],
			Close:      closes[i],
			Volume:     volume[i],
			TrueRange:  trueRange[i],
			ATR:        atr[i],
			GapATR:     gap[i],
			GapATRPrev: lagged(gap, i, 1),
			GapPct:     gapPct[i],
			CloseRange: closeRange[i],
			EMA:        make(map[int]*float64, len(models.EMASpans)),
			EMAPrev:    make(map[int]*float64, len(models.EMASpans)),
			DistATR:    make(map[int][]*float64, len(models.EMASpans)),
			RollHigh:   make(map[int][]*float64, len(models.RollingWindows)),
			RollLow:    make(map[int][]*float64, len(models.RollingWindows)),
		}

		for _, span := range models.EMASpans {
			row.EMA[span] = emas[span][i]
			row.EMAPrev[span] = lagged(emas[span], i, 1)
			row.DistATR[span] = lagSet(dist[span], i, models.MaxLag)
		}
		for _, w := range models.RollingWindows {
			row.RollHigh[w] = lagSet(rollHigh[w], i, models.MaxLag)
			row.RollLow[w] = lagSet(rollLow[w], i, models.MaxLag)
		}
		row.DollarVolume = lagSet(dollarVol, i, models.DollarVolumeLags)

		rows[i] = row
	}
	return rows
}

// computeTrueRange returns max(high-low, |high-prevClose|, |low-prevClose|).
// The first bar has no prior close and degrades to the plain session range.
func computeTrueRange(high, low, closes []float64) []*float64 {
	out := make([]*float64, len(high))
	for i := range high {
		tr := high[i] - low[i]
		if i > 0 {
			tr = math.Max(tr, math.Abs(high[i]-closes[i-1]))
			tr = math.Max(tr, math.Abs(low[i]-closes[i-1]))
		}
		out[i] = fptr(tr)
	}
	return out
}

// computeATR returns the 14-bar simple mean of true range ending at the
// prior bar. The one-day shift keeps today's range out of today's
// normalization denominator and must not be removed.
func computeATR(trueRange []*float64) []*float64 {
	out := make([]*float64, len(trueRange))
	for i := range trueRange {
		if i < models.ATRPeriod {
			continue
		}
		sum := 0.0
		ok := true
		for j := i - models.ATRPeriod; j < i; j++ {
			v, defined := models.Value(trueRange[j])
			if !defined {
				ok = false
				break
			}
			sum += v
		}
		if ok {
			out[i] = fptr(sum / float64(models.ATRPeriod))
		}
	}
	return out
}

// computeEMA runs standard exponential smoothing with alpha = 2/(span+1),
// seeded at zero before the first bar. Values stay nil through the warm-up.
func computeEMA(closes []float64, span int) []*float64 {
	out := make([]*float64, len(closes))
	alpha := 2.0 / float64(span+1)
	ema := 0.0
	for i := range closes {
		ema = alpha*closes[i] + (1-alpha)*ema
		if i >= span {
			out[i] = fptr(ema)
		}
	}
	return out
}

// computeDistATR returns (high - ema)/atr per bar.
func computeDistATR(high []float64, ema, atr []*float64) []*float64 {
	out := make([]*float64, len(high))
	for i := range high {
		e, eok := models.Value(ema[i])
		a, aok := models.Value(atr[i])
		if !eok || !aok || a == 0 {
			continue
		}
		out[i] = fptr((high[i] - e) / a)
	}
	return out
}

// rollingExtreme returns the max (or min) over the trailing full window.
func rollingExtreme(vals []float64, window int, max bool) []*float64 {
	out := make([]*float64, len(vals))
	for i := range vals {
		if i+1 < window {
			continue
		}
		ext := vals[i]
		for j := i - window + 1; j < i; j++ {
			if max && vals[j] > ext {
				ext = vals[j]
			}
			if !max && vals[j] < ext {
				ext = vals[j]
			}
		}
		out[i] = fptr(ext)
	}
	return out
}

// computeGapATR returns (open - priorClose)/atr per bar.
func computeGapATR(open, closes []float64, atr []*float64) []*float64 {
	out := make([]*float64, len(open))
	for i := 1; i < len(open); i++ {
		a, ok := models.Value(atr[i])
		if !ok || a == 0 {
			continue
		}
		out[i] = fptr((open[i] - closes[i-1]) / a)
	}
	return out
}

// computeGapPct returns the open over the prior close as a percentage.
func computeGapPct(open, closes []float64) []*float64 {
	out := make([]*float64, len(open))
	for i := 1; i < len(open); i++ {
		if closes[i-1] == 0 {
			continue
		}
		out[i] = fptr((open[i] - closes[i-1]) / closes[i-1] * 100)
	}
	return out
}

// computeCloseRange returns (close-low)/(high-low); undefined on flat bars.
func computeCloseRange(high, low, closes []float64) []*float64 {
	out := make([]*float64, len(high))
	for i := range high {
		spread := high[i] - low[i]
		if spread == 0 {
			continue
		}
		out[i] = fptr((closes[i] - low[i]) / spread)
	}
	return out
}

func computeDollarVolume(closes []float64, volume []int64) []*float64 {
	out := make([]*float64, len(closes))
	for i := range closes {
		out[i] = fptr(closes[i] * float64(volume[i]))
	}
	return out
}

// lagSet collects series[i], series[i-1], ... series[i-maxLag] as one slice.
func lagSet(series []*float64, i, maxLag int) []*float64 {
	out := make([]*float64, maxLag+1)
	for k := 0; k <= maxLag; k++ {
		out[k] = lagged(series, i, k)
	}
	return out
}

func lagged(series []*float64, i, lag int) *float64 {
	if i-lag < 0 {
		return nil
	}
	return series[i-lag]
}

func fptr(v float64) *float64 {
	return &v
}
