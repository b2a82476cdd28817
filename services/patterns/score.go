package patterns

import "go_scanner_project/models"

// Composite scoring: five weighted sub-scores summed and clipped to 100.
// Each sub-score reads a fixed tier table; ties inside a tier resolve to the
// tier's point value, never interpolated. The composite is ranking metadata
// carried on a match, not a trigger by itself.

// scoreATRExpansion awards 0-20 for today's range as a multiple of ATR.
func scoreATRExpansion(row *models.IndicatorRow) (float64, float64) {
	tr, trOK := models.Value(row.TrueRange)
	atr, atrOK := models.Value(row.ATR)
	if !trOK || !atrOK || atr == 0 {
		return 0, 0
	}
	multiple := tr / atr
	switch {
	case multiple >= 3:
		return 20, multiple
	case multiple >= 2:
		return 18, multiple
	case multiple >= 1:
		return 15, multiple
	case multiple >= 0.5:
		return 12, multiple
	default:
		return 0, multiple
	}
}

// scoreEMADistance awards 0-30 for extension above the 9EMA in ATR units.
func scoreEMADistance(row *models.IndicatorRow) (float64, float64) {
	dist, ok := row.DistATRAt(9, 0)
	if !ok {
		return 0, 0
	}
	switch {
	case dist >= 7:
		return 30, dist
	case dist >= 5:
		return 26, dist
	case dist >= 4:
		return 22, dist
	case dist >= 3:
		return 18, dist
	case dist >= 2:
		return 12, dist
	case dist >= 1:
		return 6, dist
	default:
		return 0, dist
	}
}

// burstATR measures the three-day upward extension: today's high over the
// 5-day floor from three sessions back, in ATR units.
func burstATR(row *models.IndicatorRow) (float64, bool) {
	floor, ok := row.RollLowAt(5, 3)
	if !ok {
		return 0, false
	}
	atr, atrOK := models.Value(row.ATR)
	if !atrOK || atr == 0 {
		return 0, false
	}
	return (row.High - floor) / atr, true
}

// scoreBurst awards 0-20 for the multi-day burst.
func scoreBurst(row *models.IndicatorRow) (float64, float64) {
	burst, ok := burstATR(row)
	if !ok {
		return 0, 0
	}
	switch {
	case burst >= 6:
		return 20, burst
	case burst >= 4:
		return 16, burst
	case burst >= 3:
		return 12, burst
	case burst >= 2:
		return 8, burst
	case burst >= 1:
		return 4, burst
	default:
		return 0, burst
	}
}

// relativeVolume compares today's dollar volume to the trailing 5-day mean.
func relativeVolume(row *models.IndicatorRow) (float64, bool) {
	today, ok := row.DollarVolumeAt(0)
	if !ok {
		return 0, false
	}
	sum := 0.0
	for lag := 1; lag <= 5; lag++ {
		v, defined := row.DollarVolumeAt(lag)
		if !defined {
			return 0, false
		}
		sum += v
	}
	mean := sum / 5
	if mean == 0 {
		return 0, false
	}
	return today / mean, true
}

// scoreRelativeVolume awards 0-15 for the dollar-volume multiple.
func scoreRelativeVolume(row *models.IndicatorRow) (float64, float64) {
	rel, ok := relativeVolume(row)
	if !ok {
		return 0, 0
	}
	switch {
	case rel >= 5:
		return 15, rel
	case rel >= 3:
		return 12, rel
	case rel >= 2:
		return 8, rel
	case rel >= 1.5:
		return 5, rel
	default:
		return 0, rel
	}
}

// scoreGap awards 0-15 for the ATR-normalized gap, plus 5 when today and
// yesterday both gapped at least 0.3 ATR.
func scoreGap(row *models.IndicatorRow) (float64, float64) {
	gap, ok := models.Value(row.GapATR)
	if !ok {
		return 0, 0
	}
	var pts float64
	switch {
	case gap >= 1:
		pts = 15
	case gap >= 0.5:
		pts = 12
	case gap >= 0.3:
		pts = 8
	case gap >= 0.15:
		pts = 4
	}
	if prev, prevOK := models.Value(row.GapATRPrev); prevOK && gap >= 0.3 && prev >= 0.3 {
		pts += 5
	}
	return pts, gap
}

// CompositeScore sums the five sub-scores, clipped to [0, 100], and returns
// the raw metric values behind each for auditability.
func CompositeScore(row *models.IndicatorRow) (float64, map[string]float64) {
	metrics := make(map[string]float64)

	atrPts, atrMultiple := scoreATRExpansion(row)
	emaPts, emaDist := scoreEMADistance(row)
	burstPts, burst := scoreBurst(row)
	volPts, relVol := scoreRelativeVolume(row)
	gapPts, gap := scoreGap(row)

	metrics["atr_multiple"] = atrMultiple
	metrics["ema9_dist_atr"] = emaDist
	metrics["burst_atr"] = burst
	metrics["relative_volume"] = relVol
	metrics["gap_atr"] = gap
	if cr, ok := models.Value(row.CloseRange); ok {
		metrics["close_range"] = cr
	}

	score := atrPts + emaPts + burstPts + volPts + gapPts
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score, metrics
}

// TierFor maps a clipped composite score to its letter tier.
func TierFor(score float64) models.ScanTier {
	switch {
	case score >= 90:
		return models.TierAPlus
	case score >= 75:
		return models.TierA
	case score >= 60:
		return models.TierB
	case score >= 40:
		return models.TierC
	default:
		return models.TierD
	}
}
