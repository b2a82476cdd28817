package patterns

import (
	"testing"
	"time"

	"go_scanner_project/models"
)

func f(v float64) *float64 { return &v }

// rowFixture builds an indicator row with every field a variant or
// sub-score might read, all defined. Tests override individual fields.
func rowFixture() *models.IndicatorRow {
	row := &models.IndicatorRow{
		Date:      time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		Open:      100,
		High:      104,
		Low:       99,
		Close:     103,
		Volume:    2_000_000,
		TrueRange: f(5),
		ATR:       f(2),
		EMA: map[int]*float64{
			9: f(98), 20: f(96), 50: f(92), 200: f(85),
		},
		EMAPrev: map[int]*float64{
			9: f(97), 20: f(95.5), 50: f(91.5), 200: f(84.8),
		},
		DistATR: map[int][]*float64{
			9:  {f(3), f(2.5), f(2), f(1.5), f(1)},
			20: {f(4), f(3.5), f(3), f(2.5), f(2)},
		},
		RollHigh: map[int][]*float64{
			5:  {f(104), f(101), f(100.5), f(100), f(99.5)},
			20: {f(104), f(102), f(101.5), f(101), f(100.5)},
			30: {f(104), f(102.5), f(102), f(101.5), f(101)},
			50: {f(104), f(103), f(102.5), f(102), f(101.5)},
		},
		RollLow: map[int][]*float64{
			5: {f(99), f(98), f(97.5), f(97), f(96.5)},
		},
		GapATR:       f(0.6),
		GapATRPrev:   f(0.4),
		GapPct:       f(1.2),
		CloseRange:   f(0.8),
		DollarVolume: []*float64{f(2.06e8), f(5e7), f(5e7), f(5e7), f(5e7), f(5e7)},
	}
	return row
}

func TestScoreATRExpansionTiers(t *testing.T) {
	cases := []struct {
		tr, atr float64
		want    float64
	}{
		{6.0, 2, 20},
		{6.0, 3, 18},
		{4.0, 2, 18},
		{2.0, 2, 15},
		{1.2, 2, 12},
		{0.8, 2, 0},
	}
	for _, tc := range cases {
		row := rowFixture()
		row.TrueRange = f(tc.tr)
		row.ATR = f(tc.atr)
		pts, _ := scoreATRExpansion(row)
		if pts != tc.want {
			t.Errorf("tr=%v atr=%v: pts = %v, want %v", tc.tr, tc.atr, pts, tc.want)
		}
	}

	row := rowFixture()
	row.ATR = nil
	if pts, _ := scoreATRExpansion(row); pts != 0 {
		t.Errorf("undefined ATR: pts = %v, want 0", pts)
	}
}

func TestScoreEMADistanceTiers(t *testing.T) {
	cases := []struct {
		dist float64
		want float64
	}{
		{8, 30}, {7, 30}, {5.5, 26}, {4.2, 22}, {3, 18}, {2.9, 18}, {2, 12}, {1.1, 6}, {0.9, 0}, {-2, 0},
	}
	for _, tc := range cases {
		row := rowFixture()
		row.DistATR[9] = []*float64{f(tc.dist), nil, nil, nil, nil}
		pts, _ := scoreEMADistance(row)
		if pts != tc.want {
			t.Errorf("dist=%v: pts = %v, want %v", tc.dist, pts, tc.want)
		}
	}

	row := rowFixture()
	row.DistATR[9] = []*float64{nil, nil, nil, nil, nil}
	if pts, _ := scoreEMADistance(row); pts != 0 {
		t.Errorf("undefined distance: pts = %v, want 0", pts)
	}
}

func TestScoreBurst(t *testing.T) {
	// burst = (high - rollLow5 lag3) / atr
	cases := []struct {
		high, floor, atr float64
		want             float64
	}{
		{110, 97, 2, 20},  // 6.5
		{106, 97, 2, 16},  // 4.5
		{104, 97, 2, 12},  // 3.5
		{102, 97, 2, 8},   // 2.5
		{100, 97, 2, 4},   // 1.5
		{98, 97, 2, 0},    // 0.5
	}
	for _, tc := range cases {
		row := rowFixture()
		row.High = tc.high
		row.RollLow[5] = []*float64{f(96), nil, nil, f(tc.floor), nil}
		row.ATR = f(tc.atr)
		pts, _ := scoreBurst(row)
		if pts != tc.want {
			t.Errorf("high=%v floor=%v: pts = %v, want %v", tc.high, tc.floor, pts, tc.want)
		}
	}

	row := rowFixture()
	row.RollLow[5] = []*float64{f(96), nil, nil, nil, nil}
	if pts, _ := scoreBurst(row); pts != 0 {
		t.Errorf("undefined floor: pts = %v, want 0", pts)
	}
}

func TestScoreRelativeVolume(t *testing.T) {
	cases := []struct {
		today float64
		want  float64
	}{
		{2.5e8, 15}, // 5x
		{1.6e8, 12}, // 3.2x
		{1.0e8, 8},  // 2x
		{8e7, 5},    // 1.6x
		{6e7, 0},    // 1.2x
	}
	for _, tc := range cases {
		row := rowFixture()
		row.DollarVolume = []*float64{f(tc.today), f(5e7), f(5e7), f(5e7), f(5e7), f(5e7)}
		pts, _ := scoreRelativeVolume(row)
		if pts != tc.want {
			t.Errorf("today=%v: pts = %v, want %v", tc.today, pts, tc.want)
		}
	}

	// A missing trailing day keeps the sub-score out entirely.
	row := rowFixture()
	row.DollarVolume = []*float64{f(2.5e8), f(5e7), f(5e7), nil, f(5e7), f(5e7)}
	if pts, _ := scoreRelativeVolume(row); pts != 0 {
		t.Errorf("incomplete trailing window: pts = %v, want 0", pts)
	}
}

func TestScoreGapWithBonus(t *testing.T) {
	cases := []struct {
		gap, prev float64
		want      float64
	}{
		{1.2, 0.1, 15},
		{1.2, 0.5, 20}, // bonus
		{0.6, 0.1, 12},
		{0.6, 0.3, 17}, // bonus
		{0.35, 0.1, 8},
		{0.2, 0.5, 4}, // today below 0.3, no bonus
		{0.1, 0.5, 0},
	}
	for _, tc := range cases {
		row := rowFixture()
		row.GapATR = f(tc.gap)
		row.GapATRPrev = f(tc.prev)
		pts, _ := scoreGap(row)
		if pts != tc.want {
			t.Errorf("gap=%v prev=%v: pts = %v, want %v", tc.gap, tc.prev, pts, tc.want)
		}
	}

	// Undefined prior gap never grants the bonus.
	row := rowFixture()
	row.GapATR = f(1.2)
	row.GapATRPrev = nil
	if pts, _ := scoreGap(row); pts != 15 {
		t.Errorf("nil prior gap: pts = %v, want 15", pts)
	}
}

func TestCompositeScoreClipsAtHundred(t *testing.T) {
	row := rowFixture()
	row.TrueRange = f(8) // 4x ATR: 20
	row.ATR = f(2)
	row.DistATR[9] = []*float64{f(8), nil, nil, nil, nil}        // 30
	row.High = 110                                               // burst (110-97)/2 = 6.5: 20
	row.RollLow[5] = []*float64{f(96), nil, nil, f(97), nil}
	row.DollarVolume = []*float64{f(3e8), f(5e7), f(5e7), f(5e7), f(5e7), f(5e7)} // 6x: 15
	row.GapATR = f(1.5)                                          // 15
	row.GapATRPrev = f(0.5)                                      // +5

	score, metrics := CompositeScore(row)
	if score != 100 {
		t.Errorf("score = %v, want clipped 100", score)
	}
	if metrics["atr_multiple"] != 4 {
		t.Errorf("atr_multiple metric = %v, want 4", metrics["atr_multiple"])
	}
	if metrics["close_range"] != 0.8 {
		t.Errorf("close_range metric = %v, want 0.8", metrics["close_range"])
	}
}

func TestCompositeScoreAllUndefined(t *testing.T) {
	row := &models.IndicatorRow{Date: time.Now(), Open: 10, High: 11, Low: 9, Close: 10.5}
	score, _ := CompositeScore(row)
	if score != 0 {
		t.Errorf("score = %v, want 0 when every input is undefined", score)
	}
}

func TestTierCutoffs(t *testing.T) {
	cases := []struct {
		score float64
		want  models.ScanTier
	}{
		{100, models.TierAPlus},
		{90, models.TierAPlus},
		{89.9, models.TierA},
		{75, models.TierA},
		{74.9, models.TierB},
		{60, models.TierB},
		{59.9, models.TierC},
		{40, models.TierC},
		{39.9, models.TierD},
		{0, models.TierD},
	}
	for _, tc := range cases {
		if got := TierFor(tc.score); got != tc.want {
			t.Errorf("TierFor(%v) = %v, want %v", tc.score, got, tc.want)
		}
	}
}
