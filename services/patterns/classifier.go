package patterns

import "go_scanner_project/models"

// Classify evaluates the variant library against one indicator row and
// returns a ScanMatch when at least one variant matches, nil otherwise.
// Pattern membership is categorical; the composite score only orders and
// tiers the rows that already matched.
func Classify(ticker string, row *models.IndicatorRow) *models.ScanMatch {
	var matched []string
	for _, v := range Library {
		if v.Match(row) {
			matched = append(matched, v.Name)
		}
	}
	if len(matched) == 0 {
		return nil
	}

	score, metrics := CompositeScore(row)
	return &models.ScanMatch{
		Ticker:   ticker,
		Date:     row.Date,
		Score:    score,
		Tier:     TierFor(score),
		Patterns: matched,
		Metrics:  metrics,
	}
}
