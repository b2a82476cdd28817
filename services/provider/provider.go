package provider

import (
	"context"
	"time"

	"go_scanner_project/models"
)

// MarketDataProvider is the scanner's view of the external market-data
// vendor. Implementations may fail transiently; callers are expected to
// classify errors with IsTransient before retrying.
type MarketDataProvider interface {
	// GetBars returns daily OHLCV bars for one ticker, date ascending.
	GetBars(ctx context.Context, ticker string, start, end time.Time) ([]models.Bar, error)

	// GetUniverseVolume returns aggregate share volume per ticker over the range.
	GetUniverseVolume(ctx context.Context, start, end time.Time) (map[string]int64, error)

	// ListActiveTickers returns every symbol that traded in the range.
	ListActiveTickers(ctx context.Context, start, end time.Time) ([]string, error)
}
