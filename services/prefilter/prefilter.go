package prefilter

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"go_scanner_project/models"
	"go_scanner_project/services/provider"

	"gorm.io/gorm"
)

// DefaultCacheTTL is how long a computed candidate list stays fresh.
const DefaultCacheTTL = time.Hour

// VolumeBounds holds optional share-volume limits. A nil bound is open-ended.
type VolumeBounds struct {
	MinVolume *int64 `json:"min_volume"`
	MaxVolume *int64 `json:"max_volume"`
}

// Empty reports whether no bound is set.
func (b VolumeBounds) Empty() bool {
	return b.MinVolume == nil && b.MaxVolume == nil
}

// DateRange is an inclusive scan date range.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type cacheEntry struct {
	tickers   []string
	expiresAt time.Time
}

// VolumeFilter shrinks the ticker universe by aggregate volume before any
// bar fetching happens. Results are cached per (bounds, range) with a TTL;
// reads never block unrelated jobs during a write.
type VolumeFilter struct {
	provider provider.MarketDataProvider
	db       *gorm.DB // optional universe store, used as the degraded-path fallback
	ttl      time.Duration

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

// New creates a volume filter. db may be nil when no universe store is
// configured; the degraded path then has no fallback and provider outages
// become fatal to the scan.
func New(p provider.MarketDataProvider, db *gorm.DB, ttl time.Duration) *VolumeFilter {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &VolumeFilter{
		provider: p,
		db:       db,
		ttl:      ttl,
		cache:    make(map[string]cacheEntry),
	}
}

// Filter returns the candidate ticker list for the bounds and range.
// skipCache forces recomputation (the request-level caching toggle).
func (f *VolumeFilter) Filter(ctx context.Context, bounds VolumeBounds, rng DateRange, skipCache bool) ([]string, error) {
	key := cacheKey(bounds, rng)

	if !skipCache {
		if tickers, ok := f.lookup(key); ok {
			return tickers, nil
		}
	}

	tickers, err := f.compute(ctx, bounds, rng)
	if err != nil {
		// Degraded-but-available policy: a provider outage falls back to
		// the unfiltered universe from the local store rather than
		// failing the whole scan.
		fallback, fbErr := f.fallbackUniverse()
		if fbErr != nil {
			return nil, fmt.Errorf("volume pre-filter unavailable: %w", err)
		}
		log.Printf("Volume pre-filter degraded: provider error (%v), returning unfiltered universe of %d tickers", err, len(fallback))
		return fallback, nil
	}

	sort.Strings(tickers)
	f.store(key, tickers)
	return tickers, nil
}

// PurgeExpired drops stale cache entries and returns how many were removed.
func (f *VolumeFilter) PurgeExpired() int {
	now := time.Now()
	f.mu.Lock()
	defer f.mu.Unlock()

	removed := 0
	for key, entry := range f.cache {
		if now.After(entry.expiresAt) {
			delete(f.cache, key)
			removed++
		}
	}
	return removed
}

func (f *VolumeFilter) compute(ctx context.Context, bounds VolumeBounds, rng DateRange) ([]string, error) {
	if bounds.Empty() {
		return f.provider.ListActiveTickers(ctx, rng.Start, rng.End)
	}

	volumes, err := f.provider.GetUniverseVolume(ctx, rng.Start, rng.End)
	if err != nil {
		return nil, err
	}

	var tickers []string
	for ticker, volume := range volumes {
		if bounds.MinVolume != nil && volume < *bounds.MinVolume {
			continue
		}
		if bounds.MaxVolume != nil && volume > *bounds.MaxVolume {
			continue
		}
		tickers = append(tickers, ticker)
	}
	return tickers, nil
}

// fallbackUniverse loads active symbols from the universe store.
func (f *VolumeFilter) fallbackUniverse() ([]string, error) {
	if f.db == nil {
		return nil, fmt.Errorf("no universe store configured")
	}

	var symbols []string
	err := f.db.Model(&models.Ticker{}).
		Where("status = ?", "active").
		Order("symbol").
		Pluck("symbol", &symbols).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load fallback universe: %w", err)
	}
	if len(symbols) == 0 {
		return nil, fmt.Errorf("universe store is empty")
	}
	return symbols, nil
}

func (f *VolumeFilter) lookup(key string) ([]string, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	entry, ok := f.cache[key]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.tickers, true
}

func (f *VolumeFilter) store(key string, tickers []string) {
	f.mu.Lock()
	f.cache[key] = cacheEntry{tickers: tickers, expiresAt: time.Now().Add(f.ttl)}
	f.mu.Unlock()
}

func cacheKey(bounds VolumeBounds, rng DateRange) string {
	min, max := "-", "-"
	if bounds.MinVolume != nil {
		min = fmt.Sprintf("%d", *bounds.MinVolume)
	}
	if bounds.MaxVolume != nil {
		max = fmt.Sprintf("%d", *bounds.MaxVolume)
	}
	return fmt.Sprintf("%s|%s|%s|%s", min, max, rng.Start.Format("2006-01-02"), rng.End.Format("2006-01-02"))
}
