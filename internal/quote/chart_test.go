package quote

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/portfolio-tracker/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() time.Time {
	return time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
}

func TestChartServiceCachesProviderResult(t *testing.T) {
	provider := &fakeProvider{name: "primary", series: []models.PricePoint{
		{Date: "2026-08-28", Close: 100},
		{Date: "2026-08-29", Close: 101},
	}}
	chain := NewFallbackChain(testLogger(), provider)
	cache := NewMemorySeriesCache(time.Hour, fixedClock)
	svc := NewChartService(cache, chain, testLogger(), fixedClock)
	ctx := context.Background()

	first, err := svc.GetDailySeries(ctx, "AAPL")
	require.NoError(t, err)
	second, err := svc.GetDailySeries(ctx, "AAPL")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, provider.seriesCalls, "second read within the TTL must not hit the provider")
}

func TestChartServiceSyntheticFallback(t *testing.T) {
	provider := &fakeProvider{name: "primary", err: errors.New("down")}
	chain := NewFallbackChain(testLogger(), provider)
	svc := NewChartService(NewMemorySeriesCache(time.Hour, fixedClock), chain, testLogger(), fixedClock)

	series, err := svc.GetDailySeries(context.Background(), "ZZZZ")
	require.NoError(t, err, "chart endpoint must not fail on provider outage")
	assert.Len(t, series, syntheticDays)
	assert.True(t, sort.SliceIsSorted(series, func(i, j int) bool {
		return series[i].Date < series[j].Date
	}))

	// Synthetic data is deterministic per ticker.
	again := SyntheticSeries("ZZZZ", fixedClock())
	assert.Equal(t, normalizeSeries(again), series)
}

func TestChartServiceNormalizesTicker(t *testing.T) {
	provider := &fakeProvider{name: "primary", series: []models.PricePoint{
		{Date: "2026-08-29", Close: 101},
	}}
	chain := NewFallbackChain(testLogger(), provider)
	svc := NewChartService(NewMemorySeriesCache(time.Hour, fixedClock), chain, testLogger(), fixedClock)
	ctx := context.Background()

	_, err := svc.GetDailySeries(ctx, " aapl ")
	require.NoError(t, err)
	_, err = svc.GetDailySeries(ctx, "AAPL")
	require.NoError(t, err)

	assert.Equal(t, 1, provider.seriesCalls, "ticker casing and whitespace must share one cache entry")
}

func TestNormalizeSeries(t *testing.T) {
	series := []models.PricePoint{
		{Date: "2026-08-29", Close: 101},
		{Date: "2026-08-27", Close: 99},
		{Date: "2026-08-29", Close: 102}, // duplicate date, last one wins
		{Date: "2026-08-28", Close: 100},
	}

	got := normalizeSeries(series)

	require.Len(t, got, 3)
	assert.Equal(t, "2026-08-27", got[0].Date)
	assert.Equal(t, "2026-08-28", got[1].Date)
	assert.Equal(t, "2026-08-29", got[2].Date)
	assert.Equal(t, 102.0, got[2].Close)
}

func TestSyntheticSeriesShape(t *testing.T) {
	now := fixedClock()
	series := SyntheticSeries("AAPL", now)

	require.Len(t, series, syntheticDays)
	assert.Equal(t, now.Format("2006-01-02"), series[len(series)-1].Date)

	seen := make(map[string]bool)
	for _, p := range series {
		assert.Greater(t, p.Close, 0.0)
		assert.False(t, seen[p.Date], "duplicate date %s", p.Date)
		seen[p.Date] = true
	}
}
