package quote

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/portfolio-tracker/internal/models"
)

// FinnhubClient is the primary quote provider.
type FinnhubClient struct {
	client *resty.Client
	apiKey string
}

// FinnhubConfig holds Finnhub client configuration.
type FinnhubConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// NewFinnhubClient creates a Finnhub API client.
func NewFinnhubClient(cfg FinnhubConfig) *FinnhubClient {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout)
	return &FinnhubClient{client: client, apiKey: cfg.APIKey}
}

// Name implements Provider.
func (c *FinnhubClient) Name() string { return "finnhub" }

// finnhubQuote is the /quote response: c = current price, dp = percent change.
type finnhubQuote struct {
	Current       float64 `json:"c"`
	PercentChange float64 `json:"dp"`
}

// CurrentQuote implements Provider.
func (c *FinnhubClient) CurrentQuote(ctx context.Context, ticker string) (models.Quote, error) {
	resp, err := getWithRetry(ctx, c.client, "/api/v1/quote", map[string]string{
		"symbol": ticker,
		"token":  c.apiKey,
	})
	if err != nil {
		return models.Quote{}, fmt.Errorf("finnhub quote request: %w", err)
	}
	if resp.IsError() {
		return models.Quote{}, fmt.Errorf("finnhub quote: unexpected status %d", resp.StatusCode())
	}

	var q finnhubQuote
	if err := json.Unmarshal(resp.Body(), &q); err != nil {
		return models.Quote{}, fmt.Errorf("finnhub quote: malformed payload: %w", err)
	}
	// Finnhub reports unknown symbols as an all-zero quote.
	if q.Current <= 0 {
		return models.Quote{}, fmt.Errorf("finnhub quote: no price for %s", ticker)
	}

	return models.Quote{
		Price:         q.Current,
		ChangePercent: q.PercentChange,
		Source:        c.Name(),
	}, nil
}

// finnhubCandle is the /stock/candle response: parallel arrays of unix
// timestamps and closing prices, plus a status flag.
type finnhubCandle struct {
	Timestamps []int64   `json:"t"`
	Closes     []float64 `json:"c"`
	Status     string    `json:"s"`
}

// DailySeries implements Provider.
func (c *FinnhubClient) DailySeries(ctx context.Context, ticker string) ([]models.PricePoint, error) {
	resp, err := getWithRetry(ctx, c.client, "/api/v1/stock/candle", map[string]string{
		"symbol":     ticker,
		"resolution": "D",
		"count":      "60",
		"token":      c.apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("finnhub candle request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("finnhub candle: unexpected status %d", resp.StatusCode())
	}

	var candle finnhubCandle
	if err := json.Unmarshal(resp.Body(), &candle); err != nil {
		return nil, fmt.Errorf("finnhub candle: malformed payload: %w", err)
	}
	if candle.Status != "ok" || len(candle.Timestamps) == 0 || len(candle.Timestamps) != len(candle.Closes) {
		return nil, fmt.Errorf("finnhub candle: no data for %s", ticker)
	}

	series := make([]models.PricePoint, 0, len(candle.Timestamps))
	for i, ts := range candle.Timestamps {
		series = append(series, models.PricePoint{
			Date:  time.Unix(ts, 0).UTC().Format("2006-01-02"),
			Close: candle.Closes[i],
		})
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Date < series[j].Date })

	return series, nil
}
