package quote

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/portfolio-tracker/internal/models"
)

// AlphaVantageClient is the secondary quote provider.
type AlphaVantageClient struct {
	client *resty.Client
	apiKey string
}

// AlphaVantageConfig holds Alpha Vantage client configuration.
type AlphaVantageConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// NewAlphaVantageClient creates an Alpha Vantage API client.
func NewAlphaVantageClient(cfg AlphaVantageConfig) *AlphaVantageClient {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout)
	return &AlphaVantageClient{client: client, apiKey: cfg.APIKey}
}

// Name implements Provider.
func (c *AlphaVantageClient) Name() string { return "alphavantage" }

// alphaVantageResponse covers both the GLOBAL_QUOTE and TIME_SERIES_DAILY
// payload shapes. Alpha Vantage reports all numbers as strings under
// position-prefixed keys.
type alphaVantageResponse struct {
	GlobalQuote struct {
		Price         string `json:"05. price"`
		ChangePercent string `json:"10. change percent"`
	} `json:"Global Quote"`
	TimeSeriesDaily map[string]struct {
		Close string `json:"4. close"`
	} `json:"Time Series (Daily)"`
}

// CurrentQuote implements Provider.
func (c *AlphaVantageClient) CurrentQuote(ctx context.Context, ticker string) (models.Quote, error) {
	resp, err := getWithRetry(ctx, c.client, "/query", map[string]string{
		"function": "GLOBAL_QUOTE",
		"symbol":   ticker,
		"apikey":   c.apiKey,
	})
	if err != nil {
		return models.Quote{}, fmt.Errorf("alphavantage quote request: %w", err)
	}
	if resp.IsError() {
		return models.Quote{}, fmt.Errorf("alphavantage quote: unexpected status %d", resp.StatusCode())
	}

	var payload alphaVantageResponse
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return models.Quote{}, fmt.Errorf("alphavantage quote: malformed payload: %w", err)
	}

	price, err := strconv.ParseFloat(payload.GlobalQuote.Price, 64)
	if err != nil || price <= 0 {
		return models.Quote{}, fmt.Errorf("alphavantage quote: no price for %s", ticker)
	}

	// Change percent arrives as e.g. "1.2345%".
	var changePercent float64
	if raw := strings.TrimSuffix(payload.GlobalQuote.ChangePercent, "%"); raw != "" {
		changePercent, _ = strconv.ParseFloat(raw, 64)
	}

	return models.Quote{
		Price:         price,
		ChangePercent: changePercent,
		Source:        c.Name(),
	}, nil
}

// DailySeries implements Provider.
func (c *AlphaVantageClient) DailySeries(ctx context.Context, ticker string) ([]models.PricePoint, error) {
	resp, err := getWithRetry(ctx, c.client, "/query", map[string]string{
		"function": "TIME_SERIES_DAILY",
		"symbol":   ticker,
		"apikey":   c.apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("alphavantage series request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("alphavantage series: unexpected status %d", resp.StatusCode())
	}

	var payload alphaVantageResponse
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, fmt.Errorf("alphavantage series: malformed payload: %w", err)
	}
	if len(payload.TimeSeriesDaily) == 0 {
		return nil, fmt.Errorf("alphavantage series: no data for %s", ticker)
	}

	series := make([]models.PricePoint, 0, len(payload.TimeSeriesDaily))
	for date, day := range payload.TimeSeriesDaily {
		closePrice, err := strconv.ParseFloat(day.Close, 64)
		if err != nil {
			return nil, fmt.Errorf("alphavantage series: bad close for %s on %s: %w", ticker, date, err)
		}
		series = append(series, models.PricePoint{Date: date, Close: closePrice})
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Date < series[j].Date })

	return series, nil
}
