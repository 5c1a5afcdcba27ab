// Package quote provides external market-data access: provider clients for
// two quote APIs, an ordered fallback chain over them, a TTL cache for
// daily price series, and a synthetic series generator of last resort.
package quote

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
	"github.com/portfolio-tracker/internal/models"
	"github.com/portfolio-tracker/internal/retry"
)

// Provider is the capability shared by all quote sources. Implementations
// bound each call with their own HTTP timeout.
type Provider interface {
	// Name identifies the provider in logs and quote sources.
	Name() string
	// CurrentQuote returns the latest price and day-change for a ticker.
	CurrentQuote(ctx context.Context, ticker string) (models.Quote, error)
	// DailySeries returns recent daily closing prices, ascending by date.
	DailySeries(ctx context.Context, ticker string) ([]models.PricePoint, error)
}

// PlaceholderPrice is the hard-coded unit price used when every provider
// failed and the holding has no recorded cost basis.
const PlaceholderPrice = 100.0

// DefaultPrice picks the fallback price for a holding: its cost basis when
// one is recorded, otherwise the placeholder.
func DefaultPrice(costBasis float64) float64 {
	if costBasis > 0 {
		return costBasis
	}
	return PlaceholderPrice
}

// getWithRetry issues a GET through the provider's resty client, retrying
// transport errors, 429s and 5xx responses with short backoff. Other non-2xx
// statuses are returned to the caller without retrying.
func getWithRetry(ctx context.Context, client *resty.Client, path string, params map[string]string) (*resty.Response, error) {
	var resp *resty.Response
	err := retry.Do(ctx, retry.DefaultConfig(), func(ctx context.Context, attempt int) error {
		r, err := client.R().
			SetContext(ctx).
			SetQueryParams(params).
			Get(path)
		if err != nil {
			return err
		}
		if r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= http.StatusInternalServerError {
			return fmt.Errorf("status %d", r.StatusCode())
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}
