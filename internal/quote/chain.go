package quote

import (
	"context"
	"errors"
	"time"

	"github.com/portfolio-tracker/internal/apperrors"
	"github.com/portfolio-tracker/internal/circuitbreaker"
	"github.com/portfolio-tracker/internal/logging"
	"github.com/portfolio-tracker/internal/models"
)

// FallbackChain is an ordered list of providers tried until one succeeds.
// Any failure mode (timeout, non-2xx, malformed payload) advances to the
// next provider. Availability wins over correctness: the quote path always
// resolves to a best-effort price, flagged as degraded when every provider
// failed.
//
// Each provider sits behind a circuit breaker so a persistently failing
// upstream is skipped without burning its request timeout on every call.
type FallbackChain struct {
	providers []guardedProvider
	logger    *logging.Logger
}

type guardedProvider struct {
	provider Provider
	breaker  *circuitbreaker.Breaker
}

// NewFallbackChain creates a chain trying providers in the given order.
func NewFallbackChain(logger *logging.Logger, providers ...Provider) *FallbackChain {
	guarded := make([]guardedProvider, 0, len(providers))
	for _, p := range providers {
		guarded = append(guarded, guardedProvider{
			provider: p,
			breaker: circuitbreaker.New(circuitbreaker.Config{
				Name:        p.Name(),
				MaxFailures: 3,
				Cooldown:    30 * time.Second,
			}),
		})
	}
	return &FallbackChain{providers: guarded, logger: logger}
}

// Quote tries each provider in order and returns the first success.
// When every provider fails it returns an UpstreamUnavailable error
// wrapping the last failure.
func (f *FallbackChain) Quote(ctx context.Context, ticker string) (models.Quote, error) {
	var lastErr error
	for _, gp := range f.providers {
		var q models.Quote
		err := gp.breaker.Execute(func() error {
			var qErr error
			q, qErr = gp.provider.CurrentQuote(ctx, ticker)
			return qErr
		})
		if err == nil {
			return q, nil
		}
		lastErr = err
		f.logProviderFailure(gp, ticker, err, "quote")
	}
	return models.Quote{}, apperrors.NewUpstreamError("all", lastErr)
}

// QuoteOrDefault resolves a quote through the chain, falling through to the
// supplied default price when every provider fails. It never returns an
// error; a degraded quote carries ChangePercent 0 and Source "fallback".
func (f *FallbackChain) QuoteOrDefault(ctx context.Context, ticker string, defaultPrice float64) models.Quote {
	q, err := f.Quote(ctx, ticker)
	if err == nil {
		return q
	}

	f.logger.WithField("ticker", ticker).Warn("all quote providers failed, using default price")
	return models.Quote{
		Price:    defaultPrice,
		Source:   "fallback",
		Degraded: true,
	}
}

// Series tries each provider's daily series in order and returns the
// first success.
func (f *FallbackChain) Series(ctx context.Context, ticker string) ([]models.PricePoint, error) {
	var lastErr error
	for _, gp := range f.providers {
		var series []models.PricePoint
		err := gp.breaker.Execute(func() error {
			var sErr error
			series, sErr = gp.provider.DailySeries(ctx, ticker)
			return sErr
		})
		if err == nil {
			return series, nil
		}
		lastErr = err
		f.logProviderFailure(gp, ticker, err, "series")
	}
	return nil, apperrors.NewUpstreamError("all", lastErr)
}

func (f *FallbackChain) logProviderFailure(gp guardedProvider, ticker string, err error, op string) {
	fields := map[string]interface{}{
		"provider": gp.provider.Name(),
		"ticker":   ticker,
		"op":       op,
	}
	if errors.Is(err, circuitbreaker.ErrOpen) {
		f.logger.WithFields(fields).Warn("provider breaker open, skipping")
		return
	}
	f.logger.WithError(err).WithFields(fields).Warn("provider failed, trying next")
}
