// Package service implements the portfolio business logic: quote-enriched
// valuation, aggregation, and the weighted-average holding upsert.
package service

import (
	"context"
	"strings"
	"sync"

	"github.com/portfolio-tracker/internal/apperrors"
	"github.com/portfolio-tracker/internal/logging"
	"github.com/portfolio-tracker/internal/models"
	"github.com/portfolio-tracker/internal/quote"
)

// HoldingStore is the persistence capability the portfolio service needs.
type HoldingStore interface {
	ListByUser(ctx context.Context, userID string) ([]*models.Holding, error)
	FindByUserAndTicker(ctx context.Context, userID, ticker string) (*models.Holding, error)
	Insert(ctx context.Context, holding *models.Holding) error
	Update(ctx context.Context, holding *models.Holding) error
	DeleteByUserAndTicker(ctx context.Context, userID, ticker string) error
}

// QuoteSource resolves a best-effort quote for a ticker. The returned
// quote is flagged degraded when it fell through to the default price.
type QuoteSource interface {
	QuoteOrDefault(ctx context.Context, ticker string, defaultPrice float64) models.Quote
}

// PortfolioService orchestrates the holdings store and the quote chain.
type PortfolioService struct {
	holdings HoldingStore
	quotes   QuoteSource
	logger   *logging.Logger
}

// NewPortfolioService creates a portfolio service.
func NewPortfolioService(holdings HoldingStore, quotes QuoteSource, logger *logging.Logger) *PortfolioService {
	return &PortfolioService{holdings: holdings, quotes: quotes, logger: logger}
}

// PortfolioView is the enriched holdings list plus aggregate totals.
type PortfolioView struct {
	Holdings []models.EnrichedHolding `json:"holdings"`
	Summary  models.PortfolioSummary  `json:"summary"`
}

// GetEnrichedHoldings loads the user's holdings and values each against a
// live quote. Quotes for distinct holdings are fetched concurrently; a
// provider failure degrades that single row to its cost-basis price and
// never fails the request.
func (s *PortfolioService) GetEnrichedHoldings(ctx context.Context, userID string) (*PortfolioView, error) {
	holdings, err := s.holdings.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	enriched := make([]models.EnrichedHolding, len(holdings))
	var wg sync.WaitGroup
	for i, h := range holdings {
		wg.Add(1)
		go func(i int, h *models.Holding) {
			defer wg.Done()
			q := s.quotes.QuoteOrDefault(ctx, h.Ticker, quote.DefaultPrice(h.CostBasis))
			enriched[i] = enrichHolding(h, q)
		}(i, h)
	}
	wg.Wait()

	summary := models.PortfolioSummary{HoldingCount: len(enriched)}
	for _, e := range enriched {
		summary.TotalValue += e.TotalValue
		summary.TotalCostBasis += e.CostBasisTotal
		summary.GainLoss += e.GainLoss
	}
	if summary.TotalCostBasis > 0 {
		summary.GainLossPercent = summary.GainLoss / summary.TotalCostBasis * 100
	}

	return &PortfolioView{Holdings: enriched, Summary: summary}, nil
}

// enrichHolding computes per-holding valuation from a quote.
func enrichHolding(h *models.Holding, q models.Quote) models.EnrichedHolding {
	qty := float64(h.Quantity)
	totalValue := q.Price * qty
	costBasisTotal := h.CostBasis * qty

	e := models.EnrichedHolding{
		Holding:        *h,
		Price:          q.Price,
		ChangePercent:  q.ChangePercent,
		PriceSource:    q.Source,
		Degraded:       q.Degraded,
		TotalValue:     totalValue,
		CostBasisTotal: costBasisTotal,
		GainLoss:       totalValue - costBasisTotal,
	}
	if costBasisTotal > 0 {
		e.GainLossPercent = e.GainLoss / costBasisTotal * 100
	}
	return e
}

// AddHolding buys quantity units of ticker at the current market price.
// A first buy creates the holding with the quoted price as cost basis;
// repeat buys fold into the existing row with a quantity-weighted average
// cost basis. When every provider fails the placeholder price is used so
// the operation still succeeds.
func (s *PortfolioService) AddHolding(ctx context.Context, userID, ticker string, quantity int64) (*models.Holding, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, apperrors.NewValidationError("ticker is required")
	}
	if quantity <= 0 {
		return nil, apperrors.NewValidationError("quantity must be positive")
	}

	q := s.quotes.QuoteOrDefault(ctx, ticker, quote.PlaceholderPrice)
	if q.Degraded {
		s.logger.WithField("ticker", ticker).Warn("adding holding with placeholder price")
	}

	existing, err := s.holdings.FindByUserAndTicker(ctx, userID, ticker)
	if err != nil {
		if appErr, ok := apperrors.AsError(err); !ok || appErr.Category != apperrors.CategoryNotFound {
			return nil, err
		}

		holding := &models.Holding{
			UserID:    userID,
			Ticker:    ticker,
			Quantity:  quantity,
			CostBasis: q.Price,
		}
		if err := s.holdings.Insert(ctx, holding); err != nil {
			return nil, err
		}
		return holding, nil
	}

	existing.Quantity, existing.CostBasis = foldLot(existing.Quantity, existing.CostBasis, quantity, q.Price)
	if err := s.holdings.Update(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

// foldLot merges a new lot into an existing position, returning the new
// quantity and quantity-weighted average cost basis. A stored position
// with non-positive quantity or cost basis no longer reflects a true
// running average (it can only arise from out-of-band mutation), so the
// average is restarted from the incoming lot instead of propagating the
// corrupt value.
func foldLot(oldQty int64, oldBasis float64, addQty int64, price float64) (int64, float64) {
	if oldQty <= 0 || oldBasis <= 0 {
		return addQty, price
	}

	newQty := oldQty + addQty
	newBasis := (oldBasis*float64(oldQty) + price*float64(addQty)) / float64(newQty)
	return newQty, newBasis
}

// RemoveHolding deletes the (user, ticker) holding. Removing a ticker the
// user does not hold is a no-op.
func (s *PortfolioService) RemoveHolding(ctx context.Context, userID, ticker string) error {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return apperrors.NewValidationError("ticker is required")
	}
	return s.holdings.DeleteByUserAndTicker(ctx, userID, ticker)
}
