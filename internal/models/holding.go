package models

import "time"

// Holding represents one position in a user's portfolio.
// A user owns at most one holding per distinct ticker; repeat buys are
// folded into Quantity and a weighted-average CostBasis by the service layer.
type Holding struct {
	ID        string    `json:"id" bson:"_id"`
	UserID    string    `json:"userId" bson:"user_id"`
	Ticker    string    `json:"ticker" bson:"ticker"`
	Quantity  int64     `json:"quantity" bson:"quantity"`
	CostBasis float64   `json:"purchasePrice" bson:"cost_basis"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updated_at"`
}

// EnrichedHolding is a holding joined with a live quote and derived
// valuation figures. It is computed per request and never persisted.
type EnrichedHolding struct {
	Holding

	Price           float64 `json:"price"`
	ChangePercent   float64 `json:"changePercent"`
	PriceSource     string  `json:"priceSource"`
	Degraded        bool    `json:"degraded"`
	TotalValue      float64 `json:"totalValue"`
	CostBasisTotal  float64 `json:"costBasis"`
	GainLoss        float64 `json:"gainLoss"`
	GainLossPercent float64 `json:"gainLossPercent"`
}

// PortfolioSummary aggregates valuation across all holdings of a user.
type PortfolioSummary struct {
	TotalValue      float64 `json:"totalValue"`
	TotalCostBasis  float64 `json:"totalCostBasis"`
	GainLoss        float64 `json:"gainLoss"`
	GainLossPercent float64 `json:"gainLossPercent"`
	HoldingCount    int     `json:"holdingCount"`
}
