package models

// Quote is a live price snapshot for a ticker. Quotes are fetched per
// request and never persisted.
type Quote struct {
	Price         float64 `json:"price"`
	ChangePercent float64 `json:"changePercent"`
	// Source names the provider that produced the quote ("finnhub",
	// "alphavantage", or "fallback" when every provider failed).
	Source string `json:"source"`
	// Degraded marks a quote that fell through to a default price.
	Degraded bool `json:"degraded"`
}

// PricePoint is one element of a daily closing-price series.
// Date uses the YYYY-MM-DD form; series are ordered ascending by date.
type PricePoint struct {
	Date  string  `json:"date"`
	Close float64 `json:"close"`
}
