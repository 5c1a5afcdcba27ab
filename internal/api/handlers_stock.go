package api

import (
	"net/http"
	"strings"
)

// handleStockPrices returns up to 60 days of daily closing prices for the
// requested symbol.
func (s *Server) handleStockPrices(w http.ResponseWriter, r *http.Request) {
	symbol := strings.TrimSpace(r.URL.Query().Get("symbol"))
	if symbol == "" {
		respondError(w, http.StatusBadRequest, "Symbol is required")
		return
	}

	series, err := s.chartService.GetDailySeries(r.Context(), symbol)
	if err != nil {
		mapAppError(w, err, false)
		return
	}

	respondJSON(w, http.StatusOK, series)
}
