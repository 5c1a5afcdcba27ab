package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
)

type addHoldingRequest struct {
	Ticker   string `json:"ticker"`
	Quantity int64  `json:"quantity"`
}

// handleGetPortfolio returns the caller's holdings enriched with live
// quotes plus aggregate totals.
func (s *Server) handleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		respondAuthError(w, http.StatusUnauthorized, "Token is not valid")
		return
	}

	view, err := s.portfolioService.GetEnrichedHoldings(r.Context(), userID)
	if err != nil {
		mapAppError(w, err, false)
		return
	}

	respondJSON(w, http.StatusOK, view)
}

// handleAddHolding creates a holding or folds a new lot into an existing one.
func (s *Server) handleAddHolding(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		respondAuthError(w, http.StatusUnauthorized, "Token is not valid")
		return
	}

	var req addHoldingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	holding, err := s.portfolioService.AddHolding(r.Context(), userID, req.Ticker, req.Quantity)
	if err != nil {
		mapAppError(w, err, false)
		return
	}

	respondJSON(w, http.StatusCreated, holding)
}

// handleRemoveHolding removes a holding by ticker. Removing a ticker the
// user never held still succeeds.
func (s *Server) handleRemoveHolding(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		respondAuthError(w, http.StatusUnauthorized, "Token is not valid")
		return
	}

	ticker := mux.Vars(r)["ticker"]
	if err := s.portfolioService.RemoveHolding(r.Context(), userID, ticker); err != nil {
		mapAppError(w, err, false)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Stock deleted"})
}
