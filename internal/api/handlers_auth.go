package api

import (
	"encoding/json"
	"net/http"
)

type signupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// handleSignup registers a new user and returns a signed token.
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondAuthError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	creds, err := s.authService.Signup(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		mapAppError(w, err, true)
		return
	}

	respondJSON(w, http.StatusCreated, creds)
}

// handleLogin authenticates a user and returns a signed token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondAuthError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	creds, err := s.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		mapAppError(w, err, true)
		return
	}

	respondJSON(w, http.StatusOK, creds)
}
