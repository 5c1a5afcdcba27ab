// Package api provides the HTTP API server implementation.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/portfolio-tracker/internal/auth"
	"github.com/portfolio-tracker/internal/logging"
	"github.com/portfolio-tracker/internal/models"
	"github.com/portfolio-tracker/internal/service"
	"github.com/portfolio-tracker/web"
)

// Service interfaces for dependency injection and testing

// AuthServiceInterface defines the interface for auth operations
type AuthServiceInterface interface {
	Signup(ctx context.Context, username, email, password string) (*auth.Credentials, error)
	Login(ctx context.Context, email, password string) (*auth.Credentials, error)
	VerifyToken(token string) (string, error)
}

// PortfolioServiceInterface defines the interface for portfolio operations
type PortfolioServiceInterface interface {
	GetEnrichedHoldings(ctx context.Context, userID string) (*service.PortfolioView, error)
	AddHolding(ctx context.Context, userID, ticker string, quantity int64) (*models.Holding, error)
	RemoveHolding(ctx context.Context, userID, ticker string) error
}

// ChartServiceInterface defines the interface for price-history operations
type ChartServiceInterface interface {
	GetDailySeries(ctx context.Context, ticker string) ([]models.PricePoint, error)
}

// Server represents the HTTP API server.
type Server struct {
	router           *mux.Router
	httpServer       *http.Server
	authService      AuthServiceInterface
	portfolioService PortfolioServiceInterface
	chartService     ChartServiceInterface
	rateLimiter      *RateLimiter
	logger           *logging.Logger
	config           *ServerConfig
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host              string
	Port              string
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	AllowedOrigins    []string
	RequestsPerSecond int
	Burst             int
}

// NewServer creates a new API server instance.
func NewServer(
	config *ServerConfig,
	authService AuthServiceInterface,
	portfolioService PortfolioServiceInterface,
	chartService ChartServiceInterface,
	logger *logging.Logger,
) *Server {
	s := &Server{
		router:           mux.NewRouter(),
		authService:      authService,
		portfolioService: portfolioService,
		chartService:     chartService,
		logger:           logger,
		config:           config,
	}

	s.setupRouter()

	return s
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	s.rateLimiter = NewRateLimiter(s.config.RequestsPerSecond, s.config.Burst)

	// Middleware order matters: recovery outermost, then logging, CORS,
	// rate limiting.
	s.router.Use(RecoveryMiddleware(s.logger))
	s.router.Use(LoggingMiddleware(s.logger))
	s.router.Use(CORSMiddleware(s.config.AllowedOrigins))
	s.router.Use(RateLimitMiddleware(s.rateLimiter))

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Host, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health check endpoint
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()

	// Auth endpoints (public)
	api.HandleFunc("/auth/signup", s.handleSignup).Methods("POST")
	api.HandleFunc("/auth/login", s.handleLogin).Methods("POST")

	// Chart data endpoint (public)
	api.HandleFunc("/stock-prices", s.handleStockPrices).Methods("GET")

	// Portfolio endpoints (bearer token required)
	portfolio := api.PathPrefix("/portfolio").Subrouter()
	portfolio.Use(s.authMiddleware)
	portfolio.HandleFunc("", s.handleGetPortfolio).Methods("GET")
	portfolio.HandleFunc("", s.handleAddHolding).Methods("POST")
	portfolio.HandleFunc("/{ticker}", s.handleRemoveHolding).Methods("DELETE")

	// Embedded single-page client
	s.router.PathPrefix("/").Handler(web.Handler())
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "portfolio-tracker",
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("starting API server")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server and stops the rate limiter's
// sweep goroutine.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")
	s.rateLimiter.Stop()
	return s.httpServer.Shutdown(ctx)
}
