package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portfolio-tracker/internal/apperrors"
	"github.com/portfolio-tracker/internal/auth"
	"github.com/portfolio-tracker/internal/logging"
	"github.com/portfolio-tracker/internal/models"
	"github.com/portfolio-tracker/internal/service"
)

type mockAuthService struct {
	signupCreds *auth.Credentials
	signupErr   error
	loginCreds  *auth.Credentials
	loginErr    error
	validTokens map[string]string
}

func (m *mockAuthService) Signup(ctx context.Context, username, email, password string) (*auth.Credentials, error) {
	if m.signupErr != nil {
		return nil, m.signupErr
	}
	return m.signupCreds, nil
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (*auth.Credentials, error) {
	if m.loginErr != nil {
		return nil, m.loginErr
	}
	return m.loginCreds, nil
}

func (m *mockAuthService) VerifyToken(token string) (string, error) {
	if userID, ok := m.validTokens[token]; ok {
		return userID, nil
	}
	return "", apperrors.NewAuthError("Token is not valid")
}

type mockPortfolioService struct {
	view      *service.PortfolioView
	viewErr   error
	added     *models.Holding
	addErr    error
	removeErr error

	lastUserID string
	lastTicker string
	lastQty    int64
	removed    []string
}

func (m *mockPortfolioService) GetEnrichedHoldings(ctx context.Context, userID string) (*service.PortfolioView, error) {
	m.lastUserID = userID
	if m.viewErr != nil {
		return nil, m.viewErr
	}
	return m.view, nil
}

func (m *mockPortfolioService) AddHolding(ctx context.Context, userID, ticker string, quantity int64) (*models.Holding, error) {
	m.lastUserID = userID
	m.lastTicker = ticker
	m.lastQty = quantity
	if m.addErr != nil {
		return nil, m.addErr
	}
	return m.added, nil
}

func (m *mockPortfolioService) RemoveHolding(ctx context.Context, userID, ticker string) error {
	m.lastUserID = userID
	m.removed = append(m.removed, ticker)
	return m.removeErr
}

type mockChartService struct {
	series []models.PricePoint
	err    error
	last   string
}

func (m *mockChartService) GetDailySeries(ctx context.Context, ticker string) ([]models.PricePoint, error) {
	m.last = ticker
	if m.err != nil {
		return nil, m.err
	}
	return m.series, nil
}

func newTestServer(authSvc AuthServiceInterface, portfolioSvc PortfolioServiceInterface, chartSvc ChartServiceInterface) *Server {
	logger := logging.New(logging.LevelError, logging.FormatText)
	logger.SetOutput(io.Discard)

	cfg := &ServerConfig{
		Host:              "127.0.0.1",
		Port:              "0",
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      5 * time.Second,
		IdleTimeout:       30 * time.Second,
		AllowedOrigins:    []string{"http://localhost:3000"},
		RequestsPerSecond: 1000,
		Burst:             1000,
	}

	return NewServer(cfg, authSvc, portfolioSvc, chartSvc, logger)
}

func doRequest(s *Server, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(&mockAuthService{}, &mockPortfolioService{}, &mockChartService{})

	rec := doRequest(s, http.MethodGet, "/health", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "healthy", body["status"])
}

func TestSignupSuccess(t *testing.T) {
	authSvc := &mockAuthService{
		signupCreds: &auth.Credentials{Token: "tok-1", Username: "alice", UserID: "user-1"},
	}
	s := newTestServer(authSvc, &mockPortfolioService{}, &mockChartService{})

	rec := doRequest(s, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "secret123",
	})

	assert.Equal(t, http.StatusCreated, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "tok-1", body["token"])
	assert.Equal(t, "alice", body["username"])
	assert.Equal(t, "user-1", body["userId"])
}

func TestSignupDuplicateEmail(t *testing.T) {
	authSvc := &mockAuthService{
		signupErr: apperrors.NewConflictError("User already exists"),
	}
	s := newTestServer(authSvc, &mockPortfolioService{}, &mockChartService{})

	rec := doRequest(s, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "secret123",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "User already exists", body["msg"])
}

func TestSignupMalformedBody(t *testing.T) {
	s := newTestServer(&mockAuthService{}, &mockPortfolioService{}, &mockChartService{})

	req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Contains(t, body, "msg")
}

func TestLoginInvalidCredentials(t *testing.T) {
	// The exact error the auth service returns for a failed login.
	authSvc := &mockAuthService{
		loginErr: apperrors.NewCredentialsError("Invalid credentials"),
	}
	s := newTestServer(authSvc, &mockPortfolioService{}, &mockChartService{})

	rec := doRequest(s, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "wrong",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Invalid credentials", body["msg"])
}

// memUserStore backs the real auth service in end-to-end handler tests.
type memUserStore struct {
	byEmail map[string]*models.User
}

func (m *memUserStore) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = fmt.Sprintf("user-%d", len(m.byEmail)+1)
	}
	m.byEmail[user.Email] = user
	return nil
}

func (m *memUserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if u, ok := m.byEmail[email]; ok {
		return u, nil
	}
	return nil, apperrors.NewNotFoundError("user", email)
}

func (m *memUserStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, ok := m.byEmail[email]
	return ok, nil
}

// Failed logins must answer 400, not 401: the client treats any 401 as an
// expired session and logs the user out. Exercised against the real auth
// service so the wire contract can't drift behind a stubbed error.
func TestLoginWrongPasswordAnswers400(t *testing.T) {
	logger := logging.New(logging.LevelError, logging.FormatText)
	logger.SetOutput(io.Discard)
	authSvc := auth.NewService(&memUserStore{byEmail: make(map[string]*models.User)}, auth.Config{
		Secret:     "test-secret",
		TokenTTL:   time.Hour,
		BcryptCost: 4,
	}, logger)
	s := newTestServer(authSvc, &mockPortfolioService{}, &mockChartService{})

	rec := doRequest(s, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "s3cret",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(s, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Invalid credentials", body["msg"])

	rec = doRequest(s, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "nobody@example.com",
		"password": "s3cret",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "unknown email must answer like a wrong password")

	// Token failures stay 401.
	rec = doRequest(s, http.MethodGet, "/api/portfolio", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginSuccess(t *testing.T) {
	authSvc := &mockAuthService{
		loginCreds: &auth.Credentials{Token: "tok-2", Username: "bob", UserID: "user-2"},
	}
	s := newTestServer(authSvc, &mockPortfolioService{}, &mockChartService{})

	rec := doRequest(s, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "bob@example.com",
		"password": "secret123",
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "tok-2", body["token"])
}

func TestPortfolioRequiresToken(t *testing.T) {
	s := newTestServer(&mockAuthService{}, &mockPortfolioService{}, &mockChartService{})

	rec := doRequest(s, http.MethodGet, "/api/portfolio", "", nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "No token, authorization denied", body["msg"])
}

func TestPortfolioRejectsInvalidToken(t *testing.T) {
	authSvc := &mockAuthService{validTokens: map[string]string{}}
	s := newTestServer(authSvc, &mockPortfolioService{}, &mockChartService{})

	rec := doRequest(s, http.MethodGet, "/api/portfolio", "garbage", nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Token is not valid", body["msg"])
}

func TestGetPortfolio(t *testing.T) {
	authSvc := &mockAuthService{validTokens: map[string]string{"tok": "user-1"}}
	portfolioSvc := &mockPortfolioService{
		view: &service.PortfolioView{
			Holdings: []models.EnrichedHolding{
				{
					Holding:    models.Holding{Ticker: "AAPL", Quantity: 10, CostBasis: 100},
					Price:      150,
					TotalValue: 1500,
				},
			},
			Summary: models.PortfolioSummary{
				TotalValue:     1500,
				TotalCostBasis: 1000,
				GainLoss:       500,
				HoldingCount:   1,
			},
		},
	}
	s := newTestServer(authSvc, portfolioSvc, &mockChartService{})

	rec := doRequest(s, http.MethodGet, "/api/portfolio", "tok", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", portfolioSvc.lastUserID)

	var view service.PortfolioView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.Len(t, view.Holdings, 1)
	assert.Equal(t, "AAPL", view.Holdings[0].Ticker)
	assert.Equal(t, 1500.0, view.Summary.TotalValue)
}

func TestAddHolding(t *testing.T) {
	authSvc := &mockAuthService{validTokens: map[string]string{"tok": "user-1"}}
	portfolioSvc := &mockPortfolioService{
		added: &models.Holding{ID: "h-1", UserID: "user-1", Ticker: "MSFT", Quantity: 5, CostBasis: 300},
	}
	s := newTestServer(authSvc, portfolioSvc, &mockChartService{})

	rec := doRequest(s, http.MethodPost, "/api/portfolio", "tok", map[string]interface{}{
		"ticker":   "msft",
		"quantity": 5,
	})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "msft", portfolioSvc.lastTicker)
	assert.Equal(t, int64(5), portfolioSvc.lastQty)

	var h models.Holding
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &h))
	assert.Equal(t, "MSFT", h.Ticker)
	assert.Equal(t, 300.0, h.CostBasis)
}

func TestAddHoldingValidationError(t *testing.T) {
	authSvc := &mockAuthService{validTokens: map[string]string{"tok": "user-1"}}
	portfolioSvc := &mockPortfolioService{
		addErr: apperrors.NewValidationError("Quantity must be positive"),
	}
	s := newTestServer(authSvc, portfolioSvc, &mockChartService{})

	rec := doRequest(s, http.MethodPost, "/api/portfolio", "tok", map[string]interface{}{
		"ticker":   "AAPL",
		"quantity": -1,
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Quantity must be positive", body["error"])
}

func TestRemoveHolding(t *testing.T) {
	authSvc := &mockAuthService{validTokens: map[string]string{"tok": "user-1"}}
	portfolioSvc := &mockPortfolioService{}
	s := newTestServer(authSvc, portfolioSvc, &mockChartService{})

	rec := doRequest(s, http.MethodDelete, "/api/portfolio/AAPL", "tok", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"AAPL"}, portfolioSvc.removed)
	body := decodeBody(t, rec)
	assert.Equal(t, "Stock deleted", body["message"])
}

func TestStockPricesRequiresSymbol(t *testing.T) {
	s := newTestServer(&mockAuthService{}, &mockPortfolioService{}, &mockChartService{})

	rec := doRequest(s, http.MethodGet, "/api/stock-prices", "", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Symbol is required", body["error"])
}

func TestStockPrices(t *testing.T) {
	chartSvc := &mockChartService{
		series: []models.PricePoint{
			{Date: "2024-01-02", Close: 101.5},
			{Date: "2024-01-03", Close: 102.25},
		},
	}
	s := newTestServer(&mockAuthService{}, &mockPortfolioService{}, chartSvc)

	rec := doRequest(s, http.MethodGet, "/api/stock-prices?symbol=AAPL", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "AAPL", chartSvc.last)

	var series []models.PricePoint
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &series))
	require.Len(t, series, 2)
	assert.Equal(t, 101.5, series[0].Close)
}

func TestUnexpectedErrorMapsTo500(t *testing.T) {
	authSvc := &mockAuthService{validTokens: map[string]string{"tok": "user-1"}}
	portfolioSvc := &mockPortfolioService{viewErr: errors.New("boom")}
	s := newTestServer(authSvc, portfolioSvc, &mockChartService{})

	rec := doRequest(s, http.MethodGet, "/api/portfolio", "tok", nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Internal server error", body["error"])
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(&mockAuthService{}, &mockPortfolioService{}, &mockChartService{})

	req := httptest.NewRequest(http.MethodOptions, "/api/portfolio", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSDisallowedOrigin(t *testing.T) {
	s := newTestServer(&mockAuthService{}, &mockPortfolioService{}, &mockChartService{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.example.com")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestShutdownStopsRateLimiter(t *testing.T) {
	s := newTestServer(&mockAuthService{}, &mockPortfolioService{}, &mockChartService{})

	require.NoError(t, s.Shutdown(context.Background()))

	select {
	case <-s.rateLimiter.stop:
	default:
		t.Fatal("rate limiter sweep not stopped on shutdown")
	}
}

func TestRateLimiterBlocksAfterBurst(t *testing.T) {
	rl := NewRateLimiter(1, 3)
	defer rl.Stop()

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("10.0.0.1"), fmt.Sprintf("request %d within burst", i))
	}
	assert.False(t, rl.Allow("10.0.0.1"))

	// Separate clients get separate buckets.
	assert.True(t, rl.Allow("10.0.0.2"))
}
