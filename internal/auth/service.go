// Package auth implements credential verification and stateless bearer
// tokens. Tokens are signed JWTs carrying only the user id and an expiry;
// there is no server-side session state, so a token cannot be revoked
// before it expires.
package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/portfolio-tracker/internal/apperrors"
	"github.com/portfolio-tracker/internal/logging"
	"github.com/portfolio-tracker/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// UserStore is the persistence capability the auth service needs.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// Service issues and validates credentials.
type Service struct {
	users      UserStore
	secret     []byte
	tokenTTL   time.Duration
	bcryptCost int
	logger     *logging.Logger
	now        func() time.Time
}

// Config holds auth service configuration.
type Config struct {
	Secret     string
	TokenTTL   time.Duration
	BcryptCost int
	// Now is the clock used for token issuing and validation; tests
	// inject a fixed clock, production passes nil for time.Now.
	Now func() time.Time
}

// NewService creates an auth service.
func NewService(users UserStore, cfg Config, logger *logging.Logger) *Service {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	cost := cfg.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Service{
		users:      users,
		secret:     []byte(cfg.Secret),
		tokenTTL:   cfg.TokenTTL,
		bcryptCost: cost,
		logger:     logger,
		now:        now,
	}
}

// Credentials is the result of a successful signup or login.
type Credentials struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	UserID   string `json:"userId"`
}

// Signup registers a new account and returns a signed token for it.
func (s *Service) Signup(ctx context.Context, username, email, password string) (*Credentials, error) {
	if username == "" || email == "" || password == "" {
		return nil, apperrors.NewValidationError("username, email and password are required")
	}

	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperrors.NewConflictError("Email already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewStoreError("hash password", err)
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"username": username,
		"userId":   user.ID,
	}).Info("user created")

	return s.issueCredentials(user)
}

// Login verifies email and password. Unknown email and wrong password are
// reported identically so the response leaks nothing about which failed.
func (s *Service) Login(ctx context.Context, email, password string) (*Credentials, error) {
	if email == "" || password == "" {
		return nil, apperrors.NewCredentialsError("Invalid credentials")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if appErr, ok := apperrors.AsError(err); ok && appErr.Category == apperrors.CategoryNotFound {
			return nil, apperrors.NewCredentialsError("Invalid credentials")
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperrors.NewCredentialsError("Invalid credentials")
	}

	return s.issueCredentials(user)
}

// VerifyToken validates a bearer token and returns the embedded user id.
// It is the sole gate in front of every holdings and portfolio operation.
func (s *Service) VerifyToken(token string) (string, error) {
	if token == "" {
		return "", apperrors.NewAuthError("No token provided")
	}

	parsed, err := jwt.Parse(token,
		func(t *jwt.Token) (interface{}, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return "", apperrors.NewAuthError("Token is not valid")
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", apperrors.NewAuthError("Token is not valid")
	}
	userID, ok := claims["id"].(string)
	if !ok || userID == "" {
		return "", apperrors.NewAuthError("Token is not valid")
	}

	return userID, nil
}

func (s *Service) issueCredentials(user *models.User) (*Credentials, error) {
	claims := jwt.MapClaims{
		"id":  user.ID,
		"exp": s.now().Add(s.tokenTTL).Unix(),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, apperrors.NewStoreError("sign token", err)
	}

	return &Credentials{
		Token:    token,
		Username: user.Username,
		UserID:   user.ID,
	}, nil
}
