package auth

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/portfolio-tracker/internal/apperrors"
	"github.com/portfolio-tracker/internal/logging"
	"github.com/portfolio-tracker/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockUserStore is an in-memory UserStore for auth tests.
type mockUserStore struct {
	byEmail map[string]*models.User
	nextID  int
}

func newMockUserStore() *mockUserStore {
	return &mockUserStore{byEmail: make(map[string]*models.User)}
}

func (m *mockUserStore) Create(ctx context.Context, user *models.User) error {
	if _, ok := m.byEmail[user.Email]; ok {
		return apperrors.NewConflictError("Email already exists")
	}
	m.nextID++
	if user.ID == "" {
		user.ID = fmt.Sprintf("user-%d", m.nextID)
	}
	m.byEmail[user.Email] = user
	return nil
}

func (m *mockUserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if u, ok := m.byEmail[email]; ok {
		return u, nil
	}
	return nil, apperrors.NewNotFoundError("user", email)
}

func (m *mockUserStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, ok := m.byEmail[email]
	return ok, nil
}

func newTestService(t *testing.T, now func() time.Time) *Service {
	t.Helper()
	logger := logging.New(logging.LevelFatal, logging.FormatText)
	logger.SetOutput(io.Discard)
	return NewService(newMockUserStore(), Config{
		Secret:     "test-secret",
		TokenTTL:   time.Hour,
		BcryptCost: 4, // minimum cost keeps the tests fast
		Now:        now,
	}, logger)
}

func TestSignupAndLoginRoundTrip(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	creds, err := svc.Signup(ctx, "alice", "alice@example.com", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "alice", creds.Username)
	assert.NotEmpty(t, creds.Token)
	assert.NotEmpty(t, creds.UserID)

	loginCreds, err := svc.Login(ctx, "alice@example.com", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, creds.UserID, loginCreds.UserID)

	userID, err := svc.VerifyToken(loginCreds.Token)
	require.NoError(t, err)
	assert.Equal(t, creds.UserID, userID)
}

func TestSignupValidation(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	for _, tc := range []struct {
		name                      string
		username, email, password string
	}{
		{"missing username", "", "a@example.com", "pw"},
		{"missing email", "alice", "", "pw"},
		{"missing password", "alice", "a@example.com", ""},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Signup(ctx, tc.username, tc.email, tc.password)
			require.Error(t, err)
			appErr, ok := apperrors.AsError(err)
			require.True(t, ok)
			assert.Equal(t, apperrors.CategoryValidation, appErr.Category)
		})
	}
}

func TestSignupDuplicateEmail(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.Signup(ctx, "alice", "alice@example.com", "pw")
	require.NoError(t, err)

	_, err = svc.Signup(ctx, "alice2", "alice@example.com", "pw2")
	require.Error(t, err)
	appErr, ok := apperrors.AsError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CategoryConflict, appErr.Category)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.Signup(ctx, "alice", "alice@example.com", "pw")
	require.NoError(t, err)

	_, errUnknown := svc.Login(ctx, "nobody@example.com", "pw")
	_, errWrongPw := svc.Login(ctx, "alice@example.com", "wrong")

	require.Error(t, errUnknown)
	require.Error(t, errWrongPw)
	assert.Equal(t, errUnknown.Error(), errWrongPw.Error(),
		"unknown email and wrong password must produce identical errors")

	// Login rejections are 400; 401 is reserved for token failures, which
	// the client treats as an expired session.
	for _, err := range []error{errUnknown, errWrongPw} {
		appErr, ok := apperrors.AsError(err)
		require.True(t, ok)
		assert.Equal(t, http.StatusBadRequest, appErr.StatusCode)
		assert.Equal(t, "Invalid credentials", appErr.Message)
	}
}

func TestVerifyTokenRejectsWrongSecret(t *testing.T) {
	svc := newTestService(t, nil)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":  "user-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("different-secret"))
	require.NoError(t, err)

	_, err = svc.VerifyToken(token)
	assert.Error(t, err)
}

func TestVerifyTokenRejectsExpired(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	svc := newTestService(t, clock)
	ctx := context.Background()

	creds, err := svc.Signup(ctx, "alice", "alice@example.com", "pw")
	require.NoError(t, err)

	// Still valid just before expiry.
	now = now.Add(59 * time.Minute)
	_, err = svc.VerifyToken(creds.Token)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = svc.VerifyToken(creds.Token)
	assert.Error(t, err, "token past its expiry must be rejected")
}

func TestVerifyTokenRejectsMalformed(t *testing.T) {
	svc := newTestService(t, nil)

	for _, token := range []string{"", "garbage", "a.b.c"} {
		_, err := svc.VerifyToken(token)
		assert.Error(t, err, "token %q should be rejected", token)
	}
}

func TestVerifyTokenRejectsUnsignedAlg(t *testing.T) {
	svc := newTestService(t, nil)

	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"id":  "user-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.VerifyToken(token)
	assert.Error(t, err)
}
