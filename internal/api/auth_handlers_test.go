package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/automarket/internal/account"
	"github.com/example/automarket/internal/auth"
	"github.com/example/automarket/internal/infrastructure/store/mocks"
)

type nopMailer struct{}

func (nopMailer) SendVerificationCode(to, username, code string) error { return nil }
func (nopMailer) SendPasswordReset(to, username, code string) error    { return nil }

// failingSigner fails every token signature.
type failingSigner struct{}

func (failingSigner) GenerateAccessToken(userID, username, email, role string) (string, time.Time, error) {
	return "", time.Time{}, assert.AnError
}

func (failingSigner) GenerateRefreshToken(userID string) (string, time.Time, error) {
	return "", time.Time{}, assert.AnError
}

func (failingSigner) ValidateRefreshToken(tokenString string) (string, error) {
	return "", auth.ErrInvalidToken
}

func newAccountService(t *testing.T) *account.Service {
	t.Helper()
	svc := account.NewService(mocks.NewMemoryStore(), nopMailer{})
	_, err := svc.Register(context.Background(), "alice", "alice@example.com", "password123")
	require.NoError(t, err)
	return svc
}

func loginRequest() *http.Request {
	body := `{"email":"alice@example.com","password":"password123"}`
	return httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
}

// ============================================
// Auth Cookie Tests
// ============================================

func TestAuthHandlers_Login_SetsAuthCookies(t *testing.T) {
	jwtService := auth.NewJWTService("test-secret-key-of-sufficient-length", 15*time.Minute, 7*24*time.Hour)
	h := NewAuthHandlers(newAccountService(t), jwtService)

	rec := httptest.NewRecorder()
	h.Login(rec, loginRequest())

	assert.Equal(t, http.StatusOK, rec.Code)

	cookies := map[string]*http.Cookie{}
	for _, c := range rec.Result().Cookies() {
		cookies[c.Name] = c
	}
	require.Contains(t, cookies, "access_token")
	require.Contains(t, cookies, "refresh_token")
	assert.NotEmpty(t, cookies["access_token"].Value)
	assert.NotEmpty(t, cookies["refresh_token"].Value)
	assert.Equal(t, "/auth/refresh", cookies["refresh_token"].Path)
}

func TestAuthHandlers_Login_SigningFailureIsServerError(t *testing.T) {
	h := NewAuthHandlers(newAccountService(t), failingSigner{})

	rec := httptest.NewRecorder()
	h.Login(rec, loginRequest())

	// A signing failure must surface, never set empty cookies
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Empty(t, rec.Result().Cookies())
}
