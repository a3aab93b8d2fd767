package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dan9191/loan-xtrack/internal/config"
)

func sign(t *testing.T, secret string, method jwt.SigningMethod, claims jwt.RegisteredClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func protected() http.Handler {
	return AuthMiddleware(&config.Config{JWTSecret: "secret"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name, _ := Operator(r.Context())
		_, _ = w.Write([]byte(name))
	}))
}

func call(token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/actions/current", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	protected().ServeHTTP(rec, req)
	return rec
}

func TestAuthMiddleware(t *testing.T) {
	valid := jwt.RegisteredClaims{
		Subject:   "operator",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}

	rec := call(sign(t, "secret", jwt.SigningMethodHS256, valid))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "operator", rec.Body.String())

	tests := map[string]string{
		"missing":      "",
		"garbage":      "not-a-token",
		"wrong secret": sign(t, "other", jwt.SigningMethodHS256, valid),
		"wrong method": sign(t, "secret", jwt.SigningMethodHS512, valid),
		"expired": sign(t, "secret", jwt.SigningMethodHS256, jwt.RegisteredClaims{
			Subject:   "operator",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		}),
		"no expiry": sign(t, "secret", jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "operator"}),
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, http.StatusUnauthorized, call(token).Code)
		})
	}
}
