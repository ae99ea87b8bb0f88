package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"litrevu/internal/httputil"
	"litrevu/internal/model"
)

const testSecret = "middleware-secret"

func signToken(t *testing.T, secret string, method jwt.SigningMethod, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(method, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func validToken(t *testing.T, userID int64) string {
	return signToken(t, testSecret, jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(time.Minute).Unix(),
	})
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) httputil.ErrorDetail {
	t.Helper()
	var body httputil.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body.Error
}

// =============================================================================
// ParseAccessToken
// =============================================================================

func TestParseAccessToken(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		id, err := ParseAccessToken(validToken(t, 42), testSecret)
		require.NoError(t, err)
		assert.Equal(t, int64(42), id)
	})

	t.Run("expired", func(t *testing.T) {
		token := signToken(t, testSecret, jwt.SigningMethodHS256, jwt.MapClaims{
			"user_id": 1,
			"exp":     time.Now().Add(-time.Minute).Unix(),
		})
		_, err := ParseAccessToken(token, testSecret)
		assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("missing expiry", func(t *testing.T) {
		token := signToken(t, testSecret, jwt.SigningMethodHS256, jwt.MapClaims{"user_id": 1})
		_, err := ParseAccessToken(token, testSecret)
		assert.Error(t, err)
	})

	t.Run("wrong secret", func(t *testing.T) {
		_, err := ParseAccessToken(validToken(t, 1), "other")
		assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
	})

	t.Run("wrong algorithm", func(t *testing.T) {
		token := signToken(t, testSecret, jwt.SigningMethodHS512, jwt.MapClaims{
			"user_id": 1,
			"exp":     time.Now().Add(time.Minute).Unix(),
		})
		_, err := ParseAccessToken(token, testSecret)
		assert.Error(t, err)
	})

	t.Run("no user id", func(t *testing.T) {
		token := signToken(t, testSecret, jwt.SigningMethodHS256, jwt.MapClaims{
			"exp": time.Now().Add(time.Minute).Unix(),
		})
		_, err := ParseAccessToken(token, testSecret)
		assert.ErrorIs(t, err, errMissingUserID)
	})
}

// =============================================================================
// AuthMiddleware
// =============================================================================

func protected() http.Handler {
	return AuthMiddleware(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := GetUserIDFromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]int64{"user_id": id})
	}))
}

func TestAuthMiddleware(t *testing.T) {
	t.Run("bearer header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+validToken(t, 7))
		rec := httptest.NewRecorder()

		protected().ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"user_id":7}`, rec.Body.String())
	})

	t.Run("cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: validToken(t, 9)})
		rec := httptest.NewRecorder()

		protected().ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"user_id":9}`, rec.Body.String())
	})

	t.Run("no token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		protected().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil))

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Authentification requise.", decodeError(t, rec).Message)
	})

	t.Run("expired token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, jwt.SigningMethodHS256, jwt.MapClaims{
			"user_id": 1,
			"exp":     time.Now().Add(-time.Hour).Unix(),
		}))
		rec := httptest.NewRecorder()

		protected().ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, model.CodeTokenExpired, decodeError(t, rec).Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		rec := httptest.NewRecorder()

		protected().ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, model.CodeTokenInvalid, decodeError(t, rec).Code)
	})
}

// =============================================================================
// IPRateLimiter
// =============================================================================

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(perMinute, burst int) (*IPRateLimiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	l := NewIPRateLimiter(perMinute, burst)
	l.now = clock.now
	return l, clock
}

func TestIPRateLimiter_BurstThenRefill(t *testing.T) {
	l, clock := newTestLimiter(60, 2)

	assert.True(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"))

	// Buckets are per address.
	assert.True(t, l.Allow("10.0.0.2"))

	clock.advance(time.Second)
	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"))
}

func TestIPRateLimiter_SweepsIdleVisitors(t *testing.T) {
	l, clock := newTestLimiter(60, 1)

	l.Allow("10.0.0.1")
	clock.advance(5 * time.Minute)
	l.Allow("10.0.0.2")
	assert.Len(t, l.limiters, 2)

	clock.advance(11 * time.Minute)
	l.Allow("10.0.0.3")

	assert.Len(t, l.limiters, 1)
	assert.Contains(t, l.limiters, "10.0.0.3")
}

func TestIPRateLimiter_Middleware(t *testing.T) {
	l, _ := newTestLimiter(60, 1)
	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = "192.0.2.1:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusNoContent, send().Code)

	rec := send()
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	detail := decodeError(t, rec)
	assert.Equal(t, httputil.ErrCodeTooManyRequests, detail.Code)
	assert.Equal(t, "Trop de tentatives de connexion. Veuillez réessayer plus tard.", detail.Message)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.4:4321"
	assert.Equal(t, "198.51.100.4", ClientIP(req))

	req.RemoteAddr = "198.51.100.5"
	assert.Equal(t, "198.51.100.5", ClientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	req.Header.Set("X-Real-IP", "203.0.113.10")
	assert.Equal(t, "198.51.100.5", ClientIP(req))
}
