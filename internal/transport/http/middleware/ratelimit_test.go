package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jwtinfra "github.com/edutok-api/internal/infrastructure/jwt"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func TestRealIP_XForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "1.2.3.4, 5.6.7.8")
	assert.Equal(t, "1.2.3.4", realIP(req))
}

func TestRealIP_XRealIP_Fallback(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Real-Ip", "9.10.11.12")
	assert.Equal(t, "9.10.11.12", realIP(req))
}

func TestRealIP_RemoteAddr_Fallback(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.1:54321"
	assert.Equal(t, "192.168.1.1", realIP(req))
}

func TestRealIP_XForwardedFor_TakesPrecedenceOverXRealIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "1.1.1.1")
	req.Header.Set("X-Real-Ip", "2.2.2.2")
	assert.Equal(t, "1.1.1.1", realIP(req))
}

func TestLimit_KeysByUserWhenAuthenticated(t *testing.T) {
	rl := NewRateLimiter(rate.Every(time.Hour), 1)
	h := rl.Limit(http.HandlerFunc(okHandler))

	send := func(user string) int {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		if user != "" {
			req = req.WithContext(WithClaims(req.Context(), &jwtinfra.Claims{UserID: user}))
		}
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr.Code
	}

	assert.Equal(t, http.StatusOK, send("u1"))
	assert.Equal(t, http.StatusTooManyRequests, send("u1"))
	assert.Equal(t, http.StatusOK, send("u2"), "other users have their own bucket")
	assert.Equal(t, http.StatusOK, send(""), "anonymous callers are keyed by IP")
	assert.Equal(t, http.StatusTooManyRequests, send(""))
}

func TestEvict_DropsIdleCallers(t *testing.T) {
	rl := &RateLimiter{limiters: map[string]*clientLimiter{}, r: 1, burst: 1, idle: time.Minute}
	rl.get("ip:1.1.1.1")

	rl.evict(time.Now().Add(2 * time.Minute))
	assert.Empty(t, rl.limiters)
}
