package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/edutok-api/internal/config"
	"github.com/edutok-api/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

type stubStore struct{ err error }

func (s stubStore) Keys(context.Context, string) ([]string, error) { return nil, s.err }

type stubRunner struct{ stats domain.CleanupStats }

func (s stubRunner) Run(context.Context) domain.CleanupStats { return s.stats }

func withAction(r *http.Request, action string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("action", action)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestHealth_Ping(t *testing.T) {
	rr := httptest.NewRecorder()
	NewHealthHandler(nil).Ping(rr, withAction(httptest.NewRequest(http.MethodGet, "/v1/health-check/ping", nil), "ping"))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"message":"pong"}`, rr.Body.String())
}

func TestHealth_ReadyReflectsStore(t *testing.T) {
	rr := httptest.NewRecorder()
	NewHealthHandler(stubStore{}).Ping(rr, withAction(httptest.NewRequest(http.MethodGet, "/", nil), "ready"))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	NewHealthHandler(stubStore{err: errors.New("timeout")}).Ping(rr, withAction(httptest.NewRequest(http.MethodGet, "/", nil), "ready"))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestHealth_UnknownAction(t *testing.T) {
	rr := httptest.NewRecorder()
	NewHealthHandler(nil).Ping(rr, withAction(httptest.NewRequest(http.MethodGet, "/", nil), "explode"))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestFirebaseConfig_NotConfigured(t *testing.T) {
	rr := httptest.NewRecorder()
	NewFirebaseConfigHandler(config.FirebaseWebConfig{}).Get(rr, httptest.NewRequest(http.MethodGet, "/api/firebase-config", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestFirebaseConfig_Served(t *testing.T) {
	cfg := config.FirebaseWebConfig{APIKey: "k", ProjectID: "edutok", MessagingSenderID: "42", AppID: "1:42:web:x"}
	rr := httptest.NewRecorder()
	NewFirebaseConfigHandler(cfg).Get(rr, httptest.NewRequest(http.MethodGet, "/api/firebase-config", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"apiKey":"k","authDomain":"","projectId":"edutok","messagingSenderId":"42","appId":"1:42:web:x"}`, rr.Body.String())
	assert.Contains(t, rr.Header().Get("Cache-Control"), "max-age")
}

func TestCleanup_ReturnsStats(t *testing.T) {
	h := NewCleanupHandler(stubRunner{stats: domain.CleanupStats{PostsDeleted: 2, Error: "direct messages: boom"}})
	rr := httptest.NewRecorder()
	h.Run(rr, httptest.NewRequest(http.MethodPost, "/v1/admin/cleanup", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"postsDeleted":2`)
	assert.Contains(t, rr.Body.String(), `"error":"direct messages: boom"`)
}
