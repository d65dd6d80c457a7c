package httpapp

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ali_portfolio/internal/health"
	"ali_portfolio/internal/repository"
	"ali_portfolio/internal/services/auth"
	httprouters "ali_portfolio/internal/transport/http"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, ready health.Pinger) *Server {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	authService := auth.New(log, repository.NewCacheSessionRepo(), auth.Config{
		Email:    "admin@example.com",
		Password: "correct horse",
		Secret:   "test-secret",
	})
	routers := httprouters.NewRouter(log, httprouters.Services{Auth: authService}, httprouters.CookieConfig{})

	checker := health.NewChecker()
	if ready != nil {
		checker.AddReadiness("document_store", ready)
	}

	srv := New(log, Config{
		AllowOrigins:  []string{"https://alizidanjr.site"},
		BodyLimit:     "1M",
		SessionSecret: "test-session-secret",
		LoginRate:     0.001,
		LoginBurst:    2,
	}, routers, checker)
	srv.BuildRouters()

	return srv
}

func TestServer_LoginRateLimit(t *testing.T) {
	srv := newTestServer(t, nil)

	attempt := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
			strings.NewReader(`{"email":"admin@example.com","password":"wrong"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Real-IP", "203.0.113.7")
		rec := httptest.NewRecorder()
		srv.Echo().ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusUnauthorized, attempt())
	assert.Equal(t, http.StatusUnauthorized, attempt())
	assert.Equal(t, http.StatusTooManyRequests, attempt())
}

func TestServer_Endpoints(t *testing.T) {
	tests := []struct {
		name       string
		ready      health.Pinger
		method     string
		target     string
		wantStatus int
	}{
		{
			name:       "liveness",
			method:     http.MethodGet,
			target:     "/live",
			wantStatus: http.StatusOK,
		},
		{
			name:       "ready when store answers",
			ready:      func(context.Context) error { return nil },
			method:     http.MethodGet,
			target:     "/ready",
			wantStatus: http.StatusOK,
		},
		{
			name:       "not ready when store is down",
			ready:      func(context.Context) error { return errors.New("connection refused") },
			method:     http.MethodGet,
			target:     "/ready",
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:       "metrics",
			method:     http.MethodGet,
			target:     "/metrics",
			wantStatus: http.StatusOK,
		},
		{
			name:       "admin gate",
			method:     http.MethodGet,
			target:     "/api/admin/messages",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "unknown route",
			method:     http.MethodGet,
			target:     "/api/nope",
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, tt.ready)

			rec := httptest.NewRecorder()
			srv.Echo().ServeHTTP(rec, httptest.NewRequest(tt.method, tt.target, nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestServer_CORS(t *testing.T) {
	srv := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/auth/check", nil)
	req.Header.Set("Origin", "https://alizidanjr.site")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://alizidanjr.site", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}
