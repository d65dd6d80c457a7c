package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChecker(t *testing.T) {
	tests := []struct {
		name      string
		checks    map[string]Pinger
		wantLive  int
		wantReady int
	}{
		{
			name:      "no dependencies",
			wantLive:  http.StatusOK,
			wantReady: http.StatusOK,
		},
		{
			name: "all healthy",
			checks: map[string]Pinger{
				"documents": func(context.Context) error { return nil },
				"objects":   func(context.Context) error { return nil },
			},
			wantLive:  http.StatusOK,
			wantReady: http.StatusOK,
		},
		{
			name: "redis down",
			checks: map[string]Pinger{
				"documents": func(context.Context) error { return nil },
				"redis":     func(context.Context) error { return errors.New("connection refused") },
			},
			wantLive:  http.StatusOK,
			wantReady: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker()
			for name, ping := range tt.checks {
				c.AddReadiness(name, ping)
			}

			rec := httptest.NewRecorder()
			c.LiveHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/live", nil))
			assert.Equal(t, tt.wantLive, rec.Code)

			rec = httptest.NewRecorder()
			c.ReadyHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready?full=1", nil))
			assert.Equal(t, tt.wantReady, rec.Code)
		})
	}
}
