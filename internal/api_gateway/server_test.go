package api_gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/escrow-ledger/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(checks map[string]HealthCheck) *Server {
	cfg := &config.Config{Application: config.ApplicationConfig{Env: "test"}, Server: config.ServerConfig{Port: 0}}
	return NewServer(slog.Default(), cfg, Services{Checks: checks})
}

func TestHealth(t *testing.T) {
	t.Run("OK", func(t *testing.T) {
		srv := newTestServer(map[string]HealthCheck{
			"postgres": func(context.Context) error { return nil },
		})

		rr := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

		require.Equal(t, http.StatusOK, rr.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, "ok", body["status"])
	})

	t.Run("Degraded", func(t *testing.T) {
		srv := newTestServer(map[string]HealthCheck{
			"postgres": func(context.Context) error { return nil },
			"redis":    func(context.Context) error { return errors.New("connection refused") },
		})

		rr := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
		assert.Contains(t, rr.Body.String(), "connection refused")
	})
}

func TestAPIRequiresActor(t *testing.T) {
	srv := newTestServer(nil)

	for _, path := range []string{"/api/v1/wallets/balance", "/api/v1/disputes/pending"} {
		rr := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))

		assert.Equal(t, http.StatusUnauthorized, rr.Code, path)
		assert.NotEmpty(t, rr.Header().Get("X-Correlation-ID"), path)
	}
}
