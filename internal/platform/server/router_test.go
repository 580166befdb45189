package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/br-silvano/moveit-next/internal/platform/logging"
)

func TestNewRouterServesHealth(t *testing.T) {
	router := NewRouter(Options{Service: "moveit-service"}, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Equal(t, HealthResponse{Status: "ok", Service: "moveit-service", Version: Version}, body)
}

func TestHealthReportsFailingProbe(t *testing.T) {
	router := NewRouter(Options{
		Service: "moveit-service",
		Probes: map[string]Probe{
			"store":  func(context.Context) error { return nil },
			"assets": func(context.Context) error { return errors.New("bucket unreachable") },
		},
	}, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Equal(t, "degraded", body.Status)
	require.Equal(t, map[string]string{"store": "ok", "assets": "bucket unreachable"}, body.Checks)
}

func TestNewRouterRegistersRoutes(t *testing.T) {
	router := NewRouter(Options{Service: "moveit-service"}, func(r chi.Router) {
		r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRunStopsOnContextAndRunsCleanups(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler(), ReadHeaderTimeout: time.Second}

	var order []string
	cleanups := []Cleanup{
		func(context.Context) error { order = append(order, "sessions"); return nil },
		func(context.Context) error { order = append(order, "store"); return errors.New("close failed") },
	}

	time.AfterFunc(50*time.Millisecond, cancel)
	err := Run(ctx, srv, logging.Discard(), cleanups...)

	require.ErrorContains(t, err, "close failed")
	require.Equal(t, []string{"sessions", "store"}, order)
}
