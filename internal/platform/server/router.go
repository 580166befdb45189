package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/br-silvano/moveit-next/internal/platform/logging"
)

// Version is reported by the health endpoint.
const Version = "v0.1.0"

const (
	defaultRequestTimeout = 60 * time.Second
	probeTimeout          = 2 * time.Second
)

// Probe reports whether a dependency can serve traffic.
type Probe func(ctx context.Context) error

// Options configures NewRouter. Only Service is required.
type Options struct {
	Service        string
	Logger         *slog.Logger
	Probes         map[string]Probe
	RequestTimeout time.Duration
}

// HealthResponse is the /healthz payload. Checks maps each probe name to "ok" or its error.
type HealthResponse struct {
	Status  string            `json:"status"`
	Service string            `json:"service"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// NewRouter returns a chi router with the default middleware stack and a health endpoint.
func NewRouter(opts Options, register func(r chi.Router)) *chi.Mux {
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(opts.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(opts.RequestTimeout))

	r.Get("/healthz", healthHandler(opts.Service, opts.Probes))

	if register != nil {
		register(r)
	}

	return r
}

func healthHandler(service string, probes map[string]Probe) http.HandlerFunc {
	names := make([]string, 0, len(probes))
	for name := range probes {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{Status: "ok", Service: service, Version: Version}
		status := http.StatusOK

		if len(names) > 0 {
			ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
			defer cancel()

			resp.Checks = make(map[string]string, len(names))
			for _, name := range names {
				if err := probes[name](ctx); err != nil {
					resp.Checks[name] = err.Error()
					resp.Status = "degraded"
					status = http.StatusServiceUnavailable
					continue
				}
				resp.Checks[name] = "ok"
			}
		}

		writeJSON(w, status, resp)
	}
}

// requestLogger logs one structured record per request once the handler returns.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				level := slog.LevelInfo
				if status >= http.StatusInternalServerError {
					level = slog.LevelError
				}
				logging.WithRequestID(r.Context(), logger).LogAttrs(r.Context(), level, "http request",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Int("status", status),
					slog.Int("bytes", ww.BytesWritten()),
					slog.Duration("duration", time.Since(start)),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
