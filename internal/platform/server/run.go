package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"
)

const shutdownTimeout = 10 * time.Second

// Cleanup releases a resource once the server stopped accepting requests.
type Cleanup func(ctx context.Context) error

// Run serves srv until ctx ends or the process receives SIGINT/SIGTERM. It then shuts the
// server down and runs every cleanup in order, all bounded by one shutdown deadline.
func Run(ctx context.Context, srv *http.Server, logger *slog.Logger, cleanups ...Cleanup) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", slog.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	var errs []error
	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	for _, cleanup := range cleanups {
		if err := cleanup(shutdownCtx); err != nil {
			logger.Warn("cleanup failed", slog.Any("error", err))
			errs = append(errs, err)
		}
	}

	if len(errs) == 0 {
		logger.Info("server stopped")
	}
	return errors.Join(errs...)
}
