package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/matchdesk/internal/logging"
	"github.com/dmitrijs2005/matchdesk/internal/metrics"
)

const metricsShutdownTimeout = 5 * time.Second

// serveMetrics exposes /metrics on ln until ctx is done.
func serveMetrics(ctx context.Context, ln net.Listener, logger logging.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), metricsShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn(shutdownCtx, "metrics server shutdown", "error", err)
		}
	}()

	logger.Info(ctx, "serving metrics", "addr", ln.Addr().String())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error(ctx, "metrics server stopped", "error", err)
	}
}

func (a *App) startMetrics(ctx context.Context) {
	if a.config.MetricsAddr == "" {
		return
	}
	ln, err := net.Listen("tcp", a.config.MetricsAddr)
	if err != nil {
		a.logger.Warn(ctx, "metrics disabled", "addr", a.config.MetricsAddr, "error", err)
		return
	}
	go serveMetrics(ctx, ln, a.logger)
}
