package cli

import (
	"context"
	"fmt"
	"net"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"modelshim/internal/bridge/httphost"
)

// metricsRouter exposes the default Prometheus registry, which holds the
// supervisor counters.
func metricsRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// startMetrics serves /metrics on addr until the returned stop func is
// called. An empty addr serves nothing. The listener is bound before
// startMetrics returns.
func startMetrics(ctx context.Context, addr string, log zerolog.Logger) (func(), error) {
	if addr == "" {
		return func() {}, nil
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := httphost.ServeListener(ctx, ln, metricsRouter(), log); err != nil {
			log.Error().Err(err).Msg("metrics server")
		}
	}()
	return func() {
		cancel()
		<-done
	}, nil
}
