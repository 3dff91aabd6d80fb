package main

import (
	"context"
	"net/http"
	"time"

	config "github.com/NordCoder/Shortly/internal/config/api-gateway"
	"github.com/NordCoder/Shortly/internal/obs"
	"github.com/NordCoder/Shortly/internal/services/api-gateway/httpx"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func buildHTTPServer(cfg *config.Config, logger *zap.Logger, reg *prometheus.Registry, a *app, health func(context.Context) error) (*http.Server, error) {
	mux := runtime.NewServeMux()
	rt := httpx.NewRouter(mux, obs.NewHTTPMetrics(reg))

	if err := a.auth.Mount(rt); err != nil {
		return nil, err
	}
	if err := a.links.Mount(rt); err != nil {
		return nil, err
	}

	root := http.NewServeMux()
	// process-wide collectors (go runtime, retry, outbox handler) live in the default registry
	gatherers := prometheus.Gatherers{reg, prometheus.DefaultGatherer}
	root.Handle("/metrics", promhttp.HandlerFor(gatherers, promhttp.HandlerOpts{}))
	root.Handle("/healthz", obs.HealthHandler(health))
	root.Handle("/", obs.HTTPHandler(mux, "api-gateway"))

	return &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           root,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}, nil
}

func serveHTTP(srv *http.Server, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("http listening", zap.String("addr", cfg.Server.HTTPAddr))
	return srv.ListenAndServe()
}
