// Command busengine runs a bus engine process that holds no client
// connections: it keeps the notification subscription and the garbage
// collector of a namespace alive and exposes health checks and metrics over HTTP.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/busengine/core/config"
	"github.com/dmitrymomot/busengine/core/engine"
	"github.com/dmitrymomot/busengine/core/health"
	"github.com/dmitrymomot/busengine/core/logger"
	"github.com/dmitrymomot/busengine/core/metrics"
	"github.com/dmitrymomot/busengine/core/server"
)

// Config is loaded from the environment and an optional .env file.
type Config struct {
	AppName       string        `env:"APP_NAME" envDefault:"busengine"`
	Env           string        `env:"APP_ENV" envDefault:"development"`
	ClientTimeout time.Duration `env:"BUS_CLIENT_TIMEOUT" envDefault:"60s"`

	Engine engine.Config
	HTTP   server.Config
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cfg Config
	config.MustLoad(&cfg) // panic on error

	log := newLogger(cfg)
	logger.SetAsDefault(log)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	e, err := engine.NewFromConfig(ctx, &maintenance{timeout: cfg.ClientTimeout, log: log}, cfg.Engine,
		engine.WithLogger(log.With(logger.Component("engine"))),
		engine.WithMetrics(metrics.New(reg)),
	)
	if err != nil {
		log.Error("Failed to create bus engine", logger.Component("engine"), logger.Error(err))
		os.Exit(1)
	}

	srv, err := server.NewFromConfig(cfg.HTTP, server.WithLogger(log.With(logger.Component("server"))))
	if err != nil {
		log.Error("Failed to create ops server", logger.Component("server"), logger.Error(err))
		os.Exit(1)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /live", health.Liveness)
	mux.Handle("GET /ready", health.Readiness(log, e.Healthcheck, e.Collector().Healthcheck))
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(e.Run(ctx))
	eg.Go(srv.Run(ctx, mux))

	if err := eg.Wait(); err != nil {
		log.Error("Bus engine stopped with error", logger.Error(err))
		os.Exit(1)
	}

	log.Info("Bus engine stopped", logger.Namespace(e.Namespace()))
}

func newLogger(cfg Config) *slog.Logger {
	switch cfg.Env {
	case "production":
		return logger.New(logger.WithProduction(cfg.AppName))
	case "staging":
		return logger.New(logger.WithStaging(cfg.AppName))
	default:
		return logger.New(logger.WithDevelopment(cfg.AppName))
	}
}
