// Package app provides the main application setup and dependency injection.
package app

import (
	"fmt"

	"xc-gateway/pkg/appctx"
	"xc-gateway/pkg/config"
	"xc-gateway/pkg/handlers/api"
	"xc-gateway/pkg/httpclient"
	"xc-gateway/pkg/logging"
	"xc-gateway/pkg/server"
	"xc-gateway/pkg/timeshift"
	"xc-gateway/pkg/xtream"

	"github.com/panjf2000/ants/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// App is the main application container.
type App struct {
	Ctx        *appctx.Context
	Server     *server.Server
	HTTPClient *httpclient.Client
}

// New creates and initializes the application.
func New() (*App, error) {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log := logging.New(cfg.LogLevel, cfg.LogJSON, nil)
	log.Info("initializing xc-gateway", "port", cfg.Port, "log_level", cfg.LogLevel)

	// Create application context
	ctx := appctx.New(cfg, log)

	// Create HTTP client
	httpClient := httpclient.New(cfg, log)

	// Upstream client factory and time-shift redirector
	factory := xtream.NewFactory(cfg, httpClient, log)
	ctx.WithUpstream(factory)
	ctx.WithRedirector(timeshift.NewRedirector(factory))

	// Worker pool for concurrent upstream fetches
	pool, err := ants.NewPool(cfg.WorkerThreads)
	if err != nil {
		return nil, fmt.Errorf("worker pool: %w", err)
	}
	ctx.WithPool(pool)

	// Create HTTP server
	srv := server.New(cfg, log)

	// Create API handlers
	handlers := api.NewHandlers(ctx)
	handlers.RegisterRoutes(srv.Router())

	// Prometheus scrape endpoint. Compression is left to the server's
	// gzip middleware so the body is not encoded twice.
	srv.Router().Handle("GET /metrics", promhttp.HandlerFor(
		prometheus.DefaultGatherer,
		promhttp.HandlerOpts{DisableCompression: true},
	))

	return &App{
		Ctx:        ctx,
		Server:     srv,
		HTTPClient: httpClient,
	}, nil
}

// Run starts the application.
func (a *App) Run() error {
	a.Ctx.Log.Info("starting xc-gateway server", "port", a.Ctx.Config.Port)
	return a.Server.Start()
}

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown() {
	a.Ctx.Log.Info("shutting down application")

	if a.Ctx.Pool != nil {
		a.Ctx.Pool.Release()
	}
}
