package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sanskar-502/Bajaj-Cloud/internal/http"
	"github.com/sanskar-502/Bajaj-Cloud/internal/observability"
	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/envutil"
	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/logger"
)

const ServiceName = "bajaj-cloud"

type App struct {
	Log      *logger.Logger
	Cfg      Config
	Clients  Clients
	Services Services
	Metrics  *observability.Metrics
	Server   *http.Server
	Handlers Handlers

	otelShutdown func(context.Context) error
	started      bool
}

func New(ctx context.Context) (*App, error) {
	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg, err := LoadConfig(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		log.Sync()
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfigFromEnv(ServiceName))
	metrics := observability.Init(log, cfg.MetricsEnabled)

	clients, err := wireClients(ctx, log, cfg)
	if err != nil {
		log.Sync()
		return nil, err
	}
	services, err := wireServices(ctx, log, cfg, clients)
	if err != nil {
		clients.Close()
		log.Sync()
		return nil, err
	}

	handlers := wireHandlers(log, cfg, services, clients, metrics)
	middleware := wireMiddleware(log, cfg)
	server := wireServer(log, ServiceName, handlers, middleware, metrics)

	return &App{
		Log:          log,
		Cfg:          cfg,
		Clients:      clients,
		Services:     services,
		Metrics:      metrics,
		Server:       server,
		Handlers:     handlers,
		otelShutdown: otelShutdown,
	}, nil
}

// Start launches the ingestion workers.
func (a *App) Start() {
	if a == nil || a.started {
		return
	}
	a.started = true
	if a.Services.Workers != nil {
		a.Services.Workers.Start()
	}
}

// Run serves HTTP until ctx is canceled.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.Server.Run(ctx, a.Cfg.APIHost, a.Cfg.APIPort, a.Cfg.ShutdownTimeout)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), a.Cfg.ShutdownTimeout+5*time.Second)
	defer cancel()
	if a.started && a.Services.Workers != nil {
		if err := a.Services.Workers.Stop(ctx); err != nil {
			a.Log.Warn("Ingestion workers did not drain", "error", err)
		}
	}
	if a.Handlers.Document != nil {
		if err := a.Handlers.Document.WaitArchives(ctx); err != nil {
			a.Log.Warn("Archive uploads did not finish", "error", err)
		}
	}
	a.Services.close()
	a.Clients.Close()
	if a.otelShutdown != nil {
		if err := a.otelShutdown(ctx); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
