package app

import (
	"github.com/sanskar-502/Bajaj-Cloud/internal/http"
	httpH "github.com/sanskar-502/Bajaj-Cloud/internal/http/handlers"
	httpMW "github.com/sanskar-502/Bajaj-Cloud/internal/http/middleware"
	"github.com/sanskar-502/Bajaj-Cloud/internal/observability"
	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/logger"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health   *httpH.HealthHandler
	Document *httpH.DocumentHandler
	Query    *httpH.QueryHandler
	Run      *httpH.RunHandler
}

func wireHandlers(log *logger.Logger, cfg Config, services Services, clients Clients, metrics *observability.Metrics) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health: httpH.NewHealthHandler(metrics),
		Document: httpH.NewDocumentHandler(log, services.Statuses, services.Workers, services.Retriever, services.Invalidator, clients.GcpBucket, httpH.DocumentHandlerConfig{
			UploadDir:     cfg.UploadDir,
			MaxBytes:      cfg.MaxFileBytes(),
			ArchiveBucket: cfg.ArchiveBucket,
		}),
		Query: httpH.NewQueryHandler(log, services.Answerer),
		Run: httpH.NewRunHandler(log, services.Source, services.Pipeline, services.Engine, services.Retriever, httpH.RunHandlerConfig{
			WorkDir:     cfg.UploadDir,
			Concurrency: cfg.RunQuestionConcurrency,
		}),
	}
}

func wireMiddleware(log *logger.Logger, cfg Config) Middleware {
	log.Info("Wiring middleware...")
	if cfg.APIAuthToken == "" && cfg.APIJWTSecret == "" {
		log.Warn("API_AUTH_TOKEN and API_JWT_SECRET are unset; /hackrx/run will reject every request")
	}
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, cfg.APIAuthToken, cfg.APIJWTSecret),
	}
}

func wireServer(log *logger.Logger, serviceName string, handlers Handlers, middleware Middleware, metrics *observability.Metrics) *http.Server {
	return http.NewServer(http.RouterConfig{
		Log:             log,
		ServiceName:     serviceName,
		Metrics:         metrics,
		AuthMiddleware:  middleware.Auth,
		HealthHandler:   handlers.Health,
		DocumentHandler: handlers.Document,
		QueryHandler:    handlers.Query,
		RunHandler:      handlers.Run,
		MaxUploadMemory: 32 << 20,
	})
}
