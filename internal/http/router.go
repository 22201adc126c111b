package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/sanskar-502/Bajaj-Cloud/internal/http/handlers"
	httpMW "github.com/sanskar-502/Bajaj-Cloud/internal/http/middleware"
	"github.com/sanskar-502/Bajaj-Cloud/internal/observability"
	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	ServiceName string
	Metrics     *observability.Metrics

	AuthMiddleware *httpMW.AuthMiddleware

	HealthHandler   *httpH.HealthHandler
	DocumentHandler *httpH.DocumentHandler
	QueryHandler    *httpH.QueryHandler
	RunHandler      *httpH.RunHandler
	// MaxUploadMemory bounds the multipart bytes kept in memory.
	MaxUploadMemory int64
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	if cfg.MaxUploadMemory > 0 {
		r.MaxMultipartMemory = cfg.MaxUploadMemory
	}
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS())

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/", cfg.HealthHandler.Root)
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		if cfg.Metrics != nil {
			r.GET("/metrics", cfg.HealthHandler.Metrics)
		}
	}

	// Documents
	if cfg.DocumentHandler != nil {
		r.POST("/upload", cfg.DocumentHandler.Upload)
		r.GET("/documents/:id", cfg.DocumentHandler.Get)
		r.DELETE("/documents/:id", cfg.DocumentHandler.Delete)
	}

	// Query
	if cfg.QueryHandler != nil {
		r.POST("/query", cfg.QueryHandler.Query)
	}

	// Batch run (bearer auth)
	if cfg.RunHandler != nil {
		protected := r.Group("/hackrx")
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}
		protected.POST("/run", cfg.RunHandler.Run)
	}

	return r
}
