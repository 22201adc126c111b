package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sanskar-502/Bajaj-Cloud/internal/observability"
)

const serviceBanner = "LLM-powered Intelligent Query–Retrieval System"

type HealthHandler struct {
	metrics *observability.Metrics
}

// NewHealthHandler builds the health handler; metrics may be nil.
func NewHealthHandler(metrics *observability.Metrics) *HealthHandler {
	return &HealthHandler{metrics: metrics}
}

func (h *HealthHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": serviceBanner})
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

func (h *HealthHandler) Metrics(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusNotFound)
		return
	}
	h.metrics.WriteHTTP(c.Writer, c.Request)
}
