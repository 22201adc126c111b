package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sanskar-502/Bajaj-Cloud/internal/domain"
	"github.com/sanskar-502/Bajaj-Cloud/internal/http/response"
	"github.com/sanskar-502/Bajaj-Cloud/internal/modules/answering/engine"
	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/logger"
)

type QueryHandler struct {
	log      *logger.Logger
	answerer engine.Answerer
}

func NewQueryHandler(log *logger.Logger, answerer engine.Answerer) *QueryHandler {
	return &QueryHandler{log: log.With("handler", "QueryHandler"), answerer: answerer}
}

// POST /query
func (h *QueryHandler) Query(c *gin.Context) {
	var req domain.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if req.MaxResults != 0 && (req.MaxResults < domain.MinMaxResults || req.MaxResults > domain.MaxMaxResults) {
		response.RespondError(c, http.StatusBadRequest, "invalid_request",
			fmt.Errorf("max_results must be between %d and %d", domain.MinMaxResults, domain.MaxMaxResults))
		return
	}
	resp, err := h.answerer.Answer(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, resp)
}
