package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/sanskar-502/Bajaj-Cloud/internal/domain"
	"github.com/sanskar-502/Bajaj-Cloud/internal/http/response"
	"github.com/sanskar-502/Bajaj-Cloud/internal/modules/answering/engine"
	"github.com/sanskar-502/Bajaj-Cloud/internal/modules/ingestion/pipeline"
	"github.com/sanskar-502/Bajaj-Cloud/internal/modules/ingestion/source"
	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/ctxutil"
	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/logger"
)

type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, dstPath string) (int64, error)
}

type Processor interface {
	Process(ctx context.Context, path string, documentID string) (*pipeline.Result, error)
}

type RunHandlerConfig struct {
	WorkDir     string
	Concurrency int
}

// RunHandler ingests a remote document, answers a batch of questions scoped
// to it, then removes everything it indexed.
type RunHandler struct {
	log      *logger.Logger
	fetcher  Fetcher
	proc     Processor
	answerer engine.Answerer
	vectors  DocumentDeleter
	cfg      RunHandlerConfig
}

func NewRunHandler(log *logger.Logger, fetcher Fetcher, proc Processor, answerer engine.Answerer, vectors DocumentDeleter, cfg RunHandlerConfig) *RunHandler {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &RunHandler{
		log:      log.With("handler", "RunHandler"),
		fetcher:  fetcher,
		proc:     proc,
		answerer: answerer,
		vectors:  vectors,
		cfg:      cfg,
	}
}

// POST /hackrx/run
func (h *RunHandler) Run(c *gin.Context) {
	var req domain.RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	req.Documents = strings.TrimSpace(req.Documents)
	if req.Documents == "" || len(req.Questions) == 0 {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("documents and questions are required"))
		return
	}

	ctx := c.Request.Context()
	documentID := "run-" + uuid.NewString() + source.ExtFromURL(req.Documents)
	path := filepath.Join(h.cfg.WorkDir, documentID)
	defer h.cleanup(ctx, documentID, path)

	start := time.Now()
	if _, err := h.fetcher.Fetch(ctx, req.Documents, path); err != nil {
		h.fail(c, documentID, "download", err)
		return
	}
	res, err := h.proc.Process(ctx, path, documentID)
	if err != nil {
		h.fail(c, documentID, "ingest", err)
		return
	}

	answers, err := h.answerAll(ctx, documentID, req.Questions)
	if err != nil {
		h.fail(c, documentID, "answer", err)
		return
	}
	h.log.Info("Run complete",
		"document_id", documentID,
		"chunks", res.ChunkCount,
		"questions", len(req.Questions),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	response.RespondOK(c, domain.RunResponse{Answers: answers})
}

// answerAll keeps answers in question order. A question that fails
// validation gets the validation message as its answer.
func (h *RunHandler) answerAll(ctx context.Context, documentID string, questions []string) ([]string, error) {
	answers := make([]string, len(questions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.cfg.Concurrency)
	for i, q := range questions {
		g.Go(func() error {
			resp, err := h.answerer.Answer(gctx, domain.QueryRequest{
				Question:    q,
				DocumentIDs: []string{documentID},
			})
			if errors.Is(err, domain.ErrInvalidQuery) {
				answers[i] = domain.InvalidQueryMessage
				return nil
			}
			if err != nil {
				return fmt.Errorf("question %d: %w", i+1, err)
			}
			answers[i] = resp.Answer
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return answers, nil
}

func (h *RunHandler) fail(c *gin.Context, documentID, stage string, err error) {
	h.log.Error("Run failed", "document_id", documentID, "stage", stage, "error", err)
	_ = c.Error(err)
	response.RespondErr(c, err)
}

func (h *RunHandler) cleanup(ctx context.Context, documentID, path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		h.log.Warn("Run temp file cleanup failed", "path", path, "error", err)
	}
	ctx, cancel := context.WithTimeout(ctxutil.Detached(ctx), 30*time.Second)
	defer cancel()
	if err := h.vectors.DeleteDocuments(ctx, []string{documentID}); err != nil {
		h.log.Warn("Run vector cleanup failed", "document_id", documentID, "error", err)
	}
}
