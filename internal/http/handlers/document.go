package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sanskar-502/Bajaj-Cloud/internal/data/repos"
	"github.com/sanskar-502/Bajaj-Cloud/internal/domain"
	"github.com/sanskar-502/Bajaj-Cloud/internal/http/response"
	"github.com/sanskar-502/Bajaj-Cloud/internal/jobs/worker"
	"github.com/sanskar-502/Bajaj-Cloud/internal/modules/ingestion/extractor"
	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/ctxutil"
	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/dbctx"
	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/gcp"
	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/logger"
)

const uploadAccepted = "Document uploaded successfully. Processing in the background."

type Enqueuer interface {
	Enqueue(job worker.Job) error
}

type DocumentDeleter interface {
	DeleteDocuments(ctx context.Context, documentIDs []string) error
}

type UploadResponse struct {
	Success    bool                    `json:"success"`
	DocumentID string                  `json:"document_id"`
	Message    string                  `json:"message"`
	Status     domain.ProcessingStatus `json:"status"`
}

type DocumentHandlerConfig struct {
	UploadDir string
	MaxBytes  int64
	// ArchiveBucket enables copying uploads to GCS under documents/<id>.
	ArchiveBucket string
}

type DocumentHandler struct {
	log      *logger.Logger
	statuses repos.DocumentStatusRepo
	queue    Enqueuer
	vectors  DocumentDeleter
	answers  worker.CacheInvalidator
	bucket   gcp.BucketService
	cfg      DocumentHandlerConfig

	// archiving tracks background archive uploads.
	archiving sync.WaitGroup
}

// NewDocumentHandler builds the upload and status handlers. answers and
// bucket may be nil.
func NewDocumentHandler(log *logger.Logger, statuses repos.DocumentStatusRepo, queue Enqueuer, vectors DocumentDeleter, answers worker.CacheInvalidator, bucket gcp.BucketService, cfg DocumentHandlerConfig) *DocumentHandler {
	return &DocumentHandler{
		log:      log.With("handler", "DocumentHandler"),
		statuses: statuses,
		queue:    queue,
		vectors:  vectors,
		answers:  answers,
		bucket:   bucket,
		cfg:      cfg,
	}
}

// POST /upload
func (h *DocumentHandler) Upload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("multipart field 'file' is required"))
		return
	}
	format, err := extractor.ParseFormat(fh.Filename)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	if h.cfg.MaxBytes > 0 && fh.Size > h.cfg.MaxBytes {
		response.RespondErr(c, fmt.Errorf("%w: max size is %dMB", domain.ErrFileTooLarge, h.cfg.MaxBytes/(1024*1024)))
		return
	}

	documentID := uuid.NewString() + format.Ext()
	path := filepath.Join(h.cfg.UploadDir, documentID)
	if err := c.SaveUploadedFile(fh, path); err != nil {
		h.log.Error("Saving upload failed", "document_id", documentID, "error", err)
		response.RespondError(c, http.StatusInternalServerError, "upload_failed", fmt.Errorf("upload failed"))
		return
	}

	ctx := c.Request.Context()
	row := &domain.DocumentStatus{
		DocumentID:   documentID,
		Status:       domain.StatusPending,
		Source:       domain.SourceUpload,
		DocumentType: domain.DocumentTypeUnknown,
		FileSize:     fh.Size,
	}
	if err := h.statuses.Create(dbctx.New(ctx), row); err != nil {
		_ = os.Remove(path)
		h.log.Error("Registering upload failed", "document_id", documentID, "error", err)
		response.RespondError(c, http.StatusInternalServerError, "upload_failed", fmt.Errorf("upload failed"))
		return
	}

	h.archive(ctx, documentID, path)

	if err := h.queue.Enqueue(worker.Job{DocumentID: documentID, Path: path, Source: domain.SourceUpload, Ctx: ctx}); err != nil {
		response.RespondError(c, http.StatusServiceUnavailable, "queue_unavailable", err)
		return
	}

	c.JSON(http.StatusOK, UploadResponse{
		Success:    true,
		DocumentID: documentID,
		Message:    uploadAccepted,
		Status:     domain.StatusPending,
	})
}

// archive copies the upload to GCS without holding up the response. The file
// is opened before returning so the worker may remove the path concurrently.
func (h *DocumentHandler) archive(ctx context.Context, documentID, path string) {
	if h.bucket == nil || strings.TrimSpace(h.cfg.ArchiveBucket) == "" {
		return
	}
	f, err := os.Open(path)
	if err != nil {
		h.log.Warn("Archive open failed", "document_id", documentID, "error", err)
		return
	}

	ctx = ctxutil.Detached(ctx)
	h.archiving.Add(1)
	go func() {
		defer h.archiving.Done()
		defer f.Close()
		ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
		defer cancel()
		key := "documents/" + documentID
		if err := h.bucket.Upload(ctx, h.cfg.ArchiveBucket, key, f); err != nil {
			h.log.Warn("Archive upload failed", "document_id", documentID, "bucket", h.cfg.ArchiveBucket, "error", err)
			return
		}
		h.log.Debug("Archived upload", "document_id", documentID, "object", key)
	}()
}

// WaitArchives blocks until background archive uploads finish or ctx ends.
func (h *DocumentHandler) WaitArchives(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.archiving.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// GET /documents/:id
func (h *DocumentHandler) Get(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	row, err := h.statuses.Get(dbctx.New(c.Request.Context()), id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, row)
}

// DELETE /documents/:id
func (h *DocumentHandler) Delete(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("document id required"))
		return
	}
	ctx := c.Request.Context()
	if err := h.vectors.DeleteDocuments(ctx, []string{id}); err != nil {
		response.RespondErr(c, err)
		return
	}
	if h.answers != nil {
		if err := h.answers.Invalidate(ctx, id); err != nil {
			h.log.Warn("Answer cache invalidation failed", "document_id", id, "error", err)
		}
	}
	if err := h.statuses.Delete(dbctx.New(ctx), id); err != nil && !errors.Is(err, domain.ErrNotFound) {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"success": true, "document_id": id})
}
