package repos

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/sanskar-502/Bajaj-Cloud/internal/domain"
	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/dbctx"
	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/logger"
)

type DocumentStatusRepo interface {
	Create(dbc dbctx.Context, row *domain.DocumentStatus) error
	MarkReady(dbc dbctx.Context, documentID string, doc *domain.Document, chunkCount int) error
	MarkFailed(dbc dbctx.Context, documentID string, reason string) error
	Get(dbc dbctx.Context, documentID string) (*domain.DocumentStatus, error)
	Delete(dbc dbctx.Context, documentID string) error
}

type documentStatusRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDocumentStatusRepo(db *gorm.DB, baseLog *logger.Logger) DocumentStatusRepo {
	repoLog := baseLog.With("repo", "DocumentStatusRepo")
	return &documentStatusRepo{db: db, log: repoLog}
}

func (r *documentStatusRepo) tx(dbc dbctx.Context) *gorm.DB {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx)
}

func (r *documentStatusRepo) Create(dbc dbctx.Context, row *domain.DocumentStatus) error {
	if row == nil || row.DocumentID == "" {
		return fmt.Errorf("document id required")
	}
	if row.Status == "" {
		row.Status = domain.StatusPending
	}
	return r.tx(dbc).Create(row).Error
}

func (r *documentStatusRepo) MarkReady(dbc dbctx.Context, documentID string, doc *domain.Document, chunkCount int) error {
	updates := map[string]any{
		"status":      domain.StatusReady,
		"error":       "",
		"chunk_count": chunkCount,
		"updated_at":  time.Now().UTC(),
	}
	if doc != nil {
		updates["document_type"] = doc.DocumentType
		updates["file_size"] = doc.FileSize
		updates["page_count"] = doc.PageCount
	}
	return r.update(dbc, documentID, updates)
}

func (r *documentStatusRepo) MarkFailed(dbc dbctx.Context, documentID string, reason string) error {
	return r.update(dbc, documentID, map[string]any{
		"status":     domain.StatusFailed,
		"error":      reason,
		"updated_at": time.Now().UTC(),
	})
}

func (r *documentStatusRepo) update(dbc dbctx.Context, documentID string, updates map[string]any) error {
	res := r.tx(dbc).
		Model(&domain.DocumentStatus{}).
		Where("document_id = ?", documentID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("document %s: %w", documentID, domain.ErrNotFound)
	}
	return nil
}

func (r *documentStatusRepo) Get(dbc dbctx.Context, documentID string) (*domain.DocumentStatus, error) {
	var row domain.DocumentStatus
	err := r.tx(dbc).Where("document_id = ?", documentID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("document %s: %w", documentID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *documentStatusRepo) Delete(dbc dbctx.Context, documentID string) error {
	return r.tx(dbc).
		Where("document_id = ?", documentID).
		Delete(&domain.DocumentStatus{}).Error
}

type memoryDocumentStatusRepo struct {
	mu   sync.RWMutex
	rows map[string]domain.DocumentStatus
	log  *logger.Logger
}

func NewMemoryDocumentStatusRepo(baseLog *logger.Logger) DocumentStatusRepo {
	return &memoryDocumentStatusRepo{
		rows: map[string]domain.DocumentStatus{},
		log:  baseLog.With("repo", "MemoryDocumentStatusRepo"),
	}
}

func (r *memoryDocumentStatusRepo) Create(_ dbctx.Context, row *domain.DocumentStatus) error {
	if row == nil || row.DocumentID == "" {
		return fmt.Errorf("document id required")
	}
	now := time.Now().UTC()
	if row.Status == "" {
		row.Status = domain.StatusPending
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	row.UpdatedAt = now

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.rows[row.DocumentID]; exists {
		return fmt.Errorf("document %s already registered", row.DocumentID)
	}
	r.rows[row.DocumentID] = *row
	return nil
}

func (r *memoryDocumentStatusRepo) MarkReady(_ dbctx.Context, documentID string, doc *domain.Document, chunkCount int) error {
	return r.mutate(documentID, func(row *domain.DocumentStatus) {
		row.Status = domain.StatusReady
		row.Error = ""
		row.ChunkCount = chunkCount
		if doc != nil {
			row.DocumentType = doc.DocumentType
			row.FileSize = doc.FileSize
			row.PageCount = doc.PageCount
		}
	})
}

func (r *memoryDocumentStatusRepo) MarkFailed(_ dbctx.Context, documentID string, reason string) error {
	return r.mutate(documentID, func(row *domain.DocumentStatus) {
		row.Status = domain.StatusFailed
		row.Error = reason
	})
}

func (r *memoryDocumentStatusRepo) mutate(documentID string, fn func(row *domain.DocumentStatus)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[documentID]
	if !ok {
		return fmt.Errorf("document %s: %w", documentID, domain.ErrNotFound)
	}
	fn(&row)
	row.UpdatedAt = time.Now().UTC()
	r.rows[documentID] = row
	return nil
}

func (r *memoryDocumentStatusRepo) Get(_ dbctx.Context, documentID string) (*domain.DocumentStatus, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, ok := r.rows[documentID]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", documentID, domain.ErrNotFound)
	}
	return &row, nil
}

func (r *memoryDocumentStatusRepo) Delete(_ dbctx.Context, documentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows, documentID)
	return nil
}
