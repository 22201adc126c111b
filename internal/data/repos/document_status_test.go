package repos

import (
	"context"
	"errors"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/sanskar-502/Bajaj-Cloud/internal/domain"
	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/dbctx"
	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/logger"
)

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

func sqliteDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: gormLogger.Default.LogMode(gormLogger.Silent)})
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&domain.DocumentStatus{}); err != nil {
		t.Skipf("sqlite migrate: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func exerciseRepo(t *testing.T, repo DocumentStatusRepo) {
	t.Helper()
	dbc := dbctx.New(context.Background())

	if err := repo.Create(dbc, &domain.DocumentStatus{DocumentID: "doc-1.pdf", Source: domain.SourceUpload, DocumentType: domain.DocumentTypeUnknown}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	row, err := repo.Get(dbc, "doc-1.pdf")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if row.Status != domain.StatusPending {
		t.Fatalf("status: want=%s got=%s", domain.StatusPending, row.Status)
	}

	pages := 3
	doc := &domain.Document{DocumentID: "doc-1.pdf", DocumentType: domain.DocumentTypeUnknown, FileSize: 2048, PageCount: &pages}
	if err := repo.MarkReady(dbc, "doc-1.pdf", doc, 7); err != nil {
		t.Fatalf("MarkReady: %v", err)
	}
	row, err = repo.Get(dbc, "doc-1.pdf")
	if err != nil {
		t.Fatalf("Get after ready: %v", err)
	}
	if row.Status != domain.StatusReady || row.ChunkCount != 7 || row.FileSize != 2048 {
		t.Fatalf("ready row: got=%+v", row)
	}
	if row.PageCount == nil || *row.PageCount != 3 {
		t.Fatalf("page_count: want=3 got=%v", row.PageCount)
	}

	if err := repo.MarkFailed(dbc, "doc-1.pdf", "extraction failed"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	row, _ = repo.Get(dbc, "doc-1.pdf")
	if row.Status != domain.StatusFailed || row.Error != "extraction failed" {
		t.Fatalf("failed row: got=%+v", row)
	}

	if err := repo.MarkFailed(dbc, "missing", "x"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("MarkFailed missing: want=ErrNotFound got=%v", err)
	}

	if err := repo.Delete(dbc, "doc-1.pdf"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.Get(dbc, "doc-1.pdf"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Get after delete: want=ErrNotFound got=%v", err)
	}
}

func TestMemoryDocumentStatusRepo(t *testing.T) {
	exerciseRepo(t, NewMemoryDocumentStatusRepo(newTestLogger(t)))
}

func TestGormDocumentStatusRepo(t *testing.T) {
	exerciseRepo(t, NewDocumentStatusRepo(sqliteDB(t), newTestLogger(t)))
}

func TestMemoryRepoRejectsDuplicate(t *testing.T) {
	repo := NewMemoryDocumentStatusRepo(newTestLogger(t))
	dbc := dbctx.New(context.Background())
	if err := repo.Create(dbc, &domain.DocumentStatus{DocumentID: "a"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.Create(dbc, &domain.DocumentStatus{DocumentID: "a"}); err == nil {
		t.Fatalf("expected duplicate error")
	}
}

func TestNewDocumentStatusRepoFor(t *testing.T) {
	log := newTestLogger(t)
	if _, err := NewDocumentStatusRepoFor("memory", nil, log); err != nil {
		t.Fatalf("memory: %v", err)
	}
	if _, err := NewDocumentStatusRepoFor("postgres", nil, log); err == nil {
		t.Fatalf("postgres without db: expected error")
	}
	if _, err := NewDocumentStatusRepoFor("mongo", nil, log); err == nil {
		t.Fatalf("unknown store: expected error")
	}
}
