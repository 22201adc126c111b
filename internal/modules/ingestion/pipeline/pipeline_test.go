package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sanskar-502/Bajaj-Cloud/internal/domain"
	"github.com/sanskar-502/Bajaj-Cloud/internal/modules/answering/retriever"
	"github.com/sanskar-502/Bajaj-Cloud/internal/modules/ingestion/chunker"
	"github.com/sanskar-502/Bajaj-Cloud/internal/modules/ingestion/extractor"
	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/logger"
	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/pinecone"
)

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

type failingIndexer struct{}

func (failingIndexer) Index(ctx context.Context, chunks []domain.Chunk) error {
	return domain.ErrRetrievalUnavailable
}

func writeTxt(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

func TestProcessTextDocumentEndToEnd(t *testing.T) {
	log := newTestLogger(t)
	store := pinecone.NewMemoryRecordStore("")
	ret := retriever.New(log, store, retriever.Config{})
	p := New(log, extractor.New(log, nil, nil), chunker.New(chunker.RegexTokenizer{}, 120, 30), ret)

	body := strings.Repeat("The grace period for premium payment is thirty days.\n\n", 10)
	path := writeTxt(t, "policy.txt", body)

	res, err := p.Process(context.Background(), path, "doc-1.txt")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.ChunkCount == 0 || store.Len(pinecone.DefaultNamespace) != res.ChunkCount {
		t.Fatalf("chunks: result=%d stored=%d", res.ChunkCount, store.Len(pinecone.DefaultNamespace))
	}
	if res.Document.DocumentType != domain.DocumentTypeUnknown || res.Document.FileSize != int64(len(body)) {
		t.Fatalf("document: got=%+v", res.Document)
	}
	if res.Document.PageCount != nil {
		t.Fatalf("txt page count should be nil")
	}

	hits, err := ret.Search(context.Background(), "grace period", 3, []string{"doc-1.txt"})
	if err != nil || len(hits) == 0 {
		t.Fatalf("search after ingest: hits=%d err=%v", len(hits), err)
	}
	if strings.Contains(hits[0].Content, "\n") {
		t.Fatalf("indexed text should be cleaned")
	}
}

func TestProcessRejectsUnsupportedFormat(t *testing.T) {
	log := newTestLogger(t)
	p := New(log, extractor.New(log, nil, nil), chunker.New(chunker.RegexTokenizer{}, 100, 10), failingIndexer{})
	path := writeTxt(t, "image.png", "x")
	if _, err := p.Process(context.Background(), path, "doc.png"); !errors.Is(err, domain.ErrUnsupportedFormat) {
		t.Fatalf("want=ErrUnsupportedFormat got=%v", err)
	}
}

func TestProcessPropagatesIndexFailure(t *testing.T) {
	log := newTestLogger(t)
	p := New(log, extractor.New(log, nil, nil), chunker.New(chunker.RegexTokenizer{}, 100, 10), failingIndexer{})
	path := writeTxt(t, "policy.txt", "Some clause text that is long enough.")
	if _, err := p.Process(context.Background(), path, "doc.txt"); !errors.Is(err, domain.ErrRetrievalUnavailable) {
		t.Fatalf("want=ErrRetrievalUnavailable got=%v", err)
	}
}
