package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/sanskar-502/Bajaj-Cloud/internal/domain"
	"github.com/sanskar-502/Bajaj-Cloud/internal/modules/ingestion/extractor"
	"github.com/sanskar-502/Bajaj-Cloud/internal/observability"
	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/ctxutil"
	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/logger"
)

type TextExtractor interface {
	Extract(ctx context.Context, path string, format extractor.Format) (*extractor.Result, error)
}

type Chunker interface {
	Chunk(text string, doc domain.Document) []domain.Chunk
}

type Indexer interface {
	Index(ctx context.Context, chunks []domain.Chunk) error
}

type Result struct {
	Document   domain.Document
	ChunkCount int
}

type Pipeline struct {
	log       *logger.Logger
	extractor TextExtractor
	chunker   Chunker
	indexer   Indexer
	now       func() time.Time
}

func New(log *logger.Logger, ex TextExtractor, ch Chunker, idx Indexer) *Pipeline {
	return &Pipeline{
		log:       log.With("service", "IngestionPipeline"),
		extractor: ex,
		chunker:   ch,
		indexer:   idx,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Process extracts, cleans, chunks and indexes the file at path under documentID.
func (p *Pipeline) Process(ctx context.Context, path string, documentID string) (res *Result, err error) {
	ctx = ctxutil.Default(ctx)
	ctx, span := observability.Tracer().Start(ctx, "ingestion.Pipeline.Process")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	span.SetAttributes(attribute.String("document_id", documentID))

	format, err := extractor.ParseFormat(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrExtractionFailed, err)
	}

	started := time.Now()
	extracted, err := p.extractor.Extract(ctx, path, format)
	if err != nil {
		return nil, err
	}
	text := extractor.Clean(extracted.Text)
	p.log.Debug("Extracted text", "document_id", documentID, "runes", len([]rune(text)), "took", time.Since(started).String())

	doc := domain.Document{
		DocumentID:      documentID,
		DocumentType:    domain.DocumentTypeUnknown,
		UploadTimestamp: p.now(),
		FileSize:        info.Size(),
		PageCount:       extracted.PageCount,
	}

	chunks := p.chunker.Chunk(text, doc)
	span.SetAttributes(attribute.Int("chunks", len(chunks)))
	if err := p.indexer.Index(ctx, chunks); err != nil {
		return nil, err
	}

	p.log.Info("Document processed", "document_id", documentID, "format", string(format), "chunks", len(chunks), "took", time.Since(started).String())
	return &Result{Document: doc, ChunkCount: len(chunks)}, nil
}
