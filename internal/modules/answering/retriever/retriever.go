package retriever

import (
	"context"
	"fmt"
	"time"

	"github.com/sanskar-502/Bajaj-Cloud/internal/domain"
	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/ctxutil"
	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/logger"
	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/pinecone"
)

// UpsertBatchSize is the largest record batch the integrated-embedding upsert accepts.
const UpsertBatchSize = 96

// SearchFields are the record fields returned with every hit.
var SearchFields = []string{"chunk_text", "document_id", "chunk_id", "page", "title"}

type Config struct {
	Namespace string
	Timeout   time.Duration
}

type Retriever struct {
	log       *logger.Logger
	store     pinecone.RecordStore
	namespace string
	timeout   time.Duration
}

func New(log *logger.Logger, store pinecone.RecordStore, cfg Config) *Retriever {
	ns := cfg.Namespace
	if ns == "" {
		ns = pinecone.DefaultNamespace
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Retriever{
		log:       log.With("service", "Retriever"),
		store:     store,
		namespace: ns,
		timeout:   timeout,
	}
}

// Search returns hits in the store's order. An empty documentIDs slice searches every document.
func (r *Retriever) Search(ctx context.Context, query string, topK int, documentIDs []string) ([]domain.SearchResult, error) {
	ctx, cancel := context.WithTimeout(ctxutil.Default(ctx), r.timeout)
	defer cancel()

	hits, err := r.store.SearchRecords(ctx, r.namespace, pinecone.SearchRequest{
		Text:   query,
		TopK:   topK,
		Filter: documentFilter(documentIDs),
		Fields: SearchFields,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRetrievalUnavailable, err)
	}

	out := make([]domain.SearchResult, 0, len(hits))
	for _, h := range hits {
		meta := make(map[string]any, len(h.Fields)+1)
		for k, v := range h.Fields {
			meta[k] = v
		}
		meta["id"] = h.ID
		content, _ := h.Fields["chunk_text"].(string)
		out = append(out, domain.SearchResult{Content: content, Metadata: meta, Score: h.Score})
	}
	return out, nil
}

// Index upserts chunks in batches of UpsertBatchSize.
func (r *Retriever) Index(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	ctx = ctxutil.Default(ctx)
	records := make([]pinecone.Record, 0, len(chunks))
	for _, c := range chunks {
		records = append(records, ChunkRecord(c))
	}
	for start := 0; start < len(records); start += UpsertBatchSize {
		end := min(start+UpsertBatchSize, len(records))
		callCtx, cancel := context.WithTimeout(ctx, r.timeout)
		err := r.store.UpsertRecords(callCtx, r.namespace, records[start:end])
		cancel()
		if err != nil {
			return fmt.Errorf("%w: upsert records %d-%d: %v", domain.ErrRetrievalUnavailable, start, end-1, err)
		}
	}
	r.log.Info("Indexed chunks", "records", len(records), "document_id", chunks[0].DocumentID)
	return nil
}

func (r *Retriever) DeleteDocuments(ctx context.Context, documentIDs []string) error {
	if len(documentIDs) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctxutil.Default(ctx), r.timeout)
	defer cancel()
	if err := r.store.DeleteByFilter(ctx, r.namespace, documentFilter(documentIDs)); err != nil {
		return fmt.Errorf("%w: delete documents: %v", domain.ErrRetrievalUnavailable, err)
	}
	return nil
}

// ChunkRecord converts a chunk to an index record. Optional fields are
// omitted when absent.
func ChunkRecord(c domain.Chunk) pinecone.Record {
	fields := map[string]any{
		"chunk_text":    c.ChunkText,
		"document_id":   c.DocumentID,
		"chunk_id":      c.ChunkID,
		"document_type": string(c.DocumentType),
	}
	if c.CompanyName != nil && *c.CompanyName != "" {
		fields["company_name"] = *c.CompanyName
	}
	if c.PageCount != nil {
		fields["page_count"] = *c.PageCount
	}
	return pinecone.Record{ID: c.ID, Fields: fields}
}

func documentFilter(ids []string) map[string]any {
	if len(ids) == 0 {
		return nil
	}
	in := make([]any, 0, len(ids))
	for _, id := range ids {
		in = append(in, id)
	}
	return map[string]any{"document_id": map[string]any{"$in": in}}
}
