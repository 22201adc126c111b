package pinecone

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/logger"
)

// RecordStore is a text-native vector index: records carry raw text and the
// store embeds it server side (or through its own embedder).
type RecordStore interface {
	UpsertRecords(ctx context.Context, namespace string, records []Record) error
	SearchRecords(ctx context.Context, namespace string, req SearchRequest) ([]Hit, error)
	DeleteByFilter(ctx context.Context, namespace string, filter map[string]any) error
}

// Record is serialized flat: {"_id": ID, <field>: <value>, ...}.
type Record struct {
	ID     string
	Fields map[string]any
}

func (r Record) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(r.Fields)+1)
	for k, v := range r.Fields {
		m[k] = v
	}
	m["_id"] = r.ID
	return json.Marshal(m)
}

func (r *Record) UnmarshalJSON(b []byte) error {
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	id, _ := m["_id"].(string)
	delete(m, "_id")
	r.ID = id
	r.Fields = m
	return nil
}

type SearchRequest struct {
	Text   string
	TopK   int
	Filter map[string]any
	Fields []string
}

type Hit struct {
	ID     string
	Score  float64
	Fields map[string]any
}

type StoreConfig struct {
	IndexName string
	IndexHost string
	// When CreateIfMissing is set and the index does not exist, it is created
	// for EmbeddingModel with chunk_text mapped as the embedded field.
	CreateIfMissing bool
	EmbeddingModel  string
	Cloud           string
	Region          string
	TextField       string
}

type recordStore struct {
	log       *logger.Logger
	pc        Client
	indexName string
	indexHost string
}

func NewRecordStore(ctx context.Context, log *logger.Logger, pc Client, cfg StoreConfig) (RecordStore, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if pc == nil {
		return nil, fmt.Errorf("pinecone client required")
	}

	indexName := strings.TrimSpace(cfg.IndexName)
	host := strings.TrimSpace(cfg.IndexHost)
	if host == "" && indexName == "" {
		return nil, fmt.Errorf("missing PINECONE_INDEX_HOST or PINECONE_INDEX_NAME")
	}

	if host == "" {
		desc, err := pc.DescribeIndex(ctx, indexName)
		var httpErr *HTTPError
		if err != nil && cfg.CreateIfMissing && errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound {
			log.Info("pinecone index missing; creating for model", "index_name", indexName, "model", cfg.EmbeddingModel)
			desc, err = pc.CreateIndexForModel(ctx, createRequest(indexName, cfg))
		}
		if err != nil {
			return nil, fmt.Errorf("pinecone describe_index failed: %w", err)
		}
		host = strings.TrimSpace(desc.Host)
		if host == "" {
			return nil, fmt.Errorf("pinecone index %q has no host yet", indexName)
		}
		log.Warn("PINECONE_INDEX_HOST not set; resolved via describe_index (avoid this in production)",
			"index_name", indexName,
			"index_host", host,
		)
	}

	return &recordStore{
		log:       log.With("service", "PineconeRecordStore"),
		pc:        pc,
		indexName: indexName,
		indexHost: host,
	}, nil
}

func createRequest(indexName string, cfg StoreConfig) CreateIndexForModelRequest {
	req := CreateIndexForModelRequest{
		Name:   indexName,
		Cloud:  cfg.Cloud,
		Region: cfg.Region,
	}
	if req.Cloud == "" {
		req.Cloud = "aws"
	}
	if req.Region == "" {
		req.Region = "us-east-1"
	}
	field := cfg.TextField
	if field == "" {
		field = "chunk_text"
	}
	req.Embed.Model = cfg.EmbeddingModel
	req.Embed.FieldMap = map[string]string{"text": field}
	return req
}

func (s *recordStore) UpsertRecords(ctx context.Context, namespace string, records []Record) error {
	if s == nil || s.pc == nil {
		return fmt.Errorf("record store unavailable")
	}
	return s.pc.UpsertRecords(ctx, s.indexHost, namespace, records)
}

func (s *recordStore) SearchRecords(ctx context.Context, namespace string, req SearchRequest) ([]Hit, error) {
	if s == nil || s.pc == nil {
		return nil, fmt.Errorf("record store unavailable")
	}
	return s.pc.SearchRecords(ctx, s.indexHost, namespace, req)
}

func (s *recordStore) DeleteByFilter(ctx context.Context, namespace string, filter map[string]any) error {
	if s == nil || s.pc == nil {
		return fmt.Errorf("record store unavailable")
	}
	return s.pc.DeleteByFilter(ctx, s.indexHost, namespace, filter)
}
