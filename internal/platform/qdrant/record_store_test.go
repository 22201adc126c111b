package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/httpx"
	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/logger"
	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/pinecone"
)

type fakeEmbedder struct {
	dim   int
	calls [][]string
	err   error
}

func (f *fakeEmbedder) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	f.calls = append(f.calls, inputs)
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(inputs))
	for i := range inputs {
		v := make([]float32, f.dim)
		v[0] = float32(len(inputs[i]))
		out[i] = v
	}
	return out, nil
}

func TestRecordStoreUpsertEmbedsTextAndNamespacesPoints(t *testing.T) {
	var captured map[string]any
	emb := &fakeEmbedder{dim: 3}
	s := newTestRecordStore(t, emb, func(r *http.Request) (*http.Response, error) {
		if r.Method != http.MethodPut {
			t.Fatalf("method: want=%s got=%s", http.MethodPut, r.Method)
		}
		if r.URL.Path != "/collections/clauses/points" || r.URL.RawQuery != "wait=true" {
			t.Fatalf("url: got=%s", r.URL.String())
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		return okResponse(t, map[string]any{"status": "acknowledged"}), nil
	})

	fields := map[string]any{"chunk_text": "grace period is thirty days", "document_id": "doc.pdf"}
	err := s.UpsertRecords(context.Background(), "", []pinecone.Record{
		{ID: "doc.pdf_0", Fields: fields},
		{ID: "doc.pdf_1", Fields: map[string]any{"chunk_text": "waiting period", "document_id": "doc.pdf"}},
	})
	if err != nil {
		t.Fatalf("UpsertRecords: %v", err)
	}
	if len(emb.calls) != 1 || len(emb.calls[0]) != 2 {
		t.Fatalf("embed calls: got=%v", emb.calls)
	}

	points := captured["points"].([]any)
	if len(points) != 2 {
		t.Fatalf("points length: want=2 got=%d", len(points))
	}
	first := points[0].(map[string]any)
	wantNS := "bc:" + pinecone.DefaultNamespace
	if first["id"] != s.pointID(wantNS, "doc.pdf_0") {
		t.Fatalf("point id: got=%v", first["id"])
	}
	payload := first["payload"].(map[string]any)
	if payload[payloadNamespaceKey] != wantNS || payload[payloadRecordIDKey] != "doc.pdf_0" {
		t.Fatalf("payload keys: got=%v", payload)
	}
	if payload["document_id"] != "doc.pdf" {
		t.Fatalf("payload document_id: got=%v", payload["document_id"])
	}
	if _, mutated := fields[payloadNamespaceKey]; mutated {
		t.Fatalf("input fields mutated")
	}
}

func TestRecordStoreUpsertRejectsEmptyText(t *testing.T) {
	s := newTestRecordStore(t, &fakeEmbedder{dim: 3}, func(r *http.Request) (*http.Response, error) {
		t.Fatalf("unexpected request")
		return nil, nil
	})
	err := s.UpsertRecords(context.Background(), "", []pinecone.Record{{ID: "x", Fields: map[string]any{}}})
	var opErr *OperationError
	if !errors.As(err, &opErr) || opErr.Code != OperationErrorValidation {
		t.Fatalf("expected validation error, got=%v", err)
	}
}

func TestRecordStoreSearchFiltersAndStripsInternalKeys(t *testing.T) {
	var captured map[string]any
	s := newTestRecordStore(t, &fakeEmbedder{dim: 3}, func(r *http.Request) (*http.Response, error) {
		if r.URL.Path != "/collections/clauses/points/search" {
			t.Fatalf("path: got=%s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		return okResponse(t, []map[string]any{
			{"id": "p-b", "score": 0.9, "payload": map[string]any{payloadRecordIDKey: "doc_1", payloadNamespaceKey: "bc:x", "chunk_text": "b"}},
			{"id": "p-a", "score": 0.1, "payload": map[string]any{payloadRecordIDKey: "doc_0", "chunk_text": "a"}},
		}), nil
	})
	s.distance = "euclid"

	hits, err := s.SearchRecords(context.Background(), "x", pinecone.SearchRequest{
		Text:   "what is covered",
		TopK:   2,
		Filter: map[string]any{"document_id": map[string]any{"$in": []string{"doc"}}},
	})
	if err != nil {
		t.Fatalf("SearchRecords: %v", err)
	}
	if len(hits) != 2 || hits[0].ID != "doc_0" || hits[1].ID != "doc_1" {
		t.Fatalf("hits order after euclid normalization: got=%+v", hits)
	}
	if _, leaked := hits[1].Fields[payloadNamespaceKey]; leaked {
		t.Fatalf("internal payload key leaked: %v", hits[1].Fields)
	}

	filter := captured["filter"].(map[string]any)
	must := filter["must"].([]any)
	nsCond := findConditionByKey(must, payloadNamespaceKey)
	if nsCond == nil || nsCond["match"].(map[string]any)["value"] != "bc:x" {
		t.Fatalf("namespace condition: got=%v", nsCond)
	}
	if findConditionByKey(must, "document_id") == nil {
		t.Fatalf("missing document_id condition")
	}
	if captured["limit"].(float64) != 2 {
		t.Fatalf("limit: want=2 got=%v", captured["limit"])
	}
}

func TestRecordStoreDeleteByFilterUsesFilter(t *testing.T) {
	var captured map[string]any
	s := newTestRecordStore(t, &fakeEmbedder{dim: 3}, func(r *http.Request) (*http.Response, error) {
		if r.URL.Path != "/collections/clauses/points/delete" {
			t.Fatalf("path: got=%s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&captured)
		return okResponse(t, map[string]any{"status": "completed"}), nil
	})
	err := s.DeleteByFilter(context.Background(), "", map[string]any{"document_id": map[string]any{"$in": []any{"doc"}}})
	if err != nil {
		t.Fatalf("DeleteByFilter: %v", err)
	}
	filter, ok := captured["filter"].(map[string]any)
	if !ok {
		t.Fatalf("filter missing: %v", captured)
	}
	if len(filter["must"].([]any)) != 2 {
		t.Fatalf("must: want namespace + document_id, got=%v", filter["must"])
	}
}

func TestRecordStoreServerErrorIsRetryable(t *testing.T) {
	s := newTestRecordStore(t, &fakeEmbedder{dim: 3}, func(r *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusServiceUnavailable,
			Header:     make(http.Header),
			Body:       io.NopCloser(bytes.NewReader([]byte("unavailable"))),
		}, nil
	})
	_, err := s.SearchRecords(context.Background(), "", pinecone.SearchRequest{Text: "anything here"})
	if !httpx.IsRetryableError(err) {
		t.Fatalf("expected retryable error, got=%v", err)
	}
}

func TestRecordStoreEmbedFailure(t *testing.T) {
	s := newTestRecordStore(t, &fakeEmbedder{dim: 3, err: fmt.Errorf("quota")}, func(r *http.Request) (*http.Response, error) {
		t.Fatalf("unexpected request")
		return nil, nil
	})
	_, err := s.SearchRecords(context.Background(), "", pinecone.SearchRequest{Text: "anything here"})
	var opErr *OperationError
	if !errors.As(err, &opErr) || opErr.Code != OperationErrorEmbedFailed {
		t.Fatalf("expected embed_failed, got=%v", err)
	}
}

func TestClassifyHTTPCallError(t *testing.T) {
	var opErr *OperationError
	if err := classifyHTTPCallError("search", "timeout", context.DeadlineExceeded); !errors.As(err, &opErr) || opErr.Code != OperationErrorTimeout {
		t.Fatalf("timeout: got=%v", err)
	}
	if err := classifyHTTPCallError("search", "transport", fmt.Errorf("boom")); !errors.As(err, &opErr) || opErr.Code != OperationErrorTransportFailed {
		t.Fatalf("transport: got=%v", err)
	}
}

func newTestRecordStore(t *testing.T, emb Embedder, roundTrip func(*http.Request) (*http.Response, error)) *recordStore {
	t.Helper()
	return &recordStore{
		log:      newTestLogger(t),
		cfg:      Config{Collection: "clauses", VectorDim: 3, TextField: DefaultTextField},
		embedder: emb,
		baseURL:  "http://qdrant.local",
		nsPrefix: "bc",
		http:     &http.Client{Transport: roundTripFunc(roundTrip)},
		distance: "Cosine",
	}
}

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(func() {
		log.Sync()
	})
	return log
}

func okResponse(t *testing.T, result any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"result": result,
		"status": "ok",
		"time":   0.001,
	})
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     make(http.Header),
		Body:       io.NopCloser(bytes.NewReader(raw)),
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}
