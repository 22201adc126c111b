package pinecone

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/logger"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func newTestClient(t *testing.T, rt roundTripFunc) Client {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	c, err := New(log, Config{
		APIKey:     "pc-test",
		HTTPClient: &http.Client{Transport: rt},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestUpsertRecordsSendsNDJSON(t *testing.T) {
	var lines []map[string]any
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		if req.URL.String() != "https://idx.svc.pinecone.io/records/namespaces/__default__/upsert" {
			t.Fatalf("url: got=%s", req.URL.String())
		}
		if got := req.Header.Get("Content-Type"); got != "application/x-ndjson" {
			t.Fatalf("content-type: want=%q got=%q", "application/x-ndjson", got)
		}
		if got := req.Header.Get("Api-Key"); got != "pc-test" {
			t.Fatalf("api key: got=%q", got)
		}
		if got := req.Header.Get("X-Pinecone-Api-Version"); got != DefaultAPIVersion {
			t.Fatalf("api version: want=%q got=%q", DefaultAPIVersion, got)
		}
		sc := bufio.NewScanner(req.Body)
		for sc.Scan() {
			var m map[string]any
			if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
				t.Fatalf("line decode: %v", err)
			}
			lines = append(lines, m)
		}
		return jsonResponse(http.StatusCreated, ""), nil
	})

	err := c.UpsertRecords(context.Background(), "idx.svc.pinecone.io", "", []Record{
		{ID: "doc_0", Fields: map[string]any{"chunk_text": "alpha", "document_id": "doc"}},
		{ID: "doc_1", Fields: map[string]any{"chunk_text": "beta", "document_id": "doc"}},
	})
	if err != nil {
		t.Fatalf("UpsertRecords: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("lines: want=2 got=%d", len(lines))
	}
	if lines[1]["_id"] != "doc_1" || lines[1]["chunk_text"] != "beta" {
		t.Fatalf("second record: got=%v", lines[1])
	}
}

func TestSearchRecordsDecodesHits(t *testing.T) {
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		if !strings.HasSuffix(req.URL.Path, "/records/namespaces/ns1/search") {
			t.Fatalf("path: got=%s", req.URL.Path)
		}
		var body map[string]any
		raw, _ := io.ReadAll(req.Body)
		if err := json.Unmarshal(raw, &body); err != nil {
			t.Fatalf("body decode: %v", err)
		}
		q := body["query"].(map[string]any)
		if q["top_k"].(float64) != 3 {
			t.Fatalf("top_k: want=3 got=%v", q["top_k"])
		}
		if q["inputs"].(map[string]any)["text"] != "grace period" {
			t.Fatalf("inputs: got=%v", q["inputs"])
		}
		if _, ok := q["filter"]; !ok {
			t.Fatalf("filter missing")
		}
		return jsonResponse(http.StatusOK, `{"result":{"hits":[
			{"_id":"doc_0","_score":0.91,"fields":{"chunk_text":"alpha","document_id":"doc"}},
			{"_id":"","_score":0.5,"fields":{}},
			{"_id":"doc_3","_score":0.42,"fields":{"chunk_text":"delta"}}
		]},"usage":{"read_units":1}}`), nil
	})

	hits, err := c.SearchRecords(context.Background(), "https://idx.example", "ns1", SearchRequest{
		Text:   "grace period",
		TopK:   3,
		Filter: map[string]any{"document_id": map[string]any{"$in": []string{"doc"}}},
	})
	if err != nil {
		t.Fatalf("SearchRecords: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("hits: want=2 got=%d", len(hits))
	}
	if hits[0].ID != "doc_0" || hits[0].Score != 0.91 || hits[0].Fields["chunk_text"] != "alpha" {
		t.Fatalf("first hit: got=%+v", hits[0])
	}
	if hits[1].ID != "doc_3" {
		t.Fatalf("order: want=doc_3 got=%s", hits[1].ID)
	}
}

func TestDeleteByFilterRequiresFilter(t *testing.T) {
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		t.Fatalf("unexpected request")
		return nil, nil
	})
	if err := c.DeleteByFilter(context.Background(), "idx", "", nil); err == nil {
		t.Fatalf("expected error for empty filter")
	}
}

func TestDeleteByFilterBody(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/vectors/delete" {
			t.Fatalf("path: got=%s", req.URL.Path)
		}
		raw, _ := io.ReadAll(req.Body)
		_ = json.Unmarshal(raw, &got)
		return jsonResponse(http.StatusOK, `{}`), nil
	})
	filter := map[string]any{"document_id": map[string]any{"$in": []any{"a", "b"}}}
	if err := c.DeleteByFilter(context.Background(), "idx", "", filter); err != nil {
		t.Fatalf("DeleteByFilter: %v", err)
	}
	if got["namespace"] != DefaultNamespace {
		t.Fatalf("namespace: want=%s got=%v", DefaultNamespace, got["namespace"])
	}
	if _, ok := got["filter"].(map[string]any)["document_id"]; !ok {
		t.Fatalf("filter: got=%v", got["filter"])
	}
}

func TestRetriesOnServerError(t *testing.T) {
	var calls int32
	log, _ := logger.New("development")
	c, err := New(log, Config{
		APIKey:     "k",
		MaxRetries: 2,
		HTTPClient: &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			n := atomic.AddInt32(&calls, 1)
			if n == 1 {
				resp := jsonResponse(http.StatusServiceUnavailable, `{"error":"busy"}`)
				resp.Header.Set("Retry-After", "0")
				return resp, nil
			}
			return jsonResponse(http.StatusOK, `{"result":{"hits":[]}}`), nil
		})},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	hits, err := c.SearchRecords(context.Background(), "idx", "", SearchRequest{Text: "anything"})
	if err != nil {
		t.Fatalf("SearchRecords: %v", err)
	}
	if len(hits) != 0 || atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("calls: want=2 got=%d", calls)
	}
}

func TestClientErrorNotRetried(t *testing.T) {
	var calls int32
	log, _ := logger.New("development")
	c, _ := New(log, Config{
		APIKey:     "k",
		MaxRetries: 3,
		HTTPClient: &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			atomic.AddInt32(&calls, 1)
			return jsonResponse(http.StatusBadRequest, `{"error":"bad filter"}`), nil
		})},
	})
	_, err := c.SearchRecords(context.Background(), "idx", "", SearchRequest{Text: "anything"})
	var httpErr *HTTPError
	if err == nil || !asHTTPError(err, &httpErr) || httpErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("want HTTPError 400, got=%v", err)
	}
	if calls != 1 {
		t.Fatalf("calls: want=1 got=%d", calls)
	}
}

func TestRecordMarshalFlattens(t *testing.T) {
	b, err := json.Marshal(Record{ID: "x_0", Fields: map[string]any{"chunk_id": 0}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !bytes.Contains(b, []byte(`"_id":"x_0"`)) || !bytes.Contains(b, []byte(`"chunk_id":0`)) {
		t.Fatalf("marshal: got=%s", b)
	}
}

func asHTTPError(err error, target **HTTPError) bool {
	return errors.As(err, target)
}

func TestNewRecordStoreCreatesMissingIndex(t *testing.T) {
	var created map[string]any
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		switch {
		case req.Method == http.MethodGet && req.URL.Path == "/indexes/policies":
			return jsonResponse(http.StatusNotFound, `{"error":{"code":"NOT_FOUND"}}`), nil
		case req.Method == http.MethodPost && req.URL.Path == "/indexes/create-for-model":
			raw, _ := io.ReadAll(req.Body)
			_ = json.Unmarshal(raw, &created)
			return jsonResponse(http.StatusCreated, `{"name":"policies","host":"policies-abc.svc.pinecone.io","status":{"ready":false}}`), nil
		}
		t.Fatalf("unexpected request %s %s", req.Method, req.URL.Path)
		return nil, nil
	})
	log, _ := logger.New("development")
	store, err := NewRecordStore(context.Background(), log, c, StoreConfig{
		IndexName:       "policies",
		CreateIfMissing: true,
		EmbeddingModel:  "llama-text-embed-v2",
	})
	if err != nil {
		t.Fatalf("NewRecordStore: %v", err)
	}
	if store.(*recordStore).indexHost != "policies-abc.svc.pinecone.io" {
		t.Fatalf("host: got=%s", store.(*recordStore).indexHost)
	}
	embed := created["embed"].(map[string]any)
	if embed["model"] != "llama-text-embed-v2" || embed["field_map"].(map[string]any)["text"] != "chunk_text" {
		t.Fatalf("create body: got=%v", created)
	}
}
