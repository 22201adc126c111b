package pinecone

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/ctxutil"
	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/httpx"
	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/logger"
)

const (
	DefaultAPIVersion = "2025-10"
	DefaultNamespace  = "__default__"
	maxErrorBodyBytes = 2048
)

type Client interface {
	DescribeIndex(ctx context.Context, indexName string) (*IndexDescription, error)
	CreateIndexForModel(ctx context.Context, req CreateIndexForModelRequest) (*IndexDescription, error)
	UpsertRecords(ctx context.Context, host, namespace string, records []Record) error
	SearchRecords(ctx context.Context, host, namespace string, req SearchRequest) ([]Hit, error)
	DeleteByFilter(ctx context.Context, host, namespace string, filter map[string]any) error
}

type Config struct {
	APIKey     string
	APIVersion string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	// HTTPClient overrides the default client; tests inject a fake transport here.
	HTTPClient *http.Client
}

type client struct {
	log  *logger.Logger
	cfg  Config
	http *http.Client
}

// HTTPError is returned for non-2xx responses.
type HTTPError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("pinecone %s http %d: %s", e.Op, e.StatusCode, e.Body)
}

func (e *HTTPError) HTTPStatusCode() int { return e.StatusCode }

func New(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing Pinecone API key")
	}
	if strings.TrimSpace(cfg.APIVersion) == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://api.pinecone.io"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	return &client{
		log:  log.With("client", "PineconeClient"),
		cfg:  cfg,
		http: hc,
	}, nil
}

// -------------------- Control plane --------------------

type IndexDescription struct {
	Name      string `json:"name"`
	Host      string `json:"host"`
	Dimension int    `json:"dimension"`
	Metric    string `json:"metric"`
	Status    struct {
		Ready bool   `json:"ready"`
		State string `json:"state"`
	} `json:"status"`
	Embed *struct {
		Model    string            `json:"model"`
		FieldMap map[string]string `json:"field_map"`
	} `json:"embed,omitempty"`
}

func (c *client) DescribeIndex(ctx context.Context, indexName string) (*IndexDescription, error) {
	indexName = strings.TrimSpace(indexName)
	if indexName == "" {
		return nil, fmt.Errorf("indexName required")
	}
	u := strings.TrimRight(c.cfg.BaseURL, "/") + "/indexes/" + indexName
	raw, err := c.do(ctx, "describe_index", http.MethodGet, u, "", nil)
	if err != nil {
		return nil, err
	}
	var out IndexDescription
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("pinecone describe_index decode: %w", err)
	}
	if strings.TrimSpace(out.Host) == "" {
		return nil, fmt.Errorf("pinecone describe_index returned empty host")
	}
	return &out, nil
}

type CreateIndexForModelRequest struct {
	Name   string `json:"name"`
	Cloud  string `json:"cloud"`
	Region string `json:"region"`
	Embed  struct {
		Model    string            `json:"model"`
		FieldMap map[string]string `json:"field_map"`
	} `json:"embed"`
}

// CreateIndexForModel creates a serverless index with integrated embedding.
func (c *client) CreateIndexForModel(ctx context.Context, req CreateIndexForModelRequest) (*IndexDescription, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("index name required")
	}
	if strings.TrimSpace(req.Embed.Model) == "" {
		return nil, fmt.Errorf("embedding model required")
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("pinecone create_index encode: %w", err)
	}
	u := strings.TrimRight(c.cfg.BaseURL, "/") + "/indexes/create-for-model"
	raw, err := c.do(ctx, "create_index_for_model", http.MethodPost, u, "application/json", payload)
	if err != nil {
		return nil, err
	}
	var out IndexDescription
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("pinecone create_index decode: %w", err)
	}
	return &out, nil
}

// -------------------- Data plane --------------------

func (c *client) UpsertRecords(ctx context.Context, host, namespace string, records []Record) error {
	host = strings.TrimSpace(host)
	if host == "" {
		return fmt.Errorf("host required")
	}
	if len(records) == 0 {
		return nil
	}
	// The records endpoint takes newline-delimited JSON, one record per line.
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, r := range records {
		if strings.TrimSpace(r.ID) == "" {
			return fmt.Errorf("record id required")
		}
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("pinecone upsert encode: %w", err)
		}
	}
	u := dataURL(host) + "/records/namespaces/" + url.PathEscape(nsOrDefault(namespace)) + "/upsert"
	_, err := c.do(ctx, "upsert_records", http.MethodPost, u, "application/x-ndjson", buf.Bytes())
	return err
}

type searchBody struct {
	Query struct {
		Inputs map[string]string `json:"inputs"`
		TopK   int               `json:"top_k"`
		Filter map[string]any    `json:"filter,omitempty"`
	} `json:"query"`
	Fields []string `json:"fields,omitempty"`
}

type searchResponse struct {
	Result struct {
		Hits []struct {
			ID     string         `json:"_id"`
			Score  float64        `json:"_score"`
			Fields map[string]any `json:"fields"`
		} `json:"hits"`
	} `json:"result"`
}

func (c *client) SearchRecords(ctx context.Context, host, namespace string, req SearchRequest) ([]Hit, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return nil, fmt.Errorf("host required")
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, fmt.Errorf("search text required")
	}
	if req.TopK <= 0 {
		req.TopK = 10
	}

	var body searchBody
	body.Query.Inputs = map[string]string{"text": req.Text}
	body.Query.TopK = req.TopK
	if len(req.Filter) > 0 {
		body.Query.Filter = req.Filter
	}
	body.Fields = req.Fields

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("pinecone search encode: %w", err)
	}
	u := dataURL(host) + "/records/namespaces/" + url.PathEscape(nsOrDefault(namespace)) + "/search"
	raw, err := c.do(ctx, "search_records", http.MethodPost, u, "application/json", payload)
	if err != nil {
		return nil, err
	}

	var out searchResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("pinecone search decode: %w", err)
	}
	hits := make([]Hit, 0, len(out.Result.Hits))
	for _, h := range out.Result.Hits {
		if strings.TrimSpace(h.ID) == "" {
			continue
		}
		hits = append(hits, Hit{ID: h.ID, Score: h.Score, Fields: h.Fields})
	}
	return hits, nil
}

func (c *client) DeleteByFilter(ctx context.Context, host, namespace string, filter map[string]any) error {
	host = strings.TrimSpace(host)
	if host == "" {
		return fmt.Errorf("host required")
	}
	if len(filter) == 0 {
		return fmt.Errorf("delete filter required")
	}
	payload, err := json.Marshal(map[string]any{
		"filter":    filter,
		"namespace": nsOrDefault(namespace),
	})
	if err != nil {
		return fmt.Errorf("pinecone delete encode: %w", err)
	}
	_, err = c.do(ctx, "delete", http.MethodPost, dataURL(host)+"/vectors/delete", "application/json", payload)
	return err
}

// -------------------- helpers --------------------

func (c *client) do(ctx context.Context, op, method, endpoint, contentType string, body []byte) ([]byte, error) {
	ctx = ctxutil.Default(ctx)
	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		raw, resp, err := c.doOnce(ctx, op, method, endpoint, contentType, body)
		if err == nil {
			return raw, nil
		}
		lastErr = err
		if attempt == c.cfg.MaxRetries || !httpx.IsRetryableError(err) {
			break
		}
		backoff := httpx.JitterSleep(time.Duration(attempt+1) * 500 * time.Millisecond)
		backoff = httpx.RetryAfterDuration(resp, backoff, 10*time.Second)
		c.log.Warn("pinecone request retrying", "op", op, "attempt", attempt+1, "backoff", backoff.String(), "error", err)
		if err := httpx.Sleep(ctx, backoff); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

func (c *client) doOnce(ctx context.Context, op, method, endpoint, contentType string, body []byte) ([]byte, *http.Response, error) {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, rdr)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Api-Key", c.cfg.APIKey)
	req.Header.Set("X-Pinecone-Api-Version", c.cfg.APIVersion)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := string(raw)
		if len(msg) > maxErrorBodyBytes {
			msg = msg[:maxErrorBodyBytes] + "..."
		}
		return nil, resp, &HTTPError{Op: op, StatusCode: resp.StatusCode, Body: msg}
	}
	return raw, resp, nil
}

func dataURL(host string) string {
	if strings.HasPrefix(host, "http://") || strings.HasPrefix(host, "https://") {
		return strings.TrimRight(host, "/")
	}
	return "https://" + strings.TrimRight(host, "/")
}

func nsOrDefault(ns string) string {
	ns = strings.TrimSpace(ns)
	if ns == "" {
		return DefaultNamespace
	}
	return ns
}
