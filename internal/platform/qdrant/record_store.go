package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/ctxutil"
	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/logger"
	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/pinecone"
)

const (
	payloadNamespaceKey = "_bc_namespace"
	payloadRecordIDKey  = "_bc_record_id"
	maxErrorBodyBytes   = 1024
)

var pointIDNamespaceUUID = uuid.MustParse("6b1d7f0e-93a2-4c57-9d0e-2f7c51a8e4b3")

// Embedder turns record text into dense vectors; the OpenAI client satisfies it.
type Embedder interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

type recordStore struct {
	log      *logger.Logger
	cfg      Config
	embedder Embedder
	baseURL  string
	nsPrefix string
	distance string
	http     *http.Client
}

type qdrantEnvelope struct {
	Result json.RawMessage `json:"result"`
	Status json.RawMessage `json:"status"`
	Time   float64         `json:"time"`
}

type qdrantSearchResultItem struct {
	ID      json.RawMessage `json:"id"`
	Score   float64         `json:"score"`
	Payload map[string]any  `json:"payload"`
}

// NewRecordStore builds a Qdrant-backed pinecone.RecordStore and verifies the
// collection exists with the configured vector size. httpClient may be nil.
func NewRecordStore(ctx context.Context, log *logger.Logger, cfg Config, embedder Embedder, httpClient *http.Client) (pinecone.RecordStore, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder required")
	}
	if err := ValidateConfig(cfg, true); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.TextField) == "" {
		cfg.TextField = DefaultTextField
	}
	if strings.TrimSpace(cfg.NamespacePrefix) == "" {
		cfg.NamespacePrefix = DefaultNamespacePrefix
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}

	s := &recordStore{
		log:      log.With("service", "QdrantRecordStore"),
		cfg:      cfg,
		embedder: embedder,
		baseURL:  strings.TrimRight(cfg.URL, "/"),
		nsPrefix: strings.TrimSpace(cfg.NamespacePrefix),
		http:     httpClient,
	}
	if err := s.verifyReady(ctx); err != nil {
		return nil, err
	}

	log.Info(
		"Qdrant record store selected",
		"provider", "qdrant",
		"url", s.baseURL,
		"collection", cfg.Collection,
		"namespace_prefix", s.nsPrefix,
		"vector_dim", cfg.VectorDim,
		"distance", s.distance,
	)
	return s, nil
}

func (s *recordStore) UpsertRecords(ctx context.Context, namespace string, records []pinecone.Record) error {
	if s == nil {
		return fmt.Errorf("record store unavailable")
	}
	const op = "upsert"
	if len(records) == 0 {
		return nil
	}

	texts := make([]string, 0, len(records))
	for _, r := range records {
		if strings.TrimSpace(r.ID) == "" {
			return opErr(op, OperationErrorValidation, "record id is required", nil)
		}
		text, _ := r.Fields[s.cfg.TextField].(string)
		if strings.TrimSpace(text) == "" {
			return opErr(op, OperationErrorValidation, fmt.Sprintf("record %q has empty %s", r.ID, s.cfg.TextField), nil)
		}
		texts = append(texts, text)
	}
	vectors, err := s.embed(ctx, op, texts)
	if err != nil {
		return err
	}

	qualifiedNS := s.qualifyNamespace(namespace)
	points := make([]map[string]any, 0, len(records))
	for i, r := range records {
		payload := clonePayload(r.Fields)
		payload[payloadNamespaceKey] = qualifiedNS
		payload[payloadRecordIDKey] = r.ID
		points = append(points, map[string]any{
			"id":      s.pointID(qualifiedNS, r.ID),
			"vector":  vectors[i],
			"payload": payload,
		})
	}
	return s.doJSON(ctx, op, http.MethodPut, s.collectionPath("/points?wait=true"), map[string]any{"points": points}, nil)
}

func (s *recordStore) SearchRecords(ctx context.Context, namespace string, req pinecone.SearchRequest) ([]pinecone.Hit, error) {
	if s == nil {
		return nil, fmt.Errorf("record store unavailable")
	}
	const op = "search"
	if strings.TrimSpace(req.Text) == "" {
		return nil, opErr(op, OperationErrorValidation, "search text required", nil)
	}
	topK := req.TopK
	if topK <= 0 {
		topK = 10
	}

	qualifiedNS := s.qualifyNamespace(namespace)
	filter, err := namespacedFilter(qualifiedNS, req.Filter)
	if err != nil {
		var typed *OperationError
		if errors.As(err, &typed) && typed.Code == OperationErrorUnsupportedFilter {
			s.log.Warn("qdrant search filter unsupported", "namespace", qualifiedNS, "error", err)
		}
		return nil, err
	}
	vectors, err := s.embed(ctx, op, []string{req.Text})
	if err != nil {
		return nil, err
	}

	body := map[string]any{
		"vector":       vectors[0],
		"limit":        topK,
		"with_payload": true,
		"with_vector":  false,
		"filter":       filter,
	}
	var raw []qdrantSearchResultItem
	if err := s.doJSON(ctx, op, http.MethodPost, s.collectionPath("/points/search"), body, &raw); err != nil {
		return nil, err
	}

	out := make([]pinecone.Hit, 0, len(raw))
	for _, item := range raw {
		id := extractRecordID(item)
		if id == "" {
			continue
		}
		out = append(out, pinecone.Hit{
			ID:     id,
			Score:  s.normalizeScore(item.Score),
			Fields: selectFields(item.Payload, req.Fields),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, nil
}

func (s *recordStore) DeleteByFilter(ctx context.Context, namespace string, filter map[string]any) error {
	if s == nil {
		return fmt.Errorf("record store unavailable")
	}
	const op = "delete"
	if len(filter) == 0 {
		return opErr(op, OperationErrorValidation, "delete filter required", nil)
	}
	translated, err := namespacedFilter(s.qualifyNamespace(namespace), filter)
	if err != nil {
		return err
	}
	return s.doJSON(ctx, op, http.MethodPost, s.collectionPath("/points/delete?wait=true"), map[string]any{"filter": translated}, nil)
}

func (s *recordStore) embed(ctx context.Context, op string, texts []string) ([][]float32, error) {
	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, opErr(op, OperationErrorEmbedFailed, "embed failed", err)
	}
	if len(vectors) != len(texts) {
		return nil, opErr(op, OperationErrorEmbedFailed, fmt.Sprintf("embedder returned %d vectors for %d inputs", len(vectors), len(texts)), nil)
	}
	for _, v := range vectors {
		if len(v) != s.cfg.VectorDim {
			return nil, opErr(op, OperationErrorValidation, fmt.Sprintf("embedding dimension mismatch: expected=%d got=%d", s.cfg.VectorDim, len(v)), nil)
		}
	}
	return vectors, nil
}

func (s *recordStore) verifyReady(ctx context.Context) error {
	const op = "bootstrap_verify"

	var result struct {
		Config struct {
			Params struct {
				Vectors struct {
					Size     int    `json:"size"`
					Distance string `json:"distance"`
				} `json:"vectors"`
			} `json:"params"`
		} `json:"config"`
	}
	if err := s.doJSON(ctx, op, http.MethodGet, s.collectionPath(""), nil, &result); err != nil {
		return err
	}
	size := result.Config.Params.Vectors.Size
	if size != 0 && size != s.cfg.VectorDim {
		return &OperationError{
			Code:      OperationErrorValidation,
			Operation: op,
			Message:   fmt.Sprintf("qdrant collection %q vector size mismatch: expected=%d actual=%d", s.cfg.Collection, s.cfg.VectorDim, size),
		}
	}
	s.distance = strings.TrimSpace(result.Config.Params.Vectors.Distance)
	return nil
}

func (s *recordStore) doJSON(ctx context.Context, op, method, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(in); err != nil {
			return opErr(op, OperationErrorEncodeFailed, "encode request failed", err)
		}
		body = &buf
	}

	req, err := http.NewRequestWithContext(ctxutil.Default(ctx), method, s.baseURL+path, body)
	if err != nil {
		return opErr(op, OperationErrorTransportFailed, "build request failed", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.APIKey != "" {
		req.Header.Set("api-key", s.cfg.APIKey)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return classifyHTTPCallError(op, "qdrant request failed", err)
	}
	defer resp.Body.Close()

	raw, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return opErr(op, OperationErrorDecodeFailed, "read response failed", readErr)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &OperationError{
			Code:       OperationErrorRequestFailed,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("qdrant http status=%d body=%q", resp.StatusCode, truncateBody(raw)),
		}
	}

	var envelope qdrantEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return opErr(op, OperationErrorDecodeFailed, "decode qdrant envelope failed", err)
	}
	if statusErr := parseEnvelopeStatus(envelope.Status); statusErr != "" {
		return &OperationError{
			Code:       OperationErrorRequestFailed,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    statusErr,
		}
	}
	if out == nil || len(envelope.Result) == 0 || string(envelope.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return opErr(op, OperationErrorDecodeFailed, "decode qdrant result failed", err)
	}
	return nil
}

func classifyHTTPCallError(op, message string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return opErr(op, OperationErrorTimeout, message, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return opErr(op, OperationErrorTimeout, message, err)
	}
	return opErr(op, OperationErrorTransportFailed, message, err)
}

func parseEnvelopeStatus(raw json.RawMessage) string {
	status := strings.TrimSpace(string(raw))
	if status == "" || status == "null" {
		return ""
	}
	var statusString string
	if err := json.Unmarshal(raw, &statusString); err == nil {
		if strings.EqualFold(statusString, "ok") || strings.EqualFold(statusString, "acknowledged") || strings.EqualFold(statusString, "completed") {
			return ""
		}
		return fmt.Sprintf("qdrant status=%q", statusString)
	}
	var statusObject struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &statusObject); err == nil && strings.TrimSpace(statusObject.Error) != "" {
		return strings.TrimSpace(statusObject.Error)
	}
	return fmt.Sprintf("qdrant status=%s", status)
}

func truncateBody(raw []byte) string {
	if len(raw) <= maxErrorBodyBytes {
		return string(raw)
	}
	return string(raw[:maxErrorBodyBytes]) + "..."
}

func clonePayload(in map[string]any) map[string]any {
	out := make(map[string]any, len(in)+2)
	for k, v := range in {
		out[k] = v
	}
	return out
}

// selectFields strips internal payload keys and, when fields is non-empty,
// keeps only the requested ones.
func selectFields(payload map[string]any, fields []string) map[string]any {
	out := make(map[string]any, len(payload))
	if len(fields) == 0 {
		for k, v := range payload {
			if k == payloadNamespaceKey || k == payloadRecordIDKey {
				continue
			}
			out[k] = v
		}
		return out
	}
	for _, f := range fields {
		if v, ok := payload[f]; ok {
			out[f] = v
		}
	}
	return out
}

func (s *recordStore) qualifyNamespace(namespace string) string {
	ns := strings.TrimSpace(namespace)
	if ns == "" {
		ns = pinecone.DefaultNamespace
	}
	return s.nsPrefix + ":" + ns
}

func (s *recordStore) pointID(qualifiedNS, recordID string) string {
	return uuid.NewSHA1(pointIDNamespaceUUID, []byte(qualifiedNS+"|"+recordID)).String()
}

func (s *recordStore) collectionPath(suffix string) string {
	return "/collections/" + s.cfg.Collection + suffix
}

func extractRecordID(item qdrantSearchResultItem) string {
	if id, ok := item.Payload[payloadRecordIDKey].(string); ok && strings.TrimSpace(id) != "" {
		return strings.TrimSpace(id)
	}
	return decodePointID(item.ID)
}

func decodePointID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var idString string
	if err := json.Unmarshal(raw, &idString); err == nil {
		return strings.TrimSpace(idString)
	}
	var idNumber int64
	if err := json.Unmarshal(raw, &idNumber); err == nil {
		return fmt.Sprintf("%d", idNumber)
	}
	return strings.TrimSpace(string(raw))
}

func (s *recordStore) normalizeScore(score float64) float64 {
	switch strings.ToLower(s.distance) {
	case "euclid", "manhattan":
		if score < 0 {
			score = -score
		}
		return 1.0 / (1.0 + score)
	default:
		return score
	}
}
