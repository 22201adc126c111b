package engine

import (
	"context"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/sanskar-502/Bajaj-Cloud/internal/domain"
	"github.com/sanskar-502/Bajaj-Cloud/internal/observability"
	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/logger"
)

const (
	minQuestionRunes = 10
	maxQuestionRunes = 500
)

// Answerer is implemented by Engine and by the caching decorator.
type Answerer interface {
	Answer(ctx context.Context, req domain.QueryRequest) (*domain.QueryResponse, error)
}

type Searcher interface {
	Search(ctx context.Context, query string, topK int, documentIDs []string) ([]domain.SearchResult, error)
}

type Synthesizer interface {
	Answer(ctx context.Context, question string, clauses []domain.ClauseInfo) (string, float64, error)
	LogicTree(ctx context.Context, question string, clauses []domain.ClauseInfo) *domain.LogicTree
}

type Config struct {
	DefaultTopK int
	Threshold   float64
}

type Engine struct {
	log    *logger.Logger
	search Searcher
	synth  Synthesizer
	cfg    Config
}

func New(log *logger.Logger, search Searcher, synth Synthesizer, cfg Config) *Engine {
	if cfg.DefaultTopK <= 0 {
		cfg.DefaultTopK = 5
	}
	return &Engine{
		log:    log.With("service", "QueryEngine"),
		search: search,
		synth:  synth,
		cfg:    cfg,
	}
}

// ValidateQuestion enforces 10 < runes < 500 on the trimmed question.
func ValidateQuestion(question string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(question))
	if n <= minQuestionRunes || n >= maxQuestionRunes {
		return domain.ErrInvalidQuery
	}
	return nil
}

// TopK resolves max_results: zero or negative selects the default, and the
// result is capped to the supported range.
func (e *Engine) TopK(maxResults int) int {
	if maxResults <= 0 {
		maxResults = e.cfg.DefaultTopK
	}
	if maxResults < domain.MinMaxResults {
		return domain.MinMaxResults
	}
	if maxResults > domain.MaxMaxResults {
		return domain.MaxMaxResults
	}
	return maxResults
}

func (e *Engine) Answer(ctx context.Context, req domain.QueryRequest) (resp *domain.QueryResponse, err error) {
	ctx, span := observability.Tracer().Start(ctx, "answering.Engine.Answer")
	defer span.End()

	outcome := "answered"
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			outcome = "error"
		}
		observability.Current().IncQueryOutcome(outcome)
	}()

	if err := ValidateQuestion(req.Question); err != nil {
		outcome = "invalid"
		return nil, err
	}
	question := strings.TrimSpace(req.Question)
	topK := e.TopK(req.MaxResults)

	results, err := e.search.Search(ctx, question, topK, req.DocumentIDs)
	if err != nil {
		return nil, err
	}

	kept := make([]domain.SearchResult, 0, len(results))
	for _, r := range results {
		if r.Score >= e.cfg.Threshold {
			kept = append(kept, r)
		}
	}
	span.SetAttributes(
		attribute.Int("top_k", topK),
		attribute.Int("retrieved", len(results)),
		attribute.Int("filtered", len(kept)),
	)
	if len(kept) == 0 {
		outcome = "no_evidence"
		e.log.Debug("No results above threshold", "retrieved", len(results), "threshold", e.cfg.Threshold)
		return noEvidenceResponse(), nil
	}

	clauses := ClausesFromResults(kept)
	answer, confidence, err := e.synth.Answer(ctx, question, clauses)
	if err != nil {
		return nil, err
	}

	var tree *domain.LogicTree
	if req.IncludeLogic {
		tree = e.synth.LogicTree(ctx, question, clauses)
		if tree == nil {
			e.log.Warn("Logic tree unavailable; returning answer without it")
		}
	}

	return &domain.QueryResponse{
		Answer:      answer,
		ClausesUsed: clauses,
		LogicTree:   tree,
		Confidence:  confidence,
		QueryIntent: domain.DefaultQueryIntent,
		Entities:    map[string]any{},
	}, nil
}

func noEvidenceResponse() *domain.QueryResponse {
	return &domain.QueryResponse{
		Answer:      domain.NoEvidenceAnswer,
		ClausesUsed: []domain.ClauseInfo{},
		Confidence:  0,
		QueryIntent: domain.DefaultQueryIntent,
		Entities:    map[string]any{},
	}
}

// ClausesFromResults maps search hits to evidence clauses.
func ClausesFromResults(results []domain.SearchResult) []domain.ClauseInfo {
	out := make([]domain.ClauseInfo, 0, len(results))
	for _, r := range results {
		out = append(out, domain.ClauseInfo{
			ClauseID:       metaString(r.Metadata, "id", ""),
			Title:          metaString(r.Metadata, "title", domain.UntitledSection),
			Text:           r.Content,
			DocumentID:     metaString(r.Metadata, "document_id", domain.UnknownDocument),
			Page:           metaInt(r.Metadata, "page"),
			RelevanceScore: r.Score,
		})
	}
	return out
}

func metaString(m map[string]any, key, def string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return def
	}
	s := strings.TrimSpace(fmt.Sprint(v))
	if s == "" {
		return def
	}
	return s
}

func metaInt(m map[string]any, key string) *int {
	var n int
	switch v := m[key].(type) {
	case int:
		n = v
	case int32:
		n = int(v)
	case int64:
		n = int(v)
	case float32:
		n = int(math.Round(float64(v)))
	case float64:
		n = int(math.Round(v))
	default:
		return nil
	}
	return &n
}
