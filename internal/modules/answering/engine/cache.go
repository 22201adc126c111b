package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sanskar-502/Bajaj-Cloud/internal/domain"
	"github.com/sanskar-502/Bajaj-Cloud/internal/observability"
	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/logger"
	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/rediscache"
)

// generationKey holds a counter bumped whenever indexed content changes.
// Every answer key embeds the counter value it was computed under.
const generationKey = "query:generation"

// CachedAnswerer serves repeated questions from Redis. Only successful
// responses that cite at least one clause are stored, and cache errors never
// fail a request.
type CachedAnswerer struct {
	log   *logger.Logger
	next  Answerer
	cache rediscache.Cache
	ttl   time.Duration
	topK  func(int) int
}

func NewCachedAnswerer(log *logger.Logger, next *Engine, cache rediscache.Cache, ttl time.Duration) *CachedAnswerer {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedAnswerer{
		log:   log.With("service", "QueryCache"),
		next:  next,
		cache: cache,
		ttl:   ttl,
		topK:  next.TopK,
	}
}

func (c *CachedAnswerer) Answer(ctx context.Context, req domain.QueryRequest) (*domain.QueryResponse, error) {
	if ValidateQuestion(req.Question) != nil {
		return c.next.Answer(ctx, req)
	}
	gen, err := c.generation(ctx)
	if err != nil {
		c.log.Warn("Query cache generation read failed", "error", err)
		observability.Current().IncQueryCache("bypass")
		return c.next.Answer(ctx, req)
	}
	key := CacheKey(req, c.topK(req.MaxResults), gen)

	raw, ok, err := c.cache.Get(ctx, key)
	switch {
	case err != nil:
		c.log.Warn("Query cache read failed", "error", err)
	case ok:
		var resp domain.QueryResponse
		if err := json.Unmarshal(raw, &resp); err == nil {
			observability.Current().IncQueryCache("hit")
			return &resp, nil
		}
		c.log.Warn("Query cache entry unreadable", "key", key)
	}
	observability.Current().IncQueryCache("miss")

	resp, err := c.next.Answer(ctx, req)
	if err != nil {
		return nil, err
	}
	// A no-evidence answer can turn into a real one once indexing finishes.
	if len(resp.ClausesUsed) == 0 {
		return resp, nil
	}
	if b, err := json.Marshal(resp); err == nil {
		if err := c.cache.Set(ctx, key, b, c.ttl); err != nil {
			c.log.Warn("Query cache write failed", "error", err)
		}
	}
	return resp, nil
}

// Invalidate retires every cached answer. It is called when documentID
// becomes searchable or is removed.
func (c *CachedAnswerer) Invalidate(ctx context.Context, documentID string) error {
	gen, err := c.cache.Incr(ctx, generationKey)
	if err != nil {
		return fmt.Errorf("invalidate query cache: %w", err)
	}
	c.log.Debug("Query cache invalidated", "document_id", documentID, "generation", gen)
	return nil
}

func (c *CachedAnswerer) generation(ctx context.Context) (int64, error) {
	raw, ok, err := c.cache.Get(ctx, generationKey)
	if err != nil || !ok {
		return 0, err
	}
	gen, err := strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse cache generation %q: %w", raw, err)
	}
	return gen, nil
}

// CacheKey hashes the normalized request (question, sorted document ids,
// effective top-k, logic flag) together with the cache generation.
func CacheKey(req domain.QueryRequest, topK int, generation int64) string {
	ids := make([]string, 0, len(req.DocumentIDs))
	for _, id := range req.DocumentIDs {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	norm := struct {
		Q     string   `json:"q"`
		Docs  []string `json:"d"`
		TopK  int      `json:"k"`
		Logic bool     `json:"l"`
		Gen   int64    `json:"g"`
	}{
		Q:     strings.ToLower(strings.Join(strings.Fields(req.Question), " ")),
		Docs:  ids,
		TopK:  topK,
		Logic: req.IncludeLogic,
		Gen:   generation,
	}
	b, _ := json.Marshal(norm)
	sum := sha256.Sum256(b)
	return "query:" + hex.EncodeToString(sum[:])
}
