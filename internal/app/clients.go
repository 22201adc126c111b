package app

import (
	"context"
	"fmt"

	"github.com/sanskar-502/Bajaj-Cloud/internal/modules/answering/synth"
	"github.com/sanskar-502/Bajaj-Cloud/internal/modules/ingestion/extractor"
	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/envutil"
	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/gcp"
	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/gemini"
	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/localmedia"
	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/logger"
	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/openai"
	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/rediscache"
)

// Clients holds the external clients. Optional ones are nil when not configured.
type Clients struct {
	Completion  synth.Completion
	OpenAI      openai.Client
	Media       localmedia.Tools
	GcpBucket   gcp.BucketService
	GcpVision   gcp.Vision
	GcpDocument gcp.Document
	Cache       rediscache.Cache
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	var c Clients

	c.Media = localmedia.New(log, localmedia.ConfigFromEnv())

	// OpenAI backs completions when selected and embeddings for qdrant.
	if cfg.LLMProvider == LLMProviderOpenAI || VectorProvider(cfg.VectorProvider) == VectorProviderQdrant {
		oc, err := openai.NewClient(log, openai.ConfigFromEnv())
		if err != nil {
			return Clients{}, fmt.Errorf("init openai client: %w", err)
		}
		c.OpenAI = oc
	}

	switch cfg.LLMProvider {
	case LLMProviderOpenAI:
		c.Completion = c.OpenAI
	default:
		gc, err := gemini.NewClient(ctx, log, gemini.ConfigFromEnv())
		if err != nil {
			return Clients{}, fmt.Errorf("init gemini client: %w", err)
		}
		c.Completion = gc
	}

	// Gcs
	if cfg.ArchiveBucket != "" || envutil.Bool("GCS_SOURCE_ENABLED", false) {
		bucket, err := gcp.NewBucketService(ctx, log)
		if err != nil {
			c.Close()
			return Clients{}, fmt.Errorf("init bucket client: %w", err)
		}
		c.GcpBucket = bucket
	}

	// Gcp OCR
	switch cfg.OCRProvider {
	case extractor.OCRVision:
		vision, err := gcp.NewVision(ctx, log)
		if err != nil {
			c.Close()
			return Clients{}, fmt.Errorf("init vision client: %w", err)
		}
		c.GcpVision = vision
	case extractor.OCRDocumentAI:
		document, err := gcp.NewDocument(ctx, log, gcp.DocumentConfigFromEnv())
		if err != nil {
			c.Close()
			return Clients{}, fmt.Errorf("init document client: %w", err)
		}
		c.GcpDocument = document
	}

	// Redis
	if cfg.RedisAddr != "" {
		rcfg := rediscache.ConfigFromEnv()
		rcfg.Addr = cfg.RedisAddr
		cache, err := rediscache.New(ctx, log, rcfg)
		if err != nil {
			c.Close()
			return Clients{}, fmt.Errorf("init redis cache: %w", err)
		}
		c.Cache = cache
	}

	return c, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Cache != nil {
		_ = c.Cache.Close()
	}
	if c.GcpDocument != nil {
		_ = c.GcpDocument.Close()
	}
	if c.GcpVision != nil {
		_ = c.GcpVision.Close()
	}
	if c.GcpBucket != nil {
		_ = c.GcpBucket.Close()
	}
}
