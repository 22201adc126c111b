package app

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/sanskar-502/Bajaj-Cloud/internal/data/db"
	"github.com/sanskar-502/Bajaj-Cloud/internal/data/repos"
	"github.com/sanskar-502/Bajaj-Cloud/internal/jobs/worker"
	"github.com/sanskar-502/Bajaj-Cloud/internal/modules/answering/engine"
	"github.com/sanskar-502/Bajaj-Cloud/internal/modules/answering/retriever"
	"github.com/sanskar-502/Bajaj-Cloud/internal/modules/answering/synth"
	"github.com/sanskar-502/Bajaj-Cloud/internal/modules/ingestion/chunker"
	"github.com/sanskar-502/Bajaj-Cloud/internal/modules/ingestion/extractor"
	"github.com/sanskar-502/Bajaj-Cloud/internal/modules/ingestion/pipeline"
	"github.com/sanskar-502/Bajaj-Cloud/internal/modules/ingestion/source"
	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/logger"
	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/qdrant"
)

type Services struct {
	DB        *db.Service
	Statuses  repos.DocumentStatusRepo
	Retriever *retriever.Retriever
	Pipeline  *pipeline.Pipeline
	Source    *source.Source
	// Engine answers without the cache; Answerer is the cached front used by /query.
	Engine   *engine.Engine
	Answerer engine.Answerer
	// Invalidator is nil unless the answer cache is enabled.
	Invalidator worker.CacheInvalidator
	Workers     *worker.Pool
}

func wireServices(ctx context.Context, log *logger.Logger, cfg Config, clients Clients) (Services, error) {
	log.Info("Wiring services...")
	var s Services

	if cfg.DocumentStore != repos.StoreMemory {
		dbs, err := db.Open(log, db.Config{Driver: cfg.DocumentStore, DSN: cfg.PostgresDSN, SQLitePath: cfg.SQLitePath})
		if err != nil {
			return Services{}, fmt.Errorf("init %s: %w", cfg.DocumentStore, err)
		}
		if err := dbs.AutoMigrateAll(); err != nil {
			_ = dbs.Close()
			return Services{}, fmt.Errorf("%s automigrate: %w", cfg.DocumentStore, err)
		}
		s.DB = dbs
	}
	statuses, err := repos.NewDocumentStatusRepoFor(cfg.DocumentStore, s.gormDB(), log)
	if err != nil {
		s.close()
		return Services{}, err
	}
	s.Statuses = statuses

	var embedder qdrant.Embedder
	if clients.OpenAI != nil {
		embedder = clients.OpenAI
	}
	store, err := resolveRecordStore(ctx, log, cfg, embedder, nil)
	if err != nil {
		s.close()
		return Services{}, err
	}
	s.Retriever = retriever.New(log, store, retriever.Config{
		Namespace: cfg.PineconeNamespace,
		Timeout:   cfg.RetrievalTimeout,
	})

	tok, err := newTokenizer(cfg.ChunkTokenizer)
	if err != nil {
		s.close()
		return Services{}, err
	}
	ex := extractor.New(log, clients.Media, newPDFOCR(log, cfg, clients))
	s.Pipeline = pipeline.New(log, ex, chunker.New(tok, cfg.ChunkSize, cfg.ChunkOverlap), s.Retriever)
	s.Source = source.New(log, clients.GcpBucket, source.Config{
		Timeout:  cfg.DownloadTimeout,
		MaxBytes: cfg.MaxFileBytes(),
	})

	syn := synth.New(log, clients.Completion, synth.RegexConfidenceParser{}, cfg.CompletionTimeout)
	s.Engine = engine.New(log, s.Retriever, syn, engine.Config{
		DefaultTopK: cfg.TopK,
		Threshold:   cfg.SimilarityThreshold,
	})
	s.Answerer = s.Engine
	if clients.Cache != nil {
		cached := engine.NewCachedAnswerer(log, s.Engine, clients.Cache, cfg.QueryCacheTTL)
		s.Answerer = cached
		s.Invalidator = cached
	}

	s.Workers = worker.NewPool(log, s.Pipeline, s.Statuses, s.Invalidator, worker.Config{
		Concurrency: cfg.WorkerConcurrency,
		QueueSize:   cfg.WorkerQueueSize,
		JobTimeout:  cfg.IngestTimeout,
	})
	return s, nil
}

func newTokenizer(name string) (chunker.Tokenizer, error) {
	if name == TokenizerRegex {
		return chunker.RegexTokenizer{}, nil
	}
	tok, err := chunker.NewPunktTokenizer()
	if err != nil {
		return nil, fmt.Errorf("init sentence tokenizer: %w", err)
	}
	return tok, nil
}

func newPDFOCR(log *logger.Logger, cfg Config, clients Clients) extractor.PDFOCR {
	switch {
	case cfg.OCRProvider == extractor.OCRVision && clients.GcpVision != nil:
		return extractor.NewVisionOCR(log, clients.Media, clients.GcpVision)
	case cfg.OCRProvider == extractor.OCRDocumentAI && clients.GcpDocument != nil:
		return extractor.NewDocumentAIOCR(log, clients.GcpDocument)
	default:
		return extractor.NewTesseractOCR(log, clients.Media, cfg.OCRLanguage)
	}
}

func (s *Services) gormDB() *gorm.DB {
	if s.DB == nil {
		return nil
	}
	return s.DB.DB()
}

func (s *Services) close() {
	if s.DB != nil {
		_ = s.DB.Close()
	}
}
