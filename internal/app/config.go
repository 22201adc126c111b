package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/sanskar-502/Bajaj-Cloud/internal/data/repos"
	"github.com/sanskar-502/Bajaj-Cloud/internal/modules/ingestion/extractor"
	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/envutil"
	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/logger"
	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/pinecone"
)

const (
	LLMProviderGemini = "gemini"
	LLMProviderOpenAI = "openai"

	TokenizerPunkt = "punkt"
	TokenizerRegex = "regex"
)

type Config struct {
	AppEnv  string
	LogMode string

	APIHost         string
	APIPort         int
	UploadDir       string
	MaxFileSizeMB   int
	ShutdownTimeout time.Duration
	MetricsEnabled  bool
	APIAuthToken    string
	APIJWTSecret    string
	ArchiveBucket   string

	ChunkSize           int
	ChunkOverlap        int
	ChunkTokenizer      string
	TopK                int
	SimilarityThreshold float64

	LLMProvider    string
	VectorProvider string
	OCRProvider    string
	OCRLanguage    string
	DocumentStore  string

	PineconeAPIKey         string
	PineconeIndexName      string
	PineconeIndexHost      string
	PineconeNamespace      string
	PineconeEmbeddingModel string
	PineconeCreateIndex    bool
	PineconeCloud          string
	PineconeRegion         string

	SQLitePath  string
	PostgresDSN string
	RedisAddr   string

	RetrievalTimeout  time.Duration
	CompletionTimeout time.Duration
	DownloadTimeout   time.Duration
	IngestTimeout     time.Duration
	QueryCacheTTL     time.Duration

	WorkerConcurrency      int
	WorkerQueueSize        int
	RunQuestionConcurrency int
}

func (c Config) MaxFileBytes() int64 {
	return int64(c.MaxFileSizeMB) * 1024 * 1024
}

// LoadConfig resolves settings from the process environment, then .env, then
// the YAML file named by CONFIG_FILE. Earlier sources win.
func LoadConfig(log *logger.Logger) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("Could not load .env", "error", err)
	}
	if path := envutil.String("CONFIG_FILE", ""); path != "" {
		n, err := applyYAMLOverlay(path)
		if err != nil {
			return Config{}, err
		}
		log.Info("Loaded config overlay", "path", path, "keys", n)
	}

	cfg := Config{
		AppEnv:  envutil.String("APP_ENV", "development"),
		LogMode: envutil.String("LOG_MODE", "development"),

		APIHost:         envutil.String("API_HOST", "0.0.0.0"),
		APIPort:         envutil.Int("API_PORT", 8000),
		UploadDir:       envutil.String("UPLOAD_DIR", "uploads"),
		MaxFileSizeMB:   envutil.Int("MAX_FILE_SIZE_MB", 50),
		ShutdownTimeout: envutil.Seconds("SHUTDOWN_TIMEOUT_SECONDS", 30*time.Second),
		MetricsEnabled:  envutil.Bool("METRICS_ENABLED", true),
		APIAuthToken:    envutil.String("API_AUTH_TOKEN", ""),
		APIJWTSecret:    envutil.String("API_JWT_SECRET", ""),
		ArchiveBucket:   envutil.String("ARCHIVE_BUCKET", ""),

		ChunkSize:           envutil.Int("CHUNK_SIZE", 1000),
		ChunkOverlap:        envutil.Int("CHUNK_OVERLAP", 200),
		ChunkTokenizer:      strings.ToLower(envutil.String("CHUNK_TOKENIZER", TokenizerPunkt)),
		TopK:                envutil.Int("TOP_K_RESULTS", 5),
		SimilarityThreshold: envutil.Float("SIMILARITY_THRESHOLD", 0.5),

		LLMProvider:    strings.ToLower(envutil.String("LLM_PROVIDER", LLMProviderGemini)),
		VectorProvider: strings.ToLower(envutil.String("VECTOR_PROVIDER", string(VectorProviderPinecone))),
		OCRProvider:    strings.ToLower(envutil.String("OCR_PROVIDER", extractor.OCRTesseract)),
		OCRLanguage:    envutil.String("OCR_LANGUAGE", "eng"),
		DocumentStore:  strings.ToLower(envutil.String("DOCUMENT_STORE", repos.StoreMemory)),

		PineconeAPIKey:         envutil.String("PINECONE_API_KEY", ""),
		PineconeIndexName:      envutil.String("PINECONE_INDEX_NAME", ""),
		PineconeIndexHost:      envutil.String("PINECONE_INDEX_HOST", ""),
		PineconeNamespace:      envutil.String("PINECONE_NAMESPACE", pinecone.DefaultNamespace),
		PineconeEmbeddingModel: envutil.String("PINECONE_EMBEDDING_MODEL", "llama-text-embed-v2"),
		PineconeCreateIndex:    envutil.Bool("PINECONE_CREATE_INDEX", false),
		PineconeCloud:          envutil.String("PINECONE_CLOUD", "aws"),
		PineconeRegion:         envutil.String("PINECONE_REGION", "us-east-1"),

		SQLitePath:  envutil.String("SQLITE_PATH", "data/documents.db"),
		PostgresDSN: envutil.String("POSTGRES_DSN", ""),
		RedisAddr:   envutil.String("REDIS_ADDR", ""),

		RetrievalTimeout:  envutil.Seconds("RETRIEVAL_TIMEOUT_SECONDS", 30*time.Second),
		CompletionTimeout: envutil.Seconds("COMPLETION_TIMEOUT_SECONDS", 120*time.Second),
		DownloadTimeout:   envutil.Seconds("DOWNLOAD_TIMEOUT_SECONDS", 60*time.Second),
		IngestTimeout:     envutil.Seconds("INGEST_TIMEOUT_SECONDS", 900*time.Second),
		QueryCacheTTL:     envutil.Seconds("QUERY_CACHE_TTL_SECONDS", 300*time.Second),

		WorkerConcurrency:      envutil.Int("WORKER_CONCURRENCY", 4),
		WorkerQueueSize:        envutil.Int("WORKER_QUEUE_SIZE", 64),
		RunQuestionConcurrency: envutil.Int("RUN_QUESTION_CONCURRENCY", 4),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyYAMLOverlay exports the flat KEY: value pairs in path into the
// environment, skipping keys that are already set.
func applyYAMLOverlay(path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read CONFIG_FILE: %w", err)
	}
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return 0, fmt.Errorf("parse CONFIG_FILE %s: %w", path, err)
	}
	applied := 0
	for key, val := range doc {
		key = strings.ToUpper(strings.TrimSpace(key))
		if key == "" || envutil.IsSet(key) {
			continue
		}
		s, ok := scalarString(val)
		if !ok {
			return applied, fmt.Errorf("CONFIG_FILE key %s: expected a scalar value", key)
		}
		if err := os.Setenv(key, s); err != nil {
			return applied, err
		}
		applied++
	}
	return applied, nil
}

func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", true
	case string:
		return t, true
	case bool:
		return strconv.FormatBool(t), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	default:
		return "", false
	}
}

func (c Config) Validate() error {
	var errs []error
	if c.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("CHUNK_SIZE must be positive, got %d", c.ChunkSize))
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		errs = append(errs, fmt.Errorf("CHUNK_OVERLAP must be in [0, CHUNK_SIZE), got %d", c.ChunkOverlap))
	}
	if c.SimilarityThreshold < 0 || c.SimilarityThreshold > 1 {
		errs = append(errs, fmt.Errorf("SIMILARITY_THRESHOLD must be in [0,1], got %v", c.SimilarityThreshold))
	}
	if c.TopK < 1 || c.TopK > 20 {
		errs = append(errs, fmt.Errorf("TOP_K_RESULTS must be in [1,20], got %d", c.TopK))
	}
	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("API_PORT out of range: %d", c.APIPort))
	}
	if c.MaxFileSizeMB <= 0 {
		errs = append(errs, fmt.Errorf("MAX_FILE_SIZE_MB must be positive, got %d", c.MaxFileSizeMB))
	}
	switch c.LLMProvider {
	case LLMProviderGemini, LLMProviderOpenAI:
	default:
		errs = append(errs, fmt.Errorf("unknown LLM_PROVIDER %q", c.LLMProvider))
	}
	switch VectorProvider(c.VectorProvider) {
	case VectorProviderPinecone, VectorProviderQdrant, VectorProviderMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown VECTOR_PROVIDER %q", c.VectorProvider))
	}
	switch c.OCRProvider {
	case extractor.OCRTesseract, extractor.OCRVision, extractor.OCRDocumentAI:
	default:
		errs = append(errs, fmt.Errorf("unknown OCR_PROVIDER %q", c.OCRProvider))
	}
	switch c.DocumentStore {
	case repos.StoreMemory, repos.StoreSQLite:
	case repos.StorePostgres:
		if c.PostgresDSN == "" {
			errs = append(errs, fmt.Errorf("POSTGRES_DSN is required when DOCUMENT_STORE=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown DOCUMENT_STORE %q", c.DocumentStore))
	}
	switch c.ChunkTokenizer {
	case TokenizerPunkt, TokenizerRegex:
	default:
		errs = append(errs, fmt.Errorf("unknown CHUNK_TOKENIZER %q", c.ChunkTokenizer))
	}
	return errors.Join(errs...)
}
