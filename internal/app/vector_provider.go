package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	neturl "net/url"
	"strings"

	"github.com/sanskar-502/Bajaj-Cloud/internal/observability"
	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/envutil"
	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/logger"
	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/pinecone"
	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/qdrant"
)

type VectorProvider string

const (
	VectorProviderPinecone VectorProvider = "pinecone"
	VectorProviderQdrant   VectorProvider = "qdrant"
	VectorProviderMemory   VectorProvider = "memory"
)

var (
	newPineconeClient      = pinecone.New
	newPineconeRecordStore = pinecone.NewRecordStore
	newQdrantRecordStore   = qdrant.NewRecordStore
	resolveQdrantConfig    = qdrant.ResolveConfigFromEnv
)

type VectorProviderBootstrapErrorCode string

const (
	VectorProviderBootstrapErrorInvalidProvider     VectorProviderBootstrapErrorCode = "invalid_provider"
	VectorProviderBootstrapErrorMissingAPIKey       VectorProviderBootstrapErrorCode = "missing_api_key"
	VectorProviderBootstrapErrorMissingIndex        VectorProviderBootstrapErrorCode = "missing_index"
	VectorProviderBootstrapErrorMissingEmbedder     VectorProviderBootstrapErrorCode = "missing_embedder"
	VectorProviderBootstrapErrorMissingQdrantURL    VectorProviderBootstrapErrorCode = "missing_qdrant_url"
	VectorProviderBootstrapErrorInvalidQdrantURL    VectorProviderBootstrapErrorCode = "invalid_qdrant_url"
	VectorProviderBootstrapErrorMissingQdrantColl   VectorProviderBootstrapErrorCode = "missing_qdrant_collection"
	VectorProviderBootstrapErrorMissingQdrantVector VectorProviderBootstrapErrorCode = "missing_qdrant_vector_dim"
	VectorProviderBootstrapErrorInvalidQdrantVector VectorProviderBootstrapErrorCode = "invalid_qdrant_vector_dim"
	VectorProviderBootstrapErrorQdrantConfigFailed  VectorProviderBootstrapErrorCode = "qdrant_config_failed"
	VectorProviderBootstrapErrorConnectFailed       VectorProviderBootstrapErrorCode = "connect_failed"
	VectorProviderBootstrapErrorProviderInitFailed  VectorProviderBootstrapErrorCode = "provider_init_failed"
)

type VectorProviderBootstrapError struct {
	Code     VectorProviderBootstrapErrorCode
	Provider string
	Cause    error
}

func (e *VectorProviderBootstrapError) Error() string {
	if e == nil {
		return "vector provider bootstrap failed"
	}
	return fmt.Sprintf("vector provider bootstrap failed (code=%s provider=%q): %v", e.Code, e.Provider, e.Cause)
}

func (e *VectorProviderBootstrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// resolveRecordStore builds the store named by VECTOR_PROVIDER and wraps it
// with per-operation metrics. embedder is only consulted for qdrant.
func resolveRecordStore(ctx context.Context, log *logger.Logger, cfg Config, embedder qdrant.Embedder, httpClient *http.Client) (pinecone.RecordStore, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.VectorProvider))
	metrics := observability.Current()

	fail := func(err error) (pinecone.RecordStore, error) {
		code := vectorProviderBootstrapErrorCode(err)
		if metrics != nil {
			metrics.ObserveVectorBootstrap(provider, "error", string(code))
		}
		log.Error("Vector store provider bootstrap failed", "provider", provider, "error_code", code, "error", err)
		return nil, err
	}

	log.Info("Selecting vector store provider", "provider", provider, "namespace", cfg.PineconeNamespace)

	var store pinecone.RecordStore
	switch VectorProvider(provider) {
	case VectorProviderMemory:
		store = pinecone.NewMemoryRecordStore(qdrant.DefaultTextField)

	case VectorProviderQdrant:
		qcfg, err := resolveQdrantConfig()
		if err != nil {
			return fail(classifyVectorProviderBootstrapError(provider, err))
		}
		if embedder == nil {
			return fail(&VectorProviderBootstrapError{
				Code:     VectorProviderBootstrapErrorMissingEmbedder,
				Provider: provider,
				Cause:    errors.New("qdrant requires OPENAI_API_KEY for embeddings"),
			})
		}
		log.Info("Qdrant settings", "qdrant_url", qcfg.URL, "qdrant_collection", qcfg.Collection, "qdrant_vector_dim", qcfg.VectorDim)
		store, err = newQdrantRecordStore(ctx, log, qcfg, embedder, httpClient)
		if err != nil {
			return fail(classifyVectorProviderBootstrapError(provider, err))
		}

	case VectorProviderPinecone:
		if strings.TrimSpace(cfg.PineconeAPIKey) == "" {
			return fail(&VectorProviderBootstrapError{
				Code:     VectorProviderBootstrapErrorMissingAPIKey,
				Provider: provider,
				Cause:    errors.New("PINECONE_API_KEY is required when VECTOR_PROVIDER=pinecone"),
			})
		}
		if strings.TrimSpace(cfg.PineconeIndexName) == "" && strings.TrimSpace(cfg.PineconeIndexHost) == "" {
			return fail(&VectorProviderBootstrapError{
				Code:     VectorProviderBootstrapErrorMissingIndex,
				Provider: provider,
				Cause:    errors.New("PINECONE_INDEX_NAME or PINECONE_INDEX_HOST is required"),
			})
		}
		pc, err := newPineconeClient(log, pinecone.Config{
			APIKey:     cfg.PineconeAPIKey,
			APIVersion: envutil.String("PINECONE_API_VERSION", ""),
			BaseURL:    envutil.String("PINECONE_BASE_URL", ""),
			Timeout:    cfg.RetrievalTimeout,
			MaxRetries: envutil.Int("PINECONE_MAX_RETRIES", 3),
			HTTPClient: httpClient,
		})
		if err != nil {
			return fail(classifyVectorProviderBootstrapError(provider, err))
		}
		store, err = newPineconeRecordStore(ctx, log, pc, pinecone.StoreConfig{
			IndexName:       cfg.PineconeIndexName,
			IndexHost:       cfg.PineconeIndexHost,
			CreateIfMissing: cfg.PineconeCreateIndex,
			EmbeddingModel:  cfg.PineconeEmbeddingModel,
			Cloud:           cfg.PineconeCloud,
			Region:          cfg.PineconeRegion,
			TextField:       qdrant.DefaultTextField,
		})
		if err != nil {
			return fail(classifyVectorProviderBootstrapError(provider, err))
		}

	default:
		return fail(&VectorProviderBootstrapError{
			Code:     VectorProviderBootstrapErrorInvalidProvider,
			Provider: provider,
			Cause:    fmt.Errorf("unsupported vector provider %q", provider),
		})
	}

	if metrics != nil {
		metrics.ObserveVectorBootstrap(provider, "success", "none")
	}
	return instrumentRecordStore(provider, store), nil
}

func classifyVectorProviderBootstrapError(provider string, err error) error {
	var already *VectorProviderBootstrapError
	if errors.As(err, &already) {
		return err
	}
	wrap := func(code VectorProviderBootstrapErrorCode) error {
		return &VectorProviderBootstrapError{Code: code, Provider: provider, Cause: err}
	}

	var cfgErr *qdrant.ConfigError
	if errors.As(err, &cfgErr) {
		switch cfgErr.Code {
		case qdrant.ConfigErrorMissingURL:
			return wrap(VectorProviderBootstrapErrorMissingQdrantURL)
		case qdrant.ConfigErrorInvalidURL:
			return wrap(VectorProviderBootstrapErrorInvalidQdrantURL)
		case qdrant.ConfigErrorMissingCollection:
			return wrap(VectorProviderBootstrapErrorMissingQdrantColl)
		case qdrant.ConfigErrorMissingVectorDim:
			return wrap(VectorProviderBootstrapErrorMissingQdrantVector)
		case qdrant.ConfigErrorInvalidVectorDim:
			return wrap(VectorProviderBootstrapErrorInvalidQdrantVector)
		default:
			return wrap(VectorProviderBootstrapErrorQdrantConfigFailed)
		}
	}

	var urlErr *neturl.Error
	if errors.As(err, &urlErr) {
		return wrap(VectorProviderBootstrapErrorConnectFailed)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return wrap(VectorProviderBootstrapErrorConnectFailed)
	}
	errLower := strings.ToLower(err.Error())
	if strings.Contains(errLower, "ready check failed") || strings.Contains(errLower, "connection refused") {
		return wrap(VectorProviderBootstrapErrorConnectFailed)
	}
	return wrap(VectorProviderBootstrapErrorProviderInitFailed)
}

func vectorProviderBootstrapErrorCode(err error) VectorProviderBootstrapErrorCode {
	var bootstrapErr *VectorProviderBootstrapError
	if errors.As(err, &bootstrapErr) && bootstrapErr.Code != "" {
		return bootstrapErr.Code
	}
	return VectorProviderBootstrapErrorConnectFailed
}
