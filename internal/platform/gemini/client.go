package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/sanskar-502/Bajaj-Cloud/internal/observability"
	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/ctxutil"
	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/envutil"
	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/httpx"
	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/logger"
	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/promptstyle"
)

type Client interface {
	GenerateText(ctx context.Context, system string, user string) (string, error)
	GenerateJSON(ctx context.Context, system string, user string, schemaName string, schema map[string]any) (map[string]any, error)
}

type Config struct {
	APIKey      string
	Model       string
	Temperature *float32
	MaxRetries  int
	HTTPClient  *http.Client
}

func ConfigFromEnv() Config {
	cfg := Config{
		APIKey:     envutil.String("GEMINI_API_KEY", ""),
		Model:      envutil.String("GEMINI_MODEL", "gemini-2.5-flash"),
		MaxRetries: envutil.Int("GEMINI_MAX_RETRIES", 3),
	}
	if raw := envutil.String("GEMINI_TEMPERATURE", "0"); raw != "off" {
		if f, err := strconv.ParseFloat(raw, 32); err == nil {
			cfg.Temperature = genai.Ptr(float32(f))
		}
	}
	return cfg
}

type client struct {
	log        *logger.Logger
	genai      *genai.Client
	model      string
	temp       *float32
	maxRetries int
}

func NewClient(ctx context.Context, log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("LLM_PROVIDER is gemini but GEMINI_API_KEY is missing")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	gc, err := genai.NewClient(ctxutil.Default(ctx), &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &client{
		log:        log.With("service", "GeminiClient"),
		genai:      gc,
		model:      cfg.Model,
		temp:       cfg.Temperature,
		maxRetries: max(cfg.MaxRetries, 0),
	}, nil
}

func (c *client) GenerateText(ctx context.Context, system string, user string) (string, error) {
	cfg := c.baseConfig(promptstyle.ApplySystem(system, "text"))
	text, err := c.generate(ctx, user, cfg)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("gemini returned empty text")
	}
	return text, nil
}

func (c *client) GenerateJSON(ctx context.Context, system string, user string, schemaName string, schema map[string]any) (map[string]any, error) {
	if schemaName == "" {
		return nil, errors.New("schemaName required")
	}
	if schema == nil {
		return nil, errors.New("schema required")
	}
	cfg := c.baseConfig(promptstyle.ApplySystem(system, "json"))
	cfg.ResponseMIMEType = "application/json"
	cfg.ResponseJsonSchema = schema

	text, err := c.generate(ctx, user, cfg)
	if err != nil {
		return nil, err
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(stripCodeFence(text)), &obj); err != nil {
		return nil, fmt.Errorf("failed to parse gemini JSON for %s: %w", schemaName, err)
	}
	return obj, nil
}

func (c *client) baseConfig(system string) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{Temperature: c.temp}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	return cfg
}

func (c *client) generate(ctx context.Context, user string, cfg *genai.GenerateContentConfig) (string, error) {
	ctx = ctxutil.Default(ctx)
	backoff := time.Second
	start := time.Now()
	for attempt := 0; ; attempt++ {
		resp, err := c.genai.Models.GenerateContent(ctx, c.model, genai.Text(user), cfg)
		if err == nil {
			in, out := 0, 0
			if resp.UsageMetadata != nil {
				in, out = int(resp.UsageMetadata.PromptTokenCount), int(resp.UsageMetadata.CandidatesTokenCount)
			}
			observability.Current().ObserveLLMRequest("gemini", c.model, "200", time.Since(start), in, out)
			return resp.Text(), nil
		}
		code := statusCode(err)
		retryable := httpx.IsRetryableError(err) || httpx.IsRetryableHTTPStatus(code)
		if !retryable || attempt >= c.maxRetries {
			observability.Current().ObserveLLMRequest("gemini", c.model, strconv.Itoa(code), time.Since(start), 0, 0)
			return "", fmt.Errorf("gemini generate: %w", err)
		}
		sleepFor := httpx.JitterSleep(backoff)
		c.log.Warn("Gemini request retrying", "attempt", attempt+1, "status", code, "sleep", sleepFor.String(), "error", err)
		if err := httpx.Sleep(ctx, sleepFor); err != nil {
			return "", err
		}
		backoff *= 2
	}
}

func statusCode(err error) int {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code
	}
	return 0
}

// stripCodeFence tolerates models that wrap JSON in ``` fences.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
