package observability

import (
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/logger"
)

var latencyBuckets = []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60}

type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *Gauge

	vectorOps       *CounterVec
	vectorLatency   *HistogramVec
	vectorBootstrap *CounterVec

	llmRequests *CounterVec
	llmLatency  *HistogramVec
	llmTokens   *CounterVec

	ingestJobs    *CounterVec
	ingestLatency *HistogramVec
	ingestChunks  *Counter
	queueDepth    *Gauge

	queryOutcomes *CounterVec
	queryCache    *CounterVec
}

var (
	initMu   sync.Mutex
	instance *Metrics
)

// Current returns the process metrics, or nil when metrics are disabled.
// Every Metrics method is nil-safe.
func Current() *Metrics {
	initMu.Lock()
	defer initMu.Unlock()
	return instance
}

func Init(log *logger.Logger, enabled bool) *Metrics {
	if !enabled {
		return nil
	}
	initMu.Lock()
	defer initMu.Unlock()
	if instance != nil {
		return instance
	}
	instance = newMetrics()
	if log != nil {
		log.Info("metrics enabled", "endpoint", "/metrics")
	}
	return instance
}

func newMetrics() *Metrics {
	return &Metrics{
		apiRequests: NewCounterVec("bc_api_requests_total", "Total API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency:  NewHistogramVec("bc_api_request_duration_seconds", "API request latency in seconds by method/route/status.", []string{"method", "route", "status"}, latencyBuckets),
		apiInflight: NewGauge("bc_api_inflight_requests", "In-flight API requests."),

		vectorOps:       NewCounterVec("bc_vector_store_operations_total", "Vector store operations by provider/operation/status.", []string{"provider", "operation", "status"}),
		vectorLatency:   NewHistogramVec("bc_vector_store_operation_duration_seconds", "Vector store operation latency in seconds.", []string{"provider", "operation", "status"}, latencyBuckets),
		vectorBootstrap: NewCounterVec("bc_vector_store_bootstrap_total", "Vector store provider bootstrap attempts by provider/status/code.", []string{"provider", "status", "code"}),

		llmRequests: NewCounterVec("bc_llm_requests_total", "LLM requests by provider/model/status.", []string{"provider", "model", "status"}),
		llmLatency:  NewHistogramVec("bc_llm_request_duration_seconds", "LLM request latency in seconds.", []string{"provider", "model", "status"}, latencyBuckets),
		llmTokens:   NewCounterVec("bc_llm_tokens_total", "LLM tokens by model and kind.", []string{"model", "kind"}),

		ingestJobs:    NewCounterVec("bc_ingest_jobs_total", "Document ingestion jobs by source/status.", []string{"source", "status"}),
		ingestLatency: NewHistogramVec("bc_ingest_job_duration_seconds", "Document ingestion latency in seconds.", []string{"source", "status"}, []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300, 900}),
		ingestChunks:  NewCounter("bc_ingest_chunks_total", "Chunks indexed across all documents."),
		queueDepth:    NewGauge("bc_ingest_queue_depth", "Jobs waiting in the ingestion queue."),

		queryOutcomes: NewCounterVec("bc_query_outcomes_total", "Answered queries by outcome.", []string{"outcome"}),
		queryCache:    NewCounterVec("bc_query_cache_total", "Answer cache lookups by result.", []string{"result"}),
	}
}

type promWriter interface {
	WritePrometheus(w io.Writer) error
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	all := []promWriter{
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.vectorOps, m.vectorLatency, m.vectorBootstrap,
		m.llmRequests, m.llmLatency, m.llmTokens,
		m.ingestJobs, m.ingestLatency, m.ingestChunks, m.queueDepth,
		m.queryOutcomes, m.queryCache,
	}
	for _, pw := range all {
		if err := pw.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	method = orDefault(method, "UNKNOWN")
	route = orDefault(route, "unknown")
	status = orDefault(status, "0")
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route, status)
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) ObserveVectorOp(provider, operation, status string, dur time.Duration) {
	if m == nil {
		return
	}
	provider = orDefault(provider, "unknown")
	operation = orDefault(operation, "unknown")
	status = orDefault(status, "unknown")
	m.vectorOps.Inc(provider, operation, status)
	m.vectorLatency.Observe(dur.Seconds(), provider, operation, status)
}

func (m *Metrics) ObserveVectorBootstrap(provider, status, code string) {
	if m == nil {
		return
	}
	m.vectorBootstrap.Inc(orDefault(provider, "unknown"), orDefault(status, "unknown"), orDefault(code, "none"))
}

func (m *Metrics) ObserveLLMRequest(provider, model, status string, dur time.Duration, inputTokens, outputTokens int) {
	if m == nil {
		return
	}
	provider = orDefault(provider, "unknown")
	model = orDefault(model, "unknown")
	status = orDefault(status, "0")
	m.llmRequests.Inc(provider, model, status)
	if dur > 0 {
		m.llmLatency.Observe(dur.Seconds(), provider, model, status)
	}
	if inputTokens > 0 {
		m.llmTokens.Add(float64(inputTokens), model, "input")
	}
	if outputTokens > 0 {
		m.llmTokens.Add(float64(outputTokens), model, "output")
	}
}

func (m *Metrics) ObserveIngestJob(source, status string, chunks int, dur time.Duration) {
	if m == nil {
		return
	}
	source = orDefault(source, "unknown")
	status = orDefault(status, "unknown")
	m.ingestJobs.Inc(source, status)
	m.ingestLatency.Observe(dur.Seconds(), source, status)
	if chunks > 0 {
		m.ingestChunks.Add(float64(chunks))
	}
}

func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}

func (m *Metrics) IncQueryOutcome(outcome string) {
	if m == nil {
		return
	}
	m.queryOutcomes.Inc(orDefault(outcome, "unknown"))
}

func (m *Metrics) IncQueryCache(result string) {
	if m == nil {
		return
	}
	m.queryCache.Inc(orDefault(result, "unknown"))
}

func orDefault(v, def string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return def
	}
	return v
}
