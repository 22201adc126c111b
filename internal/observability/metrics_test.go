package observability

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestHistogramExposition(t *testing.T) {
	h := NewHistogramVec("bc_test_seconds", "test", []string{"op"}, []float64{0.1, 1})
	h.Observe(0.05, "search")
	h.Observe(0.5, "search")
	h.Observe(5, "search")

	var buf bytes.Buffer
	if err := h.WritePrometheus(&buf); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`bc_test_seconds_bucket{op="search",le="0.1"} 1`,
		`bc_test_seconds_bucket{op="search",le="1"} 2`,
		`bc_test_seconds_bucket{op="search",le="+Inf"} 3`,
		`bc_test_seconds_count{op="search"} 3`,
		"# TYPE bc_test_seconds histogram",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("exposition missing %q:\n%s", want, out)
		}
	}
}

func TestLabelEscaping(t *testing.T) {
	got := labelString([]string{"route"}, []string{`a"b`})
	if got != `{route="a\"b"}` {
		t.Fatalf("labelString: got=%s", got)
	}
	if got := labelString([]string{"a", "b"}, []string{"x"}); got != `{a="x",b="unknown"}` {
		t.Fatalf("labelString missing value: got=%s", got)
	}
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/", "200", time.Millisecond)
	m.ObserveVectorOp("pinecone", "search", "ok", time.Millisecond)
	m.ObserveIngestJob("upload", "ready", 3, time.Second)
	m.IncQueryOutcome("answered")
	if err := m.WritePrometheus(&bytes.Buffer{}); err != nil {
		t.Fatalf("nil WritePrometheus: %v", err)
	}
}

func TestMetricsRecordsDomainSeries(t *testing.T) {
	m := newMetrics()
	m.ObserveVectorOp("pinecone", "search", "ok", 20*time.Millisecond)
	m.ObserveIngestJob("upload", "ready", 7, 2*time.Second)
	m.IncQueryCache("hit")

	if got := m.vectorOps.Value("pinecone", "search", "ok"); got != 1 {
		t.Fatalf("vector ops: want=1 got=%v", got)
	}
	if got := m.ingestChunks.Value(); got != 7 {
		t.Fatalf("ingest chunks: want=7 got=%v", got)
	}
	var buf bytes.Buffer
	_ = m.WritePrometheus(&buf)
	if !strings.Contains(buf.String(), `bc_query_cache_total{result="hit"} 1`) {
		t.Fatalf("cache series missing:\n%s", buf.String())
	}
}
