package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sanskar-502/Bajaj-Cloud/internal/domain"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestExpandPatterns(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "a.pdf"))
	touch(t, filepath.Join(dir, "nested", "b.docx"))
	touch(t, filepath.Join(dir, "nested", "drafts", "c.pdf"))
	touch(t, filepath.Join(dir, "notes.md"))

	pattern := filepath.ToSlash(dir) + "/**/*"
	got, err := expandPatterns([]string{pattern, filepath.Join(dir, "a.pdf")}, []string{"**/drafts/**"})
	if err != nil {
		t.Fatalf("expandPatterns: %v", err)
	}
	want := []string{filepath.Join(dir, "a.pdf"), filepath.Join(dir, "nested", "b.docx")}
	if len(got) != len(want) {
		t.Fatalf("expandPatterns: want=%v got=%v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expandPatterns[%d]: want=%s got=%s", i, want[i], got[i])
		}
	}
}

func TestExpandPatternsInvalid(t *testing.T) {
	if _, err := expandPatterns([]string{"docs/[.pdf"}, nil); err == nil {
		t.Fatalf("expandPatterns: expected error for bad pattern")
	}
}

func TestPrintAnswer(t *testing.T) {
	page := 4
	var buf bytes.Buffer
	printAnswer(&buf, &domain.QueryResponse{
		Answer:     "The grace period is thirty days.",
		Confidence: 0.9,
		ClausesUsed: []domain.ClauseInfo{
			{ClauseID: "doc1.pdf_chunk_3", DocumentID: "doc1.pdf", Page: &page, RelevanceScore: 0.81},
		},
	})
	out := buf.String()
	for _, want := range []string{"thirty days", "Confidence: 0.90", "[1] doc1.pdf_chunk_3 (doc1.pdf p.4) score=0.810"} {
		if !strings.Contains(out, want) {
			t.Fatalf("printAnswer: missing %q in %q", want, out)
		}
	}
}

func TestCommandsRegistered(t *testing.T) {
	for _, name := range []string{"serve", "ingest", "ask"} {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Fatalf("command %s not registered: %v", name, err)
		}
	}
}
