package synth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sanskar-502/Bajaj-Cloud/internal/domain"
	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/logger"
)

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

type fakeCompletion struct {
	text     string
	obj      map[string]any
	err      error
	system   string
	user     string
	schema   map[string]any
	deadline bool
}

func (f *fakeCompletion) GenerateText(ctx context.Context, system, user string) (string, error) {
	f.system, f.user = system, user
	_, f.deadline = ctx.Deadline()
	return f.text, f.err
}

func (f *fakeCompletion) GenerateJSON(ctx context.Context, system, user, name string, schema map[string]any) (map[string]any, error) {
	f.system, f.user, f.schema = system, user, schema
	return f.obj, f.err
}

var clauses = []domain.ClauseInfo{
	{ClauseID: "policy.pdf_3", Text: "A grace period of thirty days is provided for premium payment."},
	{ClauseID: "policy.pdf_7", Text: "Pre-existing diseases are covered after 36 months."},
}

func TestParseConfidence(t *testing.T) {
	p := RegexConfidenceParser{}
	cases := []struct {
		raw        string
		answer     string
		confidence float64
	}{
		{"Thirty days.\nConfidence: 0.92", "Thirty days.", 0.92},
		{"Thirty days.\nconfidence:.8\ntrailing", "Thirty days.", 0.8},
		{"Covered after 36 months. CONFIDENCE: 7", "Covered after 36 months.", 1},
		{"  No marker here.  ", "No marker here.", DefaultConfidence},
		{"Confidence: high", "Confidence: high", DefaultConfidence},
		{"A\nConfidence: 0.4\nConfidence: 0.9", "A", 0.4},
	}
	for _, tc := range cases {
		answer, conf := p.ParseConfidence(tc.raw)
		if answer != tc.answer || conf != tc.confidence {
			t.Fatalf("ParseConfidence(%q): want=(%q,%v) got=(%q,%v)", tc.raw, tc.answer, tc.confidence, answer, conf)
		}
	}
}

func TestAnswerPromptListsClauses(t *testing.T) {
	fc := &fakeCompletion{text: "According to policy.pdf_3, thirty days.\nConfidence: 0.9"}
	s := New(newTestLogger(t), fc, nil, time.Second)

	answer, conf, err := s.Answer(context.Background(), "What is the grace period?", clauses)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if answer != "According to policy.pdf_3, thirty days." || conf != 0.9 {
		t.Fatalf("Answer: got=(%q,%v)", answer, conf)
	}
	want := "Source Clause ID: policy.pdf_3\nClause Content:\nA grace period of thirty days is provided for premium payment.\n\nSource Clause ID: policy.pdf_7\nClause Content:\n"
	if !strings.Contains(fc.user, want) {
		t.Fatalf("prompt context missing:\n%s", fc.user)
	}
	if !strings.Contains(fc.user, NoAnswerSentinel) || !strings.Contains(fc.user, "Confidence: <score>") {
		t.Fatalf("prompt instructions missing:\n%s", fc.user)
	}
	if !fc.deadline {
		t.Fatalf("completion should run under a timeout")
	}
}

func TestAnswerPropagatesCompletionError(t *testing.T) {
	boom := errors.New("upstream 500")
	s := New(newTestLogger(t), &fakeCompletion{err: boom}, nil, time.Second)
	_, _, err := s.Answer(context.Background(), "What is the grace period?", clauses)
	if !errors.Is(err, domain.ErrCompletionFailed) || !strings.Contains(err.Error(), boom.Error()) {
		t.Fatalf("Answer error: want=ErrCompletionFailed got=%v", err)
	}
}

func TestLogicTreeDecodes(t *testing.T) {
	fc := &fakeCompletion{obj: map[string]any{
		"type": "and",
		"conditions": []any{
			map[string]any{"condition": "Premium paid within grace period", "is_met": true, "source_clause_id": "policy.pdf_3"},
		},
	}}
	s := New(newTestLogger(t), fc, nil, time.Second)
	tree := s.LogicTree(context.Background(), "Is the policy still active?", clauses)
	if tree == nil {
		t.Fatalf("LogicTree: want tree got nil")
	}
	if tree.Type != domain.LogicAnd || len(tree.Conditions) != 1 || !tree.Conditions[0].IsMet || tree.Conditions[0].SourceClauseID != "policy.pdf_3" {
		t.Fatalf("LogicTree: got=%+v", tree)
	}
	if fc.schema == nil {
		t.Fatalf("LogicTree should send a schema")
	}
}

func TestLogicTreeFailuresReturnNil(t *testing.T) {
	bad := []*fakeCompletion{
		{err: errors.New("timeout")},
		{obj: map[string]any{"type": "XOR", "conditions": []any{}}},
		{obj: map[string]any{"type": "OR", "conditions": "not a list"}},
	}
	for i, fc := range bad {
		s := New(newTestLogger(t), fc, nil, time.Second)
		if tree := s.LogicTree(context.Background(), "Is the policy still active?", clauses); tree != nil {
			t.Fatalf("case %d: want nil got=%+v", i, tree)
		}
	}
}
