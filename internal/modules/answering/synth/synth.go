package synth

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sanskar-502/Bajaj-Cloud/internal/domain"
	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/ctxutil"
	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/logger"
)

// NoAnswerSentinel is the exact phrase the model must use when the clauses
// do not answer the question.
const NoAnswerSentinel = "The provided documents do not contain a clear answer to this question."

// Completion is satisfied by both gemini.Client and openai.Client.
type Completion interface {
	GenerateText(ctx context.Context, system string, user string) (string, error)
	GenerateJSON(ctx context.Context, system string, user string, schemaName string, schema map[string]any) (map[string]any, error)
}

type Synthesizer struct {
	log        *logger.Logger
	completion Completion
	parser     ConfidenceParser
	timeout    time.Duration
}

// New builds a Synthesizer. A nil parser selects RegexConfidenceParser.
func New(log *logger.Logger, completion Completion, parser ConfidenceParser, timeout time.Duration) *Synthesizer {
	if parser == nil {
		parser = RegexConfidenceParser{}
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Synthesizer{
		log:        log.With("service", "AnswerSynthesizer"),
		completion: completion,
		parser:     parser,
		timeout:    timeout,
	}
}

const answerSystemPrompt = `You are a meticulous and precise policy analyst. Answer the user's question using only the context excerpts supplied with it.`

func clauseContext(clauses []domain.ClauseInfo) string {
	parts := make([]string, 0, len(clauses))
	for _, c := range clauses {
		parts = append(parts, fmt.Sprintf("Source Clause ID: %s\nClause Content:\n%s", c.ClauseID, c.Text))
	}
	return strings.Join(parts, "\n\n")
}

func answerPrompt(question string, clauses []domain.ClauseInfo) string {
	var b strings.Builder
	b.WriteString("Context from the documents:\n---\n")
	b.WriteString(clauseContext(clauses))
	b.WriteString("\n---\n\n")
	b.WriteString("Question: ")
	b.WriteString(question)
	b.WriteString("\n\nInstructions:\n")
	b.WriteString("1. Read the clauses carefully and find the exact answer.\n")
	b.WriteString("2. Pay close attention to waiting periods, monetary limits, percentages and conditions.\n")
	b.WriteString("3. Give a direct, unambiguous answer. Quote the document's exact phrasing for numbers, periods and conditions where possible.\n")
	b.WriteString("4. If the answer comes from a specific clause, cite its Source Clause ID.\n")
	b.WriteString("5. If the context does not contain the answer, respond with exactly: \"")
	b.WriteString(NoAnswerSentinel)
	b.WriteString("\" Do not use outside knowledge.\n")
	b.WriteString("6. After the answer, on a new line, give a confidence score from 0.0 to 1.0 reflecting how directly the context answers the question, formatted as `Confidence: <score>`.\n")
	return b.String()
}

// Answer asks the completion service for a grounded answer and splits off
// the trailing confidence score.
func (s *Synthesizer) Answer(ctx context.Context, question string, clauses []domain.ClauseInfo) (string, float64, error) {
	ctx, cancel := context.WithTimeout(ctxutil.Default(ctx), s.timeout)
	defer cancel()

	raw, err := s.completion.GenerateText(ctx, answerSystemPrompt, answerPrompt(question, clauses))
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", domain.ErrCompletionFailed, err)
	}
	answer, confidence := s.parser.ParseConfidence(raw)
	return answer, confidence, nil
}

const logicSystemPrompt = `You analyze a question against document clauses and produce a logic tree of the conditions needed to answer it.`

var logicTreeSchema = map[string]any{
	"type":                 "object",
	"additionalProperties": false,
	"required":             []any{"type", "conditions"},
	"properties": map[string]any{
		"type": map[string]any{
			"type": "string",
			"enum": []any{string(domain.LogicAnd), string(domain.LogicOr)},
		},
		"conditions": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"required":             []any{"condition", "is_met", "source_clause_id"},
				"properties": map[string]any{
					"condition":        map[string]any{"type": "string"},
					"is_met":           map[string]any{"type": "boolean"},
					"source_clause_id": map[string]any{"type": "string"},
				},
			},
		},
	},
}

func logicPrompt(question string, clauses []domain.ClauseInfo) string {
	parts := make([]string, 0, len(clauses))
	for _, c := range clauses {
		parts = append(parts, fmt.Sprintf("Clause ID: %s\nClause Text: %s", c.ClauseID, c.Text))
	}
	return fmt.Sprintf(
		"Question: %q\n\nClauses:\n---\n%s\n---\n\nIdentify the logical conditions required to answer the question. For each, decide whether the clauses meet it and cite the source clause ID. Combine the conditions with AND or OR.",
		question, strings.Join(parts, "\n\n"),
	)
}

// LogicTree returns nil on any failure; callers treat the tree as optional.
func (s *Synthesizer) LogicTree(ctx context.Context, question string, clauses []domain.ClauseInfo) *domain.LogicTree {
	ctx, cancel := context.WithTimeout(ctxutil.Default(ctx), s.timeout)
	defer cancel()

	obj, err := s.completion.GenerateJSON(ctx, logicSystemPrompt, logicPrompt(question, clauses), "logic_tree", logicTreeSchema)
	if err != nil {
		s.log.Warn("Logic tree completion failed", "error", fmt.Errorf("%w: %v", domain.ErrSynthesisDegraded, err))
		return nil
	}
	tree, err := decodeLogicTree(obj)
	if err != nil {
		s.log.Warn("Logic tree rejected", "error", fmt.Errorf("%w: %v", domain.ErrSynthesisDegraded, err))
		return nil
	}
	return tree
}

func decodeLogicTree(obj map[string]any) (*domain.LogicTree, error) {
	raw, err := json.Marshal(obj)
	if err != nil {
		return nil, err
	}
	var tree domain.LogicTree
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil, fmt.Errorf("decode logic tree: %w", err)
	}
	tree.Type = domain.LogicOperator(strings.ToUpper(strings.TrimSpace(string(tree.Type))))
	if tree.Type != domain.LogicAnd && tree.Type != domain.LogicOr {
		return nil, fmt.Errorf("invalid logic operator %q", tree.Type)
	}
	if tree.Conditions == nil {
		tree.Conditions = []domain.LogicCondition{}
	}
	return &tree, nil
}
