package chunker

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"
)

// Tokenizer splits text into sentences. Returned sentences are trimmed and non-empty.
type Tokenizer interface {
	Sentences(text string) []string
}

// PunktTokenizer uses the English Punkt model.
type PunktTokenizer struct {
	tok *sentences.DefaultSentenceTokenizer
	mu  sync.Mutex
}

func NewPunktTokenizer() (*PunktTokenizer, error) {
	tok, err := english.NewSentenceTokenizer(nil)
	if err != nil {
		return nil, fmt.Errorf("load punkt model: %w", err)
	}
	return &PunktTokenizer{tok: tok}, nil
}

func (p *PunktTokenizer) Sentences(text string) []string {
	p.mu.Lock()
	raw := p.tok.Tokenize(text)
	p.mu.Unlock()

	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if t := strings.TrimSpace(s.Text); t != "" {
			out = append(out, t)
		}
	}
	return out
}

var sentenceEndRe = regexp.MustCompile(`[.!?]+["'”’)\]]*\s+`)

// RegexTokenizer ends a sentence at terminal punctuation followed by whitespace.
type RegexTokenizer struct{}

func (RegexTokenizer) Sentences(text string) []string {
	var out []string
	start := 0
	for _, loc := range sentenceEndRe.FindAllStringIndex(text, -1) {
		if t := strings.TrimSpace(text[start:loc[1]]); t != "" {
			out = append(out, t)
		}
		start = loc[1]
	}
	if t := strings.TrimSpace(text[start:]); t != "" {
		out = append(out, t)
	}
	return out
}
