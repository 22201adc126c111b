package synth

import (
	"regexp"
	"strconv"
	"strings"
)

const DefaultConfidence = 0.5

type ConfidenceParser interface {
	ParseConfidence(raw string) (answer string, confidence float64)
}

var confidenceRe = regexp.MustCompile(`(?i)Confidence:\s*([0-9]*\.?[0-9]+)`)

// RegexConfidenceParser takes the first "Confidence: <n>" marker; the answer
// is everything before it.
type RegexConfidenceParser struct{}

func (RegexConfidenceParser) ParseConfidence(raw string) (string, float64) {
	loc := confidenceRe.FindStringSubmatchIndex(raw)
	if loc == nil {
		return strings.TrimSpace(raw), DefaultConfidence
	}
	v, err := strconv.ParseFloat(raw[loc[2]:loc[3]], 64)
	if err != nil {
		return strings.TrimSpace(raw), DefaultConfidence
	}
	return strings.TrimSpace(raw[:loc[0]]), clamp01(v)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
