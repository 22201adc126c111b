package domain

import "errors"

var (
	ErrUnsupportedFormat    = errors.New("unsupported file format")
	ErrFileTooLarge         = errors.New("file too large")
	ErrExtractionFailed     = errors.New("text extraction failed")
	ErrInvalidQuery         = errors.New("query must be between 10 and 500 characters")
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")
	ErrDownloadFailed       = errors.New("document download failed")
	ErrSynthesisDegraded    = errors.New("synthesis degraded")
	ErrCompletionFailed     = errors.New("answer generation failed")
	ErrNotFound             = errors.New("not found")
)
