package extractor

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sanskar-502/Bajaj-Cloud/internal/domain"
)

// Format is the closed set of document formats the extractor can read.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
	FormatPPTX Format = "pptx"
	FormatTXT  Format = "txt"
)

// ParseFormat maps a file name's extension to a Format, case-insensitively.
func ParseFormat(filename string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(filename)))
	switch ext {
	case ".pdf":
		return FormatPDF, nil
	case ".docx":
		return FormatDOCX, nil
	case ".pptx":
		return FormatPPTX, nil
	case ".txt":
		return FormatTXT, nil
	default:
		if ext == "" {
			ext = "(none)"
		}
		return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, ext)
	}
}

// Ext returns the canonical file extension, including the dot.
func (f Format) Ext() string { return "." + string(f) }
