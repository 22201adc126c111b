package extractor

import (
	"context"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/sanskar-502/Bajaj-Cloud/internal/domain"
	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/ctxutil"
	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/localmedia"
	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/logger"
)

// MinNativePDFText is the rune count at or below which a PDF text layer is
// treated as missing and OCR runs instead.
const MinNativePDFText = 100

type Result struct {
	Text      string
	PageCount *int
}

type Extractor struct {
	Log   *logger.Logger
	Media localmedia.Tools
	OCR   PDFOCR
}

func New(log *logger.Logger, media localmedia.Tools, ocr PDFOCR) *Extractor {
	return &Extractor{
		Log:   log.With("service", "TextExtractor"),
		Media: media,
		OCR:   ocr,
	}
}

// Extract reads the raw text of the file at path. The text is not cleaned.
func (e *Extractor) Extract(ctx context.Context, path string, format Format) (*Result, error) {
	ctx = ctxutil.Default(ctx)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrExtractionFailed, err)
	}

	switch format {
	case FormatPDF:
		return e.extractPDF(ctx, path)
	case FormatDOCX:
		return extractDOCX(path)
	case FormatPPTX:
		return extractPPTX(path)
	case FormatTXT:
		return extractTXT(path)
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, string(format))
	}
}

func (e *Extractor) extractPDF(ctx context.Context, path string) (*Result, error) {
	text, pages, nativeErr := readPDFText(path)
	if nativeErr != nil && e.Media != nil {
		e.Log.Warn("Native PDF reader failed, trying pdftotext", "file", path, "error", nativeErr)
		text, pages, nativeErr = e.popplerText(ctx, path)
	}
	if nativeErr == nil && utf8.RuneCountInString(strings.TrimSpace(text)) > MinNativePDFText {
		return &Result{Text: text, PageCount: intPtr(pages)}, nil
	}
	if nativeErr != nil {
		e.Log.Warn("PDF text layer unavailable, using OCR", "file", path, "error", nativeErr)
	} else {
		e.Log.Info("PDF text layer too short, using OCR", "file", path, "runes", utf8.RuneCountInString(strings.TrimSpace(text)))
	}

	if e.OCR == nil {
		return nil, fmt.Errorf("%w: no OCR engine configured (native: %v)", domain.ErrExtractionFailed, nativeErr)
	}
	ocrText, ocrPages, ocrErr := e.OCR.OCRPDF(ctx, path)
	if ocrErr != nil {
		return nil, fmt.Errorf("%w: all PDF processing methods failed for %s: native=%v ocr=%v", domain.ErrExtractionFailed, baseName(path), nativeErr, ocrErr)
	}
	if strings.TrimSpace(ocrText) == "" {
		return nil, fmt.Errorf("%w: OCR processing resulted in empty text for %s", domain.ErrExtractionFailed, baseName(path))
	}
	return &Result{Text: strings.TrimSpace(ocrText), PageCount: intPtr(ocrPages)}, nil
}

func (e *Extractor) popplerText(ctx context.Context, path string) (string, int, error) {
	text, err := e.Media.PDFToText(ctx, path)
	if err != nil {
		return "", 0, err
	}
	pages, err := e.Media.CountPDFPages(ctx, path)
	if err != nil {
		e.Log.Warn("pdfinfo failed", "file", path, "error", err)
		pages = 0
	}
	return text, pages, nil
}

func extractTXT(path string) (*Result, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read txt: %v", domain.ErrExtractionFailed, err)
	}
	return &Result{Text: strings.ToValidUTF8(string(raw), "")}, nil
}

// Clean collapses every whitespace run to one space and trims the ends.
func Clean(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

func intPtr(n int) *int {
	if n <= 0 {
		return nil
	}
	return &n
}

func baseName(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}
