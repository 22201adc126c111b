package extractor

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/gcp"
	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/localmedia"
	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/logger"
)

const (
	OCRTesseract  = "tesseract"
	OCRVision     = "vision"
	OCRDocumentAI = "documentai"
)

// PDFOCR recovers text from a scanned PDF. It returns the text and the page count.
type PDFOCR interface {
	OCRPDF(ctx context.Context, path string) (string, int, error)
}

type imageOCRFunc func(ctx context.Context, imagePath string) (string, error)

// pageOCR renders every page with pdftoppm and recognizes each image in turn.
type pageOCR struct {
	log   *logger.Logger
	media localmedia.Tools
	dpi   int
	ocr   imageOCRFunc
	name  string
}

func NewTesseractOCR(log *logger.Logger, media localmedia.Tools, lang string) PDFOCR {
	return &pageOCR{
		log:   log.With("service", "TesseractOCR"),
		media: media,
		dpi:   300,
		name:  OCRTesseract,
		ocr: func(ctx context.Context, imagePath string) (string, error) {
			return media.OCRImage(ctx, imagePath, lang)
		},
	}
}

func NewVisionOCR(log *logger.Logger, media localmedia.Tools, vision gcp.Vision) PDFOCR {
	return &pageOCR{
		log:   log.With("service", "VisionOCR"),
		media: media,
		dpi:   200,
		name:  OCRVision,
		ocr: func(ctx context.Context, imagePath string) (string, error) {
			img, err := os.ReadFile(imagePath)
			if err != nil {
				return "", err
			}
			return vision.OCRImageBytes(ctx, img)
		},
	}
}

func (o *pageOCR) OCRPDF(ctx context.Context, path string) (string, int, error) {
	dir, err := os.MkdirTemp("", "bc-ocr-*")
	if err != nil {
		return "", 0, fmt.Errorf("ocr temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	images, err := o.media.RenderPDFToImages(ctx, path, dir, localmedia.PDFRenderOptions{DPI: o.dpi, Format: "png"})
	if err != nil {
		return "", 0, fmt.Errorf("render pdf: %w", err)
	}
	parts := make([]string, 0, len(images))
	for i, img := range images {
		if err := ctx.Err(); err != nil {
			return "", 0, err
		}
		text, err := o.ocr(ctx, img)
		if err != nil {
			return "", 0, fmt.Errorf("%s page %d: %w", o.name, i+1, err)
		}
		parts = append(parts, text)
	}
	o.log.Info("OCR complete", "engine", o.name, "pages", len(images))
	return strings.TrimSpace(strings.Join(parts, " ")), len(images), nil
}

type documentAIOCR struct {
	log *logger.Logger
	doc gcp.Document
}

func NewDocumentAIOCR(log *logger.Logger, doc gcp.Document) PDFOCR {
	return &documentAIOCR{log: log.With("service", "DocumentAIOCR"), doc: doc}
}

func (o *documentAIOCR) OCRPDF(ctx context.Context, path string) (string, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", 0, fmt.Errorf("read pdf: %w", err)
	}
	res, err := o.doc.ProcessBytes(ctx, data, "application/pdf")
	if err != nil {
		return "", 0, err
	}
	return res.Text, res.PageCount, nil
}
