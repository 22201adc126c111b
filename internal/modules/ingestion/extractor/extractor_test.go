package extractor

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sanskar-502/Bajaj-Cloud/internal/domain"
	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/localmedia"
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

type fakeMedia struct {
	text      string
	textErr   error
	pages     int
	rendered  int
	ocrByPage map[string]string
	renderDir string
}

func (f *fakeMedia) AssertReady(ctx context.Context, binaries ...string) error { return nil }

func (f *fakeMedia) CountPDFPages(ctx context.Context, pdfPath string) (int, error) {
	return f.pages, nil
}

func (f *fakeMedia) PDFToText(ctx context.Context, pdfPath string) (string, error) {
	return f.text, f.textErr
}

func (f *fakeMedia) RenderPDFToImages(ctx context.Context, pdfPath string, outDir string, opts localmedia.PDFRenderOptions) ([]string, error) {
	f.renderDir = outDir
	var out []string
	for i := 1; i <= f.rendered; i++ {
		p := filepath.Join(outDir, fmt.Sprintf("page-%d.png", i))
		if err := os.WriteFile(p, []byte("png"), 0o644); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeMedia) OCRImage(ctx context.Context, imagePath string, lang string) (string, error) {
	return f.ocrByPage[filepath.Base(imagePath)], nil
}

type fakeOCR struct {
	text  string
	pages int
	err   error
	calls int
}

func (f *fakeOCR) OCRPDF(ctx context.Context, path string) (string, int, error) {
	f.calls++
	return f.text, f.pages, f.err
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func writeZip(t *testing.T, name string, entries map[string]string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	f, err := os.Create(p)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	zw := zip.NewWriter(f)
	for entry, body := range entries {
		w, err := zw.Create(entry)
		if err != nil {
			t.Fatalf("zip create: %v", err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatalf("zip write: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("file close: %v", err)
	}
	return p
}

func TestParseFormat(t *testing.T) {
	cases := map[string]Format{
		"policy.pdf": FormatPDF,
		"POLICY.PDF": FormatPDF,
		"a.b.docx":   FormatDOCX,
		"deck.PPTX":  FormatPPTX,
		"notes.txt":  FormatTXT,
	}
	for name, want := range cases {
		got, err := ParseFormat(name)
		if err != nil || got != want {
			t.Fatalf("ParseFormat(%q): want=%s got=%s err=%v", name, want, got, err)
		}
	}
	for _, bad := range []string{"image.png", "noext", "sheet.xlsx"} {
		if _, err := ParseFormat(bad); !errors.Is(err, domain.ErrUnsupportedFormat) {
			t.Fatalf("ParseFormat(%q): want=ErrUnsupportedFormat got=%v", bad, err)
		}
	}
}

func TestClean(t *testing.T) {
	got := Clean("  Grace period \n\n of\t30   days. ")
	if got != "Grace period of 30 days." {
		t.Fatalf("Clean: got=%q", got)
	}
	if Clean(" \n\t ") != "" {
		t.Fatalf("Clean whitespace-only: expected empty")
	}
}

func TestExtractTXTDropsInvalidUTF8(t *testing.T) {
	p := writeFile(t, "notes.txt", []byte("valid \xff\xfetext"))
	ex := New(newTestLogger(t), nil, nil)
	res, err := ex.Extract(context.Background(), p, FormatTXT)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.Text != "valid text" {
		t.Fatalf("text: got=%q", res.Text)
	}
	if res.PageCount != nil {
		t.Fatalf("page count: want=nil got=%v", *res.PageCount)
	}
}

const docxBody = `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:t>Section 1: </w:t></w:r><w:r><w:t>Coverage</w:t></w:r></w:p>
<w:p></w:p>
<w:tbl><w:tr><w:tc><w:p><w:r><w:t>table cell</w:t></w:r></w:p></w:tc></w:tr></w:tbl>
<w:p><w:r><w:t>Grace period is 30 days.</w:t></w:r></w:p>
</w:body>
</w:document>`

func TestExtractDOCX(t *testing.T) {
	p := writeZip(t, "policy.docx", map[string]string{"word/document.xml": docxBody})
	res, err := New(newTestLogger(t), nil, nil).Extract(context.Background(), p, FormatDOCX)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	want := "Section 1: Coverage\nGrace period is 30 days."
	if res.Text != want {
		t.Fatalf("docx text: want=%q got=%q", want, res.Text)
	}
	if res.PageCount != nil {
		t.Fatalf("docx page count: want=nil")
	}
}

func slideXML(shapes ...[]string) string {
	var b strings.Builder
	b.WriteString(`<p:sld xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main" xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"><p:cSld><p:spTree>`)
	for _, paras := range shapes {
		b.WriteString(`<p:sp><p:txBody>`)
		for _, para := range paras {
			b.WriteString(`<a:p><a:r><a:t>` + para + `</a:t></a:r></a:p>`)
		}
		b.WriteString(`</p:txBody></p:sp>`)
	}
	b.WriteString(`</p:spTree></p:cSld></p:sld>`)
	return b.String()
}

func TestExtractPPTXNumericSlideOrder(t *testing.T) {
	entries := map[string]string{
		"ppt/slides/slide1.xml":            slideXML([]string{"Title", "Subtitle"}),
		"ppt/slides/slide2.xml":            slideXML([]string{"Second"}),
		"ppt/slides/slide10.xml":           slideXML([]string{"Tenth"}),
		"ppt/slides/_rels/slide1.xml.rels": `<Relationships/>`,
	}
	p := writeZip(t, "deck.pptx", entries)
	res, err := New(newTestLogger(t), nil, nil).Extract(context.Background(), p, FormatPPTX)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	want := "Title\nSubtitle\nSecond\nTenth"
	if res.Text != want {
		t.Fatalf("pptx text: want=%q got=%q", want, res.Text)
	}
	if res.PageCount == nil || *res.PageCount != 3 {
		t.Fatalf("pptx page count: want=3 got=%v", res.PageCount)
	}
}

func TestExtractPDFFallsBackToPdftotext(t *testing.T) {
	p := writeFile(t, "broken.pdf", []byte("not really a pdf"))
	media := &fakeMedia{text: strings.Repeat("Clause text. ", 20), pages: 4}
	ocr := &fakeOCR{}
	res, err := New(newTestLogger(t), media, ocr).Extract(context.Background(), p, FormatPDF)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if ocr.calls != 0 {
		t.Fatalf("OCR should not run when pdftotext yields text")
	}
	if res.PageCount == nil || *res.PageCount != 4 {
		t.Fatalf("page count: want=4 got=%v", res.PageCount)
	}
}

func TestExtractPDFShortTextUsesOCR(t *testing.T) {
	p := writeFile(t, "scan.pdf", []byte("not really a pdf"))
	media := &fakeMedia{text: "tiny", pages: 2}
	ocr := &fakeOCR{text: "Recovered clause text", pages: 2}
	res, err := New(newTestLogger(t), media, ocr).Extract(context.Background(), p, FormatPDF)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.Text != "Recovered clause text" || ocr.calls != 1 {
		t.Fatalf("ocr result: text=%q calls=%d", res.Text, ocr.calls)
	}
}

func TestExtractPDFAllStrategiesFail(t *testing.T) {
	p := writeFile(t, "scan.pdf", []byte("not really a pdf"))
	media := &fakeMedia{textErr: errors.New("pdftotext missing")}

	_, err := New(newTestLogger(t), media, &fakeOCR{err: errors.New("tesseract missing")}).Extract(context.Background(), p, FormatPDF)
	if !errors.Is(err, domain.ErrExtractionFailed) {
		t.Fatalf("ocr error: want=ErrExtractionFailed got=%v", err)
	}
	_, err = New(newTestLogger(t), media, &fakeOCR{text: "  "}).Extract(context.Background(), p, FormatPDF)
	if !errors.Is(err, domain.ErrExtractionFailed) {
		t.Fatalf("empty ocr: want=ErrExtractionFailed got=%v", err)
	}
}

func TestExtractMissingFile(t *testing.T) {
	_, err := New(newTestLogger(t), nil, nil).Extract(context.Background(), filepath.Join(t.TempDir(), "nope.txt"), FormatTXT)
	if !errors.Is(err, domain.ErrExtractionFailed) {
		t.Fatalf("missing file: want=ErrExtractionFailed got=%v", err)
	}
}

func TestPageOCRJoinsPagesAndRemovesImages(t *testing.T) {
	media := &fakeMedia{rendered: 2, ocrByPage: map[string]string{"page-1.png": "first page", "page-2.png": "second page"}}
	ocr := NewTesseractOCR(newTestLogger(t), media, "eng")
	text, pages, err := ocr.OCRPDF(context.Background(), "scan.pdf")
	if err != nil {
		t.Fatalf("OCRPDF: %v", err)
	}
	if text != "first page second page" || pages != 2 {
		t.Fatalf("OCRPDF: text=%q pages=%d", text, pages)
	}
	if _, err := os.Stat(media.renderDir); !os.IsNotExist(err) {
		t.Fatalf("render dir should be removed: %v", err)
	}
}
