package localmedia

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/ctxutil"
	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/envutil"
	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/logger"
)

// Tools wraps the poppler and tesseract binaries used for PDF text and OCR.
//
// REQUIRED BINARIES in the ingestion runtime:
// - pdftoppm, pdfinfo, pdftotext (poppler-utils)
// - tesseract (only when OCR_PROVIDER=tesseract)
type Tools interface {
	AssertReady(ctx context.Context, binaries ...string) error

	CountPDFPages(ctx context.Context, pdfPath string) (int, error)
	PDFToText(ctx context.Context, pdfPath string) (string, error)
	RenderPDFToImages(ctx context.Context, pdfPath string, outDir string, opts PDFRenderOptions) ([]string, error)
	OCRImage(ctx context.Context, imagePath string, lang string) (string, error)
}

type PDFRenderOptions struct {
	DPI       int
	Format    string // "png" or "jpeg"
	FirstPage int    // 1-based, 0 means default
	LastPage  int    // 1-based, 0 means default
}

type Config struct {
	PdftoppmPath  string
	PdfinfoPath   string
	PdftotextPath string
	TesseractPath string
	Timeout       time.Duration
}

func ConfigFromEnv() Config {
	return Config{
		PdftoppmPath:  envutil.String("PDFTOPPM_PATH", "pdftoppm"),
		PdfinfoPath:   envutil.String("PDFINFO_PATH", "pdfinfo"),
		PdftotextPath: envutil.String("PDFTOTEXT_PATH", "pdftotext"),
		TesseractPath: envutil.String("TESSERACT_PATH", "tesseract"),
		Timeout:       envutil.Seconds("MEDIA_TOOL_TIMEOUT_SECONDS", 10*time.Minute),
	}
}

type tools struct {
	log *logger.Logger

	pdftoppmPath  string
	pdfinfoPath   string
	pdftotextPath string
	tesseractPath string

	defaultTimeout time.Duration
}

func New(log *logger.Logger, cfg Config) Tools {
	def := func(v, d string) string {
		if strings.TrimSpace(v) == "" {
			return d
		}
		return v
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &tools{
		log:            log.With("service", "MediaTools"),
		pdftoppmPath:   def(cfg.PdftoppmPath, "pdftoppm"),
		pdfinfoPath:    def(cfg.PdfinfoPath, "pdfinfo"),
		pdftotextPath:  def(cfg.PdftotextPath, "pdftotext"),
		tesseractPath:  def(cfg.TesseractPath, "tesseract"),
		defaultTimeout: timeout,
	}
}

func (m *tools) AssertReady(ctx context.Context, binaries ...string) error {
	if len(binaries) == 0 {
		binaries = []string{m.pdftoppmPath, m.pdfinfoPath, m.pdftotextPath}
	}
	for _, bin := range binaries {
		if _, err := exec.LookPath(bin); err != nil {
			return fmt.Errorf("missing required binary %q in PATH: %w", bin, err)
		}
	}
	return nil
}

func (m *tools) CountPDFPages(ctx context.Context, pdfPath string) (int, error) {
	ctx = ctxutil.Default(ctx)
	if pdfPath == "" {
		return 0, fmt.Errorf("pdfPath required")
	}
	if err := m.AssertReady(ctx, m.pdfinfoPath); err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, m.pdfinfoPath, pdfPath).CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("pdfinfo failed: %w; out=%s", err, string(out))
	}
	return parsePDFInfoPages(string(out))
}

func (m *tools) PDFToText(ctx context.Context, pdfPath string) (string, error) {
	ctx = ctxutil.Default(ctx)
	if pdfPath == "" {
		return "", fmt.Errorf("pdfPath required")
	}
	if err := m.AssertReady(ctx, m.pdftotextPath); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, m.defaultTimeout)
	defer cancel()

	// "-" writes to stdout.
	cmd := exec.CommandContext(ctx, m.pdftotextPath, "-enc", "UTF-8", "-layout", pdfPath, "-")
	var stderr strings.Builder
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("pdftotext failed: %w; out=%s", err, stderr.String())
	}
	return string(out), nil
}

func (m *tools) RenderPDFToImages(ctx context.Context, pdfPath string, outDir string, opts PDFRenderOptions) ([]string, error) {
	ctx = ctxutil.Default(ctx)
	if err := m.AssertReady(ctx, m.pdftoppmPath); err != nil {
		return nil, err
	}
	if pdfPath == "" {
		return nil, fmt.Errorf("pdfPath required")
	}
	if outDir == "" {
		return nil, fmt.Errorf("outDir required")
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir outDir: %w", err)
	}

	dpi := opts.DPI
	if dpi <= 0 {
		dpi = 300
	}
	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = "png"
	}
	if format != "png" && format != "jpeg" && format != "jpg" {
		return nil, fmt.Errorf("unsupported render format: %s", format)
	}

	ctx, cancel := context.WithTimeout(ctx, m.defaultTimeout)
	defer cancel()

	prefix := filepath.Join(outDir, "page")
	args := []string{"-r", strconv.Itoa(dpi)}
	if format == "png" {
		args = append(args, "-png")
	} else {
		args = append(args, "-jpeg")
	}
	if opts.FirstPage > 0 {
		args = append(args, "-f", strconv.Itoa(opts.FirstPage))
	}
	if opts.LastPage > 0 {
		args = append(args, "-l", strconv.Itoa(opts.LastPage))
	}
	args = append(args, pdfPath, prefix)

	out, err := exec.CommandContext(ctx, m.pdftoppmPath, args...).CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w; out=%s", err, string(out))
	}

	paths, err := pageImages(outDir)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no images produced by pdftoppm; out=%s", string(out))
	}
	m.log.Debug("Rendered PDF pages", "pdf", filepath.Base(pdfPath), "pages", len(paths), "dpi", dpi)
	return paths, nil
}

func (m *tools) OCRImage(ctx context.Context, imagePath string, lang string) (string, error) {
	ctx = ctxutil.Default(ctx)
	if imagePath == "" {
		return "", fmt.Errorf("imagePath required")
	}
	if err := m.AssertReady(ctx, m.tesseractPath); err != nil {
		return "", err
	}
	if strings.TrimSpace(lang) == "" {
		lang = "eng"
	}

	ctx, cancel := context.WithTimeout(ctx, m.defaultTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, m.tesseractPath, imagePath, "stdout", "-l", lang)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("tesseract failed: %w; out=%s", err, stderr.String())
	}
	return string(out), nil
}

// ---------- helpers ----------

func parsePDFInfoPages(out string) (int, error) {
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "Pages:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		n, err := strconv.Atoi(fields[len(fields)-1])
		if err != nil || n <= 0 {
			continue
		}
		return n, nil
	}
	return 0, fmt.Errorf("pdfinfo output missing Pages field")
}

var pageImageRe = regexp.MustCompile(`^page-(\d+)\.(png|jpe?g)$`)

// pageImages lists pdftoppm output ordered by page number, not by name.
func pageImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	type page struct {
		n    int
		path string
	}
	pages := []page{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := pageImageRe.FindStringSubmatch(strings.ToLower(e.Name()))
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		pages = append(pages, page{n: n, path: filepath.Join(dir, e.Name())})
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].n < pages[j].n })
	out := make([]string, 0, len(pages))
	for _, p := range pages {
		out = append(out, p.path)
	}
	return out, nil
}
