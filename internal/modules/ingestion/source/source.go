package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/sanskar-502/Bajaj-Cloud/internal/domain"
	"github.com/sanskar-502/Bajaj-Cloud/internal/modules/ingestion/extractor"
	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/ctxutil"
	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/gcp"
	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/logger"
)

// BrowserUserAgent is sent on every download; some document hosts refuse
// requests without a browser-like agent.
const BrowserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

const maxRedirects = 10

type Config struct {
	Timeout  time.Duration
	MaxBytes int64
	// HTTPClient is optional; its CheckRedirect and Timeout are overridden.
	HTTPClient *http.Client
}

type Source struct {
	log      *logger.Logger
	http     *http.Client
	bucket   gcp.BucketService
	timeout  time.Duration
	maxBytes int64
}

// New builds a Source. bucket may be nil, in which case gs:// URLs fail.
func New(log *logger.Logger, bucket gcp.BucketService, cfg Config) *Source {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	hc := &http.Client{}
	if cfg.HTTPClient != nil {
		clone := *cfg.HTTPClient
		hc = &clone
	}
	hc.Timeout = timeout
	hc.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return fmt.Errorf("stopped after %d redirects", maxRedirects)
		}
		req.Header.Set("User-Agent", BrowserUserAgent)
		return nil
	}
	return &Source{
		log:      log.With("service", "DocumentSource"),
		http:     hc,
		bucket:   bucket,
		timeout:  timeout,
		maxBytes: cfg.MaxBytes,
	}
}

// Fetch downloads rawURL into dstPath and returns the byte count. The
// partial file is removed on any failure.
func (s *Source) Fetch(ctx context.Context, rawURL string, dstPath string) (n int64, err error) {
	ctx, cancel := context.WithTimeout(ctxutil.Default(ctx), s.timeout)
	defer cancel()

	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return 0, fmt.Errorf("%w: invalid url: %v", domain.ErrDownloadFailed, err)
	}

	f, err := os.Create(dstPath)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", dstPath, err)
	}
	defer func() {
		closeErr := f.Close()
		if err == nil && closeErr != nil {
			err = fmt.Errorf("close %s: %w", dstPath, closeErr)
		}
		if err != nil {
			_ = os.Remove(dstPath)
		}
	}()

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		n, err = s.fetchHTTP(ctx, u.String(), f)
	case "gs":
		n, err = s.fetchGCS(ctx, u.String(), f)
	default:
		err = fmt.Errorf("%w: unsupported url scheme %q", domain.ErrDownloadFailed, u.Scheme)
	}
	if err != nil {
		return 0, err
	}
	s.log.Info("Document downloaded", "url", redactQuery(u), "bytes", n)
	return n, nil
}

func (s *Source) fetchHTTP(ctx context.Context, rawURL string, w io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrDownloadFailed, err)
	}
	req.Header.Set("User-Agent", BrowserUserAgent)

	resp, err := s.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrDownloadFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("%w: upstream returned %d %s", domain.ErrDownloadFailed, resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	if s.maxBytes > 0 && resp.ContentLength > s.maxBytes {
		return 0, fmt.Errorf("%w: %d bytes exceeds limit of %d", domain.ErrFileTooLarge, resp.ContentLength, s.maxBytes)
	}

	body := io.Reader(resp.Body)
	if s.maxBytes > 0 {
		body = io.LimitReader(resp.Body, s.maxBytes+1)
	}
	n, err := io.Copy(w, body)
	if err != nil {
		return 0, fmt.Errorf("%w: read body: %v", domain.ErrDownloadFailed, err)
	}
	if s.maxBytes > 0 && n > s.maxBytes {
		return 0, fmt.Errorf("%w: body exceeds limit of %d bytes", domain.ErrFileTooLarge, s.maxBytes)
	}
	return n, nil
}

func (s *Source) fetchGCS(ctx context.Context, rawURL string, w io.Writer) (int64, error) {
	if s.bucket == nil {
		return 0, fmt.Errorf("%w: gs:// urls need GCS credentials", domain.ErrDownloadFailed)
	}
	bucket, key, err := gcp.ParseGSURI(rawURL)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrDownloadFailed, err)
	}
	n, err := s.bucket.Download(ctx, bucket, key, w, s.maxBytes)
	if errors.Is(err, gcp.ErrObjectTooLarge) {
		return 0, fmt.Errorf("%w: %v", domain.ErrFileTooLarge, err)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrDownloadFailed, err)
	}
	return n, nil
}

// ExtFromURL returns the document extension implied by the URL path, or
// ".pdf" when the path has no supported extension.
func ExtFromURL(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return extractor.FormatPDF.Ext()
	}
	f, err := extractor.ParseFormat(path.Base(u.Path))
	if err != nil {
		return extractor.FormatPDF.Ext()
	}
	return f.Ext()
}

func redactQuery(u *url.URL) string {
	c := *u
	if c.RawQuery != "" {
		c.RawQuery = "redacted"
	}
	return c.String()
}
