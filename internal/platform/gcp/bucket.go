package gcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"cloud.google.com/go/storage"

	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/ctxutil"
	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/logger"
)

// ErrObjectTooLarge is returned by Download when the object exceeds the limit.
var ErrObjectTooLarge = errors.New("gcs object exceeds size limit")

type BucketService interface {
	// Download copies bucket/key into w, failing once more than limit bytes are read (limit <= 0 disables the check).
	Download(ctx context.Context, bucket, key string, w io.Writer, limit int64) (int64, error)
	Upload(ctx context.Context, bucket, key string, r io.Reader) error
	Close() error
}

type bucketService struct {
	log           *logger.Logger
	storageClient *storage.Client
}

func NewBucketService(ctx context.Context, log *logger.Logger) (BucketService, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	c, err := storage.NewClient(ctxutil.Default(ctx), ClientOptionsFromEnv()...)
	if err != nil {
		return nil, fmt.Errorf("storage client: %w", err)
	}
	return &bucketService{log: log.With("service", "gcp.Bucket"), storageClient: c}, nil
}

func (bs *bucketService) Close() error {
	if bs == nil || bs.storageClient == nil {
		return nil
	}
	return bs.storageClient.Close()
}

func (bs *bucketService) Download(ctx context.Context, bucket, key string, w io.Writer, limit int64) (int64, error) {
	r, err := bs.storageClient.Bucket(bucket).Object(key).NewReader(ctxutil.Default(ctx))
	if err != nil {
		return 0, fmt.Errorf("open gs://%s/%s: %w", bucket, key, err)
	}
	defer r.Close()
	if limit > 0 && r.Attrs.Size > limit {
		return 0, fmt.Errorf("%w: %d bytes", ErrObjectTooLarge, r.Attrs.Size)
	}
	return copyLimited(w, r, limit)
}

func (bs *bucketService) Upload(ctx context.Context, bucket, key string, r io.Reader) error {
	ctx, cancel := context.WithTimeout(ctxutil.Default(ctx), 2*time.Minute)
	defer cancel()

	w := bs.storageClient.Bucket(bucket).Object(key).NewWriter(ctx)
	if ct := contentTypeForKey(key); ct != "" {
		w.ContentType = ct
	}
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write data to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close GCS writer: %w", err)
	}
	return nil
}

// ParseGSURI splits gs://bucket/key.
func ParseGSURI(raw string) (bucket string, key string, err error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", "", fmt.Errorf("parse gcs uri: %w", err)
	}
	if u.Scheme != "gs" {
		return "", "", fmt.Errorf("not a gs:// uri: %q", raw)
	}
	bucket = u.Host
	key = strings.TrimPrefix(u.Path, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("gcs uri needs bucket and object: %q", raw)
	}
	return bucket, key, nil
}

func copyLimited(w io.Writer, r io.Reader, limit int64) (int64, error) {
	if limit <= 0 {
		return io.Copy(w, r)
	}
	n, err := io.Copy(w, io.LimitReader(r, limit+1))
	if err != nil {
		return n, err
	}
	if n > limit {
		return n, ErrObjectTooLarge
	}
	return n, nil
}

func contentTypeForKey(key string) string {
	s := strings.ToLower(strings.TrimSpace(key))
	if i := strings.Index(s, "?"); i >= 0 {
		s = s[:i]
	}
	switch {
	case strings.HasSuffix(s, ".pdf"):
		return "application/pdf"
	case strings.HasSuffix(s, ".docx"):
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case strings.HasSuffix(s, ".pptx"):
		return "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	case strings.HasSuffix(s, ".txt"):
		return "text/plain; charset=utf-8"
	default:
		return ""
	}
}
