package gcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"

	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/ctxutil"
	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/httpx"
	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/logger"
)

type Vision interface {
	OCRImageBytes(ctx context.Context, img []byte) (string, error)
	Close() error
}

type visionService struct {
	log        *logger.Logger
	client     *vision.ImageAnnotatorClient
	timeout    time.Duration
	maxRetries int
}

func NewVision(ctx context.Context, log *logger.Logger) (Vision, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	c, err := vision.NewImageAnnotatorClient(ctxutil.Default(ctx), ClientOptionsFromEnv()...)
	if err != nil {
		return nil, fmt.Errorf("vision client: %w", err)
	}
	return &visionService{
		log:        log.With("service", "gcp.Vision"),
		client:     c,
		timeout:    60 * time.Second,
		maxRetries: 2,
	}, nil
}

func (s *visionService) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *visionService) OCRImageBytes(ctx context.Context, img []byte) (string, error) {
	if len(img) == 0 {
		return "", nil
	}
	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{{
			Image:    &visionpb.Image{Content: img},
			Features: []*visionpb.Feature{{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION}},
		}},
	}

	ctx = ctxutil.Default(ctx)
	backoff := 500 * time.Millisecond
	for attempt := 0; ; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		resp, err := s.client.BatchAnnotateImages(callCtx, req)
		cancel()
		if err == nil {
			return textFromVisionResponse(resp)
		}
		if !IsRetryable(err) || attempt >= s.maxRetries {
			return "", fmt.Errorf("vision BatchAnnotateImages: %w", err)
		}
		s.log.Warn("Vision OCR retrying", "attempt", attempt+1, "error", err)
		if err := httpx.Sleep(ctx, httpx.JitterSleep(backoff)); err != nil {
			return "", err
		}
		backoff *= 2
	}
}

func textFromVisionResponse(resp *visionpb.BatchAnnotateImagesResponse) (string, error) {
	if resp == nil || len(resp.Responses) == 0 || resp.Responses[0] == nil {
		return "", nil
	}
	r0 := resp.Responses[0]
	if r0.Error != nil && r0.Error.Message != "" {
		return "", fmt.Errorf("vision annotate error: %s", r0.Error.Message)
	}
	if fta := r0.FullTextAnnotation; fta != nil && strings.TrimSpace(fta.Text) != "" {
		return collapseWhitespace(fta.Text), nil
	}
	// Older responses only carry TextAnnotations; the first entry is the full text.
	if len(r0.TextAnnotations) > 0 && r0.TextAnnotations[0] != nil {
		return collapseWhitespace(r0.TextAnnotations[0].Description), nil
	}
	return "", nil
}
