package gcp

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"cloud.google.com/go/documentai/apiv1/documentaipb"
	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"
	statuspb "google.golang.org/genproto/googleapis/rpc/status"
)

func TestParseGSURI(t *testing.T) {
	bucket, key, err := ParseGSURI("gs://policies/2024/policy.pdf")
	if err != nil {
		t.Fatalf("ParseGSURI: %v", err)
	}
	if bucket != "policies" || key != "2024/policy.pdf" {
		t.Fatalf("ParseGSURI: got bucket=%q key=%q", bucket, key)
	}
	for _, bad := range []string{"https://x/y.pdf", "gs://only-bucket", "gs:///key"} {
		if _, _, err := ParseGSURI(bad); err == nil {
			t.Fatalf("ParseGSURI(%q): expected error", bad)
		}
	}
}

func TestCopyLimited(t *testing.T) {
	var buf bytes.Buffer
	if n, err := copyLimited(&buf, strings.NewReader("12345"), 5); err != nil || n != 5 {
		t.Fatalf("copyLimited at limit: n=%d err=%v", n, err)
	}
	buf.Reset()
	if _, err := copyLimited(&buf, strings.NewReader("123456"), 5); !errors.Is(err, ErrObjectTooLarge) {
		t.Fatalf("copyLimited over limit: want=ErrObjectTooLarge got=%v", err)
	}
}

func TestContentTypeForKey(t *testing.T) {
	if got := contentTypeForKey("documents/abc.PDF"); got != "application/pdf" {
		t.Fatalf("pdf: got=%q", got)
	}
	if got := contentTypeForKey("documents/abc.bin"); got != "" {
		t.Fatalf("unknown: got=%q", got)
	}
}

func TestProcessorName(t *testing.T) {
	if got := processorName("p", "us", "abc", ""); got != "projects/p/locations/us/processors/abc" {
		t.Fatalf("processorName: got=%q", got)
	}
	if got := processorName("p", "eu", "abc", "v1"); !strings.HasSuffix(got, "/processorVersions/v1") {
		t.Fatalf("processorName version: got=%q", got)
	}
	if got := processorName("", "us", "abc", ""); got != "" {
		t.Fatalf("processorName missing project: got=%q", got)
	}
}

func TestBuildDocAIResult(t *testing.T) {
	full := "Section 1 Coverage.\nSection 2 Exclusions."
	doc := &documentaipb.Document{
		Text: full,
		Pages: []*documentaipb.Document_Page{
			{Paragraphs: []*documentaipb.Document_Page_Paragraph{{
				Layout: &documentaipb.Document_Page_Layout{TextAnchor: &documentaipb.Document_TextAnchor{
					TextSegments: []*documentaipb.Document_TextAnchor_TextSegment{{StartIndex: 0, EndIndex: 19}},
				}},
			}}},
			{Paragraphs: []*documentaipb.Document_Page_Paragraph{{
				Layout: &documentaipb.Document_Page_Layout{TextAnchor: &documentaipb.Document_TextAnchor{
					TextSegments: []*documentaipb.Document_TextAnchor_TextSegment{{StartIndex: 20, EndIndex: int64(len(full))}},
				}},
			}}},
		},
	}
	res := buildDocAIResult(doc, "proc")
	if res.PageCount != 2 {
		t.Fatalf("PageCount: want=2 got=%d", res.PageCount)
	}
	if res.Pages[0] != "Section 1 Coverage." || res.Pages[1] != "Section 2 Exclusions." {
		t.Fatalf("Pages: got=%q", res.Pages)
	}
	if res.Text != full {
		t.Fatalf("Text: got=%q", res.Text)
	}
}

func TestTextFromVisionResponse(t *testing.T) {
	resp := &visionpb.BatchAnnotateImagesResponse{Responses: []*visionpb.AnnotateImageResponse{{
		FullTextAnnotation: &visionpb.TextAnnotation{Text: "Grace   period\nof 30 days"},
	}}}
	got, err := textFromVisionResponse(resp)
	if err != nil || got != "Grace period of 30 days" {
		t.Fatalf("textFromVisionResponse: got=%q err=%v", got, err)
	}

	errResp := &visionpb.BatchAnnotateImagesResponse{Responses: []*visionpb.AnnotateImageResponse{{
		Error: &statuspb.Status{Message: "bad image"},
	}}}
	if _, err := textFromVisionResponse(errResp); err == nil {
		t.Fatalf("expected annotate error")
	}
	if got, err := textFromVisionResponse(nil); err != nil || got != "" {
		t.Fatalf("nil response: got=%q err=%v", got, err)
	}
}
