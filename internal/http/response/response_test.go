package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/sanskar-502/Bajaj-Cloud/internal/domain"
	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/apierr"
)

func TestFromError(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{domain.ErrInvalidQuery, http.StatusBadRequest, "invalid_query"},
		{fmt.Errorf("%w: .exe", domain.ErrUnsupportedFormat), http.StatusBadRequest, "unsupported_format"},
		{domain.ErrFileTooLarge, http.StatusRequestEntityTooLarge, "file_too_large"},
		{fmt.Errorf("%w: upstream returned 404", domain.ErrDownloadFailed), http.StatusBadRequest, "download_failed"},
		{domain.ErrExtractionFailed, http.StatusUnprocessableEntity, "extraction_failed"},
		{fmt.Errorf("%w: dial tcp", domain.ErrRetrievalUnavailable), http.StatusServiceUnavailable, "retrieval_unavailable"},
		{domain.ErrCompletionFailed, http.StatusBadGateway, "synthesis_failed"},
		{fmt.Errorf("doc x: %w", domain.ErrNotFound), http.StatusNotFound, "not_found"},
		{apierr.New(http.StatusUnauthorized, "unauthorized", errors.New("missing token")), http.StatusUnauthorized, "unauthorized"},
		{errors.New("disk on fire"), http.StatusInternalServerError, "internal"},
	}
	for _, tc := range cases {
		got := FromError(tc.err)
		if got.Status != tc.status || got.Code != tc.code {
			t.Fatalf("FromError(%v): want=%d/%s got=%d/%s", tc.err, tc.status, tc.code, got.Status, got.Code)
		}
	}
	if msg := FromError(errors.New("secret path /var/x")).Error(); msg != "internal server error" {
		t.Fatalf("internal errors should not leak details: got=%q", msg)
	}
}

func TestRespondErrEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	RespondErr(c, domain.ErrInvalidQuery)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: want=%d got=%d", http.StatusBadRequest, rec.Code)
	}
	var env ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Error.Code != "invalid_query" || env.Error.Message != "Query must be between 10 and 500 characters." {
		t.Fatalf("envelope: got=%+v", env)
	}
}
