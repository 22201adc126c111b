package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	httpH "github.com/sanskar-502/Bajaj-Cloud/internal/http/handlers"
	httpMW "github.com/sanskar-502/Bajaj-Cloud/internal/http/middleware"
	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/logger"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return NewRouter(RouterConfig{
		Log:            log,
		AuthMiddleware: httpMW.NewAuthMiddleware(log, "token-123", ""),
		HealthHandler:  httpH.NewHealthHandler(nil),
		RunHandler:     httpH.NewRunHandler(log, nil, nil, nil, nil, httpH.RunHandlerConfig{}),
	})
}

func TestRouterHealthEndpoints(t *testing.T) {
	r := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Intelligent Query") {
		t.Fatalf("root: code=%d body=%s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-Id") == "" || rec.Header().Get("X-Trace-Id") == "" {
		t.Fatalf("trace headers missing: %v", rec.Header())
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthcheck", nil)
	req.Header.Set("X-Request-Id", "req-1")
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthcheck: code=%d body=%s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("X-Request-Id"); got != "req-1" {
		t.Fatalf("request id: want=req-1 got=%s", got)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("metrics disabled: want=404 got=%d", rec.Code)
	}
}

func TestRouterRunRequiresBearer(t *testing.T) {
	r := newTestRouter(t)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/hackrx/run", strings.NewReader(`{}`)))
	if rec.Code != http.StatusUnauthorized || !strings.Contains(rec.Body.String(), `"code":"unauthorized"`) {
		t.Fatalf("run without token: code=%d body=%s", rec.Code, rec.Body.String())
	}

	// authorized but malformed body reaches the handler
	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/hackrx/run", strings.NewReader(`{"documents":"","questions":[]}`))
	req.Header.Set("Authorization", "Bearer token-123")
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("run with token: want=400 got=%d", rec.Code)
	}
}
