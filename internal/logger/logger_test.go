package logger

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"coverage-grid/internal/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSetupWriterRespectsLevelAndFormat(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("LOG_FORMAT", "json")
	var buf bytes.Buffer
	l := SetupWriter(&buf)
	t.Cleanup(func() { SetupWriter(&bytes.Buffer{}) })
	l.Info("hidden")
	l.Warn("kv_set_error", "backend", "file")
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatal("info logged at warn level")
	}
	if !strings.Contains(out, `"msg":"kv_set_error"`) || !strings.Contains(out, `"backend":"file"`) {
		t.Fatalf("unexpected output: %s", out)
	}
	if L() != l {
		t.Fatal("L() should return the configured logger")
	}
}

func TestAccessMiddlewareLogsServerErrors(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("LOG_FORMAT", "")
	var buf bytes.Buffer
	l := SetupWriter(&buf)
	t.Cleanup(func() { SetupWriter(&bytes.Buffer{}) })
	h := AccessMiddleware(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/boom" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/state", nil))
	if buf.Len() != 0 {
		t.Fatalf("2xx logged at warn: %s", buf.String())
	}
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))
	if !strings.Contains(buf.String(), "status=500") {
		t.Fatalf("5xx not logged: %s", buf.String())
	}
}

func TestAccessMiddlewareRecordsEdits(t *testing.T) {
	t.Setenv("LOG_LEVEL", "info")
	t.Setenv("LOG_FORMAT", "")
	var buf bytes.Buffer
	l := SetupWriter(&buf)
	t.Cleanup(func() { SetupWriter(&bytes.Buffer{}) })
	h := AccessMiddleware(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/active" {
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	edits := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodPost, "4xx")
	before := testutil.ToFloat64(edits)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/state", nil))
	if buf.Len() != 0 {
		t.Fatalf("read logged at info: %s", buf.String())
	}
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/active", nil))
	if out := buf.String(); !strings.Contains(out, "method=POST") || !strings.Contains(out, "status=404") {
		t.Fatalf("edit not logged: %s", out)
	}
	if got := testutil.ToFloat64(edits) - before; got != 1 {
		t.Fatalf("4xx POST counter delta = %v", got)
	}
}

func TestAccessLevel(t *testing.T) {
	tests := []struct {
		method string
		status int
		want   slog.Level
	}{
		{http.MethodGet, 200, slog.LevelDebug},
		{http.MethodHead, 304, slog.LevelDebug},
		{http.MethodPost, 200, slog.LevelInfo},
		{http.MethodDelete, 409, slog.LevelInfo},
		{http.MethodGet, 503, slog.LevelWarn},
	}
	for _, tc := range tests {
		if got := accessLevel(tc.method, tc.status); got != tc.want {
			t.Errorf("accessLevel(%s, %d) = %v, want %v", tc.method, tc.status, got, tc.want)
		}
	}
}
