package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fulmenhq/gofulmen/telemetry"
	telemetrytesting "github.com/fulmenhq/gofulmen/telemetry/testing"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scoutline/scoutline/internal/metrics"
	"github.com/scoutline/scoutline/internal/observability"
)

func setupTelemetry(t *testing.T) *telemetrytesting.FakeCollector {
	t.Helper()

	collector := telemetrytesting.NewFakeCollector()
	sys, err := telemetry.NewSystem(&telemetry.Config{Enabled: true, Emitter: collector})
	require.NoError(t, err)

	original := observability.TelemetrySystem
	observability.TelemetrySystem = sys
	t.Cleanup(func() { observability.TelemetrySystem = original })
	return collector
}

func TestRequestMetricsEmitsRequestMetrics(t *testing.T) {
	collector := setupTelemetry(t)

	handler := RequestMetrics(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":[]}`))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader(`{"query":"go"}`)))

	assert.Equal(t, http.StatusOK, rec.Code)
	for _, name := range []string{
		metrics.HTTPRequestsTotal,
		metrics.HTTPRequestDuration,
		metrics.HTTPRequestSizeBytes,
		metrics.HTTPResponseSizeBytes,
	} {
		assert.Greater(t, collector.CountMetricsByName(name), 0, name)
	}
	assert.Zero(t, collector.CountMetricsByName(metrics.HTTPErrorsTotal))
}

func TestRequestMetricsCountsErrors(t *testing.T) {
	collector := setupTelemetry(t)

	handler := RequestMetrics(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/chat", nil))

	assert.Greater(t, collector.CountMetricsByName(metrics.HTTPErrorsTotal), 0)
}

func TestRequestMetricsWithoutTelemetry(t *testing.T) {
	original := observability.TelemetrySystem
	observability.TelemetrySystem = nil
	t.Cleanup(func() { observability.TelemetrySystem = original })

	handler := RequestMetrics(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	rec := httptest.NewRecorder()
	require.NotPanics(t, func() { handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/version", nil)) })
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestEndpointPattern(t *testing.T) {
	tests := map[string]string{
		"/health":         "/health/*",
		"/health/ready":   "/health/*",
		"/version":        "/version",
		"/metrics":        "/metrics",
		"/api/chat":       "/api/chat",
		"/api/search":     "/api/search",
		"/api/users/123":  "/unknown",
		"/":               "/",
		"/health-checker": "/unknown",
	}
	for path, want := range tests {
		t.Run(path, func(t *testing.T) {
			assert.Equal(t, want, endpointPattern(httptest.NewRequest(http.MethodGet, path, nil)))
		})
	}
}

func TestEndpointPatternPrefersRoutePattern(t *testing.T) {
	var got string
	r := chi.NewRouter()
	r.Get("/items/{id}", func(w http.ResponseWriter, req *http.Request) {
		got = endpointPattern(req)
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/42", nil))

	assert.Equal(t, "/items/{id}", got)
}

func TestRequestIDPropagation(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/version", nil)
	req.Header.Set(RequestIDHeader, "client-id-1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, "client-id-1", seen)
	assert.Equal(t, "client-id-1", rec.Header().Get(RequestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/version", nil)
	req.Header.Set(RequestIDHeader, "bad id\nwith newline")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.NotEqual(t, "bad id\nwith newline", seen)
	assert.Len(t, seen, 36)
}

func TestRecoveryWritesEnvelope(t *testing.T) {
	collector := setupTelemetry(t)

	handler := RequestID(Recovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/version", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body panicResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "INTERNAL_ERROR", body.Error.Code)
	assert.Equal(t, rec.Header().Get(RequestIDHeader), body.Error.RequestID)
	assert.Equal(t, 1, collector.CountMetricsByName(metrics.PanicsTotalName))
}

func TestRecoveryWritesFlatErrorOnAPIRoutes(t *testing.T) {
	setupTelemetry(t)

	handler := Recovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/chat", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())
}

func TestRecoveryAbortsStartedStreams(t *testing.T) {
	handler := Recovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("event: status\n\n"))
		panic("mid-stream")
	}))

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/chat", nil))
	})
}

func TestResponseWriterFlushAndUnwrap(t *testing.T) {
	rec := httptest.NewRecorder()
	wrapped := &responseWriter{ResponseWriter: rec, statusCode: http.StatusOK}

	var w http.ResponseWriter = wrapped
	flusher, ok := w.(http.Flusher)
	require.True(t, ok, "wrapped writer must stay flushable for event streams")

	_, err := w.Write([]byte("data: x\n\n"))
	require.NoError(t, err)
	flusher.Flush()

	assert.True(t, rec.Flushed)
	assert.True(t, wrapped.wroteHeader)
	assert.Same(t, rec, wrapped.Unwrap())
	assert.Equal(t, int64(len("data: x\n\n")), wrapped.bytesWritten)
}
