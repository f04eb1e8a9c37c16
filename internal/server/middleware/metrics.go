package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/scoutline/scoutline/internal/metrics"
	"github.com/scoutline/scoutline/internal/observability"
)

// responseWriter records the status and body size written by a handler.
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
	wroteHeader  bool
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.wroteHeader = true
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += int64(n)
	return n, err
}

// Flush forwards to the underlying writer so event streams are not buffered.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// endpointPattern returns the matched chi route, or a coarse bucket for requests
// that never reached a route, so raw paths never become metric labels.
func endpointPattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}

	switch path := r.URL.Path; {
	case path == "/health" || strings.HasPrefix(path, "/health/"):
		return "/health/*"
	case path == "/version", path == "/metrics", path == "/api/chat", path == "/api/search", path == "/":
		return path
	default:
		return "/unknown"
	}
}

// RequestMetrics records every request and logs its completion. Health probes and
// scrapes log at debug level.
func RequestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		req := metrics.HTTPRequest{
			Method:        r.Method,
			Endpoint:      endpointPattern(r),
			Status:        wrapped.statusCode,
			Duration:      time.Since(start),
			RequestBytes:  max(r.ContentLength, 0),
			ResponseBytes: wrapped.bytesWritten,
		}
		metrics.RecordHTTPRequest(req)
		logRequest(r, req)
	})
}

func logRequest(r *http.Request, req metrics.HTTPRequest) {
	logger := observability.ServerLogger
	if logger == nil {
		return
	}

	fields := []zap.Field{
		zap.String("method", req.Method),
		zap.String("path", r.URL.Path),
		zap.String("endpoint", req.Endpoint),
		zap.Int("status", req.Status),
		zap.Duration("duration", req.Duration),
		zap.Int64("request_size", req.RequestBytes),
		zap.Int64("response_size", req.ResponseBytes),
		zap.String("request_id", GetRequestID(r.Context())),
	}
	if req.Endpoint == "/health/*" || req.Endpoint == "/metrics" {
		logger.Debug("HTTP request completed", fields...)
		return
	}
	logger.Info("HTTP request completed", fields...)
}
