package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/fulmenhq/gofulmen/errors"
	"go.uber.org/zap"

	"github.com/scoutline/scoutline/internal/metrics"
	"github.com/scoutline/scoutline/internal/observability"
)

const panicMessage = "internal server error"

// panicResponse mirrors the envelope body written by internal/errors, which
// cannot be imported here.
type panicResponse struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id,omitempty"`
	} `json:"error"`
}

// Recovery turns a handler panic into a 500: the flat {"error": message} body under
// /api/ and an envelope elsewhere. When the handler already
// started its response, as a chat event stream does, the connection is aborted
// instead. http.ErrAbortHandler passes through untouched.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tracked := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			metrics.RecordPanic()
			envelope := errors.NewErrorEnvelope("INTERNAL_ERROR", fmt.Sprintf("panic: %v", rec)).
				WithCorrelationID(GetRequestID(r.Context()))
			envelope, _ = envelope.WithSeverity(errors.SeverityCritical)

			if logger := observability.ServerLogger; logger != nil {
				logger.Error("Recovered handler panic",
					zap.String("path", r.URL.Path),
					zap.String("request_id", envelope.CorrelationID),
					zap.Any("panic", rec),
					zap.ByteString("stack", debug.Stack()))
			}

			if tracked.wroteHeader {
				panic(http.ErrAbortHandler)
			}

			var body any = map[string]string{"error": panicMessage}
			if !strings.HasPrefix(r.URL.Path, "/api/") {
				var nested panicResponse
				nested.Error.Code = envelope.Code
				nested.Error.Message = panicMessage
				nested.Error.RequestID = envelope.CorrelationID
				body = nested
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(body)
		}()

		next.ServeHTTP(tracked, r)
	})
}
