// Package errors maps gofulmen error envelopes onto HTTP responses. Envelope
// responses ({"error":{code,message,...}}) serve the operational routes; the
// flat {"error": message} body serves the /api routes.
package errors

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/fulmenhq/gofulmen/errors"
	"go.uber.org/zap"

	"github.com/scoutline/scoutline/internal/metrics"
	"github.com/scoutline/scoutline/internal/observability"
	"github.com/scoutline/scoutline/internal/server/middleware"
)

// Envelope codes used by the service.
const (
	CodeInvalidInput       = "INVALID_INPUT"
	CodeValidationFailed   = "VALIDATION_FAILED"
	CodeNotFound           = "NOT_FOUND"
	CodeMethodNotAllowed   = "METHOD_NOT_ALLOWED"
	CodeTimeout            = "TIMEOUT"
	CodeExternalService    = "EXTERNAL_SERVICE_ERROR"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeConfigInvalid      = "CONFIG_INVALID"
	CodeInternal           = "INTERNAL_ERROR"
)

var statusByCode = map[string]int{
	CodeInvalidInput:       http.StatusBadRequest,
	CodeValidationFailed:   http.StatusBadRequest,
	CodeNotFound:           http.StatusNotFound,
	CodeMethodNotAllowed:   http.StatusMethodNotAllowed,
	CodeTimeout:            http.StatusGatewayTimeout,
	CodeExternalService:    http.StatusBadGateway,
	CodeServiceUnavailable: http.StatusServiceUnavailable,
}

func NewInvalidInputError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeInvalidInput, message)
}

// NewValidationError reports a request body that decoded but failed field rules.
func NewValidationError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeValidationFailed, message)
}

func NewExternalServiceError(message string) *errors.ErrorEnvelope {
	env, _ := errors.NewErrorEnvelope(CodeExternalService, message).WithSeverity(errors.SeverityMedium)
	return env
}

func NewServiceUnavailableError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeServiceUnavailable, message)
}

func NewNotFoundError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeNotFound, message)
}

func NewMethodNotAllowedError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeMethodNotAllowed, message)
}

// NewInternalError is reported with high severity so it logs at error level.
func NewInternalError(message string) *errors.ErrorEnvelope {
	env, _ := errors.NewErrorEnvelope(CodeInternal, message).WithSeverity(errors.SeverityHigh)
	return env
}

func NewConfigInvalidError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeConfigInvalid, message)
}

// Wrap builds an envelope around err, correlated with the request in ctx when
// there is one.
func Wrap(ctx context.Context, code string, err error, message string) *errors.ErrorEnvelope {
	envelope := EnsureCorrelationID(errors.NewErrorEnvelope(code, message), ctx)
	if err == nil {
		return envelope
	}
	if updated, updateErr := envelope.WithContext(map[string]interface{}{"wrapped_error": err.Error()}); updateErr == nil {
		envelope = updated
	}
	return envelope
}

func WrapInternal(ctx context.Context, err error, message string) *errors.ErrorEnvelope {
	return Wrap(ctx, CodeInternal, err, message)
}

func WrapConfigInvalid(ctx context.Context, err error, message string) *errors.ErrorEnvelope {
	return Wrap(ctx, CodeConfigInvalid, err, message)
}

// EnsureEnvelope normalizes any error into a gofulmen ErrorEnvelope.
func EnsureEnvelope(err error) *errors.ErrorEnvelope {
	if err == nil {
		env, _ := errors.NewErrorEnvelope(CodeInternal, "unexpected nil error").WithSeverity(errors.SeverityCritical)
		return env
	}
	if envelope, ok := err.(*errors.ErrorEnvelope); ok && envelope != nil {
		return envelope
	}

	env, _ := errors.NewErrorEnvelope(CodeInternal, "unexpected error").
		WithContext(map[string]interface{}{"wrapped_error": err.Error()})
	env, _ = env.WithSeverity(errors.SeverityHigh)
	return env
}

// EnsureCorrelationID stamps the request ID onto envelopes that lack one.
func EnsureCorrelationID(envelope *errors.ErrorEnvelope, ctx context.Context) *errors.ErrorEnvelope {
	if envelope == nil || envelope.CorrelationID != "" {
		return envelope
	}

	var correlationID string
	if ctx != nil {
		correlationID = middleware.GetRequestID(ctx)
	}
	if correlationID == "" {
		correlationID = "fallback-" + errors.GenerateCorrelationID()
	}
	return envelope.WithCorrelationID(correlationID)
}

// HTTPStatusFromCode maps an envelope code to its HTTP status. Unknown codes are 500.
func HTTPStatusFromCode(code string) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func HTTPStatusFromEnvelope(envelope *errors.ErrorEnvelope) int {
	if envelope == nil {
		return http.StatusInternalServerError
	}
	return HTTPStatusFromCode(envelope.Code)
}

// ResponseDetails merges envelope details with its context; details win on key clashes.
func ResponseDetails(envelope *errors.ErrorEnvelope) map[string]interface{} {
	if envelope == nil {
		return nil
	}

	details := make(map[string]interface{}, len(envelope.Details)+len(envelope.Context))
	for key, value := range envelope.Context {
		details[key] = value
	}
	for key, value := range envelope.Details {
		details[key] = value
	}
	if len(details) == 0 {
		return nil
	}
	return details
}

// HTTPErrorDetail captures the error body returned to callers.
type HTTPErrorDetail struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

// HTTPErrorResponse wraps HTTPErrorDetail in the standard envelope structure.
type HTTPErrorResponse struct {
	Error HTTPErrorDetail `json:"error"`
}

// MessageResponse is the flat error body used by the /api routes.
type MessageResponse struct {
	Error string `json:"error"`
}

// RespondWithError writes err as an envelope response.
func RespondWithError(w http.ResponseWriter, r *http.Request, err error) {
	envelope, status := finalize(r, EnsureEnvelope(err))
	writeJSON(w, status, HTTPErrorResponse{
		Error: HTTPErrorDetail{
			Code:      envelope.Code,
			Message:   envelope.Message,
			Details:   ResponseDetails(envelope),
			RequestID: envelope.CorrelationID,
		},
	})
}

// RespondWithMessage writes {"error": message} with the status derived from the
// envelope code.
func RespondWithMessage(w http.ResponseWriter, r *http.Request, envelope *errors.ErrorEnvelope) {
	if envelope == nil {
		envelope = EnsureEnvelope(nil)
	}
	envelope, status := finalize(r, envelope)
	writeJSON(w, status, MessageResponse{Error: envelope.Message})
}

// finalize attaches the correlation ID, then logs and counts the error.
func finalize(r *http.Request, envelope *errors.ErrorEnvelope) (*errors.ErrorEnvelope, int) {
	var ctx context.Context
	if r != nil {
		ctx = r.Context()
	}
	envelope = EnsureCorrelationID(envelope, ctx)
	status := HTTPStatusFromEnvelope(envelope)

	logHTTPError(envelope, status)
	metrics.RecordError(envelope.Code, status)
	if r != nil {
		metrics.RecordErrorByEndpoint(r.URL.Path, envelope.Code)
	}
	return envelope, status
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	if w == nil {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func logHTTPError(envelope *errors.ErrorEnvelope, statusCode int) {
	logger := observability.ServerLogger
	if logger == nil {
		return
	}

	fields := []zap.Field{
		zap.String("error_code", envelope.Code),
		zap.Int("http_status", statusCode),
		zap.String("request_id", envelope.CorrelationID),
	}
	if envelope.Severity != "" {
		fields = append(fields, zap.String("severity", string(envelope.Severity)))
	}
	for key, value := range envelope.Context {
		fields = append(fields, zap.Any(key, value))
	}

	switch envelope.Severity {
	case errors.SeverityCritical, errors.SeverityHigh:
		logger.Error(envelope.Message, fields...)
	case errors.SeverityMedium:
		logger.Warn(envelope.Message, fields...)
	default:
		logger.Info(envelope.Message, fields...)
	}
}
