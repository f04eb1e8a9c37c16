package metrics

import (
	"strconv"

	"github.com/scoutline/scoutline/internal/observability"
)

// Error metric names.
const (
	ErrorsTotalName      = "errors_total"
	PanicsTotalName      = "panics_total"
	ErrorsByEndpointName = "errors_by_endpoint"
)

// RecordError counts an HTTP error response by code and status.
func RecordError(errorCode string, httpStatus int) {
	count(ErrorsTotalName, map[string]string{
		"error_code":  errorCode,
		"http_status": strconv.Itoa(httpStatus),
	})
}

// RecordPanic counts a recovered handler panic.
func RecordPanic() {
	count(PanicsTotalName, nil)
}

// RecordErrorByEndpoint counts an error against the route pattern that produced it.
func RecordErrorByEndpoint(endpoint string, errorCode string) {
	count(ErrorsByEndpointName, map[string]string{
		"endpoint":   endpoint,
		"error_code": errorCode,
	})
}

func count(name string, tags map[string]string) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Counter(name, 1, tags)
}
