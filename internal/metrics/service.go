package metrics

import (
	"sync/atomic"
	"time"

	"github.com/scoutline/scoutline/internal/observability"
)

// Service-level metric names.
const (
	HealthCheckTotal    = "health_check_total"
	HealthCheckDuration = "health_check_duration_ms"
	ServerStartTime     = "server_start_time_seconds"
	ActiveChatStreams   = "chat_streams_active"
	ChatStreamsTotal    = "chat_streams_total"
)

var activeStreams atomic.Int64

// RecordHealthCheck records one dependency check and its latency.
func RecordHealthCheck(checkName string, status string, duration time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Counter(HealthCheckTotal, 1, map[string]string{
		"check":  checkName,
		"status": status,
	})
	_ = observability.TelemetrySystem.Histogram(HealthCheckDuration, duration, map[string]string{"check": checkName})
}

// SetServerStartTime records when the HTTP server began listening.
func SetServerStartTime(t time.Time) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Gauge(ServerStartTime, float64(t.Unix()), nil)
}

// StreamOpened tracks a chat event stream and returns the func that closes it.
func StreamOpened() (closed func()) {
	n := activeStreams.Add(1)
	setActiveStreams(n)
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(ChatStreamsTotal, 1, nil)
	}

	var once atomic.Bool
	return func() {
		if once.Swap(true) {
			return
		}
		setActiveStreams(activeStreams.Add(-1))
	}
}

// ActiveStreams reports the chat streams currently open.
func ActiveStreams() int64 {
	return activeStreams.Load()
}

func setActiveStreams(n int64) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Gauge(ActiveChatStreams, float64(n), nil)
}
