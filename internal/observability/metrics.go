package observability

import (
	"net"
	"strconv"

	"github.com/fulmenhq/gofulmen/telemetry"
	"github.com/fulmenhq/gofulmen/telemetry/exporters"
)

// DefaultMetricsPort is used when the exporter's bound port cannot be discovered.
const DefaultMetricsPort = 9090

var (
	// TelemetrySystem receives every metric the service emits. Nil disables metrics.
	TelemetrySystem *telemetry.System

	// PrometheusExporter serves TelemetrySystem in Prometheus text format.
	PrometheusExporter *exporters.PrometheusExporter

	metricsPort int
)

// InitMetrics starts a Prometheus exporter on port (0 picks a free port) and
// routes TelemetrySystem into it. Metric names are prefixed with namespace.
func InitMetrics(namespace string, port int) error {
	port = max(port, 0)
	exporter := exporters.NewPrometheusExporter(namespace, net.JoinHostPort("", strconv.Itoa(port)))
	if err := exporter.Start(); err != nil {
		return err
	}

	sys, err := telemetry.NewSystem(&telemetry.Config{Enabled: true, Emitter: exporter})
	if err != nil {
		return err
	}

	metricsPort = port
	if bound, err := resolvePort(exporter.GetAddr()); err == nil {
		metricsPort = bound
	} else if port == 0 {
		metricsPort = DefaultMetricsPort
	}

	PrometheusExporter = exporter
	TelemetrySystem = sys
	return nil
}

// GetMetricsPort returns the port the Prometheus exporter listens on, or 0 before
// InitMetrics.
func GetMetricsPort() int {
	return metricsPort
}

func resolvePort(addr string) (int, error) {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(portStr)
}
