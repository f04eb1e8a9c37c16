package server

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fulmenhq/gofulmen/errors"
	"go.uber.org/zap"

	apperrors "github.com/scoutline/scoutline/internal/errors"
	"github.com/scoutline/scoutline/internal/observability"
)

const defaultMetricsPort = 9090

// Headers that describe the exporter connection rather than the payload.
var hopByHopHeaders = map[string]struct{}{
	"Connection":          {},
	"Keep-Alive":          {},
	"Proxy-Authenticate":  {},
	"Proxy-Authorization": {},
	"Te":                  {},
	"Trailer":             {},
	"Transfer-Encoding":   {},
	"Upgrade":             {},
}

// metricsProxy serves the Prometheus exporter's output on the main listener so a
// single port can be scraped.
type metricsProxy struct {
	client       *http.Client
	fallbackPort int
}

func newMetricsProxy(fallbackPort int) *metricsProxy {
	if fallbackPort <= 0 {
		fallbackPort = defaultMetricsPort
	}
	return &metricsProxy{
		client:       &http.Client{Timeout: 5 * time.Second},
		fallbackPort: fallbackPort,
	}
}

func (p *metricsProxy) exporterURL() string {
	port := observability.GetMetricsPort()
	if port == 0 {
		port = p.fallbackPort
	}
	return fmt.Sprintf("http://127.0.0.1:%d/metrics", port)
}

func (p *metricsProxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if observability.PrometheusExporter == nil {
		apperrors.RespondWithError(w, r, apperrors.NewServiceUnavailableError("Metrics exporter not initialized"))
		return
	}

	metricsURL := p.exporterURL()
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, metricsURL, nil)
	if err != nil {
		apperrors.RespondWithError(w, r, proxyFailure(apperrors.NewInternalError("Unable to construct metrics request"), metricsURL, err))
		return
	}
	if accept := r.Header.Get("Accept"); accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		apperrors.RespondWithError(w, r, proxyFailure(apperrors.NewExternalServiceError("Prometheus exporter unavailable"), metricsURL, err))
		return
	}
	defer resp.Body.Close() // nolint:errcheck

	for key, values := range resp.Header {
		if _, skip := hopByHopHeaders[http.CanonicalHeaderKey(key)]; skip {
			continue
		}
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}
	if resp.Header.Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	}

	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil && observability.ServerLogger != nil {
		observability.ServerLogger.Warn("Failed to write metrics response", zap.Error(err))
	}
}

func proxyFailure(envelope *errors.ErrorEnvelope, metricsURL string, cause error) *errors.ErrorEnvelope {
	updated, err := envelope.WithContext(map[string]interface{}{
		"metrics_url":    metricsURL,
		"original_error": cause.Error(),
	})
	if err != nil {
		return envelope
	}
	return updated
}
