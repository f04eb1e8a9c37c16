package handlers

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/fulmenhq/gofulmen/errors"

	apperrors "github.com/scoutline/scoutline/internal/errors"
	"github.com/scoutline/scoutline/internal/metrics"
)

// Check and aggregate states.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
	StatusTimeout   = "timeout"
)

// HealthResponse represents the aggregate health check response
type HealthResponse struct {
	Status        string            `json:"status"`
	Version       string            `json:"version"`
	Timestamp     string            `json:"timestamp"`
	ActiveStreams int64             `json:"activeStreams"`
	Checks        map[string]string `json:"checks,omitempty"`
}

// ProbeResponse represents individual probe response
type ProbeResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrDegraded marks a check that works but with reduced capability. Checkers wrap it
// to report "degraded" instead of "unhealthy".
var ErrDegraded = stderrors.New("degraded")

// HealthChecker defines interface for health checkable components
type HealthChecker interface {
	CheckHealth(ctx context.Context) error
}

type probe struct {
	name    string
	timeout time.Duration
	// skipChecks answers from process state alone.
	skipChecks bool
}

var (
	probeAggregate = probe{name: "aggregate", timeout: 5 * time.Second}
	// A missing credential must never get the process restarted, so liveness ignores
	// dependency checks.
	probeLive    = probe{name: "live", timeout: time.Second, skipChecks: true}
	probeReady   = probe{name: "ready", timeout: 5 * time.Second}
	probeStartup = probe{name: "startup", timeout: 3 * time.Second}
)

// HealthManager manages health checks and probe states
type HealthManager struct {
	mu       sync.RWMutex
	checkers map[string]HealthChecker
	version  string
}

// NewHealthManager creates a new health manager
func NewHealthManager(version string) *HealthManager {
	return &HealthManager{
		checkers: make(map[string]HealthChecker),
		version:  version,
	}
}

// RegisterChecker registers a health checker
func (hm *HealthManager) RegisterChecker(name string, checker HealthChecker) {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	hm.checkers[name] = checker
}

// runHealthChecks runs every checker in name order until ctx expires.
func (hm *HealthManager) runHealthChecks(ctx context.Context) map[string]string {
	hm.mu.RLock()
	names := make([]string, 0, len(hm.checkers))
	for name := range hm.checkers {
		names = append(names, name)
	}
	checkers := make(map[string]HealthChecker, len(hm.checkers))
	for name, c := range hm.checkers {
		checkers[name] = c
	}
	hm.mu.RUnlock()
	sort.Strings(names)

	checks := make(map[string]string, len(names))
	for _, name := range names {
		if ctx.Err() != nil {
			checks[name] = StatusTimeout
			continue
		}
		started := time.Now()
		err := checkers[name].CheckHealth(ctx)
		switch {
		case err == nil:
			checks[name] = StatusHealthy
		case stderrors.Is(err, ErrDegraded):
			checks[name] = StatusDegraded
		default:
			checks[name] = StatusUnhealthy
		}
		metrics.RecordHealthCheck(name, checks[name], time.Since(started))
	}

	return checks
}

// determineOverallStatus folds check results: any unhealthy check fails the service,
// degraded or timed-out checks degrade it.
func (hm *HealthManager) determineOverallStatus(checks map[string]string) string {
	status := StatusHealthy
	for _, result := range checks {
		switch result {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusDegraded, StatusTimeout:
			status = StatusDegraded
		}
	}
	return status
}

func (hm *HealthManager) serveProbe(p probe, w http.ResponseWriter, r *http.Request) {
	var checks map[string]string
	status := StatusHealthy
	if !p.skipChecks {
		ctx, cancel := context.WithTimeout(r.Context(), p.timeout)
		checks = hm.runHealthChecks(ctx)
		cancel()
		status = hm.determineOverallStatus(checks)
	}

	if status == StatusUnhealthy {
		envelope := errors.NewErrorEnvelope("SERVICE_UNAVAILABLE", p.name+" health check failed")
		apperrors.RespondWithError(w, r, enrichHealthEnvelope(envelope, p.name, status, checks))
		return
	}

	var body any = ProbeResponse{Status: status, Timestamp: time.Now().UTC()}
	if p == probeAggregate {
		body = HealthResponse{
			Status:        status,
			Version:       hm.version,
			Timestamp:     time.Now().UTC().Format(time.RFC3339),
			ActiveStreams: metrics.ActiveStreams(),
			Checks:        checks,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(body)
}

// HealthHandler reports every dependency check with the build version.
func (hm *HealthManager) HealthHandler(w http.ResponseWriter, r *http.Request) {
	hm.serveProbe(probeAggregate, w, r)
}

// LivenessHandler reports that the process is serving requests.
func (hm *HealthManager) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	hm.serveProbe(probeLive, w, r)
}

// ReadinessHandler fails only when a required dependency is down. Missing credentials
// leave the service ready but degraded.
func (hm *HealthManager) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	hm.serveProbe(probeReady, w, r)
}

// StartupHandler reports whether initialization has completed.
func (hm *HealthManager) StartupHandler(w http.ResponseWriter, r *http.Request) {
	hm.serveProbe(probeStartup, w, r)
}

func enrichHealthEnvelope(envelope *errors.ErrorEnvelope, probe, status string, checks map[string]string) *errors.ErrorEnvelope {
	if envelope == nil {
		return nil
	}

	details := map[string]interface{}{"status": status, "probe": probe}
	if len(checks) > 0 {
		details["checks"] = checks
	}
	envelope = envelope.WithDetails(details)

	contextData := map[string]interface{}{"status": status, "probe": probe}
	var failing []string
	for name, result := range checks {
		if result != StatusHealthy {
			failing = append(failing, name)
		}
	}
	if len(failing) > 0 {
		sort.Strings(failing)
		contextData["unhealthy_checks"] = failing
	}

	envelope, _ = envelope.WithContext(contextData)
	return envelope
}

var globalHealthManager *HealthManager

// InitHealthManager initializes the global health manager
func InitHealthManager(version string) {
	globalHealthManager = NewHealthManager(version)
}

// GetHealthManager returns the global health manager
func GetHealthManager() *HealthManager {
	return globalHealthManager
}

func serveGlobalProbe(p probe, w http.ResponseWriter, r *http.Request) {
	if globalHealthManager != nil {
		globalHealthManager.serveProbe(p, w, r)
		return
	}

	envelope := errors.NewErrorEnvelope("SERVICE_UNAVAILABLE", "health manager not initialized")
	apperrors.RespondWithError(w, r, enrichHealthEnvelope(envelope, p.name, "unknown", nil))
}

// HealthHandler serves the aggregate check from the global manager.
func HealthHandler(w http.ResponseWriter, r *http.Request) { serveGlobalProbe(probeAggregate, w, r) }

// LivenessHandler serves the liveness probe from the global manager.
func LivenessHandler(w http.ResponseWriter, r *http.Request) { serveGlobalProbe(probeLive, w, r) }

// ReadinessHandler serves the readiness probe from the global manager.
func ReadinessHandler(w http.ResponseWriter, r *http.Request) { serveGlobalProbe(probeReady, w, r) }

// StartupHandler serves the startup probe from the global manager.
func StartupHandler(w http.ResponseWriter, r *http.Request) { serveGlobalProbe(probeStartup, w, r) }
