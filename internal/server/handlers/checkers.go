package handlers

import (
	"context"
	"fmt"

	"github.com/scoutline/scoutline/internal/observability"
)

// ConfiguredChecker reports a dependency that the pipeline can run without. A missing
// credential degrades the service instead of failing it.
type ConfiguredChecker struct {
	Name       string
	Configured func() bool
}

// CheckHealth implements HealthChecker.
func (c ConfiguredChecker) CheckHealth(ctx context.Context) error {
	if c.Configured != nil && c.Configured() {
		return nil
	}
	return fmt.Errorf("%s not configured: %w", c.Name, ErrDegraded)
}

// Pinger is satisfied by stores that can verify their connection.
type Pinger interface {
	CheckHealth(ctx context.Context) error
}

// StoreChecker fails when the persistent cache cannot be reached.
type StoreChecker struct {
	Store Pinger
}

// CheckHealth implements HealthChecker.
func (c StoreChecker) CheckHealth(ctx context.Context) error {
	if c.Store == nil {
		return fmt.Errorf("store not opened")
	}
	return c.Store.CheckHealth(ctx)
}

// TelemetryChecker reports whether the metrics pipeline is running.
type TelemetryChecker struct{}

// CheckHealth implements HealthChecker.
func (TelemetryChecker) CheckHealth(ctx context.Context) error {
	if observability.TelemetrySystem == nil {
		return fmt.Errorf("telemetry disabled: %w", ErrDegraded)
	}
	return nil
}
