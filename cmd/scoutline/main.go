package main

import (
	"github.com/fulmenhq/gofulmen/foundry"

	"github.com/scoutline/scoutline/internal/cmd"
	"github.com/scoutline/scoutline/internal/server/handlers"
)

// Set via ldflags, e.g.
// go build -ldflags="-X main.version=1.0.0 -X main.commit=abc123 -X main.buildDate=2026-10-18"
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, commit, buildDate)
	handlers.SetVersionInfo(version, commit, buildDate)

	if err := cmd.Execute(); err != nil {
		// Commands log their own failures; this only sets the exit code.
		cmd.ExitWithCodeStderr(foundry.ExitFailure, "Command execution failed", err)
	}
}
