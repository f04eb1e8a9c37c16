package handlers

import (
	"encoding/json"
	"net/http"
	"runtime"
	"runtime/debug"
	"sync"

	"github.com/fulmenhq/gofulmen/crucible"

	"github.com/scoutline/scoutline/internal/config"
)

// BuildInfo identifies the running binary.
type BuildInfo struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Commit    string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version,omitempty"`
}

// VersionResponse is the body of GET /version.
type VersionResponse struct {
	App          BuildInfo         `json:"app"`
	Dependencies map[string]string `json:"dependencies"`
	Platform     string            `json:"platform"`
	Goroutines   int               `json:"num_goroutines"`
}

var (
	buildMu sync.RWMutex
	build   = BuildInfo{Name: config.AppName, Version: "dev", Commit: "unknown", BuildDate: "unknown"}
)

// SetVersionInfo records the ldflags-injected build metadata. Values left at their
// defaults are filled from the module build info when the binary carries it.
func SetVersionInfo(version, commit, buildDate string) {
	buildMu.Lock()
	defer buildMu.Unlock()

	build.Version, build.Commit, build.BuildDate = version, commit, buildDate
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	if build.Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		build.Version = info.Main.Version
	}
	for _, setting := range info.Settings {
		switch {
		case setting.Key == "vcs.revision" && build.Commit == "unknown":
			build.Commit = setting.Value
		case setting.Key == "vcs.time" && build.BuildDate == "unknown":
			build.BuildDate = setting.Value
		}
	}
}

func currentBuild() BuildInfo {
	buildMu.RLock()
	defer buildMu.RUnlock()
	b := build
	b.GoVersion = runtime.Version()
	return b
}

// VersionHandler reports build metadata and the gofulmen stack versions.
func VersionHandler(w http.ResponseWriter, r *http.Request) {
	deps := crucible.GetVersion()
	response := VersionResponse{
		App: currentBuild(),
		Dependencies: map[string]string{
			"gofulmen": deps.Gofulmen,
			"crucible": deps.Crucible,
		},
		Platform:   runtime.GOOS + "/" + runtime.GOARCH,
		Goroutines: runtime.NumGoroutine(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}
