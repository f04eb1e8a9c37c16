package observability

import (
	"fmt"
	"os"
	"strings"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/logging"
)

var (
	// CLILogger writes human-readable output for CLI commands.
	CLILogger *logging.Logger

	// ServerLogger writes request and pipeline logs for the HTTP server.
	ServerLogger *logging.Logger
)

type levelSpec struct {
	name     string
	severity logging.Severity
}

var levels = map[string]levelSpec{
	"trace":   {"TRACE", logging.TRACE},
	"debug":   {"DEBUG", logging.DEBUG},
	"info":    {"INFO", logging.INFO},
	"warn":    {"WARN", logging.WARN},
	"warning": {"WARN", logging.WARN},
	"error":   {"ERROR", logging.ERROR},
}

func lookupLevel(level string) levelSpec {
	if spec, ok := levels[strings.ToLower(strings.TrimSpace(level))]; ok {
		return spec
	}
	return levels["info"]
}

// parseLogLevel maps a configured level to its gofulmen name; unknown values are INFO.
func parseLogLevel(level string) string { return lookupLevel(level).name }

func severityFor(level string) logging.Severity { return lookupLevel(level).severity }

// InitCLILogger initializes the CLI logger; verbose lowers it to debug.
func InitCLILogger(serviceName string, verbose bool) {
	logger, err := logging.NewCLI(serviceName)
	if err != nil {
		exitWithCodeStderr(foundry.ExitConfigInvalid, "Failed to initialize CLI logger", err)
	}
	if verbose {
		logger.SetLevel(logging.DEBUG)
	}
	CLILogger = logger
}

// ServerLoggerOptions configures the server logger.
type ServerLoggerOptions struct {
	Level string
	// Profile is "structured" (JSON lines) or "simple" (console text).
	Profile   string
	Namespace string
}

// InitServerLogger initializes ServerLogger from opts.
func InitServerLogger(serviceName string, opts ServerLoggerOptions) {
	logger, err := logging.New(serverLoggerConfig(serviceName, opts))
	if err != nil {
		exitWithCodeStderr(foundry.ExitConfigInvalid, "Failed to initialize server logger", err)
	}
	ServerLogger = logger
}

// serverLoggerConfig builds the logger config. The structured profile writes JSON
// with correlation middleware and stack traces; simple writes console text.
func serverLoggerConfig(serviceName string, opts ServerLoggerOptions) *logging.LoggerConfig {
	simple := strings.EqualFold(strings.TrimSpace(opts.Profile), "simple")

	cfg := &logging.LoggerConfig{
		Profile:      logging.ProfileStructured,
		DefaultLevel: parseLogLevel(opts.Level),
		Service:      serviceName,
		Environment:  "production",
		StaticFields: map[string]any{},
		Sinks: []logging.SinkConfig{{
			Type:    "console",
			Format:  "json",
			Console: &logging.ConsoleSinkConfig{Stream: "stderr"},
		}},
		EnableCaller:     true,
		EnableStacktrace: !simple,
	}
	if opts.Namespace != "" {
		cfg.StaticFields["namespace"] = opts.Namespace
	}

	if simple {
		cfg.Profile = logging.ProfileSimple
		cfg.Environment = "development"
		cfg.Sinks[0].Format = "console"
		return cfg
	}
	cfg.Middleware = []logging.MiddlewareConfig{{
		Name:    "correlation",
		Enabled: true,
		Order:   100,
		Config:  map[string]any{},
	}}
	return cfg
}

// SetServerLogLevel applies a configured level to the running server logger.
func SetServerLogLevel(level string) {
	if ServerLogger != nil {
		ServerLogger.SetLevel(severityFor(level))
	}
}

// exitWithCodeStderr reports a logger bootstrap failure on stderr and exits.
func exitWithCodeStderr(exitCode foundry.ExitCode, msg string, err error) {
	line := "FATAL: " + msg
	if err != nil {
		line += ": " + err.Error()
	}
	fmt.Fprintln(os.Stderr, line)

	if info, ok := foundry.GetExitCodeInfo(exitCode); ok {
		fmt.Fprintf(os.Stderr, "Exit Code: %d (%s) - %s\n", info.Code, info.Name, info.Description)
		os.Exit(info.Code)
	}
	os.Exit(int(exitCode))
}
