package observability

import (
	"testing"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/fulmenhq/gofulmen/logging"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInitCLILogger(t *testing.T) {
	InitCLILogger("scoutline-test", false)
	require.NotNil(t, CLILogger)
	CLILogger.Info("cli logger ready", zap.String("test", "value"))

	InitCLILogger("scoutline-test", true)
	require.NotNil(t, CLILogger)
	CLILogger.Debug("verbose cli logger ready")
}

func TestInitServerLoggerProfiles(t *testing.T) {
	t.Run("Structured", func(t *testing.T) {
		InitServerLogger("scoutline-test", ServerLoggerOptions{Level: "info", Profile: "structured", Namespace: "scoutline"})
		require.NotNil(t, ServerLogger)
		ServerLogger.Info("structured message", zap.String("component", "test"), zap.Int("request_id", 123))
	})

	t.Run("Simple", func(t *testing.T) {
		InitServerLogger("scoutline-test", ServerLoggerOptions{Level: "debug", Profile: "SIMPLE"})
		require.NotNil(t, ServerLogger)
		ServerLogger.Debug("simple message")
	})

	t.Run("DefaultsToStructured", func(t *testing.T) {
		InitServerLogger("scoutline-test", ServerLoggerOptions{})
		require.NotNil(t, ServerLogger)
	})
}

func TestParseLogLevel(t *testing.T) {
	cases := map[string]string{
		"trace":   "TRACE",
		"DEBUG":   "DEBUG",
		" info ":  "INFO",
		"warning": "WARN",
		"warn":    "WARN",
		"error":   "ERROR",
		"":        "INFO",
		"verbose": "INFO",
	}
	for in, want := range cases {
		require.Equal(t, want, parseLogLevel(in), in)
	}
}

func TestServerLoggerConfig(t *testing.T) {
	structured := serverLoggerConfig("svc", ServerLoggerOptions{Level: "warn", Namespace: "scoutline"})
	require.Equal(t, logging.ProfileStructured, structured.Profile)
	require.Equal(t, "WARN", structured.DefaultLevel)
	require.Equal(t, "json", structured.Sinks[0].Format)
	require.Equal(t, "scoutline", structured.StaticFields["namespace"])
	require.Len(t, structured.Middleware, 1)
	require.True(t, structured.EnableStacktrace)

	simple := serverLoggerConfig("svc", ServerLoggerOptions{Profile: " Simple "})
	require.Equal(t, logging.ProfileSimple, simple.Profile)
	require.Equal(t, "console", simple.Sinks[0].Format)
	require.Empty(t, simple.Middleware)
	require.False(t, simple.EnableStacktrace)
	require.NotContains(t, simple.StaticFields, "namespace")
}

func TestSeverityFor(t *testing.T) {
	require.Equal(t, logging.DEBUG, severityFor("debug"))
	require.Equal(t, logging.WARN, severityFor("warning"))
	require.Equal(t, logging.INFO, severityFor("nonsense"))
}

func TestSetServerLogLevel(t *testing.T) {
	ServerLogger = nil
	require.NotPanics(t, func() { SetServerLogLevel("debug") })

	InitServerLogger("scoutline-test", ServerLoggerOptions{Level: "info"})
	require.NotPanics(t, func() { SetServerLogLevel("error") })
}

func TestEmbeddedCrucibleVersion(t *testing.T) {
	version := crucible.GetVersion()
	require.NotEmpty(t, version.Gofulmen)
	require.NotEmpty(t, version.Crucible)
	require.NotEmpty(t, crucible.GetVersionString())
}

func TestResolvePort(t *testing.T) {
	port, err := resolvePort("[::]:9090")
	require.NoError(t, err)
	require.Equal(t, 9090, port)

	_, err = resolvePort("no-port")
	require.Error(t, err)
}
