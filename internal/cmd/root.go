package cmd

import (
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/telemetry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/scoutline/scoutline/internal/ailink/driver"
	"github.com/scoutline/scoutline/internal/config"
	"github.com/scoutline/scoutline/internal/observability"
)

var (
	cfgFile   string
	envFile   string
	verbose   bool
	traceFile string

	// appConfig is loaded once per invocation by initConfig.
	appConfig *config.Config

	// Version info set by main package
	versionInfo struct {
		Version   string
		Commit    string
		BuildDate string
	}
)

// SetVersionInfo is called by main package to set version information
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   config.AppName,
	Short: "Search-augmented chat with live narration",
	Long: config.AppName + ` answers questions by planning web searches, running them,
narrating what it finds and streaming a cited answer.

Use the subcommands to serve the HTTP API or run a single step from the terminal.`,
	SilenceUsage: true,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		driver.SetTracer(nil)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Disable global telemetry early so CLI commands never emit metrics to stdout.
	// Server mode initializes the real system later.
	disabledConfig := &telemetry.Config{Enabled: false}
	if sys, err := telemetry.NewSystem(disabledConfig); err == nil {
		telemetry.SetGlobalSystem(sys)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/"+config.AppName+"/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file to load before reading the environment (default .env)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (sets log level to debug)")
	rootCmd.PersistentFlags().StringVar(&traceFile, "trace", "", "trace model requests/responses to NDJSON file")
}

// initConfig loads configuration and prepares the CLI logger.
func initConfig() {
	observability.InitCLILogger(config.AppName, verbose)

	cfg, err := config.Load(config.LoadOptions{ConfigFile: cfgFile, EnvFile: envFile})
	if err != nil {
		ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, "Failed to load configuration", err)
	}
	appConfig = cfg

	if traceFile != "" {
		if err := driver.EnableTracing(traceFile); err != nil {
			observability.CLILogger.Warn("Failed to enable tracing", zap.Error(err))
		} else {
			observability.CLILogger.Debug("Model tracing enabled", zap.String("file", traceFile))
		}
	}
}

// loadedConfig returns the configuration loaded for this invocation.
func loadedConfig() (*config.Config, error) {
	if appConfig != nil {
		return appConfig, nil
	}
	cfg, err := config.Load(config.LoadOptions{ConfigFile: cfgFile, EnvFile: envFile})
	if err != nil {
		return nil, err
	}
	appConfig = cfg
	return cfg, nil
}
