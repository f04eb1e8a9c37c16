package cmd

import (
	"errors"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/scoutline/scoutline/internal/core"
	"github.com/scoutline/scoutline/internal/observability"
	"github.com/scoutline/scoutline/internal/output"
)

var askShowStatus bool

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Run one chat turn in the terminal",
	Long: `Run a full chat turn: plan, search, narrate and stream the answer to stdout.
This is the pipeline behind POST /api/chat without the HTTP layer.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		question := strings.TrimSpace(strings.Join(args, " "))
		if question == "" {
			return errors.New("question is required")
		}

		cfg, err := loadedConfig()
		if err != nil {
			return err
		}
		p, err := buildPipeline(cmd.Context(), cfg, observability.CLILogger)
		if err != nil {
			return err
		}
		defer p.Close() // nolint:errcheck // best-effort cleanup

		printer := &output.TurnPrinter{W: os.Stdout, ShowStatus: askShowStatus}
		outcome, err := p.Orchestrator().Run(cmd.Context(), []core.ChatMessage{{Role: "user", Content: question}}, printer)
		if err != nil {
			return err
		}

		observability.CLILogger.Debug("Turn finished",
			zap.String("turn_id", outcome.TurnID),
			zap.String("mode", string(outcome.Plan.Mode)),
			zap.Int("sources", core.SourceCount(outcome.Entries)),
			zap.Int("search_failures", len(outcome.Failures)),
			zap.Bool("degraded", outcome.Degraded))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().BoolVar(&askShowStatus, "status", false, "print stage transitions")
}
