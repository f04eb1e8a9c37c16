package cmd

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/scoutline/scoutline/internal/core"
	"github.com/scoutline/scoutline/internal/core/planner"
	"github.com/scoutline/scoutline/internal/observability"
	"github.com/scoutline/scoutline/internal/output"
)

var planHeuristicOnly bool

var planCmd = &cobra.Command{
	Use:   "plan <question>",
	Short: "Show the search plan for a question without searching",
	Long: `Run only the planning steps of a chat turn: the search decision and query
optimization. No search is performed and no answer is generated.

With --heuristic, or without a model key, the keyword heuristic alone decides.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := resolveOutputFormat(cmd)
		if err != nil {
			return err
		}

		question := strings.TrimSpace(strings.Join(args, " "))
		if question == "" {
			return errors.New("question is required")
		}

		var plan core.SearchPlan
		if planHeuristicOnly {
			plan = planner.HeuristicPlan(question)
		} else {
			cfg, err := loadedConfig()
			if err != nil {
				return err
			}
			p, err := buildPipeline(cmd.Context(), cfg, observability.CLILogger)
			if err != nil {
				return err
			}
			defer p.Close() // nolint:errcheck // best-effort cleanup

			plan, err = p.Orchestrator().Plan(cmd.Context(), []core.ChatMessage{{Role: "user", Content: question}})
			if err != nil {
				return err
			}
		}

		rendered, err := output.NewFormatter(format).FormatPlan(question, plan)
		if err != nil {
			return err
		}
		return writeRendered(cmd, rendered)
	},
}

func init() {
	rootCmd.AddCommand(planCmd)
	planCmd.Flags().BoolVar(&planHeuristicOnly, "heuristic", false, "skip the model and use the keyword heuristic only")
	addOutputFlags(planCmd)
}
