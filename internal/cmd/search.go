package cmd

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/scoutline/scoutline/internal/core"
	"github.com/scoutline/scoutline/internal/core/search"
	"github.com/scoutline/scoutline/internal/observability"
	"github.com/scoutline/scoutline/internal/output"
)

var searchMaxResults int

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Run one web search and print the results",
	Long: `Run a single search through the configured provider, the same call POST /api/search
makes. Responses are served from the search cache when possible.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := resolveOutputFormat(cmd)
		if err != nil {
			return err
		}

		query := strings.TrimSpace(strings.Join(args, " "))
		if query == "" {
			return errors.New("query is required")
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

		if !search.Configured(p.Searcher) {
			return search.ErrNotConfigured
		}

		resp, err := p.Searcher.Search(cmd.Context(), query, search.ClampMaxResults(searchMaxResults))
		if err != nil {
			return err
		}

		rendered, err := output.NewFormatter(format).FormatSearch(query, resp)
		if err != nil {
			return err
		}
		return writeRendered(cmd, rendered)
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().IntVarP(&searchMaxResults, "max-results", "n", core.FollowupDefaultResult, "results to request (3-15)")
	addOutputFlags(searchCmd)
}
