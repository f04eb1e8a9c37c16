package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/scoutline/scoutline/internal/ailink/prompt"
	"github.com/scoutline/scoutline/internal/output"
)

var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "Inspect the prompt set used by the pipeline",
}

var promptsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List prompts with their model role and call budget",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := resolveOutputFormat(cmd)
		if err != nil {
			return err
		}

		registry, err := loadPromptRegistry()
		if err != nil {
			return err
		}

		prompts := registry.List()
		if len(prompts) == 0 {
			return writeRendered(cmd, "No prompts found.")
		}

		rendered, err := output.NewFormatter(format).FormatPrompts(prompts)
		if err != nil {
			return err
		}
		return writeRendered(cmd, rendered)
	},
}

var promptsShowCmd = &cobra.Command{
	Use:   "show <slug>",
	Short: "Print one prompt's templates",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := loadPromptRegistry()
		if err != nil {
			return err
		}

		def, err := registry.Get(args[0])
		if err != nil {
			return err
		}
		return writeRendered(cmd, renderPromptTemplates(def))
	},
}

func loadPromptRegistry() (prompt.Registry, error) {
	cfg, err := loadedConfig()
	if err != nil {
		return nil, err
	}
	registry, err := prompt.LoadRegistry(cfg.LLM.PromptsDir)
	if err != nil {
		return nil, fmt.Errorf("load prompts: %w", err)
	}
	return registry, nil
}

func renderPromptTemplates(def *prompt.Prompt) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s", def.Config.Slug)
	if def.Config.Version != "" {
		fmt.Fprintf(&sb, " (v%s)", def.Config.Version)
	}
	sb.WriteString("\n")
	if def.Config.Description != "" {
		sb.WriteString(def.Config.Description + "\n")
	}
	if system := strings.TrimSpace(def.Config.SystemTemplate); system != "" {
		sb.WriteString("\n## system\n\n" + system + "\n")
	}
	if user := strings.TrimSpace(def.Config.UserTemplate); user != "" {
		sb.WriteString("\n## user\n\n" + user + "\n")
	}
	return sb.String()
}

func init() {
	rootCmd.AddCommand(promptsCmd)
	promptsCmd.AddCommand(promptsListCmd)
	promptsCmd.AddCommand(promptsShowCmd)
	addOutputFlags(promptsListCmd)
	promptsShowCmd.Flags().String("out", "", "write output to a file instead of stdout")
}
