package output

import (
	"fmt"
	"strings"

	"github.com/scoutline/scoutline/internal/ailink/prompt"
	"github.com/scoutline/scoutline/internal/core"
)

// MarkdownFormatter renders results as markdown.
type MarkdownFormatter struct{}

// FormatSearch renders hits as a numbered list of links.
func (f *MarkdownFormatter) FormatSearch(query string, resp *core.SearchResponse) (string, error) {
	if resp == nil {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## %s\n\n", escapeMarkdownCell(query)))
	if answer := strings.TrimSpace(resp.Answer); answer != "" {
		sb.WriteString(fmt.Sprintf("> %s\n\n", answer))
	}
	for i, r := range resp.Results {
		sb.WriteString(fmt.Sprintf("%d. [%s](%s)\n", i+1, escapeMarkdownCell(snippet(r.Title, 120)), r.URL))
		if content := snippet(r.Content, 280); content != "" {
			sb.WriteString(fmt.Sprintf("   %s\n", content))
		}
	}
	return sb.String(), nil
}

// FormatPlan renders the plan as a field table.
func (f *MarkdownFormatter) FormatPlan(query string, plan core.SearchPlan) (string, error) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## %s\n\n", escapeMarkdownCell(query)))
	sb.WriteString("| Field | Value |\n")
	sb.WriteString("|-------|-------|\n")
	sb.WriteString(fmt.Sprintf("| should search | %t |\n", plan.ShouldSearch))
	sb.WriteString(fmt.Sprintf("| mode | %s |\n", plan.Mode))
	sb.WriteString(fmt.Sprintf("| results per query | %d |\n", plan.PrimaryResultCount))
	for i, q := range plan.PrimaryQueries {
		sb.WriteString(fmt.Sprintf("| query %d | %s |\n", i+1, escapeMarkdownCell(q)))
	}
	sb.WriteString(fmt.Sprintf("| reason | %s |\n", escapeMarkdownCell(plan.Reason)))
	return sb.String(), nil
}

// FormatPrompts renders the prompt set as a markdown table.
func (f *MarkdownFormatter) FormatPrompts(prompts []*prompt.Prompt) (string, error) {
	var sb strings.Builder
	sb.WriteString("| Slug | Version | Model | Output | Description |\n")
	sb.WriteString("|------|---------|-------|--------|-------------|\n")
	for _, p := range sortedPrompts(prompts) {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s |\n",
			escapeMarkdownCell(p.Config.Slug),
			escapeMarkdownCell(p.Config.Version),
			modelRole(p),
			outputKind(p),
			escapeMarkdownCell(p.Config.Description),
		))
	}
	return sb.String(), nil
}

func escapeMarkdownCell(value string) string {
	return strings.ReplaceAll(value, "|", "\\|")
}
