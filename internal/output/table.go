package output

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/scoutline/scoutline/internal/ailink/prompt"
	"github.com/scoutline/scoutline/internal/core"
)

// TableFormatter renders results as an ASCII table.
type TableFormatter struct{}

// FormatSearch renders a provider response as a table of hits.
func (f *TableFormatter) FormatSearch(query string, resp *core.SearchResponse) (string, error) {
	if resp == nil {
		return "", nil
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetTitle(snippet(query, 80))
	t.AppendHeader(table.Row{"#", "Title", "URL", "Content"})

	for i, r := range resp.Results {
		t.AppendRow(table.Row{i + 1, snippet(r.Title, 48), r.URL, snippet(r.Content, 72)})
	}
	t.AppendFooter(table.Row{"", "", fmt.Sprintf("%d results", len(resp.Results)), ""})

	rendered := t.Render()
	if answer := strings.TrimSpace(resp.Answer); answer != "" {
		rendered += "\n\nAnswer: " + answer
	}
	return rendered, nil
}

// FormatPlan renders a search plan as a two-column table.
func (f *TableFormatter) FormatPlan(query string, plan core.SearchPlan) (string, error) {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetTitle(snippet(query, 80))
	t.AppendHeader(table.Row{"Field", "Value"})

	t.AppendRow(table.Row{"should search", plan.ShouldSearch})
	t.AppendRow(table.Row{"mode", string(plan.Mode)})
	t.AppendRow(table.Row{"results per query", plan.PrimaryResultCount})
	if len(plan.PrimaryQueries) == 0 {
		t.AppendRow(table.Row{"queries", "-"})
	}
	for i, q := range plan.PrimaryQueries {
		t.AppendRow(table.Row{fmt.Sprintf("query %d", i+1), q})
	}
	t.AppendRow(table.Row{"reason", snippet(plan.Reason, 96)})

	return t.Render(), nil
}

// FormatPrompts renders the prompt set with its call budgets.
func (f *TableFormatter) FormatPrompts(prompts []*prompt.Prompt) (string, error) {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Slug", "Version", "Model", "Output", "Max Tokens", "Timeout", "Description"})

	for _, p := range sortedPrompts(prompts) {
		req := p.Config.Request
		timeout := "-"
		if req.Timeout > 0 {
			timeout = req.Timeout.String()
		}
		t.AppendRow(table.Row{
			p.Config.Slug,
			p.Config.Version,
			modelRole(p),
			outputKind(p),
			req.MaxTokens,
			timeout,
			snippet(p.Config.Description, 60),
		})
	}

	return t.Render(), nil
}
