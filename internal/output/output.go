// Package output renders command results for the terminal.
package output

import (
	"fmt"
	"sort"
	"strings"

	"github.com/scoutline/scoutline/internal/ailink/prompt"
	"github.com/scoutline/scoutline/internal/core"
)

// Format names a rendering for command output.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// Formatter renders the results of the search, plan and prompts commands.
type Formatter interface {
	FormatSearch(query string, resp *core.SearchResponse) (string, error)
	FormatPlan(query string, plan core.SearchPlan) (string, error)
	FormatPrompts(prompts []*prompt.Prompt) (string, error)
}

var formatAliases = map[string]Format{
	"":         FormatTable,
	"table":    FormatTable,
	"json":     FormatJSON,
	"markdown": FormatMarkdown,
	"md":       FormatMarkdown,
}

// ParseFormat accepts a format name or alias, case-insensitively. Empty means table.
func ParseFormat(value string) (Format, error) {
	if format, ok := formatAliases[strings.ToLower(strings.TrimSpace(value))]; ok {
		return format, nil
	}
	return "", fmt.Errorf("unsupported output format: %s", value)
}

// NewFormatter returns the formatter for format; unknown formats render tables.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatMarkdown:
		return &MarkdownFormatter{}
	}
	return &TableFormatter{}
}

// snippet flattens whitespace and caps s at limit runes for table cells.
func snippet(s string, limit int) string {
	flat := strings.Join(strings.Fields(s), " ")
	runes := []rune(flat)
	if limit <= 0 || len(runes) <= limit {
		return flat
	}
	return string(runes[:limit-1]) + "…"
}

func modelRole(p *prompt.Prompt) string {
	if role := strings.TrimSpace(p.Config.Request.Role); role != "" {
		return role
	}
	return "orchestrator"
}

func outputKind(p *prompt.Prompt) string {
	if kind := strings.TrimSpace(p.Config.Request.Output); kind != "" {
		return kind
	}
	return prompt.OutputText
}

func sortedPrompts(prompts []*prompt.Prompt) []*prompt.Prompt {
	out := make([]*prompt.Prompt, 0, len(prompts))
	for _, p := range prompts {
		if p != nil {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Config.Slug < out[j].Config.Slug
	})
	return out
}
