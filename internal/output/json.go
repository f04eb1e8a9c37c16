package output

import (
	"encoding/json"
	"strings"

	"github.com/scoutline/scoutline/internal/ailink/prompt"
	"github.com/scoutline/scoutline/internal/core"
)

// JSONFormatter renders results as JSON documents, one per command.
type JSONFormatter struct {
	Indent bool
}

// FormatSearch renders the provider response exactly as /api/search returns it.
func (f *JSONFormatter) FormatSearch(query string, resp *core.SearchResponse) (string, error) {
	if resp == nil {
		return "", nil
	}
	return f.marshal(resp)
}

// FormatPlan renders the plan as the search_plan event payload.
func (f *JSONFormatter) FormatPlan(query string, plan core.SearchPlan) (string, error) {
	return f.marshal(plan)
}

// FormatPrompts renders the prompt configurations without their template bodies.
func (f *JSONFormatter) FormatPrompts(prompts []*prompt.Prompt) (string, error) {
	configs := make([]prompt.Config, 0, len(prompts))
	for _, p := range sortedPrompts(prompts) {
		cfg := p.Config
		cfg.SystemTemplate = ""
		cfg.UserTemplate = ""
		configs = append(configs, cfg)
	}
	return f.marshal(configs)
}

// marshal leaves HTML characters unescaped so result URLs stay copyable.
func (f *JSONFormatter) marshal(v any) (string, error) {
	var buf strings.Builder
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if f.Indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
