package prompt

import "time"

// Config describes a prompt definition loaded from YAML frontmatter.
type Config struct {
	Slug           string         `yaml:"slug" json:"slug"`
	Name           string         `yaml:"name,omitempty" json:"name,omitempty"`
	Description    string         `yaml:"description,omitempty" json:"description,omitempty"`
	Version        string         `yaml:"version,omitempty" json:"version,omitempty"`
	Input          InputSpec      `yaml:"input,omitempty" json:"input,omitempty"`
	SystemTemplate string         `yaml:"system_template,omitempty" json:"system_template,omitempty"`
	UserTemplate   string         `yaml:"user_template,omitempty" json:"user_template,omitempty"`
	Request        RequestOptions `yaml:"request,omitempty" json:"request,omitempty"`
	ProviderHints  map[string]any `yaml:"provider_hints,omitempty" json:"provider_hints,omitempty"`
}

// InputSpec defines prompt input requirements.
type InputSpec struct {
	RequiredVariables []string `yaml:"required_variables,omitempty" json:"required_variables,omitempty"`
	OptionalVariables []string `yaml:"optional_variables,omitempty" json:"optional_variables,omitempty"`
}

// Output kinds a prompt can declare.
const (
	OutputJSON = "json"
	OutputText = "text"
)

// RequestOptions is the per-call budget attached to a prompt.
type RequestOptions struct {
	// Role selects the configured model ("orchestrator" or "response").
	Role            string        `yaml:"role,omitempty" json:"role,omitempty"`
	Output          string        `yaml:"output,omitempty" json:"output,omitempty"`
	MaxTokens       int           `yaml:"max_tokens,omitempty" json:"max_tokens,omitempty"`
	Temperature     *float64      `yaml:"temperature,omitempty" json:"temperature,omitempty"`
	Timeout         time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	DisableThinking bool          `yaml:"disable_thinking,omitempty" json:"disable_thinking,omitempty"`
	// ResponseFormat is sent as response_format.type. Empty omits it, since not every
	// compatible provider accepts the field.
	ResponseFormat string `yaml:"response_format,omitempty" json:"response_format,omitempty"`
}

// Prompt wraps a validated prompt configuration with its source.
type Prompt struct {
	Config Config
	Source string
}
