package ailink

import (
	"strings"
	"time"
)

// Model roles a prompt can request.
const (
	RoleOrchestrator = "orchestrator"
	RoleResponse     = "response"
)

// Config defines provider configuration for AILink.
//
// This is intentionally self-contained so it can later be extracted as a
// standalone library configuration subtree.
type Config struct {
	// Provider is the driver identifier. Only OpenAI-compatible APIs are supported.
	Provider string `mapstructure:"provider"`
	BaseURL  string `mapstructure:"base_url"`
	APIKey   string `mapstructure:"api_key"`

	Models ModelsConfig `mapstructure:"models"`

	// Timeout is an HTTP-level ceiling for non-streaming calls. Per-call budgets come from
	// the prompt definitions and usually fire first.
	Timeout time.Duration `mapstructure:"timeout"`

	// PromptsDir allows applications to override the built-in prompt set.
	PromptsDir string `mapstructure:"prompts_dir"`

	// DisableThinking forwards the provider's thinking switch on prompts that ask for it.
	DisableThinking bool `mapstructure:"disable_thinking"`
}

// ModelsConfig maps roles to model names.
type ModelsConfig struct {
	Orchestrator string `mapstructure:"orchestrator"`
	Response     string `mapstructure:"response"`
}

// Configured reports whether credentials are present.
func (c Config) Configured() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

// ModelFor returns the model configured for role, falling back to the orchestrator model.
func (c Config) ModelFor(role string) string {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case RoleResponse:
		if m := strings.TrimSpace(c.Models.Response); m != "" {
			return m
		}
	}
	return strings.TrimSpace(c.Models.Orchestrator)
}
