package prompt

import "embed"

//go:embed prompts/*.md
var defaultPromptsFS embed.FS

// LoadDefaults loads the embedded prompt set.
func LoadDefaults() ([]*Prompt, error) {
	return loadFS(defaultPromptsFS, "prompts")
}
