package prompt

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

var frontmatterFence = []byte("---")

// Load parses and validates one prompt file: YAML frontmatter between "---" fences
// followed by a markdown body, or a bare YAML document. The body becomes the system
// template when system_template is not set.
func Load(source string, data []byte) (*Prompt, error) {
	cfg, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, fmt.Errorf("parse prompt %s: %w", source, err)
	}
	if strings.TrimSpace(cfg.SystemTemplate) == "" {
		cfg.SystemTemplate = strings.TrimSpace(body)
	}
	if cfg.SystemTemplate == "" {
		return nil, fmt.Errorf("prompt %s missing system_template", source)
	}
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("validate prompt %s: %w", source, err)
	}
	return &Prompt{Config: cfg, Source: source}, nil
}

// LoadFromDir reads every *.md prompt in dir.
func LoadFromDir(dir string) ([]*Prompt, error) {
	prompts, err := loadFS(os.DirFS(dir), ".")
	if err != nil {
		return nil, err
	}
	for _, p := range prompts {
		p.Source = filepath.Join(dir, p.Source)
	}
	return prompts, nil
}

func loadFS(fsys fs.FS, dir string) ([]*Prompt, error) {
	names, err := fs.Glob(fsys, path.Join(dir, "*.md"))
	if err != nil {
		return nil, fmt.Errorf("scan prompts: %w", err)
	}

	prompts := make([]*Prompt, 0, len(names))
	for _, name := range names {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read prompt %s: %w", name, err)
		}
		p, err := Load(path.Base(name), data)
		if err != nil {
			return nil, err
		}
		prompts = append(prompts, p)
	}
	return prompts, nil
}

func splitFrontmatter(data []byte) (Config, string, error) {
	var cfg Config
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return cfg, "", fmt.Errorf("empty prompt")
	}

	if !bytes.HasPrefix(trimmed, frontmatterFence) {
		if err := yaml.Unmarshal(trimmed, &cfg); err != nil {
			return cfg, "", fmt.Errorf("invalid yaml: %w", err)
		}
		return cfg, "", nil
	}

	rest := bytes.TrimLeft(trimmed[len(frontmatterFence):], " \t")
	rest = bytes.TrimPrefix(bytes.TrimPrefix(rest, []byte("\r")), []byte("\n"))
	front, body := rest, []byte(nil)
	if idx := closingFence(rest); idx >= 0 {
		front = rest[:idx]
		body = rest[idx+len(frontmatterFence):]
	}
	if err := yaml.Unmarshal(front, &cfg); err != nil {
		return cfg, "", fmt.Errorf("invalid frontmatter: %w", err)
	}
	return cfg, string(body), nil
}

// closingFence returns the offset of the first line consisting only of "---".
func closingFence(b []byte) int {
	offset := 0
	for len(b) > 0 {
		line, next, found := bytes.Cut(b, []byte("\n"))
		if bytes.Equal(bytes.TrimSpace(line), frontmatterFence) {
			return offset + bytes.Index(line, frontmatterFence)
		}
		if !found {
			break
		}
		offset += len(line) + 1
		b = next
	}
	return -1
}

func validateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.Slug) == "" {
		return fmt.Errorf("slug is required")
	}

	req := cfg.Request
	switch req.Output {
	case "", OutputJSON, OutputText:
	default:
		return fmt.Errorf("unknown request.output %q", req.Output)
	}
	switch req.ResponseFormat {
	case "", "text", "json_object":
	default:
		return fmt.Errorf("unknown request.response_format %q", req.ResponseFormat)
	}
	switch {
	case req.MaxTokens < 0:
		return fmt.Errorf("request.max_tokens must not be negative")
	case req.Timeout < 0:
		return fmt.Errorf("request.timeout must not be negative")
	case req.Temperature != nil && (*req.Temperature < 0 || *req.Temperature > 2):
		return fmt.Errorf("request.temperature must be within [0, 2]")
	}

	for _, name := range cfg.Input.RequiredVariables {
		placeholder := "{{" + name + "}}"
		if !strings.Contains(cfg.SystemTemplate, placeholder) && !strings.Contains(cfg.UserTemplate, placeholder) {
			return fmt.Errorf("required variable %q is not referenced by any template", name)
		}
	}
	return nil
}
