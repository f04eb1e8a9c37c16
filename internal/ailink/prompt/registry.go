package prompt

import (
	"fmt"
	"sort"
	"strings"
)

// Registry provides access to prompt definitions.
type Registry interface {
	Get(slug string) (*Prompt, error)
	List() []*Prompt
}

// InMemoryRegistry is an immutable slug index.
type InMemoryRegistry struct {
	bySlug map[string]*Prompt
	order  []string
}

// NewRegistry indexes prompts by slug. Duplicate or empty slugs are rejected; nil
// entries are skipped.
func NewRegistry(prompts []*Prompt) (*InMemoryRegistry, error) {
	reg := &InMemoryRegistry{bySlug: make(map[string]*Prompt, len(prompts))}
	for _, p := range prompts {
		if p == nil {
			continue
		}
		slug := strings.TrimSpace(p.Config.Slug)
		if slug == "" {
			return nil, fmt.Errorf("prompt %s missing slug", p.Source)
		}
		if prev, dup := reg.bySlug[slug]; dup {
			return nil, fmt.Errorf("duplicate prompt slug %q (%s and %s)", slug, prev.Source, p.Source)
		}
		reg.bySlug[slug] = p
		reg.order = append(reg.order, slug)
	}
	sort.Strings(reg.order)
	return reg, nil
}

// Get returns the prompt registered under slug.
func (r *InMemoryRegistry) Get(slug string) (*Prompt, error) {
	if r == nil {
		return nil, fmt.Errorf("prompt registry not configured")
	}
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, fmt.Errorf("prompt slug is required")
	}
	if p, ok := r.bySlug[slug]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("prompt %q not found", slug)
}

// List returns prompts sorted by slug.
func (r *InMemoryRegistry) List() []*Prompt {
	if r == nil {
		return nil
	}
	out := make([]*Prompt, len(r.order))
	for i, slug := range r.order {
		out[i] = r.bySlug[slug]
	}
	return out
}

// overlay replaces base prompts with same-slug overrides and appends new slugs.
func overlay(base, overrides []*Prompt) []*Prompt {
	merged := make(map[string]*Prompt, len(base)+len(overrides))
	for _, p := range base {
		merged[p.Config.Slug] = p
	}
	for _, p := range overrides {
		merged[p.Config.Slug] = p
	}
	out := make([]*Prompt, 0, len(merged))
	for _, p := range merged {
		out = append(out, p)
	}
	return out
}

// DefaultRegistry builds a registry from the embedded prompts.
func DefaultRegistry() (Registry, error) {
	return LoadRegistry("")
}

// LoadRegistry builds the embedded registry. Prompt files in overrideDir replace
// embedded prompts with the same slug and add new ones.
func LoadRegistry(overrideDir string) (Registry, error) {
	prompts, err := LoadDefaults()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(overrideDir) != "" {
		overrides, err := LoadFromDir(overrideDir)
		if err != nil {
			return nil, err
		}
		prompts = overlay(prompts, overrides)
	}
	return NewRegistry(prompts)
}
