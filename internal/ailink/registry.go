package ailink

import (
	"fmt"
	"strings"
	"sync"

	"github.com/scoutline/scoutline/internal/ailink/driver"
	"github.com/scoutline/scoutline/internal/ailink/driver/openai"
	"github.com/scoutline/scoutline/internal/ailink/prompt"
)

// Registry resolves a driver and model for a prompt role.
type Registry struct {
	cfg Config

	mu  sync.Mutex
	drv driver.Driver
}

// ResolvedProvider is the driver and model chosen for one call.
type ResolvedProvider struct {
	ProviderID string
	Driver     driver.Driver
	Model      string
	BaseURL    string
}

func NewRegistry(cfg Config) *Registry {
	return &Registry{cfg: cfg}
}

// NewRegistryWithDriver uses drv for every role instead of building one from cfg.
func NewRegistryWithDriver(cfg Config, drv driver.Driver) *Registry {
	return &Registry{cfg: cfg, drv: drv}
}

// Config returns the configuration the registry was built with.
func (r *Registry) Config() Config {
	if r == nil {
		return Config{}
	}
	return r.cfg
}

func (r *Registry) Resolve(role string, promptDef *prompt.Prompt, modelOverride string) (*ResolvedProvider, error) {
	if r == nil {
		return nil, fmt.Errorf("ailink registry not configured")
	}
	if !r.cfg.Configured() {
		return nil, ErrNotConfigured
	}

	drv, err := r.driver()
	if err != nil {
		return nil, err
	}

	model, err := resolveModel(r.cfg, role, promptDef, modelOverride)
	if err != nil {
		return nil, err
	}

	baseURL := strings.TrimSpace(r.cfg.BaseURL)
	if client, ok := drv.(*openai.Client); ok {
		baseURL = strings.TrimSpace(client.BaseURL)
	}

	return &ResolvedProvider{
		ProviderID: drv.Name(),
		Driver:     drv,
		Model:      model,
		BaseURL:    baseURL,
	}, nil
}

func (r *Registry) driver() (driver.Driver, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.drv != nil {
		return r.drv, nil
	}

	providerType := strings.ToLower(strings.TrimSpace(r.cfg.Provider))
	switch providerType {
	case "", "openai", "glm", "zhipu":
		client := openai.NewClient(r.cfg.BaseURL, r.cfg.APIKey)
		client.Timeout = r.cfg.Timeout
		r.drv = client
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported ai provider %q", providerType)
	}
}

func resolveModel(cfg Config, role string, promptDef *prompt.Prompt, override string) (string, error) {
	model := strings.TrimSpace(override)
	if model != "" {
		return model, nil
	}

	if promptDef != nil {
		if models := preferredModels(promptDef); len(models) > 0 {
			model = strings.TrimSpace(models[0])
			if model != "" {
				return model, nil
			}
		}
	}

	if model = cfg.ModelFor(role); model != "" {
		return model, nil
	}

	return "", fmt.Errorf("model not configured for role %q", role)
}

func preferredModels(promptDef *prompt.Prompt) []string {
	value, ok := promptDef.Config.ProviderHints["preferred_models"]
	if !ok || value == nil {
		return nil
	}

	switch typed := value.(type) {
	case []string:
		return typed
	case []any:
		models := make([]string, 0, len(typed))
		for _, item := range typed {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				models = append(models, s)
			}
		}
		return models
	case string:
		if strings.TrimSpace(typed) == "" {
			return nil
		}
		return []string{typed}
	default:
		return nil
	}
}
