package provider

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"scaffai/internal/config"
	"scaffai/internal/domain"
)

const rateLimitBurst = 3

// ProviderConstructor creates a provider from a config entry whose API key has
// already been resolved.
type ProviderConstructor func(ctx context.Context, pc config.ProviderConfig, deps ConstructorDeps) (domain.Provider, error)

// ConstructorDeps are shared by every constructor.
type ConstructorDeps struct {
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Factory creates and caches LLM providers from config.
type Factory struct {
	cfg          *config.Config
	ask          config.AskFunc
	deps         ConstructorDeps
	constructors map[string]ProviderConstructor
	cache        map[string]domain.Provider
	mu           sync.Mutex
}

// NewFactory creates a provider factory with the built-in constructors
// registered. ask is used to prompt for a missing API key and may be nil.
func NewFactory(cfg *config.Config, ask config.AskFunc, logger *slog.Logger) *Factory {
	f := &Factory{
		cfg: cfg,
		ask: ask,
		deps: ConstructorDeps{
			HTTPClient: SharedHTTPClient(time.Duration(cfg.General.RequestTimeoutSeconds) * time.Second),
			Logger:     logger,
		},
		constructors: make(map[string]ProviderConstructor),
		cache:        make(map[string]domain.Provider),
	}
	f.registerDefaults()
	return f
}

// RegisterConstructor adds (or replaces) a provider constructor by name.
func (f *Factory) RegisterConstructor(name string, ctor ProviderConstructor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.constructors[name] = ctor
}

func (f *Factory) registerDefaults() {
	f.constructors["anthropic"] = func(ctx context.Context, pc config.ProviderConfig, d ConstructorDeps) (domain.Provider, error) {
		return NewAnthropic(AnthropicConfig{APIKey: pc.APIKey, APIBase: pc.APIBase, Model: pc.Model, HTTPClient: d.HTTPClient, Logger: d.Logger}), nil
	}
	f.constructors["openai"] = func(ctx context.Context, pc config.ProviderConfig, d ConstructorDeps) (domain.Provider, error) {
		return NewOpenAI(OpenAIConfig{APIKey: pc.APIKey, APIBase: pc.APIBase, Model: pc.Model, HTTPClient: d.HTTPClient, Logger: d.Logger}), nil
	}
	f.constructors["gemini"] = func(ctx context.Context, pc config.ProviderConfig, d ConstructorDeps) (domain.Provider, error) {
		return NewGemini(ctx, GeminiConfig{APIKey: pc.APIKey, Model: pc.Model, HTTPClient: d.HTTPClient, Logger: d.Logger})
	}
	f.constructors["ollama"] = func(ctx context.Context, pc config.ProviderConfig, d ConstructorDeps) (domain.Provider, error) {
		return NewOllama(OllamaConfig{APIBase: pc.APIBase, DefaultModel: pc.Model, HTTPClient: d.HTTPClient, Logger: d.Logger})
	}
}

// Get returns the provider with the given name, or the configured one if name
// is empty. Created providers are cached.
func (f *Factory) Get(ctx context.Context, name string) (domain.Provider, error) {
	if name == "" {
		name = f.cfg.General.Provider
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if cached, ok := f.cache[name]; ok {
		return cached, nil
	}

	pc, ok := f.cfg.Providers[name]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", name)
	}

	key, err := config.ResolveAPIKey(name, pc, f.ask)
	if err != nil {
		return nil, err
	}
	pc.APIKey = key

	ctor, found := f.constructors[name]
	var p domain.Provider
	switch {
	case found:
		p, err = ctor(ctx, pc, f.deps)
	case pc.APIBase != "":
		// Unknown names with an api_base are treated as OpenAI-compatible.
		p = NewOpenAI(OpenAIConfig{Name: name, APIKey: pc.APIKey, APIBase: pc.APIBase, Model: pc.Model, HTTPClient: f.deps.HTTPClient, Logger: f.deps.Logger})
	default:
		return nil, fmt.Errorf("provider %s: no constructor registered and no api_base configured", name)
	}
	if err != nil {
		return nil, fmt.Errorf("provider %s: %w", name, err)
	}

	f.cache[name] = p
	return p, nil
}

// Primary returns the configured provider, wrapped in a failover chain when
// general.failover_chain names fallbacks and throttled when
// general.requests_per_minute is set. Fallbacks that cannot be built are
// skipped with a warning.
func (f *Factory) Primary(ctx context.Context) (domain.Provider, error) {
	primary, err := f.Get(ctx, "")
	if err != nil {
		return nil, err
	}

	var p domain.Provider = primary
	if len(f.cfg.General.FailoverChain) > 0 {
		chain := []domain.Provider{primary}
		for _, name := range f.cfg.General.FailoverChain {
			if name == f.cfg.General.Provider {
				continue
			}
			fb, err := f.Get(ctx, name)
			if err != nil {
				f.deps.Logger.Warn("failover provider unavailable", "provider", name, "error", err)
				continue
			}
			chain = append(chain, fb)
		}
		if len(chain) > 1 {
			p = NewFailoverProvider(chain, f.deps.Logger)
		}
	}
	return NewRateLimited(p, f.cfg.General.RequestsPerMinute, rateLimitBurst, f.deps.Logger), nil
}
