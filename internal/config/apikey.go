package config

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// AskFunc reads one line of input from the user after showing prompt.
type AskFunc func(prompt string) (string, error)

var providerLabels = map[string]string{
	"anthropic": "Anthropic",
	"openai":    "OpenAI",
	"gemini":    "Gemini",
}

// ProviderLabel returns the display name of a provider.
func ProviderLabel(name string) string {
	if l, ok := providerLabels[name]; ok {
		return l
	}
	return cases.Title(language.English).String(name)
}

// ResolveAPIKey returns the key for the named provider. The lookup order is
// the config value, then the provider's environment variable, then ask. A key
// obtained from ask is written back into the process environment so later
// lookups in the same run do not prompt again.
func ResolveAPIKey(name string, pc ProviderConfig, ask AskFunc) (string, error) {
	if pc.APIKey != "" {
		return pc.APIKey, nil
	}
	if pc.APIKeyEnv == "" {
		return "", nil
	}
	if v := strings.TrimSpace(os.Getenv(pc.APIKeyEnv)); v != "" {
		return v, nil
	}
	if ask == nil {
		return "", fmt.Errorf("%s is not set", pc.APIKeyEnv)
	}

	key, err := ask(fmt.Sprintf("Enter your %s API key", ProviderLabel(name)))
	if err != nil {
		return "", fmt.Errorf("read %s API key: %w", name, err)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("no API key provided for %s", name)
	}
	if err := os.Setenv(pc.APIKeyEnv, key); err != nil {
		return "", fmt.Errorf("cache %s: %w", pc.APIKeyEnv, err)
	}
	return key, nil
}
