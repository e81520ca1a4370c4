package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	envPrefix = "SCAFFAI"
	fileType  = "yaml"
)

// Config is the root configuration for scaffai.
type Config struct {
	General   GeneralConfig             `mapstructure:"general" yaml:"general"`
	Providers map[string]ProviderConfig `mapstructure:"providers" yaml:"providers"`
	Store     StoreConfig               `mapstructure:"store" yaml:"store"`
	HIL       HILConfig                 `mapstructure:"hil" yaml:"hil"`
	Tools     ToolsConfig               `mapstructure:"tools" yaml:"tools"`
	Security  SecurityConfig            `mapstructure:"security" yaml:"security"`
	Memory    MemoryConfig              `mapstructure:"memory" yaml:"memory"`
	Output    OutputConfig              `mapstructure:"output" yaml:"output"`
}

type GeneralConfig struct {
	LogLevel              string   `mapstructure:"log_level" yaml:"log_level"`
	Provider              string   `mapstructure:"provider" yaml:"provider"`
	Model                 string   `mapstructure:"model" yaml:"model,omitempty"` // overrides providers.<name>.model
	MaxIterations         int      `mapstructure:"max_iterations" yaml:"max_iterations"`
	MaxTokens             int      `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature           float64  `mapstructure:"temperature" yaml:"temperature"`
	RequestTimeoutSeconds int      `mapstructure:"request_timeout_seconds" yaml:"request_timeout_seconds"`
	RequestsPerMinute     int      `mapstructure:"requests_per_minute" yaml:"requests_per_minute"` // 0 disables throttling
	FailoverChain         []string `mapstructure:"failover_chain" yaml:"failover_chain,omitempty"`
	SystemPromptExtra     string   `mapstructure:"system_prompt_extra" yaml:"system_prompt_extra,omitempty"`
}

type ProviderConfig struct {
	APIKey    string `mapstructure:"api_key" yaml:"api_key,omitempty"`
	APIKeyEnv string `mapstructure:"api_key_env" yaml:"api_key_env,omitempty"`
	APIBase   string `mapstructure:"api_base" yaml:"api_base,omitempty"`
	Model     string `mapstructure:"model" yaml:"model,omitempty"`
}

// StoreConfig locates the rules/ and snippets/ directories.
type StoreConfig struct {
	Root string `mapstructure:"root" yaml:"root"`
}

type HILConfig struct {
	MaxAttempts int    `mapstructure:"max_attempts" yaml:"max_attempts"`
	Detector    string `mapstructure:"detector" yaml:"detector"` // keyword | rules
}

type ToolsConfig struct {
	Allowed []string        `mapstructure:"allowed" yaml:"allowed,omitempty"`
	Denied  []string        `mapstructure:"denied" yaml:"denied,omitempty"`
	Shell   ShellToolConfig `mapstructure:"shell" yaml:"shell"`
}

type ShellToolConfig struct {
	TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	MaxOutputBytes int    `mapstructure:"max_output_bytes" yaml:"max_output_bytes"`
	WorkDir        string `mapstructure:"work_dir" yaml:"work_dir,omitempty"`
}

type SecurityConfig struct {
	Enabled         bool     `mapstructure:"enabled" yaml:"enabled"`
	Blacklist       []string `mapstructure:"blacklist" yaml:"blacklist"`
	ConfirmPatterns []string `mapstructure:"confirm_patterns" yaml:"confirm_patterns"`
	AuditLog        bool     `mapstructure:"audit_log" yaml:"audit_log"`
}

type MemoryConfig struct {
	DBPath string `mapstructure:"db_path" yaml:"db_path"` // ":memory:" keeps nothing on disk
}

type OutputConfig struct {
	Markdown bool   `mapstructure:"markdown" yaml:"markdown"`
	Style    string `mapstructure:"style" yaml:"style,omitempty"` // glamour style name
}

// DefaultConfigDir returns the default config directory (~/.scaffai).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".scaffai"
	}
	return filepath.Join(home, ".scaffai")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config."+fileType)
}

// newViper prepares a viper instance seeded with Defaults so that every key is
// known and can be overridden from SCAFFAI_* environment variables.
func newViper(path string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigType(fileType)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults, err := toMap(Defaults())
	if err != nil {
		return nil, err
	}
	setDefaults(v, "", defaults)

	if path == "" {
		path = DefaultConfigPath()
	}
	v.SetConfigFile(ExpandPath(path))
	if err := v.ReadInConfig(); err != nil {
		// A missing file means defaults plus environment.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
		}
	}
	return v, nil
}

// Load reads the config file at path (DefaultConfigPath when empty), applies
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	v, err := newViper(path)
	if err != nil {
		return nil, err
	}

	cfg := Defaults()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config: %w", err)
	}

	cfg.Store.Root = ExpandPath(cfg.Store.Root)
	cfg.Tools.Shell.WorkDir = ExpandPath(cfg.Tools.Shell.WorkDir)
	if cfg.Memory.DBPath != ":memory:" {
		cfg.Memory.DBPath = ExpandPath(cfg.Memory.DBPath)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// Lookup returns the effective value of a dotted key such as "hil.max_attempts".
func Lookup(path, key string) (any, error) {
	v, err := newViper(path)
	if err != nil {
		return nil, err
	}
	if !v.IsSet(key) {
		return nil, fmt.Errorf("unknown config key: %s", key)
	}
	return v.Get(key), nil
}

func Save(path string, cfg *Config) error {
	path = ExpandPath(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// Redacted returns a copy of cfg with API keys masked, suitable for printing.
func Redacted(cfg *Config) *Config {
	out := *cfg
	out.Providers = make(map[string]ProviderConfig, len(cfg.Providers))
	for name, pc := range cfg.Providers {
		if pc.APIKey != "" {
			pc.APIKey = maskSecret(pc.APIKey)
		}
		out.Providers[name] = pc
	}
	return &out
}

func maskSecret(s string) string {
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "****" + s[len(s)-4:]
}

// Validate checks that the config has valid values.
func Validate(cfg *Config) error {
	var errs []string

	switch strings.ToLower(cfg.General.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, "general.log_level must be one of: debug, info, warn, error")
	}
	if cfg.General.MaxIterations < 1 || cfg.General.MaxIterations > 200 {
		errs = append(errs, "general.max_iterations must be between 1 and 200")
	}
	if cfg.General.MaxTokens < 1 {
		errs = append(errs, "general.max_tokens must be >= 1")
	}
	if cfg.General.Temperature < 0 || cfg.General.Temperature > 2 {
		errs = append(errs, "general.temperature must be between 0 and 2")
	}
	if cfg.General.RequestsPerMinute < 0 {
		errs = append(errs, "general.requests_per_minute must be >= 0")
	}
	if _, ok := cfg.Providers[cfg.General.Provider]; !ok {
		errs = append(errs, fmt.Sprintf("general.provider references unknown provider: %s", cfg.General.Provider))
	}
	for _, name := range cfg.General.FailoverChain {
		if _, ok := cfg.Providers[name]; !ok {
			errs = append(errs, fmt.Sprintf("general.failover_chain references unknown provider: %s", name))
		}
	}

	if cfg.HIL.MaxAttempts < 1 {
		errs = append(errs, "hil.max_attempts must be >= 1")
	}
	switch cfg.HIL.Detector {
	case "keyword", "rules":
	default:
		errs = append(errs, "hil.detector must be one of: keyword, rules")
	}

	if cfg.Tools.Shell.TimeoutSeconds < 1 {
		errs = append(errs, "tools.shell.timeout_seconds must be >= 1")
	}
	if cfg.Store.Root == "" {
		errs = append(errs, "store.root must not be empty")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

func toMap(cfg *Config) (map[string]any, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("cannot marshal defaults: %w", err)
	}
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("cannot unmarshal defaults: %w", err)
	}
	return m, nil
}

func setDefaults(v *viper.Viper, prefix string, m map[string]any) {
	for k, val := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := val.(map[string]any); ok {
			setDefaults(v, key, nested)
			continue
		}
		v.SetDefault(key, val)
	}
}
