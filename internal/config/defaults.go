package config

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel:              "warn",
			Provider:              "anthropic",
			MaxIterations:         20,
			MaxTokens:             4096,
			Temperature:           0,
			RequestTimeoutSeconds: 120,
		},
		Providers: map[string]ProviderConfig{
			"anthropic": {
				APIKeyEnv: "ANTHROPIC_API_KEY",
				Model:     "claude-sonnet-4-5",
			},
			"openai": {
				APIKeyEnv: "OPENAI_API_KEY",
				Model:     "gpt-4o",
			},
			"gemini": {
				APIKeyEnv: "GEMINI_API_KEY",
				Model:     "gemini-2.5-flash",
			},
			"ollama": {
				APIBase: "http://localhost:11434",
				Model:   "llama3.1:8b",
			},
		},
		Store: StoreConfig{
			Root: ".",
		},
		HIL: HILConfig{
			MaxAttempts: 3,
			Detector:    "keyword",
		},
		Tools: ToolsConfig{
			Shell: ShellToolConfig{
				TimeoutSeconds: 60,
				MaxOutputBytes: 65536,
			},
		},
		Security: SecurityConfig{
			Enabled:         true,
			Blacklist:       defaultBlacklist(),
			ConfirmPatterns: defaultConfirmPatterns(),
			AuditLog:        true,
		},
		Memory: MemoryConfig{
			DBPath: ":memory:",
		},
		Output: OutputConfig{
			Markdown: false,
			Style:    "auto",
		},
	}
}

// Entries containing regex metacharacters are compiled as regexes, the rest
// match as case-insensitive substrings.
func defaultBlacklist() []string {
	return []string{
		`rm\s+-rf\s+/(\*|\s|$)`,
		"mkfs",
		"dd if=",
		`:\(\)\s*\{\s*:\|:&\s*\};:`,
		"chmod -R 777 /",
		`mv\s+/\*\s+/dev/null`,
	}
}

func defaultConfirmPatterns() []string {
	return []string{
		"rm -rf ", "sudo ",
		"shutdown", "reboot",
		"git push",
		"npm publish", "cargo publish",
	}
}
