package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"scaffai/internal/config"
	"scaffai/internal/domain"
	"scaffai/internal/metrics"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	version     = "0.1.0"
	logger      *slog.Logger
	configPath  string // overridable via --config flag
	verbose     bool
	markdown    bool
	showMetrics bool
)

func main() {
	logger = newLogger("warn")

	root := &cobra.Command{
		Use:   "scaffai",
		Short: "scaffai: AI-assisted project scaffolding",
		Long:  "scaffai creates projects from rule templates and adds snippets to them, guided by an LLM agent.",
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if showMetrics {
				if err := metrics.Collector.Write(os.Stderr); err != nil {
					logger.Warn("write metrics", "err", err)
				}
			}
		},
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.yaml (default: ~/.scaffai/config.yaml)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	root.PersistentFlags().BoolVar(&markdown, "markdown", false, "render agent replies as markdown")
	root.PersistentFlags().BoolVar(&showMetrics, "metrics", false, "print metrics to stderr on exit")

	root.AddCommand(newCmd())
	root.AddCommand(addSnippetCmd())
	root.AddCommand(analyzeCmd())
	root.AddCommand(chatCmd())
	root.AddCommand(rulesCmd())
	root.AddCommand(snippetsCmd())
	root.AddCommand(auditCmd())
	root.AddCommand(initCmd())
	root.AddCommand(configCmd())
	root.AddCommand(doctorCmd())
	root.AddCommand(versionCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "info":
		l = slog.LevelInfo
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}

// resolveConfigPath returns the config path from --config flag or default.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

// loadConfig reads the config and reconfigures the logger from it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	level := cfg.General.LogLevel
	if verbose {
		level = "debug"
	}
	logger = newLogger(level)
	return cfg, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newCmd() *cobra.Command {
	var interactive bool

	cmd := &cobra.Command{
		Use:   "new [NAME]",
		Short: "Create a new project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := projectParams(cmd, args)
			return withApp(func(ctx context.Context, a *app) error {
				return a.runner.NewProject(ctx, params, interactive)
			})
		},
	}
	cmd.Flags().StringP("template", "t", "", "template (rule) to use")
	cmd.Flags().StringP("output", "o", "", "output directory (current directory when unset)")
	cmd.Flags().String("username", "", "GitHub username")
	cmd.Flags().String("db", "", "database")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "always ask for details")
	return cmd
}

func addSnippetCmd() *cobra.Command {
	var interactive bool

	cmd := &cobra.Command{
		Use:   "add-snippet [SNIPPET] [TEMPLATE]",
		Short: "Add a snippet to a project",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := snippetParams(cmd, args)
			return withApp(func(ctx context.Context, a *app) error {
				return a.runner.AddSnippet(ctx, params, interactive)
			})
		},
	}
	cmd.Flags().StringP("project-dir", "d", "", "project directory (current directory when unset)")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "always ask for details")
	return cmd
}

func analyzeCmd() *cobra.Command {
	var interactive bool

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze a project and suggest improvements",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			params := analyzeParams(cmd)
			return withApp(func(ctx context.Context, a *app) error {
				return a.runner.Analyze(ctx, params, interactive)
			})
		},
	}
	cmd.Flags().StringP("project-dir", "d", "", "project directory (current directory when unset)")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "always ask for details")
	return cmd
}

// The parameter bags hold only what the user gave; defaults are applied
// after the dialogue, when the instruction is rendered.

func projectParams(cmd *cobra.Command, args []string) *domain.Params {
	flags := cmd.Flags()
	template, _ := flags.GetString("template")
	output, _ := flags.GetString("output")
	username, _ := flags.GetString("username")
	db, _ := flags.GetString("db")
	return domain.ParamsFrom(
		"name", argAt(args, 0),
		"template", template,
		"output_dir", output,
		"username", username,
		"db", db,
	)
}

func snippetParams(cmd *cobra.Command, args []string) *domain.Params {
	projectDir, _ := cmd.Flags().GetString("project-dir")
	return domain.ParamsFrom(
		"snippet", argAt(args, 0),
		"template", argAt(args, 1),
		"project_dir", projectDir,
	)
}

func analyzeParams(cmd *cobra.Command) *domain.Params {
	projectDir, _ := cmd.Flags().GetString("project-dir")
	return domain.ParamsFrom("project_dir", projectDir)
}

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat MESSAGE",
		Short: "Send a free-form message to the agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				return a.runner.Chat(ctx, args[0])
			})
		},
	}
}

func argAt(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "scaffai %s\n", version)
		},
	}
}

func initCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			if _, err := os.Stat(config.ExpandPath(cfgPath)); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", cfgPath)
			}
			if err := config.Save(cfgPath, config.Defaults()); err != nil {
				return err
			}
			logger.Info("initialized", "config", cfgPath)
			fmt.Fprintln(cmd.OutOrStdout(), cfgPath)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config")
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show config file path",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), resolveConfigPath())
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(config.Redacted(cfg))
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get KEY",
		Short: "Get one config value (e.g. hil.max_attempts)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			val, err := config.Lookup(resolveConfigPath(), args[0])
			if err != nil {
				return err
			}
			if strings.HasSuffix(args[0], "api_key") {
				if s, ok := val.(string); ok && s != "" {
					val = "****"
				}
			}
			data, err := yaml.Marshal(val)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), string(data))
			return nil
		},
	})

	return cmd
}
