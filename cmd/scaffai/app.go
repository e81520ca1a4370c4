package main

import (
	"context"
	"fmt"
	"os"

	"scaffai/internal/agent"
	"scaffai/internal/commands"
	"scaffai/internal/config"
	"scaffai/internal/console"
	"scaffai/internal/domain"
	"scaffai/internal/hil"
	"scaffai/internal/memory"
	"scaffai/internal/provider"
	"scaffai/internal/scaffold"
	"scaffai/internal/security"
	"scaffai/internal/store"
	"scaffai/internal/tool"
)

// app holds everything one agent-backed command needs.
type app struct {
	cfg     *config.Config
	console *console.Console
	library *store.Store
	memory  *memory.SQLiteStore
	runner  *commands.Runner
}

// withApp builds the app, runs fn under a signal-aware context and releases
// the app afterwards.
func withApp(fn func(ctx context.Context, a *app) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	con := console.New(console.Config{
		Logger:   logger,
		Markdown: cfg.Output.Markdown || markdown,
		Style:    cfg.Output.Style,
		Spinner:  isTerminal(os.Stdout),
	})

	memStore, err := memory.NewSQLiteStore(cfg.Memory.DBPath, logger)
	if err != nil {
		return nil, fmt.Errorf("memory store: %w", err)
	}

	secEngine, err := security.NewEngine(cfg.Security, con.ConfirmCommand, memStore, logger)
	if err != nil {
		memStore.Close()
		return nil, fmt.Errorf("security engine: %w", err)
	}

	lib := store.New(cfg.Store.Root, logger)
	scaffolder := scaffold.New(lib, logger)

	toolReg := tool.NewRegistry(logger)
	toolReg.SetFilter(tool.NewFilter(cfg.Tools.Allowed, cfg.Tools.Denied))
	err = tool.RegisterBuiltins(toolReg, tool.Deps{
		Library: lib,
		Creator: scaffolder,
		Applier: scaffolder,
		Runner: tool.NewCommandRunner(tool.ShellConfig{
			WorkingDir:     cfg.Tools.Shell.WorkDir,
			TimeoutSeconds: cfg.Tools.Shell.TimeoutSeconds,
			MaxOutputBytes: cfg.Tools.Shell.MaxOutputBytes,
		}),
		Guard: secEngine,
	})
	if err != nil {
		memStore.Close()
		return nil, err
	}
	logger.Debug("tools registered", "tools", toolReg.Names())

	// Without a provider the agent answers every message with an error text,
	// so the command still runs and reports the problem.
	var prov domain.Provider
	factory := provider.NewFactory(cfg, con.AskSecret, logger)
	if p, err := factory.Primary(ctx); err != nil {
		logger.Warn("no provider available", "provider", cfg.General.Provider, "err", err)
	} else {
		prov = p
	}

	provName := cfg.General.Provider
	if prov != nil {
		provName = prov.Name()
	}
	ag := agent.New(agent.Config{
		Provider:          prov,
		Tools:             toolReg,
		Session:           agent.NewSession(memStore, provName, cfg.General.Model, logger),
		Logger:            logger,
		Model:             cfg.General.Model,
		MaxIterations:     cfg.General.MaxIterations,
		MaxTokens:         cfg.General.MaxTokens,
		Temperature:       cfg.General.Temperature,
		SystemPromptExtra: cfg.General.SystemPromptExtra,
	})

	prompter := hil.New(hil.Config{
		Agent:       ag,
		UI:          con,
		Detector:    hil.NewDetector(cfg.HIL.Detector, lib, logger),
		MaxAttempts: cfg.HIL.MaxAttempts,
		Logger:      logger,
	})

	return &app{
		cfg:     cfg,
		console: con,
		library: lib,
		memory:  memStore,
		runner: commands.NewRunner(commands.Config{
			Agent:    ag,
			Prompter: prompter,
			Out:      con,
			Logger:   logger,
		}),
	}, nil
}

func (a *app) Close() {
	if err := a.memory.Close(); err != nil {
		logger.Warn("close memory store", "err", err)
	}
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
