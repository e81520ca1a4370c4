package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"scaffai/internal/config"
	"scaffai/internal/memory"
	"scaffai/internal/security"
	"scaffai/internal/store"

	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostic checks on your scaffai setup",
		Long: `Verifies that the configuration, rule and snippet store, database,
providers and command policy are usable. Reports pass/warn/fail for each check.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(cmd.OutOrStdout(), resolveConfigPath())
		},
	}
}

type doctor struct {
	w                      io.Writer
	passed, warned, failed int
}

func (d *doctor) pass(check, detail string) {
	fmt.Fprintf(d.w, "  [PASS] %-22s %s\n", check, detail)
	d.passed++
}

func (d *doctor) fail(check, detail string) {
	fmt.Fprintf(d.w, "  [FAIL] %-22s %s\n", check, detail)
	d.failed++
}

func (d *doctor) warn(check, detail string) {
	fmt.Fprintf(d.w, "  [WARN] %-22s %s\n", check, detail)
	d.warned++
}

func runDoctor(w io.Writer, cfgPath string) error {
	d := &doctor{w: w}
	fmt.Fprintf(w, "scaffai doctor v%s\n", version)
	fmt.Fprintf(w, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

	if _, err := os.Stat(config.ExpandPath(cfgPath)); err != nil {
		d.warn("Config file", fmt.Sprintf("not found at %s, using defaults", cfgPath))
	} else {
		d.pass("Config file", cfgPath)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		d.fail("Config validation", err.Error())
		return d.summary()
	}
	d.pass("Config validation", "valid")

	lib := store.New(cfg.Store.Root, logger)
	root := lib.Root()
	if rules, err := lib.ListRules(); err != nil {
		d.fail("Rules", err.Error())
	} else if len(rules) == 0 {
		d.warn("Rules", fmt.Sprintf("none under %s", filepath.Join(root, "rules")))
	} else {
		d.pass("Rules", fmt.Sprintf("%d found", len(rules)))
	}
	if info, err := os.Stat(filepath.Join(root, "snippets")); err != nil || !info.IsDir() {
		d.warn("Snippets", fmt.Sprintf("no snippets directory under %s", root))
	} else {
		d.pass("Snippets", filepath.Join(root, "snippets"))
	}

	if cfg.Memory.DBPath == memory.InMemory {
		d.pass("Database", "in-memory")
	} else if err := checkDatabase(cfg.Memory.DBPath); err != nil {
		d.fail("Database", err.Error())
	} else {
		d.pass("Database", cfg.Memory.DBPath)
	}

	names := append([]string{cfg.General.Provider}, cfg.General.FailoverChain...)
	seen := make(map[string]bool)
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		pc := cfg.Providers[name]
		key, err := config.ResolveAPIKey(name, pc, nil)
		switch {
		case err != nil:
			d.warn("Provider: "+name, fmt.Sprintf("%v (you will be asked for it)", err))
		case key == "" && pc.APIBase == "":
			d.warn("Provider: "+name, "no API key or api_base configured")
		default:
			d.pass("Provider: "+name, "configured")
		}
	}

	if _, err := security.NewEngine(cfg.Security, nil, nil, logger); err != nil {
		d.fail("Command policy", err.Error())
	} else if !cfg.Security.Enabled {
		d.warn("Command policy", "disabled, every command runs unchecked")
	} else {
		d.pass("Command policy", fmt.Sprintf("%d blocked, %d confirm patterns",
			len(cfg.Security.Blacklist), len(cfg.Security.ConfirmPatterns)))
	}

	if dir := cfg.Tools.Shell.WorkDir; dir != "" {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			d.fail("Shell work_dir", fmt.Sprintf("not a directory: %s", dir))
		} else {
			d.pass("Shell work_dir", dir)
		}
	}

	return d.summary()
}

func (d *doctor) summary() error {
	fmt.Fprintf(d.w, "\n━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	fmt.Fprintf(d.w, "Results: %d passed, %d warnings, %d failed\n", d.passed, d.warned, d.failed)
	if d.failed > 0 {
		fmt.Fprintf(d.w, "\nPlease fix the failed checks before running scaffai.\n")
		return fmt.Errorf("%d check(s) failed", d.failed)
	}
	if d.warned > 0 {
		fmt.Fprintf(d.w, "\nscaffai should work but consider fixing the warnings.\n")
	} else {
		fmt.Fprintf(d.w, "\nAll checks passed! scaffai is ready to run.\n")
	}
	return nil
}

func checkDatabase(dbPath string) error {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("cannot create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return fmt.Errorf("cannot open: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("cannot ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS _doctor_test (id INTEGER PRIMARY KEY)"); err != nil {
		return fmt.Errorf("not writable: %w", err)
	}
	db.ExecContext(ctx, "DROP TABLE IF EXISTS _doctor_test")
	return nil
}
