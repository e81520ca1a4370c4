package main

import (
	"context"
	"fmt"

	"scaffai/internal/commands"
	"scaffai/internal/memory"
	"scaffai/internal/store"

	"github.com/spf13/cobra"
)

func rulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List available project rules (templates)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return commands.PrintRules(cmd.OutOrStdout(), store.New(cfg.Store.Root, logger))
		},
	}
}

func snippetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "snippets LANGUAGE",
		Short: "List the snippets available for a language",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return commands.PrintSnippets(cmd.OutOrStdout(), store.New(cfg.Store.Root, logger), args[0])
		},
	}
}

func auditCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show the command audit log (needs a file-backed memory.db_path)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Memory.DBPath == memory.InMemory {
				fmt.Fprintln(cmd.OutOrStdout(), "memory.db_path is in-memory; nothing is kept between runs")
				return nil
			}
			ms, err := memory.NewSQLiteStore(cfg.Memory.DBPath, logger)
			if err != nil {
				return err
			}
			defer ms.Close()

			entries, err := ms.AuditLog(context.Background(), limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No audit entries")
				return nil
			}
			for _, e := range entries {
				fmt.Fprintf(cmd.OutOrStdout(), "%-16s %-10s %s\n", e.Action, e.Result, e.Command)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "number of entries")
	return cmd
}
