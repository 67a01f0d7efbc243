package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/cil2cpp/aotc/internal/config"
	"github.com/cil2cpp/aotc/internal/stubs"
)

func newBudgetCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "budget",
		Short: "Inspect or reset the stub budget ratchet",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "cil2cpp.yaml", "project configuration file")

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the currently persisted stub budget snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if cfg.BudgetPath == "" {
				return fmt.Errorf("budget ratchet disabled: budgetPath is empty in %s", configPath)
			}
			snap, ok, err := stubs.LoadSnapshot(cfg.BudgetPath)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Println("no budget snapshot recorded yet")
				return nil
			}
			fmt.Printf("total: %d\n", snap.Total)
			kinds := make([]string, 0, len(snap.ByKind))
			for kind := range snap.ByKind {
				kinds = append(kinds, kind)
			}
			sort.Strings(kinds)
			for _, kind := range kinds {
				fmt.Printf("  %-24s %d\n", kind, snap.ByKind[kind])
			}
			return nil
		},
	}

	reset := &cobra.Command{
		Use:   "reset",
		Short: "Delete the persisted stub budget snapshot so the next build reseeds it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if cfg.BudgetPath == "" {
				return fmt.Errorf("budget ratchet disabled: budgetPath is empty in %s", configPath)
			}
			if err := os.Remove(cfg.BudgetPath); err != nil && !os.IsNotExist(err) {
				return err
			}
			fmt.Println("budget snapshot reset")
			return nil
		},
	}

	root.AddCommand(show, reset)
	return root
}
