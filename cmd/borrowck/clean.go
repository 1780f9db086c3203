package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"borrowck/internal/driver"
)

func newCleanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean [path]",
		Short: "Remove cached diagnostics",
		Long:  "Remove the diagnostics cache configured by the borrowck.toml governing path.",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runClean,
	}
	cmd.Flags().String("config", "", "config file (default: nearest borrowck.toml or .borrowck.yaml)")
	return cmd
}

func runClean(cmd *cobra.Command, args []string) error {
	base := "."
	if len(args) > 0 && args[0] != "" {
		base = args[0]
	}
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return fmt.Errorf("failed to get config flag: %w", err)
	}
	cfg, err := loadConfig(configPath, base)
	if err != nil {
		return err
	}
	dir, err := cacheDir(cfg)
	if err != nil {
		return err
	}
	cache, err := driver.OpenDiskCache(dir)
	if err != nil {
		return err
	}
	if err := cache.DropAll(); err != nil {
		return fmt.Errorf("failed to clear %s: %w", dir, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "cleared %s\n", cache.Dir())
	return nil
}
