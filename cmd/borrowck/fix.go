package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"borrowck/internal/diag"
	"borrowck/internal/driver"
	"borrowck/internal/fix"
	"borrowck/internal/source"
)

func newFixCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fix [flags] <file|directory>",
		Short: "Apply suggested fixes to a source file or directory",
		Long:  "Run the checker, then apply the fixes attached to its diagnostics, such as a missing `mut` or ';'.",
		Args:  cobra.ExactArgs(1),
		RunE:  runFix,
	}
	cmd.Flags().Bool("all", false, "apply all safe fixes")
	cmd.Flags().Bool("once", false, "apply the first available fix (default)")
	cmd.Flags().String("id", "", "apply fix with a specific identifier")
	cmd.Flags().Bool("dry-run", false, "report what would change without writing files")
	cmd.Flags().String("config", "", "config file (default: nearest borrowck.toml or .borrowck.yaml)")
	return cmd
}

func runFix(cmd *cobra.Command, args []string) error {
	target := args[0]

	applyAll, err := cmd.Flags().GetBool("all")
	if err != nil {
		return fmt.Errorf("failed to get all flag: %w", err)
	}
	applyOnce, err := cmd.Flags().GetBool("once")
	if err != nil {
		return fmt.Errorf("failed to get once flag: %w", err)
	}
	targetID, err := cmd.Flags().GetString("id")
	if err != nil {
		return fmt.Errorf("failed to get id flag: %w", err)
	}
	dryRun, err := cmd.Flags().GetBool("dry-run")
	if err != nil {
		return fmt.Errorf("failed to get dry-run flag: %w", err)
	}
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return fmt.Errorf("failed to get config flag: %w", err)
	}

	if targetID != "" && (applyAll || applyOnce) {
		return fmt.Errorf("--id cannot be combined with --all or --once")
	}
	if applyAll && applyOnce {
		return fmt.Errorf("--all and --once are mutually exclusive")
	}
	opts := fix.ApplyOptions{Mode: fix.ApplyModeOnce, TargetID: targetID, DryRun: dryRun}
	switch {
	case targetID != "":
		opts.Mode = fix.ApplyModeID
	case applyAll:
		opts.Mode = fix.ApplyModeAll
	}

	cfg, err := loadConfig(configPath, target)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	// fixes need fresh spans, so the cache stays out of the way
	driverOpts := driver.FromConfig(cfg)

	info, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("fix: %w", err)
	}

	var fs *source.FileSet
	var diagnostics []*diag.Diagnostic
	if info.IsDir() {
		results, err := driver.CheckDir(cmd.Context(), target, driverOpts)
		if err != nil {
			return fmt.Errorf("fix: check failed: %w", err)
		}
		if len(results) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No applicable fixes found.")
			return nil
		}
		// CheckDir results share one FileSet
		fs = results[0].FileSet
		for _, r := range results {
			diagnostics = append(diagnostics, r.Bag.Items()...)
		}
	} else {
		result, err := driver.CheckFile(cmd.Context(), target, driverOpts)
		if err != nil {
			return fmt.Errorf("fix: check failed: %w", err)
		}
		fs = result.FileSet
		diagnostics = result.Bag.Items()
	}

	res, applyErr := fix.Apply(fs, diagnostics, opts)
	return printApplyResult(cmd.OutOrStdout(), res, applyErr, dryRun)
}

func printApplyResult(w io.Writer, res *fix.ApplyResult, applyErr error, dryRun bool) error {
	if res == nil {
		return applyErr
	}
	verb := "Applied"
	if dryRun {
		verb = "Would apply"
	}
	if len(res.Applied) > 0 {
		fmt.Fprintf(w, "%s %d fix(es):\n", verb, len(res.Applied))
		for _, item := range res.Applied {
			location := item.PrimaryPath
			if location == "" {
				location = "(unknown location)"
			}
			fmt.Fprintf(w, "  %s [%s] %s (%d edits, %s)\n",
				item.Title, item.ID, location, item.EditCount, item.Applicability)
		}
	}
	if len(res.FileChanges) > 0 {
		if dryRun {
			fmt.Fprintln(w, "Files that would change:")
		} else {
			fmt.Fprintln(w, "Updated files:")
		}
		for _, change := range res.FileChanges {
			fmt.Fprintf(w, "  %s (%d edits)\n", change.Path, change.EditCount)
		}
	}
	if len(res.Skipped) > 0 {
		fmt.Fprintln(w, "Skipped fixes:")
		for _, skip := range res.Skipped {
			id := skip.ID
			if id == "" {
				id = "(unnamed)"
			}
			if skip.Title != "" {
				fmt.Fprintf(w, "  %s [%s]: %s\n", skip.Title, id, skip.Reason)
			} else {
				fmt.Fprintf(w, "  [%s]: %s\n", id, skip.Reason)
			}
		}
	}

	if applyErr != nil {
		if errors.Is(applyErr, fix.ErrNoFixes) && len(res.Applied) == 0 {
			fmt.Fprintln(w, "No applicable fixes found.")
			return nil
		}
		return applyErr
	}
	return nil
}
