package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"borrowck/internal/borrowck"
	"borrowck/internal/config"
	"borrowck/internal/diagfmt"
	"borrowck/internal/driver"
	"borrowck/internal/mir"
	"borrowck/internal/observ"
	"borrowck/internal/trace"
	"borrowck/internal/version"
)

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [flags] <file|directory|->",
		Short: "Borrow check a source file or every source file in a directory",
		Long: `Parse, lower and borrow check the given file. A directory is walked
recursively using the [files] settings of borrowck.toml; "-" reads the
program from standard input.`,
		Args: cobra.ExactArgs(1),
		RunE: runCheck,
	}
	cmd.Flags().String("format", "", "output format (pretty|short|json|sarif); defaults to [output].format")
	cmd.Flags().Bool("with-notes", false, "include diagnostic notes in output")
	cmd.Flags().Bool("suggest", false, "include fix suggestions in output")
	cmd.Flags().Bool("fullpath", false, "emit absolute file paths in output")
	cmd.Flags().Int("jobs", 0, "max parallel workers for directory processing (0=auto)")
	cmd.Flags().String("config", "", "config file (default: nearest borrowck.toml or .borrowck.yaml)")
	cmd.Flags().Int("max-iterations", 0, "dataflow iteration limit per function (overrides config)")
	cmd.Flags().Bool("split-indices", false, "treat distinct constant indices as disjoint places")
	cmd.Flags().Bool("cache", false, "replay diagnostics of unchanged files from the disk cache")
	cmd.Flags().Bool("emit-mir", false, "print the lowered control-flow graph of every function")
	cmd.Flags().Bool("emit-regions", false, "print every loan with the points where it is live")
	cmd.Flags().String("ui", "auto", "progress view for directories (auto|on|off)")
	return cmd
}

// checkSettings is everything runCheck needs after flags and config are merged.
type checkSettings struct {
	opts      driver.Options
	format    diagfmt.Format
	withNotes bool
	suggest   bool
	pathMode  diagfmt.PathMode
	emitMIR   bool
	emitLive  bool
	timings   bool
	quiet     bool
	ui        uiMode
}

func runCheck(cmd *cobra.Command, args []string) (err error) {
	tracer, cleanup, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	// PostRun hooks are skipped when RunE fails, so the tracer is closed here
	defer func() {
		if err != nil && !errors.Is(err, errDiagnostics) {
			dumpTraceRing(cmd.ErrOrStderr(), tracer)
		}
		cleanup()
	}()
	stopProfiling, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	defer stopProfiling()

	target := args[0]
	settings, err := readCheckSettings(cmd, target)
	if err != nil {
		return err
	}

	ctx, span := trace.Start(cmd.Context(), trace.ScopeRun, "check")
	span.With("target", target)
	defer span.End("")

	var results []*driver.Result
	multi := false
	switch {
	case target == "-":
		src, readErr := io.ReadAll(cmd.InOrStdin())
		if readErr != nil {
			return fmt.Errorf("failed to read stdin: %w", readErr)
		}
		res, checkErr := driver.CheckSource(ctx, "<stdin>", src, settings.opts)
		if checkErr != nil {
			return checkErr
		}
		results = append(results, res)
	default:
		st, statErr := os.Stat(target)
		if statErr != nil {
			return fmt.Errorf("failed to stat %s: %w", target, statErr)
		}
		if st.IsDir() {
			multi = true
			var dirErr error
			if !settings.quiet && shouldUseTUI(settings.ui, os.Stderr) {
				results, dirErr = checkDirWithUI(ctx, target, settings.opts, cmd.ErrOrStderr())
			} else {
				results, dirErr = driver.CheckDir(ctx, target, settings.opts)
			}
			if dirErr != nil {
				return dirErr
			}
		} else {
			res, checkErr := driver.CheckFile(ctx, target, settings.opts)
			if checkErr != nil {
				return checkErr
			}
			results = append(results, res)
		}
	}

	out := cmd.OutOrStdout()
	if err := render(out, results, multi, &settings); err != nil {
		return err
	}
	if settings.emitMIR || settings.emitLive {
		if err := emitAnalyses(out, results, &settings); err != nil {
			return err
		}
	}
	if settings.timings && !settings.quiet {
		printTimings(cmd.ErrOrStderr(), results)
	}

	for _, r := range results {
		if r.HasErrors() {
			return errDiagnostics
		}
	}
	return nil
}

// readCheckSettings loads the config governing target and applies flags
// that were set explicitly on top of it.
func readCheckSettings(cmd *cobra.Command, target string) (checkSettings, error) {
	var s checkSettings
	flags := cmd.Flags()

	configPath, err := flags.GetString("config")
	if err != nil {
		return s, fmt.Errorf("failed to get config flag: %w", err)
	}
	cfg, err := loadConfig(configPath, target)
	if err != nil {
		return s, err
	}

	if flags.Changed("max-iterations") {
		if cfg.Analysis.MaxIterations, err = flags.GetInt("max-iterations"); err != nil {
			return s, fmt.Errorf("failed to get max-iterations flag: %w", err)
		}
	}
	if flags.Changed("split-indices") {
		if cfg.Analysis.SplitConstantIndices, err = flags.GetBool("split-indices"); err != nil {
			return s, fmt.Errorf("failed to get split-indices flag: %w", err)
		}
	}
	if flags.Changed("max-diagnostics") {
		if cfg.Output.MaxDiagnostics, err = flags.GetInt("max-diagnostics"); err != nil {
			return s, fmt.Errorf("failed to get max-diagnostics flag: %w", err)
		}
	}
	if flags.Changed("format") {
		if cfg.Output.Format, err = flags.GetString("format"); err != nil {
			return s, fmt.Errorf("failed to get format flag: %w", err)
		}
	}
	if flags.Changed("with-notes") {
		if cfg.Output.WithNotes, err = flags.GetBool("with-notes"); err != nil {
			return s, fmt.Errorf("failed to get with-notes flag: %w", err)
		}
	}
	if flags.Changed("cache") {
		if cfg.Cache.Enabled, err = flags.GetBool("cache"); err != nil {
			return s, fmt.Errorf("failed to get cache flag: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return s, err
	}

	if s.format, err = diagfmt.ParseFormat(cfg.Output.Format); err != nil {
		return s, err
	}
	s.withNotes = cfg.Output.WithNotes
	s.opts = driver.FromConfig(cfg)

	if s.opts.Jobs, err = flags.GetInt("jobs"); err != nil {
		return s, fmt.Errorf("failed to get jobs flag: %w", err)
	}
	if s.suggest, err = flags.GetBool("suggest"); err != nil {
		return s, fmt.Errorf("failed to get suggest flag: %w", err)
	}
	fullPath, err := flags.GetBool("fullpath")
	if err != nil {
		return s, fmt.Errorf("failed to get fullpath flag: %w", err)
	}
	if fullPath {
		s.pathMode = diagfmt.PathModeAbsolute
	}
	if s.emitMIR, err = flags.GetBool("emit-mir"); err != nil {
		return s, fmt.Errorf("failed to get emit-mir flag: %w", err)
	}
	if s.emitLive, err = flags.GetBool("emit-regions"); err != nil {
		return s, fmt.Errorf("failed to get emit-regions flag: %w", err)
	}
	s.opts.KeepMIR = s.emitMIR || s.emitLive

	uiValue, err := flags.GetString("ui")
	if err != nil {
		return s, fmt.Errorf("failed to get ui flag: %w", err)
	}
	if s.ui, err = readUIMode(uiValue); err != nil {
		return s, err
	}
	if s.timings, err = cmd.Root().PersistentFlags().GetBool("timings"); err != nil {
		return s, fmt.Errorf("failed to get timings flag: %w", err)
	}
	if s.quiet, err = cmd.Root().PersistentFlags().GetBool("quiet"); err != nil {
		return s, fmt.Errorf("failed to get quiet flag: %w", err)
	}
	s.opts.Timings = s.timings

	if cfg.Cache.Enabled && !s.opts.KeepMIR {
		dir, err := cacheDir(cfg)
		if err != nil {
			return s, err
		}
		if s.opts.Cache, err = driver.OpenDiskCache(dir); err != nil {
			return s, err
		}
	}
	return s, nil
}

// loadConfig reads an explicit config file or discovers the one above
// target. Missing discovery is not an error.
func loadConfig(explicit, target string) (config.Config, error) {
	if explicit != "" {
		return config.Load(explicit)
	}
	start := "."
	if target != "-" {
		start = target
		if st, err := os.Stat(target); err == nil && !st.IsDir() {
			start = filepath.Dir(target)
		}
	}
	cfg, err := config.Discover(start)
	if errors.Is(err, config.ErrNotFound) {
		return cfg, nil
	}
	return cfg, err
}

// cacheDir resolves [cache].dir against the directory of the config file.
func cacheDir(cfg config.Config) (string, error) {
	dir := cfg.Cache.Dir
	if dir == "" {
		return driver.DefaultCacheDir("borrowck")
	}
	if !filepath.IsAbs(dir) && cfg.Path != "" {
		dir = filepath.Join(filepath.Dir(cfg.Path), dir)
	}
	return dir, nil
}

func render(w io.Writer, results []*driver.Result, multi bool, s *checkSettings) error {
	switch s.format {
	case diagfmt.FormatShort:
		for _, r := range results {
			if err := diagfmt.Short(w, r.Bag, r.FileSet, s.withNotes, s.pathMode); err != nil {
				return err
			}
		}
	case diagfmt.FormatPretty:
		opts := diagfmt.PrettyOpts{
			Color:     !color.NoColor,
			Context:   2,
			PathMode:  s.pathMode,
			ShowNotes: s.withNotes,
			ShowFixes: s.suggest,
		}
		printed := 0
		for _, r := range results {
			if r.Bag.Len() == 0 {
				continue
			}
			if multi {
				if printed > 0 {
					fmt.Fprintln(w)
				}
				fmt.Fprintf(w, "== %s ==\n", displayPath(r, s.pathMode))
			}
			diagfmt.Pretty(w, r.Bag, r.FileSet, opts)
			printed++
		}
	case diagfmt.FormatJSON:
		opts := diagfmt.JSONOpts{
			IncludePositions: true,
			PathMode:         s.pathMode,
			IncludeNotes:     s.withNotes,
			IncludeFixes:     s.suggest,
		}
		if !multi {
			return diagfmt.JSON(w, results[0].Bag, results[0].FileSet, opts)
		}
		output := make(map[string]diagfmt.DiagnosticsOutput, len(results))
		for _, r := range results {
			output[displayPath(r, s.pathMode)] = diagfmt.BuildDiagnosticsOutput(r.Bag, r.FileSet, opts)
		}
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(output); err != nil {
			return fmt.Errorf("failed to encode diagnostics output: %w", err)
		}
	case diagfmt.FormatSarif:
		meta := diagfmt.SarifRunMeta{
			ToolName:       "borrowck",
			ToolVersion:    version.Version,
			InvocationArgs: os.Args[1:],
		}
		inputs := make([]diagfmt.Input, 0, len(results))
		for _, r := range results {
			inputs = append(inputs, diagfmt.Input{Bag: r.Bag, FileSet: r.FileSet})
		}
		return diagfmt.Sarif(w, meta, inputs...)
	default:
		return fmt.Errorf("unknown format: %s", s.format)
	}
	return nil
}

func displayPath(r *driver.Result, mode diagfmt.PathMode) string {
	if f := r.FileSet.Get(r.File); f != nil {
		return f.FormatPath(mode.String(), r.FileSet.BaseDir())
	}
	return r.Path
}

func emitAnalyses(w io.Writer, results []*driver.Result, s *checkSettings) error {
	for _, r := range results {
		if len(r.Funcs) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n// %s\n", displayPath(r, s.pathMode))
		if s.emitMIR {
			if err := mir.DumpModule(w, &mir.Module{Funcs: r.Funcs}); err != nil {
				return err
			}
		}
		if s.emitLive {
			for _, analysis := range r.Analyses {
				// nil when the function hit the iteration limit
				if analysis == nil {
					continue
				}
				if err := borrowck.DumpRegions(w, analysis); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func printTimings(w io.Writer, results []*driver.Result) {
	reports := make([]observ.Report, 0, len(results))
	for _, r := range results {
		if r.Timing != nil {
			reports = append(reports, *r.Timing)
		}
	}
	if len(reports) == 0 {
		return
	}
	summary := observ.Aggregate(reports...).Summary()
	fmt.Fprintln(w, strings.TrimRight(summary, "\n"))
}
