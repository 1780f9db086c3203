package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"borrowck/internal/version"
)

// errDiagnostics makes the process exit with 1 without printing anything
// beyond the diagnostics themselves.
var errDiagnostics = errors.New("error diagnostics reported")

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "borrowck",
		Short: "Ownership and borrow checker",
		Long: `borrowck parses a small Rust-like language, lowers every function to a
control-flow graph and reports use-after-move, aliasing and mutability
violations.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return applyColor(cmd)
		},
	}

	// Глобальные флаги
	root.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	root.PersistentFlags().Bool("quiet", false, "suppress non-essential output")
	root.PersistentFlags().Bool("timings", false, "show timing information")
	root.PersistentFlags().Int("max-diagnostics", 100, "maximum number of diagnostics per file (0 = unlimited)")
	root.PersistentFlags().String("trace", "", "write trace events to a file (- for stderr, *.ndjson for NDJSON)")
	root.PersistentFlags().String("trace-level", "off", "trace level (off|error|phase|detail|debug)")
	root.PersistentFlags().String("trace-mode", "stream", "trace storage (stream|ring|both)")
	root.PersistentFlags().String("trace-format", "", "trace stream format (text|ndjson, default by file extension)")
	root.PersistentFlags().Int("trace-ring-size", 0, "events kept by the ring tracer (0 = default)")
	root.PersistentFlags().String("cpu-profile", "", "write a CPU profile to file")
	root.PersistentFlags().String("mem-profile", "", "write a heap profile to file on exit")
	root.PersistentFlags().String("runtime-trace", "", "write a Go runtime trace to file")

	root.AddCommand(newCheckCmd())
	root.AddCommand(newCleanCmd())
	root.AddCommand(newFixCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		if !errors.Is(err, errDiagnostics) {
			fmt.Fprintf(os.Stderr, "borrowck: %v\n", err)
		}
		os.Exit(1)
	}
}

// applyColor resolves --color once for every renderer that reads
// color.NoColor.
func applyColor(cmd *cobra.Command) error {
	mode, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return fmt.Errorf("failed to get color flag: %w", err)
	}
	enabled, err := colorEnabled(mode, isTerminal(os.Stdout))
	if err != nil {
		return err
	}
	color.NoColor = !enabled
	return nil
}

func colorEnabled(mode string, tty bool) (bool, error) {
	switch mode {
	case "on", "always":
		return true, nil
	case "off", "never":
		return false, nil
	case "auto", "":
		return tty && os.Getenv("NO_COLOR") == "", nil
	default:
		return false, fmt.Errorf("invalid --color value %q (expected auto|on|off)", mode)
	}
}

// isTerminal проверяет, является ли файл терминалом
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd())) //nolint:gosec // Fd fits in int on supported platforms
}
