package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"borrowck/internal/trace"
)

// setupTracing inspects trace-related flags and attaches a tracer to the
// command context. The returned cleanup flushes and closes it.
func setupTracing(cmd *cobra.Command) (trace.Tracer, func(), error) {
	root := cmd.Root()

	traceOutput, err := root.PersistentFlags().GetString("trace")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get trace flag: %w", err)
	}
	levelStr, err := root.PersistentFlags().GetString("trace-level")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get trace-level flag: %w", err)
	}
	modeStr, err := root.PersistentFlags().GetString("trace-mode")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get trace-mode flag: %w", err)
	}
	ringSize, err := root.PersistentFlags().GetInt("trace-ring-size")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get trace-ring-size flag: %w", err)
	}
	formatStr, err := root.PersistentFlags().GetString("trace-format")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get trace-format flag: %w", err)
	}

	level, err := trace.ParseLevel(levelStr)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid trace level: %w", err)
	}
	// an output without a level means phase tracing
	if level == trace.LevelOff && traceOutput != "" {
		level = trace.LevelPhase
	}
	if level == trace.LevelOff {
		cmd.SetContext(trace.WithTracer(cmd.Context(), trace.Nop))
		return trace.Nop, func() {}, nil
	}
	mode, err := trace.ParseMode(modeStr)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid trace mode: %w", err)
	}
	// empty keeps text, which New upgrades for *.ndjson paths
	format, err := trace.ParseFormat(formatStr)
	if err != nil {
		return nil, nil, err
	}

	cfg := trace.Config{
		Level:      level,
		Mode:       mode,
		Format:     format,
		OutputPath: traceOutput,
		RingSize:   ringSize,
	}
	if traceOutput == "" || traceOutput == "-" {
		cfg.OutputPath = ""
		cfg.Output = cmd.ErrOrStderr()
	}
	tracer, err := trace.New(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create tracer: %w", err)
	}
	cmd.SetContext(trace.WithTracer(cmd.Context(), tracer))

	cleanup := func() {
		if err := tracer.Flush(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: flush error: %v\n", err)
		}
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: close error: %v\n", err)
		}
	}
	return tracer, cleanup, nil
}

// dumpTraceRing writes the events kept in memory, if the tracer has a ring.
func dumpTraceRing(w io.Writer, tracer trace.Tracer) {
	ring := trace.RingOf(tracer)
	if ring == nil {
		return
	}
	fmt.Fprintln(w, "== trace (most recent events) ==")
	if err := ring.Dump(w, trace.FormatText); err != nil {
		fmt.Fprintf(w, "trace: dump error: %v\n", err)
	}
}
