package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"molten/internal/project"
	"molten/internal/trace"
)

// activeTracer is the tracer installed for the running command, kept so a
// failing command can dump the ring buffer.
var activeTracer trace.Tracer = trace.Nop

// setupTracing inspects trace-related flags and initializes the tracer.
// Flags left unset fall back to the [trace] section of molten.toml.
// It returns a cleanup function and an error if initialization fails.
func setupTracing(cmd *cobra.Command) (func(), error) {
	flags := cmd.Root().PersistentFlags()

	traceOutput, err := flags.GetString("trace")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace flag: %w", err)
	}
	levelStr, err := flags.GetString("trace-level")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-level flag: %w", err)
	}
	formatStr, err := flags.GetString("trace-format")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-format flag: %w", err)
	}
	modeStr, err := flags.GetString("trace-mode")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-mode flag: %w", err)
	}
	units, err := flags.GetStringSlice("trace-unit")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-unit flag: %w", err)
	}

	if manifest, ok, mErr := project.LoadFromDir("."); mErr == nil && ok {
		cfg := manifest.Config.Trace
		traceOutput = fromManifest(flags, "trace", traceOutput, cfg.Output)
		levelStr = fromManifest(flags, "trace-level", levelStr, cfg.Level)
		formatStr = fromManifest(flags, "trace-format", formatStr, cfg.Format)
		if !flags.Changed("trace-unit") && len(cfg.Units) > 0 {
			units = cfg.Units
		}
	}

	level, err := trace.ParseLevel(levelStr)
	if err != nil {
		return nil, err
	}
	// An output without a level traces phases.
	if level == trace.LevelOff && traceOutput != "" {
		level = trace.LevelPhase
	}
	if level == trace.LevelOff {
		activeTracer = trace.Nop
		cmd.SetContext(trace.WithTracer(cmd.Context(), trace.Nop))
		return func() {}, nil
	}

	format, err := trace.ParseFormat(formatStr)
	if err != nil {
		return nil, err
	}
	mode, err := trace.ParseMode(modeStr)
	if err != nil {
		return nil, err
	}

	tracer, err := trace.New(trace.Config{
		Level:      level,
		Mode:       mode,
		Format:     format,
		OutputPath: traceOutput,
		Units:      units,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}
	activeTracer = tracer
	ctx := trace.WithTracer(cmd.Context(), tracer)
	cmd.SetContext(ctx)
	cmd.Root().SetContext(ctx)

	cleanup := func() {
		if err := tracer.Flush(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: flush error: %v\n", err)
		}
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: close error: %v\n", err)
		}
	}
	return cleanup, nil
}

func fromManifest(flags *pflag.FlagSet, name, flagValue, manifestValue string) string {
	if flags.Changed(name) || manifestValue == "" {
		return flagValue
	}
	return manifestValue
}

// dumpTraceRing writes the events kept in memory, if the tracer keeps any.
func dumpTraceRing(w io.Writer) {
	var ring *trace.RingTracer
	t := activeTracer
	if f, ok := t.(*trace.UnitFilter); ok {
		t = f.Tracer
	}
	switch t := t.(type) {
	case *trace.RingTracer:
		ring = t
	case *trace.MultiTracer:
		ring, _ = t.Ring()
	}
	if ring == nil {
		return
	}
	fmt.Fprintln(w, "trace: last events")
	if err := ring.Dump(w, trace.FormatText); err != nil {
		fmt.Fprintf(w, "trace: dump error: %v\n", err)
	}
}
