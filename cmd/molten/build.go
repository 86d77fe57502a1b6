package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"molten/internal/driver"
	"molten/internal/project"
	"molten/internal/ui"
)

func newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build [flags] [unit.mast...]",
		Short: "Build Molten units",
		Long: `Build compiles each unit on its own. Programs are emitted as LLVM IR
(or lowered IR with --emit=ir); libraries get a .dec file with their
public declarations. Without arguments the project in molten.toml is built.`,
		RunE: buildExecution,
	}
	cmd.Flags().Bool("library", false, "compile as a library: no main, write a .dec file")
	cmd.Flags().Bool("no-gc", false, "allocate with malloc instead of the collector")
	cmd.Flags().String("emit", project.EmitLLVM, "output for programs (llvm|ir)")
	cmd.Flags().StringP("output", "o", "", "output file for a single program (- for stdout)")
	cmd.Flags().String("out-dir", "", "directory for .dec files (default: next to each unit)")
	cmd.Flags().String("triple", "", "target triple recorded in LLVM IR")
	cmd.Flags().Int("jobs", 0, "units compiled in parallel (default: GOMAXPROCS)")
	cmd.Flags().String("ui", "auto", "progress display (auto|on|off)")
	return cmd
}

type buildFlags struct {
	emit   string
	output string
	outDir string
	jobs   int
	ui     uiMode
}

func readBuildFlags(cmd *cobra.Command, t *target) (buildFlags, error) {
	var bf buildFlags
	flags := cmd.Flags()
	var err error
	if flags.Changed("library") || t.manifest == nil {
		if t.opts.Library, err = flags.GetBool("library"); err != nil {
			return bf, err
		}
	}
	if flags.Changed("no-gc") || t.manifest == nil {
		if t.opts.NoGC, err = flags.GetBool("no-gc"); err != nil {
			return bf, err
		}
	}
	if t.opts.Triple, err = flags.GetString("triple"); err != nil {
		return bf, err
	}
	if bf.emit, err = flags.GetString("emit"); err != nil {
		return bf, err
	}
	if bf.output, err = flags.GetString("output"); err != nil {
		return bf, err
	}
	if t.manifest != nil {
		if !flags.Changed("emit") {
			bf.emit = t.manifest.Config.Build.Emit
		}
		if bf.output == "" {
			bf.output = t.manifest.OutputPath()
		}
	}
	if bf.emit != project.EmitLLVM && bf.emit != project.EmitIR {
		return bf, fmt.Errorf("unsupported --emit %q (expected llvm|ir)", bf.emit)
	}
	if bf.output != "" && len(t.units) > 1 {
		return bf, fmt.Errorf("--output needs a single unit, got %d", len(t.units))
	}
	if bf.outDir, err = flags.GetString("out-dir"); err != nil {
		return bf, err
	}
	if bf.jobs, err = flags.GetInt("jobs"); err != nil {
		return bf, err
	}
	uiValue, err := flags.GetString("ui")
	if err != nil {
		return bf, err
	}
	bf.ui, err = readUIMode(uiValue)
	return bf, err
}

func buildExecution(cmd *cobra.Command, args []string) error {
	t, err := loadTarget(cmd, args)
	if err != nil {
		return err
	}
	bf, err := readBuildFlags(cmd, t)
	if err != nil {
		return err
	}

	results, err := compileTracked(cmd.Context(), t, bf, "molten build")
	if err != nil {
		return err
	}
	if err := t.report(cmd, results...); err != nil {
		return err
	}

	for _, res := range results {
		path, err := writeBuildOutput(cmd.Context(), t, bf, res)
		if err != nil {
			if reportErr := t.report(cmd, res); reportErr != nil {
				return reportErr
			}
			return err
		}
		if !quietFlag(cmd) && path != "-" {
			fmt.Fprintf(cmd.OutOrStdout(), "built %s\n", formatPathForOutput(t.baseDir, path))
		}
	}
	return nil
}

// compileTracked compiles the units of t, behind a progress view when the
// terminal allows it.
func compileTracked(ctx context.Context, t *target, bf buildFlags, title string) ([]*driver.Result, error) {
	if !shouldUseTUI(bf.ui) || len(t.units) < 2 {
		return driver.CompileUnits(ctx, t.units, t.opts, bf.jobs)
	}
	var results []*driver.Result
	err := ui.Track(ctx, os.Stdout, title, t.names(), func(observe driver.PhaseObserver) error {
		opts := t.opts
		opts.Observer = observe
		var err error
		results, err = driver.CompileUnits(ctx, t.units, opts, bf.jobs)
		return err
	})
	return results, err
}

func writeBuildOutput(ctx context.Context, t *target, bf buildFlags, res *driver.Result) (string, error) {
	if t.opts.Library {
		dir := bf.outDir
		if dir == "" {
			dir = res.Unit.Dir()
		}
		if dir == "" {
			dir = "."
		}
		return driver.WriteExports(dir, res)
	}

	path := bf.output
	if path == "" {
		ext := ".ll"
		if bf.emit == project.EmitIR {
			ext = ".mir"
		}
		path = sibling(res.Unit.Path, ext)
	}
	var content []byte
	switch bf.emit {
	case project.EmitIR:
		var buf bytes.Buffer
		if err := driver.WriteIR(&buf, res); err != nil {
			return "", err
		}
		content = buf.Bytes()
	default:
		text, err := driver.EmitLLVM(ctx, res, t.opts)
		if err != nil {
			return "", err
		}
		content = []byte(text)
	}
	if path != "-" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return "", err
		}
	}
	return path, driver.WriteFile(path, content)
}

func formatPathForOutput(root, path string) string {
	if root == "" || path == "" {
		return path
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || filepath.IsAbs(rel) || len(rel) >= 2 && rel[:2] == ".." {
		return path
	}
	return filepath.ToSlash(rel)
}
