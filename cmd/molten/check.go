package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"molten/internal/diagfmt"
	"molten/internal/driver"
)

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [flags] [unit.mast...]",
		Short: "Bind and type check Molten units",
		Long:  `Check runs every phase up to export collection and prints the diagnostics`,
		RunE:  checkExecution,
	}
	cmd.Flags().String("format", "pretty", "diagnostics format (pretty|json)")
	cmd.Flags().Bool("emit-dec", false, "write a .dec file next to each unit that checks cleanly")
	cmd.Flags().Int("jobs", 0, "units checked in parallel (default: GOMAXPROCS)")
	return cmd
}

func checkExecution(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	format = strings.ToLower(format)
	if format != "pretty" && format != "json" {
		return fmt.Errorf("unsupported format %q (must be pretty or json)", format)
	}
	emitDec, err := cmd.Flags().GetBool("emit-dec")
	if err != nil {
		return err
	}
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return err
	}

	t, err := loadTarget(cmd, args)
	if err != nil {
		return err
	}
	results, err := driver.CheckUnits(cmd.Context(), t.units, t.opts, jobs)
	if err != nil {
		return err
	}

	if format == "json" {
		bag := driver.Diagnostics(t.opts.MaxDiagnostics, results...)
		if err := diagfmt.JSON(cmd.OutOrStdout(), bag, t.files, diagfmt.JSONOpts{
			IncludePositions: true,
			PathMode:         diagfmt.PathModeAuto,
			BaseDir:          t.baseDir,
			IncludeNotes:     true,
		}); err != nil {
			return err
		}
		if driver.HasErrors(results...) {
			return &exitCodeError{code: 1}
		}
	} else if err := t.report(cmd, results...); err != nil {
		return err
	}

	if !emitDec {
		return nil
	}
	for _, res := range results {
		dir := res.Unit.Dir()
		if dir == "" {
			dir = "."
		}
		path, err := driver.WriteExports(dir, res)
		if err != nil {
			return err
		}
		if !quietFlag(cmd) && format == "pretty" {
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", formatPathForOutput(t.baseDir, path))
		}
	}
	return nil
}
