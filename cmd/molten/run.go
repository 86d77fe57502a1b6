package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"molten/internal/driver"
	"molten/internal/vm"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [flags] [lib.mast...] main.mast",
		Short: "Compile and execute a Molten program",
		Long: `Run compiles the units in order and executes the last one in the VM.
Every unit before it is compiled as a library and its .dec file is written
next to it, so later units can import it. Without arguments the project in
molten.toml is run, together with the units of its [modules] directories.`,
		RunE: runExecution,
	}
	cmd.Flags().Int("max-depth", vm.DefaultMaxDepth, "VM call depth limit")
	return cmd
}

func runExecution(cmd *cobra.Command, args []string) error {
	maxDepth, err := cmd.Flags().GetInt("max-depth")
	if err != nil {
		return fmt.Errorf("failed to get max-depth flag: %w", err)
	}

	t, err := loadTarget(cmd, args)
	if err != nil {
		return err
	}
	if t.opts.Library {
		return errors.New("cannot run a library")
	}
	units := t.units
	if t.manifest != nil {
		libs, err := t.libraryUnits()
		if err != nil {
			return err
		}
		units = append(libs, units...)
	}

	results := make([]*driver.Result, 0, len(units))
	for i, unit := range units {
		opts := t.opts
		opts.Library = i < len(units)-1
		res, err := driver.Compile(cmd.Context(), unit, opts)
		if err != nil && cmd.Context().Err() != nil {
			return err
		}
		if err := t.report(cmd, res); err != nil {
			return err
		}
		if opts.Library {
			dir := unit.Dir()
			if dir == "" {
				dir = "."
			}
			if _, err := driver.WriteExports(dir, res); err != nil {
				return err
			}
		}
		results = append(results, res)
	}

	code, err := driver.Run(cmd.Context(), vm.NewDefaultRuntime(), vm.Options{MaxDepth: maxDepth, Tracer: t.opts.Tracer}, results...)
	var vmErr *vm.VMError
	if errors.As(err, &vmErr) {
		fmt.Fprint(cmd.ErrOrStderr(), vmErr.Pretty())
		return &exitCodeError{code: 1}
	}
	if err != nil {
		return err
	}
	if code != 0 {
		return &exitCodeError{code: code}
	}
	return nil
}

