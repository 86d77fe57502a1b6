package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"molten/internal/driver"
	"molten/internal/exports"
)

func newDecCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dec <file.dec|unit.mast>",
		Short: "Print the public declarations of a module",
		Long: `Dec prints the declarations stored in a .dec file, or the ones a unit
would export when it is given as a .mast file`,
		Args: cobra.ExactArgs(1),
		RunE: decExecution,
	}
}

func decExecution(cmd *cobra.Command, args []string) error {
	path := args[0]
	if filepath.Ext(path) == exports.Ext {
		f, err := exports.Read(path)
		if err != nil {
			return err
		}
		return exports.Dump(cmd.OutOrStdout(), f)
	}

	t, err := loadTarget(cmd, args)
	if err != nil {
		return err
	}
	opts := t.opts
	opts.CheckOnly = true
	res, err := driver.Compile(cmd.Context(), t.units[0], opts)
	if err != nil && cmd.Context().Err() != nil {
		return err
	}
	if err := t.report(cmd, res); err != nil {
		return err
	}
	if res.Exports == nil {
		return fmt.Errorf("%s exports nothing", path)
	}
	return exports.Dump(cmd.OutOrStdout(), res.Exports)
}
