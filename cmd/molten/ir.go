package main

import (
	"github.com/spf13/cobra"

	"molten/internal/driver"
)

func newIRCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ir [flags] [unit.mast]",
		Short: "Print the lowered IR of a unit",
		Args:  cobra.MaximumNArgs(1),
		RunE:  irExecution,
	}
	cmd.Flags().Bool("library", false, "lower as a library")
	return cmd
}

func irExecution(cmd *cobra.Command, args []string) error {
	t, err := loadTarget(cmd, args)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("library") || t.manifest == nil {
		if t.opts.Library, err = cmd.Flags().GetBool("library"); err != nil {
			return err
		}
	}
	res, err := driver.Compile(cmd.Context(), t.units[0], t.opts)
	if err != nil && cmd.Context().Err() != nil {
		return err
	}
	if err := t.report(cmd, res); err != nil {
		return err
	}
	return driver.WriteIR(cmd.OutOrStdout(), res)
}
