package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"molten/internal/prof"
)

// startProfiling starts the Go profiles named by the profiling flags.
func startProfiling(cmd *cobra.Command) (func(), error) {
	flags := cmd.Root().PersistentFlags()
	var opts prof.Options
	var err error
	if opts.CPU, err = flags.GetString("cpu-profile"); err != nil {
		return nil, err
	}
	if opts.Mem, err = flags.GetString("mem-profile"); err != nil {
		return nil, err
	}
	if opts.Trace, err = flags.GetString("go-trace"); err != nil {
		return nil, err
	}
	session, err := prof.Start(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to start profiling: %w", err)
	}
	return func() {
		if err := session.Stop(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "profile: %v\n", err)
		}
	}, nil
}
