// Command molten compiles and runs Molten programs from their encoded
// syntax trees.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"molten/internal/version"
)

// exitCodeError ends the process with code without printing anything.
type exitCodeError struct {
	code int
}

func (e *exitCodeError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "molten",
		Short:         "Molten compiler and toolchain",
		Long:          `Molten binds, type checks and lowers programs, then emits LLVM IR or runs them in the VM`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newBuildCmd())
	root.AddCommand(newCheckCmd())
	root.AddCommand(newRunCmd())
	root.AddCommand(newIRCmd())
	root.AddCommand(newDecCmd())
	root.AddCommand(newVersionCmd())

	flags := root.PersistentFlags()
	flags.String("color", "auto", "colorize output (auto|on|off)")
	flags.Bool("quiet", false, "suppress non-essential output")
	flags.Bool("timings", false, "show timing information")
	flags.Int("max-diagnostics", 100, "maximum number of diagnostics to show")
	flags.String("trace", "", "write a pipeline trace to this file (- for stderr)")
	flags.String("trace-level", "off", "trace level (off|error|phase|detail|debug)")
	flags.String("trace-format", "auto", "trace format (auto|text|ndjson)")
	flags.String("trace-mode", "stream", "trace storage (stream|ring|both)")
	flags.StringSlice("trace-unit", nil, "trace only these compilation units")
	flags.String("cpu-profile", "", "write a Go CPU profile to this file")
	flags.String("mem-profile", "", "write a Go heap profile to this file")
	flags.String("go-trace", "", "write a Go runtime trace to this file")

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		stopProfiles, err := startProfiling(cmd)
		if err != nil {
			return err
		}
		cleanups = append(cleanups, stopProfiles)
		stopTracing, err := setupTracing(cmd)
		if err != nil {
			return err
		}
		cleanups = append(cleanups, stopTracing)
		return nil
	}
	return root
}

// cleanups run in reverse order once the command has finished.
var cleanups []func()

func runCleanups() {
	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
	cleanups = nil
}

// main runs the root command. Errors are printed to stderr and exit with
// status 1 unless they carry their own status.
func main() {
	err := newRootCmd().Execute()
	if err != nil {
		dumpTraceRing(os.Stderr)
	}
	runCleanups()
	if err == nil {
		return
	}
	var exitErr *exitCodeError
	if errors.As(err, &exitErr) {
		os.Exit(exitErr.code)
	}
	fmt.Fprintln(os.Stderr, "molten:", err)
	os.Exit(1)
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
