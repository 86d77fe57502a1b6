package driver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"molten/internal/backend/llvm"
	"molten/internal/diag"
	"molten/internal/exports"
	"molten/internal/mir"
	"molten/internal/trace"
	"molten/internal/vm"
)

// ErrNotLowered is returned when an output needs a module that the
// compilation did not produce.
var ErrNotLowered = errors.New("unit was not lowered")

// EmitLLVM renders the lowered module of res as LLVM IR text.
func EmitLLVM(ctx context.Context, res *Result, opts Options) (string, error) {
	if res == nil || res.Module == nil {
		return "", ErrNotLowered
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = trace.FromContext(ctx)
	}
	out, err := llvm.EmitModule(trace.WithTracer(ctx, tracer), res.Module, llvm.Options{NoGC: opts.NoGC, Triple: opts.Triple, Tracer: tracer})
	if err != nil {
		err = diag.Wrap(diag.InternalInvariant, res.Unit.pos(), err)
		diag.Report(diag.BagReporter{Bag: res.Bag}, err)
		return "", err
	}
	return out, nil
}

// WriteIR prints the lowered module of res in its textual form.
func WriteIR(w io.Writer, res *Result) error {
	if res == nil || res.Module == nil {
		return ErrNotLowered
	}
	return mir.DumpModule(w, res.Module)
}

// WriteExports stores the public surface of res as <dir>/<name>.dec and
// returns the path written.
func WriteExports(dir string, res *Result) (string, error) {
	if res == nil || res.Exports == nil {
		return "", fmt.Errorf("unit has no exports")
	}
	path := DecPath(dir, res)
	if err := exports.Write(path, res.Exports); err != nil {
		return "", diag.Wrap(diag.IOLoadFileError, res.Unit.pos(), err)
	}
	return path, nil
}

// WriteFile writes content to path, or to stdout when path is "-".
func WriteFile(path string, content []byte) error {
	if path == "-" {
		_, err := os.Stdout.Write(content)
		return err
	}
	return os.WriteFile(path, content, 0o644)
}

// Run loads the lowered modules into a fresh VM, dependencies first, and
// executes main of the last module that has one. It returns the status
// main produced.
func Run(ctx context.Context, rt vm.Runtime, opts vm.Options, results ...*Result) (int, error) {
	if opts.Tracer == nil {
		opts.Tracer = trace.FromContext(ctx)
	}
	machine := vm.New(rt, opts)
	for _, res := range results {
		if res == nil || res.Module == nil {
			return -1, ErrNotLowered
		}
		if err := machine.Load(ctx, res.Module); err != nil {
			return -1, err
		}
	}
	if vmErr := machine.Run(ctx); vmErr != nil {
		return -1, vmErr
	}
	return machine.ExitCode, nil
}
