package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"molten/internal/diagfmt"
	"molten/internal/driver"
	"molten/internal/project"
	"molten/internal/source"
	"molten/internal/trace"
)

const noManifestMessage = `no molten.toml found in this directory or its parents
pass unit files explicitly: molten build main.mast`

// target is what a command works on: units named on the command line,
// or the main unit of the project around the working directory.
type target struct {
	files    *source.FileSet
	units    []*driver.Unit
	opts     driver.Options
	manifest *project.Manifest
	baseDir  string
}

func loadTarget(cmd *cobra.Command, args []string) (*target, error) {
	flags := cmd.Root().PersistentFlags()
	maxDiagnostics, err := flags.GetInt("max-diagnostics")
	if err != nil {
		return nil, fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}
	timings, err := flags.GetBool("timings")
	if err != nil {
		return nil, fmt.Errorf("failed to get timings flag: %w", err)
	}

	t := &target{
		files: source.NewFileSet(),
		opts: driver.Options{
			MaxDiagnostics: maxDiagnostics,
			Timings:        timings,
			Tracer:         trace.FromContext(cmd.Context()),
		},
	}

	paths := args
	if len(args) == 0 {
		manifest, ok, err := project.LoadFromDir(".")
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errors.New(noManifestMessage)
		}
		build := manifest.Config.Build
		t.manifest = manifest
		t.baseDir = manifest.Root
		t.opts.Library = build.Library
		t.opts.NoGC = build.NoGC
		t.opts.ImportDirs = manifest.ImportDirs()
		paths = []string{manifest.MainPath()}
	} else if cwd, err := os.Getwd(); err == nil {
		t.baseDir = cwd
	}

	t.units, err = driver.LoadUnits(t.files, paths)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// libraryUnits lists the .mast files found in the module directories of
// the project, in module name order.
func (t *target) libraryUnits() ([]*driver.Unit, error) {
	if t.manifest == nil {
		return nil, nil
	}
	var paths []string
	for _, dir := range t.manifest.ImportDirs()[1:] {
		matches, err := filepath.Glob(filepath.Join(dir, "*"+driver.ASTExt))
		if err != nil {
			return nil, err
		}
		sort.Strings(matches)
		paths = append(paths, matches...)
	}
	return driver.LoadUnits(t.files, paths)
}

func (t *target) names() []string {
	names := make([]string, len(t.units))
	for i, u := range t.units {
		names[i] = u.Name
	}
	return names
}

// report prints the diagnostics of results to stderr and returns an exit
// error when any of them is an error.
func (t *target) report(cmd *cobra.Command, results ...*driver.Result) error {
	flags := cmd.Root().PersistentFlags()
	colorValue, err := flags.GetString("color")
	if err != nil {
		return fmt.Errorf("failed to get color flag: %w", err)
	}
	useColor, err := colorMode(colorValue)
	if err != nil {
		return err
	}
	quiet, err := flags.GetBool("quiet")
	if err != nil {
		return fmt.Errorf("failed to get quiet flag: %w", err)
	}

	failed := driver.HasErrors(results...)
	bag := driver.Diagnostics(t.opts.MaxDiagnostics, results...)
	if bag.Len() > 0 && (!quiet || failed) {
		diagfmt.Pretty(cmd.ErrOrStderr(), bag, t.files, diagfmt.PrettyOpts{
			Color:    useColor,
			PathMode: diagfmt.PathModeAuto,
			BaseDir:  t.baseDir,
		})
	}
	if t.opts.Timings && !quiet {
		for _, res := range results {
			if res != nil && len(res.Timing.Phases) > 0 {
				fmt.Fprint(cmd.ErrOrStderr(), res.Timing.Summary())
			}
		}
	}
	if failed {
		return &exitCodeError{code: 1}
	}
	return nil
}

// sibling is path with its extension replaced by ext.
func sibling(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

func quietFlag(cmd *cobra.Command) bool {
	quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
	return err == nil && quiet
}
