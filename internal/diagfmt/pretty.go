// Package diagfmt renders diagnostics for terminals and tools.
package diagfmt

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"molten/internal/diag"
	"molten/internal/source"
)

type palette struct {
	err, warn, info, note, path, gutter, caret *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		err:    color.New(color.FgRed, color.Bold),
		warn:   color.New(color.FgYellow, color.Bold),
		info:   color.New(color.FgCyan, color.Bold),
		note:   color.New(color.FgCyan),
		path:   color.New(color.Bold),
		gutter: color.New(color.FgBlue),
		caret:  color.New(color.FgGreen, color.Bold),
	}
	for _, c := range []*color.Color{p.err, p.warn, p.info, p.note, p.path, p.gutter, p.caret} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(s diag.Severity) *color.Color {
	switch s {
	case diag.SevError:
		return p.err
	case diag.SevWarning:
		return p.warn
	}
	return p.info
}

// Pretty writes the diagnostics of bag in a human-readable form; bag
// should be sorted beforehand. Each diagnostic reads
//
//	path:line:col: error[SEM3002]: message
//
// followed by the offending source line and a caret when the source text
// is in fs, and by its notes when ShowNotes is set.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	pal := newPalette(opts.Color)
	for _, d := range bag.Items() {
		// timing payloads are for JSON consumers
		if d.Code == diag.ObsTimings {
			continue
		}
		sev := d.Severity.Label()
		fmt.Fprintf(w, "%s%s: %s\n",
			pal.path.Sprint(location(fs, d.Primary, opts.PathMode, opts.BaseDir)),
			pal.severity(d.Severity).Sprintf("%s[%s]", sev, d.Code.ID()),
			d.Message)
		snippet(w, fs, d.Primary, opts.Context, pal)
		if !opts.ShowNotes {
			continue
		}
		for _, n := range d.Notes {
			prefix := ""
			if n.Pos.IsValid() {
				prefix = location(fs, n.Pos, opts.PathMode, opts.BaseDir)
			}
			fmt.Fprintf(w, "  %s%s %s\n", prefix, pal.note.Sprint("note:"), n.Msg)
			snippet(w, fs, n.Pos, 0, pal)
		}
	}
}

// location renders "path:line:col: ", or "" when nothing is known.
func location(fs *source.FileSet, pos source.Pos, mode PathMode, base string) string {
	path := ""
	if f := fs.Get(pos.File); f != nil && f.Path != "" {
		path = formatPath(f.Path, mode, base)
	}
	switch {
	case path != "" && pos.IsValid():
		return fmt.Sprintf("%s:%d:%d: ", path, pos.Line, pos.Col)
	case path != "":
		return path + ": "
	case pos.IsValid():
		return fmt.Sprintf("%d:%d: ", pos.Line, pos.Col)
	}
	return ""
}

func snippet(w io.Writer, fs *source.FileSet, pos source.Pos, context int8, pal palette) {
	if !pos.IsValid() {
		return
	}
	f := fs.Get(pos.File)
	if f == nil || len(f.Content) == 0 {
		return
	}
	first := pos.Line
	if context > 0 && uint32(context) < first {
		first -= uint32(context)
	} else if context > 0 {
		first = 1
	}
	width := len(fmt.Sprint(pos.Line))
	for ln := first; ln <= pos.Line; ln++ {
		fmt.Fprintf(w, " %s %s\n", pal.gutter.Sprintf("%*d |", width, ln), f.GetLine(ln))
	}
	pad := caretPadding(f.GetLine(pos.Line), pos.Col)
	fmt.Fprintf(w, " %s %s%s\n", pal.gutter.Sprintf("%*s |", width, ""), pad, pal.caret.Sprint("^"))
}

// caretPadding returns the blanks that put a caret under column col of
// line. Tabs are kept so the caret lines up, wide runes count double.
func caretPadding(line string, col uint32) string {
	if col <= 1 {
		return ""
	}
	var sb strings.Builder
	n := uint32(1)
	for _, r := range line {
		if n >= col {
			break
		}
		if r == '\t' {
			sb.WriteByte('\t')
		} else {
			sb.WriteString(strings.Repeat(" ", runewidth.RuneWidth(r)))
		}
		n++
	}
	return sb.String()
}

func formatPath(path string, mode PathMode, base string) string {
	switch mode {
	case PathModeAbsolute:
		if abs, err := filepath.Abs(path); err == nil {
			return filepath.ToSlash(abs)
		}
	case PathModeBasename:
		return filepath.Base(path)
	case PathModeRelative, PathModeAuto:
		if base == "" {
			return path
		}
		rel, err := filepath.Rel(base, path)
		if err != nil {
			return path
		}
		rel = filepath.ToSlash(rel)
		if mode == PathModeAuto && strings.HasPrefix(rel, "../") {
			return path
		}
		return rel
	}
	return path
}
