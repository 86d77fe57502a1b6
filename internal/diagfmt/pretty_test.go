package diagfmt

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"molten/internal/diag"
	"molten/internal/source"
)

func fixture() (*diag.Bag, *source.FileSet) {
	fs := source.NewFileSet()
	content := []byte("let a = 1\nlet total = a + missing\n")
	id := fs.AddVirtual("/home/user/project/src/main.mol", content)

	bag := diag.NewBag(10)
	bag.Add(diag.NewError(diag.SemaUndefinedReference, source.Pos{File: id, Line: 2, Col: 17}, "undefined reference missing").
		WithNote(source.Pos{File: id, Line: 1, Col: 5}, "a is defined here"))
	return bag, fs
}

func TestPrettyPrintsLocationAndCaret(t *testing.T) {
	bag, fs := fixture()
	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{PathMode: PathModeRelative, BaseDir: "/home/user/project"})
	out := buf.String()

	if !strings.HasPrefix(out, "src/main.mol:2:17: error[SEM3002]: undefined reference missing\n") {
		t.Fatalf("unexpected header:\n%s", out)
	}
	lines := strings.Split(out, "\n")
	if len(lines) < 3 {
		t.Fatalf("missing snippet:\n%s", out)
	}
	if lines[1] != " 2 | let total = a + missing" {
		t.Fatalf("source line = %q", lines[1])
	}
	if want := "   | " + strings.Repeat(" ", 16) + "^"; lines[2] != want {
		t.Fatalf("caret line = %q, want %q", lines[2], want)
	}
	if strings.Contains(out, "note:") {
		t.Fatalf("notes printed without ShowNotes:\n%s", out)
	}
}

func TestPrettyNotesAndContext(t *testing.T) {
	bag, fs := fixture()
	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{Context: 1, PathMode: PathModeBasename, ShowNotes: true})
	out := buf.String()

	for _, want := range []string{
		"main.mol:2:17:",
		" 1 | let a = 1",
		"note: a is defined here",
		"main.mol:1:5: ",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output lacks %q:\n%s", want, out)
		}
	}
}

func TestPrettyWithoutSource(t *testing.T) {
	bag := diag.NewBag(1)
	bag.Add(diag.NewError(diag.IOLoadFileError, source.Pos{}, "open x.mast: no such file"))
	var buf bytes.Buffer
	Pretty(&buf, bag, source.NewFileSet(), PrettyOpts{Color: true})
	if !strings.Contains(buf.String(), "IO5001") || !strings.Contains(buf.String(), "no such file") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestCaretPaddingCountsWideRunes(t *testing.T) {
	tests := []struct {
		line string
		col  uint32
		want string
	}{
		{"abc", 1, ""},
		{"abc", 3, "  "},
		{"\tx", 2, "\t"},
		{"世界x", 3, "    "},
	}
	for _, tt := range tests {
		if got := caretPadding(tt.line, tt.col); got != tt.want {
			t.Errorf("caretPadding(%q, %d) = %q, want %q", tt.line, tt.col, got, tt.want)
		}
	}
}

func TestJSONOutput(t *testing.T) {
	bag, fs := fixture()
	var buf bytes.Buffer
	if err := JSON(&buf, bag, fs, JSONOpts{IncludePositions: true, PathMode: PathModeBasename, IncludeNotes: true}); err != nil {
		t.Fatalf("json: %v", err)
	}
	var out DiagnosticsOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Count != 1 {
		t.Fatalf("count = %d", out.Count)
	}
	d := out.Diagnostics[0]
	if d.Code != "SEM3002" || d.Severity != "ERROR" || d.Location.File != "main.mol" || d.Location.Line != 2 || d.Location.Col != 17 {
		t.Fatalf("unexpected diagnostic %+v", d)
	}
	if len(d.Notes) != 1 || d.Notes[0].Location.Line != 1 {
		t.Fatalf("unexpected notes %+v", d.Notes)
	}
}
