package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"molten/internal/ast"
	"molten/internal/driver"
	"molten/internal/ids"
)

func writeUnit(t *testing.T, dir, name string, build func(b *ast.Builder) []ast.Node) string {
	t.Helper()
	b := ast.NewBuilder(ids.NewGenerator(ids.NoID))
	path := filepath.Join(dir, name+driver.ASTExt)
	if err := driver.WriteUnit(path, name, build(b)); err != nil {
		t.Fatalf("write unit: %v", err)
	}
	return path
}

func execute(args ...string) (stdout, stderr string, err error) {
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--color=off"}, args...))
	err = root.Execute()
	runCleanups()
	return out.String(), errOut.String(), err
}

func hello(b *ast.Builder) []ast.Node {
	return []ast.Node{b.Op("println", b.Str("hello"))}
}

func TestBuildWritesLLVM(t *testing.T) {
	path := writeUnit(t, t.TempDir(), "hello", hello)
	stdout, stderr, err := execute("build", "--ui=off", path)
	if err != nil {
		t.Fatalf("build: %v\n%s", err, stderr)
	}
	if !strings.Contains(stdout, "built ") {
		t.Fatalf("unexpected stdout %q", stdout)
	}
	ir, err := os.ReadFile(sibling(path, ".ll"))
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.Contains(string(ir), "@main") {
		t.Fatalf("output has no main:\n%s", ir)
	}
}

func TestBuildLibraryWritesDec(t *testing.T) {
	dir := t.TempDir()
	path := writeUnit(t, dir, "shapes", func(b *ast.Builder) []ast.Node {
		fn := b.Fn("area", []*ast.Argument{b.Arg("w", nil), b.Arg("h", nil)}, b.Op("*", b.Ident("w"), b.Ident("h")))
		fn.Vis = ast.Public
		return []ast.Node{fn}
	})
	if _, stderr, err := execute("build", "--quiet", "--ui=off", "--library", path); err != nil {
		t.Fatalf("build: %v\n%s", err, stderr)
	}
	dec := filepath.Join(dir, "shapes.dec")
	stdout, _, err := execute("dec", dec)
	if err != nil {
		t.Fatalf("dec: %v", err)
	}
	if !strings.HasPrefix(stdout, "module shapes\n") || !strings.Contains(stdout, "func area: ") {
		t.Fatalf("unexpected declarations:\n%s", stdout)
	}
}

func TestCheckReportsErrors(t *testing.T) {
	path := writeUnit(t, t.TempDir(), "broken", func(b *ast.Builder) []ast.Node {
		return []ast.Node{b.Op("println", b.Ident("missing"))}
	})
	_, stderr, err := execute("check", path)
	var exitErr *exitCodeError
	if !errors.As(err, &exitErr) || exitErr.code != 1 {
		t.Fatalf("expected exit status 1, got %v", err)
	}
	if !strings.Contains(stderr, "error[SEM") {
		t.Fatalf("diagnostics not printed:\n%s", stderr)
	}

	stdout, _, _ := execute("check", "--format=json", path)
	var out struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal([]byte(stdout), &out); err != nil || out.Count == 0 {
		t.Fatalf("unexpected json %q (%v)", stdout, err)
	}
}

func TestRunUncaughtExceptionExitStatus(t *testing.T) {
	path := writeUnit(t, t.TempDir(), "boom", func(b *ast.Builder) []ast.Node {
		return []ast.Node{b.Raise(b.Int(1))}
	})
	_, _, err := execute("run", path)
	var exitErr *exitCodeError
	if !errors.As(err, &exitErr) || exitErr.code != -1 {
		t.Fatalf("expected exit status -1, got %v", err)
	}
}

func TestIRPrintsModule(t *testing.T) {
	path := writeUnit(t, t.TempDir(), "hello", hello)
	stdout, stderr, err := execute("ir", path)
	if err != nil {
		t.Fatalf("ir: %v\n%s", err, stderr)
	}
	if !strings.Contains(stdout, "run.hello") {
		t.Fatalf("unexpected IR:\n%s", stdout)
	}
}

func TestVersionJSON(t *testing.T) {
	stdout, _, err := execute("version", "--format=json")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	var payload versionPayload
	if err := json.Unmarshal([]byte(stdout), &payload); err != nil || payload.Tool != "molten" {
		t.Fatalf("unexpected payload %q (%v)", stdout, err)
	}
}

func TestReadUIMode(t *testing.T) {
	for in, want := range map[string]uiMode{"": uiModeAuto, "ON": uiModeOn, " off ": uiModeOff} {
		got, err := readUIMode(in)
		if err != nil || got != want {
			t.Fatalf("readUIMode(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := readUIMode("sometimes"); err == nil {
		t.Fatalf("expected an error")
	}
}
