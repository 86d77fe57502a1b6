package driver

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"molten/internal/ast"
	"molten/internal/diag"
	"molten/internal/source"
)

const (
	// ASTExt is the extension of serialized syntax trees.
	ASTExt = ".mast"
	// SourceExt is the extension of Molten source text. When it sits next
	// to a .mast file, diagnostics quote its lines.
	SourceExt = ".mol"
)

// Unit is one compilation unit: a checked-in syntax tree and its name.
type Unit struct {
	Name string
	Path string
	File source.FileID
	Code []ast.Node
}

// Dir is the directory the unit was loaded from, or "".
func (u *Unit) Dir() string {
	if u.Path == "" {
		return ""
	}
	return filepath.Dir(u.Path)
}

func (u *Unit) pos() source.Pos { return source.Pos{File: u.File} }

// NewUnit wraps code built in memory.
func NewUnit(name string, code []ast.Node) *Unit {
	return &Unit{Name: name, Code: code}
}

// LoadUnit decodes the .mast file at path. The file, or the source text
// beside it, is registered in files so positions can be printed.
func LoadUnit(files *source.FileSet, path string) (*Unit, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, diag.Wrap(diag.IOLoadFileError, source.Pos{}, err)
	}
	defer f.Close()

	stem := strings.TrimSuffix(path, filepath.Ext(path))
	var file source.FileID
	if id, lerr := files.Load(stem + SourceExt); lerr == nil {
		file = id
	} else if errors.Is(lerr, os.ErrNotExist) {
		file = files.Add(path, nil, 0)
	} else {
		return nil, diag.Wrap(diag.IOLoadFileError, source.Pos{}, lerr)
	}

	name, code, err := ast.Decode(f, file)
	if err != nil {
		return nil, diag.Wrap(diag.IODecodeError, source.Pos{}, fmt.Errorf("%s: %w", path, err))
	}
	if name == "" {
		name = filepath.Base(stem)
	}
	return &Unit{Name: name, Path: path, File: file, Code: code}, nil
}

// LoadUnits loads every path, stopping at the first failure.
func LoadUnits(files *source.FileSet, paths []string) ([]*Unit, error) {
	units := make([]*Unit, 0, len(paths))
	for _, p := range paths {
		u, err := LoadUnit(files, p)
		if err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	return units, nil
}

// WriteUnit stores code as a .mast file at path.
func WriteUnit(path, name string, code []ast.Node) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := ast.Encode(f, name, code); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
