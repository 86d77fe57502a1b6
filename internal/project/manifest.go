// Package project reads the molten.toml manifest of a project.
package project

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

var (
	// ErrPackageSectionMissing indicates that [package] is missing.
	ErrPackageSectionMissing = errors.New("missing [package]")
	// ErrPackageNameMissing indicates that [package].name is missing.
	ErrPackageNameMissing = errors.New("missing [package].name")
	// ErrBuildMainMissing indicates that [build].main is missing.
	ErrBuildMainMissing = errors.New("missing [build].main")
)

// Emit kinds accepted in [build].emit.
const (
	EmitLLVM = "llvm"
	EmitIR   = "ir"
)

// Manifest is a loaded molten.toml.
type Manifest struct {
	Path   string
	Root   string
	Config Config
}

type Config struct {
	Package PackageConfig         `toml:"package"`
	Build   BuildConfig           `toml:"build"`
	Trace   TraceConfig           `toml:"trace"`
	Modules map[string]ModuleSpec `toml:"modules"`
}

type PackageConfig struct {
	Name string `toml:"name"`
}

type BuildConfig struct {
	Main    string `toml:"main"`
	Library bool   `toml:"library"`
	NoGC    bool   `toml:"no_gc"`
	Output  string `toml:"output"`
	Emit    string `toml:"emit"`
}

type TraceConfig struct {
	Level  string   `toml:"level"`
	Format string   `toml:"format"`
	Output string   `toml:"output"`
	Units  []string `toml:"units"`
}

// ModuleSpec describes a dependency entry in [modules]: a directory that
// holds the .dec files of an imported module.
type ModuleSpec struct {
	Source string `toml:"source"`
}

// Load parses the manifest at path.
func Load(path string) (*Manifest, error) {
	var cfg Config
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if !meta.IsDefined("package") {
		return nil, fmt.Errorf("%s: %w", path, ErrPackageSectionMissing)
	}
	cfg.Package.Name = strings.TrimSpace(cfg.Package.Name)
	if !meta.IsDefined("package", "name") || cfg.Package.Name == "" {
		return nil, fmt.Errorf("%s: %w", path, ErrPackageNameMissing)
	}
	cfg.Build.Main = strings.TrimSpace(cfg.Build.Main)
	if !meta.IsDefined("build", "main") || cfg.Build.Main == "" {
		return nil, fmt.Errorf("%s: %w", path, ErrBuildMainMissing)
	}
	if !meta.IsDefined("build", "emit") {
		cfg.Build.Emit = EmitLLVM
	}
	switch cfg.Build.Emit {
	case EmitLLVM, EmitIR:
	default:
		return nil, fmt.Errorf("%s: [build].emit must be %q or %q, got %q", path, EmitLLVM, EmitIR, cfg.Build.Emit)
	}
	for name, spec := range cfg.Modules {
		if strings.TrimSpace(spec.Source) == "" {
			return nil, fmt.Errorf("%s: [modules].%s has no source", path, name)
		}
	}
	return &Manifest{Path: path, Root: filepath.Dir(path), Config: cfg}, nil
}

// LoadFromDir finds and loads the manifest governing startDir. ok is false
// when there is none.
func LoadFromDir(startDir string) (m *Manifest, ok bool, err error) {
	path, ok, err := FindManifest(startDir)
	if err != nil || !ok {
		return nil, ok, err
	}
	m, err = Load(path)
	return m, true, err
}

// MainPath is the absolute path of the unit named by [build].main.
func (m *Manifest) MainPath() string {
	return m.resolve(m.Config.Build.Main)
}

// OutputPath is the configured output, or <name>.ll (or .mir) in the root.
func (m *Manifest) OutputPath() string {
	if out := strings.TrimSpace(m.Config.Build.Output); out != "" {
		return m.resolve(out)
	}
	ext := ".ll"
	if m.Config.Build.Emit == EmitIR {
		ext = ".mir"
	}
	return filepath.Join(m.Root, m.Config.Package.Name+ext)
}

// ImportDirs lists the directories searched for .dec files: the project
// root first, then each [modules] source in name order.
func (m *Manifest) ImportDirs() []string {
	names := make([]string, 0, len(m.Config.Modules))
	for name := range m.Config.Modules {
		names = append(names, name)
	}
	sort.Strings(names)
	dirs := []string{m.Root}
	for _, name := range names {
		dirs = append(dirs, m.resolve(m.Config.Modules[name].Source))
	}
	return dirs
}

func (m *Manifest) resolve(p string) string {
	p = filepath.FromSlash(strings.TrimSpace(p))
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Root, p)
}
