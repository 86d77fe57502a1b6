package exports

import (
	"fmt"
	"io"
	"strings"
)

// Dump prints f one declaration per line, class members indented:
//
//	module shapes
//	func area: (Int, Int) -> Int / M
//	class Point
//	  field x: Int
func Dump(w io.Writer, f *File) error {
	if _, err := fmt.Fprintf(w, "module %s\n", f.Module); err != nil {
		return err
	}
	for _, d := range f.Decls {
		if err := dumpDecl(w, d, ""); err != nil {
			return err
		}
	}
	return nil
}

func dumpDecl(w io.Writer, d Decl, indent string) error {
	var line string
	switch d.Kind {
	case DeclImport:
		line = "import " + d.Name
	case DeclFunc, DeclField:
		line = fmt.Sprintf("%s %s: %s", d.Kind, d.Name, d.Type)
	case DeclAlias:
		line = fmt.Sprintf("alias %s = %s", d.Spec, d.Type)
	case DeclClass:
		line = "class " + d.Spec.String()
		if d.Parent != nil {
			line += " < " + d.Parent.String()
		}
	default:
		line = d.Kind.String()
	}
	if _, err := fmt.Fprintf(w, "%s%s\n", indent, line); err != nil {
		return err
	}
	for _, m := range d.Members {
		if err := dumpDecl(w, m, indent+"  "); err != nil {
			return err
		}
	}
	return nil
}

func (s *Spec) String() string {
	if s == nil {
		return "?"
	}
	if len(s.Params) == 0 {
		return s.Name
	}
	return s.Name + "<" + strings.Join(s.Params, ", ") + ">"
}
