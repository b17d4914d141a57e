package funcps

import (
	goast "go/ast"
	"fmt"

	"golang.org/x/tools/go/packages"
)

// FuncSite is the Go source location of a function declaration. Go's
// reflect package cannot hand back a function's source the way Python's
// inspect.getsource does (the mechanism
// _examples/original_source/src/funbites/interface.py's split() relies
// on to recover the AST it transforms), so an embedding host that only
// knows a function by name, not by a ready internal/ast.FunctionDef,
// needs a Go-native substitute: LocateFunction resolves that name to a
// real file:line for diagnostics pointing back at the original source.
type FuncSite struct {
	Name string
	File string
	Line int
}

// LocateFunction loads the packages matching pattern (a go/packages load
// pattern, e.g. "./..." or a single import path) and returns the
// declaration site of the first top-level function named funcName it
// finds, mirroring golang.org/x/tools's role in the teacher's own
// tooling-adjacent dependency set (its LSP/analysis surface, not this
// module's CPS transform itself).
func LocateFunction(pattern, funcName string) (*FuncSite, error) {
	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedFiles | packages.NeedSyntax}
	pkgs, err := packages.Load(cfg, pattern)
	if err != nil {
		return nil, fmt.Errorf("funcps: loading %s: %w", pattern, err)
	}
	if packages.PrintErrors(pkgs) > 0 {
		return nil, fmt.Errorf("funcps: errors loading %s", pattern)
	}

	for _, pkg := range pkgs {
		for _, file := range pkg.Syntax {
			var site *FuncSite
			goast.Inspect(file, func(n goast.Node) bool {
				if site != nil {
					return false
				}
				decl, ok := n.(*goast.FuncDecl)
				if !ok || decl.Name.Name != funcName {
					return true
				}
				pos := pkg.Fset.Position(decl.Pos())
				site = &FuncSite{Name: funcName, File: pos.Filename, Line: pos.Line}
				return false
			})
			if site != nil {
				return site, nil
			}
		}
	}
	return nil, fmt.Errorf("funcps: function %s not found in %s", funcName, pattern)
}
