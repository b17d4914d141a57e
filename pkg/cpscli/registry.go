// Registry of demo functions cmd/funcps's compile/run subcommands operate
// on. This module has no source-level parser for the internal Python-
// flavoured DSL (internal/ast is built by hand or by a host embedding
// funcps, never read from text — see funcps/locate.go's doc comment for
// why that boundary isn't crossed either), so a CLI that wants something
// concrete to compile needs its own small, named set of functions to
// point at. These mirror the scenarios internal/interp's pipeline tests
// already exercise (spec.md §8), not fresh functionality.
package cpscli

import (
	"fmt"

	"github.com/funvibe/funcps/internal/ast"
)

// Demo names a registered function plus the markers its split points use.
type Demo struct {
	Func    *ast.FunctionDef
	Markers []string
}

func name(id string) *ast.Name  { return &ast.Name{ID: id, Ctx: ast.Load} }
func store(id string) *ast.Name { return &ast.Name{ID: id, Ctx: ast.Store} }
func constant(v any) *ast.Constant { return &ast.Constant{Value: v} }

// Registry maps demo names to their definitions, in registration order
// (Names preserves that order for `funcps compile` with no argument).
var registry = []struct {
	name string
	demo Demo
}{
	{"add_and_checkpoint", Demo{
		Func: &ast.FunctionDef{
			Name: "add_and_checkpoint",
			Args: ast.Arguments{Args: []string{"a", "b"}},
			Body: []ast.Stmt{
				&ast.Assign{Targets: []*ast.Name{store("r")}, Value: &ast.BinOp{Left: name("a"), Op: "+", Right: name("b")}},
				&ast.ExprStmt{Value: &ast.Call{Func: name("checkpoint"), Args: []ast.Expr{name("r")}}},
				&ast.Return{Value: name("r")},
			},
		},
		Markers: []string{"checkpoint"},
	}},
	{"maybe_short_circuit", Demo{
		Func: &ast.FunctionDef{
			Name: "maybe_short_circuit",
			Args: ast.Arguments{Args: []string{"x"}},
			Body: []ast.Stmt{
				&ast.Assign{Targets: []*ast.Name{store("y")}, Value: &ast.Call{Func: name("mark"), Args: []ast.Expr{name("x")}}},
				&ast.Return{Value: &ast.BinOp{Left: name("y"), Op: "+", Right: constant(int64(1))}},
			},
		},
		Markers: []string{"mark"},
	}},
	{"drain_and_sum", Demo{
		Func: &ast.FunctionDef{
			Name: "drain_and_sum",
			Args: ast.Arguments{Args: []string{"xs"}},
			Body: []ast.Stmt{
				&ast.Assign{Targets: []*ast.Name{store("r")}, Value: constant(int64(0))},
				&ast.While{
					Test: &ast.Compare{Left: &ast.Call{Func: name("len"), Args: []ast.Expr{name("xs")}}, Ops: []string{ast.OpGt}, Comparators: []ast.Expr{constant(int64(0))}},
					Body: []ast.Stmt{
						&ast.Assign{
							Targets: []*ast.Name{store("r")},
							Value: &ast.BinOp{
								Left:  name("r"),
								Op:    "+",
								Right: &ast.Call{Func: &ast.Attribute{Value: name("xs"), Attr: "pop"}, Args: nil},
							},
						},
						&ast.ExprStmt{Value: &ast.Call{Func: name("checkpoint"), Args: []ast.Expr{name("r")}}},
					},
				},
				&ast.Return{Value: name("r")},
			},
		},
		Markers: []string{"checkpoint"},
	}},
}

// Lookup returns the named demo, or false if no demo is registered under
// that name.
func Lookup(funcName string) (Demo, bool) {
	for _, e := range registry {
		if e.name == funcName {
			return e.demo, true
		}
	}
	return Demo{}, false
}

// Names lists every registered demo name, in registration order.
func Names() []string {
	names := make([]string, len(registry))
	for i, e := range registry {
		names[i] = e.name
	}
	return names
}

// Describe formats a one-line summary of a demo for `funcps compile`
// with no function argument.
func Describe(funcName string) string {
	d, ok := Lookup(funcName)
	if !ok {
		return funcName
	}
	return fmt.Sprintf("%s(%v) markers=%v", funcName, d.Func.Args.Args, d.Markers)
}
