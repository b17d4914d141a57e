package vars_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/funvibe/funcps/internal/ast"
	"github.com/funvibe/funcps/internal/vars"
)

func name(id string) *ast.Name  { return &ast.Name{ID: id, Ctx: ast.Load} }
func store(id string) *ast.Name { return &ast.Name{ID: id, Ctx: ast.Store} }
func lit(v any) *ast.Constant   { return &ast.Constant{Value: v} }
func assign(target string, value ast.Expr) *ast.Assign {
	return &ast.Assign{Targets: []*ast.Name{store(target)}, Value: value}
}

func setOf(keys ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		out[k] = struct{}{}
	}
	return out
}

// Grounded on _examples/original_source/tests/test_vars.py's
// test_varanal_local_variables: x=1; y=x+2; z=y — every name is both
// defined and used locally, nothing escapes free.
func TestAnalyzeLocalVariables(t *testing.T) {
	body := []ast.Stmt{
		assign("x", lit(int64(1))),
		assign("y", &ast.BinOp{Left: name("x"), Op: "+", Right: lit(int64(2))}),
		assign("z", name("y")),
	}
	result := vars.Analyze(body, vars.New())

	assert.Equal(t, setOf("x", "y", "z"), result.LocalDefs)
	assert.Equal(t, setOf("x", "y", "z"), result.UsesLocal)
	assert.Empty(t, result.UsesFree)
}

// test_varanal_free_variables: a = b + 1 — b is never defined in this
// scope, so it's free.
func TestAnalyzeFreeVariables(t *testing.T) {
	body := []ast.Stmt{assign("a", &ast.BinOp{Left: name("b"), Op: "+", Right: lit(int64(1))})}
	result := vars.Analyze(body, vars.New())

	assert.Equal(t, setOf("a"), result.LocalDefs)
	assert.Equal(t, setOf("a"), result.UsesLocal)
	assert.Equal(t, setOf("b"), result.UsesFree)
}

// test_varanal_def: a nested def's own free variable ("a", never assigned
// in either scope) propagates outward as a use, without exposing the
// inner function's own locals.
func TestAnalyzeNestedFunctionDefPropagatesFree(t *testing.T) {
	inner := &ast.FunctionDef{
		Name: "f",
		Args: ast.Arguments{Args: []string{"x", "y"}},
		Body: []ast.Stmt{
			assign("z", &ast.BinOp{Left: name("x"), Op: "*", Right: name("y")}),
			&ast.Return{Value: &ast.BinOp{Left: name("z"), Op: "+", Right: name("a")}},
		},
	}
	result := vars.Analyze([]ast.Stmt{inner}, vars.New())

	assert.Equal(t, setOf("f"), result.LocalDefs)
	assert.Contains(t, result.UsesFree, "a")
	assert.NotContains(t, result.UsesFree, "x")
	assert.NotContains(t, result.UsesFree, "z")
}

// test_varanal_inner_def: the inner scope's own partition keeps "x"/"y"
// as arg defs and exposes exactly the names neither scope ever bound
// ("q", "a") as free, whether inspected directly via vars.Inner or
// through the outer scope's propagation.
func TestAnalyzeInnerFunctionDefScope(t *testing.T) {
	g := &ast.FunctionDef{
		Name: "g",
		Args: ast.Arguments{Args: []string{"z"}},
		Body: []ast.Stmt{&ast.Return{Value: &ast.BinOp{
			Left:  &ast.BinOp{Left: name("z"), Op: "+", Right: name("x")},
			Op:    "+",
			Right: name("a"),
		}}},
	}
	f := &ast.FunctionDef{
		Name: "f",
		Args: ast.Arguments{Args: []string{"x", "y"}},
		Body: []ast.Stmt{
			g,
			&ast.Return{Value: &ast.Call{Func: name("g"), Args: []ast.Expr{
				&ast.BinOp{Left: &ast.BinOp{Left: name("x"), Op: "*", Right: name("y")}, Op: "*", Right: name("q")},
			}}},
		},
	}

	innerResult := vars.Inner(f, vars.New())
	assert.Equal(t, setOf("f"), innerResult.LocalDefs)
	assert.Contains(t, innerResult.UsesFree, "q")
	assert.Contains(t, innerResult.UsesFree, "a")
	assert.NotContains(t, innerResult.UsesFree, "x")
	assert.NotContains(t, innerResult.UsesFree, "y")

	outerResult := vars.Analyze([]ast.Stmt{f}, vars.New())
	assert.Equal(t, setOf("f"), outerResult.LocalDefs)
	assert.Contains(t, outerResult.UsesFree, "q")
	assert.Contains(t, outerResult.UsesFree, "a")
}

// test_varanal_for: a for-loop's own iteration names (the loop variable)
// are local, but the callables it invokes to build the iterable
// ("range") are free — the same "builtin calls show up as free uses"
// characteristic this package inherited from the original's behavior,
// which internal/split's continuation construction relies on staying
// confined to Test expressions and entry bodies (DESIGN.md decision 11).
func TestAnalyzeForLoopFreeCallables(t *testing.T) {
	fn := &ast.FunctionDef{
		Name: "f",
		Body: []ast.Stmt{
			assign("z", lit(int64(0))),
			&ast.For{
				Target: store("i"),
				Iter:   &ast.Call{Func: name("range"), Args: []ast.Expr{lit(int64(4)), lit(int64(9))}},
				Body:   []ast.Stmt{&ast.AugAssign{Target: store("z"), Op: "+", Value: name("i")}},
			},
			&ast.Return{Value: name("z")},
		},
	}
	result := vars.Analyze([]ast.Stmt{fn}, vars.New())

	assert.Equal(t, setOf("f"), result.LocalDefs)
	assert.Contains(t, result.UsesFree, "range")
}

// test_varanal_augass: a += b — a is locally defined and used (augmented
// assignment reads then writes it), b is free.
func TestAnalyzeAugAssignFreeRHS(t *testing.T) {
	body := []ast.Stmt{&ast.AugAssign{Target: store("a"), Op: "+", Value: name("b")}}
	result := vars.Analyze(body, vars.New())

	assert.Equal(t, setOf("a"), result.LocalDefs)
	assert.Equal(t, setOf("a"), result.UsesLocal)
	assert.Equal(t, setOf("b"), result.UsesFree)
}

// test_varanal_nonlocal: declaring x nonlocal evicts it from local defs
// even though it's then assigned, and the later use of x counts as free.
func TestAnalyzeNonlocalDeclaration(t *testing.T) {
	body := []ast.Stmt{
		&ast.Nonlocal{Names: []string{"x"}},
		assign("x", lit(int64(3))),
	}
	result := vars.Analyze(body, vars.New())

	assert.Equal(t, setOf("x"), result.Nonlocals)
	assert.Contains(t, result.UsesFree, "x")
	assert.NotContains(t, result.LocalDefs, "x")
}

// test_varanal_global: same shape as nonlocal, via the Global set.
func TestAnalyzeGlobalDeclaration(t *testing.T) {
	body := []ast.Stmt{
		&ast.Global{Names: []string{"x"}},
		assign("x", lit(int64(3))),
	}
	result := vars.Analyze(body, vars.New())

	assert.Equal(t, setOf("x"), result.Globals)
	assert.Contains(t, result.UsesFree, "x")
	assert.NotContains(t, result.LocalDefs, "x")
}
