package simplify

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funvibe/funcps/internal/ast"
	"github.com/funvibe/funcps/internal/tag"
)

func gensymFrom(prefix string) Gensym {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s%d", prefix, n)
	}
}

func name(id string) *ast.Name { return &ast.Name{ID: id, Ctx: ast.Load} }

func isCheckpointCall(n ast.Node) bool {
	call, ok := n.(*ast.Call)
	if !ok {
		return false
	}
	fn, ok := call.Func.(*ast.Name)
	return ok && fn.ID == "checkpoint"
}

// containsName reports whether any node reachable from n (n included) is
// a *ast.Name with the given id.
func containsName(n ast.Node, id string) bool {
	if n == nil {
		return false
	}
	if nm, ok := n.(*ast.Name); ok && nm.ID == id {
		return true
	}
	for _, c := range ast.Children(n) {
		if containsName(c, id) {
			return true
		}
	}
	return false
}

// Grounded on _examples/original_source/tests/test_simplify.py's
// test_expr: return f(one(), checkpoint(), three()) — only the argument
// whose own subtree actually reaches a split point gets hoisted into a
// tmp assignment; one()/three() have nothing for the splitter to cut
// around, so tag.Run leaves them marked Ignore and nested() passes them
// through untouched.
func TestBodyHoistsOnlyTheSplitArgument(t *testing.T) {
	ret := &ast.Return{Value: &ast.Call{
		Func: name("f"),
		Args: []ast.Expr{
			&ast.Call{Func: name("one")},
			&ast.Call{Func: name("checkpoint")},
			&ast.Call{Func: name("three")},
		},
	}}
	body := []ast.Stmt{ret}
	tag.RunBody(body, isCheckpointCall)

	out := Body(body, gensymFrom("tmp"))

	require.Len(t, out, 2)
	hoist, ok := out[0].(*ast.Assign)
	require.True(t, ok, "expected checkpoint()'s hoist assignment, got %T", out[0])
	hoistCall, ok := hoist.Value.(*ast.Call)
	require.True(t, ok)
	hoistFn, ok := hoistCall.Func.(*ast.Name)
	require.True(t, ok)
	assert.Equal(t, "checkpoint", hoistFn.ID)

	final, ok := out[1].(*ast.Return)
	require.True(t, ok)
	call, ok := final.Value.(*ast.Call)
	require.True(t, ok)
	require.Len(t, call.Args, 3)
	oneCall, ok := call.Args[0].(*ast.Call)
	require.True(t, ok, "expected one() left untouched, got %T", call.Args[0])
	assert.Equal(t, "one", oneCall.Func.(*ast.Name).ID)
	_, middleIsName := call.Args[1].(*ast.Name)
	assert.True(t, middleIsName, "expected checkpoint()'s slot replaced by the hoisted tmp name")
	threeCall, ok := call.Args[2].(*ast.Call)
	require.True(t, ok, "expected three() left untouched, got %T", call.Args[2])
	assert.Equal(t, "three", threeCall.Func.(*ast.Name).ID)
}

// test_expr_compare: one() < checkpoint() — only the comparator reaching
// the split point is hoisted; Left, having no split in its own subtree,
// stays untouched (spec.md §4.4's single-comparator subset).
func TestBodyHoistsOnlyTheSplitComparator(t *testing.T) {
	ret := &ast.Return{Value: &ast.Compare{
		Left:        &ast.Call{Func: name("one")},
		Ops:         []string{ast.OpLt},
		Comparators: []ast.Expr{&ast.Call{Func: name("checkpoint")}},
	}}
	body := []ast.Stmt{ret}
	tag.RunBody(body, isCheckpointCall)

	out := Body(body, gensymFrom("tmp"))

	require.Len(t, out, 2)
	_, ok := out[0].(*ast.Assign)
	assert.True(t, ok)
	final, ok := out[1].(*ast.Return)
	require.True(t, ok)
	cmp, ok := final.Value.(*ast.Compare)
	require.True(t, ok)
	leftCall, ok := cmp.Left.(*ast.Call)
	require.True(t, ok, "expected Left (no split reachable) left untouched, got %T", cmp.Left)
	assert.Equal(t, "one", leftCall.Func.(*ast.Name).ID)
	_, comparatorIsName := cmp.Comparators[0].(*ast.Name)
	assert.True(t, comparatorIsName)
}

// test_for_transform: a For whose body contains checkpoint() is lowered
// into the iter/next/__STOP__ idiom (spec.md §4.4), an `__it = iter(...)`
// assignment followed by a While built from the iteration protocol.
func TestForStmtLowersIntoIterNextIdiom(t *testing.T) {
	forLoop := &ast.For{
		Target: &ast.Name{ID: "i", Ctx: ast.Store},
		Iter:   &ast.Call{Func: name("range"), Args: []ast.Expr{&ast.Constant{Value: int64(10)}}},
		Body: []ast.Stmt{
			&ast.ExprStmt{Value: &ast.Call{Func: name("checkpoint")}},
			&ast.AugAssign{Target: &ast.Name{ID: "rval", Ctx: ast.Store}, Op: "+", Value: name("i")},
		},
	}
	body := []ast.Stmt{
		&ast.Assign{Targets: []*ast.Name{{ID: "rval", Ctx: ast.Store}}, Value: &ast.Constant{Value: int64(0)}},
		forLoop,
		&ast.Return{Value: name("rval")},
	}
	tag.RunBody(body, isCheckpointCall)
	require.False(t, forLoop.Meta().Ignore, "a For containing checkpoint() must not be tagged Ignore")

	out := Body(body, gensymFrom("tmp"))

	require.GreaterOrEqual(t, len(out), 3)
	assignIt, ok := out[1].(*ast.Assign)
	require.True(t, ok, "expected the iterator assignment right after rval=0, got %T", out[1])
	call, ok := assignIt.Value.(*ast.Call)
	require.True(t, ok)
	fn, ok := call.Func.(*ast.Name)
	require.True(t, ok)
	assert.Equal(t, "iter", fn.ID)

	rest := out[2:]
	foundWhile := false
	for _, s := range rest {
		if containsName(s, "next") {
			foundWhile = true
		}
	}
	assert.True(t, foundWhile, "expected the lowered While's test to reference next(...) somewhere in %v", rest)
}

// A For with no split point reachable in its body is left untouched.
func TestForStmtIgnoredLoopIsUntouched(t *testing.T) {
	forLoop := &ast.For{
		Target: &ast.Name{ID: "i", Ctx: ast.Store},
		Iter:   &ast.Call{Func: name("range"), Args: []ast.Expr{&ast.Constant{Value: int64(10)}}},
		Body:   []ast.Stmt{&ast.AugAssign{Target: &ast.Name{ID: "rval", Ctx: ast.Store}, Op: "+", Value: name("i")}},
	}
	body := []ast.Stmt{forLoop}
	tag.RunBody(body, isCheckpointCall)
	require.True(t, forLoop.Meta().Ignore)

	out := forStmt(forLoop, gensymFrom("tmp"))

	require.Len(t, out, 1)
	assert.Same(t, forLoop, out[0])
}

// test_with_transform: a With whose body contains checkpoint() is
// lowered into an explicit __enter__ call, a Try whose handler calls
// __exit__ with the caught exception's kind/message and re-raises, and
// an Orelse that calls __exit__ with empty kind/message on a clean exit
// (spec.md §4.4, grounded directly on the original's with-lowering
// idiom).
func TestWithStmtLowersIntoEnterTryExitIdiom(t *testing.T) {
	withStmtNode := &ast.With{
		Items: []*ast.WithItem{{ContextExpr: &ast.Call{Func: name("open")}, OptionalVar: "filou"}},
		Body:  []ast.Stmt{&ast.ExprStmt{Value: &ast.Call{Func: name("checkpoint")}}},
	}
	body := []ast.Stmt{withStmtNode, &ast.Return{Value: &ast.Constant{Value: true}}}
	tag.RunBody(body, isCheckpointCall)
	require.False(t, withStmtNode.Meta().Ignore)

	out := Body(body, gensymFrom("tmp"))

	require.GreaterOrEqual(t, len(out), 3)
	assignMgr, ok := out[0].(*ast.Assign)
	require.True(t, ok)
	_, isCall := assignMgr.Value.(*ast.Call)
	assert.True(t, isCall)

	enterAssign, ok := out[1].(*ast.Assign)
	require.True(t, ok)
	require.Len(t, enterAssign.Targets, 1)
	assert.Equal(t, "filou", enterAssign.Targets[0].ID)
	enterCall, ok := enterAssign.Value.(*ast.Call)
	require.True(t, ok)
	attr, ok := enterCall.Func.(*ast.Attribute)
	require.True(t, ok)
	assert.Equal(t, "__enter__", attr.Attr)

	tryNode, ok := out[2].(*ast.Try)
	require.True(t, ok, "expected a Try, got %T", out[2])
	require.Len(t, tryNode.Handlers, 1)
	handlerType, ok := tryNode.Handlers[0].Type.(*ast.Name)
	require.True(t, ok)
	assert.Equal(t, "BaseException", handlerType.ID)
	assert.True(t, containsName(tryNode.Handlers[0], "__exit__") || containsExitAttr(tryNode.Handlers[0]))
}

func containsExitAttr(n ast.Node) bool {
	if n == nil {
		return false
	}
	if a, ok := n.(*ast.Attribute); ok && a.Attr == "__exit__" {
		return true
	}
	for _, c := range ast.Children(n) {
		if containsExitAttr(c) {
			return true
		}
	}
	return false
}

// A With with no split point reachable in its body is left untouched.
func TestWithStmtIgnoredIsUntouched(t *testing.T) {
	withStmtNode := &ast.With{
		Items: []*ast.WithItem{{ContextExpr: &ast.Call{Func: name("open")}, OptionalVar: "filou"}},
		Body:  []ast.Stmt{&ast.ExprStmt{Value: &ast.Call{Func: name("write")}}},
	}
	body := []ast.Stmt{withStmtNode}
	tag.RunBody(body, isCheckpointCall)
	require.True(t, withStmtNode.Meta().Ignore)

	out := withStmt(withStmtNode, gensymFrom("tmp"))

	require.Len(t, out, 1)
	assert.Same(t, withStmtNode, out[0])
}
