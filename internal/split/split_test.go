package split

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funvibe/funcps/internal/ast"
	"github.com/funvibe/funcps/internal/strategy"
)

func name(id string) *ast.Name  { return &ast.Name{ID: id, Ctx: ast.Load} }
func store(id string) *ast.Name { return &ast.Name{ID: id, Ctx: ast.Store} }

func isSplitWithMarkers(strat strategy.Strategy) func(ast.Node) bool {
	return func(n ast.Node) bool {
		e, ok := n.(ast.Expr)
		return ok && strat.IsSplit(e, nil)
	}
}

// A body with no split point produces a single continuation (the entry
// itself), grounded on _examples/original_source/tests/test_split.py's
// baseline expectation that splitting is a no-op absent any checkpoint.
func TestFuncNoSplitPointProducesOneContinuation(t *testing.T) {
	fn := &ast.FunctionDef{
		Name: "plain",
		Args: ast.Arguments{Args: []string{"x"}},
		Body: []ast.Stmt{&ast.Return{Value: name("x")}},
	}
	strat := strategy.NewDefault("checkpoint")
	result, errs := Func(fn, strat, isSplitWithMarkers(strat), false)

	require.Empty(t, errs)
	require.Len(t, result.Continuations, 1)
	assert.Equal(t, result.EntryName, result.Continuations[0].Name)
}

// Adapted from test_splitter_in_expr: w = checkpoint(x); return w — a
// split as an assignment's value cuts the body into two continuations,
// the entry ending in the suspension and the remainder receiving the
// split's result as w.
func TestFuncSplitInsideExpressionCutsTwoContinuations(t *testing.T) {
	fn := &ast.FunctionDef{
		Name: "in_expr",
		Args: ast.Arguments{Args: []string{"x"}},
		Body: []ast.Stmt{
			&ast.Assign{Targets: []*ast.Name{store("w")}, Value: &ast.Call{Func: name("checkpoint"), Args: []ast.Expr{name("x")}}},
			&ast.Return{Value: name("w")},
		},
	}
	strat := strategy.NewDefault("checkpoint")
	result, errs := Func(fn, strat, isSplitWithMarkers(strat), false)

	require.Empty(t, errs)
	assert.Len(t, result.Continuations, 2)
}

// test_splitter_in_while: a checkpoint() inside a While body cuts the
// loop into its own continuation (distinct from the entry and the
// after-loop continuation), and the checkpoint() call itself cuts a
// further continuation for the AugAssign that follows it inside the
// loop body, via the same cut() used for an expression split anywhere
// else — four continuations total: entry, after-loop, the loop header,
// and the post-checkpoint remainder of the loop body.
func TestFuncSplitInsideWhileCutsFourContinuations(t *testing.T) {
	fn := &ast.FunctionDef{
		Name: "in_while",
		Args: ast.Arguments{Args: []string{"xs"}},
		Body: []ast.Stmt{
			&ast.Assign{Targets: []*ast.Name{store("val")}, Value: &ast.Constant{Value: int64(0)}},
			&ast.While{
				Test: name("xs"),
				Body: []ast.Stmt{
					&ast.ExprStmt{Value: &ast.Call{Func: name("checkpoint"), Args: []ast.Expr{}}},
					&ast.AugAssign{Target: store("val"), Op: "+", Value: &ast.Call{Func: &ast.Attribute{Value: name("xs"), Attr: "pop"}}},
				},
			},
			&ast.Return{Value: name("val")},
		},
	}
	strat := strategy.NewDefault("checkpoint")
	result, errs := Func(fn, strat, isSplitWithMarkers(strat), false)

	require.Empty(t, errs)
	assert.Len(t, result.Continuations, 4)
}

// Duplicate continuation names are reported as errors rather than
// silently overwriting one another's body — State.register's guard.
func TestStateRegisterRejectsDuplicateNames(t *testing.T) {
	st := newState("f", strategy.NewDefault())
	st.register(&ast.FunctionDef{Name: "dup", Body: nil})
	st.register(&ast.FunctionDef{Name: "dup", Body: nil})

	assert.Len(t, st.errs, 1)
	assert.Len(t, st.order, 1)
}

// createContinuation never threads resultParam itself back as a live-in
// parameter, even when stmts references it by name (DESIGN.md Open
// Question decision #8): the binding always comes from the trailing
// slot, never the enclosing scope.
func TestCreateContinuationExcludesResultParamFromLiveIn(t *testing.T) {
	st := newState("f", strategy.NewDefault())
	stmts := []ast.Stmt{&ast.Return{Value: &ast.BinOp{Left: name("r"), Op: "*", Right: name("other")}}}

	ref := st.createContinuation(nil, stmts, "r", nil)

	fn := st.defs[ref.Name]
	require.NotNil(t, fn)
	assert.Contains(t, fn.Args.Args, "other")
	assert.Contains(t, fn.Args.Args, "r")
	assert.Equal(t, "r", fn.Args.Args[len(fn.Args.Args)-1], "resultParam must be the trailing parameter")
	for _, a := range ref.Args {
		assert.NotEqual(t, "r", a.(*ast.Name).ID, "resultParam must not appear in the saturated call's own args")
	}
}

// tryStmt's try-model always catches BaseException rather than the
// handler's declared type, dispatching on exc.kind inside the generated
// body instead (DESIGN.md decision 11) — the fix for finally not running
// when the raised exception's kind doesn't match the except clause.
func TestTryStmtModelCatchesBaseExceptionAndDispatchesOnKind(t *testing.T) {
	fn := &ast.FunctionDef{
		Name: "guarded",
		Args: ast.Arguments{Args: []string{"n", "d"}},
		Body: []ast.Stmt{
			&ast.Try{
				Body: []ast.Stmt{
					&ast.ExprStmt{Value: &ast.Call{Func: name("checkpoint"), Args: []ast.Expr{name("n")}}},
					&ast.Return{Value: &ast.BinOp{Left: name("n"), Op: "/", Right: name("d")}},
				},
				Handlers: []*ast.ExceptHandler{{
					Type: &ast.Name{ID: "ZeroDivisionError", Ctx: ast.Load},
					Body: []ast.Stmt{&ast.Return{Value: &ast.Constant{Value: int64(-1)}}},
				}},
				FinalBody: []ast.Stmt{&ast.ExprStmt{Value: &ast.Call{Func: name("mark"), Args: []ast.Expr{&ast.Constant{Value: "fin"}}}}},
			},
		},
	}
	strat := strategy.NewDefault("checkpoint", "mark")
	result, errs := Func(fn, strat, isSplitWithMarkers(strat), false)
	require.Empty(t, errs)

	var tryModel *ast.ExceptHandler
	for _, cont := range result.Continuations {
		for _, s := range cont.Body {
			if tr, ok := s.(*ast.Try); ok && len(tr.Handlers) == 1 {
				tryModel = tr.Handlers[0]
			}
		}
	}
	require.NotNil(t, tryModel, "expected a synthetic try-model among the generated continuations")
	typeName, ok := tryModel.Type.(*ast.Name)
	require.True(t, ok)
	assert.Equal(t, "BaseException", typeName.ID, "the try-model must catch everything, not just the declared except type")

	// The kind dispatch (if exc.kind == "ZeroDivisionError": ... else:
	// reraise) must appear somewhere in the handler body.
	foundKindCheck := false
	var walk func(ast.Node)
	walk = func(n ast.Node) {
		if n == nil {
			return
		}
		if cmp, ok := n.(*ast.Compare); ok {
			if attr, ok := cmp.Left.(*ast.Attribute); ok && attr.Attr == "kind" {
				foundKindCheck = true
			}
		}
		for _, c := range ast.Children(n) {
			walk(c)
		}
	}
	for _, s := range tryModel.Body {
		walk(s)
	}
	assert.True(t, foundKindCheck, "expected an exc.kind comparison dispatching the declared except type")
}

// A bare `except BaseException` (or `except:`) handler needs no kind
// dispatch at all — it already matches everything, so tryStmt must not
// wrap it in a redundant comparison.
func TestTryStmtBaseExceptionHandlerSkipsKindDispatch(t *testing.T) {
	fn := &ast.FunctionDef{
		Name: "catch_all",
		Body: []ast.Stmt{
			&ast.Try{
				Body: []ast.Stmt{&ast.ExprStmt{Value: &ast.Call{Func: name("checkpoint")}}},
				Handlers: []*ast.ExceptHandler{{
					Type: &ast.Name{ID: "BaseException", Ctx: ast.Load},
					Name: "e",
					Body: []ast.Stmt{&ast.Return{Value: &ast.Constant{Value: nil}}},
				}},
			},
		},
	}
	strat := strategy.NewDefault("checkpoint")
	result, errs := Func(fn, strat, isSplitWithMarkers(strat), false)
	require.Empty(t, errs)

	var tryModel *ast.ExceptHandler
	for _, cont := range result.Continuations {
		for _, s := range cont.Body {
			if tr, ok := s.(*ast.Try); ok && len(tr.Handlers) == 1 {
				tryModel = tr.Handlers[0]
			}
		}
	}
	require.NotNil(t, tryModel)
	for _, s := range tryModel.Body {
		_, isIf := s.(*ast.If)
		assert.False(t, isIf, "a bare BaseException handler needs no kind-dispatch wrapper")
	}
}
