package simplify

import "github.com/funvibe/funcps/internal/ast"

// stopSentinelName is the identifier the interpreter's global scope binds
// to value.StopValue, shared between the For-loop lowering below and the
// builtin `iter`/`next` functions internal/interp implements.
const stopSentinelName = "__STOP__"

// forStmt lowers a For whose body contains a split point into the
// iterator/next/while idiom spec.md §4.4 describes:
//
//	__it = iter(ITER)
//	while (TARGET := next(__it, __STOP__)) is not __STOP__:
//	    BODY
//
// A For with no split reachable in its body is left untouched — the
// interpreter executes it directly — since rewriting it would only add
// indirection with no benefit to the splitter.
func forStmt(x *ast.For, gensym Gensym) []ast.Stmt {
	if x.Meta().Ignore {
		return []ast.Stmt{x}
	}
	itName := gensym()
	assignIt := &ast.Assign{
		Targets: []*ast.Name{{ID: itName, Ctx: ast.Store}},
		Value:   &ast.Call{Func: &ast.Name{ID: "iter", Ctx: ast.Load}, Args: []ast.Expr{x.Iter}},
	}
	nextCall := &ast.Call{
		Func: &ast.Name{ID: "next", Ctx: ast.Load},
		Args: []ast.Expr{
			&ast.Name{ID: itName, Ctx: ast.Load},
			&ast.Name{ID: stopSentinelName, Ctx: ast.Load},
		},
	}
	test := &ast.Compare{
		Left:        &ast.NamedExpr{Target: x.Target, Value: nextCall},
		Ops:         []string{ast.OpIsNot},
		Comparators: []ast.Expr{&ast.Name{ID: stopSentinelName, Ctx: ast.Load}},
	}
	loop := &ast.While{Test: test, Body: x.Body}
	// The freshly synthesised assignIt/loop nodes have zero-value Meta
	// (Ignore=false) until the post-simplify Tag re-run sets it properly;
	// stmt() recurses into loop's Body via the normal While case, which
	// consults x.Test.Meta().Ignore — untagged means "assume it can
	// split", which is always safe (it just means an extra, harmless
	// `while True` guard wrapping; the re-tag pass before Split corrects
	// this before it matters).
	out := make([]ast.Stmt, 0, 2)
	out = append(out, assignIt)
	out = append(out, stmt(loop, gensym)...)
	return out
}

// withStmt lowers a With whose body contains a split point into the
// __enter__/Try/__exit__ idiom spec.md §4.4 describes. A With with no
// split reachable in its body is left untouched — the interpreter
// executes it directly.
//
// funcps supports a single context-manager item per With (the splitter's
// continuation-threading model does not extend to the multi-item form);
// this is a deliberate narrowing from the original's arbitrary item list,
// recorded in DESIGN.md.
func withStmt(x *ast.With, gensym Gensym) []ast.Stmt {
	if x.Meta().Ignore {
		return []ast.Stmt{x}
	}
	item := x.Items[0]
	mgrName := gensym()
	mgr := &ast.Name{ID: mgrName, Ctx: ast.Load}
	assignMgr := &ast.Assign{
		Targets: []*ast.Name{{ID: mgrName, Ctx: ast.Store}},
		Value:   item.ContextExpr,
	}
	enterCall := &ast.Call{Func: &ast.Attribute{Value: mgr, Attr: "__enter__"}}
	var enterStmt ast.Stmt
	if item.OptionalVar != "" {
		enterStmt = &ast.Assign{Targets: []*ast.Name{{ID: item.OptionalVar, Ctx: ast.Store}}, Value: enterCall}
	} else {
		enterStmt = &ast.ExprStmt{Value: enterCall}
	}
	excName := gensym()
	excVal := &ast.Name{ID: excName, Ctx: ast.Load}
	exitWith := func(kind, message ast.Expr) ast.Stmt {
		return &ast.ExprStmt{Value: &ast.Call{
			Func: &ast.Attribute{Value: mgr, Attr: "__exit__"},
			Args: []ast.Expr{kind, message},
		}}
	}
	handler := &ast.ExceptHandler{
		Type: &ast.Name{ID: "BaseException", Ctx: ast.Load},
		Name: excName,
		Body: []ast.Stmt{
			exitWith(&ast.Attribute{Value: excVal, Attr: "kind"}, &ast.Attribute{Value: excVal, Attr: "message"}),
			&ast.Raise{Exc: nil},
		},
	}
	tryStmt := &ast.Try{
		Body:      x.Body,
		Handlers:  []*ast.ExceptHandler{handler},
		Orelse:    []ast.Stmt{exitWith(&ast.Constant{Value: ""}, &ast.Constant{Value: ""})},
		FinalBody: nil,
	}
	out := make([]ast.Stmt, 0, 3)
	out = append(out, assignMgr, enterStmt)
	out = append(out, stmt(tryStmt, gensym)...)
	return out
}
