// Package simplify lowers a function body into A-normal form wherever a
// split point is reachable, grounded on
// _examples/original_source/src/funbites/simplify.py's Simplify class:
// every expression that could contain a split point is hoisted into its
// own `tmp = expr` assignment so the body splitter (internal/split) only
// ever has to cut between statements, never inside one.
//
// It must run after internal/tag.Run has set Meta().Ignore, and its
// output must be re-tagged before internal/split runs, since lowering
// manufactures new statements (spec.md §4.5: "Tag -> Simplify -> Tag ->
// Split").
package simplify

import "github.com/funvibe/funcps/internal/ast"

// Gensym returns a fresh, never-before-used identifier on each call.
type Gensym func() string

// Body simplifies an entire statement list.
func Body(body []ast.Stmt, gensym Gensym) []ast.Stmt {
	out := make([]ast.Stmt, 0, len(body))
	for _, s := range body {
		out = append(out, stmt(s, gensym)...)
	}
	return out
}

func stmt(s ast.Stmt, gensym Gensym) []ast.Stmt {
	if s.Meta().Ignore {
		return []ast.Stmt{s}
	}
	switch x := s.(type) {
	case *ast.If:
		var acc []ast.Stmt
		test := top(x.Test, &acc, gensym)
		acc = append(acc, &ast.If{Test: test, Body: Body(x.Body, gensym), Orelse: Body(x.Orelse, gensym)})
		return acc

	case *ast.While:
		// The test is re-evaluated every iteration, so it cannot be
		// hoisted ahead of the loop — only the loop's own recursion
		// into Body is simplified here; the body splitter is what
		// actually turns a non-ignored While into a cut-and-recurse
		// continuation (spec.md §4.5). If the test itself contains a
		// split, rewrite to `while True: if not test: break` so the
		// split in the test becomes an ordinary statement inside Body.
		if !x.Test.Meta().Ignore {
			var acc []ast.Stmt
			test := top(x.Test, &acc, gensym)
			guard := &ast.If{
				Test:   &ast.UnaryOp{Op: "not", Operand: test},
				Body:   []ast.Stmt{&ast.Break{}},
				Orelse: nil,
			}
			newBody := append(append([]ast.Stmt{}, acc...), guard)
			newBody = append(newBody, Body(x.Body, gensym)...)
			return []ast.Stmt{&ast.While{Test: &ast.Constant{Value: true}, Body: newBody}}
		}
		return []ast.Stmt{&ast.While{Test: x.Test, Body: Body(x.Body, gensym)}}

	case *ast.For:
		return forStmt(x, gensym)

	case *ast.Try:
		if len(x.Handlers) > 1 {
			// funcps carries forward only the single-handler subset the
			// splitter supports (spec.md Non-goals: "no nested try");
			// multi-handler Try is accepted here unlowered, simplified
			// handler-by-handler like a single-handler Try.
		}
		handlers := make([]*ast.ExceptHandler, len(x.Handlers))
		for i, h := range x.Handlers {
			handlers[i] = &ast.ExceptHandler{Type: h.Type, Name: h.Name, Body: Body(h.Body, gensym)}
		}
		return []ast.Stmt{&ast.Try{
			Body:      Body(x.Body, gensym),
			Handlers:  handlers,
			Orelse:    Body(x.Orelse, gensym),
			FinalBody: Body(x.FinalBody, gensym),
		}}

	case *ast.With:
		return withStmt(x, gensym)

	case *ast.Return:
		var acc []ast.Stmt
		var v ast.Expr
		if x.Value != nil {
			v = top(x.Value, &acc, gensym)
		}
		acc = append(acc, &ast.Return{Value: v})
		return acc

	case *ast.Assign:
		var acc []ast.Stmt
		v := top(x.Value, &acc, gensym)
		acc = append(acc, &ast.Assign{Targets: x.Targets, Value: v})
		return acc

	case *ast.AugAssign:
		var acc []ast.Stmt
		v := top(x.Value, &acc, gensym)
		acc = append(acc, &ast.AugAssign{Target: x.Target, Op: x.Op, Value: v})
		return acc

	case *ast.ExprStmt:
		var acc []ast.Stmt
		v := top(x.Value, &acc, gensym)
		acc = append(acc, &ast.ExprStmt{Value: v})
		return acc

	case *ast.Raise:
		var acc []ast.Stmt
		var v ast.Expr
		if x.Exc != nil {
			v = top(x.Exc, &acc, gensym)
		}
		acc = append(acc, &ast.Raise{Exc: v})
		return acc

	case *ast.FunctionDef:
		// Nested FunctionDefs recurse into their own body without
		// hoisting anything into the enclosing statement list — a
		// split inside a nested function belongs to that function's own
		// (separate) compilation, not to the outer one.
		return []ast.Stmt{&ast.FunctionDef{Name: x.Name, Args: x.Args, Body: Body(x.Body, gensym)}}

	case *ast.Break, *ast.Continue, *ast.Global, *ast.Nonlocal:
		return []ast.Stmt{s}

	default:
		return []ast.Stmt{s}
	}
}

// top simplifies an expression that already sits in a valid statement
// slot (an If/While test, a Return/Assign/AugAssign/Raise value, an
// ExprStmt value): it never hoists the expression itself, only the
// non-atomic pieces nested inside it, via nested.
func top(e ast.Expr, acc *[]ast.Stmt, gensym Gensym) ast.Expr {
	if e == nil || e.Meta().Ignore {
		return e
	}
	return rebuild(e, acc, gensym, false)
}

// nested simplifies an expression that is itself embedded inside a
// larger expression: once its own children are simplified, it is hoisted
// into a fresh `tmp = expr` assignment and replaced by a reference to
// tmp, unless it is already atomic (Name/Constant) or unreachable by a
// split (Ignore).
func nested(e ast.Expr, acc *[]ast.Stmt, gensym Gensym) ast.Expr {
	if e == nil || e.Meta().Ignore {
		return e
	}
	switch e.(type) {
	case *ast.Name, *ast.Constant:
		return e
	}
	return rebuild(e, acc, gensym, true)
}

// rebuild simplifies e's children via nested, then — if hoist is true —
// assigns the rebuilt expression to a fresh temporary and returns a
// reference to it.
func rebuild(e ast.Expr, acc *[]ast.Stmt, gensym Gensym, hoist bool) ast.Expr {
	var out ast.Expr
	switch x := e.(type) {
	case *ast.Call:
		out = &ast.Call{
			Func:     nested(x.Func, acc, gensym),
			Args:     nestedList(x.Args, acc, gensym),
			Keywords: nestedKeywords(x.Keywords, acc, gensym),
		}
	case *ast.Yield:
		var v ast.Expr
		if x.Value != nil {
			v = nested(x.Value, acc, gensym)
		}
		out = &ast.Yield{Value: v}
	case *ast.Compare:
		// Comparators-only hoisting (spec.md §4.4): in the subset this
		// compiler accepts, a Compare has exactly one comparator, which
		// makes hoisting Left the same operation as hoisting a
		// comparator; Left is simplified identically for uniformity.
		out = &ast.Compare{
			Left:        nested(x.Left, acc, gensym),
			Ops:         x.Ops,
			Comparators: nestedList(x.Comparators, acc, gensym),
		}
	case *ast.NamedExpr:
		out = &ast.NamedExpr{Target: x.Target, Value: nested(x.Value, acc, gensym)}
	case *ast.BinOp:
		out = &ast.BinOp{Left: nested(x.Left, acc, gensym), Op: x.Op, Right: nested(x.Right, acc, gensym)}
	case *ast.UnaryOp:
		out = &ast.UnaryOp{Op: x.Op, Operand: nested(x.Operand, acc, gensym)}
	case *ast.Attribute:
		out = &ast.Attribute{Value: nested(x.Value, acc, gensym), Attr: x.Attr}
	default:
		out = e
	}
	if !hoist {
		return out
	}
	tmp := gensym()
	*acc = append(*acc, &ast.Assign{Targets: []*ast.Name{{ID: tmp, Ctx: ast.Store}}, Value: out})
	return &ast.Name{ID: tmp, Ctx: ast.Load}
}

func nestedList(es []ast.Expr, acc *[]ast.Stmt, gensym Gensym) []ast.Expr {
	out := make([]ast.Expr, len(es))
	for i, e := range es {
		out[i] = nested(e, acc, gensym)
	}
	return out
}

func nestedKeywords(ks []ast.Keyword, acc *[]ast.Stmt, gensym Gensym) []ast.Keyword {
	out := make([]ast.Keyword, len(ks))
	for i, k := range ks {
		out[i] = ast.Keyword{Name: k.Name, Value: nested(k.Value, acc, gensym)}
	}
	return out
}
