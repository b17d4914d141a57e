package vars

import (
	"fmt"

	"github.com/funvibe/funcps/internal/ast"
)

// Analyze computes the Variables record for a statement list evaluated in
// an existing scope context (BodySplitter.create_continuation's
// VariableAnalysis.run(q, context=...) call).
func Analyze(body []ast.Stmt, context *Variables) *Variables {
	for _, s := range body {
		analyzeStmt(s, context)
	}
	return context
}

// Inner analyses a FunctionDef as a fresh scope: every parameter is
// registered as an argument definition before the body is walked
// (spec.md §4.2, "the inner entry point first registers every ...
// parameter as an arg_def, then analyses the body").
func Inner(fn *ast.FunctionDef, context *Variables) *Variables {
	for _, a := range fn.Args.Args {
		context.DefineArgument(a)
	}
	for _, a := range fn.Args.KwOnlyArgs {
		context.DefineArgument(a)
	}
	if fn.Args.Vararg != "" {
		context.DefineArgument(fn.Args.Vararg)
	}
	if fn.Args.Kwarg != "" {
		context.DefineArgument(fn.Args.Kwarg)
	}
	return Analyze(fn.Body, context)
}

func analyzeStmt(s ast.Stmt, ctx *Variables) {
	switch x := s.(type) {
	case *ast.FunctionDef:
		analyzeNestedFunctionDef(x, ctx)
	case *ast.If:
		analyzeExpr(x.Test, ctx)
		Analyze(x.Body, ctx)
		Analyze(x.Orelse, ctx)
	case *ast.While:
		analyzeExpr(x.Test, ctx)
		Analyze(x.Body, ctx)
	case *ast.For:
		analyzeExpr(x.Target, ctx)
		analyzeExpr(x.Iter, ctx)
		Analyze(x.Body, ctx)
	case *ast.Try:
		Analyze(x.Body, ctx)
		for _, h := range x.Handlers {
			if h.Type != nil {
				analyzeExpr(h.Type, ctx)
			}
			if h.Name != "" {
				ctx.Define(h.Name)
				ctx.Use(h.Name)
			}
			Analyze(h.Body, ctx)
		}
		Analyze(x.Orelse, ctx)
		Analyze(x.FinalBody, ctx)
	case *ast.With:
		for _, it := range x.Items {
			analyzeExpr(it.ContextExpr, ctx)
			if it.OptionalVar != "" {
				ctx.Define(it.OptionalVar)
				ctx.Use(it.OptionalVar)
			}
		}
		Analyze(x.Body, ctx)
	case *ast.Return:
		// Every Return ultimately forwards its value through the
		// function's continuation parameter (internal/interp), even a
		// bare `return` — so any continuation a Return survives into
		// must receive "continuation" as a live-in, exactly like any
		// other free variable it mentions.
		ctx.Use("continuation")
		if x.Value != nil {
			analyzeExpr(x.Value, ctx)
		}
	case *ast.Break, *ast.Continue:
		// no names
	case *ast.Assign:
		analyzeExpr(x.Value, ctx)
		for _, t := range x.Targets {
			analyzeExpr(t, ctx)
		}
	case *ast.AugAssign:
		analyzeExpr(x.Value, ctx)
		analyzeExpr(x.Target, ctx)
	case *ast.ExprStmt:
		analyzeExpr(x.Value, ctx)
	case *ast.Raise:
		if x.Exc != nil {
			analyzeExpr(x.Exc, ctx)
		}
	case *ast.Global:
		for _, n := range x.Names {
			ctx.DeclareGlobal(n)
		}
	case *ast.Nonlocal:
		for _, n := range x.Names {
			ctx.DeclareNonlocal(n)
		}
	default:
		panic(fmt.Sprintf("vars: unsupported statement %T", s))
	}
}

func analyzeExpr(e ast.Expr, ctx *Variables) {
	switch x := e.(type) {
	case *ast.Name:
		switch x.Ctx {
		case ast.Load:
			ctx.Use(x.ID)
		case ast.Store:
			ctx.Define(x.ID)
			ctx.Use(x.ID)
		default:
			panic(fmt.Sprintf("vars: unsupported name context for %q", x.ID))
		}
	case *ast.Constant:
		// no names
	case *ast.Call:
		analyzeExpr(x.Func, ctx)
		for _, a := range x.Args {
			analyzeExpr(a, ctx)
		}
		for _, k := range x.Keywords {
			analyzeExpr(k.Value, ctx)
		}
	case *ast.Yield:
		if x.Value != nil {
			analyzeExpr(x.Value, ctx)
		}
	case *ast.Compare:
		analyzeExpr(x.Left, ctx)
		for _, c := range x.Comparators {
			analyzeExpr(c, ctx)
		}
	case *ast.NamedExpr:
		analyzeExpr(x.Value, ctx)
		analyzeExpr(x.Target, ctx)
	case *ast.BinOp:
		analyzeExpr(x.Left, ctx)
		analyzeExpr(x.Right, ctx)
	case *ast.UnaryOp:
		analyzeExpr(x.Operand, ctx)
	case *ast.Attribute:
		analyzeExpr(x.Value, ctx)
	case *ast.ContinuationRef:
		for _, a := range x.Args {
			analyzeExpr(a, ctx)
		}
	case *ast.SuspendCall:
		// Callee names a split marker, not a variable; the continuation,
		// arguments and keywords are analysed as one ordinary call.
		analyzeExpr(&ast.Call{Func: x.Continuation, Args: x.Args, Keywords: x.Keywords}, ctx)
	case *ast.SuspendYield:
		analyzeExpr(&ast.Yield{Value: x.Value}, ctx)
		analyzeExpr(x.Continuation, ctx)
	default:
		panic(fmt.Sprintf("vars: unsupported expression %T", e))
	}
}

// analyzeNestedFunctionDef implements spec.md §4.2's nested-FunctionDef
// rule: the inner scope is analysed independently, then every name the
// inner scope left free is either propagated as a use in the outer scope,
// or (if the inner function declared it global) promoted straight to the
// outer scope's own free-use set.
func analyzeNestedFunctionDef(fn *ast.FunctionDef, ctx *Variables) {
	ctx.Define(fn.Name)
	inner := Inner(fn, New())
	for _, d := range fn.Args.Defaults {
		if d != nil {
			analyzeExpr(d, ctx)
		}
	}
	for _, d := range fn.Args.KwDefaults {
		if d != nil {
			analyzeExpr(d, ctx)
		}
	}
	for v := range inner.UsesFree {
		if has(inner.Globals, v) {
			ctx.UsesFree[v] = struct{}{}
		} else {
			ctx.Use(v)
		}
	}
}
