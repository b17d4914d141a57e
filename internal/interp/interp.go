// Package interp evaluates the statement/expression trees internal/split
// produces: a flat map of named continuations, each an ordinary
// ast.FunctionDef body punctuated by SuspendCall/SuspendYield expressions.
// Its Program.Invoke has exactly the shape internal/runtime.Resolver
// expects, so a compiled function's trampoline (internal/runtime.Loop)
// can drive execution without importing interp itself (spec.md §4.7's
// injected-resolver design).
//
// Env is grounded on the teacher's internal/evaluator/environment.go
// Get/Set pattern, simplified to a single flat scope per continuation
// invocation rather than an outer-chained stack: since internal/split
// already turns every free variable a continuation touches into an
// explicit parameter (spec.md §4.2's live-in analysis), no continuation
// ever needs to fall through to an enclosing lexical scope.
package interp

import (
	"fmt"

	"github.com/funvibe/funcps/internal/ast"
	"github.com/funvibe/funcps/internal/runtime"
	"github.com/funvibe/funcps/internal/value"
)

// Env is the flat variable scope one continuation invocation executes in.
type Env map[string]value.Object

func (e Env) mustGet(name string) value.Object {
	v, ok := e[name]
	if !ok {
		panic(fmt.Sprintf("interp: undefined name %q", name))
	}
	return v
}

// activeExceptionKey is the reserved binding a Try's handler installs in
// addition to its user-visible `as name`, so a bare `raise` (the With
// lowering's re-raise, spec.md §4.4) can recover the exception under
// protection regardless of what the handler happened to name it.
const activeExceptionKey = "__active_exception__"

// ContinuatorFunc is a split marker's runtime behaviour: given its call
// arguments and the (already-evaluated) continuation it would normally
// forward into, it decides what happens next — ordinarily
// value.Apply(continuation, args[0]), but see ImmediateReturn below.
type ContinuatorFunc func(args []value.Object, continuation value.Object) value.Object

// Passthrough is the default continuator backing "checkpoint"/"mark"
// style markers (spec.md §8 scenarios 1 and 3): it forwards its single
// argument into the continuation, unless that argument is an
// ImmediateReturn, in which case it unwraps and returns the wrapped
// value directly — bypassing every enclosing continuation, including the
// external driver, per spec.md §9's supplemented short-circuit feature.
// NewProgram registers it for every marker; internal/checkpoint persists
// from the driving loop and installs no continuator of its own.
func Passthrough(args []value.Object, continuation value.Object) value.Object {
	v := args[0]
	if ir, ok := v.(*value.ImmediateReturn); ok {
		return ir.Value
	}
	return value.Apply(continuation, v)
}

// Program is a compiled function: every continuation internal/split
// generated, plus the split-marker registry that gives each one runtime
// behaviour.
type Program struct {
	Continuations map[string]*ast.FunctionDef
	Continuators  map[string]ContinuatorFunc
}

// NewProgram builds a Program from split's output, registering defs under
// their own names and defaulting every marker name to Passthrough.
func NewProgram(defs []*ast.FunctionDef, markers ...string) *Program {
	p := &Program{
		Continuations: make(map[string]*ast.FunctionDef, len(defs)),
		Continuators:  make(map[string]ContinuatorFunc, len(markers)),
	}
	for _, d := range defs {
		p.Continuations[d.Name] = d
	}
	for _, m := range markers {
		p.Continuators[m] = Passthrough
	}
	return p
}

// Invoke runs the named continuation with args bound positionally to its
// parameter list, matching internal/runtime.Resolver's signature exactly.
func (p *Program) Invoke(name string, args []value.Object) value.Object {
	fn, ok := p.Continuations[name]
	if !ok {
		panic(fmt.Sprintf("interp: unknown continuation %q", name))
	}
	env := make(Env, len(fn.Args.Args))
	for i, pname := range fn.Args.Args {
		if i < len(args) {
			env[pname] = args[i]
		} else {
			env[pname] = value.NilValue
		}
	}
	v, c := p.execStmts(fn.Body, env)
	if c == ctrlReturn {
		return v
	}
	// Fell off the end without an explicit Return: Python's implicit
	// `return None`, forwarded through the continuation like any other.
	if cont, ok := env["continuation"]; ok {
		return value.Apply(cont, value.NilValue)
	}
	return value.NilValue
}

type ctrl int

const (
	ctrlNone ctrl = iota
	ctrlReturn
	ctrlBreak
	ctrlContinue
)

func (p *Program) execStmts(stmts []ast.Stmt, env Env) (value.Object, ctrl) {
	for _, s := range stmts {
		v, c := p.execStmt(s, env)
		if c != ctrlNone {
			return v, c
		}
	}
	return value.NilValue, ctrlNone
}

func (p *Program) execStmt(s ast.Stmt, env Env) (value.Object, ctrl) {
	switch x := s.(type) {
	case *ast.Assign:
		v := p.evalExpr(x.Value, env)
		for _, t := range x.Targets {
			env[t.ID] = v
		}
		return nil, ctrlNone

	case *ast.AugAssign:
		cur := env.mustGet(x.Target.ID)
		v := binOp(x.Op, cur, p.evalExpr(x.Value, env))
		env[x.Target.ID] = v
		return nil, ctrlNone

	case *ast.ExprStmt:
		p.evalExpr(x.Value, env)
		return nil, ctrlNone

	case *ast.Return:
		var ret value.Object = value.NilValue
		if x.Value != nil {
			ret = p.evalExpr(x.Value, env)
		}
		if x.Meta().NoTransform {
			// A splitter-synthesized Return (internal/split's tailReturn,
			// cut, and split-value Return rewrite): ret is already a
			// suspension whose continuation-application is baked into the
			// expression that produced it (Strategy.Transform/Default), so
			// handing it straight back is correct. Re-applying it through
			// env["continuation"] here would invoke that continuation a
			// second time for every intermediate continuation in the
			// chain instead of exactly once at the chain's end.
			return ret, ctrlReturn
		}
		cont := env.mustGet("continuation")
		return value.Apply(cont, ret), ctrlReturn

	case *ast.Break:
		return nil, ctrlBreak

	case *ast.Continue:
		return nil, ctrlContinue

	case *ast.If:
		if value.Truthy(p.evalExpr(x.Test, env)) {
			return p.execStmts(x.Body, env)
		}
		return p.execStmts(x.Orelse, env)

	case *ast.While:
		for value.Truthy(p.evalExpr(x.Test, env)) {
			v, c := p.execStmts(x.Body, env)
			switch c {
			case ctrlBreak:
				return nil, ctrlNone
			case ctrlReturn:
				return v, ctrlReturn
			}
		}
		return nil, ctrlNone

	case *ast.For:
		return p.execFor(x, env)

	case *ast.Try:
		return p.execTry(x, env)

	case *ast.With:
		return p.execWith(x, env)

	case *ast.Raise:
		if x.Exc == nil {
			exc, ok := env[activeExceptionKey]
			if !ok {
				panic(value.NewException("RuntimeError", "no active exception to re-raise"))
			}
			panic(exc)
		}
		v := p.evalExpr(x.Exc, env)
		if exc, ok := v.(*value.Exception); ok {
			panic(exc)
		}
		panic(value.NewException("Exception", v.Inspect()))

	case *ast.FunctionDef, *ast.Global, *ast.Nonlocal:
		return nil, ctrlNone

	default:
		panic(fmt.Sprintf("interp: unsupported statement %T", s))
	}
}

// execFor directly interprets a For the simplifier left untouched because
// its body contains no split (internal/simplify's forStmt; spec.md §4.4).
func (p *Program) execFor(x *ast.For, env Env) (value.Object, ctrl) {
	iterable := p.evalExpr(x.Iter, env)
	lst, ok := iterable.(*value.List)
	if !ok {
		panic(fmt.Sprintf("interp: for-loop over non-iterable %s", iterable.Type()))
	}
	for _, item := range append([]value.Object{}, lst.Elements...) {
		env[x.Target.ID] = item
		v, c := p.execStmts(x.Body, env)
		switch c {
		case ctrlBreak:
			return nil, ctrlNone
		case ctrlReturn:
			return v, ctrlReturn
		}
	}
	return nil, ctrlNone
}

// execTry runs a Try the simplifier/splitter left untouched (no split
// reachable): an ordinary Go panic/recover implements raise/except/else/
// finally directly, matching the try-model's own premise (spec.md §5)
// that synchronous panic/recover is sufficient within one continuation.
func (p *Program) execTry(x *ast.Try, env Env) (result value.Object, c ctrl) {
	// A re-panic from inside the recover's own deferred function would
	// unwind straight past the FinalBody call below, skipping it. pending
	// lets the handler-didn't-match case fall through to FinalBody first
	// and only re-panic once finally has actually run.
	var pending any
	func() {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			exc, ok := r.(*value.Exception)
			if !ok {
				pending = r
				return
			}
			if len(x.Handlers) == 0 || !typeMatches(x.Handlers[0].Type, exc) {
				pending = exc
				return
			}
			h := x.Handlers[0]
			if h.Name != "" {
				env[h.Name] = exc
			}
			env[activeExceptionKey] = exc
			result, c = p.execStmts(h.Body, env)
		}()
		result, c = p.execStmts(x.Body, env)
		if c == ctrlNone {
			result, c = p.execStmts(x.Orelse, env)
		}
	}()
	fv, fc := p.execStmts(x.FinalBody, env)
	if fc != ctrlNone {
		return fv, fc
	}
	if pending != nil {
		panic(pending)
	}
	return result, c
}

func typeMatches(typeExpr ast.Expr, exc *value.Exception) bool {
	if typeExpr == nil {
		return true
	}
	n, ok := typeExpr.(*ast.Name)
	if !ok {
		return false
	}
	return n.ID == "BaseException" || n.ID == exc.Kind
}

// execWith directly interprets a With the simplifier left untouched (no
// split reachable in its body): __enter__/__exit__ run around the body
// the same way the With-lowering's Try does for the split case, but
// without needing the lowering's exception-attribute plumbing since no
// suspension boundary crosses it.
func (p *Program) execWith(x *ast.With, env Env) (result value.Object, c ctrl) {
	item := x.Items[0]
	mgrObj := p.evalExpr(item.ContextExpr, env)
	mgr, ok := mgrObj.(value.ContextManager)
	if !ok {
		panic(fmt.Sprintf("interp: %s is not a context manager", mgrObj.Type()))
	}
	entered := mgr.Enter()
	if item.OptionalVar != "" {
		env[item.OptionalVar] = entered
	}
	defer func() {
		r := recover()
		if r == nil {
			mgr.Exit("", "")
			return
		}
		exc, ok := r.(*value.Exception)
		if !ok {
			panic(r)
		}
		mgr.Exit(exc.Kind, exc.Message)
		panic(exc)
	}()
	result, c = p.execStmts(x.Body, env)
	return result, c
}

func (p *Program) evalArgs(exprs []ast.Expr, env Env) []value.Object {
	out := make([]value.Object, len(exprs))
	for i, e := range exprs {
		out[i] = p.evalExpr(e, env)
	}
	return out
}

func (p *Program) evalExpr(e ast.Expr, env Env) value.Object {
	switch x := e.(type) {
	case *ast.Name:
		if g, ok := globals[x.ID]; ok {
			return g
		}
		return env.mustGet(x.ID)

	case *ast.Constant:
		return constant(x.Value)

	case *ast.NamedExpr:
		v := p.evalExpr(x.Value, env)
		env[x.Target.ID] = v
		return v

	case *ast.BinOp:
		return binOp(x.Op, p.evalExpr(x.Left, env), p.evalExpr(x.Right, env))

	case *ast.UnaryOp:
		return unaryOp(x.Op, p.evalExpr(x.Operand, env))

	case *ast.Compare:
		return p.evalCompare(x, env)

	case *ast.Attribute:
		return p.evalAttribute(x, env)

	case *ast.Call:
		return p.evalCall(x, env)

	case *ast.ContinuationRef:
		return &runtime.Call{FuncName: x.Name, Args: p.evalArgs(x.Args, env)}

	case *ast.SuspendCall:
		name, ok := x.Callee.(*ast.Name)
		if !ok {
			panic("interp: suspend callee must be a marker name")
		}
		continuator, ok := p.Continuators[name.ID]
		if !ok {
			panic(fmt.Sprintf("interp: %q is not a registered split marker", name.ID))
		}
		args := p.evalArgs(x.Args, env)
		cont := p.evalExpr(x.Continuation, env)
		return continuator(args, cont)

	case *ast.SuspendYield:
		v := p.evalExpr(x.Value, env)
		cont := p.evalExpr(x.Continuation, env)
		return &runtime.Yield{Value: v, Continuation: cont}

	default:
		panic(fmt.Sprintf("interp: unsupported expression %T", e))
	}
}

func (p *Program) evalCompare(x *ast.Compare, env Env) value.Object {
	prev := p.evalExpr(x.Left, env)
	for i, op := range x.Ops {
		right := p.evalExpr(x.Comparators[i], env)
		if !compareOp(op, prev, right) {
			return value.False
		}
		prev = right
	}
	return value.True
}

func (p *Program) evalAttribute(x *ast.Attribute, env Env) value.Object {
	recv := p.evalExpr(x.Value, env)
	exc, ok := recv.(*value.Exception)
	if !ok {
		panic(fmt.Sprintf("interp: %s has no attribute %q", recv.Type(), x.Attr))
	}
	switch x.Attr {
	case "kind":
		return &value.Str{Value: exc.Kind}
	case "message":
		return &value.Str{Value: exc.Message}
	default:
		panic(fmt.Sprintf("interp: exception has no attribute %q", x.Attr))
	}
}

func (p *Program) evalCall(call *ast.Call, env Env) value.Object {
	if attr, ok := call.Func.(*ast.Attribute); ok {
		return p.evalMethodCall(attr, call.Args, env)
	}
	name, ok := call.Func.(*ast.Name)
	if !ok {
		panic(fmt.Sprintf("interp: unsupported call target %T", call.Func))
	}
	if b, ok := builtins[name.ID]; ok {
		return b(p.evalArgs(call.Args, env))
	}
	if target, ok := env[name.ID]; ok {
		result := target
		for _, a := range p.evalArgs(call.Args, env) {
			result = value.Apply(result, a)
		}
		return result
	}
	panic(fmt.Sprintf("interp: unknown function %q", name.ID))
}

func (p *Program) evalMethodCall(attr *ast.Attribute, argExprs []ast.Expr, env Env) value.Object {
	recv := p.evalExpr(attr.Value, env)
	switch attr.Attr {
	case "pop":
		lst, ok := recv.(*value.List)
		if !ok {
			panic(fmt.Sprintf("interp: pop called on non-list %s", recv.Type()))
		}
		v, ok := lst.Pop()
		if !ok {
			panic(value.NewException("IndexError", "pop from empty list"))
		}
		return v
	case "__enter__":
		cm, ok := recv.(value.ContextManager)
		if !ok {
			panic(fmt.Sprintf("interp: %s has no __enter__", recv.Type()))
		}
		return cm.Enter()
	case "__exit__":
		cm, ok := recv.(value.ContextManager)
		if !ok {
			panic(fmt.Sprintf("interp: %s has no __exit__", recv.Type()))
		}
		args := p.evalArgs(argExprs, env)
		kind, _ := args[0].(*value.Str)
		msg, _ := args[1].(*value.Str)
		return cm.Exit(kind.Value, msg.Value)
	default:
		panic(fmt.Sprintf("interp: unsupported method %q", attr.Attr))
	}
}

func constant(v any) value.Object {
	switch x := v.(type) {
	case nil:
		return value.NilValue
	case bool:
		return value.BoolOf(x)
	case int:
		return &value.Int{Value: int64(x)}
	case int64:
		return &value.Int{Value: x}
	case float64:
		return &value.Float{Value: x}
	case string:
		return &value.Str{Value: x}
	default:
		panic(fmt.Sprintf("interp: unsupported constant literal %T", v))
	}
}
