// Package funcps is the compile-time entry point spec.md §6 describes:
// given a function body already expressed in this module's own
// statement/expression AST (internal/ast) and the split markers to
// recognise, Compile runs the full Tag -> Simplify -> Tag -> Split
// pipeline (spec.md §4.5) and hands back a Compiled program ready to run,
// resume, or checkpoint — the Go rendering of
// _examples/original_source/src/funbites/interface.py's split/
// checkpointable/resumable trio.
package funcps

import (
	"context"
	"fmt"

	"github.com/funvibe/funcps/internal/ast"
	"github.com/funvibe/funcps/internal/checkpoint"
	"github.com/funvibe/funcps/internal/diag"
	"github.com/funvibe/funcps/internal/interp"
	"github.com/funvibe/funcps/internal/runtime"
	"github.com/funvibe/funcps/internal/simplify"
	"github.com/funvibe/funcps/internal/split"
	"github.com/funvibe/funcps/internal/strategy"
	"github.com/funvibe/funcps/internal/tag"
	"github.com/funvibe/funcps/internal/value"
)

// Compiled is a source FunctionDef compiled into a chain of CPS
// continuations — internal/split's output bound to a running
// interp.Program — mirroring spec.md §6's "new callable with identical
// signature" external interface. Errors carries every diagnostic the
// compile produced (spec.md §7: "continue on errors to collect
// diagnostics from all stages"). Program is nil only when fn has no split
// point at all (Errors then holds the NoSplitPointsWarning); it is built
// even when Errors holds diagnostics from the splitter.
type Compiled struct {
	Program     *interp.Program
	EntryName   string
	IsGenerator bool
	Errors      []error
}

// Compile transforms fn into a Compiled program recognising markers as
// split points, in addition to internal/strategy.Default's own
// unconditional Yield recognition. If fn contains no split points at
// all, Compile returns fn unchanged in spirit — a nil Program and a
// *diag.NoSplitPointsWarning in Errors — instead of wrapping a function
// that never suspends (spec.md §6/§7's soft-warning diagnostic).
func Compile(fn *ast.FunctionDef, markers ...string) *Compiled {
	strat := strategy.NewDefault(markers...)
	isSplit := func(n ast.Node) bool {
		e, ok := n.(ast.Expr)
		return ok && strat.IsSplit(e, nil)
	}

	if !tag.RunBody(fn.Body, isSplit) {
		return &Compiled{Errors: []error{diag.NewNoSplitPointsWarning(fn.Name)}}
	}

	counter := 0
	gensym := func() string {
		counter++
		return fmt.Sprintf("__simplify%d", counter)
	}
	body := simplify.Body(fn.Body, gensym)
	tag.RunBody(body, isSplit)

	isGenerator := containsYield(body)
	result, errs := split.Func(&ast.FunctionDef{Name: fn.Name, Args: fn.Args, Body: body}, strat, isSplit, isGenerator)

	prog := interp.NewProgram(result.Continuations, markers...)
	return &Compiled{
		Program:     prog,
		EntryName:   result.EntryName,
		IsGenerator: result.IsGenerator,
		Errors:      errs,
	}
}

func containsYield(body []ast.Stmt) bool {
	found := false
	var walk func(n ast.Node)
	walk = func(n ast.Node) {
		if n == nil || found {
			return
		}
		if _, ok := n.(*ast.Yield); ok {
			found = true
			return
		}
		for _, c := range ast.Children(n) {
			walk(c)
		}
	}
	for _, s := range body {
		walk(s)
	}
	return found
}

// Run drives c to completion with args, using the identity
// runtime.Returns driver as the top-level continuation (spec.md §6:
// "called without continuation: runs to completion on a fresh
// trampoline and returns the final value").
func (c *Compiled) Run(args ...value.Object) value.Object {
	full := append(append([]value.Object{}, args...), value.Object(runtime.Returns{}))
	return runtime.NewLoop(c.Program.Invoke, c.EntryName, full).Run()
}

// Iterate drives a generator Compiled (IsGenerator true) one yield at a
// time via the returned Loop's Next, the supplemented generator-adapter
// feature of spec.md §9: "if the original was a generator, returns a
// Loop iterator that yields values in order."
func (c *Compiled) Iterate(args ...value.Object) *runtime.Loop {
	full := append(append([]value.Object{}, args...), value.Object(runtime.Returns{}))
	return runtime.NewLoop(c.Program.Invoke, c.EntryName, full)
}

// RunCheckpointed drives c to completion through cp, persisting the
// pending suspension after every split so a crash can resume from the
// most recently completed one instead of from scratch (internal/checkpoint's
// ported Checkpointer.run).
func (c *Compiled) RunCheckpointed(ctx context.Context, cp *checkpoint.Checkpointer, args ...value.Object) (value.Object, error) {
	full := append(append([]value.Object{}, args...), value.Object(runtime.Returns{}))
	return cp.Run(ctx, c.Program.Invoke, c.EntryName, full)
}
