// Package strategy implements the pluggable policy the body splitter
// consults at every split point, grounded on
// _examples/original_source/src/funbites/strategy.py's Strategy protocol
// (is_split / transform / default / identify / wrap).
//
// The Context interface is declared here, not the concrete
// internal/split.State, so that internal/split can depend on Strategy
// without strategy depending back on split: split.State implements
// Context by duck typing, the same inversion the teacher uses between
// internal/vm (owns the dispatch loop) and internal/evaluator (owns the
// values the loop dispatches on).
package strategy

import "github.com/funvibe/funcps/internal/ast"

// Context is the minimal view of the in-progress split a Strategy needs:
// enough to name new continuations deterministically and generate fresh
// identifiers.
type Context interface {
	FuncName() string
	Gensym() string
}

// Strategy is consulted by the body splitter at each candidate split
// point and when synthesising the function's outer wrapper.
type Strategy interface {
	// IsSplit reports whether focus is a split point: a call to a
	// registered split marker, or a Yield.
	IsSplit(focus ast.Node, ctx Context) bool

	// Transform builds the suspension-producing expression for a real
	// split point, given the continuation reference hoisted so far.
	Transform(focus ast.Node, cont ast.Expr, ctx Context) ast.Expr

	// Default builds the suspension-producing expression used at the
	// tail of an algorithmic continuation that no AST split point maps
	// directly onto (e.g. the synthetic back-edge of a lowered While).
	Default(cont *ast.ContinuationRef, ctx Context) ast.Expr

	// Identify names a generated continuation function deterministically
	// from its defining name and the statements above/inside it, so that
	// re-compiling identical source produces identical continuation
	// names (spec.md's REDESIGN FLAG: canonical parameter order
	// (name, above, body, context)).
	Identify(name string, above, body []ast.Stmt, ctx Context) string

	// Wrap reports how the compiled entry point should be exposed: as a
	// plain call or a generator.
	Wrap(entryName string, isGenerator bool) Wrapped
}

// Wrapped is the exposure metadata Wrap returns. funcps.Compile does not
// call Wrap; it takes IsGenerator from split.Result instead.
type Wrapped struct {
	EntryName   string
	IsGenerator bool
}
