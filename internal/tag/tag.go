// Package tag implements the TagIgnores pass, grounded on
// _examples/original_source/src/funbites/simplify.py's TagIgnores: a
// single bottom-up sweep marking every node whose subtree contains no
// split point as Ignore, so the simplifier (internal/simplify) and the
// body splitter (internal/split) can skip work on expressions a split
// could never reach (spec.md §4.3).
//
// It is re-run after simplification, since lowering introduces new nodes
// (the `For`/`With` desugarings) whose Ignore status has not yet been
// computed (spec.md §4.5: "Tag -> Simplify -> Tag -> Split").
package tag

import "github.com/funvibe/funcps/internal/ast"

// IsSplit reports whether focus is itself a split point, independent of
// its subtree — the same predicate internal/strategy.Strategy.IsSplit
// implements, but decoupled from strategy.Context so this package need
// not depend on internal/strategy.
type IsSplit func(focus ast.Node) bool

// Run tags n and every node reachable from it, returning whether n's own
// subtree (including n) contains a split point.
func Run(n ast.Node, isSplit IsSplit) bool {
	if n == nil {
		return false
	}
	found := isSplit(n)
	for _, c := range ast.Children(n) {
		if Run(c, isSplit) {
			found = true
		}
	}
	n.Meta().Ignore = !found
	// Expr forwards its Ignore status from its Value: an ExprStmt never
	// is a split point itself, so this is already implied by the
	// traversal above, but is made explicit here because later passes
	// branch on ExprStmt.Meta().Ignore directly rather than recursing
	// into Value first.
	if es, ok := n.(*ast.ExprStmt); ok {
		es.Meta().Ignore = es.Value.Meta().Ignore
	}
	return found
}

// RunBody tags every top-level statement of a function body and reports
// whether any split point exists anywhere within it.
func RunBody(body []ast.Stmt, isSplit IsSplit) bool {
	found := false
	for _, s := range body {
		if Run(s, isSplit) {
			found = true
		}
	}
	return found
}
