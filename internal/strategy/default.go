package strategy

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/funvibe/funcps/internal/ast"
)

// MarkerSet is the embedder-supplied predicate over a callee's canonical
// identifier, standing in for funbites.strategy's `is_continuator`
// attribute lookup: in Python any function decorated `@continuator` is
// recognised by attribute probing, but Go has no equivalent runtime
// introspection over an arbitrary imported symbol, so the caller
// registers the marker names explicitly (see internal/interp's builtin
// continuator table, which is built from the same set).
type MarkerSet map[string]bool

// IsMarker reports whether name identifies a split marker.
func (m MarkerSet) IsMarker(name string) bool { return m[name] }

// Default is funbites.strategy.Strategy's sole production implementation:
// it treats Yield and calls to a registered marker as split points, hoists
// a stable blake2b-derived name for each continuation, and exposes a
// generator wrapper whenever the original function contained a Yield.
type Default struct {
	Markers MarkerSet
}

// NewDefault builds a Default strategy recognising the given marker
// names as split points (e.g. "checkpoint", "mark").
func NewDefault(markers ...string) *Default {
	m := MarkerSet{}
	for _, name := range markers {
		m[name] = true
	}
	return &Default{Markers: m}
}

func (d *Default) IsSplit(focus ast.Node, _ Context) bool {
	switch x := focus.(type) {
	case *ast.Yield:
		return true
	case *ast.Call:
		n, ok := x.Func.(*ast.Name)
		return ok && d.Markers.IsMarker(n.ID)
	default:
		return false
	}
}

func (d *Default) Transform(focus ast.Node, cont ast.Expr, _ Context) ast.Expr {
	switch x := focus.(type) {
	case *ast.Yield:
		return &ast.SuspendYield{Value: x.Value, Continuation: cont}
	case *ast.Call:
		return &ast.SuspendCall{Callee: x.Func, Args: x.Args, Keywords: x.Keywords, Continuation: cont}
	default:
		panic(fmt.Sprintf("strategy: cannot transform %T, not a split point", focus))
	}
}

func (d *Default) Default(cont *ast.ContinuationRef, _ Context) ast.Expr {
	args := make([]ast.Expr, len(cont.Args)+1)
	copy(args, cont.Args)
	args[len(cont.Args)] = &ast.Constant{Value: nil}
	return &ast.ContinuationRef{Name: cont.Name, Args: args}
}

// Identify hashes the defining name together with a canonical dump of the
// statements above and inside the continuation being named, so that
// compiling byte-identical source twice yields byte-identical
// continuation names (spec.md's REDESIGN FLAG on Identify's parameter
// order, resolved to (name, above, body, context)).
func (d *Default) Identify(name string, above, body []ast.Stmt, _ Context) string {
	h, err := blake2b.New(8, nil)
	if err != nil {
		panic(err)
	}
	h.Write([]byte(name))
	h.Write([]byte{0})
	h.Write([]byte(fingerprint(above)))
	h.Write([]byte{0})
	h.Write([]byte(fingerprint(body)))
	return fmt.Sprintf("%s__%x", name, h.Sum(nil))
}

func (d *Default) Wrap(entryName string, isGenerator bool) Wrapped {
	return Wrapped{EntryName: entryName, IsGenerator: isGenerator}
}

// fingerprint renders a deterministic, order-sensitive textual digest of
// a statement list for hashing purposes only — it is never parsed back,
// so it need not round-trip, only be stable for identical input.
func fingerprint(body []ast.Stmt) string {
	var b strings.Builder
	for _, s := range body {
		fingerprintNode(&b, s)
		b.WriteByte(';')
	}
	return b.String()
}

func fingerprintNode(b *strings.Builder, n ast.Node) {
	if n == nil {
		b.WriteString("_")
		return
	}
	fmt.Fprintf(b, "%T(", n)
	switch x := n.(type) {
	case *ast.Name:
		b.WriteString(x.ID)
	case *ast.Constant:
		fmt.Fprintf(b, "%v", x.Value)
	case *ast.BinOp:
		b.WriteString(x.Op)
	case *ast.UnaryOp:
		b.WriteString(x.Op)
	case *ast.Compare:
		b.WriteString(strings.Join(x.Ops, ","))
	case *ast.Attribute:
		b.WriteString(x.Attr)
	case *ast.FunctionDef:
		b.WriteString(x.Name)
	case *ast.Assign:
		// targets captured via children below
	case *ast.AugAssign:
		b.WriteString(x.Op)
	}
	for _, c := range ast.Children(n) {
		fingerprintNode(b, c)
		b.WriteByte(',')
	}
	b.WriteByte(')')
}
