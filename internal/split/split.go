// Package split implements the body splitter, the heart of the CPS
// transform: it walks a simplified, re-tagged function body from the
// last statement to the first, cutting the statement list into a chain
// of small continuation functions at every split point, grounded on
// _examples/original_source/src/funbites/split.py's BodySplitter, with
// the "a While loop is a backward jump, not a different control
// construct" framing carried from the teacher's compiler_loops.go.
//
// Split points are resolved entirely through the strategy.Strategy
// interface (internal/strategy); this package knows nothing about which
// calls are markers.
package split

import (
	"fmt"
	"sort"

	"github.com/funvibe/funcps/internal/ast"
	"github.com/funvibe/funcps/internal/diag"
	"github.com/funvibe/funcps/internal/strategy"
	"github.com/funvibe/funcps/internal/vars"
)

// Result is the output of splitting one function: the entry continuation
// name to invoke first, and every continuation generated (including the
// entry itself), in the deterministic order they were created.
type Result struct {
	EntryName     string
	IsGenerator   bool
	Continuations []*ast.FunctionDef
}

// State carries the bookkeeping the whole splitter run shares: the
// generated-name registry, a monotonically increasing counter for
// temporary identifiers, and accumulated diagnostics. It implements
// strategy.Context.
type State struct {
	funcName string
	strat    strategy.Strategy
	counter  int
	defs     map[string]*ast.FunctionDef
	order    []string
	errs     []error
}

func newState(funcName string, strat strategy.Strategy) *State {
	return &State{funcName: funcName, strat: strat, defs: map[string]*ast.FunctionDef{}}
}

func (s *State) FuncName() string { return s.funcName }

// Gensym returns a fresh local identifier, used for plumbing values the
// splitter itself needs (not user-visible names).
func (s *State) Gensym() string {
	s.counter++
	return fmt.Sprintf("__split%d", s.counter)
}

func (s *State) addErr(err error) { s.errs = append(s.errs, err) }

func (s *State) register(fn *ast.FunctionDef) {
	if _, exists := s.defs[fn.Name]; exists {
		s.addErr(diag.NewDuplicateContinuationError(fn.Name))
		return
	}
	s.defs[fn.Name] = fn
	s.order = append(s.order, fn.Name)
}

// createContinuation builds, names, and registers a new continuation
// function whose body is stmts, with the sorted free variables stmts
// actually references as its leading parameters and resultParam as its
// trailing one. If tryModel is non-nil, stmts is wrapped in a copy of it
// first, so the handler stays active across this continuation's own
// execution (spec.md §5's "try-model wrapping of continuations inside
// protected regions").
//
// Every continuation this splitter generates — whether reached through a
// split marker's own forwarded result or through an ordinary fallthrough
// — reserves exactly one trailing parameter for that result, even when
// nothing in stmts references it (an ExprStmt split whose value is
// discarded, or a synthetic "after"/loop continuation reached only via
// Strategy.Default). The returned ContinuationRef's Args cover only the
// leading live-in parameters, one short of the full parameter list: that
// missing trailing slot is exactly what Strategy.Default (append a nil
// constant) or a split marker's runtime forwarding (value.Apply, which
// appends) fills in, so the two completion paths agree on where the
// missing argument lands.
//
// above is the statement list the new continuation was cut out of the
// end of, passed to Strategy.Identify purely for deterministic naming
// (spec.md's REDESIGN FLAG: Identify's canonical (name, above, body,
// context) order).
func (s *State) createContinuation(above, stmts []ast.Stmt, resultParam string, tryModel *ast.ExceptHandler) *ast.ContinuationRef {
	if tryModel != nil {
		stmts = []ast.Stmt{&ast.Try{Body: stmts, Handlers: []*ast.ExceptHandler{tryModel}}}
	}
	free := vars.Analyze(stmts, vars.New()).UsesFree
	// resultParam's own binding always comes from the trailing slot, never
	// from the enclosing scope, even though stmts may reference it like any
	// other name (the common case: the split's result was assigned to a
	// variable and used afterwards). Excluding it here keeps it out of
	// ref.Args, which is only ever evaluated against the scope *before*
	// this continuation runs, where that name does not exist yet.
	delete(free, resultParam)
	liveIn := sortedKeys(free)
	params := make([]string, 0, len(liveIn)+1)
	params = append(params, liveIn...)
	params = append(params, resultParam)
	name := s.strat.Identify(s.funcName, above, stmts, s)
	s.register(&ast.FunctionDef{Name: name, Args: ast.Arguments{Args: params}, Body: stmts})
	args := make([]ast.Expr, len(liveIn))
	for i, v := range liveIn {
		args[i] = &ast.Name{ID: v, Ctx: ast.Load}
	}
	return &ast.ContinuationRef{Name: name, Args: args}
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// tailReturn builds a Return wrapping an already-saturated continuation
// reference (a loop back-edge, a break/continue jump, an "after"
// fallthrough). Its value needs no further continuation-application: that
// application already happened, inside Strategy.Default, when it appended
// the trailing result argument. Meta().NoTransform records this so
// internal/interp's *ast.Return handling returns the evaluated suspension
// directly instead of re-applying it through the function's own
// `continuation` parameter.
func tailReturn(ref *ast.ContinuationRef, s *State) ast.Stmt {
	r := &ast.Return{Value: s.strat.Default(ref, s)}
	r.Meta().NoTransform = true
	return r
}

// tailReturnWithValue builds a Return wrapping ref saturated with value
// rather than Strategy.Default's filler nil, used to route a plain
// `return value` found inside a protected region through the region's
// finally continuation instead of exiting directly: value becomes the
// argument that lands in ref's reserved trailing parameter, the same
// slot Strategy.Default or a split marker's forwarded result would fill.
// A bare `return` (value == nil) forwards None, matching ordinary Return
// semantics.
func tailReturnWithValue(ref *ast.ContinuationRef, value ast.Expr) ast.Stmt {
	if value == nil {
		value = &ast.Constant{Value: nil}
	}
	args := make([]ast.Expr, len(ref.Args)+1)
	copy(args, ref.Args)
	args[len(ref.Args)] = value
	r := &ast.Return{Value: &ast.ContinuationRef{Name: ref.Name, Args: args}}
	r.Meta().NoTransform = true
	return r
}

func isAlwaysTrue(e ast.Expr) bool {
	c, ok := e.(*ast.Constant)
	return ok && c.Value == true
}

// continuationTargets are the break/continue jump points in scope while
// splitting a loop body, threaded down through nested If/Try the same
// way funbites.split.BodySplitter.continuations does.
type continuationTargets struct {
	brk, cont *ast.ContinuationRef
}

// protection threads the two pieces of enclosing-try state a nested
// statement needs: tryModel, the except-handler template freshly cut
// continuations are re-wrapped in so they stay exception-protected across
// a suspension, and retFinally, the finally continuation a plain `return`
// inside the protected region must tail-call through before actually
// exiting (nil when the enclosing try has no finally clause, in which
// case an explicit return forwards straight through `continuation` as
// usual — there is nothing for it to wait for).
type protection struct {
	tryModel   *ast.ExceptHandler
	retFinally *ast.ContinuationRef
}

// Func compiles a single FunctionDef (already tagged and simplified) into
// a chain of continuations. The returned Result's EntryName names the
// continuation the compiled function starts at; its body has no split
// points left unresolved, only ordinary statements and SuspendCall/
// SuspendYield expressions.
func Func(fn *ast.FunctionDef, strat strategy.Strategy, isSplit func(ast.Node) bool, isGenerator bool) (*Result, []error) {
	st := newState(fn.Name, strat)
	ctx := &splitCtx{state: st, strat: strat, isSplit: isSplit}
	body := ctx.body(fn.Body, nil, continuationTargets{}, protection{})

	params := append([]string{}, fn.Args.Args...)
	params = append(params, "continuation")
	entryName := strat.Identify(fn.Name, nil, fn.Body, st)
	st.register(&ast.FunctionDef{Name: entryName, Args: ast.Arguments{Args: params}, Body: body})

	out := make([]*ast.FunctionDef, len(st.order))
	for i, name := range st.order {
		out[i] = st.defs[name]
	}
	return &Result{EntryName: entryName, IsGenerator: isGenerator, Continuations: out}, st.errs
}

type splitCtx struct {
	state   *State
	strat   strategy.Strategy
	isSplit func(ast.Node) bool
}

// body walks stmts right to left, accumulating non-splitting statements
// into acc (initialised to tail) and cutting a new continuation whenever
// a split point is found, exactly as funbites.split.BodySplitter does.
// prot carries the enclosing try's state, if stmts falls within one.
func (c *splitCtx) body(stmts []ast.Stmt, tail []ast.Stmt, targets continuationTargets, prot protection) []ast.Stmt {
	acc := append([]ast.Stmt{}, tail...)
	for i := len(stmts) - 1; i >= 0; i-- {
		acc = c.stmt(stmts[i], acc, targets, prot)
	}
	return acc
}

// stmt processes one statement against the accumulator built from
// everything textually after it, returning the new accumulator.
func (c *splitCtx) stmt(s ast.Stmt, acc []ast.Stmt, targets continuationTargets, prot protection) []ast.Stmt {
	switch x := s.(type) {
	case *ast.Break:
		if targets.brk == nil {
			return prepend(s, acc)
		}
		return []ast.Stmt{tailReturn(targets.brk, c.state)}

	case *ast.Continue:
		if targets.cont == nil {
			return prepend(s, acc)
		}
		return []ast.Stmt{tailReturn(targets.cont, c.state)}

	case *ast.If:
		return c.ifStmt(x, acc, targets, prot)

	case *ast.While:
		return c.whileStmt(x, acc, prot)

	case *ast.Try:
		if prot.tryModel != nil && !s.Meta().Ignore {
			c.state.addErr(diag.NewNestedTryError(c.state.funcName))
			return prepend(s, acc)
		}
		return c.tryStmt(x, acc, targets)

	case *ast.ExprStmt:
		if !s.Meta().Ignore && c.isSplit(x.Value) {
			return c.cut(x.Value, nil, acc, prot.tryModel)
		}
		return prepend(s, acc)

	case *ast.Assign:
		if !s.Meta().Ignore && len(x.Targets) == 1 && c.isSplit(x.Value) {
			return c.cut(x.Value, x.Targets[0], acc, prot.tryModel)
		}
		return prepend(s, acc)

	case *ast.Return:
		if !s.Meta().Ignore && x.Value != nil && c.isSplit(x.Value) {
			// A Return's split value forwards through the function's own
			// `continuation` parameter: nothing follows a Return, so
			// there is no accumulator to cut into a fresh continuation.
			// Transform already builds that forwarding into the suspend
			// expression itself (its Continuation field is the bare
			// `continuation` name), so this Return needs no further
			// continuation-application of its own: see tailReturn's
			// NoTransform note. A split-valued return inside a protected
			// region with a finally clause still bypasses it this way — a
			// narrowing recorded in DESIGN.md alongside the others this
			// package already documents for Try.
			suspend := c.strat.Transform(x.Value, &ast.Name{ID: "continuation", Ctx: ast.Load}, c.state)
			r := &ast.Return{Value: suspend}
			r.Meta().NoTransform = true
			return []ast.Stmt{r}
		}
		if prot.retFinally != nil {
			// Inside a protected region with a finally clause, a plain
			// return must run finally before it actually exits: route it
			// through retFinally instead of forwarding straight out.
			return []ast.Stmt{tailReturnWithValue(prot.retFinally, x.Value)}
		}
		return prepend(s, acc)

	default:
		return prepend(s, acc)
	}
}

func prepend(s ast.Stmt, acc []ast.Stmt) []ast.Stmt {
	out := make([]ast.Stmt, 0, len(acc)+1)
	out = append(out, s)
	out = append(out, acc...)
	return out
}

// cut is the actual CPS cut: acc (everything after this split) becomes a
// new continuation, optionally receiving the split's result under
// target's name, and the split expression itself is rewritten through
// Strategy.Transform into a SuspendCall/SuspendYield referencing it.
func (c *splitCtx) cut(focus ast.Expr, target *ast.Name, acc []ast.Stmt, tryModel *ast.ExceptHandler) []ast.Stmt {
	resultParam := c.state.Gensym()
	if target != nil {
		resultParam = target.ID
	}
	ref := c.state.createContinuation(acc, acc, resultParam, tryModel)
	suspend := c.strat.Transform(focus, ref, c.state)
	r := &ast.Return{Value: suspend}
	r.Meta().NoTransform = true
	return []ast.Stmt{r}
}

// ifStmt handles a non-ignored If: the statements after it become a
// shared "after" continuation both branches fall through into, and each
// branch is independently split with that fallthrough as its tail.
func (c *splitCtx) ifStmt(x *ast.If, acc []ast.Stmt, targets continuationTargets, prot protection) []ast.Stmt {
	if x.Meta().Ignore {
		return prepend(x, acc)
	}
	afterRef := c.state.createContinuation(acc, acc, c.state.Gensym(), prot.tryModel)
	tail := []ast.Stmt{tailReturn(afterRef, c.state)}
	bodyOut := c.body(x.Body, tail, targets, prot)
	orelseOut := c.body(x.Orelse, tail, targets, prot)
	return []ast.Stmt{&ast.If{Test: x.Test, Body: bodyOut, Orelse: orelseOut}}
}

// whileStmt handles a non-ignored While. Simplify has already reduced
// its Test to a split-free expression (hoisting a splitting test into an
// internal `if not test: break`, spec.md §4.4), so only Body needs
// cutting. The loop header becomes its own continuation that re-checks
// Test, calls itself on fallthrough/continue, and calls the shared
// "after" continuation on break/exhaustion — the CPS encoding of a
// backward jump (this package's grounding note, carried from
// compiler_loops.go's "a loop is a jump that targets its own header").
func (c *splitCtx) whileStmt(x *ast.While, acc []ast.Stmt, prot protection) []ast.Stmt {
	if x.Meta().Ignore {
		return prepend(x, acc)
	}
	afterRef := c.state.createContinuation(acc, acc, c.state.Gensym(), prot.tryModel)

	// The loop continuation is self-referential, so its name and
	// parameter list must be fixed before its body (which tail-calls
	// back into it) is built. Its free-variable set is computed from the
	// raw, not-yet-rewritten body: the tail-calls inserted below only
	// ever reference names already free in the raw body (they are built
	// from that same set), so inserting them cannot add new free names.
	// Like every other generated continuation it reserves a trailing
	// result slot (unused in its body) so Strategy.Default's "append nil"
	// fallthrough lands on the same parameter a split marker's forwarded
	// value would.
	raw := vars.Analyze(x.Body, vars.New()).UsesFree
	liveIn := sortedKeys(raw)
	loopName := c.state.funcName + "_" + c.state.Gensym()
	loopResultParam := c.state.Gensym()
	loopArgs := make([]ast.Expr, len(liveIn))
	for i, v := range liveIn {
		loopArgs[i] = &ast.Name{ID: v, Ctx: ast.Load}
	}
	loopRef := &ast.ContinuationRef{Name: loopName, Args: loopArgs}

	targets := continuationTargets{brk: afterRef, cont: loopRef}
	fallthroughTail := []ast.Stmt{tailReturn(loopRef, c.state)}
	innerBody := c.body(x.Body, fallthroughTail, targets, prot)

	guarded := innerBody
	if !isAlwaysTrue(x.Test) {
		guarded = []ast.Stmt{&ast.If{
			Test:   x.Test,
			Body:   innerBody,
			Orelse: []ast.Stmt{tailReturn(afterRef, c.state)},
		}}
	}
	loopBody := guarded
	if prot.tryModel != nil {
		loopBody = []ast.Stmt{&ast.Try{Body: guarded, Handlers: []*ast.ExceptHandler{prot.tryModel}}}
	}
	loopParams := append(append([]string{}, liveIn...), loopResultParam)
	c.state.register(&ast.FunctionDef{Name: loopName, Args: ast.Arguments{Args: loopParams}, Body: loopBody})

	return []ast.Stmt{tailReturn(loopRef, c.state)}
}

// tryStmt handles a non-ignored Try by building a try-model (a copy of
// the single supported handler) that wraps every continuation generated
// while splitting Body+Orelse, and a shared finallyRef continuation that
// both the normal path and the handler path tail-call into before
// reaching afterRef. FinalBody runs exactly once regardless of which path
// was taken, because both paths' last statement is a tail call to the
// very same continuation — there is only one place in the generated
// chain where FinalBody's statements live.
//
// Earlier revisions spliced FinalBody onto the normal path only
// (Body+Orelse+FinalBody) and left the handler's own chain jumping
// straight to afterRef. interp.execTry runs a Try's FinalBody exactly
// once outside the recover, but the synthetic Trys this package builds
// never populate that field at all — the CPS lowering has no single Try
// node left whose FinalBody interp could run, which meant "finally" only
// fired when the normal path was taken. Routing both paths through one
// finallyRef continuation fixes that without needing interp to change.
//
// The try-model itself always catches BaseException rather than
// handler.Type: a continuation cut inside the protected region runs in
// its own Go call frame (internal/interp.execTry's recover only spans one
// frame), so if the model only matched the user's declared type, an
// exception interp.execTry itself can't match would re-panic straight
// out of that frame, past this region's own finallyRef, skipping
// FinalBody exactly like the bug described above — just on the
// handler-mismatch path instead of the finally-splicing one. Catching
// everything and dispatching on exc.kind inside the handler body (the
// same "catch BaseException, inspect it" shape internal/simplify's
// withStmt lowering uses for __exit__) lets a non-matching exception
// still reach finallyRef before it re-raises.
//
// A mismatched exception reaching finallyRef still needs to come out the
// other side as a re-raise, not a return — and finallyRef's own parameter
// slot only ever holds an ordinary exit value, never a tag saying what to
// do with it (inventing one would mean a builtin call sitting inside
// finallyRef's own continuation body to test it at runtime, which
// vars.Analyze's free-variable scan would treat as an ordinary free name
// and wrongly thread onto every continuation's parameter list — the same
// hazard createContinuation sidesteps elsewhere by only ever feeding it
// bodies that reference real source variables). So finally gets two
// separate continuations instead of one with a runtime branch:
// finallyRef ends FinalBody with a plain `return`, reraiseRef ends
// the same FinalBody statements with a plain `raise` of its own dedicated
// parameter. Both are built by running x.FinalBody through c.body twice;
// whichever split points FinalBody itself contains get lowered once per
// continuation, which is the cost of keeping each one a straight-line
// "run FinalBody then do one fixed thing" shape.
//
// funcps narrows the original's per-clause exception scoping: the
// try-model covers the whole normal-path chain rather than only Body, so
// an exception raised from Orelse is also caught by the handler (an
// exception raised from FinalBody itself is not, matching the original:
// finally runs after the handler, not inside it). This trades strict
// parity for a CPS lowering simple enough to implement soundly across
// suspension boundaries (an Open Question decision recorded in
// DESIGN.md). Only the first handler is honoured; Non-goals exclude
// multi-handler/nested try.
func (c *splitCtx) tryStmt(x *ast.Try, acc []ast.Stmt, targets continuationTargets) []ast.Stmt {
	if x.Meta().Ignore || len(x.Handlers) == 0 {
		return prepend(x, acc)
	}
	handler := x.Handlers[0]
	afterRef := c.state.createContinuation(acc, acc, c.state.Gensym(), nil)

	// When there is no finally clause, both paths can tail-call afterRef
	// directly; a finallyRef continuation would be a pure passthrough, and
	// a plain `return` inside the region has nothing to wait for, so
	// retFinally stays nil and such a return forwards straight out through
	// `continuation` as usual.
	finallyRef := afterRef
	var reraiseRef *ast.ContinuationRef
	var retFinally *ast.ContinuationRef
	if len(x.FinalBody) > 0 {
		finalResultParam := c.state.Gensym()
		finalTail := []ast.Stmt{&ast.Return{Value: &ast.Name{ID: finalResultParam, Ctx: ast.Load}}}
		finalOut := c.body(x.FinalBody, finalTail, targets, protection{})
		finallyRef = c.state.createContinuation(acc, finalOut, finalResultParam, nil)
		retFinally = finallyRef

		reraiseParam := c.state.Gensym()
		reraiseTail := []ast.Stmt{&ast.Raise{Exc: &ast.Name{ID: reraiseParam, Ctx: ast.Load}}}
		reraiseOut := c.body(x.FinalBody, reraiseTail, targets, protection{})
		reraiseRef = c.state.createContinuation(acc, reraiseOut, reraiseParam, nil)
	}

	excName := handler.Name
	if excName == "" {
		excName = c.state.Gensym()
	}
	handlerTail := c.body(handler.Body, []ast.Stmt{tailReturn(finallyRef, c.state)}, targets, protection{retFinally: retFinally})

	// reraise is what runs when the caught exception's kind doesn't match
	// handler.Type: with a finally clause, the exception is handed to
	// reraiseRef so FinalBody still runs before the exception continues
	// past this region; without one, there is nothing to wait for, so it
	// re-raises directly.
	excRef := &ast.Name{ID: excName, Ctx: ast.Load}
	var reraise []ast.Stmt
	if reraiseRef != nil {
		reraise = []ast.Stmt{tailReturnWithValue(reraiseRef, excRef)}
	} else {
		reraise = []ast.Stmt{&ast.Raise{Exc: excRef}}
	}

	dispatch := handlerTail
	if handler.Type != nil {
		if typeName, ok := handler.Type.(*ast.Name); ok && typeName.ID != "BaseException" {
			dispatch = []ast.Stmt{&ast.If{
				Test: &ast.Compare{
					Left:        &ast.Attribute{Value: excRef, Attr: "kind"},
					Ops:         []string{ast.OpEq},
					Comparators: []ast.Expr{&ast.Constant{Value: typeName.ID}},
				},
				Body:   handlerTail,
				Orelse: reraise,
			}}
		}
	}
	if handler.Name != "" && handler.Name != excName {
		dispatch = append([]ast.Stmt{&ast.Assign{Targets: []*ast.Name{{ID: handler.Name, Ctx: ast.Store}}, Value: excRef}}, dispatch...)
	}
	tryModel := &ast.ExceptHandler{Type: &ast.Name{ID: "BaseException", Ctx: ast.Load}, Name: excName, Body: dispatch}

	normal := append(append([]ast.Stmt{}, x.Body...), x.Orelse...)
	normalOut := c.body(normal, []ast.Stmt{tailReturn(finallyRef, c.state)}, targets, protection{tryModel: tryModel, retFinally: retFinally})

	return []ast.Stmt{&ast.Try{Body: normalOut, Handlers: []*ast.ExceptHandler{tryModel}}}
}
