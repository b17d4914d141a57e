// Package runtime implements the trampoline that drives a compiled
// function to completion one continuation at a time, grounded on
// _examples/original_source/src/funbites/runtime.py's FunBite /
// FunBiteYield / Loop trio, with the dispatch-loop shape (a small state
// machine that keeps stepping until a terminal value appears) carried
// over from the teacher's internal/vm/vm.go VM.Run.
//
// The resolver that actually invokes a named continuation is injected
// rather than imported, so this package stays ignorant of how
// continuations are compiled (internal/interp supplies it) — the same
// separation the teacher draws between vm.go's dispatch loop and the
// bytecode it dispatches.
package runtime

import "github.com/funvibe/funcps/internal/value"

// Suspension is a paused point in a compiled function: either a pending
// call into the next continuation (Call) or a value handed to the caller
// mid-stream before resuming (Yield).
type Suspension interface {
	value.Object
	isSuspension()
}

// Call is a frozen invocation of a named continuation awaiting its
// stored arguments, equivalent to funbites.runtime.FunBite. It is itself
// an Applyable: applying one more argument is the currying step a split
// marker's own compiled body performs when it forwards its received
// value into the next continuation (spec.md §5, "Default").
type Call struct {
	FuncName string
	Args     []value.Object
}

func (*Call) isSuspension()     {}
func (c *Call) Type() string    { return "Suspension.Call" }
func (c *Call) Inspect() string { return "<suspend " + c.FuncName + ">" }

// WithArg returns a new Call with arg appended, never mutating c.
func (c *Call) WithArg(arg value.Object) *Call {
	args := make([]value.Object, len(c.Args)+1)
	copy(args, c.Args)
	args[len(c.Args)] = arg
	return &Call{FuncName: c.FuncName, Args: args}
}

// Apply implements value.Applyable.
func (c *Call) Apply(arg value.Object) value.Object { return c.WithArg(arg) }

// Yield is a suspension produced by a `yield` expression: Value is handed
// to the driver, Continuation (itself Applyable) resumes the generator
// once fed the value sent back in (spec.md §4, "Yield").
type Yield struct {
	Value        value.Object
	Continuation value.Object
}

func (*Yield) isSuspension()    {}
func (y *Yield) Type() string   { return "Suspension.Yield" }
func (y *Yield) Inspect() string {
	return "<yield " + y.Value.Inspect() + ">"
}

// Resolver invokes the continuation named name with args and returns its
// result: a plain value.Object if that continuation ran to completion, or
// another Suspension if it split again. internal/interp supplies this.
type Resolver func(name string, args []value.Object) value.Object

// Loop is the trampoline (funbites.runtime.Loop). It holds the current
// state — a Suspension to keep stepping, or a terminal value.Object once
// the computation is done — and repeatedly resolves Call suspensions
// until a plain value or a Yield surfaces.
type Loop struct {
	resolve Resolver
	state   value.Object
}

// NewLoop starts a trampoline at the named continuation with the given
// initial arguments.
func NewLoop(resolve Resolver, entry string, args []value.Object) *Loop {
	return &Loop{resolve: resolve, state: &Call{FuncName: entry, Args: args}}
}

// Done reports whether the loop has reached a terminal (non-Suspension)
// value.
func (l *Loop) Done() bool {
	_, isSuspension := l.state.(Suspension)
	return !isSuspension
}

// Value returns the current state, valid once Done reports true.
func (l *Loop) Value() value.Object { return l.state }

// Step advances the trampoline by exactly one resolver invocation,
// transparently folding a resulting Yield back into the next state the
// same way funbites.runtime.Loop.step does, and reports whether a value
// was yielded this step.
func (l *Loop) Step() (yielded value.Object, hasYield bool) {
	call, ok := l.state.(*Call)
	if !ok {
		return nil, false
	}
	l.state = l.resolve(call.FuncName, call.Args)
	if y, ok := l.state.(*Yield); ok {
		yielded = y.Value
		hasYield = true
		l.state = value.Apply(y.Continuation, y.Value)
	}
	return yielded, hasYield
}

// Run drives the trampoline to completion, discarding any intermediate
// yields, and returns the terminal value (funbites.runtime.loop()).
func (l *Loop) Run() value.Object {
	for !l.Done() {
		l.Step()
	}
	return l.state
}

// Next advances past exactly one Yield (or to completion) and reports
// whether a value was produced, giving the trampoline Go-range-friendly
// generator semantics (funbites.runtime.FunBiteIterator.__next__).
func (l *Loop) Next() (value.Object, bool) {
	for !l.Done() {
		if v, ok := l.Step(); ok {
			return v, true
		}
	}
	return nil, false
}

// Returns is the identity driver continuation a non-generator call is
// wrapped in when the caller supplies none of its own — it is the
// terminal Applyable every chain of continuations eventually forwards
// its final value through (funbites.runtime.returns).
type Returns struct{}

func (Returns) Type() string    { return "Native.Returns" }
func (Returns) Inspect() string { return "<returns>" }
func (Returns) Apply(arg value.Object) value.Object {
	if ir, ok := arg.(*value.ImmediateReturn); ok {
		return ir.Value
	}
	return arg
}

var _ value.Applyable = Returns{}
