// Package value holds the runtime object representation the interpreter
// in internal/interp operates on — the dynamically typed values flowing
// through a compiled function's continuations. The Type()/Inspect() shape
// mirrors the teacher's evaluator.Object convention (every runtime value
// in funxy implements Type() ObjectType and Inspect() string; see e.g.
// GrpcConnObject in the deleted internal/evaluator/builtins_grpc.go).
package value

import "fmt"

// Object is any value a compiled continuation can produce or consume.
type Object interface {
	Type() string
	Inspect() string
}

// Applyable is a value a single argument can be fed into: either a
// pending suspension being curried toward saturation (runtime.Call) or a
// native driver callback (Native, Returns). Defined here rather than in
// internal/runtime so that both runtime and interp can depend on value
// without a package cycle between them.
type Applyable interface {
	Object
	Apply(arg Object) Object
}

// Apply feeds arg into a, panicking if a does not accept application —
// an internal-invariant violation that should never occur in a correctly
// compiled program.
func Apply(a Object, arg Object) Object {
	app, ok := a.(Applyable)
	if !ok {
		panic(fmt.Sprintf("value: %s is not applyable", a.Inspect()))
	}
	return app.Apply(arg)
}

// Int is a signed integer.
type Int struct{ Value int64 }

func (i *Int) Type() string    { return "Int" }
func (i *Int) Inspect() string { return fmt.Sprintf("%d", i.Value) }

// Float is a floating-point number.
type Float struct{ Value float64 }

func (f *Float) Type() string    { return "Float" }
func (f *Float) Inspect() string { return fmt.Sprintf("%g", f.Value) }

// Bool is a boolean.
type Bool struct{ Value bool }

func (b *Bool) Type() string    { return "Bool" }
func (b *Bool) Inspect() string { return fmt.Sprintf("%t", b.Value) }

var (
	True  = &Bool{Value: true}
	False = &Bool{Value: false}
)

// BoolOf returns the canonical Bool for b.
func BoolOf(b bool) *Bool {
	if b {
		return True
	}
	return False
}

// Str is a string.
type Str struct{ Value string }

func (s *Str) Type() string    { return "Str" }
func (s *Str) Inspect() string { return s.Value }

// Nil is the absence of a value (Python's None).
type Nil struct{}

func (n *Nil) Type() string    { return "Nil" }
func (n *Nil) Inspect() string { return "nil" }

// NilValue is the canonical Nil instance.
var NilValue = &Nil{}

// List is a mutable sequence, used as the iterable in the concrete `for`
// scenarios of spec.md §8 (popped from the left to drive a `while`).
type List struct{ Elements []Object }

func (l *List) Type() string { return "List" }
func (l *List) Inspect() string {
	return fmt.Sprintf("List(len=%d)", len(l.Elements))
}

// Pop removes and returns the first element (the scenario-3 `xs.pop()`
// semantics: popping from the front drains the worklist in order).
func (l *List) Pop() (Object, bool) {
	if len(l.Elements) == 0 {
		return nil, false
	}
	v := l.Elements[0]
	l.Elements = l.Elements[1:]
	return v, true
}

// ImmediateReturn is the short-circuit sentinel of spec.md §9's
// supplemented "ImmediateReturn short-circuit" feature: a split marker's
// own argument may be wrapped in this to bypass every enclosing
// continuation and make the whole compiled call resolve to Value
// directly (spec.md §8 scenario 2: `f(ImmediateReturn(666)) == 666`).
type ImmediateReturn struct{ Value Object }

func (r *ImmediateReturn) Type() string    { return "ImmediateReturn" }
func (r *ImmediateReturn) Inspect() string { return "ImmediateReturn(" + r.Value.Inspect() + ")" }

// Exception is a raised error value, matched against except clauses by
// Kind (e.g. "ZeroDivisionError", "TypeError").
type Exception struct {
	Kind    string
	Message string
}

func (e *Exception) Type() string    { return "Exception" }
func (e *Exception) Inspect() string { return e.Kind + ": " + e.Message }
func (e *Exception) Error() string   { return e.Inspect() }

// NewException builds an Exception, for use both as a value.Object and as
// the payload of a Go panic the Try-statement evaluator recovers.
func NewException(kind, message string) *Exception {
	return &Exception{Kind: kind, Message: message}
}

// ContextManager is implemented by objects the With statement's lowered
// __enter__/__exit__ calls can target (spec.md §4.4's With lowering).
type ContextManager interface {
	Object
	Enter() Object
	Exit(excKind, excMessage string) Object
}

// Truthy implements the language's boolean-coercion rule used by `If`/
// `While` tests and the For-loop sentinel comparison.
func Truthy(o Object) bool {
	switch v := o.(type) {
	case *Bool:
		return v.Value
	case *Nil:
		return false
	case *Int:
		return v.Value != 0
	case *Float:
		return v.Value != 0
	case *Str:
		return v.Value != ""
	case *List:
		return len(v.Elements) > 0
	default:
		return true
	}
}

// Equal implements `==`/`!=`/`is`/`is not` for the primitive types this
// dialect supports. Stop-sentinel identity (`is not STOP`) relies on this
// returning true only for the same concrete sentinel object: the Stop case
// below compares by pointer, unlike the value-equality cases for
// Int/Float/Str/Bool/Nil.
func Equal(a, b Object) bool {
	switch x := a.(type) {
	case *Int:
		switch y := b.(type) {
		case *Int:
			return x.Value == y.Value
		case *Float:
			return float64(x.Value) == y.Value
		}
		return false
	case *Float:
		switch y := b.(type) {
		case *Int:
			return x.Value == float64(y.Value)
		case *Float:
			return x.Value == y.Value
		}
		return false
	case *Str:
		y, ok := b.(*Str)
		return ok && x.Value == y.Value
	case *Bool:
		y, ok := b.(*Bool)
		return ok && x.Value == y.Value
	case *Nil:
		_, ok := b.(*Nil)
		return ok
	case *Stop:
		y, ok := b.(*Stop)
		return ok && x == y
	default:
		return a == b
	}
}

// Stop is the for-loop-lowering sentinel fed to `next(it, STOP)`; it is
// compared by identity, never by value (spec.md §4.4's "For" lowering:
// "exhaustion detection by sentinel equality").
type Stop struct{}

func (s *Stop) Type() string    { return "Stop" }
func (s *Stop) Inspect() string { return "<stop>" }

// StopValue is the canonical Stop sentinel.
var StopValue = &Stop{}
