package runtime

import (
	"testing"

	"github.com/funvibe/funcps/internal/value"
)

// a resolver simulating a two-step compiled function: "entry" immediately
// tail-calls "step2", which returns a plain terminal value.
func twoStepResolver(name string, args []value.Object) value.Object {
	switch name {
	case "entry":
		return &Call{FuncName: "step2", Args: args}
	case "step2":
		n := args[0].(*value.Int)
		return &value.Int{Value: n.Value + 1}
	default:
		panic("unknown continuation: " + name)
	}
}

func TestLoopRunChainsCalls(t *testing.T) {
	loop := NewLoop(twoStepResolver, "entry", []value.Object{&value.Int{Value: 41}})
	got := loop.Run()
	i, ok := got.(*value.Int)
	if !ok {
		t.Fatalf("Run() = %v, want *value.Int", got)
	}
	if i.Value != 42 {
		t.Errorf("Run() = %d, want 42", i.Value)
	}
}

func TestCallWithArgCurries(t *testing.T) {
	base := &Call{FuncName: "f", Args: []value.Object{&value.Int{Value: 1}}}
	next := base.WithArg(&value.Int{Value: 2})
	if len(base.Args) != 1 {
		t.Error("WithArg mutated the original Call")
	}
	if len(next.Args) != 2 {
		t.Fatalf("len(next.Args) = %d, want 2", len(next.Args))
	}
	if next.Args[1].(*value.Int).Value != 2 {
		t.Errorf("next.Args[1] = %v, want 2", next.Args[1])
	}
}

func yieldingResolver(name string, args []value.Object) value.Object {
	switch name {
	case "entry":
		return &Yield{Value: args[0], Continuation: &Call{FuncName: "resume"}}
	case "resume":
		return &value.Str{Value: "done"}
	default:
		panic("unknown continuation: " + name)
	}
}

func TestLoopNextYieldsThenCompletes(t *testing.T) {
	loop := NewLoop(yieldingResolver, "entry", []value.Object{&value.Int{Value: 7}})

	v, ok := loop.Next()
	if !ok {
		t.Fatal("expected a yielded value")
	}
	if v.(*value.Int).Value != 7 {
		t.Errorf("yielded %v, want 7", v)
	}
	if loop.Done() {
		t.Fatal("loop should not be done after a yield")
	}

	_, ok = loop.Next()
	if ok {
		t.Fatal("second Next() should not yield")
	}
	if !loop.Done() {
		t.Fatal("loop should be done after draining")
	}
	if loop.Value().(*value.Str).Value != "done" {
		t.Errorf("final value = %v, want \"done\"", loop.Value())
	}
}

func TestReturnsAppliesIdentity(t *testing.T) {
	r := Returns{}
	got := r.Apply(&value.Int{Value: 9})
	if got.(*value.Int).Value != 9 {
		t.Errorf("Returns.Apply = %v, want 9", got)
	}
}

func TestReturnsUnwrapsImmediateReturn(t *testing.T) {
	r := Returns{}
	got := r.Apply(&value.ImmediateReturn{Value: &value.Int{Value: 666}})
	i, ok := got.(*value.Int)
	if !ok || i.Value != 666 {
		t.Errorf("Returns.Apply(ImmediateReturn(666)) = %v, want 666", got)
	}
}
