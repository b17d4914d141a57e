package interp

import (
	"fmt"

	"github.com/funvibe/funcps/internal/value"
)

// globals holds names the interpreter resolves directly rather than
// through a continuation's env, because internal/simplify's lowerings
// reference them without ever threading a binding for them through any
// parameter list (doing so would make every continuation downstream of a
// `for` loop carry a spurious extra free variable). "__STOP__" is the
// shared contract with internal/simplify/lowering.go's forStmt.
var globals = map[string]value.Object{
	"__STOP__": value.StopValue,
}

type builtinFunc func(args []value.Object) value.Object

// builtins are the free functions the `for`-loop lowering and ordinary
// source rely on: spec.md §8 scenario 4's iteration protocol (iter/next),
// and the handful of primitives a worklist-style split function needs.
var builtins = map[string]builtinFunc{
	"iter": func(args []value.Object) value.Object {
		lst, ok := args[0].(*value.List)
		if !ok {
			panic(fmt.Sprintf("interp: iter() over non-list %s", args[0].Type()))
		}
		return &value.List{Elements: append([]value.Object{}, lst.Elements...)}
	},
	"next": func(args []value.Object) value.Object {
		it, ok := args[0].(*value.List)
		if !ok {
			panic(fmt.Sprintf("interp: next() over non-iterator %s", args[0].Type()))
		}
		v, ok := it.Pop()
		if !ok {
			return args[1]
		}
		return v
	},
	"range": func(args []value.Object) value.Object {
		n, ok := args[0].(*value.Int)
		if !ok {
			panic(fmt.Sprintf("interp: range() expects an int, got %s", args[0].Type()))
		}
		elements := make([]value.Object, 0, n.Value)
		for i := int64(0); i < n.Value; i++ {
			elements = append(elements, &value.Int{Value: i})
		}
		return &value.List{Elements: elements}
	},
	"len": func(args []value.Object) value.Object {
		lst, ok := args[0].(*value.List)
		if !ok {
			panic(fmt.Sprintf("interp: len() of non-list %s", args[0].Type()))
		}
		return &value.Int{Value: int64(len(lst.Elements))}
	},
	"abs": func(args []value.Object) value.Object {
		switch x := args[0].(type) {
		case *value.Int:
			if x.Value < 0 {
				return &value.Int{Value: -x.Value}
			}
			return x
		case *value.Float:
			if x.Value < 0 {
				return &value.Float{Value: -x.Value}
			}
			return x
		default:
			panic(fmt.Sprintf("interp: abs() of non-numeric %s", args[0].Type()))
		}
	},
}
