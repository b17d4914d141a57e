package interp

import (
	"fmt"

	"github.com/funvibe/funcps/internal/ast"
	"github.com/funvibe/funcps/internal/value"
)

func numbers(a, b value.Object) (float64, float64, bool) {
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	return af, bf, aok && bok
}

func asFloat(o value.Object) (float64, bool) {
	switch x := o.(type) {
	case *value.Int:
		return float64(x.Value), true
	case *value.Float:
		return x.Value, true
	default:
		return 0, false
	}
}

func bothInt(a, b value.Object) (int64, int64, bool) {
	ai, aok := a.(*value.Int)
	bi, bok := b.(*value.Int)
	if !aok || !bok {
		return 0, 0, false
	}
	return ai.Value, bi.Value, true
}

// binOp implements the arithmetic this dialect's subset needs (spec.md §8
// scenarios 1 and 3: integer accumulation, and the "+": string
// concatenation a with-statement handler might log). Integer operations
// stay integer unless either operand is a Float.
func binOp(op string, a, b value.Object) value.Object {
	if op == "+" {
		as, aok := a.(*value.Str)
		bs, bok := b.(*value.Str)
		if aok && bok {
			return &value.Str{Value: as.Value + bs.Value}
		}
	}
	if ai, bi, ok := bothInt(a, b); ok {
		switch op {
		case "+":
			return &value.Int{Value: ai + bi}
		case "-":
			return &value.Int{Value: ai - bi}
		case "*":
			return &value.Int{Value: ai * bi}
		case "//":
			if bi == 0 {
				panic(value.NewException("ZeroDivisionError", "integer division or modulo by zero"))
			}
			return &value.Int{Value: ai / bi}
		case "%":
			if bi == 0 {
				panic(value.NewException("ZeroDivisionError", "integer division or modulo by zero"))
			}
			return &value.Int{Value: ai % bi}
		case "/":
			if bi == 0 {
				panic(value.NewException("ZeroDivisionError", "division by zero"))
			}
			return &value.Float{Value: float64(ai) / float64(bi)}
		}
	}
	af, bf, ok := numbers(a, b)
	if !ok {
		panic(value.NewException("TypeError", fmt.Sprintf("unsupported operand types for %s: %s, %s", op, a.Type(), b.Type())))
	}
	switch op {
	case "+":
		return &value.Float{Value: af + bf}
	case "-":
		return &value.Float{Value: af - bf}
	case "*":
		return &value.Float{Value: af * bf}
	case "/":
		if bf == 0 {
			panic(value.NewException("ZeroDivisionError", "float division by zero"))
		}
		return &value.Float{Value: af / bf}
	default:
		panic(fmt.Sprintf("interp: unsupported operator %q", op))
	}
}

func unaryOp(op string, v value.Object) value.Object {
	switch op {
	case "not":
		return value.BoolOf(!value.Truthy(v))
	case "-":
		switch x := v.(type) {
		case *value.Int:
			return &value.Int{Value: -x.Value}
		case *value.Float:
			return &value.Float{Value: -x.Value}
		default:
			panic(value.NewException("TypeError", fmt.Sprintf("bad operand type for unary -: %s", v.Type())))
		}
	default:
		panic(fmt.Sprintf("interp: unsupported unary operator %q", op))
	}
}

// compareOp implements Compare.Ops. `is`/`is not` use the same value.Equal
// as `==`/`!=` for this dialect's primitive-only value set (no mutable
// aliasing distinctions to preserve); the Stop sentinel's identity check
// (the For lowering's `is not __STOP__`) is exactly what value.Equal's
// Stop case already implements.
func compareOp(op string, a, b value.Object) bool {
	switch op {
	case ast.OpEq, ast.OpIs:
		return value.Equal(a, b)
	case ast.OpNotEq, ast.OpIsNot:
		return !value.Equal(a, b)
	case ast.OpLt, ast.OpLtE, ast.OpGt, ast.OpGtE:
		af, bf, ok := numbers(a, b)
		if !ok {
			panic(value.NewException("TypeError", fmt.Sprintf("unsupported operand types for %s: %s, %s", op, a.Type(), b.Type())))
		}
		switch op {
		case ast.OpLt:
			return af < bf
		case ast.OpLtE:
			return af <= bf
		case ast.OpGt:
			return af > bf
		case ast.OpGtE:
			return af >= bf
		}
	case ast.OpIn:
		lst, ok := b.(*value.List)
		if !ok {
			panic(value.NewException("TypeError", fmt.Sprintf("'in' requires a list, got %s", b.Type())))
		}
		for _, el := range lst.Elements {
			if value.Equal(a, el) {
				return true
			}
		}
		return false
	}
	panic(fmt.Sprintf("interp: unsupported comparison operator %q", op))
}
