package vm

import (
	"math"

	"ember/internal/bytecode"
	"ember/internal/object"
)

var arithSymbols = map[bytecode.Op]string{
	bytecode.OpAdd: "+",
	bytecode.OpSub: "-",
	bytecode.OpMul: "*",
	bytecode.OpDiv: "/",
	bytecode.OpMod: "%",
}

// arith applies + - * / %. Int with Int stays Int (wrapping), a Float on either
// side widens both. + also concatenates strings.
func (vm *VM) arith(op bytecode.Op, a, b object.Value) object.Value {
	if a.Kind == object.VKInt && b.Kind == object.VKInt {
		return vm.intArith(op, a.Int, b.Int)
	}
	if a.IsNumber() && b.IsNumber() {
		return vm.floatArith(op, a.AsFloat(), b.AsFloat())
	}
	if op == bytecode.OpAdd && vm.heap.Is(a, object.KindString) && vm.heap.Is(b, object.KindString) {
		s := vm.heap.Str(a.H) + vm.heap.Str(b.H)
		return object.Obj(vm.heap.InternString(s))
	}
	panic(vm.eb.typeMismatch(arithSymbols[op], vm.heap.TypeName(a), vm.heap.TypeName(b)))
}

func (vm *VM) intArith(op bytecode.Op, x, y int64) object.Value {
	switch op {
	case bytecode.OpAdd:
		return object.Int(x + y)
	case bytecode.OpSub:
		return object.Int(x - y)
	case bytecode.OpMul:
		return object.Int(x * y)
	case bytecode.OpDiv:
		if y == 0 {
			panic(vm.eb.makeError(DivideByZero, "integer division by zero"))
		}
		// MinInt64 / -1 wraps to MinInt64
		return object.Int(x / y)
	default:
		if y == 0 {
			panic(vm.eb.makeError(DivideByZero, "integer modulo by zero"))
		}
		return object.Int(x % y)
	}
}

func (vm *VM) floatArith(op bytecode.Op, x, y float64) object.Value {
	switch op {
	case bytecode.OpAdd:
		return object.Float(x + y)
	case bytecode.OpSub:
		return object.Float(x - y)
	case bytecode.OpMul:
		return object.Float(x * y)
	case bytecode.OpDiv:
		if y == 0 {
			panic(vm.eb.makeError(DivideByZero, "float division by zero"))
		}
		return object.Float(x / y)
	default:
		if y == 0 {
			panic(vm.eb.makeError(DivideByZero, "float modulo by zero"))
		}
		return object.Float(math.Mod(x, y))
	}
}

func (vm *VM) unary(op bytecode.Op, v object.Value) object.Value {
	switch op {
	case bytecode.OpNot:
		return object.Bool(!v.Truthy())
	case bytecode.OpNeg:
		switch v.Kind {
		case object.VKInt:
			return object.Int(-v.Int)
		case object.VKFloat:
			return object.Float(-v.F)
		}
		panic(vm.eb.typeMismatch("unary -", vm.heap.TypeName(v), ""))
	default:
		if v.Kind != object.VKInt {
			panic(vm.eb.typeMismatch("~", vm.heap.TypeName(v), ""))
		}
		return object.Int(^v.Int)
	}
}
