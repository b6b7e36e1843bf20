package vm

import (
	"ember/internal/bytecode"
	"ember/internal/object"
)

var bitwiseSymbols = map[bytecode.Op]string{
	bytecode.OpBitAnd: "&",
	bytecode.OpBitOr:  "|",
	bytecode.OpBitXor: "^",
	bytecode.OpShl:    "<<",
	bytecode.OpShr:    ">>",
	bytecode.OpUShr:   ">>>",
}

// bitwise applies the Int-only operators. Shift counts must not be negative;
// counts of 64 or more shift everything out.
func (vm *VM) bitwise(op bytecode.Op, a, b object.Value) object.Value {
	if a.Kind != object.VKInt || b.Kind != object.VKInt {
		panic(vm.eb.typeMismatch(bitwiseSymbols[op], vm.heap.TypeName(a), vm.heap.TypeName(b)))
	}
	x, y := a.Int, b.Int
	switch op {
	case bytecode.OpBitAnd:
		return object.Int(x & y)
	case bytecode.OpBitOr:
		return object.Int(x | y)
	case bytecode.OpBitXor:
		return object.Int(x ^ y)
	}

	if y < 0 {
		panic(vm.eb.errorf(NegativeShift, "shift count %d is negative", y))
	}
	n := uint(min(y, 64))
	switch op {
	case bytecode.OpShl:
		return object.Int(object.Shl(x, n))
	case bytecode.OpShr:
		return object.Int(object.Shr(x, n))
	default:
		return object.Int(object.UShr(x, n))
	}
}
