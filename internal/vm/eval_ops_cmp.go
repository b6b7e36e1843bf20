package vm

import (
	"strings"

	"ember/internal/bytecode"
	"ember/internal/object"
)

var compareSymbols = map[bytecode.Op]string{
	bytecode.OpEqual:        "==",
	bytecode.OpNotEqual:     "!=",
	bytecode.OpLess:         "<",
	bytecode.OpLessEqual:    "<=",
	bytecode.OpGreater:      ">",
	bytecode.OpGreaterEqual: ">=",
}

func (vm *VM) compare(op bytecode.Op, a, b object.Value) bool {
	switch op {
	case bytecode.OpEqual:
		return vm.equal(op, a, b)
	case bytecode.OpNotEqual:
		return !vm.equal(op, a, b)
	}

	var c int
	switch {
	case a.Kind == object.VKInt && b.Kind == object.VKInt:
		c = cmpOrdered(a.Int, b.Int)
	case a.IsNumber() && b.IsNumber():
		x, y := a.AsFloat(), b.AsFloat()
		// NaN compares false in every direction
		if x != x || y != y {
			return false
		}
		c = cmpOrdered(x, y)
	case vm.heap.Is(a, object.KindString) && vm.heap.Is(b, object.KindString):
		c = strings.Compare(vm.heap.Str(a.H), vm.heap.Str(b.H))
	default:
		panic(vm.eb.typeMismatch(compareSymbols[op], vm.heap.TypeName(a), vm.heap.TypeName(b)))
	}

	switch op {
	case bytecode.OpLess:
		return c < 0
	case bytecode.OpLessEqual:
		return c <= 0
	case bytecode.OpGreater:
		return c > 0
	default:
		return c >= 0
	}
}

// equal requires identical tags unless one side is null, and null equals a
// value of any tag. Int and Float are distinct tags and do not compare.
func (vm *VM) equal(op bytecode.Op, a, b object.Value) bool {
	if a.Kind != b.Kind {
		if a.IsNull() || b.IsNull() {
			return true
		}
		panic(vm.eb.typeMismatch(compareSymbols[op], vm.heap.TypeName(a), vm.heap.TypeName(b)))
	}
	return object.ValuesEqual(a, b)
}

func cmpOrdered[T int64 | float64](x, y T) int {
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	default:
		return 0
	}
}
