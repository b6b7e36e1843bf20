package vm

import (
	"ember/internal/object"
)

// checkIndex validates idx against length and returns it as an int.
func (vm *VM) checkIndex(idx object.Value, length int) int {
	if idx.Kind != object.VKInt {
		panic(vm.eb.errorf(TypeMismatch, "index must be int, got %s", vm.heap.TypeName(idx)))
	}
	if idx.Int < 0 || idx.Int >= int64(length) {
		panic(vm.eb.outOfBounds(idx.Int, length))
	}
	return int(idx.Int)
}

// getIndex reads an array element or one byte of a string.
func (vm *VM) getIndex(recv, idx object.Value) object.Value {
	switch vm.heap.KindOf(recv) {
	case object.KindArray:
		elems := vm.heap.Get(recv.H).Elems
		return elems[vm.checkIndex(idx, len(elems))]
	case object.KindString:
		s := vm.heap.Str(recv.H)
		i := vm.checkIndex(idx, len(s))
		return object.Obj(vm.heap.InternString(s[i : i+1]))
	}
	panic(vm.eb.errorf(TypeMismatch, "cannot index %s", vm.heap.TypeName(recv)))
}

// setIndex writes an array element. Strings are immutable.
func (vm *VM) setIndex(recv, idx, v object.Value) {
	if vm.heap.KindOf(recv) != object.KindArray {
		panic(vm.eb.errorf(TypeMismatch, "cannot assign into %s", vm.heap.TypeName(recv)))
	}
	arr := vm.heap.Get(recv.H)
	arr.Elems[vm.checkIndex(idx, len(arr.Elems))] = v
}
