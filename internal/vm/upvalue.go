package vm

import (
	"slices"
	"sort"

	"ember/internal/object"
)

// captureUpvalue returns the open upvalue for slot, creating it if no closure
// captured that slot yet. Sharing the object is what makes closures over one
// variable see each other's writes.
func (vm *VM) captureUpvalue(slot int) object.Handle {
	i := sort.Search(len(vm.open), func(i int) bool {
		return vm.heap.Get(vm.open[i]).Slot >= slot
	})
	if i < len(vm.open) && vm.heap.Get(vm.open[i]).Slot == slot {
		return vm.open[i]
	}
	h := vm.heap.NewUpvalue(slot)
	vm.open = slices.Insert(vm.open, i, h)
	return h
}

// closeUpvalues moves every open upvalue at or above slot off the stack.
func (vm *VM) closeUpvalues(slot int) {
	i := sort.Search(len(vm.open), func(i int) bool {
		return vm.heap.Get(vm.open[i]).Slot >= slot
	})
	for _, h := range vm.open[i:] {
		uv := vm.heap.Get(h)
		uv.Closed = vm.stack[uv.Slot]
		uv.Open = false
	}
	clear(vm.open[i:])
	vm.open = vm.open[:i]
}

func (vm *VM) upvalue(index int) *object.Object {
	cl := vm.heap.Get(vm.frame().Closure)
	if index >= len(cl.Upvalues) {
		panic(vm.eb.errorf(BadBytecode, "upvalue %d out of range", index))
	}
	return vm.heap.Get(cl.Upvalues[index])
}

func (vm *VM) readUpvalue(index int) object.Value {
	uv := vm.upvalue(index)
	if uv.Open {
		return vm.stack[uv.Slot]
	}
	return uv.Closed
}

func (vm *VM) writeUpvalue(index int, v object.Value) {
	uv := vm.upvalue(index)
	if uv.Open {
		vm.stack[uv.Slot] = v
		return
	}
	uv.Closed = v
}
