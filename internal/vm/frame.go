package vm

import (
	"ember/internal/object"
)

// Frame is one activation record. Slot 0 of the window starting at Base holds
// the callee, or the receiver for methods and initializers.
type Frame struct {
	// Closure is NoHandle for the top-level script.
	Closure object.Handle
	// Resume is the caller's instruction offset to continue at.
	Resume int
	Base   int
}

func (vm *VM) frame() *Frame {
	return &vm.frames[len(vm.frames)-1]
}

func (vm *VM) frameName(f *Frame) string {
	if f.Closure == object.NoHandle {
		return "script"
	}
	fn := vm.heap.Get(vm.heap.Get(f.Closure).Fn)
	if fn.Name == object.NoHandle {
		return "script"
	}
	return vm.heap.Str(fn.Name)
}

// pushFrame enters closure with argc arguments already on the stack above its slot 0.
func (vm *VM) pushFrame(closure object.Handle, argc int) {
	fn := vm.heap.Get(vm.heap.Get(closure).Fn)
	if argc != fn.Arity {
		panic(vm.eb.arity(vm.heap.Str(fn.Name), fn.Arity, argc))
	}
	if len(vm.frames) >= vm.opts.FramesMax {
		panic(vm.eb.errorf(StackOverflow, "call depth exceeds %d frames", vm.opts.FramesMax))
	}
	vm.frames = append(vm.frames, Frame{
		Closure: closure,
		Resume:  vm.ip,
		Base:    vm.sp - argc - 1,
	})
	vm.ip = fn.Offset
}

// popFrame leaves the current function: its upvalues are closed, its window is
// dropped and result replaces it.
func (vm *VM) popFrame(result object.Value) {
	f := vm.frame()
	base, resume := f.Base, f.Resume
	vm.closeUpvalues(base)
	clear(vm.stack[base:vm.sp])
	vm.sp = base
	vm.frames = vm.frames[:len(vm.frames)-1]
	vm.ip = resume
	vm.push(result)
}
