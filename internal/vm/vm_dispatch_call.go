package vm

import (
	"errors"

	"ember/internal/object"
)

// initName is the attribute a class call runs on the new instance.
const initName = "init"

// callValue dispatches a call whose callee sits argc slots below the top.
func (vm *VM) callValue(callee object.Value, argc int) {
	obj, ok := vm.heap.Lookup(callee.H)
	if !callee.IsObj() || !ok {
		panic(vm.eb.errorf(NotCallable, "%s is not callable", vm.heap.TypeName(callee)))
	}
	switch obj.Kind {
	case object.KindClosure:
		vm.pushFrame(callee.H, argc)

	case object.KindNative:
		vm.callNative(obj, argc)

	case object.KindClass:
		inst := object.Obj(vm.heap.NewInstance(callee.H))
		vm.stack[vm.sp-argc-1] = inst
		key := vm.heap.InternString(initName)
		init, found := obj.Attrs.Get(vm.heap.Key(key))
		if !found || !init.Tag.IsMethod() {
			if argc != 0 {
				panic(vm.eb.arity(vm.heap.Str(obj.Name), 0, argc))
			}
			return
		}
		if !vm.heap.Is(init.Value, object.KindClosure) {
			panic(vm.eb.errorf(NotCallable, "initializer of %s is not a function", vm.heap.Format(callee)))
		}
		vm.pushFrame(init.Value.H, argc)

	case object.KindBoundMethod:
		vm.stack[vm.sp-argc-1] = obj.Receiver
		vm.callValue(obj.Method, argc)

	default:
		panic(vm.eb.errorf(NotCallable, "%s is not callable", vm.heap.Format(callee)))
	}
}

// callNative runs a host function synchronously and replaces the call window
// with its result. Arity < 0 accepts any argument count.
func (vm *VM) callNative(native *object.Object, argc int) {
	name := vm.heap.Str(native.Name)
	if native.Arity >= 0 && argc != native.Arity {
		panic(vm.eb.arity(name, native.Arity, argc))
	}
	args := vm.stack[vm.sp-argc : vm.sp]
	result, err := native.Native(args)
	if err != nil {
		var nerr *nativeError
		if errors.As(err, &nerr) {
			panic(vm.eb.errorf(nerr.code, "%s: %s", name, nerr.msg))
		}
		panic(vm.eb.errorf(HostFailure, "%s: %v", name, err))
	}
	clear(vm.stack[vm.sp-argc-1 : vm.sp])
	vm.sp -= argc + 1
	vm.push(result)
}
