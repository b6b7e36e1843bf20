package vm

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"ember/internal/object"
)

// nativeError carries a runtime error code out of a host function.
type nativeError struct {
	code Code
	msg  string
}

func (e *nativeError) Error() string { return e.msg }

func nativeErrorf(code Code, format string, args ...any) error {
	return &nativeError{code: code, msg: fmt.Sprintf(format, args...)}
}

// Binder receives native functions; codegen.Globals implements it.
type Binder interface {
	DefineNative(name string, v object.Value) error
}

type intrinsic struct {
	name  string
	arity int
	fn    func(vm *VM, args []object.Value) (object.Value, error)
}

// intrinsics are installed in this order; compiled images rely on it.
var intrinsics = []intrinsic{
	{"clock", 0, (*VM).nativeClock},
	{"input", 0, (*VM).nativeInput},
	{"print", 1, (*VM).nativePrint},
	{"len", 1, (*VM).nativeLen},
	{"array", 1, (*VM).nativeArray},
	{"typeof", 1, (*VM).nativeTypeof},
}

// NativeNames lists the host functions in installation order.
func NativeNames() []string {
	names := make([]string, len(intrinsics))
	for i, in := range intrinsics {
		names[i] = in.name
	}
	return names
}

// InstallNatives defines every host function bound to this VM. It must run
// before user code is compiled against b.
func (vm *VM) InstallNatives(b Binder) error {
	for _, in := range intrinsics {
		fn := in.fn
		h := vm.heap.NewNative(in.name, in.arity, func(args []object.Value) (object.Value, error) {
			return fn(vm, args)
		})
		if err := b.DefineNative(in.name, object.Obj(h)); err != nil {
			return fmt.Errorf("native %s: %w", in.name, err)
		}
	}
	return nil
}

func (vm *VM) nativeClock([]object.Value) (object.Value, error) {
	return object.Float(time.Since(vm.started).Seconds()), nil
}

// nativeInput reads one line without its terminator; null at end of input.
func (vm *VM) nativeInput([]object.Value) (object.Value, error) {
	line, err := vm.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return object.Null(), err
	}
	if err != nil && line == "" {
		return object.Null(), nil
	}
	line = strings.TrimRight(line, "\r\n")
	return object.Obj(vm.heap.InternString(line)), nil
}

func (vm *VM) nativePrint(args []object.Value) (object.Value, error) {
	if _, err := fmt.Fprintln(vm.out, vm.heap.Format(args[0])); err != nil {
		return object.Null(), err
	}
	return object.Null(), nil
}

func (vm *VM) nativeLen(args []object.Value) (object.Value, error) {
	v := args[0]
	switch vm.heap.KindOf(v) {
	case object.KindString:
		return object.Int(int64(len(vm.heap.Str(v.H)))), nil
	case object.KindArray:
		return object.Int(int64(len(vm.heap.Get(v.H).Elems))), nil
	}
	return object.Null(), nativeErrorf(TypeMismatch, "expected string or array, got %s", vm.heap.TypeName(v))
}

// nativeArray makes an array of n nulls.
func (vm *VM) nativeArray(args []object.Value) (object.Value, error) {
	v := args[0]
	if v.Kind != object.VKInt {
		return object.Null(), nativeErrorf(TypeMismatch, "expected int, got %s", vm.heap.TypeName(v))
	}
	if v.Int < 0 || v.Int > int64(vm.opts.StackMax)*1024 {
		return object.Null(), nativeErrorf(OutOfBounds, "invalid length %d", v.Int)
	}
	elems := make([]object.Value, v.Int)
	for i := range elems {
		elems[i] = object.Null()
	}
	return object.Obj(vm.heap.NewArray(elems)), nil
}

func (vm *VM) nativeTypeof(args []object.Value) (object.Value, error) {
	return object.Obj(vm.heap.InternString(vm.heap.TypeName(args[0]))), nil
}
