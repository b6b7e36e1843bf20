package vm

import (
	"strings"

	"ember/internal/bytecode"
	"ember/internal/object"
)

// cast converts v to the target type or raises BadCast.
func (vm *VM) cast(target bytecode.CastTarget, v object.Value) object.Value {
	switch target {
	case bytecode.CastBool:
		return object.Bool(vm.castBool(v))
	case bytecode.CastInt:
		return vm.castInt(v)
	case bytecode.CastFloat:
		return vm.castFloat(v)
	case bytecode.CastStr:
		if vm.heap.Is(v, object.KindString) {
			return v
		}
		return object.Obj(vm.heap.InternString(vm.heap.Format(v)))
	default:
		panic(vm.eb.errorf(BadBytecode, "unknown cast target %d", byte(target)))
	}
}

func (vm *VM) castBool(v object.Value) bool {
	switch v.Kind {
	case object.VKNull, object.VKUndef:
		return false
	case object.VKBool:
		return v.Bool
	case object.VKInt:
		return v.Int != 0
	case object.VKFloat:
		return v.F != 0
	}
	if vm.heap.Is(v, object.KindString) {
		return vm.heap.Str(v.H) != ""
	}
	return true
}

func (vm *VM) castInt(v object.Value) object.Value {
	switch v.Kind {
	case object.VKBool:
		if v.Bool {
			return object.Int(1)
		}
		return object.Int(0)
	case object.VKInt:
		return v
	case object.VKFloat:
		n, ok := object.FloatToInt(v.F)
		if !ok {
			panic(vm.eb.errorf(BadCast, "cannot convert %s to int", object.FormatFloat(v.F)))
		}
		return object.Int(n)
	}
	if vm.heap.Is(v, object.KindString) {
		s := vm.heap.Str(v.H)
		n, err := object.ParseInt(strings.TrimSpace(s))
		if err != nil {
			panic(vm.eb.errorf(BadCast, "cannot convert %q to int: %v", s, err))
		}
		return object.Int(n)
	}
	panic(vm.eb.errorf(BadCast, "cannot convert %s to int", vm.heap.TypeName(v)))
}

func (vm *VM) castFloat(v object.Value) object.Value {
	switch v.Kind {
	case object.VKBool:
		if v.Bool {
			return object.Float(1)
		}
		return object.Float(0)
	case object.VKInt:
		return object.Float(float64(v.Int))
	case object.VKFloat:
		return v
	}
	if vm.heap.Is(v, object.KindString) {
		s := vm.heap.Str(v.H)
		f, err := object.ParseFloat(s)
		if err != nil {
			panic(vm.eb.errorf(BadCast, "cannot convert %q to float", s))
		}
		return object.Float(f)
	}
	panic(vm.eb.errorf(BadCast, "cannot convert %s to float", vm.heap.TypeName(v)))
}
