package vm

import (
	"ember/internal/object"
)

func (vm *VM) attrTable(recv object.Value, name object.Handle, write bool) *object.Object {
	obj, ok := vm.heap.Lookup(recv.H)
	if !recv.IsObj() || !ok || (obj.Kind != object.KindInstance && obj.Kind != object.KindClass) {
		panic(vm.eb.errorf(TypeMismatch, "%s has no attribute '%s'", vm.heap.TypeName(recv), vm.heap.Str(name)))
	}
	if write && obj.Kind == object.KindClass {
		panic(vm.eb.errorf(ConstViolation, "cannot assign attribute '%s' of %s", vm.heap.Str(name), vm.heap.Format(recv)))
	}
	return obj
}

// defineAttr adds an attribute while a class body runs. Const does not apply here.
func (vm *VM) defineAttr(class object.Value, name object.Handle, tag object.Tag, v object.Value) {
	if !vm.heap.Is(class, object.KindClass) {
		panic(vm.eb.errorf(BadBytecode, "attribute definition on %s", vm.heap.TypeName(class)))
	}
	key, hash := vm.heap.Key(name)
	vm.heap.Get(class.H).Attrs.Set(key, hash, tag, v)
}

// getAttr reads recv.name. Qualified access sees public attributes only; access
// through this sees every attribute. Methods read off an instance come back bound.
func (vm *VM) getAttr(recv object.Value, name object.Handle, qualified bool) object.Value {
	obj := vm.attrTable(recv, name, false)
	key, hash := vm.heap.Key(name)
	e, ok := obj.Attrs.Get(key, hash)
	if !ok {
		panic(vm.eb.errorf(Undefined, "undefined attribute '%s' on %s", vm.heap.Str(name), vm.heap.Format(recv)))
	}
	if qualified && !e.Tag.IsPublic() {
		panic(vm.eb.errorf(Visibility, "attribute '%s' of %s is %s", vm.heap.Str(name), vm.heap.Format(recv), e.Tag.Visibility()))
	}
	if e.Tag.IsMethod() && obj.Kind == object.KindInstance {
		return object.Obj(vm.heap.NewBoundMethod(recv, e.Value))
	}
	return e.Value
}

// setAttr writes recv.name. Unknown names become new public mutable fields.
func (vm *VM) setAttr(recv object.Value, name object.Handle, v object.Value, qualified bool) {
	obj := vm.attrTable(recv, name, true)
	key, hash := vm.heap.Key(name)
	e, ok := obj.Attrs.Get(key, hash)
	if !ok {
		obj.Attrs.Set(key, hash, object.MakeTag(object.Public, false, false), v)
		return
	}
	if qualified && !e.Tag.IsPublic() {
		panic(vm.eb.errorf(Visibility, "attribute '%s' of %s is %s", vm.heap.Str(name), vm.heap.Format(recv), e.Tag.Visibility()))
	}
	if e.Tag.IsConst() {
		panic(vm.eb.errorf(ConstViolation, "attribute '%s' of %s is const", vm.heap.Str(name), vm.heap.Format(recv)))
	}
	obj.Attrs.Update(key, hash, v)
}
