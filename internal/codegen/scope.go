package codegen

import (
	"fmt"

	"ember/internal/bytecode"
	"ember/internal/object"
)

// FuncKind distinguishes how a function body is entered and left.
type FuncKind uint8

const (
	KindScript FuncKind = iota
	KindFunction
	KindMethod
	KindInitializer
)

// Local is a stack slot bound to a name in the current function.
type Local struct {
	Name        string
	Depth       int
	Const       bool
	Initialized bool
	Captured    bool
}

// Upvalue is one capture of the current function: a local slot of the directly
// enclosing function (IsLocal) or one of its upvalues.
type Upvalue struct {
	Index   int
	IsLocal bool
	Const   bool
}

type funcState struct {
	enclosing *funcState
	kind      FuncKind
	name      string
	fn        object.Handle
	skip      Jump
	locals    []Local
	upvalues  []Upvalue
	depth     int
}

// Kind reports the kind of the function being compiled.
func (e *Emitter) Kind() FuncKind { return e.fs.kind }

// InFunction reports whether emission currently targets a function body.
func (e *Emitter) InFunction() bool { return e.fs.kind != KindScript }

// InMethod reports whether `this` is available, directly or through enclosing functions.
func (e *Emitter) InMethod() bool {
	for fs := e.fs; fs != nil; fs = fs.enclosing {
		if fs.kind == KindMethod || fs.kind == KindInitializer {
			return true
		}
	}
	return false
}

// ScopeDepth returns the current block nesting; 0 means global scope.
func (e *Emitter) ScopeDepth() int { return e.fs.depth }

// BeginScope opens a block scope.
func (e *Emitter) BeginScope() { e.fs.depth++ }

// EndScope closes the innermost block, discarding its locals. Captured locals are
// closed instead of popped.
func (e *Emitter) EndScope() {
	fs := e.fs
	fs.depth--
	e.emitPops(fs.depth)
	n := len(fs.locals)
	for n > 0 && fs.locals[n-1].Depth > fs.depth {
		n--
	}
	fs.locals = fs.locals[:n]
}

// EmitPopsTo discards locals deeper than depth without forgetting them. break and
// continue use it before jumping out of a loop body.
func (e *Emitter) EmitPopsTo(depth int) { e.emitPops(depth) }

func (e *Emitter) emitPops(depth int) {
	locals := e.fs.locals
	for i := len(locals) - 1; i >= 0 && locals[i].Depth > depth; i-- {
		if locals[i].Captured {
			e.EmitOp(bytecode.OpCloseUpvalue)
		} else {
			e.EmitOp(bytecode.OpPop)
		}
	}
}

// AddLocal declares name in the current block. The slot is the next stack slot, so
// the caller must leave exactly one value on the stack for it.
func (e *Emitter) AddLocal(name string, isConst bool) (int, error) {
	fs := e.fs
	for i := len(fs.locals) - 1; i >= 0; i-- {
		l := fs.locals[i]
		if l.Depth < fs.depth {
			break
		}
		if l.Name == name {
			return 0, fmt.Errorf("local %q %w", name, ErrRedefined)
		}
	}
	fs.locals = append(fs.locals, Local{Name: name, Depth: fs.depth, Const: isConst})
	return len(fs.locals) - 1, nil
}

// MarkInitialized makes the most recent local visible to reads.
func (e *Emitter) MarkInitialized() {
	if n := len(e.fs.locals); n > 0 {
		e.fs.locals[n-1].Initialized = true
	}
}

// LocalCount returns the number of live slots in the current frame.
func (e *Emitter) LocalCount() int { return len(e.fs.locals) }

// ResolveLocal finds name among the current function's locals.
func (e *Emitter) ResolveLocal(name string) (slot int, l Local, ok bool) {
	return resolveLocal(e.fs, name)
}

func resolveLocal(fs *funcState, name string) (int, Local, bool) {
	for i := len(fs.locals) - 1; i >= 0; i-- {
		if fs.locals[i].Name == name && name != "" {
			return i, fs.locals[i], true
		}
	}
	return 0, Local{}, false
}

// ResolveUpvalue finds name in enclosing functions and threads a capture through
// every function in between.
func (e *Emitter) ResolveUpvalue(name string) (idx int, up Upvalue, ok bool) {
	idx, ok = resolveUpvalue(e.fs, name)
	if !ok {
		return 0, Upvalue{}, false
	}
	return idx, e.fs.upvalues[idx], true
}

func resolveUpvalue(fs *funcState, name string) (int, bool) {
	if fs.enclosing == nil {
		return 0, false
	}
	if slot, l, ok := resolveLocal(fs.enclosing, name); ok {
		fs.enclosing.locals[slot].Captured = true
		return addUpvalue(fs, slot, true, l.Const), true
	}
	if idx, ok := resolveUpvalue(fs.enclosing, name); ok {
		return addUpvalue(fs, idx, false, fs.enclosing.upvalues[idx].Const), true
	}
	return 0, false
}

func addUpvalue(fs *funcState, index int, isLocal, isConst bool) int {
	for i, up := range fs.upvalues {
		if up.Index == index && up.IsLocal == isLocal {
			return i
		}
	}
	fs.upvalues = append(fs.upvalues, Upvalue{Index: index, IsLocal: isLocal, Const: isConst})
	return len(fs.upvalues) - 1
}

// DeclareFunction starts a function body. The body is emitted inline behind a
// jump that skips it; its entry point is recorded and fixed up by Finish.
// Parameters are added by the caller with AddLocal.
func (e *Emitter) DeclareFunction(name string, arity int, kind FuncKind) {
	if kind == KindScript {
		panic("codegen: nested script")
	}
	skip := e.ReserveJump(bytecode.OpJump)
	fn := e.heap.NewFunction(e.heap.InternString(name), arity)
	e.funcs = append(e.funcs, funcRecord{pos: e.Offset(), fn: fn})
	fs := &funcState{enclosing: e.fs, kind: kind, name: name, fn: fn, skip: skip, depth: 1}
	slot0 := ""
	if kind == KindMethod || kind == KindInitializer {
		slot0 = "this"
	}
	fs.locals = append(fs.locals, Local{Name: slot0, Depth: 1, Initialized: true})
	e.fs = fs
}

// EmitReturn emits the implicit result of the current function followed by OpReturn.
// Initializers always return their receiver.
func (e *Emitter) EmitReturn() {
	if e.fs.kind == KindInitializer {
		e.EmitLocal(bytecode.OpGetLocal, 0)
	} else {
		e.EmitOp(bytecode.OpNull)
	}
	e.EmitOp(bytecode.OpReturn)
}

// EndFunction finishes the current body and emits OpClosure for it in the
// enclosing function. It returns the function object.
func (e *Emitter) EndFunction() object.Handle {
	fs := e.fs
	if fs.enclosing == nil {
		panic("codegen: EndFunction without DeclareFunction")
	}
	e.EmitReturn()
	e.fs = fs.enclosing
	e.PatchJump(fs.skip)

	e.heap.Get(fs.fn).UpvalueCount = len(fs.upvalues)
	idx := e.MakeConstant(object.Obj(fs.fn))
	e.EmitWide(bytecode.OpClosure, uint64(idx))
	for _, up := range fs.upvalues {
		w := bytecode.WidthFor(uint64(up.Index))
		e.emitByte(bytecode.EncodeCapture(up.IsLocal, w))
		e.writeOperand(uint64(up.Index), w)
	}
	return fs.fn
}

// Upvalues returns the captures of the function being compiled.
func (e *Emitter) Upvalues() []Upvalue { return e.fs.upvalues }

// EmitClass creates a class named name and leaves it on the stack.
func (e *Emitter) EmitClass(name string) {
	e.EmitAttrOp(bytecode.OpClass, name)
}

// DeclareClassAttribute pops the value on top of the stack into the class below it.
func (e *Emitter) DeclareClassAttribute(name string, tag object.Tag) {
	e.EmitAttrOp(bytecode.OpAttr, name)
	e.emitByte(byte(tag))
}
