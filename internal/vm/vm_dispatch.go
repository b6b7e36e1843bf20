package vm

import (
	"fortio.org/safecast"

	"ember/internal/bytecode"
	"ember/internal/object"
	"ember/internal/trace"
)

// operand reads a w-wide operand at ip and advances past it.
func (vm *VM) operand(w bytecode.Width) int {
	n := w.Bytes()
	if vm.ip+n > len(vm.code) {
		panic(vm.eb.errorf(BadBytecode, "truncated operand at %04d", vm.opStart))
	}
	raw := bytecode.ReadOperand(vm.code, vm.ip, w)
	vm.ip += n
	v, err := safecast.Conv[int](raw)
	if err != nil {
		panic(vm.eb.errorf(BadBytecode, "operand %d at %04d: %v", raw, vm.opStart, err))
	}
	return v
}

func (vm *VM) readByte() byte {
	if vm.ip >= len(vm.code) {
		panic(vm.eb.errorf(BadBytecode, "truncated instruction at %04d", vm.opStart))
	}
	b := vm.code[vm.ip]
	vm.ip++
	return b
}

func (vm *VM) constant(idx int) object.Value {
	if idx >= len(vm.chunk.Constants) {
		panic(vm.eb.errorf(BadBytecode, "constant %d out of range", idx))
	}
	return vm.chunk.Constants[idx]
}

func (vm *VM) global(idx int) *object.Value {
	if idx >= len(vm.chunk.Globals) {
		panic(vm.eb.errorf(BadBytecode, "global %d out of range", idx))
	}
	return &vm.chunk.Globals[idx]
}

func (vm *VM) local(idx int) *object.Value {
	slot := vm.frame().Base + idx
	if slot >= vm.sp {
		panic(vm.eb.errorf(BadBytecode, "local %d beyond stack top", idx))
	}
	return &vm.stack[slot]
}

func (vm *VM) traceInstr() {
	text, _, err := bytecode.FormatInstruction(vm.chunk, vm.heap, vm.opStart)
	if err != nil {
		text = err.Error()
	}
	trace.Point(vm.tracer, trace.ScopeInstr, "op", text)
}

// loop is the dispatch loop. It returns at OpHalt; errors panic out of it.
func (vm *VM) loop() {
	for {
		if vm.opts.GCStress || vm.heap.ShouldCollect() {
			vm.collect()
		}
		vm.opStart = vm.ip
		if vm.traceOps {
			vm.traceInstr()
		}
		vm.stats.Instructions++
		op := bytecode.Op(vm.readByte())
		base, w := op.Base()

		switch base {
		case bytecode.OpConstant:
			vm.push(vm.constant(vm.operand(w)))

		case bytecode.OpDefineGlobal:
			*vm.global(vm.operand(w)) = vm.pop()

		case bytecode.OpGetGlobal:
			idx := vm.operand(w)
			v := *vm.global(idx)
			if v.IsUndef() {
				panic(vm.eb.errorf(Undefined, "undefined variable '%s'", vm.globalName(idx)))
			}
			vm.push(v)

		case bytecode.OpSetGlobal:
			idx := vm.operand(w)
			g := vm.global(idx)
			if g.IsUndef() {
				panic(vm.eb.errorf(Undefined, "undefined variable '%s'", vm.globalName(idx)))
			}
			*g = vm.peek(0)

		case bytecode.OpGetLocal:
			vm.push(*vm.local(vm.operand(w)))

		case bytecode.OpSetLocal:
			*vm.local(vm.operand(w)) = vm.peek(0)

		case bytecode.OpGetUpvalue:
			vm.push(vm.readUpvalue(vm.operand(w)))

		case bytecode.OpSetUpvalue:
			vm.writeUpvalue(vm.operand(w), vm.peek(0))

		case bytecode.OpClosure:
			vm.makeClosure(vm.operand(w))

		case bytecode.OpClass:
			name := vm.constant(vm.operand(w))
			vm.push(object.Obj(vm.heap.NewClass(name.H)))

		case bytecode.OpAttr:
			name := vm.constant(vm.operand(w))
			tag := object.Tag(vm.readByte())
			v := vm.pop()
			vm.defineAttr(vm.peek(0), name.H, tag, v)

		case bytecode.OpGetAttr, bytecode.OpGetThisAttr:
			name := vm.constant(vm.operand(w))
			recv := vm.pop()
			vm.push(vm.getAttr(recv, name.H, base == bytecode.OpGetAttr))

		case bytecode.OpSetAttr, bytecode.OpSetThisAttr:
			name := vm.constant(vm.operand(w))
			v := vm.pop()
			recv := vm.pop()
			vm.setAttr(recv, name.H, v, base == bytecode.OpSetAttr)
			vm.push(v)

		case bytecode.OpArray:
			n := vm.operand(w)
			if n > vm.sp-vm.frame().Base {
				panic(vm.eb.errorf(BadBytecode, "array of %d elements exceeds the frame", n))
			}
			h := vm.heap.NewArray(vm.stack[vm.sp-n : vm.sp])
			clear(vm.stack[vm.sp-n : vm.sp])
			vm.sp -= n
			vm.push(object.Obj(h))

		case bytecode.OpCall:
			argc := vm.operand(w)
			vm.callValue(vm.peek(argc), argc)

		case bytecode.OpJump:
			d := vm.operand(w)
			vm.ip += d

		case bytecode.OpJumpIfFalse:
			d := vm.operand(w)
			if !vm.peek(0).Truthy() {
				vm.ip += d
			}

		case bytecode.OpLoop:
			d := vm.operand(w)
			vm.ip -= d

		case bytecode.OpNull:
			vm.push(object.Null())
		case bytecode.OpTrue:
			vm.push(object.Bool(true))
		case bytecode.OpFalse:
			vm.push(object.Bool(false))
		case bytecode.OpPop:
			vm.pop()
		case bytecode.OpDup:
			vm.push(vm.peek(0))
		case bytecode.OpDup2:
			a, b := vm.peek(1), vm.peek(0)
			vm.push(a)
			vm.push(b)

		case bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv, bytecode.OpMod:
			b := vm.pop()
			a := vm.pop()
			vm.push(vm.arith(base, a, b))

		case bytecode.OpBitAnd, bytecode.OpBitOr, bytecode.OpBitXor,
			bytecode.OpShl, bytecode.OpShr, bytecode.OpUShr:
			b := vm.pop()
			a := vm.pop()
			vm.push(vm.bitwise(base, a, b))

		case bytecode.OpEqual, bytecode.OpNotEqual,
			bytecode.OpLess, bytecode.OpLessEqual, bytecode.OpGreater, bytecode.OpGreaterEqual:
			b := vm.pop()
			a := vm.pop()
			vm.push(object.Bool(vm.compare(base, a, b)))

		case bytecode.OpNeg, bytecode.OpNot, bytecode.OpBitNot:
			vm.push(vm.unary(base, vm.pop()))

		case bytecode.OpCast:
			target := bytecode.CastTarget(vm.readByte())
			vm.push(vm.cast(target, vm.pop()))

		case bytecode.OpGetIndex:
			idx := vm.pop()
			recv := vm.pop()
			vm.push(vm.getIndex(recv, idx))

		case bytecode.OpSetIndex:
			v := vm.pop()
			idx := vm.pop()
			recv := vm.pop()
			vm.setIndex(recv, idx, v)
			vm.push(v)

		case bytecode.OpCloseUpvalue:
			vm.closeUpvalues(vm.sp - 1)
			vm.pop()

		case bytecode.OpReturn:
			if len(vm.frames) <= 1 {
				panic(vm.eb.makeError(BadBytecode, "return from the top-level script"))
			}
			vm.popFrame(vm.pop())

		case bytecode.OpHalt:
			return

		default:
			panic(vm.eb.errorf(BadBytecode, "unknown opcode %d at %04d", byte(op), vm.opStart))
		}
	}
}

// makeClosure instantiates the function constant fnIdx and binds its captures.
func (vm *VM) makeClosure(fnIdx int) {
	fnVal := vm.constant(fnIdx)
	if !vm.heap.Is(fnVal, object.KindFunction) {
		panic(vm.eb.errorf(BadBytecode, "closure over non-function constant %d", fnIdx))
	}
	h := vm.heap.NewClosure(fnVal.H)
	// on the stack before captures allocate
	vm.push(object.Obj(h))
	cl := vm.heap.Get(h)
	for i := range cl.Upvalues {
		isLocal, w := bytecode.DecodeCapture(vm.readByte())
		index := vm.operand(w)
		if isLocal {
			cl.Upvalues[i] = vm.captureUpvalue(vm.frame().Base + index)
			continue
		}
		enclosing := vm.heap.Get(vm.frame().Closure)
		cl.Upvalues[i] = enclosing.Upvalues[index]
	}
	cl.Defined = true
}
