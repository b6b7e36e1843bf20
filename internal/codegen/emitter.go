// Package codegen turns front-end emission calls into bytecode. Instructions are
// first written into an intermediate buffer where every jump carries a one-byte
// placeholder operand; Finish picks the narrowest width for each jump, shifts
// function entry points and line bounds accordingly and appends the result to the
// destination chunk.
package codegen

import (
	"fmt"

	"ember/internal/bytecode"
	"ember/internal/object"
	"ember/internal/trace"
)

// Jump identifies a reserved forward jump.
type Jump int

type jumpRecord struct {
	pos      int // offset of the opcode in the intermediate buffer
	target   int // -1 until patched
	backward bool
	width    bytecode.Width
}

type funcRecord struct {
	pos int
	fn  object.Handle
}

// Emitter is the emission contract used by the compiler for one compilation unit.
type Emitter struct {
	heap    *object.Heap
	dst     *bytecode.Chunk
	globals *Globals

	ir    *bytecode.Chunk // Code and Lines only; constants live in dst
	jumps []jumpRecord
	funcs []funcRecord
	line  int

	fs *funcState

	tracer trace.Tracer
	parent *trace.Span
}

// New creates an emitter appending into dst. Constants are added to dst directly,
// globals are resolved through g.
func New(heap *object.Heap, dst *bytecode.Chunk, g *Globals) *Emitter {
	e := &Emitter{
		heap:    heap,
		dst:     dst,
		globals: g,
		ir:      &bytecode.Chunk{Code: make([]byte, 0, 256)},
		line:    1,
	}
	e.fs = &funcState{kind: KindScript}
	// slot 0 of every frame belongs to the callee (or receiver)
	e.fs.locals = append(e.fs.locals, Local{Depth: 0, Initialized: true})
	return e
}

// Trace reports jump relaxation to t as a phase span under parent.
func (e *Emitter) Trace(t trace.Tracer, parent *trace.Span) {
	e.tracer = t
	e.parent = parent
}

// SetLine sets the source line attributed to subsequently emitted bytes.
func (e *Emitter) SetLine(line int) {
	if line > 0 {
		e.line = line
	}
}

// Line returns the current source line.
func (e *Emitter) Line() int { return e.line }

// Offset returns the current position in the intermediate buffer. Only values
// returned from here may be passed to EmitLoop.
func (e *Emitter) Offset() int { return len(e.ir.Code) }

// Heap exposes the heap constants are allocated in.
func (e *Emitter) Heap() *object.Heap { return e.heap }

// Globals exposes the global name table.
func (e *Emitter) Globals() *Globals { return e.globals }

func (e *Emitter) emitByte(b byte) {
	e.ir.Write(b, e.line)
}

// EmitOp writes a simple opcode.
func (e *Emitter) EmitOp(op bytecode.Op) {
	if op.IsWide() {
		panic(fmt.Sprintf("codegen: %s needs an operand", op))
	}
	e.emitByte(byte(op))
}

// EmitOps writes several simple opcodes.
func (e *Emitter) EmitOps(ops ...bytecode.Op) {
	for _, op := range ops {
		e.EmitOp(op)
	}
}

// EmitCast writes OpCast with its target byte.
func (e *Emitter) EmitCast(target bytecode.CastTarget) {
	e.emitByte(byte(bytecode.OpCast))
	e.emitByte(byte(target))
}

// EmitWide writes the member of base's family whose operand width fits operand.
func (e *Emitter) EmitWide(base bytecode.Op, operand uint64) {
	if !base.IsWide() || base.IsJump() {
		panic(fmt.Sprintf("codegen: %s is not a wide operand family", base))
	}
	w := bytecode.WidthFor(operand)
	e.emitByte(byte(base.WithWidth(w)))
	e.writeOperand(operand, w)
}

func (e *Emitter) writeOperand(v uint64, w bytecode.Width) {
	e.ir.WriteOperand(v, w, e.line)
}

// MakeConstant adds v to the pool without emitting anything.
func (e *Emitter) MakeConstant(v object.Value) int {
	return e.dst.AddConstant(v, e.heap)
}

// NameConstant interns name and returns its constant index.
func (e *Emitter) NameConstant(name string) int {
	return e.MakeConstant(object.Obj(e.heap.InternString(name)))
}

// EmitConstant loads v.
func (e *Emitter) EmitConstant(v object.Value) int {
	idx := e.MakeConstant(v)
	e.EmitWide(bytecode.OpConstant, uint64(idx))
	return idx
}

// EmitGlobal emits a global access family (define/get/set) for slot idx.
func (e *Emitter) EmitGlobal(base bytecode.Op, idx int) { e.EmitWide(base, uint64(idx)) }

// EmitLocal emits OpGetLocal or OpSetLocal for slot.
func (e *Emitter) EmitLocal(base bytecode.Op, slot int) { e.EmitWide(base, uint64(slot)) }

// EmitUpvalue emits OpGetUpvalue or OpSetUpvalue for index.
func (e *Emitter) EmitUpvalue(base bytecode.Op, idx int) { e.EmitWide(base, uint64(idx)) }

// EmitCall emits a call with argc arguments.
func (e *Emitter) EmitCall(argc int) { e.EmitWide(bytecode.OpCall, uint64(argc)) }

// EmitAttrOp emits one of the attribute access families naming attr.
func (e *Emitter) EmitAttrOp(base bytecode.Op, attr string) {
	e.EmitWide(base, uint64(e.NameConstant(attr)))
}

// ReserveJump emits a forward jump (OpJump or OpJumpIfFalse) with an unresolved target.
func (e *Emitter) ReserveJump(op bytecode.Op) Jump {
	if op != bytecode.OpJump && op != bytecode.OpJumpIfFalse {
		panic(fmt.Sprintf("codegen: %s is not a forward jump", op))
	}
	e.jumps = append(e.jumps, jumpRecord{pos: e.Offset(), target: -1, width: bytecode.W1})
	e.emitByte(byte(op))
	e.emitByte(0)
	return Jump(len(e.jumps) - 1)
}

// PatchJump points j at the current offset.
func (e *Emitter) PatchJump(j Jump) {
	rec := &e.jumps[j]
	if rec.backward || rec.target >= 0 {
		panic(fmt.Sprintf("codegen: jump %d patched twice", j))
	}
	rec.target = e.Offset()
}

// EmitLoop emits a backward jump to target, an earlier result of Offset.
func (e *Emitter) EmitLoop(target int) {
	if target < 0 || target > e.Offset() {
		panic(fmt.Sprintf("codegen: loop target %d beyond %d", target, e.Offset()))
	}
	e.jumps = append(e.jumps, jumpRecord{pos: e.Offset(), target: target, backward: true, width: bytecode.W1})
	e.emitByte(byte(bytecode.OpLoop))
	e.emitByte(0)
}

// Finish terminates the unit with OpHalt, relaxes jumps and appends the code to
// the destination chunk. It returns the entry offset of the unit.
func (e *Emitter) Finish() (int, error) {
	if e.fs.kind != KindScript || e.fs.enclosing != nil {
		return 0, fmt.Errorf("codegen: unterminated function %q", e.fs.name)
	}
	e.EmitOp(bytecode.OpHalt)
	for i, j := range e.jumps {
		if j.target < 0 {
			return 0, fmt.Errorf("codegen: jump %d at %d never patched", i, j.pos)
		}
	}
	entry := e.dst.Len()
	var span *trace.Span
	if e.tracer != nil {
		span = trace.Begin(e.tracer, trace.ScopePhase, "relax", e.parent)
	}
	relax(e.jumps)
	err := e.rewrite(entry)
	if span != nil {
		span.End(fmt.Sprintf("%d jumps, %d bytes", len(e.jumps), e.dst.Len()-entry))
	}
	if err != nil {
		return 0, err
	}
	return entry, nil
}
