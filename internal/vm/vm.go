// Package vm executes Ember bytecode on a bounded value stack.
//
// Runtime errors are raised with panic(*Error) inside the dispatch loop and
// recovered by Run, which resets the stack, the frames and the open upvalues so
// the same VM can keep running new entry points (the REPL does).
package vm

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"time"

	"ember/internal/bytecode"
	"ember/internal/object"
	"ember/internal/trace"
)

const (
	// DefaultStackMax is the value stack capacity.
	DefaultStackMax = 16384
	// DefaultFramesMax bounds call depth.
	DefaultFramesMax = 1024
)

// Options configure a VM.
type Options struct {
	StackMax  int
	FramesMax int
	// GCStress collects at every instruction boundary.
	GCStress bool
	Stdout   io.Writer
	Stdin    io.Reader
	Tracer   trace.Tracer
	// GlobalName names a global slot in error messages; nil prints the slot.
	GlobalName func(slot int) string
}

// Stats counts work done since the VM was created.
type Stats struct {
	Instructions uint64
	Collections  int
	Freed        int
}

// VM runs one chunk against one heap.
type VM struct {
	heap  *object.Heap
	chunk *bytecode.Chunk
	code  []byte
	opts  Options

	stack  []object.Value
	sp     int
	frames []Frame
	// open upvalues ordered by stack slot
	open []object.Handle

	ip      int
	opStart int

	eb     *errorBuilder
	out    io.Writer
	in     *bufio.Reader
	tracer trace.Tracer
	// per-instruction events are costly to even check for
	traceOps bool
	started  time.Time
	stats    Stats
}

// New creates a VM. The chunk may keep growing between calls to Run.
func New(heap *object.Heap, chunk *bytecode.Chunk, opts Options) *VM {
	if opts.StackMax <= 0 {
		opts.StackMax = DefaultStackMax
	}
	if opts.FramesMax <= 0 {
		opts.FramesMax = DefaultFramesMax
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Tracer == nil {
		opts.Tracer = trace.Nop
	}
	vm := &VM{
		heap:    heap,
		chunk:   chunk,
		opts:    opts,
		stack:   make([]object.Value, opts.StackMax),
		frames:  make([]Frame, 0, 64),
		out:     opts.Stdout,
		in:      bufio.NewReader(opts.Stdin),
		tracer:  opts.Tracer,
		started: time.Now(),
	}
	vm.traceOps = opts.Tracer.Level().ShouldEmit(trace.ScopeInstr)
	vm.eb = &errorBuilder{vm: vm}
	return vm
}

// Heap returns the heap the VM allocates in.
func (vm *VM) Heap() *object.Heap { return vm.heap }

// Chunk returns the chunk being executed.
func (vm *VM) Chunk() *bytecode.Chunk { return vm.chunk }

// Stats returns execution counters.
func (vm *VM) Stats() Stats { return vm.stats }

// StackDepth is the number of live stack slots. It is zero between runs.
func (vm *VM) StackDepth() int { return vm.sp }

// Run executes from entry until the unit's OpHalt. A runtime error is returned
// as *Error and leaves the VM ready for another Run.
func (vm *VM) Run(entry int) (err error) {
	vm.code = vm.chunk.Code
	vm.reset()
	// slot 0 of the script frame
	vm.push(object.Null())
	vm.frames = append(vm.frames, Frame{Closure: object.NoHandle, Resume: -1, Base: 0})
	vm.ip = entry

	defer func() {
		if r := recover(); r != nil {
			rtErr, ok := r.(*Error)
			if !ok {
				panic(r)
			}
			trace.Point(vm.tracer, trace.ScopeRuntime, "error", rtErr.Error())
			vm.reset()
			err = rtErr
		}
	}()
	vm.loop()
	vm.reset()
	return nil
}

// reset empties the stack. Open upvalues are closed first: a closure stored in a
// global may still alias a slot of the aborted run.
func (vm *VM) reset() {
	if len(vm.open) > 0 {
		vm.closeUpvalues(0)
	}
	clear(vm.stack[:vm.sp])
	vm.sp = 0
	vm.frames = vm.frames[:0]
}

func (vm *VM) push(v object.Value) {
	if vm.sp == len(vm.stack) {
		panic(vm.eb.errorf(StackOverflow, "value stack exhausted (%d slots)", len(vm.stack)))
	}
	vm.stack[vm.sp] = v
	vm.sp++
}

func (vm *VM) pop() object.Value {
	if vm.sp == 0 {
		panic(vm.eb.makeError(StackUnderflow, "pop from empty stack"))
	}
	vm.sp--
	v := vm.stack[vm.sp]
	vm.stack[vm.sp] = object.Value{}
	return v
}

func (vm *VM) peek(distance int) object.Value {
	i := vm.sp - 1 - distance
	if i < 0 {
		panic(vm.eb.makeError(StackUnderflow, "read below the stack"))
	}
	return vm.stack[i]
}

// VisitRoots reports the live stack, the frame closures and the open upvalues.
func (vm *VM) VisitRoots(visit func(object.Value)) {
	for i := 0; i < vm.sp; i++ {
		visit(vm.stack[i])
	}
	for i := range vm.frames {
		if h := vm.frames[i].Closure; h != object.NoHandle {
			visit(object.Obj(h))
		}
	}
	for _, h := range vm.open {
		visit(object.Obj(h))
	}
}

// collect runs a cycle at a safe point between instructions.
func (vm *VM) collect() {
	st := vm.heap.Collect(vm, vm.chunk)
	vm.stats.Collections++
	vm.stats.Freed += st.Freed
	if vm.tracer.Level().ShouldEmit(trace.ScopeRuntime) {
		trace.Point(vm.tracer, trace.ScopeRuntime, "gc",
			fmt.Sprintf("cycle=%d before=%d after=%d freed=%d strings=%d next=%d",
				st.Cycle, st.Before, st.After, st.Freed, st.StringsSwept, st.NextGC))
	}
}

func (vm *VM) globalName(slot int) string {
	if vm.opts.GlobalName != nil {
		if name := vm.opts.GlobalName(slot); name != "" {
			return name
		}
	}
	return fmt.Sprintf("global #%d", slot)
}
