package codegen_test

import (
	"errors"
	"strings"
	"testing"

	"ember/internal/bytecode"
	"ember/internal/codegen"
	"ember/internal/object"
)

func newEmitter(t *testing.T) (*codegen.Emitter, *bytecode.Chunk, *object.Heap) {
	t.Helper()
	h := object.NewHeap(object.Config{})
	c := bytecode.NewChunk()
	return codegen.New(h, c, codegen.NewGlobals(h, c)), c, h
}

func pops(e *codegen.Emitter, n int) {
	for range n {
		e.EmitOp(bytecode.OpPop)
	}
}

// jumpAt decodes the branch at off and returns its opcode and absolute target.
func jumpAt(t *testing.T, c *bytecode.Chunk, off int) (bytecode.Op, int) {
	t.Helper()
	op := bytecode.Op(c.Code[off])
	if !op.IsJump() {
		t.Fatalf("no jump at %d: %s", off, op)
	}
	base, w := op.Base()
	d := int(bytecode.ReadOperand(c.Code, off+1, w))
	next := off + 1 + w.Bytes()
	if base == bytecode.OpLoop {
		return op, next - d
	}
	return op, next + d
}

func TestForwardJumpWidthBoundaries(t *testing.T) {
	tests := []struct {
		span int
		want bytecode.Op
	}{
		{0, bytecode.OpJump},
		{0xFF, bytecode.OpJump},
		{0x100, bytecode.OpJump16},
		{0xFFFF, bytecode.OpJump16},
		{0x10000, bytecode.OpJump32},
	}
	for _, tt := range tests {
		e, c, _ := newEmitter(t)
		j := e.ReserveJump(bytecode.OpJump)
		pops(e, tt.span)
		e.PatchJump(j)
		e.EmitOp(bytecode.OpTrue)
		if _, err := e.Finish(); err != nil {
			t.Fatal(err)
		}
		op, target := jumpAt(t, c, 0)
		if op != tt.want {
			t.Errorf("span %#x: got %s, want %s", tt.span, op, tt.want)
		}
		if bytecode.Op(c.Code[target]) != bytecode.OpTrue {
			t.Errorf("span %#x: target %d holds %s", tt.span, target, bytecode.Op(c.Code[target]))
		}
	}
}

func TestBackwardJumpCountsOwnOperand(t *testing.T) {
	tests := []struct {
		body int
		want bytecode.Op
	}{
		// distance = body + opcode + operand
		{0xFD, bytecode.OpLoop},
		{0xFE, bytecode.OpLoop16},
		{0xFFFC, bytecode.OpLoop16},
		{0xFFFD, bytecode.OpLoop32},
	}
	for _, tt := range tests {
		e, c, _ := newEmitter(t)
		e.EmitOp(bytecode.OpTrue)
		start := e.Offset()
		pops(e, tt.body)
		e.EmitLoop(start)
		if _, err := e.Finish(); err != nil {
			t.Fatal(err)
		}
		op, target := jumpAt(t, c, 1+tt.body)
		if op != tt.want {
			t.Errorf("body %#x: got %s, want %s", tt.body, op, tt.want)
		}
		if target != 1 {
			t.Errorf("body %#x: loop lands at %d, want 1", tt.body, target)
		}
	}
}

func TestWideningCascades(t *testing.T) {
	e, c, _ := newEmitter(t)
	outer := e.ReserveJump(bytecode.OpJump)
	inner := e.ReserveJump(bytecode.OpJumpIfFalse)
	pops(e, 0xFD)
	e.PatchJump(outer)
	e.EmitOp(bytecode.OpTrue)
	pops(e, 0x100)
	e.PatchJump(inner)
	e.EmitOp(bytecode.OpFalse)
	if _, err := e.Finish(); err != nil {
		t.Fatal(err)
	}

	op, target := jumpAt(t, c, 0)
	if op != bytecode.OpJump16 {
		t.Fatalf("outer jump not widened by inner growth: %s", op)
	}
	if bytecode.Op(c.Code[target]) != bytecode.OpTrue {
		t.Fatalf("outer lands on %s", bytecode.Op(c.Code[target]))
	}
	op, target = jumpAt(t, c, 3)
	if op != bytecode.OpJumpIfFalse16 {
		t.Fatalf("inner = %s", op)
	}
	if bytecode.Op(c.Code[target]) != bytecode.OpFalse {
		t.Fatalf("inner lands on %s", bytecode.Op(c.Code[target]))
	}
}

func TestSmallProgramKeepsNarrowJumps(t *testing.T) {
	e, c, _ := newEmitter(t)
	start := e.Offset()
	e.EmitOp(bytecode.OpTrue)
	exit := e.ReserveJump(bytecode.OpJumpIfFalse)
	e.EmitOp(bytecode.OpPop)
	e.EmitLoop(start)
	e.PatchJump(exit)
	e.EmitOp(bytecode.OpPop)
	if _, err := e.Finish(); err != nil {
		t.Fatal(err)
	}
	want := []byte{
		byte(bytecode.OpTrue),
		byte(bytecode.OpJumpIfFalse), 3,
		byte(bytecode.OpPop),
		byte(bytecode.OpLoop), 6,
		byte(bytecode.OpPop),
		byte(bytecode.OpHalt),
	}
	if string(c.Code) != string(want) {
		t.Fatalf("code = % x, want % x", c.Code, want)
	}
}

func TestFunctionOffsetsShiftWithJumps(t *testing.T) {
	e, c, h := newEmitter(t)
	j := e.ReserveJump(bytecode.OpJump)
	pops(e, 0x100)
	e.PatchJump(j)

	e.DeclareFunction("f", 0, codegen.KindFunction)
	e.EmitConstant(object.Int(42))
	e.EmitOp(bytecode.OpReturn)
	fn := e.EndFunction()
	if _, err := e.Finish(); err != nil {
		t.Fatal(err)
	}

	off := h.Get(fn).Offset
	if bytecode.Op(c.Code[off]) != bytecode.OpConstant {
		t.Fatalf("function entry %d holds %s", off, bytecode.Op(c.Code[off]))
	}
	// wide jump (3) + pops + skip jump (2)
	if want := 3 + 0x100 + 2; off != want {
		t.Fatalf("function offset = %d, want %d", off, want)
	}
	_, target := jumpAt(t, c, 3+0x100)
	if bytecode.Op(c.Code[target]) != bytecode.OpClosure {
		t.Fatalf("skip jump lands on %s", bytecode.Op(c.Code[target]))
	}
}

func TestUnitsAppendToChunk(t *testing.T) {
	h := object.NewHeap(object.Config{})
	c := bytecode.NewChunk()
	g := codegen.NewGlobals(h, c)

	first := codegen.New(h, c, g)
	first.EmitOps(bytecode.OpNull, bytecode.OpPop)
	if _, err := first.Finish(); err != nil {
		t.Fatal(err)
	}
	mark := c.Len()

	second := codegen.New(h, c, g)
	second.SetLine(2)
	second.DeclareFunction("g", 0, codegen.KindFunction)
	fn := second.EndFunction()
	entry, err := second.Finish()
	if err != nil {
		t.Fatal(err)
	}
	if entry != mark {
		t.Fatalf("entry = %d, want %d", entry, mark)
	}
	if off := h.Get(fn).Offset; off != mark+2 {
		t.Fatalf("function offset = %d, want %d", off, mark+2)
	}
	if line := c.LineOf(entry); line != 2 {
		t.Fatalf("second unit starts at line %d, want 2", line)
	}
}

func TestFinishRejectsUnpatchedJump(t *testing.T) {
	e, _, _ := newEmitter(t)
	e.ReserveJump(bytecode.OpJump)
	if _, err := e.Finish(); err == nil || !strings.Contains(err.Error(), "never patched") {
		t.Fatalf("err = %v", err)
	}
}

func TestLocalsAndUpvalues(t *testing.T) {
	e, c, _ := newEmitter(t)
	e.BeginScope()
	e.EmitOp(bytecode.OpNull)
	slot, err := e.AddLocal("x", false)
	if err != nil || slot != 1 {
		t.Fatalf("AddLocal = %d, %v", slot, err)
	}
	e.MarkInitialized()
	if _, err := e.AddLocal("x", false); !errors.Is(err, codegen.ErrRedefined) {
		t.Fatalf("redeclaration err = %v", err)
	}

	e.DeclareFunction("outer", 0, codegen.KindFunction)
	e.DeclareFunction("inner", 0, codegen.KindFunction)
	idx, up, ok := e.ResolveUpvalue("x")
	if !ok || idx != 0 || up.IsLocal {
		t.Fatalf("inner capture = %d %+v %v", idx, up, ok)
	}
	e.EndFunction()
	if ups := e.Upvalues(); len(ups) != 1 || !ups[0].IsLocal || ups[0].Index != 1 {
		t.Fatalf("outer captures = %+v", ups)
	}
	e.EndFunction()
	e.EmitOp(bytecode.OpPop)
	e.EndScope()
	if _, err := e.Finish(); err != nil {
		t.Fatal(err)
	}
	if c.Code[len(c.Code)-2] != byte(bytecode.OpCloseUpvalue) {
		t.Fatalf("captured local popped instead of closed: % x", c.Code)
	}
}

func TestGlobalsRollback(t *testing.T) {
	h := object.NewHeap(object.Config{})
	c := bytecode.NewChunk()
	g := codegen.NewGlobals(h, c)
	if err := g.DefineNative("print", object.Null()); err != nil {
		t.Fatal(err)
	}
	mark := g.Mark()
	if _, err := g.Declare("a", false); err != nil {
		t.Fatal(err)
	}
	if _, err := g.Declare("a", true); !errors.Is(err, codegen.ErrRedefined) {
		t.Fatalf("err = %v", err)
	}
	if idx, _ := g.Reference("later"); idx != 2 {
		t.Fatalf("forward reference slot = %d", idx)
	}
	if _, _, ok := g.Resolve("later"); ok {
		t.Fatal("forward reference resolves as declared")
	}
	g.Rollback(mark)
	if _, _, ok := g.Resolve("a"); ok {
		t.Fatal("rolled back name still resolves")
	}
	if len(c.Globals) != 1 {
		t.Fatalf("globals = %d, want 1", len(c.Globals))
	}
	if _, _, ok := g.Resolve("later"); ok {
		t.Fatal("rolled back forward reference survives")
	}
	idx, isConst, ok := g.Resolve("print")
	if !ok || idx != 0 || !isConst {
		t.Fatalf("print = %d %v %v", idx, isConst, ok)
	}
	if idx, err := g.Declare("a", false); err != nil || idx != 1 {
		t.Fatalf("redeclare after rollback = %d, %v", idx, err)
	}
	ref, _ := g.Reference("f")
	if idx, err := g.Declare("f", true); err != nil || idx != ref {
		t.Fatalf("declaring a forward reference = %d, %v (slot %d)", idx, err, ref)
	}
}
