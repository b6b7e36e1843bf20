package bytecode_test

import (
	"bytes"
	"strings"
	"testing"

	"ember/internal/bytecode"
	"ember/internal/object"
)

func TestWidthForBoundaries(t *testing.T) {
	tests := []struct {
		n    uint64
		want bytecode.Width
	}{
		{0, bytecode.W1},
		{0xFF, bytecode.W1},
		{0x100, bytecode.W2},
		{0xFFFF, bytecode.W2},
		{0x10000, bytecode.W4},
		{0xFFFFFFFF, bytecode.W4},
		{0x100000000, bytecode.W8},
		{^uint64(0), bytecode.W8},
	}
	for _, tt := range tests {
		if got := bytecode.WidthFor(tt.n); got != tt.want {
			t.Errorf("WidthFor(%#x) = %s, want %s", tt.n, got, tt.want)
		}
	}
}

func TestOpFamilies(t *testing.T) {
	if op := bytecode.OpGetLocal.WithWidth(bytecode.W4); op != bytecode.OpGetLocal32 {
		t.Fatalf("WithWidth = %s", op)
	}
	base, w := bytecode.OpJumpIfFalse64.Base()
	if base != bytecode.OpJumpIfFalse || w != bytecode.W8 {
		t.Fatalf("Base = %s %s", base, w)
	}
	if !bytecode.OpLoop16.IsJump() || bytecode.OpCall.IsJump() {
		t.Fatal("IsJump misclassifies")
	}
	if bytecode.OpAdd.IsWide() {
		t.Fatal("ADD is not a wide op")
	}
	if got := bytecode.OpConstant16.String(); got != "CONSTANT_16" {
		t.Fatalf("String = %q", got)
	}
}

func TestOperandRoundTrip(t *testing.T) {
	buf := make([]byte, 8)
	for _, w := range []bytecode.Width{bytecode.W1, bytecode.W2, bytecode.W4, bytecode.W8} {
		v := uint64(0x0102030405060708) & (w.Limit() - 1)
		if w == bytecode.W8 {
			v = 0x0102030405060708
		}
		bytecode.PutOperand(buf, w, v)
		if got := bytecode.ReadOperand(buf, 0, w); got != v {
			t.Errorf("%s: got %#x want %#x", w, got, v)
		}
	}
	bytecode.PutOperand(buf, bytecode.W2, 0x1234)
	if buf[0] != 0x12 || buf[1] != 0x34 {
		t.Fatalf("operand not big-endian: % x", buf[:2])
	}
}

func TestLineTable(t *testing.T) {
	c := bytecode.NewChunk()
	c.WriteOp(bytecode.OpNull, 1)
	c.WriteOp(bytecode.OpPop, 1)
	c.WriteOp(bytecode.OpTrue, 4)
	c.WriteOp(bytecode.OpPop, 4)
	c.WriteOp(bytecode.OpFalse, 2) // earlier line folds into the last one
	c.WriteOp(bytecode.OpHalt, 5)

	want := []int{1, 1, 4, 4, 4, 5}
	for off, line := range want {
		if got := c.LineOf(off); got != line {
			t.Errorf("LineOf(%d) = %d, want %d", off, got, line)
		}
	}
	if got := c.LineOf(len(c.Code)); got != 0 {
		t.Errorf("LineOf(end) = %d, want 0", got)
	}
	if len(c.Lines) != 5 {
		t.Fatalf("line table has %d entries, want 5", len(c.Lines))
	}
}

func TestAddConstantDedup(t *testing.T) {
	h := object.NewHeap(object.Config{})
	c := bytecode.NewChunk()
	a := c.AddConstant(object.Int(7), h)
	b := c.AddConstant(object.Int(7), h)
	s1 := c.AddConstant(object.Obj(h.InternString("x")), h)
	s2 := c.AddConstant(object.Obj(h.InternString("x")), h)
	fn := object.Obj(h.NewFunction(h.InternString("f"), 0))
	f1 := c.AddConstant(fn, h)
	f2 := c.AddConstant(fn, h)
	if a != b || s1 != s2 {
		t.Fatalf("scalar/string constants not shared: %d %d %d %d", a, b, s1, s2)
	}
	if f1 == f2 {
		t.Fatal("function constants must not be shared")
	}
	if c.AddConstant(object.Float(7), h) == a {
		t.Fatal("int and float constants merged")
	}
}

func TestDisassemble(t *testing.T) {
	h := object.NewHeap(object.Config{})
	c := bytecode.NewChunk()
	idx := c.AddConstant(object.Obj(h.InternString("hi")), h)
	c.WriteOp(bytecode.OpConstant, 1)
	c.WriteOperand(uint64(idx), bytecode.W1, 1)
	c.WriteOp(bytecode.OpJump16, 2)
	c.WriteOperand(1, bytecode.W2, 2)
	c.WriteOp(bytecode.OpPop, 2)
	c.WriteOp(bytecode.OpCast, 3)
	c.Write(byte(bytecode.CastStr), 3)
	c.WriteOp(bytecode.OpHalt, 3)

	var out bytes.Buffer
	if err := bytecode.Disassemble(&out, c, h, 0, -1); err != nil {
		t.Fatal(err)
	}
	text := out.String()
	for _, want := range []string{`CONSTANT`, `0 '"hi"'`, `JUMP_16`, `1 -> 0006`, `CAST`, `str`, `HALT`} {
		if !strings.Contains(text, want) {
			t.Errorf("listing missing %q:\n%s", want, text)
		}
	}
}

func TestImageRoundTrip(t *testing.T) {
	h := object.NewHeap(object.Config{})
	c := bytecode.NewChunk()
	c.AddGlobal() // native slot
	c.AddGlobal()
	fn := h.NewFunction(h.InternString("inner"), 2)
	h.Get(fn).Offset = 3
	h.Get(fn).UpvalueCount = 1
	c.AddConstant(object.Obj(fn), h)
	c.AddConstant(object.Obj(h.InternString("text")), h)
	c.AddConstant(object.Float(2.5), h)
	c.WriteOp(bytecode.OpNull, 1)
	c.WriteOp(bytecode.OpPop, 1)
	c.WriteOp(bytecode.OpHalt, 2)
	c.WriteOp(bytecode.OpNull, 3)
	c.WriteOp(bytecode.OpReturn, 3)

	var buf bytes.Buffer
	if err := bytecode.EncodeImage(&buf, c, h, 0, []string{"clock"}); err != nil {
		t.Fatal(err)
	}
	img, err := bytecode.DecodeImage(&buf)
	if err != nil {
		t.Fatal(err)
	}

	h2 := object.NewHeap(object.Config{})
	dst := bytecode.NewChunk()
	dst.AddGlobal()
	if _, err := img.Materialize(dst, h2, []string{"print"}); err == nil {
		t.Fatal("mismatched natives accepted")
	}
	entry, err := img.Materialize(dst, h2, []string{"clock"})
	if err != nil {
		t.Fatal(err)
	}
	if entry != 0 || !bytes.Equal(dst.Code, c.Code) || len(dst.Globals) != 2 {
		t.Fatalf("entry=%d code=% x globals=%d", entry, dst.Code, len(dst.Globals))
	}
	got := h2.Get(dst.Constants[0].H)
	if h2.Str(got.Name) != "inner" || got.Arity != 2 || got.Offset != 3 || got.UpvalueCount != 1 {
		t.Fatalf("function constant = %+v", got)
	}
	if h2.Str(dst.Constants[1].H) != "text" || dst.Constants[2].F != 2.5 {
		t.Fatal("scalar constants lost")
	}
	if dst.LineOf(3) != 3 {
		t.Fatalf("line table lost: LineOf(3)=%d", dst.LineOf(3))
	}
}
