package bytecode

import (
	"fmt"
	"io"
	"strconv"

	"ember/internal/object"
)

// Disassemble writes a listing of code[from:to) to w.
func Disassemble(w io.Writer, c *Chunk, heap *object.Heap, from, to int) error {
	if to > len(c.Code) || to < 0 {
		to = len(c.Code)
	}
	for off := from; off < to; {
		line, next, err := FormatInstruction(c, heap, off)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
		off = next
	}
	return nil
}

// FormatInstruction renders the instruction at off and returns the offset of the next one.
func FormatInstruction(c *Chunk, heap *object.Heap, off int) (string, int, error) {
	if off >= len(c.Code) {
		return "", off, fmt.Errorf("offset %d out of range", off)
	}
	op := Op(c.Code[off])
	if op >= opCount {
		return "", off + 1, fmt.Errorf("unknown opcode %d at %04d", byte(op), off)
	}
	prefix := fmt.Sprintf("%04d %4d %-18s", off, c.LineOf(off), op)
	if !op.IsWide() {
		if op == OpCast {
			if off+1 >= len(c.Code) {
				return "", off, fmt.Errorf("truncated CAST at %04d", off)
			}
			return prefix + " " + CastTarget(c.Code[off+1]).String(), off + 2, nil
		}
		return prefix, off + 1, nil
	}

	base, w := op.Base()
	n := w.Bytes()
	if off+1+n > len(c.Code) {
		return "", off, fmt.Errorf("truncated %s at %04d", op, off)
	}
	operand := ReadOperand(c.Code, off+1, w)
	next := off + 1 + n

	switch base {
	case OpConstant, OpClass, OpGetAttr, OpSetAttr, OpGetThisAttr, OpSetThisAttr:
		return prefix + " " + constText(c, heap, operand), next, nil
	case OpAttr:
		if next >= len(c.Code) {
			return "", off, fmt.Errorf("truncated ATTR at %04d", off)
		}
		tag := object.Tag(c.Code[next])
		return fmt.Sprintf("%s %s (%s)", prefix, constText(c, heap, operand), tag), next + 1, nil
	case OpJump, OpJumpIfFalse:
		return fmt.Sprintf("%s %d -> %04d", prefix, operand, uint64(next)+operand), next, nil
	case OpLoop:
		return fmt.Sprintf("%s %d -> %04d", prefix, operand, int64(next)-int64(operand)), next, nil
	case OpClosure:
		text := prefix + " " + constText(c, heap, operand)
		count := 0
		if operand < uint64(len(c.Constants)) {
			if obj, ok := heap.Lookup(c.Constants[operand].H); ok && obj.Kind == object.KindFunction {
				count = obj.UpvalueCount
			}
		}
		for range count {
			if next >= len(c.Code) {
				return "", off, fmt.Errorf("truncated CLOSURE at %04d", off)
			}
			isLocal, uw := DecodeCapture(c.Code[next])
			idx := ReadOperand(c.Code, next+1, uw)
			kind := "upvalue"
			if isLocal {
				kind = "local"
			}
			text += fmt.Sprintf(" [%s %d]", kind, idx)
			next += 1 + uw.Bytes()
		}
		return text, next, nil
	default:
		return prefix + " " + strconv.FormatUint(operand, 10), next, nil
	}
}

func constText(c *Chunk, heap *object.Heap, idx uint64) string {
	if idx >= uint64(len(c.Constants)) {
		return fmt.Sprintf("%d <bad constant>", idx)
	}
	v := c.Constants[idx]
	text := heap.Format(v)
	if heap.Is(v, object.KindString) {
		text = strconv.Quote(text)
	}
	return fmt.Sprintf("%d '%s'", idx, text)
}

// EncodeCapture packs the per-capture header byte of OpClosure.
func EncodeCapture(isLocal bool, w Width) byte {
	b := byte(w) << 1
	if isLocal {
		b |= 1
	}
	return b
}

// DecodeCapture unpacks a capture header byte.
func DecodeCapture(b byte) (isLocal bool, w Width) {
	return b&1 != 0, Width(b>>1) & 3
}
