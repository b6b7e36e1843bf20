// Package bytecode defines Ember's variable-width instruction set, the chunk that
// holds a compiled program, its line table, a disassembler and the image codec.
package bytecode

import (
	"encoding/binary"
	"fmt"
)

// Op is a single opcode byte.
type Op byte

// Width selects the operand size of a wide opcode family.
type Width uint8

const (
	W1 Width = iota // 1-byte operand
	W2              // 2-byte operand
	W4              // 4-byte operand
	W8              // 8-byte operand
)

// Bytes returns the operand size in bytes.
func (w Width) Bytes() int { return 1 << w }

// Limit returns the exclusive upper bound of values representable at this width.
// W8 has no bound inside uint64 and reports 0.
func (w Width) Limit() uint64 {
	if w == W8 {
		return 0
	}
	return 1 << (8 * uint(w.Bytes()))
}

func (w Width) String() string {
	return fmt.Sprintf("w%d", w.Bytes())
}

// WidthFor returns the narrowest width able to hold n.
// A value exactly on a boundary (0x100, 0x10000, 0x100000000) takes the next width.
func WidthFor(n uint64) Width {
	switch {
	case n < 1<<8:
		return W1
	case n < 1<<16:
		return W2
	case n < 1<<32:
		return W4
	default:
		return W8
	}
}

// Wide families occupy four consecutive opcodes: base+W1 .. base+W8.
const (
	OpConstant Op = iota
	OpConstant16
	OpConstant32
	OpConstant64
	OpDefineGlobal
	OpDefineGlobal16
	OpDefineGlobal32
	OpDefineGlobal64
	OpGetGlobal
	OpGetGlobal16
	OpGetGlobal32
	OpGetGlobal64
	OpSetGlobal
	OpSetGlobal16
	OpSetGlobal32
	OpSetGlobal64
	OpGetLocal
	OpGetLocal16
	OpGetLocal32
	OpGetLocal64
	OpSetLocal
	OpSetLocal16
	OpSetLocal32
	OpSetLocal64
	OpGetUpvalue
	OpGetUpvalue16
	OpGetUpvalue32
	OpGetUpvalue64
	OpSetUpvalue
	OpSetUpvalue16
	OpSetUpvalue32
	OpSetUpvalue64
	OpClosure
	OpClosure16
	OpClosure32
	OpClosure64
	OpClass
	OpClass16
	OpClass32
	OpClass64
	OpAttr // operand: name constant, followed by one tag byte
	OpAttr16
	OpAttr32
	OpAttr64
	OpGetAttr
	OpGetAttr16
	OpGetAttr32
	OpGetAttr64
	OpSetAttr
	OpSetAttr16
	OpSetAttr32
	OpSetAttr64
	OpGetThisAttr
	OpGetThisAttr16
	OpGetThisAttr32
	OpGetThisAttr64
	OpSetThisAttr
	OpSetThisAttr16
	OpSetThisAttr32
	OpSetThisAttr64
	OpArray
	OpArray16
	OpArray32
	OpArray64
	OpCall
	OpCall16
	OpCall32
	OpCall64
	OpJump
	OpJump16
	OpJump32
	OpJump64
	OpJumpIfFalse
	OpJumpIfFalse16
	OpJumpIfFalse32
	OpJumpIfFalse64
	OpLoop
	OpLoop16
	OpLoop32
	OpLoop64

	// single-byte instructions
	OpNull
	OpTrue
	OpFalse
	OpPop
	OpDup
	OpDup2
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpNeg
	OpNot
	OpBitNot
	OpBitAnd
	OpBitOr
	OpBitXor
	OpShl
	OpShr
	OpUShr
	OpEqual
	OpNotEqual
	OpLess
	OpLessEqual
	OpGreater
	OpGreaterEqual
	OpCast // followed by one CastTarget byte
	OpGetIndex
	OpSetIndex
	OpCloseUpvalue
	OpReturn
	OpHalt

	opCount
)

const firstSimpleOp = OpNull

// CastTarget is the operand of OpCast.
type CastTarget byte

const (
	CastBool CastTarget = iota
	CastInt
	CastFloat
	CastStr
)

func (c CastTarget) String() string {
	switch c {
	case CastBool:
		return "bool"
	case CastInt:
		return "int"
	case CastFloat:
		return "float"
	case CastStr:
		return "str"
	default:
		return fmt.Sprintf("cast(%d)", c)
	}
}

// IsWide reports whether op belongs to a four-variant family.
func (op Op) IsWide() bool { return op < firstSimpleOp }

// Base returns the W1 member of op's family and the width op encodes.
func (op Op) Base() (Op, Width) {
	if !op.IsWide() {
		return op, W1
	}
	return op &^ 3, Width(op & 3)
}

// WithWidth returns the family member of base with width w.
func (op Op) WithWidth(w Width) Op {
	base, _ := op.Base()
	return base + Op(w)
}

// IsJump reports whether op is any variant of a branch family.
func (op Op) IsJump() bool {
	base, _ := op.Base()
	return base == OpJump || base == OpJumpIfFalse || base == OpLoop
}

var opNames = [...]string{
	OpConstant:     "CONSTANT",
	OpDefineGlobal: "DEFINE_GLOBAL",
	OpGetGlobal:    "GET_GLOBAL",
	OpSetGlobal:    "SET_GLOBAL",
	OpGetLocal:     "GET_LOCAL",
	OpSetLocal:     "SET_LOCAL",
	OpGetUpvalue:   "GET_UPVALUE",
	OpSetUpvalue:   "SET_UPVALUE",
	OpClosure:      "CLOSURE",
	OpClass:        "CLASS",
	OpAttr:         "ATTR",
	OpGetAttr:      "GET_ATTR",
	OpSetAttr:      "SET_ATTR",
	OpGetThisAttr:  "GET_THIS_ATTR",
	OpSetThisAttr:  "SET_THIS_ATTR",
	OpArray:        "ARRAY",
	OpCall:         "CALL",
	OpJump:         "JUMP",
	OpJumpIfFalse:  "JUMP_IF_FALSE",
	OpLoop:         "LOOP",
	OpNull:         "NULL",
	OpTrue:         "TRUE",
	OpFalse:        "FALSE",
	OpPop:          "POP",
	OpDup:          "DUP",
	OpDup2:         "DUP2",
	OpAdd:          "ADD",
	OpSub:          "SUB",
	OpMul:          "MUL",
	OpDiv:          "DIV",
	OpMod:          "MOD",
	OpNeg:          "NEG",
	OpNot:          "NOT",
	OpBitNot:       "BIT_NOT",
	OpBitAnd:       "BIT_AND",
	OpBitOr:        "BIT_OR",
	OpBitXor:       "BIT_XOR",
	OpShl:          "SHL",
	OpShr:          "SHR",
	OpUShr:         "USHR",
	OpEqual:        "EQUAL",
	OpNotEqual:     "NOT_EQUAL",
	OpLess:         "LESS",
	OpLessEqual:    "LESS_EQUAL",
	OpGreater:      "GREATER",
	OpGreaterEqual: "GREATER_EQUAL",
	OpCast:         "CAST",
	OpGetIndex:     "GET_INDEX",
	OpSetIndex:     "SET_INDEX",
	OpCloseUpvalue: "CLOSE_UPVALUE",
	OpReturn:       "RETURN",
	OpHalt:         "HALT",
}

func (op Op) String() string {
	if op >= opCount {
		return fmt.Sprintf("OP(%d)", byte(op))
	}
	base, w := op.Base()
	name := opNames[base]
	if op.IsWide() && w != W1 {
		return fmt.Sprintf("%s_%d", name, 8*w.Bytes())
	}
	return name
}

// PutOperand writes v big-endian into dst using w bytes. dst must be long enough.
func PutOperand(dst []byte, w Width, v uint64) {
	switch w {
	case W1:
		dst[0] = byte(v)
	case W2:
		binary.BigEndian.PutUint16(dst, uint16(v))
	case W4:
		binary.BigEndian.PutUint32(dst, uint32(v))
	default:
		binary.BigEndian.PutUint64(dst, v)
	}
}

// ReadOperand reads a big-endian operand of width w from code at off.
func ReadOperand(code []byte, off int, w Width) uint64 {
	switch w {
	case W1:
		return uint64(code[off])
	case W2:
		return uint64(binary.BigEndian.Uint16(code[off:]))
	case W4:
		return uint64(binary.BigEndian.Uint32(code[off:]))
	default:
		return binary.BigEndian.Uint64(code[off:])
	}
}
