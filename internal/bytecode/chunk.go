package bytecode

import (
	"fmt"
	"math"
	"sort"

	"fortio.org/safecast"

	"ember/internal/object"
)

// Chunk is one compiled program: instruction bytes, constant pool, the global slot
// array and a compact line table.
//
// Lines[L-1] is the exclusive upper bound of the code offsets emitted for source
// line L, so LineOf(off) is the first L with off < Lines[L-1].
type Chunk struct {
	Code      []byte
	Constants []object.Value
	Globals   []object.Value
	Lines     []uint32

	index map[constKey]int
}

// NewChunk returns an empty chunk.
func NewChunk() *Chunk {
	return &Chunk{
		Code:      make([]byte, 0, 256),
		Constants: make([]object.Value, 0, 16),
	}
}

// Len returns the current code length.
func (c *Chunk) Len() int { return len(c.Code) }

// Write appends one byte attributed to source line.
func (c *Chunk) Write(b byte, line int) {
	c.Code = append(c.Code, b)
	c.markLine(line)
}

// WriteOp appends an opcode.
func (c *Chunk) WriteOp(op Op, line int) {
	c.Write(byte(op), line)
}

// WriteOperand appends v big-endian in w bytes.
func (c *Chunk) WriteOperand(v uint64, w Width, line int) {
	var buf [8]byte
	PutOperand(buf[:], w, v)
	c.Code = append(c.Code, buf[:w.Bytes()]...)
	c.markLine(line)
}

// markLine extends the line table so the current end of code belongs to line.
// Emission for a line earlier than the last recorded one is attributed to the last line.
func (c *Chunk) markLine(line int) {
	if line < 1 {
		line = 1
	}
	if line < len(c.Lines) {
		line = len(c.Lines)
	}
	end, err := safecast.Conv[uint32](len(c.Code))
	if err != nil {
		panic(fmt.Errorf("code size overflow: %w", err))
	}
	for len(c.Lines) < line-1 {
		c.Lines = append(c.Lines, c.lastBound())
	}
	if len(c.Lines) < line {
		c.Lines = append(c.Lines, end)
		return
	}
	c.Lines[line-1] = end
}

func (c *Chunk) lastBound() uint32 {
	if len(c.Lines) == 0 {
		return 0
	}
	return c.Lines[len(c.Lines)-1]
}

// LineOf returns the 1-based source line of the instruction at off, or 0 if unknown.
func (c *Chunk) LineOf(off int) int {
	if off < 0 {
		return 0
	}
	i := sort.Search(len(c.Lines), func(i int) bool {
		return uint64(off) < uint64(c.Lines[i])
	})
	if i == len(c.Lines) {
		return 0
	}
	return i + 1
}

// AddConstant appends v to the pool and returns its index. Scalars and strings are
// deduplicated; functions always get a fresh slot.
func (c *Chunk) AddConstant(v object.Value, heap *object.Heap) int {
	shared := v.Kind != object.VKObj || heap.Is(v, object.KindString)
	if shared {
		if c.index == nil {
			c.index = make(map[constKey]int)
		}
		k := keyOf(v)
		if i, ok := c.index[k]; ok && i < len(c.Constants) && object.SameBits(c.Constants[i], v) {
			return i
		}
		c.index[k] = len(c.Constants)
	}
	c.Constants = append(c.Constants, v)
	return len(c.Constants) - 1
}

type constKey struct {
	kind object.ValueKind
	bits uint64
}

func keyOf(v object.Value) constKey {
	k := constKey{kind: v.Kind}
	switch v.Kind {
	case object.VKBool:
		if v.Bool {
			k.bits = 1
		}
	case object.VKInt:
		k.bits = uint64(v.Int)
	case object.VKFloat:
		k.bits = math.Float64bits(v.F)
	case object.VKObj:
		k.bits = uint64(v.H)
	}
	return k
}

// AddGlobal reserves a new undefined global slot and returns its index.
func (c *Chunk) AddGlobal() int {
	c.Globals = append(c.Globals, object.Undef())
	return len(c.Globals) - 1
}

// VisitRoots reports every constant and global as a collector root.
func (c *Chunk) VisitRoots(visit func(object.Value)) {
	for _, v := range c.Constants {
		visit(v)
	}
	for _, v := range c.Globals {
		visit(v)
	}
}
