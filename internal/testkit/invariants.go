// Package testkit holds structural checks shared by tests and fuzz harnesses.
package testkit

import (
	"fmt"

	"fortio.org/safecast"

	"ember/internal/bytecode"
	"ember/internal/object"
	"ember/internal/source"
	"ember/internal/token"
)

// CheckTokenInvariants verifies a token stream produced for sf:
// 1) every span belongs to sf and lies within its content
// 2) spans are ordered and do not overlap
// 3) the stream ends with exactly one EOF
func CheckTokenInvariants(tokens []token.Token, sf *source.File) error {
	if sf == nil {
		return fmt.Errorf("nil file")
	}
	lenContent, err := safecast.Conv[uint32](len(sf.Content))
	if err != nil {
		return fmt.Errorf("len content overflow: %w", err)
	}
	if len(tokens) == 0 || tokens[len(tokens)-1].Kind != token.EOF {
		return fmt.Errorf("token stream does not end with EOF")
	}
	var prevEnd uint32
	for i, tok := range tokens {
		sp := tok.Span
		if sp.File != sf.ID {
			return fmt.Errorf("token %d: span file mismatch: got=%d want=%d", i, sp.File, sf.ID)
		}
		if sp.End < sp.Start || sp.End > lenContent {
			return fmt.Errorf("token %d: span %v outside content of %d bytes", i, sp, lenContent)
		}
		if sp.Start < prevEnd {
			return fmt.Errorf("token %d: span %v overlaps previous end %d", i, sp, prevEnd)
		}
		if tok.Kind == token.EOF && i != len(tokens)-1 {
			return fmt.Errorf("token %d: EOF before the end of the stream", i)
		}
		prevEnd = sp.End
	}
	return nil
}

// CheckChunkInvariants verifies compiled code:
// 1) every instruction decodes and instructions tile the code exactly
// 2) every branch lands on an instruction boundary inside the code
// 3) line bounds never decrease and the last one is the end of the code
func CheckChunkInvariants(c *bytecode.Chunk, heap *object.Heap) error {
	starts := make(map[int]bool)
	type branch struct{ at, target int }
	var branches []branch

	for off := 0; off < len(c.Code); {
		starts[off] = true
		_, next, err := bytecode.FormatInstruction(c, heap, off)
		if err != nil {
			return fmt.Errorf("decode at %04d: %w", off, err)
		}
		if next <= off || next > len(c.Code) {
			return fmt.Errorf("instruction at %04d ends at %d", off, next)
		}
		op := bytecode.Op(c.Code[off])
		if op.IsJump() {
			base, w := op.Base()
			raw := bytecode.ReadOperand(c.Code, off+1, w)
			d, err := safecast.Conv[int](raw)
			if err != nil {
				return fmt.Errorf("jump at %04d: %w", off, err)
			}
			target := next + d
			if base == bytecode.OpLoop {
				target = next - d
			}
			branches = append(branches, branch{at: off, target: target})
		}
		off = next
	}
	for _, b := range branches {
		if b.target != len(c.Code) && !starts[b.target] {
			return fmt.Errorf("jump at %04d targets %04d, not an instruction start", b.at, b.target)
		}
	}

	var prev uint32
	for i, bound := range c.Lines {
		if bound < prev {
			return fmt.Errorf("line %d bound %d below line %d bound %d", i+1, bound, i, prev)
		}
		prev = bound
	}
	if len(c.Code) > 0 {
		end, err := safecast.Conv[uint32](len(c.Code))
		if err != nil {
			return fmt.Errorf("code size overflow: %w", err)
		}
		if prev != end {
			return fmt.Errorf("line table ends at %d, code at %d", prev, end)
		}
	}
	return nil
}
