package codegen

import (
	"fmt"
	"sort"

	"ember/internal/bytecode"
)

// extra returns how many bytes a jump grew beyond its one-byte placeholder.
func extra(j *jumpRecord) int { return j.width.Bytes() - 1 }

// prefixExtra[i] is the summed growth of jumps[0:i]. Jumps are recorded in
// emission order, so positions are strictly increasing.
func prefixExtra(jumps []jumpRecord) []int {
	sum := make([]int, len(jumps)+1)
	for i := range jumps {
		sum[i+1] = sum[i] + extra(&jumps[i])
	}
	return sum
}

// firstAtOrAfter returns the index of the first jump positioned at or after pos.
func firstAtOrAfter(jumps []jumpRecord, pos int) int {
	return sort.Search(len(jumps), func(i int) bool { return jumps[i].pos >= pos })
}

// between sums the growth of jumps positioned in [lo, hi).
func between(jumps []jumpRecord, sum []int, lo, hi int) int {
	if hi <= lo {
		return 0
	}
	return sum[firstAtOrAfter(jumps, hi)] - sum[firstAtOrAfter(jumps, lo)]
}

// relax widens jumps until every operand fits its distance. Widening one jump can
// only lengthen the distances spanned by others, so widths grow monotonically and
// the loop stops once a pass changes nothing.
func relax(jumps []jumpRecord) {
	for {
		sum := prefixExtra(jumps)
		changed := false
		for i := range jumps {
			j := &jumps[i]
			var w bytecode.Width
			if !j.backward {
				// distance runs from the end of the placeholder to the target
				d := j.target - (j.pos + 2) + between(jumps, sum, j.pos+1, j.target)
				w = bytecode.WidthFor(uint64(d))
			} else {
				// the loop's own operand lies inside the span it jumps back over
				d := (j.pos + 2) - j.target + between(jumps, sum, j.target, j.pos)
				w = bytecode.W1
				for bytecode.WidthFor(uint64(d+w.Bytes()-1)) > w {
					w++
				}
			}
			if w > j.width {
				j.width = w
				changed = true
			}
		}
		if !changed {
			return
		}
	}
}

// finalPos maps an intermediate offset to its offset after relaxation, relative
// to the start of the unit.
func finalPos(jumps []jumpRecord, sum []int, pos int) int {
	return pos + sum[firstAtOrAfter(jumps, pos)]
}

func (e *Emitter) rewrite(base int) error {
	jumps := e.jumps
	sum := prefixExtra(jumps)
	code := e.ir.Code
	next := 0
	for off := 0; off < len(code); {
		line := e.ir.LineOf(off)
		if next < len(jumps) && jumps[next].pos == off {
			j := &jumps[next]
			from := finalPos(jumps, sum, j.pos) + 1 + j.width.Bytes()
			to := finalPos(jumps, sum, j.target)
			d := to - from
			if j.backward {
				d = from - to
			}
			if d < 0 || (j.width != bytecode.W8 && uint64(d) >= j.width.Limit()) {
				return fmt.Errorf("codegen: jump at %d: distance %d does not fit %s", j.pos, d, j.width)
			}
			op := bytecode.Op(code[off]).WithWidth(j.width)
			e.dst.WriteOp(op, line)
			e.dst.WriteOperand(uint64(d), j.width, line)
			off += 2
			next++
			continue
		}
		e.dst.Write(code[off], line)
		off++
	}
	for _, f := range e.funcs {
		e.heap.Get(f.fn).Offset = base + finalPos(jumps, sum, f.pos)
	}
	return nil
}
