package codegen

import (
	"testing"

	"ember/internal/bytecode"
)

func TestRelaxEightByteBoundary(t *testing.T) {
	tests := []struct {
		name  string
		jumps []jumpRecord
		want  []bytecode.Width
	}{
		{
			name:  "forward just below 2^32",
			jumps: []jumpRecord{{pos: 0, target: 2 + 0xFFFFFFFF}},
			want:  []bytecode.Width{bytecode.W4},
		},
		{
			name:  "forward at 2^32",
			jumps: []jumpRecord{{pos: 0, target: 2 + 0x100000000}},
			want:  []bytecode.Width{bytecode.W8},
		},
		{
			// body + opcode + 4 byte operand = 2^32 exactly
			name:  "backward own operand crosses",
			jumps: []jumpRecord{{pos: 0xFFFFFFFB, target: 0, backward: true}},
			want:  []bytecode.Width{bytecode.W8},
		},
		{
			name: "growth of a spanned jump",
			jumps: []jumpRecord{
				{pos: 0, target: 2 + 0xFFFFFFFF},
				{pos: 10, target: 20 + 0x100000000},
			},
			want: []bytecode.Width{bytecode.W8, bytecode.W8},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			relax(tt.jumps)
			for i, j := range tt.jumps {
				if j.width != tt.want[i] {
					t.Fatalf("jump %d: width %s, want %s", i, j.width, tt.want[i])
				}
			}
		})
	}
}

func TestRelaxIsStableOnSecondPass(t *testing.T) {
	jumps := []jumpRecord{
		{pos: 0, target: 0x200},
		{pos: 4, target: 0x100},
		{pos: 0x300, target: 2, backward: true},
	}
	relax(jumps)
	first := make([]bytecode.Width, len(jumps))
	for i, j := range jumps {
		first[i] = j.width
	}
	relax(jumps)
	for i, j := range jumps {
		if j.width != first[i] {
			t.Fatalf("jump %d changed from %s to %s", i, first[i], j.width)
		}
	}
}
