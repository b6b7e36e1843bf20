package fuzztests

import (
	"io"
	"testing"

	"ember/internal/bytecode"
	"ember/internal/compiler"
	"ember/internal/diag"
	"ember/internal/lexer"
	"ember/internal/object"
	"ember/internal/source"
	"ember/internal/testkit"
)

const maxFuzzInput = 1 << 16 // 64 KiB

func clampInput(input []byte) []byte {
	if len(input) > maxFuzzInput {
		return append([]byte(nil), input[:maxFuzzInput]...)
	}
	return append([]byte(nil), input...)
}

func FuzzLexerTokens(f *testing.F) {
	addCorpusSeeds(f)
	f.Fuzz(func(t *testing.T, input []byte) {
		fs := source.NewFileSet()
		file := fs.Get(fs.AddVirtual("fuzz.em", clampInput(input)))

		bag := diag.NewBag(64)
		tokens := lexer.Tokenize(file, lexer.Options{Reporter: diag.BagReporter{Bag: bag}})
		if err := testkit.CheckTokenInvariants(tokens, file); err != nil {
			t.Fatal(err)
		}
	})
}

func FuzzCompileAndDisassemble(f *testing.F) {
	addCorpusSeeds(f)
	f.Fuzz(func(t *testing.T, input []byte) {
		fs := source.NewFileSet()
		file := fs.Get(fs.AddVirtual("fuzz.em", clampInput(input)))

		heap := object.NewHeap(object.Config{})
		s := compiler.NewSession(heap)
		bag := diag.NewBag(64)
		entry, err := s.Compile(file, compiler.Options{Reporter: diag.BagReporter{Bag: bag}})
		if err != nil {
			if s.Chunk.Len() != 0 {
				t.Fatalf("failed unit left %d bytes in the chunk", s.Chunk.Len())
			}
			return
		}
		if entry < 0 || entry >= s.Chunk.Len() {
			t.Fatalf("entry %d outside chunk of %d bytes", entry, s.Chunk.Len())
		}
		if err := bytecode.Disassemble(io.Discard, s.Chunk, heap, 0, s.Chunk.Len()); err != nil {
			t.Fatalf("disassemble: %v", err)
		}
		if err := testkit.CheckChunkInvariants(s.Chunk, heap); err != nil {
			t.Fatal(err)
		}
	})
}
