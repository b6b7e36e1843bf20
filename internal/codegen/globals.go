package codegen

import (
	"errors"
	"fmt"

	"ember/internal/bytecode"
	"ember/internal/object"
)

var (
	// ErrRedefined reports a second declaration of a name in the same scope.
	ErrRedefined = errors.New("already defined in this scope")
	// ErrConstAssign reports assignment to a const binding.
	ErrConstAssign = errors.New("cannot assign to const binding")
)

// Globals is the compile-time name table for global variables. At runtime globals
// are addressed only by dense slot index into Chunk.Globals.
// The table persists across REPL lines so later input sees earlier declarations.
type Globals struct {
	heap  *object.Heap
	chunk *bytecode.Chunk
	names *object.Table
	order []object.Handle
	// forward references turned into declarations, undone by Rollback
	adopted []adoption
}

type adoption struct {
	key  object.Handle
	mark int
}

// NewGlobals creates an empty name table bound to chunk's global slots.
func NewGlobals(heap *object.Heap, chunk *bytecode.Chunk) *Globals {
	return &Globals{
		heap:  heap,
		chunk: chunk,
		names: object.NewTable(),
	}
}

// tagDeclared marks names that went through Declare; names only referenced so far
// (a function body calling a global defined further down) lack it.
const tagDeclared object.Tag = 1 << 7

// Declare reserves a slot for name, or adopts the slot of an earlier forward
// reference. Declaring a name twice is an error.
func (g *Globals) Declare(name string, isConst bool) (int, error) {
	key, hash := g.heap.Key(g.heap.InternString(name))
	tag := object.MakeTag(object.Public, isConst, false) | tagDeclared
	if e, ok := g.names.Get(key, hash); ok {
		if e.Tag&tagDeclared != 0 {
			return 0, fmt.Errorf("global %q %w", name, ErrRedefined)
		}
		g.names.Set(key, hash, tag, e.Value)
		g.adopted = append(g.adopted, adoption{key: key, mark: len(g.order)})
		return int(e.Value.Int), nil
	}
	return g.add(key, hash, tag), nil
}

// Reference returns the slot of name, reserving an undeclared one if needed.
// Reading a slot that is never defined fails at runtime.
func (g *Globals) Reference(name string) (idx int, isConst bool) {
	key, hash := g.heap.Key(g.heap.InternString(name))
	if e, ok := g.names.Get(key, hash); ok {
		return int(e.Value.Int), e.Tag.IsConst()
	}
	return g.add(key, hash, object.MakeTag(object.Public, false, false)), false
}

func (g *Globals) add(key object.Handle, hash uint32, tag object.Tag) int {
	idx := g.chunk.AddGlobal()
	g.heap.MakeImmortal(key)
	g.names.Set(key, hash, tag, object.Int(int64(idx)))
	g.order = append(g.order, key)
	return idx
}

// Resolve returns the slot and const-ness of a declared name.
func (g *Globals) Resolve(name string) (idx int, isConst bool, ok bool) {
	key, hash := g.heap.Key(g.heap.InternString(name))
	e, found := g.names.Get(key, hash)
	if !found || e.Tag&tagDeclared == 0 {
		return 0, false, false
	}
	return int(e.Value.Int), e.Tag.IsConst(), true
}

// DefineNative binds a host value to a new const global.
func (g *Globals) DefineNative(name string, v object.Value) error {
	idx, err := g.Declare(name, true)
	if err != nil {
		return err
	}
	g.chunk.Globals[idx] = v
	return nil
}

// Len returns the number of declared globals.
func (g *Globals) Len() int { return len(g.order) }

// Names returns declared names in declaration order.
func (g *Globals) Names() []string {
	out := make([]string, len(g.order))
	for i, h := range g.order {
		out[i] = g.heap.Str(h)
	}
	return out
}

// Mark returns a checkpoint for Rollback.
func (g *Globals) Mark() int { return len(g.order) }

// Rollback forgets every global declared after mark and releases their slots.
// Used when a REPL line fails to compile.
func (g *Globals) Rollback(mark int) {
	if mark < 0 {
		return
	}
	for n := len(g.adopted); n > 0 && g.adopted[n-1].mark >= mark; n-- {
		a := g.adopted[n-1]
		_, hash := g.heap.Key(a.key)
		if e, ok := g.names.Get(a.key, hash); ok {
			g.names.Set(a.key, hash, object.MakeTag(object.Public, false, false), e.Value)
		}
		g.adopted = g.adopted[:n-1]
	}
	if mark >= len(g.order) {
		return
	}
	first := len(g.chunk.Globals)
	for _, key := range g.order[mark:] {
		_, hash := g.heap.Key(key)
		if e, ok := g.names.Get(key, hash); ok && int(e.Value.Int) < first {
			first = int(e.Value.Int)
		}
		g.names.Delete(key, hash)
	}
	g.order = g.order[:mark]
	// slots are handed out in declaration order, so the rolled back ones form the tail
	g.chunk.Globals = g.chunk.Globals[:first]
}
