package object_test

import (
	"testing"

	"ember/internal/object"
)

func TestInternStringIdentity(t *testing.T) {
	h := object.NewHeap(object.Config{})
	a := h.InternString("hello")
	b := h.InternString("hel" + "lo")
	if a != b {
		t.Fatalf("content-equal strings got handles %d and %d", a, b)
	}
	if c := h.InternString("world"); c == a {
		t.Fatal("different strings share a handle")
	}
	// NFC: precomposed and decomposed forms intern to one object
	if h.InternString("caf\u00e9") != h.InternString("cafe\u0301") {
		t.Fatal("normalisation did not unify equivalent strings")
	}
	if h.Interned() != 3 {
		t.Fatalf("Interned=%d, want 3", h.Interned())
	}
}

func TestCollectFreesUnreachable(t *testing.T) {
	h := object.NewHeap(object.Config{})
	kept := h.NewArray([]object.Value{object.Obj(h.InternString("inner"))})
	lost := h.NewArray([]object.Value{object.Int(1)})
	h.InternString("garbage")

	roots := object.RootFunc(func(visit func(object.Value)) {
		visit(object.Obj(kept))
	})
	stats := h.Collect(roots)
	if stats.Freed != 2 {
		t.Fatalf("freed %d objects, want 2", stats.Freed)
	}
	if _, ok := h.Lookup(lost); ok {
		t.Fatal("unreachable array survived")
	}
	inner := h.Get(kept).Elems[0]
	if h.Str(inner.H) != "inner" {
		t.Fatal("reachable string was freed")
	}
	if h.Interned() != 1 {
		t.Fatalf("intern set holds %d strings, want 1", h.Interned())
	}
	// a swept string can be interned again
	if g := h.InternString("garbage"); h.Str(g) != "garbage" {
		t.Fatal("re-interning failed")
	}
}

func TestCollectMarkSenseFlips(t *testing.T) {
	h := object.NewHeap(object.Config{})
	arr := h.NewArray(nil)
	roots := object.RootFunc(func(visit func(object.Value)) { visit(object.Obj(arr)) })
	for i := range 3 {
		h.Collect(roots)
		if _, ok := h.Lookup(arr); !ok {
			t.Fatalf("rooted object freed on cycle %d", i+1)
		}
	}
	if h.Cycles() != 3 {
		t.Fatalf("Cycles=%d", h.Cycles())
	}
	h.Collect()
	if _, ok := h.Lookup(arr); ok {
		t.Fatal("object survived without roots")
	}
}

func TestImmortalSurvivesAndTraces(t *testing.T) {
	h := object.NewHeap(object.Config{})
	native := h.NewNative("clock", 0, func([]object.Value) (object.Value, error) {
		return object.Null(), nil
	})
	h.Collect()
	obj, ok := h.Lookup(native)
	if !ok || !obj.Immortal {
		t.Fatal("native was collected")
	}
	if h.Str(obj.Name) != "clock" {
		t.Fatal("native name was collected")
	}
}

func TestCollectTracesClosuresAndInstances(t *testing.T) {
	h := object.NewHeap(object.Config{})
	name := h.InternString("Point")
	class := h.NewClass(name)
	field, fh := h.Key(h.InternString("x"))
	h.Get(class).Attrs.Set(field, fh, 0, object.Obj(h.InternString("payload")))
	inst := h.NewInstance(class)

	fn := h.NewFunction(h.InternString("f"), 0)
	h.Get(fn).UpvalueCount = 1
	clo := h.NewClosure(fn)
	uv := h.NewUpvalue(0)
	h.Get(uv).Open = false
	h.Get(uv).Closed = object.Obj(inst)
	h.Get(clo).Upvalues[0] = uv

	before := h.Live()
	h.Collect(object.RootFunc(func(visit func(object.Value)) { visit(object.Obj(clo)) }))
	if h.Live() != before {
		t.Fatalf("live objects %d -> %d, nothing should be freed", before, h.Live())
	}
}

func TestAllocationAccounting(t *testing.T) {
	h := object.NewHeap(object.Config{InitialThreshold: 256, GrowFactor: 2})
	if h.ShouldCollect() {
		t.Fatal("fresh heap wants collection")
	}
	for range 8 {
		h.NewArray(make([]object.Value, 4))
	}
	if !h.ShouldCollect() {
		t.Fatalf("threshold not crossed: %d <= %d", h.BytesAllocated(), h.NextGC())
	}
	stats := h.Collect()
	if h.BytesAllocated() != 0 || stats.After != 0 {
		t.Fatalf("bytes after full sweep = %d", h.BytesAllocated())
	}
	if h.NextGC() != 256 {
		t.Fatalf("NextGC=%d, want floor 256", h.NextGC())
	}
}

func TestFormat(t *testing.T) {
	h := object.NewHeap(object.Config{})
	arr := h.NewArray([]object.Value{object.Int(1), object.Float(2.5), object.Obj(h.InternString("s")), object.Null()})
	tests := []struct {
		v    object.Value
		want string
	}{
		{object.Int(-7), "-7"},
		{object.Float(3), "3.0"},
		{object.Float(0.1), "0.1"},
		{object.Bool(true), "true"},
		{object.Null(), "null"},
		{object.Obj(arr), "[1, 2.5, s, null]"},
		{object.Obj(h.NewFunction(h.InternString("outer"), 0)), "<fn outer>"},
	}
	for _, tt := range tests {
		if got := h.Format(tt.v); got != tt.want {
			t.Errorf("Format(%+v) = %q, want %q", tt.v, got, tt.want)
		}
	}
	self := h.NewArray(make([]object.Value, 1))
	h.Get(self).Elems[0] = object.Obj(self)
	if got := h.Format(object.Obj(self)); got != "[[...]]" {
		t.Errorf("self-referencing array = %q", got)
	}
}
