package object_test

import (
	"fmt"
	"testing"

	"ember/internal/object"
)

func TestTableGrowthKeepsLoadFactor(t *testing.T) {
	h := object.NewHeap(object.Config{})
	tbl := object.NewTable()
	keys := make([]object.Handle, 0, 500)
	for i := range 500 {
		k := h.InternString(fmt.Sprintf("key%d", i))
		keys = append(keys, k)
		_, hash := h.Key(k)
		if !tbl.Set(k, hash, 0, object.Int(int64(i))) {
			t.Fatalf("key%d reported as existing", i)
		}
		if tbl.Count()*4 > tbl.Cap()*3 {
			t.Fatalf("load factor exceeded after %d inserts: count=%d cap=%d", i+1, tbl.Count(), tbl.Cap())
		}
		for j, prev := range keys {
			_, ph := h.Key(prev)
			e, ok := tbl.Get(prev, ph)
			if !ok || e.Value.Int != int64(j) {
				t.Fatalf("key%d lost after %d inserts", j, i+1)
			}
		}
	}
	if tbl.Len() != 500 {
		t.Fatalf("Len=%d, want 500", tbl.Len())
	}
}

func TestTableDefaultCapacity(t *testing.T) {
	h := object.NewHeap(object.Config{})
	tbl := object.NewTable()
	if tbl.Cap() != 0 {
		t.Fatalf("empty table allocated %d slots", tbl.Cap())
	}
	k, hash := h.Key(h.InternString("a"))
	tbl.Set(k, hash, 0, object.Null())
	if tbl.Cap() != object.DefaultTableCap {
		t.Fatalf("cap=%d, want %d", tbl.Cap(), object.DefaultTableCap)
	}
}

func TestTableDeleteLeavesTombstone(t *testing.T) {
	h := object.NewHeap(object.Config{})
	tbl := object.NewTable()
	var keys []object.Handle
	for i := range 5 {
		k := h.InternString(fmt.Sprintf("k%d", i))
		keys = append(keys, k)
		_, hash := h.Key(k)
		tbl.Set(k, hash, 0, object.Int(int64(i)))
	}
	_, h2 := h.Key(keys[2])
	if !tbl.Delete(keys[2], h2) {
		t.Fatal("delete of present key failed")
	}
	if tbl.Delete(keys[2], h2) {
		t.Fatal("second delete succeeded")
	}
	if tbl.Len() != 4 || tbl.Count() != 5 {
		t.Fatalf("Len=%d Count=%d, want 4/5", tbl.Len(), tbl.Count())
	}
	for i, k := range keys {
		_, hash := h.Key(k)
		_, ok := tbl.Get(k, hash)
		if ok != (i != 2) {
			t.Fatalf("key k%d presence=%v", i, ok)
		}
	}
	// reinsertion reuses the tombstone
	tbl.Set(keys[2], h2, 0, object.Int(42))
	if tbl.Count() != 5 {
		t.Fatalf("Count=%d after reinsert, want 5", tbl.Count())
	}
	e, ok := tbl.Get(keys[2], h2)
	if !ok || e.Value.Int != 42 {
		t.Fatalf("reinserted entry = %+v, %v", e, ok)
	}
}

func TestTableTagsAndUpdate(t *testing.T) {
	h := object.NewHeap(object.Config{})
	tbl := object.NewTable()
	k, hash := h.Key(h.InternString("secret"))
	tag := object.MakeTag(object.Private, true, false)
	tbl.Set(k, hash, tag, object.Int(1))
	if !tbl.Update(k, hash, object.Int(2)) {
		t.Fatal("update failed")
	}
	e, _ := tbl.Get(k, hash)
	if e.Tag != tag || e.Value.Int != 2 {
		t.Fatalf("entry = %+v", e)
	}
	if !e.Tag.IsConst() || e.Tag.IsPublic() || e.Tag.IsMethod() {
		t.Fatalf("tag decode wrong: %s", e.Tag)
	}
}

func TestTableCloneIsSnapshot(t *testing.T) {
	h := object.NewHeap(object.Config{})
	src := object.NewTable()
	k, hash := h.Key(h.InternString("x"))
	src.Set(k, hash, 0, object.Int(1))
	dst := src.Clone()
	dst.Update(k, hash, object.Int(9))
	e, _ := src.Get(k, hash)
	if e.Value.Int != 1 {
		t.Fatalf("clone aliases source: %d", e.Value.Int)
	}
}

func TestTableFindStringByContent(t *testing.T) {
	h := object.NewHeap(object.Config{})
	tbl := object.NewTable()
	content := map[object.Handle]string{}
	for i, s := range []string{"alpha", "beta", "gamma"} {
		k := h.NewArray(nil) // any distinct handle; content comes from the map
		content[k] = s
		tbl.Set(k, object.HashString(s), 0, object.Int(int64(i)))
	}
	lookup := func(k object.Handle) string { return content[k] }

	found := tbl.FindString("beta", object.HashString("beta"), lookup)
	if content[found] != "beta" {
		t.Fatalf("FindString(beta) = %d (%q)", found, content[found])
	}
	if got := tbl.FindString("delta", object.HashString("delta"), lookup); got != object.NoHandle {
		t.Fatalf("FindString(delta) = %d, want NoHandle", got)
	}
	tbl.Delete(found, object.HashString("beta"))
	if got := tbl.FindString("beta", object.HashString("beta"), lookup); got != object.NoHandle {
		t.Fatalf("deleted key still found: %d", got)
	}
	if got := tbl.FindString("gamma", object.HashString("gamma"), lookup); content[got] != "gamma" {
		t.Fatal("lookup past a tombstone failed")
	}
}

func TestTableAddAllSkipsTombstones(t *testing.T) {
	h := object.NewHeap(object.Config{})
	src := object.NewTable()
	var keys []object.Handle
	for i := range 4 {
		k := h.InternString(fmt.Sprintf("f%d", i))
		keys = append(keys, k)
		_, hash := h.Key(k)
		src.Set(k, hash, object.Tag(i), object.Int(int64(i)))
	}
	_, h0 := h.Key(keys[0])
	src.Delete(keys[0], h0)

	dst := object.NewTable()
	src.AddAll(dst)
	if dst.Len() != 3 || dst.Count() != 3 {
		t.Fatalf("dst Len=%d Count=%d, want 3/3", dst.Len(), dst.Count())
	}
	for i, k := range keys[1:] {
		_, hash := h.Key(k)
		e, ok := dst.Get(k, hash)
		if !ok || e.Value.Int != int64(i+1) || e.Tag != object.Tag(i+1) {
			t.Fatalf("f%d copied as %+v, %v", i+1, e, ok)
		}
	}
}
