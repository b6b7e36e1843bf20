package object

// RootSource enumerates values that keep heap objects alive.
type RootSource interface {
	VisitRoots(visit func(Value))
}

// RootFunc adapts a function to RootSource.
type RootFunc func(visit func(Value))

// VisitRoots implements RootSource.
func (f RootFunc) VisitRoots(visit func(Value)) { f(visit) }

// CollectStats summarises one collection cycle.
type CollectStats struct {
	Cycle        int
	Before       int
	After        int
	Freed        int
	StringsSwept int
	NextGC       int
}

// Collect runs a full mark/sweep cycle. Marking uses the flipping markBit sense,
// so no clearing pass is needed between cycles.
func (h *Heap) Collect(roots ...RootSource) CollectStats {
	stats := CollectStats{Cycle: h.cycles + 1, Before: h.bytesAlloc}

	for _, handle := range h.immortals {
		h.markHandle(handle)
	}
	for _, r := range roots {
		if r != nil {
			r.VisitRoots(h.markValue)
		}
	}
	for len(h.gray) > 0 {
		handle := h.gray[len(h.gray)-1]
		h.gray = h.gray[:len(h.gray)-1]
		h.blacken(handle)
	}

	// intern set is weak
	stats.StringsSwept = h.strings.RemoveIf(func(e Entry) bool {
		obj := h.slots[e.Key]
		return obj.Marked != h.markBit && !obj.Immortal
	})

	for i := 1; i < len(h.slots); i++ {
		obj := h.slots[i]
		if obj == nil || obj.Immortal || obj.Marked == h.markBit {
			continue
		}
		h.bytesAlloc -= h.sizes[i]
		h.slots[i] = nil
		h.sizes[i] = 0
		h.free = append(h.free, Handle(i))
		stats.Freed++
	}

	h.markBit = !h.markBit
	h.cycles++
	h.nextGC = h.bytesAlloc * h.cfg.GrowFactor
	if h.nextGC < h.cfg.InitialThreshold {
		h.nextGC = h.cfg.InitialThreshold
	}
	stats.After = h.bytesAlloc
	stats.NextGC = h.nextGC
	return stats
}

func (h *Heap) markValue(v Value) {
	if v.IsObj() {
		h.markHandle(v.H)
	}
}

func (h *Heap) markHandle(handle Handle) {
	if handle == NoHandle || int(handle) >= len(h.slots) {
		return
	}
	obj := h.slots[handle]
	if obj == nil || obj.Marked == h.markBit {
		return
	}
	obj.Marked = h.markBit
	h.gray = append(h.gray, handle)
}

// blacken marks everything a gray object references.
func (h *Heap) blacken(handle Handle) {
	obj := h.slots[handle]
	switch obj.Kind {
	case KindString:
	case KindArray:
		for _, v := range obj.Elems {
			h.markValue(v)
		}
	case KindFunction, KindNative:
		h.markHandle(obj.Name)
	case KindClosure:
		h.markHandle(obj.Fn)
		for _, uv := range obj.Upvalues {
			h.markHandle(uv)
		}
	case KindUpvalue:
		h.markValue(obj.Closed)
	case KindClass:
		h.markHandle(obj.Name)
		h.markTable(obj.Attrs)
	case KindInstance:
		h.markHandle(obj.Class)
		h.markTable(obj.Attrs)
	case KindBoundMethod:
		h.markValue(obj.Receiver)
		h.markValue(obj.Method)
	}
}

func (h *Heap) markTable(t *Table) {
	if t == nil {
		return
	}
	for e := range t.All() {
		h.markHandle(e.Key)
		h.markValue(e.Value)
	}
}
