package object

import (
	"fmt"
	"hash/fnv"

	"golang.org/x/text/unicode/norm"
)

const (
	objectHeaderSize = 64
	valueSize        = 32
	handleSize       = 4
	entrySize        = 48
)

// Config tunes collection pacing.
type Config struct {
	// InitialThreshold is the allocation volume (bytes) before the first collection
	// and the floor for every later threshold.
	InitialThreshold int
	// GrowFactor multiplies the surviving volume to get the next threshold.
	GrowFactor int
}

// DefaultConfig returns the pacing used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		InitialThreshold: 1 << 20,
		GrowFactor:       2,
	}
}

// Heap stores all runtime objects in an arena of slots addressed by Handle.
// Released slots are recycled through a free list.
type Heap struct {
	slots []*Object
	sizes []int
	free  []Handle

	strings    *Table // weak intern set
	immortals  []Handle
	cfg        Config
	markBit    bool
	gray       []Handle
	bytesAlloc int
	nextGC     int
	cycles     int
}

// NewHeap creates an empty heap.
func NewHeap(cfg Config) *Heap {
	def := DefaultConfig()
	if cfg.InitialThreshold <= 0 {
		cfg.InitialThreshold = def.InitialThreshold
	}
	if cfg.GrowFactor <= 1 {
		cfg.GrowFactor = def.GrowFactor
	}
	return &Heap{
		slots:   make([]*Object, 1, 128), // slot 0 backs NoHandle
		sizes:   make([]int, 1, 128),
		strings: NewTable(),
		cfg:     cfg,
		nextGC:  cfg.InitialThreshold,
	}
}

func (h *Heap) alloc(obj *Object, size int) Handle {
	obj.Marked = !h.markBit
	var handle Handle
	if n := len(h.free); n > 0 {
		handle = h.free[n-1]
		h.free = h.free[:n-1]
		h.slots[handle] = obj
		h.sizes[handle] = size
	} else {
		handle = Handle(len(h.slots))
		h.slots = append(h.slots, obj)
		h.sizes = append(h.sizes, size)
	}
	h.bytesAlloc += size
	return handle
}

// Get returns the object behind handle. An invalid handle is a VM bug and panics.
func (h *Heap) Get(handle Handle) *Object {
	if handle == NoHandle || int(handle) >= len(h.slots) || h.slots[handle] == nil {
		panic(fmt.Errorf("invalid heap handle %d", handle))
	}
	return h.slots[handle]
}

// Lookup returns the object behind handle if it is live.
func (h *Heap) Lookup(handle Handle) (*Object, bool) {
	if handle == NoHandle || int(handle) >= len(h.slots) {
		return nil, false
	}
	obj := h.slots[handle]
	return obj, obj != nil
}

// KindOf returns the object kind referenced by v, or 0 for scalars.
func (h *Heap) KindOf(v Value) Kind {
	if !v.IsObj() {
		return 0
	}
	obj, ok := h.Lookup(v.H)
	if !ok {
		return 0
	}
	return obj.Kind
}

// Is reports whether v references an object of kind k.
func (h *Heap) Is(v Value, k Kind) bool {
	return h.KindOf(v) == k
}

// Live returns the number of live objects.
func (h *Heap) Live() int {
	return len(h.slots) - 1 - len(h.free)
}

// BytesAllocated returns the estimated live allocation volume.
func (h *Heap) BytesAllocated() int { return h.bytesAlloc }

// NextGC returns the allocation volume at which ShouldCollect turns true.
func (h *Heap) NextGC() int { return h.nextGC }

// Cycles returns the number of completed collections.
func (h *Heap) Cycles() int { return h.cycles }

// ShouldCollect reports whether allocation has crossed the collection threshold.
func (h *Heap) ShouldCollect() bool {
	return h.bytesAlloc > h.nextGC
}

// HashString computes the FNV-1a hash used for every string key.
func HashString(s string) uint32 {
	f := fnv.New32a()
	_, _ = f.Write([]byte(s)) //nolint:errcheck
	return f.Sum32()
}

// InternString returns the unique string object with content s (after NFC normalisation).
func (h *Heap) InternString(s string) Handle {
	s = norm.NFC.String(s)
	hash := HashString(s)
	if found := h.strings.FindString(s, hash, h.stringContent); found != NoHandle {
		return found
	}
	handle := h.alloc(&Object{Kind: KindString, Str: s, Hash: hash, Defined: true}, objectHeaderSize+len(s))
	h.strings.Set(handle, hash, 0, Null())
	return handle
}

func (h *Heap) stringContent(handle Handle) string {
	return h.slots[handle].Str
}

// Interned returns the number of live interned strings.
func (h *Heap) Interned() int { return h.strings.Len() }

// Str returns the content of a string handle.
func (h *Heap) Str(handle Handle) string {
	obj := h.Get(handle)
	if obj.Kind != KindString {
		panic(fmt.Errorf("handle %d is %s, not string", handle, obj.Kind))
	}
	return obj.Str
}

// Key returns the handle and hash of a string used as a table key.
func (h *Heap) Key(handle Handle) (Handle, uint32) {
	return handle, h.Get(handle).Hash
}

// NewArray allocates an array holding a copy of elems.
func (h *Heap) NewArray(elems []Value) Handle {
	arr := make([]Value, len(elems))
	copy(arr, elems)
	return h.alloc(&Object{Kind: KindArray, Elems: arr, Defined: true}, objectHeaderSize+valueSize*len(arr))
}

// NewFunction allocates a function prototype. Its offset is fixed up after relaxation.
func (h *Heap) NewFunction(name Handle, arity int) Handle {
	return h.alloc(&Object{Kind: KindFunction, Name: name, Arity: arity, Defined: true}, objectHeaderSize)
}

// NewClosure allocates a closure over fn. The closure is not Defined until its
// upvalues are filled in.
func (h *Heap) NewClosure(fn Handle) Handle {
	n := h.Get(fn).UpvalueCount
	return h.alloc(&Object{Kind: KindClosure, Fn: fn, Upvalues: make([]Handle, n)}, objectHeaderSize+handleSize*n)
}

// NewUpvalue allocates an open upvalue aliasing stack slot.
func (h *Heap) NewUpvalue(slot int) Handle {
	return h.alloc(&Object{Kind: KindUpvalue, Open: true, Slot: slot, Defined: true}, objectHeaderSize)
}

// NewNative allocates an immortal native function.
func (h *Heap) NewNative(name string, arity int, fn NativeFn) Handle {
	nameH := h.InternString(name)
	h.MakeImmortal(nameH)
	handle := h.alloc(&Object{Kind: KindNative, Name: nameH, Arity: arity, Native: fn, Defined: true}, objectHeaderSize)
	h.MakeImmortal(handle)
	return handle
}

// NewClass allocates a class with an empty attribute table.
func (h *Heap) NewClass(name Handle) Handle {
	return h.alloc(&Object{Kind: KindClass, Name: name, Attrs: NewTable(), Defined: true}, objectHeaderSize+entrySize*DefaultTableCap)
}

// NewInstance allocates an instance whose attributes are a snapshot of the class table.
func (h *Heap) NewInstance(class Handle) Handle {
	attrs := h.Get(class).Attrs.Clone()
	return h.alloc(&Object{Kind: KindInstance, Class: class, Attrs: attrs, Defined: true}, objectHeaderSize+entrySize*attrs.Cap())
}

// NewBoundMethod pairs a receiver with a method value.
func (h *Heap) NewBoundMethod(receiver, method Value) Handle {
	return h.alloc(&Object{Kind: KindBoundMethod, Receiver: receiver, Method: method, Defined: true}, objectHeaderSize+2*valueSize)
}

// MakeImmortal exempts handle from collection.
func (h *Heap) MakeImmortal(handle Handle) {
	obj := h.Get(handle)
	if obj.Immortal {
		return
	}
	obj.Immortal = true
	h.immortals = append(h.immortals, handle)
}

// FreeAll releases every object, immortal ones included. Used at shutdown.
func (h *Heap) FreeAll() {
	h.slots = h.slots[:1]
	h.sizes = h.sizes[:1]
	h.free = h.free[:0]
	h.immortals = h.immortals[:0]
	h.gray = h.gray[:0]
	h.strings = NewTable()
	h.bytesAlloc = 0
	h.nextGC = h.cfg.InitialThreshold
}
