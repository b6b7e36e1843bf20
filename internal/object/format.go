package object

import (
	"math"
	"strconv"
	"strings"
)

// FormatFloat renders a float the way str() does: shortest round-trip digits,
// with a ".0" suffix for integral values so floats stay distinguishable from ints.
func FormatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatFloat(f, 'f', 1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// Format converts any value to its canonical string form.
func (h *Heap) Format(v Value) string {
	var sb strings.Builder
	h.format(&sb, v, nil)
	return sb.String()
}

func (h *Heap) format(sb *strings.Builder, v Value, seen map[Handle]bool) {
	switch v.Kind {
	case VKUndef:
		sb.WriteString("undefined")
	case VKNull:
		sb.WriteString("null")
	case VKBool:
		sb.WriteString(strconv.FormatBool(v.Bool))
	case VKInt:
		sb.WriteString(strconv.FormatInt(v.Int, 10))
	case VKFloat:
		sb.WriteString(FormatFloat(v.F))
	case VKObj:
		h.formatObject(sb, v.H, seen)
	}
}

func (h *Heap) formatObject(sb *strings.Builder, handle Handle, seen map[Handle]bool) {
	obj, ok := h.Lookup(handle)
	if !ok {
		sb.WriteString("<freed>")
		return
	}
	switch obj.Kind {
	case KindString:
		sb.WriteString(obj.Str)
	case KindArray:
		if seen[handle] {
			sb.WriteString("[...]")
			return
		}
		if seen == nil {
			seen = make(map[Handle]bool)
		}
		seen[handle] = true
		sb.WriteByte('[')
		for i, e := range obj.Elems {
			if i > 0 {
				sb.WriteString(", ")
			}
			h.format(sb, e, seen)
		}
		sb.WriteByte(']')
		delete(seen, handle)
	case KindFunction:
		sb.WriteString("<fn ")
		sb.WriteString(h.nameOf(obj.Name))
		sb.WriteByte('>')
	case KindClosure:
		h.formatObject(sb, obj.Fn, seen)
	case KindNative:
		sb.WriteString("<native ")
		sb.WriteString(h.nameOf(obj.Name))
		sb.WriteByte('>')
	case KindClass:
		sb.WriteString("<class ")
		sb.WriteString(h.nameOf(obj.Name))
		sb.WriteByte('>')
	case KindInstance:
		sb.WriteByte('<')
		sb.WriteString(h.nameOf(h.Get(obj.Class).Name))
		sb.WriteString(" instance>")
	case KindBoundMethod:
		h.format(sb, obj.Method, seen)
	case KindUpvalue:
		sb.WriteString("<upvalue>")
	}
}

func (h *Heap) nameOf(name Handle) string {
	if name == NoHandle {
		return "script"
	}
	return h.Str(name)
}

// TypeName returns the user-facing type name of v.
func (h *Heap) TypeName(v Value) string {
	if v.Kind != VKObj {
		return v.Kind.String()
	}
	switch k := h.KindOf(v); k {
	case KindClosure, KindNative, KindBoundMethod:
		return "function"
	case 0:
		return "object"
	default:
		return k.String()
	}
}
