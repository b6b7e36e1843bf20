// Package object implements Ember's runtime values, the handle-indexed object heap,
// the open-addressing attribute/intern table and the tracing collector.
package object

import (
	"fmt"
	"math"
)

// ValueKind identifies the runtime type of a Value.
type ValueKind uint8

const (
	// VKUndef marks a declared but not yet defined global slot. Never visible to programs.
	VKUndef ValueKind = iota
	// VKNull represents the null value.
	VKNull
	// VKBool represents a boolean value.
	VKBool
	// VKInt represents a signed 64-bit integer.
	VKInt
	// VKFloat represents an IEEE-754 double.
	VKFloat
	// VKObj represents a reference to a heap object.
	VKObj
)

// String returns a human-readable name for the value kind.
func (k ValueKind) String() string {
	switch k {
	case VKUndef:
		return "undefined"
	case VKNull:
		return "null"
	case VKBool:
		return "bool"
	case VKInt:
		return "int"
	case VKFloat:
		return "float"
	case VKObj:
		return "object"
	default:
		return fmt.Sprintf("ValueKind(%d)", k)
	}
}

// Value is the unit of computation: a small tagged union copied by value.
// Only VKObj aliases shared heap state.
type Value struct {
	Kind ValueKind
	Bool bool
	Int  int64
	F    float64
	H    Handle
}

// Null returns the null value.
func Null() Value { return Value{Kind: VKNull} }

// Undef returns the marker stored in declared-but-undefined global slots.
func Undef() Value { return Value{Kind: VKUndef} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{Kind: VKBool, Bool: b} }

// Int wraps an int64.
func Int(i int64) Value { return Value{Kind: VKInt, Int: i} }

// Float wraps a float64.
func Float(f float64) Value { return Value{Kind: VKFloat, F: f} }

// Obj wraps a heap handle.
func Obj(h Handle) Value { return Value{Kind: VKObj, H: h} }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.Kind == VKNull }

// IsUndef reports whether v is the undefined-global marker.
func (v Value) IsUndef() bool { return v.Kind == VKUndef }

// IsObj reports whether v references a heap object.
func (v Value) IsObj() bool { return v.Kind == VKObj && v.H != NoHandle }

// IsNumber reports whether v is an Int or a Float.
func (v Value) IsNumber() bool { return v.Kind == VKInt || v.Kind == VKFloat }

// Truthy reports whether v counts as true in a condition: everything except null and false.
func (v Value) Truthy() bool {
	switch v.Kind {
	case VKNull, VKUndef:
		return false
	case VKBool:
		return v.Bool
	default:
		return true
	}
}

// AsFloat widens a numeric value to float64.
func (v Value) AsFloat() float64 {
	if v.Kind == VKInt {
		return float64(v.Int)
	}
	return v.F
}

// ValuesEqual compares two values of the same tag. Values of different tags are
// never equal; callers that need the strict-typing error check tags first.
// Strings are interned, so handle identity is content equality.
func ValuesEqual(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case VKNull, VKUndef:
		return true
	case VKBool:
		return a.Bool == b.Bool
	case VKInt:
		return a.Int == b.Int
	case VKFloat:
		return a.F == b.F
	case VKObj:
		return a.H == b.H
	}
	return false
}

// SameBits is like ValuesEqual but treats NaN as equal to itself; used for constant dedup.
func SameBits(a, b Value) bool {
	if a.Kind == VKFloat && b.Kind == VKFloat {
		return math.Float64bits(a.F) == math.Float64bits(b.F)
	}
	return ValuesEqual(a, b)
}
