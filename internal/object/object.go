package object

import "fmt"

// Handle is an index into the heap's slot arena. Handle(0) is always invalid.
type Handle uint32

// NoHandle is the nil reference.
const NoHandle Handle = 0

// Kind identifies the variant of a heap object.
type Kind uint8

const (
	KindString Kind = iota + 1
	KindArray
	KindFunction
	KindClosure
	KindUpvalue
	KindNative
	KindClass
	KindInstance
	KindBoundMethod
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindFunction:
		return "function"
	case KindClosure:
		return "closure"
	case KindUpvalue:
		return "upvalue"
	case KindNative:
		return "native"
	case KindClass:
		return "class"
	case KindInstance:
		return "instance"
	case KindBoundMethod:
		return "bound method"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// NativeFn is a host function callable from Ember code.
type NativeFn func(args []Value) (Value, error)

// Object is a heap object. Only the fields of its Kind are meaningful.
type Object struct {
	Kind Kind

	// Marked is compared against Heap.markBit; equal means reached this cycle.
	Marked bool
	// Immortal objects are never swept.
	Immortal bool
	// Defined is set once the object is fully initialized.
	Defined bool

	// String
	Str  string
	Hash uint32

	// Array
	Elems []Value

	// Function, Native, Class: Name is an interned string handle.
	Name         Handle
	Arity        int
	Offset       int
	UpvalueCount int

	// Closure
	Fn       Handle
	Upvalues []Handle

	// Upvalue: open while Open is set and Slot indexes the live stack.
	Open   bool
	Slot   int
	Closed Value

	// Native
	Native NativeFn

	// Class, Instance
	Attrs *Table
	Class Handle

	// BoundMethod
	Receiver Value
	Method   Value
}

// Visibility of a class or instance attribute.
type Visibility uint8

const (
	Public Visibility = iota
	Protected
	Private
)

func (v Visibility) String() string {
	switch v {
	case Public:
		return "public"
	case Protected:
		return "protected"
	case Private:
		return "private"
	default:
		return "unknown"
	}
}

// Tag packs visibility, mutability and kind of a table entry into one byte.
// Globals use only the const bit.
type Tag uint8

const (
	tagVisMask Tag = 0b0011
	// TagConst marks a binding that cannot be reassigned.
	TagConst Tag = 0b0100
	// TagMethod marks a method-kind attribute.
	TagMethod Tag = 0b1000
)

// MakeTag builds a tag from its parts.
func MakeTag(vis Visibility, isConst, isMethod bool) Tag {
	t := Tag(vis) & tagVisMask
	if isConst {
		t |= TagConst
	}
	if isMethod {
		t |= TagMethod
	}
	return t
}

// Visibility returns the visibility part.
func (t Tag) Visibility() Visibility { return Visibility(t & tagVisMask) }

// IsConst reports whether the entry is immutable.
func (t Tag) IsConst() bool { return t&TagConst != 0 }

// IsMethod reports whether the entry is a method.
func (t Tag) IsMethod() bool { return t&TagMethod != 0 }

// IsPublic reports whether the entry is visible outside its class.
func (t Tag) IsPublic() bool { return t.Visibility() == Public }

func (t Tag) String() string {
	s := t.Visibility().String()
	if t.IsConst() {
		s += " const"
	}
	if t.IsMethod() {
		s += " method"
	} else {
		s += " field"
	}
	return s
}
