package vm

import (
	"fmt"
	"strings"

	"fortio.org/safecast"

	"ember/internal/source"
)

// Code identifies the kind of runtime error.
type Code int

// Stable error codes - do not change values.
const (
	TypeMismatch   Code = 1001 // VM1001: operand types do not fit the operator
	DivideByZero   Code = 1002 // VM1002: integer or float division by zero
	NegativeShift  Code = 1003 // VM1003: shift by a negative count
	OutOfBounds    Code = 1004 // VM1004: index outside the array or string
	Undefined      Code = 1005 // VM1005: undefined global or attribute
	NotCallable    Code = 1006 // VM1006: callee is not a function or class
	Arity          Code = 1007 // VM1007: wrong number of arguments
	Visibility     Code = 1008 // VM1008: non-public attribute accessed from outside
	ConstViolation Code = 1009 // VM1009: write to a const attribute
	StackOverflow  Code = 1010 // VM1010: value stack or frame stack exhausted
	StackUnderflow Code = 1011 // VM1011: pop from an empty stack
	BadCast        Code = 1012 // VM1012: cast has no result for the value
	HostFailure    Code = 1013 // VM1013: native function failed (I/O)
	BadBytecode    Code = 1999 // VM1999: malformed instruction stream
)

// String returns the code as "VM1001".
func (c Code) String() string {
	return fmt.Sprintf("VM%d", int(c))
}

// Title is a short human name for the code.
func (c Code) Title() string {
	switch c {
	case TypeMismatch:
		return "type mismatch"
	case DivideByZero:
		return "division by zero"
	case NegativeShift:
		return "negative shift"
	case OutOfBounds:
		return "index out of bounds"
	case Undefined:
		return "undefined"
	case NotCallable:
		return "not callable"
	case Arity:
		return "arity mismatch"
	case Visibility:
		return "visibility"
	case ConstViolation:
		return "const violation"
	case StackOverflow:
		return "stack overflow"
	case StackUnderflow:
		return "stack underflow"
	case BadCast:
		return "bad cast"
	case HostFailure:
		return "host failure"
	default:
		return "internal error"
	}
}

// TraceFrame is one call frame of a runtime error backtrace.
type TraceFrame struct {
	Func string
	Line int
}

// Error is a runtime error raised by the engine.
type Error struct {
	Code    Code
	Message string
	// Line of the failing instruction, 0 when unknown.
	Line int
	// Frames from innermost to outermost.
	Trace []TraceFrame
}

func (e *Error) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("runtime error %s: %s [line %d]", e.Code, e.Message, e.Line)
	}
	return fmt.Sprintf("runtime error %s: %s", e.Code, e.Message)
}

// FormatWithSource renders the error with the failing line quoted from file and
// a backtrace. file may be nil.
func (e *Error) FormatWithSource(file *source.File) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "runtime error %s: %s\n", e.Code, e.Message)
	if e.Line > 0 {
		path := "<input>"
		if file != nil {
			path = file.Path
		}
		fmt.Fprintf(&sb, "at %s:%d\n", path, e.Line)
		if file != nil {
			if n, err := safecast.Conv[uint32](e.Line); err == nil {
				if text := file.Line(n); text != "" {
					fmt.Fprintf(&sb, "  | %s\n", strings.TrimRight(text, " \t"))
				}
			}
		}
	}
	if len(e.Trace) > 1 {
		sb.WriteString("backtrace:\n")
		for i, f := range e.Trace {
			fmt.Fprintf(&sb, "  %d: %s at line %d\n", i, f.Func, f.Line)
		}
	}
	return sb.String()
}

// errorBuilder constructs errors located at the instruction being executed.
type errorBuilder struct {
	vm *VM
}

func (eb *errorBuilder) makeError(code Code, msg string) *Error {
	vm := eb.vm
	e := &Error{Code: code, Message: msg}
	if vm.chunk == nil {
		return e
	}
	e.Line = vm.chunk.LineOf(vm.opStart)

	// top to bottom; a caller is positioned on its call instruction
	pos := vm.opStart
	e.Trace = make([]TraceFrame, 0, len(vm.frames))
	for i := len(vm.frames) - 1; i >= 0; i-- {
		f := &vm.frames[i]
		e.Trace = append(e.Trace, TraceFrame{Func: vm.frameName(f), Line: vm.chunk.LineOf(pos)})
		pos = f.Resume - 1
	}
	return e
}

func (eb *errorBuilder) errorf(code Code, format string, args ...any) *Error {
	return eb.makeError(code, fmt.Sprintf(format, args...))
}

func (eb *errorBuilder) typeMismatch(op string, a, b string) *Error {
	if b == "" {
		return eb.errorf(TypeMismatch, "operator %s does not apply to %s", op, a)
	}
	return eb.errorf(TypeMismatch, "operator %s does not apply to %s and %s", op, a, b)
}

func (eb *errorBuilder) outOfBounds(index int64, length int) *Error {
	return eb.errorf(OutOfBounds, "index %d out of bounds for length %d", index, length)
}

func (eb *errorBuilder) arity(name string, want, got int) *Error {
	return eb.errorf(Arity, "%s expects %d arguments, got %d", name, want, got)
}
