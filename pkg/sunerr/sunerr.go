// Package sunerr implements Sun's fixed error taxonomy (spec §7):
// twelve kinds, all fatal once raised at the top level, each carrying an
// optional call-stack trace. It generalizes the teacher's
// pkg/vm/errors.go (RuntimeError/StackFrame) from a single Smalltalk
// runtime-error shape into the full cross-phase taxonomy — lexer and
// parser errors use it too, not just the VM.
package sunerr

import (
	"fmt"
	"strings"
)

// Kind is one of Sun's twelve stable error categories.
type Kind int

const (
	Tokenizer Kind = iota
	Number
	Symbol
	Assign
	Key
	Index
	Attribute
	Type
	Para
	Call
	Run
	Input
)

func (k Kind) String() string {
	switch k {
	case Tokenizer:
		return "Tokenizer"
	case Number:
		return "Number"
	case Symbol:
		return "Symbol"
	case Assign:
		return "Assign"
	case Key:
		return "Key"
	case Index:
		return "Index"
	case Attribute:
		return "Attribute"
	case Type:
		return "Type"
	case Para:
		return "Para"
	case Call:
		return "Call"
	case Run:
		return "Run"
	case Input:
		return "Input"
	default:
		return "Unknown"
	}
}

// Frame is one call-stack entry at the point an error was raised,
// grounded on the teacher's StackFrame (pkg/vm/errors.go).
type Frame struct {
	Method string
	Line   int
}

// Error is Sun's single error type. Every fatal condition in the lexer,
// parser, lowerer, and VM constructs one of these; there is no
// try/catch, so surfacing one always ends the program (spec §7).
type Error struct {
	Kind    Kind
	Message string
	Line    int
	Trace   []Frame
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.Kind, e.Message)
	if e.Line > 0 {
		fmt.Fprintf(&b, " (line %d)", e.Line)
	}
	for _, f := range e.Trace {
		fmt.Fprintf(&b, "\n  at %s (line %d)", f.Method, f.Line)
	}
	return b.String()
}

// New constructs an Error with no trace; WithTrace attaches one once the
// caller is unwinding.
func New(kind Kind, line int, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Line: line}
}

// WithTrace returns a copy of e with trace attached.
func (e *Error) WithTrace(trace []Frame) *Error {
	cp := *e
	cp.Trace = trace
	return &cp
}
