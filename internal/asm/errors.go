package asm

// errors.go defines the typed diagnostics used throughout the pipeline. Every error kind in the
// spec's error table has a corresponding type here; all of them embed Origin and implement the
// shared Error interface so callers can errors.As a specific kind or just print a uniform message.

import "fmt"

// Origin locates a diagnostic in the original source: the file and line it came from, plus the
// raw (un-expanded) text, when available.
type Origin struct {
	File string
	Line int
	Text string
}

func (o Origin) String() string {
	if o.File == "" && o.Line == 0 {
		return "<unknown>"
	}
	return fmt.Sprintf("%s:%d", o.File, o.Line)
}

// Error is implemented by every diagnostic type in this package.
type Error interface {
	error
	Origin() Origin
}

func originErr(o Origin, kind, msg string) string {
	if o.Text != "" {
		return fmt.Sprintf("%s: %s: %s: %q", o, kind, msg, o.Text)
	}
	return fmt.Sprintf("%s: %s: %s", o, kind, msg)
}

// LexError reports a lexical or syntactic problem: bad directive arity, a missing .ENDM, an
// invalid .IMPORT clause.
type LexError struct {
	Orig Origin
	Msg  string
}

func (e *LexError) Error() string  { return originErr(e.Orig, "lexical error", e.Msg) }
func (e *LexError) Origin() Origin { return e.Orig }

// SemanticError reports an unknown opcode or label, a label/opcode collision, or a duplicate
// label definition.
type SemanticError struct {
	Orig Origin
	Msg  string
}

func (e *SemanticError) Error() string  { return originErr(e.Orig, "semantic error", e.Msg) }
func (e *SemanticError) Origin() Origin { return e.Orig }

// StructuralError reports a nested block, an unexpected end tag, or .PREG outside of .PROC.
type StructuralError struct {
	Orig Origin
	Msg  string
}

func (e *StructuralError) Error() string  { return originErr(e.Orig, "structural error", e.Msg) }
func (e *StructuralError) Origin() Origin { return e.Orig }

// ArityError reports a wrong argument count for a macro, routine, or .WITH clause.
type ArityError struct {
	Orig     Origin
	Name     string
	Want     int
	Got      int
	Variadic bool
}

func (e *ArityError) Error() string {
	return originErr(e.Orig, "arity error",
		fmt.Sprintf("%s: expected %d argument(s), got %d", e.Name, e.Want, e.Got))
}
func (e *ArityError) Origin() Origin { return e.Orig }

// RecursionError reports an expansion cycle or a depth that exceeds the configured limit.
type RecursionError struct {
	Orig  Origin
	Chain []string
}

func (e *RecursionError) Error() string {
	return originErr(e.Orig, "recursion error", fmt.Sprintf("cycle: %v", e.Chain))
}
func (e *RecursionError) Origin() Origin { return e.Orig }

// ABIError reports a .WITH/CALL mismatch: .WITH on a stack-ABI procedure, a non-register actual,
// or a register-ABI procedure called without .WITH.
type ABIError struct {
	Orig Origin
	Msg  string
}

func (e *ABIError) Error() string  { return originErr(e.Orig, "ABI error", e.Msg) }
func (e *ABIError) Origin() Origin { return e.Orig }

// ResolverError reports a placeholder that could not be patched because its label has no
// coordinate.
type ResolverError struct {
	Orig Origin
	Msg  string
}

func (e *ResolverError) Error() string  { return originErr(e.Orig, "resolver error", e.Msg) }
func (e *ResolverError) Origin() Origin { return e.Orig }
