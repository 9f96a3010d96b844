// Package errors renders stackscript diagnostics with source context: a
// marked-up line of the offending source plus a caret pointing at the exact
// rune column, the same visual convention used by every phase of the
// pipeline (parser, inference, VM).
package errors

import (
	"fmt"
	"strings"

	"github.com/student/stackscript/pkg/token"
)

// MarkedCode renders one line of src with a caret under pos. Column
// counting matches the lexer's rune-based convention (internal/lexer), so
// the caret lands under the exact offending rune even when earlier runes on
// the line are multi-byte.
func MarkedCode(src string, pos token.Position) string {
	lines := strings.Split(src, "\n")
	if pos.Line < 0 || pos.Line >= len(lines) {
		return ""
	}
	line := lines[pos.Line]
	runes := []rune(line)
	col := pos.Column
	if col < 0 {
		col = 0
	}
	if col > len(runes) {
		col = len(runes)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%4d | %s\n", pos.Line+1, line)
	sb.WriteString(strings.Repeat(" ", 7+col))
	sb.WriteString("^")
	return sb.String()
}

// ParseError is the furthest-token diagnostic the parser accumulates: it
// names what was expected, what was actually found, and where.
type ParseError struct {
	Expected string
	Found    token.Token
	Source   string
}

func (e *ParseError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "parse error at %s: expected %s, found %s %q\n",
		e.Found.Position, e.Expected, e.Found.Kind, e.Found.Lexeme)
	if marked := MarkedCode(e.Source, e.Found.Position); marked != "" {
		sb.WriteString(marked)
	}
	return sb.String()
}

// TypeError is a single location-annotated message from type inference or
// annotation application.
type TypeError struct {
	Message  string
	Position token.Position
	Source   string
}

func (e *TypeError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "type error at %s: %s\n", e.Position, e.Message)
	if marked := MarkedCode(e.Source, e.Position); marked != "" {
		sb.WriteString(marked)
	}
	return sb.String()
}

// ConstraintViolated signals an internal invariant failure: an AST shape the
// pipeline should never have produced, an FFI misuse, or an unreachable
// branch actually reached. It is always fatal — the caller crosses it up to
// the executable boundary and terminates.
type ConstraintViolated struct {
	Message string
	Stack   StackTrace
}

func (e *ConstraintViolated) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "constraint violated: %s\n", e.Message)
	if len(e.Stack) > 0 {
		sb.WriteString(e.Stack.String())
	}
	return sb.String()
}

// NewConstraintViolated builds a ConstraintViolated carrying the given call
// stack, oldest frame first.
func NewConstraintViolated(message string, stack StackTrace) *ConstraintViolated {
	return &ConstraintViolated{Message: message, Stack: stack}
}

// Todo marks an intentionally unimplemented path (e.g. float arithmetic in
// the VM ALU). Reaching one is fatal, same as ConstraintViolated, but it
// documents "not yet built" rather than "should be impossible".
type Todo struct {
	Message string
}

func (e *Todo) Error() string {
	return fmt.Sprintf("todo: %s", e.Message)
}

// FormatErrors joins several errors with a blank line between each,
// matching how the CLI reports aggregated TypeErrors.
func FormatErrors(errs []error) string {
	parts := make([]string, len(errs))
	for i, e := range errs {
		parts[i] = e.Error()
	}
	return strings.Join(parts, "\n\n")
}
