package errors

import (
	"strings"
	"testing"

	"github.com/student/stackscript/pkg/token"
)

func TestMarkedCodePlacesCaretAtColumn(t *testing.T) {
	src := "let x = 1;\nret x + y;"
	marked := MarkedCode(src, token.Position{Line: 1, Column: 8})
	lines := strings.Split(marked, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected a source line and a caret line, got %q", marked)
	}
	if !strings.Contains(lines[0], "ret x + y;") {
		t.Fatalf("expected the offending line to be rendered, got %q", lines[0])
	}
	caretCol := strings.Index(lines[1], "^")
	if caretCol != 7+8 {
		t.Fatalf("expected caret at column %d, got %d in %q", 7+8, caretCol, lines[1])
	}
}

func TestMarkedCodeClampsOutOfRangeColumn(t *testing.T) {
	src := "x"
	marked := MarkedCode(src, token.Position{Line: 0, Column: 99})
	if marked == "" {
		t.Fatal("expected a clamped caret line, not empty output")
	}
}

func TestMarkedCodeOutOfRangeLineReturnsEmpty(t *testing.T) {
	if got := MarkedCode("a\nb", token.Position{Line: 5, Column: 0}); got != "" {
		t.Fatalf("expected empty string for an out-of-range line, got %q", got)
	}
}

func TestParseErrorIncludesExpectedAndFound(t *testing.T) {
	err := &ParseError{
		Expected: "';'",
		Found:    token.Token{Kind: token.Identifier, Lexeme: "foo", Position: token.Position{Line: 0, Column: 4}},
		Source:   "let x foo",
	}
	msg := err.Error()
	if !strings.Contains(msg, "expected ';'") || !strings.Contains(msg, `"foo"`) {
		t.Fatalf("expected a message naming the expectation and the found token, got %q", msg)
	}
}

func TestTypeErrorIncludesMessage(t *testing.T) {
	err := &TypeError{Message: "conflicting types", Position: token.Position{Line: 2, Column: 1}, Source: "a\nb\nc"}
	if !strings.Contains(err.Error(), "conflicting types") {
		t.Fatalf("expected the message to appear verbatim, got %q", err.Error())
	}
}

func TestConstraintViolatedIncludesStack(t *testing.T) {
	stack := StackTrace{
		{FunctionName: "main"},
		{FunctionName: "fact", Position: &token.Position{Line: 3, Column: 0}},
	}
	err := NewConstraintViolated("unreachable branch", stack)
	msg := err.Error()
	if !strings.Contains(msg, "unreachable branch") || !strings.Contains(msg, "fact") {
		t.Fatalf("expected message and stack frames, got %q", msg)
	}
}

func TestStackTraceStringIsMostRecentFirst(t *testing.T) {
	stack := StackTrace{{FunctionName: "outer"}, {FunctionName: "inner"}}
	lines := strings.Split(stack.String(), "\n")
	if lines[0] != "inner" || lines[1] != "outer" {
		t.Fatalf("expected inner before outer, got %v", lines)
	}
}

func TestStackTraceTopAndDepth(t *testing.T) {
	var empty StackTrace
	if empty.Top() != nil {
		t.Fatal("expected a nil Top for an empty trace")
	}
	if empty.Depth() != 0 {
		t.Fatalf("expected depth 0, got %d", empty.Depth())
	}

	stack := StackTrace{{FunctionName: "a"}, {FunctionName: "b"}}
	if stack.Top().FunctionName != "b" {
		t.Fatalf("expected Top to be the last-pushed frame, got %q", stack.Top().FunctionName)
	}
	if stack.Depth() != 2 {
		t.Fatalf("expected depth 2, got %d", stack.Depth())
	}
}

func TestTodoError(t *testing.T) {
	err := &Todo{Message: "float arithmetic"}
	if err.Error() != "todo: float arithmetic" {
		t.Fatalf("unexpected Todo message: %q", err.Error())
	}
}

func TestFormatErrorsJoinsWithBlankLine(t *testing.T) {
	errs := []error{
		&Todo{Message: "first"},
		&Todo{Message: "second"},
	}
	out := FormatErrors(errs)
	if !strings.Contains(out, "todo: first\n\ntodo: second") {
		t.Fatalf("expected errors joined by a blank line, got %q", out)
	}
}
