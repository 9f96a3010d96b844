package errors

import (
	"fmt"
	"strings"

	"github.com/student/stackscript/pkg/token"
)

// StackFrame is one frame of a ConstraintViolated's call stack: the
// function that was executing and, when known, its source position.
type StackFrame struct {
	FunctionName string
	Position     *token.Position
}

// String formats a frame as "FunctionName [line: N, column: M]", or just
// the function name when no position is available (e.g. a VM-internal
// frame with no source mapping).
func (sf StackFrame) String() string {
	if sf.Position == nil {
		return sf.FunctionName
	}
	return fmt.Sprintf("%s [line: %d, column: %d]", sf.FunctionName, sf.Position.Line+1, sf.Position.Column+1)
}

// StackTrace is a call stack ordered oldest-frame-first (index 0 is the
// bottom of the stack).
type StackTrace []StackFrame

// String prints the trace most-recent-frame-first, one per line.
func (st StackTrace) String() string {
	if len(st) == 0 {
		return ""
	}
	var sb strings.Builder
	for i := len(st) - 1; i >= 0; i-- {
		sb.WriteString(st[i].String())
		if i > 0 {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// Top returns the most recently pushed frame, or nil if the trace is empty.
func (st StackTrace) Top() *StackFrame {
	if len(st) == 0 {
		return nil
	}
	return &st[len(st)-1]
}

// Depth returns the number of frames in the trace.
func (st StackTrace) Depth() int { return len(st) }
