package typeinfer

import (
	"fmt"

	"github.com/student/stackscript/internal/ast"
	"github.com/student/stackscript/internal/errors"
	"github.com/student/stackscript/internal/types"
)

// AllPathsReturn checks every function whose inferred return type is not
// Void: its body must return on every syntactic path. It runs after the
// fixpoint loop (return types must already be resolved) and before
// InstantiateFunctions (it still sees Declfn, not Function).
func AllPathsReturn(root *ast.Block, source string) []error {
	var errs []error

	ast.Walk(root, func(n ast.Node) {
		assign, ok := n.(*ast.Assign)
		if !ok {
			return
		}
		decl, ok := assign.LHS.(*ast.Declfn)
		if !ok {
			return
		}
		fnType := decl.Name.DataType()
		if fnType.Kind != types.KindFunction || fnType.Ret == nil {
			return
		}
		if fnType.Ret.Kind == types.KindSimple && fnType.Ret.Primitive == types.Void {
			return
		}
		if !pathReturns(assign.RHS) {
			errs = append(errs, &errors.TypeError{
				Message:  fmt.Sprintf("%s does not return a value on every path", decl.Name.Name),
				Position: decl.Pos(),
				Source:   source,
			})
		}
	})

	return errs
}

// pathReturns reports whether every execution path through n ends in a Ret.
// A While body never guarantees execution, so a trailing while can never
// satisfy this on its own.
func pathReturns(n ast.Node) bool {
	switch node := n.(type) {
	case *ast.Ret:
		return true
	case *ast.Block:
		if len(node.Statements) == 0 {
			return false
		}
		return pathReturns(node.Statements[len(node.Statements)-1])
	case *ast.If:
		return node.Else != nil && pathReturns(node.Then) && pathReturns(node.Else)
	default:
		return false
	}
}
