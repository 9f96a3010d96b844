// Package typeinfer implements the fixpoint type-inference pipeline:
// ImplicitReturn, CollectTypes/ApplyTypeAnnotations, the
// InfereIdentifierTypes/InfereParameterTypes/HasUnknownTypes loop, and the
// AllPathsReturn validator, in the order SPEC_FULL.md §4.3–§4.4 describes.
package typeinfer

import "github.com/student/stackscript/internal/ast"

// ImplicitReturn rewrites every "let f(params) = EXPR" whose body is
// neither a Block nor a Ret into "let f(params) = Ret(EXPR)". It is a
// no-op on Block/Ret bodies and recurses into every Assign it finds,
// including ones nested inside blocks, so "let outer() = { let inner(x) =
// x + 1; }" gets its inner function rewritten too.
func ImplicitReturn(root *ast.Block) {
	ast.Walk(root, func(n ast.Node) {
		assign, ok := n.(*ast.Assign)
		if !ok {
			return
		}
		if _, isFn := assign.LHS.(*ast.Declfn); !isFn {
			return
		}
		switch assign.RHS.(type) {
		case *ast.Block, *ast.Ret:
			return
		default:
			assign.RHS = ast.NewRet(assign.RHS.Pos(), assign.RHS)
		}
	})
}
