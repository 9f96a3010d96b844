package typeinfer

import (
	"fmt"

	"github.com/student/stackscript/internal/ast"
	"github.com/student/stackscript/internal/errors"
)

// InfereParameterTypes is pass 3. For every Call whose callee is still
// Unknown (InfereIdentifierTypes found no binding — typically because the
// function's own parameter types are what's missing, so its Declfn was
// skipped), it finds the nearest Declfn with that name in the tree and
// back-propagates each argument's already-resolved type onto the matching
// parameter Identifier. The next fixpoint iteration's InfereIdentifierTypes
// pass can then bind the function using those freshly-typed parameters.
func InfereParameterTypes(root *ast.Block, source string) []error {
	var errs []error
	decls := collectDeclfns(root)

	ast.Walk(root, func(n ast.Node) {
		call, ok := n.(*ast.Call)
		if !ok {
			return
		}
		if !call.Callee.DataType().IsUnknown() {
			return
		}
		decl, ok := decls[call.Callee.Name]
		if !ok {
			return
		}
		if len(decl.Params) != len(call.Args) {
			errs = append(errs, &errors.TypeError{
				Message:  fmt.Sprintf("%s expects %d argument(s), got %d", decl.Name.Name, len(decl.Params), len(call.Args)),
				Position: call.Pos(),
				Source:   source,
			})
			return
		}
		for i, param := range decl.Params {
			argType := call.Args[i].DataType()
			if !argType.IsResolved() {
				continue
			}
			assignType(param, argType, source, &errs)
		}
	})

	return errs
}

// collectDeclfns indexes every function-literal declaration in the tree by
// name, for InfereParameterTypes' back-propagation lookup.
func collectDeclfns(root *ast.Block) map[string]*ast.Declfn {
	out := map[string]*ast.Declfn{}
	ast.Walk(root, func(n ast.Node) {
		assign, ok := n.(*ast.Assign)
		if !ok {
			return
		}
		decl, ok := assign.LHS.(*ast.Declfn)
		if !ok {
			return
		}
		out[decl.Name.Name] = decl
	})
	return out
}
