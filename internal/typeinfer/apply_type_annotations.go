package typeinfer

import (
	"fmt"

	"github.com/student/stackscript/internal/ast"
	"github.com/student/stackscript/internal/errors"
	"github.com/student/stackscript/internal/types"
)

// ApplyTypeAnnotations resolves every ": <typename>" annotation written in
// source — on Declvar names, Declfn/ExternFn parameters, and ExternFn return
// types — against the primitive keywords and the struct TypesMap collected
// by CollectTypes. A resolved annotation sets the identifier's DataType
// directly, which seeds InfereIdentifierTypes and short-circuits further
// inference for that name. An annotation naming neither a primitive nor a
// known struct produces a TypeError; the identifier is left Unknown so the
// fixpoint loop can still report it as unresolved if nothing else fixes it.
func ApplyTypeAnnotations(root *ast.Block, known TypesMap, source string) []error {
	var errs []error

	ast.Walk(root, func(n ast.Node) {
		switch node := n.(type) {
		case *ast.Declvar:
			applyIdentifierAnnotation(node.Name, known, source, &errs)
		case *ast.Declfn:
			for _, param := range node.Params {
				applyIdentifierAnnotation(param, known, source, &errs)
			}
		case *ast.ExternFn:
			for _, param := range node.Params {
				applyIdentifierAnnotation(param, known, source, &errs)
			}
			if node.RetAnnot == "" {
				node.Name.SetDataType(types.Simple(types.Void))
				return
			}
			if dt, ok := resolveAnnotation(node.RetAnnot, known); ok {
				node.Name.SetDataType(dt)
				return
			}
			errs = append(errs, &errors.TypeError{
				Message:  fmt.Sprintf("unknown return type %q for extern %s", node.RetAnnot, node.Name.Name),
				Position: node.Pos(),
				Source:   source,
			})
		}
	})

	return errs
}

func applyIdentifierAnnotation(id *ast.Identifier, known TypesMap, source string, errs *[]error) {
	if id.Annotation == "" {
		return
	}
	dt, ok := resolveAnnotation(id.Annotation, known)
	if !ok {
		*errs = append(*errs, &errors.TypeError{
			Message:  fmt.Sprintf("unknown type %q for %s", id.Annotation, id.Name),
			Position: id.Pos(),
			Source:   source,
		})
		return
	}
	id.SetDataType(dt)
}
