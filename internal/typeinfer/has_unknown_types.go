package typeinfer

import (
	"fmt"

	"github.com/student/stackscript/internal/ast"
	"github.com/student/stackscript/internal/errors"
)

// HasUnknownTypes is pass 4. It walks the whole tree counting nodes whose
// DataType is still Unknown or Conflict, and collects a TypeError for each
// one found. The fixpoint driver uses the count to decide whether another
// iteration made progress; the caller uses the errors only when the loop
// terminates without full resolution.
func HasUnknownTypes(root *ast.Block, source string) (unresolved, conflicts int, errs []error) {
	ast.Walk(root, func(n ast.Node) {
		dt := n.DataType()
		switch {
		case dt.IsUnknown():
			unresolved++
			errs = append(errs, &errors.TypeError{
				Message:  fmt.Sprintf("could not infer a type for %s", n.String()),
				Position: n.Pos(),
				Source:   source,
			})
		case dt.IsConflict():
			unresolved++
			conflicts++
			errs = append(errs, &errors.TypeError{
				Message:  fmt.Sprintf("conflicting types inferred for %s", n.String()),
				Position: n.Pos(),
				Source:   source,
			})
		}
	})
	return unresolved, conflicts, errs
}
