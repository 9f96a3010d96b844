package typeinfer

import "github.com/student/stackscript/internal/ast"

// Run drives the whole type-inference phase described in SPEC_FULL.md
// §4.3–§4.5: ImplicitReturn, then ApplyTypeAnnotations once, then
// InfereIdentifierTypes / InfereParameterTypes / HasUnknownTypes on repeat
// until the program is fully resolved, a conflict is detected, or an
// iteration makes no further progress. CollectTypes runs at the top of every
// iteration since a struct whose fields depend on another struct may only
// become resolvable once that other struct's annotations have settled.
//
// The returned TypesMap is passed on to InstantiateFunctions and the
// emitter, which both need struct layouts. errs is non-empty only when the
// loop terminated without full resolution; FormatErrors renders it for the
// CLI.
func Run(root *ast.Block, source string) (TypesMap, []error) {
	ImplicitReturn(root)

	known := CollectTypes(root, nil)
	annotationErrs := ApplyTypeAnnotations(root, known, source)

	unresolved := -1
	var lastErrs []error

	for {
		known = CollectTypes(root, known)

		idErrs := InfereIdentifierTypes(root, known, source)
		paramErrs := InfereParameterTypes(root, source)
		count, conflicts, unknownErrs := HasUnknownTypes(root, source)

		lastErrs = nil
		lastErrs = append(lastErrs, annotationErrs...)
		lastErrs = append(lastErrs, idErrs...)
		lastErrs = append(lastErrs, paramErrs...)
		lastErrs = append(lastErrs, unknownErrs...)

		if count == 0 {
			return known, nil
		}
		if conflicts > 0 {
			return known, lastErrs
		}
		if unresolved != -1 && count >= unresolved {
			return known, lastErrs
		}
		unresolved = count
	}
}
