package typeinfer

import (
	"fmt"

	"github.com/student/stackscript/internal/ast"
	"github.com/student/stackscript/internal/errors"
	"github.com/student/stackscript/internal/types"
)

// InfereIdentifierTypes is pass 2 of the fixpoint loop. It walks the tree
// once with a scoped name→DataType stack, binding every declaration it
// meets and resolving every reference it can against what's bound so far.
// Names it cannot find are left Unknown and reported, not thrown — a later
// fixpoint iteration, or InfereParameterTypes, may still resolve them.
func InfereIdentifierTypes(root *ast.Block, known TypesMap, source string) []error {
	var errs []error
	scopes := newScopeStack()
	scopes.push(builtinFrame())
	inferNode(root, scopes, known, source, &errs)
	return errs
}

func inferNode(n ast.Node, scopes *scopeStack, known TypesMap, source string, errs *[]error) {
	switch node := n.(type) {

	case *ast.Block:
		scopes.push(map[string]types.DataType{})
		for _, stmt := range node.Statements {
			inferNode(stmt, scopes, known, source, errs)
		}
		scopes.pop()
		node.SetDataType(types.Simple(types.Void))
		if len(node.Statements) > 0 {
			last := node.Statements[len(node.Statements)-1]
			switch last.(type) {
			case *ast.Call, *ast.Literal, *ast.Identifier, *ast.StructAccess, *ast.Ret:
				node.SetDataType(last.DataType())
			}
		}

	case *ast.Declvar:
		scopes.bind(node.Name.Name, node.Name.DataType())
		node.SetDataType(node.Name.DataType())

	case *ast.DeclStruct:
		if dt, ok := known[node.Name.Name]; ok {
			node.Name.SetDataType(dt)
		} else {
			node.Name.SetDataType(types.Simple(types.StructTag))
		}
		node.SetDataType(types.Simple(types.Void))
		for _, field := range node.Fields {
			field.SetDataType(field.Name.DataType())
		}

	case *ast.Assign:
		inferAssign(node, scopes, known, source, errs)
		if decl, ok := node.LHS.(*ast.Declfn); ok {
			decl.SetDataType(decl.Name.DataType())
		}

	case *ast.Call:
		for _, arg := range node.Args {
			inferNode(arg, scopes, known, source, errs)
		}
		if t, ok := scopes.lookup(node.Callee.Name); ok {
			assignType(node.Callee, t, source, errs)
			if t.Kind == types.KindFunction && t.Ret != nil {
				node.SetDataType(*t.Ret)
			}
			if isArithmeticOperator(node.Callee.Name) && anyFloatOperand(node.Args) {
				*errs = append(*errs, &errors.Todo{
					Message: fmt.Sprintf("float operand to %q: the VM ALU only implements integer arithmetic", node.Callee.Name),
				})
				node.SetDataType(types.ConflictType())
			}
		} else {
			*errs = append(*errs, &errors.TypeError{
				Message:  fmt.Sprintf("undeclared identifier %q", node.Callee.Name),
				Position: node.Callee.Pos(),
				Source:   source,
			})
		}

	case *ast.Ret:
		if node.Expr != nil {
			inferNode(node.Expr, scopes, known, source, errs)
			node.SetDataType(node.Expr.DataType())
		}

	case *ast.If:
		inferNode(node.Cond, scopes, known, source, errs)
		inferNode(node.Then, scopes, known, source, errs)
		if node.Else != nil {
			inferNode(node.Else, scopes, known, source, errs)
		}
		node.SetDataType(types.Simple(types.Void))

	case *ast.While:
		inferNode(node.Cond, scopes, known, source, errs)
		inferNode(node.Body, scopes, known, source, errs)
		node.SetDataType(types.Simple(types.Void))

	case *ast.StructAccess:
		inferStructAccess(node, scopes, known, source, errs)

	case *ast.ExternFn:
		inferExternFn(node, scopes, known, source, errs)
		node.SetDataType(types.Simple(types.Void))

	case *ast.Identifier:
		if t, ok := scopes.lookup(node.Name); ok {
			assignType(node, t, source, errs)
		} else {
			*errs = append(*errs, &errors.TypeError{
				Message:  fmt.Sprintf("undeclared identifier %q", node.Name),
				Position: node.Pos(),
				Source:   source,
			})
		}

	case *ast.Literal:
		// already typed at construction

	default:
		// FnPtr and Function only appear after InstantiateFunctions, past
		// the point this pass ever runs.
	}
}

func inferAssign(node *ast.Assign, scopes *scopeStack, known TypesMap, source string, errs *[]error) {
	switch lhs := node.LHS.(type) {

	case *ast.Declvar:
		inferNode(node.RHS, scopes, known, source, errs)
		assignType(lhs.Name, node.RHS.DataType(), source, errs)
		lhs.SetDataType(lhs.Name.DataType())
		scopes.bind(lhs.Name.Name, lhs.Name.DataType())
		node.SetDataType(lhs.Name.DataType())

	case *ast.Declfn:
		paramFrame := map[string]types.DataType{}
		for _, p := range lhs.Params {
			paramFrame[p.Name] = p.DataType()
		}
		// Bind the function's own name into its own frame, using whatever
		// type a previous fixpoint iteration already settled on lhs.Name —
		// this is what lets a recursive call inside the body resolve
		// without waiting for the outer-scope bind below, which only
		// happens once the body has already been walked.
		if t := lhs.Name.DataType(); t.IsResolved() {
			paramFrame[lhs.Name.Name] = t
		}
		scopes.push(paramFrame)
		inferNode(node.RHS, scopes, known, source, errs)
		retType := inferReturnType(node.RHS)
		scopes.pop()

		allParamsResolved := true
		paramTypes := make([]types.DataType, len(lhs.Params))
		for i, p := range lhs.Params {
			paramTypes[i] = p.DataType()
			if !p.DataType().IsResolved() {
				allParamsResolved = false
			}
		}
		if allParamsResolved {
			fnType := types.Function(paramTypes, retType, false)
			assignType(lhs.Name, fnType, source, errs)
			scopes.bind(lhs.Name.Name, lhs.Name.DataType())
		}
		node.SetDataType(types.Simple(types.Void))

	case *ast.Identifier:
		inferNode(node.RHS, scopes, known, source, errs)
		assignType(lhs, node.RHS.DataType(), source, errs)
		scopes.bind(lhs.Name, lhs.DataType())
		node.SetDataType(lhs.DataType())

	case *ast.StructAccess:
		inferNode(node.RHS, scopes, known, source, errs)
		inferStructAccess(lhs, scopes, known, source, errs)
		if tailType, ok := tailFieldType(lhs); ok {
			assignType(lhs, tailType, source, errs)
		}
		node.SetDataType(node.RHS.DataType())
	}
}

// inferStructAccess resolves a chain of ≥2 identifiers by looking up the
// head name's type in the scope stack, then walking each subsequent
// identifier against the preceding struct's field list.
func inferStructAccess(node *ast.StructAccess, scopes *scopeStack, known TypesMap, source string, errs *[]error) {
	head := node.Path[0]
	headType, ok := scopes.lookup(head.Name)
	if !ok {
		*errs = append(*errs, &errors.TypeError{
			Message:  fmt.Sprintf("undeclared identifier %q", head.Name),
			Position: head.Pos(),
			Source:   source,
		})
		return
	}
	assignType(head, headType, source, errs)

	current := headType
	for _, field := range node.Path[1:] {
		if current.Kind != types.KindStruct {
			*errs = append(*errs, &errors.TypeError{
				Message:  fmt.Sprintf("%q is not a struct", current.String()),
				Position: field.Pos(),
				Source:   source,
			})
			return
		}
		sf, ok := current.Field(field.Name)
		if !ok {
			*errs = append(*errs, &errors.TypeError{
				Message:  fmt.Sprintf("struct %s has no field %q", current.Name, field.Name),
				Position: field.Pos(),
				Source:   source,
			})
			return
		}
		assignType(field, sf.Type, source, errs)
		current = sf.Type
	}
	node.SetDataType(current)
}

// tailFieldType re-resolves the DataType of a StructAccess's final path
// element, used by Assign to type-check the value being stored through it.
func tailFieldType(node *ast.StructAccess) (types.DataType, bool) {
	tail := node.Path[len(node.Path)-1]
	if tail.DataType().IsResolved() {
		return tail.DataType(), true
	}
	return types.DataType{}, false
}

func inferExternFn(node *ast.ExternFn, scopes *scopeStack, known TypesMap, source string, errs *[]error) {
	paramTypes := make([]types.DataType, len(node.Params))
	allResolved := true
	for i, p := range node.Params {
		paramTypes[i] = p.DataType()
		if !p.DataType().IsResolved() {
			allResolved = false
		}
	}
	if !allResolved {
		return
	}
	retType := node.Name.DataType()
	if !retType.IsResolved() {
		retType = types.Simple(types.Void)
	}
	fnType := types.Function(paramTypes, retType, true)
	node.Name.SetDataType(fnType)
	scopes.bind(node.Name.Name, fnType)
}

// inferReturnType scans a function body for Ret nodes, stopping at nested
// function literals (their returns belong to the inner function, not this
// one), and derives the enclosing function's return type from them: Void if
// none are found, the common resolved type if every Ret agrees, Conflict if
// they disagree.
func inferReturnType(body ast.Node) types.DataType {
	var rets []*ast.Ret
	collectRets(body, &rets)
	if len(rets) == 0 {
		return types.Simple(types.Void)
	}

	result := retType(rets[0])
	for _, r := range rets[1:] {
		t := retType(r)
		if !t.IsResolved() || !result.IsResolved() {
			if result.IsUnknown() {
				result = t
			}
			continue
		}
		if !t.Equal(result) {
			return types.ConflictType()
		}
	}
	return result
}

func retType(r *ast.Ret) types.DataType {
	if r.Expr == nil {
		return types.Simple(types.Void)
	}
	return r.Expr.DataType()
}

func collectRets(n ast.Node, out *[]*ast.Ret) {
	if n == nil {
		return
	}
	if assign, ok := n.(*ast.Assign); ok {
		if _, isFn := assign.LHS.(*ast.Declfn); isFn {
			return
		}
	}
	if ret, ok := n.(*ast.Ret); ok {
		*out = append(*out, ret)
	}
	for _, child := range n.Children() {
		collectRets(child, out)
	}
}

// isArithmeticOperator reports whether name is one of the builtin "+ - * /
// %" operators builtinFrame preloads as (Int,Int)->Int — the only ones the
// VM ALU actually implements (SPEC_FULL.md §9's carried-over Open
// Question on float arithmetic).
func isArithmeticOperator(name string) bool {
	switch name {
	case "+", "-", "*", "/", "%":
		return true
	default:
		return false
	}
}

// anyFloatOperand reports whether any of args has already resolved to
// Float. Operators are preloaded with Int params, so nothing would
// otherwise catch a Float argument type-checking cleanly against them.
func anyFloatOperand(args []ast.Node) bool {
	for _, arg := range args {
		dt := arg.DataType()
		if dt.Kind == types.KindSimple && dt.Primitive == types.Float {
			return true
		}
	}
	return false
}

// assignType applies the idempotent-setDataType rule from SPEC_FULL.md
// §4.4: an Unknown slot takes t; an equal resolved slot is left alone; a
// different resolved slot transitions to Conflict and reports why.
func assignType(node ast.Node, t types.DataType, source string, errs *[]error) {
	if !t.IsResolved() {
		return
	}
	current := node.DataType()
	switch {
	case current.IsUnknown():
		node.SetDataType(t)
	case current.IsConflict():
		// already broken; nothing more to report
	case current.Equal(t):
		// idempotent
	default:
		node.SetDataType(types.ConflictType())
		*errs = append(*errs, &errors.TypeError{
			Message:  fmt.Sprintf("conflicting types for %s: %s vs %s", node.String(), current.String(), t.String()),
			Position: node.Pos(),
			Source:   source,
		})
	}
}
