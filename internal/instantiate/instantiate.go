// Package instantiate turns the tree of nested function-literal assignments
// left by type inference into the flat id→Function map every later phase
// (validators already ran; the emitter and VM come next) actually consumes.
package instantiate

import (
	"fmt"

	"github.com/student/stackscript/internal/ast"
	"github.com/student/stackscript/internal/types"
)

// InstantiateFunctions walks root, extracting every "let f(params) = body"
// assignment into the returned map under a unique id
// "<depth>_<name>_<type-string>", and rewriting the assignment in place to
// "Declvar(name) = FnPtr(id)". Nested function literals are extracted
// before the function literal enclosing them, so a closure's own id
// reflects its enclosing depth correctly.
//
// The transformed top-level block is then wrapped as a synthetic function
// named "main", whose return type is root's own DataType (the type its last
// value-producing statement left behind, per Block's DataType convention).
// After this call, the map is the only AST surface the emitter sees — no
// Declfn remains anywhere in expression position.
func InstantiateFunctions(root *ast.Block) map[string]*ast.Function {
	functions := map[string]*ast.Function{}
	walk(root, 0, functions)

	mainHead := ast.NewDeclfn(root.Pos(), ast.NewIdentifier(root.Pos(), "main", ""), nil)
	mainHead.Name.SetDataType(types.Function(nil, root.DataType(), false))
	functions["main"] = ast.NewFunction("main", mainHead, root, nil)

	return functions
}

// walk mutates n in place, extracting function literals into functions as it
// finds them. depth counts enclosing function-literal bodies — 0 at the top
// level, incremented for every Declfn body entered.
func walk(n ast.Node, depth int, functions map[string]*ast.Function) {
	switch node := n.(type) {

	case *ast.Block:
		for _, stmt := range node.Statements {
			walk(stmt, depth, functions)
		}

	case *ast.Assign:
		if decl, ok := node.LHS.(*ast.Declfn); ok {
			walk(node.RHS, depth+1, functions)

			fnType := decl.Name.DataType()
			id := fmt.Sprintf("%d_%s_%s", depth, decl.Name.Name, fnType.String())
			functions[id] = ast.NewFunction(id, decl, node.RHS, decl.Params)

			node.LHS = ast.NewDeclvar(decl.Pos(), decl.Name)
			node.RHS = ast.NewFnPtr(decl.Pos(), id, fnType)
			return
		}
		walk(node.RHS, depth, functions)

	case *ast.If:
		walk(node.Cond, depth, functions)
		walk(node.Then, depth, functions)
		if node.Else != nil {
			walk(node.Else, depth, functions)
		}

	case *ast.While:
		walk(node.Cond, depth, functions)
		walk(node.Body, depth, functions)

	case *ast.Ret:
		if node.Expr != nil {
			walk(node.Expr, depth, functions)
		}

	case *ast.Call:
		for _, arg := range node.Args {
			walk(arg, depth, functions)
		}

	default:
		// Identifier, Literal, Declvar, DeclStruct, StructAccess, ExternFn,
		// FnPtr: none can contain a nested function literal.
	}
}

// AddVoidReturn appends Ret(no-expr) to the end of every Void-returning
// function's body that doesn't already end in a Ret. Non-Void functions are
// left untouched — AllPathsReturn already rejected any of those missing a
// return on some path, earlier in the pipeline.
func AddVoidReturn(functions map[string]*ast.Function) {
	for _, fn := range functions {
		if fn.Body == nil {
			continue // ExternFn: no body to touch
		}
		if !isVoidReturning(fn) {
			continue
		}
		if endsInRet(fn.Body) {
			continue
		}
		fn.Body = appendVoidReturn(fn.Body)
	}
}

func isVoidReturning(fn *ast.Function) bool {
	decl, ok := fn.Head.(*ast.Declfn)
	if !ok {
		return false
	}
	fnType := decl.Name.DataType()
	return fnType.Kind == types.KindFunction && fnType.Ret != nil &&
		fnType.Ret.Kind == types.KindSimple && fnType.Ret.Primitive == types.Void
}

func endsInRet(body ast.Node) bool {
	if block, ok := body.(*ast.Block); ok {
		if len(block.Statements) == 0 {
			return false
		}
		_, ok := block.Statements[len(block.Statements)-1].(*ast.Ret)
		return ok
	}
	_, ok := body.(*ast.Ret)
	return ok
}

func appendVoidReturn(body ast.Node) ast.Node {
	voidRet := ast.NewRet(body.Pos(), nil)
	if block, ok := body.(*ast.Block); ok {
		block.Statements = append(block.Statements, voidRet)
		return block
	}
	return ast.NewBlock(body.Pos(), []ast.Node{body, voidRet})
}
