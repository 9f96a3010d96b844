package instantiate

import (
	"testing"

	"github.com/student/stackscript/internal/ast"
	"github.com/student/stackscript/internal/lexer"
	"github.com/student/stackscript/internal/parser"
	"github.com/student/stackscript/internal/typeinfer"
)

func compileBlock(t *testing.T, src string) *ast.Block {
	t.Helper()
	tokens := lexer.New(src).Tokenize()
	block, err := parser.New(tokens, src).GetAst()
	if err != nil {
		t.Fatalf("parse(%q): %v", src, err)
	}
	if _, errs := typeinfer.Run(block, src); len(errs) != 0 {
		t.Fatalf("Run(%q): %v", src, errs)
	}
	return block
}

func TestInstantiateFunctionsExtractsNamedFunction(t *testing.T) {
	block := compileBlock(t, `let add(a, b) = { ret a + b; }; ret add(1, 2);`)
	functions := InstantiateFunctions(block)

	if _, ok := functions["main"]; !ok {
		t.Fatal("expected a synthesized main function")
	}

	var found bool
	for id, fn := range functions {
		if id == "main" {
			continue
		}
		decl, ok := fn.Head.(*ast.Declfn)
		if ok && decl.Name.Name == "add" {
			found = true
			if len(fn.Params) != 2 {
				t.Fatalf("expected 2 params, got %d", len(fn.Params))
			}
		}
	}
	if !found {
		t.Fatal("expected an extracted function for add")
	}
}

func TestInstantiateFunctionsRewritesAssignToFnPtr(t *testing.T) {
	block := compileBlock(t, `let add(a, b) = { ret a + b; }; ret add(1, 2);`)
	InstantiateFunctions(block)

	assign := block.Statements[0].(*ast.Assign)
	if _, ok := assign.LHS.(*ast.Declvar); !ok {
		t.Fatalf("expected LHS rewritten to *ast.Declvar, got %T", assign.LHS)
	}
	if _, ok := assign.RHS.(*ast.FnPtr); !ok {
		t.Fatalf("expected RHS rewritten to *ast.FnPtr, got %T", assign.RHS)
	}
}

func TestInstantiateFunctionsNestedDepth(t *testing.T) {
	src := `let outer() = { let inner() = { ret 1; }; ret inner(); };`
	block := compileBlock(t, src)
	functions := InstantiateFunctions(block)

	var sawOuterDepth0, sawInnerDepth1 bool
	for id := range functions {
		if id == "main" {
			continue
		}
		switch {
		case len(id) > 0 && id[0] == '0':
			sawOuterDepth0 = true
		case len(id) > 0 && id[0] == '1':
			sawInnerDepth1 = true
		}
	}
	if !sawOuterDepth0 || !sawInnerDepth1 {
		t.Fatalf("expected one depth-0 and one depth-1 function id, got %v", keys(functions))
	}
}

func TestAddVoidReturnAppendsMissingReturn(t *testing.T) {
	block := compileBlock(t, `let f() = { let x = 1; };`)
	functions := InstantiateFunctions(block)
	AddVoidReturn(functions)

	for id, fn := range functions {
		if id == "main" {
			continue
		}
		body := fn.Body.(*ast.Block)
		last := body.Statements[len(body.Statements)-1]
		if _, ok := last.(*ast.Ret); !ok {
			t.Fatalf("expected trailing Ret after AddVoidReturn, got %T", last)
		}
	}
}

func keys(m map[string]*ast.Function) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
