package parser

import (
	"testing"

	"github.com/student/stackscript/internal/ast"
	"github.com/student/stackscript/internal/lexer"
)

func parse(t *testing.T, src string) *ast.Block {
	t.Helper()
	tokens := lexer.New(src).Tokenize()
	block, err := New(tokens, src).GetAst()
	if err != nil {
		t.Fatalf("parse(%q): %v", src, err)
	}
	return block
}

func TestParseLiteralExpression(t *testing.T) {
	block := parse(t, "1;")
	if len(block.Statements) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(block.Statements))
	}
	lit, ok := block.Statements[0].(*ast.Literal)
	if !ok {
		t.Fatalf("expected *ast.Literal, got %T", block.Statements[0])
	}
	if lit.Kind != ast.LitInt || lit.Raw != "1" {
		t.Fatalf("expected int literal 1, got %v %q", lit.Kind, lit.Raw)
	}
}

func TestParseInfixPrecedence(t *testing.T) {
	block := parse(t, "1 + 2 * 3;")
	call, ok := block.Statements[0].(*ast.Call)
	if !ok {
		t.Fatalf("expected *ast.Call, got %T", block.Statements[0])
	}
	if call.Callee.Name != "+" {
		t.Fatalf("expected top-level '+', got %q", call.Callee.Name)
	}
	rhs, ok := call.Args[1].(*ast.Call)
	if !ok || rhs.Callee.Name != "*" {
		t.Fatalf("expected right operand to be '*', got %#v", call.Args[1])
	}
}

func TestParseVariableDeclAndAssign(t *testing.T) {
	block := parse(t, "let x: Int = 5;")
	assign, ok := block.Statements[0].(*ast.Assign)
	if !ok {
		t.Fatalf("expected *ast.Assign, got %T", block.Statements[0])
	}
	decl, ok := assign.LHS.(*ast.Declvar)
	if !ok {
		t.Fatalf("expected LHS *ast.Declvar, got %T", assign.LHS)
	}
	if decl.Name.Name != "x" || decl.Name.Annotation != "Int" {
		t.Fatalf("expected x:Int, got %s:%s", decl.Name.Name, decl.Name.Annotation)
	}
}

func TestParseFunctionLiteral(t *testing.T) {
	block := parse(t, "let add(a, b) = { ret a + b; };")
	assign := block.Statements[0].(*ast.Assign)
	decl, ok := assign.LHS.(*ast.Declfn)
	if !ok {
		t.Fatalf("expected *ast.Declfn, got %T", assign.LHS)
	}
	if decl.Name.Name != "add" || len(decl.Params) != 2 {
		t.Fatalf("expected add(a,b), got %s with %d params", decl.Name.Name, len(decl.Params))
	}
	body, ok := assign.RHS.(*ast.Block)
	if !ok || len(body.Statements) != 1 {
		t.Fatalf("expected a 1-statement block body, got %#v", assign.RHS)
	}
}

func TestParseIfElse(t *testing.T) {
	block := parse(t, "if (1) { ret 1; } else { ret 2; }")
	ifNode, ok := block.Statements[0].(*ast.If)
	if !ok {
		t.Fatalf("expected *ast.If, got %T", block.Statements[0])
	}
	if ifNode.Else == nil {
		t.Fatal("expected an else branch")
	}
}

func TestParseWhile(t *testing.T) {
	block := parse(t, "while (1) { ret 1; }")
	if _, ok := block.Statements[0].(*ast.While); !ok {
		t.Fatalf("expected *ast.While, got %T", block.Statements[0])
	}
}

func TestParseCall(t *testing.T) {
	block := parse(t, "foo(1, 2);")
	call, ok := block.Statements[0].(*ast.Call)
	if !ok {
		t.Fatalf("expected *ast.Call, got %T", block.Statements[0])
	}
	if call.Callee.Name != "foo" || len(call.Args) != 2 {
		t.Fatalf("expected foo(1,2), got %s with %d args", call.Callee.Name, len(call.Args))
	}
}

func TestParseStructAccess(t *testing.T) {
	block := parse(t, "a.b.c;")
	access, ok := block.Statements[0].(*ast.StructAccess)
	if !ok {
		t.Fatalf("expected *ast.StructAccess, got %T", block.Statements[0])
	}
	if len(access.Path) != 3 {
		t.Fatalf("expected a 3-segment path, got %d", len(access.Path))
	}
}

func TestParseDeclStruct(t *testing.T) {
	block := parse(t, "struct Point { let x: Int; let y: Int; }")
	decl, ok := block.Statements[0].(*ast.DeclStruct)
	if !ok {
		t.Fatalf("expected *ast.DeclStruct, got %T", block.Statements[0])
	}
	if decl.Name.Name != "Point" || len(decl.Fields) != 2 {
		t.Fatalf("expected Point with 2 fields, got %s with %d", decl.Name.Name, len(decl.Fields))
	}
}

func TestParseExternFn(t *testing.T) {
	block := parse(t, "extern libm::sqrt(x: Float): Float;")
	extern, ok := block.Statements[0].(*ast.ExternFn)
	if !ok {
		t.Fatalf("expected *ast.ExternFn, got %T", block.Statements[0])
	}
	if extern.Library != "libm" || extern.Name.Name != "sqrt" || extern.RetAnnot != "Float" {
		t.Fatalf("unexpected extern decl: %#v", extern)
	}
}

func TestParseErrorReportsFurthestFailure(t *testing.T) {
	tokens := lexer.New("let x = ;").Tokenize()
	_, err := New(tokens, "let x = ;").GetAst()
	if err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestParseEmptySourceFails(t *testing.T) {
	tokens := lexer.New("").Tokenize()
	_, err := New(tokens, "").GetAst()
	if err == nil {
		t.Fatal("expected an error for empty source")
	}
}
