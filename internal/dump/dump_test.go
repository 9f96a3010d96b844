package dump

import (
	"strings"
	"testing"

	"github.com/student/stackscript/internal/bytecode"
	"github.com/student/stackscript/internal/instantiate"
	"github.com/student/stackscript/internal/lexer"
	"github.com/student/stackscript/internal/parser"
	"github.com/student/stackscript/internal/typeinfer"
	"github.com/student/stackscript/pkg/token"
)

func TestTokensHumanFormat(t *testing.T) {
	tokens := lexer.New("let x = 1;").Tokenize()
	out := Tokens(tokens, FormatHuman)
	if !strings.Contains(out, "Let") {
		t.Fatalf("expected a human dump mentioning the Let kind, got %q", out)
	}
}

func TestTokensJSONFormat(t *testing.T) {
	tokens := lexer.New("let x = 1;").Tokenize()
	out := Tokens(tokens, FormatJSON)
	if !strings.Contains(out, `"kind": "Let"`) {
		t.Fatalf("expected a JSON array with kind Let, got %s", out)
	}
	if !strings.Contains(out, `"line": 1`) {
		t.Fatalf("expected 1-based line numbers, got %s", out)
	}
}

func TestTokensJSONOneIndexesLineAndColumn(t *testing.T) {
	tokens := []token.Token{{Kind: token.Identifier, Lexeme: "x", Position: token.Position{Line: 0, Column: 0}}}
	out := Tokens(tokens, FormatJSON)
	if !strings.Contains(out, `"line": 1`) || !strings.Contains(out, `"column": 1`) {
		t.Fatalf("expected zero-based positions rendered 1-indexed, got %s", out)
	}
}

func TestASTJSONIncludesChildren(t *testing.T) {
	tokens := lexer.New("ret 1 + 2;").Tokenize()
	block, err := parser.New(tokens, "ret 1 + 2;").GetAst()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	out := AST(block, FormatJSON)
	if !strings.Contains(out, `"children"`) {
		t.Fatalf("expected a children array in the AST dump, got %s", out)
	}
	if !strings.Contains(out, `"type"`) || !strings.Contains(out, `"repr"`) {
		t.Fatalf("expected type and repr fields, got %s", out)
	}
}

func TestASTHumanFormat(t *testing.T) {
	tokens := lexer.New("ret 1;").Tokenize()
	block, err := parser.New(tokens, "ret 1;").GetAst()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	out := AST(block, FormatHuman)
	if out == "" {
		t.Fatal("expected a non-empty human dump")
	}
}

func TestFunctionsJSONSortedByID(t *testing.T) {
	src := `let b() = { ret 1; }; let a() = { ret 2; }; ret 0;`
	tokens := lexer.New(src).Tokenize()
	block, err := parser.New(tokens, src).GetAst()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, errs := typeinfer.Run(block, src); len(errs) != 0 {
		t.Fatalf("Run: %v", errs)
	}
	functions := instantiate.InstantiateFunctions(block)
	out := Functions(functions, FormatJSON)
	if !strings.Contains(out, `"id"`) {
		t.Fatalf("expected every entry to carry its function id, got %s", out)
	}
}

func TestProgramJSONIncludesEntryPoint(t *testing.T) {
	src := `ret 42;`
	tokens := lexer.New(src).Tokenize()
	block, err := parser.New(tokens, src).GetAst()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	typeinfer.Run(block, src)
	functions := instantiate.InstantiateFunctions(block)
	instantiate.AddVoidReturn(functions)
	prog := bytecode.Emit(functions)

	out := Program(prog, FormatJSON)
	if !strings.Contains(out, `"entryPoint"`) {
		t.Fatalf("expected an entryPoint field, got %s", out)
	}
	if !strings.Contains(out, `"op": "PUSH"`) {
		t.Fatalf("expected at least one PUSH instruction rendered, got %s", out)
	}
}
