package dump

import (
	"fmt"
	"testing"

	"github.com/gkampitakis/go-snaps/snaps"

	"github.com/student/stackscript/internal/bytecode"
	"github.com/student/stackscript/internal/instantiate"
	"github.com/student/stackscript/internal/lexer"
	"github.com/student/stackscript/internal/parser"
	"github.com/student/stackscript/internal/typeinfer"
	"github.com/student/stackscript/pkg/token"
)

// TestPipelineDumps snapshots the rendered output of every dump-able
// pipeline phase — tokens, AST, instantiated functions and the emitted
// Program — for a handful of representative programs, in the JSON
// rendering (tokens in the human rendering as well).
func TestPipelineDumps(t *testing.T) {
	programs := []struct {
		name string
		src  string
	}{
		{"literal_return", "ret 1 + 2;"},
		{"function_call", "let add(a, b) = { ret a + b; }; ret add(1, 2);"},
		{"if_else", "let x = 1; if (x > 0) { ret 1; } else { ret 0; }"},
	}

	for _, p := range programs {
		t.Run(p.name, func(t *testing.T) {
			tokens := lexer.New(p.src).Tokenize()
			block, err := parser.New(tokens, p.src).GetAst()
			if err != nil {
				t.Fatalf("parse(%q): %v", p.src, err)
			}
			if _, errs := typeinfer.Run(block, p.src); len(errs) != 0 {
				t.Fatalf("typeinfer.Run(%q): %v", p.src, errs)
			}
			functions := instantiate.InstantiateFunctions(block)
			instantiate.AddVoidReturn(functions)
			program := bytecode.Emit(functions)

			snaps.MatchSnapshot(t, fmt.Sprintf("%s_tokens_human", p.name), Tokens(tokens, FormatHuman))
			snaps.MatchSnapshot(t, fmt.Sprintf("%s_tokens_json", p.name), Tokens(tokens, FormatJSON))
			snaps.MatchSnapshot(t, fmt.Sprintf("%s_ast_json", p.name), AST(block, FormatJSON))
			snaps.MatchSnapshot(t, fmt.Sprintf("%s_functions_json", p.name), Functions(functions, FormatJSON))
			snaps.MatchSnapshot(t, fmt.Sprintf("%s_program_json", p.name), Program(program, FormatJSON))
		})
	}
}

// TestTokensJSONEmptyStream guards the zero-token edge case, which the
// table above never exercises since every program lexes to at least one
// token.
func TestTokensJSONEmptyStream(t *testing.T) {
	snaps.MatchSnapshot(t, "empty_tokens_json", Tokens([]token.Token{}, FormatJSON))
}
