package cmd

import (
	"fmt"
	"os"

	"github.com/student/stackscript/internal/ast"
	"github.com/student/stackscript/internal/bytecode"
	"github.com/student/stackscript/internal/dump"
	"github.com/student/stackscript/internal/errors"
	"github.com/student/stackscript/internal/instantiate"
	"github.com/student/stackscript/internal/lexer"
	"github.com/student/stackscript/internal/parser"
	"github.com/student/stackscript/internal/typeinfer"
	"github.com/student/stackscript/pkg/token"
)

// showFlags mirrors the nine --show-* toggles on the run command. build
// compiles with every toggle off and prints only the emitted Program.
type showFlags struct {
	tokens          bool
	fileContent     bool
	result          bool
	ast             bool
	typeInference   bool
	inferredTypes   bool
	functions       bool
	emission        bool
	execution       bool
}

func allShown() showFlags {
	return showFlags{true, true, true, true, true, true, true, true, true}
}

func dumpFormat(jsonFlag bool) dump.Format {
	if jsonFlag {
		return dump.FormatJSON
	}
	return dump.FormatHuman
}

// errWrongArgCount is returned by readSource when neither a single script
// path nor -e was given — the CLI maps this to exit code 2 specifically,
// distinct from every other failure's exit code 1.
var errWrongArgCount = fmt.Errorf("expected exactly one script path (or use -e)")

// readSource loads the script from a file argument or, with eval set,
// treats eval itself as the program text.
func readSource(args []string, eval string) (source, filename string, err error) {
	if eval != "" {
		return eval, "<eval>", nil
	}
	if len(args) != 1 {
		return "", "", errWrongArgCount
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", "", fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	return string(data), args[0], nil
}

func tokenize(source string) []token.Token {
	return lexer.New(source).Tokenize()
}

func parseProgram(tokens []token.Token, source string) (*ast.Block, error) {
	p := parser.New(tokens, source)
	return p.GetAst()
}

// compile runs every phase through emission, in pipeline order: tokenize,
// parse, the typeinfer fixpoint, AllPathsReturn, InstantiateFunctions,
// AddVoidReturn, Emit. format/show select what gets echoed to log as each
// phase finishes; errs is the first phase's failure, if any.
func compile(source, filename string, format dump.Format, show showFlags) (*bytecode.Program, map[string]*ast.Function, error) {
	tokens := tokenize(source)
	if show.tokens {
		log.Banner("show-tokens")
		fmt.Fprintln(log.Out, dump.Tokens(tokens, format))
	}
	if show.fileContent {
		log.Banner("show-file-content")
		fmt.Fprintln(log.Out, source)
	}

	root, err := parseProgram(tokens, source)
	if err != nil {
		return nil, nil, err
	}
	if show.ast {
		log.Banner("show-ast")
		fmt.Fprintln(log.Out, dump.AST(root, format))
	}

	known, errs := typeinfer.Run(root, source)
	if show.typeInference {
		log.Banner("show-type-inference")
		for _, e := range errs {
			fmt.Fprintln(log.Out, e.Error())
		}
	}
	if len(errs) > 0 {
		return nil, nil, fmt.Errorf("%s", errors.FormatErrors(errs))
	}
	if show.inferredTypes {
		log.Banner("show-inferred-types")
		fmt.Fprintln(log.Out, dump.Pretty(known))
	}

	if errs := typeinfer.AllPathsReturn(root, source); len(errs) > 0 {
		return nil, nil, fmt.Errorf("%s", errors.FormatErrors(errs))
	}

	functions := instantiate.InstantiateFunctions(root)
	instantiate.AddVoidReturn(functions)
	if show.functions {
		log.Banner("show-functions")
		fmt.Fprintln(log.Out, dump.Functions(functions, format))
	}

	program := bytecode.Emit(functions)
	if show.emission {
		log.Banner("show-emission")
		fmt.Fprintln(log.Out, dump.Program(program, format))
	}

	return program, functions, nil
}
