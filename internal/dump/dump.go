// Package dump renders pipeline intermediates — tokens, the AST, the
// instantiated function map, and the emitted Program — either as
// human-readable struct dumps (kr/pretty, for --show-* without --format
// json) or as diffable JSON (tidwall/sjson + tidwall/pretty, for
// --format json).
//
// The AST's own fields (token.Position, types.DataType) are unexported
// behind accessor methods (see internal/ast's base type), so
// encoding/json's reflection-based marshaling cannot see them at all.
// sjson's path-based Set API sidesteps that entirely: every value written
// into the JSON tree comes from an exported accessor call, never from
// struct-tag reflection.
package dump

import (
	"fmt"
	"sort"

	"github.com/kr/pretty"
	tidwallpretty "github.com/tidwall/pretty"
	"github.com/tidwall/sjson"

	"github.com/student/stackscript/internal/ast"
	"github.com/student/stackscript/internal/bytecode"
	"github.com/student/stackscript/pkg/token"
)

// Format selects how a dump is rendered.
type Format int

const (
	FormatHuman Format = iota
	FormatJSON
)

// Pretty renders v as a multi-line, indented Go struct dump, including
// unexported fields — kr/pretty reads them via reflection without needing
// them settable.
func Pretty(v any) string {
	return fmt.Sprintf("%# v", pretty.Formatter(v))
}

// Tokens renders a token stream as either a plain listing or a JSON array.
func Tokens(tokens []token.Token, format Format) string {
	if format == FormatHuman {
		return Pretty(tokens)
	}
	doc := "[]"
	var err error
	for i, t := range tokens {
		prefix := fmt.Sprintf("%d", i)
		doc, err = sjson.Set(doc, prefix+".kind", t.Kind.String())
		if err != nil {
			return fmt.Sprintf("dump: %v", err)
		}
		doc, _ = sjson.Set(doc, prefix+".lexeme", t.Lexeme)
		doc, _ = sjson.Set(doc, prefix+".line", t.Position.Line+1)
		doc, _ = sjson.Set(doc, prefix+".column", t.Position.Column+1)
	}
	return string(tidwallpretty.Pretty([]byte(doc)))
}

// AST renders a parsed tree as either a kr/pretty struct dump or a nested
// JSON tree built node-by-node through exported accessors.
func AST(root ast.Node, format Format) string {
	if format == FormatHuman {
		return Pretty(root)
	}
	doc, err := nodeJSON(root)
	if err != nil {
		return fmt.Sprintf("dump: %v", err)
	}
	return string(tidwallpretty.Pretty([]byte(doc)))
}

func nodeJSON(n ast.Node) (string, error) {
	doc := "{}"
	var err error
	if doc, err = sjson.Set(doc, "type", fmt.Sprintf("%T", n)); err != nil {
		return "", err
	}
	if doc, err = sjson.Set(doc, "repr", n.String()); err != nil {
		return "", err
	}
	pos := n.Pos()
	if doc, err = sjson.Set(doc, "line", pos.Line+1); err != nil {
		return "", err
	}
	if doc, err = sjson.Set(doc, "column", pos.Column+1); err != nil {
		return "", err
	}
	if doc, err = sjson.Set(doc, "dataType", n.DataType().String()); err != nil {
		return "", err
	}

	children := n.Children()
	if len(children) == 0 {
		return doc, nil
	}
	childDocs := make([]string, len(children))
	for i, c := range children {
		childDoc, err := nodeJSON(c)
		if err != nil {
			return "", err
		}
		childDocs[i] = childDoc
	}
	doc, err = sjson.SetRaw(doc, "children", "["+joinJSON(childDocs)+"]")
	if err != nil {
		return "", err
	}
	return doc, nil
}

func joinJSON(docs []string) string {
	out := ""
	for i, d := range docs {
		if i > 0 {
			out += ","
		}
		out += d
	}
	return out
}

// Functions renders the instantiated id->Function map, sorted by id for
// stable diffs.
func Functions(functions map[string]*ast.Function, format Format) string {
	if format == FormatHuman {
		return Pretty(functions)
	}

	ids := make([]string, 0, len(functions))
	for id := range functions {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	doc := "[]"
	for i, id := range ids {
		fnDoc, err := nodeJSON(functions[id])
		if err != nil {
			return fmt.Sprintf("dump: %v", err)
		}
		fnDoc, err = sjson.Set(fnDoc, "id", id)
		if err != nil {
			return fmt.Sprintf("dump: %v", err)
		}
		var setErr error
		doc, setErr = sjson.SetRaw(doc, fmt.Sprintf("%d", i), fnDoc)
		if setErr != nil {
			return fmt.Sprintf("dump: %v", setErr)
		}
	}
	return string(tidwallpretty.Pretty([]byte(doc)))
}

// Program renders an emitted bytecode.Program's instruction vector.
func Program(prog *bytecode.Program, format Format) string {
	if format == FormatHuman {
		return Pretty(prog)
	}

	doc := "{}"
	doc, _ = sjson.Set(doc, "dataBytes", len(prog.Data))
	doc, _ = sjson.Set(doc, "entryPoint", prog.EntryPoint())

	codeDoc := "[]"
	for i, inst := range prog.Code {
		entry := "{}"
		entry, _ = sjson.Set(entry, "op", inst.Op.String())
		entry, _ = sjson.Set(entry, "arg1", inst.Arg1)
		entry, _ = sjson.Set(entry, "arg2", inst.Arg2)
		entry, _ = sjson.Set(entry, "arg3", inst.Arg3)
		codeDoc, _ = sjson.SetRaw(codeDoc, fmt.Sprintf("%d", i), entry)
	}
	doc, _ = sjson.SetRaw(doc, "code", codeDoc)
	return string(tidwallpretty.Pretty([]byte(doc)))
}
