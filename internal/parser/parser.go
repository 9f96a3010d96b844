// Package parser implements the speculating, memoizing recursive-descent
// parser described in SPEC_FULL.md §4.2: a hand-written descent over the
// grammar, backed by an immutable token cursor and a (token index, rule)
// memo table so that backtracking speculation never re-does exponential
// work.
package parser

import (
	"fmt"

	"github.com/student/stackscript/internal/ast"
	"github.com/student/stackscript/internal/errors"
	"github.com/student/stackscript/pkg/token"
)

// ruleID names a grammar production for memoization purposes.
type ruleID int

const (
	ruleStatement ruleID = iota
	ruleExpression
	ruleNrExpression
	ruleInfixCall
	ruleRet
	ruleUninitVarDecl
	ruleAssignment
	ruleLeftHandValue
	ruleVariableDecl
	ruleFunctionDecl
	ruleCall
	ruleLiteral
	ruleStructAccess
	ruleExternFn
	ruleBranching
	ruleDeclStruct
	ruleBlock
	ruleIdentifier
)

type memoKey struct {
	index int
	rule  ruleID
}

type memoEntry struct {
	node ast.Node
	end  int
	ok   bool
}

// Parser holds the full pre-lexed token stream (memoization keys tokens by
// index, which requires a stable array rather than a re-scanning lexer),
// the memo table, and the single furthest-reached parse failure.
type Parser struct {
	tokens []token.Token
	source string
	memo   map[memoKey]memoEntry

	furthestIndex    int
	furthestExpected string
	furthestFound    token.Token
}

// New creates a Parser over a complete token stream (as produced by
// lexer.Lexer.Tokenize) and the original source text, used only for
// rendering error context.
func New(tokens []token.Token, source string) *Parser {
	return &Parser{
		tokens: tokens,
		source: source,
		memo:   make(map[memoKey]memoEntry),
	}
}

// GetAst parses the whole token stream as a top-level Block. On failure it
// returns the furthest ParseError reached by any speculative attempt.
func (p *Parser) GetAst() (*ast.Block, error) {
	if len(p.tokens) == 0 || p.tokens[0].Kind == token.EOF {
		return nil, fmt.Errorf("empty")
	}
	c := newTokenCursor(p.tokens)
	pos := c.current().Position
	var stmts []ast.Node
	for !c.is(token.EOF) {
		node, next, ok := p.parseStatement(c)
		if !ok {
			return nil, p.furthestError()
		}
		stmts = append(stmts, node)
		c = next
	}
	return ast.NewBlock(pos, stmts), nil
}

func (p *Parser) furthestError() error {
	found := p.furthestFound
	return &errors.ParseError{
		Expected: p.furthestExpected,
		Found:    found,
		Source:   p.source,
	}
}

func (p *Parser) recordFailure(c tokenCursor, expected string) {
	if c.index >= p.furthestIndex {
		p.furthestIndex = c.index
		p.furthestExpected = expected
		p.furthestFound = c.current()
	}
}

// memoize wraps a rule invocation with the (token index, rule) memo table.
// Speculation relies on this: trying the same rule at the same position
// from two different alternative paths costs one real parse, not two.
func (p *Parser) memoize(rule ruleID, c tokenCursor, f func(tokenCursor) (ast.Node, tokenCursor, bool)) (ast.Node, tokenCursor, bool) {
	key := memoKey{index: c.index, rule: rule}
	if entry, hit := p.memo[key]; hit {
		if !entry.ok {
			return nil, c, false
		}
		return entry.node, c.resetTo(entry.end), true
	}
	node, next, ok := f(c)
	p.memo[key] = memoEntry{node: node, end: next.index, ok: ok}
	return node, next, ok
}

// speculate tries rule at c without permanently consuming tokens on
// failure: the cursor returned on failure is always c itself. On success
// the caller receives the advanced cursor and may commit to it.
func (p *Parser) speculate(f func(tokenCursor) (ast.Node, tokenCursor, bool), c tokenCursor) (ast.Node, tokenCursor, bool) {
	mark := c.mark()
	node, next, ok := f(c)
	if !ok {
		return nil, c.resetTo(mark), false
	}
	return node, next, true
}

// expect consumes the current token if it has kind k, else fails.
func (p *Parser) expect(c tokenCursor, k token.Kind, expected string) (token.Token, tokenCursor, bool) {
	if c.is(k) {
		return c.current(), c.advance(), true
	}
	p.recordFailure(c, expected)
	return token.Token{}, c, false
}

// expectLexeme consumes the current token if it has kind k and the given
// lexeme (used for single-character punctuation and keyword-shaped special
// tokens like "::").
func (p *Parser) expectLexeme(c tokenCursor, k token.Kind, lexeme, expected string) (token.Token, tokenCursor, bool) {
	if c.is(k) && c.current().Lexeme == lexeme {
		return c.current(), c.advance(), true
	}
	p.recordFailure(c, expected)
	return token.Token{}, c, false
}
