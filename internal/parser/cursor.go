package parser

import "github.com/student/stackscript/pkg/token"

// tokenCursor is an immutable navigation handle over a pre-lexed token
// slice. Every operation returns position information rather than mutating
// shared state, so saving a cursor position for speculative parsing is just
// "remember an int" and restoring it is just "use that int again" — no
// lexer re-scanning, no buffered-token bookkeeping to undo.
type tokenCursor struct {
	tokens []token.Token
	index  int
}

func newTokenCursor(tokens []token.Token) tokenCursor {
	return tokenCursor{tokens: tokens, index: 0}
}

// current returns the token at the cursor's position. Past the end of the
// stream it keeps returning the trailing EOF token.
func (c tokenCursor) current() token.Token {
	if c.index >= len(c.tokens) {
		return c.tokens[len(c.tokens)-1]
	}
	return c.tokens[c.index]
}

// peek returns the token n positions ahead without moving the cursor.
func (c tokenCursor) peek(n int) token.Token {
	idx := c.index + n
	if idx < 0 {
		idx = 0
	}
	if idx >= len(c.tokens) {
		idx = len(c.tokens) - 1
	}
	return c.tokens[idx]
}

// advance returns a new cursor positioned one token later. Advancing past
// EOF is a no-op (the cursor saturates at the final index).
func (c tokenCursor) advance() tokenCursor {
	if c.index >= len(c.tokens)-1 {
		return c
	}
	return tokenCursor{tokens: c.tokens, index: c.index + 1}
}

// mark captures the cursor's position for later backtracking via resetTo.
func (c tokenCursor) mark() int { return c.index }

// resetTo returns a cursor at a previously marked position.
func (c tokenCursor) resetTo(mark int) tokenCursor {
	return tokenCursor{tokens: c.tokens, index: mark}
}

func (c tokenCursor) is(k token.Kind) bool { return c.current().Kind == k }
