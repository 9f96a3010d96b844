package parser

import (
	"strings"

	"github.com/student/stackscript/internal/ast"
	"github.com/student/stackscript/pkg/token"
)

// parseStatement implements:
//
//	statement := ret | uninitializedVarDecl | block | branching | declStruct | expression ';'
func (p *Parser) parseStatement(c tokenCursor) (ast.Node, tokenCursor, bool) {
	return p.memoize(ruleStatement, c, func(c tokenCursor) (ast.Node, tokenCursor, bool) {
		if node, next, ok := p.speculate(p.parseRet, c); ok {
			return node, next, true
		}
		if node, next, ok := p.speculate(p.parseUninitVarDecl, c); ok {
			return node, next, true
		}
		if node, next, ok := p.speculate(p.parseBlock, c); ok {
			return node, next, true
		}
		if node, next, ok := p.speculate(p.parseBranching, c); ok {
			return node, next, true
		}
		if node, next, ok := p.speculate(p.parseDeclStruct, c); ok {
			return node, next, true
		}
		expr, next, ok := p.parseExpression(c)
		if !ok {
			return nil, c, false
		}
		if _, next2, ok := p.expect(next, token.StatementTerminator, "';'"); ok {
			return expr, next2, true
		}
		return nil, c, false
	})
}

// parseRet implements: ret := 'ret' (expression)? ';'
func (p *Parser) parseRet(c tokenCursor) (ast.Node, tokenCursor, bool) {
	retTok, c, ok := p.expect(c, token.Ret, "'ret'")
	if !ok {
		return nil, c, false
	}
	if _, next, ok := p.expect(c, token.StatementTerminator, "';'"); ok {
		return ast.NewRet(retTok.Position, nil), next, true
	}
	expr, c, ok := p.parseExpression(c)
	if !ok {
		return nil, c, false
	}
	if _, next, ok := p.expect(c, token.StatementTerminator, "';'"); ok {
		return ast.NewRet(retTok.Position, expr), next, true
	}
	return nil, c, false
}

// parseUninitVarDecl implements: uninitializedVarDecl := variableDecl ';'
func (p *Parser) parseUninitVarDecl(c tokenCursor) (ast.Node, tokenCursor, bool) {
	return p.memoize(ruleUninitVarDecl, c, func(c tokenCursor) (ast.Node, tokenCursor, bool) {
		decl, next, ok := p.parseVariableDecl(c)
		if !ok {
			return nil, c, false
		}
		if _, next2, ok := p.expect(next, token.StatementTerminator, "';'"); ok {
			return decl, next2, true
		}
		return nil, c, false
	})
}

// parseBlock implements: block := '{' statement* '}'
func (p *Parser) parseBlock(c tokenCursor) (ast.Node, tokenCursor, bool) {
	return p.memoize(ruleBlock, c, func(c tokenCursor) (ast.Node, tokenCursor, bool) {
		open, next, ok := p.expectLexeme(c, token.Parenthesis, "{", "'{'")
		if !ok {
			return nil, c, false
		}
		var stmts []ast.Node
		for {
			if _, _, ok := p.expectLexeme(next, token.Parenthesis, "}", "'}'"); ok {
				break
			}
			stmt, after, ok := p.parseStatement(next)
			if !ok {
				return nil, c, false
			}
			stmts = append(stmts, stmt)
			next = after
		}
		_, next, ok = p.expectLexeme(next, token.Parenthesis, "}", "'}'")
		if !ok {
			return nil, c, false
		}
		return ast.NewBlock(open.Position, stmts), next, true
	})
}

// parseBranching implements:
//
//	branching := 'if' '(' expression ')' statement ('else' statement)?
//	           | 'while' '(' expression ')' statement
func (p *Parser) parseBranching(c tokenCursor) (ast.Node, tokenCursor, bool) {
	return p.memoize(ruleBranching, c, func(c tokenCursor) (ast.Node, tokenCursor, bool) {
		if ifTok, next, ok := p.expect(c, token.If, "'if'"); ok {
			next, ok2 := p.consumeLexeme(next, token.Parenthesis, "(", "'('")
			if !ok2 {
				return nil, c, false
			}
			cond, next, ok := p.parseExpression(next)
			if !ok {
				return nil, c, false
			}
			next, ok2 = p.consumeLexeme(next, token.Parenthesis, ")", "')'")
			if !ok2 {
				return nil, c, false
			}
			thenStmt, next, ok := p.parseStatement(next)
			if !ok {
				return nil, c, false
			}
			if _, after, ok := p.expect(next, token.Else, "'else'"); ok {
				elseStmt, after, ok := p.parseStatement(after)
				if !ok {
					return nil, c, false
				}
				return ast.NewIf(ifTok.Position, cond, thenStmt, elseStmt), after, true
			}
			return ast.NewIf(ifTok.Position, cond, thenStmt, nil), next, true
		}

		whileTok, next, ok := p.expect(c, token.While, "'while'")
		if !ok {
			return nil, c, false
		}
		next, ok2 := p.consumeLexeme(next, token.Parenthesis, "(", "'('")
		if !ok2 {
			return nil, c, false
		}
		cond, next, ok := p.parseExpression(next)
		if !ok {
			return nil, c, false
		}
		next, ok2 = p.consumeLexeme(next, token.Parenthesis, ")", "')'")
		if !ok2 {
			return nil, c, false
		}
		body, next, ok := p.parseStatement(next)
		if !ok {
			return nil, c, false
		}
		return ast.NewWhile(whileTok.Position, cond, body), next, true
	})
}

func (p *Parser) consumeLexeme(c tokenCursor, k token.Kind, lexeme, expected string) (tokenCursor, bool) {
	_, next, ok := p.expectLexeme(c, k, lexeme, expected)
	return next, ok
}

// parseDeclStruct implements: declStruct := 'struct' identifier '{' (variableDecl ';')* '}'
func (p *Parser) parseDeclStruct(c tokenCursor) (ast.Node, tokenCursor, bool) {
	return p.memoize(ruleDeclStruct, c, func(c tokenCursor) (ast.Node, tokenCursor, bool) {
		structTok, next, ok := p.expect(c, token.Struct, "'struct'")
		if !ok {
			return nil, c, false
		}
		nameTok, next, ok := p.expect(next, token.Identifier, "struct name")
		if !ok {
			return nil, c, false
		}
		next, ok2 := p.consumeLexeme(next, token.Parenthesis, "{", "'{'")
		if !ok2 {
			return nil, c, false
		}
		var fields []*ast.Declvar
		for {
			if _, _, ok := p.expectLexeme(next, token.Parenthesis, "}", "'}'"); ok {
				break
			}
			field, after, ok := p.parseVariableDecl(next)
			if !ok {
				return nil, c, false
			}
			after, ok2 := p.consumeLexeme(after, token.StatementTerminator, ";", "';'")
			if !ok2 {
				return nil, c, false
			}
			fields = append(fields, field.(*ast.Declvar))
			next = after
		}
		next, ok2 = p.consumeLexeme(next, token.Parenthesis, "}", "'}'")
		if !ok2 {
			return nil, c, false
		}
		name := ast.NewIdentifier(nameTok.Position, nameTok.Lexeme, "")
		return ast.NewDeclStruct(structTok.Position, name, fields), next, true
	})
}

// parseExpression implements: expression := infixCall | nrExpression
func (p *Parser) parseExpression(c tokenCursor) (ast.Node, tokenCursor, bool) {
	return p.memoize(ruleExpression, c, func(c tokenCursor) (ast.Node, tokenCursor, bool) {
		if node, next, ok := p.speculate(p.parseInfixCall, c); ok {
			return node, next, true
		}
		return p.parseNrExpression(c)
	})
}

// parseInfixCall implements the infixCall production: it collects an
// alternating operand/operator run of nrExpressions, then reduces it by
// operator precedence (see precedence.go). It fails (so that expression
// falls back to plain nrExpression) when no operator was found — a lone
// operand is not an infix call.
func (p *Parser) parseInfixCall(c tokenCursor) (ast.Node, tokenCursor, bool) {
	return p.memoize(ruleInfixCall, c, func(c tokenCursor) (ast.Node, tokenCursor, bool) {
		first, next, ok := p.parseNrExpression(c)
		if !ok {
			return nil, c, false
		}
		operands := []ast.Node{first}
		var operators []token.Token

		for {
			opTok, afterOp, ok := p.consumeOperator(next)
			if !ok {
				break
			}
			operand, afterOperand, ok := p.parseNrExpression(afterOp)
			if !ok {
				break
			}
			operators = append(operators, opTok)
			operands = append(operands, operand)
			next = afterOperand
		}

		if len(operators) == 0 {
			return nil, c, false
		}
		return reduceInfix(operands, operators), next, true
	})
}

// consumeOperator accepts a token.Special token that is not "(" ")" "{" "}"
// — those punctuation-shaped Special tokens are claimed by other
// productions, never by the infix operator grammar.
func (p *Parser) consumeOperator(c tokenCursor) (token.Token, tokenCursor, bool) {
	if !c.is(token.Special) {
		return token.Token{}, c, false
	}
	lexeme := c.current().Lexeme
	if lexeme == "{" || lexeme == "}" {
		return token.Token{}, c, false
	}
	return c.current(), c.advance(), true
}

// parseNrExpression implements:
//
//	nrExpression := '(' expression ')' | assignment | block | call | literal
//	              | structAccess | identifier | externFn
func (p *Parser) parseNrExpression(c tokenCursor) (ast.Node, tokenCursor, bool) {
	return p.memoize(ruleNrExpression, c, func(c tokenCursor) (ast.Node, tokenCursor, bool) {
		if node, next, ok := p.speculate(p.parseParenExpr, c); ok {
			return node, next, true
		}
		if node, next, ok := p.speculate(p.parseAssignment, c); ok {
			return node, next, true
		}
		if node, next, ok := p.speculate(p.parseBlock, c); ok {
			return node, next, true
		}
		if node, next, ok := p.speculate(p.parseCall, c); ok {
			return node, next, true
		}
		if node, next, ok := p.speculate(p.parseLiteral, c); ok {
			return node, next, true
		}
		if node, next, ok := p.speculate(p.parseStructAccess, c); ok {
			return node, next, true
		}
		if node, next, ok := p.speculate(p.parseExternFn, c); ok {
			return node, next, true
		}
		return p.parseIdentifier(c)
	})
}

func (p *Parser) parseParenExpr(c tokenCursor) (ast.Node, tokenCursor, bool) {
	next, ok := p.consumeLexeme(c, token.Parenthesis, "(", "'('")
	if !ok {
		return nil, c, false
	}
	expr, next, ok := p.parseExpression(next)
	if !ok {
		return nil, c, false
	}
	next, ok = p.consumeLexeme(next, token.Parenthesis, ")", "')'")
	if !ok {
		return nil, c, false
	}
	return expr, next, true
}

// parseAssignment implements: assignment := leftHandValue '=' expression
func (p *Parser) parseAssignment(c tokenCursor) (ast.Node, tokenCursor, bool) {
	return p.memoize(ruleAssignment, c, func(c tokenCursor) (ast.Node, tokenCursor, bool) {
		lhs, next, ok := p.parseLeftHandValue(c)
		if !ok {
			return nil, c, false
		}
		eqTok, next, ok := p.expect(next, token.Assignment, "'='")
		if !ok {
			return nil, c, false
		}
		rhs, next, ok := p.parseExpression(next)
		if !ok {
			return nil, c, false
		}
		return ast.NewAssign(eqTok.Position, lhs, rhs), next, true
	})
}

// parseLeftHandValue implements: leftHandValue := functionDecl | variableDecl | structAccess | identifier
func (p *Parser) parseLeftHandValue(c tokenCursor) (ast.Node, tokenCursor, bool) {
	return p.memoize(ruleLeftHandValue, c, func(c tokenCursor) (ast.Node, tokenCursor, bool) {
		if node, next, ok := p.speculate(p.parseFunctionDecl, c); ok {
			return node, next, true
		}
		if node, next, ok := p.speculate(p.parseVariableDecl, c); ok {
			return node, next, true
		}
		if node, next, ok := p.speculate(p.parseStructAccess, c); ok {
			return node, next, true
		}
		return p.parseIdentifier(c)
	})
}

// parseVariableDecl implements: variableDecl := 'let' identifier (':' identifier)?
func (p *Parser) parseVariableDecl(c tokenCursor) (ast.Node, tokenCursor, bool) {
	return p.memoize(ruleVariableDecl, c, func(c tokenCursor) (ast.Node, tokenCursor, bool) {
		letTok, next, ok := p.expect(c, token.Let, "'let'")
		if !ok {
			return nil, c, false
		}
		nameTok, next, ok := p.expect(next, token.Identifier, "identifier")
		if !ok {
			return nil, c, false
		}
		annotation := ""
		if _, after, ok := p.expect(next, token.Colon, "':'"); ok {
			annotTok, after, ok := p.expect(after, token.Identifier, "type name")
			if !ok {
				return nil, c, false
			}
			annotation = annotTok.Lexeme
			next = after
		}
		name := ast.NewIdentifier(nameTok.Position, nameTok.Lexeme, annotation)
		return ast.NewDeclvar(letTok.Position, name), next, true
	})
}

// parseFunctionDecl implements: functionDecl := 'let' identifier '(' identifierList? ')'
func (p *Parser) parseFunctionDecl(c tokenCursor) (ast.Node, tokenCursor, bool) {
	return p.memoize(ruleFunctionDecl, c, func(c tokenCursor) (ast.Node, tokenCursor, bool) {
		letTok, next, ok := p.expect(c, token.Let, "'let'")
		if !ok {
			return nil, c, false
		}
		nameTok, next, ok := p.expect(next, token.Identifier, "function name")
		if !ok {
			return nil, c, false
		}
		next, ok2 := p.consumeLexeme(next, token.Parenthesis, "(", "'('")
		if !ok2 {
			return nil, c, false
		}
		params, next := p.parseIdentifierList(next)
		next, ok2 = p.consumeLexeme(next, token.Parenthesis, ")", "')'")
		if !ok2 {
			return nil, c, false
		}
		name := ast.NewIdentifier(nameTok.Position, nameTok.Lexeme, "")
		return ast.NewDeclfn(letTok.Position, name, params), next, true
	})
}

// parseIdentifierList implements: identifierList := identifier (',' identifier)*
// An empty list is valid (the caller checks for ')' first via speculation
// failure of the first identifier, which simply yields a nil slice here).
func (p *Parser) parseIdentifierList(c tokenCursor) ([]*ast.Identifier, tokenCursor) {
	var params []*ast.Identifier
	first, next, ok := p.parseAnnotatedIdentifier(c)
	if !ok {
		return nil, c
	}
	params = append(params, first)
	for {
		afterComma, ok := p.consumeLexeme(next, token.Comma, ",", "','")
		if !ok {
			break
		}
		param, after, ok := p.parseAnnotatedIdentifier(afterComma)
		if !ok {
			break
		}
		params = append(params, param)
		next = after
	}
	return params, next
}

func (p *Parser) parseAnnotatedIdentifier(c tokenCursor) (*ast.Identifier, tokenCursor, bool) {
	nameTok, next, ok := p.expect(c, token.Identifier, "identifier")
	if !ok {
		return nil, c, false
	}
	annotation := ""
	if _, after, ok := p.expect(next, token.Colon, "':'"); ok {
		annotTok, after, ok := p.expect(after, token.Identifier, "type name")
		if ok {
			annotation = annotTok.Lexeme
			next = after
		}
	}
	return ast.NewIdentifier(nameTok.Position, nameTok.Lexeme, annotation), next, true
}

// parseCall implements: call := identifier '(' argumentList? ')'
func (p *Parser) parseCall(c tokenCursor) (ast.Node, tokenCursor, bool) {
	return p.memoize(ruleCall, c, func(c tokenCursor) (ast.Node, tokenCursor, bool) {
		nameTok, next, ok := p.expect(c, token.Identifier, "function name")
		if !ok {
			return nil, c, false
		}
		next, ok2 := p.consumeLexeme(next, token.Parenthesis, "(", "'('")
		if !ok2 {
			return nil, c, false
		}
		args, next := p.parseArgumentList(next)
		next, ok2 = p.consumeLexeme(next, token.Parenthesis, ")", "')'")
		if !ok2 {
			return nil, c, false
		}
		callee := ast.NewIdentifier(nameTok.Position, nameTok.Lexeme, "")
		return ast.NewCall(nameTok.Position, callee, args), next, true
	})
}

// parseArgumentList implements: argumentList := expression (',' expression)*
func (p *Parser) parseArgumentList(c tokenCursor) ([]ast.Node, tokenCursor) {
	var args []ast.Node
	first, next, ok := p.parseExpression(c)
	if !ok {
		return nil, c
	}
	args = append(args, first)
	for {
		afterComma, ok := p.consumeLexeme(next, token.Comma, ",", "','")
		if !ok {
			break
		}
		arg, after, ok := p.parseExpression(afterComma)
		if !ok {
			break
		}
		args = append(args, arg)
		next = after
	}
	return args, next
}

// parseStructAccess implements: structAccess := identifier ('.' identifier)+
func (p *Parser) parseStructAccess(c tokenCursor) (ast.Node, tokenCursor, bool) {
	return p.memoize(ruleStructAccess, c, func(c tokenCursor) (ast.Node, tokenCursor, bool) {
		headTok, next, ok := p.expect(c, token.Identifier, "identifier")
		if !ok {
			return nil, c, false
		}
		path := []*ast.Identifier{ast.NewIdentifier(headTok.Position, headTok.Lexeme, "")}
		for {
			after, ok := p.consumeLexeme(next, token.Period, ".", "'.'")
			if !ok {
				break
			}
			fieldTok, after, ok := p.expect(after, token.Identifier, "field name")
			if !ok {
				break
			}
			path = append(path, ast.NewIdentifier(fieldTok.Position, fieldTok.Lexeme, ""))
			next = after
		}
		if len(path) < 2 {
			p.recordFailure(next, "'.'")
			return nil, c, false
		}
		return ast.NewStructAccess(headTok.Position, path), next, true
	})
}

// parseExternFn implements:
//
//	externFn := 'extern' identifier '::' identifier '(' identifierList? ')' (':' identifier)?
func (p *Parser) parseExternFn(c tokenCursor) (ast.Node, tokenCursor, bool) {
	return p.memoize(ruleExternFn, c, func(c tokenCursor) (ast.Node, tokenCursor, bool) {
		externTok, next, ok := p.expectLexeme(c, token.Keyword, "extern", "'extern'")
		if !ok {
			return nil, c, false
		}
		libTok, next, ok := p.expect(next, token.Identifier, "library name")
		if !ok {
			return nil, c, false
		}
		next, ok2 := p.consumeLexeme(next, token.Colon, ":", "'::'")
		if !ok2 {
			return nil, c, false
		}
		next, ok2 = p.consumeLexeme(next, token.Colon, ":", "'::'")
		if !ok2 {
			return nil, c, false
		}
		nameTok, next, ok := p.expect(next, token.Identifier, "function name")
		if !ok {
			return nil, c, false
		}
		next, ok2 = p.consumeLexeme(next, token.Parenthesis, "(", "'('")
		if !ok2 {
			return nil, c, false
		}
		params, next := p.parseIdentifierList(next)
		next, ok2 = p.consumeLexeme(next, token.Parenthesis, ")", "')'")
		if !ok2 {
			return nil, c, false
		}
		retAnnot := ""
		if _, after, ok := p.expect(next, token.Colon, "':'"); ok {
			retTok, after, ok := p.expect(after, token.Identifier, "type name")
			if !ok {
				return nil, c, false
			}
			retAnnot = retTok.Lexeme
			next = after
		}
		name := ast.NewIdentifier(nameTok.Position, nameTok.Lexeme, "")
		return ast.NewExternFn(externTok.Position, libTok.Lexeme, name, params, retAnnot), next, true
	})
}

// parseLiteral implements: literal := integer | float | boolean | stringLiteral
func (p *Parser) parseLiteral(c tokenCursor) (ast.Node, tokenCursor, bool) {
	return p.memoize(ruleLiteral, c, func(c tokenCursor) (ast.Node, tokenCursor, bool) {
		tok := c.current()
		switch tok.Kind {
		case token.Number:
			kind := ast.LitInt
			if strings.Contains(tok.Lexeme, ".") {
				kind = ast.LitFloat
			}
			return ast.NewLiteral(tok.Position, kind, tok.Lexeme), c.advance(), true
		case token.True, token.False:
			return ast.NewLiteral(tok.Position, ast.LitBool, tok.Lexeme), c.advance(), true
		case token.StringLiteral:
			return ast.NewLiteral(tok.Position, ast.LitString, tok.Lexeme), c.advance(), true
		default:
			p.recordFailure(c, "literal")
			return nil, c, false
		}
	})
}

// parseIdentifier implements the bare identifier alternative of nrExpression.
func (p *Parser) parseIdentifier(c tokenCursor) (ast.Node, tokenCursor, bool) {
	return p.memoize(ruleIdentifier, c, func(c tokenCursor) (ast.Node, tokenCursor, bool) {
		tok, next, ok := p.expect(c, token.Identifier, "identifier")
		if !ok {
			return nil, c, false
		}
		return ast.NewIdentifier(tok.Position, tok.Lexeme, ""), next, true
	})
}
