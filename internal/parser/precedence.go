package parser

import (
	"github.com/student/stackscript/internal/ast"
	"github.com/student/stackscript/pkg/token"
)

// precedence returns the binding strength of an infix operator lexeme.
// Ascending: "+ -" bind weakest, then "* /", then "% ^" bind strongest.
// Every operator outside those three groups — including the comparison and
// boolean operators, which the grammar leaves unranked — binds at the
// weakest level, so "a < b + c" parses as "a < (b + c)".
func precedence(op string) int {
	switch op {
	case "+", "-":
		return 0
	case "*", "/":
		return 1
	case "%", "^":
		return 2
	default:
		return 0
	}
}

// reduceInfix repeatedly collapses the strongest-binding adjacent
// operand/operator/operand triple into a Call node until one operand
// remains. Among operators of equal precedence the leftmost is reduced
// first, giving left-to-right associativity for ties (strict '>' in the
// scan below, so an equal-precedence later operator never displaces an
// earlier one as the reduction target).
func reduceInfix(operands []ast.Node, operators []token.Token) ast.Node {
	for len(operators) > 0 {
		best := 0
		bestPrec := precedence(operators[0].Lexeme)
		for i := 1; i < len(operators); i++ {
			if precedence(operators[i].Lexeme) > bestPrec {
				bestPrec = precedence(operators[i].Lexeme)
				best = i
			}
		}

		opTok := operators[best]
		lhs := operands[best]
		rhs := operands[best+1]
		callee := ast.NewIdentifier(opTok.Position, opTok.Lexeme, "")
		call := ast.NewCall(opTok.Position, callee, []ast.Node{lhs, rhs})

		newOperands := make([]ast.Node, 0, len(operands)-1)
		newOperands = append(newOperands, operands[:best]...)
		newOperands = append(newOperands, call)
		newOperands = append(newOperands, operands[best+2:]...)
		operands = newOperands

		newOperators := make([]token.Token, 0, len(operators)-1)
		newOperators = append(newOperators, operators[:best]...)
		newOperators = append(newOperators, operators[best+1:]...)
		operators = newOperators
	}
	return operands[0]
}
