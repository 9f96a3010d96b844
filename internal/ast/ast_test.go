package ast

import (
	"testing"

	"github.com/student/stackscript/internal/types"
	"github.com/student/stackscript/pkg/token"
)

func pos() token.Position { return token.Position{Line: 0, Column: 0} }

func TestNewLiteralSeedsDataTypeByKind(t *testing.T) {
	cases := []struct {
		kind LiteralKind
		want types.Primitive
	}{
		{LitInt, types.Int},
		{LitFloat, types.Float},
		{LitString, types.String},
		{LitBool, types.Bool},
	}
	for _, c := range cases {
		lit := NewLiteral(pos(), c.kind, "x")
		if lit.DataType().Primitive != c.want {
			t.Fatalf("kind %v: expected primitive %v, got %v", c.kind, c.want, lit.DataType().Primitive)
		}
	}
}

func TestNewNodeStartsUnknown(t *testing.T) {
	id := NewIdentifier(pos(), "x", "")
	if !id.DataType().IsUnknown() {
		t.Fatal("expected a freshly built identifier's DataType to be Unknown")
	}
}

func TestCallChildrenIncludesCalleeThenArgs(t *testing.T) {
	callee := NewIdentifier(pos(), "add", "")
	a := NewLiteral(pos(), LitInt, "1")
	b := NewLiteral(pos(), LitInt, "2")
	call := NewCall(pos(), callee, []Node{a, b})

	children := call.Children()
	if len(children) != 3 {
		t.Fatalf("expected 3 children (callee + 2 args), got %d", len(children))
	}
	if children[0] != Node(callee) {
		t.Fatal("expected the callee to be the first child")
	}
	if call.String() != "add(1, 2)" {
		t.Fatalf("unexpected String(): %q", call.String())
	}
}

func TestRetWithNilExprIsVoidWithNoChildren(t *testing.T) {
	r := NewRet(pos(), nil)
	if !r.DataType().Equal(types.Simple(types.Void)) {
		t.Fatal("expected a bare ret to be typed Void")
	}
	if len(r.Children()) != 0 {
		t.Fatal("expected a bare ret to have no children")
	}
	if r.String() != "ret;" {
		t.Fatalf("unexpected String(): %q", r.String())
	}
}

func TestRetWithExprHasOneChild(t *testing.T) {
	lit := NewLiteral(pos(), LitInt, "42")
	r := NewRet(pos(), lit)
	if len(r.Children()) != 1 {
		t.Fatal("expected one child for a value-carrying ret")
	}
	if r.String() != "ret 42;" {
		t.Fatalf("unexpected String(): %q", r.String())
	}
}

func TestBlockStringJoinsStatements(t *testing.T) {
	block := NewBlock(pos(), []Node{
		NewRet(pos(), NewLiteral(pos(), LitInt, "1")),
		NewRet(pos(), NewLiteral(pos(), LitInt, "2")),
	})
	if block.String() != "{ ret 1;; ret 2; }" {
		t.Fatalf("unexpected String(): %q", block.String())
	}
}

func TestAssignStringAndChildren(t *testing.T) {
	lhs := NewIdentifier(pos(), "x", "")
	rhs := NewLiteral(pos(), LitInt, "1")
	assign := NewAssign(pos(), lhs, rhs)
	if assign.String() != "x = 1" {
		t.Fatalf("unexpected String(): %q", assign.String())
	}
	if len(assign.Children()) != 2 {
		t.Fatal("expected 2 children (lhs, rhs)")
	}
}

func TestWalkVisitsEveryDescendant(t *testing.T) {
	callee := NewIdentifier(pos(), "add", "")
	call := NewCall(pos(), callee, []Node{NewLiteral(pos(), LitInt, "1")})
	block := NewBlock(pos(), []Node{NewRet(pos(), call)})

	var visited []Node
	Walk(block, func(n Node) { visited = append(visited, n) })

	// block, ret, call, callee, literal
	if len(visited) != 5 {
		t.Fatalf("expected 5 visited nodes, got %d", len(visited))
	}
	if visited[0] != Node(block) {
		t.Fatal("expected Walk to visit the root first")
	}
}

func TestWalkOnNilNodeIsNoop(t *testing.T) {
	var calls int
	Walk(nil, func(n Node) { calls++ })
	if calls != 0 {
		t.Fatalf("expected zero visits for a nil root, got %d", calls)
	}
}

func TestSetDataTypeMutatesInPlace(t *testing.T) {
	id := NewIdentifier(pos(), "x", "")
	id.SetDataType(types.Simple(types.Int))
	if !id.DataType().Equal(types.Simple(types.Int)) {
		t.Fatal("expected SetDataType to mutate the node's type slot")
	}
}
