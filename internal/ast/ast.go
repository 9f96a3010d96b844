// Package ast defines the closed AST node variant set for stackscript
// programs, plus the generic child-walking helpers used by every later
// pipeline phase (type inference, instantiation, emission).
package ast

import (
	"fmt"
	"strings"

	"github.com/student/stackscript/internal/types"
	"github.com/student/stackscript/pkg/token"
)

// Node is the base interface every AST variant implements. DataType is
// mutable: inference passes resolve it in place, so node identity survives
// the whole pipeline even as its type slot changes from Unknown to a
// concrete type (or to Conflict).
type Node interface {
	Pos() token.Position
	DataType() types.DataType
	SetDataType(types.DataType)
	Children() []Node
	String() string
}

// base is embedded by every concrete node and carries the two fields every
// node has regardless of shape: its source position and its mutable type
// slot. Embedding rather than duplicating these fields on every variant
// keeps the variant definitions focused on their own shape.
type base struct {
	position token.Position
	dataType types.DataType
}

func newBase(pos token.Position) base {
	return base{position: pos, dataType: types.UnknownType()}
}

func (b *base) Pos() token.Position          { return b.position }
func (b *base) DataType() types.DataType     { return b.dataType }
func (b *base) SetDataType(t types.DataType) { b.dataType = t }

// Block is a brace-delimited sequence of statements. Its DataType is the
// type of its last statement when that statement is itself value-producing
// or a ret (the top-level block's type becomes main's return type); any
// other block, including an empty one, is Void.
type Block struct {
	base
	Statements []Node
}

func NewBlock(pos token.Position, stmts []Node) *Block {
	b := &Block{Statements: stmts}
	b.base = newBase(pos)
	return b
}
func (n *Block) Children() []Node { return n.Statements }
func (n *Block) String() string {
	parts := make([]string, len(n.Statements))
	for i, s := range n.Statements {
		parts[i] = s.String()
	}
	return "{ " + strings.Join(parts, "; ") + " }"
}

// Identifier is a name reference, optionally carrying the raw annotation
// text written after a ':' (resolved to a concrete DataType later by
// ApplyTypeAnnotations).
type Identifier struct {
	base
	Name       string
	Annotation string // "" if no ": <typename>" was written
}

func NewIdentifier(pos token.Position, name, annotation string) *Identifier {
	id := &Identifier{Name: name, Annotation: annotation}
	id.base = newBase(pos)
	return id
}
func (n *Identifier) Children() []Node { return nil }
func (n *Identifier) String() string   { return n.Name }

// LiteralKind discriminates the four literal shapes the tokenizer can
// produce.
type LiteralKind int

const (
	LitInt LiteralKind = iota
	LitFloat
	LitString
	LitBool
)

// Literal is a constant value carrying its raw source text (so the emitter
// can parse it into the exact bit pattern it needs without re-deriving it
// from a pre-parsed Go value).
type Literal struct {
	base
	Kind LiteralKind
	Raw  string
}

func NewLiteral(pos token.Position, kind LiteralKind, raw string) *Literal {
	l := &Literal{Kind: kind, Raw: raw}
	l.base = newBase(pos)
	switch kind {
	case LitInt:
		l.SetDataType(types.Simple(types.Int))
	case LitFloat:
		l.SetDataType(types.Simple(types.Float))
	case LitString:
		l.SetDataType(types.Simple(types.String))
	case LitBool:
		l.SetDataType(types.Simple(types.Bool))
	}
	return l
}
func (n *Literal) Children() []Node { return nil }
func (n *Literal) String() string   { return n.Raw }

// Call is both an operator application (Identifier.Name is "+", "<", …) and
// an ordinary function call — the emitter dispatches on the callee name to
// tell them apart (see internal/bytecode).
type Call struct {
	base
	Callee *Identifier
	Args   []Node
}

func NewCall(pos token.Position, callee *Identifier, args []Node) *Call {
	c := &Call{Callee: callee, Args: args}
	c.base = newBase(pos)
	return c
}
func (n *Call) Children() []Node {
	children := make([]Node, 0, len(n.Args)+1)
	children = append(children, n.Callee)
	children = append(children, n.Args...)
	return children
}
func (n *Call) String() string {
	parts := make([]string, len(n.Args))
	for i, a := range n.Args {
		parts[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", n.Callee.Name, strings.Join(parts, ", "))
}

// Ret is a return statement. Expr is nil for a bare "ret;".
type Ret struct {
	base
	Expr Node
}

func NewRet(pos token.Position, expr Node) *Ret {
	r := &Ret{Expr: expr}
	r.base = newBase(pos)
	if expr == nil {
		r.SetDataType(types.Simple(types.Void))
	}
	return r
}
func (n *Ret) Children() []Node {
	if n.Expr == nil {
		return nil
	}
	return []Node{n.Expr}
}
func (n *Ret) String() string {
	if n.Expr == nil {
		return "ret;"
	}
	return "ret " + n.Expr.String() + ";"
}

// Assign covers every "LHS = RHS" form the grammar accepts: LHS may be an
// Identifier, a Declvar, a Declfn (function literal assignment, rewritten
// away by InstantiateFunctions), or a StructAccess.
type Assign struct {
	base
	LHS Node
	RHS Node
}

func NewAssign(pos token.Position, lhs, rhs Node) *Assign {
	a := &Assign{LHS: lhs, RHS: rhs}
	a.base = newBase(pos)
	return a
}
func (n *Assign) Children() []Node { return []Node{n.LHS, n.RHS} }
func (n *Assign) String() string   { return n.LHS.String() + " = " + n.RHS.String() }

// Declvar introduces a new local binding: "let name" or "let name: Type".
type Declvar struct {
	base
	Name       *Identifier
	LocalIndex int // -1; no pass assigns it (the emitter tracks locals by name)
}

func NewDeclvar(pos token.Position, name *Identifier) *Declvar {
	d := &Declvar{Name: name, LocalIndex: -1}
	d.base = newBase(pos)
	return d
}
func (n *Declvar) Children() []Node { return []Node{n.Name} }
func (n *Declvar) String() string   { return "let " + n.Name.String() }

// Declfn introduces a function's signature: "let name(params)". It only
// ever appears as the LHS of an Assign whose RHS is the function body;
// InstantiateFunctions consumes that Assign entirely.
type Declfn struct {
	base
	Name   *Identifier
	Params []*Identifier
}

func NewDeclfn(pos token.Position, name *Identifier, params []*Identifier) *Declfn {
	d := &Declfn{Name: name, Params: params}
	d.base = newBase(pos)
	return d
}
func (n *Declfn) Children() []Node {
	children := make([]Node, 0, len(n.Params)+1)
	children = append(children, n.Name)
	for _, p := range n.Params {
		children = append(children, p)
	}
	return children
}
func (n *Declfn) String() string {
	parts := make([]string, len(n.Params))
	for i, p := range n.Params {
		parts[i] = p.String()
	}
	return fmt.Sprintf("let %s(%s)", n.Name.Name, strings.Join(parts, ", "))
}

// ExternFn declares a native symbol: "extern lib::name(params): ret".
type ExternFn struct {
	base
	Library  string
	Name     *Identifier
	Params   []*Identifier
	RetAnnot string // "" means Void
}

func NewExternFn(pos token.Position, library string, name *Identifier, params []*Identifier, retAnnot string) *ExternFn {
	e := &ExternFn{Library: library, Name: name, Params: params, RetAnnot: retAnnot}
	e.base = newBase(pos)
	return e
}
func (n *ExternFn) Children() []Node {
	children := make([]Node, 0, len(n.Params)+1)
	children = append(children, n.Name)
	for _, p := range n.Params {
		children = append(children, p)
	}
	return children
}
func (n *ExternFn) String() string {
	parts := make([]string, len(n.Params))
	for i, p := range n.Params {
		parts[i] = p.String()
	}
	return fmt.Sprintf("extern %s::%s(%s)", n.Library, n.Name.Name, strings.Join(parts, ", "))
}

// DeclStruct declares a struct type: "struct Name { let f: T; ... }".
type DeclStruct struct {
	base
	Name   *Identifier
	Fields []*Declvar
}

func NewDeclStruct(pos token.Position, name *Identifier, fields []*Declvar) *DeclStruct {
	d := &DeclStruct{Name: name, Fields: fields}
	d.base = newBase(pos)
	return d
}
func (n *DeclStruct) Children() []Node {
	children := make([]Node, 0, len(n.Fields)+1)
	children = append(children, n.Name)
	for _, f := range n.Fields {
		children = append(children, f)
	}
	return children
}
func (n *DeclStruct) String() string {
	parts := make([]string, len(n.Fields))
	for i, f := range n.Fields {
		parts[i] = f.String()
	}
	return fmt.Sprintf("struct %s { %s }", n.Name.Name, strings.Join(parts, "; "))
}

// StructAccess is a chain of ≥2 identifiers joined by '.': "p.x",
// "a.b.c". Path[0] is the head variable; the rest are field names.
type StructAccess struct {
	base
	Path []*Identifier
}

func NewStructAccess(pos token.Position, path []*Identifier) *StructAccess {
	s := &StructAccess{Path: path}
	s.base = newBase(pos)
	return s
}
func (n *StructAccess) Children() []Node {
	children := make([]Node, len(n.Path))
	for i, id := range n.Path {
		children[i] = id
	}
	return children
}
func (n *StructAccess) String() string {
	parts := make([]string, len(n.Path))
	for i, id := range n.Path {
		parts[i] = id.Name
	}
	return strings.Join(parts, ".")
}

// If is a conditional statement with an optional else branch.
type If struct {
	base
	Cond Node
	Then Node
	Else Node // nil if no else branch
}

func NewIf(pos token.Position, cond, then, els Node) *If {
	n := &If{Cond: cond, Then: then, Else: els}
	n.base = newBase(pos)
	return n
}
func (n *If) Children() []Node {
	children := []Node{n.Cond, n.Then}
	if n.Else != nil {
		children = append(children, n.Else)
	}
	return children
}
func (n *If) String() string {
	if n.Else == nil {
		return fmt.Sprintf("if (%s) %s", n.Cond.String(), n.Then.String())
	}
	return fmt.Sprintf("if (%s) %s else %s", n.Cond.String(), n.Then.String(), n.Else.String())
}

// While is a pre-tested loop.
type While struct {
	base
	Cond Node
	Body Node
}

func NewWhile(pos token.Position, cond, body Node) *While {
	n := &While{Cond: cond, Body: body}
	n.base = newBase(pos)
	return n
}
func (n *While) Children() []Node { return []Node{n.Cond, n.Body} }
func (n *While) String() string   { return fmt.Sprintf("while (%s) %s", n.Cond.String(), n.Body.String()) }

// FnPtr replaces a function-valued expression after InstantiateFunctions:
// it carries the unique id under which the function's body now lives in the
// top-level function map, instead of the body itself.
type FnPtr struct {
	base
	FuncID string
}

func NewFnPtr(pos token.Position, funcID string, fnType types.DataType) *FnPtr {
	n := &FnPtr{FuncID: funcID}
	n.base = newBase(pos)
	n.SetDataType(fnType)
	return n
}
func (n *FnPtr) Children() []Node { return nil }
func (n *FnPtr) String() string   { return "&" + n.FuncID }

// Function pairs a signature (Declfn or ExternFn) with its body. It only
// exists inside the function map produced by InstantiateFunctions — it is
// never itself a child of another node.
type Function struct {
	base
	ID     string
	Head   Node // *Declfn or *ExternFn
	Body   Node // nil for ExternFn
	Params []*Identifier
}

func NewFunction(id string, head Node, body Node, params []*Identifier) *Function {
	f := &Function{ID: id, Head: head, Body: body, Params: params}
	f.base = newBase(head.Pos())
	return f
}
func (n *Function) Children() []Node {
	if n.Body == nil {
		return []Node{n.Head}
	}
	return []Node{n.Head, n.Body}
}
func (n *Function) String() string {
	if n.Body == nil {
		return n.Head.String()
	}
	return n.Head.String() + " = " + n.Body.String()
}

// Walk visits n and every descendant, depth-first, calling visit on each
// node before recursing into its children. Every inference/rewrite pass in
// the pipeline is built on this single generic walker.
func Walk(n Node, visit func(Node)) {
	if n == nil {
		return
	}
	visit(n)
	for _, child := range n.Children() {
		Walk(child, visit)
	}
}
