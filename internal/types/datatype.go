// Package types implements the DataType algebra: the small type system
// shared by the inferencer, the instantiator, and the bytecode emitter.
package types

import (
	"fmt"
	"strings"
)

// Primitive enumerates the atomic type tags. Struct, Unknown, Conflict and
// None are also carried as Primitive values inside a Simple DataType —
// Struct-the-primitive only ever appears transiently during
// InfereIdentifierTypes (see internal/typeinfer) before a full Struct
// DataType replaces it.
type Primitive int

const (
	Int Primitive = iota
	Float
	String
	Bool
	Void
	StructTag
	Unknown
	Conflict
	None
)

func (p Primitive) String() string {
	switch p {
	case Int:
		return "int"
	case Float:
		return "float"
	case String:
		return "string"
	case Bool:
		return "bool"
	case Void:
		return "void"
	case StructTag:
		return "struct"
	case Unknown:
		return "unknown"
	case Conflict:
		return "conflict"
	case None:
		return "none"
	default:
		return fmt.Sprintf("Primitive(%d)", int(p))
	}
}

// primitiveNames maps the lexemes usable in a ": <typename>" annotation to
// their Primitive. Struct names are resolved separately via a TypesMap.
var primitiveNames = map[string]Primitive{
	"int":    Int,
	"float":  Float,
	"string": String,
	"bool":   Bool,
	"void":   Void,
}

// LookupPrimitive resolves an annotation lexeme to a primitive type. ok is
// false for names that aren't primitives (the caller should then consult a
// struct TypesMap).
func LookupPrimitive(name string) (Primitive, bool) {
	p, ok := primitiveNames[name]
	return p, ok
}

// Kind discriminates the three DataType shapes.
type Kind int

const (
	KindSimple Kind = iota
	KindFunction
	KindStruct
)

// StructField is one named member of a struct type: its type and its
// assigned word offset (Invalid until UpdateOffsets runs).
type StructField struct {
	Name   string
	Type   DataType
	Offset int
}

// InvalidOffset sentinels a field whose offset has not yet been assigned by
// UpdateOffsets. Assigning twice is an internal invariant violation.
const InvalidOffset = -1

// DataType is the algebraic type value attached to every AST node. Exactly
// one of Simple/Function/Struct fields is meaningful, selected by Kind.
type DataType struct {
	Kind Kind

	// Simple
	Primitive Primitive

	// Function
	Params   []DataType
	Ret      *DataType
	IsExtern bool

	// Struct
	Name   string
	Fields []StructField
}

// Simple builds a Simple DataType for the given primitive.
func Simple(p Primitive) DataType { return DataType{Kind: KindSimple, Primitive: p} }

// UnknownType is shorthand for Simple(Unknown), the initial state of every
// unresolved node.
func UnknownType() DataType { return Simple(Unknown) }

// ConflictType is shorthand for Simple(Conflict).
func ConflictType() DataType { return Simple(Conflict) }

// Function builds a Function DataType.
func Function(params []DataType, ret DataType, isExtern bool) DataType {
	retCopy := ret
	return DataType{Kind: KindFunction, Params: params, Ret: &retCopy, IsExtern: isExtern}
}

// Struct builds a Struct DataType. Field offsets start Invalid; call
// UpdateOffsets to assign them once.
func Struct(name string, fields []StructField) DataType {
	return DataType{Kind: KindStruct, Name: name, Fields: fields}
}

// IsUnknown reports whether t is exactly Simple(Unknown).
func (t DataType) IsUnknown() bool {
	return t.Kind == KindSimple && t.Primitive == Unknown
}

// IsConflict reports whether t is exactly Simple(Conflict).
func (t DataType) IsConflict() bool {
	return t.Kind == KindSimple && t.Primitive == Conflict
}

// IsResolved reports that t is neither Unknown nor Conflict — the state
// every node must reach before emission (see HasUnknownTypes).
func (t DataType) IsResolved() bool {
	return !t.IsUnknown() && !t.IsConflict()
}

// Equal implements the algebra's equality: primitive-equality for Simple,
// pointwise equality for Function, name-equality (nominal typing) for
// Struct.
func (t DataType) Equal(other DataType) bool {
	if t.Kind != other.Kind {
		return false
	}
	switch t.Kind {
	case KindSimple:
		return t.Primitive == other.Primitive
	case KindFunction:
		if t.IsExtern != other.IsExtern {
			return false
		}
		if len(t.Params) != len(other.Params) {
			return false
		}
		for i := range t.Params {
			if !t.Params[i].Equal(other.Params[i]) {
				return false
			}
		}
		if (t.Ret == nil) != (other.Ret == nil) {
			return false
		}
		if t.Ret != nil && !t.Ret.Equal(*other.Ret) {
			return false
		}
		return true
	case KindStruct:
		return t.Name == other.Name
	default:
		return false
	}
}

// Size returns the memory size, in words, of a value of this type. Simple
// and Function types occupy one word each; Struct occupies the sum of its
// fields' sizes.
func (t DataType) Size() int {
	switch t.Kind {
	case KindStruct:
		total := 0
		for _, f := range t.Fields {
			total += f.Type.Size()
		}
		return total
	default:
		return 1
	}
}

// UpdateOffsets assigns each field a stable word offset equal to the
// running sum of the sizes of the fields before it, in declaration order.
// It is a ConstraintViolated-level bug to call this twice on the same
// DataType: a field whose Offset is already non-Invalid is left untouched
// and signalled via the returned bool being false.
func (t *DataType) UpdateOffsets() bool {
	if t.Kind != KindStruct {
		return true
	}
	offset := 0
	ok := true
	for i := range t.Fields {
		if t.Fields[i].Offset != InvalidOffset {
			ok = false
			offset += t.Fields[i].Type.Size()
			continue
		}
		t.Fields[i].Offset = offset
		offset += t.Fields[i].Type.Size()
	}
	return ok
}

// Field looks up a struct field by name.
func (t DataType) Field(name string) (StructField, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return StructField{}, false
}

func (t DataType) String() string {
	switch t.Kind {
	case KindSimple:
		return t.Primitive.String()
	case KindFunction:
		parts := make([]string, len(t.Params))
		for i, p := range t.Params {
			parts[i] = p.String()
		}
		ret := "void"
		if t.Ret != nil {
			ret = t.Ret.String()
		}
		prefix := ""
		if t.IsExtern {
			prefix = "extern "
		}
		return fmt.Sprintf("%s(%s)->%s", prefix, strings.Join(parts, ","), ret)
	case KindStruct:
		return t.Name
	default:
		return "?"
	}
}
