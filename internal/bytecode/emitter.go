package bytecode

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/student/stackscript/internal/ast"
	"github.com/student/stackscript/internal/types"
)

// FFIReturnTag mirrors the return-type tags internal/ffi dispatches on;
// kept here (not imported from internal/ffi) so bytecode has no dependency
// on the FFI package — only Instruction.Arg3's encoding needs to agree.
type FFIReturnTag int64

const (
	FFINumber FFIReturnTag = iota
	FFIFloat
	FFIBool
	FFIVoid
)

type fnBackpatch struct {
	instrIndex int
	funcID     string
}

type emitter struct {
	data        []byte
	dataOffsets map[string]int

	code          []Instruction
	funcOffsets   map[string]int
	fnBackpatches []fnBackpatch

	locals    map[string]int
	nextLocal int
}

// Emit lowers the instantiated function map into a Program, following the
// entry layout SPEC_FULL.md §4.8 prescribes: PUSH/CALL/TERM at offsets
// 0–2, function bodies concatenated after them, with instruction 0's
// operand and every FnPtr PUSH site backpatched once every function's
// offset is known.
func Emit(functions map[string]*ast.Function) *Program {
	e := &emitter{
		dataOffsets: map[string]int{},
		funcOffsets: map[string]int{},
	}

	e.code = append(e.code, Instruction{Op: OpPush, Arg1: 0})
	e.code = append(e.code, Instruction{Op: OpCall, Arg1: 0})
	e.code = append(e.code, Instruction{Op: OpTerm})

	for _, id := range sortedFunctionIDs(functions) {
		e.funcOffsets[id] = len(e.code)
		e.emitFunction(functions[id])
	}

	for _, bp := range e.fnBackpatches {
		target, ok := e.funcOffsets[bp.funcID]
		if !ok {
			panic(fmt.Sprintf("bytecode: no offset recorded for function %q", bp.funcID))
		}
		e.code[bp.instrIndex].Arg1 = int64(target)
	}
	e.code[0].Arg1 = int64(e.funcOffsets["main"])

	return &Program{Data: e.data, Code: e.code}
}

func sortedFunctionIDs(functions map[string]*ast.Function) []string {
	ids := make([]string, 0, len(functions))
	for id := range functions {
		if id != "main" {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return append([]string{"main"}, ids...)
}

func (e *emitter) emitFunction(fn *ast.Function) {
	decl, ok := fn.Head.(*ast.Declfn)
	if !ok {
		// ExternFn never reaches the function map: InstantiateFunctions only
		// extracts Declfn-assigned literals. Declared externs stay inline as
		// statements and are lowered by emitExternFn instead.
		return
	}

	e.locals = map[string]int{}
	e.nextLocal = 0
	for _, p := range decl.Params {
		e.bindLocal(p.Name)
	}
	if fn.Body != nil {
		e.emitStatement(fn.Body)
	}
}

func (e *emitter) bindLocal(name string) int {
	if idx, ok := e.locals[name]; ok {
		return idx
	}
	idx := e.nextLocal
	e.locals[name] = idx
	e.nextLocal++
	return idx
}

func (e *emitter) emit(op OpCode, args ...int64) int {
	inst := Instruction{Op: op}
	if len(args) > 0 {
		inst.Arg1 = args[0]
	}
	if len(args) > 1 {
		inst.Arg2 = args[1]
	}
	if len(args) > 2 {
		inst.Arg3 = args[2]
	}
	e.code = append(e.code, inst)
	return len(e.code) - 1
}

func (e *emitter) patch(index, target int) {
	e.code[index].Arg1 = int64(target)
}

func (e *emitter) internString(s string) int {
	if off, ok := e.dataOffsets[s]; ok {
		return off
	}
	off := len(e.data)
	e.data = append(e.data, []byte(s)...)
	e.data = append(e.data, 0)
	e.dataOffsets[s] = off
	return off
}

// emitStatement lowers n in statement position: the stack is unchanged
// overall once it returns, except for explicit POPs discarding a call's
// unused result.
func (e *emitter) emitStatement(n ast.Node) {
	switch node := n.(type) {

	case *ast.Block:
		for _, stmt := range node.Statements {
			e.emitStatement(stmt)
		}

	case *ast.Ret:
		if node.Expr != nil {
			e.emitValue(node.Expr)
			e.emit(OpRet, 1)
		} else {
			e.emit(OpRet, 0)
		}

	case *ast.If:
		e.emitValue(node.Cond)
		jumpIfIdx := e.emit(OpJumpIf, 0)
		e.emitStatement(node.Then)
		if node.Else != nil {
			jumpIdx := e.emit(OpJump, 0)
			e.patch(jumpIfIdx, len(e.code))
			e.emitStatement(node.Else)
			e.emit(OpNop)
			e.patch(jumpIdx, len(e.code)-1)
		} else {
			e.emit(OpNop)
			e.patch(jumpIfIdx, len(e.code)-1)
		}

	case *ast.While:
		start := len(e.code)
		e.emitValue(node.Cond)
		exitIdx := e.emit(OpJumpIf, 0)
		e.emitStatement(node.Body)
		e.emit(OpJump, int64(start))
		e.emit(OpNop)
		e.patch(exitIdx, len(e.code)-1)

	case *ast.Declvar:
		e.emitDeclvarInit(node)

	case *ast.Assign:
		e.emitAssign(node, false)

	case *ast.ExternFn:
		e.emitExternFn(node)

	case *ast.DeclStruct:
		// type declaration only; nothing to lower

	case *ast.Call:
		e.emitValue(node)
		if !isVoidType(node.DataType()) {
			e.emit(OpPop)
		}

	default:
		e.emitValue(node)
		e.emit(OpPop)
	}
}

func isVoidType(t types.DataType) bool {
	return t.Kind == types.KindSimple && (t.Primitive == types.Void || t.Primitive == types.None)
}

// emitDeclvarInit lowers an uninitialized "let x;" / "let x: T;" statement:
// allocate the next local slot, zero-initializing struct locals on the heap
// (nested struct fields get their own sub-allocation, stored by offset).
func (e *emitter) emitDeclvarInit(node *ast.Declvar) {
	dt := node.Name.DataType()
	if dt.Kind == types.KindStruct {
		e.emit(OpAlloc, int64(dt.Size()))
		for _, f := range dt.Fields {
			if f.Type.Kind != types.KindStruct {
				continue
			}
			e.emit(OpAlloc, int64(f.Type.Size()))
			e.emit(OpDub, 1)
			e.emit(OpStoreW, int64(f.Offset))
		}
	} else {
		e.emit(OpPush, 0)
	}
	idx := e.bindLocal(node.Name.Name)
	e.emit(OpLocalS, int64(idx))
}

// emitAssign lowers LHS = RHS. leaveValue controls whether a copy of RHS's
// value is left on the stack afterward, for Assign used as a sub-expression
// (the grammar allows assignment in value position via nrExpression).
func (e *emitter) emitAssign(node *ast.Assign, leaveValue bool) {
	switch lhs := node.LHS.(type) {

	case *ast.Declvar:
		e.emitValue(node.RHS)
		if leaveValue {
			e.emit(OpDub, 0)
		}
		idx := e.bindLocal(lhs.Name.Name)
		e.emit(OpLocalS, int64(idx))

	case *ast.Identifier:
		e.emitValue(node.RHS)
		if leaveValue {
			e.emit(OpDub, 0)
		}
		idx := e.bindLocal(lhs.Name)
		e.emit(OpLocalS, int64(idx))

	case *ast.StructAccess:
		e.emitValue(node.RHS)
		if leaveValue {
			e.emit(OpDub, 0)
		}
		e.emitStructAccessWrite(lhs)
	}
}

// emitValue lowers n so that exactly one word is left on the stack.
func (e *emitter) emitValue(n ast.Node) {
	switch node := n.(type) {

	case *ast.Literal:
		e.emitLiteral(node)

	case *ast.Identifier:
		idx := e.bindLocal(node.Name)
		e.emit(OpLocalL, int64(idx))

	case *ast.Call:
		e.emitCall(node)

	case *ast.StructAccess:
		e.emitStructAccessRead(node)

	case *ast.Assign:
		e.emitAssign(node, true)

	case *ast.FnPtr:
		idx := e.emit(OpPush, 0)
		e.fnBackpatches = append(e.fnBackpatches, fnBackpatch{instrIndex: idx, funcID: node.FuncID})

	case *ast.Block:
		for i, stmt := range node.Statements {
			if i == len(node.Statements)-1 {
				e.emitValue(stmt)
			} else {
				e.emitStatement(stmt)
			}
		}

	default:
		panic(fmt.Sprintf("bytecode: %T has no value-position lowering", n))
	}
}

func (e *emitter) emitLiteral(node *ast.Literal) {
	switch node.Kind {
	case ast.LitInt:
		v, _ := strconv.ParseInt(node.Raw, 10, 64)
		e.emit(OpPush, v)
	case ast.LitBool:
		v := int64(0)
		if node.Raw == "true" {
			v = 1
		}
		e.emit(OpPush, v)
	case ast.LitString:
		off := e.internString(node.Raw)
		e.emit(OpDataAddr, int64(off))
	case ast.LitFloat:
		f, _ := strconv.ParseFloat(node.Raw, 64)
		e.emit(OpPush, int64(math.Float64bits(f)))
	}
}

// emitCall dispatches a built-in operator to its ALU opcode, or lowers an
// ordinary/extern call: arguments in value position (tagged with
// PUSH_FFI_QWORD when the callee is extern), the callee's resolved address
// loaded last, then CALL or CALL_FFI.
func (e *emitter) emitCall(node *ast.Call) {
	name := node.Callee.Name

	switch name {
	case "&&":
		e.emitValue(node.Args[0])
		e.emitValue(node.Args[1])
		e.emit(OpMul)
		return
	case "||":
		e.emitValue(node.Args[0])
		e.emitValue(node.Args[1])
		e.emit(OpAdd)
		e.emit(OpPush, 0)
		e.emit(OpNEQ)
		return
	}

	if op, ok := operatorOpcodes[name]; ok {
		e.emitValue(node.Args[0])
		e.emitValue(node.Args[1])
		e.emit(op)
		return
	}

	calleeType := node.Callee.DataType()
	isExtern := calleeType.Kind == types.KindFunction && calleeType.IsExtern

	for _, arg := range node.Args {
		e.emitValue(arg)
		if isExtern {
			e.emit(OpPushFFIArg)
		}
	}

	idx := e.bindLocal(name)
	e.emit(OpLocalL, int64(idx))

	if isExtern {
		e.emit(OpCallFFI)
	} else {
		e.emit(OpCall, int64(len(node.Args)))
	}
}

// emitExternFn lowers an "extern lib::name(params): ret" declaration:
// resolve the symbol and bind the resulting handle to a local, exactly like
// a function-literal assignment does for ordinary functions.
func (e *emitter) emitExternFn(node *ast.ExternFn) {
	libOff := e.internString(node.Library)
	nameOff := e.internString(node.Name.Name)
	e.emit(OpRegFFI, int64(libOff), int64(nameOff), int64(ffiReturnTag(node.Name.DataType())))
	idx := e.bindLocal(node.Name.Name)
	e.emit(OpLocalS, int64(idx))
}

func ffiReturnTag(fnType types.DataType) FFIReturnTag {
	ret := fnType
	if fnType.Kind == types.KindFunction && fnType.Ret != nil {
		ret = *fnType.Ret
	}
	switch {
	case ret.Kind == types.KindSimple && ret.Primitive == types.Void:
		return FFIVoid
	case ret.Kind == types.KindSimple && ret.Primitive == types.Bool:
		return FFIBool
	case ret.Kind == types.KindSimple && ret.Primitive == types.Float:
		return FFIFloat
	default:
		return FFINumber
	}
}

// emitStructAccessRead lowers a struct field chain in value position: the
// head local, then one LOADW per subsequent path element.
func (e *emitter) emitStructAccessRead(node *ast.StructAccess) {
	head := node.Path[0]
	idx := e.bindLocal(head.Name)
	e.emit(OpLocalL, int64(idx))

	current := head.DataType()
	for _, field := range node.Path[1:] {
		sf, _ := current.Field(field.Name)
		e.emit(OpLoadW, int64(sf.Offset))
		current = sf.Type
	}
}

// emitStructAccessWrite lowers the address side of a struct field store: the
// head local, LOADW through every intermediate hop, leaving the tail
// struct's address on top for the STOREW the caller emits.
func (e *emitter) emitStructAccessWrite(node *ast.StructAccess) {
	head := node.Path[0]
	idx := e.bindLocal(head.Name)
	e.emit(OpLocalL, int64(idx))

	current := head.DataType()
	for i := 1; i < len(node.Path)-1; i++ {
		sf, _ := current.Field(node.Path[i].Name)
		e.emit(OpLoadW, int64(sf.Offset))
		current = sf.Type
	}
	tail := node.Path[len(node.Path)-1]
	sf, _ := current.Field(tail.Name)
	e.emit(OpStoreW, int64(sf.Offset))
}
