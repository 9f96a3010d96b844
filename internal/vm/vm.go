// Package vm executes a bytecode.Program on a stack-based virtual machine:
// a value stack, an append-only heap for struct storage, a read-only data
// blob for string constants, and a call-frame discipline that hands
// arguments to a callee as its first locals.
package vm

import (
	"fmt"

	"github.com/student/stackscript/internal/bytecode"
	"github.com/student/stackscript/internal/errors"
	"github.com/student/stackscript/internal/ffi"
)

// Status reports how a Run call ended.
type Status int

const (
	// Finished means the program reached TERM.
	Finished Status = iota
	// Paused means the instruction budget ran out before TERM.
	Paused
)

// Result is what Run returns: whether execution finished or paused, and the
// top-of-stack value at that point (Value is meaningless, and HasValue is
// false, when the stack was empty — a Void-returning program).
type Result struct {
	Status   Status
	Value    int64
	HasValue bool
}

type callFrame struct {
	returnAddr int
	savedBase  int
}

// VM holds all mutable execution state for one program run. Nothing here is
// shared across runs or threads — SPEC_FULL.md §5 requires single-threaded,
// one-compile-one-run ownership, and a fresh VM is the simplest way to keep
// that ownership unambiguous.
type VM struct {
	program *bytecode.Program

	stack     []int64
	heap      []int64
	frames    []callFrame
	frameBase int
	ip        int

	ffiArgs []int64
	bridge  *ffi.Bridge

	Debug  bool
	Tracer func(ip int, inst bytecode.Instruction, stackTop int64, hasTop bool)
}

// New builds a VM ready to run program. The ffi.Bridge it owns is released
// once the program finishes or errors (not on a Paused pause, which a
// later Run call may still resume), satisfying the "library cache releases
// all handles on VM teardown" resource rule. libPaths is tried, in order,
// for any REG_FFI library name that dlopen can't resolve directly.
func New(program *bytecode.Program, libPaths ...string) *VM {
	bridge := ffi.NewBridge()
	bridge.SearchPaths = libPaths
	return &VM{
		program: program,
		stack:   make([]int64, 0, 256),
		heap:    make([]int64, 0, 256),
		bridge:  bridge,
	}
}

// Run executes instructions starting from the VM's current ip (0 on a
// fresh VM) until TERM, until budget instructions have executed, or until a
// ConstraintViolated is raised. budget <= 0 means unlimited. A Paused result
// leaves the FFI bridge open so a later Run call can resume past a
// CALL_FFI — the bridge is only torn down once execution actually finishes
// or fails. Close releases it early if a paused run is abandoned instead.
func (vm *VM) Run(budget int) (Result, error) {
	result, err := vm.run(budget)
	if err != nil || result.Status != Paused {
		vm.bridge.Close()
	}
	return result, err
}

// Close releases every FFI library handle the VM has opened. Run calls it
// automatically once a program finishes or errors; callers that abandon a
// Paused VM without resuming it should call this themselves.
func (vm *VM) Close() {
	vm.bridge.Close()
}

func (vm *VM) run(budget int) (Result, error) {
	executed := 0
	for {
		if budget > 0 && executed >= budget {
			return Result{Status: Paused, Value: vm.peekOrZero()}, nil
		}
		if vm.ip < 0 || vm.ip >= len(vm.program.Code) {
			return Result{}, errors.NewConstraintViolated(
				fmt.Sprintf("ip %d out of range", vm.ip), nil)
		}

		inst := vm.program.Code[vm.ip]
		if vm.Tracer != nil {
			top, has := vm.top()
			vm.Tracer(vm.ip, inst, top, has)
		}
		vm.ip++
		executed++

		switch inst.Op {

		case bytecode.OpPush:
			vm.push(inst.Arg1)

		case bytecode.OpDataAddr:
			vm.push(inst.Arg1)

		case bytecode.OpPop:
			if _, err := vm.pop(); err != nil {
				return Result{}, err
			}

		case bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv, bytecode.OpMod,
			bytecode.OpLT, bytecode.OpGT, bytecode.OpEQ, bytecode.OpLTE, bytecode.OpGTE, bytecode.OpNEQ:
			if err := vm.alu(inst.Op); err != nil {
				return Result{}, err
			}

		case bytecode.OpLocalL:
			v, err := vm.localAt(int(inst.Arg1))
			if err != nil {
				return Result{}, err
			}
			vm.push(v)

		case bytecode.OpLocalS:
			v, err := vm.pop()
			if err != nil {
				return Result{}, err
			}
			vm.setLocal(int(inst.Arg1), v)

		case bytecode.OpAlloc:
			vm.push(vm.alloc(int(inst.Arg1)))

		case bytecode.OpLoadW:
			addr, err := vm.pop()
			if err != nil {
				return Result{}, err
			}
			v, err := vm.loadHeap(addr, inst.Arg1)
			if err != nil {
				return Result{}, err
			}
			vm.push(v)

		case bytecode.OpStoreW:
			addr, err := vm.pop()
			if err != nil {
				return Result{}, err
			}
			v, err := vm.pop()
			if err != nil {
				return Result{}, err
			}
			if err := vm.storeHeap(addr, inst.Arg1, v); err != nil {
				return Result{}, err
			}

		case bytecode.OpDub:
			if err := vm.dub(int(inst.Arg1)); err != nil {
				return Result{}, err
			}

		case bytecode.OpJump:
			vm.ip = int(inst.Arg1)

		case bytecode.OpJumpIf:
			cond, err := vm.pop()
			if err != nil {
				return Result{}, err
			}
			if cond == 0 {
				vm.ip = int(inst.Arg1)
			}

		case bytecode.OpCall:
			if err := vm.call(int(inst.Arg1)); err != nil {
				return Result{}, err
			}

		case bytecode.OpRet:
			done, result := vm.ret(inst.Arg1 != 0)
			if done {
				return result, nil
			}

		case bytecode.OpRegFFI:
			if err := vm.regFFI(inst); err != nil {
				return Result{}, err
			}

		case bytecode.OpPushFFIArg:
			v, err := vm.pop()
			if err != nil {
				return Result{}, err
			}
			vm.ffiArgs = append(vm.ffiArgs, v)
			vm.push(v)

		case bytecode.OpCallFFI:
			if err := vm.callFFI(); err != nil {
				return Result{}, err
			}

		case bytecode.OpNop:
			// no-op: explicit branch-landing target

		case bytecode.OpTerm:
			top, has := vm.top()
			return Result{Status: Finished, Value: top, HasValue: has}, nil

		default:
			return Result{}, errors.NewConstraintViolated(
				fmt.Sprintf("unknown opcode %v", inst.Op), nil)
		}
	}
}

func (vm *VM) push(v int64) { vm.stack = append(vm.stack, v) }

func (vm *VM) pop() (int64, error) {
	if len(vm.stack) == 0 {
		return 0, errors.NewConstraintViolated("pop on empty stack", nil)
	}
	v := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return v, nil
}

func (vm *VM) top() (int64, bool) {
	if len(vm.stack) == 0 {
		return 0, false
	}
	return vm.stack[len(vm.stack)-1], true
}

func (vm *VM) peekOrZero() int64 {
	v, _ := vm.top()
	return v
}

func (vm *VM) dub(n int) error {
	idx := len(vm.stack) - 1 - n
	if idx < 0 {
		return errors.NewConstraintViolated(fmt.Sprintf("DUB %d underflows the stack", n), nil)
	}
	vm.push(vm.stack[idx])
	return nil
}

func (vm *VM) localAt(idx int) (int64, error) {
	pos := vm.frameBase + idx
	if pos < 0 || pos >= len(vm.stack) {
		return 0, errors.NewConstraintViolated(fmt.Sprintf("local %d out of range", idx), nil)
	}
	return vm.stack[pos], nil
}

// setLocal writes frameBase+idx, appending a fresh slot when idx names the
// next unused local — the same opcode serves both "declare" and "assign".
func (vm *VM) setLocal(idx int, v int64) {
	pos := vm.frameBase + idx
	if pos == len(vm.stack) {
		vm.stack = append(vm.stack, v)
		return
	}
	vm.stack[pos] = v
}

func (vm *VM) alloc(n int) int64 {
	base := int64(len(vm.heap))
	for i := 0; i < n; i++ {
		vm.heap = append(vm.heap, 0)
	}
	return base
}

func (vm *VM) loadHeap(addr, offset int64) (int64, error) {
	pos := addr + offset
	if pos < 0 || int(pos) >= len(vm.heap) {
		return 0, errors.NewConstraintViolated(fmt.Sprintf("heap read at %d out of range", pos), nil)
	}
	return vm.heap[pos], nil
}

func (vm *VM) storeHeap(addr, offset, v int64) error {
	pos := addr + offset
	if pos < 0 || int(pos) >= len(vm.heap) {
		return errors.NewConstraintViolated(fmt.Sprintf("heap write at %d out of range", pos), nil)
	}
	vm.heap[pos] = v
	return nil
}

// alu implements the two-operand integer ALU: pop a (top), pop b, push b
// <op> a — so SUB computes b-a and DIV computes b/a, matching "a" being the
// operand pushed last (the right-hand side of the source expression).
func (vm *VM) alu(op bytecode.OpCode) error {
	a, err := vm.pop()
	if err != nil {
		return err
	}
	b, err := vm.pop()
	if err != nil {
		return err
	}
	switch op {
	case bytecode.OpAdd:
		vm.push(b + a)
	case bytecode.OpSub:
		vm.push(b - a)
	case bytecode.OpMul:
		vm.push(b * a)
	case bytecode.OpDiv:
		if a == 0 {
			return errors.NewConstraintViolated("division by zero", nil)
		}
		vm.push(b / a)
	case bytecode.OpMod:
		if a == 0 {
			return errors.NewConstraintViolated("modulo by zero", nil)
		}
		vm.push(b % a)
	case bytecode.OpLT:
		vm.push(boolWord(b < a))
	case bytecode.OpGT:
		vm.push(boolWord(b > a))
	case bytecode.OpEQ:
		vm.push(boolWord(b == a))
	case bytecode.OpLTE:
		vm.push(boolWord(b <= a))
	case bytecode.OpGTE:
		vm.push(boolWord(b >= a))
	case bytecode.OpNEQ:
		vm.push(boolWord(b != a))
	}
	return nil
}

func boolWord(v bool) int64 {
	if v {
		return 1
	}
	return 0
}

// call pops the callee's resolved address and pushes a new frame whose
// frameBase points at the n argument words already on the stack below it
// — they become the callee's first locals. The return address and saved
// frame-base are tracked on a side call stack, not interleaved into the
// value stack, so LOCALL/LOCALS addressing never has to skip over them.
func (vm *VM) call(n int) error {
	addr, err := vm.pop()
	if err != nil {
		return err
	}
	if len(vm.stack) < n {
		return errors.NewConstraintViolated("CALL has fewer argument words than declared", nil)
	}
	vm.frames = append(vm.frames, callFrame{returnAddr: vm.ip, savedBase: vm.frameBase})
	vm.frameBase = len(vm.stack) - n
	vm.ip = int(addr)
	return nil
}

// ret tears down the current frame and resumes the caller. When there is
// no enclosing frame (returning from the synthetic "main"), it reports the
// final result directly instead of resuming execution.
func (vm *VM) ret(hasValue bool) (done bool, result Result) {
	var retVal int64
	var haveRetVal bool
	if hasValue {
		retVal, _ = vm.pop()
		haveRetVal = true
	}

	vm.stack = vm.stack[:vm.frameBase]

	if len(vm.frames) == 0 {
		return true, Result{Status: Finished, Value: retVal, HasValue: haveRetVal}
	}

	f := vm.frames[len(vm.frames)-1]
	vm.frames = vm.frames[:len(vm.frames)-1]
	vm.frameBase = f.savedBase
	vm.ip = f.returnAddr

	if haveRetVal {
		vm.push(retVal)
	}
	return false, Result{}
}

func (vm *VM) regFFI(inst bytecode.Instruction) error {
	library := readCString(vm.program.Data, int(inst.Arg1))
	symbol := readCString(vm.program.Data, int(inst.Arg2))
	tag := ffi.ReturnTag(inst.Arg3)

	handle, err := vm.bridge.Register(library, symbol, tag)
	if err != nil {
		return errors.NewConstraintViolated(err.Error(), nil)
	}
	vm.push(handle)
	return nil
}

func (vm *VM) callFFI() error {
	handle, err := vm.pop()
	if err != nil {
		return err
	}
	args := vm.ffiArgs
	vm.ffiArgs = nil

	result, hasResult, err := vm.bridge.Call(handle, args)
	if err != nil {
		return errors.NewConstraintViolated(err.Error(), nil)
	}
	if hasResult {
		vm.push(result)
	}
	return nil
}

func readCString(data []byte, offset int) string {
	end := offset
	for end < len(data) && data[end] != 0 {
		end++
	}
	return string(data[offset:end])
}
