package vm

import (
	"testing"

	"github.com/student/stackscript/internal/bytecode"
	"github.com/student/stackscript/internal/ffi"
)

// TestRunLeavesBridgeOpenAcrossPause guards the resumable-pause contract:
// a Paused Run must not tear down the FFI bridge, since a later Run call on
// the same VM value may still need to execute CALL_FFI against a handle
// registered before the pause.
func TestRunLeavesBridgeOpenAcrossPause(t *testing.T) {
	program := &bytecode.Program{
		Code: []bytecode.Instruction{
			{Op: bytecode.OpPush, Arg1: 1},
			{Op: bytecode.OpPush, Arg1: 2},
			{Op: bytecode.OpAdd},
			{Op: bytecode.OpTerm},
		},
	}

	machine := New(program)
	handle, err := machine.bridge.Register("libm.so.6", "labs", ffi.ReturnNumber)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	result, err := machine.Run(2)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != Paused {
		t.Fatalf("expected Paused after a 2-instruction budget, got %+v", result)
	}

	if v, _, err := machine.bridge.Call(handle, []int64{-7}); err != nil || v != 7 {
		t.Fatalf("expected the FFI bridge to survive a pause and still call labs(-7)=7, got %d, %v", v, err)
	}

	result, err = machine.Run(0)
	if err != nil {
		t.Fatalf("resumed Run: %v", err)
	}
	if result.Status != Finished || result.Value != 3 {
		t.Fatalf("expected the resumed run to finish with 3, got %+v", result)
	}

	if len(machine.bridge.libraries) != 0 {
		t.Fatal("expected Run to release every library handle once the run actually finished")
	}
}

// TestCloseReleasesAnAbandonedPause covers the other half of the contract:
// a caller that never resumes a Paused VM can still release its FFI
// handles explicitly via Close.
func TestCloseReleasesAnAbandonedPause(t *testing.T) {
	program := &bytecode.Program{
		Code: []bytecode.Instruction{
			{Op: bytecode.OpPush, Arg1: 1},
			{Op: bytecode.OpTerm},
		},
	}

	machine := New(program)
	if _, err := machine.bridge.Register("libm.so.6", "labs", ffi.ReturnNumber); err != nil {
		t.Fatalf("Register: %v", err)
	}

	result, err := machine.Run(1)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != Paused {
		t.Fatalf("expected Paused, got %+v", result)
	}
	if len(machine.bridge.libraries) == 0 {
		t.Fatal("expected the bridge to still hold its library handle while paused")
	}

	machine.Close()

	if len(machine.bridge.libraries) != 0 {
		t.Fatal("expected Close to release the bridge even though the run was only paused")
	}
}
