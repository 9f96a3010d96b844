// Package ffi bridges the VM's CALL_FFI opcode to native shared-library
// symbols via cgo's dlopen/dlsym, dispatching arguments through the System V
// AMD64 integer calling convention (rdi, rsi, rdx, rcx, r8, r9).
//
// No example repo in the retrieved corpus wires a third-party FFI library
// (no purego, no syscall.NewCallback) — see DESIGN.md. cgo is the closest
// fit to "what the ecosystem actually reaches for" absent one, since it is
// how Go programs call into C ABI code at all without hand-rolling
// assembly.
package ffi

/*
#include <dlfcn.h>
#include <stdint.h>
#include <stdlib.h>

static void *ss_dlopen(const char *path) {
	return dlopen(path, RTLD_NOW | RTLD_GLOBAL);
}

static void *ss_dlsym(void *handle, const char *name) {
	return dlsym(handle, name);
}

typedef int64_t (*ss_fn0)(void);
typedef int64_t (*ss_fn1)(int64_t);
typedef int64_t (*ss_fn2)(int64_t, int64_t);
typedef int64_t (*ss_fn3)(int64_t, int64_t, int64_t);
typedef int64_t (*ss_fn4)(int64_t, int64_t, int64_t, int64_t);
typedef int64_t (*ss_fn5)(int64_t, int64_t, int64_t, int64_t, int64_t);
typedef int64_t (*ss_fn6)(int64_t, int64_t, int64_t, int64_t, int64_t, int64_t);

static int64_t ss_call(void *fn, int64_t *args, int argc) {
	switch (argc) {
	case 0: return ((ss_fn0)fn)();
	case 1: return ((ss_fn1)fn)(args[0]);
	case 2: return ((ss_fn2)fn)(args[0], args[1]);
	case 3: return ((ss_fn3)fn)(args[0], args[1], args[2]);
	case 4: return ((ss_fn4)fn)(args[0], args[1], args[2], args[3]);
	case 5: return ((ss_fn5)fn)(args[0], args[1], args[2], args[3], args[4]);
	default: return ((ss_fn6)fn)(args[0], args[1], args[2], args[3], args[4], args[5]);
	}
}
*/
import "C"

import (
	"fmt"
	"path/filepath"
	"unsafe"
)

// ReturnTag mirrors bytecode.FFIReturnTag's encoding by convention, not by
// import — internal/bytecode and internal/ffi must not depend on each
// other, so the four tag values are duplicated and kept in step by hand.
// See DESIGN.md.
type ReturnTag int64

const (
	ReturnNumber ReturnTag = iota
	ReturnFloat
	ReturnBool
	ReturnVoid
)

// MaxArgs is the System V AMD64 integer-register argument limit this bridge
// supports: rdi, rsi, rdx, rcx, r8, r9. A call with more arguments is a
// ConstraintViolated raised by the caller, not by this package.
const MaxArgs = 6

type symbol struct {
	fn  unsafe.Pointer
	tag ReturnTag
}

// Bridge owns every dlopen'd library handle and resolved symbol used by one
// VM run. Handles are cached by path so registering the same library twice
// doesn't reopen it, and every handle is released together on Close.
type Bridge struct {
	libraries map[string]unsafe.Pointer
	symbols   map[int64]symbol
	nextID    int64

	// SearchPaths is tried, in order, for a library name that isn't found
	// directly (relative name, or bare name outside the dynamic linker's
	// default search) — populated from --lib-path / .stackscript.yaml.
	SearchPaths []string
}

// NewBridge returns an empty Bridge ready to register symbols.
func NewBridge() *Bridge {
	return &Bridge{
		libraries: map[string]unsafe.Pointer{},
		symbols:   map[int64]symbol{},
	}
}

// Register resolves name within library (dlopen'ing it on first use) and
// returns an opaque handle the VM can carry on its value stack. The handle
// is a small dense integer, not a pointer, so it round-trips safely through
// the VM's int64 stack.
func (b *Bridge) Register(library, name string, tag ReturnTag) (int64, error) {
	handle, ok := b.libraries[library]
	if !ok {
		var err error
		handle, err = b.open(library)
		if err != nil {
			return 0, err
		}
		b.libraries[library] = handle
	}

	cName := C.CString(name)
	defer C.free(unsafe.Pointer(cName))
	fn := C.ss_dlsym(handle, cName)
	if fn == nil {
		return 0, fmt.Errorf("ffi: symbol %q not found in %q", name, library)
	}

	id := b.nextID
	b.nextID++
	b.symbols[id] = symbol{fn: fn, tag: tag}
	return id, nil
}

// open dlopens library directly, then falls back to joining it against each
// SearchPaths entry in order — the same "try as given, then search" rule
// --lib-path and the config file's lib_paths are meant to support.
func (b *Bridge) open(library string) (unsafe.Pointer, error) {
	if handle := dlopen(library); handle != nil {
		return handle, nil
	}
	for _, dir := range b.SearchPaths {
		if handle := dlopen(filepath.Join(dir, library)); handle != nil {
			return handle, nil
		}
	}
	return nil, fmt.Errorf("ffi: could not open library %q (search paths: %v)", library, b.SearchPaths)
}

func dlopen(path string) unsafe.Pointer {
	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))
	return C.ss_dlopen(cPath)
}

// Call invokes the symbol behind handle with args (already in left-to-right
// order) and reports its result. hasResult is false exactly when the
// symbol's declared return tag is ReturnVoid.
func (b *Bridge) Call(handle int64, args []int64) (result int64, hasResult bool, err error) {
	sym, ok := b.symbols[handle]
	if !ok {
		return 0, false, fmt.Errorf("ffi: unknown handle %d", handle)
	}
	if len(args) > MaxArgs {
		return 0, false, fmt.Errorf("ffi: call has %d arguments, max %d", len(args), MaxArgs)
	}

	var cArgs [MaxArgs]C.int64_t
	for i, a := range args {
		cArgs[i] = C.int64_t(a)
	}

	var argsPtr *C.int64_t
	if len(args) > 0 {
		argsPtr = &cArgs[0]
	}
	raw := C.ss_call(sym.fn, argsPtr, C.int(len(args)))

	switch sym.tag {
	case ReturnVoid:
		return 0, false, nil
	case ReturnBool:
		if raw != 0 {
			return 1, true, nil
		}
		return 0, true, nil
	default: // ReturnNumber, ReturnFloat: passed through as a raw word
		return int64(raw), true, nil
	}
}

// Close dlcloses every library this bridge opened. It is always safe to
// call, including on a Bridge that registered nothing.
func (b *Bridge) Close() {
	for path, handle := range b.libraries {
		C.dlclose(handle)
		delete(b.libraries, path)
	}
}
