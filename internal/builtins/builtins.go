// Package builtins provides the native function bodies spec.md section 1
// explicitly excludes from the core: print, len, raise, import, and the
// process object. cmd/lunavm is the embedding that wires this package into
// an otherwise bare InterpreterState.
package builtins

import (
	"fmt"
	"os"

	"luna/internal/luna"
	"luna/internal/parser"
)

// Wire installs every builtin, including the `process` object, into is's
// global table. argv is the program's own argument vector (spec.md's process module,
// an addition from original_source since the distilled spec stayed silent
// on host-process access).
func Wire(is *luna.InterpreterState, argv []string) {
	is.RegisterBuiltin("print", builtinPrint)
	is.RegisterBuiltin("len", builtinLen)
	is.RegisterBuiltin("raise", builtinRaise)
	is.RegisterBuiltin("import", makeImport(is))
	is.RegisterBuiltin("Hashmap", builtinHashmap)

	proc := luna.NewPlainObject(is.Heap)
	argArr := make([]luna.Value, len(argv))
	for i, a := range argv {
		argArr[i] = luna.ObjectValue(is.Interner.Intern(a))
	}
	proc.Set(is.Interner.Intern("argv"), luna.ObjectValue(luna.NewArray(is.Heap, argArr)))
	proc.Set(is.Interner.Intern("cwd"), luna.ObjectValue(luna.NewNativeFunction(is.Heap, "cwd", func(vm *luna.VM, self luna.Value, args []luna.Value) (luna.Value, error) {
		dir, err := os.Getwd()
		if err != nil {
			return luna.Value{}, err
		}
		return luna.ObjectValue(is.Interner.Intern(dir)), nil
	})))
	// gcStats surfaces the heap's bookkeeping counters (see heap.go's
	// HeapStats) to Luna code, e.g. for a script that wants to report on
	// its own memory behavior without a dedicated profiling tool.
	proc.Set(is.Interner.Intern("gcStats"), luna.ObjectValue(luna.NewNativeFunction(is.Heap, "gcStats", func(vm *luna.VM, self luna.Value, args []luna.Value) (luna.Value, error) {
		stats := is.Heap.Stats()
		o := luna.NewPlainObject(is.Heap)
		o.Set(is.Interner.Intern("liveObjects"), luna.IntValue(stats.LiveObjects))
		o.Set(is.Interner.Intern("collections"), luna.IntValue(stats.Collections))
		o.Set(is.Interner.Intern("bytesFreed"), luna.IntValue(stats.BytesFreed))
		return luna.ObjectValue(o), nil
	})))
	is.Builtins.Set(is.Interner.Intern("process"), luna.ObjectValue(proc))
}

func builtinPrint(vm *luna.VM, self luna.Value, args []luna.Value) (luna.Value, error) {
	parts := make([]interface{}, len(args))
	for i, a := range args {
		parts[i] = luna.ToDisplayString(a)
	}
	line := ""
	for i, p := range parts {
		if i > 0 {
			line += " "
		}
		line += fmt.Sprint(p)
	}
	fmt.Println(line)
	return luna.None, nil
}

func builtinLen(vm *luna.VM, self luna.Value, args []luna.Value) (luna.Value, error) {
	if len(args) != 1 {
		return luna.Value{}, luna.RaiseArityError(vm.Heap, "len() takes exactly 1 argument, got %d", len(args))
	}
	v := args[0]
	if v.Kind() != luna.KindObject {
		return luna.Value{}, luna.RaiseTypeError(vm.Heap, "object of type '%s' has no len()", v.TypeName())
	}
	switch o := v.Object().(type) {
	case *luna.StringObj:
		return luna.IntValue(int64(o.Len())), nil
	case *luna.ArrayObj:
		return luna.IntValue(int64(o.Len())), nil
	case *luna.HashmapObj:
		return luna.IntValue(int64(o.Len())), nil
	default:
		return luna.Value{}, luna.RaiseTypeError(vm.Heap, "object of type '%s' has no len()", v.TypeName())
	}
}

// builtinRaise implements the `raise(message)` builtin (spec.md section 7's
// ErrUserError path): the first argument's display string becomes the
// message and any further arguments are ignored. It always produces a
// Go error wrapping a fresh *ErrorObj, which unwinds the dispatch loop
// exactly like a VM-originated fault.
func builtinRaise(vm *luna.VM, self luna.Value, args []luna.Value) (luna.Value, error) {
	msg := "error"
	if len(args) >= 1 {
		msg = luna.ToDisplayString(args[0])
	}
	return luna.Value{}, &luna.RaisedError{Obj: luna.NewError(vm.Heap, luna.ErrUserError, msg, nil)}
}

// builtinHashmap constructs an arbitrary-key table (SPEC_FULL.md's supplement
// restoring original_source/src/runtime/objects/hashmap.c). Unlike `{...}`
// object literals, which build a named-property PlainObject, a Hashmap has
// no literal syntax of its own and is only reachable through this
// constructor plus subscript get/set; callers needing named fields should
// use `{...}` instead (codegen.go's genObjectLiteral).
func builtinHashmap(vm *luna.VM, self luna.Value, args []luna.Value) (luna.Value, error) {
	hm := luna.NewHashmap(vm.Heap)
	for _, pair := range args {
		arr, ok := pair.Object().(*luna.ArrayObj)
		if pair.Kind() != luna.KindObject || !ok || arr.Len() != 2 {
			return luna.Value{}, luna.RaiseTypeError(vm.Heap, "Hashmap() arguments must be [key, value] pairs")
		}
		k, _ := arr.Get(0)
		v, _ := arr.Get(1)
		hm.Set(k, v)
	}
	return luna.ObjectValue(hm), nil
}

// makeImport closes over the InterpreterState so it can reach the module
// cache and the base directory imports are resolved against (SPEC_FULL.md's
// import design, grounded in original_source's module-cache behavior).
func makeImport(is *luna.InterpreterState) luna.NativeFn {
	return func(vm *luna.VM, self luna.Value, args []luna.Value) (luna.Value, error) {
		if len(args) != 1 {
			return luna.Value{}, luna.RaiseArityError(vm.Heap, "import() takes exactly 1 argument, got %d", len(args))
		}
		pathStr, ok := args[0].Object().(*luna.StringObj)
		if args[0].Kind() != luna.KindObject || !ok {
			return luna.Value{}, luna.RaiseTypeError(vm.Heap, "import() requires a string path")
		}
		path := pathStr.String()

		if m, ok := is.ResolveImport(path); ok {
			return vm.RunModule(m)
		}

		src, err := os.ReadFile(path)
		if err != nil {
			return luna.Value{}, fmt.Errorf("import: %w", err)
		}
		prog, err := parser.Parse(string(src))
		if err != nil {
			return luna.Value{}, fmt.Errorf("import: %s: %w", path, err)
		}
		exec, err := luna.Compile(is.Heap, is.Interner, prog, path)
		if err != nil {
			return luna.Value{}, fmt.Errorf("import: %s: %w", path, err)
		}
		mod := luna.NewModule(is.Heap, path, exec)
		is.CacheModule(path, mod)
		return vm.RunModule(mod)
	}
}
