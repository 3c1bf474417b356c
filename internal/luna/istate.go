package luna

import (
	"path/filepath"

	lru "github.com/hashicorp/golang-lru"
)

// DefaultGCThreshold is the byte count of allocation that triggers a
// collection before the next allocation proceeds (spec.md section 3),
// mirrored here rather than buried as a magic number in heap.go so the
// CLI's -gc-threshold flag has an obvious default to fall back to.
const DefaultGCThreshold = 4 << 20

// DefaultModuleCacheSize bounds how many imported modules stay resident;
// spec.md's import-once semantics only require memoizing by path, but an
// unbounded cache would pin every module a long-running program ever
// imports. golang-lru is mined from the rest of the retrieval pack (it is
// not a teacher dependency) for exactly this bounded-cache role.
const DefaultModuleCacheSize = 256

// InterpreterState wires the heap, interner, VM, global builtin table, and
// module cache together (spec.md section 1's "core" responsibilities, plus
// SPEC_FULL.md's import design). cmd/lunavm constructs exactly one of
// these per process.
type InterpreterState struct {
	Heap     *Heap
	Interner *Interner
	VM       *VM
	Builtins *PropertyMap
	modules  *lru.Cache
	baseDir  string
}

func NewInterpreterState(gcThreshold int64, baseDir string) (*InterpreterState, error) {
	h := NewHeap(gcThreshold)
	in := NewInterner(h)
	vm := NewVM(h, in)
	cache, err := lru.New(DefaultModuleCacheSize)
	if err != nil {
		return nil, err
	}
	is := &InterpreterState{
		Heap:     h,
		Interner: in,
		VM:       vm,
		Builtins: newPropertyMap(),
		modules:  cache,
		baseDir:  baseDir,
	}
	vm.Builtins = is.Builtins
	h.SetRootProvider(func() []Object { return vm.Roots() })
	internalRootsFn = is.internalRoots
	return is, nil
}

// internalRoots covers the GC roots that live outside any call frame: the
// interner's own table and the global builtin table (spec.md section 3:
// "insert into root set: ... every interned string ... every global").
func (is *InterpreterState) internalRoots() []Object {
	out := is.Interner.Roots()
	is.Builtins.ForEach(func(_ *StringObj, v Value) {
		if v.kind == KindObject && v.obj != nil {
			out = append(out, v.obj)
		}
	})
	for _, key := range is.modules.Keys() {
		if m, ok := is.modules.Get(key); ok {
			out = append(out, m.(*ModuleObj))
		}
	}
	return out
}

// RegisterBuiltin installs a native function under name in the global
// builtin table every module sees (internal/builtins wires print/len/
// raise/import/Hashmap through this; `process` is a plain object it sets
// on Builtins directly).
func (is *InterpreterState) RegisterBuiltin(name string, fn NativeFn) {
	is.Builtins.Set(is.Interner.Intern(name), ObjectValue(NewNativeFunction(is.Heap, name, fn)))
}

// ResolveImport returns the cached module for path if one was already
// loaded, or nil if this is the first time it's been seen.
func (is *InterpreterState) ResolveImport(path string) (*ModuleObj, bool) {
	abs, err := filepath.Abs(filepath.Join(is.baseDir, path))
	if err != nil {
		abs = path
	}
	if v, ok := is.modules.Get(abs); ok {
		return v.(*ModuleObj), true
	}
	return nil, false
}

// CacheModule stores a freshly compiled module under its resolved path.
func (is *InterpreterState) CacheModule(path string, m *ModuleObj) {
	abs, err := filepath.Abs(filepath.Join(is.baseDir, path))
	if err != nil {
		abs = path
	}
	is.modules.Add(abs, m)
}
