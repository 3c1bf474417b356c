package builtins

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"luna/internal/luna"
)

func newState(t *testing.T) *luna.InterpreterState {
	t.Helper()
	is, err := luna.NewInterpreterState(luna.DefaultGCThreshold, ".")
	require.NoError(t, err)
	return is
}

func TestWireRegistersEveryBuiltin(t *testing.T) {
	is := newState(t)
	Wire(is, []string{"lunavm", "script.luna"})

	for _, name := range []string{"print", "len", "raise", "import", "Hashmap", "process"} {
		_, ok := is.Builtins.Get(is.Interner.Intern(name))
		assert.True(t, ok, "Wire must install %q into the global builtin table", name)
	}
}

func TestBuiltinLenOnStringArrayAndHashmap(t *testing.T) {
	is := newState(t)

	s := is.Interner.Intern("hello")
	v, err := builtinLen(is.VM, luna.Value{}, []luna.Value{luna.ObjectValue(s)})
	require.NoError(t, err)
	assert.Equal(t, int64(5), v.Int())

	arr := luna.NewArray(is.Heap, []luna.Value{luna.IntValue(1), luna.IntValue(2), luna.IntValue(3)})
	v, err = builtinLen(is.VM, luna.Value{}, []luna.Value{luna.ObjectValue(arr)})
	require.NoError(t, err)
	assert.Equal(t, int64(3), v.Int())

	hm := luna.NewHashmap(is.Heap)
	hm.Set(luna.IntValue(1), luna.IntValue(2))
	v, err = builtinLen(is.VM, luna.Value{}, []luna.Value{luna.ObjectValue(hm)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), v.Int())
}

func TestBuiltinLenRejectsArityAndType(t *testing.T) {
	is := newState(t)

	_, err := builtinLen(is.VM, luna.Value{}, nil)
	assert.Error(t, err, "len() with no arguments must error rather than panic on args[0]")

	_, err = builtinLen(is.VM, luna.Value{}, []luna.Value{luna.IntValue(3)})
	assert.Error(t, err, "an int has no len()")
}

func TestBuiltinRaiseProducesUserError(t *testing.T) {
	is := newState(t)

	_, err := builtinRaise(is.VM, luna.Value{}, []luna.Value{luna.ObjectValue(is.Interner.Intern("boom"))})
	require.Error(t, err)

	var raised *luna.RaisedError
	require.ErrorAs(t, err, &raised)
	assert.Equal(t, luna.ErrUserError, raised.Obj.Kind())
	assert.Contains(t, raised.Obj.Error(), "boom")
}

func TestBuiltinRaiseDefaultsMessageWhenNoArgsGiven(t *testing.T) {
	is := newState(t)

	_, err := builtinRaise(is.VM, luna.Value{}, nil)
	require.Error(t, err)
	var raised *luna.RaisedError
	require.ErrorAs(t, err, &raised)
	assert.Contains(t, raised.Obj.Error(), "error")
}

func TestBuiltinHashmapBuildsFromPairs(t *testing.T) {
	is := newState(t)

	pair := func(k, v luna.Value) luna.Value {
		return luna.ObjectValue(luna.NewArray(is.Heap, []luna.Value{k, v}))
	}
	args := []luna.Value{
		pair(luna.IntValue(1), luna.ObjectValue(is.Interner.Intern("one"))),
		pair(luna.IntValue(2), luna.ObjectValue(is.Interner.Intern("two"))),
	}

	v, err := builtinHashmap(is.VM, luna.Value{}, args)
	require.NoError(t, err)

	hm, ok := v.Object().(*luna.HashmapObj)
	require.True(t, ok)
	assert.Equal(t, 2, hm.Len())

	got, ok := hm.Get(luna.IntValue(1))
	require.True(t, ok)
	assert.Equal(t, "one", got.Object().(*luna.StringObj).String())
}

func TestBuiltinHashmapRejectsMalformedPairs(t *testing.T) {
	is := newState(t)

	_, err := builtinHashmap(is.VM, luna.Value{}, []luna.Value{luna.IntValue(1)})
	assert.Error(t, err, "a non-[key,value]-pair argument must be rejected")

	singleton := luna.ObjectValue(luna.NewArray(is.Heap, []luna.Value{luna.IntValue(1)}))
	_, err = builtinHashmap(is.VM, luna.Value{}, []luna.Value{singleton})
	assert.Error(t, err, "a one-element array is not a [key,value] pair")
}

func TestProcessObjectExposesArgvAndCwd(t *testing.T) {
	is := newState(t)
	Wire(is, []string{"lunavm", "run.luna"})

	procVal, ok := is.Builtins.Get(is.Interner.Intern("process"))
	require.True(t, ok)
	proc, ok := procVal.Object().(*luna.PlainObject)
	require.True(t, ok)

	argvVal, ok := proc.Get(is.Interner.Intern("argv"))
	require.True(t, ok)
	argv, ok := argvVal.Object().(*luna.ArrayObj)
	require.True(t, ok)
	require.Equal(t, 2, argv.Len())
	first, _ := argv.Get(0)
	assert.Equal(t, "lunavm", first.Object().(*luna.StringObj).String())

	cwdVal, ok := proc.Get(is.Interner.Intern("cwd"))
	require.True(t, ok)
	_, ok = cwdVal.Object().(*luna.FunctionObj)
	assert.True(t, ok, "process.cwd must be a callable native function")
}

func TestProcessGCStatsReflectsHeapCounters(t *testing.T) {
	is := newState(t)
	Wire(is, []string{"lunavm", "run.luna"})

	procVal, ok := is.Builtins.Get(is.Interner.Intern("process"))
	require.True(t, ok)
	proc := procVal.Object().(*luna.PlainObject)

	statsFnVal, ok := proc.Get(is.Interner.Intern("gcStats"))
	require.True(t, ok)
	statsFn := statsFnVal.Object().(*luna.FunctionObj)

	// Allocate something so LiveObjects is nonzero, then call through the
	// VM's Call dispatch the same way the CALL opcode would.
	luna.NewArray(is.Heap, []luna.Value{luna.IntValue(1)})
	result, err := is.VM.Call(statsFn, luna.Value{}, nil)
	require.NoError(t, err)

	stats := result.Object().(*luna.PlainObject)
	live, ok := stats.Get(is.Interner.Intern("liveObjects"))
	require.True(t, ok)
	assert.Greater(t, live.Int(), int64(0))

	_, ok = stats.Get(is.Interner.Intern("collections"))
	assert.True(t, ok)
	_, ok = stats.Get(is.Interner.Intern("bytesFreed"))
	assert.True(t, ok)
}
