package luna

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"luna/internal/parser"
)

// runScript compiles and executes src as a module's top level, returning its
// result value. It builds a minimal InterpreterState without wiring the
// internal/builtins package (that package itself depends on this one, so
// pulling it into this package's own test binary isn't warranted just to
// exercise the VM/codegen pair end to end).
func runScript(t *testing.T, src string) (Value, *InterpreterState) {
	t.Helper()
	prog, err := parser.Parse(src)
	require.NoError(t, err)

	is, err := NewInterpreterState(DefaultGCThreshold, ".")
	require.NoError(t, err)

	exec, err := Compile(is.Heap, is.Interner, prog, "<test>")
	require.NoError(t, err)

	mod := NewModule(is.Heap, "<test>", exec)
	is.CacheModule("<test>", mod)

	v, err := is.VM.RunModule(mod)
	require.NoError(t, err)
	return v, is
}

func TestVMArithmetic(t *testing.T) {
	v, _ := runScript(t, `
		let a = 2;
		let b = 3;
		return a * b + 1;
	`)
	assert.Equal(t, int64(7), v.Int())
}

func TestVMDivisionTruncatesTowardZero(t *testing.T) {
	v, _ := runScript(t, `return 7 / 2;`)
	assert.Equal(t, int64(3), v.Int())

	v, _ = runScript(t, `return -7 / 2;`)
	assert.Equal(t, int64(-3), v.Int(), "division must truncate toward zero, not multiply or floor")
}

func TestVMIfElse(t *testing.T) {
	v, _ := runScript(t, `
		let x = 10;
		if x > 5 {
			return "big";
		} else {
			return "small";
		}
	`)
	require.True(t, v.IsObject())
	assert.Equal(t, "big", v.Object().(*StringObj).String())
}

func TestVMWhileLoop(t *testing.T) {
	v, _ := runScript(t, `
		let i = 0;
		let sum = 0;
		while i < 5 {
			sum = sum + i;
			i = i + 1;
		}
		return sum;
	`)
	assert.Equal(t, int64(10), v.Int())
}

func TestVMLoopWithBreakAndContinue(t *testing.T) {
	v, _ := runScript(t, `
		let i = 0;
		let sum = 0;
		loop {
			i = i + 1;
			if i > 10 {
				break;
			}
			if i % 2 == 0 {
				continue;
			}
			sum = sum + i;
		}
		return sum;
	`)
	// sum of odd numbers 1..9 inclusive
	assert.Equal(t, int64(25), v.Int())
}

func TestVMForInOverArray(t *testing.T) {
	v, _ := runScript(t, `
		let total = 0;
		for x in [1, 2, 3, 4] {
			total = total + x;
		}
		return total;
	`)
	assert.Equal(t, int64(10), v.Int())
}

func TestVMUserFunctionRecursion(t *testing.T) {
	v, _ := runScript(t, `
		fn fact(n) {
			if n < 2 {
				return 1;
			}
			return n * fact(n - 1);
		}
		return fact(6);
	`)
	assert.Equal(t, int64(720), v.Int())
}

func TestVMArrayLiteralWithComplexElements(t *testing.T) {
	// Regression test: array elements that themselves need intermediate
	// registers (nested literal, a binary op between two sub-expressions)
	// must still land in the contiguous slots MAKE_ARRAY expects.
	v, _ := runScript(t, `
		let a = 1;
		let b = 2;
		return [[a, b], a + b, 9];
	`)
	require.True(t, v.IsObject())
	arr := v.Object().(*ArrayObj)
	require.Equal(t, 3, arr.Len())

	e0, _ := arr.Get(0)
	require.True(t, e0.IsObject())
	inner := e0.Object().(*ArrayObj)
	require.Equal(t, 2, inner.Len())
	iv0, _ := inner.Get(0)
	iv1, _ := inner.Get(1)
	assert.Equal(t, int64(1), iv0.Int())
	assert.Equal(t, int64(2), iv1.Int())

	e1, _ := arr.Get(1)
	assert.Equal(t, int64(3), e1.Int())
	e2, _ := arr.Get(2)
	assert.Equal(t, int64(9), e2.Int())
}

func TestVMObjectLiteralAndMemberAccess(t *testing.T) {
	v, _ := runScript(t, `
		let o = { x: 1, y: 2 };
		return o.x + o.y;
	`)
	assert.Equal(t, int64(3), v.Int())
}

func TestVMMethodAutoBind(t *testing.T) {
	v, _ := runScript(t, `
		fn make() {
			let self = {};
			self.n = 41;
			fn bump() {
				self.n = self.n + 1;
				return self.n;
			}
			self.bump = bump;
			return self;
		}
		let obj = make();
		let f = obj.bump;
		return f();
	`)
	assert.Equal(t, int64(42), v.Int())
}

func TestVMCallArgumentsWithComplexExpressions(t *testing.T) {
	v, _ := runScript(t, `
		fn add3(a, b, c) {
			return a + b + c;
		}
		let x = 1;
		return add3([x, x][0], x + x, 10);
	`)
	assert.Equal(t, int64(13), v.Int())
}

func TestVMArrayMethods(t *testing.T) {
	v, _ := runScript(t, `
		let a = [1, 2];
		a.push(3);
		a.insert(0, 0);
		let last = a.pop();
		a.remove(0);
		return [last, a];
	`)
	require.True(t, v.IsObject())
	result := v.Object().(*ArrayObj)
	last, _ := result.Get(0)
	assert.Equal(t, int64(3), last.Int())

	rest, _ := result.Get(1)
	arr := rest.Object().(*ArrayObj)
	require.Equal(t, 2, arr.Len())
	e0, _ := arr.Get(0)
	e1, _ := arr.Get(1)
	assert.Equal(t, int64(1), e0.Int())
	assert.Equal(t, int64(2), e1.Int())
}

func TestVMNameErrorOnUndefinedGlobal(t *testing.T) {
	_, err := func() (Value, error) {
		prog, err := parser.Parse(`return doesNotExist;`)
		require.NoError(t, err)
		is, err := NewInterpreterState(DefaultGCThreshold, ".")
		require.NoError(t, err)
		exec, err := Compile(is.Heap, is.Interner, prog, "<test>")
		require.NoError(t, err)
		mod := NewModule(is.Heap, "<test>", exec)
		return is.VM.RunModule(mod)
	}()
	require.Error(t, err)
	re, ok := err.(*RaisedError)
	require.True(t, ok)
	assert.Equal(t, ErrNameError, re.Obj.Kind())
}

func TestVMArityErrorOnWrongArgCount(t *testing.T) {
	prog, err := parser.Parse(`
		fn one(a) { return a; }
		return one(1, 2);
	`)
	require.NoError(t, err)
	is, err := NewInterpreterState(DefaultGCThreshold, ".")
	require.NoError(t, err)
	exec, err := Compile(is.Heap, is.Interner, prog, "<test>")
	require.NoError(t, err)
	mod := NewModule(is.Heap, "<test>", exec)
	_, err = is.VM.RunModule(mod)
	require.Error(t, err)
	re, ok := err.(*RaisedError)
	require.True(t, ok)
	assert.Equal(t, ErrArityError, re.Obj.Kind())
}

func TestVMRegisterPoolReleasedAfterCall(t *testing.T) {
	_, is := runScript(t, `
		fn f(n) {
			if n <= 0 {
				return 0;
			}
			return 1 + f(n - 1);
		}
		return f(50);
	`)
	assert.Equal(t, 0, is.VM.regTop, "the shared register pool window must be released back to 0 once every frame has popped")
}
