package luna

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueTruthy(t *testing.T) {
	h := NewHeap(DefaultGCThreshold)
	in := NewInterner(h)

	assert.False(t, None.Truthy())
	assert.False(t, Undefined.Truthy())
	assert.False(t, IntValue(0).Truthy())
	assert.True(t, IntValue(1).Truthy())
	assert.False(t, BoolValue(false).Truthy())
	assert.True(t, BoolValue(true).Truthy())

	empty := ObjectValue(in.Intern(""))
	nonEmpty := ObjectValue(in.Intern("x"))
	assert.False(t, empty.Truthy())
	assert.True(t, nonEmpty.Truthy())

	emptyArr := ObjectValue(NewArray(h, nil))
	fullArr := ObjectValue(NewArray(h, []Value{IntValue(1)}))
	assert.False(t, emptyArr.Truthy())
	assert.True(t, fullArr.Truthy())
}

func TestValueEqualInternedStrings(t *testing.T) {
	h := NewHeap(DefaultGCThreshold)
	in := NewInterner(h)

	a := ObjectValue(in.Intern("hello"))
	b := ObjectValue(in.Intern("hello"))
	require.True(t, Equal(a, b))

	// Interning is content-addressed, so the two calls above must have
	// returned the identical pointer, not merely equal content.
	assert.Same(t, a.Object(), b.Object())

	c := ObjectValue(in.Intern("world"))
	assert.False(t, Equal(a, c))
}

func TestValueEqualRopeFlattensBeforeCompare(t *testing.T) {
	h := NewHeap(DefaultGCThreshold)
	in := NewInterner(h)

	left := in.Intern("foo")
	right := in.Intern("bar")
	rope := NewRope(h, left, right)
	flat := in.Intern("foobar")

	assert.True(t, Equal(ObjectValue(rope), ObjectValue(flat)))
}

func TestValueTypeName(t *testing.T) {
	h := NewHeap(DefaultGCThreshold)
	assert.Equal(t, "none", None.TypeName())
	assert.Equal(t, "int", IntValue(1).TypeName())
	assert.Equal(t, "bool", BoolValue(true).TypeName())
	assert.Equal(t, "array", ObjectValue(NewArray(h, nil)).TypeName())
}

func TestToDisplayString(t *testing.T) {
	h := NewHeap(DefaultGCThreshold)
	in := NewInterner(h)
	assert.Equal(t, "42", ToDisplayString(IntValue(42)))
	assert.Equal(t, "true", ToDisplayString(BoolValue(true)))
	assert.Equal(t, "none", ToDisplayString(None))
	arr := NewArray(h, []Value{IntValue(1), ObjectValue(in.Intern("x"))})
	assert.Equal(t, "[1, x]", ToDisplayString(ObjectValue(arr)))
}
