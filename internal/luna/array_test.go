package luna

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArrayPopFromSingleElement(t *testing.T) {
	h := NewHeap(DefaultGCThreshold)
	a := NewArray(h, []Value{IntValue(7)})

	v := a.Pop()
	assert.Equal(t, int64(7), v.Int())
	assert.Equal(t, 0, a.Len())

	// Popping an empty array returns None (spec.md section 8), not an
	// error, and must not read past the backing slice.
	assert.True(t, a.Pop().IsNone())
}

func TestArrayInsertNegativeIndexRejected(t *testing.T) {
	h := NewHeap(DefaultGCThreshold)
	a := NewArray(h, []Value{IntValue(1), IntValue(2)})

	err := a.Insert(-1, IntValue(9))
	require.Error(t, err, "a negative index must be rejected, not wrap around to a huge unsigned shift count")
	assert.Equal(t, 2, a.Len())
}

func TestArrayInsertAtLengthRejected(t *testing.T) {
	h := NewHeap(DefaultGCThreshold)
	a := NewArray(h, []Value{IntValue(1), IntValue(2)})

	// spec.md section 8: insert at an index equal to the array's length is
	// rejected as out-of-bounds, matching the source (not one of the
	// off-by-one bugs section 9 calls out for fixing).
	err := a.Insert(2, IntValue(3))
	assert.Error(t, err)
	assert.Equal(t, 2, a.Len())
}

func TestArrayInsertShiftsRight(t *testing.T) {
	h := NewHeap(DefaultGCThreshold)
	a := NewArray(h, []Value{IntValue(1), IntValue(3)})

	require.NoError(t, a.Insert(1, IntValue(2)))
	for i, want := range []int64{1, 2, 3} {
		v, err := a.Get(int64(i))
		require.NoError(t, err)
		assert.Equal(t, want, v.Int())
	}
}

func TestArrayRemove(t *testing.T) {
	h := NewHeap(DefaultGCThreshold)
	a := NewArray(h, []Value{IntValue(1), IntValue(2), IntValue(3)})

	require.NoError(t, a.Remove(1))
	v0, _ := a.Get(0)
	v1, _ := a.Get(1)
	assert.Equal(t, int64(1), v0.Int())
	assert.Equal(t, int64(3), v1.Int())
	assert.Equal(t, 2, a.Len())
}

func TestArrayGetSetBounds(t *testing.T) {
	h := NewHeap(DefaultGCThreshold)
	a := NewArray(h, []Value{IntValue(1)})

	_, err := a.Get(1)
	assert.Error(t, err)
	_, err = a.Get(-1)
	assert.Error(t, err)

	require.NoError(t, a.Set(0, IntValue(42)))
	v, _ := a.Get(0)
	assert.Equal(t, int64(42), v.Int())
	assert.Error(t, a.Set(5, IntValue(0)))
}
