package luna

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocCellReusesFreedCells(t *testing.T) {
	h := NewHeap(DefaultGCThreshold)
	h.SetRootProvider(func() []Object { return nil }) // nothing is ever reachable

	first := NewArray(h, nil)
	h.Collect()
	stats := h.Stats()
	assert.Equal(t, int64(1), stats.Collections)
	assert.Equal(t, int64(0), stats.LiveObjects)

	second := NewArray(h, []Value{IntValue(1)})
	require.NotNil(t, second)
	assert.Equal(t, 1, second.Len())
	assert.Equal(t, len(h.blocks[ClassArray].cells), 1, "the freed cell must have been reused rather than a new one appended")

	_ = first
}

func TestCollectKeepsReachableObjectsAlive(t *testing.T) {
	h := NewHeap(DefaultGCThreshold)
	kept := NewArray(h, nil)
	h.SetRootProvider(func() []Object { return []Object{kept} })

	child := NewArray(h, []Value{IntValue(9)})
	kept.Push(ObjectValue(child))

	h.Collect()
	assert.Equal(t, int64(2), h.Stats().LiveObjects, "both the root array and its referenced child must survive")

	v, err := kept.Get(0)
	require.NoError(t, err)
	require.True(t, v.IsObject())
	assert.Equal(t, 1, v.Object().(*ArrayObj).Len())
}

func TestCollectSweepsUnreachableCycle(t *testing.T) {
	h := NewHeap(DefaultGCThreshold)
	h.SetRootProvider(func() []Object { return nil })

	a := NewPlainObject(h)
	b := NewPlainObject(h)
	nameA := newFlatString(h, "a")
	nameB := newFlatString(h, "b")
	a.Set(nameB, ObjectValue(b))
	b.Set(nameA, ObjectValue(a))

	h.Collect()
	assert.Equal(t, int64(0), h.Stats().LiveObjects, "a reference cycle unreachable from any root must still be collected")
}

func TestThresholdTriggersCollectBeforeAllocReturns(t *testing.T) {
	h := NewHeap(int64(classCellSize(ClassArray))) // threshold crosses after exactly one array alloc
	h.SetRootProvider(func() []Object { return nil })

	NewArray(h, nil)
	before := h.Stats().Collections

	// This allocation must observe bytesAlloc >= threshold from the first
	// array and collect before carving the new cell.
	NewArray(h, nil)
	assert.Greater(t, h.Stats().Collections, before)
}
