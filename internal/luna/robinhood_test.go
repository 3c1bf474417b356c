package luna

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intTable() *Table[int] {
	return newTable[int](func(k int) uint64 { return uint64(k) })
}

func TestTableSetGet(t *testing.T) {
	tbl := intTable()
	tbl.Set(1, IntValue(100))
	tbl.Set(2, IntValue(200))

	v, ok := tbl.Get(1)
	require.True(t, ok)
	assert.Equal(t, int64(100), v.Int())

	v, ok = tbl.Get(2)
	require.True(t, ok)
	assert.Equal(t, int64(200), v.Int())

	_, ok = tbl.Get(3)
	assert.False(t, ok)
}

func TestTableOverwriteKeepsCount(t *testing.T) {
	tbl := intTable()
	tbl.Set(1, IntValue(1))
	tbl.Set(1, IntValue(2))
	assert.Equal(t, 1, tbl.Len())
	v, _ := tbl.Get(1)
	assert.Equal(t, int64(2), v.Int())
}

func TestTableDeleteThenProbePastTombstone(t *testing.T) {
	tbl := intTable()
	// Force every key to collide on the same ideal slot so Get/Delete must
	// walk past tombstones rather than relying on a PSL-based shortcut.
	tbl.hashFn = func(int) uint64 { return 0 }
	for i := 0; i < 5; i++ {
		tbl.Set(i, IntValue(int64(i)))
	}
	require.True(t, tbl.Delete(2))
	// 3 and 4 probed past slot 2's original position; they must still be
	// reachable after 2 becomes a tombstone.
	v, ok := tbl.Get(3)
	require.True(t, ok, "lookup must not stop early at a tombstone left by Delete")
	assert.Equal(t, int64(3), v.Int())
	v, ok = tbl.Get(4)
	require.True(t, ok)
	assert.Equal(t, int64(4), v.Int())

	_, ok = tbl.Get(2)
	assert.False(t, ok)
}

func TestTableGrowPreservesEntries(t *testing.T) {
	tbl := intTable()
	const n = 200
	for i := 0; i < n; i++ {
		tbl.Set(i, IntValue(int64(i*i)))
	}
	require.Equal(t, n, tbl.Len())
	for i := 0; i < n; i++ {
		v, ok := tbl.Get(i)
		require.True(t, ok, fmt.Sprintf("key %d missing after growth", i))
		assert.Equal(t, int64(i*i), v.Int())
	}
}

func TestTableKeysAndForEach(t *testing.T) {
	tbl := intTable()
	tbl.Set(1, IntValue(1))
	tbl.Set(2, IntValue(2))
	tbl.Delete(1)

	keys := tbl.Keys()
	assert.ElementsMatch(t, []int{2}, keys)

	seen := map[int]int64{}
	tbl.ForEach(func(k int, v Value) { seen[k] = v.Int() })
	assert.Equal(t, map[int]int64{2: 2}, seen)
}

func TestPropertyMapIdentityKeyed(t *testing.T) {
	h := NewHeap(DefaultGCThreshold)
	in := NewInterner(h)
	pm := newPropertyMap()

	name := in.Intern("x")
	pm.Set(name, IntValue(1))

	// A second Intern of the same content returns the same pointer, so the
	// identity-keyed lookup must find it.
	same := in.Intern("x")
	v, ok := pm.Get(same)
	require.True(t, ok)
	assert.Equal(t, int64(1), v.Int())
}
