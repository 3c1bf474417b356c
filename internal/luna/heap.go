package luna

// Class identifies a segregated size class. spec.md section 3 describes
// the heap as "a set of blocks, each block serving one size class of
// cells". Go cannot safely carve an untyped byte arena into arbitrary
// pointer-containing structs (that would defeat the runtime's own GC
// scanning), so each size class here corresponds to exactly one concrete
// Go type; DESIGN.md records this substitution and why it is the
// idiomatic analogue rather than a shortcut.
type Class int

const (
	ClassPlainObject Class = iota
	ClassString
	ClassArray
	ClassFunction
	ClassExecutable
	ClassError
	ClassHashmap
	ClassModule
	ClassIterator
	classCount
)

// block is one size class's pool: every cell ever carved (cells, alive or
// dead) plus a free list threaded through dead cells' headers.
type block struct {
	cellSize int
	cells    []Object
	freeHead Object
	freeLen  int
}

// RootFunc is supplied by the interpreter state once the VM exists, so the
// heap can enumerate roots from inside allocCell when a collection is
// triggered by crossing the byte threshold (spec.md section 3: "allocation
// triggers collect() before returning").
type RootFunc func() []Object

// Heap owns every size class, the GC threshold, and the root callback. One
// Heap is shared by the whole interpreter (spec.md section 3).
type Heap struct {
	blocks      [classCount]block
	bytesAlloc  int64
	threshold   int64
	roots       RootFunc
	collections int64
	stats       HeapStats
}

// HeapStats is exposed for the `process` builtin's gcStats (spec.md
// section 6's debug surface), not part of the allocation hot path.
type HeapStats struct {
	LiveObjects int64
	Collections int64
	BytesFreed  int64
}

func NewHeap(threshold int64) *Heap {
	h := &Heap{threshold: threshold}
	for i := range h.blocks {
		h.blocks[i].cellSize = classCellSize(Class(i))
	}
	return h
}

func classCellSize(c Class) int {
	switch c {
	case ClassPlainObject:
		return 48
	case ClassString:
		return 40
	case ClassArray:
		return 56
	case ClassFunction:
		return 64
	case ClassExecutable:
		return 96
	case ClassError:
		return 56
	case ClassHashmap:
		return 64
	case ClassModule:
		return 72
	case ClassIterator:
		return 40
	default:
		return 32
	}
}

// SetRootProvider wires the closure the heap calls to find GC roots. Must
// be called once before any allocation can trigger a threshold collection.
func (h *Heap) SetRootProvider(fn RootFunc) { h.roots = fn }

// allocCell is the single entry point every constructor in this package
// funnels through. zero constructs a brand-new cell when the free list is
// empty; reset clears a recycled cell's payload fields before reuse.
func allocCell[T Object](h *Heap, class Class, zero func() T, reset func(T)) T {
	if h.bytesAlloc >= h.threshold && h.roots != nil {
		h.Collect()
	}
	blk := &h.blocks[class]
	var obj T
	if blk.freeHead != nil {
		obj = blk.freeHead.(T)
		blk.freeHead = obj.header().next
		blk.freeLen--
		obj.header().next = nil
		if reset != nil {
			reset(obj)
		}
	} else {
		obj = zero()
		blk.cells = append(blk.cells, obj)
	}
	hdr := obj.header()
	hdr.alive = true
	hdr.marked = false
	hdr.hash = nextIdentityHash()
	h.bytesAlloc += int64(blk.cellSize)
	h.stats.LiveObjects++
	return obj
}

// Collect runs a full stop-the-world mark-sweep pass (spec.md section 3's
// "Garbage collector" subsection): clear every mark bit, trace from roots,
// then sweep every cell that ended the trace unmarked.
func (h *Heap) Collect() {
	if h.roots == nil {
		return
	}
	for i := range h.blocks {
		for _, c := range h.blocks[i].cells {
			c.header().marked = false
		}
	}

	v := newVisitor()
	for _, r := range h.roots() {
		v.Mark(r)
	}
	// The interned strings, the builtin table and the module cache are
	// always-live roots not reachable through ordinary frame scanning.
	for _, r := range globalInternalRoots() {
		v.Mark(r)
	}

	var freed int64
	for i := range h.blocks {
		blk := &h.blocks[i]
		for _, c := range blk.cells {
			hd := c.header()
			if hd.alive && !hd.marked {
				if hd.typ != nil && hd.typ.Finalize != nil {
					hd.typ.Finalize(c)
				}
				hd.alive = false
				hd.next = blk.freeHead
				blk.freeHead = c
				blk.freeLen++
				freed += int64(blk.cellSize)
				h.stats.LiveObjects--
			}
		}
	}
	h.bytesAlloc = 0
	h.collections++
	h.stats.Collections = h.collections
	h.stats.BytesFreed += freed
}

func (h *Heap) Stats() HeapStats { return h.stats }

// globalInternalRoots is overridden per-interpreter via internalRootsFn;
// the default returns nothing (useful for the package's own unit tests
// that build a Heap without a full InterpreterState).
var internalRootsFn func() []Object

func globalInternalRoots() []Object {
	if internalRootsFn == nil {
		return nil
	}
	return internalRootsFn()
}
