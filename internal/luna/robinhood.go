package luna

// Table is an open-addressed Robin Hood hash table (spec.md section 3's
// "Property map" subsection), generalized over its key type so the same
// probing/displacement logic backs both the interned-string-keyed property
// map used for object properties and the Value-keyed table backing the
// Hashmap object (SPEC_FULL.md's supplement to cover the dropped
// original_source/src/runtime/objects/hashmap.c feature).
type Table[K comparable] struct {
	entries []tableEntry[K]
	count   int
	tombs   int
	hashFn  func(K) uint64
}

type tableEntry[K comparable] struct {
	key   K
	value Value
	state entryState
	psl   int // probe sequence length: distance from the key's ideal slot
}

type entryState uint8

const (
	slotEmpty entryState = iota
	slotUsed
	slotTomb
)

const tableLoadFactor = 0.75

func newTable[K comparable](hashFn func(K) uint64) *Table[K] {
	t := &Table[K]{hashFn: hashFn}
	t.entries = make([]tableEntry[K], 8)
	return t
}

func (t *Table[K]) Len() int { return t.count }

func (t *Table[K]) indexFor(h uint64) int { return int(h % uint64(len(t.entries))) }

// Get returns the value stored under key and whether it was present.
func (t *Table[K]) Get(key K) (Value, bool) {
	if len(t.entries) == 0 {
		return Value{}, false
	}
	h := t.hashFn(key)
	idx := t.indexFor(h)
	// Probes until an empty slot or a full wrap (rather than relying on
	// the Robin Hood non-decreasing-PSL shortcut), since tombstones left
	// by Delete break that invariant along a probe chain.
	for probed := 0; probed <= len(t.entries); probed++ {
		e := &t.entries[idx]
		if e.state == slotEmpty {
			return Value{}, false
		}
		if e.state == slotUsed && e.key == key {
			return e.value, true
		}
		idx = (idx + 1) % len(t.entries)
	}
	return Value{}, false
}

// Set inserts or overwrites key's value, growing the table first if doing
// so would exceed the load factor.
func (t *Table[K]) Set(key K, value Value) {
	// Overwrite in place first: insert stops at the first tombstone, which
	// may lie ahead of an existing entry for key on the same probe chain.
	idx := t.indexFor(t.hashFn(key))
	for probed := 0; probed <= len(t.entries); probed++ {
		e := &t.entries[idx]
		if e.state == slotEmpty {
			break
		}
		if e.state == slotUsed && e.key == key {
			e.value = value
			return
		}
		idx = (idx + 1) % len(t.entries)
	}
	if float64(t.count+1) > tableLoadFactor*float64(len(t.entries)) {
		t.grow()
	}
	t.insert(key, value)
}

func (t *Table[K]) insert(key K, value Value) {
	h := t.hashFn(key)
	idx := t.indexFor(h)
	incoming := tableEntry[K]{key: key, value: value, state: slotUsed, psl: 0}
	for {
		e := &t.entries[idx]
		if e.state != slotUsed {
			if e.state == slotTomb {
				t.tombs--
			}
			*e = incoming
			t.count++
			return
		}
		if e.key == incoming.key {
			e.value = incoming.value
			return
		}
		if incoming.psl > e.psl {
			// Robin Hood displacement: steal from the rich (short-PSL)
			// entry, let it continue probing from here.
			incoming, *e = *e, incoming
		}
		idx = (idx + 1) % len(t.entries)
		incoming.psl++
	}
}

func (t *Table[K]) grow() {
	old := t.entries
	t.entries = make([]tableEntry[K], len(old)*2)
	t.count = 0
	t.tombs = 0
	for _, e := range old {
		if e.state == slotUsed {
			t.insert(e.key, e.value)
		}
	}
}

// Delete removes key if present, leaving a tombstone behind so later
// probes for colliding keys keep working.
func (t *Table[K]) Delete(key K) bool {
	if len(t.entries) == 0 {
		return false
	}
	h := t.hashFn(key)
	idx := t.indexFor(h)
	for probed := 0; probed <= len(t.entries); probed++ {
		e := &t.entries[idx]
		if e.state == slotEmpty {
			return false
		}
		if e.state == slotUsed && e.key == key {
			e.state = slotTomb
			e.value = Value{}
			t.count--
			t.tombs++
			return true
		}
		idx = (idx + 1) % len(t.entries)
	}
	return false
}

// ForEach calls fn for every live key/value pair. Order is unspecified.
func (t *Table[K]) ForEach(fn func(K, Value)) {
	for _, e := range t.entries {
		if e.state == slotUsed {
			fn(e.key, e.value)
		}
	}
}

// Keys returns every live key, in table order.
func (t *Table[K]) Keys() []K {
	out := make([]K, 0, t.count)
	for _, e := range t.entries {
		if e.state == slotUsed {
			out = append(out, e.key)
		}
	}
	return out
}
