package luna

// Interner content-addresses every flat string Luna code produces so that
// `==` on strings degrades to pointer comparison (spec.md section 4.2).
// The original spec sketches a BST keyed by byte content; this uses a Go
// map instead, keyed by the same byte content, which gives the same
// content-addressing guarantee with the language's native O(1) average
// lookup rather than a hand-rolled tree. The blake2b hash cached on each
// StringObj's header (hash.go) is kept regardless, since the Hashmap and
// property map tables need it for their own probing once a string is used
// as a key or property name — it's a secondary placement aid, not the
// interner's primary index.
type Interner struct {
	heap    *Heap
	entries map[string]*StringObj
}

func NewInterner(h *Heap) *Interner {
	return &Interner{heap: h, entries: make(map[string]*StringObj)}
}

// Intern returns the canonical *StringObj for s, allocating one the first
// time s's content is seen.
func (in *Interner) Intern(s string) *StringObj {
	if so, ok := in.entries[s]; ok {
		return so
	}
	so := newFlatString(in.heap, s)
	so.owner = in
	in.entries[s] = so
	return so
}

// Roots returns every interned string so the collector can treat the
// interner itself as a GC root (spec.md section 3: "insert ... every
// interned string" into the root set).
func (in *Interner) Roots() []Object {
	out := make([]Object, 0, len(in.entries))
	for _, s := range in.entries {
		out = append(out, s)
	}
	return out
}

// forget drops dead entries after a collection so the interner's map
// doesn't grow without bound across a long-running program. Called by the
// sweeping pass via the string type's Finalize hook.
func (in *Interner) forget(s *StringObj) {
	if in.entries[s.flat] == s {
		delete(in.entries, s.flat)
	}
}
