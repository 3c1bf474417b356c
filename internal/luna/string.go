package luna

// StringObj is either a flat byte run or a rope node joining two other
// strings (spec.md section 4.2). Ropes exist so repeated concatenation in
// a loop stays O(1) per append instead of O(n); the first operation that
// needs the bytes (comparison, indexing, interning) flattens and re-interns
// the whole tree, after which further compares are pointer compares.
type StringObj struct {
	Header
	isRope      bool
	flat        string // valid when !isRope
	left, right *StringObj
	ropeLen     int
	owner       *Interner // back-pointer so Finalize can evict from the interner
	canonical   *StringObj // set once this rope has been flattened; forwards to the interned representative
}

var stringType = newTypeDescriptor("string")

func init() {
	stringType.Finalize = func(o Object) {
		s := o.(*StringObj)
		if !s.isRope && s.owner != nil {
			s.owner.forget(s)
		}
		s.left, s.right, s.owner, s.canonical = nil, nil, nil, nil
	}
	stringType.Visit = func(o Object, v *Visitor) {
		s := o.(*StringObj)
		if s.isRope {
			if s.canonical != nil {
				v.Mark(s.canonical)
			} else {
				v.Mark(s.left)
				v.Mark(s.right)
			}
		}
	}
	stringType.ToString = func(o Object) string { return o.(*StringObj).Flatten().flat }
}

func newFlatString(h *Heap, s string) *StringObj {
	so := allocCell(h, ClassString,
		func() *StringObj { o := &StringObj{}; o.typ = stringType; return o },
		func(o *StringObj) { o.isRope = false; o.left, o.right, o.owner = nil, nil, nil },
	)
	so.flat = s
	so.hash = hashBytes([]byte(s))
	return so
}

// NewRope builds an unflattened concatenation node. It is not interned (it
// has no canonical content-address until flattened), so it is never placed
// in the interner's map.
func NewRope(h *Heap, left, right *StringObj) *StringObj {
	so := allocCell(h, ClassString,
		func() *StringObj { o := &StringObj{}; o.typ = stringType; return o },
		func(o *StringObj) { o.flat = ""; o.owner = nil },
	)
	so.isRope = true
	so.left, so.right = left, right
	so.ropeLen = left.Len() + right.Len()
	return so
}

// Len returns the string's length without forcing a flatten.
func (s *StringObj) Len() int {
	if s.isRope {
		return s.ropeLen
	}
	return len(s.flat)
}

// Flatten collapses a rope to its flat, interned representative, caching a
// forwarding pointer so repeated calls are O(1) after the first (spec.md
// section 4.2: "a rope's length/compare/index operation flattens... and
// re-interns"). Flat strings already interned return themselves.
//
// The forwarding pointer (rather than mutating this node's own fields to
// merely resemble the canonical string) matters for the spec's pointer-
// identity invariant: if "foobar" was already interned from some other
// path before this rope's content happened to match it, Intern() returns
// that pre-existing object, not a fresh one. Copying its fields onto this
// node would leave two distinct *StringObj values both claiming to be the
// one true "foobar", breaking `==`'s pointer comparison. Forwarding to the
// real canonical object keeps every flattened rope equal-by-pointer to
// every other string with the same content, however it was built.
func (s *StringObj) Flatten() *StringObj {
	if !s.isRope {
		return s
	}
	if s.canonical != nil {
		return s.canonical
	}
	buf := make([]byte, 0, s.ropeLen)
	buf = s.appendFlat(buf)
	canonical := s.internerOf().Intern(string(buf))
	s.canonical = canonical
	// The rope's children are only needed to reconstruct the bytes once;
	// drop them so they become collectible once nothing else holds them.
	s.left, s.right = nil, nil
	return canonical
}

func (s *StringObj) appendFlat(buf []byte) []byte {
	if !s.isRope {
		return append(buf, s.flat...)
	}
	if s.canonical != nil {
		return append(buf, s.canonical.flat...)
	}
	buf = s.left.appendFlat(buf)
	buf = s.right.appendFlat(buf)
	return buf
}

// internerOf walks to a leaf to recover the owning Interner, since only
// flat (interned) leaves carry the back-pointer.
func (s *StringObj) internerOf() *Interner {
	if !s.isRope {
		return s.owner
	}
	if s.canonical != nil {
		return s.canonical.owner
	}
	if in := s.left.internerOf(); in != nil {
		return in
	}
	return s.right.internerOf()
}

func (s *StringObj) String() string {
	return s.Flatten().flat
}
