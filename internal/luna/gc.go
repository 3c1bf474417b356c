package luna

// Visitor accumulates the live set during a trace (spec.md section 3:
// "Trace: starting from the roots, recursively visit every reachable
// object"). Marking an already-marked object is a no-op, which is what
// makes tracing safe over reference cycles (property maps and arrays can
// both point back at their own ancestors).
type Visitor struct{}

func newVisitor() *Visitor { return &Visitor{} }

// Mark adds o to the live set and, the first time it is seen, recurses
// into whatever it references via its type descriptor's Visit hook plus
// the universal default of marking its own type descriptor.
func (v *Visitor) Mark(o Object) {
	if o == nil {
		return
	}
	hd := o.header()
	if hd.marked {
		return
	}
	hd.marked = true
	if hd.typ != nil {
		v.Mark(hd.typ)
	}
	if hd.typ != nil && hd.typ.Visit != nil {
		hd.typ.Visit(o, v)
	}
}

// MarkValue marks v's object payload, if any. None/Undefined/Bool/Int
// values carry no reference.
func (v *Visitor) MarkValue(val Value) {
	if val.kind == KindObject {
		v.Mark(val.obj)
	}
}
